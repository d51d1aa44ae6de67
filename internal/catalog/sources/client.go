// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/auralis-io/auralis/internal/catalog"
)

// DefaultHTTPTimeout is the transport-level timeout for adapter clients.
// The fetcher applies its own per-source deadline on top of this.
const DefaultHTTPTimeout = 10 * time.Second

// userAgent identifies this client to upstreams. MusicBrainz refuses
// requests without one.
const userAgent = "auralis/1.0 (https://github.com/auralis-io/auralis)"

// newHTTPClient returns the shared client configuration for adapters.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultHTTPTimeout}
}

// getJSON executes an HTTP GET and decodes the JSON response body into out.
// Non-2xx statuses are mapped onto the catalog failure taxonomy so the
// fetcher can classify them without knowing the upstream.
func getJSON(ctx context.Context, client *http.Client, source, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return statusFailure(source, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &catalog.SourceFailure{
			Source: source,
			Reason: catalog.ReasonMalformed,
			Cause:  fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

// statusFailure maps an upstream HTTP status onto a SourceFailure.
func statusFailure(source string, status int) error {
	reason := catalog.ReasonUnavailable
	if status == http.StatusTooManyRequests {
		reason = catalog.ReasonRateLimited
	}
	return &catalog.SourceFailure{
		Source: source,
		Reason: reason,
		Cause:  fmt.Errorf("upstream returned status %d", status),
	}
}

// searchQuery joins intent terms into a single upstream query string.
func searchQuery(terms []string) string {
	query := strings.TrimSpace(strings.Join(terms, " "))
	if query == "" {
		query = "popular music"
	}
	return query
}
