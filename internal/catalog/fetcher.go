// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/auralis-io/auralis/internal/metrics"
)

// FetcherConfig holds fan-out fetch configuration.
type FetcherConfig struct {
	// SourceTimeout bounds each individual source fetch. Exceeding it is a
	// recoverable per-source failure, not a request failure.
	SourceTimeout time.Duration `json:"source_timeout"`

	// ResultLimit is the per-source candidate limit.
	ResultLimit int `json:"result_limit"`

	// RequestsPerSecond rate-limits outbound calls per source.
	// Zero disables rate limiting.
	RequestsPerSecond float64 `json:"requests_per_second"`

	// BreakerFailureThreshold is the consecutive-failure count that opens
	// a source's circuit breaker.
	BreakerFailureThreshold uint32 `json:"breaker_failure_threshold"`

	// BreakerCooldown is how long an open breaker waits before probing.
	BreakerCooldown time.Duration `json:"breaker_cooldown"`
}

// DefaultFetcherConfig returns production defaults.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		SourceTimeout:           3 * time.Second,
		ResultLimit:             25,
		RequestsPerSecond:       5,
		BreakerFailureThreshold: 5,
		BreakerCooldown:         30 * time.Second,
	}
}

// Validate checks configuration bounds.
func (c *FetcherConfig) Validate() error {
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("source_timeout must be positive, got %v", c.SourceTimeout)
	}
	if c.ResultLimit <= 0 {
		return fmt.Errorf("result_limit must be positive, got %d", c.ResultLimit)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative, got %v", c.RequestsPerSecond)
	}
	return nil
}

// sourceSlot wraps a registered source with its resilience machinery.
type sourceSlot struct {
	source  Source
	breaker *gobreaker.CircuitBreaker[[]RawCandidate]
	limiter *rate.Limiter
}

// Fetcher fans a search out to all registered sources concurrently and
// collects the per-source results. It is safe for concurrent use.
type Fetcher struct {
	config FetcherConfig
	slots  []*sourceSlot
	logger zerolog.Logger
}

// NewFetcher creates a fetcher over the given sources.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFetcher(cfg FetcherConfig, logger zerolog.Logger, sources ...Source) (*Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fetcher config: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source required")
	}

	f := &Fetcher{
		config: cfg,
		logger: logger.With().Str("component", "catalog").Logger(),
	}

	for _, src := range sources {
		f.slots = append(f.slots, &sourceSlot{
			source:  src,
			breaker: newSourceBreaker(src.Name(), cfg),
			limiter: newSourceLimiter(cfg),
		})
		f.logger.Info().Str("source", src.Name()).Msg("registered catalog source")
	}

	return f, nil
}

// newSourceBreaker creates the per-source circuit breaker.
func newSourceBreaker(name string, cfg FetcherConfig) *gobreaker.CircuitBreaker[[]RawCandidate] {
	return gobreaker.NewCircuitBreaker[[]RawCandidate](gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
	})
}

// newSourceLimiter creates the per-source rate limiter.
// A nil limiter means rate limiting is disabled.
func newSourceLimiter(cfg FetcherConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}

// Sources returns the names of all registered sources.
func (f *Fetcher) Sources() []string {
	names := make([]string, len(f.slots))
	for i, s := range f.slots {
		names[i] = s.source.Name()
	}
	return names
}

// Fetch runs the fan-out: every source is queried concurrently with an
// independent deadline, and results are collected into fixed per-source
// slots so no shared state is touched during the fan-out. The join returns
// results in registration order. If every source failed the returned error
// wraps ErrAllSourcesFailed; partial failure is not an error.
func (f *Fetcher) Fetch(ctx context.Context, intent *Intent) ([]SourceResult, error) {
	results := make([]SourceResult, len(f.slots))
	terms := intent.Terms()

	g, gctx := errgroup.WithContext(ctx)
	for i, slot := range f.slots {
		g.Go(func() error {
			results[i] = f.fetchOne(gctx, slot, terms)
			return nil
		})
	}
	// Workers only record into their own slot; the group never returns an
	// error, the join is what matters.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch cancelled: %w", err)
	}

	failures := make([]*SourceFailure, 0, len(results))
	for _, r := range results {
		if r.Failed() {
			failures = append(failures, r.Err)
		}
	}
	if len(failures) == len(results) {
		return nil, &AllFailedError{Failures: failures}
	}

	return results, nil
}

// fetchOne queries a single source under its timeout, rate limiter, and
// circuit breaker.
func (f *Fetcher) fetchOne(ctx context.Context, slot *sourceSlot, terms []string) SourceResult {
	name := slot.source.Name()
	result := SourceResult{Source: name}
	start := time.Now()
	defer func() {
		reason := ""
		if result.Err != nil {
			reason = string(result.Err.Reason)
		}
		metrics.ObserveSourceFetch(name, len(result.Candidates), reason, time.Since(start))
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, f.config.SourceTimeout)
	defer cancel()

	if slot.limiter != nil {
		if err := slot.limiter.Wait(fetchCtx); err != nil {
			result.Err = f.classifyFailure(name, err)
			return result
		}
	}

	candidates, err := slot.breaker.Execute(func() ([]RawCandidate, error) {
		return slot.source.Search(fetchCtx, terms, f.config.ResultLimit)
	})
	if err != nil {
		result.Err = f.classifyFailure(name, err)
		f.logger.Warn().
			Str("source", name).
			Str("reason", string(result.Err.Reason)).
			Err(err).
			Msg("source fetch failed, degrading coverage")
		return result
	}

	result.Candidates = dropMalformed(candidates, name, f.logger)
	return result
}

// classifyFailure maps an adapter or infrastructure error onto the failure
// taxonomy.
func (f *Fetcher) classifyFailure(source string, err error) *SourceFailure {
	reason := ReasonUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = ReasonTimeout
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		reason = ReasonUnavailable
	case errors.Is(err, ErrMalformedCandidate):
		reason = ReasonMalformed
	}

	var sf *SourceFailure
	if errors.As(err, &sf) {
		return sf
	}
	return &SourceFailure{Source: source, Reason: reason, Cause: err}
}

// dropMalformed filters out records missing required identity fields.
// Only the offending record is dropped; the source keeps its remaining
// candidates.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func dropMalformed(candidates []RawCandidate, source string, logger zerolog.Logger) []RawCandidate {
	kept := make([]RawCandidate, 0, len(candidates))
	dropped := 0
	for _, c := range candidates {
		if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Artist) == "" {
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	if dropped > 0 {
		logger.Debug().
			Str("source", source).
			Int("dropped", dropped).
			Msg("dropped malformed candidates")
	}
	return kept
}
