// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/auralis-io/auralis/internal/catalog"
)

// DeezerName identifies the Deezer catalog source.
const DeezerName = "deezer"

// deezerDefaultBase is the public Deezer API root. No API key is required.
const deezerDefaultBase = "https://api.deezer.com"

// deezerMaxRank normalizes Deezer's track rank (roughly 0..1,000,000)
// into the unit popularity range.
const deezerMaxRank = 1_000_000.0

// Deezer searches the Deezer track catalog.
type Deezer struct {
	baseURL string
	client  *http.Client
}

// deezerSearchResponse mirrors the subset of the Deezer search payload
// the adapter consumes.
type deezerSearchResponse struct {
	Data []deezerTrack `json:"data"`
}

type deezerTrack struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Rank     int    `json:"rank"`
	Preview  string `json:"preview"`
	Artist   struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		Title string `json:"title"`
	} `json:"album"`
}

// NewDeezer creates a Deezer adapter. An empty baseURL selects the public
// API endpoint.
func NewDeezer(baseURL string) *Deezer {
	if baseURL == "" {
		baseURL = deezerDefaultBase
	}
	return &Deezer{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

// Name implements catalog.Source.
func (d *Deezer) Name() string { return DeezerName }

// Search implements catalog.Source.
func (d *Deezer) Search(ctx context.Context, terms []string, limit int) ([]catalog.RawCandidate, error) {
	params := url.Values{}
	params.Set("q", searchQuery(terms))
	params.Set("limit", strconv.Itoa(limit))
	reqURL := fmt.Sprintf("%s/search?%s", d.baseURL, params.Encode())

	var resp deezerSearchResponse
	if err := getJSON(ctx, d.client, DeezerName, reqURL, &resp); err != nil {
		return nil, err
	}

	candidates := make([]catalog.RawCandidate, 0, len(resp.Data))
	for _, track := range resp.Data {
		popularity := float64(track.Rank) / deezerMaxRank
		if popularity > 1 {
			popularity = 1
		}
		candidates = append(candidates, catalog.RawCandidate{
			Source:      DeezerName,
			SourceID:    strconv.FormatInt(track.ID, 10),
			Title:       track.Title,
			Artist:      track.Artist.Name,
			Album:       track.Album.Title,
			DurationSec: track.Duration,
			PreviewURL:  track.Preview,
			Popularity:  popularity,
		})
	}
	return candidates, nil
}
