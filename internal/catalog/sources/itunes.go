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
	"time"

	"github.com/auralis-io/auralis/internal/catalog"
)

// ITunesName identifies the iTunes catalog source.
const ITunesName = "itunes"

// itunesDefaultBase is the public iTunes Search API endpoint. No API key
// is required.
const itunesDefaultBase = "https://itunes.apple.com/search"

// itunesDefaultPopularity stands in for iTunes results, which carry no
// popularity signal of their own.
const itunesDefaultPopularity = 0.5

// ITunes searches the iTunes Search API for songs.
type ITunes struct {
	baseURL string
	client  *http.Client
}

// itunesSearchResponse mirrors the subset of the iTunes payload the
// adapter consumes.
type itunesSearchResponse struct {
	Results []itunesTrack `json:"results"`
}

type itunesTrack struct {
	Kind           string `json:"kind"`
	TrackID        int64  `json:"trackId"`
	TrackName      string `json:"trackName"`
	ArtistName     string `json:"artistName"`
	CollectionName string `json:"collectionName"`
	TrackTimeMs    int    `json:"trackTimeMillis"`
	PreviewURL     string `json:"previewUrl"`
	ReleaseDate    string `json:"releaseDate"`
	PrimaryGenre   string `json:"primaryGenreName"`
}

// NewITunes creates an iTunes adapter. An empty baseURL selects the
// public API endpoint.
func NewITunes(baseURL string) *ITunes {
	if baseURL == "" {
		baseURL = itunesDefaultBase
	}
	return &ITunes{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

// Name implements catalog.Source.
func (i *ITunes) Name() string { return ITunesName }

// Search implements catalog.Source.
func (i *ITunes) Search(ctx context.Context, terms []string, limit int) ([]catalog.RawCandidate, error) {
	params := url.Values{}
	params.Set("term", searchQuery(terms))
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", strconv.Itoa(limit))
	reqURL := fmt.Sprintf("%s?%s", i.baseURL, params.Encode())

	var resp itunesSearchResponse
	if err := getJSON(ctx, i.client, ITunesName, reqURL, &resp); err != nil {
		return nil, err
	}

	candidates := make([]catalog.RawCandidate, 0, len(resp.Results))
	for _, track := range resp.Results {
		if track.Kind != "song" {
			continue
		}
		candidates = append(candidates, catalog.RawCandidate{
			Source:      ITunesName,
			SourceID:    strconv.FormatInt(track.TrackID, 10),
			Title:       track.TrackName,
			Artist:      track.ArtistName,
			Album:       track.CollectionName,
			DurationSec: track.TrackTimeMs / 1000,
			PreviewURL:  track.PreviewURL,
			Popularity:  itunesDefaultPopularity,
			Year:        releaseYear(track.ReleaseDate),
		})
	}
	return candidates, nil
}

// releaseYear extracts the year from an RFC 3339 release date.
// Returns zero when the date is absent or unparseable.
func releaseYear(date string) int {
	if date == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return 0
	}
	return t.Year()
}
