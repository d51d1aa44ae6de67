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

// MusicBrainzName identifies the MusicBrainz catalog source.
const MusicBrainzName = "musicbrainz"

// musicbrainzDefaultBase is the public MusicBrainz web service root. No
// API key is required, but requests must carry a User-Agent.
const musicbrainzDefaultBase = "https://musicbrainz.org/ws/2"

// musicbrainzMaxScore is the top of MusicBrainz's search relevance score.
const musicbrainzMaxScore = 100.0

// MusicBrainz searches the MusicBrainz recording index.
type MusicBrainz struct {
	baseURL string
	client  *http.Client
}

// musicbrainzSearchResponse mirrors the subset of the recording search
// payload the adapter consumes.
type musicbrainzSearchResponse struct {
	Recordings []musicbrainzRecording `json:"recordings"`
}

type musicbrainzRecording struct {
	ID               string `json:"id"`
	Score            int    `json:"score"`
	Title            string `json:"title"`
	LengthMs         int    `json:"length"`
	FirstReleaseDate string `json:"first-release-date"`
	ArtistCredit     []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
	Releases []struct {
		Title string `json:"title"`
	} `json:"releases"`
}

// NewMusicBrainz creates a MusicBrainz adapter. An empty baseURL selects
// the public web service.
func NewMusicBrainz(baseURL string) *MusicBrainz {
	if baseURL == "" {
		baseURL = musicbrainzDefaultBase
	}
	return &MusicBrainz{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

// Name implements catalog.Source.
func (m *MusicBrainz) Name() string { return MusicBrainzName }

// Search implements catalog.Source.
func (m *MusicBrainz) Search(ctx context.Context, terms []string, limit int) ([]catalog.RawCandidate, error) {
	params := url.Values{}
	params.Set("query", searchQuery(terms))
	params.Set("fmt", "json")
	params.Set("limit", strconv.Itoa(limit))
	reqURL := fmt.Sprintf("%s/recording?%s", m.baseURL, params.Encode())

	var resp musicbrainzSearchResponse
	if err := getJSON(ctx, m.client, MusicBrainzName, reqURL, &resp); err != nil {
		return nil, err
	}

	candidates := make([]catalog.RawCandidate, 0, len(resp.Recordings))
	for _, rec := range resp.Recordings {
		artist := ""
		if len(rec.ArtistCredit) > 0 {
			artist = rec.ArtistCredit[0].Name
		}
		album := ""
		if len(rec.Releases) > 0 {
			album = rec.Releases[0].Title
		}
		popularity := float64(rec.Score) / musicbrainzMaxScore
		if popularity > 1 {
			popularity = 1
		}
		candidates = append(candidates, catalog.RawCandidate{
			Source:      MusicBrainzName,
			SourceID:    rec.ID,
			Title:       rec.Title,
			Artist:      artist,
			Album:       album,
			DurationSec: rec.LengthMs / 1000,
			Popularity:  popularity,
			Year:        leadingYear(rec.FirstReleaseDate),
		})
	}
	return candidates, nil
}

// leadingYear parses the year from a MusicBrainz date, which may be a
// full date, year-month, or bare year. Returns zero when absent.
func leadingYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
