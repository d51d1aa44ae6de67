// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package canonical

import (
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/auralis-io/auralis/internal/catalog"
)

// Merge thresholds. Titles must match exactly after normalization;
// artists may differ by transliteration or credit formatting, so they
// compare by edit-distance similarity. Durations guard against merging a
// radio edit with an extended mix.
const (
	// ArtistSimilarityThreshold is the minimum artist similarity for two
	// candidates to merge.
	ArtistSimilarityThreshold = 0.85

	// DurationToleranceSec is the maximum duration difference in seconds
	// for two candidates to merge. A zero duration is treated as unknown
	// and does not block a merge.
	DurationToleranceSec = 3
)

// sourceWeights rank catalog sources by metadata reliability. Higher
// weight sources win display-field conflicts and contribute more to the
// blended popularity.
var sourceWeights = map[string]float64{
	"deezer":      1.0,
	"itunes":      0.9,
	"lastfm":      0.7,
	"audiodb":     0.6,
	"musicbrainz": 0.5,
}

// defaultSourceWeight applies to sources without an explicit weight.
const defaultSourceWeight = 0.4

// SourceRef records one upstream identity of a canonical track.
type SourceRef struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
}

// Track is a canonical, deduplicated track.
type Track struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Artist      string      `json:"artist"`
	Album       string      `json:"album,omitempty"`
	DurationSec int         `json:"duration_sec,omitempty"`
	PreviewURL  string      `json:"preview_url,omitempty"`
	Popularity  float64     `json:"popularity"`
	Year        int         `json:"year,omitempty"`
	Sources     []SourceRef `json:"sources"`

	// FirstSeen is when the index first stored this identity.
	FirstSeen time.Time `json:"first_seen,omitempty"`

	// MergedFrom lists retired canonical ids folded into this track.
	MergedFrom []string `json:"merged_from,omitempty"`
}

// TrackID derives the stable canonical identifier from a title and
// artist. Both are normalized first, so any spelling that normalizes
// identically produces the same identity.
func TrackID(title, artist string) string {
	h := xxhash.Sum64String(Normalize(title) + "\x1f" + Normalize(artist))
	return fmt.Sprintf("%016x", h)
}

// SourceWeight returns the reliability weight of a catalog source.
func SourceWeight(source string) float64 {
	if w, ok := sourceWeights[source]; ok {
		return w
	}
	return defaultSourceWeight
}

// group accumulates raw candidates judged to be the same track.
type group struct {
	normTitle  string
	normArtist string
	members    []catalog.RawCandidate
}

// matches reports whether a candidate belongs to the group.
func (g *group) matches(normTitle, normArtist string, durationSec int) bool {
	if normTitle != g.normTitle {
		return false
	}
	if Similarity(normArtist, g.normArtist) < ArtistSimilarityThreshold {
		return false
	}
	if durationSec > 0 {
		for _, m := range g.members {
			if m.DurationSec <= 0 {
				continue
			}
			delta := durationSec - m.DurationSec
			if delta < 0 {
				delta = -delta
			}
			if delta > DurationToleranceSec {
				return false
			}
		}
	}
	return true
}

// Canonicalize merges the raw candidates from every source into canonical
// tracks. Output ordering is deterministic: descending popularity, then
// ascending canonical id.
func Canonicalize(results []catalog.SourceResult) []Track {
	var groups []*group

	for _, result := range results {
		if result.Failed() {
			continue
		}
		for _, cand := range result.Candidates {
			normTitle := Normalize(cand.Title)
			normArtist := Normalize(cand.Artist)
			if normTitle == "" || normArtist == "" {
				continue
			}
			matched := false
			for _, g := range groups {
				if g.matches(normTitle, normArtist, cand.DurationSec) {
					g.members = append(g.members, cand)
					matched = true
					break
				}
			}
			if !matched {
				groups = append(groups, &group{
					normTitle:  normTitle,
					normArtist: normArtist,
					members:    []catalog.RawCandidate{cand},
				})
			}
		}
	}

	tracks := make([]Track, 0, len(groups))
	for _, g := range groups {
		tracks = append(tracks, g.merge())
	}

	sort.Slice(tracks, func(i, j int) bool {
		if tracks[i].Popularity != tracks[j].Popularity {
			return tracks[i].Popularity > tracks[j].Popularity
		}
		return tracks[i].ID < tracks[j].ID
	})
	return tracks
}

// merge collapses a group into a single canonical track. Display fields
// come from the heaviest source; popularity is a weight-blended average;
// duration is the median of known durations.
func (g *group) merge() Track {
	best := g.members[0]
	bestWeight := SourceWeight(best.Source)
	for _, m := range g.members[1:] {
		if w := SourceWeight(m.Source); w > bestWeight {
			best = m
			bestWeight = w
		}
	}

	track := Track{
		ID:          TrackID(best.Title, best.Artist),
		Title:       best.Title,
		Artist:      best.Artist,
		Album:       best.Album,
		DurationSec: medianDuration(g.members),
		Popularity:  blendedPopularity(g.members),
	}

	ordered := make([]catalog.RawCandidate, len(g.members))
	copy(ordered, g.members)
	sort.SliceStable(ordered, func(i, j int) bool {
		return SourceWeight(ordered[i].Source) > SourceWeight(ordered[j].Source)
	})
	for _, m := range ordered {
		if track.PreviewURL == "" && m.PreviewURL != "" {
			track.PreviewURL = m.PreviewURL
		}
		if track.Year == 0 && m.Year != 0 {
			track.Year = m.Year
		}
		if track.Album == "" && m.Album != "" {
			track.Album = m.Album
		}
		track.Sources = append(track.Sources, SourceRef{Source: m.Source, SourceID: m.SourceID})
	}

	return track
}

// medianDuration returns the median of known (nonzero) durations, or
// zero when no member reported one.
func medianDuration(members []catalog.RawCandidate) int {
	durations := make([]int, 0, len(members))
	for _, m := range members {
		if m.DurationSec > 0 {
			durations = append(durations, m.DurationSec)
		}
	}
	if len(durations) == 0 {
		return 0
	}
	sort.Ints(durations)
	mid := len(durations) / 2
	if len(durations)%2 == 0 {
		return (durations[mid-1] + durations[mid]) / 2
	}
	return durations[mid]
}

// blendedPopularity averages member popularity weighted by source
// reliability.
func blendedPopularity(members []catalog.RawCandidate) float64 {
	var sum, weightSum float64
	for _, m := range members {
		w := SourceWeight(m.Source)
		sum += w * m.Popularity
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}
