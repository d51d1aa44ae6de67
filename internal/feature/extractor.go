// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package feature turns canonical tracks into fixed-size numeric vectors
// for ranking and policy updates.
package feature

import (
	"math"
	"time"

	"github.com/auralis-io/auralis/internal/canonical"
)

// RecencyHalfLife sets how fast the recency dimension decays after an
// exposure: a track the listener heard this long ago scores 1/e.
const RecencyHalfLife = 7 * 24 * time.Hour

// Context carries the per-request inputs feature extraction depends on:
// the listener's intent terms and their listening history summary.
type Context struct {
	// Terms are the raw intent descriptors and genres.
	Terms []string

	// ArtistExposures counts prior exposures per normalized artist name.
	// A nil map means no history.
	ArtistExposures map[string]int

	// LastSeen records when the listener was last shown each track, by
	// canonical id. Tracks not present were never shown.
	LastSeen map[string]time.Time

	// Now anchors the recency computation. The zero value means the
	// current wall clock.
	Now time.Time
}

// Extractor computes feature vectors. The zero value is not usable; use
// NewExtractor.
type Extractor struct {
	similarity Similarity
}

// NewExtractor creates an extractor. A nil similarity selects the
// default term-overlap scorer.
func NewExtractor(similarity Similarity) *Extractor {
	if similarity == nil {
		similarity = TermOverlap{}
	}
	return &Extractor{similarity: similarity}
}

// Extract computes the feature vector for one track. Every component is
// in [0,1]; the same track, intent, and history always produce the same
// vector.
func (e *Extractor) Extract(track *canonical.Track, fc *Context) Vector {
	var v Vector
	v[DimSimilarity] = e.similarity.Score(fc.Terms, track)
	v[DimPopularity] = clamp01(track.Popularity)
	v[DimNovelty] = novelty(track, fc.ArtistExposures)
	v[DimRecency] = recency(track.ID, fc.LastSeen, fc.Now)
	return v
}

// ExtractAll computes vectors for a candidate set, indexed like the
// input.
func (e *Extractor) ExtractAll(tracks []canonical.Track, fc *Context) []Vector {
	vectors := make([]Vector, len(tracks))
	for i := range tracks {
		vectors[i] = e.Extract(&tracks[i], fc)
	}
	return vectors
}

// novelty is high for artists the listener has rarely heard: 1 for a
// never-seen artist, decaying toward 0 with each exposure.
func novelty(track *canonical.Track, exposures map[string]int) float64 {
	if len(exposures) == 0 {
		return 1
	}
	count := exposures[canonical.Normalize(track.Artist)]
	return 1 / (1 + float64(count))
}

// recency decays exponentially from 1 at the moment of exposure toward
// 0. A track the listener was never shown scores 0.
func recency(trackID string, lastSeen map[string]time.Time, now time.Time) float64 {
	seen, ok := lastSeen[trackID]
	if !ok || seen.IsZero() {
		return 0
	}
	if now.IsZero() {
		now = time.Now()
	}
	age := now.Sub(seen)
	if age < 0 {
		age = 0
	}
	return math.Exp(-float64(age) / float64(RecencyHalfLife))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
