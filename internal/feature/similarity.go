// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package feature

import (
	"math"
	"strings"

	"github.com/auralis-io/auralis/internal/canonical"
)

// Similarity scores how well a track matches a set of intent terms.
// Implementations must return values in [0,1].
type Similarity interface {
	Score(terms []string, track *canonical.Track) float64
}

// TermOverlap is the default Similarity: cosine similarity over binary
// bags of normalized tokens drawn from the track's title, artist, and
// album.
type TermOverlap struct{}

// Score implements Similarity.
func (TermOverlap) Score(terms []string, track *canonical.Track) float64 {
	intent := tokenSet(terms...)
	if len(intent) == 0 {
		return 0
	}
	trackTokens := tokenSet(track.Title, track.Artist, track.Album)
	if len(trackTokens) == 0 {
		return 0
	}

	shared := 0
	for tok := range intent {
		if trackTokens[tok] {
			shared++
		}
	}
	return float64(shared) / math.Sqrt(float64(len(intent))*float64(len(trackTokens)))
}

// tokenSet builds a set of normalized tokens from the given strings.
func tokenSet(parts ...string) map[string]bool {
	set := make(map[string]bool)
	for _, p := range parts {
		for _, tok := range strings.Fields(canonical.Normalize(p)) {
			set[tok] = true
		}
	}
	return set
}
