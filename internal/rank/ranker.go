// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package rank orders canonical tracks for a listener using a policy
// snapshot. Scoring never mutates the policy.
package rank

import (
	"sort"

	"github.com/auralis-io/auralis/internal/canonical"
	"github.com/auralis-io/auralis/internal/feature"
	"github.com/auralis-io/auralis/internal/policy"
)

// Candidate pairs a canonical track with the feature vector extracted
// for the requesting listener.
type Candidate struct {
	Track    canonical.Track `json:"track"`
	Features feature.Vector  `json:"features"`
}

// Ranked is one scored entry of the result list.
type Ranked struct {
	Track    canonical.Track `json:"track"`
	Features feature.Vector  `json:"features"`
	Score    float64         `json:"score"`
}

// Score blends the policy's familiarity estimate with the novelty
// feature: score = (1-lambda)*(w . f) + lambda*novelty. Lambda comes
// from the policy's discovery coefficient unless overridden per request.
func Score(features feature.Vector, pol *policy.Policy, lambda float64) float64 {
	familiarity := features.Dot(pol.Weights)
	novelty := features[feature.DimNovelty]
	return (1-lambda)*familiarity + lambda*novelty
}

// Rank scores the candidates against a policy snapshot and returns them
// ordered by descending score, ties broken by ascending canonical id so
// equal-score runs are reproducible. A lambdaOverride outside [0,1]
// selects the policy's own discovery coefficient. Fewer candidates than
// the limit is not an error; limit <= 0 means no limit.
func Rank(candidates []Candidate, pol *policy.Policy, lambdaOverride float64, limit int) []Ranked {
	lambda := pol.Discovery
	if lambdaOverride >= 0 && lambdaOverride <= 1 {
		lambda = lambdaOverride
	}

	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{
			Track:    c.Track,
			Features: c.Features,
			Score:    Score(c.Features, pol, lambda),
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Track.ID < ranked[j].Track.ID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
