// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package policy

import (
	"errors"
	"time"

	"github.com/auralis-io/auralis/internal/feature"
)

// Learning constants. The base rate decays hyperbolically with the
// update count so the policy converges as evidence accumulates, and
// weights stay inside a fixed band so a burst of noisy ratings cannot
// diverge the score scale.
const (
	// BaseLearningRate is the step size of the first update.
	BaseLearningRate = 0.1

	// WeightMin and WeightMax bound each weight component after every
	// update.
	WeightMin = -4.0
	WeightMax = 4.0

	// DefaultDiscovery is the initial familiarity/discovery blend for a
	// new listener.
	DefaultDiscovery = 0.3

	// DefaultWeight is the starting value of every weight component.
	// Uniform weights rank a cold-start listener by raw feature strength
	// instead of collapsing every candidate into a tie.
	DefaultWeight = 1.0
)

// Sentinel errors for policy operations.
var (
	// ErrPolicyConflict indicates a versioned write raced another writer
	// for the same user. Under the single-writer discipline this must
	// not happen; callers abort rather than merge.
	ErrPolicyConflict = errors.New("policy version conflict")

	// ErrInvalidFeedback indicates a rating outside 1-5 or an event
	// missing its identity fields.
	ErrInvalidFeedback = errors.New("invalid feedback")
)

// Policy is one listener's ranking parameters. Mutated only through the
// Store under the user's write lock; everyone else sees copies.
type Policy struct {
	UserID      string         `json:"user_id"`
	Weights     feature.Vector `json:"weights"`
	Discovery   float64        `json:"discovery"`
	UpdateCount int            `json:"update_count"`
	Version     uint64         `json:"version"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Default returns the neutral starting policy for a user: uniform
// weights across every feature dimension and the default discovery
// blend.
func Default(userID string) *Policy {
	p := &Policy{
		UserID:    userID,
		Discovery: DefaultDiscovery,
	}
	for i := range p.Weights {
		p.Weights[i] = DefaultWeight
	}
	return p
}

// Clone returns an independent copy.
func (p *Policy) Clone() *Policy {
	cp := *p
	return &cp
}

// LearningRate returns the step size for the policy's next update.
func (p *Policy) LearningRate() float64 {
	return BaseLearningRate / (1 + float64(p.UpdateCount))
}

// FeedbackEvent is a rating for a previously recommended track. Features
// is the exact vector used when the track was shown, captured at
// recommendation time.
type FeedbackEvent struct {
	EventID   string         `json:"event_id"`
	UserID    string         `json:"user_id"`
	TrackID   string         `json:"track_id"`
	SessionID string         `json:"session_id,omitempty"`
	Rating    int            `json:"rating"`
	Features  feature.Vector `json:"features"`
	Timestamp time.Time      `json:"timestamp"`
}

// Validate rejects events before they reach the update path.
func (e *FeedbackEvent) Validate() error {
	if e.UserID == "" || e.TrackID == "" {
		return ErrInvalidFeedback
	}
	if e.Rating < 1 || e.Rating > 5 {
		return ErrInvalidFeedback
	}
	if e.Timestamp.IsZero() {
		return ErrInvalidFeedback
	}
	return nil
}

// Reward remaps the 1-5 rating onto [-1,+1] with 3 as neutral.
func (e *FeedbackEvent) Reward() float64 {
	return (float64(e.Rating) - 3) / 2
}

// apply performs one bounded gradient step in place and bumps the
// version. The caller holds the user's write lock.
func (p *Policy) apply(e *FeedbackEvent) {
	step := e.Features.Scale(p.LearningRate() * e.Reward())
	p.Weights = p.Weights.Add(step).Clamp(WeightMin, WeightMax)
	p.UpdateCount++
	p.Version++
	p.UpdatedAt = e.Timestamp
}
