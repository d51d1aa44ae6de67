// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package catalog

import (
	"context"
)

// Intent is the normalized query handed to the engine by the language
// understanding front-end. It is immutable once issued: the engine reads it
// but never mutates it.
type Intent struct {
	// UserID identifies the requesting user.
	UserID string `json:"user_id"`

	// Descriptors is the ordered sequence of mood/style terms extracted
	// from the user's free-text query ("upbeat", "indie", "drive").
	Descriptors []string `json:"descriptors"`

	// Genres holds optional genre constraints.
	Genres []string `json:"genres,omitempty"`

	// Tempo is an optional BPM constraint.
	Tempo *Range `json:"tempo,omitempty"`

	// Era is an optional release-year constraint.
	Era *Range `json:"era,omitempty"`

	// Limit is the requested result count. Zero means the configured default.
	Limit int `json:"limit,omitempty"`
}

// Range is an inclusive numeric constraint.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v falls inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Terms returns the flat search terms for outbound source queries:
// descriptors followed by genre constraints, in their original order.
func (in *Intent) Terms() []string {
	terms := make([]string, 0, len(in.Descriptors)+len(in.Genres))
	terms = append(terms, in.Descriptors...)
	terms = append(terms, in.Genres...)
	return terms
}

// RawCandidate is one source's view of a track. Candidates are request
// scoped: produced per fetch, consumed by the canonicalizer, never persisted.
type RawCandidate struct {
	// Source is the catalog identifier ("deezer", "itunes", ...).
	Source string `json:"source"`

	// SourceID is the source-local track identifier.
	SourceID string `json:"source_id"`

	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`

	// DurationSec is the track length in seconds. Zero when unknown.
	DurationSec int `json:"duration_sec,omitempty"`

	// PreviewURL points at a playable snippet when the source has one.
	PreviewURL string `json:"preview_url,omitempty"`

	// Popularity is the source-native popularity signal normalized to
	// [0,1] by the adapter. Zero when the source carries none.
	Popularity float64 `json:"popularity,omitempty"`

	// Year is the release year. Zero when unknown.
	Year int `json:"year,omitempty"`
}

// Source is the capability contract every catalog adapter implements.
// Adapters own transport, authentication, and response mapping; the engine
// depends only on this interface.
type Source interface {
	// Name returns the stable source identifier.
	Name() string

	// Search returns raw candidates for the given search terms.
	// Implementations honor ctx cancellation and deadline.
	Search(ctx context.Context, terms []string, limit int) ([]RawCandidate, error)
}

// SourceResult holds one source's outcome within a fan-out fetch.
// Exactly one of Candidates or Err is meaningful.
type SourceResult struct {
	Source     string         `json:"source"`
	Candidates []RawCandidate `json:"candidates,omitempty"`
	Err        *SourceFailure `json:"error,omitempty"`
}

// Failed reports whether the source failed for this request.
func (r SourceResult) Failed() bool {
	return r.Err != nil
}
