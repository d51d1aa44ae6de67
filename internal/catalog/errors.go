// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fetch pipeline. Per-source failures degrade
// coverage and are absorbed into SourceResult; only total failure
// propagates to the caller.
var (
	// ErrSourceUnavailable indicates a source could not serve the request
	// (network failure, open circuit breaker, non-2xx response).
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedCandidate indicates a single record was unusable and was
	// dropped. The source as a whole is not failed.
	ErrMalformedCandidate = errors.New("malformed candidate")

	// ErrAllSourcesFailed indicates no source produced candidates. This is
	// fatal to the request and must surface to the caller with the
	// per-source reasons, never as a silent empty list.
	ErrAllSourcesFailed = errors.New("all sources failed")
)

// FailureReason classifies why a source failed for one request.
type FailureReason string

// Failure reasons reported by adapters and the fetcher.
const (
	ReasonTimeout     FailureReason = "timeout"
	ReasonRateLimited FailureReason = "rate_limited"
	ReasonMalformed   FailureReason = "malformed_response"
	ReasonUnavailable FailureReason = "unavailable"
)

// SourceFailure is the typed per-source failure signal.
type SourceFailure struct {
	Source string        `json:"source"`
	Reason FailureReason `json:"reason"`
	Cause  error         `json:"-"`
}

// Error implements the error interface.
func (f *SourceFailure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("source %s: %s: %v", f.Source, f.Reason, f.Cause)
	}
	return fmt.Sprintf("source %s: %s", f.Source, f.Reason)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (f *SourceFailure) Unwrap() error {
	if f.Cause != nil {
		return f.Cause
	}
	return ErrSourceUnavailable
}

// AllFailedError carries the per-source reasons when every source failed.
type AllFailedError struct {
	Failures []*SourceFailure
}

// Error implements the error interface.
func (e *AllFailedError) Error() string {
	return fmt.Sprintf("all %d sources failed", len(e.Failures))
}

// Unwrap makes errors.Is(err, ErrAllSourcesFailed) hold.
func (e *AllFailedError) Unwrap() error {
	return ErrAllSourcesFailed
}
