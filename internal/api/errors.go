// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package api

import (
	"errors"
	"net/http"

	"github.com/auralis-io/auralis/internal/canonical"
	"github.com/auralis-io/auralis/internal/catalog"
	"github.com/auralis-io/auralis/internal/engine"
	"github.com/auralis-io/auralis/internal/policy"
)

// mapError translates engine sentinels into an HTTP status, error code,
// and client-safe message. Order matters: the unknown-track and
// unknown-session sentinels wrap ErrInvalidFeedback, so they must be
// checked before the broader class.
func mapError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, engine.ErrUnknownTrack):
		return http.StatusNotFound, CodeNotFound, "track is not in the canonical index"
	case errors.Is(err, engine.ErrUnknownSession):
		return http.StatusNotFound, CodeNotFound, "session is unknown or has expired"
	case errors.Is(err, policy.ErrInvalidFeedback):
		return http.StatusBadRequest, CodeValidationFailed, "feedback event is invalid"
	case errors.Is(err, engine.ErrInvalidRequest):
		return http.StatusBadRequest, CodeValidationFailed, "recommendation request is invalid"
	case errors.Is(err, canonical.ErrTrackNotFound):
		return http.StatusNotFound, CodeNotFound, "track not found"
	case errors.Is(err, canonical.ErrSelfMerge):
		return http.StatusConflict, CodeConflict, "cannot merge a track into itself"
	case errors.Is(err, canonical.ErrAliasCycle):
		return http.StatusConflict, CodeConflict, "merge would create an alias cycle"
	case errors.Is(err, catalog.ErrAllSourcesFailed):
		return http.StatusBadGateway, CodeUpstreamFailed, "all catalog sources failed"
	default:
		return http.StatusInternalServerError, CodeInternalError, "internal error"
	}
}
