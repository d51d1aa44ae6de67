// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/auralis-io/auralis/internal/engine"
	"github.com/auralis-io/auralis/internal/validation"
)

// maxBodyBytes caps request bodies. Recommendation intents are small.
const maxBodyBytes = 64 * 1024

// Handler serves the recommendation API on top of the engine.
type Handler struct {
	engine *engine.Engine
	logger zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(eng *engine.Engine, logger zerolog.Logger) *Handler {
	return &Handler{
		engine: eng,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// decode reads and validates a JSON request body. A false return means
// the error response has already been written.
func decode(rs *responder, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(rs.w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		rs.fail(http.StatusBadRequest, CodeBadRequest, "invalid JSON body: "+err.Error(), nil)
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		rs.fail(http.StatusBadRequest, CodeValidationFailed, verr.Error(), verr.Details())
		return false
	}
	return true
}

// Recommendations handles POST /api/v1/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rs := respond(w, r)

	var req RecommendationRequest
	if !decode(rs, r, &req) {
		return
	}

	rec, err := h.engine.Recommend(r.Context(), req.toEngine())
	if err != nil {
		status, code, message := mapError(err)
		h.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("recommendation failed")
		rs.fail(status, code, message, nil)
		return
	}

	rs.success(http.StatusOK, rec)
}

// Feedback handles POST /api/v1/feedback.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	rs := respond(w, r)

	var req FeedbackRequest
	if !decode(rs, r, &req) {
		return
	}

	err := h.engine.SubmitFeedback(r.Context(), req.UserID, req.SessionID, req.TrackID, req.Rating)
	if err != nil {
		status, code, message := mapError(err)
		h.logger.Warn().Err(err).
			Str("user_id", req.UserID).
			Str("track_id", req.TrackID).
			Msg("feedback rejected")
		rs.fail(status, code, message, nil)
		return
	}

	rs.success(http.StatusAccepted, map[string]string{
		"status":   "applied",
		"track_id": req.TrackID,
	})
}

// MergeTracks handles POST /api/v1/tracks/merge.
func (h *Handler) MergeTracks(w http.ResponseWriter, r *http.Request) {
	rs := respond(w, r)

	var req MergeRequest
	if !decode(rs, r, &req) {
		return
	}

	if err := h.engine.MergeTracks(r.Context(), req.FromID, req.ToID); err != nil {
		status, code, message := mapError(err)
		h.logger.Warn().Err(err).
			Str("from_id", req.FromID).
			Str("to_id", req.ToID).
			Msg("merge rejected")
		rs.fail(status, code, message, nil)
		return
	}

	rs.success(http.StatusOK, map[string]string{
		"status":  "merged",
		"from_id": req.FromID,
		"to_id":   req.ToID,
	})
}

// Track handles GET /api/v1/tracks/{trackID}, following merge aliases.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	rs := respond(w, r)

	trackID := chi.URLParam(r, "trackID")
	track, err := h.engine.Track(r.Context(), trackID)
	if err != nil {
		status, code, message := mapError(err)
		rs.fail(status, code, message, nil)
		return
	}

	rs.success(http.StatusOK, track)
}

// UserPolicy handles GET /api/v1/users/{userID}/policy.
func (h *Handler) UserPolicy(w http.ResponseWriter, r *http.Request) {
	rs := respond(w, r)

	userID := chi.URLParam(r, "userID")
	pol, err := h.engine.UserPolicy(r.Context(), userID)
	if err != nil {
		status, code, message := mapError(err)
		rs.fail(status, code, message, nil)
		return
	}

	rs.success(http.StatusOK, pol)
}

// Sources handles GET /api/v1/sources.
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	rs := respond(w, r)
	rs.success(http.StatusOK, map[string]interface{}{
		"sources": h.engine.Sources(),
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rs := respond(w, r)
	rs.success(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"sources": h.engine.Sources(),
	})
}
