// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/auralis-io/auralis/internal/logging"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Error carries a machine-readable code alongside the human message.
type Error struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Meta describes the response itself.
type Meta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
}

// Error codes used across endpoints.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeUpstreamFailed   = "UPSTREAM_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// responder writes enveloped responses for a single request.
type responder struct {
	w     http.ResponseWriter
	r     *http.Request
	start time.Time
}

func respond(w http.ResponseWriter, r *http.Request) *responder {
	return &responder{w: w, r: r, start: time.Now()}
}

func (rs *responder) meta() *Meta {
	return &Meta{
		RequestID:  logging.RequestIDFromContext(rs.r.Context()),
		Timestamp:  time.Now().UTC(),
		DurationMs: time.Since(rs.start).Milliseconds(),
	}
}

func (rs *responder) success(status int, data interface{}) {
	rs.writeJSON(status, Response{
		Success: true,
		Data:    data,
		Meta:    rs.meta(),
	})
}

func (rs *responder) fail(status int, code, message string, details interface{}) {
	rs.writeJSON(status, Response{
		Success: false,
		Error: &Error{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: logging.RequestIDFromContext(rs.r.Context()),
		},
		Meta: rs.meta(),
	})
}

func (rs *responder) writeJSON(status int, body Response) {
	rs.w.Header().Set("Content-Type", "application/json")
	rs.w.WriteHeader(status)
	if err := json.NewEncoder(rs.w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}
