// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package api

import (
	"github.com/auralis-io/auralis/internal/catalog"
	"github.com/auralis-io/auralis/internal/engine"
)

// RangeParam is an inclusive numeric range in a request body.
type RangeParam struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RecommendationRequest is the body of POST /api/v1/recommendations.
type RecommendationRequest struct {
	UserID      string      `json:"user_id" validate:"required,max=128"`
	Descriptors []string    `json:"descriptors" validate:"max=16,dive,max=64"`
	Genres      []string    `json:"genres" validate:"max=16,dive,max=64"`
	Tempo       *RangeParam `json:"tempo"`
	Era         *RangeParam `json:"era"`
	SessionID   string      `json:"session_id" validate:"omitempty,max=128"`

	// Lambda overrides the stored discovery blend when set. Absent
	// means use the policy's own value.
	Lambda *float64 `json:"lambda" validate:"omitempty,gte=0,lte=1"`

	Limit int `json:"limit" validate:"min=0,max=100"`
}

// toEngine converts the wire request into the engine's form.
func (req *RecommendationRequest) toEngine() *engine.Request {
	intent := catalog.Intent{
		UserID:      req.UserID,
		Descriptors: req.Descriptors,
		Genres:      req.Genres,
		Limit:       req.Limit,
	}
	if req.Tempo != nil {
		intent.Tempo = &catalog.Range{Min: req.Tempo.Min, Max: req.Tempo.Max}
	}
	if req.Era != nil {
		intent.Era = &catalog.Range{Min: req.Era.Min, Max: req.Era.Max}
	}

	lambda := -1.0
	if req.Lambda != nil {
		lambda = *req.Lambda
	}

	return &engine.Request{
		Intent:    intent,
		SessionID: req.SessionID,
		Lambda:    lambda,
		Limit:     req.Limit,
	}
}

// FeedbackRequest is the body of POST /api/v1/feedback.
type FeedbackRequest struct {
	UserID    string `json:"user_id" validate:"required,max=128"`
	SessionID string `json:"session_id" validate:"required,max=128"`
	TrackID   string `json:"track_id" validate:"required,hexadecimal,len=16"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
}

// MergeRequest is the body of POST /api/v1/tracks/merge. FromID is
// retired into ToID.
type MergeRequest struct {
	FromID string `json:"from_id" validate:"required,hexadecimal,len=16"`
	ToID   string `json:"to_id" validate:"required,hexadecimal,len=16"`
}
