// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auralis-io/auralis/internal/middleware"
)

// RouterConfig holds HTTP-surface settings.
type RouterConfig struct {
	// AllowedOrigins for CORS. Empty disallows cross-origin requests.
	AllowedOrigins []string

	// RateLimitRequests per RateLimitWindow per client IP. Zero
	// disables rate limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the full HTTP handler tree.
func NewRouter(cfg RouterConfig, handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			window := cfg.RateLimitWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByIP(cfg.RateLimitRequests, window))
		}
		r.Use(middleware.PrometheusMetrics)

		r.Post("/recommendations", handler.Recommendations)
		r.Post("/feedback", handler.Feedback)
		r.Post("/tracks/merge", handler.MergeTracks)
		r.Get("/tracks/{trackID}", handler.Track)
		r.Get("/users/{userID}/policy", handler.UserPolicy)
		r.Get("/sources", handler.Sources)
	})

	return r
}
