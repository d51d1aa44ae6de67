// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package metrics defines the Prometheus instrumentation for the engine:
// HTTP traffic, catalog source health, canonicalization output, policy
// updates, and session cache efficiency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auralis_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auralis_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Catalog source metrics
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auralis_source_fetch_duration_seconds",
			Help:    "Duration of catalog source fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SourceCandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auralis_source_candidates_total",
			Help: "Total raw candidates returned per catalog source",
		},
		[]string{"source"},
	)

	SourceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auralis_source_failures_total",
			Help: "Total catalog source failures by reason",
		},
		[]string{"source", "reason"},
	)

	// Recommendation metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auralis_recommendations_total",
			Help: "Total recommendation requests by outcome",
		},
		[]string{"outcome"}, // "ok", "degraded", "all_sources_failed", "error"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auralis_recommendation_duration_seconds",
			Help:    "End-to-end recommendation pipeline duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CanonicalTracksPerRequest = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auralis_canonical_tracks_per_request",
			Help:    "Deduplicated track count per recommendation request",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	// Feedback metrics
	FeedbackEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auralis_feedback_events_total",
			Help: "Total feedback events by outcome",
		},
		[]string{"outcome"}, // "applied", "invalid", "error"
	)

	PolicyUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auralis_policy_updates_total",
			Help: "Total persisted policy updates",
		},
	)

	// Session cache metrics
	SessionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auralis_session_cache_hits_total",
			Help: "Total session cache hits for shown feature vectors",
		},
	)

	SessionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auralis_session_cache_misses_total",
			Help: "Total session cache misses for shown feature vectors",
		},
	)

	// Track merge metrics
	TrackMergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auralis_track_merges_total",
			Help: "Total explicit canonical track merges by outcome",
		},
		[]string{"outcome"}, // "ok", "not_found", "conflict"
	)
)

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	HTTPRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// ObserveSourceFetch records one catalog source fetch outcome.
func ObserveSourceFetch(source string, candidates int, failReason string, duration time.Duration) {
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	if failReason != "" {
		SourceFailuresTotal.WithLabelValues(source, failReason).Inc()
		return
	}
	SourceCandidatesTotal.WithLabelValues(source).Add(float64(candidates))
}
