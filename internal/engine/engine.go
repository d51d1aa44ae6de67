// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/auralis-io/auralis/internal/canonical"
	"github.com/auralis-io/auralis/internal/catalog"
	"github.com/auralis-io/auralis/internal/feature"
	"github.com/auralis-io/auralis/internal/feedback"
	"github.com/auralis-io/auralis/internal/history"
	"github.com/auralis-io/auralis/internal/metrics"
	"github.com/auralis-io/auralis/internal/policy"
	"github.com/auralis-io/auralis/internal/rank"
)

// Sentinel errors for orchestration.
var (
	// ErrInvalidRequest is returned for a recommendation request missing
	// required fields.
	ErrInvalidRequest = errors.New("invalid recommendation request")

	// ErrUnknownTrack is returned for feedback referencing a track the
	// index has never seen. It is a validation failure.
	ErrUnknownTrack = fmt.Errorf("%w: unknown track", policy.ErrInvalidFeedback)

	// ErrUnknownSession is returned for feedback whose shown feature
	// vector is no longer cached, so credit assignment would be wrong.
	ErrUnknownSession = fmt.Errorf("%w: unknown or expired session", policy.ErrInvalidFeedback)
)

// Config holds orchestrator configuration.
type Config struct {
	// DefaultLimit applies when a request does not cap its result count.
	DefaultLimit int `json:"default_limit"`

	// SessionCacheSize bounds the number of cached shown-track vectors.
	SessionCacheSize int `json:"session_cache_size"`

	// SessionTTL is how long a shown vector stays eligible for feedback.
	SessionTTL time.Duration `json:"session_ttl"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:     20,
		SessionCacheSize: 50000,
		SessionTTL:       30 * time.Minute,
	}
}

// Request is one recommendation request.
type Request struct {
	Intent catalog.Intent

	// SessionID groups the response's tracks for later feedback. Empty
	// means a new session id is assigned.
	SessionID string

	// Lambda overrides the policy's discovery coefficient when in [0,1].
	// Any other value selects the policy's own.
	Lambda float64

	// Limit caps the result count; zero selects the default.
	Limit int
}

// SourceStatus reports one source's contribution to a response.
type SourceStatus struct {
	Source     string `json:"source"`
	Candidates int    `json:"candidates"`
	Failed     bool   `json:"failed,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Recommendation is the engine's response: the ranked tracks, the
// features behind each score, and per-source coverage.
type Recommendation struct {
	SessionID     string         `json:"session_id"`
	UserID        string         `json:"user_id"`
	Tracks        []rank.Ranked  `json:"tracks"`
	Sources       []SourceStatus `json:"sources"`
	Degraded      bool           `json:"degraded"`
	PolicyVersion uint64         `json:"policy_version"`
}

// Engine sequences fetch, canonicalize, extract, and rank for requests,
// and routes feedback into the policy update pipeline.
type Engine struct {
	config    Config
	fetcher   *catalog.Fetcher
	index     *canonical.Index
	extractor *feature.Extractor
	policies  *policy.Store
	history   *history.Store
	pipeline  *feedback.Pipeline
	sessions  *SessionCache
	logger    zerolog.Logger
}

// New wires the engine from its parts.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(
	cfg Config,
	fetcher *catalog.Fetcher,
	index *canonical.Index,
	extractor *feature.Extractor,
	policies *policy.Store,
	hist *history.Store,
	pipeline *feedback.Pipeline,
	logger zerolog.Logger,
) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultConfig().DefaultLimit
	}
	return &Engine{
		config:    cfg,
		fetcher:   fetcher,
		index:     index,
		extractor: extractor,
		policies:  policies,
		history:   hist,
		pipeline:  pipeline,
		sessions:  NewSessionCache(cfg.SessionCacheSize, cfg.SessionTTL),
		logger:    logger.With().Str("component", "engine").Logger(),
	}
}

// Recommend runs one full request cycle. Partial source failure degrades
// coverage; only total failure is an error, surfaced as the catalog's
// all-sources-failed type so callers can distinguish it from an
// genuinely empty catalog.
func (e *Engine) Recommend(ctx context.Context, req *Request) (*Recommendation, error) {
	if req.Intent.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	started := time.Now()

	results, err := e.fetcher.Fetch(ctx, &req.Intent)
	if err != nil {
		if isAllFailed(err) {
			metrics.RecommendationsTotal.WithLabelValues("all_sources_failed").Inc()
		} else {
			metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	tracks := canonical.Canonicalize(results)
	metrics.CanonicalTracksPerRequest.Observe(float64(len(tracks)))

	// Identity assignments are committed even when the caller has gone:
	// a canonical id, once surfaced, must keep resolving next request.
	// The stored batch comes back with retired ids already folded into
	// their survivors.
	tracks, err = e.index.PutTracks(context.WithoutCancel(ctx), tracks)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("commit canonical ids: %w", err)
	}

	tracks = filterByEra(tracks, req.Intent.Era)

	userID := req.Intent.UserID
	exposures, lastSeen, err := e.history.ExposureSummary(ctx, userID)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load history: %w", err)
	}
	pol, err := e.policies.Get(ctx, userID)
	if err != nil {
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load policy: %w", err)
	}

	fc := &feature.Context{
		Terms:           req.Intent.Terms(),
		ArtistExposures: exposures,
		LastSeen:        lastSeen,
	}
	vectors := e.extractor.ExtractAll(tracks, fc)

	candidates := make([]rank.Candidate, len(tracks))
	for i := range tracks {
		candidates[i] = rank.Candidate{Track: tracks[i], Features: vectors[i]}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	lambda := req.Lambda
	if lambda < 0 || lambda > 1 {
		lambda = -1
	}
	ranked := rank.Rank(candidates, pol, lambda, limit)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	shown := make([]history.Exposure, 0, len(ranked))
	for _, r := range ranked {
		e.sessions.Put(userID, sessionID, r.Track.ID, r.Features)
		shown = append(shown, history.Exposure{TrackID: r.Track.ID, Artist: r.Track.Artist})
	}
	if err := e.history.RecordExposures(context.WithoutCancel(ctx), userID, shown, time.Now().UTC()); err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to record exposures")
	}

	rec := &Recommendation{
		SessionID:     sessionID,
		UserID:        userID,
		Tracks:        ranked,
		Sources:       sourceStatuses(results),
		Degraded:      anyFailed(results),
		PolicyVersion: pol.Version,
	}

	outcome := "ok"
	if rec.Degraded {
		outcome = "degraded"
	}
	metrics.RecommendationsTotal.WithLabelValues(outcome).Inc()
	metrics.RecommendationDuration.Observe(time.Since(started).Seconds())

	e.logger.Info().
		Str("user_id", userID).
		Str("session_id", sessionID).
		Int("tracks", len(ranked)).
		Bool("degraded", rec.Degraded).
		Msg("recommendation served")
	return rec, nil
}

// SubmitFeedback accepts a rating for a previously shown track and
// blocks until the resulting policy update is durable. The feature
// vector used at show time is retrieved from the session cache; feedback
// without a cached vector is rejected rather than credited to a
// recomputed one.
func (e *Engine) SubmitFeedback(ctx context.Context, userID, sessionID, trackID string, rating int) error {
	if userID == "" || trackID == "" || rating < 1 || rating > 5 {
		metrics.FeedbackEventsTotal.WithLabelValues("invalid").Inc()
		return policy.ErrInvalidFeedback
	}

	resolved, err := e.index.Resolve(ctx, trackID)
	if err != nil {
		metrics.FeedbackEventsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("resolve track: %w", err)
	}
	if _, err := e.index.Get(ctx, resolved); err != nil {
		if errors.Is(err, canonical.ErrTrackNotFound) {
			metrics.FeedbackEventsTotal.WithLabelValues("invalid").Inc()
			return ErrUnknownTrack
		}
		metrics.FeedbackEventsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("lookup track: %w", err)
	}

	features, ok := e.sessions.Get(userID, sessionID, resolved)
	if !ok {
		// The recommendation may have been served under the pre-merge id.
		features, ok = e.sessions.Get(userID, sessionID, trackID)
	}
	if !ok {
		metrics.SessionCacheMisses.Inc()
		metrics.FeedbackEventsTotal.WithLabelValues("invalid").Inc()
		return ErrUnknownSession
	}
	metrics.SessionCacheHits.Inc()

	event := &policy.FeedbackEvent{
		EventID:   uuid.New().String(),
		UserID:    userID,
		TrackID:   resolved,
		SessionID: sessionID,
		Rating:    rating,
		Features:  features,
		Timestamp: time.Now().UTC(),
	}
	if err := e.pipeline.Publish(ctx, event); err != nil {
		metrics.FeedbackEventsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.FeedbackEventsTotal.WithLabelValues("applied").Inc()
	metrics.PolicyUpdatesTotal.Inc()
	return nil
}

// MergeTracks folds one canonical identity into another.
func (e *Engine) MergeTracks(ctx context.Context, fromID, toID string) error {
	err := e.index.Merge(ctx, fromID, toID)
	switch {
	case err == nil:
		metrics.TrackMergesTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, canonical.ErrTrackNotFound):
		metrics.TrackMergesTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.TrackMergesTotal.WithLabelValues("conflict").Inc()
	}
	return err
}

// UserPolicy returns a snapshot of a listener's policy.
func (e *Engine) UserPolicy(ctx context.Context, userID string) (*policy.Policy, error) {
	return e.policies.Get(ctx, userID)
}

// Track returns a canonical track by id, following merges.
func (e *Engine) Track(ctx context.Context, id string) (*canonical.Track, error) {
	return e.index.Get(ctx, id)
}

// Sources names the engine's registered catalog sources.
func (e *Engine) Sources() []string {
	return e.fetcher.Sources()
}

// filterByEra drops tracks whose known release year falls outside the
// requested era. Tracks without a year pass, matching how unknown
// durations are treated during canonicalization.
func filterByEra(tracks []canonical.Track, era *catalog.Range) []canonical.Track {
	if era == nil {
		return tracks
	}
	kept := tracks[:0]
	for _, t := range tracks {
		if t.Year == 0 || (float64(t.Year) >= era.Min && float64(t.Year) <= era.Max) {
			kept = append(kept, t)
		}
	}
	return kept
}

func sourceStatuses(results []catalog.SourceResult) []SourceStatus {
	statuses := make([]SourceStatus, len(results))
	for i, r := range results {
		statuses[i] = SourceStatus{
			Source:     r.Source,
			Candidates: len(r.Candidates),
		}
		if r.Failed() {
			statuses[i].Failed = true
			statuses[i].Reason = string(r.Err.Reason)
		}
	}
	return statuses
}

func anyFailed(results []catalog.SourceResult) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}

func isAllFailed(err error) bool {
	var allFailed *catalog.AllFailedError
	return errors.As(err, &allFailed)
}
