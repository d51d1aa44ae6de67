// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Command server runs the Auralis recommendation service: it aggregates
// candidates from the configured music catalogs, canonicalizes them,
// ranks per listener, and learns from feedback.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/auralis-io/auralis/internal/api"
	"github.com/auralis-io/auralis/internal/canonical"
	"github.com/auralis-io/auralis/internal/catalog"
	"github.com/auralis-io/auralis/internal/catalog/sources"
	"github.com/auralis-io/auralis/internal/config"
	"github.com/auralis-io/auralis/internal/engine"
	"github.com/auralis-io/auralis/internal/feature"
	"github.com/auralis-io/auralis/internal/feedback"
	"github.com/auralis-io/auralis/internal/history"
	"github.com/auralis-io/auralis/internal/logging"
	"github.com/auralis-io/auralis/internal/policy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("in_memory", cfg.Database.InMemory).
		Msg("Starting Auralis")

	db, err := openBadger(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	logger := logging.Logger()

	fetcher, err := buildFetcher(cfg.Catalog, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build catalog fetcher")
	}

	index := canonical.NewIndex(db, logger)
	policies := policy.NewStore(db, logger)
	hist := history.NewStore(db, logger)

	processor := policy.NewProcessor(policies, policy.ProcessorConfig{
		ReorderWindow: cfg.Feedback.ReorderWindow,
		DedupeDepth:   cfg.Feedback.DedupeDepth,
	}, logger)

	pipeline, err := feedback.NewPipeline(feedback.Config{
		RetryMaxRetries:      cfg.Feedback.RetryMaxRetries,
		RetryInitialInterval: cfg.Feedback.RetryInitialInterval,
		RetryMaxInterval:     cfg.Feedback.RetryMaxInterval,
		RetryMultiplier:      cfg.Feedback.RetryMultiplier,
		CloseTimeout:         cfg.Feedback.CloseTimeout,
	}, processor, hist, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build feedback pipeline")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipelineDone := make(chan error, 1)
	go func() {
		pipelineDone <- pipeline.Run(ctx)
	}()
	select {
	case <-pipeline.Running():
	case err := <-pipelineDone:
		logging.Fatal().Err(err).Msg("Feedback pipeline failed to start")
	}
	logging.Info().Msg("Feedback pipeline running")

	eng := engine.New(engine.Config{
		DefaultLimit:     cfg.Engine.DefaultLimit,
		SessionCacheSize: cfg.Engine.SessionCacheSize,
		SessionTTL:       cfg.Engine.SessionTTL,
	}, fetcher, index, feature.NewExtractor(nil), policies, hist, pipeline, logger)

	router := api.NewRouter(api.RouterConfig{
		AllowedOrigins:    cfg.API.CORSOrigins,
		RateLimitRequests: cfg.API.RateLimitRequests,
		RateLimitWindow:   cfg.API.RateLimitWindow,
	}, api.NewHandler(eng, logger))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverDone := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		serverDone <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	stop()
	if err := pipeline.Close(); err != nil {
		logging.Error().Err(err).Msg("Feedback pipeline close failed")
	}
	select {
	case <-pipelineDone:
	case <-time.After(cfg.Feedback.CloseTimeout):
		logging.Warn().Msg("Feedback pipeline did not stop in time")
	}

	logging.Info().Msg("Auralis stopped")
}

func openBadger(cfg config.DatabaseConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{})
	return badger.Open(opts)
}

// badgerLogger routes Badger's log output through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func buildFetcher(cfg config.CatalogConfig, logger zerolog.Logger) (*catalog.Fetcher, error) {
	var enabled []catalog.Source
	if cfg.Deezer.Enabled {
		enabled = append(enabled, sources.NewDeezer(cfg.Deezer.BaseURL))
	}
	if cfg.ITunes.Enabled {
		enabled = append(enabled, sources.NewITunes(cfg.ITunes.BaseURL))
	}
	if cfg.MusicBrainz.Enabled {
		enabled = append(enabled, sources.NewMusicBrainz(cfg.MusicBrainz.BaseURL))
	}

	fetcherCfg := catalog.FetcherConfig{
		SourceTimeout:           cfg.Fetcher.SourceTimeout,
		ResultLimit:             cfg.Fetcher.ResultLimit,
		RequestsPerSecond:       cfg.Fetcher.RequestsPerSecond,
		BreakerFailureThreshold: uint32(cfg.Fetcher.BreakerFailureThreshold),
		BreakerCooldown:         cfg.Fetcher.BreakerCooldown,
	}
	return catalog.NewFetcher(fetcherCfg, logger, enabled...)
}
