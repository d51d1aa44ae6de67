// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package config defines the application configuration and loads it in
// layers: struct defaults, then an optional YAML file, then environment
// variables with the AURALIS_ prefix. Environment wins over file wins
// over defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Database DatabaseConfig `koanf:"database"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Engine   EngineConfig   `koanf:"engine"`
	Feedback FeedbackConfig `koanf:"feedback"`
	API      APIConfig      `koanf:"api"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// DatabaseConfig controls the Badger store.
type DatabaseConfig struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory keeps all state in memory, mainly for development.
	InMemory bool `koanf:"in_memory"`
}

// SourceConfig enables one music catalog source.
type SourceConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`
}

// FetcherSettings tunes per-source fetch behavior.
type FetcherSettings struct {
	SourceTimeout           time.Duration `koanf:"source_timeout"`
	ResultLimit             int           `koanf:"result_limit"`
	RequestsPerSecond       float64       `koanf:"requests_per_second"`
	BreakerFailureThreshold int           `koanf:"breaker_failure_threshold"`
	BreakerCooldown         time.Duration `koanf:"breaker_cooldown"`
}

// CatalogConfig selects and tunes the upstream music sources.
type CatalogConfig struct {
	Deezer      SourceConfig    `koanf:"deezer"`
	ITunes      SourceConfig    `koanf:"itunes"`
	MusicBrainz SourceConfig    `koanf:"musicbrainz"`
	Fetcher     FetcherSettings `koanf:"fetcher"`
}

// EngineConfig tunes the recommendation cycle.
type EngineConfig struct {
	DefaultLimit     int           `koanf:"default_limit"`
	SessionCacheSize int           `koanf:"session_cache_size"`
	SessionTTL       time.Duration `koanf:"session_ttl"`
}

// FeedbackConfig tunes the feedback pipeline and processor.
type FeedbackConfig struct {
	ReorderWindow        time.Duration `koanf:"reorder_window"`
	DedupeDepth          int           `koanf:"dedupe_depth"`
	RetryMaxRetries      int           `koanf:"retry_max_retries"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	RetryMultiplier      float64       `koanf:"retry_multiplier"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// APIConfig controls the outer HTTP surface.
type APIConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// defaultConfig returns the baseline every deployment starts from.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Path:     "/data/auralis",
			InMemory: false,
		},
		Catalog: CatalogConfig{
			Deezer:      SourceConfig{Enabled: true},
			ITunes:      SourceConfig{Enabled: true},
			MusicBrainz: SourceConfig{Enabled: true},
			Fetcher: FetcherSettings{
				SourceTimeout:           3 * time.Second,
				ResultLimit:             25,
				RequestsPerSecond:       5,
				BreakerFailureThreshold: 5,
				BreakerCooldown:         30 * time.Second,
			},
		},
		Engine: EngineConfig{
			DefaultLimit:     20,
			SessionCacheSize: 50000,
			SessionTTL:       30 * time.Minute,
		},
		Feedback: FeedbackConfig{
			ReorderWindow:        10 * time.Millisecond,
			DedupeDepth:          1024,
			RetryMaxRetries:      3,
			RetryInitialInterval: 50 * time.Millisecond,
			RetryMaxInterval:     2 * time.Second,
			RetryMultiplier:      2,
			CloseTimeout:         10 * time.Second,
		},
		API: APIConfig{
			CORSOrigins:       nil,
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
		},
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("database.path is required unless database.in_memory is set")
	}
	if !c.Catalog.Deezer.Enabled && !c.Catalog.ITunes.Enabled && !c.Catalog.MusicBrainz.Enabled {
		return fmt.Errorf("at least one catalog source must be enabled")
	}
	if c.Catalog.Fetcher.SourceTimeout <= 0 {
		return fmt.Errorf("catalog.fetcher.source_timeout must be positive")
	}
	if c.Catalog.Fetcher.ResultLimit <= 0 {
		return fmt.Errorf("catalog.fetcher.result_limit must be positive")
	}
	if c.Catalog.Fetcher.RequestsPerSecond < 0 {
		return fmt.Errorf("catalog.fetcher.requests_per_second cannot be negative")
	}
	if c.Catalog.Fetcher.BreakerFailureThreshold <= 0 {
		return fmt.Errorf("catalog.fetcher.breaker_failure_threshold must be positive")
	}
	if c.Engine.DefaultLimit <= 0 {
		return fmt.Errorf("engine.default_limit must be positive")
	}
	if c.Feedback.ReorderWindow <= 0 {
		return fmt.Errorf("feedback.reorder_window must be positive")
	}
	if c.Feedback.DedupeDepth <= 0 {
		return fmt.Errorf("feedback.dedupe_depth must be positive")
	}
	if c.Feedback.RetryMultiplier < 1 {
		return fmt.Errorf("feedback.retry_multiplier must be at least 1")
	}
	if c.API.RateLimitRequests < 0 {
		return fmt.Errorf("api.rate_limit_requests cannot be negative")
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
