// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/auralis/config.yaml",
	"/etc/auralis/config.yml",
}

// ConfigPathEnvVar overrides the config file search when set.
const ConfigPathEnvVar = "AURALIS_CONFIG"

// EnvPrefix namespaces every configuration environment variable.
const EnvPrefix = "AURALIS_"

// Load builds the configuration from defaults, an optional YAML file,
// and AURALIS_-prefixed environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := normalizeSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// configSections maps the leading tokens of an environment variable to
// koanf path prefixes. Longer entries must come before their prefixes
// so AURALIS_CATALOG_DEEZER_BASE_URL resolves to catalog.deezer.base_url
// rather than catalog.deezer_base_url.
var configSections = []struct {
	envPrefix string
	path      string
}{
	{"catalog_deezer_", "catalog.deezer."},
	{"catalog_itunes_", "catalog.itunes."},
	{"catalog_musicbrainz_", "catalog.musicbrainz."},
	{"catalog_fetcher_", "catalog.fetcher."},
	{"server_", "server."},
	{"logging_", "logging."},
	{"database_", "database."},
	{"engine_", "engine."},
	{"feedback_", "feedback."},
	{"api_", "api."},
}

// envTransform maps AURALIS_SERVER_PORT to server.port and so on.
func envTransform(key string) string {
	key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
	for _, section := range configSections {
		if rest, ok := strings.CutPrefix(key, section.envPrefix); ok {
			return section.path + rest
		}
	}
	// Unrecognized variables map to nothing and are ignored on
	// unmarshal.
	return key
}

// sliceConfigPaths are paths that accept comma-separated strings from
// the environment in place of YAML lists.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

func normalizeSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
