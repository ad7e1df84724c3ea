// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

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

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/lectern/config.yaml",
	"/etc/lectern/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "LECTERN_CONFIG_PATH"

// envPrefix is stripped from environment variables before mapping them to
// config paths.
const envPrefix = "LECTERN_"

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (if one exists)
//  3. Environment Variables: LECTERN_* overrides (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
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

// findConfigFile searches for a config file, preferring the env override.
// Returns empty string if no file is found.
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

// envTransformFunc maps LECTERN_* environment variable names to koanf config
// paths. Unmapped variables are dropped so stray environment variables cannot
// pollute the configuration.
//
// Examples:
//   - LECTERN_BROKER_URL -> broker.url
//   - LECTERN_RECOMMEND_MIN_RATINGS -> recommend.min_ratings
//   - LECTERN_LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	envMappings := map[string]string{
		// Broker mappings
		"broker_url":             "broker.url",
		"broker_embedded":        "broker.embedded_server",
		"broker_store_dir":       "broker.store_dir",
		"broker_max_memory":      "broker.max_memory",
		"broker_max_store":       "broker.max_store",
		"broker_reconnect_wait":  "broker.reconnect_wait",
		"broker_stream_name":     "broker.stream_name",
		"broker_retention_days":  "broker.retention_days",
		"broker_durable_name":    "broker.durable_name",
		"broker_queue_group":     "broker.queue_group",
		"broker_connect_timeout": "broker.connect_timeout",
		"broker_publish_timeout": "broker.publish_timeout",

		// Router mappings
		"router_retry_count":    "router.retry_count",
		"router_retry_interval": "router.retry_initial_interval",
		"router_dedup_enabled":  "router.deduplication_enabled",
		"router_dedup_ttl":      "router.deduplication_ttl",
		"router_poison_topic":   "router.poison_topic",
		"router_close_timeout":  "router.close_timeout",

		// Store mappings
		"store_path":        "store.path",
		"store_in_memory":   "store.in_memory",
		"store_gc_interval": "store.gc_interval",

		// Recommendation mappings
		"recommend_limit":              "recommend.limit",
		"recommend_paired_limit":       "recommend.paired_limit",
		"recommend_min_ratings":        "recommend.min_ratings",
		"recommend_signal_cache_ttl":   "recommend.signal_cache_ttl",
		"recommend_signal_cache_size":  "recommend.signal_cache_size",
		"recommend_upstream_timeout":   "recommend.upstream_timeout",
		"recommend_branch_popular_url": "recommend.branch_popular_url",
		"recommend_top_rated_url":      "recommend.top_rated_url",
		"recommend_paired_url":         "recommend.paired_url",

		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}
