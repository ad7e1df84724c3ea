// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

// Package config provides centralized configuration management for all
// application components: broker connectivity, event routing, replica
// storage, the recommendation engine, the HTTP server, and logging.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting (LECTERN_* variables)
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file, and environment variables.
type Config struct {
	Broker    BrokerConfig    `koanf:"broker"`
	Router    RouterConfig    `koanf:"router"`
	Store     StoreConfig     `koanf:"store"`
	Recommend RecommendConfig `koanf:"recommend"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// BrokerConfig holds NATS JetStream connection and stream settings.
//
// Environment Variables:
//   - LECTERN_BROKER_URL: Broker URL (default: nats://127.0.0.1:4222)
//   - LECTERN_BROKER_EMBEDDED: Run an embedded broker (default: false)
//   - LECTERN_BROKER_RECONNECT_WAIT: Delay between reconnect attempts
type BrokerConfig struct {
	URL            string `koanf:"url" validate:"required"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	// ReconnectWait is the fixed delay between reconnection attempts.
	// Attempts continue indefinitely until the broker is reachable.
	ReconnectWait time.Duration `koanf:"reconnect_wait" validate:"min=1s"`

	StreamName    string `koanf:"stream_name" validate:"required"`
	RetentionDays int    `koanf:"retention_days" validate:"min=1"`
	DurableName   string `koanf:"durable_name" validate:"required"`
	QueueGroup    string `koanf:"queue_group"`

	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"min=1s"`
	PublishTimeout time.Duration `koanf:"publish_timeout" validate:"min=1s"`
}

// RouterConfig holds Watermill router middleware settings.
type RouterConfig struct {
	RetryCount           int           `koanf:"retry_count" validate:"min=0,max=100"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	DeduplicationEnabled bool          `koanf:"deduplication_enabled"`
	DeduplicationTTL     time.Duration `koanf:"deduplication_ttl"`
	PoisonTopic          string        `koanf:"poison_topic" validate:"required"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// StoreConfig holds Badger key-value store settings for the course and user
// replicas and the interaction fact log.
type StoreConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// RecommendConfig holds recommendation aggregator settings.
//
// Upstream URLs are optional; when empty, the corresponding signal is served
// from the local replica instead of a remote peer.
type RecommendConfig struct {
	Limit       int `koanf:"limit" validate:"min=1,max=100"`
	PairedLimit int `koanf:"paired_limit" validate:"min=1"`

	// MinRatings is the cold-start guard: courses with fewer ratings are
	// excluded from the top-rated signal.
	MinRatings int `koanf:"min_ratings" validate:"min=1"`

	SignalCacheTTL  time.Duration `koanf:"signal_cache_ttl"`
	SignalCacheSize int           `koanf:"signal_cache_size" validate:"min=1"`
	UpstreamTimeout time.Duration `koanf:"upstream_timeout" validate:"min=100ms"`

	BranchPopularURL string `koanf:"branch_popular_url" validate:"omitempty,url"`
	TopRatedURL      string `koanf:"top_rated_url" validate:"omitempty,url"`
	PairedURL        string `koanf:"paired_url" validate:"omitempty,url"`
}

// ServerConfig holds HTTP server settings for the recommendation and
// metrics endpoints.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`
}

// LoggingConfig holds log level and output format settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config struct with all default values. Defaults
// are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			StoreDir:       "/data/lectern/jetstream",
			MaxMemory:      1 << 30,  // 1GB
			MaxStore:       10 << 30, // 10GB
			ReconnectWait:  5 * time.Second,
			StreamName:     "DOMAIN_EVENTS",
			RetentionDays:  7,
			DurableName:    "lectern-consumer",
			QueueGroup:     "lectern",
			ConnectTimeout: 10 * time.Second,
			PublishTimeout: 5 * time.Second,
		},
		Router: RouterConfig{
			RetryCount:           3,
			RetryInitialInterval: 100 * time.Millisecond,
			DeduplicationEnabled: true,
			DeduplicationTTL:     5 * time.Minute,
			PoisonTopic:          "events.dlq",
			CloseTimeout:         30 * time.Second,
		},
		Store: StoreConfig{
			Path:       "/data/lectern/replica",
			InMemory:   false,
			GCInterval: 10 * time.Minute,
		},
		Recommend: RecommendConfig{
			Limit:           10,
			PairedLimit:     5,
			MinRatings:      5,
			SignalCacheTTL:  300 * time.Second,
			SignalCacheSize: 4096,
			UpstreamTimeout: 3 * time.Second,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8086,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
