// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package config defines the engine's layered configuration: built-in
// defaults, an optional YAML file, and environment variable overrides, in
// ascending precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the recommendation service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Profiles  ProfilesConfig  `koanf:"profiles"`
	Recommend RecommendConfig `koanf:"recommend"`
	Events    EventsConfig    `koanf:"events"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
//
// Environment Variables:
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_PORT: Listen port (default: 8460)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
//   - ENVIRONMENT: "development" or "production" (default: development)
type ServerConfig struct {
	Host            string        `koanf:"host"`             // Default: 0.0.0.0
	Port            int           `koanf:"port"`             // Default: 8460
	Timeout         time.Duration `koanf:"timeout"`          // Default: 30s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"` // Default: 15s
	Environment     string        `koanf:"environment"`      // Default: development
}

// DatabaseConfig holds settings for the embedded DuckDB catalog database
// (product projections and the interaction event log).
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: /data/curata.duckdb)
//   - DUCKDB_MAX_MEMORY: DuckDB memory ceiling (default: 1GB)
//   - DUCKDB_THREADS: Worker threads, 0 = NumCPU (default: 0)
type DatabaseConfig struct {
	Path      string `koanf:"path"`       // Default: /data/curata.duckdb
	MaxMemory string `koanf:"max_memory"` // Default: 1GB
	Threads   int    `koanf:"threads"`    // Default: 0 (NumCPU)
}

// ProfilesConfig holds settings for the BadgerDB preference profile store.
//
// Environment Variables:
//   - PROFILES_PATH: Badger directory (default: /data/profiles)
type ProfilesConfig struct {
	Path string `koanf:"path"` // Default: /data/profiles ("" = in-memory)
}

// RecommendConfig tunes the recommendation engine. The defaults match the
// shipped scoring model; override them only to experiment.
//
// Environment Variables:
//   - RECOMMEND_DEFAULT_LIMIT: Page size when the request omits one (default: 20)
//   - RECOMMEND_MAX_LIMIT: Hard cap on requested page size (default: 100)
//   - RECOMMEND_FETCH_MULTIPLIER: Overfetch factor per strategy (default: 4)
//   - RECOMMEND_CATEGORY_CAP: Max items per category in a page (default: 3)
//   - RECOMMEND_MIN_SOURCES_AUTH: Min distinct strategies for authenticated pages (default: 4)
//   - RECOMMEND_MIN_SOURCES_ANON: Min distinct strategies for anonymous pages (default: 3)
//   - RECOMMEND_FETCH_RETRY_DELAY: Pause before the single strategy retry (default: 100ms)
//   - RECOMMEND_TRENDING_DAYS: Trending lookback window (default: 7)
//   - RECOMMEND_NEW_DAYS: New-product lookback window (default: 14)
//   - RECOMMEND_SEED: Seed for jittered scoring, 0 = time-seeded (default: 0)
type RecommendConfig struct {
	DefaultLimit    int           `koanf:"default_limit"`     // Default: 20
	MaxLimit        int           `koanf:"max_limit"`         // Default: 100
	FetchMultiplier int           `koanf:"fetch_multiplier"`  // Default: 4
	CategoryCap     int           `koanf:"category_cap"`      // Default: 3
	MinSourcesAuth  int           `koanf:"min_sources_auth"`  // Default: 4
	MinSourcesAnon  int           `koanf:"min_sources_anon"`  // Default: 3
	FetchRetryDelay time.Duration `koanf:"fetch_retry_delay"` // Default: 100ms
	TrendingDays    int           `koanf:"trending_days"`     // Default: 7
	NewDays         int           `koanf:"new_days"`          // Default: 14
	Seed            int64         `koanf:"seed"`              // Default: 0 (time-seeded)
}

// EventsConfig tunes the in-process interaction event pipeline.
//
// Environment Variables:
//   - EVENTS_BUFFER_SIZE: Publisher channel buffer (default: 2048)
//   - EVENTS_FLUSH_INTERVAL: Impression writer flush cadence (default: 5s)
//   - EVENTS_FLUSH_BATCH: Impression writer batch size (default: 200)
type EventsConfig struct {
	BufferSize    int           `koanf:"buffer_size"`    // Default: 2048
	FlushInterval time.Duration `koanf:"flush_interval"` // Default: 5s
	FlushBatch    int           `koanf:"flush_batch"`    // Default: 200
}

// APIConfig holds API surface settings.
//
// Environment Variables:
//   - API_CORS_ORIGINS: Comma-separated allowed origins (default: *)
//   - API_RATE_LIMIT: Requests per minute per client, 0 = off (default: 300)
type APIConfig struct {
	CORSOrigins []string `koanf:"cors_origins"` // Default: ["*"]
	RateLimit   int      `koanf:"rate_limit"`   // Default: 300 req/min, 0 = disabled
}

// LoggingConfig holds structured logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: "json" or "console" (default: json)
type LoggingConfig struct {
	Level  string `koanf:"level"`  // Default: info
	Format string `koanf:"format"` // Default: json
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty (use :memory: for ephemeral)")
	}

	if c.Recommend.DefaultLimit <= 0 {
		return fmt.Errorf("recommend.default_limit must be positive, got %d", c.Recommend.DefaultLimit)
	}
	if c.Recommend.MaxLimit < c.Recommend.DefaultLimit {
		return fmt.Errorf("recommend.max_limit (%d) must be >= recommend.default_limit (%d)",
			c.Recommend.MaxLimit, c.Recommend.DefaultLimit)
	}
	if c.Recommend.FetchMultiplier < 1 {
		return fmt.Errorf("recommend.fetch_multiplier must be >= 1, got %d", c.Recommend.FetchMultiplier)
	}
	if c.Recommend.CategoryCap < 1 {
		return fmt.Errorf("recommend.category_cap must be >= 1, got %d", c.Recommend.CategoryCap)
	}
	if c.Recommend.MinSourcesAnon > c.Recommend.MinSourcesAuth {
		return fmt.Errorf("recommend.min_sources_anon (%d) must be <= recommend.min_sources_auth (%d)",
			c.Recommend.MinSourcesAnon, c.Recommend.MinSourcesAuth)
	}
	if c.Recommend.TrendingDays < 1 || c.Recommend.NewDays < 1 {
		return fmt.Errorf("recommend lookback windows must be >= 1 day")
	}

	if c.Events.BufferSize < 1 {
		return fmt.Errorf("events.buffer_size must be >= 1, got %d", c.Events.BufferSize)
	}
	if c.Events.FlushInterval <= 0 {
		return fmt.Errorf("events.flush_interval must be positive, got %s", c.Events.FlushInterval)
	}
	if c.Events.FlushBatch < 1 {
		return fmt.Errorf("events.flush_batch must be >= 1, got %d", c.Events.FlushBatch)
	}

	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must be >= 0, got %d", c.API.RateLimit)
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
