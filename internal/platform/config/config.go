// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, catalog, chat) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the ingest, delta-sync, and
// upload-worker binaries. All three share this struct; a given process only
// reads the fields relevant to it.
type Config struct {

	// Process-wide settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"   envDefault:"info"`
	LogJSON     bool   `env:"LOG_JSON"    envDefault:"true"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// DBPoolSize is the steady-state number of pooled Postgres connections.
	DBPoolSize int `env:"DB_POOL_SIZE" envDefault:"10"`

	// DBPoolOverflow is added on top of DBPoolSize for pgxpool's MaxConns;
	// pgxpool has no separate "overflow" tier, so this widens the ceiling
	// rather than gating a distinct pool.
	DBPoolOverflow int `env:"DB_POOL_OVERFLOW" envDefault:"5"`

	// DBPoolTimeout bounds initial pool creation in postgres.NewPool; the
	// binaries also pass it as each connection's statement_timeout. Waiting
	// to acquire a pooled connection is not bounded by it.
	DBPoolTimeout time.Duration `env:"DB_POOL_TIMEOUT" envDefault:"5s"`

	// Key-Value Cache (Redis)
	RedisURL        string        `env:"REDIS_URL,required"`
	RedisCacheTTL   time.Duration `env:"REDIS_CACHE_TTL"      envDefault:"1h"`
	SearchCacheOn   bool          `env:"SEARCH_CACHE_ENABLED" envDefault:"true"`

	// Upstream catalog API
	KodikToken   string  `env:"KODIK_TOKEN,required"`
	KodikBaseURL string  `env:"KODIK_BASE_URL"    envDefault:"https://kodikapi.com"`
	KodikRPSLimit float64 `env:"KODIK_RPS_LIMIT"  envDefault:"5"`

	// Ingest pipeline
	IngestBatchSize    int           `env:"INGEST_BATCH_SIZE"    envDefault:"50"`
	WorkerConcurrency  int           `env:"WORKER_CONCURRENCY"   envDefault:"4"`
	DeltaLookbackHours int           `env:"DELTA_LOOKBACK_HOURS" envDefault:"24"`
	DeltaSyncInterval  time.Duration `env:"DELTA_SYNC_INTERVAL"  envDefault:"15m"`

	// Downloader / muxer
	TempDir                string `env:"TEMP_DIR"                  envDefault:"/tmp/ingestd"`
	DownloadTimeoutSeconds int    `env:"DOWNLOAD_TIMEOUT_SECONDS"  envDefault:"1800"`
	MaxFileSizeMB          int    `env:"MAX_FILE_SIZE_MB"          envDefault:"4096"`
	MuxerPath              string `env:"MUXER_PATH"                envDefault:"/usr/bin/ffmpeg"`

	// Chat backend (MTProto user session)
	BotToken            string        `env:"BOT_TOKEN"`
	UploadChatID         int64         `env:"UPLOAD_CHAT_ID,required"`
	TelegramProxyURL     string        `env:"TELEGRAM_PROXY_URL"`
	UserAPIID            int           `env:"USER_API_ID,required"`
	UserAPIHash          string        `env:"USER_API_HASH,required"`
	UserAPISessionPath   string        `env:"USER_API_SESSION_PATH" envDefault:"./data/session.bolt"`
	UploadPollInterval   time.Duration `env:"UPLOAD_POLL_INTERVAL"  envDefault:"3s"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the process is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the process is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DeltaLookback returns the delta-sync lookback window as a [time.Duration].
func (c *Config) DeltaLookback() time.Duration {
	return time.Duration(c.DeltaLookbackHours) * time.Hour
}

// DownloadTimeout returns the per-episode download deadline as a [time.Duration].
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}

// MaxFileSizeBytes returns the configured max media file size in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}
