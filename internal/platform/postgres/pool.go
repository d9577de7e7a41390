// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package postgres provides a high-performance PostgreSQL driver and connection pool.

It specializes in managing 'pgxpool' instances, ensuring that database connections
are recycled efficiently and timeouts are enforced at the driver level.

Architecture:

  - Pool: Thread-safe connection pooling with automatic health checks (Ping).
  - Tuning: Configures MaxConns from config; MinConns, MaxConnIdleTime and
    the other limits are package constants.
  - Safety: Integrates context deadlines to prevent runaway queries.

This package acts as the bridge between the repository layer and the physical
storage layer.
*/
package postgres

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// # Pool Configuration (Tuning)

const (
	// minConnsFloor keeps a small warm set of connections even when the
	// configured pool size is tiny, to avoid cold-start latency.
	minConnsFloor = 2

	// maxConnLifetime ensures connections are periodically recycled.
	maxConnLifetime = 60 * time.Minute

	// maxConnIdleTime closes connections that have been idle too long.
	maxConnIdleTime = 10 * time.Minute

	// healthCheckPeriod is the frequency of background connection health checks.
	healthCheckPeriod = 1 * time.Minute

	// connectTimeout is the maximum time allowed to establish each new
	// connection; Options.Timeout, when set, replaces it only as the bound on
	// initial pool creation.
	connectTimeout = 5 * time.Second

	// pingTimeout is the maximum duration for a health check ping.
	pingTimeout = 2 * time.Second
)

// Options tunes the pool beyond the DSN itself.
//
// PoolSize and Overflow together define MaxConns: pgxpool has no distinct
// "overflow" concept the way some connection pools do, so Overflow is added
// on top of PoolSize to compute the hard ceiling (DB_POOL_OVERFLOW exists in
// config for surface compatibility with that idea).
type Options struct {
	PoolSize int
	Overflow int
	Timeout  time.Duration
}

// # Lifecycle Management

// NewPool creates and validates a new PostgreSQL connection pool.
func NewPool(ctx stdctx.Context, dsn string, opts Options, statementTimeout time.Duration, logger *slog.Logger) (*pgxpool.Pool, error) {

	// Step 1: Parse the DSN string
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	// Step 2: Apply pool tuning parameters
	maxConns := int32(opts.PoolSize + opts.Overflow)
	if maxConns < 1 {
		maxConns = 1
	}
	minConns := int32(minConnsFloor)
	if minConns > maxConns {
		minConns = maxConns
	}

	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	// AfterConnect is called each time a new physical connection is established.
	// We use it to set a per-connection statement timeout for safety.
	poolConfig.AfterConnect = func(ctx stdctx.Context, conn *pgx.Conn) error {
		timeoutQuery := fmt.Sprintf("SET statement_timeout = '%ds'", int(statementTimeout.Seconds()))
		_, err := conn.Exec(ctx, timeoutQuery)
		return err
	}

	// Step 3: Establish the pool, bounded by the configured pool_timeout.
	dialTimeout := connectTimeout
	if opts.Timeout > 0 {
		dialTimeout = opts.Timeout
	}
	connectCtx, cancel := stdctx.WithTimeout(ctx, dialTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	// Step 4: Validate that we can actually reach the database
	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	// Step 5: Log pool statistics on startup
	stats := pool.Stat()
	logger.Info("postgres pool connected",
		slog.Int("max_conns", int(stats.MaxConns())),
		slog.Int("total_conns", int(stats.TotalConns())),
	)

	return pool, nil
}

// # Health Checks

// Ping verifies that the PostgreSQL connection pool is healthy.
func Ping(ctx stdctx.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := stdctx.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}

	return nil
}
