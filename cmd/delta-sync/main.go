// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Delta-sync is the long-running entry point that periodically pulls
everything the upstream catalog reports changed since a watermark and
ingests it.

Usage:

	go run cmd/delta-sync/main.go [flags]

Startup Sequence:

 1. Logger: initialize structured JSON logging (slog).
 2. Config: load and validate environment variables.
 3. Storage: establish the Postgres pool.
 4. Migration: run idempotent schema updates.
 5. Wiring: construct the catalog client, ingest service, and delta-sync worker.
 6. Run: start the tick loop and block for SIGINT/SIGTERM.

No business logic lives here. This file is strictly for orchestration and
wiring.
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kinomir/ingestd/internal/catalog"
	"github.com/kinomir/ingestd/internal/deltasync"
	"github.com/kinomir/ingestd/internal/ingest"
	"github.com/kinomir/ingestd/internal/platform/config"
	"github.com/kinomir/ingestd/internal/platform/constants"
	"github.com/kinomir/ingestd/internal/platform/migration"
	pgstore "github.com/kinomir/ingestd/internal/platform/postgres"
	redisstore "github.com/kinomir/ingestd/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("delta_sync_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log := rawLog.With(slog.String("app", constants.AppName), slog.String("cmd", "delta-sync"))
	slog.SetDefault(log)
	log.Info("service_initializing")

	// # 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
	defer startupCancel()

	// # 3. PostgreSQL
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, pgstore.Options{
		PoolSize: cfg.DBPoolSize,
		Overflow: cfg.DBPoolOverflow,
		Timeout:  cfg.DBPoolTimeout,
	}, cfg.DBPoolTimeout, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer func() {
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// # 4. Migrations
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// # 5. Wiring
	catalogClient := catalog.New(catalog.Config{
		BaseURL:  cfg.KodikBaseURL,
		Token:    cfg.KodikToken,
		RPSLimit: cfg.KodikRPSLimit,
	}, log)

	ingestSvc := ingest.New(pool, log)

	worker := deltasync.New(catalogClient, ingestSvc, deltasync.Config{
		Lookback:     cfg.DeltaLookback(),
		SyncInterval: cfg.DeltaSyncInterval,
		BatchSize:    cfg.IngestBatchSize,
		PageSize:     constants.DefaultCatalogPageSize,
		MaxPages:     0,
		Concurrency:  cfg.WorkerConcurrency,
	}, log)

	// # 6. Run
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	go worker.Start(appCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	log.Info("delta_sync_running", slog.Duration("interval", cfg.DeltaSyncInterval))

	sig := <-quit
	log.Info("shutdown_signal_received", slog.String("signal", sig.String()))

	appCancel()
	log.Info("graceful_shutdown_complete")
	return nil
}
