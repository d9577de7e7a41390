// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Ingest-full is the one-shot entry point that walks the upstream catalog's
entire paginated feed and ingests every item it sees.

Usage:

	go run cmd/ingest-full/main.go [flags]

Startup Sequence:

 1. Logger: initialize structured JSON logging (slog).
 2. Config: load and validate environment variables.
 3. Storage: establish the Postgres pool.
 4. Migration: run idempotent schema updates.
 5. Wiring: construct the catalog client and ingest service.
 6. Run: walk the full list and ingest it, then exit.

No business logic lives here. This file is strictly for orchestration and
wiring.
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kinomir/ingestd/internal/catalog"
	"github.com/kinomir/ingestd/internal/ingest"
	"github.com/kinomir/ingestd/internal/platform/config"
	"github.com/kinomir/ingestd/internal/platform/constants"
	"github.com/kinomir/ingestd/internal/platform/migration"
	pgstore "github.com/kinomir/ingestd/internal/platform/postgres"
	redisstore "github.com/kinomir/ingestd/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ingest_full_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log := rawLog.With(slog.String("app", constants.AppName), slog.String("cmd", "ingest-full"))
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
		BaseURL:        cfg.KodikBaseURL,
		Token:          cfg.KodikToken,
		RPSLimit:       cfg.KodikRPSLimit,
		RequestTimeout: 0,
	}, log)

	ingestSvc := ingest.New(pool, log)

	// # 6. Run
	runCtx, runCancel := context.WithTimeout(context.Background(), time.Hour)
	defer runCancel()

	log.Info("fetching_full_catalog")
	items, err := catalogClient.FetchFullList(runCtx, constants.DefaultCatalogPageSize, 0)
	if err != nil {
		return fmt.Errorf("fetch full list: %w", err)
	}
	log.Info("full_catalog_fetched", slog.Int("items", len(items)))

	stats, err := ingestSvc.IngestBatch(runCtx, items, true)
	if err != nil {
		return fmt.Errorf("ingest batch: %w", err)
	}

	log.Info("ingest_full_complete",
		slog.Int("total", stats.TotalProcessed),
		slog.Int("successful", stats.Successful),
		slog.Int("failed", stats.Failed),
	)

	return nil
}
