// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Upload-worker is the long-running entry point that polls for episodes
missing a published media marker, downloads each via the external muxer,
and publishes it to the configured chat backend in strict per-(work,
translation) order.

Usage:

	go run cmd/upload-worker/main.go [flags]

Startup Sequence:

 1. Logger: initialize structured JSON logging (slog).
 2. Config: load and validate environment variables.
 3. Storage: establish the Postgres pool and Redis client.
 4. Migration: run idempotent schema updates.
 5. Chat: connect the MTProto user session stored at USER_API_SESSION_PATH.
 6. Wiring: construct the downloader, publish queue, and publish worker.
 7. Run: start the poll loop and block for SIGINT/SIGTERM, draining
    in-flight uploads within a deadline on shutdown.

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
	"strconv"
	"syscall"

	"github.com/kinomir/ingestd/internal/catalog"
	"github.com/kinomir/ingestd/internal/catalog/playlistcache"
	"github.com/kinomir/ingestd/internal/chat"
	"github.com/kinomir/ingestd/internal/downloader"
	"github.com/kinomir/ingestd/internal/platform/config"
	"github.com/kinomir/ingestd/internal/platform/constants"
	"github.com/kinomir/ingestd/internal/platform/migration"
	pgstore "github.com/kinomir/ingestd/internal/platform/postgres"
	redisstore "github.com/kinomir/ingestd/internal/platform/redis"
	"github.com/kinomir/ingestd/internal/publish"
	"github.com/kinomir/ingestd/internal/publishworker"
	"github.com/kinomir/ingestd/internal/retry"
	"github.com/kinomir/ingestd/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("upload_worker_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log := rawLog.With(slog.String("app", constants.AppName), slog.String("cmd", "upload-worker"))
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

	// Redis backs the catalog client's playlist cache when
	// SEARCH_CACHE_ENABLED is set (see Wiring below).
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

	// # 5. Chat backend
	chatClient, closeChat, err := chat.Dial(startupCtx, chat.Config{
		APIID:       cfg.UserAPIID,
		APIHash:     cfg.UserAPIHash,
		SessionPath: cfg.UserAPISessionPath,
		ProxyURL:    cfg.TelegramProxyURL,
	})
	if err != nil {
		return fmt.Errorf("connect chat backend: %w", err)
	}
	defer func() {
		if cerr := closeChat(); cerr != nil {
			log.Error("chat client close error", slog.Any("error", cerr))
		}
	}()

	// # 6. Wiring
	repo := store.New(pool, log)

	catalogClient := catalog.New(catalog.Config{
		BaseURL:  cfg.KodikBaseURL,
		Token:    cfg.KodikToken,
		RPSLimit: cfg.KodikRPSLimit,
	}, log)
	if cfg.SearchCacheOn {
		catalogClient.WithCache(playlistcache.New(rdb, cfg.RedisCacheTTL))
	}

	dl := downloader.New(catalogClient, downloader.Config{
		MuxerPath: cfg.MuxerPath,
		TempDir:   cfg.TempDir,
		Timeout:   cfg.DownloadTimeout(),
		MinSize:   downloader.MinFileSize,
	})

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	queue := publish.New(appCtx, pool, chatClient, publish.Config{
		Capacity:     constants.DefaultPublishQueueDepth,
		UploadChatID: strconv.FormatInt(cfg.UploadChatID, 10),
	}, nil, log)

	worker := publishworker.New(repo, dl, queue, publishworker.Config{
		PollInterval: cfg.UploadPollInterval,
		BatchSize:    cfg.IngestBatchSize,
		Quality:      720,
		RetryPolicy: retry.Policy{
			Attempts:  constants.PublishRetryAttempts,
			BaseDelay: constants.PublishRetryBaseDelay,
		},
	}, log)

	// # 7. Run
	go worker.Start(appCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	log.Info("upload_worker_running", slog.Duration("poll_interval", cfg.UploadPollInterval))

	sig := <-quit
	log.Info("shutdown_signal_received", slog.String("signal", sig.String()))

	appCancel()
	queue.Shutdown(constants.ShutdownTimeout)

	log.Info("graceful_shutdown_complete")
	return nil
}
