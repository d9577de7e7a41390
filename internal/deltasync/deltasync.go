// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package deltasync implements the periodic incremental-pull worker: fetch
everything the catalog reports changed since a watermark, split it into
batches, and ingest them concurrently.
*/
package deltasync

import (
	stdctx "context"
	"log/slog"
	"sync"
	"time"

	"github.com/kinomir/ingestd/internal/catalog"
	"github.com/kinomir/ingestd/internal/concurrency"
	"github.com/kinomir/ingestd/internal/ingest"
)

// Stats summarizes one sync() call.
type Stats struct {
	ItemsFetched    int
	BatchesRun      int
	BatchesFailed   int
	IngestedOK      int
	IngestedFailed  int
}

// Worker runs the delta-sync tick loop.
type Worker struct {
	catalog       *catalog.Client
	ingest        *ingest.Service
	logger        *slog.Logger
	lookback      time.Duration
	syncInterval  time.Duration
	batchSize     int
	pageSize      int
	maxPages      int
	concurrency   int
}

// Config configures a Worker.
type Config struct {
	Lookback     time.Duration
	SyncInterval time.Duration
	BatchSize    int
	PageSize     int
	MaxPages     int
	Concurrency  int
}

// New constructs a delta-sync Worker.
func New(catalogClient *catalog.Client, ingestSvc *ingest.Service, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{
		catalog:      catalogClient,
		ingest:       ingestSvc,
		logger:       logger,
		lookback:     cfg.Lookback,
		syncInterval: cfg.SyncInterval,
		batchSize:    cfg.BatchSize,
		pageSize:     cfg.PageSize,
		maxPages:     cfg.MaxPages,
		concurrency:  cfg.Concurrency,
	}
}

// Start runs the tick loop until ctx is cancelled (SIGINT/SIGTERM at the
// process boundary). Each tick's own error is logged and swallowed; a
// failed tick never kills the worker, the next tick re-attempts.
func (w *Worker) Start(ctx stdctx.Context) {
	ticker := time.NewTicker(w.syncInterval)
	defer ticker.Stop()

	// Run once immediately so startup doesn't wait a full interval before
	// the first sync.
	w.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runTick(ctx)
		}
	}
}

func (w *Worker) runTick(ctx stdctx.Context) {
	stats, err := w.Sync(ctx, time.Time{})
	if err != nil {
		w.logger.Error("deltasync: tick failed", slog.String("error", err.Error()))
		return
	}
	w.logger.Info("deltasync: tick complete",
		slog.Int("items_fetched", stats.ItemsFetched),
		slog.Int("ingested_ok", stats.IngestedOK),
		slog.Int("ingested_failed", stats.IngestedFailed),
		slog.Int("batches_failed", stats.BatchesFailed),
	)
}

// Sync fetches the delta since updatedSince (defaulting to now-lookback
// when zero) and ingests it in bounded-concurrency batches.
func (w *Worker) Sync(ctx stdctx.Context, updatedSince time.Time) (Stats, error) {
	if updatedSince.IsZero() {
		updatedSince = time.Now().Add(-w.lookback)
	}

	items, err := w.catalog.FetchDelta(ctx, updatedSince, w.pageSize, w.maxPages)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{ItemsFetched: len(items)}
	batches := concurrency.Chunk(items, w.batchSize)
	stats.BatchesRun = len(batches)

	var mu sync.Mutex
	results := concurrency.RunBatches(ctx, batches, w.concurrency, func(ctx stdctx.Context, batch []map[string]any) error {
		ingestStats, err := w.ingest.IngestBatch(ctx, batch, true)

		mu.Lock()
		stats.IngestedOK += ingestStats.Successful
		stats.IngestedFailed += ingestStats.Failed
		mu.Unlock()

		return err
	})

	for _, err := range results {
		if err != nil {
			stats.BatchesFailed++
		}
	}

	return stats, nil
}
