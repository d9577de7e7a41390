// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package publishworker periodically polls for episodes with no
episode_media row, downloads each via the external muxer, and enqueues the
result onto the ordered publish queue. It never retries a download beyond
internal/retry's shared backoff, and it performs no database writes of its
own: mark_media happens inside the publish queue once the upload succeeds.
*/
package publishworker

import (
	stdctx "context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kinomir/ingestd/internal/downloader"
	"github.com/kinomir/ingestd/internal/publish"
	"github.com/kinomir/ingestd/internal/retry"
	"github.com/kinomir/ingestd/internal/store"
)

// Stats summarizes one poll tick.
type Stats struct {
	Candidates int
	Skipped    int // no usable external id
	Downloaded int
	Failed     int
	Enqueued   int
}

// Worker polls for unpublished episodes and feeds downloaded files into a
// publish queue.
type Worker struct {
	store        *store.Repository
	downloader   *downloader.Downloader
	queue        *publish.Queue
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
	quality      int
	retryPolicy  retry.Policy
}

// Config configures a Worker.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	Quality      int
	RetryPolicy  retry.Policy
}

// New constructs a publish Worker.
func New(repo *store.Repository, dl *downloader.Downloader, queue *publish.Queue, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{
		store:        repo,
		downloader:   dl,
		queue:        queue,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		quality:      cfg.Quality,
		retryPolicy:  cfg.RetryPolicy,
	}
}

// Start runs the poll loop until ctx is cancelled.
func (w *Worker) Start(ctx stdctx.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

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
	stats, err := w.PollOnce(ctx)
	if err != nil {
		w.logger.Error("publishworker: tick failed", slog.String("error", err.Error()))
		return
	}
	w.logger.Info("publishworker: tick complete",
		slog.Int("candidates", stats.Candidates),
		slog.Int("downloaded", stats.Downloaded),
		slog.Int("enqueued", stats.Enqueued),
		slog.Int("failed", stats.Failed),
		slog.Int("skipped", stats.Skipped),
	)
}

// PollOnce fetches up to batchSize unpublished episodes and attempts to
// download and enqueue each. One episode's failure never aborts the batch.
func (w *Worker) PollOnce(ctx stdctx.Context) (Stats, error) {
	episodes, err := w.store.GetEpisodesWithoutMedia(ctx, w.batchSize)
	if err != nil {
		return Stats{}, fmt.Errorf("publishworker: list candidates: %w", err)
	}

	stats := Stats{Candidates: len(episodes)}

	for _, ep := range episodes {
		if !hasExternalID(ep.WorkExternalIDs) {
			stats.Skipped++
			continue
		}

		result, err := w.downloadWithRetry(ctx, ep)
		if err != nil {
			stats.Failed++
			w.logger.Warn("publishworker: download failed",
				slog.String("episode_id", ep.ID), slog.String("error", err.Error()))
			continue
		}
		stats.Downloaded++

		task := publish.Task{
			Key:       publish.Key{WorkID: ep.WorkID, TranslationID: ep.TranslationID},
			EpisodeID: ep.ID,
			LocalPath: result.Path,
			Caption:   fmt.Sprintf("%s — серия %d", ep.WorkTitle, ep.Number),
			Quality:   w.quality,
			Checksum:  result.Checksum,
			SizeBytes: result.SizeBytes,
		}

		if err := w.queue.Enqueue(task); err != nil {
			stats.Failed++
			w.logger.Warn("publishworker: enqueue failed",
				slog.String("episode_id", ep.ID), slog.String("error", err.Error()))
			continue
		}
		stats.Enqueued++
	}

	return stats, nil
}

// downloadWithRetry retries only the downloader's transient subtypes
// (timeout, muxer failure, catalog errors), using the same retry.Do
// exponential backoff helper as the catalog client but with the worker's
// own RetryPolicy.
func (w *Worker) downloadWithRetry(ctx stdctx.Context, ep store.EpisodeWithWork) (downloader.Result, error) {
	var result downloader.Result
	err := retry.Do(ctx, w.retryPolicy, func(ctx stdctx.Context, attempt int) error {
		r, err := w.downloader.Download(ctx, downloader.Input{
			ExternalIDs:   ep.WorkExternalIDs,
			TranslationID: ep.TranslationID,
			EpisodeNum:    ep.Number,
			Quality:       w.quality,
		})
		if err != nil {
			if isTransientDownloadError(err) {
				return retry.AsTransient(err, 0)
			}
			return err
		}
		result = r
		return nil
	})
	return result, err
}

func isTransientDownloadError(err error) bool {
	var timeout *downloader.FFmpegTimeoutError
	var failed *downloader.FFmpegFailedError
	var catalogErr *downloader.CatalogError
	return errors.As(err, &timeout) || errors.As(err, &failed) || errors.As(err, &catalogErr)
}

func hasExternalID(ids map[string]string) bool {
	for _, v := range ids {
		if v != "" {
			return true
		}
	}
	return false
}
