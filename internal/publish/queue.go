// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package publish

import (
	stdctx "context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kinomir/ingestd/internal/chat"
	"github.com/kinomir/ingestd/internal/store"
)

// ErrQueueFull is returned by Enqueue when the target key's FIFO has no
// spare capacity.
var ErrQueueFull = errors.New("publish: queue full")

// ResultFunc observes the terminal outcome of every task the queue
// processes, in completion order per key.
type ResultFunc func(Task, Result)

// Queue dispatches one dedicated worker goroutine per live (work,
// translation) key. Enqueue is non-blocking; the worker drains its key's
// FIFO strictly one task at a time.
type Queue struct {
	pool       *pgxpool.Pool
	chatClient chat.Client
	logger     *slog.Logger
	onResult   ResultFunc
	capacity   int

	uploadChatID string
	chatCacheMu  sync.Mutex
	chatCache    *chat.Chat

	mu      sync.Mutex
	workers map[Key]chan Task
	wg      sync.WaitGroup

	ctx    stdctx.Context
	cancel stdctx.CancelFunc
}

// Config configures a Queue.
type Config struct {
	Capacity     int // per-key FIFO depth
	UploadChatID string
}

// New constructs a Queue. ctx governs the lifetime of every worker this
// queue spawns; cancel it (or call Shutdown) to stop accepting new work.
func New(ctx stdctx.Context, pool *pgxpool.Pool, chatClient chat.Client, cfg Config, onResult ResultFunc, logger *slog.Logger) *Queue {
	qctx, cancel := stdctx.WithCancel(ctx)
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 16
	}
	return &Queue{
		pool:         pool,
		chatClient:   chatClient,
		logger:       logger,
		onResult:     onResult,
		capacity:     capacity,
		uploadChatID: cfg.UploadChatID,
		workers:      make(map[Key]chan Task),
		ctx:          qctx,
		cancel:       cancel,
	}
}

// Enqueue appends t to its key's FIFO, spawning a worker on first use.
// Non-blocking: returns ErrQueueFull if the FIFO is already at capacity.
func (q *Queue) Enqueue(t Task) error {
	q.mu.Lock()
	ch, ok := q.workers[t.Key]
	if !ok {
		ch = make(chan Task, q.capacity)
		q.workers[t.Key] = ch
		q.wg.Add(1)
		go q.runWorker(t.Key, ch)
	}
	q.mu.Unlock()

	select {
	case ch <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown cancels the queue's context and waits up to deadline for
// in-flight tasks to finish. Queued-but-unstarted tasks are discarded; the
// publish worker re-polls unpublished episodes on next start.
func (q *Queue) Shutdown(deadline time.Duration) {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(deadline):
		q.logger.Warn("publish: shutdown deadline exceeded, in-flight task may be abandoned")
	}
}

// runWorker is the single dedicated goroutine for key. It drains ch
// strictly one task at a time until the queue is cancelled, at which point
// any unstarted queued tasks are dropped without further processing.
func (q *Queue) runWorker(key Key, ch chan Task) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			result := q.process(t)
			if q.onResult != nil {
				q.onResult(t, result)
			}
		}
	}
}

// process runs the four-step upload sequence for one task and always
// attempts local cleanup, regardless of outcome.
func (q *Queue) process(t Task) Result {
	defer q.cleanupLocalFile(t.LocalPath)

	target, err := q.resolveTarget(q.ctx, t)
	if err != nil {
		return Result{Status: Failed, Err: fmt.Errorf("publish: resolve chat: %w", err)}
	}

	if _, statErr := os.Stat(t.LocalPath); statErr != nil {
		return Result{Status: Failed, Err: fmt.Errorf("publish: local file missing: %w", statErr)}
	}

	msg, err := q.chatClient.SendVideo(q.ctx, target, t.LocalPath, t.Caption, true)
	if err != nil {
		return Result{Status: Failed, Err: fmt.Errorf("publish: send video: %w", err)}
	}

	if err := q.markMedia(q.ctx, t, target, msg); err != nil {
		return Result{Status: Failed, Err: fmt.Errorf("publish: mark media: %w", err)}
	}

	return Result{
		Status:            Completed,
		TelegramMessageID: int64(msg.ID),
		TelegramChatID:    fmt.Sprintf("%d", target.ID),
		FileUniqueID:      msg.FileUniqueID,
	}
}

// resolveTarget resolves and caches the configured upload chat once per
// queue instance, per spec §4.8 step 1. On failure it falls back to the
// session's own saved pseudo-chat and logs a warning rather than failing
// the task outright.
func (q *Queue) resolveTarget(ctx stdctx.Context, t Task) (chat.Chat, error) {
	q.chatCacheMu.Lock()
	defer q.chatCacheMu.Unlock()

	if q.chatCache != nil {
		return *q.chatCache, nil
	}

	chatID := t.ChatID
	if chatID == "" {
		chatID = q.uploadChatID
	}

	resolved, err := q.chatClient.ResolveChat(ctx, chatID)
	if err != nil {
		q.logger.Warn("publish: resolve_chat failed, falling back to saved chat",
			slog.String("chat_id", chatID), slog.String("error", err.Error()))

		saved, savedErr := q.chatClient.SavedChat(ctx)
		if savedErr != nil {
			return chat.Chat{}, savedErr
		}
		q.chatCache = &saved
		return saved, nil
	}

	q.chatCache = &resolved
	return resolved, nil
}

func (q *Queue) markMedia(ctx stdctx.Context, t Task, target chat.Chat, msg chat.Message) error {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	repo := store.New(tx, q.logger)
	if err := repo.MarkMedia(ctx, store.MarkMediaInput{
		EpisodeID:    t.EpisodeID,
		ChatID:       fmt.Sprintf("%d", target.ID),
		MessageID:    int64(msg.ID),
		FileUniqueID: msg.FileUniqueID,
		Quality:      t.Quality,
		SourceURL:    "",
		Checksum:     t.Checksum,
		SizeBytes:    t.SizeBytes,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// cleanupLocalFile best-effort deletes the downloaded file regardless of
// whether the upload succeeded; the publish worker re-downloads on retry.
func (q *Queue) cleanupLocalFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		q.logger.Warn("publish: failed to clean up local file", slog.String("path", path), slog.String("error", err.Error()))
	}
}
