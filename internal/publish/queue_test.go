// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package publish_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinomir/ingestd/internal/chat"
	"github.com/kinomir/ingestd/internal/publish"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nil, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeChat is a Client test double; resolveErr/sendErr let tests force the
// fallback and failure paths without a real MTProto connection.
type fakeChat struct {
	mu          sync.Mutex
	resolveErr  error
	sendErr     error
	resolved    int
	sent        []string // paths sent, in call order
	nextMsgID   int
}

func (f *fakeChat) ResolveChat(ctx context.Context, chatID string) (chat.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved++
	if f.resolveErr != nil {
		return chat.Chat{}, f.resolveErr
	}
	return chat.Chat{ID: 100, Kind: "channel"}, nil
}

func (f *fakeChat) SavedChat(ctx context.Context) (chat.Chat, error) {
	return chat.Chat{ID: 999, Kind: "user"}, nil
}

func (f *fakeChat) SendVideo(ctx context.Context, target chat.Chat, path, caption string, streaming bool) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return chat.Message{}, f.sendErr
	}
	f.nextMsgID++
	f.sent = append(f.sent, path)
	return chat.Message{ID: f.nextMsgID, FileUniqueID: "fu" + path}, nil
}

func writeTempFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

// newTestQueue builds a Queue whose pool is never touched: tests exercise
// only paths that fail before markMedia's tx.Begin, since a real
// zero-value pgxpool.Pool cannot open a transaction.
func newTestQueue(t *testing.T, fc *fakeChat, onResult publish.ResultFunc) *publish.Queue {
	return publish.New(t.Context(), &pgxpool.Pool{}, fc, publish.Config{Capacity: 4, UploadChatID: "@dest"}, onResult, discardLogger())
}

func TestEnqueue_RejectsWhenFull(t *testing.T) {
	fc := &fakeChat{sendErr: errors.New("blocked")} // every task fails fast, worker still consumes one at a time
	release := make(chan struct{})
	q := newTestQueue(t, fc, func(task publish.Task, res publish.Result) { <-release })
	defer close(release)

	key := publish.Key{WorkID: "w1", TranslationID: 1}
	dir := t.TempDir()

	// Capacity is 4 and the result callback blocks until the test returns,
	// so the key's worker holds at most one task and its FIFO at most four
	// more: of six enqueues at least one must be rejected.
	rejected := 0
	for i := 0; i < 6; i++ {
		err := q.Enqueue(publish.Task{Key: key, EpisodeID: "e", LocalPath: writeTempFile(t, dir, "f.mp4")})
		if errors.Is(err, publish.ErrQueueFull) {
			rejected++
		}
	}
	assert.GreaterOrEqual(t, rejected, 1)
}

func TestQueue_FailedSendReportsFailedResult(t *testing.T) {
	fc := &fakeChat{sendErr: errors.New("network down")}

	results := make(chan publish.Result, 1)
	q := newTestQueue(t, fc, func(task publish.Task, res publish.Result) {
		results <- res
	})

	dir := t.TempDir()
	path := writeTempFile(t, dir, "ep1.mp4")
	require.NoError(t, q.Enqueue(publish.Task{
		Key:       publish.Key{WorkID: "w1", TranslationID: 1},
		EpisodeID: "ep1",
		LocalPath: path,
		Caption:   "caption",
	}))

	select {
	case res := <-results:
		assert.Equal(t, publish.Failed, res.Status)
		assert.Error(t, res.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "local file should be cleaned up even on failure")
}

func TestQueue_MissingLocalFileFailsWithoutCallingSend(t *testing.T) {
	fc := &fakeChat{}
	results := make(chan publish.Result, 1)
	q := newTestQueue(t, fc, func(task publish.Task, res publish.Result) {
		results <- res
	})

	require.NoError(t, q.Enqueue(publish.Task{
		Key:       publish.Key{WorkID: "w1", TranslationID: 1},
		EpisodeID: "ep1",
		LocalPath: "/nonexistent/path.mp4",
	}))

	select {
	case res := <-results:
		assert.Equal(t, publish.Failed, res.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Empty(t, fc.sent)
}

func TestQueue_FallsBackToSavedChatOnResolveFailure(t *testing.T) {
	fc := &fakeChat{resolveErr: errors.New("chat not found"), sendErr: errors.New("stop before markMedia")}
	results := make(chan publish.Result, 1)
	q := newTestQueue(t, fc, func(task publish.Task, res publish.Result) {
		results <- res
	})

	dir := t.TempDir()
	require.NoError(t, q.Enqueue(publish.Task{
		Key:       publish.Key{WorkID: "w1", TranslationID: 1},
		EpisodeID: "ep1",
		LocalPath: writeTempFile(t, dir, "ep1.mp4"),
	}))

	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Equal(t, 1, fc.resolved)
}

func TestQueue_PreservesOrderWithinKey(t *testing.T) {
	fc := &fakeChat{sendErr: errors.New("stop before markMedia")}
	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 3)

	q := newTestQueue(t, fc, func(task publish.Task, res publish.Result) {
		mu.Lock()
		order = append(order, task.EpisodeID)
		mu.Unlock()
		done <- struct{}{}
	})

	dir := t.TempDir()
	key := publish.Key{WorkID: "w1", TranslationID: 1}
	for _, id := range []string{"ep1", "ep2", "ep3"} {
		require.NoError(t, q.Enqueue(publish.Task{Key: key, EpisodeID: id, LocalPath: writeTempFile(t, dir, id+".mp4")}))
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ep1", "ep2", "ep3"}, order)
}

func TestQueue_ShutdownReturnsBeforeDeadlineWhenIdle(t *testing.T) {
	fc := &fakeChat{}
	q := newTestQueue(t, fc, nil)

	start := time.Now()
	q.Shutdown(time.Second)
	assert.Less(t, time.Since(start), time.Second)
}
