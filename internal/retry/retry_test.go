// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinomir/ingestd/internal/retry"
)

func TestDo_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	sentinel := errors.New("permanent")

	err := retry.Do(context.Background(), retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestDo_TransientErrorRetriesUpToAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("transient")

	err := retry.Do(context.Background(), retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		return retry.AsTransient(sentinel, 0)
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestDo_SucceedsAfterTransientRetry(t *testing.T) {
	calls := 0

	err := retry.Do(context.Background(), retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		if calls < 2 {
			return retry.AsTransient(errors.New("flaky"), 0)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := retry.Do(ctx, retry.Policy{Attempts: 5, BaseDelay: 50 * time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		if calls == 1 {
			cancel()
		}
		return retry.AsTransient(errors.New("flaky"), 0)
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_HonorsRetryAfterOverride(t *testing.T) {
	calls := 0
	start := time.Now()

	err := retry.Do(context.Background(), retry.Policy{Attempts: 2, BaseDelay: time.Second}, func(ctx context.Context, attempt int) error {
		calls++
		if calls == 1 {
			return retry.AsTransient(errors.New("rate limited"), 5*time.Millisecond)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
