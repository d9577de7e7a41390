// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kinomir/ingestd/internal/platform/ctxutil"
)

/*
TestContext_BatchID verifies that batch correlation ids can be injected and retrieved.
*/
func TestContext_BatchID(t *testing.T) {
	ctx := context.Background()
	batchID := "test-batch-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetBatchID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithBatchID(ctx, batchID)
	assert.Equal(t, batchID, ctxutil.GetBatchID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}
