// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package ingest_test

import (
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinomir/ingestd/internal/ingest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nil, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestIngestBatch_EmptyInputIsNoOp(t *testing.T) {
	svc := ingest.New(&pgxpool.Pool{}, discardLogger())

	stats, err := svc.IngestBatch(t.Context(), nil, true)

	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalProcessed)
}

func TestIngestBatch_AllItemsFailNormalizationNeverOpensTransaction(t *testing.T) {
	// A zero-value pool would panic/fail if Begin were actually called;
	// this exercises the short-circuit path where every item lacks an
	// identity and normalization fails for all of them.
	svc := ingest.New(&pgxpool.Pool{}, discardLogger())

	raw := []map[string]any{
		{"title": "no id"},
		{"title": "also no id"},
	}

	stats, err := svc.IngestBatch(t.Context(), raw, true)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProcessed)
	assert.Equal(t, 0, stats.Successful)
	assert.Equal(t, 2, stats.Failed)
	assert.Len(t, stats.Errors, 2)
}

func TestIngestBatch_AbortsOnFirstFailureWhenNotContinuing(t *testing.T) {
	svc := ingest.New(&pgxpool.Pool{}, discardLogger())

	raw := []map[string]any{
		{"title": "no id"},
	}

	_, err := svc.IngestBatch(t.Context(), raw, false)
	require.Error(t, err)
}
