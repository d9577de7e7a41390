// Copyright (c) 2026 Kinomir contributors. All rights reserved.

//go:build integration

package store_test

import (
	"context"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/kinomir/ingestd/internal/normalizer"
	"github.com/kinomir/ingestd/internal/store"
)

// skipIfNoDocker mirrors the pack's testinfra helper: integration tests
// that need a live Postgres shouldn't fail a sandboxed or Docker-less CI
// run, they should skip.
func skipIfNoDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("skipping: docker not available")
	}
}

func newTestRepository(t *testing.T) *store.Repository {
	t.Helper()
	skipIfNoDocker(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("ingestd_test"),
		postgres.WithUsername("ingestd"),
		postgres.WithPassword("ingestd"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS catalog;
		CREATE TABLE catalog.work (
			id TEXT PRIMARY KEY,
			title TEXT, original_title TEXT, alt_titles JSONB, year INT,
			poster_url TEXT, description TEXT, genres JSONB,
			rating_shiki DOUBLE PRECISION, rating_kinopoisk DOUBLE PRECISION, rating_imdb DOUBLE PRECISION,
			episodes_total INT, external_ids JSONB, blocked_countries JSONB, status TEXT,
			created_at TIMESTAMPTZ, updated_at TIMESTAMPTZ
		);
	`)
	require.NoError(t, err)

	return store.New(pool, slog.Default())
}

func TestUpsertWork_IsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	work := normalizer.Work{ID: "w1", Title: "Solo Leveling"}

	require.NoError(t, repo.UpsertWork(ctx, work))
	require.NoError(t, repo.UpsertWork(ctx, work)) // re-running must not error
}
