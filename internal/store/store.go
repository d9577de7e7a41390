// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package store implements the upsert-with-conflict-resolution persistence
layer against PostgreSQL.

Every operation runs against a [Querier] — either a *pgxpool.Pool for
one-shot reads or a pgx.Tx for the caller-scoped transaction the ingest
service opens per batch. The repository itself never begins or commits a
transaction; that is the caller's responsibility (see internal/ingest).
*/
package store

import (
	stdctx "context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kinomir/ingestd/internal/normalizer"
)

// Querier is the subset of pgxpool.Pool / pgx.Tx the repository needs. Both
// satisfy it, which lets every method below run equally well inside or
// outside an explicit transaction.
type Querier interface {
	Exec(ctx stdctx.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx stdctx.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx stdctx.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx stdctx.Context, batch *pgx.Batch) pgx.BatchResults
}

// Repository is the PostgreSQL-backed implementation of the upsert and
// read operations the ingest and publish pipelines depend on.
type Repository struct {
	db     Querier
	logger *slog.Logger
}

// New constructs a Repository bound to db. Pass a *pgxpool.Pool for
// unscoped reads, or a pgx.Tx for a caller-managed transaction.
func New(db Querier, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// EpisodeWithWork is the shape returned by GetEpisodesWithoutMedia: an
// episode eagerly joined with the external ids of its owning work, since
// the downloader needs both to resolve a playlist.
type EpisodeWithWork struct {
	normalizer.Episode
	WorkExternalIDs map[string]string
	WorkTitle       string
}

// MarkMediaInput carries the fields mark_media persists for a freshly
// published episode.
type MarkMediaInput struct {
	EpisodeID    string
	ChatID       string
	MessageID    int64
	FileUniqueID string
	Quality      int
	SourceURL    string
	Checksum     string
	SizeBytes    int64
}
