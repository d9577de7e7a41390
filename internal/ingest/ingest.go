// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package ingest implements the transactional batch-persistence step: given a
slice of raw upstream items, normalize each one and write it to the
relational store inside a single transaction, isolating one bundle's
failure from the rest via a per-bundle savepoint.
*/
package ingest

import (
	stdctx "context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kinomir/ingestd/internal/normalizer"
	"github.com/kinomir/ingestd/internal/platform/constants"
	"github.com/kinomir/ingestd/internal/store"
)

// Stats summarizes the outcome of one IngestBatch call.
type Stats struct {
	TotalProcessed int
	Successful     int
	Failed         int
	Errors         []ItemError
}

// ItemError records one bundle's failure, tagged with its raw item's id if
// known.
type ItemError struct {
	ID      string
	Message string
}

// Service ties normalization to persistence.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New constructs an ingest Service.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{pool: pool, logger: logger}
}

// IngestBatch normalizes every raw item and persists the resulting bundles
// inside one transaction. Each bundle is wrapped in its own named
// savepoint, so one bundle's DB error rolls back only that bundle rather
// than poisoning the whole batch. continueOnError controls whether a
// normalization failure is skipped (true) or aborts the whole call (false).
func (s *Service) IngestBatch(ctx stdctx.Context, rawItems []map[string]any, continueOnError bool) (Stats, error) {
	stats := Stats{TotalProcessed: len(rawItems)}
	if len(rawItems) == 0 {
		return stats, nil
	}

	bundles := make([]*normalizer.Bundle, 0, len(rawItems))
	for _, raw := range rawItems {
		bundle, err := normalizer.Normalize(raw)
		if err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, ItemError{ID: rawItemID(raw), Message: err.Error()})
			s.logger.Warn("ingest: normalization failed", slog.String("error", err.Error()))
			if !continueOnError {
				return stats, err
			}
			continue
		}
		bundles = append(bundles, bundle)
	}

	if len(bundles) == 0 {
		return stats, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("ingest: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	repo := store.New(tx, s.logger)

	for i, bundle := range bundles {
		if err := s.persistBundleWithSavepoint(ctx, tx, repo, i, bundle); err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, ItemError{ID: bundle.Work.ID, Message: err.Error()})
			continue
		}
		stats.Successful++
	}

	if err := tx.Commit(ctx); err != nil {
		return stats, fmt.Errorf("ingest: commit batch: %w", err)
	}

	return stats, nil
}

// persistBundleWithSavepoint wraps one bundle's writes in a named
// savepoint so a DB error rolls back only this bundle, leaving the rest of
// the batch transaction intact.
func (s *Service) persistBundleWithSavepoint(ctx stdctx.Context, tx pgx.Tx, repo *store.Repository, index int, bundle *normalizer.Bundle) error {
	savepoint := fmt.Sprintf("%s%d", constants.SavepointPrefix, index)

	if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("ingest: create savepoint: %w", err)
	}

	err := persistBundle(ctx, repo, bundle)
	if err != nil {
		if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return fmt.Errorf("ingest: rollback savepoint after %w: %w", err, rbErr)
		}
		s.logger.Warn("ingest: bundle failed, rolled back to savepoint",
			slog.String("work_id", bundle.Work.ID),
			slog.String("error", err.Error()),
		)
		return err
	}

	if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return fmt.Errorf("ingest: release savepoint: %w", err)
	}
	return nil
}

// persistBundle applies the fixed write order: translation, work, link,
// episodes.
func persistBundle(ctx stdctx.Context, repo *store.Repository, bundle *normalizer.Bundle) error {
	if err := repo.UpsertTranslation(ctx, bundle.Translation); err != nil {
		return fmt.Errorf("upsert translation: %w", err)
	}
	if err := repo.UpsertWork(ctx, bundle.Work); err != nil {
		return fmt.Errorf("upsert work: %w", err)
	}
	if err := repo.UpsertWorkTranslation(ctx, bundle.Link); err != nil {
		return fmt.Errorf("upsert work_translation: %w", err)
	}
	if len(bundle.Episodes) > 0 {
		if _, err := repo.UpsertEpisodes(ctx, bundle.Episodes); err != nil {
			return fmt.Errorf("upsert episodes: %w", err)
		}
	}
	return nil
}

// rawItemID best-effort extracts an id for error reporting from a raw item
// that failed to normalize (and therefore has no Bundle.Work.ID).
func rawItemID(raw map[string]any) string {
	for _, key := range []string{"id", "kodik_id", "link"} {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
