// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package store

import (
	stdctx "context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kinomir/ingestd/internal/normalizer"
	"github.com/kinomir/ingestd/internal/platform/database/schema"
	"github.com/kinomir/ingestd/internal/platform/dberr"
)

// UpsertWork inserts or refreshes one work row. On conflict on id, every
// mutable column is overwritten and updated_at is bumped to now().
func (r *Repository) UpsertWork(ctx stdctx.Context, w normalizer.Work) error {
	return r.execWorkUpsert(ctx, w)
}

// UpsertWorksBatch upserts many works in one pipelined round-trip. An empty
// slice is a no-op that never touches the database. Rows missing an id are
// dropped and logged at WARN rather than failing the whole batch.
func (r *Repository) UpsertWorksBatch(ctx stdctx.Context, works []normalizer.Work) (int, error) {
	if len(works) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	kept := 0
	for _, w := range works {
		if w.ID == "" {
			r.logger.Warn("store: dropping work with no identity from batch")
			continue
		}
		sql, args, err := workUpsertStatement(w)
		if err != nil {
			return kept, err
		}
		batch.Queue(sql, args...)
		kept++
	}
	if kept == 0 {
		return 0, nil
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < kept; i++ {
		if _, err := results.Exec(); err != nil {
			return i, dberr.Wrap(err, "work")
		}
	}
	return kept, nil
}

func (r *Repository) execWorkUpsert(ctx stdctx.Context, w normalizer.Work) error {
	sql, args, err := workUpsertStatement(w)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return dberr.Wrap(err, "work")
	}
	return nil
}

func workUpsertStatement(w normalizer.Work) (string, []any, error) {
	altTitles, err := json.Marshal(w.AltTitles)
	if err != nil {
		return "", nil, fmt.Errorf("store: marshal alt_titles: %w", err)
	}
	genres, err := json.Marshal(w.Genres)
	if err != nil {
		return "", nil, fmt.Errorf("store: marshal genres: %w", err)
	}
	externalIDs, err := json.Marshal(w.ExternalIDs)
	if err != nil {
		return "", nil, fmt.Errorf("store: marshal external_ids: %w", err)
	}
	blocked, err := json.Marshal(w.BlockedCountries)
	if err != nil {
		return "", nil, fmt.Errorf("store: marshal blocked_countries: %w", err)
	}

	t := schema.CatalogWork
	sql := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8::jsonb, $9, $10, $11, $12, $13::jsonb, $14::jsonb, $15, NOW(), NOW())
		ON CONFLICT (%s) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s,
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s,
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s,
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = NOW()
	`,
		t.Table, t.ID, t.Title, t.OriginalTitle, t.AltTitles, t.Year, t.PosterURL,
		t.Description, t.Genres, t.RatingShiki, t.RatingKinopoisk, t.RatingIMDB,
		t.EpisodesTotal, t.ExternalIDs, t.BlockedCountries, t.Status, t.CreatedAt, t.UpdatedAt,
		t.ID,
		t.Title, t.Title, t.OriginalTitle, t.OriginalTitle, t.AltTitles, t.AltTitles, t.Year, t.Year,
		t.PosterURL, t.PosterURL, t.Description, t.Description, t.Genres, t.Genres,
		t.RatingShiki, t.RatingShiki, t.RatingKinopoisk, t.RatingKinopoisk, t.RatingIMDB, t.RatingIMDB,
		t.EpisodesTotal, t.EpisodesTotal, t.ExternalIDs, t.ExternalIDs, t.BlockedCountries, t.BlockedCountries,
		t.Status, t.Status, t.UpdatedAt,
	)

	args := []any{
		w.ID, w.Title, w.OriginalTitle, altTitles, w.Year, w.PosterURL,
		w.Description, genres, w.RatingShiki, w.RatingKinopoisk, w.RatingIMDB,
		w.EpisodesTotal, externalIDs, blocked, w.Status,
	}
	return sql, args, nil
}
