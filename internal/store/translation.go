// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package store

import (
	stdctx "context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kinomir/ingestd/internal/normalizer"
	"github.com/kinomir/ingestd/internal/platform/database/schema"
	"github.com/kinomir/ingestd/internal/platform/dberr"
)

// UpsertTranslation inserts or refreshes one translation row. On conflict
// on id, title and type are overwritten.
func (r *Repository) UpsertTranslation(ctx stdctx.Context, tr normalizer.Translation) error {
	sql, args := translationUpsertStatement(tr)
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return dberr.Wrap(err, "translation")
	}
	return nil
}

// UpsertTranslationsBatch upserts many translations in one pipelined
// round-trip. An empty slice is a no-op.
func (r *Repository) UpsertTranslationsBatch(ctx stdctx.Context, translations []normalizer.Translation) (int, error) {
	if len(translations) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, tr := range translations {
		sql, args := translationUpsertStatement(tr)
		batch.Queue(sql, args...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range translations {
		if _, err := results.Exec(); err != nil {
			return i, dberr.Wrap(err, "translation")
		}
	}
	return len(translations), nil
}

func translationUpsertStatement(tr normalizer.Translation) (string, []any) {
	t := schema.CatalogTranslation
	sql := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, $3)
		ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s, %s = EXCLUDED.%s
	`, t.Table, t.ID, t.Title, t.Type, t.ID, t.Title, t.Title, t.Type, t.Type)

	return sql, []any{tr.ID, tr.Title, tr.Type}
}

// UpsertWorkTranslation inserts or refreshes one (work_id, translation_id)
// association row. On conflict on the composite key, episodes_available,
// last_episode, and updated_at are overwritten.
func (r *Repository) UpsertWorkTranslation(ctx stdctx.Context, link normalizer.WorkTranslationLink) error {
	sql, args := workTranslationUpsertStatement(link)
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return dberr.Wrap(err, "work_translation")
	}
	return nil
}

// UpsertWorkTranslationsBatch upserts many associations in one pipelined
// round-trip. An empty slice is a no-op.
func (r *Repository) UpsertWorkTranslationsBatch(ctx stdctx.Context, links []normalizer.WorkTranslationLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, link := range links {
		sql, args := workTranslationUpsertStatement(link)
		batch.Queue(sql, args...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range links {
		if _, err := results.Exec(); err != nil {
			return i, dberr.Wrap(err, "work_translation")
		}
	}
	return len(links), nil
}

func workTranslationUpsertStatement(link normalizer.WorkTranslationLink) (string, []any) {
	t := schema.CatalogWorkTranslation
	sql := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = NOW()
	`,
		t.Table, t.WorkID, t.TranslationID, t.EpisodesAvailable, t.LastEpisode, t.UpdatedAt,
		t.WorkID, t.TranslationID,
		t.EpisodesAvailable, t.EpisodesAvailable, t.LastEpisode, t.LastEpisode, t.UpdatedAt,
	)

	return sql, []any{link.WorkID, link.TranslationID, link.EpisodesAvailable, link.LastEpisode}
}
