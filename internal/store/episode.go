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

// UpsertEpisodes upserts every episode in one pipelined batch. On conflict
// on (work_id, translation_id, number), title/season/duration/preview/
// updated_at are overwritten. An empty slice is a no-op that never touches
// the database.
func (r *Repository) UpsertEpisodes(ctx stdctx.Context, episodes []normalizer.Episode) (int, error) {
	if len(episodes) == 0 {
		return 0, nil
	}

	t := schema.CatalogEpisode
	batch := &pgx.Batch{}
	for _, ep := range episodes {
		sql := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			ON CONFLICT (%s, %s, %s) DO UPDATE SET
				%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s,
				%s = EXCLUDED.%s, %s = NOW()
		`,
			t.Table, t.ID, t.WorkID, t.TranslationID, t.Number, t.Season,
			t.Title, t.Duration, t.PreviewURL, t.CreatedAt, t.UpdatedAt,
			t.WorkID, t.TranslationID, t.Number,
			t.Season, t.Season, t.Title, t.Title, t.Duration, t.Duration,
			t.PreviewURL, t.PreviewURL, t.UpdatedAt,
		)
		batch.Queue(sql, ep.ID, ep.WorkID, ep.TranslationID, ep.Number, ep.Season, ep.Title, ep.Duration, ep.PreviewURL)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range episodes {
		if _, err := results.Exec(); err != nil {
			return i, dberr.Wrap(err, "episode")
		}
	}
	return len(episodes), nil
}

// GetEpisodesWithoutMedia returns up to limit episodes that have no
// associated episode_media row, eagerly joined with their work's external
// ids, ordered by (work_id, translation_id, number) for deterministic
// publish-worker progress.
func (r *Repository) GetEpisodesWithoutMedia(ctx stdctx.Context, limit int) ([]EpisodeWithWork, error) {
	e := schema.CatalogEpisode
	m := schema.CatalogEpisodeMedia
	w := schema.CatalogWork

	sql := fmt.Sprintf(`
		SELECT e.%s, e.%s, e.%s, e.%s, e.%s, e.%s, e.%s, e.%s,
		       w.%s, w.%s
		FROM %s e
		JOIN %s w ON w.%s = e.%s
		LEFT JOIN %s m ON m.%s = e.%s
		WHERE m.%s IS NULL
		ORDER BY e.%s, e.%s, e.%s
		LIMIT $1
	`,
		e.ID, e.WorkID, e.TranslationID, e.Number, e.Season, e.Title, e.Duration, e.PreviewURL,
		w.Title, w.ExternalIDs,
		e.Table,
		w.Table, w.ID, e.WorkID,
		m.Table, m.EpisodeID, e.ID,
		m.EpisodeID,
		e.WorkID, e.TranslationID, e.Number,
	)

	rows, err := r.db.Query(ctx, sql, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "episode")
	}
	defer rows.Close()

	var out []EpisodeWithWork
	for rows.Next() {
		var row EpisodeWithWork
		var externalIDsRaw []byte
		if err := rows.Scan(
			&row.ID, &row.WorkID, &row.TranslationID, &row.Number, &row.Season,
			&row.Title, &row.Duration, &row.PreviewURL,
			&row.WorkTitle, &externalIDsRaw,
		); err != nil {
			return nil, dberr.Wrap(err, "episode")
		}
		row.WorkExternalIDs = decodeExternalIDs(externalIDsRaw)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "episode")
	}
	return out, nil
}
