// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package store

import (
	stdctx "context"
	"encoding/json"
	"fmt"

	"github.com/kinomir/ingestd/internal/platform/database/schema"
	"github.com/kinomir/ingestd/internal/platform/dberr"
)

// MarkMedia records the published artifact for one episode. On conflict on
// episode_id, every media field is overwritten. Callers that need this
// atomic with the publish acknowledgment should invoke it against a
// Repository built over a pgx.Tx.
func (r *Repository) MarkMedia(ctx stdctx.Context, in MarkMediaInput) error {
	t := schema.CatalogEpisodeMedia
	sql := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (%s) DO UPDATE SET
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s,
			%s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s, %s = EXCLUDED.%s
	`,
		t.Table, t.EpisodeID, t.ChatID, t.MessageID, t.FileUniqueID,
		t.Quality, t.SourceURL, t.Checksum, t.SizeBytes, t.CreatedAt,
		t.EpisodeID,
		t.ChatID, t.ChatID, t.MessageID, t.MessageID, t.FileUniqueID, t.FileUniqueID,
		t.Quality, t.Quality, t.SourceURL, t.SourceURL, t.Checksum, t.Checksum,
		t.SizeBytes, t.SizeBytes,
	)

	_, err := r.db.Exec(ctx, sql,
		in.EpisodeID, in.ChatID, in.MessageID, in.FileUniqueID,
		in.Quality, in.SourceURL, in.Checksum, in.SizeBytes,
	)
	if err != nil {
		return dberr.Wrap(err, "episode_media")
	}
	return nil
}

// decodeExternalIDs best-effort decodes a work's external_ids jsonb column.
// A malformed or absent payload yields an empty map rather than failing
// the whole read.
func decodeExternalIDs(raw []byte) map[string]string {
	if len(raw) == 0 {
		return map[string]string{}
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]string{}
	}
	return out
}
