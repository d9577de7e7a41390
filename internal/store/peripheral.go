// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package store

import (
	stdctx "context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kinomir/ingestd/internal/platform/apperr"
	"github.com/kinomir/ingestd/internal/platform/database/schema"
	"github.com/kinomir/ingestd/internal/platform/dberr"
)

// The peripheral entities below (user, favorite, rating, watch history)
// belong to the front-end this repository does not implement. The core
// ingest/publish pipeline never writes to them; these read helpers exist
// only so a future front-end service can link against the same schema
// package and Repository type rather than a second, parallel one.

// User is a minimal projection of catalog.user.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// FindUserByID returns a user by id, or apperr.NotFound if none exists.
func (r *Repository) FindUserByID(ctx stdctx.Context, id string) (*User, error) {
	t := schema.CatalogUser
	sql := fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s = $1`, t.ID, t.Username, t.CreatedAt, t.Table, t.ID)

	var u User
	err := r.db.QueryRow(ctx, sql, id).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user")
		}
		return nil, dberr.Wrap(err, "user")
	}
	return &u, nil
}

// ListFavoriteWorkIDs returns the work ids a user has favorited.
func (r *Repository) ListFavoriteWorkIDs(ctx stdctx.Context, userID string) ([]string, error) {
	t := schema.CatalogFavorite
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC`, t.WorkID, t.Table, t.UserID, t.CreatedAt)

	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "favorite")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, dberr.Wrap(err, "favorite")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetUserRating returns a user's score (1-10) for a work, or (0, false) if
// they haven't rated it.
func (r *Repository) GetUserRating(ctx stdctx.Context, userID, workID string) (int, bool, error) {
	t := schema.CatalogRating
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`, t.Score, t.Table, t.UserID, t.WorkID)

	var score int
	err := r.db.QueryRow(ctx, sql, userID, workID).Scan(&score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, dberr.Wrap(err, "rating")
	}
	return score, true, nil
}

// ListWatchHistory returns the most recently watched episode ids for a user.
func (r *Repository) ListWatchHistory(ctx stdctx.Context, userID string, limit int) ([]string, error) {
	t := schema.CatalogWatchHistory
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC LIMIT $2`, t.EpisodeID, t.Table, t.UserID, t.WatchedAt)

	rows, err := r.db.Query(ctx, sql, userID, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "watch_history")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, dberr.Wrap(err, "watch_history")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
