// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package schema

// These tables back the end-user front-end (query/favorites/ratings/watch
// history), which is outside this repository's scope; the core never writes
// to them. The column constants back the store's read-only helpers in
// internal/store/peripheral.go (the migrations themselves are plain SQL) and
// let a future front-end service link against the same names.

// CatalogUserTable represents the 'catalog.user' table.
type CatalogUserTable struct {
	Table     string
	ID        string
	Username  string
	CreatedAt string
}

var CatalogUser = CatalogUserTable{
	Table:     "catalog.user",
	ID:        "id",
	Username:  "username",
	CreatedAt: "created_at",
}

// CatalogFavoriteTable represents the 'catalog.favorite' table.
type CatalogFavoriteTable struct {
	Table     string
	UserID    string
	WorkID    string
	CreatedAt string
}

var CatalogFavorite = CatalogFavoriteTable{
	Table:     "catalog.favorite",
	UserID:    "user_id",
	WorkID:    "work_id",
	CreatedAt: "created_at",
}

// CatalogRatingTable represents the 'catalog.rating' table.
type CatalogRatingTable struct {
	Table     string
	UserID    string
	WorkID    string
	Score     string
	CreatedAt string
}

var CatalogRating = CatalogRatingTable{
	Table:     "catalog.rating",
	UserID:    "user_id",
	WorkID:    "work_id",
	Score:     "score",
	CreatedAt: "created_at",
}

// CatalogWatchHistoryTable represents the 'catalog.watch_history' table.
type CatalogWatchHistoryTable struct {
	Table     string
	UserID    string
	EpisodeID string
	WatchedAt string
}

var CatalogWatchHistory = CatalogWatchHistoryTable{
	Table:     "catalog.watch_history",
	UserID:    "user_id",
	EpisodeID: "episode_id",
	WatchedAt: "watched_at",
}
