// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package schema

// CatalogEpisodeTable represents the 'catalog.episode' table.
type CatalogEpisodeTable struct {
	Table         string
	ID            string
	WorkID        string
	TranslationID string
	Number        string
	Season        string
	Title         string
	Duration      string
	PreviewURL    string
	CreatedAt     string
	UpdatedAt     string
}

// CatalogEpisode is the schema definition for catalog.episode.
var CatalogEpisode = CatalogEpisodeTable{
	Table:         "catalog.episode",
	ID:            "id",
	WorkID:        "work_id",
	TranslationID: "translation_id",
	Number:        "number",
	Season:        "season",
	Title:         "title",
	Duration:      "duration_seconds",
	PreviewURL:    "preview_url",
	CreatedAt:     "created_at",
	UpdatedAt:     "updated_at",
}

func (t CatalogEpisodeTable) Columns() []string {
	return []string{
		t.ID, t.WorkID, t.TranslationID, t.Number, t.Season,
		t.Title, t.Duration, t.PreviewURL,
	}
}

// CatalogEpisodeMediaTable represents the 'catalog.episode_media' table.
type CatalogEpisodeMediaTable struct {
	Table        string
	EpisodeID    string
	ChatID       string
	MessageID    string
	FileUniqueID string
	Quality      string
	SourceURL    string
	Checksum     string
	SizeBytes    string
	CreatedAt    string
}

// CatalogEpisodeMedia is the schema definition for catalog.episode_media.
var CatalogEpisodeMedia = CatalogEpisodeMediaTable{
	Table:        "catalog.episode_media",
	EpisodeID:    "episode_id",
	ChatID:       "chat_id",
	MessageID:    "message_id",
	FileUniqueID: "file_unique_id",
	Quality:      "quality",
	SourceURL:    "source_url",
	Checksum:     "checksum",
	SizeBytes:    "size_bytes",
	CreatedAt:    "created_at",
}

func (t CatalogEpisodeMediaTable) Columns() []string {
	return []string{
		t.EpisodeID, t.ChatID, t.MessageID, t.FileUniqueID,
		t.Quality, t.SourceURL, t.Checksum, t.SizeBytes,
	}
}
