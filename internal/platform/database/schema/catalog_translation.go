// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package schema

// CatalogTranslationTable represents the 'catalog.translation' table.
type CatalogTranslationTable struct {
	Table string
	ID    string
	Title string
	Type  string
}

// CatalogTranslation is the schema definition for catalog.translation.
var CatalogTranslation = CatalogTranslationTable{
	Table: "catalog.translation",
	ID:    "id",
	Title: "title",
	Type:  "type",
}

func (t CatalogTranslationTable) Columns() []string {
	return []string{t.ID, t.Title, t.Type}
}

// CatalogWorkTranslationTable represents the 'catalog.work_translation' association table.
type CatalogWorkTranslationTable struct {
	Table             string
	WorkID            string
	TranslationID     string
	EpisodesAvailable string
	LastEpisode       string
	UpdatedAt         string
}

// CatalogWorkTranslation is the schema definition for catalog.work_translation.
var CatalogWorkTranslation = CatalogWorkTranslationTable{
	Table:             "catalog.work_translation",
	WorkID:            "work_id",
	TranslationID:     "translation_id",
	EpisodesAvailable: "episodes_available",
	LastEpisode:       "last_episode",
	UpdatedAt:         "updated_at",
}

func (t CatalogWorkTranslationTable) Columns() []string {
	return []string{t.WorkID, t.TranslationID, t.EpisodesAvailable, t.LastEpisode}
}
