// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package schema

// CatalogWorkTable represents the 'catalog.work' table.
type CatalogWorkTable struct {
	Table            string
	ID               string
	Title            string
	OriginalTitle    string
	AltTitles        string
	Year             string
	PosterURL        string
	Description      string
	Genres           string
	RatingShiki      string
	RatingKinopoisk  string
	RatingIMDB       string
	EpisodesTotal    string
	ExternalIDs      string
	BlockedCountries string
	Status           string
	CreatedAt        string
	UpdatedAt        string
}

// CatalogWork is the schema definition for catalog.work.
var CatalogWork = CatalogWorkTable{
	Table:            "catalog.work",
	ID:               "id",
	Title:            "title",
	OriginalTitle:    "original_title",
	AltTitles:        "alt_titles",
	Year:             "year",
	PosterURL:        "poster_url",
	Description:      "description",
	Genres:           "genres",
	RatingShiki:      "rating_shiki",
	RatingKinopoisk:  "rating_kinopoisk",
	RatingIMDB:       "rating_imdb",
	EpisodesTotal:    "episodes_total",
	ExternalIDs:      "external_ids",
	BlockedCountries: "blocked_countries",
	Status:           "status",
	CreatedAt:        "created_at",
	UpdatedAt:        "updated_at",
}

// Columns returns every mutable column in upsert order (PK first).
func (t CatalogWorkTable) Columns() []string {
	return []string{
		t.ID, t.Title, t.OriginalTitle, t.AltTitles, t.Year, t.PosterURL,
		t.Description, t.Genres, t.RatingShiki, t.RatingKinopoisk, t.RatingIMDB,
		t.EpisodesTotal, t.ExternalIDs, t.BlockedCountries, t.Status,
	}
}
