// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package normalizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinomir/ingestd/internal/normalizer"
)

func TestNormalize_MissingIdentityFails(t *testing.T) {
	_, err := normalizer.Normalize(map[string]any{"title": "No Id"})
	assert.ErrorIs(t, err, normalizer.ErrMissingIdentity)
}

func TestNormalize_IdentityPrefersID(t *testing.T) {
	b, err := normalizer.Normalize(map[string]any{
		"id":       "abc123",
		"kodik_id": "other",
		"link":     "//example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", b.Work.ID)
}

func TestNormalize_FallsBackToKodikIDThenLink(t *testing.T) {
	b, err := normalizer.Normalize(map[string]any{
		"kodik_id": "k1",
		"link":     "//example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "k1", b.Work.ID)

	b2, err := normalizer.Normalize(map[string]any{"link": "//example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, "//example.com/x", b2.Work.ID)
}

func TestNormalize_TranslationDefaultsToSentinelZero(t *testing.T) {
	b, err := normalizer.Normalize(map[string]any{"id": "w1"})
	require.NoError(t, err)
	assert.Equal(t, 0, b.Translation.ID)
}

func TestNormalize_AltTitlesUnionDedupedAndFlattened(t *testing.T) {
	b, err := normalizer.Normalize(map[string]any{
		"id":         "w1",
		"title_orig": "Orig Title",
		"material_data": map[string]any{
			"title_orig":      "Orig Title", // duplicate of title_orig
			"other_title":     "Orig Title", // duplicate of title_orig
			"other_titles":    []any{"Alt A", "Alt B", ""},
			"other_titles_en": []any{"Alt A"}, // duplicate across keys
			"other_titles_jp": false,          // falsy, dropped
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Orig Title", "Alt A", "Alt B"}, b.Work.AltTitles)
}

func TestNormalize_ExternalIDsOnlyTruthyRetained(t *testing.T) {
	b, err := normalizer.Normalize(map[string]any{
		"id":           "w1",
		"shikimori_id": "123",
		"kinopoisk_id": "",
		"imdb_id":      "tt999",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"shikimori": "123", "imdb": "tt999"}, b.Work.ExternalIDs)
}

func TestNormalize_StatusMapping(t *testing.T) {
	cases := map[string]*string{
		"ongoing":   strPtr("ongoing"),
		"airing":    strPtr("ongoing"),
		"released":  strPtr("released"),
		"finished":  strPtr("released"),
		"announced": strPtr("announced"),
		"gibberish": nil,
	}

	for in, want := range cases {
		b, err := normalizer.Normalize(map[string]any{"id": "w1", "status": in})
		require.NoError(t, err)
		if want == nil {
			assert.Nil(t, b.Work.Status)
		} else {
			require.NotNil(t, b.Work.Status)
			assert.Equal(t, *want, *b.Work.Status)
		}
	}
}

func TestNormalize_RatingsCoercedOrNil(t *testing.T) {
	b, err := normalizer.Normalize(map[string]any{
		"id": "w1",
		"material_data": map[string]any{
			"shikimori_rating": "8.5",
			"kinopoisk_rating": "not-a-number",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, b.Work.RatingShiki)
	assert.InDelta(t, 8.5, *b.Work.RatingShiki, 0.0001)
	assert.Nil(t, b.Work.RatingKinopoisk)
}

func TestNormalize_EpisodesTotalPrefersAdditionalDataThenLastEpisode(t *testing.T) {
	b, err := normalizer.Normalize(map[string]any{
		"id":              "w1",
		"last_episode":    5,
		"additional_data": map[string]any{"episodes_count": 12},
	})
	require.NoError(t, err)
	require.NotNil(t, b.Work.EpisodesTotal)
	assert.Equal(t, 12, *b.Work.EpisodesTotal)

	b2, err := normalizer.Normalize(map[string]any{"id": "w2", "last_episode": 5})
	require.NoError(t, err)
	require.NotNil(t, b2.Work.EpisodesTotal)
	assert.Equal(t, 5, *b2.Work.EpisodesTotal)
}

func TestNormalize_EpisodesFromSeasonsMapSkipsNonIntegerKeys(t *testing.T) {
	b, err := normalizer.Normalize(map[string]any{
		"id": "w1",
		"seasons": map[string]any{
			"1": map[string]any{
				"episodes": map[string]any{
					"1":     map[string]any{"title": "Ep 1"},
					"two":   map[string]any{"title": "Skipped"},
					"2":     map[string]any{"title": "Ep 2"},
				},
			},
			"bad": map[string]any{
				"episodes": map[string]any{"1": map[string]any{"title": "Skipped season"}},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, b.Episodes, 2)
	assert.Equal(t, 1, b.Episodes[0].Number)
	assert.Equal(t, "w1:0:1", b.Episodes[0].ID)
	assert.Equal(t, 2, b.Episodes[1].Number)
}

func TestNormalize_SynthesizesEpisodesWhenSeasonsEmpty(t *testing.T) {
	b, err := normalizer.Normalize(map[string]any{
		"id":           "w1",
		"last_episode": 3,
	})
	require.NoError(t, err)
	require.Len(t, b.Episodes, 3)
	for i, ep := range b.Episodes {
		assert.Equal(t, i+1, ep.Number)
		assert.Equal(t, 1, ep.Season)
		assert.Nil(t, ep.Title)
	}
}

func TestNormalize_IsDeterministic(t *testing.T) {
	raw := map[string]any{
		"id":           "w1",
		"title":        "Title",
		"last_episode": 2,
	}

	b1, err := normalizer.Normalize(raw)
	require.NoError(t, err)
	b2, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, b1, b2)
}

func strPtr(s string) *string { return &s }
