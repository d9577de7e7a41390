// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package normalizer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kinomir/ingestd/pkg/convert"
)

// ErrMissingIdentity is returned when a raw item carries none of id,
// kodik_id, or link — there is no stable key to upsert against.
var ErrMissingIdentity = errors.New("normalizer: raw item has no usable identity")

// altTitleKeys is the fixed set of upstream fields unioned into Work.AltTitles.
var altTitleKeys = []string{"title_orig", "other_title", "other_titles", "other_titles_en", "other_titles_jp"}

// externalIDKeys maps an external id's canonical name to its upstream field.
var externalIDKeys = map[string]string{
	"shikimori":  "shikimori_id",
	"kinopoisk":  "kinopoisk_id",
	"imdb":       "imdb_id",
}

// Normalize converts one raw upstream item (as decoded from JSON) into a
// [Bundle]. It is a pure function of its input.
func Normalize(raw map[string]any) (*Bundle, error) {
	workID, ok := firstNonEmpty(raw, "id", "kodik_id", "link")
	if !ok {
		return nil, ErrMissingIdentity
	}

	translation := normalizeTranslation(raw)
	work := normalizeWork(raw, workID)
	episodesTotal := work.EpisodesTotal

	additional, _ := raw["additional_data"].(map[string]any)

	link := WorkTranslationLink{
		WorkID:        workID,
		TranslationID: translation.ID,
	}
	if v, ok := convert.ToIntOK(additional["episodes_count"]); ok {
		link.EpisodesAvailable = &v
	}
	if v, ok := convert.ToIntOK(raw["last_episode"]); ok {
		link.LastEpisode = &v
	}

	episodes := normalizeEpisodes(raw, workID, translation.ID, episodesTotal)

	return &Bundle{
		Work:        work,
		Translation: translation,
		Link:        link,
		Episodes:    episodes,
	}, nil
}

// normalizeTranslation reads the nested `translation` object. A missing or
// malformed translation id resolves to the sentinel 0.
func normalizeTranslation(raw map[string]any) Translation {
	t, _ := raw["translation"].(map[string]any)
	if t == nil {
		return Translation{ID: 0}
	}

	id, _ := convert.ToIntOK(t["id"])
	title, _ := convert.ToStringOK(t["title"])
	typ, _ := convert.ToStringOK(t["type"])

	return Translation{ID: id, Title: title, Type: typ}
}

func normalizeWork(raw map[string]any, workID string) Work {
	w := Work{ID: workID}

	material, _ := raw["material_data"].(map[string]any)
	additional, _ := raw["additional_data"].(map[string]any)

	w.Title, _ = convert.ToStringOK(raw["title"])
	w.OriginalTitle, _ = convert.ToStringOK(raw["title_orig"])
	w.AltTitles = unionAltTitles(material)

	if y, ok := convert.ToIntOK(raw["year"]); ok {
		w.Year = &y
	}

	w.PosterURL, _ = convert.ToStringOK(material["poster_url"])
	w.Genres = stringSet(material["genres"])
	if len(w.Genres) == 0 {
		w.Genres = stringSet(material["anime_genres"])
	}

	if d, ok := convert.ToStringOK(material["description"]); ok {
		w.Description = d
	}

	w.RatingShiki = floatPtr(material["shikimori_rating"])
	w.RatingKinopoisk = floatPtr(material["kinopoisk_rating"])
	w.RatingIMDB = floatPtr(material["imdb_rating"])

	w.EpisodesTotal = episodesTotal(raw, additional)
	w.ExternalIDs = externalIDs(raw)
	w.BlockedCountries = stringSet(additional["blocked_countries"])
	w.Status = statusOf(raw)

	return w
}

// unionAltTitles dedupes the union of altTitleKeys read from material_data,
// flattening list values and dropping falsy scalars, preserving first-seen
// order.
func unionAltTitles(material map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(v any) {
		if !convert.Truthy(v) {
			return
		}
		s, ok := convert.ToStringOK(v)
		if !ok {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, key := range altTitleKeys {
		v, present := material[key]
		if !present {
			continue
		}
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				add(item)
			}
		default:
			add(t)
		}
	}

	return out
}

// stringSet coerces a raw JSON value (expected to be a list of strings) into
// a deduplicated, order-preserved string slice. Falsy/empty elements are
// dropped.
func stringSet(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, item := range list {
		if !convert.Truthy(item) {
			continue
		}
		s, ok := convert.ToStringOK(item)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// externalIDs retains only the keys in externalIDKeys whose upstream value
// is truthy.
func externalIDs(raw map[string]any) map[string]string {
	out := make(map[string]string)
	for canonical, field := range externalIDKeys {
		v, present := raw[field]
		if !present || !convert.Truthy(v) {
			continue
		}
		if s, ok := convert.ToStringOK(v); ok {
			out[canonical] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// statusOf maps the upstream status string per the fixed table, returning
// nil for anything unrecognized.
func statusOf(raw map[string]any) *string {
	s, ok := convert.ToStringOK(raw["status"])
	if !ok {
		return nil
	}

	var mapped string
	switch s {
	case "ongoing", "airing":
		mapped = "ongoing"
	case "released", "finished":
		mapped = "released"
	case "announced":
		mapped = "announced"
	default:
		return nil
	}
	return &mapped
}

// floatPtr coerces a raw rating value, returning nil when absent or
// non-numeric.
func floatPtr(v any) *float64 {
	f, ok := convert.ToFloat64OK(v)
	if !ok {
		return nil
	}
	return &f
}

// episodesTotal is the first non-null of additional_data.episodes_count and
// last_episode.
func episodesTotal(raw map[string]any, additional map[string]any) *int {
	if v, ok := convert.ToIntOK(additional["episodes_count"]); ok {
		return &v
	}
	if v, ok := convert.ToIntOK(raw["last_episode"]); ok {
		return &v
	}
	return nil
}

// normalizeEpisodes implements the season-map / synthesized-range rules.
func normalizeEpisodes(raw map[string]any, workID string, translationID int, episodesTotal *int) []Episode {
	seasons, _ := raw["seasons"].(map[string]any)
	if len(seasons) > 0 {
		return episodesFromSeasons(seasons, workID, translationID)
	}
	if episodesTotal != nil && *episodesTotal > 0 {
		return synthesizeEpisodes(*episodesTotal, workID, translationID)
	}
	return nil
}

// seasonEpisode is a (season, number) pair used to dedupe and sort
// deterministically before building Episode structs.
type seasonEpisode struct {
	season int
	number int
	data   map[string]any
}

// episodesFromSeasons walks `seasons`, skipping non-integer-parseable keys
// and keeping the last write for a duplicate (season, number).
func episodesFromSeasons(seasons map[string]any, workID string, translationID int) []Episode {
	index := make(map[[2]int]*seasonEpisode)
	var order [][2]int

	for seasonKey, seasonVal := range seasons {
		seasonNum, ok := convert.ToIntOK(seasonKey)
		if !ok {
			continue
		}
		seasonMap, ok := seasonVal.(map[string]any)
		if !ok {
			continue
		}
		episodesMap, _ := seasonMap["episodes"].(map[string]any)
		for epKey, epVal := range episodesMap {
			num, ok := convert.ToIntOK(epKey)
			if !ok {
				continue
			}
			epData, _ := epVal.(map[string]any)

			key := [2]int{seasonNum, num}
			if _, exists := index[key]; !exists {
				order = append(order, key)
			}
			index[key] = &seasonEpisode{season: seasonNum, number: num, data: epData}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i][0] != order[j][0] {
			return order[i][0] < order[j][0]
		}
		return order[i][1] < order[j][1]
	})

	episodes := make([]Episode, 0, len(order))
	for _, key := range order {
		se := index[key]
		ep := Episode{
			ID:            fmt.Sprintf("%s:%d:%d", workID, translationID, se.number),
			WorkID:        workID,
			TranslationID: translationID,
			Number:        se.number,
			Season:        se.season,
		}
		if se.data != nil {
			if title, ok := convert.ToStringOK(se.data["title"]); ok {
				ep.Title = &title
			}
			if dur, ok := convert.ToIntOK(se.data["duration"]); ok {
				ep.Duration = &dur
			}
			if preview, ok := convert.ToStringOK(se.data["preview"]); ok {
				ep.PreviewURL = &preview
			}
		}
		episodes = append(episodes, ep)
	}
	return episodes
}

// synthesizeEpisodes builds episodes 1..total in season 1 with null
// title/duration/preview, used when the upstream item carries no `seasons`
// map but does report a total count.
func synthesizeEpisodes(total int, workID string, translationID int) []Episode {
	episodes := make([]Episode, 0, total)
	for n := 1; n <= total; n++ {
		episodes = append(episodes, Episode{
			ID:            fmt.Sprintf("%s:%d:%d", workID, translationID, n),
			WorkID:        workID,
			TranslationID: translationID,
			Number:        n,
			Season:        1,
		})
	}
	return episodes
}

// firstNonEmpty returns the first field among keys whose value coerces to a
// non-empty string.
func firstNonEmpty(raw map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := convert.ToStringOK(raw[k]); ok {
			return s, true
		}
	}
	return "", false
}
