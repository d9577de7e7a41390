// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package catalog implements a rate-limited, paginated, retrying HTTP client
for the upstream media catalog.

# Responsibilities

  - fetch_full_list: walk the full paginated feed.
  - fetch_delta: walk the feed sorted by updated_at desc, short-circuiting
    once an item older than the requested watermark is seen.
  - get_episode_playlist: resolve a single episode's playlist URL.

Every outbound call draws one token from a shared [ratelimit.Limiter] and is
retried per [retry.Policy] on transient transport failures.
*/
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kinomir/ingestd/internal/catalog/playlistcache"
	"github.com/kinomir/ingestd/internal/ratelimit"
	"github.com/kinomir/ingestd/internal/retry"
)

// RawItem is one heterogeneous upstream catalog record, handed unmodified
// to the normalizer.
type RawItem = map[string]any

// Client talks to the upstream catalog API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	logger      *slog.Logger
	retryPolicy retry.Policy
	cache       *playlistcache.Cache
}

// Config carries the subset of application configuration this client needs.
type Config struct {
	BaseURL        string
	Token          string
	RPSLimit       float64
	RequestTimeout time.Duration
}

// New constructs a Client whose transport shares rate limiting across all
// outbound requests. Playlist lookups go uncached unless [Client.WithCache]
// is called afterward.
func New(cfg Config, logger *slog.Logger) *Client {
	limiter := ratelimit.New(cfg.RPSLimit, cfg.RPSLimit)

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: throttledTransport{
				RoundTripper: http.DefaultTransport,
				limiter:      limiter,
			},
		},
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		logger:  logger,
		retryPolicy: retry.Policy{
			Attempts:  3,
			BaseDelay: 1 * time.Second,
		},
		cache: playlistcache.Disabled(),
	}
}

// WithCache fronts subsequent GetEpisodePlaylist calls with cache, which may
// be [playlistcache.Disabled] to restore the uncached default. Returns c for
// chaining at construction time.
func (c *Client) WithCache(cache *playlistcache.Cache) *Client {
	c.cache = cache
	return c
}

// listResponse mirrors the upstream `/list` JSON envelope.
type listResponse struct {
	Results  []RawItem `json:"results"`
	NextPage *string   `json:"next_page"`
}

// FetchFullList walks the full paginated feed and returns every item seen,
// stopping when the server omits a next cursor or maxPages is reached.
// maxPages <= 0 means unbounded.
func (c *Client) FetchFullList(ctx context.Context, pageSize, maxPages int) ([]RawItem, error) {
	return c.paginate(ctx, url.Values{
		"sort":  {"updated_at"},
		"order": {"desc"},
	}, pageSize, maxPages, nil)
}

// FetchDelta walks the feed sorted by updated_at desc and short-circuits as
// soon as an item older than updatedSince is observed. maxPages <= 0 means
// the walk continues until the server runs out of pages or the short-circuit
// fires, whichever comes first.
func (c *Client) FetchDelta(ctx context.Context, updatedSince time.Time, pageSize, maxPages int) ([]RawItem, error) {
	var out []RawItem
	shortCircuit := func(item RawItem) (keep, stop bool) {
		ts, ok := itemUpdatedAt(item)
		if !ok {
			// Can't evaluate the watermark; keep the item rather than
			// silently dropping a possibly-recent record.
			return true, false
		}
		if ts.Before(updatedSince) {
			return false, true
		}
		return true, false
	}

	items, err := c.paginate(ctx, url.Values{
		"sort":  {"updated_at"},
		"order": {"desc"},
	}, pageSize, maxPages, shortCircuit)
	if err != nil {
		return nil, err
	}
	out = append(out, items...)
	return out, nil
}

// paginate drives the cursor-based walk shared by FetchFullList and
// FetchDelta. filter, when non-nil, is applied per-item; returning stop=true
// ends the walk after the current page is processed.
func (c *Client) paginate(ctx context.Context, extra url.Values, pageSize, maxPages int, filter func(RawItem) (keep, stop bool)) ([]RawItem, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	var out []RawItem
	cursor := ""
	page := 0

	for {
		if maxPages > 0 && page >= maxPages {
			break
		}
		page++

		resp, err := c.fetchListPage(ctx, extra, pageSize, cursor)
		if err != nil {
			return nil, err
		}

		stop := false
		for _, item := range resp.Results {
			keep, s := true, false
			if filter != nil {
				keep, s = filter(item)
			}
			if keep {
				out = append(out, item)
			}
			if s {
				stop = true
				break
			}
		}
		if stop {
			break
		}

		if resp.NextPage == nil || *resp.NextPage == "" {
			break
		}

		next, err := nextCursor(*resp.NextPage)
		if err != nil {
			return nil, &ProtocolError{Reason: fmt.Sprintf("non-terminal page missing cursor: %v", err)}
		}
		cursor = next
	}

	return out, nil
}

// fetchListPage issues one retried GET against /list.
func (c *Client) fetchListPage(ctx context.Context, extra url.Values, pageSize int, cursor string) (*listResponse, error) {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("token", c.token)
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("types", "anime,anime-serial")
	q.Set("with_material_data", "true")
	q.Set("with_episodes", "true")
	if cursor != "" {
		q.Set("next", cursor)
	}

	var out listResponse
	err := retry.Do(ctx, c.retryPolicy, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/list?"+q.Encode(), nil)
		if err != nil {
			return err
		}

		resp, reqErr := c.httpClient.Do(req)
		if reqErr != nil {
			return retry.AsTransient(&NetworkError{Op: "fetch_list", Err: reqErr}, 0)
		}
		defer resp.Body.Close()

		return c.decodeListResponse(resp, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// decodeListResponse classifies the HTTP status and decodes the body,
// returning transient errors for retriable statuses and permanent errors
// for anything else.
func (c *Client) decodeListResponse(resp *http.Response, out *listResponse) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return retry.AsTransient(&RateLimited{RetryAfter: retryAfter}, retryAfter)

	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return retry.AsTransient(&NetworkError{Op: "fetch_list", Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}, 0)

	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Reason: "list endpoint returned 404"}

	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &ProtocolError{Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProtocolError{Reason: fmt.Sprintf("malformed body: %v", err)}
	}
	return nil
}

// GetEpisodePlaylist resolves the playlist URL for one episode.
func (c *Client) GetEpisodePlaylist(ctx context.Context, externalIDs map[string]string, translationID, episodeNum, quality int) (string, error) {
	idType, idValue, ok := firstExternalID(externalIDs)
	if !ok {
		return "", &NotFoundError{Reason: "no external id available for playlist lookup"}
	}

	cacheKey := playlistcache.PlaylistKey(idType, idValue, translationID, episodeNum, quality)
	if cached, hit := c.cache.GetString(ctx, cacheKey); hit {
		return cached, nil
	}

	q := url.Values{}
	q.Set("token", c.token)
	q.Set("id", idValue)
	q.Set("id_type", idType)
	q.Set("translation_id", strconv.Itoa(translationID))
	q.Set("seria", strconv.Itoa(episodeNum))
	q.Set("quality", strconv.Itoa(quality))

	var playlistURL string
	err := retry.Do(ctx, c.retryPolicy, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/playlist?"+q.Encode(), nil)
		if err != nil {
			return err
		}

		resp, reqErr := c.httpClient.Do(req)
		if reqErr != nil {
			return retry.AsTransient(&NetworkError{Op: "get_playlist", Err: reqErr}, 0)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			return retry.AsTransient(&RateLimited{RetryAfter: retryAfter}, retryAfter)
		case resp.StatusCode == http.StatusNotFound:
			return &NotFoundError{Reason: "no playlist for given external id"}
		case resp.StatusCode >= 500:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return retry.AsTransient(&NetworkError{Op: "get_playlist", Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}, 0)
		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return &ProtocolError{Reason: fmt.Sprintf("status %d: %s", resp.StatusCode, body)}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &ProtocolError{Reason: fmt.Sprintf("failed reading playlist body: %v", err)}
		}
		playlistURL = string(body)
		return nil
	})
	if err != nil {
		return "", err
	}
	c.cache.SetString(ctx, cacheKey, playlistURL)
	return playlistURL, nil
}

// # Helpers

// firstExternalID returns the first present id among shikimori, kinopoisk,
// imdb in that priority order.
func firstExternalID(ids map[string]string) (idType, value string, ok bool) {
	for _, k := range []string{"shikimori", "kinopoisk", "imdb"} {
		if v, present := ids[k]; present && v != "" {
			return k, v, true
		}
	}
	return "", "", false
}

// nextCursor extracts the `next` query parameter from a full next_page URL.
func nextCursor(nextPage string) (string, error) {
	u, err := url.Parse(nextPage)
	if err != nil {
		return "", err
	}
	cursor := u.Query().Get("next")
	if cursor == "" {
		return "", fmt.Errorf("next_page %q has no next parameter", nextPage)
	}
	return cursor, nil
}

// itemUpdatedAt best-effort extracts a raw item's updated_at as a time.Time.
func itemUpdatedAt(item RawItem) (time.Time, bool) {
	raw, ok := item["updated_at"]
	if !ok {
		return time.Time{}, false
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseRetryAfter parses a Retry-After header (seconds form). An empty or
// unparseable header yields 0, meaning "use the computed exponential
// backoff instead".
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
