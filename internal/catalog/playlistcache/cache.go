// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package playlistcache fronts the catalog client's playlist calls with a
Redis cache keyed by request shape, so resolving the same playlist twice
within the TTL window doesn't pay for a second upstream round-trip. The
catalog client does not send full-list page fetches through this cache.

It repurposes the REDIS_CACHE_TTL/SEARCH_CACHE_ENABLED configuration
surface: the front-end's use of Redis for search ranking is out of scope,
but caching upstream HTTP responses on the ingest side is a legitimate use
of the same client and the same knobs.
*/
package playlistcache

import (
	stdctx "context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key this package writes.
const keyPrefix = "ingest:catalog:"

// Cache wraps a redis.Client with typed get/set helpers for cached catalog
// responses. A nil *Cache (constructed via [Disabled]) makes every call a
// no-op miss, so callers can unconditionally go through the cache without
// branching on SEARCH_CACHE_ENABLED at every call site.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs an enabled Cache.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Disabled returns a Cache that always misses, used when SEARCH_CACHE_ENABLED
// is false.
func Disabled() *Cache {
	return nil
}

// PlaylistKey builds the cache key for one (external id, translation,
// episode, quality) playlist lookup.
func PlaylistKey(idType, idValue string, translationID, episodeNum, quality int) string {
	return fmt.Sprintf("%splaylist:%s:%s:%d:%d:%d", keyPrefix, idType, idValue, translationID, episodeNum, quality)
}

// ListPageKey builds the cache key for one (page_size, cursor) full-list or
// delta page fetch.
func ListPageKey(pageSize int, cursor string) string {
	if cursor == "" {
		cursor = "first"
	}
	return fmt.Sprintf("%slist:%d:%s", keyPrefix, pageSize, cursor)
}

// GetString returns a cached string value, or ("", false) on a miss
// (including when the cache is disabled/nil).
func (c *Cache) GetString(ctx stdctx.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// SetString caches a string value under key with the configured TTL. Errors
// are swallowed: a cache write failure must never fail the caller's request.
func (c *Cache) SetString(ctx stdctx.Context, key, value string) {
	if c == nil {
		return
	}
	c.client.Set(ctx, key, value, c.ttl)
}

// GetJSON unmarshals a cached JSON value into dest, returning false on a
// miss or decode error.
func (c *Cache) GetJSON(ctx stdctx.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}
	return true
}

// SetJSON marshals and caches value under key with the configured TTL.
func (c *Cache) SetJSON(ctx stdctx.Context, key string, value any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttl)
}
