// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package catalog

import (
	"fmt"
	"time"
)

// NetworkError wraps a connect/read timeout, refused connection, or other
// transient transport failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimited signals an HTTP 429 response. RetryAfter is the server's
// advertised backoff, zero if the server did not provide one.
type RateLimited struct {
	RetryAfter time.Duration
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("catalog: rate limited, retry after %s", e.RetryAfter)
}

// NotFoundError signals a missing external id used with get_episode_playlist,
// or an HTTP 404 from the upstream API.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("catalog: not found: %s", e.Reason) }

// ProtocolError signals a malformed response body, an unexpected non-2xx/429
// status, or a non-terminal page missing its cursor.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("catalog: protocol error: %s", e.Reason) }
