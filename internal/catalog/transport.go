// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package catalog

import (
	"net/http"

	"github.com/kinomir/ingestd/internal/ratelimit"
)

// throttledTransport pulls one token from the shared limiter before every
// outbound request, so every caller of the client contends for the same
// budget regardless of which method issued the call.
type throttledTransport struct {
	http.RoundTripper
	limiter *ratelimit.Limiter
}

func (t throttledTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if err := t.limiter.Acquire(r.Context()); err != nil {
		return nil, err
	}
	return t.RoundTripper.RoundTrip(r)
}
