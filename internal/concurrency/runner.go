// Copyright (c) 2026 Kinomir contributors. All rights reserved.

/*
Package concurrency provides a bounded-concurrency fan-out helper built on
golang.org/x/sync/errgroup, the same pattern the upstream controller uses
for its refresh fan-out (errgroup.Group + SetLimit).
*/
package concurrency

import (
	stdctx "context"

	"golang.org/x/sync/errgroup"
)

// RunBatches dispatches each batch in batches onto fn, running at most
// `limit` batches concurrently. It collects every per-batch error rather
// than aborting at the first one, since one failed batch must not prevent
// the rest of a delta-sync tick from making progress.
func RunBatches[T any](ctx stdctx.Context, batches [][]T, limit int, fn func(ctx stdctx.Context, batch []T) error) []error {
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	errs := make([]error, len(batches))
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			// fn's own errors are captured per-index rather than returned
			// to errgroup, so one batch's failure doesn't cancel gctx and
			// abort sibling batches still in flight.
			errs[i] = fn(gctx, batch)
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

// Chunk splits items into batches of at most size, preserving order. A
// size <= 0 yields a single batch containing everything.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}

	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
