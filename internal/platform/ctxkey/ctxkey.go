// Copyright (c) 2026 Kinomir contributors. All rights reserved.

// Package ctxkey defines typed context keys shared by the ingest and publish
// pipelines.
//
// # Safety
//
// It is used to store and retrieve per-run values (batch correlation id,
// logger). Using a private, unexported type for keys prevents collisions
// with third-party packages that might also use context for storage.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
//
// # Collision Prevention
//
// Even if another package uses "batch_id" as a string key, it will not
// collide with this key type because Go's [context.Context] uses both the
// value AND the type for lookups.
type key string

const (
	// KeyBatchID is the context key for a run correlation identifier, set
	// with ctxutil.WithBatchID; the schedulers in this repository do not set it.
	KeyBatchID key = "batch_id"

	// KeyLogger is the context key for the per-run [*log/slog.Logger].
	KeyLogger key = "logger"
)
