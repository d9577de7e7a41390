// Copyright (c) 2026 Kinomir contributors. All rights reserved.

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/kinomir/ingestd/internal/platform/ctxkey"
)

// # Run Correlation

// WithBatchID returns a new context with the provided batch/run correlation
// id attached. Every suspension point underneath a scheduler tick inherits
// it via the context it was handed, rather than a process-wide mutable
// static.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyBatchID, id)
}

// GetBatchID retrieves the batch id from the context.
// Returns an empty string if not found.
func GetBatchID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyBatchID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}
