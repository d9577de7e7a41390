// Copyright (c) 2026 Kinomir contributors. All rights reserved.

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kinomir/ingestd/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Constraint violations classify as client-facing errors rather than
	// internal ones, per spec: numeric out-of-range rows and duplicate keys
	// must surface as validation/conflict failures, not opaque 500s.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(action + ": duplicate key (" + pgErr.ConstraintName + ")")
		case pgerrcode.CheckViolation:
			return apperr.ValidationError(action+": constraint violated ("+pgErr.ConstraintName+")",
				apperr.FieldError{Field: pgErr.ColumnName, Message: pgErr.ConstraintName})
		case pgerrcode.ForeignKeyViolation:
			return apperr.ValidationError(action + ": references a row that does not exist (" + pgErr.ConstraintName + ")")
		case pgerrcode.NotNullViolation:
			return apperr.ValidationError(action+": missing required field", apperr.FieldError{Field: pgErr.ColumnName, Message: "is required"})
		}
	}

	// 3. Everything else becomes an Internal Server Error.
	return apperr.Internal(err)
}

// IsTransient reports whether err is a serialization failure or deadlock
// that a caller may retry the surrounding transaction for.
func IsTransient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return true
	default:
		return false
	}
}
