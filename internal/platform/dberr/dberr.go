// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/voxboard/internal/platform/apperr"
)

// SQLSTATE codes that indicate the database is reachable but not usable.
const (
	sqlstateUndefinedTable    = "42P01"
	sqlstateUndefinedFunction = "42883"
	sqlstateAdminShutdown     = "57P01"
	sqlstateCannotConnectNow  = "57P03"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")

	// ErrUnavailable marks errors coming from an unreachable or unmigrated database.
	ErrUnavailable = apperr.ServiceUnavailable("Database unavailable")
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

	// 2. Connectivity and schema problems are availability failures
	if IsUnavailable(err) {
		return ErrUnavailable.WithCause(fmt.Errorf("%s: %w", action, err))
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// IsUnavailable reports whether err means the database could not serve the query at all.
func IsUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateUndefinedTable, sqlstateUndefinedFunction, sqlstateAdminShutdown, sqlstateCannotConnectNow:
			return true
		}
	}

	return false
}
