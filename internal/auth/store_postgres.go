// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/voxboard/internal/platform/database/schema"
	"github.com/taibuivan/voxboard/internal/platform/sec"
)

// touchTimeout bounds the fire-and-forget last-login update.
const touchTimeout = 5 * time.Second

// # Credential Repository

// PostgresCredentialStore implements [CredentialStore] using the hosted database's
// verify_credentials function.
type PostgresCredentialStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewCredentialStore creates the PostgreSQL implementation of [CredentialStore].
func NewCredentialStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresCredentialStore {
	return &PostgresCredentialStore{pool: pool, logger: logger}
}

/*
VerifyCredentials calls auth.verify_credentials and collects the rows it returns.

Description: Password comparison happens inside the database (pgcrypto crypt).
On a match the last-login timestamp is updated in a detached goroutine; the
caller never waits for it and its failure never affects the login.

Parameters:
  - context: context.Context
  - username: string
  - password: string

Returns:
  - []CredentialRow: Zero or more rows (the Verifier rejects more than one)
  - error: Connectivity or query failures
*/
func (repository *PostgresCredentialStore) VerifyCredentials(context context.Context, username, password string) ([]CredentialRow, error) {
	query := fmt.Sprintf(`SELECT user_id::text, username, email, role FROM %s($1, $2)`, schema.FuncVerifyCredentials)

	rows, err := repository.pool.Query(context, query, username, password)
	if err != nil {
		return nil, fmt.Errorf("postgres_credential_verify_failed: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CredentialRow, error) {
		var record CredentialRow
		var email *string
		if err := row.Scan(&record.UserID, &record.Username, &email, &record.Role); err != nil {
			return CredentialRow{}, err
		}
		if email != nil {
			record.Email = *email
		}
		return record, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres_credential_scan_failed: %w", err)
	}

	if len(records) == 1 {
		go repository.touchLastLogin(records[0].UserID)
	}

	return records, nil
}

// touchLastLogin records the login time. Detached from the request context.
func (repository *PostgresCredentialStore) touchLastLogin(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
	defer cancel()

	if _, err := repository.pool.Exec(ctx, fmt.Sprintf(`SELECT %s($1::text::uuid)`, schema.FuncTouchLastLogin), userID); err != nil {
		repository.logger.WarnContext(ctx, "credential_touch_last_login_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

/*
EnsureCredential creates the credential record if the username is not taken yet.

Description: Used at startup to seed the bootstrap administrator. Existing
records are left untouched so a rotated password is never overwritten.

Returns:
  - bool: true when a new record was inserted
  - error: Hashing or persistence failures
*/
func (repository *PostgresCredentialStore) EnsureCredential(ctx context.Context, username, email, password string, role sec.Role) (bool, error) {
	hash, err := sec.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("postgres_credential_hash_failed: %w", err)
	}

	var nullableEmail *string
	if email != "" {
		nullableEmail = &email
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (%s) DO NOTHING`,
		schema.AuthCredentials.Table, schema.AuthCredentials.Username, schema.AuthCredentials.Email,
		schema.AuthCredentials.PasswordHash, schema.AuthCredentials.Role, schema.AuthCredentials.IsActive,
		schema.AuthCredentials.Username,
	)

	tag, err := repository.pool.Exec(ctx, query, username, nullableEmail, hash, string(role))
	if err != nil {
		return false, fmt.Errorf("postgres_credential_ensure_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
