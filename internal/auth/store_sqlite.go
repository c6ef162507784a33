// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SQLiteLocalStore implements [LocalStore] on the local_state table
// created by the sqlite platform package.
type SQLiteLocalStore struct {
	db *sql.DB
}

// NewSQLiteLocalStore creates a new SQLite-backed LocalStore.
func NewSQLiteLocalStore(db *sql.DB) *SQLiteLocalStore {
	return &SQLiteLocalStore{db: db}
}

// Get retrieves the value stored under key, or nil if absent.
func (repository *SQLiteLocalStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := repository.db.QueryRowContext(ctx,
		`SELECT value FROM local_state WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite_local_state_get_failed: %w", err)
	}
	return value, nil
}

// Set upserts all entries in one transaction.
func (repository *SQLiteLocalStore) Set(ctx context.Context, namespace string, entries map[string][]byte) error {
	tx, err := repository.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite_local_state_begin_failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
		INSERT INTO local_state (namespace, key, value, updated_at)
		VALUES (?, ?, ?, unixepoch())
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	for key, value := range entries {
		if _, err := tx.ExecContext(ctx, query, namespace, key, value); err != nil {
			return fmt.Errorf("sqlite_local_state_set_failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite_local_state_commit_failed: %w", err)
	}
	return nil
}

// Delete removes keys from the namespace.
func (repository *SQLiteLocalStore) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, namespace)
	for _, key := range keys {
		args = append(args, key)
	}

	query := `DELETE FROM local_state WHERE namespace = ? AND key IN (` + placeholders + `)`
	if _, err := repository.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite_local_state_delete_failed: %w", err)
	}
	return nil
}

// Ping checks the database handle.
func (repository *SQLiteLocalStore) Ping(ctx context.Context) error {
	return repository.db.PingContext(ctx)
}
