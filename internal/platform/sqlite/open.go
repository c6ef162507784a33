// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sqlite opens the single-node local state database.

It is the alternative to Redis for deployments that run one dashboard
process: per-client session state lives in one SQLite file next to the
binary. The pure-Go modernc.org/sqlite driver keeps the build CGO-free.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	// modernc registers the "sqlite" driver name.
	_ "modernc.org/sqlite"
)

// schema creates the namespaced key/value table used by the local store.
const schema = `
CREATE TABLE IF NOT EXISTS local_state (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (unixepoch()),
	UNIQUE(namespace, key)
);`

/*
Open opens (creating if needed) the SQLite file at path and ensures the schema.

Parameters:
  - ctx: context.Context for the schema statement
  - path: string (file path, or ":memory:" for tests)
  - logger: *slog.Logger

Returns:
  - *sql.DB: A ready handle limited to one writer connection
  - error: Any open or schema failure
*/
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: failed to create directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	logger.Info("sqlite_opened", slog.String("path", path))

	return db, nil
}
