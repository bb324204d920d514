// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

// sqliteSchema creates the single key-value table.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS client_storage (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite file and ensures the schema.
//
// # Parameters
//   - ctx: Context for the schema bootstrap.
//   - path: Filesystem path, or ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage: sqlite path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite db: %w", err)
	}

	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping sqlite db: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: create sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the value stored under key.
func (store *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := store.db.QueryRowContext(ctx, `SELECT value FROM client_storage WHERE key = ?`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite_storage_get_failed: %w", err)
	}

	return value, true, nil
}

// Set writes value under key.
func (store *SQLiteStore) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO client_storage (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := store.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("sqlite_storage_set_failed: %w", err)
	}
	return nil
}

// Delete removes the given keys.
func (store *SQLiteStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := store.db.ExecContext(ctx, `DELETE FROM client_storage WHERE key = ?`, key); err != nil {
			return fmt.Errorf("sqlite_storage_delete_failed: %w", err)
		}
	}
	return nil
}

// Clear removes every key.
func (store *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := store.db.ExecContext(ctx, `DELETE FROM client_storage`); err != nil {
		return fmt.Errorf("sqlite_storage_clear_failed: %w", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (store *SQLiteStore) Close() error {
	if store == nil || store.db == nil {
		return nil
	}
	return store.db.Close()
}
