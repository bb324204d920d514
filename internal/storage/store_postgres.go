// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrations holds the PostgreSQL schema for the client_storage table.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside [Migrations] holding the .sql files.
const MigrationsDir = "migrations"

// PostgresStore implements Store using a shared PostgreSQL table.
type PostgresStore struct {
	pool      *pgxpool.Pool
	namespace string
}

// NewPostgresStore creates a PostgreSQL-backed Store scoped to namespace.
// The schema must already be migrated (see [Migrations]).
func NewPostgresStore(pool *pgxpool.Pool, namespace string) *PostgresStore {
	return &PostgresStore{pool: pool, namespace: namespace}
}

/*
Get returns the value stored under key.

Parameters:
  - ctx: context.Context
  - key: string

Returns:
  - string: Stored value
  - bool: false if the key is absent
  - error: Database retrieval failures
*/
func (store *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM client_storage WHERE namespace = $1 AND key = $2`

	var value string
	err := store.pool.QueryRow(ctx, query, store.namespace, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres_storage_get_failed: %w", err)
	}

	return value, true, nil
}

// Set upserts value under key.
func (store *PostgresStore) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO client_storage (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()`

	if _, err := store.pool.Exec(ctx, query, store.namespace, key, value); err != nil {
		return fmt.Errorf("postgres_storage_set_failed: %w", err)
	}
	return nil
}

// Delete removes the given keys.
func (store *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	const query = `DELETE FROM client_storage WHERE namespace = $1 AND key = ANY($2)`

	if _, err := store.pool.Exec(ctx, query, store.namespace, keys); err != nil {
		return fmt.Errorf("postgres_storage_delete_failed: %w", err)
	}
	return nil
}

// Clear removes every key in this store's namespace.
func (store *PostgresStore) Clear(ctx context.Context) error {
	const query = `DELETE FROM client_storage WHERE namespace = $1`

	if _, err := store.pool.Exec(ctx, query, store.namespace); err != nil {
		return fmt.Errorf("postgres_storage_clear_failed: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (store *PostgresStore) Close() error {
	store.pool.Close()
	return nil
}
