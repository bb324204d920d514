// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/teamdesk/internal/platform/config"
	"github.com/taibuivan/teamdesk/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backends returns every Store reachable in this environment.
func backends(t *testing.T) map[string]storage.Store {
	t.Helper()
	ctx := context.Background()

	sqliteStore, err := storage.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)

	stores := map[string]storage.Store{
		"memory": storage.NewMemoryStore(),
		"sqlite": sqliteStore,
	}

	if url := os.Getenv("TEAMDESK_TEST_REDIS_URL"); url != "" {
		store, err := storage.Open(ctx, &config.Config{
			StorageDriver:    config.DriverRedis,
			RedisURL:         url,
			StorageNamespace: "teamdesk-test",
		}, discardLogger())
		require.NoError(t, err)
		stores["redis"] = store
	}

	if dsn := os.Getenv("TEAMDESK_TEST_DATABASE_URL"); dsn != "" {
		store, err := storage.Open(ctx, &config.Config{
			StorageDriver:    config.DriverPostgres,
			DatabaseURL:      dsn,
			StorageNamespace: "teamdesk-test",
		}, discardLogger())
		require.NoError(t, err)
		stores["postgres"] = store
	}

	return stores
}

/*
TestStore_Contract runs the key-value contract against every backend.
*/
func TestStore_Contract(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			t.Cleanup(func() { _ = store.Close() })
			require.NoError(t, store.Clear(ctx))

			// 1. Missing keys are absent, not errors
			_, ok, err := store.Get(ctx, "access_token")
			require.NoError(t, err)
			assert.False(t, ok)

			// 2. Set then overwrite
			require.NoError(t, store.Set(ctx, "access_token", "a1"))
			require.NoError(t, store.Set(ctx, "access_token", "a2"))
			value, ok, err := store.Get(ctx, "access_token")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "a2", value)

			// 3. Delete ignores absent keys
			require.NoError(t, store.Set(ctx, "refresh_token", "r1"))
			require.NoError(t, store.Delete(ctx, "refresh_token", "never_written"))
			_, ok, err = store.Get(ctx, "refresh_token")
			require.NoError(t, err)
			assert.False(t, ok)

			// 4. Clear removes everything
			require.NoError(t, store.Set(ctx, "auth-storage", `{"state":{}}`))
			require.NoError(t, store.Clear(ctx))
			for _, key := range []string{"access_token", "auth-storage"} {
				_, ok, err := store.Get(ctx, key)
				require.NoError(t, err)
				assert.False(t, ok, key)
			}
		})
	}
}

/*
TestSQLite_SurvivesReopen verifies values outlive the process that wrote them.
*/
func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "teamdesk.db")

	first, err := storage.OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "refresh_token", "r1"))
	require.NoError(t, first.Close())

	second, err := storage.OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	value, ok, err := second.Get(ctx, "refresh_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "r1", value)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	store, err := storage.Open(ctx, &config.Config{StorageDriver: config.DriverMemory}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, store)

	store, err = storage.Open(ctx, &config.Config{
		StorageDriver: config.DriverSQLite,
		StoragePath:   filepath.Join(t.TempDir(), "open.db"),
	}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &storage.SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = storage.Open(ctx, &config.Config{StorageDriver: "etcd"}, discardLogger())
	assert.Error(t, err)

	_, err = storage.OpenSQLite(ctx, "  ")
	assert.Error(t, err)
}
