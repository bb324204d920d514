// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/teamdesk/internal/platform/config"
	"github.com/taibuivan/teamdesk/internal/platform/migration"
	pgstore "github.com/taibuivan/teamdesk/internal/platform/postgres"
	redisstore "github.com/taibuivan/teamdesk/internal/platform/redis"
)

// Open builds the Store selected by cfg.StorageDriver.
//
// # Parameters
//   - ctx: Context for connection and schema bootstrap.
//   - cfg: Validated client configuration.
//   - logger: Structured logger for backend events.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return NewMemoryStore(), nil

	case config.DriverSQLite:
		store, err := OpenSQLite(ctx, cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		logger.Debug("storage_opened", slog.String("driver", cfg.StorageDriver), slog.String("path", cfg.StoragePath))
		return store, nil

	case config.DriverRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.StorageNamespace), nil

	case config.DriverPostgres:
		if err := migration.RunUp(cfg.DatabaseURL, Migrations, MigrationsDir, logger); err != nil {
			return nil, err
		}
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool, cfg.StorageNamespace), nil

	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.StorageDriver)
	}
}
