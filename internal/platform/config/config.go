// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles client-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. An optional '.env'
file in the working directory is loaded first via 'joho/godotenv'.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (storage, pipeline) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Storage Drivers

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// envPrefix scopes every variable to this client.
const envPrefix = "TEAMDESK_"

// # Configuration Schema

// Config holds all runtime configuration for the teamdesk client.
type Config struct {

	// Backend
	APIURL         string        `env:"API_URL"         envDefault:"http://localhost:8000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	// Outbound rate limiting (token bucket)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Durable client-side storage
	StorageDriver    string `env:"STORAGE_DRIVER"    envDefault:"sqlite"`
	StoragePath      string `env:"STORAGE_PATH"      envDefault:"teamdesk.db"`
	StorageNamespace string `env:"STORAGE_NAMESPACE" envDefault:"teamdesk"`
	RedisURL         string `env:"REDIS_URL"`
	DatabaseURL      string `env:"DATABASE_URL"`

	// WatchSchedule is the cron spec used by 'teamctl watch'.
	WatchSchedule string `env:"WATCH_SCHEDULE" envDefault:"@every 30s"`

	Debug bool `env:"DEBUG" envDefault:"false"`
}

// # Configuration Loading

// Load reads an optional .env file and parses prefixed environment variables
// into a validated [Config].
func Load(dotenvFiles ...string) (*Config, error) {

	// A missing .env is normal; anything else (bad syntax, permissions) is not.
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to load .env: %w", err)
	}

	return Parse(env.Options{Prefix: envPrefix})
}

// Parse maps environment variables into a [Config] using the given options.
// Tests use it with [env.Options.Environment] to avoid touching the process env.
func Parse(options env.Options) (*Config, error) {
	cfg := &Config{}

	if options.Prefix == "" {
		options.Prefix = envPrefix
	}

	if err := env.ParseWithOptions(cfg, options); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations that cannot produce a working client.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.StoragePath == "" {
			return errors.New("config: STORAGE_PATH is required for the sqlite driver")
		}
	case DriverRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL is required for the redis driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.StorageDriver)
	}

	if c.APIURL == "" {
		return errors.New("config: API_URL must not be empty")
	}

	if c.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}

	return nil
}
