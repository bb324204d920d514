// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package storage provides durable client-side key-value storage.

It plays the role a browser's local storage plays for a web client: raw string
values under fixed keys, surviving process restarts. The token store and the
persisted session blob are both written through a [Store].

# Backends

  - [MemoryStore]: process-local, used by tests and the 'memory' driver.
  - [SQLiteStore]: a single local file, the default for the CLI.
  - [RedisStore]: a shared Redis, namespaced per client.
  - [PostgresStore]: a shared PostgreSQL table, namespaced per client.
*/
package storage

import "context"

// # Key-Value Data Access

// Store defines the durable key-value contract.
//
// A missing key is not an error: Get reports it through its boolean result.
type Store interface {

	/*
		Get returns the value stored under key.

		Parameters:
		  - ctx: context.Context
		  - key: string

		Returns:
		  - string: Stored value
		  - bool: false when the key is absent
		  - error: Backend failures
	*/
	Get(ctx context.Context, key string) (string, bool, error)

	/*
		Set writes value under key, replacing any previous value.

		Parameters:
		  - ctx: context.Context
		  - key: string
		  - value: string

		Returns:
		  - error: Persistence failures
	*/
	Set(ctx context.Context, key, value string) error

	/*
		Delete removes the given keys. Absent keys are ignored.

		Parameters:
		  - ctx: context.Context
		  - keys: ...string

		Returns:
		  - error: Persistence failures
	*/
	Delete(ctx context.Context, keys ...string) error

	/*
		Clear removes every key owned by this store.

		Parameters:
		  - ctx: context.Context

		Returns:
		  - error: Persistence failures
	*/
	Clear(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}
