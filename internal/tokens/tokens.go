// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package tokens holds the access/refresh token pair in durable storage.

Tokens are opaque strings stored under two fixed keys, independently of the
persisted session. Reads never fail: a backend error is logged and reported as
an absent token, so the store is safe to consult before any session exists.
*/
package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/teamdesk/internal/platform/constants"
	"github.com/taibuivan/teamdesk/internal/storage"
)

// Kind selects one half of the token pair.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

// key maps a kind to its durable storage key.
func (k Kind) key() string {
	if k == Refresh {
		return constants.StorageKeyRefreshToken
	}
	return constants.StorageKeyAccessToken
}

// Store reads and writes the token pair.
type Store struct {
	storage storage.Store
	logger  *slog.Logger
}

// NewStore creates a token store over the given durable storage.
func NewStore(backend storage.Store, logger *slog.Logger) *Store {
	return &Store{storage: backend, logger: logger}
}

/*
Get returns the stored token of the given kind.

Parameters:
  - ctx: context.Context
  - kind: [Access] or [Refresh]

Returns:
  - string: The token
  - bool: false when absent, empty, or unreadable
*/
func (store *Store) Get(ctx context.Context, kind Kind) (string, bool) {
	value, ok, err := store.storage.Get(ctx, kind.key())
	if err != nil {
		store.logger.WarnContext(ctx, "token_read_failed",
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
		return "", false
	}

	if !ok || value == "" {
		return "", false
	}

	return value, true
}

/*
Set writes both tokens.

Description: If the refresh token cannot be written the access token is
removed again, so a failed write never leaves half a pair behind.

Parameters:
  - ctx: context.Context
  - access: string
  - refresh: string

Returns:
  - error: Persistence failures
*/
func (store *Store) Set(ctx context.Context, access, refresh string) error {
	if err := store.storage.Set(ctx, constants.StorageKeyAccessToken, access); err != nil {
		return fmt.Errorf("tokens: set access token: %w", err)
	}

	if err := store.storage.Set(ctx, constants.StorageKeyRefreshToken, refresh); err != nil {
		if rollbackErr := store.storage.Delete(ctx, constants.StorageKeyAccessToken); rollbackErr != nil {
			store.logger.WarnContext(ctx, "token_rollback_failed", slog.Any("error", rollbackErr))
		}
		return fmt.Errorf("tokens: set refresh token: %w", err)
	}

	return nil
}

// SetAccess replaces only the access token, as a successful refresh does.
func (store *Store) SetAccess(ctx context.Context, access string) error {
	if err := store.storage.Set(ctx, constants.StorageKeyAccessToken, access); err != nil {
		return fmt.Errorf("tokens: set access token: %w", err)
	}
	return nil
}

// Clear removes both tokens. Clearing an empty store is not an error.
func (store *Store) Clear(ctx context.Context) error {
	if err := store.storage.Delete(ctx, constants.StorageKeyAccessToken, constants.StorageKeyRefreshToken); err != nil {
		return fmt.Errorf("tokens: clear: %w", err)
	}
	return nil
}

// Purge removes every durable key, including the persisted session.
// It is the teardown used when a refresh is rejected.
func (store *Store) Purge(ctx context.Context) error {
	if err := store.storage.Clear(ctx); err != nil {
		return fmt.Errorf("tokens: purge: %w", err)
	}
	return nil
}

/*
AccessExpiry reports the exp claim of the stored access token.

Description: The token is decoded without verification; the client has no
key to verify with and only uses the value for display.

Returns:
  - time.Time: Expiry instant
  - bool: false when there is no token or it carries no readable exp claim
*/
func (store *Store) AccessExpiry(ctx context.Context) (time.Time, bool) {
	token, ok := store.Get(ctx, Access)
	if !ok {
		return time.Time{}, false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, false
	}

	return expiry.Time, true
}
