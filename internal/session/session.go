// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session owns the client's authentication state.

The [Store] moves between Anonymous, Loading and Authenticated; a failure is
recorded as an error annotation on Anonymous. The user and the authenticated
flag are persisted through the explicit [Partialize]/[Rehydrate] boundary, so a
restarted process resumes the session without ever resuming a loading flag or
a stale error.

Store methods are safe for concurrent use. Overlapping calls are not fenced:
the last one to finish decides the final state.
*/
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/apperr"
	"github.com/taibuivan/teamdesk/internal/platform/constants"
	"github.com/taibuivan/teamdesk/internal/storage"
	"github.com/taibuivan/teamdesk/internal/tokens"
)

// # Collaborators

// AuthAPI is the subset of [backend.AuthClient] the session needs.
type AuthAPI interface {
	Login(ctx context.Context, credentials model.LoginRequest) (*model.AuthResponse, error)
	Register(ctx context.Context, data model.RegisterRequest) (*model.AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context) (*model.User, error)
}

// TokenStore is the subset of [tokens.Store] the session needs.
type TokenStore interface {
	Get(ctx context.Context, kind tokens.Kind) (string, bool)
	Set(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// # Store

// Store holds the process-wide authentication state.
type Store struct {
	auth    AuthAPI
	tokens  TokenStore
	storage storage.Store
	logger  *slog.Logger

	mu    sync.Mutex
	state State

	// persistMu serializes blob writes so storage always ends at the latest state.
	persistMu sync.Mutex

	subscribers  map[int]func(State)
	nextListener int

	// notifications tracks best-effort logout calls still in flight.
	notifications sync.WaitGroup
}

// NewStore creates an anonymous session. Call [Store.Restore] to resume a persisted one.
func NewStore(auth AuthAPI, tokenStore TokenStore, backend storage.Store, logger *slog.Logger) *Store {
	return &Store{
		auth:        auth,
		tokens:      tokenStore,
		storage:     backend,
		logger:      logger,
		state:       Anonymous(),
		subscribers: make(map[int]func(State)),
	}
}

// State returns a snapshot of the current state.
func (store *Store) State() State {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.state
}

/*
Restore replaces the in-memory state with the persisted one.

Description: A missing or unreadable blob yields the anonymous state. It is
also how the session observes a purge performed by the request pipeline.

Parameters:
  - ctx: context.Context
*/
func (store *Store) Restore(ctx context.Context) {
	persisted := Persisted{}

	blob, ok, err := store.storage.Get(ctx, constants.StorageKeySession)
	switch {
	case err != nil:
		store.logger.WarnContext(ctx, "session_restore_failed", slog.Any("error", err))
	case ok:
		if decoded, decodeErr := decode(blob); decodeErr != nil {
			store.logger.WarnContext(ctx, "session_blob_invalid", slog.Any("error", decodeErr))
		} else {
			persisted = decoded
		}
	}

	store.set(func(state *State) { *state = Rehydrate(persisted) })
}

/*
Login authenticates with credentials.

Description: On success the token pair is stored and the session becomes
Authenticated. On failure the session becomes Anonymous with the normalized
message recorded, and the failure is returned.

Parameters:
  - ctx: context.Context
  - credentials: model.LoginRequest

Returns:
  - error: Any backend, transport, or token persistence failure
*/
func (store *Store) Login(ctx context.Context, credentials model.LoginRequest) error {
	return store.authenticate(ctx, "login", func() (*model.AuthResponse, error) {
		return store.auth.Login(ctx, credentials)
	})
}

// Register creates an account and signs in, with the same contract as [Store.Login].
func (store *Store) Register(ctx context.Context, data model.RegisterRequest) error {
	return store.authenticate(ctx, "register", func() (*model.AuthResponse, error) {
		return store.auth.Register(ctx, data)
	})
}

// authenticate runs a credential exchange and applies its outcome.
func (store *Store) authenticate(ctx context.Context, operation string, exchange func() (*model.AuthResponse, error)) error {
	store.set(func(state *State) {
		state.IsLoading = true
		state.Error = ""
	})

	response, err := exchange()
	if err == nil {
		err = store.tokens.Set(ctx, response.AccessToken, response.RefreshToken)
	}

	if err != nil {
		normalized := apperr.Normalize(err)
		store.logger.InfoContext(ctx, "session_"+operation+"_failed",
			slog.String("kind", string(normalized.Kind)),
			slog.String("error", normalized.Message),
		)
		store.commit(ctx, func(state *State) {
			*state = Anonymous()
			state.Error = normalized.Message
		})
		return fmt.Errorf("session: %s: %w", operation, err)
	}

	user := response.User
	store.commit(ctx, func(state *State) {
		*state = State{User: &user, IsAuthenticated: true}
	})

	store.logger.InfoContext(ctx, "session_"+operation+"_succeeded", slog.String("user_id", user.ID.String()))
	return nil
}

/*
Logout ends the session.

Description: Tokens are cleared and the state becomes Anonymous before this
returns. The server is notified in the background; its outcome is ignored.
Calling Logout on an anonymous session is harmless.

Parameters:
  - ctx: context.Context
*/
func (store *Store) Logout(ctx context.Context) {
	// Teardown must reach storage even when the caller is already cancelled.
	ctx = context.WithoutCancel(ctx)

	accessToken, _ := store.tokens.Get(ctx, tokens.Access)

	if err := store.tokens.Clear(ctx); err != nil {
		store.logger.WarnContext(ctx, "token_clear_failed", slog.Any("error", err))
	}

	store.notifyLogout(ctx, accessToken)

	store.commit(ctx, func(state *State) { *state = Anonymous() })
	store.logger.InfoContext(ctx, "session_logged_out")
}

// notifyLogout tells the backend about the logout without waiting for it.
func (store *Store) notifyLogout(ctx context.Context, accessToken string) {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.LogoutNotifyTimeout)

	store.notifications.Add(1)
	go func() {
		defer store.notifications.Done()
		defer cancel()

		if err := store.auth.Logout(notifyCtx, accessToken); err != nil {
			store.logger.DebugContext(notifyCtx, "logout_notify_failed", slog.Any("error", err))
		}
	}()
}

/*
RefreshUser re-fetches the current user's profile.

Description: Does nothing unless Authenticated. A failed fetch means the
session is no longer valid, so it triggers a full [Store.Logout]. A fetch
abandoned by a cancelled ctx leaves the session as it was.

Parameters:
  - ctx: context.Context

Returns:
  - error: The fetch failure, after the session has been torn down
*/
func (store *Store) RefreshUser(ctx context.Context) error {
	if !store.State().IsAuthenticated {
		return nil
	}

	store.set(func(state *State) { state.IsLoading = true })

	user, err := store.auth.CurrentUser(ctx)
	if err != nil && ctx.Err() != nil {
		store.set(func(state *State) { state.IsLoading = false })
		return fmt.Errorf("session: refresh user: %w", err)
	}
	if err != nil {
		store.logger.WarnContext(ctx, "session_refresh_user_failed", slog.Any("error", err))
		store.Logout(ctx)
		return fmt.Errorf("session: refresh user: %w", err)
	}

	store.commit(ctx, func(state *State) {
		state.User = user
		state.IsAuthenticated = true
		state.IsLoading = false
	})
	return nil
}

// ClearError clears the error and nothing else.
func (store *Store) ClearError() {
	store.set(func(state *State) { state.Error = "" })
}

// SetLoading sets the loading flag directly.
func (store *Store) SetLoading(loading bool) {
	store.set(func(state *State) { state.IsLoading = loading })
}

// CurrentTeamID returns the authenticated user's team, if any.
func (store *Store) CurrentTeamID() (int64, bool) {
	state := store.State()
	if !state.IsAuthenticated || state.User == nil || state.User.TeamID == nil {
		return 0, false
	}
	return *state.User.TeamID, true
}

/*
Subscribe registers fn to receive every new state.

Returns:
  - func(): Cancels the subscription
*/
func (store *Store) Subscribe(fn func(State)) func() {
	store.mu.Lock()
	defer store.mu.Unlock()

	id := store.nextListener
	store.nextListener++
	store.subscribers[id] = fn

	return func() {
		store.mu.Lock()
		defer store.mu.Unlock()
		delete(store.subscribers, id)
	}
}

// Wait blocks until background logout notifications have finished.
func (store *Store) Wait() {
	store.notifications.Wait()
}

// # State Transitions

// set applies mutate and notifies subscribers without touching storage.
func (store *Store) set(mutate func(*State)) State {
	store.mu.Lock()
	mutate(&store.state)
	next := store.state
	listeners := make([]func(State), 0, len(store.subscribers))
	for _, fn := range store.subscribers {
		listeners = append(listeners, fn)
	}
	store.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// commit applies mutate and writes the persisted subset to storage.
// A failed write is logged; the in-memory transition still stands.
func (store *Store) commit(ctx context.Context, mutate func(*State)) {
	store.set(mutate)

	store.persistMu.Lock()
	defer store.persistMu.Unlock()

	blob, err := encode(Partialize(store.State()))
	if err == nil {
		err = store.storage.Set(context.WithoutCancel(ctx), constants.StorageKeySession, blob)
	}
	if err != nil {
		store.logger.WarnContext(ctx, "session_persist_failed", slog.Any("error", err))
	}
}
