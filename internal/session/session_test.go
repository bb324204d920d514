// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/apperr"
	"github.com/taibuivan/teamdesk/internal/session"
	"github.com/taibuivan/teamdesk/internal/storage"
	"github.com/taibuivan/teamdesk/internal/tokens"
	"github.com/taibuivan/teamdesk/pkg/pointer"
)

// fakeAuth scripts the auth API.
type fakeAuth struct {
	mu sync.Mutex

	authErr     error
	meErr       error
	me          *model.User
	logoutCalls []string
}

func (f *fakeAuth) response() (*model.AuthResponse, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &model.AuthResponse{
		AccessToken:  "a1",
		RefreshToken: "r1",
		User:         model.User{ID: "7", Email: "ada@example.com", FirstName: "Ada", Role: model.RoleAdmin, TeamID: pointer.To(int64(3))},
	}, nil
}

func (f *fakeAuth) Login(context.Context, model.LoginRequest) (*model.AuthResponse, error) {
	return f.response()
}

func (f *fakeAuth) Register(context.Context, model.RegisterRequest) (*model.AuthResponse, error) {
	return f.response()
}

func (f *fakeAuth) Logout(_ context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls = append(f.logoutCalls, accessToken)
	return errors.New("logout endpoint is down")
}

func (f *fakeAuth) CurrentUser(context.Context) (*model.User, error) {
	return f.me, f.meErr
}

type fixture struct {
	auth    *fakeAuth
	storage *storage.MemoryStore
	tokens  *tokens.Store
	store   *session.Store
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := storage.NewMemoryStore()
	tokenStore := tokens.NewStore(backend, logger)
	auth := &fakeAuth{}

	return &fixture{
		auth:    auth,
		storage: backend,
		tokens:  tokenStore,
		store:   session.NewStore(auth, tokenStore, backend, logger),
	}
}

func (f *fixture) tokenPair() (string, string) {
	access, _ := f.tokens.Get(context.Background(), tokens.Access)
	refresh, _ := f.tokens.Get(context.Background(), tokens.Refresh)
	return access, refresh
}

func invalidCredentials() error {
	return apperr.NewResponseError(http.MethodPost, "http://api.test/auth/login", http.StatusUnauthorized,
		[]byte(`{"detail": "Incorrect email or password"}`))
}

/*
TestStore_Authenticate covers both credential exchanges, success and failure.
*/
func TestStore_Authenticate(t *testing.T) {
	exchanges := map[string]func(*session.Store) error{
		"login": func(s *session.Store) error {
			return s.Login(context.Background(), model.LoginRequest{Email: "ada@example.com", Password: "pw"})
		},
		"register": func(s *session.Store) error {
			return s.Register(context.Background(), model.RegisterRequest{Email: "ada@example.com", Password: "pw"})
		},
	}

	for name, exchange := range exchanges {
		t.Run(name+"_success", func(t *testing.T) {
			f := newFixture()

			var observed []session.State
			f.store.Subscribe(func(state session.State) { observed = append(observed, state) })

			require.NoError(t, exchange(f.store))

			state := f.store.State()
			assert.True(t, state.IsAuthenticated)
			require.NotNil(t, state.User)
			assert.Equal(t, model.FlexID("7"), state.User.ID)
			assert.False(t, state.IsLoading)
			assert.Empty(t, state.Error)

			access, refresh := f.tokenPair()
			assert.Equal(t, "a1", access)
			assert.Equal(t, "r1", refresh)

			require.NotEmpty(t, observed)
			assert.True(t, observed[0].IsLoading)
		})

		t.Run(name+"_failure", func(t *testing.T) {
			f := newFixture()
			f.auth.authErr = invalidCredentials()

			err := exchange(f.store)
			require.Error(t, err)
			assert.True(t, apperr.IsUnauthorized(err))

			state := f.store.State()
			assert.False(t, state.IsAuthenticated)
			assert.Nil(t, state.User)
			assert.False(t, state.IsLoading)
			assert.Equal(t, "Incorrect email or password", state.Error)

			access, refresh := f.tokenPair()
			assert.Empty(t, access)
			assert.Empty(t, refresh)
		})
	}
}

/*
TestStore_LoginClearsPreviousError verifies a new attempt starts without the old error.
*/
func TestStore_LoginClearsPreviousError(t *testing.T) {
	f := newFixture()
	f.auth.authErr = invalidCredentials()
	require.Error(t, f.store.Login(context.Background(), model.LoginRequest{}))

	f.auth.authErr = nil
	require.NoError(t, f.store.Login(context.Background(), model.LoginRequest{}))
	assert.Empty(t, f.store.State().Error)
}

/*
TestStore_LogoutIsIdempotent verifies two logouts end in the same state as one.
*/
func TestStore_LogoutIsIdempotent(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Login(context.Background(), model.LoginRequest{}))

	f.store.Logout(context.Background())
	first := f.store.State()
	f.store.Logout(context.Background())
	f.store.Wait()

	assert.Equal(t, session.Anonymous(), first)
	assert.Equal(t, first, f.store.State())

	access, refresh := f.tokenPair()
	assert.Empty(t, access)
	assert.Empty(t, refresh)

	// The notification carries the token captured before clearing; its failure is ignored.
	assert.ElementsMatch(t, []string{"a1", ""}, f.auth.logoutCalls)
}

/*
TestStore_RefreshUser covers the no-op, success, and teardown paths.
*/
func TestStore_RefreshUser(t *testing.T) {
	t.Run("anonymous_is_noop", func(t *testing.T) {
		f := newFixture()
		f.auth.meErr = errors.New("must not be called")

		require.NoError(t, f.store.RefreshUser(context.Background()))
		assert.Equal(t, session.Anonymous(), f.store.State())
	})

	t.Run("success_replaces_user", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.store.Login(context.Background(), model.LoginRequest{}))
		f.auth.me = &model.User{ID: "7", Email: "ada@example.com", FirstName: "Augusta", Role: model.RoleAdmin}

		require.NoError(t, f.store.RefreshUser(context.Background()))

		state := f.store.State()
		assert.True(t, state.IsAuthenticated)
		assert.Equal(t, "Augusta", state.User.FirstName)
		assert.False(t, state.IsLoading)
	})

	t.Run("failure_logs_out", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.store.Login(context.Background(), model.LoginRequest{}))
		f.auth.meErr = invalidCredentials()

		require.Error(t, f.store.RefreshUser(context.Background()))
		f.store.Wait()

		assert.Equal(t, session.Anonymous(), f.store.State())
		access, _ := f.tokenPair()
		assert.Empty(t, access)
	})
}

/*
TestStore_CancelledContext verifies a cancelled caller never splits memory from durable storage.
*/
func TestStore_CancelledContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	tokenStore := tokens.NewStore(backend, logger)
	auth := &fakeAuth{}
	store := session.NewStore(auth, tokenStore, backend, logger)
	require.NoError(t, store.Login(context.Background(), model.LoginRequest{}))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	restored := func() session.State {
		restarted := session.NewStore(auth, tokenStore, backend, logger)
		restarted.Restore(context.Background())
		return restarted.State()
	}

	// ── Abandoned refresh keeps the session ───────────────────────────────
	auth.meErr = context.Canceled
	require.ErrorIs(t, store.RefreshUser(cancelled), context.Canceled)

	state := store.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.True(t, restored().IsAuthenticated)

	access, ok := tokenStore.Get(context.Background(), tokens.Access)
	assert.True(t, ok)
	assert.Equal(t, "a1", access)

	// ── Logout still reaches storage ──────────────────────────────────────
	store.Logout(cancelled)
	store.Wait()

	assert.False(t, store.State().IsAuthenticated)
	assert.False(t, restored().IsAuthenticated)

	_, ok = tokenStore.Get(context.Background(), tokens.Access)
	assert.False(t, ok)
	_, ok = tokenStore.Get(context.Background(), tokens.Refresh)
	assert.False(t, ok)
}

func TestStore_ClearErrorAndSetLoading(t *testing.T) {
	f := newFixture()
	f.auth.authErr = invalidCredentials()
	require.Error(t, f.store.Login(context.Background(), model.LoginRequest{}))

	f.store.SetLoading(true)
	f.store.ClearError()

	state := f.store.State()
	assert.Empty(t, state.Error)
	assert.True(t, state.IsLoading, "ClearError touches nothing but the error")
}

/*
TestStore_SurvivesRestart verifies a second store over the same storage resumes the session.
*/
func TestStore_SurvivesRestart(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.store.Login(context.Background(), model.LoginRequest{}))
	f.store.SetLoading(true)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	restarted := session.NewStore(f.auth, f.tokens, f.storage, logger)
	restarted.Restore(context.Background())

	state := restarted.State()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, model.FlexID("7"), state.User.ID)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Error)

	teamID, ok := restarted.CurrentTeamID()
	assert.True(t, ok)
	assert.Equal(t, int64(3), teamID)
}

func TestStore_RestoreRejectsBadBlobs(t *testing.T) {
	blobs := map[string]string{
		"corrupt":       `{not json`,
		"wrong_version": `{"state":{"user":{"id":1},"isAuthenticated":true},"version":9}`,
		"no_user":       `{"state":{"user":null,"isAuthenticated":true},"version":0}`,
	}

	for name, blob := range blobs {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			require.NoError(t, f.storage.Set(context.Background(), "auth-storage", blob))

			f.store.Restore(context.Background())
			assert.Equal(t, session.Anonymous(), f.store.State())

			_, ok := f.store.CurrentTeamID()
			assert.False(t, ok)
		})
	}
}

/*
TestPartializeRehydrate verifies only user and the authenticated flag cross a restart.
*/
func TestPartializeRehydrate(t *testing.T) {
	lastLogin := model.At(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	user := &model.User{ID: "7", Email: "ada@example.com", LastLogin: &lastLogin}

	full := session.State{User: user, IsAuthenticated: true, IsLoading: true, Error: "stale"}
	persisted := session.Partialize(full)
	assert.Equal(t, session.Persisted{User: user, IsAuthenticated: true}, persisted)

	restored := session.Rehydrate(persisted)
	assert.Equal(t, session.State{User: user, IsAuthenticated: true}, restored)

	assert.Equal(t, session.Anonymous(), session.Rehydrate(session.Persisted{IsAuthenticated: true}))
}
