// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package app is the composition root of the teamdesk client.

It builds every component from a [config.Config] in dependency order and
hands the wired graph to front ends such as cmd/teamctl.

# Wiring Order

 1. Durable storage selected by the configured driver.
 2. Token store over that storage.
 3. Authenticated request pipeline over the token store.
 4. Typed backend clients over the pipeline.
 5. Session store, restored from storage.
 6. Roster store, resolving its team through the session.

No business logic lives here. All wiring is explicit constructor injection.
*/
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/teamdesk/internal/backend"
	"github.com/taibuivan/teamdesk/internal/platform/config"
	"github.com/taibuivan/teamdesk/internal/roster"
	"github.com/taibuivan/teamdesk/internal/session"
	"github.com/taibuivan/teamdesk/internal/storage"
	"github.com/taibuivan/teamdesk/internal/tokens"
	"github.com/taibuivan/teamdesk/internal/transport"
)

// Options are the optional hooks of [New].
type Options struct {
	// OnLoginRequired runs after a rejected refresh has purged storage and
	// the session has been reloaded. target is the login entry point.
	OnLoginRequired func(ctx context.Context, target string)
}

// App is the wired client.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Storage  storage.Store
	Tokens   *tokens.Store
	Pipeline *transport.Client
	Auth     *backend.AuthClient
	Team     *backend.TeamClient
	Session  *session.Store
	Roster   *roster.Store

	options Options
}

/*
New builds the client graph and restores the persisted session.

Parameters:
  - ctx: context.Context (bounds storage bootstrap)
  - cfg: *config.Config
  - logger: *slog.Logger
  - options: Options

Returns:
  - *App: Ready to use; call Close when done
  - error: Storage or pipeline construction failure
*/
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, options Options) (*App, error) {
	application := &App{Config: cfg, Logger: logger, options: options}

	// ── 1. Storage ────────────────────────────────────────────────────────
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app: open storage: %w", err)
	}
	application.Storage = store

	// ── 2. Tokens ─────────────────────────────────────────────────────────
	application.Tokens = tokens.NewStore(store, logger)

	// ── 3. Pipeline ───────────────────────────────────────────────────────
	pipeline, err := transport.New(transport.Options{
		BaseURL:        cfg.APIURL,
		Timeout:        cfg.RequestTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, application.Tokens, transport.NavigatorFunc(application.navigate), logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: build pipeline: %w", err)
	}
	application.Pipeline = pipeline

	// ── 4. Backend clients ────────────────────────────────────────────────
	application.Auth = backend.NewAuthClient(pipeline)
	application.Team = backend.NewTeamClient(pipeline)

	// ── 5. Session ────────────────────────────────────────────────────────
	application.Session = session.NewStore(application.Auth, application.Tokens, store, logger)
	application.Session.Restore(ctx)

	// ── 6. Roster ─────────────────────────────────────────────────────────
	application.Roster = roster.NewStore(application.Team, application.Session, logger)

	logger.DebugContext(ctx, "app_initialized",
		slog.String("api_url", cfg.APIURL),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.Bool("authenticated", application.Session.State().IsAuthenticated),
	)

	return application, nil
}

// navigate handles the pipeline's forced logout. Storage is already purged,
// so reloading the session drops it to anonymous.
func (application *App) navigate(ctx context.Context, target string) {
	application.Session.Restore(ctx)
	application.Roster.Reset()

	application.Logger.WarnContext(ctx, "login_required", slog.String("target", target))

	if application.options.OnLoginRequired != nil {
		application.options.OnLoginRequired(ctx, target)
	}
}

/*
Close waits for background logout notifications, then releases storage.

Parameters:
  - ctx: context.Context (bounds the wait)

Returns:
  - error: Storage close failure, or ctx's error if the wait timed out
*/
func (application *App) Close(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		application.Session.Wait()
		close(drained)
	}()

	var waitErr error
	select {
	case <-drained:
	case <-ctx.Done():
		waitErr = fmt.Errorf("app: waiting for logout notification: %w", ctx.Err())
	}

	if err := application.Storage.Close(); err != nil {
		return fmt.Errorf("app: close storage: %w", err)
	}
	return waitErr
}
