// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package watch keeps the session and roster fresh on a cron schedule.

Each tick re-fetches the current user and, while the session is still
authenticated and has a team, reloads that team's roster. A failed tick is
logged and the schedule carries on.
*/
package watch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// # Collaborators

// Session is the subset of [session.Store] a tick needs.
type Session interface {
	RefreshUser(ctx context.Context) error
	CurrentTeamID() (int64, bool)
}

// Roster is the subset of [roster.Store] a tick needs.
type Roster interface {
	Reload(ctx context.Context) error
}

// Scheduler runs ticks on a cron spec.
type Scheduler struct {
	cron    *cron.Cron
	session Session
	roster  Roster
	logger  *slog.Logger

	// ctx scopes every scheduled tick; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	// onTick, when set, observes the outcome of every scheduled tick.
	onTick func(error)
}

/*
New validates schedule and builds a stopped Scheduler.

Parameters:
  - schedule: Standard cron spec or descriptor such as "@every 30s"
  - session: Session
  - roster: Roster
  - logger: *slog.Logger
  - onTick: Optional observer of each scheduled tick's result

Returns:
  - *Scheduler: Call Start to begin
  - error: Unparseable schedule
*/
func New(schedule string, session Session, roster Roster, logger *slog.Logger, onTick func(error)) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())

	scheduler := &Scheduler{
		cron:    cron.New(),
		session: session,
		roster:  roster,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		onTick:  onTick,
	}

	if _, err := scheduler.cron.AddFunc(schedule, scheduler.run); err != nil {
		cancel()
		return nil, fmt.Errorf("watch: invalid schedule %q: %w", schedule, err)
	}

	return scheduler, nil
}

// Start begins running ticks in the background.
func (scheduler *Scheduler) Start() {
	scheduler.cron.Start()
	scheduler.logger.Info("watch_started", slog.Int("jobs", len(scheduler.cron.Entries())))
}

// Stop halts the schedule, cancels a running tick, and waits for it to return.
func (scheduler *Scheduler) Stop() {
	scheduler.cancel()
	<-scheduler.cron.Stop().Done()
	scheduler.logger.Info("watch_stopped")
}

// run is the cron job.
func (scheduler *Scheduler) run() {
	err := scheduler.Tick(scheduler.ctx)
	if scheduler.onTick != nil {
		scheduler.onTick(err)
	}
}

/*
Tick refreshes the user, then reloads the roster of the user's team.

Returns:
  - error: The first failure; the roster is not reloaded after a failed refresh
*/
func (scheduler *Scheduler) Tick(ctx context.Context) error {
	if err := scheduler.session.RefreshUser(ctx); err != nil {
		scheduler.logger.WarnContext(ctx, "watch_refresh_user_failed", slog.Any("error", err))
		return err
	}

	if _, ok := scheduler.session.CurrentTeamID(); !ok {
		scheduler.logger.DebugContext(ctx, "watch_skipped_no_team")
		return nil
	}

	if err := scheduler.roster.Reload(ctx); err != nil {
		scheduler.logger.WarnContext(ctx, "watch_roster_reload_failed", slog.Any("error", err))
		return err
	}

	scheduler.logger.DebugContext(ctx, "watch_tick_completed")
	return nil
}
