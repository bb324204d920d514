// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command teamctl is the command-line front end of the teamdesk client.
//
// # Startup Sequence
//
//  1. Initialize structured logger (JSON on stderr).
//  2. Load configuration from the environment and an optional .env file.
//  3. Wire the client graph and restore the persisted session.
//  4. Run one subcommand, or the watch loop until interrupted.
//  5. Wait for background logout notifications and release storage.
//
// No business logic lives here. Every failure is printed as its normalized
// message and exits with status 1.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/taibuivan/teamdesk/internal/app"
	"github.com/taibuivan/teamdesk/internal/platform/apperr"
	"github.com/taibuivan/teamdesk/internal/platform/config"
	"github.com/taibuivan/teamdesk/internal/platform/constants"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one invocation and returns the process exit code.
func run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage()
		return 2
	}

	command, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "teamctl: unknown command %q\n\n", args[0])
		usage()
		return 2
	}

	// ── 1. Logger ──────────────────────────────────────────────────────────
	logger := newLogger(slog.LevelInfo)

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		logger.Error("startup_failure", slog.String("context", "load configuration"), slog.Any("error", err))
		return 1
	}

	if cfg.Debug {
		logger = newLogger(slog.LevelDebug)
		logger.Debug("debug_logging_enabled")
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 3. Client graph ───────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, logger, app.Options{
		OnLoginRequired: func(_ context.Context, target string) {
			fmt.Fprintf(os.Stderr, "Your session has expired. Please log in again (%s).\n", target)
		},
	})
	if err != nil {
		logger.Error("startup_failure", slog.String("context", "wire client"), slog.Any("error", err))
		return 1
	}

	// ── 5. Shutdown ───────────────────────────────────────────────────────
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		if err := application.Close(shutdownCtx); err != nil {
			logger.Warn("shutdown_incomplete", slog.Any("error", err))
		}
	}()

	// ── 4. Command ────────────────────────────────────────────────────────
	if err := command.run(ctx, application, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintln(os.Stderr, apperr.Normalize(err).Message)
		return 1
	}

	return 0
}

// newLogger builds the JSON stderr logger tagged with the app name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String(constants.FieldApp, constants.AppName))
}

// usage prints the command summary.
func usage() {
	fmt.Fprintf(os.Stderr, "%s %s\n\nUsage: teamctl <command> [flags]\n\nCommands:\n", constants.AppName, constants.AppVersion)

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", name, commands[name].summary)
	}

	fmt.Fprintln(os.Stderr, "\nConfiguration is read from TEAMDESK_* environment variables and an optional .env file.")
}
