// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package app

import (
	"context"
	"log/slog"

	"github.com/taibuivan/teamdesk/internal/backend"
	"github.com/taibuivan/teamdesk/internal/platform/apperr"
	"github.com/taibuivan/teamdesk/internal/platform/constants"
)

// CheckResult is the outcome of one dependency probe.
type CheckResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Readiness summarizes every probe.
type Readiness struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Ready reports whether every probe passed.
func (r Readiness) Ready() bool {
	return r.Status == "ready"
}

/*
CheckReadiness probes durable storage and the backend.

Description: Storage is probed with a read of the session key; the backend
with its liveness route. A failed probe degrades the report but never
returns an error.
*/
func (application *App) CheckReadiness(ctx context.Context) Readiness {
	checks := []struct {
		name  string
		probe func(context.Context) error
	}{
		{
			name: "storage:" + application.Config.StorageDriver,
			probe: func(ctx context.Context) error {
				_, _, err := application.Storage.Get(ctx, constants.StorageKeySession)
				return err
			},
		},
		{
			name: "backend",
			probe: func(ctx context.Context) error {
				_, err := backend.Health(ctx, application.Pipeline)
				return err
			},
		},
	}

	report := Readiness{Status: "ready", Checks: make([]CheckResult, 0, len(checks))}

	for _, check := range checks {
		result := CheckResult{Name: check.name, IsOK: true}
		if err := check.probe(ctx); err != nil {
			result.IsOK = false
			result.Error = apperr.Normalize(err).Message
			report.Status = "degraded"
			application.Logger.WarnContext(ctx, "readiness_check_failed",
				slog.String("dependency", check.name),
				slog.Any("error", err),
			)
		}
		report.Checks = append(report.Checks, result)
	}

	return report
}
