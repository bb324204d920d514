// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend

import (
	"context"
	"net/http"

	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/constants"
	"github.com/taibuivan/teamdesk/internal/transport"
)

// Health calls the unauthenticated liveness route.
func Health(ctx context.Context, doer Doer) (*model.HealthStatus, error) {
	status, err := call[model.HealthStatus](ctx, doer, "health", &transport.Request{
		Method:    http.MethodGet,
		Path:      constants.PathHealth,
		NoRefresh: true,
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}
