// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package backend provides typed clients for the team-management API.

[AuthClient] covers the /auth routes and [TeamClient] the /team routes. Both
send every call through a [Doer] (normally the authenticated pipeline) and
return the pipeline's errors wrapped with the operation name, unchanged in kind.
*/
package backend

import (
	"context"
	"fmt"

	"github.com/taibuivan/teamdesk/internal/transport"
)

// Doer sends one logical request. [*transport.Client] implements it.
type Doer interface {
	Do(ctx context.Context, request *transport.Request) (*transport.Response, error)
}

// call sends request and decodes the answer into a T.
func call[T any](ctx context.Context, doer Doer, operation string, request *transport.Request) (T, error) {
	var result T

	response, err := doer.Do(ctx, request)
	if err != nil {
		return result, fmt.Errorf("backend: %s: %w", operation, err)
	}

	if err := response.Decode(&result); err != nil {
		return result, fmt.Errorf("backend: %s: %w", operation, err)
	}

	return result, nil
}

// exec sends request and discards any answer body.
func exec(ctx context.Context, doer Doer, operation string, request *transport.Request) error {
	if _, err := doer.Do(ctx, request); err != nil {
		return fmt.Errorf("backend: %s: %w", operation, err)
	}
	return nil
}
