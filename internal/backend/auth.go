// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend

import (
	"context"
	"net/http"

	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/constants"
	"github.com/taibuivan/teamdesk/internal/transport"
	"github.com/taibuivan/teamdesk/pkg/textnorm"
)

// AuthClient calls the /auth routes.
type AuthClient struct {
	doer Doer
}

// NewAuthClient creates an AuthClient.
func NewAuthClient(doer Doer) *AuthClient {
	return &AuthClient{doer: doer}
}

// Login exchanges credentials for a token pair and the user profile.
func (client *AuthClient) Login(ctx context.Context, credentials model.LoginRequest) (*model.AuthResponse, error) {
	credentials.Email = textnorm.Email(credentials.Email)

	response, err := call[model.AuthResponse](ctx, client.doer, "login", &transport.Request{
		Method: http.MethodPost,
		Path:   constants.PathLogin,
		Body:   credentials,
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// Register creates an account and returns the same shape as [AuthClient.Login].
func (client *AuthClient) Register(ctx context.Context, data model.RegisterRequest) (*model.AuthResponse, error) {
	data.Email = textnorm.Email(data.Email)

	response, err := call[model.AuthResponse](ctx, client.doer, "register", &transport.Request{
		Method: http.MethodPost,
		Path:   constants.PathRegister,
		Body:   data,
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// Logout notifies the backend that the session holding accessToken ended.
// The call never triggers a token refresh.
func (client *AuthClient) Logout(ctx context.Context, accessToken string) error {
	return exec(ctx, client.doer, "logout", &transport.Request{
		Method:    http.MethodPost,
		Path:      constants.PathLogout,
		Bearer:    accessToken,
		NoRefresh: true,
	})
}

// CurrentUser fetches the profile of the token's owner.
func (client *AuthClient) CurrentUser(ctx context.Context) (*model.User, error) {
	user, err := call[model.User](ctx, client.doer, "current user", &transport.Request{
		Method: http.MethodGet,
		Path:   constants.PathMe,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
