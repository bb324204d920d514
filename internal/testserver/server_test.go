// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package testserver_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/teamdesk/internal/backend"
	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/apperr"
	"github.com/taibuivan/teamdesk/internal/storage"
	"github.com/taibuivan/teamdesk/internal/testserver"
	"github.com/taibuivan/teamdesk/internal/tokens"
	"github.com/taibuivan/teamdesk/internal/transport"
)

// client bundles typed clients bound to one token store.
type client struct {
	auth   *backend.AuthClient
	team   *backend.TeamClient
	tokens *tokens.Store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T) *testserver.Server {
	t.Helper()
	server, err := testserver.Start(discardLogger())
	require.NoError(t, err)
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, server *testserver.Server) *client {
	t.Helper()

	tokenStore := tokens.NewStore(storage.NewMemoryStore(), discardLogger())
	pipeline, err := transport.New(transport.Options{BaseURL: server.URL}, tokenStore, nil, discardLogger())
	require.NoError(t, err)

	return &client{
		auth:   backend.NewAuthClient(pipeline),
		team:   backend.NewTeamClient(pipeline),
		tokens: tokenStore,
	}
}

// signIn stores the tokens of an auth response, as the session does.
func (c *client) signIn(t *testing.T, response *model.AuthResponse) {
	t.Helper()
	require.NoError(t, c.tokens.Set(context.Background(), response.AccessToken, response.RefreshToken))
}

var admin = model.RegisterRequest{Email: "Ada@Example.com", Password: "secret-1", FirstName: "ada", LastName: "lovelace"}

/*
TestServer_RegistrationIsFirstUserOnly verifies the first registration founds a team and later ones are refused.
*/
func TestServer_RegistrationIsFirstUserOnly(t *testing.T) {
	server := startServer(t)
	c := newClient(t, server)
	ctx := context.Background()

	first, err := c.auth.Register(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", first.User.Email)
	assert.Equal(t, model.RoleAdmin, first.User.Role)
	require.NotNil(t, first.User.TeamID)
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEmpty(t, first.RefreshToken)

	_, err = c.auth.Register(ctx, model.RegisterRequest{Email: "bob@example.com", Password: "pw", FirstName: "Bob", LastName: "B"})
	require.Error(t, err)

	status, ok := apperr.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, apperr.Normalize(err).Message, "Registration is closed")
}

/*
TestServer_Login covers credential checks and the returned identity.
*/
func TestServer_Login(t *testing.T) {
	server := startServer(t)
	c := newClient(t, server)
	ctx := context.Background()

	_, err := c.auth.Register(ctx, admin)
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"correct_password", "secret-1", ""},
		{"wrong_password", "nope", "Incorrect email or password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := c.auth.Login(ctx, model.LoginRequest{Email: "ada@example.com", Password: tt.password})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, apperr.Normalize(err).Message)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, response.User.LastLogin)
		})
	}
}

/*
TestServer_ValidationErrorCarriesField verifies field-level rejections surface as ValidationFailed.
*/
func TestServer_ValidationErrorCarriesField(t *testing.T) {
	server := startServer(t)
	c := newClient(t, server)

	_, err := c.auth.Register(context.Background(), model.RegisterRequest{Email: "not-an-email", Password: "pw", FirstName: "A", LastName: "B"})
	require.Error(t, err)

	normalized := apperr.Normalize(err)
	assert.Equal(t, apperr.KindValidationFailed, normalized.Kind)
	assert.Equal(t, "email", normalized.Field)
}

/*
TestServer_RosterLifecycle walks invite, accept, role change, and removal through the snapshot.
*/
func TestServer_RosterLifecycle(t *testing.T) {
	server := startServer(t)
	c := newClient(t, server)
	ctx := context.Background()

	registered, err := c.auth.Register(ctx, admin)
	require.NoError(t, err)
	c.signIn(t, registered)
	teamID := *registered.User.TeamID

	// ── Invite ────────────────────────────────────────────────────────────
	invitation, err := c.team.Invite(ctx, model.InviteRequest{Email: "Bob@Example.com", Role: model.RoleMember, TeamID: teamID})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", invitation.Email)
	assert.NotEmpty(t, invitation.Token)
	assert.False(t, invitation.IsUsed)

	_, err = c.team.Invite(ctx, model.InviteRequest{Email: "bob@example.com", Role: model.RoleMember, TeamID: teamID})
	require.Error(t, err)
	assert.Equal(t, "An active invitation already exists for this email", apperr.Normalize(err).Message)

	snapshot, err := c.team.MembersWithInvitations(ctx, teamID)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.TotalMembers)
	assert.Equal(t, 1, snapshot.PendingInvitations)
	require.Len(t, snapshot.MembersAndInvitations, 2)
	assert.Equal(t, model.EntryMember, snapshot.MembersAndInvitations[0].Type)
	assert.Equal(t, model.EntryInvitation, snapshot.MembersAndInvitations[1].Type)

	// ── Accept ────────────────────────────────────────────────────────────
	token, ok := server.InvitationToken("bob@example.com")
	require.True(t, ok)
	assert.Equal(t, invitation.Token, token)

	accepted, err := c.team.AcceptInvitation(ctx, token, model.AcceptInvitationRequest{FirstName: "Bob", LastName: "Byte", Password: "pw-bob"})
	require.NoError(t, err)
	assert.Equal(t, "Invitation accepted successfully", accepted.Message)
	assert.Equal(t, model.RoleMember, accepted.User.Role)

	_, err = c.team.AcceptInvitation(ctx, token, model.AcceptInvitationRequest{FirstName: "Bob", LastName: "Byte", Password: "pw-bob"})
	require.Error(t, err)
	assert.Equal(t, "Invitation not found or has expired", apperr.Normalize(err).Message)

	snapshot, err = c.team.MembersWithInvitations(ctx, teamID)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.TotalMembers)
	assert.Equal(t, 0, snapshot.PendingInvitations)

	// ── Role change ───────────────────────────────────────────────────────
	bobID := accepted.User.ID.String()
	updated, err := c.team.UpdateMemberRole(ctx, bobID, model.RoleUpdate{Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)

	_, err = c.team.UpdateMemberRole(ctx, bobID, model.RoleUpdate{Role: "owner"})
	require.Error(t, err)
	assert.Equal(t, "Invalid role. Must be 'admin' or 'member'", apperr.Normalize(err).Message)

	// ── Remove ────────────────────────────────────────────────────────────
	require.NoError(t, c.team.RemoveMember(ctx, bobID))

	err = c.team.RemoveMember(ctx, "999")
	require.Error(t, err)
	assert.Equal(t, "Member not found", apperr.Normalize(err).Message)

	snapshot, err = c.team.MembersWithInvitations(ctx, teamID)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.TotalMembers)
}

/*
TestServer_LastAdminIsProtected verifies the sole admin can neither demote nor remove itself.
*/
func TestServer_LastAdminIsProtected(t *testing.T) {
	server := startServer(t)
	c := newClient(t, server)
	ctx := context.Background()

	registered, err := c.auth.Register(ctx, admin)
	require.NoError(t, err)
	c.signIn(t, registered)
	selfID := registered.User.ID.String()

	_, err = c.team.UpdateMemberRole(ctx, selfID, model.RoleUpdate{Role: model.RoleMember})
	require.Error(t, err)
	assert.Equal(t, "Cannot demote the last admin of the team", apperr.Normalize(err).Message)

	err = c.team.RemoveMember(ctx, selfID)
	require.Error(t, err)
	assert.Equal(t, "Cannot remove the last admin of the team", apperr.Normalize(err).Message)
}

/*
TestServer_MemberCannotManage verifies admin-only routes refuse members and foreign teams.
*/
func TestServer_MemberCannotManage(t *testing.T) {
	server := startServer(t)
	adminClient := newClient(t, server)
	ctx := context.Background()

	registered, err := adminClient.auth.Register(ctx, admin)
	require.NoError(t, err)
	adminClient.signIn(t, registered)
	teamID := *registered.User.TeamID

	_, err = adminClient.team.Invite(ctx, model.InviteRequest{Email: "bob@example.com", TeamID: teamID})
	require.NoError(t, err)
	token, _ := server.InvitationToken("bob@example.com")
	_, err = adminClient.team.AcceptInvitation(ctx, token, model.AcceptInvitationRequest{FirstName: "Bob", LastName: "Byte", Password: "pw-bob"})
	require.NoError(t, err)

	member := newClient(t, server)
	loggedIn, err := member.auth.Login(ctx, model.LoginRequest{Email: "bob@example.com", Password: "pw-bob"})
	require.NoError(t, err)
	member.signIn(t, loggedIn)

	_, err = member.team.Invite(ctx, model.InviteRequest{Email: "eve@example.com", TeamID: teamID})
	require.Error(t, err)
	assert.Equal(t, "Admin access required", apperr.Normalize(err).Message)

	_, err = member.team.MembersWithInvitations(ctx, teamID+1)
	require.Error(t, err)
	status, _ := apperr.StatusCode(err)
	assert.Equal(t, http.StatusForbidden, status)
}

/*
TestServer_Knobs verifies expired access tokens force a refresh and rejected refreshes surface as RefreshError.
*/
func TestServer_Knobs(t *testing.T) {
	server := startServer(t)
	c := newClient(t, server)
	ctx := context.Background()

	registered, err := c.auth.Register(ctx, admin)
	require.NoError(t, err)
	c.signIn(t, registered)

	server.ExpireAccessTokens()

	user, err := c.auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, 1, server.Hits(http.MethodPost, "/auth/refresh"))
	assert.Equal(t, 2, server.Hits(http.MethodGet, "/auth/me"))

	rotated, ok := c.tokens.Get(ctx, tokens.Access)
	require.True(t, ok)
	assert.NotEqual(t, registered.AccessToken, rotated)

	refresh, ok := c.tokens.Get(ctx, tokens.Refresh)
	require.True(t, ok)
	assert.Equal(t, registered.RefreshToken, refresh, "refresh token is not rotated")

	server.ExpireAccessTokens()
	server.RejectRefresh(true)

	_, err = c.auth.CurrentUser(ctx)
	require.Error(t, err)

	var refreshError *apperr.RefreshError
	require.ErrorAs(t, err, &refreshError)
	assert.Equal(t, apperr.KindRefreshFailed, apperr.Normalize(err).Kind)

	_, ok = c.tokens.Get(ctx, tokens.Access)
	assert.False(t, ok, "a failed refresh purges storage")
}

/*
TestServer_RequestIDIsEchoed verifies the correlation id round-trips.
*/
func TestServer_RequestIDIsEchoed(t *testing.T) {
	server := startServer(t)

	request, err := http.NewRequest(http.MethodPost, server.URL+"/auth/logout", strings.NewReader(""))
	require.NoError(t, err)
	request.Header.Set("X-Request-ID", "req-42")

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "req-42", response.Header.Get("X-Request-ID"))
}

/*
TestServer_AccessTTL verifies issued access tokens carry the configured lifetime.
*/
func TestServer_AccessTTL(t *testing.T) {
	server := startServer(t)
	c := newClient(t, server)
	ctx := context.Background()

	server.SetAccessTTL(2 * time.Minute)

	registered, err := c.auth.Register(ctx, admin)
	require.NoError(t, err)
	c.signIn(t, registered)

	expiry, ok := c.tokens.AccessExpiry(ctx)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), expiry, 5*time.Second)
}
