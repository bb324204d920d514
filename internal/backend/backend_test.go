// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/teamdesk/internal/backend"
	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/roster"
	"github.com/taibuivan/teamdesk/internal/storage"
	"github.com/taibuivan/teamdesk/internal/tokens"
	"github.com/taibuivan/teamdesk/internal/transport"
)

// Bodies as a FastAPI backend on SQLite renders them: naive UTC timestamps
// with microseconds and null optional fields.
const (
	loginBody = `{
		"access_token": "a1", "refresh_token": "r1", "token_type": "bearer", "expires_in": 1800,
		"user": {"email": "ada@example.com", "first_name": "Ada", "last_name": "Lovelace", "id": 1,
			"role": "admin", "team_id": 3, "created_at": "2025-01-02T03:04:05.123456",
			"last_login": "2025-01-05T10:00:00.5", "is_active": true}
	}`

	snapshotBody = `{"team_id": 3, "members_and_invitations": [
		{"id": 1, "email": "ada@example.com", "first_name": "Ada", "last_name": "Lovelace", "role": "admin",
		 "status": "active", "type": "member", "joined_at": "2025-01-02T03:04:05.123456", "invitation_id": null},
		{"id": null, "email": "bob@example.com", "first_name": null, "last_name": null, "role": "member",
		 "status": "pending", "type": "invitation", "joined_at": null, "invitation_id": 9,
		 "invited_at": "2025-01-03T08:00:00", "expires_at": "2025-01-10T08:00:00"}
	], "total_members": 1, "pending_invitations": 1}`

	invitationBody = `{"email": "eve@example.com", "role": "member", "id": 10, "team_id": 3, "token": "tok",
		"expires_at": "2025-01-10T08:00:00.000001", "is_used": false, "invited_by": 1,
		"accepted_at": null, "created_at": "2025-01-03T08:00:00.000001"}`
)

// recorder answers fixed bodies and remembers the raw request URIs.
type recorder struct {
	mu     sync.Mutex
	bodies map[string]string
	uris   []string
}

func (r *recorder) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.uris = append(r.uris, request.RequestURI)

	body, ok := r.bodies[request.Method+" "+request.URL.Path]
	if !ok {
		body = `{"message": "ok"}`
	}
	writer.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(writer, body)
}

func (r *recorder) URIs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.uris...)
}

func newClients(t *testing.T, bodies map[string]string) (*backend.AuthClient, *backend.TeamClient, *recorder) {
	t.Helper()

	rec := &recorder{bodies: bodies}
	server := httptest.NewServer(rec)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipeline, err := transport.New(transport.Options{BaseURL: server.URL}, tokens.NewStore(storage.NewMemoryStore(), logger), nil, logger)
	require.NoError(t, err)

	return backend.NewAuthClient(pipeline), backend.NewTeamClient(pipeline), rec
}

type fixedTeam int64

func (f fixedTeam) CurrentTeamID() (int64, bool) { return int64(f), true }

/*
TestClients_DecodeNaiveTimestamps verifies login, invite, and roster loading accept offset-less timestamps.
*/
func TestClients_DecodeNaiveTimestamps(t *testing.T) {
	auth, team, _ := newClients(t, map[string]string{
		"POST /auth/login":                   loginBody,
		"GET /team/members-with-invitations": snapshotBody,
		"POST /team/invite":                  invitationBody,
	})
	ctx := context.Background()

	// ── Login ─────────────────────────────────────────────────────────────
	response, err := auth.Login(ctx, model.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC), response.User.CreatedAt.Time)
	require.NotNil(t, response.User.LastLogin)
	assert.Equal(t, time.Date(2025, 1, 5, 10, 0, 0, 500000000, time.UTC), response.User.LastLogin.Time)

	// ── Roster ────────────────────────────────────────────────────────────
	store := roster.NewStore(team, fixedTeam(3), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, store.Load(ctx, 3))

	state := store.State()
	require.Len(t, state.Members, 1)
	require.NotNil(t, state.Members[0].JoinedAt)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC), state.Members[0].JoinedAt.Time)

	require.Len(t, state.PendingInvitations, 1)
	assert.Equal(t, time.Date(2025, 1, 3, 8, 0, 0, 0, time.UTC), state.PendingInvitations[0].CreatedAt.Time)
	assert.Equal(t, time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC), state.PendingInvitations[0].ExpiresAt.Time)

	// ── Invite ────────────────────────────────────────────────────────────
	require.NoError(t, store.Invite(ctx, model.InviteRequest{Email: "eve@example.com", Role: model.RoleMember, TeamID: 3}))
	invited := store.State().PendingInvitations[0]
	assert.Equal(t, int64(10), invited.ID)
	assert.Nil(t, invited.AcceptedAt)
	assert.Equal(t, time.Date(2025, 1, 10, 8, 0, 0, 1000, time.UTC), invited.ExpiresAt.Time)
}

/*
TestTeamClient_EscapesPathSegments verifies caller-supplied ids cannot change the route.
*/
func TestTeamClient_EscapesPathSegments(t *testing.T) {
	tests := []struct {
		name    string
		call    func(context.Context, *backend.TeamClient) error
		wantURI string
	}{
		{
			name: "member_with_slash",
			call: func(ctx context.Context, team *backend.TeamClient) error {
				return team.RemoveMember(ctx, "5/role")
			},
			wantURI: "/team/members/5%2Frole",
		},
		{
			name: "member_dot_segment",
			call: func(ctx context.Context, team *backend.TeamClient) error {
				_, err := team.UpdateMemberRole(ctx, "..", model.RoleUpdate{Role: model.RoleAdmin})
				return err
			},
			wantURI: "/team/members/%2E%2E/role",
		},
		{
			name: "token_with_traversal",
			call: func(ctx context.Context, team *backend.TeamClient) error {
				_, err := team.AcceptInvitation(ctx, "../members/1", model.AcceptInvitationRequest{})
				return err
			},
			wantURI: "/team/accept-invitation/..%2Fmembers%2F1",
		},
		{
			name: "plain_id",
			call: func(ctx context.Context, team *backend.TeamClient) error {
				return team.RemoveMember(ctx, "42")
			},
			wantURI: "/team/members/42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, team, rec := newClients(t, map[string]string{
				"PUT /team/members/../role": `{"id": 1, "email": "a@b.c", "role": "admin", "created_at": "2025-01-02T03:04:05"}`,
			})

			_ = tt.call(context.Background(), team)
			assert.Equal(t, []string{tt.wantURI}, rec.URIs())
		})
	}
}
