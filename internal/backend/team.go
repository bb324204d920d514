// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/constants"
	"github.com/taibuivan/teamdesk/internal/transport"
	"github.com/taibuivan/teamdesk/pkg/textnorm"
)

// TeamClient calls the /team routes.
type TeamClient struct {
	doer Doer
}

// NewTeamClient creates a TeamClient.
func NewTeamClient(doer Doer) *TeamClient {
	return &TeamClient{doer: doer}
}

// MembersWithInvitations fetches the combined roster snapshot for a team.
func (client *TeamClient) MembersWithInvitations(ctx context.Context, teamID int64) (*model.RosterSnapshot, error) {
	snapshot, err := call[model.RosterSnapshot](ctx, client.doer, "members with invitations", &transport.Request{
		Method: http.MethodGet,
		Path:   constants.PathMembersWithInvitations,
		Query:  url.Values{"team_id": []string{strconv.FormatInt(teamID, 10)}},
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Invite creates a pending invitation.
func (client *TeamClient) Invite(ctx context.Context, request model.InviteRequest) (*model.Invitation, error) {
	request.Email = textnorm.Email(request.Email)

	invitation, err := call[model.Invitation](ctx, client.doer, "invite", &transport.Request{
		Method: http.MethodPost,
		Path:   constants.PathInvite,
		Body:   request,
	})
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// UpdateMemberRole changes a member's role and returns the updated account.
func (client *TeamClient) UpdateMemberRole(ctx context.Context, memberID string, update model.RoleUpdate) (*model.User, error) {
	member, err := call[model.User](ctx, client.doer, "update member role", &transport.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf(constants.PathMemberRole, pathSegment(memberID)),
		Body:   update,
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// RemoveMember deletes a member from the team.
func (client *TeamClient) RemoveMember(ctx context.Context, memberID string) error {
	return exec(ctx, client.doer, "remove member", &transport.Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf(constants.PathMember, pathSegment(memberID)),
	})
}

// AcceptInvitation turns an invitation token into an account.
func (client *TeamClient) AcceptInvitation(ctx context.Context, token string, request model.AcceptInvitationRequest) (*model.AcceptInvitationResponse, error) {
	response, err := call[model.AcceptInvitationResponse](ctx, client.doer, "accept invitation", &transport.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf(constants.PathAcceptInvitation, pathSegment(token)),
		Body:   request,
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// pathSegment escapes value as a single path segment. Dot segments are
// percent-encoded so they cannot climb out of the route.
func pathSegment(value string) string {
	if value == "." || value == ".." {
		return strings.Repeat("%2E", len(value))
	}
	return url.PathEscape(value)
}
