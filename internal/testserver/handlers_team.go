// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package testserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/apperr"
	"github.com/taibuivan/teamdesk/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/teamdesk/internal/platform/request"
	"github.com/taibuivan/teamdesk/internal/platform/respond"
	"github.com/taibuivan/teamdesk/internal/platform/sec"
	"github.com/taibuivan/teamdesk/internal/platform/validate"
	"github.com/taibuivan/teamdesk/pkg/pointer"
	"github.com/taibuivan/teamdesk/pkg/textnorm"
	"github.com/taibuivan/teamdesk/pkg/uuidv7"
)

// pendingStatus is the status the backend reports for invitation entries.
const pendingStatus model.MemberStatus = "pending"

// # Team Handlers

/*
membersWithInvitations returns the heterogeneous roster snapshot of one team.

Description: Active members come first in id order, then unused and unexpired
invitations in creation order. The caller must belong to the team.
*/
func (server *Server) membersWithInvitations(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	teamID, err := strconv.ParseInt(request.URL.Query().Get("team_id"), 10, 64)
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("team_id", "value is not a valid integer"))
		return
	}

	if claims.TeamID != teamID {
		respond.Error(writer, request, apperr.Forbidden("Not authorized to view this team's members"))
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	now := time.Now().UTC()
	snapshot := model.RosterSnapshot{
		TeamID:                teamID,
		MembersAndInvitations: []model.RosterEntry{},
	}

	for _, member := range server.accounts {
		if !member.user.IsActive || member.user.TeamID == nil || *member.user.TeamID != teamID {
			continue
		}

		snapshot.TotalMembers++
		snapshot.MembersAndInvitations = append(snapshot.MembersAndInvitations, model.RosterEntry{
			Type:      model.EntryMember,
			ID:        pointer.To(member.user.ID),
			Email:     member.user.Email,
			FirstName: pointer.To(member.user.FirstName),
			LastName:  pointer.To(member.user.LastName),
			Role:      member.user.Role,
			Status:    pointer.To(model.StatusActive),
			JoinedAt:  pointer.To(member.user.CreatedAt),
		})
	}

	for _, invitation := range server.invitations {
		if invitation.TeamID != teamID || invitation.IsUsed || !invitation.ExpiresAt.After(now) {
			continue
		}

		snapshot.PendingInvitations++
		snapshot.MembersAndInvitations = append(snapshot.MembersAndInvitations, model.RosterEntry{
			Type:         model.EntryInvitation,
			Email:        invitation.Email,
			Role:         invitation.Role,
			Status:       pointer.To(pendingStatus),
			InvitationID: pointer.To(invitation.ID),
			InvitedAt:    pointer.To(invitation.CreatedAt),
			ExpiresAt:    pointer.To(invitation.ExpiresAt),
		})
	}

	respond.OK(writer, snapshot)
}

// invite records a pending invitation for an email that has no account yet.
func (server *Server) invite(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body model.InviteRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if body.Role == "" {
		body.Role = model.RoleMember
	}

	validator := &validate.Validator{}
	validator.
		Email("email", body.Email).
		OneOf("role", string(body.Role), string(model.RoleAdmin), string(model.RoleMember))
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	inviterID, _ := strconv.ParseInt(claims.UserID, 10, 64)
	email := textnorm.Email(body.Email)
	now := time.Now().UTC()

	server.mu.Lock()
	defer server.mu.Unlock()

	if server.accountByEmail(email) != nil {
		respond.Error(writer, request, apperr.BadRequest("User with this email already exists"))
		return
	}

	if server.pendingInvitation(email, body.TeamID, now) {
		respond.Error(writer, request, apperr.BadRequest("An active invitation already exists for this email"))
		return
	}

	if _, ok := server.teams[body.TeamID]; !ok {
		respond.Error(writer, request, apperr.NotFound("Team"))
		return
	}

	server.nextInviteID++
	invitation := &model.Invitation{
		ID:        server.nextInviteID,
		Email:     email,
		Role:      body.Role,
		TeamID:    body.TeamID,
		Token:     uuidv7.New(),
		ExpiresAt: model.At(now.Add(invitationTTL)),
		InvitedBy: inviterID,
		CreatedAt: model.At(now),
	}
	server.invitations = append(server.invitations, invitation)

	ctxutil.GetLogger(request.Context()).InfoContext(request.Context(), "invitation_created",
		slog.Int64("invitation_id", invitation.ID),
		slog.Int64("team_id", invitation.TeamID),
	)

	respond.OK(writer, invitation)
}

// updateMemberRole changes a teammate's role, refusing to demote the last admin.
func (server *Server) updateMemberRole(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	memberID, err := parseMemberID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body model.RoleUpdate
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if !body.Role.Valid() {
		respond.Error(writer, request, apperr.BadRequest("Invalid role. Must be 'admin' or 'member'"))
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	member := server.accountByID(memberID)
	if member == nil {
		respond.Error(writer, request, apperr.NotFound("Member"))
		return
	}

	if !sameTeam(member, claims) {
		respond.Error(writer, request, apperr.Forbidden("Not authorized to modify this member"))
		return
	}

	if member.user.ID.String() == claims.UserID && body.Role != model.RoleAdmin && server.activeAdmins(claims.TeamID) <= 1 {
		respond.Error(writer, request, apperr.BadRequest("Cannot demote the last admin of the team"))
		return
	}

	member.user.Role = body.Role
	respond.OK(writer, member.user)
}

// removeMember deactivates a teammate and detaches it from the team.
func (server *Server) removeMember(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	memberID, err := parseMemberID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	member := server.accountByID(memberID)
	if member == nil {
		respond.Error(writer, request, apperr.NotFound("Member"))
		return
	}

	if !sameTeam(member, claims) {
		respond.Error(writer, request, apperr.Forbidden("Not authorized to remove this member"))
		return
	}

	if member.user.ID.String() == claims.UserID && server.activeAdmins(claims.TeamID) <= 1 {
		respond.Error(writer, request, apperr.BadRequest("Cannot remove the last admin of the team"))
		return
	}

	member.user.IsActive = false
	member.user.TeamID = nil

	respond.OK(writer, model.MessageResponse{Message: "Member removed successfully"})
}

/*
acceptInvitation redeems an invitation token into a new account.

Description: The account takes the invitation's email, role, and team. The
invitation is marked used so it leaves the pending roster.
*/
func (server *Server) acceptInvitation(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.Param(request, "token")

	var body model.AcceptInvitationRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("password", body.Password).
		Required("first_name", body.FirstName).
		Required("last_name", body.LastName)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	passwordHash, err := sec.HashPassword(body.Password)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	var invitation *model.Invitation
	for _, candidate := range server.invitations {
		if candidate.Token == token {
			invitation = candidate
			break
		}
	}

	if invitation == nil {
		respond.Error(writer, request, apperr.BadRequest("Invalid or expired invitation token"))
		return
	}

	now := time.Now().UTC()
	if invitation.IsUsed || !invitation.ExpiresAt.After(now) {
		respond.Error(writer, request, apperr.BadRequest("Invitation not found or has expired"))
		return
	}

	if server.accountByEmail(invitation.Email) != nil {
		respond.Error(writer, request, apperr.BadRequest("User with this email already exists"))
		return
	}

	created := server.addAccount(invitation.Email, passwordHash, body.FirstName, body.LastName, invitation.Role, invitation.TeamID)

	invitation.IsUsed = true
	invitation.AcceptedAt = pointer.To(model.At(now))

	respond.OK(writer, model.AcceptInvitationResponse{
		Message: "Invitation accepted successfully",
		User:    created.user,
	})
}

// # Helpers

// parseMemberID reads the numeric {memberID} path parameter.
func parseMemberID(request *http.Request) (int64, error) {
	memberID, err := strconv.ParseInt(requestutil.Param(request, "memberID"), 10, 64)
	if err != nil {
		return 0, apperr.ValidationError("member_id", "value is not a valid integer")
	}
	return memberID, nil
}

// sameTeam reports whether member belongs to the caller's team.
func sameTeam(member *account, claims *sec.AuthClaims) bool {
	return member.user.TeamID != nil && *member.user.TeamID == claims.TeamID
}
