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
)

// # Auth Handlers

/*
register creates the first account and its team.

Description: Only the very first registration succeeds; it becomes the admin
of a new team named after its first name. Later users must be invited.
*/
func (server *Server) register(writer http.ResponseWriter, request *http.Request) {
	var body model.RegisterRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Email("email", body.Email).
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

	email := textnorm.Email(body.Email)
	if server.accountByEmail(email) != nil {
		respond.Error(writer, request, apperr.BadRequest("Email already registered"))
		return
	}

	if len(server.accounts) > 0 {
		respond.Error(writer, request, apperr.Forbidden("Registration is closed. Please request an invitation from an existing team admin."))
		return
	}

	server.nextTeamID++
	teamID := server.nextTeamID
	server.teams[teamID] = body.FirstName + "'s Team"

	created := server.addAccount(email, passwordHash, body.FirstName, body.LastName, model.RoleAdmin, teamID)

	response, err := server.issuePair(created)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	ctxutil.GetLogger(request.Context()).InfoContext(request.Context(), "team_created",
		slog.Int64("team_id", teamID),
		slog.String("admin_id", created.user.ID.String()),
	)

	respond.OK(writer, response)
}

// login exchanges credentials for a token pair.
func (server *Server) login(writer http.ResponseWriter, request *http.Request) {
	var body model.LoginRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	found := server.accountByEmail(textnorm.Email(body.Email))
	if found == nil || !sec.CheckPasswordHash(body.Password, found.passwordHash) {
		respond.Error(writer, request, apperr.Unauthorized("Incorrect email or password"))
		return
	}

	if !found.user.IsActive {
		respond.Error(writer, request, apperr.BadRequest("Inactive user"))
		return
	}

	found.user.LastLogin = pointer.To(model.At(time.Now().UTC()))

	response, err := server.issuePair(found)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	respond.OK(writer, response)
}

/*
refresh issues a new access token for a valid refresh token.

Description: Every failure, including a deactivated account, answers the same
401. The refresh token is read from the JSON body or the query string.
*/
func (server *Server) refresh(writer http.ResponseWriter, request *http.Request) {
	invalid := apperr.Unauthorized("Invalid refresh token")

	var body model.RefreshRequest
	if request.ContentLength != 0 {
		if err := requestutil.DecodeJSON(request, &body); err != nil {
			respond.Error(writer, request, invalid)
			return
		}
	}
	if body.RefreshToken == "" {
		body.RefreshToken = request.URL.Query().Get("refresh_token")
	}

	server.mu.Lock()
	reject := server.rejectRefresh
	server.mu.Unlock()

	if reject {
		respond.Error(writer, request, invalid)
		return
	}

	claims, err := server.tokens.Verify(body.RefreshToken, sec.TokenRefresh)
	if err != nil {
		respond.Error(writer, request, invalid)
		return
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		respond.Error(writer, request, invalid)
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	found := server.accountByID(userID)
	if found == nil || !found.user.IsActive {
		respond.Error(writer, request, invalid)
		return
	}

	access, err := server.issueAccess(found)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	respond.OK(writer, model.RefreshResponse{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int(server.accessTTL.Seconds()),
	})
}

// logout acknowledges; tokens are stateless and stay valid until they expire.
func (server *Server) logout(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, model.MessageResponse{Message: "Successfully logged out"})
}

// me returns the caller's account.
func (server *Server) me(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	userID, _ := strconv.ParseInt(claims.UserID, 10, 64)
	found := server.accountByID(userID)
	if found == nil {
		respond.Error(writer, request, apperr.Unauthorized("Could not validate credentials"))
		return
	}

	respond.OK(writer, found.user)
}

// addAccount stores a new active account. Callers hold mu.
func (server *Server) addAccount(email, passwordHash, firstName, lastName string, role model.Role, teamID int64) *account {
	server.nextUserID++

	created := &account{
		user: model.User{
			ID:        model.FlexID(strconv.FormatInt(server.nextUserID, 10)),
			Email:     email,
			FirstName: firstName,
			LastName:  lastName,
			Role:      role,
			TeamID:    pointer.To(teamID),
			IsActive:  true,
			CreatedAt: model.At(time.Now().UTC()),
		},
		passwordHash: passwordHash,
	}

	server.accounts = append(server.accounts, created)
	return created
}
