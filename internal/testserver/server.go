// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package testserver runs an in-process fake of the team-management backend.

It serves the same /auth and /team routes, error bodies, and token semantics
as the real API from an in-memory data set, so the client layers can be
exercised end-to-end over real HTTP without any external service.

# Knobs

  - [Server.ExpireAccessTokens] invalidates every access token issued so far,
    forcing the next authenticated call into the refresh path.
  - [Server.RejectRefresh] makes /auth/refresh answer 401.
  - [Server.SetAccessTTL] changes the lifetime of newly issued access tokens.

# Concurrency

All state is guarded by a single mutex; handlers are safe to call concurrently.
*/
package testserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/middleware"
	"github.com/taibuivan/teamdesk/internal/platform/respond"
	"github.com/taibuivan/teamdesk/internal/platform/sec"
)

// # Defaults

const (
	issuer = "teamdesk-testserver"

	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	// invitationTTL matches the backend's seven-day invitation window.
	invitationTTL = 7 * 24 * time.Hour
)

// account is a stored user plus its credential.
type account struct {
	user         model.User
	passwordHash string
}

// id returns the numeric primary key.
func (a *account) id() int64 {
	n, _ := a.user.ID.Int64()
	return n
}

// Server is a running fake backend.
type Server struct {
	// URL is the base URL clients should target.
	URL string

	httpServer *httptest.Server
	tokens     *sec.TokenService
	logger     *slog.Logger

	mu            sync.Mutex
	accounts      []*account
	teams         map[int64]string
	invitations   []*model.Invitation
	liveAccess    map[string]struct{}
	hits          map[string]int
	nextUserID    int64
	nextTeamID    int64
	nextInviteID  int64
	accessTTL     time.Duration
	rejectRefresh bool
}

/*
Start builds the router and begins serving on a loopback port.

Parameters:
  - logger: *slog.Logger

Returns:
  - *Server: The running server; call Close when done
  - error: Key generation failure
*/
func Start(logger *slog.Logger) (*Server, error) {
	tokens, err := sec.NewTokenService(issuer)
	if err != nil {
		return nil, fmt.Errorf("testserver: %w", err)
	}

	server := &Server{
		tokens:     tokens,
		logger:     logger,
		teams:      make(map[int64]string),
		liveAccess: make(map[string]struct{}),
		hits:       make(map[string]int),
		accessTTL:  defaultAccessTTL,
	}

	server.httpServer = httptest.NewServer(server.routes())
	server.URL = server.httpServer.URL

	return server, nil
}

// Close shuts the listener down.
func (server *Server) Close() {
	server.httpServer.Close()
}

// # Router

func (server *Server) routes() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(server.logger))
	router.Use(middleware.PanicRecovery(server.logger))
	router.Use(server.countHits)

	// Public routes ignore any bearer, as the backend does.
	authenticated := middleware.Authenticate(server)

	router.Get("/health", func(writer http.ResponseWriter, _ *http.Request) {
		respond.OK(writer, model.HealthStatus{Status: "healthy"})
	})

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", server.register)
		r.Post("/login", server.login)
		r.Post("/refresh", server.refresh)
		r.Post("/logout", server.logout)
		r.With(authenticated, middleware.RequireAuth).Get("/me", server.me)
	})

	router.Route("/team", func(r chi.Router) {
		r.Post("/accept-invitation/{token}", server.acceptInvitation)

		r.Group(func(r chi.Router) {
			r.Use(authenticated, middleware.RequireAuth)
			r.Get("/members-with-invitations", server.membersWithInvitations)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated, middleware.RequireRole(sec.RoleAdmin))
			r.Post("/invite", server.invite)
			r.Put("/members/{memberID}/role", server.updateMemberRole)
			r.Delete("/members/{memberID}", server.removeMember)
		})
	})

	return router
}

// countHits records one hit per "METHOD /path".
func (server *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		server.mu.Lock()
		server.hits[request.Method+" "+request.URL.Path]++
		server.mu.Unlock()

		next.ServeHTTP(writer, request)
	})
}

// # Knobs

// ExpireAccessTokens invalidates every access token issued so far.
func (server *Server) ExpireAccessTokens() {
	server.mu.Lock()
	defer server.mu.Unlock()
	clear(server.liveAccess)
}

// RejectRefresh makes every refresh attempt fail with 401 while on.
func (server *Server) RejectRefresh(reject bool) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.rejectRefresh = reject
}

// SetAccessTTL changes the lifetime of access tokens issued from now on.
func (server *Server) SetAccessTTL(ttl time.Duration) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.accessTTL = ttl
}

// Hits reports how many requests reached method and path.
func (server *Server) Hits(method, path string) int {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.hits[method+" "+path]
}

// InvitationToken returns the token of the pending invitation for email.
// It stands in for the e-mail the real backend would send.
func (server *Server) InvitationToken(email string) (string, bool) {
	server.mu.Lock()
	defer server.mu.Unlock()

	for _, invitation := range server.invitations {
		if invitation.Email == email && !invitation.IsUsed {
			return invitation.Token, true
		}
	}
	return "", false
}

// # Token Verification

// VerifyToken checks an access token and refreshes its role and team claims
// from the current account, like the backend's per-request user lookup.
// It satisfies [middleware.TokenVerifier].
func (server *Server) VerifyToken(token string) (*sec.AuthClaims, error) {
	claims, err := server.tokens.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	if _, live := server.liveAccess[token]; !live {
		return nil, fmt.Errorf("testserver: access token revoked")
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("testserver: bad subject: %w", err)
	}

	found := server.accountByID(userID)
	if found == nil || !found.user.IsActive {
		return nil, fmt.Errorf("testserver: user %d not found or inactive", userID)
	}

	claims.Role = string(found.user.Role)
	claims.TeamID = 0
	if found.user.TeamID != nil {
		claims.TeamID = *found.user.TeamID
	}

	return claims, nil
}

// issueAccess signs an access token and marks it live. Callers hold mu.
func (server *Server) issueAccess(found *account) (string, error) {
	var teamID int64
	if found.user.TeamID != nil {
		teamID = *found.user.TeamID
	}

	token, err := server.tokens.Generate(sec.TokenAccess, found.user.ID.String(), string(found.user.Role), teamID, server.accessTTL)
	if err != nil {
		return "", err
	}

	server.liveAccess[token] = struct{}{}
	return token, nil
}

// issuePair signs a fresh access and refresh token. Callers hold mu.
func (server *Server) issuePair(found *account) (*model.AuthResponse, error) {
	access, err := server.issueAccess(found)
	if err != nil {
		return nil, err
	}

	refresh, err := server.tokens.Generate(sec.TokenRefresh, found.user.ID.String(), string(found.user.Role), 0, defaultRefreshTTL)
	if err != nil {
		return nil, err
	}

	return &model.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(server.accessTTL.Seconds()),
		User:         found.user,
	}, nil
}

// # Lookups (callers hold mu)

func (server *Server) accountByID(id int64) *account {
	for _, candidate := range server.accounts {
		if candidate.id() == id {
			return candidate
		}
	}
	return nil
}

func (server *Server) accountByEmail(email string) *account {
	for _, candidate := range server.accounts {
		if candidate.user.Email == email {
			return candidate
		}
	}
	return nil
}

// activeAdmins counts the active admins of a team.
func (server *Server) activeAdmins(teamID int64) int {
	count := 0
	for _, candidate := range server.accounts {
		if candidate.user.IsActive && candidate.user.Role == model.RoleAdmin &&
			candidate.user.TeamID != nil && *candidate.user.TeamID == teamID {
			count++
		}
	}
	return count
}

// pendingInvitation reports whether an unused, unexpired invitation exists.
func (server *Server) pendingInvitation(email string, teamID int64, now time.Time) bool {
	for _, invitation := range server.invitations {
		if invitation.Email == email && invitation.TeamID == teamID &&
			!invitation.IsUsed && invitation.ExpiresAt.After(now) {
			return true
		}
	}
	return false
}
