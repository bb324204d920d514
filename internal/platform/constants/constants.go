// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire client.

It defines default timeouts, storage keys, endpoint paths, and the fixed
user-facing messages that are shared between different layers of the system.

Categories:

  - Transport: Timeouts and header names for outbound calls.
  - Storage: The fixed keys under which durable client state is written.
  - Endpoints: The backend routes the client consumes.
  - Messages: Fallback text produced by the error normalizer.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "teamdesk"
	AppVersion = "0.1.0-dev"
)

// # Transport

const (
	// DefaultRequestTimeout is the deadline applied to every outbound call.
	DefaultRequestTimeout = 10 * time.Second

	// LogoutNotifyTimeout bounds the best-effort server-side logout call.
	LogoutNotifyTimeout = 5 * time.Second

	// ShutdownTimeout is how long the CLI waits for background calls on exit.
	ShutdownTimeout = 10 * time.Second
)

// # HTTP Headers

const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"

	// BearerPrefix is the scheme prefix of the Authorization header.
	BearerPrefix = "Bearer "

	// ContentTypeJSON is sent on every request that carries a body.
	ContentTypeJSON = "application/json"
)

// # Durable Storage Keys

const (
	// StorageKeyAccessToken holds the raw access token string.
	StorageKeyAccessToken = "access_token"

	// StorageKeyRefreshToken holds the raw refresh token string.
	StorageKeyRefreshToken = "refresh_token"

	// StorageKeySession holds the persisted {user, isAuthenticated} blob.
	StorageKeySession = "auth-storage"

	// SessionBlobVersion is written alongside the persisted session state.
	SessionBlobVersion = 0
)

// # Backend Endpoints

const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathRefresh  = "/auth/refresh"
	PathLogout   = "/auth/logout"
	PathMe       = "/auth/me"
	PathHealth   = "/health"

	PathMembersWithInvitations = "/team/members-with-invitations"
	PathInvite                 = "/team/invite"
	PathMemberRole             = "/team/members/%s/role"
	PathMember                 = "/team/members/%s"
	PathAcceptInvitation       = "/team/accept-invitation/%s"

	// LoginEntryPoint is the forced-redirect target on irrecoverable auth failure.
	LoginEntryPoint = "/auth/login"
)

// # Error Messages

const (
	// MsgGenericBackendError is used when a backend payload carries no message.
	MsgGenericBackendError = "An error occurred"

	// MsgConnectivity is used when the transport could not reach the server.
	MsgConnectivity = "Unable to connect to server. Please check if the backend is running"

	// MsgConnectivityDetails accompanies MsgConnectivity.
	MsgConnectivityDetails = "Network connection failed"

	// MsgUnexpected is the final fallback of the error normalizer.
	MsgUnexpected = "An unexpected error occurred"
)

// # Log Field Identifiers

const (
	// FieldApp tags every log line with [AppName].
	FieldApp = "app"
)

// # Redis Prefixes

const (
	// RedisPrefixStorage namespaces durable client keys inside a shared Redis.
	RedisPrefixStorage = "client:storage:"
)
