// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package transport implements the authenticated request pipeline.

Every outbound backend call passes through [Client.Do], which:

 1. Attaches the stored access token as a bearer credential, if one exists.
 2. Sends the call (rate limited, correlated with an X-Request-ID).
 3. On a 401 for a call that has not been replayed yet, exchanges the stored
    refresh token for a new access token and replays the call once.
 4. If the refresh is rejected, purges durable state, navigates to the login
    entry point, and returns an [apperr.RefreshError].

Concurrent calls run this logic independently. Two calls failing with 401 at
the same moment will each perform their own refresh.
*/
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/taibuivan/teamdesk/internal/model"
	"github.com/taibuivan/teamdesk/internal/platform/apperr"
	"github.com/taibuivan/teamdesk/internal/platform/constants"
	"github.com/taibuivan/teamdesk/internal/platform/ctxutil"
	"github.com/taibuivan/teamdesk/internal/tokens"
	"github.com/taibuivan/teamdesk/pkg/uuidv7"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// # Collaborators

// TokenStore is the subset of [tokens.Store] the pipeline needs.
type TokenStore interface {
	Get(ctx context.Context, kind tokens.Kind) (string, bool)
	SetAccess(ctx context.Context, access string) error
	Purge(ctx context.Context) error
}

// Navigator moves the user to another entry point after an irrecoverable auth failure.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// NavigatorFunc adapts a plain function to [Navigator].
type NavigatorFunc func(ctx context.Context, target string)

// Navigate calls f(ctx, target).
func (f NavigatorFunc) Navigate(ctx context.Context, target string) { f(ctx, target) }

// # Messages

// Request describes one logical backend call.
type Request struct {
	Method string
	// Path is already escaped; segments built from caller input must go
	// through url.PathEscape.
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any

	// Bearer, when set, is sent instead of the stored access token.
	Bearer string
	// NoRefresh disables the refresh-and-retry step for this call.
	NoRefresh bool

	// retried marks the single replay that follows a successful refresh.
	retried bool
}

// Response is a successful (2xx) backend answer.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into target.
func (r *Response) Decode(target any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return errors.New("transport: empty response body")
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("transport: decode response: %w", err)
	}
	return nil
}

// # Client

// Options configures a [Client].
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	// HTTPClient overrides the default client; its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client is the authenticated request pipeline.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	tokens    TokenStore
	navigator Navigator
	logger    *slog.Logger
}

/*
New builds a pipeline.

Parameters:
  - options: Base URL, timeout, and outbound rate limit
  - tokenStore: Source of bearer and refresh tokens
  - navigator: Invoked with the login entry point when a refresh is rejected (may be nil)
  - logger: Structured logger

Returns:
  - *Client: Ready to use
  - error: Invalid base URL
*/
func New(options Options, tokenStore TokenStore, navigator Navigator, logger *slog.Logger) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimRight(options.BaseURL, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("transport: invalid base URL %q", options.BaseURL)
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = constants.DefaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if options.RateLimitRPS > 0 {
		limit = rate.Limit(options.RateLimitRPS)
	}
	burst := max(options.RateLimitBurst, 1)

	if navigator == nil {
		navigator = NavigatorFunc(func(context.Context, string) {})
	}

	return &Client{
		baseURL:   baseURL,
		http:      httpClient,
		limiter:   rate.NewLimiter(limit, burst),
		tokens:    tokenStore,
		navigator: navigator,
		logger:    logger,
	}, nil
}

/*
Do sends a request through the pipeline.

Description: A 401 triggers at most one refresh per call. The replay's outcome
is returned as-is, whether it succeeds or fails.

Parameters:
  - ctx: context.Context
  - request: *Request

Returns:
  - *Response: The 2xx answer
  - error: [apperr.ResponseError], [apperr.TransportError] or [apperr.RefreshError]
*/
func (client *Client) Do(ctx context.Context, request *Request) (*Response, error) {
	bearer := request.Bearer
	if bearer == "" {
		bearer, _ = client.tokens.Get(ctx, tokens.Access)
	}

	response, err := client.send(ctx, request, bearer)
	if err == nil || request.retried || request.NoRefresh || !apperr.IsUnauthorized(err) {
		return response, err
	}

	// No refresh token means nothing to recover with.
	refreshToken, ok := client.tokens.Get(ctx, tokens.Refresh)
	if !ok {
		return nil, err
	}

	access, refreshErr := client.refresh(ctx, refreshToken)
	if refreshErr != nil {
		// A caller that gave up was not rejected; the session stays intact.
		if ctx.Err() != nil {
			return nil, refreshErr
		}
		client.forceLogout(ctx, refreshErr)
		return nil, &apperr.RefreshError{Cause: refreshErr}
	}

	if err := client.tokens.SetAccess(ctx, access); err != nil {
		client.logger.WarnContext(ctx, "token_persist_failed", slog.Any("error", err))
	}

	replay := *request
	replay.retried = true
	return client.send(ctx, &replay, access)
}

// refresh exchanges a refresh token for a new access token.
// It bypasses [Client.Do] so a rejected refresh can never trigger another refresh.
func (client *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	client.logger.DebugContext(ctx, "token_refresh_started")

	response, err := client.send(ctx, &Request{
		Method: http.MethodPost,
		Path:   constants.PathRefresh,
		Body:   model.RefreshRequest{RefreshToken: refreshToken},
	}, "")
	if err != nil {
		return "", err
	}

	var payload model.RefreshResponse
	if err := response.Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", errors.New("transport: refresh response carried no access token")
	}

	client.logger.InfoContext(ctx, "token_refreshed")
	return payload.AccessToken, nil
}

// forceLogout tears down all durable state and sends the user to the login entry point.
func (client *Client) forceLogout(ctx context.Context, cause error) {
	client.logger.WarnContext(ctx, "token_refresh_failed", slog.Any("error", cause))

	if err := client.tokens.Purge(ctx); err != nil {
		client.logger.ErrorContext(ctx, "storage_purge_failed", slog.Any("error", err))
	}

	client.navigator.Navigate(ctx, constants.LoginEntryPoint)
}

// send performs a single HTTP exchange with no retry logic.
func (client *Client) send(ctx context.Context, request *Request, bearer string) (*Response, error) {
	target := client.resolve(request)
	method := request.Method

	requestID := uuidv7.New()
	logger := client.logger.With(
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.String("path", request.Path),
	)
	ctx = ctxutil.WithLogger(ctxutil.WithRequestID(ctx, requestID), logger)

	// 1. Outbound rate limit
	if err := client.limiter.Wait(ctx); err != nil {
		return nil, &apperr.TransportError{Method: method, URL: target, Cause: err}
	}

	// 2. Build the HTTP request
	var body io.Reader
	if request.Body != nil {
		encoded, err := json.Marshal(request.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}

	httpRequest.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	httpRequest.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	httpRequest.Header.Set(constants.HeaderXRequestID, requestID)
	if bearer != "" {
		httpRequest.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+bearer)
	}

	// 3. Exchange
	startTime := time.Now()
	httpResponse, err := client.http.Do(httpRequest)
	if err != nil {
		logger.DebugContext(ctx, "http_call_failed", slog.Any("error", err))
		return nil, &apperr.TransportError{Method: method, URL: target, Cause: err}
	}
	defer httpResponse.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxBodyBytes))
	if err != nil {
		return nil, &apperr.TransportError{Method: method, URL: target, Cause: err}
	}

	logger.DebugContext(ctx, "http_call_finished",
		slog.Int("status", httpResponse.StatusCode),
		slog.Int64("latency_ms", time.Since(startTime).Milliseconds()),
		slog.Bool("retried", request.retried),
	)

	// 4. Non-2xx answers become ResponseError
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return nil, apperr.NewResponseError(method, target, httpResponse.StatusCode, payload)
	}

	return &Response{
		Status: httpResponse.StatusCode,
		Header: httpResponse.Header,
		Body:   payload,
	}, nil
}

// resolve joins the base URL, path, and query.
func (client *Client) resolve(request *Request) string {
	target := *client.baseURL
	target.Path = client.baseURL.Path + request.Path
	target.RawPath = ""

	// Keep escaped segments such as %2F intact on the wire.
	if unescaped, err := url.PathUnescape(request.Path); err == nil && unescaped != request.Path {
		target.Path = client.baseURL.Path + unescaped
		target.RawPath = client.baseURL.EscapedPath() + request.Path
	}

	if len(request.Query) > 0 {
		target.RawQuery = request.Query.Encode()
	}
	return target.String()
}
