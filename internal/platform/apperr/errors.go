// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// # Client-Side Failure Shapes

// ErrorPayload is the structured body a backend attaches to a failure.
//
// Detail is kept raw because the backend emits either a plain string or a
// list of {loc, msg} validation items under the same key.
type ErrorPayload struct {
	Detail  json.RawMessage `json:"detail,omitempty"`
	Message string          `json:"message,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
	Field   string          `json:"field,omitempty"`
}

// ResponseError reports that the backend answered with a non-2xx status.
type ResponseError struct {
	Method string
	URL    string
	Status int
	// Body is the raw response body, possibly empty.
	Body []byte
	// Payload is the decoded body when it is a JSON object, else nil.
	Payload *ErrorPayload
}

// NewResponseError builds a [ResponseError] and decodes its payload if possible.
func NewResponseError(method, url string, status int, body []byte) *ResponseError {
	responseError := &ResponseError{
		Method: method,
		URL:    url,
		Status: status,
		Body:   body,
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var payload ErrorPayload
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			responseError.Payload = &payload
		}
	}

	return responseError
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, http.StatusText(e.Status))
}

// TransportError reports that a request never produced a response.
type TransportError struct {
	Method string
	URL    string
	Cause  error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Cause)
}

// Unwrap exposes the underlying network error.
func (e *TransportError) Unwrap() error { return e.Cause }

// Timeout reports whether the request was abandoned because a deadline passed
// or the caller cancelled it, as opposed to the server being unreachable.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Cause, context.DeadlineExceeded) || errors.Is(e.Cause, context.Canceled) {
		return true
	}

	var netError net.Error
	return errors.As(e.Cause, &netError) && netError.Timeout()
}

// RefreshError reports that exchanging the refresh token failed. It wraps the
// refresh call's own failure, never the 401 that triggered the refresh.
type RefreshError struct {
	Cause error
}

// Error implements the error interface.
func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Cause)
}

// Unwrap exposes the refresh call's failure.
func (e *RefreshError) Unwrap() error { return e.Cause }

// # Helpers

// StatusCode returns the HTTP status of the first [ResponseError] in err's chain.
func StatusCode(err error) (int, bool) {
	var responseError *ResponseError
	if errors.As(err, &responseError) {
		return responseError.Status, true
	}
	return 0, false
}

// IsUnauthorized reports whether err is a 401 answer from the backend.
func IsUnauthorized(err error) bool {
	status, ok := StatusCode(err)
	return ok && status == http.StatusUnauthorized
}
