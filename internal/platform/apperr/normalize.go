// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/taibuivan/teamdesk/internal/platform/constants"
)

// # Error Taxonomy

// Kind classifies a normalized failure.
type Kind string

const (
	// KindAuthExpired is a 401 that survived the single refresh-and-retry.
	KindAuthExpired Kind = "auth_expired"
	// KindRefreshFailed is a rejection from the refresh endpoint itself.
	KindRefreshFailed Kind = "refresh_failed"
	// KindValidationFailed is a structured, field-level backend rejection.
	KindValidationFailed Kind = "validation_failed"
	// KindConnectivity means the backend could not be reached at all.
	KindConnectivity Kind = "connectivity"
	// KindUnknown is everything else.
	KindUnknown Kind = "unknown"
)

// NormalizedError is the only error shape stores and the CLI consume.
//
// Message is never empty.
type NormalizedError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
}

// Error implements the error interface so a NormalizedError can be returned as-is.
func (n NormalizedError) Error() string { return n.Message }

// # Normalization

// Normalize maps any failure onto a [NormalizedError]. It never panics and
// always yields a non-empty message.
//
// # Resolution Order
//
//  1. A backend answer with a body: detail, then message, then a generic text.
//  2. A transport failure that never reached the server: fixed connectivity text.
//  3. Any other error: its own message.
//  4. Fallback: a generic unexpected-error text.
func Normalize(err error) NormalizedError {
	if err == nil {
		return NormalizedError{Kind: KindUnknown, Message: constants.MsgUnexpected}
	}

	var already NormalizedError
	if errors.As(err, &already) && already.Message != "" {
		return already
	}

	var responseError *ResponseError
	if errors.As(err, &responseError) {
		normalized := fromResponse(responseError)
		normalized.Kind = classify(err, responseError, normalized)
		return normalized
	}

	var transportError *TransportError
	if errors.As(err, &transportError) && !transportError.Timeout() {
		return NormalizedError{
			Kind:    kindOr(err, KindConnectivity),
			Message: constants.MsgConnectivity,
			Details: constants.MsgConnectivityDetails,
		}
	}

	if message := strings.TrimSpace(err.Error()); message != "" {
		return NormalizedError{Kind: kindOr(err, KindUnknown), Message: message}
	}

	return NormalizedError{Kind: kindOr(err, KindUnknown), Message: constants.MsgUnexpected}
}

// fromResponse extracts message, details and field from a backend answer.
func fromResponse(responseError *ResponseError) NormalizedError {

	// An answer without a body carries nothing but its status.
	if len(strings.TrimSpace(string(responseError.Body))) == 0 {
		return NormalizedError{
			Message: fmt.Sprintf("Request failed with status code %d", responseError.Status),
		}
	}

	normalized := NormalizedError{Message: constants.MsgGenericBackendError}

	payload := responseError.Payload
	if payload == nil {
		return normalized
	}

	detail, field := parseDetail(payload.Detail)

	switch {
	case detail != "":
		normalized.Message = detail
	case payload.Message != "":
		normalized.Message = payload.Message
	}

	normalized.Details = rawText(payload.Details)
	normalized.Field = payload.Field
	if normalized.Field == "" {
		normalized.Field = field
	}

	return normalized
}

// validationItem is one element of a list-shaped detail.
type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseDetail reads detail as a string, or as a list of validation items
// whose first entry supplies the message and the last loc element the field.
func parseDetail(raw json.RawMessage) (message, field string) {
	if len(raw) == 0 {
		return "", ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, ""
	}

	var items []validationItem
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		first := items[0]
		if len(first.Loc) > 0 {
			field = fmt.Sprint(first.Loc[len(first.Loc)-1])
		}
		return first.Msg, field
	}

	return "", ""
}

// rawText renders a details value: JSON strings unquoted, anything else verbatim.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	return string(raw)
}

// classify assigns the taxonomy kind for a backend answer.
func classify(err error, responseError *ResponseError, normalized NormalizedError) Kind {
	var refreshError *RefreshError
	switch {
	case errors.As(err, &refreshError):
		return KindRefreshFailed
	case responseError.Status == http.StatusUnauthorized:
		return KindAuthExpired
	case normalized.Field != "" || responseError.Status == http.StatusUnprocessableEntity:
		return KindValidationFailed
	default:
		return KindUnknown
	}
}

// kindOr returns KindRefreshFailed when err came out of a refresh, else fallback.
func kindOr(err error, fallback Kind) Kind {
	var refreshError *RefreshError
	if errors.As(err, &refreshError) {
		return KindRefreshFailed
	}
	return fallback
}
