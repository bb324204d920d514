// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package model defines the wire and state entities shared by every client layer.

# Architecture

Entities defined here have no dependencies on transport or storage. They mirror
the backend's JSON contract field for field so that they can be decoded from
responses and re-encoded into the persisted session blob without translation.
*/
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/taibuivan/teamdesk/pkg/textnorm"
)

// # Identifiers

// FlexID is an identifier the backend may encode either as a JSON number or a
// JSON string. It is always held and re-encoded as a string.
type FlexID string

// UnmarshalJSON accepts 42, "42" and null.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("model: id must be a string or number: %w", err)
	}

	*id = FlexID(n.String())
	return nil
}

// String returns the identifier text.
func (id FlexID) String() string { return string(id) }

// Int64 parses the identifier as a number. Non-numeric ids return false.
func (id FlexID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// # Timestamps

// naiveLayouts are the offset-less ISO-8601 forms a backend may emit. Parsing
// accepts an optional fractional second after the seconds field.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FlexTime is a backend timestamp. It accepts RFC 3339 as well as ISO-8601
// values without an offset, which are read as UTC. It re-encodes as RFC 3339.
type FlexTime struct {
	time.Time
}

// At wraps t as a [FlexTime].
func At(t time.Time) FlexTime {
	return FlexTime{Time: t}
}

// UnmarshalJSON accepts RFC 3339 strings, naive ISO-8601 strings, "" and null.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*t = FlexTime{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("model: timestamp must be a string: %w", err)
	}

	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}

	*t = FlexTime{Time: parsed}
	return nil
}

// ParseTime parses a backend timestamp. An empty string yields the zero time.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}

	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, nil
	}

	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("model: unrecognized timestamp %q", value)
}

// # Roles

// Role is the authorization level of a team member.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether the role is one the backend accepts.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// # Domain Entities

// User is the authenticated account as returned by /auth/me and login.
type User struct {
	ID        FlexID    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	TeamID    *int64    `json:"team_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt FlexTime  `json:"created_at"`
	LastLogin *FlexTime `json:"last_login,omitempty"`
}

// DisplayName renders "First Last" with normalized casing.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return textnorm.DisplayName(u.FirstName, u.LastName)
}
