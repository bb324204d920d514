// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/teamdesk/internal/model"
)

/*
TestFlexID_Unmarshal verifies that ids decode from numbers, strings, and null.
*/
func TestFlexID_Unmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  model.FlexID
	}{
		{"number", `42`, "42"},
		{"string", `"m-7"`, "m-7"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id model.FlexID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.want, id)
		})
	}

	var id model.FlexID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &id))
}

/*
TestUser_DecodeNumericID verifies the backend's integer ids survive as strings.
*/
func TestUser_DecodeNumericID(t *testing.T) {
	body := `{"id": 7, "email": "a@b.c", "first_name": "ada", "last_name": "lovelace",
		"role": "admin", "team_id": 3, "is_active": true, "created_at": "2026-01-02T03:04:05Z"}`

	var user model.User
	require.NoError(t, json.Unmarshal([]byte(body), &user))

	assert.Equal(t, model.FlexID("7"), user.ID)
	require.NotNil(t, user.TeamID)
	assert.Equal(t, int64(3), *user.TeamID)
	assert.Equal(t, "Ada Lovelace", user.DisplayName())

	n, ok := user.ID.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)
}

/*
TestFlexTime_Unmarshal verifies RFC 3339, offset-less ISO-8601, and null timestamps.
*/
func TestFlexTime_Unmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", `"2025-01-02T03:04:05Z"`, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"rfc3339_offset", `"2025-01-02T05:04:05+02:00"`, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"naive_micros", `"2025-01-02T03:04:05.123456"`, time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)},
		{"naive_seconds", `"2025-01-02T03:04:05"`, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"naive_space", `"2025-01-02 03:04:05.5"`, time.Date(2025, 1, 2, 3, 4, 5, 500000000, time.UTC)},
		{"empty", `""`, time.Time{}},
		{"null", `null`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var value model.FlexTime
			require.NoError(t, json.Unmarshal([]byte(tt.input), &value))
			assert.True(t, tt.want.Equal(value.Time), "got %s", value.Time)
		})
	}

	var value model.FlexTime
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &value))
	assert.Error(t, json.Unmarshal([]byte(`1735787045`), &value))
}

/*
TestUser_NaiveTimestampsRoundTrip verifies a user decoded from naive timestamps re-encodes as RFC 3339.
*/
func TestUser_NaiveTimestampsRoundTrip(t *testing.T) {
	body := `{"id": 1, "email": "ada@example.com", "role": "admin", "is_active": true,
		"created_at": "2025-01-02T03:04:05.123456", "last_login": null}`

	var user model.User
	require.NoError(t, json.Unmarshal([]byte(body), &user))
	assert.Nil(t, user.LastLogin)

	encoded, err := json.Marshal(user)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"created_at":"2025-01-02T03:04:05.123456Z"`)

	var decoded model.User
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.True(t, user.CreatedAt.Equal(decoded.CreatedAt.Time))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, model.RoleAdmin.Valid())
	assert.True(t, model.RoleMember.Valid())
	assert.False(t, model.Role("owner").Valid())
}
