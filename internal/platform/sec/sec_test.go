// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/teamdesk/internal/platform/sec"
)

/*
TestTokenService_RoundTrip verifies issued tokens verify only as their own type.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service, err := sec.NewTokenService("teamdesk-test")
	require.NoError(t, err)

	access, err := service.Generate(sec.TokenAccess, "7", "admin", 3, time.Minute)
	require.NoError(t, err)

	claims, err := service.VerifyToken(access)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.UserID)
	assert.Equal(t, int64(3), claims.TeamID)

	_, err = service.Verify(access, sec.TokenRefresh)
	assert.ErrorIs(t, err, sec.ErrWrongTokenType)

	expired, err := service.Generate(sec.TokenAccess, "7", "admin", 3, -time.Minute)
	require.NoError(t, err)
	_, err = service.VerifyToken(expired)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := sec.HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, sec.CheckPasswordHash("s3cret!", hash))
	assert.False(t, sec.CheckPasswordHash("wrong", hash))
}

func TestUserRole_AtLeast(t *testing.T) {
	assert.True(t, sec.RoleAdmin.AtLeast(sec.RoleMember))
	assert.False(t, sec.RoleMember.AtLeast(sec.RoleAdmin))
	assert.False(t, sec.UserRole("guest").AtLeast(sec.RoleMember))
}
