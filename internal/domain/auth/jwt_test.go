package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "refbook/internal/core/context"
)

func TestValidateTokenRoundTrip(t *testing.T) {
	svc := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "gc-spends"})

	token, err := svc.GenerateToken("u-1", "ops@contour.kz", []string{"registrar", "admin"}, time.Minute)
	require.NoError(t, err)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.UserID)
	assert.Equal(t, "ops@contour.kz", user.Email)
	assert.True(t, IsAdmin(user))
}

func TestValidateTokenRejectsBadSecret(t *testing.T) {
	svc := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "gc-spends"})
	other := NewJWTService(JWTConfig{Secret: "wrong", Issuer: "gc-spends"})

	token, err := other.GenerateToken("u-1", "", nil, time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "gc-spends"})

	token, err := svc.GenerateToken("u-1", "", nil, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	minted := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "someone-else"})
	svc := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "gc-spends"})

	token, err := minted.GenerateToken("u-1", "", nil, time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, IsAdmin(nil))
	assert.False(t, IsAdmin(&appctx.UserContext{Roles: []string{"executor"}}))
	assert.True(t, IsAdmin(&appctx.UserContext{Roles: []string{"admin"}}))
}
