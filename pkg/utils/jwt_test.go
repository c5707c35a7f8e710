package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenPair_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", 7*time.Hour, 72*time.Hour)

	pair, err := m.GenerateTokenPair(42, "ada@example.com", "DRIVER")
	require.NoError(t, err)

	access, err := m.ValidateToken(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(42), access.UserID)
	assert.Equal(t, "DRIVER", access.UserType)
	assert.NotEmpty(t, access.ID)

	refresh, err := m.ValidateToken(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, access.ID, refresh.ID)
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), refresh.ExpiresAt.Time, time.Minute)
}

func TestValidateToken_RejectsWrongType(t *testing.T) {
	m := NewTokenManager("secret", time.Hour, time.Hour)
	pair, err := m.GenerateTokenPair(1, "a@example.com", "RIDER")
	require.NoError(t, err)

	_, err = m.ValidateToken(pair.RefreshToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.ValidateToken(pair.AccessToken, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_RejectsOtherSecretAndGarbage(t *testing.T) {
	issuer := NewTokenManager("one", time.Hour, time.Hour)
	verifier := NewTokenManager("two", time.Hour, time.Hour)
	pair, err := issuer.GenerateTokenPair(1, "a@example.com", "RIDER")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = verifier.ValidateToken("not-a-jwt", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	pair, err := m.GenerateTokenPair(1, "a@example.com", "RIDER")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrExpiredToken)

	jti, exp, err := m.ParseUnverifiedExpiry(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, jti)
	assert.True(t, exp.Before(time.Now()))
}
