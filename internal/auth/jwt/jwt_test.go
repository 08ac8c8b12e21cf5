package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTService_GenerateAndValidate(t *testing.T) {
	s, err := NewService(testSecret, time.Hour)
	require.NoError(t, err)

	tok, err := s.GenerateToken("alice", "admin")
	assert.NoError(t, err)
	claims, err := s.ValidateToken(tok)
	assert.NoError(t, err)
	if assert.NotNil(t, claims) {
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, "admin", claims.Role)
	}
}

func TestJWTService_ExpiredAndInvalid(t *testing.T) {
	s := &Service{secretKey: testSecret, duration: -time.Second}
	tok, err := s.GenerateToken("bob", "user")
	assert.NoError(t, err)
	// Token should be expired immediately
	claims, err := s.ValidateToken(tok)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrExpiredToken)

	// Invalid token string
	claims, err = s.ValidateToken("not-a-token")
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_WrongKey(t *testing.T) {
	s1, err := NewService(testSecret, time.Hour)
	require.NoError(t, err)
	s2, err := NewService("fedcba9876543210fedcba9876543210", time.Hour)
	require.NoError(t, err)

	tok, err := s1.GenerateToken("alice", "admin")
	require.NoError(t, err)
	_, err = s2.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService("", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecretKey)

	_, err = NewService("short", time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecretKey)

	_, err = NewService(testSecret, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}
