package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unknownitems/unknownitems/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.SetForTesting(config.AppConfig{JWTSecret: "unit-test-secret"})

	token, err := GenerateToken(42, "sleuth", "REGULAR", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "sleuth", claims.Username)
	assert.Equal(t, "REGULAR", claims.Role)
}

func TestTokenExpiry(t *testing.T) {
	config.SetForTesting(config.AppConfig{JWTSecret: "unit-test-secret"})

	token, err := GenerateToken(1, "u", "REGULAR", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	config.SetForTesting(config.AppConfig{JWTSecret: "first-secret"})
	token, err := GenerateToken(1, "u", "REGULAR", time.Hour)
	require.NoError(t, err)

	config.SetForTesting(config.AppConfig{JWTSecret: "second-secret"})
	_, err = ParseToken(token)
	assert.Error(t, err)
}
