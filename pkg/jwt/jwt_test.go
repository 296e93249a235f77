package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key-at-least-32-chars!!", 15*time.Minute)

	userID := uuid.New()
	tokenString, err := manager.GenerateAccessToken(userID, "user@simora.app", "user")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := manager.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "user@simora.app", claims.Email)
	assert.Equal(t, "user", claims.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret-key-at-least-32-chars!!", 15*time.Minute)
	other := NewJWTManager("another-secret-key-also-32-chars!!!", 15*time.Minute)

	tokenString, err := manager.GenerateAccessToken(uuid.New(), "user@simora.app", "user")
	require.NoError(t, err)

	_, err = other.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key-at-least-32-chars!!", -time.Minute)

	tokenString, err := manager.GenerateAccessToken(uuid.New(), "user@simora.app", "user")
	require.NoError(t, err)

	_, err = manager.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestExtractUserID(t *testing.T) {
	manager := NewJWTManager("test-secret-key-at-least-32-chars!!", 15*time.Minute)

	userID := uuid.New()
	tokenString, err := manager.GenerateAccessToken(userID, "user@simora.app", "admin")
	require.NoError(t, err)

	extracted, err := manager.ExtractUserID(tokenString)
	require.NoError(t, err)
	assert.Equal(t, userID, extracted)
}
