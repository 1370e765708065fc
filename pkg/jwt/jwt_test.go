package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "test-access-secret-key-for-testing-purposes"
	testRefreshSecret = "test-refresh-secret-key-for-testing-purposes"
)

func TestNewService(t *testing.T) {
	service := NewService(
		testAccessSecret,
		testRefreshSecret,
		time.Hour,
		24*time.Hour,
	)

	assert.NotNil(t, service)
	assert.Equal(t, testAccessSecret, service.accessSecret)
	assert.Equal(t, testRefreshSecret, service.refreshSecret)
	assert.Equal(t, time.Hour, service.accessTokenExpiry)
	assert.Equal(t, 24*time.Hour, service.refreshTokenExpiry)
}

func TestGenerateAccessToken(t *testing.T) {
	service := NewService(testAccessSecret, testRefreshSecret, time.Hour, 24*time.Hour)
	userID := uuid.New()
	email := "ana@example.com"
	roles := []string{RoleTourist}

	token, err := service.GenerateAccessToken(userID, email, roles)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Validate the generated token
	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, email, claims.Email)
	assert.Equal(t, roles, claims.Roles)
	assert.Equal(t, AccessToken, claims.TokenType)
}

func TestGenerateRefreshToken(t *testing.T) {
	service := NewService(testAccessSecret, testRefreshSecret, time.Hour, 24*time.Hour)
	userID := uuid.New()
	email := "ana@example.com"

	token, err := service.GenerateRefreshToken(userID, email)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RefreshToken, claims.TokenType)
}

func TestValidateAccessToken(t *testing.T) {
	service := NewService(testAccessSecret, testRefreshSecret, time.Hour, 24*time.Hour)
	userID := uuid.New()

	t.Run("Valid Token", func(t *testing.T) {
		token, err := service.GenerateAccessToken(userID, "ana@example.com", []string{RoleTourist})
		require.NoError(t, err)

		claims, err := service.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
	})

	t.Run("Wrong Token Type", func(t *testing.T) {
		refreshToken, err := service.GenerateRefreshToken(userID, "ana@example.com")
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(refreshToken)
		assert.Error(t, err)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		otherService := NewService("other-secret", testRefreshSecret, time.Hour, 24*time.Hour)
		token, err := otherService.GenerateAccessToken(userID, "ana@example.com", []string{RoleTourist})
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("Malformed Token", func(t *testing.T) {
		_, err := service.ValidateAccessToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("Expired Token", func(t *testing.T) {
		shortService := NewService(testAccessSecret, testRefreshSecret, -time.Minute, 24*time.Hour)
		token, err := shortService.GenerateAccessToken(userID, "ana@example.com", []string{RoleTourist})
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(token)
		assert.Error(t, err)
		assert.True(t, service.IsTokenExpired(token))
	})
}

func TestHasRole(t *testing.T) {
	claims := &Claims{Roles: []string{RoleOperator, RoleAdmin}}

	assert.True(t, claims.HasRole(RoleOperator))
	assert.True(t, claims.HasRole(RoleAdmin))
	assert.False(t, claims.HasRole(RoleTourist))
}

func TestGetTokenExpiry(t *testing.T) {
	service := NewService(testAccessSecret, testRefreshSecret, time.Hour, 24*time.Hour)

	token, err := service.GenerateAccessToken(uuid.New(), "ana@example.com", []string{RoleTourist})
	require.NoError(t, err)

	expiry, err := service.GetTokenExpiry(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, time.Minute)
}
