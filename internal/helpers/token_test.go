package helpers

import (
	"context"
	"testing"

	"figures/internal/configuration"
	"figures/internal/models"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenTestSecret = "test-secret-key-for-token-testing"

func TestAccessToken(t *testing.T) {
	hostUserID := uint(42)
	operator := &models.Operator{
		ID:         uuid.New(),
		Email:      "admin@example.com",
		Role:       models.RoleAdmin,
		HostUserID: &hostUserID,
	}

	token, err := NewAccessToken(tokenTestSecret, operator, 60)
	require.NoError(t, err)

	t.Run("parses a bearer header", func(t *testing.T) {
		claims, err := ParseAccessToken(tokenTestSecret, "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, operator.ID, claims.OperatorID)
		assert.Equal(t, operator.Email, claims.Email)
		assert.Equal(t, uint(42), claims.HostUserID)
		assert.Equal(t, configuration.AudienceAccessToken, claims.Aud)
		assert.True(t, claims.IsAdmin())
	})

	t.Run("requires the bearer prefix", func(t *testing.T) {
		_, err := ParseAccessToken(tokenTestSecret, token)
		assert.Error(t, err)
	})

	t.Run("rejects another secret", func(t *testing.T) {
		_, err := ParseToken("another-secret", token, false)
		assert.Error(t, err)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		expired, err := NewAccessToken(tokenTestSecret, operator, -1)
		require.NoError(t, err)
		_, err = ParseToken(tokenTestSecret, expired, false)
		assert.Error(t, err)
	})
}

func TestHostUserToken(t *testing.T) {
	t.Run("global staff is admin", func(t *testing.T) {
		user := &models.User{ID: 7, Email: "staff@example.com", IsActive: true, IsStaff: true}
		token, err := NewHostUserToken(tokenTestSecret, user, configuration.AudienceReadOnlyToken, 10)
		require.NoError(t, err)

		claims, err := ParseToken(tokenTestSecret, token, false)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, claims.Role)
		assert.Equal(t, uint(7), claims.HostUserID)
		assert.Equal(t, configuration.AudienceReadOnlyToken, claims.Aud)
	})

	t.Run("course staff is scoped", func(t *testing.T) {
		user := &models.User{ID: 8, Email: "instructor@example.com", IsActive: true}
		token, err := NewHostUserToken(tokenTestSecret, user, configuration.AudienceAccessToken, 10)
		require.NoError(t, err)

		claims, err := ParseToken(tokenTestSecret, token, false)
		require.NoError(t, err)
		assert.Equal(t, models.RoleStaff, claims.Role)
		assert.False(t, claims.IsAdmin())
	})
}

func TestCreateHash(t *testing.T) {
	hash, err := CreateHash("ChangeMePlease")
	require.NoError(t, err)

	match, err := argon2id.ComparePasswordAndHash("ChangeMePlease", hash)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestGetUserClaims(t *testing.T) {
	_, err := GetUserClaims(context.Background())
	assert.Error(t, err)

	ctx := context.WithValue(context.Background(), models.UserClaimKey{}, models.UserClaims{Email: "a@example.com"})
	claims, err := GetUserClaims(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email)
}
