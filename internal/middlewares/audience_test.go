package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"figures/internal/configuration"
	"figures/internal/helpers"
	"figures/internal/models"
	"figures/internal/tests"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const audienceTestJWTSecret = "test-secret-key-for-audience-testing"

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func withClaims(t *testing.T, req *http.Request, token string) *http.Request {
	t.Helper()
	claims, err := helpers.ParseToken(audienceTestJWTSecret, "Bearer "+token, true)
	require.NoError(t, err)
	return req.WithContext(context.WithValue(req.Context(), models.UserClaimKey{}, claims))
}

// TestAudienceValidate tests the AudienceValidate middleware.
func TestAudienceValidate(t *testing.T) {
	operator := &models.Operator{ID: uuid.New(), Email: "admin@example.com", Role: models.RoleAdmin}
	hostUser := &models.User{ID: 3, Email: "staff@example.com", IsActive: true, IsStaff: true}

	t.Run("should skip validation when auth is excluded", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/figures/api/auth/login", nil)
		recorder := httptest.NewRecorder()
		req = req.WithContext(context.WithValue(req.Context(), AuthExcludedKey{}, true))

		var nextCalled bool
		AudienceValidate(okHandler(&nextCalled)).ServeHTTP(recorder, req)

		assert.True(t, nextCalled, "Next handler should be called for excluded paths")
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("should return FORBIDDEN when no claims in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/figures/api/courses-index/", nil)
		recorder := httptest.NewRecorder()

		AudienceValidate(okHandler(nil)).ServeHTTP(recorder, req)

		expected := models.Error{Status: http.StatusForbidden, Error: []string{"FORBIDDEN"}}
		tests.AssertJSONResponse(t, recorder, http.StatusForbidden, expected)
	})

	t.Run("should allow access token on regular routes", func(t *testing.T) {
		token, err := helpers.NewAccessToken(audienceTestJWTSecret, operator, 60)
		require.NoError(t, err)

		req := withClaims(t, httptest.NewRequest(http.MethodGet, "/figures/api/courses/detail/", nil), token)
		recorder := httptest.NewRecorder()

		var nextCalled bool
		AudienceValidate(okHandler(&nextCalled)).ServeHTTP(recorder, req)

		assert.True(t, nextCalled)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("should reject read-only token on regular routes", func(t *testing.T) {
		token, err := helpers.NewHostUserToken(audienceTestJWTSecret, hostUser, configuration.AudienceReadOnlyToken, 60)
		require.NoError(t, err)

		req := withClaims(t, httptest.NewRequest(http.MethodGet, "/figures/api/users/detail/", nil), token)
		recorder := httptest.NewRecorder()

		AudienceValidate(okHandler(nil)).ServeHTTP(recorder, req)

		expected := models.Error{Status: http.StatusForbidden, Error: []string{"FORBIDDEN"}}
		tests.AssertJSONResponse(t, recorder, http.StatusForbidden, expected)
	})

	t.Run("should allow read-only token on report routes", func(t *testing.T) {
		token, err := helpers.NewHostUserToken(audienceTestJWTSecret, hostUser, configuration.AudienceReadOnlyToken, 60)
		require.NoError(t, err)

		req := withClaims(t, httptest.NewRequest(http.MethodGet, "/figures/api/site-daily-metrics/", nil), token)
		recorder := httptest.NewRecorder()

		var nextCalled bool
		AudienceValidate(okHandler(&nextCalled)).ServeHTTP(recorder, req)

		assert.True(t, nextCalled)
	})

	t.Run("should reject read-only token on populate", func(t *testing.T) {
		token, err := helpers.NewHostUserToken(audienceTestJWTSecret, hostUser, configuration.AudienceReadOnlyToken, 60)
		require.NoError(t, err)

		req := withClaims(t, httptest.NewRequest(http.MethodPost, "/figures/api/populate/", nil), token)
		recorder := httptest.NewRecorder()

		AudienceValidate(okHandler(nil)).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}

func TestGetRouteAllowedAudiences(t *testing.T) {
	t.Run("returns audiences for report routes", func(t *testing.T) {
		audiences := getRouteAllowedAudiences("/figures/api/reports/2024-01-01-site-1.csv", "GET")
		assert.Len(t, audiences, 2)
		assert.Contains(t, audiences, configuration.AudienceReadOnlyToken)
	})

	t.Run("returns nil for unconfigured route", func(t *testing.T) {
		assert.Nil(t, getRouteAllowedAudiences("/figures/api/users/general/", "GET"))
	})

	t.Run("returns nil for wrong method", func(t *testing.T) {
		assert.Nil(t, getRouteAllowedAudiences("/figures/api/reports/", "POST"))
	})
}
