package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"figures/internal/helpers"
	"figures/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	operator := &models.Operator{ID: uuid.New(), Email: "admin@example.com", Role: models.RoleAdmin}
	token, err := helpers.NewAccessToken(audienceTestJWTSecret, operator, 60)
	require.NoError(t, err)

	t.Run("login is public", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/figures/api/auth/login", nil)
		recorder := httptest.NewRecorder()

		var excluded bool
		Authenticate(audienceTestJWTSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			excluded, _ = r.Context().Value(AuthExcludedKey{}).(bool)
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(recorder, req)

		assert.True(t, excluded)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("api requires a token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/figures/api/courses-index/", nil)
		recorder := httptest.NewRecorder()

		Authenticate(audienceTestJWTSecret)(okHandler(nil)).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("valid token sets claims", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/figures/api/courses-index/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()

		var claims models.UserClaims
		Authenticate(audienceTestJWTSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ = helpers.GetUserClaims(r.Context())
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, operator.ID, claims.OperatorID)
	})
}

func TestAuthorizeRole(t *testing.T) {
	cases := []struct {
		name     string
		role     models.Role
		required models.Role
		status   int
	}{
		{"admin passes admin routes", models.RoleAdmin, models.RoleAdmin, http.StatusOK},
		{"admin passes staff routes", models.RoleAdmin, models.RoleStaff, http.StatusOK},
		{"staff passes staff routes", models.RoleStaff, models.RoleStaff, http.StatusOK},
		{"staff is rejected on admin routes", models.RoleStaff, models.RoleAdmin, http.StatusForbidden},
		{"unknown role is rejected", models.Role("guest"), models.RoleStaff, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/figures/api/sites/", nil)
			req = req.WithContext(contextWithClaims(req, models.UserClaims{Role: tc.role}))
			recorder := httptest.NewRecorder()

			AuthorizeRole(tc.required)(okHandler(nil)).ServeHTTP(recorder, req)
			assert.Equal(t, tc.status, recorder.Code)
		})
	}

	t.Run("missing claims is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/figures/api/sites/", nil)
		recorder := httptest.NewRecorder()

		AuthorizeRole(models.RoleStaff)(okHandler(nil)).ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestAuthorizeDefaultSite(t *testing.T) {
	run := func(role models.Role, siteID uint) int {
		req := httptest.NewRequest(http.MethodGet, "/figures/api/sites/", nil)
		ctx := contextWithClaims(req, models.UserClaims{Role: role})
		req = req.WithContext(ctx)
		req = req.WithContext(contextWithSite(req, models.Site{ID: siteID}))
		recorder := httptest.NewRecorder()
		AuthorizeDefaultSite(1)(okHandler(nil)).ServeHTTP(recorder, req)
		return recorder.Code
	}

	assert.Equal(t, http.StatusOK, run(models.RoleAdmin, 1))
	assert.Equal(t, http.StatusForbidden, run(models.RoleAdmin, 2))
	assert.Equal(t, http.StatusForbidden, run(models.RoleStaff, 1))
}
