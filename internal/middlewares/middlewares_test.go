package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"figures/internal/models"
	"figures/internal/tests"

	"github.com/stretchr/testify/assert"
)

func contextWithClaims(r *http.Request, claims models.UserClaims) context.Context {
	return context.WithValue(r.Context(), models.UserClaimKey{}, claims)
}

func contextWithSite(r *http.Request, site models.Site) context.Context {
	return context.WithValue(r.Context(), models.SiteKey{}, site)
}

type stubResolver struct {
	sites map[string]models.Site
}

func (s stubResolver) CurrentSite(_ context.Context, host string) (models.Site, error) {
	if site, ok := s.sites[host]; ok {
		return site, nil
	}
	return models.Site{}, errors.New("no site")
}

func TestCurrentSite(t *testing.T) {
	resolver := stubResolver{sites: map[string]models.Site{
		"alpha.example.com": {ID: 2, Domain: "alpha.example.com"},
	}}

	t.Run("resolves the request host", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://alpha.example.com/figures/api/sites/", nil)
		recorder := httptest.NewRecorder()

		var site models.Site
		CurrentSite(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			site, _ = r.Context().Value(models.SiteKey{}).(models.Site)
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(recorder, req)

		assert.Equal(t, uint(2), site.ID)
	})

	t.Run("fails closed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://unknown.example.com/figures/api/sites/", nil)
		recorder := httptest.NewRecorder()

		CurrentSite(resolver)(okHandler(nil)).ServeHTTP(recorder, req)

		expected := models.Error{Status: http.StatusNotFound, Error: []string{"SITE_NOT_FOUND"}}
		tests.AssertJSONResponse(t, recorder, http.StatusNotFound, expected)
	})
}

func TestValidate(t *testing.T) {
	t.Run("stores a valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/figures/api/auth/login",
			strings.NewReader(`{"email":"admin@example.com","password":"secret"}`))
		recorder := httptest.NewRecorder()

		var body models.AuthLoginBody
		Validate[models.AuthLoginBody](http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ = r.Context().Value(BodyKey{}).(models.AuthLoginBody)
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "admin@example.com", body.Email)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/figures/api/auth/login", strings.NewReader(`{`))
		recorder := httptest.NewRecorder()

		Validate[models.AuthLoginBody](okHandler(nil)).ServeHTTP(recorder, req)

		expected := models.Error{Status: http.StatusBadRequest, Error: []string{"BAD_REQUEST"}}
		tests.AssertJSONResponse(t, recorder, http.StatusBadRequest, expected)
	})

	t.Run("reports failing fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/figures/api/auth/login",
			strings.NewReader(`{"email":"not-an-email","password":"secret"}`))
		recorder := httptest.NewRecorder()

		Validate[models.AuthLoginBody](okHandler(nil)).ServeHTTP(recorder, req)

		expected := models.Error{Status: http.StatusBadRequest, Error: []string{"Email_email"}}
		tests.AssertJSONResponse(t, recorder, http.StatusBadRequest, expected)
	})
}

func TestValidateQuery(t *testing.T) {
	t.Run("decodes and stores", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/figures/api/site-daily-metrics/?date_0=2024-01-01&limit=5", nil)
		recorder := httptest.NewRecorder()

		var query models.DailyMetricsQueryParams
		ValidateQuery[models.DailyMetricsQueryParams](http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query, _ = r.Context().Value(QueryKey{}).(models.DailyMetricsQueryParams)
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "2024-01-01", query.DateFrom)
		assert.Equal(t, 5, query.Limit)
	})

	t.Run("rejects bad dates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/figures/api/site-daily-metrics/?date_0=01/02/2024", nil)
		recorder := httptest.NewRecorder()

		ValidateQuery[models.DailyMetricsQueryParams](okHandler(nil)).ServeHTTP(recorder, req)

		expected := models.Error{Status: http.StatusBadRequest, Error: []string{"DateFrom_datetime"}}
		tests.AssertJSONResponse(t, recorder, http.StatusBadRequest, expected)
	})

	t.Run("rejects oversized pages", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/figures/api/courses-index/?limit=5000", nil)
		recorder := httptest.NewRecorder()

		ValidateQuery[models.CourseQueryParams](okHandler(nil)).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

type MockCache struct {
	retryAfter int
	calls      []string
}

func (m *MockCache) RegisterInstance(_ string) error { return nil }
func (m *MockCache) PruneInstances() error           { return nil }
func (m *MockCache) StartIdentityTicker(_ string)    {}
func (m *MockCache) GetRateLimit(identifier string, _ int) (int, error) {
	m.calls = append(m.calls, identifier)
	return m.retryAfter, nil
}
func (m *MockCache) TryAcquireLock(_ string, _ string, _ int) (bool, error) { return true, nil }
func (m *MockCache) RefreshLock(_ string, _ string, _ int) (bool, error)    { return true, nil }
func (m *MockCache) GetJSON(_ string, _ any) (bool, error)                  { return false, nil }
func (m *MockCache) SetJSON(_ string, _ any, _ time.Duration) error         { return nil }
func (m *MockCache) Close() error                                           { return nil }

func TestRateLimit(t *testing.T) {
	t.Run("passes under the limit", func(t *testing.T) {
		cache := &MockCache{}
		req := httptest.NewRequest(http.MethodGet, "/figures/api/sites/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		recorder := httptest.NewRecorder()

		RateLimit(cache, nil, 60)(okHandler(nil)).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, []string{"10.0.0.1"}, cache.calls)
	})

	t.Run("rejects over the limit", func(t *testing.T) {
		cache := &MockCache{retryAfter: 12}
		req := httptest.NewRequest(http.MethodGet, "/figures/api/sites/", nil)
		req = req.WithContext(contextWithClaims(req, models.UserClaims{Email: "admin@example.com"}))
		recorder := httptest.NewRecorder()

		RateLimit(cache, nil, 60)(okHandler(nil)).ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
		assert.Equal(t, "12", recorder.Header().Get("Retry-After"))
		assert.Equal(t, []string{"admin@example.com"}, cache.calls)
	})

	t.Run("trusts forwarded header from known proxies", func(t *testing.T) {
		cache := &MockCache{}
		req := httptest.NewRequest(http.MethodGet, "/figures/api/sites/", nil)
		req.RemoteAddr = "10.0.0.254:443"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.254")
		recorder := httptest.NewRecorder()

		RateLimit(cache, []string{"10.0.0.254"}, 60)(okHandler(nil)).ServeHTTP(recorder, req)

		assert.Equal(t, []string{"203.0.113.9"}, cache.calls)
	})

	t.Run("disabled without cache", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/figures/api/sites/", nil)
		recorder := httptest.NewRecorder()

		RateLimit(nil, nil, 60)(okHandler(nil)).ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}
