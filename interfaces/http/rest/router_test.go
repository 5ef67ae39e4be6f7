package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"documentiulia/infrastructure/cache"
	"documentiulia/infrastructure/config"
	"documentiulia/interfaces/http/rest/middleware"
	"documentiulia/pkg/auth"
)

func newTestRouter(t *testing.T, backend *cache.MemoryBackend, routes ...Route) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Environment:     "test",
		RateLimitMax:    100,
		RateLimitWindow: time.Minute,
		JWTSecret:       "test-secret",
	}
	store := cache.NewStore(backend, cache.StoreOptions{})
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: cfg.JWTSecret})
	require.NoError(t, err)

	return NewRouter(cfg, store, validator, zap.NewNop(), routes...).Setup()
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestRouter_HealthEndpoints(t *testing.T) {
	backend := cache.NewMemoryBackend()
	router := newTestRouter(t, backend)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)

	// A down cache degrades readiness without failing it.
	backend.SetReady(false)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestRouter_APIRequiresAuthentication(t *testing.T) {
	router := newTestRouter(t, cache.NewMemoryBackend())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/cache/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/admin/cache/stats", nil)
	r.Header.Set("Authorization", bearerToken(t, "admin-1"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MountsBusinessRoutesWithCaching(t *testing.T) {
	router := newTestRouter(t, cache.NewMemoryBackend(), Route{
		Method:  http.MethodGet,
		Pattern: "/vehicles",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"vehicles":[]}`))
		},
		Cache: &middleware.CachePolicy{TTL: time.Minute},
	})

	request := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/vehicles", nil)
		r.Header.Set("Authorization", bearerToken(t, "u1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w
	}

	first := request()
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := request()
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.NotEmpty(t, second.Header().Get("X-RateLimit-Remaining"))
}

func TestRouter_MutationInvalidatesTaggedEntries(t *testing.T) {
	backend := cache.NewMemoryBackend()
	store := cache.NewStore(backend, cache.StoreOptions{})
	require.True(t, store.Set(httptest.NewRequest(http.MethodGet, "/", nil).Context(),
		"vehicle:v42", "cached", cache.Options{Tags: []string{"vehicle:v42"}}))

	router := newTestRouter(t, backend, Route{
		Method:  http.MethodPut,
		Pattern: "/vehicles/{id}",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true}`))
		},
		InvalidateTags: []string{"vehicle:{id}"},
	})

	r := httptest.NewRequest(http.MethodPut, "/api/v1/vehicles/v42", nil)
	r.Header.Set("Authorization", bearerToken(t, "u1"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.Exists(r.Context(), "vehicle:v42"))
}
