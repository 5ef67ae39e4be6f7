package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"documentiulia/infrastructure/cache"
	"documentiulia/pkg/common"
)

func newTestStore() *cache.Store {
	return cache.NewStore(cache.NewMemoryBackend(), cache.StoreOptions{})
}

func jsonHandler(calls *int32, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestCacheResponse_MissThenHit(t *testing.T) {
	store := newTestStore()
	var calls int32
	handler := CacheResponse(store, zap.NewNop(), CachePolicy{TTL: time.Minute})(
		jsonHandler(&calls, `{"vehicles":[1,2]}`),
	)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/vehicles", nil))
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"vehicles":[1,2]}`, first.Body.String())
	assert.Equal(t, int32(1), calls)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/vehicles", nil))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"vehicles":[1,2]}`, second.Body.String())
	assert.Equal(t, int32(1), calls, "hits must not run the handler")
}

func TestCacheResponse_QueryOrderDoesNotFragmentKeys(t *testing.T) {
	store := newTestStore()
	var calls int32
	handler := CacheResponse(store, zap.NewNop(), CachePolicy{})(
		jsonHandler(&calls, `{"page":1}`),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices?page=1&status=paid", nil))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices?status=paid&page=1", nil))

	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, int32(1), calls)
}

func TestCacheResponse_OnlyCachesGet(t *testing.T) {
	store := newTestStore()
	var calls int32
	handler := CacheResponse(store, zap.NewNop(), CachePolicy{})(
		jsonHandler(&calls, `{"ok":true}`),
	)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/vehicles", nil))
		assert.Empty(t, w.Header().Get("X-Cache"))
	}
	assert.Equal(t, int32(2), calls)
}

func TestCacheResponse_SkipBypasses(t *testing.T) {
	store := newTestStore()
	var calls int32
	handler := CacheResponse(store, zap.NewNop(), CachePolicy{Skip: true})(
		jsonHandler(&calls, `{"ok":true}`),
	)

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	}
	assert.Equal(t, int32(2), calls)
}

func TestCacheResponse_NeverCachesNullOrEmpty(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null body", "null"},
		{"empty body", ""},
		{"whitespace body", "  \n"},
		{"invalid json", "<html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			var calls int32
			handler := CacheResponse(store, zap.NewNop(), CachePolicy{})(
				jsonHandler(&calls, tt.body),
			)

			for i := 0; i < 2; i++ {
				handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
			}
			assert.Equal(t, int32(2), calls, "uncacheable body must not produce hits")
		})
	}
}

func TestCacheResponse_NeverCachesErrors(t *testing.T) {
	store := newTestStore()
	var calls int32
	handler := CacheResponse(store, zap.NewNop(), CachePolicy{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"boom"}`))
		}),
	)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}
	assert.Equal(t, int32(2), calls)
}

func TestCacheResponse_UserScopedIsolation(t *testing.T) {
	store := newTestStore()
	var calls int32
	handler := CacheResponse(store, zap.NewNop(), CachePolicy{UserScoped: true})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			userID, _ := common.GetUserID(r.Context())
			w.Write([]byte(`{"user":"` + userID + `"}`))
		}),
	)

	asUser := func(userID string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
		r = r.WithContext(common.WithUserID(r.Context(), userID))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	asUser("u1")
	w := asUser("u2")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"), "users must not share entries")
	assert.JSONEq(t, `{"user":"u2"}`, w.Body.String())

	w = asUser("u1")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"user":"u1"}`, w.Body.String())
	assert.Equal(t, int32(2), calls)
}

func TestCacheResponse_UserScopedWithoutIdentityBypasses(t *testing.T) {
	store := newTestStore()
	var calls int32
	handler := CacheResponse(store, zap.NewNop(), CachePolicy{UserScoped: true})(
		jsonHandler(&calls, `{"ok":true}`),
	)

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	}
	assert.Equal(t, int32(2), calls)
}

func TestCacheResponse_UserScopedEntriesCarryUserTag(t *testing.T) {
	store := newTestStore()
	var calls int32
	handler := CacheResponse(store, zap.NewNop(), CachePolicy{UserScoped: true})(
		jsonHandler(&calls, `{"ok":true}`),
	)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	r = r.WithContext(common.WithUserID(r.Context(), "u1"))
	handler.ServeHTTP(httptest.NewRecorder(), r)

	// Invalidating the user tag drops the stored response.
	assert.Equal(t, 1, store.InvalidateTag(r.Context(), cache.UserTag("u1")))
}

func TestCacheKeyForRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/invoices?status=paid&page=1", nil)

	key, ok := CacheKeyForRequest(CachePolicy{}, r)
	require.True(t, ok)
	assert.Equal(t, "api:/api/v1/invoices?page=1&status=paid", key)

	key, ok = CacheKeyForRequest(CachePolicy{Key: "invoices:list"}, r)
	require.True(t, ok)
	assert.Equal(t, "invoices:list", key)

	scoped := r.WithContext(common.WithUserID(r.Context(), "u1"))
	key, ok = CacheKeyForRequest(CachePolicy{UserScoped: true}, scoped)
	require.True(t, ok)
	assert.Equal(t, "user:u1:/api/v1/invoices?page=1&status=paid", key)

	_, ok = CacheKeyForRequest(CachePolicy{UserScoped: true}, r)
	assert.False(t, ok)
}
