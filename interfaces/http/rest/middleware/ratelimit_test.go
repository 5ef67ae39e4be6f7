package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"documentiulia/pkg/common"
)

func TestRateLimit_AllowsWithinQuotaAndSetsHeaders(t *testing.T) {
	store := newTestStore()
	handler := RateLimit(store, 3, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true}`))
		}),
	)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r = r.WithContext(common.WithUserID(r.Context(), "u1"))
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_RejectsBeyondQuota(t *testing.T) {
	store := newTestStore()
	handler := RateLimit(store, 2, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true}`))
		}),
	)

	request := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		r = r.WithContext(common.WithUserID(r.Context(), "u1"))
		handler.ServeHTTP(w, r)
		return w
	}

	request()
	request()
	w := request()

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RATE_LIMIT", resp.Error.Code)
}

func TestRateLimit_AnonymousRequestsBucketByIP(t *testing.T) {
	store := newTestStore()
	handler := RateLimit(store, 1, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true}`))
		}),
	)

	request := func(addr string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		r.RemoteAddr = addr
		handler.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, request("10.0.0.2:1234").Code)
}
