package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"documentiulia/infrastructure/cache"
	"documentiulia/pkg/common"
)

// CachePolicy declares how one read endpoint is cached. Policies are
// attached per route at registration time; nothing is resolved at runtime
// beyond the request-derived key.
type CachePolicy struct {
	// Key overrides request-derived key building when set.
	Key string

	// TTL for stored responses. Zero falls back to the store default.
	TTL time.Duration

	// Tags registered for every response stored under this policy.
	Tags []string

	// UserScoped prefixes the key with the caller identity and adds an
	// automatic user:<id> tag, isolating entries between tenants.
	UserScoped bool

	// Skip bypasses the cache entirely for this endpoint.
	Skip bool
}

// CacheResponse returns a middleware serving GET responses from the cache
// according to policy. On a hit the wrapped handler never runs; on a miss
// the captured response is stored when it is a non-empty 2xx JSON body.
// Empty and null bodies are never cached, so a negative result cannot mask
// a later write.
func CacheResponse(store *cache.Store, logger *zap.Logger, policy CachePolicy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only idempotent reads are cacheable; mutations belong to
			// the invalidation middleware.
			if policy.Skip || r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key, ok := CacheKeyForRequest(policy, r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if data, hit := store.Get(r.Context(), key); hit {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				w.Write(data)
				return
			}

			capture := newResponseCapture()
			next.ServeHTTP(capture, r)

			if body := capture.body.Bytes(); cacheable(capture.status, body) {
				tags := policy.Tags
				if policy.UserScoped {
					if userID, ok := common.GetUserID(r.Context()); ok {
						tags = append(append([]string(nil), tags...), cache.UserTag(userID))
					}
				}
				store.Set(r.Context(), key, json.RawMessage(body), cache.Options{
					TTL:  policy.TTL,
					Tags: tags,
				})
			} else {
				logger.Debug("response not cacheable",
					zap.String("key", key),
					zap.Int("status", capture.status),
				)
			}

			capture.header.Set("X-Cache", "MISS")
			capture.flush(w)
		})
	}
}

// CacheKeyForRequest builds the deterministic cache key for a request under
// the given policy. The same logical request always yields the same key:
// query parameters are normalized into sorted order, so parameter order
// cannot fragment the cache. Returns ok=false when the policy is
// user-scoped but the request carries no identity.
func CacheKeyForRequest(policy CachePolicy, r *http.Request) (string, bool) {
	key := policy.Key
	if key == "" {
		key = r.URL.Path
		// url.Values.Encode emits keys in sorted order, which is the
		// normalization the whole keyspace relies on.
		if query := r.URL.Query().Encode(); query != "" {
			key += "?" + query
		}
	}

	if policy.UserScoped {
		userID, ok := common.GetUserID(r.Context())
		if !ok || userID == "" {
			// No identity to scope by: serving a shared entry here could
			// leak one user's data to another, so skip the cache.
			return "", false
		}
		return cache.PrefixUser + userID + ":" + key, true
	}
	if policy.Key != "" {
		return key, true
	}
	return cache.PrefixAPI + key, true
}

// cacheable reports whether a captured response body should be stored.
func cacheable(status int, body []byte) bool {
	if status < 200 || status >= 300 {
		return false
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	return json.Valid(trimmed)
}
