package middleware

import (
	"net/http"
	"strconv"
	"time"

	"documentiulia/infrastructure/cache"
	"documentiulia/pkg/common"
	apperrors "documentiulia/pkg/errors"
)

// RateLimit returns a middleware enforcing a fixed-window request quota per
// caller. Authenticated requests are limited per user, anonymous requests
// per client IP. The limiter fails open when the backend is down; it is a
// protection layer, never a hard gate.
func RateLimit(store *cache.Store, maxRequests int, window time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := clientIdentifier(r)
			result := store.CheckRateLimit(r.Context(), identifier, maxRequests, window)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(result.ResetIn/time.Second)))

			if !result.Allowed {
				common.RespondAppError(w, apperrors.NewRateLimitError(maxRequests, window.String()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIdentifier picks the rate-limit bucket for a request.
func clientIdentifier(r *http.Request) string {
	if userID, ok := common.GetUserID(r.Context()); ok && userID != "" {
		return "user:" + userID
	}
	return "ip:" + r.RemoteAddr
}
