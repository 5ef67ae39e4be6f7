package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RateLimitResult reports the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool          `json:"allowed"`
	Remaining int           `json:"remaining"`
	ResetIn   time.Duration `json:"reset_in"`
}

// CheckRateLimit applies a fixed-window counter to identifier: the counter
// is atomically incremented, and the first request of a window sets the
// expiry. Boundary bursts of up to twice maxRequests across two adjacent
// windows are an accepted trade-off of the fixed-window scheme.
//
// When the backend is unavailable the check fails open with the full quota,
// so rate limiting can never turn into a denial-of-service vector itself.
func (s *Store) CheckRateLimit(ctx context.Context, identifier string, maxRequests int, window time.Duration) RateLimitResult {
	failOpen := RateLimitResult{Allowed: true, Remaining: maxRequests}
	if !s.backend.Ready() {
		return failOpen
	}

	key := PrefixRateLimit + identifier

	current, err := s.backend.Incr(ctx, key)
	if err != nil {
		s.logger.Warn("rate limit incr failed", zap.String("identifier", identifier), zap.Error(err))
		return failOpen
	}

	if current == 1 {
		if err := s.backend.Expire(ctx, key, window); err != nil {
			s.logger.Warn("rate limit expire failed", zap.String("identifier", identifier), zap.Error(err))
		}
	}

	resetIn, err := s.backend.TTL(ctx, key)
	if err != nil {
		resetIn = 0
	}

	remaining := maxRequests - int(current)
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitResult{
		Allowed:   current <= int64(maxRequests),
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}
