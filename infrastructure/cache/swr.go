package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// StaleKey returns the freshness-marker key for a cache key. The marker is
// written with the fresh-window TTL; while it exists the entry is fresh,
// and its absence (while the entry itself still lives under the longer
// stale TTL) signals "serve, but refresh in the background".
func StaleKey(key string) string {
	return staleKeyPrefix + key
}

// SWROptions configures GetStaleWhileRevalidate.
type SWROptions struct {
	// TTL is the fresh window. Defaults to the store default TTL.
	TTL time.Duration
	// StaleTTL bounds how long a stale value may still be served.
	// Defaults to twice the fresh window.
	StaleTTL time.Duration
}

func (o *SWROptions) init(defaultTTL time.Duration) {
	if o.TTL <= 0 {
		o.TTL = defaultTTL
	}
	if o.StaleTTL <= 0 {
		o.StaleTTL = o.TTL * 2
	}
}

// SWRResult carries the served payload and whether it was stale.
type SWRResult struct {
	Data  json.RawMessage
	Stale bool
}

// GetStaleWhileRevalidate serves the cached value for key immediately. When
// the value has outlived its fresh window it is still returned, and a
// detached background refresh re-fetches and re-stores it. On a full miss
// the value is fetched synchronously.
//
// Background refresh failures are logged and swallowed; the next expiry
// simply falls back to a synchronous fetch.
func (s *Store) GetStaleWhileRevalidate(ctx context.Context, key string, fetch FetchFunc, opts SWROptions) (SWRResult, error) {
	opts.init(s.defaultTTL)

	if data, ok := s.Get(ctx, key); ok {
		fresh := s.Exists(ctx, StaleKey(key))
		if !fresh {
			s.refreshInBackground(key, fetch, opts)
		}
		return SWRResult{Data: data, Stale: !fresh}, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return SWRResult{}, err
	}

	s.Set(ctx, key, value, Options{TTL: opts.StaleTTL})
	s.setFreshMarker(ctx, key, opts.TTL)

	data, err := json.Marshal(value)
	if err != nil {
		return SWRResult{}, err
	}
	return SWRResult{Data: data}, nil
}

// refreshInBackground re-fetches key in a detached goroutine. The task is
// not cancellable and is not awaited by the triggering request.
func (s *Store) refreshInBackground(key string, fetch FetchFunc, opts SWROptions) {
	go func() {
		ctx := context.Background()
		value, err := fetch(ctx)
		if err != nil {
			s.logger.Warn("background refresh failed",
				zap.String("key", key),
				zap.Error(err),
			)
			return
		}
		s.Set(ctx, key, value, Options{TTL: opts.StaleTTL})
		s.setFreshMarker(ctx, key, opts.TTL)
	}()
}

func (s *Store) setFreshMarker(ctx context.Context, key string, ttl time.Duration) {
	if !s.backend.Ready() {
		return
	}
	if err := s.backend.Set(ctx, StaleKey(key), "1", ttl); err != nil {
		s.logger.Warn("fresh marker set failed", zap.String("key", key), zap.Error(err))
	}
}
