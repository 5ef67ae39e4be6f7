package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// accessWindow is the decay window for access counters: a key unread for
// this long is considered cold again.
const accessWindow = time.Hour

// Access-count tiers for adaptive TTL scaling.
const (
	warmAccessCount    = 20
	hotAccessCount     = 50
	veryHotAccessCount = 100
)

// AccessKey returns the counter key tracking reads of a cache key.
func AccessKey(key string) string {
	return accessKeyPrefix + key
}

// TrackAccess increments the access counter for key. Failures are
// non-critical and silently dropped.
func (s *Store) TrackAccess(ctx context.Context, key string) {
	if !s.backend.Ready() {
		return
	}
	accessKey := AccessKey(key)
	if _, err := s.backend.Incr(ctx, accessKey); err != nil {
		return
	}
	_ = s.backend.Expire(ctx, accessKey, accessWindow)
}

// GetWithTracking behaves like Get and records the access for adaptive TTL
// scaling on a hit.
func (s *Store) GetWithTracking(ctx context.Context, key string) (json.RawMessage, bool) {
	data, ok := s.Get(ctx, key)
	if ok {
		s.TrackAccess(ctx, key)
	}
	return data, ok
}

// SetWithAdaptiveTTL stores value with a TTL scaled by how hot the key is:
// cold keys keep baseTTL, warm keys 1.5x, hot keys 2x and very hot keys 4x,
// capped at 24 hours.
func (s *Store) SetWithAdaptiveTTL(ctx context.Context, key string, value interface{}, baseTTL time.Duration, opts Options) bool {
	if !s.backend.Ready() {
		return false
	}

	count := s.accessCount(ctx, key)
	adapted := AdaptTTL(baseTTL, count)
	if adapted != baseTTL {
		s.logger.Debug("adaptive ttl applied",
			zap.String("key", key),
			zap.Int64("accesses", count),
			zap.Duration("base_ttl", baseTTL),
			zap.Duration("adapted_ttl", adapted),
		)
	}

	opts.TTL = adapted
	return s.Set(ctx, key, value, opts)
}

// AdaptTTL scales base by the access-count tier, capped at TTLDay.
func AdaptTTL(base time.Duration, accessCount int64) time.Duration {
	adapted := base
	switch {
	case accessCount > veryHotAccessCount:
		adapted = base * 4
	case accessCount > hotAccessCount:
		adapted = base * 2
	case accessCount > warmAccessCount:
		adapted = base * 3 / 2
	}
	if adapted > TTLDay {
		adapted = TTLDay
	}
	return adapted
}

// accessCount reads the access counter for key; absent or unreadable
// counters count as zero.
func (s *Store) accessCount(ctx context.Context, key string) int64 {
	raw, ok, err := s.backend.Get(ctx, AccessKey(key))
	if err != nil || !ok {
		return 0
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return count
}
