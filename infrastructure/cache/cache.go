// Package cache implements the tag-indexed caching layer that fronts the
// read endpoints of the API: typed entries over a networked key-value
// backend, grouped invalidation via tags, fixed-window rate limiting,
// adaptive TTL and stale-while-revalidate refresh.
//
// Every operation is best-effort: a missing or unhealthy backend degrades
// reads to misses and writes to no-ops. Nothing in this package is allowed
// to fail a wrapped business operation.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Backend is the minimal contract the cache needs from the key-value store.
// infrastructure/redis provides the production implementation.
type Backend interface {
	// Ready reports whether the backend connection is usable. Callers must
	// not issue commands when Ready returns false.
	Ready() bool

	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Scan returns one page of keys matching the glob pattern plus the next
	// cursor. A returned cursor of 0 terminates the iteration.
	Scan(ctx context.Context, cursor uint64, match string, count int64) (keys []string, next uint64, err error)

	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	MGet(ctx context.Context, keys ...string) ([]*string, error)
	SetBatch(ctx context.Context, items []BatchItem) error

	DBSize(ctx context.Context) (int64, error)
	Info(ctx context.Context, sections ...string) (string, error)
	FlushDB(ctx context.Context) error
	FlushAll(ctx context.Context) error
}

// BatchItem is a single key/value pair for Backend.SetBatch.
type BatchItem struct {
	Key   string
	Value string
	TTL   time.Duration
}

// Entry is the envelope stored under every cache key. CachedAt and TTL are
// advisory metadata for diagnostics; the backend's own expiry is what
// actually bounds visibility.
type Entry struct {
	Data     json.RawMessage `json:"data"`
	CachedAt int64           `json:"cachedAt"`
	TTL      int64           `json:"ttl"`
	Tags     []string        `json:"tags,omitempty"`
}

// Options controls a single Set operation.
type Options struct {
	// TTL defaults to the store's default TTL when zero.
	TTL time.Duration
	// Tags associate the key with tag sets for grouped invalidation.
	Tags []string
}

// FetchFunc loads a value from the source of truth on a cache miss.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Common TTL values.
const (
	TTLShort  = time.Minute
	TTLMedium = 5 * time.Minute
	TTLLong   = 15 * time.Minute
	TTLHour   = time.Hour
	TTLDay    = 24 * time.Hour
	TTLWeek   = 7 * 24 * time.Hour
)

// Key prefixes for the business domains sharing the cache keyspace.
const (
	PrefixUser      = "user:"
	PrefixFleet     = "fleet:"
	PrefixVehicle   = "vehicle:"
	PrefixRoute     = "route:"
	PrefixInvoice   = "invoice:"
	PrefixAnalytics = "analytics:"
	PrefixDashboard = "dashboard:"
	PrefixConfig    = "config:"
	PrefixSession   = "session:"
	PrefixRateLimit = "ratelimit:"
	PrefixAPI       = "api:"
)

// Internal key prefixes for bookkeeping entries.
const (
	tagKeyPrefix    = "tag:"
	accessKeyPrefix = "access:"
	staleKeyPrefix  = "stale:"
)
