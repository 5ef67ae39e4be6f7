package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// scanBatchSize bounds how many keys a single SCAN iteration may return.
const scanBatchSize = 100

// StoreOptions configures a Store.
type StoreOptions struct {
	// DefaultTTL applies to Set calls that do not specify a TTL.
	// Defaults to TTLMedium.
	DefaultTTL time.Duration

	// TagGrace is added to the member TTL when expiring tag sets, so a tag
	// set never expires before its member keys. Defaults to one minute.
	TagGrace time.Duration

	// Logger is optional; a nil logger disables logging.
	Logger *zap.Logger

	// Stats is optional; a nil value creates a dedicated recorder.
	Stats *Stats
}

func (o *StoreOptions) init() {
	if o.DefaultTTL <= 0 {
		o.DefaultTTL = TTLMedium
	}
	if o.TagGrace <= 0 {
		o.TagGrace = time.Minute
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Stats == nil {
		o.Stats = NewStats()
	}
}

// Store is the typed cache layer over a Backend. All methods are fail-soft:
// backend unavailability and command errors degrade to miss/no-op results
// and are never surfaced to the request path.
type Store struct {
	backend Backend
	logger  *zap.Logger
	stats   *Stats

	defaultTTL time.Duration
	tagGrace   time.Duration
}

// NewStore creates a Store over the given backend.
func NewStore(backend Backend, opts StoreOptions) *Store {
	opts.init()
	return &Store{
		backend:    backend,
		logger:     opts.Logger,
		stats:      opts.Stats,
		defaultTTL: opts.DefaultTTL,
		tagGrace:   opts.TagGrace,
	}
}

// Stats returns the hit/miss recorder owned by this store.
func (s *Store) Stats() *Stats {
	return s.stats
}

// Connected reports whether the backing store is currently reachable.
func (s *Store) Connected() bool {
	return s.backend.Ready()
}

// DefaultTTL returns the TTL applied when Set options carry none.
func (s *Store) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Get returns the cached payload for key, or ok=false on a miss. Backend
// errors and corrupt entries count as misses.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	entry, ok := s.GetEntry(ctx, key)
	if !ok {
		return nil, false
	}
	return entry.Data, true
}

// GetEntry returns the full cache entry for key, including its metadata.
func (s *Store) GetEntry(ctx context.Context, key string) (*Entry, bool) {
	if !s.backend.Ready() {
		s.stats.Miss()
		return nil, false
	}

	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		s.stats.Miss()
		return nil, false
	}
	if !ok {
		s.stats.Miss()
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// Corrupt payloads are treated as misses, never as errors.
		s.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		s.stats.Miss()
		return nil, false
	}

	s.stats.Hit()
	return &entry, true
}

// Unmarshal decodes the cached payload for key into dest. Returns false on
// a miss or when the payload does not match dest.
func (s *Store) Unmarshal(ctx context.Context, key string, dest interface{}) bool {
	data, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.Warn("cache payload mismatch", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores value under key with the given options. Returns false when the
// write could not be performed; the caller must treat that as non-fatal.
func (s *Store) Set(ctx context.Context, key string, value interface{}, opts Options) bool {
	if !s.backend.Ready() {
		return false
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache value not serializable", zap.String("key", key), zap.Error(err))
		return false
	}

	entry := Entry{
		Data:     data,
		CachedAt: time.Now().UnixMilli(),
		TTL:      int64(ttl / time.Second),
		Tags:     opts.Tags,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("cache entry not serializable", zap.String("key", key), zap.Error(err))
		return false
	}

	if err := s.backend.Set(ctx, key, string(payload), ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}

	if len(opts.Tags) > 0 {
		s.addKeyToTags(ctx, key, opts.Tags, ttl)
	}

	return true
}

// Delete removes key from the cache.
func (s *Store) Delete(ctx context.Context, key string) bool {
	if !s.backend.Ready() {
		return false
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Exists reports whether key is present in the cache.
func (s *Store) Exists(ctx context.Context, key string) bool {
	if !s.backend.Ready() {
		return false
	}
	ok, err := s.backend.Exists(ctx, key)
	if err != nil {
		s.logger.Warn("cache exists failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

// DeletePattern deletes every key matching the glob pattern, in batches of
// scanBatchSize, and returns the number of keys deleted. Concurrent writers
// may race the scan; eventual consistency is acceptable here.
func (s *Store) DeletePattern(ctx context.Context, pattern string) int {
	if !s.backend.Ready() {
		return 0
	}

	deleted := 0
	var cursor uint64
	for {
		keys, next, err := s.backend.Scan(ctx, cursor, pattern, scanBatchSize)
		if err != nil {
			s.logger.Warn("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
			return deleted
		}
		if len(keys) > 0 {
			if err := s.backend.Delete(ctx, keys...); err != nil {
				s.logger.Warn("cache batch delete failed", zap.String("pattern", pattern), zap.Error(err))
				return deleted
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	s.logger.Debug("deleted keys by pattern",
		zap.String("pattern", pattern),
		zap.Int("count", deleted),
	)
	return deleted
}

// Keys returns every key matching the glob pattern.
func (s *Store) Keys(ctx context.Context, pattern string) []string {
	if !s.backend.Ready() {
		return nil
	}

	var keys []string
	var cursor uint64
	for {
		page, next, err := s.backend.Scan(ctx, cursor, pattern, scanBatchSize)
		if err != nil {
			s.logger.Warn("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
			return keys
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys
}

// MGet fetches multiple keys at once. The result maps every requested key;
// missing or corrupt entries map to nil.
func (s *Store) MGet(ctx context.Context, keys []string) map[string]json.RawMessage {
	results := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		results[key] = nil
	}
	if !s.backend.Ready() || len(keys) == 0 {
		for range keys {
			s.stats.Miss()
		}
		return results
	}

	values, err := s.backend.MGet(ctx, keys...)
	if err != nil {
		s.logger.Warn("cache mget failed", zap.Int("keys", len(keys)), zap.Error(err))
		for range keys {
			s.stats.Miss()
		}
		return results
	}

	for i, key := range keys {
		if i >= len(values) || values[i] == nil {
			s.stats.Miss()
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(*values[i]), &entry); err != nil {
			s.stats.Miss()
			continue
		}
		s.stats.Hit()
		results[key] = entry.Data
	}
	return results
}

// BatchEntry is one key/value pair for SetBatch and WarmCache.
type BatchEntry struct {
	Key   string
	Value interface{}
	Opts  Options
}

// SetBatch writes multiple entries through a single pipelined call and
// returns the number of entries submitted.
func (s *Store) SetBatch(ctx context.Context, entries []BatchEntry) int {
	if !s.backend.Ready() || len(entries) == 0 {
		return 0
	}

	items := make([]BatchItem, 0, len(entries))
	for _, e := range entries {
		ttl := e.Opts.TTL
		if ttl <= 0 {
			ttl = s.defaultTTL
		}
		data, err := json.Marshal(e.Value)
		if err != nil {
			s.logger.Warn("cache value not serializable", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		payload, err := json.Marshal(Entry{
			Data:     data,
			CachedAt: time.Now().UnixMilli(),
			TTL:      int64(ttl / time.Second),
			Tags:     e.Opts.Tags,
		})
		if err != nil {
			continue
		}
		items = append(items, BatchItem{Key: e.Key, Value: string(payload), TTL: ttl})
	}

	if len(items) == 0 {
		return 0
	}
	if err := s.backend.SetBatch(ctx, items); err != nil {
		s.logger.Warn("cache batch set failed", zap.Int("entries", len(items)), zap.Error(err))
		return 0
	}

	for _, e := range entries {
		if len(e.Opts.Tags) > 0 {
			ttl := e.Opts.TTL
			if ttl <= 0 {
				ttl = s.defaultTTL
			}
			s.addKeyToTags(ctx, e.Key, e.Opts.Tags, ttl)
		}
	}
	return len(items)
}

// GetOrSet returns the cached payload for key, fetching and storing it on a
// miss. Fetch errors propagate; nil fetch results are returned but never
// cached, so negative results cannot mask later writes.
func (s *Store) GetOrSet(ctx context.Context, key string, opts Options, fetch FetchFunc) (json.RawMessage, error) {
	if data, ok := s.Get(ctx, key); ok {
		s.TrackAccess(ctx, key)
		return data, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	s.Set(ctx, key, value, opts)
	return json.Marshal(value)
}

// WarmCache pre-populates the cache and returns the number of entries that
// were stored successfully.
func (s *Store) WarmCache(ctx context.Context, entries []BatchEntry) int {
	warmed := 0
	for _, e := range entries {
		if s.Set(ctx, e.Key, e.Value, e.Opts) {
			warmed++
		}
	}
	s.logger.Info("cache warmed",
		zap.Int("warmed", warmed),
		zap.Int("requested", len(entries)),
	)
	return warmed
}

// FlushDB clears the current keyspace and resets the hit/miss counters.
func (s *Store) FlushDB(ctx context.Context) bool {
	if !s.backend.Ready() {
		return false
	}
	if err := s.backend.FlushDB(ctx); err != nil {
		s.logger.Error("cache flush db failed", zap.Error(err))
		return false
	}
	s.stats.Reset()
	s.logger.Warn("flushed current cache database")
	return true
}

// FlushAll clears every keyspace on the backend and resets the counters.
func (s *Store) FlushAll(ctx context.Context) bool {
	if !s.backend.Ready() {
		return false
	}
	if err := s.backend.FlushAll(ctx); err != nil {
		s.logger.Error("cache flush all failed", zap.Error(err))
		return false
	}
	s.stats.Reset()
	s.logger.Warn("flushed all cache entries")
	return true
}
