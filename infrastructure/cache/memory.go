package cache

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend used by tests and by local
// development when no Redis is available. It honors TTLs lazily on access
// and implements the same glob matching SCAN does.
type MemoryBackend struct {
	mu    sync.RWMutex
	ready bool
	items map[string]memoryItem
	sets  map[string]memorySet
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

type memorySet struct {
	members   map[string]struct{}
	expiresAt time.Time
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory backend in the ready state.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		ready: true,
		items: make(map[string]memoryItem),
		sets:  make(map[string]memorySet),
	}
}

// SetReady toggles the simulated connection state.
func (m *MemoryBackend) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

// Ready reports the simulated connection state.
func (m *MemoryBackend) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

func (i memoryItem) expired() bool {
	return !i.expiresAt.IsZero() && time.Now().After(i.expiresAt)
}

func (s memorySet) expired() bool {
	return !s.expiresAt.IsZero() && time.Now().After(s.expiresAt)
}

func (m *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return "", false, nil
	}
	if item.expired() {
		delete(m.items, key)
		return "", false, nil
	}
	return item.value, true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memoryItem{value: value}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}
	m.items[key] = item
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.items, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *MemoryBackend) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[key]; ok {
		if item.expired() {
			delete(m.items, key)
			return false, nil
		}
		return true, nil
	}
	if set, ok := m.sets[key]; ok {
		if set.expired() {
			delete(m.sets, key)
			return false, nil
		}
		return true, nil
	}
	return false, nil
}

// Scan returns every live matching key in a single page.
func (m *MemoryBackend) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for key, item := range m.items {
		if item.expired() {
			delete(m.items, key)
			continue
		}
		if ok, _ := path.Match(match, key); ok {
			keys = append(keys, key)
		}
	}
	for key, set := range m.sets {
		if set.expired() {
			delete(m.sets, key)
			continue
		}
		if ok, _ := path.Match(match, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, 0, nil
}

func (m *MemoryBackend) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok || item.expired() {
		item = memoryItem{value: "0"}
	}
	current, err := strconv.ParseInt(item.value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value at %s is not an integer", key)
	}
	current++
	item.value = strconv.FormatInt(current, 10)
	m.items[key] = item
	return current, nil
}

func (m *MemoryBackend) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[key]; ok && !item.expired() {
		item.expiresAt = time.Now().Add(ttl)
		m.items[key] = item
		return nil
	}
	if set, ok := m.sets[key]; ok && !set.expired() {
		set.expiresAt = time.Now().Add(ttl)
		m.sets[key] = set
	}
	return nil
}

func (m *MemoryBackend) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expiresAt time.Time
	if item, ok := m.items[key]; ok {
		expiresAt = item.expiresAt
	} else if set, ok := m.sets[key]; ok {
		expiresAt = set.expiresAt
	} else {
		return -2 * time.Second, nil
	}
	if expiresAt.IsZero() {
		return -1 * time.Second, nil
	}
	return time.Until(expiresAt), nil
}

func (m *MemoryBackend) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok || set.expired() {
		set = memorySet{members: make(map[string]struct{})}
	}
	for _, member := range members {
		set.members[member] = struct{}{}
	}
	m.sets[key] = set
	return nil
}

func (m *MemoryBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok {
		return nil, nil
	}
	if set.expired() {
		delete(m.sets, key)
		return nil, nil
	}
	members := make([]string, 0, len(set.members))
	for member := range set.members {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (m *MemoryBackend) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	values := make([]*string, len(keys))
	for i, key := range keys {
		item, ok := m.items[key]
		if !ok || item.expired() {
			continue
		}
		value := item.value
		values[i] = &value
	}
	return values, nil
}

func (m *MemoryBackend) SetBatch(ctx context.Context, items []BatchItem) error {
	for _, item := range items {
		if err := m.Set(ctx, item.Key, item.Value, item.TTL); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryBackend) DBSize(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var size int64
	for key, item := range m.items {
		if item.expired() {
			delete(m.items, key)
			continue
		}
		size++
	}
	for key, set := range m.sets {
		if set.expired() {
			delete(m.sets, key)
			continue
		}
		size++
	}
	return size, nil
}

// Info reports a minimal INFO-shaped payload so metrics parsing has
// something to chew on outside production.
func (m *MemoryBackend) Info(ctx context.Context, sections ...string) (string, error) {
	size, _ := m.DBSize(ctx)
	return fmt.Sprintf(
		"used_memory_human:0B\r\nused_memory_peak_human:0B\r\nconnected_clients:1\r\nuptime_in_seconds:0\r\ndb0:keys=%d,expires=0\r\n",
		size,
	), nil
}

func (m *MemoryBackend) FlushDB(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]memoryItem)
	m.sets = make(map[string]memorySet)
	return nil
}

func (m *MemoryBackend) FlushAll(ctx context.Context) error {
	return m.FlushDB(ctx)
}
