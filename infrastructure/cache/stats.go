package cache

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"sync/atomic"
)

// Stats records in-process hit/miss counters for one Store instance.
// It is safe for concurrent use and carries a Reset for test isolation.
type Stats struct {
	hits   uint64
	misses uint64
}

// NewStats creates a fresh counter set.
func NewStats() *Stats {
	return &Stats{}
}

// Hit records a cache hit.
func (s *Stats) Hit() {
	atomic.AddUint64(&s.hits, 1)
}

// Miss records a cache miss.
func (s *Stats) Miss() {
	atomic.AddUint64(&s.misses, 1)
}

// Hits returns the hit count.
func (s *Stats) Hits() uint64 {
	return atomic.LoadUint64(&s.hits)
}

// Misses returns the miss count.
func (s *Stats) Misses() uint64 {
	return atomic.LoadUint64(&s.misses)
}

// HitRate returns the hit percentage rounded to two decimals.
func (s *Stats) HitRate() float64 {
	hits := float64(s.Hits())
	misses := float64(s.Misses())
	if hits+misses == 0 {
		return 0
	}
	return math.Round(hits/(hits+misses)*100*100) / 100
}

// Reset zeroes both counters.
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.hits, 0)
	atomic.StoreUint64(&s.misses, 0)
}

// Snapshot combines the in-process counters with backend keyspace
// introspection.
type Snapshot struct {
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	Keys        int64   `json:"keys"`
	MemoryUsage string  `json:"memory_usage"`
	Uptime      int64   `json:"uptime"`
	Connected   bool    `json:"connected"`
}

// MemoryMetrics describes backend memory consumption.
type MemoryMetrics struct {
	Used          string  `json:"used"`
	Peak          string  `json:"peak"`
	Fragmentation float64 `json:"fragmentation"`
}

// KeyspaceMetrics describes one backend database.
type KeyspaceMetrics struct {
	Keys    int64 `json:"keys"`
	Expires int64 `json:"expires"`
}

// DetailedMetrics extends Snapshot with memory, client and keyspace data.
type DetailedMetrics struct {
	Stats    Snapshot                   `json:"stats"`
	Memory   MemoryMetrics              `json:"memory"`
	Clients  int64                      `json:"clients"`
	Keyspace map[string]KeyspaceMetrics `json:"keyspace"`
}

var (
	usedMemoryRe    = regexp.MustCompile(`used_memory_human:(\S+)`)
	peakMemoryRe    = regexp.MustCompile(`used_memory_peak_human:(\S+)`)
	fragmentationRe = regexp.MustCompile(`mem_fragmentation_ratio:(\S+)`)
	uptimeRe        = regexp.MustCompile(`uptime_in_seconds:(\d+)`)
	clientsRe       = regexp.MustCompile(`connected_clients:(\d+)`)
	keyspaceRe      = regexp.MustCompile(`(db\d+):keys=(\d+),expires=(\d+)`)
)

// Snapshot returns current statistics. When the backend is unavailable the
// in-process counters are still reported with Connected=false.
func (s *Store) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		Hits:        s.stats.Hits(),
		Misses:      s.stats.Misses(),
		HitRate:     s.stats.HitRate(),
		MemoryUsage: "0 bytes",
	}
	if !s.backend.Ready() {
		return snap
	}

	snap.Connected = true
	snap.MemoryUsage = "unknown"

	if keys, err := s.backend.DBSize(ctx); err == nil {
		snap.Keys = keys
	}
	if info, err := s.backend.Info(ctx, "memory"); err == nil {
		if m := usedMemoryRe.FindStringSubmatch(info); m != nil {
			snap.MemoryUsage = m[1]
		}
	}
	if info, err := s.backend.Info(ctx, "server"); err == nil {
		if m := uptimeRe.FindStringSubmatch(info); m != nil {
			snap.Uptime, _ = strconv.ParseInt(m[1], 10, 64)
		}
	}
	return snap
}

// Metrics returns detailed backend metrics alongside the counter snapshot.
func (s *Store) Metrics(ctx context.Context) DetailedMetrics {
	metrics := DetailedMetrics{
		Stats:    s.Snapshot(ctx),
		Memory:   MemoryMetrics{Used: "unknown", Peak: "unknown"},
		Keyspace: map[string]KeyspaceMetrics{},
	}
	if !s.backend.Ready() {
		metrics.Memory = MemoryMetrics{Used: "0", Peak: "0"}
		return metrics
	}

	if info, err := s.backend.Info(ctx, "memory"); err == nil {
		if m := usedMemoryRe.FindStringSubmatch(info); m != nil {
			metrics.Memory.Used = m[1]
		}
		if m := peakMemoryRe.FindStringSubmatch(info); m != nil {
			metrics.Memory.Peak = m[1]
		}
		if m := fragmentationRe.FindStringSubmatch(info); m != nil {
			metrics.Memory.Fragmentation, _ = strconv.ParseFloat(m[1], 64)
		}
	}
	if info, err := s.backend.Info(ctx, "clients"); err == nil {
		if m := clientsRe.FindStringSubmatch(info); m != nil {
			metrics.Clients, _ = strconv.ParseInt(m[1], 10, 64)
		}
	}
	if info, err := s.backend.Info(ctx, "keyspace"); err == nil {
		for _, m := range keyspaceRe.FindAllStringSubmatch(info, -1) {
			keys, _ := strconv.ParseInt(m[2], 10, 64)
			expires, _ := strconv.ParseInt(m[3], 10, 64)
			metrics.Keyspace[m[1]] = KeyspaceMetrics{Keys: keys, Expires: expires}
		}
	}
	return metrics
}
