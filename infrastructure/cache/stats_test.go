package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_HitRate(t *testing.T) {
	stats := NewStats()
	assert.Zero(t, stats.HitRate())

	stats.Hit()
	stats.Hit()
	stats.Hit()
	stats.Miss()
	assert.Equal(t, 75.0, stats.HitRate())

	stats.Reset()
	stats.Hit()
	stats.Miss()
	stats.Miss()
	assert.Equal(t, 33.33, stats.HitRate())
}

func TestStats_Reset(t *testing.T) {
	stats := NewStats()
	stats.Hit()
	stats.Miss()
	stats.Reset()
	assert.Zero(t, stats.Hits())
	assert.Zero(t, stats.Misses())
}

func TestSnapshot_DisconnectedKeepsCounters(t *testing.T) {
	ctx := context.Background()
	backend := newSpyBackend()
	store := NewStore(backend, StoreOptions{})

	store.Set(ctx, "k", "v", Options{})
	store.Get(ctx, "k")
	backend.SetReady(false)

	snap := store.Snapshot(ctx)
	assert.False(t, snap.Connected)
	assert.Equal(t, uint64(1), snap.Hits)
	assert.Equal(t, "0 bytes", snap.MemoryUsage)
	assert.Zero(t, snap.Keys)
}

func TestSnapshot_Connected(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	store.Set(ctx, "a", 1, Options{})
	store.Set(ctx, "b", 2, Options{})
	store.Get(ctx, "a")
	store.Get(ctx, "missing")

	snap := store.Snapshot(ctx)
	assert.True(t, snap.Connected)
	assert.Equal(t, uint64(1), snap.Hits)
	assert.Equal(t, uint64(1), snap.Misses)
	assert.Equal(t, 50.0, snap.HitRate)
	assert.Equal(t, int64(2), snap.Keys)
	assert.Equal(t, "0B", snap.MemoryUsage)
}

func TestMetrics_ParsesBackendInfo(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	store.Set(ctx, "k", "v", Options{})

	metrics := store.Metrics(ctx)
	assert.Equal(t, "0B", metrics.Memory.Used)
	assert.Equal(t, "0B", metrics.Memory.Peak)
	assert.Equal(t, int64(1), metrics.Clients)

	db0, ok := metrics.Keyspace["db0"]
	require.True(t, ok)
	assert.Equal(t, int64(1), db0.Keys)
}
