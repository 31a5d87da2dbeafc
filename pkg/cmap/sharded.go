package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the shard count used when none is configured.
const DefaultShardCount = 16

// Map is a concurrent-safe sharded map.
type Map[K ~string, V any] struct {
	shards    []*shard[K, V]
	shardMask uint64
}

type shard[K ~string, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// Option configures a Map.
type Option func(*options)

type options struct {
	shardCount int
}

// WithShardCount sets the number of shards. Values that are not a positive
// power of two fall back to DefaultShardCount.
func WithShardCount(n int) Option {
	return func(o *options) {
		o.shardCount = n
	}
}

// New creates a sharded map.
func New[K ~string, V any](opts ...Option) *Map[K, V] {
	o := options{shardCount: DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}

	n := o.shardCount
	if n <= 0 || n&(n-1) != 0 {
		n = DefaultShardCount
	}

	m := &Map[K, V]{
		shards:    make([]*shard[K, V], n),
		shardMask: uint64(n - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[murmur3.Sum64([]byte(key))&m.shardMask]
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Delete removes key.
func (m *Map[K, V]) Delete(key K) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Pop removes key and returns the value it held.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Count returns the number of entries. Shards are counted one at a time, so
// the result is approximate under concurrent writes.
func (m *Map[K, V]) Count() int {
	count := 0
	for _, s := range m.shards {
		s.mu.RLock()
		count += len(s.items)
		s.mu.RUnlock()
	}
	return count
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[K]V)
		s.mu.Unlock()
	}
}

// ShardCount returns the number of shards.
func (m *Map[K, V]) ShardCount() int {
	return len(m.shards)
}
