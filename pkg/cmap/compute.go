package cmap

// Op tells Compute what to do with the entry after the callback returns.
type Op int

const (
	// Keep leaves the entry unchanged.
	Keep Op = iota
	// Store writes the returned value.
	Store
	// Remove deletes the entry.
	Remove
)

// Compute calls fn with the current value of key while holding the shard's
// write lock and applies the returned Op. It returns the value left in the
// map and whether one is present.
//
// fn must not call back into m.
func (m *Map[K, V]) Compute(key K, fn func(old V, loaded bool) (V, Op)) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	old, loaded := s.items[key]
	v, op := fn(old, loaded)
	switch op {
	case Store:
		s.items[key] = v
		return v, true
	case Remove:
		delete(s.items, key)
		var zero V
		return zero, false
	default:
		return old, loaded
	}
}

// Range calls fn for each entry until fn returns false. Shards are locked
// one at a time, so the view is not a consistent snapshot. fn must not call
// back into m.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Keys returns all keys.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Count())
	m.Range(func(key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// ShardStats describes the population of one shard.
type ShardStats struct {
	Index int
	Count int
}

// Stats returns per-shard entry counts.
func (m *Map[K, V]) Stats() []ShardStats {
	stats := make([]ShardStats, len(m.shards))
	for i, s := range m.shards {
		s.mu.RLock()
		stats[i] = ShardStats{Index: i, Count: len(s.items)}
		s.mu.RUnlock()
	}
	return stats
}
