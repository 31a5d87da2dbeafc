// Package cmap provides a concurrent map sharded by key hash.
//
// Keys are strings hashed with murmur3 onto a power-of-two number of shards,
// each guarded by its own RWMutex. Every single-key operation takes exactly
// one shard lock, so operations on the same key are serialized while
// operations on keys in different shards proceed in parallel.
//
// Usage:
//
//	m := cmap.New[string, Entry](cmap.WithShardCount(32))
//	m.Set("key", e)
//	v, ok := m.Get("key")
//
// Compute runs a read-modify-write step under the shard's write lock and is
// the building block for conditional deletes and updates.
package cmap
