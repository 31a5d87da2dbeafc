// Package memory provides the in-memory key-value store behind miniredis.
//
// Entries are byte values with an optional absolute expiry, kept in a
// sharded concurrent map so that every operation holds exactly one shard
// lock.
//
// Features:
//
//   - Lazy Expiration: an expired entry is removed by the first operation
//     that touches it and is reported as absent. There is no background
//     sweep; expired keys that are never read again stay in memory.
//   - Ownership: values are copied on write and on read, so callers never
//     share memory with the store.
//   - Injectable Clock: tests control time through WithClock.
//
// Thread Safety:
//
// All operations are safe for concurrent use. Operations on the same key
// are serialized, so a read never observes a partially written value and
// concurrent writes never merge.
package memory
