package memory

import (
	"time"

	"github.com/yndnr/miniredis-go/pkg/cmap"
)

// TTLState classifies a key for TTL queries.
type TTLState int

const (
	// TTLMissing means the key does not exist (or has expired).
	TTLMissing TTLState = iota
	// TTLPersistent means the key exists without an expiry.
	TTLPersistent
	// TTLExpiring means the key exists and will expire.
	TTLExpiring
)

type entry struct {
	value     []byte
	expiresAt int64 // unix milliseconds, 0 = never
}

func (e entry) expired(nowMs int64) bool {
	return e.expiresAt > 0 && e.expiresAt <= nowMs
}

// Store is the shared key-value store.
type Store struct {
	entries  *cmap.Map[string, entry]
	now      func() time.Time
	onExpire func(key string)
}

// Option configures the Store.
type Option func(*Store)

// WithShardCount sets the number of lock shards (a power of two).
func WithShardCount(n int) Option {
	return func(s *Store) {
		s.entries = cmap.New[string, entry](cmap.WithShardCount(n))
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithExpireHook registers fn to be called after a lazy expiration removed
// key. fn runs outside the store's locks.
func WithExpireHook(fn func(key string)) Option {
	return func(s *Store) {
		s.onExpire = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: cmap.New[string, entry](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) nowMs() int64 {
	return s.now().UnixMilli()
}

// Set stores value under key without expiry, replacing any previous entry.
func (s *Store) Set(key string, value []byte) {
	s.entries.Set(key, entry{value: clone(value)})
}

// SetWithTTL stores value under key to expire ttl from now and returns the
// absolute deadline. A ttl of zero or less yields an entry that is already
// expired.
func (s *Store) SetWithTTL(key string, value []byte, ttl time.Duration) time.Time {
	deadline := s.now().Add(ttl)
	s.SetUntil(key, value, deadline)
	return deadline
}

// SetUntil stores value under key to expire at deadline.
func (s *Store) SetUntil(key string, value []byte, deadline time.Time) {
	ms := deadline.UnixMilli()
	if ms <= 0 {
		// 0 means "never"; anything at or before the epoch is long expired.
		ms = 1
	}
	s.entries.Set(key, entry{value: clone(value), expiresAt: ms})
}

// Get returns a copy of the value stored under key. An expired entry is
// removed and reported as absent.
func (s *Store) Get(key string) ([]byte, bool) {
	e, ok := s.live(key)
	if !ok {
		return nil, false
	}
	return clone(e.value), true
}

// Exists reports whether key holds a live entry.
func (s *Store) Exists(key string) bool {
	_, ok := s.live(key)
	return ok
}

// Delete removes key and reports whether it held a live entry.
func (s *Store) Delete(key string) bool {
	e, ok := s.entries.Pop(key)
	if !ok {
		return false
	}
	if e.expired(s.nowMs()) {
		s.expiredHook(key)
		return false
	}
	return true
}

// TTL returns the time left before key expires.
func (s *Store) TTL(key string) (time.Duration, TTLState) {
	e, ok := s.live(key)
	if !ok {
		return 0, TTLMissing
	}
	if e.expiresAt == 0 {
		return 0, TTLPersistent
	}
	return time.Duration(e.expiresAt-s.nowMs()) * time.Millisecond, TTLExpiring
}

// ExpireAt sets a deadline on an existing key and reports whether the key
// was live. A deadline in the past removes the key.
func (s *Store) ExpireAt(key string, deadline time.Time) bool {
	now := s.nowMs()
	ms := deadline.UnixMilli()
	if ms <= 0 {
		ms = 1
	}

	found := false
	expired := false
	s.entries.Compute(key, func(e entry, loaded bool) (entry, cmap.Op) {
		if !loaded {
			return e, cmap.Keep
		}
		if e.expired(now) {
			expired = true
			return e, cmap.Remove
		}
		found = true
		if ms <= now {
			return e, cmap.Remove
		}
		e.expiresAt = ms
		return e, cmap.Store
	})

	if expired {
		s.expiredHook(key)
	}
	return found
}

// Len returns the number of stored entries. Expired entries that have not
// been touched since they expired are still counted.
func (s *Store) Len() int {
	return s.entries.Count()
}

// live returns the entry for key if it has not expired, evicting it
// otherwise.
func (s *Store) live(key string) (entry, bool) {
	e, ok := s.entries.Get(key)
	if !ok {
		return entry{}, false
	}

	now := s.nowMs()
	if !e.expired(now) {
		return e, true
	}

	// Re-check under the write lock: a concurrent Set may have replaced the
	// entry since it was read.
	evicted := false
	s.entries.Compute(key, func(cur entry, loaded bool) (entry, cmap.Op) {
		if loaded && cur.expired(now) {
			evicted = true
			return cur, cmap.Remove
		}
		return cur, cmap.Keep
	})
	if evicted {
		s.expiredHook(key)
	}
	return entry{}, false
}

func (s *Store) expiredHook(key string) {
	if s.onExpire != nil {
		s.onExpire(key)
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
