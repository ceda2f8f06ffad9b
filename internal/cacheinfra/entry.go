package cacheinfra

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Clock supplies the current time to expiration checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// EntryOptions controls how long a single entry stays readable and what it
// weighs against the store's cost budget.
type EntryOptions struct {
	Sliding  time.Duration
	Absolute time.Duration
	Size     int64
}

// RawValue is an encoded payload returned by stores that serialise entries.
// Callers decode it into the type they expect.
type RawValue []byte

// ErrPrefixUnsupported is returned by RemovePrefix on backends that cannot
// enumerate their keys.
var ErrPrefixUnsupported = errors.New("cache backend cannot remove by prefix")

// entry wraps a cached value with its deadlines. lastHit holds unix nanos of
// the most recent read and is updated without locking.
type entry struct {
	value    any
	deadline time.Time
	sliding  time.Duration
	lastHit  atomic.Int64
}

func newEntry(value any, opts EntryOptions, now time.Time) *entry {
	e := &entry{value: value, sliding: opts.Sliding}
	if opts.Absolute > 0 {
		e.deadline = now.Add(opts.Absolute)
	}
	e.lastHit.Store(now.UnixNano())
	return e
}

func (e *entry) expired(now time.Time) bool {
	if !e.deadline.IsZero() && !now.Before(e.deadline) {
		return true
	}
	if e.sliding > 0 && now.Sub(time.Unix(0, e.lastHit.Load())) >= e.sliding {
		return true
	}
	return false
}

func (e *entry) touch(now time.Time) {
	e.lastHit.Store(now.UnixNano())
}

// memoryBackend is the minimal surface the expiring store needs from an
// in-process cache library.
type memoryBackend interface {
	get(key string) (any, bool)
	set(key string, value any, cost int64, ttl time.Duration)
	del(key string)
	close()
}

// keyScanner is implemented by backends that can list their keys.
type keyScanner interface {
	keys() []string
}

const writeStripes = 64

// expiringStore enforces sliding and absolute expiration on top of a memory
// backend using its own clock, so expiry does not depend on the backend's
// sweep timing.
type expiringStore struct {
	backend memoryBackend
	clock   Clock
	// ceiling is the backend's own fixed TTL, zero when entries carry theirs.
	ceiling time.Duration
	// writes serialises inserts with expired-entry deletes per key stripe.
	writes [writeStripes]sync.Mutex
}

func newExpiringStore(backend memoryBackend, clock Clock) *expiringStore {
	return &expiringStore{backend: backend, clock: clock}
}

func (s *expiringStore) stripe(key string) *sync.Mutex {
	return &s.writes[xxhash.Sum64String(key)%writeStripes]
}

// MaxEntryTTL is the longest any entry survives in the backend, whatever its
// EntryOptions say. Zero means entries keep their own deadlines.
func (s *expiringStore) MaxEntryTTL() time.Duration {
	return s.ceiling
}

// evict deletes key only while it still holds stale, so a refill that
// landed after the expired read is kept.
func (s *expiringStore) evict(key string, stale any) {
	mu := s.stripe(key)
	mu.Lock()
	defer mu.Unlock()
	if cur, ok := s.backend.get(key); ok && cur == stale {
		s.backend.del(key)
	}
}

func (s *expiringStore) Lookup(ctx context.Context, key string) (any, bool, error) {
	raw, ok := s.backend.get(key)
	if !ok {
		return nil, false, nil
	}
	e, ok := raw.(*entry)
	if !ok {
		return raw, true, nil
	}

	now := s.clock.Now()
	if e.expired(now) {
		s.evict(key, raw)
		return nil, false, nil
	}
	e.touch(now)
	return e.value, true, nil
}

func (s *expiringStore) Insert(ctx context.Context, key string, value any, opts EntryOptions) error {
	mu := s.stripe(key)
	mu.Lock()
	defer mu.Unlock()
	s.backend.set(key, newEntry(value, opts, s.clock.Now()), opts.Size, opts.Absolute)
	return nil
}

func (s *expiringStore) Remove(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		s.backend.del(key)
	}
	return nil
}

// RemovePrefix deletes every key starting with prefix.
func (s *expiringStore) RemovePrefix(ctx context.Context, prefix string) error {
	scanner, ok := s.backend.(keyScanner)
	if !ok {
		return ErrPrefixUnsupported
	}
	for _, key := range scanner.keys() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			s.backend.del(key)
		}
	}
	return nil
}

func (s *expiringStore) Close(ctx context.Context) error {
	s.backend.close()
	return nil
}
