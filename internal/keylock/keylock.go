// Package keylock hands out one mutex per key. Waiting for a lock can be
// abandoned on context end or timeout, and a key's entry is dropped once no
// caller holds or waits on it, so the table only grows with live contention.
package keylock

import (
	"context"
	"errors"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// ErrTimeout is returned by Acquire when the timeout passes before the lock
// frees up.
var ErrTimeout = errors.New("lock wait timed out")

// entry is a single-slot channel plus the number of callers holding or
// waiting on it. refs is only touched inside MapOf.Compute.
type entry struct {
	slot chan struct{}
	refs int
}

// Table maps keys to locks.
type Table[K comparable] struct {
	m *xsync.MapOf[K, *entry]
}

// New creates an empty table.
func New[K comparable]() *Table[K] {
	return &Table[K]{m: xsync.NewMapOf[K, *entry]()}
}

// Len is the number of keys currently held or waited on.
func (t *Table[K]) Len() int {
	return t.m.Size()
}

func (t *Table[K]) enter(key K) *entry {
	e, _ := t.m.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			old = &entry{slot: make(chan struct{}, 1)}
		}
		old.refs++
		return old, false
	})
	return e
}

func (t *Table[K]) leave(key K) {
	t.m.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			return old, true
		}
		old.refs--
		return old, old.refs == 0
	})
}

// Acquire blocks until the lock for key is held, ctx ends or timeout passes.
// A zero timeout waits on ctx alone. The returned func releases the lock and
// must be called exactly once.
func (t *Table[K]) Acquire(ctx context.Context, key K, timeout time.Duration) (func(), error) {
	e := t.enter(key)
	release := func() {
		<-e.slot
		t.leave(key)
	}

	select {
	case e.slot <- struct{}{}:
		return release, nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case e.slot <- struct{}{}:
		return release, nil
	case <-ctx.Done():
		t.leave(key)
		return nil, ctx.Err()
	case <-expired:
		t.leave(key)
		return nil, ErrTimeout
	}
}
