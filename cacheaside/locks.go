package cacheaside

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-bankcache/internal/keylock"
)

// keyedLocks guards refills per cache key.
type keyedLocks struct {
	table *keylock.Table[string]
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{table: keylock.New[string]()}
}

// acquire blocks until the lock for key is held, ctx ends or timeout passes.
// A zero timeout waits on ctx alone.
func (l *keyedLocks) acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	release, err := l.table.Acquire(ctx, key, timeout)
	if errors.Is(err, keylock.ErrTimeout) {
		return nil, &timeoutError{what: "waiting for refill of " + key, after: timeout}
	}
	return release, err
}

func (l *keyedLocks) size() int {
	return l.table.Len()
}
