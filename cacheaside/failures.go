package cacheaside

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-bankcache/logging"
	"github.com/goliatone/go-bankcache/persistence"
	"github.com/goliatone/go-bankcache/result"
)

// timeoutError reports a bounded wait that ran out. It unwraps to
// context.DeadlineExceeded so it classifies as a timeout.
type timeoutError struct {
	what  string
	after time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout %s after %s", e.what, e.after)
}

func (e *timeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// panicError carries a value recovered from a gateway call.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("unexpected error: %v", e.value)
}

// failure converts err into a failed Outcome. Missing records map to
// KindNotFound, recovered panics to KindUnexpected and everything else the
// gateway raised to KindDataAccess.
func failure[V any](err error) result.Outcome[V] {
	var pe *panicError
	switch {
	case errors.As(err, &pe):
		return result.FromError[V](result.KindUnexpected, err)
	case errors.Is(err, persistence.ErrNotFound):
		return result.FromError[V](result.KindNotFound, err)
	default:
		return result.FromError[V](result.KindDataAccess, err)
	}
}

// recoverOutcome is deferred by every public operation so a panic outside a
// guarded fetch still ends as a Failure.
func recoverOutcome[V any](log logging.Logger, op string, out *result.Outcome[V]) {
	if r := recover(); r != nil {
		log.Error("recovered panic", logging.Fields{"op": op, "panic": fmt.Sprint(r)})
		*out = result.Failure[V](result.KindUnexpected, fmt.Sprintf("unexpected error during %s: %v", op, r))
	}
}

type fetched[V any] struct {
	value V
	found bool
	err   error
}

// guard runs fn in its own goroutine bounded by timeout. When the bound or ctx
// ends first the caller gets an error and the late result is dropped.
func guard[V any](ctx context.Context, op string, timeout time.Duration, fn func(context.Context) (V, bool, error)) (V, bool, error) {
	fctx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		fctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan fetched[V], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetched[V]{err: &panicError{value: r}}
			}
		}()
		v, found, err := fn(fctx)
		done <- fetched[V]{value: v, found: found, err: err}
	}()

	var zero V
	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && fctx.Err() != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return zero, false, &timeoutError{what: op, after: timeout}
		}
		return r.value, r.found, r.err
	case <-fctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
		return zero, false, &timeoutError{what: op, after: timeout}
	}
}
