package result

import (
	"context"
	"errors"
)

// Kind tags the reason an Outcome failed.
type Kind uint8

const (
	// KindNone is the kind of every successful Outcome.
	KindNone Kind = iota
	// KindNotFound reports a by-id or delete-target lookup miss.
	KindNotFound
	// KindValidation reports rejected input, including an id/body id mismatch.
	KindValidation
	// KindDataAccess reports a failure surfaced by the persistence gateway or commit.
	KindDataAccess
	// KindTimeout reports a bounded wait (lock or fetch) that ran out.
	KindTimeout
	// KindCanceled reports that the caller's context was canceled.
	KindCanceled
	// KindUnexpected reports anything else, including recovered panics.
	KindUnexpected
)

var kindNames = [...]string{
	KindNone:       "none",
	KindNotFound:   "not_found",
	KindValidation: "validation",
	KindDataAccess: "data_access",
	KindTimeout:    "timeout",
	KindCanceled:   "canceled",
	KindUnexpected: "unexpected",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Error is the failure half of an Outcome. It implements error so callers can
// hand it to code that expects one.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Outcome is either Success(value) or Failure(kind, message). The zero value is
// a failure of KindUnexpected so an uninitialized Outcome is never mistaken for
// a success.
type Outcome[T any] struct {
	data T
	err  *Error
	ok   bool
}

// Success wraps a value.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{data: v, ok: true}
}

// Failure builds a failed Outcome with the given kind and message.
func Failure[T any](kind Kind, message string) Outcome[T] {
	return Outcome[T]{err: &Error{Kind: kind, Message: message}}
}

// FromError builds a failed Outcome from err. Context deadline and cancellation
// errors are classified on their own; everything else takes the fallback kind.
// The message is err's text.
func FromError[T any](fallback Kind, err error) Outcome[T] {
	if err == nil {
		return Failure[T](KindUnexpected, "unexpected error occurred")
	}
	var oe *Error
	if errors.As(err, &oe) {
		return Outcome[T]{err: oe}
	}
	return Outcome[T]{err: &Error{Kind: Classify(err, fallback), Message: err.Error(), Cause: err}}
}

// Classify maps context errors to their kinds and returns fallback otherwise.
func Classify(err error, fallback Kind) Kind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return fallback
	}
}

// IsSuccess reports whether the Outcome holds a value.
func (o Outcome[T]) IsSuccess() bool {
	return o.ok
}

// Data returns the value. It is the zero value of T for failures.
func (o Outcome[T]) Data() T {
	return o.data
}

// Value returns the value and whether the Outcome is a success.
func (o Outcome[T]) Value() (T, bool) {
	return o.data, o.ok
}

// Kind returns KindNone for successes.
func (o Outcome[T]) Kind() Kind {
	if o.ok {
		return KindNone
	}
	if o.err == nil {
		return KindUnexpected
	}
	return o.err.Kind
}

// Error returns the failure message, or "" for successes.
func (o Outcome[T]) Error() string {
	if o.ok {
		return ""
	}
	if o.err == nil {
		return "unexpected error occurred"
	}
	return o.err.Message
}

// Err returns the failure as an error, or nil for successes.
func (o Outcome[T]) Err() error {
	if o.ok {
		return nil
	}
	if o.err == nil {
		return &Error{Kind: KindUnexpected, Message: "unexpected error occurred"}
	}
	return o.err
}

// Map transforms a successful value and passes failures through unchanged.
func Map[T, U any](o Outcome[T], fn func(T) U) Outcome[U] {
	if !o.ok {
		return Outcome[U]{err: o.err}
	}
	return Success(fn(o.data))
}
