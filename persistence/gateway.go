package persistence

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is reported when a staged update or delete addresses a row that
// no longer exists. Lookups report absence through their bool result instead.
var ErrNotFound = errors.New("record not found")

// NotFoundError names the missing record. It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Criteria is an equality filter on a single column.
type Criteria struct {
	Column string
	Value  any
}

// Where builds a Criteria.
func Where(column string, value any) Criteria {
	return Criteria{Column: column, Value: value}
}

// Gateway is the data-access contract for one entity type. Reads go straight
// to the backing store. Writes are staged and only become durable when the
// UnitOfWork the gateway was opened with completes.
type Gateway[T any] interface {
	GetAll(ctx context.Context) ([]T, error)
	// GetByID returns false when no record matches; absence alone is not an error.
	GetByID(ctx context.Context, id int) (T, bool, error)
	Find(ctx context.Context, criteria ...Criteria) (T, bool, error)
	// Add stages an insert. The entity's key is populated once the unit of
	// work completes.
	Add(ctx context.Context, entity *T) (*T, error)
	Update(ctx context.Context, id int, entity T) (T, error)
	Delete(ctx context.Context, entity T) error
}

// EntityPtr is the pointer form of an entity model. Implementations use it to
// address records by key.
type EntityPtr[T any] interface {
	*T
	EntityID() int
	SetEntityID(id int)
}

// UnitOfWork commits staged changes atomically.
type UnitOfWork interface {
	// Complete commits every staged change and returns the number of affected
	// records. Nothing is committed when it fails.
	Complete(ctx context.Context) (int, error)
}

// Source opens a gateway bound to a fresh unit of work. Units of work are never
// shared across operations.
type Source[T any] interface {
	Open(ctx context.Context) (Gateway[T], UnitOfWork, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context) (Gateway[T], UnitOfWork, error)

func (f SourceFunc[T]) Open(ctx context.Context) (Gateway[T], UnitOfWork, error) {
	return f(ctx)
}

// DataAccessError wraps a failure raised by the backing store.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// Wrap returns nil for a nil err and a *DataAccessError otherwise.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DataAccessError{Op: op, Err: err}
}
