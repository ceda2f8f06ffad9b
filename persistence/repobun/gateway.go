// Package repobun exposes a go-repository-bun Repository as a
// persistence.Gateway, so services that already own generic bun repositories
// can sit behind the cache-aside layer without rewriting their data access.
package repobun

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-bankcache/persistence"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Option configures a Gateway.
type Option func(*options)

type options struct {
	isNotFound func(error) bool
}

// WithNotFound overrides how repository errors are recognised as a missing
// record. The default accepts whatever repository.IsRecordNotFound accepts,
// plus persistence.ErrNotFound.
func WithNotFound(fn func(error) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.isNotFound = fn
		}
	}
}

func defaultNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, persistence.ErrNotFound)
}

// NewRepository builds a go-repository-bun Repository for an integer keyed
// model. The library's uuid handlers have nothing to do for such models, so
// they are inert; the gateway addresses rows through the bun primary key.
func NewRepository[T any, PT persistence.EntityPtr[T]](db *bun.DB) repository.Repository[PT] {
	column := "id"
	if table := db.Table(reflect.TypeFor[T]()); len(table.PKs) > 0 {
		column = table.PKs[0].Name
	}
	return repository.NewRepository[PT](db, repository.ModelHandlers[PT]{
		NewRecord:     func() PT { return PT(new(T)) },
		GetID:         func(PT) uuid.UUID { return uuid.Nil },
		SetID:         func(PT, uuid.UUID) {},
		GetIdentifier: func() string { return column },
	})
}

// byKey matches the model's primary key column. The library's own
// SelectByID assumes a column named id.
func byKey(id int) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TablePKs = ?", id)
	}
}

// unlimited lifts the default page size List applies.
func unlimited(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Limit(0).Offset(0)
}

// Gateway adapts repository.Repository[*T] to persistence.Gateway[T].
type Gateway[T any, PT persistence.EntityPtr[T]] struct {
	repo repository.Repository[PT]
	uow  *UnitOfWork
	name string
	opts options
}

// New binds repo to uow.
func New[T any, PT persistence.EntityPtr[T]](repo repository.Repository[PT], uow *UnitOfWork, opts ...Option) *Gateway[T, PT] {
	o := options{isNotFound: defaultNotFound}
	for _, opt := range opts {
		opt(&o)
	}
	return &Gateway[T, PT]{
		repo: repo,
		uow:  uow,
		name: strings.ToLower(reflect.TypeFor[T]().Name()),
		opts: o,
	}
}

// NewSource opens a fresh unit of work on db for every call.
func NewSource[T any, PT persistence.EntityPtr[T]](db bun.IDB, repo repository.Repository[PT], opts ...Option) persistence.Source[T] {
	return persistence.SourceFunc[T](func(ctx context.Context) (persistence.Gateway[T], persistence.UnitOfWork, error) {
		uow := NewUnitOfWork(db)
		return New[T, PT](repo, uow, opts...), uow, nil
	})
}

func (g *Gateway[T, PT]) GetAll(ctx context.Context) ([]T, error) {
	records, _, err := g.repo.List(ctx, unlimited)
	if err != nil {
		return nil, persistence.Wrap("list "+g.name, err)
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	slices.SortFunc(out, func(a, b T) int {
		return cmp.Compare(PT(&a).EntityID(), PT(&b).EntityID())
	})
	return out, nil
}

func (g *Gateway[T, PT]) GetByID(ctx context.Context, id int) (T, bool, error) {
	var zero T
	rec, err := g.repo.Get(ctx, byKey(id))
	switch {
	case err != nil && g.opts.isNotFound(err):
		return zero, false, nil
	case err != nil:
		return zero, false, persistence.Wrap(fmt.Sprintf("get %s %d", g.name, id), err)
	case rec == nil:
		return zero, false, nil
	}
	return *rec, true, nil
}

func (g *Gateway[T, PT]) Find(ctx context.Context, criteria ...persistence.Criteria) (T, bool, error) {
	var zero T
	selectors := make([]repository.SelectCriteria, 0, len(criteria))
	for _, c := range criteria {
		selectors = append(selectors, columnEquals(c))
	}

	rec, err := g.repo.Get(ctx, selectors...)
	switch {
	case err != nil && g.opts.isNotFound(err):
		return zero, false, nil
	case err != nil:
		return zero, false, persistence.Wrap("find "+g.name, err)
	case rec == nil:
		return zero, false, nil
	}
	return *rec, true, nil
}

func columnEquals(c persistence.Criteria) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("? = ?", bun.Ident(c.Column), c.Value)
	}
}

func (g *Gateway[T, PT]) Add(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, fmt.Errorf("add %s: nil entity", g.name)
	}
	g.uow.stage("insert "+g.name, func(ctx context.Context, tx bun.IDB) error {
		created, err := g.repo.CreateTx(ctx, tx, PT(entity))
		if err != nil {
			return err
		}
		if created != nil && created != PT(entity) {
			*entity = *created
		}
		return nil
	})
	return entity, nil
}

func (g *Gateway[T, PT]) Update(ctx context.Context, id int, entity T) (T, error) {
	PT(&entity).SetEntityID(id)
	staged := entity
	g.uow.stage(fmt.Sprintf("update %s %d", g.name, id), func(ctx context.Context, tx bun.IDB) error {
		if err := g.requireExisting(ctx, tx, id); err != nil {
			return err
		}
		_, err := g.repo.UpdateTx(ctx, tx, PT(&staged))
		return err
	})
	return entity, nil
}

func (g *Gateway[T, PT]) Delete(ctx context.Context, entity T) error {
	id := PT(&entity).EntityID()
	staged := entity
	g.uow.stage(fmt.Sprintf("delete %s %d", g.name, id), func(ctx context.Context, tx bun.IDB) error {
		if err := g.requireExisting(ctx, tx, id); err != nil {
			return err
		}
		return g.repo.DeleteTx(ctx, tx, PT(&staged))
	})
	return nil
}

// requireExisting reports ErrNotFound for a staged write whose target row is
// gone by commit time.
func (g *Gateway[T, PT]) requireExisting(ctx context.Context, tx bun.IDB, id int) error {
	rec, err := g.repo.GetTx(ctx, tx, byKey(id))
	if (err != nil && g.opts.isNotFound(err)) || (err == nil && rec == nil) {
		return &persistence.NotFoundError{Entity: g.name, ID: id}
	}
	return err
}

// UnitOfWork replays staged repository writes inside one bun transaction.
// Every staged write counts as one affected record.
type UnitOfWork struct {
	db     bun.IDB
	mu     sync.Mutex
	staged []stagedWrite
}

type stagedWrite struct {
	op   string
	exec func(ctx context.Context, tx bun.IDB) error
}

var _ persistence.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates an empty unit of work on db.
func NewUnitOfWork(db bun.IDB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) stage(op string, exec func(ctx context.Context, tx bun.IDB) error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged = append(u.staged, stagedWrite{op: op, exec: exec})
}

func (u *UnitOfWork) Complete(ctx context.Context) (int, error) {
	u.mu.Lock()
	staged := u.staged
	u.staged = nil
	u.mu.Unlock()

	if len(staged) == 0 {
		return 0, nil
	}

	err := u.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, s := range staged {
			if err := s.exec(ctx, tx); err != nil {
				return persistence.Wrap(s.op, err)
			}
		}
		return nil
	})
	if err != nil {
		var dae *persistence.DataAccessError
		if !errors.As(err, &dae) {
			err = persistence.Wrap("commit", err)
		}
		return 0, err
	}
	return len(staged), nil
}
