package bunstore

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/goliatone/go-bankcache/domain"
	"github.com/goliatone/go-bankcache/persistence"
	"github.com/uptrace/bun"
)

// Repository implements persistence.Gateway on bun. Reads run on the database
// directly; writes are staged on the unit of work.
type Repository[T any, PT persistence.EntityPtr[T]] struct {
	db   bun.IDB
	uow  *UnitOfWork
	name string
}

// NewRepository binds a repository for T to uow.
func NewRepository[T any, PT persistence.EntityPtr[T]](db bun.IDB, uow *UnitOfWork) *Repository[T, PT] {
	return &Repository[T, PT]{
		db:   db,
		uow:  uow,
		name: strings.ToLower(reflect.TypeFor[T]().Name()),
	}
}

// NewSource returns a persistence.Source that opens a new unit of work and a
// repository bound to it for every call.
func NewSource[T any, PT persistence.EntityPtr[T]](db *bun.DB) persistence.Source[T] {
	return persistence.SourceFunc[T](func(ctx context.Context) (persistence.Gateway[T], persistence.UnitOfWork, error) {
		uow := NewUnitOfWork(db)
		return NewRepository[T, PT](db, uow), uow, nil
	})
}

func (r *Repository[T, PT]) GetAll(ctx context.Context) ([]T, error) {
	var rows []T
	if err := r.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, persistence.Wrap("list "+r.name, err)
	}
	if rows == nil {
		rows = []T{}
	}
	slices.SortFunc(rows, func(a, b T) int {
		return cmp.Compare(PT(&a).EntityID(), PT(&b).EntityID())
	})
	return rows, nil
}

func (r *Repository[T, PT]) GetByID(ctx context.Context, id int) (T, bool, error) {
	var entity T
	PT(&entity).SetEntityID(id)

	err := r.db.NewSelect().Model(&entity).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, persistence.Wrap(fmt.Sprintf("get %s %d", r.name, id), err)
	}
	return entity, true, nil
}

func (r *Repository[T, PT]) Find(ctx context.Context, criteria ...persistence.Criteria) (T, bool, error) {
	var entity T
	q := r.db.NewSelect().Model(&entity)
	for _, c := range criteria {
		q = q.Where("? = ?", bun.Ident(c.Column), c.Value)
	}

	err := q.Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, persistence.Wrap("find "+r.name, err)
	}
	return entity, true, nil
}

func (r *Repository[T, PT]) Add(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, fmt.Errorf("add %s: nil entity", r.name)
	}
	r.uow.stage("insert "+r.name, func(ctx context.Context, tx bun.Tx) (int, error) {
		res, err := tx.NewInsert().Model(entity).Exec(ctx)
		if err != nil {
			return 0, err
		}
		return affected(res)
	})
	return entity, nil
}

func (r *Repository[T, PT]) Update(ctx context.Context, id int, entity T) (T, error) {
	PT(&entity).SetEntityID(id)
	staged := entity
	r.uow.stage(fmt.Sprintf("update %s %d", r.name, id), func(ctx context.Context, tx bun.Tx) (int, error) {
		res, err := tx.NewUpdate().Model(&staged).WherePK().Exec(ctx)
		if err != nil {
			return 0, err
		}
		return requireRows(res, r.name, id)
	})
	return entity, nil
}

func (r *Repository[T, PT]) Delete(ctx context.Context, entity T) error {
	id := PT(&entity).EntityID()
	staged := entity
	r.uow.stage(fmt.Sprintf("delete %s %d", r.name, id), func(ctx context.Context, tx bun.Tx) (int, error) {
		res, err := tx.NewDelete().Model(&staged).WherePK().Exec(ctx)
		if err != nil {
			return 0, err
		}
		return requireRows(res, r.name, id)
	})
	return nil
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// requireRows turns a zero-row update or delete into ErrNotFound so the commit
// rolls back instead of silently succeeding.
func requireRows(res sql.Result, name string, id int) (int, error) {
	n, err := affected(res)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, &persistence.NotFoundError{Entity: name, ID: id}
	}
	return n, nil
}

var _ persistence.Gateway[domain.Account] = (*Repository[domain.Account, *domain.Account])(nil)
