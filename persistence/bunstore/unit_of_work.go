package bunstore

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-bankcache/persistence"
	"github.com/uptrace/bun"
)

// stagedOp is a change recorded by a repository and replayed inside the
// commit transaction. It returns the number of affected rows.
type stagedOp struct {
	op   string
	exec func(ctx context.Context, tx bun.Tx) (int, error)
}

// UnitOfWork collects staged changes from any number of repositories and
// commits them in a single transaction.
type UnitOfWork struct {
	db     *bun.DB
	mu     sync.Mutex
	staged []stagedOp
}

var _ persistence.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates an empty unit of work on db.
func NewUnitOfWork(db *bun.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) stage(op string, exec func(ctx context.Context, tx bun.Tx) (int, error)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged = append(u.staged, stagedOp{op: op, exec: exec})
}

// Pending returns the number of staged changes.
func (u *UnitOfWork) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.staged)
}

// Complete replays staged changes in one transaction. The staged list is
// cleared whether or not the commit succeeds.
func (u *UnitOfWork) Complete(ctx context.Context) (int, error) {
	u.mu.Lock()
	staged := u.staged
	u.staged = nil
	u.mu.Unlock()

	if len(staged) == 0 {
		return 0, nil
	}

	total := 0
	err := u.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, s := range staged {
			n, err := s.exec(ctx, tx)
			if err != nil {
				return persistence.Wrap(s.op, err)
			}
			total += n
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
	return total, nil
}
