package bank

import (
	"context"

	"github.com/goliatone/go-bankcache/cache"
	"github.com/goliatone/go-bankcache/cacheaside"
	"github.com/goliatone/go-bankcache/domain"
	"github.com/goliatone/go-bankcache/logging"
	"github.com/goliatone/go-bankcache/persistence"
	"github.com/goliatone/go-bankcache/persistence/bunstore"
	"github.com/goliatone/go-bankcache/result"
	"github.com/uptrace/bun"
)

// Services groups the cached services of the bank schema. All of them share
// one store and one database.
type Services struct {
	Accounts  *cacheaside.Service[domain.Account]
	Branches  *cacheaside.Service[domain.Branch]
	Customers *cacheaside.Service[domain.Customer]
	Employees *cacheaside.Service[domain.Employee]
	Transfers *cacheaside.Service[domain.Transfer]
	Cards     *cacheaside.Service[domain.Card]
	Loans     *cacheaside.Service[domain.Loan]
	Ledger    *Ledger

	db  *bun.DB
	log logging.Logger
}

// New wires every service against db and store. opts apply to each service.
// Employee writes invalidate branch rosters, so Branches is registered as a
// dependent of Employees.
func New(db *bun.DB, store cache.Store, log logging.Logger, opts ...cacheaside.Option) *Services {
	log = logging.OrNop(log)
	opts = append([]cacheaside.Option{cacheaside.WithLogger(log)}, opts...)

	s := &Services{db: db, log: log}
	s.Accounts = cacheaside.New(bunstore.NewSource[domain.Account](db), store, opts...)
	s.Branches = cacheaside.New(bunstore.NewSource[domain.Branch](db), store, opts...)
	s.Customers = cacheaside.New(bunstore.NewSource[domain.Customer](db), store, opts...)
	s.Employees = cacheaside.New(bunstore.NewSource[domain.Employee](db), store,
		append(opts, cacheaside.WithDependents(s.Branches))...)
	s.Transfers = cacheaside.New(bunstore.NewSource[domain.Transfer](db), store, opts...)
	s.Cards = cacheaside.New(bunstore.NewSource[domain.Card](db), store, opts...)
	s.Loans = cacheaside.New(bunstore.NewSource[domain.Loan](db), store, opts...)
	s.Ledger = newLedger(db, s.Accounts, s.Transfers, log)
	return s
}

// BranchRoster returns the branch with the names of its employees, cached
// under the branches namespace.
func (s *Services) BranchRoster(ctx context.Context, branchID int) result.Outcome[domain.BranchRoster] {
	return cacheaside.Query(ctx, s.Branches, "roster",
		func(ctx context.Context) (domain.BranchRoster, bool, error) {
			roster, ok, err := bunstore.LoadBranchRoster(ctx, s.db, branchID)
			if err == nil && !ok {
				err = &persistence.NotFoundError{Entity: "branch", ID: branchID}
			}
			return roster, ok, err
		}, branchID)
}

// InvalidateAll clears every service.
func (s *Services) InvalidateAll(ctx context.Context) {
	for _, inv := range []cacheaside.Invalidator{
		s.Accounts, s.Branches, s.Customers, s.Employees, s.Transfers, s.Cards, s.Loans,
	} {
		inv.InvalidateAll(ctx)
	}
}
