package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goliatone/go-bankcache/domain"
	"github.com/goliatone/go-bankcache/persistence"
	"github.com/uptrace/bun"
)

// LoadBranchRoster reads a branch and the names of its employees. The bool is
// false when the branch does not exist.
func LoadBranchRoster(ctx context.Context, db bun.IDB, branchID int) (domain.BranchRoster, bool, error) {
	branch := domain.Branch{BranchID: branchID}
	err := db.NewSelect().Model(&branch).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BranchRoster{}, false, nil
	}
	if err != nil {
		return domain.BranchRoster{}, false, persistence.Wrap(fmt.Sprintf("get branch %d", branchID), err)
	}

	names := []string{}
	err = db.NewSelect().
		Model((*domain.Employee)(nil)).
		Column("name").
		Where("branch_id = ?", branchID).
		Order("name ASC").
		Scan(ctx, &names)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.BranchRoster{}, false, persistence.Wrap(fmt.Sprintf("list employees of branch %d", branchID), err)
	}
	if names == nil {
		names = []string{}
	}

	return domain.BranchRoster{
		BranchID:   branch.BranchID,
		BranchName: branch.BranchName,
		Employees:  names,
	}, true, nil
}
