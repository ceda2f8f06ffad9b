package repobun

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/goliatone/go-bankcache/cache"
	"github.com/goliatone/go-bankcache/cacheaside"
	"github.com/goliatone/go-bankcache/domain"
	"github.com/goliatone/go-bankcache/persistence"
	"github.com/goliatone/go-bankcache/pkg/testsupport"
	"github.com/goliatone/go-bankcache/result"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/go-cmp/cmp"
	"github.com/uptrace/bun"
)

// recordingRepository forwards to a real repository and records the writes
// that reach it.
type recordingRepository struct {
	repository.Repository[*domain.Branch]

	mu    sync.Mutex
	calls []string
}

func (r *recordingRepository) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingRepository) writes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingRepository) CreateTx(ctx context.Context, tx bun.IDB, record *domain.Branch, criteria ...repository.InsertCriteria) (*domain.Branch, error) {
	r.record("CreateTx")
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *recordingRepository) UpdateTx(ctx context.Context, tx bun.IDB, record *domain.Branch, criteria ...repository.UpdateCriteria) (*domain.Branch, error) {
	r.record("UpdateTx")
	return r.Repository.UpdateTx(ctx, tx, record, criteria...)
}

func (r *recordingRepository) DeleteTx(ctx context.Context, tx bun.IDB, record *domain.Branch) error {
	r.record("DeleteTx")
	return r.Repository.DeleteTx(ctx, tx, record)
}

// brokenRepository fails every read with err.
type brokenRepository struct {
	repository.Repository[*domain.Branch]
	err error
}

func (b *brokenRepository) Get(ctx context.Context, criteria ...repository.SelectCriteria) (*domain.Branch, error) {
	return nil, b.err
}

func (b *brokenRepository) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*domain.Branch, int, error) {
	return nil, 0, b.err
}

func seededBranchDB(t *testing.T) *bun.DB {
	t.Helper()
	db := testsupport.NewSQLiteDB(t)
	testsupport.Seed(t, db, testsupport.BankFixture{Branches: testsupport.Bank(t).Branches})
	return db
}

func newGateway(t *testing.T) (*Gateway[domain.Branch, *domain.Branch], *UnitOfWork, *recordingRepository) {
	t.Helper()
	db := seededBranchDB(t)
	repo := &recordingRepository{Repository: NewRepository[domain.Branch](db)}
	uow := NewUnitOfWork(db)
	return New[domain.Branch](repository.Repository[*domain.Branch](repo), uow), uow, repo
}

func TestGateway_GetAllSortsByID(t *testing.T) {
	gw, _, _ := newGateway(t)

	branches, err := gw.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}

	want := []domain.Branch{
		{BranchID: 1, BranchName: "Downtown", Location: "1 Main Street"},
		{BranchID: 2, BranchName: "Harbor", Location: "4 Pier Road"},
	}
	if diff := cmp.Diff(want, branches); diff != "" {
		t.Errorf("branches mismatch (-want +got):\n%s", diff)
	}
}

func TestGateway_GetAllIsNotPaged(t *testing.T) {
	db := testsupport.NewSQLiteDB(t)
	fixture := testsupport.BankFixture{}
	for i := 1; i <= 40; i++ {
		fixture.Branches = append(fixture.Branches, domain.Branch{
			BranchID:   i,
			BranchName: fmt.Sprintf("Branch %d", i),
			Location:   fmt.Sprintf("%d High Street", i),
		})
	}
	testsupport.Seed(t, db, fixture)
	gw := New[domain.Branch](NewRepository[domain.Branch](db), NewUnitOfWork(db))

	branches, err := gw.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(branches) != 40 {
		t.Errorf("expected 40 branches, got %d", len(branches))
	}
}

func TestGateway_GetByID(t *testing.T) {
	gw, _, _ := newGateway(t)
	ctx := context.Background()

	branch, ok, err := gw.GetByID(ctx, 2)
	if err != nil || !ok || branch.BranchName != "Harbor" {
		t.Fatalf("GetByID(2) = %+v, %v, %v", branch, ok, err)
	}

	_, ok, err = gw.GetByID(ctx, 999)
	if err != nil || ok {
		t.Errorf("GetByID(999) = %v, %v; want absent without error", ok, err)
	}
}

func TestGateway_GetByIDWrapsRepositoryErrors(t *testing.T) {
	repo := &brokenRepository{err: errors.New("connection reset")}
	gw := New[domain.Branch](repository.Repository[*domain.Branch](repo), NewUnitOfWork(testsupport.NewSQLiteDB(t)))

	_, _, err := gw.GetByID(context.Background(), 1)

	var dae *persistence.DataAccessError
	if !errors.As(err, &dae) {
		t.Fatalf("expected DataAccessError, got %v", err)
	}
	if err.Error() != "get branch 1: connection reset" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestGateway_WithNotFound(t *testing.T) {
	sentinel := errors.New("no such branch")
	repo := &brokenRepository{err: sentinel}
	uow := NewUnitOfWork(testsupport.NewSQLiteDB(t))
	gw := New[domain.Branch](repository.Repository[*domain.Branch](repo), uow, WithNotFound(func(err error) bool {
		return errors.Is(err, sentinel)
	}))

	_, ok, err := gw.GetByID(context.Background(), 1)
	if err != nil || ok {
		t.Errorf("GetByID = %v, %v; want custom not-found to map to absent", ok, err)
	}
}

func TestGateway_Find(t *testing.T) {
	gw, _, _ := newGateway(t)
	ctx := context.Background()

	branch, ok, err := gw.Find(ctx, persistence.Where("branch_name", "Harbor"))
	if err != nil || !ok {
		t.Fatalf("Find = %v, %v", ok, err)
	}
	if branch.BranchID != 2 {
		t.Errorf("expected branch 2, got %d", branch.BranchID)
	}

	_, ok, err = gw.Find(ctx, persistence.Where("branch_name", "Nowhere"))
	if err != nil || ok {
		t.Errorf("Find(Nowhere) = %v, %v; want absent without error", ok, err)
	}
}

func TestGateway_WritesAreStaged(t *testing.T) {
	gw, uow, repo := newGateway(t)
	ctx := context.Background()

	added := &domain.Branch{BranchName: "Airport", Location: "Terminal 2"}
	if _, err := gw.Add(ctx, added); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := gw.Update(ctx, 1, domain.Branch{BranchName: "Downtown East", Location: "1 Main Street"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := gw.Delete(ctx, domain.Branch{BranchID: 2}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if calls := repo.writes(); len(calls) != 0 {
		t.Fatalf("writes ran before Complete: %v", calls)
	}

	n, err := uow.Complete(ctx)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 affected records, got %d", n)
	}
	if added.BranchID != 3 {
		t.Errorf("expected generated id 3, got %d", added.BranchID)
	}

	all, _ := gw.GetAll(ctx)
	names := []string{}
	for _, b := range all {
		names = append(names, b.BranchName)
	}
	if diff := cmp.Diff([]string{"Downtown East", "Airport"}, names); diff != "" {
		t.Errorf("branches mismatch (-want +got):\n%s", diff)
	}
}

func TestGateway_UpdateMissingFailsCommit(t *testing.T) {
	gw, uow, repo := newGateway(t)
	ctx := context.Background()

	_, _ = gw.Update(ctx, 42, domain.Branch{BranchName: "Ghost", Location: "-"})

	_, err := uow.Complete(ctx)
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls := repo.writes(); len(calls) != 0 {
		t.Errorf("UpdateTx should not run for a missing row, got %v", calls)
	}
}

func TestNewSource_MissingRowsAreNotFound(t *testing.T) {
	db := seededBranchDB(t)
	store, err := cache.NewStore(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	branches := cacheaside.New(NewSource[domain.Branch](db, NewRepository[domain.Branch](db)), store)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() (result.Kind, string)
	}{
		{
			name: "get",
			run: func() (result.Kind, string) {
				out := branches.GetByID(ctx, 999)
				return out.Kind(), out.Error()
			},
		},
		{
			name: "delete",
			run: func() (result.Kind, string) {
				out := branches.Delete(ctx, 999)
				return out.Kind(), out.Error()
			},
		},
		{
			name: "update",
			run: func() (result.Kind, string) {
				out := branches.Update(ctx, 999, domain.Branch{BranchID: 999, BranchName: "Ghost", Location: "Nowhere"})
				return out.Kind(), out.Error()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, msg := tt.run()
			if kind != result.KindNotFound {
				t.Errorf("expected not found, got %s (%q)", kind, msg)
			}
		})
	}

	if got := branches.GetByID(ctx, 1); !got.IsSuccess() || got.Data().BranchName != "Downtown" {
		t.Errorf("GetByID(1) = %+v (%q)", got.Data(), got.Error())
	}
}
