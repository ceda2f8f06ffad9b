package testsupport

import (
	"context"
	_ "embed"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-bankcache/persistence/bunstore"
	"github.com/uptrace/bun"
)

//go:embed testdata/bank.json
var bankSeed []byte

var dbSeq atomic.Int64

// NewSQLiteDB opens a private in-memory SQLite database with the bank schema
// created. It is closed when the test ends.
func NewSQLiteDB(t testing.TB) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:bankcache_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := bunstore.Open(bunstore.Config{
		Driver:       bunstore.DriverSQLite,
		DSN:          dsn,
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := bunstore.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return db
}

// NewSeededDB is NewSQLiteDB with the bank fixture inserted.
func NewSeededDB(t testing.TB) (*bun.DB, BankFixture) {
	t.Helper()

	db := NewSQLiteDB(t)
	fixture := Bank(t)
	Seed(t, db, fixture)
	return db, fixture
}

// Seed inserts every non-empty table of fixture.
func Seed(t testing.TB, db bun.IDB, fixture BankFixture) {
	t.Helper()

	ctx := context.Background()
	models := []any{}
	if len(fixture.Customers) > 0 {
		models = append(models, &fixture.Customers)
	}
	if len(fixture.Branches) > 0 {
		models = append(models, &fixture.Branches)
	}
	if len(fixture.Accounts) > 0 {
		models = append(models, &fixture.Accounts)
	}
	if len(fixture.Employees) > 0 {
		models = append(models, &fixture.Employees)
	}
	if len(fixture.Transfers) > 0 {
		models = append(models, &fixture.Transfers)
	}

	for _, model := range models {
		if _, err := db.NewInsert().Model(model).Exec(ctx); err != nil {
			t.Fatalf("failed to seed %T: %v", model, err)
		}
	}
}
