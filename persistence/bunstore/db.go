package bunstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goliatone/go-bankcache/domain"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	// DriverSQLite opens the database through bun's sqliteshim.
	DriverSQLite = "sqlite"
	// DriverPostgres opens the database through lib/pq.
	DriverPostgres = "postgres"
)

// Config selects the SQL driver and connection string.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// Open connects to the configured database and wraps it in a bun.DB with the
// matching dialect.
func Open(cfg Config) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch cfg.Driver {
	case DriverSQLite:
		sqldb, err = sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

// Models lists every table the bank schema needs.
func Models() []any {
	return []any{
		(*domain.Customer)(nil),
		(*domain.Branch)(nil),
		(*domain.Account)(nil),
		(*domain.Employee)(nil),
		(*domain.Transfer)(nil),
		(*domain.Card)(nil),
		(*domain.Loan)(nil),
	}
}

// CreateSchema creates the tables for models, or for Models() when none are given.
func CreateSchema(ctx context.Context, db bun.IDB, models ...any) error {
	if len(models) == 0 {
		models = Models()
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}
