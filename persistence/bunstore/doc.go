// Package bunstore implements the persistence contracts on uptrace/bun.
//
// Open selects the dialect from the configured driver (SQLite through
// sqliteshim or PostgreSQL through lib/pq). Repository reads hit the database
// directly while writes are recorded on a UnitOfWork and replayed in one
// transaction by Complete. An update or delete that matches no row fails the
// whole commit with an error wrapping persistence.ErrNotFound.
package bunstore
