// Package pgx implements the store interfaces on PostgreSQL with pgvector
// for vector similarity search.
package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	pgdb "github.com/loomworks/loom/backend/pkg/db/pgx"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// ContextDBStorage implements ConnectionStore, EntityStore, VectorIndex, and
// SummaryIndex on a single PostgreSQL schema. It is safe for concurrent use;
// the underlying pool serializes nothing, every method is one statement or
// one transaction.
type ContextDBStorage struct {
	conn    pgxIConn
	queries *pgdb.Queries
}

// NewContextDBStorageWithConnection creates storage over an existing
// connection or pool. The caller owns the connection lifecycle.
func NewContextDBStorageWithConnection(conn pgxIConn) *ContextDBStorage {
	return &ContextDBStorage{
		conn:    conn,
		queries: pgdb.New(conn),
	}
}
