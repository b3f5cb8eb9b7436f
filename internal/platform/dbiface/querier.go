package dbiface

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the common surface of *pgxpool.Pool and pgx.Tx that repository
// methods depend on, so the same method can run inside or outside a
// transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a Querier that can also open transactions, satisfied by
// *pgxpool.Pool and by pgxmock pools in tests. Application services hold a DB
// and run multi-statement work through pgx.BeginFunc.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}
