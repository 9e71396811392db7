package infra

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type contextKey struct{}

var txContextKey = &contextKey{}

// OpenSQLite opens a bun handle on the given DSN. The default DSN used by
// the journal is a shared in-memory database, so nothing outlives the
// process.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database disappears with its last connection, and sqlite
	// allows one writer anyway.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func InjectTx(ctx context.Context, db bun.IDB) context.Context {
	return context.WithValue(ctx, txContextKey, db)
}

func ExtractTx(ctx context.Context, fallback bun.IDB) bun.IDB {
	if db, ok := ctx.Value(txContextKey).(bun.IDB); ok {
		return db
	}
	return fallback
}

type BunTransactionRunner struct {
	db *bun.DB
}

func NewBunTransactionRunner(db *bun.DB) *BunTransactionRunner {
	return &BunTransactionRunner{db: db}
}

// Exec runs fn in a transaction, joining the caller's one if ctx already
// carries it.
func (r *BunTransactionRunner) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey).(bun.IDB); ok {
		return fn(ctx)
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(InjectTx(ctx, tx))
	})
}
