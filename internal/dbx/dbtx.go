// Package dbx holds the small database/sql helpers the relational provider
// builds on: a handle interface satisfied by both connections and
// transactions, and a wrapper that runs a function transactionally.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the query surface the relational provider needs. *sql.DB and
// *sql.Tx both satisfy it, so the same statement helpers run standalone or
// inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction: commit when fn returns nil, rollback
// when it returns an error or panics (the panic is rethrown). The
// relational provider uses it for its locked read-modify-write updates:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    row := tx.QueryRowContext(ctx, "SELECT ... FOR UPDATE", id)
//	    ...
//	    _, err := tx.ExecContext(ctx, "UPDATE agreements SET ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
