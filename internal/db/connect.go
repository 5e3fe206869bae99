package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query helper can run
// standalone or inside a cascade transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	const op = "db.Open"

	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return database, nil
}

// WithTx runs fn inside a transaction. Every multi-row cascade (leave
// approval, roll-call completion) goes through here so a mid-cascade failure
// rolls back every row written in the operation.
func WithTx(ctx context.Context, database *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
