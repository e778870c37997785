package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier — то, что умеют и pgxpool.Pool, и pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type TxManagerInterface interface {
	RunInTransaction(ctx context.Context, fn func(q Querier) error) error
}

// TxManager открывает транзакции журнала импорта (read committed).
type TxManager struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewTxManager(pool *pgxpool.Pool) TxManagerInterface {
	return &TxManager{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

// RunInTransaction коммитит, если fn вернула nil, иначе откатывает.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(q Querier) error) error {
	err := pgx.BeginTxFunc(ctx, m.pool, m.opts, func(tx pgx.Tx) error {
		return fn(tx)
	})
	if err != nil {
		return fmt.Errorf("транзакция журнала импорта: %w", err)
	}
	return nil
}
