package repository

import "context"

// Tx is an infra-defined transaction handle (pgx.Tx, *sql.Tx, ...).
// Repositories MUST accept a nil Tx and fall back to the pool.
type Tx interface{}

var NoTX Tx

// TransactionManager runs fn inside one storage transaction and passes the
// handle through so several repository calls commit or roll back together.
//
//	tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
//		return jobs.Record(ctx, tx, job)
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
