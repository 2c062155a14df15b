package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one database transaction and hands the
// transaction handle to fn as tx. Repositories receiving that handle must run
// on it (and may lock rows with SELECT ... FOR UPDATE); they must also accept
// NoTX and fall back to the pool.
//
// USAGE
// tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
// settled, err := txs.Settle(ctx, tx, t)
// ...
// return votes.Create(ctx, tx, v)
// })
//
// A non-nil error from fn rolls the transaction back.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
