package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionColumns = `id, payment_reference, transaction_type, poll_id, contestant_id, amount, payer_contact, authorization_url, success, created_at, settled_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	var typ string
	if err := row.Scan(&t.ID, &t.PaymentReference, &typ, &t.PollID, &t.ContestantID, &t.Amount, &t.PayerContact, &t.AuthorizationURL, &t.Success, &t.CreatedAt, &t.SettledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Join(domain.ErrReadDatabaseRow, err)
	}
	t.Type = model.TransactionType(typ)
	return t, nil
}

func (r *transactionRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE payment_reference = $1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) CreatePending(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO transactions (payment_reference, transaction_type, poll_id, contestant_id, amount, payer_contact, authorization_url, success, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,$8)
ON CONFLICT (payment_reference) DO NOTHING
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q, t.PaymentReference, string(t.Type), t.PollID, t.ContestantID, t.Amount, t.PayerContact, t.AuthorizationURL, t.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&t.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAlreadyExists
		}
		return mapError(err)
	}
	return nil
}

// Settle is the ledger's compare-and-set. The upsert only touches a row whose success is still
// FALSE; a concurrent settler blocks on the row lock, re-checks the predicate after the winner
// commits, and gets no row back.
func (r *transactionRepo) Settle(ctx context.Context, tx repository.Tx, t *model.Transaction) (bool, error) {
	const q = `
INSERT INTO transactions (payment_reference, transaction_type, poll_id, contestant_id, amount, payer_contact, success, created_at, settled_at)
VALUES ($1,$2,$3,$4,$5,$6,TRUE,NOW(),NOW())
ON CONFLICT (payment_reference) DO UPDATE SET
  success    = TRUE,
  amount     = EXCLUDED.amount,
  settled_at = EXCLUDED.settled_at
WHERE transactions.success = FALSE
RETURNING id, created_at, settled_at;`
	row, err := pickRow(ctx, r.pool, tx, q, t.PaymentReference, string(t.Type), t.PollID, t.ContestantID, t.Amount, t.PayerContact)
	if err != nil {
		return false, err
	}
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.SettledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapError(err)
	}
	t.Success = true
	return true, nil
}

func (r *transactionRepo) LatestActivation(ctx context.Context, tx repository.Tx, pollID int64) (*model.Transaction, error) {
	const q = `SELECT ` + transactionColumns + ` FROM transactions
 WHERE poll_id = $1 AND transaction_type = 'poll_activation'
 ORDER BY success DESC, created_at DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, pollID)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) ListPending(ctx context.Context, tx repository.Tx, notBefore, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + transactionColumns + ` FROM transactions
 WHERE success = FALSE AND created_at >= $1 AND created_at < $2
 ORDER BY created_at ASC
 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, notBefore, olderThan, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, mapError(rows.Err())
}
