package repository

import (
	"context"
	"time"

	"votelab/internal/domain/model"
)

// TransactionRepository is the ledger of gateway payments keyed by payment reference.
type TransactionRepository interface {
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Transaction, error)
	// CreatePending records a not-yet-successful payment; an existing reference is left untouched.
	CreatePending(ctx context.Context, tx Tx, t *model.Transaction) error
	// Settle inserts the transaction as successful or flips an existing unsuccessful row.
	// It reports false when the reference was already successful; that caller must not write further.
	Settle(ctx context.Context, tx Tx, t *model.Transaction) (bool, error)
	// LatestActivation returns the newest activation transaction of a poll.
	LatestActivation(ctx context.Context, tx Tx, pollID int64) (*model.Transaction, error)
	// ListPending returns unsuccessful transactions created in [notBefore, olderThan).
	ListPending(ctx context.Context, tx Tx, notBefore, olderThan time.Time, limit int) ([]*model.Transaction, error)
}
