package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypePollActivation TransactionType = "poll_activation"
	TransactionTypeVote           TransactionType = "vote"
)

// Transaction records one gateway payment. PaymentReference is the idempotency key of the ledger;
// Success only ever moves false -> true.
type Transaction struct {
	ID               int64
	PaymentReference string
	Type             TransactionType
	PollID           int64
	ContestantID     *int64 // vote payments only
	Amount           decimal.Decimal
	PayerContact     string
	AuthorizationURL string // checkout page handed out for this reference
	Success          bool
	CreatedAt        time.Time
	SettledAt        *time.Time // set when success flips
}
