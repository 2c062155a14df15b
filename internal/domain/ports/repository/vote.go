package repository

import (
	"context"

	"votelab/internal/domain/model"
)

type VoteRepository interface {
	Create(ctx context.Context, tx Tx, v *model.Vote) error
	// Tally sums votes per contestant of a poll; contestants without votes appear with zero.
	Tally(ctx context.Context, tx Tx, pollID int64) ([]model.ContestantTally, error)
}
