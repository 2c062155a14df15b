package repository

import (
	"context"
	"time"

	"votelab/internal/domain/model"
)

// CatalogRepository is the read side of polls and contestants used while navigating menus.
// Every call hits the store; callers must not cache enumerations across steps.
type CatalogRepository interface {
	// ActivePolls returns polls with active=true and start_time <= now < end_time, ordered by id.
	ActivePolls(ctx context.Context, now time.Time) ([]*model.Poll, error)
	Poll(ctx context.Context, pollID int64) (*model.Poll, error)
	// Categories returns the distinct categories of a poll in a stable order.
	Categories(ctx context.Context, pollID int64) ([]string, error)
	Contestants(ctx context.Context, pollID int64, category string) ([]*model.Contestant, error)
	Contestant(ctx context.Context, pollID, contestantID int64) (*model.Contestant, error)
	ContestantByNomineeCode(ctx context.Context, pollID int64, code string) (*model.Contestant, error)
}

// PollRepository holds the transactional writes on polls.
type PollRepository interface {
	// FindByID loads a poll; inside a transaction the row is locked FOR UPDATE.
	FindByID(ctx context.Context, tx Tx, pollID int64) (*model.Poll, error)
	Activate(ctx context.Context, tx Tx, pollID int64) error
	Save(ctx context.Context, tx Tx, p *model.Poll) error
	SaveContestant(ctx context.Context, tx Tx, c *model.Contestant) error
}
