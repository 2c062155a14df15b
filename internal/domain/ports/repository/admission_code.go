package repository

import (
	"context"

	"votelab/internal/domain/model"
)

// AdmissionCodeRepository is the port for single-use voter codes.
type AdmissionCodeRepository interface {
	// Save inserts a new code. A duplicate code returns domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, code *model.AdmissionCode) error
	// FindByCode finds a code of the poll whether used or not.
	FindByCode(ctx context.Context, tx Tx, pollID int64, code string) (*model.AdmissionCode, error)
	// Consume flips used=false -> true in one conditional write, only while the poll's used
	// count is below maxUsed. It returns domain.ErrNotFound when no row qualified.
	Consume(ctx context.Context, tx Tx, pollID int64, code string, maxUsed int) (*model.AdmissionCode, error)
	// Counts returns the number of codes issued and used for a poll.
	Counts(ctx context.Context, tx Tx, pollID int64) (issued, used int, err error)
}
