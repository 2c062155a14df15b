package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.AdmissionCodeRepository = (*admissionCodeRepo)(nil)

type admissionCodeRepo struct {
	pool *pgxpool.Pool
}

func NewAdmissionCodeRepo(pool *pgxpool.Pool) *admissionCodeRepo {
	return &admissionCodeRepo{pool: pool}
}

func scanAdmissionCode(row pgx.Row) (*model.AdmissionCode, error) {
	var ac model.AdmissionCode
	if err := row.Scan(&ac.ID, &ac.PollID, &ac.Code, &ac.Used, &ac.UsedAt, &ac.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Join(domain.ErrReadDatabaseRow, err)
	}
	return &ac, nil
}

// Save skips a colliding code instead of raising a unique violation, which would abort the
// caller's transaction; the collision comes back as domain.ErrAlreadyExists.
func (r *admissionCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.AdmissionCode) error {
	const q = `
INSERT INTO admission_codes (poll_id, code, used, created_at)
VALUES ($1, $2, FALSE, $3)
ON CONFLICT (code) DO NOTHING
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q, code.PollID, code.Code, code.CreatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&code.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAlreadyExists
		}
		return mapError(err)
	}
	return nil
}

func (r *admissionCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, pollID int64, code string) (*model.AdmissionCode, error) {
	const q = `
SELECT id, poll_id, code, used, used_at, created_at
  FROM admission_codes
 WHERE poll_id = $1 AND code = $2;`
	row, err := pickRow(ctx, r.pool, tx, q, pollID, code)
	if err != nil {
		return nil, err
	}
	return scanAdmissionCode(row)
}

// Consume is the single conditional write behind every code spend. Two callers racing on
// one code serialise on its row lock; the loser re-evaluates used = FALSE and gets no row.
// Callers lock the poll row first so that spends of different codes cannot overshoot maxUsed.
func (r *admissionCodeRepo) Consume(ctx context.Context, tx repository.Tx, pollID int64, code string, maxUsed int) (*model.AdmissionCode, error) {
	const q = `
UPDATE admission_codes
   SET used = TRUE, used_at = NOW()
 WHERE poll_id = $1
   AND code = $2
   AND used = FALSE
   AND (SELECT COUNT(*) FROM admission_codes WHERE poll_id = $1 AND used = TRUE) < $3
RETURNING id, poll_id, code, used, used_at, created_at;`
	row, err := pickRow(ctx, r.pool, tx, q, pollID, code, maxUsed)
	if err != nil {
		return nil, err
	}
	return scanAdmissionCode(row)
}

func (r *admissionCodeRepo) Counts(ctx context.Context, tx repository.Tx, pollID int64) (int, int, error) {
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE used) FROM admission_codes WHERE poll_id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, pollID)
	if err != nil {
		return 0, 0, err
	}
	var issued, used int
	if err := row.Scan(&issued, &used); err != nil {
		return 0, 0, errors.Join(domain.ErrReadDatabaseRow, err)
	}
	return issued, used, nil
}
