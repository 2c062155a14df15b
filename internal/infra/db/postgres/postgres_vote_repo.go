package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
)

var _ repository.VoteRepository = (*voteRepo)(nil)

type voteRepo struct{ pool *pgxpool.Pool }

func NewVoteRepo(pool *pgxpool.Pool) *voteRepo {
	return &voteRepo{pool: pool}
}

func (r *voteRepo) Create(ctx context.Context, tx repository.Tx, v *model.Vote) error {
	if v.NumberOfVotes < 1 {
		return domain.ErrInvalidVoteCount
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO votes (poll_id, contestant_id, number_of_votes, transaction_id, admission_code_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q, v.PollID, v.ContestantID, v.NumberOfVotes, v.TransactionID, v.AdmissionCodeID, v.CreatedAt)
	if err != nil {
		return err
	}
	return mapError(row.Scan(&v.ID))
}

func (r *voteRepo) Tally(ctx context.Context, tx repository.Tx, pollID int64) ([]model.ContestantTally, error) {
	const q = `
SELECT c.id, c.name, c.category, COALESCE(SUM(v.number_of_votes), 0)
  FROM contestants c
  LEFT JOIN votes v ON v.contestant_id = c.id AND v.poll_id = c.poll_id
 WHERE c.poll_id = $1
 GROUP BY c.id, c.name, c.category
 ORDER BY c.category, 4 DESC, c.id;`
	rows, err := queryRows(ctx, r.pool, tx, q, pollID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.ContestantTally
	for rows.Next() {
		var t model.ContestantTally
		if err := rows.Scan(&t.ContestantID, &t.Name, &t.Category, &t.Votes); err != nil {
			return nil, errors.Join(domain.ErrReadDatabaseRow, err)
		}
		out = append(out, t)
	}
	return out, mapError(rows.Err())
}
