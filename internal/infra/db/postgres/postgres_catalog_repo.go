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

var (
	_ repository.CatalogRepository = (*catalogRepo)(nil)
	_ repository.PollRepository    = (*pollRepo)(nil)
)

const pollColumns = `id, title, description, poll_type, voting_fee, setup_fee, expected_voters, active, start_time, end_time, created_at`

func scanPoll(row pgx.Row) (*model.Poll, error) {
	p := &model.Poll{}
	var typ string
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &typ, &p.VotingFee, &p.SetupFee, &p.ExpectedVoters, &p.Active, &p.StartTime, &p.EndTime, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, errors.Join(domain.ErrReadDatabaseRow, err)
	}
	p.Type = model.PollType(typ)
	return p, nil
}

func scanContestant(row pgx.Row) (*model.Contestant, error) {
	c := &model.Contestant{}
	var code *string
	if err := row.Scan(&c.ID, &c.PollID, &c.Category, &c.Name, &code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContestantNotFound
		}
		return nil, errors.Join(domain.ErrReadDatabaseRow, err)
	}
	if code != nil {
		c.NomineeCode = *code
	}
	return c, nil
}

// catalogRepo serves menu reads straight from the database.
type catalogRepo struct{ pool *pgxpool.Pool }

func NewCatalogRepo(pool *pgxpool.Pool) *catalogRepo {
	return &catalogRepo{pool: pool}
}

func (r *catalogRepo) ActivePolls(ctx context.Context, now time.Time) ([]*model.Poll, error) {
	const q = `SELECT ` + pollColumns + ` FROM polls WHERE active = TRUE AND start_time <= $1 AND end_time > $1 ORDER BY id;`
	rows, err := queryRows(ctx, r.pool, nil, q, now)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*model.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapError(rows.Err())
}

func (r *catalogRepo) Poll(ctx context.Context, pollID int64) (*model.Poll, error) {
	const q = `SELECT ` + pollColumns + ` FROM polls WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, nil, q, pollID)
	if err != nil {
		return nil, err
	}
	return scanPoll(row)
}

// Categories keeps the order in which categories first appear, so menu numbers stay stable.
func (r *catalogRepo) Categories(ctx context.Context, pollID int64) ([]string, error) {
	const q = `SELECT category FROM contestants WHERE poll_id = $1 GROUP BY category ORDER BY MIN(id);`
	rows, err := queryRows(ctx, r.pool, nil, q, pollID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, errors.Join(domain.ErrReadDatabaseRow, err)
		}
		out = append(out, c)
	}
	return out, mapError(rows.Err())
}

func (r *catalogRepo) Contestants(ctx context.Context, pollID int64, category string) ([]*model.Contestant, error) {
	const q = `SELECT id, poll_id, category, name, nominee_code FROM contestants WHERE poll_id = $1 AND category = $2 ORDER BY id;`
	rows, err := queryRows(ctx, r.pool, nil, q, pollID, category)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*model.Contestant
	for rows.Next() {
		c, err := scanContestant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, mapError(rows.Err())
}

func (r *catalogRepo) Contestant(ctx context.Context, pollID, contestantID int64) (*model.Contestant, error) {
	const q = `SELECT id, poll_id, category, name, nominee_code FROM contestants WHERE poll_id = $1 AND id = $2;`
	row, err := pickRow(ctx, r.pool, nil, q, pollID, contestantID)
	if err != nil {
		return nil, err
	}
	return scanContestant(row)
}

func (r *catalogRepo) ContestantByNomineeCode(ctx context.Context, pollID int64, code string) (*model.Contestant, error) {
	const q = `SELECT id, poll_id, category, name, nominee_code FROM contestants WHERE poll_id = $1 AND UPPER(nominee_code) = UPPER($2);`
	row, err := pickRow(ctx, r.pool, nil, q, pollID, code)
	if err != nil {
		return nil, err
	}
	return scanContestant(row)
}

// pollRepo holds the writes that run inside ledger transactions.
type pollRepo struct{ pool *pgxpool.Pool }

func NewPollRepo(pool *pgxpool.Pool) *pollRepo {
	return &pollRepo{pool: pool}
}

func (r *pollRepo) FindByID(ctx context.Context, tx repository.Tx, pollID int64) (*model.Poll, error) {
	q := `SELECT ` + pollColumns + ` FROM polls WHERE id = $1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, pollID)
	if err != nil {
		return nil, err
	}
	return scanPoll(row)
}

func (r *pollRepo) Activate(ctx context.Context, tx repository.Tx, pollID int64) error {
	const q = `UPDATE polls SET active = TRUE WHERE id = $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, pollID)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrPollNotFound
	}
	return nil
}

func (r *pollRepo) Save(ctx context.Context, tx repository.Tx, p *model.Poll) error {
	if p.ID == 0 {
		const q = `
INSERT INTO polls (title, description, poll_type, voting_fee, setup_fee, expected_voters, active, start_time, end_time, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id;`
		row, err := pickRow(ctx, r.pool, tx, q, p.Title, p.Description, string(p.Type), p.VotingFee, p.SetupFee, p.ExpectedVoters, p.Active, p.StartTime, p.EndTime, p.CreatedAt)
		if err != nil {
			return err
		}
		return mapError(row.Scan(&p.ID))
	}
	const q = `
UPDATE polls SET title=$2, description=$3, poll_type=$4, voting_fee=$5, setup_fee=$6, expected_voters=$7, active=$8, start_time=$9, end_time=$10
 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Title, p.Description, string(p.Type), p.VotingFee, p.SetupFee, p.ExpectedVoters, p.Active, p.StartTime, p.EndTime)
	return mapError(err)
}

// SaveContestant inserts a contestant and fills in its nominee code from the generated id.
func (r *pollRepo) SaveContestant(ctx context.Context, tx repository.Tx, c *model.Contestant) error {
	const q = `INSERT INTO contestants (poll_id, category, name) VALUES ($1,$2,$3) RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q, c.PollID, c.Category, c.Name)
	if err != nil {
		return err
	}
	if err := row.Scan(&c.ID); err != nil {
		return mapError(err)
	}
	c.NomineeCode = model.NomineeCode(c.Name, c.ID)
	_, err = execSQL(ctx, r.pool, tx, `UPDATE contestants SET nominee_code = $2 WHERE id = $1;`, c.ID, c.NomineeCode)
	return mapError(err)
}
