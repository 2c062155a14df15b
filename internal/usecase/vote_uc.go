// File: internal/usecase/vote_uc.go
package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/adapter"
	"votelab/internal/domain/ports/repository"
	"votelab/internal/infra/logging"
	"votelab/internal/infra/metrics"
)

// MaxVotesPerPayment caps a single paid vote request.
const MaxVotesPerPayment = 10000

// PaidVoteRequest asks for a payment link for NumberOfVotes votes. The contestant is addressed
// by id or, when ContestantID is zero, by nominee code.
type PaidVoteRequest struct {
	PollID        int64
	ContestantID  int64
	NomineeCode   string
	NumberOfVotes int
	PayerContact  string
}

// PaymentIntent is a pending payment handed back to the voter. No Vote exists yet.
type PaymentIntent struct {
	Reference        string          `json:"reference"`
	AuthorizationURL string          `json:"authorization_url"`
	Amount           decimal.Decimal `json:"amount"`
	NumberOfVotes    int             `json:"number_of_votes,omitempty"`
	ContestantName   string          `json:"contestant_name,omitempty"`
	Reused           bool            `json:"reused,omitempty"`
}

// Compile-time check
var _ VoteUseCase = (*voteUC)(nil)

type VoteUseCase interface {
	// InitiatePaidVote creates a payment link and a pending transaction for a voters-pay poll.
	InitiatePaidVote(ctx context.Context, req PaidVoteRequest) (*PaymentIntent, error)
	// CastCodeVote spends an admission code and records one vote in a single transaction.
	CastCodeVote(ctx context.Context, pollID, contestantID int64, nomineeCode, code string) (*model.Vote, error)
}

type voteUC struct {
	tm      repository.TransactionManager
	catalog repository.CatalogRepository
	polls   repository.PollRepository
	codes   repository.AdmissionCodeRepository
	txs     repository.TransactionRepository
	votes   repository.VoteRepository
	gateway adapter.PaymentGateway
	retry   RetryPolicy
	signal  *changeSignal
	log     *zerolog.Logger
	nowFn   func() time.Time
}

func NewVoteUseCase(
	tm repository.TransactionManager,
	catalog repository.CatalogRepository,
	polls repository.PollRepository,
	codes repository.AdmissionCodeRepository,
	txs repository.TransactionRepository,
	votes repository.VoteRepository,
	gateway adapter.PaymentGateway,
	notifier adapter.ChangeNotifier,
	async Dispatcher,
	retry RetryPolicy,
	logger *zerolog.Logger,
) *voteUC {
	l := logger.With().Str("component", "votes").Logger()
	return &voteUC{
		tm:      tm,
		catalog: catalog,
		polls:   polls,
		codes:   codes,
		txs:     txs,
		votes:   votes,
		gateway: gateway,
		retry:   retry,
		signal:  &changeSignal{notifier: notifier, async: async, log: &l},
		log:     &l,
		nowFn:   time.Now,
	}
}

// openPoll loads a poll and fails closed unless it accepts votes right now.
func (u *voteUC) openPoll(ctx context.Context, pollID int64) (*model.Poll, error) {
	poll, err := u.catalog.Poll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !poll.OpenAt(u.nowFn()) {
		return nil, domain.ErrPollInactive
	}
	return poll, nil
}

func (u *voteUC) resolveContestant(ctx context.Context, pollID, contestantID int64, nomineeCode string) (*model.Contestant, error) {
	if contestantID > 0 {
		return u.catalog.Contestant(ctx, pollID, contestantID)
	}
	if code := strings.TrimSpace(nomineeCode); code != "" {
		return u.catalog.ContestantByNomineeCode(ctx, pollID, code)
	}
	return nil, domain.ErrContestantNotFound
}

func (u *voteUC) InitiatePaidVote(ctx context.Context, req PaidVoteRequest) (*PaymentIntent, error) {
	defer logging.TraceDuration(u.log, "VoteUC.InitiatePaidVote")()

	if req.NumberOfVotes < 1 || req.NumberOfVotes > MaxVotesPerPayment {
		return nil, domain.ErrInvalidVoteCount
	}
	if strings.TrimSpace(req.PayerContact) == "" {
		return nil, domain.ErrInvalidArgument
	}
	poll, err := u.openPoll(ctx, req.PollID)
	if err != nil {
		return nil, err
	}
	if !poll.IsVotersPay() {
		return nil, domain.ErrPollTypeMismatch
	}
	contestant, err := u.resolveContestant(ctx, poll.ID, req.ContestantID, req.NomineeCode)
	if err != nil {
		return nil, err
	}

	amount := poll.PriceFor(req.NumberOfVotes)
	ref := model.NewVoteReference(poll.ID, contestant.ID).String()
	ctx = logging.WithReference(ctx, ref)

	link, err := u.createLink(ctx, adapter.PaymentRequest{
		Amount:       amount,
		Reference:    ref,
		PayerContact: req.PayerContact,
		Metadata: map[string]string{
			"poll":            poll.Title,
			"contestant":      contestant.Name,
			"number_of_votes": strconv.Itoa(req.NumberOfVotes),
		},
	})
	if err != nil {
		return nil, err
	}

	pending := &model.Transaction{
		PaymentReference: ref,
		Type:             model.TransactionTypeVote,
		PollID:           poll.ID,
		ContestantID:     &contestant.ID,
		Amount:           amount,
		PayerContact:     req.PayerContact,
		AuthorizationURL: link.AuthorizationURL,
		CreatedAt:        u.nowFn(),
	}
	if err := u.txs.CreatePending(ctx, repository.NoTX, pending); err != nil {
		// Reconciliation upserts the row anyway; the voter can still pay.
		logging.With(ctx, u.log).Error().Err(err).Msg("failed to record pending transaction")
	}

	return &PaymentIntent{
		Reference:        ref,
		AuthorizationURL: link.AuthorizationURL,
		Amount:           amount,
		NumberOfVotes:    req.NumberOfVotes,
		ContestantName:   contestant.Name,
	}, nil
}

func (u *voteUC) createLink(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentLink, error) {
	var link adapter.PaymentLink
	err := withRetry(ctx, u.retry, func(ctx context.Context) error {
		var err error
		link, err = u.gateway.CreatePaymentLink(ctx, req)
		return err
	})
	if err != nil {
		logging.With(ctx, u.log).Error().Err(err).Msg("payment link creation failed")
	}
	return link, err
}

func (u *voteUC) CastCodeVote(ctx context.Context, pollID, contestantID int64, nomineeCode, code string) (*model.Vote, error) {
	defer logging.TraceDuration(u.log, "VoteUC.CastCodeVote")()

	code = NormalizeAdmissionCode(code)
	if code == "" {
		metrics.IncCodeSpend("not_found")
		return nil, domain.ErrCodeNotFound
	}
	poll, err := u.openPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !poll.IsCreatorPay() {
		return nil, domain.ErrPollTypeMismatch
	}
	contestant, err := u.resolveContestant(ctx, pollID, contestantID, nomineeCode)
	if err != nil {
		return nil, err
	}

	var vote *model.Vote
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// the poll row lock serialises spends so the used count cannot overshoot expected_voters
		locked, err := u.polls.FindByID(ctx, tx, pollID)
		if err != nil {
			return err
		}
		ac, err := u.codes.Consume(ctx, tx, pollID, code, locked.ExpectedVoters)
		if errors.Is(err, domain.ErrNotFound) {
			return u.classifySpendFailure(ctx, tx, pollID, code)
		}
		if err != nil {
			return err
		}
		v := &model.Vote{
			PollID:          pollID,
			ContestantID:    contestant.ID,
			NumberOfVotes:   1,
			AdmissionCodeID: &ac.ID,
			CreatedAt:       u.nowFn(),
		}
		if err := u.votes.Create(ctx, tx, v); err != nil {
			return err
		}
		vote = v
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCodeNotFound):
			metrics.IncCodeSpend("not_found")
		case errors.Is(err, domain.ErrCodeAlreadyUsed):
			metrics.IncCodeSpend("already_used")
		case errors.Is(err, domain.ErrVoteCapReached):
			metrics.IncCodeSpend("cap_reached")
		}
		return nil, err
	}

	metrics.IncCodeSpend("used")
	metrics.AddVotes(string(poll.Type), 1)
	logging.With(logging.WithPollID(ctx, pollID), u.log).Info().Int64("contestant_id", contestant.ID).Msg("code vote recorded")
	u.signal.fire(pollID)
	return vote, nil
}

// classifySpendFailure explains why Consume matched no row.
func (u *voteUC) classifySpendFailure(ctx context.Context, tx repository.Tx, pollID int64, code string) error {
	ac, err := u.codes.FindByCode(ctx, tx, pollID, code)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrCodeNotFound
	}
	if err != nil {
		return err
	}
	if ac.Used {
		return domain.ErrCodeAlreadyUsed
	}
	return domain.ErrVoteCapReached
}
