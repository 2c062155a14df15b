// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
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

// Reconciliation sources, used for logs and metrics.
const (
	SourceVerify     = "verify"
	SourceWebhook    = "webhook"
	SourceReconciler = "reconciler"
)

type ReconcileOutcome string

const (
	OutcomeSettled            ReconcileOutcome = "settled"
	OutcomeAlreadyProcessed   ReconcileOutcome = "already_processed"
	OutcomeVerificationFailed ReconcileOutcome = "verification_failed"
)

// ReconcileResult describes what a reconciliation did. Kind, PollID and Votes are set once the
// reference has been parsed.
type ReconcileResult struct {
	Outcome       ReconcileOutcome
	Reference     string
	Kind          model.ReferenceKind
	PollID        int64
	Votes         int
	TransactionID int64
}

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

type LedgerUseCase interface {
	// Reconcile settles a gateway-reported payment. It is safe to call any number of times, from
	// any number of goroutines, for the same reference.
	Reconcile(ctx context.Context, source, reference string, amount decimal.Decimal, status adapter.PaymentStatus) (*ReconcileResult, error)
	// Verify asks the gateway for the reference's status and reconciles the answer.
	Verify(ctx context.Context, source, reference string) (*ReconcileResult, error)
	// ReconcilePending verifies unsuccessful transactions created in [now-maxAge, now-minAge).
	ReconcilePending(ctx context.Context, minAge, maxAge time.Duration, limit int) (settled int, err error)
}

type ledgerUC struct {
	tm      repository.TransactionManager
	txs     repository.TransactionRepository
	polls   repository.PollRepository
	catalog repository.CatalogRepository
	votes   repository.VoteRepository
	gateway adapter.PaymentGateway
	retry   RetryPolicy
	signal  *changeSignal
	log     *zerolog.Logger
	nowFn   func() time.Time
}

func NewLedgerUseCase(
	tm repository.TransactionManager,
	txs repository.TransactionRepository,
	polls repository.PollRepository,
	catalog repository.CatalogRepository,
	votes repository.VoteRepository,
	gateway adapter.PaymentGateway,
	notifier adapter.ChangeNotifier,
	async Dispatcher,
	retry RetryPolicy,
	logger *zerolog.Logger,
) *ledgerUC {
	l := logger.With().Str("component", "ledger").Logger()
	return &ledgerUC{
		tm:      tm,
		txs:     txs,
		polls:   polls,
		catalog: catalog,
		votes:   votes,
		gateway: gateway,
		retry:   retry,
		signal:  &changeSignal{notifier: notifier, async: async, log: &l},
		log:     &l,
		nowFn:   time.Now,
	}
}

func (u *ledgerUC) Reconcile(ctx context.Context, source, reference string, amount decimal.Decimal, status adapter.PaymentStatus) (res *ReconcileResult, err error) {
	defer logging.TraceDuration(u.log, "LedgerUC.Reconcile")()
	ctx = logging.WithReference(ctx, reference)
	log := logging.With(ctx, u.log)

	defer func() {
		switch {
		case err != nil && (errors.Is(err, domain.ErrInvalidReference) || errors.Is(err, domain.ErrUnpayableVote) ||
			errors.Is(err, domain.ErrAmountBelowFee) || errors.Is(err, domain.ErrTooManyVotes) ||
			errors.Is(err, domain.ErrPollTypeMismatch) ||
			errors.Is(err, domain.ErrContestantNotFound) || errors.Is(err, domain.ErrPollNotFound)):
			metrics.IncReconcile(source, "rejected")
			log.Warn().Err(err).Str("source", source).Msg("payment rejected")
		case err != nil:
			metrics.IncReconcile(source, "error")
		default:
			metrics.IncReconcile(source, string(res.Outcome))
		}
	}()

	res = &ReconcileResult{Reference: reference}

	existing, err := u.txs.FindByReference(ctx, repository.NoTX, reference)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Success {
		res.Outcome = OutcomeAlreadyProcessed
		res.TransactionID = existing.ID
		return res, nil
	}

	if status != adapter.PaymentStatusSuccess {
		res.Outcome = OutcomeVerificationFailed
		log.Info().Str("status", string(status)).Msg("payment not successful")
		return res, nil
	}

	ref, err := model.ParseReference(reference)
	if err != nil {
		return nil, err
	}
	res.Kind = ref.Kind
	res.PollID = ref.PollID

	t := &model.Transaction{
		PaymentReference: reference,
		Type:             ref.TransactionType(),
		PollID:           ref.PollID,
		Amount:           amount,
	}
	if existing != nil {
		t.PayerContact = existing.PayerContact
	}

	var settled bool
	var pollType model.PollType
	switch ref.Kind {
	case model.ReferenceActivate:
		settled, pollType, err = u.settleActivation(ctx, t, log)
	case model.ReferenceVote:
		t.ContestantID = &ref.ContestantID
		settled, pollType, err = u.settleVote(ctx, t, ref, res)
	default:
		// creator-pay votes are code-gated and never paid for
		return nil, fmt.Errorf("%w: %s", domain.ErrUnpayableVote, ref.Kind)
	}
	if err != nil {
		return nil, err
	}
	if !settled {
		res.Outcome = OutcomeAlreadyProcessed
		return res, nil
	}

	res.Outcome = OutcomeSettled
	res.TransactionID = t.ID
	amt, _ := amount.Float64()
	metrics.AddRevenue(string(t.Type), amt)
	if res.Votes > 0 {
		metrics.AddVotes(string(pollType), res.Votes)
	}
	log.Info().Str("source", source).Str("kind", string(ref.Kind)).Int("votes", res.Votes).Msg("payment settled")

	u.signal.fire(ref.PollID)
	return res, nil
}

// settleVote writes the successful transaction and its single Vote in one database transaction.
func (u *ledgerUC) settleVote(ctx context.Context, t *model.Transaction, ref model.PaymentReference, res *ReconcileResult) (bool, model.PollType, error) {
	if _, err := u.catalog.Contestant(ctx, ref.PollID, ref.ContestantID); err != nil {
		return false, "", err
	}

	var settled bool
	var pollType model.PollType
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		poll, err := u.polls.FindByID(ctx, tx, ref.PollID)
		if err != nil {
			return err
		}
		pollType = poll.Type
		n, err := poll.VotesFor(t.Amount)
		if err != nil {
			return err
		}

		ok, err := u.txs.Settle(ctx, tx, t)
		if err != nil || !ok {
			return err
		}
		v := &model.Vote{
			PollID:        ref.PollID,
			ContestantID:  ref.ContestantID,
			NumberOfVotes: n,
			TransactionID: &t.ID,
		}
		if err := u.votes.Create(ctx, tx, v); err != nil {
			return err
		}
		settled = true
		res.Votes = n
		return nil
	})
	return settled, pollType, err
}

// settleActivation writes the successful transaction and flips the poll active together.
func (u *ledgerUC) settleActivation(ctx context.Context, t *model.Transaction, log *zerolog.Logger) (bool, model.PollType, error) {
	var settled bool
	var pollType model.PollType
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		poll, err := u.polls.FindByID(ctx, tx, t.PollID)
		if err != nil {
			return err
		}
		pollType = poll.Type
		if !poll.IsCreatorPay() {
			return domain.ErrPollTypeMismatch
		}
		if t.Amount.LessThan(poll.SetupFee) {
			log.Warn().Str("paid", t.Amount.String()).Str("setup_fee", poll.SetupFee.String()).Msg("activation paid below setup fee")
		}

		ok, err := u.txs.Settle(ctx, tx, t)
		if err != nil || !ok {
			return err
		}
		if err := u.polls.Activate(ctx, tx, t.PollID); err != nil {
			return err
		}
		settled = true
		return nil
	})
	return settled, pollType, err
}

func (u *ledgerUC) Verify(ctx context.Context, source, reference string) (*ReconcileResult, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.Verify")()

	// malformed references never reach the gateway
	ref, err := model.ParseReference(reference)
	if err != nil {
		metrics.IncReconcile(source, "rejected")
		return nil, err
	}
	if ref.Kind == model.ReferenceCreatorVote {
		metrics.IncReconcile(source, "rejected")
		return nil, domain.ErrUnpayableVote
	}

	existing, err := u.txs.FindByReference(ctx, repository.NoTX, reference)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Success {
		metrics.IncReconcile(source, string(OutcomeAlreadyProcessed))
		return &ReconcileResult{
			Outcome:       OutcomeAlreadyProcessed,
			Reference:     reference,
			Kind:          ref.Kind,
			PollID:        ref.PollID,
			TransactionID: existing.ID,
		}, nil
	}

	var v adapter.PaymentVerification
	err = withRetry(ctx, u.retry, func(ctx context.Context) error {
		var err error
		v, err = u.gateway.Verify(ctx, reference)
		return err
	})
	if err != nil {
		metrics.IncReconcile(source, "error")
		return nil, err
	}
	return u.Reconcile(ctx, source, reference, v.AmountPaid, v.Status)
}

func (u *ledgerUC) ReconcilePending(ctx context.Context, minAge, maxAge time.Duration, limit int) (int, error) {
	now := u.nowFn()
	pending, err := u.txs.ListPending(ctx, repository.NoTX, now.Add(-maxAge), now.Add(-minAge), limit)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		res, err := u.Verify(ctx, SourceReconciler, p.PaymentReference)
		if err != nil {
			u.log.Warn().Err(err).Str("reference", p.PaymentReference).Msg("pending reconcile failed")
			continue
		}
		if res.Outcome == OutcomeSettled {
			settled++
		}
	}
	return settled, nil
}
