// File: internal/usecase/admin_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/adapter"
	"votelab/internal/domain/ports/repository"
	"votelab/internal/infra/logging"
)

// MaxCodesPerRequest caps one code generation call.
const MaxCodesPerRequest = 1000

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

type AdminUseCase interface {
	// ActivationLink returns the payment link for a creator-pay poll's setup fee, reusing a
	// pending activation when its amount still matches.
	ActivationLink(ctx context.Context, pollID int64, payerEmail string) (*PaymentIntent, error)
	// GenerateCodes issues count new admission codes without exceeding expected_voters in total.
	GenerateCodes(ctx context.Context, pollID int64, count int) ([]string, error)
}

type adminUC struct {
	tm      repository.TransactionManager
	polls   repository.PollRepository
	codes   repository.AdmissionCodeRepository
	txs     repository.TransactionRepository
	gateway adapter.PaymentGateway
	retry   RetryPolicy
	log     *zerolog.Logger
	genCode func() (string, error)
}

func NewAdminUseCase(
	tm repository.TransactionManager,
	polls repository.PollRepository,
	codes repository.AdmissionCodeRepository,
	txs repository.TransactionRepository,
	gateway adapter.PaymentGateway,
	retry RetryPolicy,
	logger *zerolog.Logger,
) *adminUC {
	l := logger.With().Str("component", "admin").Logger()
	return &adminUC{
		tm:      tm,
		polls:   polls,
		codes:   codes,
		txs:     txs,
		gateway: gateway,
		retry:   retry,
		log:     &l,
		genCode: generateAdmissionCode,
	}
}

func (u *adminUC) ActivationLink(ctx context.Context, pollID int64, payerEmail string) (*PaymentIntent, error) {
	defer logging.TraceDuration(u.log, "AdminUC.ActivationLink")()

	if payerEmail == "" {
		return nil, domain.ErrInvalidArgument
	}
	poll, err := u.polls.FindByID(ctx, repository.NoTX, pollID)
	if err != nil {
		return nil, err
	}
	if !poll.IsCreatorPay() || !poll.SetupFee.IsPositive() {
		return nil, domain.ErrActivationNotNeeded
	}
	if poll.Active {
		return nil, domain.ErrAlreadyActivated
	}

	latest, err := u.txs.LatestActivation(ctx, repository.NoTX, pollID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if latest != nil {
		if latest.Success {
			return nil, domain.ErrAlreadyActivated
		}
		if latest.AuthorizationURL != "" && latest.Amount.Equal(poll.SetupFee) {
			return &PaymentIntent{
				Reference:        latest.PaymentReference,
				AuthorizationURL: latest.AuthorizationURL,
				Amount:           latest.Amount,
				Reused:           true,
			}, nil
		}
	}

	ref := model.NewActivationReference(pollID).String()
	ctx = logging.WithReference(ctx, ref)
	var link adapter.PaymentLink
	err = withRetry(ctx, u.retry, func(ctx context.Context) error {
		var err error
		link, err = u.gateway.CreatePaymentLink(ctx, adapter.PaymentRequest{
			Amount:       poll.SetupFee,
			Reference:    ref,
			PayerContact: payerEmail,
			Metadata:     map[string]string{"poll": poll.Title, "purpose": "activation"},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	pending := &model.Transaction{
		PaymentReference: ref,
		Type:             model.TransactionTypePollActivation,
		PollID:           pollID,
		Amount:           poll.SetupFee,
		PayerContact:     payerEmail,
		AuthorizationURL: link.AuthorizationURL,
		CreatedAt:        time.Now(),
	}
	if err := u.txs.CreatePending(ctx, repository.NoTX, pending); err != nil {
		logging.With(ctx, u.log).Error().Err(err).Msg("failed to record pending activation")
	}
	return &PaymentIntent{Reference: ref, AuthorizationURL: link.AuthorizationURL, Amount: poll.SetupFee}, nil
}

func (u *adminUC) GenerateCodes(ctx context.Context, pollID int64, count int) ([]string, error) {
	defer logging.TraceDuration(u.log, "AdminUC.GenerateCodes")()

	if count < 1 || count > MaxCodesPerRequest {
		return nil, domain.ErrInvalidArgument
	}

	var out []string
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		out = out[:0]
		poll, err := u.polls.FindByID(ctx, tx, pollID)
		if err != nil {
			return err
		}
		if !poll.IsCreatorPay() {
			return domain.ErrPollTypeMismatch
		}
		issued, _, err := u.codes.Counts(ctx, tx, pollID)
		if err != nil {
			return err
		}
		if issued+count > poll.ExpectedVoters {
			return domain.ErrCodeQuotaExceeded
		}

		now := time.Now()
		for i := 0; i < count; i++ {
			code, err := u.saveFreshCode(ctx, tx, pollID, now)
			if err != nil {
				return err
			}
			out = append(out, code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Int64("poll_id", pollID).Int("count", len(out)).Msg("admission codes issued")
	return out, nil
}

// saveFreshCode retries a few times on the (rare) collision with an existing code.
func (u *adminUC) saveFreshCode(ctx context.Context, tx repository.Tx, pollID int64, now time.Time) (string, error) {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		code, err := u.genCode()
		if err != nil {
			return "", err
		}
		err = u.codes.Save(ctx, tx, &model.AdmissionCode{PollID: pollID, Code: code, CreatedAt: now})
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", domain.ErrAlreadyExists
}
