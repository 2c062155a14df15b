// File: internal/usecase/ussd_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
	"votelab/internal/infra/i18n"
	"votelab/internal/infra/logging"
	"votelab/internal/infra/metrics"
)

const (
	minUSSDVotes = 1
	maxUSSDVotes = 99
)

// USSDRequest is one line of caller input. Text is the aggregator's cumulative "1*2*3" string;
// only its last segment is the caller's new input, and an empty Text means a fresh dial.
type USSDRequest struct {
	Phone       string // E.164
	ServiceCode string
	Text        string
}

type USSDOptions struct {
	SessionTTL  time.Duration
	LockTTL     time.Duration
	RateLimit   int // steps per window per phone; zero disables
	RateWindow  time.Duration
	ServiceCode string // e.g. "*920*55"; a further "*<pollID>" in the dial string scopes the menu
	PayerDomain string
	Currency    string
	Dev         bool
}

// Compile-time check
var _ USSDUseCase = (*ussdUC)(nil)

type USSDUseCase interface {
	Handle(ctx context.Context, req USSDRequest) model.StepResult
}

type ussdUC struct {
	sessions repository.SessionRepository
	locker   repository.Locker
	limiter  repository.RateLimiter
	catalog  repository.CatalogRepository
	votes    VoteUseCase
	tr       *i18n.Translator
	opts     USSDOptions
	log      *zerolog.Logger
	nowFn    func() time.Time
}

func NewUSSDUseCase(
	sessions repository.SessionRepository,
	locker repository.Locker,
	limiter repository.RateLimiter,
	catalog repository.CatalogRepository,
	votes VoteUseCase,
	tr *i18n.Translator,
	opts USSDOptions,
	logger *zerolog.Logger,
) *ussdUC {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 5 * time.Minute
	}
	if opts.LockTTL <= 0 {
		// must outlast a paid-vote step: three gateway attempts plus backoff
		opts.LockTTL = 45 * time.Second
	}
	if opts.PayerDomain == "" {
		opts.PayerDomain = "votelab.com"
	}
	l := logger.With().Str("component", "ussd").Logger()
	return &ussdUC{
		sessions: sessions,
		locker:   locker,
		limiter:  limiter,
		catalog:  catalog,
		votes:    votes,
		tr:       tr,
		opts:     opts,
		log:      &l,
		nowFn:    time.Now,
	}
}

func (u *ussdUC) Handle(ctx context.Context, req USSDRequest) model.StepResult {
	if strings.TrimSpace(req.Phone) == "" {
		return model.Terminal(u.tr.T("ussd.phone_required"))
	}
	ctx = logging.WithPhone(ctx, logging.Redact(req.Phone, u.opts.Dev))
	log := logging.With(ctx, u.log)

	if u.limiter != nil && u.opts.RateLimit > 0 {
		ok, err := u.limiter.Allow(ctx, rateKey(req.Phone), u.opts.RateLimit, u.opts.RateWindow)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			metrics.IncUSSDStep("rate_limited", "terminal")
			return model.Terminal(u.tr.T("ussd.rate_limited"))
		}
	}

	lk := lockKey(req.Phone)
	token, err := u.locker.TryLock(ctx, lk, u.opts.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrSessionBusy) {
			return model.Failure(model.ErrorKindBusy, u.tr.T("ussd.busy"))
		}
		log.Error().Err(err).Msg("session lock failed")
		return model.Failure(model.ErrorKindStore, u.tr.T("ussd.error"))
	}
	defer func() {
		if err := u.locker.Unlock(context.WithoutCancel(ctx), lk, token); err != nil {
			log.Warn().Err(err).Msg("session unlock failed")
		}
	}()

	state, res := u.step(ctx, req, log)
	metrics.IncUSSDStep(string(state), resultLabel(res))
	return res
}

func lockKey(phone string) string { return "ussd_lock:" + phone }

func rateKey(phone string) string { return "rate_limit:ussd:" + phone }

func resultLabel(r model.StepResult) string {
	switch r.Kind {
	case model.ResultContinue:
		return "continue"
	case model.ResultTerminal:
		return "terminal"
	default:
		return "error"
	}
}

// step runs one transition and persists or clears the session according to the result.
func (u *ussdUC) step(ctx context.Context, req USSDRequest, log *zerolog.Logger) (model.SessionState, model.StepResult) {
	if strings.TrimSpace(req.Text) == "" {
		if err := u.sessions.Delete(ctx, req.Phone); err != nil {
			log.Warn().Err(err).Msg("failed to clear previous session")
		}
		sess := &model.Session{State: model.StateInitial, ScopePollID: u.scopePollID(req.ServiceCode)}
		return model.StateInitial, u.commit(ctx, req.Phone, sess, u.listPolls(ctx, sess), log)
	}

	sess, err := u.sessions.Get(ctx, req.Phone)
	if err != nil {
		log.Error().Err(err).Msg("session unreadable")
		_ = u.sessions.Delete(ctx, req.Phone)
		return "none", model.Failure(model.ErrorKindStore, u.tr.T("ussd.session_expired"))
	}
	if sess == nil {
		return "none", model.Terminal(u.tr.T("ussd.session_expired"))
	}

	input := lastSegment(req.Text)
	from := sess.State
	var res model.StepResult
	switch sess.State {
	case model.StateInitial:
		res = u.onInitial(ctx, sess, input)
	case model.StatePollSelected:
		res = u.onPollSelected(ctx, sess, input)
	case model.StateCategorySelected:
		res = u.onCategorySelected(ctx, sess, input)
	case model.StateContestantSelected:
		res = u.onContestantSelected(ctx, req.Phone, sess, input, log)
	case model.StateVoterCodeInput:
		res = u.onVoterCodeInput(ctx, sess, input, log)
	default:
		res = model.Terminal(u.tr.T("ussd.session_expired"))
	}
	return from, u.commit(ctx, req.Phone, sess, res, log)
}

// commit keeps the session for Continue results and drops it otherwise.
func (u *ussdUC) commit(ctx context.Context, phone string, sess *model.Session, res model.StepResult, log *zerolog.Logger) model.StepResult {
	if res.Kind == model.ResultContinue {
		if err := u.sessions.Put(ctx, phone, sess, u.opts.SessionTTL); err != nil {
			log.Error().Err(err).Msg("failed to save session")
			return model.Failure(model.ErrorKindStore, u.tr.T("ussd.error"))
		}
		return res
	}
	if err := u.sessions.Delete(ctx, phone); err != nil {
		log.Warn().Err(err).Msg("failed to clear session")
	}
	return res
}

func (u *ussdUC) listPolls(ctx context.Context, sess *model.Session) model.StepResult {
	polls, err := u.activePolls(ctx, sess.ScopePollID)
	if err != nil {
		return model.Failure(model.ErrorKindCatalog, u.tr.T("ussd.error"))
	}
	if len(polls) == 0 {
		return model.Terminal(u.tr.T("ussd.no_polls"))
	}
	titles := make([]string, len(polls))
	for i, p := range polls {
		titles[i] = p.Title
	}
	return model.Continue(u.tr.T("ussd.welcome", menu(titles)))
}

func (u *ussdUC) activePolls(ctx context.Context, scope int64) ([]*model.Poll, error) {
	polls, err := u.catalog.ActivePolls(ctx, u.nowFn())
	if err != nil || scope == 0 {
		return polls, err
	}
	for _, p := range polls {
		if p.ID == scope {
			return []*model.Poll{p}, nil
		}
	}
	return nil, nil
}

func (u *ussdUC) onInitial(ctx context.Context, sess *model.Session, input string) model.StepResult {
	polls, err := u.activePolls(ctx, sess.ScopePollID)
	if err != nil {
		return model.Failure(model.ErrorKindCatalog, u.tr.T("ussd.error"))
	}
	idx, ok := pick(input, len(polls))
	if !ok {
		return model.Terminal(u.tr.T("ussd.invalid_input"))
	}
	poll := polls[idx]
	categories, err := u.catalog.Categories(ctx, poll.ID)
	if err != nil {
		return model.Failure(model.ErrorKindCatalog, u.tr.T("ussd.error"))
	}
	if len(categories) == 0 {
		return model.Terminal(u.tr.T("ussd.no_categories"))
	}
	sess.PollID = poll.ID
	sess.State = model.StatePollSelected
	return model.Continue(u.tr.T("ussd.select_category", menu(categories)))
}

func (u *ussdUC) onPollSelected(ctx context.Context, sess *model.Session, input string) model.StepResult {
	if sess.PollID == 0 {
		return model.Terminal(u.tr.T("ussd.session_expired"))
	}
	if _, res, ok := u.openPoll(ctx, sess.PollID); !ok {
		return res
	}
	categories, err := u.catalog.Categories(ctx, sess.PollID)
	if err != nil {
		return model.Failure(model.ErrorKindCatalog, u.tr.T("ussd.error"))
	}
	if len(categories) == 0 {
		return model.Terminal(u.tr.T("ussd.no_categories"))
	}
	idx, ok := pick(input, len(categories))
	if !ok {
		return model.Terminal(u.tr.T("ussd.invalid_input"))
	}
	category := categories[idx]
	contestants, err := u.catalog.Contestants(ctx, sess.PollID, category)
	if err != nil {
		return model.Failure(model.ErrorKindCatalog, u.tr.T("ussd.error"))
	}
	if len(contestants) == 0 {
		return model.Terminal(u.tr.T("ussd.no_contestants"))
	}
	sess.Category = category
	sess.State = model.StateCategorySelected
	return model.Continue(u.tr.T("ussd.select_contestant", menu(contestantNames(contestants))))
}

func (u *ussdUC) onCategorySelected(ctx context.Context, sess *model.Session, input string) model.StepResult {
	if sess.PollID == 0 || sess.Category == "" {
		return model.Terminal(u.tr.T("ussd.session_expired"))
	}
	poll, res, ok := u.openPoll(ctx, sess.PollID)
	if !ok {
		return res
	}
	contestants, err := u.catalog.Contestants(ctx, sess.PollID, sess.Category)
	if err != nil {
		return model.Failure(model.ErrorKindCatalog, u.tr.T("ussd.error"))
	}
	idx, ok := pick(input, len(contestants))
	if !ok {
		return model.Terminal(u.tr.T("ussd.invalid_input"))
	}
	c := contestants[idx]
	sess.ContestantID = c.ID
	if poll.IsCreatorPay() {
		// one code buys exactly one vote, so there is no count to ask for
		sess.VotesCount = 1
		sess.State = model.StateVoterCodeInput
		return model.Continue(u.tr.T("ussd.enter_code", c.Name))
	}
	sess.State = model.StateContestantSelected
	return model.Continue(u.tr.T("ussd.enter_votes", c.Name))
}

func (u *ussdUC) onContestantSelected(ctx context.Context, phone string, sess *model.Session, input string, log *zerolog.Logger) model.StepResult {
	if sess.PollID == 0 || sess.ContestantID == 0 {
		return model.Terminal(u.tr.T("ussd.session_expired"))
	}
	poll, res, ok := u.openPoll(ctx, sess.PollID)
	if !ok {
		return res
	}
	c, err := u.catalog.Contestant(ctx, sess.PollID, sess.ContestantID)
	if errors.Is(err, domain.ErrContestantNotFound) {
		return model.Terminal(u.tr.T("ussd.session_expired"))
	}
	if err != nil {
		return model.Failure(model.ErrorKindCatalog, u.tr.T("ussd.error"))
	}

	n, err := strconv.Atoi(strings.TrimSpace(input))
	if poll.IsCreatorPay() {
		if err != nil {
			return model.Terminal(u.tr.T("ussd.invalid_input"))
		}
		sess.VotesCount = 1
		sess.State = model.StateVoterCodeInput
		return model.Continue(u.tr.T("ussd.enter_code", c.Name))
	}
	if err != nil || n < minUSSDVotes || n > maxUSSDVotes {
		if sess.Retries == 0 {
			sess.Retries++
			return model.Continue(u.tr.T("ussd.enter_votes_retry", c.Name))
		}
		return model.Terminal(u.tr.T("ussd.invalid_votes"))
	}
	sess.VotesCount = n

	intent, err := u.votes.InitiatePaidVote(ctx, PaidVoteRequest{
		PollID:        sess.PollID,
		ContestantID:  sess.ContestantID,
		NumberOfVotes: n,
		PayerContact:  fmt.Sprintf("ussd_%s@%s", strings.TrimPrefix(phone, "+"), u.opts.PayerDomain),
	})
	switch {
	case err == nil:
		sess.State = model.StatePaymentPending
		return model.Terminal(u.tr.T("ussd.payment_link", u.opts.Currency, intent.Amount.StringFixed(2), n, c.Name, intent.AuthorizationURL))
	case errors.Is(err, domain.ErrGatewayUnavailable), errors.Is(err, domain.ErrGatewayRejected):
		return model.Terminal(u.tr.T("ussd.payment_unavailable"))
	case errors.Is(err, domain.ErrPollInactive):
		return model.Terminal(u.tr.T("ussd.poll_closed"))
	default:
		log.Error().Err(err).Msg("paid vote initiation failed")
		return model.Failure(model.ErrorKindLedger, u.tr.T("ussd.error"))
	}
}

func (u *ussdUC) onVoterCodeInput(ctx context.Context, sess *model.Session, input string, log *zerolog.Logger) model.StepResult {
	if sess.PollID == 0 || sess.ContestantID == 0 {
		return model.Terminal(u.tr.T("ussd.session_expired"))
	}
	if _, res, ok := u.openPoll(ctx, sess.PollID); !ok {
		return res
	}
	if strings.TrimSpace(input) == "" {
		return model.Terminal(u.tr.T("ussd.invalid_code"))
	}

	_, err := u.votes.CastCodeVote(ctx, sess.PollID, sess.ContestantID, "", input)
	switch {
	case err == nil:
		sess.State = model.StateVoteComplete
		return model.Terminal(u.tr.T("ussd.vote_recorded"))
	case errors.Is(err, domain.ErrCodeNotFound):
		return model.Terminal(u.tr.T("ussd.invalid_code"))
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		return model.Terminal(u.tr.T("ussd.code_used"))
	case errors.Is(err, domain.ErrVoteCapReached):
		return model.Terminal(u.tr.T("ussd.cap_reached"))
	case errors.Is(err, domain.ErrPollInactive):
		return model.Terminal(u.tr.T("ussd.poll_closed"))
	default:
		log.Error().Err(err).Msg("code vote failed")
		return model.Failure(model.ErrorKindLedger, u.tr.T("ussd.error"))
	}
}

// openPoll re-reads the poll on every step; a poll that closed mid-session fails closed.
func (u *ussdUC) openPoll(ctx context.Context, pollID int64) (*model.Poll, model.StepResult, bool) {
	poll, err := u.catalog.Poll(ctx, pollID)
	if errors.Is(err, domain.ErrPollNotFound) {
		return nil, model.Terminal(u.tr.T("ussd.poll_closed")), false
	}
	if err != nil {
		return nil, model.Failure(model.ErrorKindCatalog, u.tr.T("ussd.error")), false
	}
	if !poll.OpenAt(u.nowFn()) {
		return nil, model.Terminal(u.tr.T("ussd.poll_closed")), false
	}
	return poll, model.StepResult{}, true
}

// scopePollID extracts the poll id from a dial string such as "*920*55*12#".
func (u *ussdUC) scopePollID(serviceCode string) int64 {
	prefix := strings.Trim(u.opts.ServiceCode, "*#")
	code := strings.Trim(strings.TrimSpace(serviceCode), "*#")
	if prefix == "" || !strings.HasPrefix(code, prefix+"*") {
		return 0
	}
	rest := strings.TrimPrefix(code, prefix+"*")
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func lastSegment(text string) string {
	if i := strings.LastIndexByte(text, '*'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(text)
}

// pick parses a 1-indexed menu choice.
func pick(input string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}

func menu(items []string) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, it)
	}
	return b.String()
}

func contestantNames(cs []*model.Contestant) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
