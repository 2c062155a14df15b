//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/adapter"
	"votelab/internal/domain/ports/repository"
	"votelab/internal/infra/i18n"
)

// =============================
// Repositories
// =============================

// ---- Mock catalog + poll repository ----

// MockCatalogRepo keeps polls and contestants in memory and serves both the read-only
// catalog port and the transactional poll port.
type MockCatalogRepo struct {
	mu          sync.Mutex
	polls       map[int64]*model.Poll
	contestants []*model.Contestant

	ActivePollsFunc func(ctx context.Context, now time.Time) ([]*model.Poll, error)
	FindByIDFunc    func(ctx context.Context, tx repository.Tx, pollID int64) (*model.Poll, error)
}

var (
	_ repository.CatalogRepository = (*MockCatalogRepo)(nil)
	_ repository.PollRepository    = (*MockCatalogRepo)(nil)
)

func NewMockCatalogRepo() *MockCatalogRepo {
	return &MockCatalogRepo{polls: map[int64]*model.Poll{}}
}

func (m *MockCatalogRepo) AddPoll(p *model.Poll) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.polls[p.ID] = &cp
}

func (m *MockCatalogRepo) AddContestant(c *model.Contestant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	if cp.NomineeCode == "" {
		cp.NomineeCode = model.NomineeCode(cp.Name, cp.ID)
	}
	m.contestants = append(m.contestants, &cp)
}

func (m *MockCatalogRepo) SetActive(pollID int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.polls[pollID]; ok {
		p.Active = active
	}
}

func (m *MockCatalogRepo) ActivePolls(ctx context.Context, now time.Time) ([]*model.Poll, error) {
	if m.ActivePollsFunc != nil {
		return m.ActivePollsFunc(ctx, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Poll
	for _, p := range m.polls {
		if p.OpenAt(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockCatalogRepo) Poll(ctx context.Context, pollID int64) (*model.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[pollID]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockCatalogRepo) Categories(ctx context.Context, pollID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, c := range m.contestants {
		if c.PollID == pollID && !seen[c.Category] {
			seen[c.Category] = true
			out = append(out, c.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockCatalogRepo) Contestants(ctx context.Context, pollID int64, category string) ([]*model.Contestant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Contestant
	for _, c := range m.contestants {
		if c.PollID == pollID && c.Category == category {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockCatalogRepo) Contestant(ctx context.Context, pollID, contestantID int64) (*model.Contestant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contestants {
		if c.PollID == pollID && c.ID == contestantID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrContestantNotFound
}

func (m *MockCatalogRepo) ContestantByNomineeCode(ctx context.Context, pollID int64, code string) (*model.Contestant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contestants {
		if c.PollID == pollID && c.NomineeCode == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrContestantNotFound
}

func (m *MockCatalogRepo) FindByID(ctx context.Context, tx repository.Tx, pollID int64) (*model.Poll, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, pollID)
	}
	return m.Poll(ctx, pollID)
}

func (m *MockCatalogRepo) Activate(ctx context.Context, tx repository.Tx, pollID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[pollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	p.Active = true
	return nil
}

func (m *MockCatalogRepo) Save(ctx context.Context, tx repository.Tx, p *model.Poll) error {
	m.AddPoll(p)
	return nil
}

func (m *MockCatalogRepo) SaveContestant(ctx context.Context, tx repository.Tx, c *model.Contestant) error {
	m.AddContestant(c)
	return nil
}

// ---- Mock TransactionRepository ----

type MockTransactionRepo struct {
	mu     sync.Mutex
	byRef  map[string]*model.Transaction
	nextID int64

	FindByReferenceFunc func(ctx context.Context, tx repository.Tx, reference string) (*model.Transaction, error)
	CreatePendingFunc   func(ctx context.Context, tx repository.Tx, t *model.Transaction) error
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{byRef: map[string]*model.Transaction{}}
}

func (m *MockTransactionRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Transaction, error) {
	if m.FindByReferenceFunc != nil {
		return m.FindByReferenceFunc(ctx, tx, reference)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byRef[reference]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTransactionRepo) CreatePending(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if m.CreatePendingFunc != nil {
		return m.CreatePendingFunc(ctx, tx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRef[t.PaymentReference]; ok {
		return domain.ErrAlreadyExists
	}
	m.nextID++
	t.ID = m.nextID
	cp := *t
	cp.Success = false
	m.byRef[t.PaymentReference] = &cp
	return nil
}

// Settle mirrors the conditional upsert: only the caller that flips success wins.
func (m *MockTransactionRepo) Settle(ctx context.Context, tx repository.Tx, t *model.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if existing, ok := m.byRef[t.PaymentReference]; ok {
		if existing.Success {
			return false, nil
		}
		existing.Success = true
		existing.Amount = t.Amount
		existing.SettledAt = &now
		t.ID = existing.ID
		t.Success = true
		return true, nil
	}
	m.nextID++
	t.ID = m.nextID
	t.Success = true
	t.SettledAt = &now
	cp := *t
	m.byRef[t.PaymentReference] = &cp
	return true, nil
}

func (m *MockTransactionRepo) LatestActivation(ctx context.Context, tx repository.Tx, pollID int64) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *model.Transaction
	for _, t := range m.byRef {
		if t.PollID != pollID || t.Type != model.TransactionTypePollActivation {
			continue
		}
		if best == nil || (t.Success && !best.Success) || (t.Success == best.Success && t.ID > best.ID) {
			best = t
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (m *MockTransactionRepo) ListPending(ctx context.Context, tx repository.Tx, notBefore, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for _, t := range m.byRef {
		if !t.Success && !t.CreatedAt.Before(notBefore) && t.CreatedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockTransactionRepo) Successful() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.byRef {
		if t.Success {
			n++
		}
	}
	return n
}

// ---- Mock VoteRepository ----

type MockVoteRepo struct {
	mu     sync.Mutex
	Votes  []model.Vote
	nextID int64

	CreateFunc func(ctx context.Context, tx repository.Tx, v *model.Vote) error
	TallyFunc  func(ctx context.Context, tx repository.Tx, pollID int64) ([]model.ContestantTally, error)
}

var _ repository.VoteRepository = (*MockVoteRepo)(nil)

func NewMockVoteRepo() *MockVoteRepo { return &MockVoteRepo{} }

func (m *MockVoteRepo) Create(ctx context.Context, tx repository.Tx, v *model.Vote) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, v)
	}
	if v.NumberOfVotes < 1 {
		return domain.ErrInvalidVoteCount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	v.ID = m.nextID
	m.Votes = append(m.Votes, *v)
	return nil
}

func (m *MockVoteRepo) Tally(ctx context.Context, tx repository.Tx, pollID int64) ([]model.ContestantTally, error) {
	if m.TallyFunc != nil {
		return m.TallyFunc(ctx, tx, pollID)
	}
	return nil, nil
}

func (m *MockVoteRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Votes)
}

// ---- Mock AdmissionCodeRepository ----

type MockAdmissionCodeRepo struct {
	mu     sync.Mutex
	codes  map[string]*model.AdmissionCode // key: pollID/code
	nextID int64

	SaveFunc func(ctx context.Context, tx repository.Tx, code *model.AdmissionCode) error
}

var _ repository.AdmissionCodeRepository = (*MockAdmissionCodeRepo)(nil)

func NewMockAdmissionCodeRepo() *MockAdmissionCodeRepo {
	return &MockAdmissionCodeRepo{codes: map[string]*model.AdmissionCode{}}
}

func codeKey(pollID int64, code string) string {
	return strconv.FormatInt(pollID, 10) + "/" + code
}

func (m *MockAdmissionCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.AdmissionCode) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == code.Code {
			return domain.ErrAlreadyExists
		}
	}
	m.nextID++
	code.ID = m.nextID
	cp := *code
	m.codes[codeKey(code.PollID, code.Code)] = &cp
	return nil
}

func (m *MockAdmissionCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, pollID int64, code string) (*model.AdmissionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeKey(pollID, code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockAdmissionCodeRepo) Consume(ctx context.Context, tx repository.Tx, pollID int64, code string, maxUsed int) (*model.AdmissionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeKey(pollID, code)]
	if !ok || c.Used || m.usedLocked(pollID) >= maxUsed {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	c.Used = true
	c.UsedAt = &now
	cp := *c
	return &cp, nil
}

func (m *MockAdmissionCodeRepo) Counts(ctx context.Context, tx repository.Tx, pollID int64) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issued := 0
	for _, c := range m.codes {
		if c.PollID == pollID {
			issued++
		}
	}
	return issued, m.usedLocked(pollID), nil
}

func (m *MockAdmissionCodeRepo) usedLocked(pollID int64) int {
	n := 0
	for _, c := range m.codes {
		if c.PollID == pollID && c.Used {
			n++
		}
	}
	return n
}

// ---- Mock TxManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- Mock sessions, locks, rate limit ----

type MockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	LastTTL  time.Duration

	GetFunc func(ctx context.Context, key string) (*model.Session, error)
	PutFunc func(ctx context.Context, key string, s *model.Session, ttl time.Duration) error
}

var _ repository.SessionRepository = (*MockSessionRepo)(nil)

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{sessions: map[string]model.Session{}}
}

func (m *MockSessionRepo) Get(ctx context.Context, key string) (*model.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MockSessionRepo) Put(ctx context.Context, key string, s *model.Session, ttl time.Duration) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, s, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = *s
	m.LastTTL = ttl
	return nil
}

func (m *MockSessionRepo) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}

// Expire drops a session as if its TTL elapsed.
func (m *MockSessionRepo) Expire(key string) { _ = m.Delete(context.Background(), key) }

func (m *MockSessionRepo) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[key]
	return ok
}

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
	Err  error // returned by TryLock when set, as a store outage would be
}

var _ repository.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return "", l.Err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrSessionBusy
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// Hold simulates another in-flight request for key.
func (l *MockLocker) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "other"
}

type MockRateLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var _ repository.RateLimiter = (*MockRateLimiter)(nil)

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}

// =============================
// Adapters
// =============================

type MockPaymentGateway struct {
	mu          sync.Mutex
	Requests    []adapter.PaymentRequest
	VerifyCalls int

	CreatePaymentLinkFunc func(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentLink, error)
	VerifyFunc            func(ctx context.Context, reference string) (adapter.PaymentVerification, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreatePaymentLink(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentLink, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.CreatePaymentLinkFunc != nil {
		return m.CreatePaymentLinkFunc(ctx, req)
	}
	return adapter.PaymentLink{
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (m *MockPaymentGateway) Verify(ctx context.Context, reference string) (adapter.PaymentVerification, error) {
	m.mu.Lock()
	m.VerifyCalls++
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, reference)
	}
	return adapter.PaymentVerification{Reference: reference, Status: adapter.PaymentStatusPending}, nil
}

type MockNotifier struct {
	mu      sync.Mutex
	PollIDs []int64
	Err     error
}

var _ adapter.ChangeNotifier = (*MockNotifier)(nil)

func (m *MockNotifier) NotifyPollChanged(ctx context.Context, pollID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PollIDs = append(m.PollIDs, pollID)
	return m.Err
}

func (m *MockNotifier) Calls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.PollIDs...)
}

// =============================
// Helpers
// =============================

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func newTestTranslator() *i18n.Translator {
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		panic(err)
	}
	return tr
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func votersPayPoll(id int64, fee string) *model.Poll {
	now := time.Now()
	return &model.Poll{
		ID:        id,
		Title:     "Best Artiste",
		Type:      model.PollTypeVotersPay,
		VotingFee: d(fee),
		Active:    true,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	}
}

func creatorPayPoll(id int64, expectedVoters int) *model.Poll {
	now := time.Now()
	return &model.Poll{
		ID:             id,
		Title:          "SRC Elections",
		Type:           model.PollTypeCreatorPay,
		SetupFee:       d("100"),
		ExpectedVoters: expectedVoters,
		Active:         true,
		StartTime:      now.Add(-time.Hour),
		EndTime:        now.Add(time.Hour),
	}
}
