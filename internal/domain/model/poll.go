package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"votelab/internal/domain"
)

type PollType string

const (
	PollTypeCreatorPay PollType = "creator-pay" // creator pays setup fee; votes gated by admission codes
	PollTypeVotersPay  PollType = "voters-pay"  // every vote is paid for by the voter
)

func (t PollType) Valid() bool {
	return t == PollTypeCreatorPay || t == PollTypeVotersPay
}

// Poll is the unit voters choose from. Fees are decimals in the major currency unit (e.g. GHS).
type Poll struct {
	ID             int64
	Title          string
	Description    string
	Type           PollType
	VotingFee      decimal.Decimal // required for voters-pay
	SetupFee       decimal.Decimal // creator-pay activation price
	ExpectedVoters int             // required for creator-pay; caps admission codes
	Active         bool
	StartTime      time.Time
	EndTime        time.Time
	CreatedAt      time.Time
}

// NewPoll validates the type-dependent requirements and constructs an inactive poll.
// Voters-pay polls need no activation payment, so they start active.
func NewPoll(title string, typ PollType, votingFee, setupFee decimal.Decimal, expectedVoters int, start, end time.Time) (*Poll, error) {
	if title == "" || !typ.Valid() || !end.After(start) {
		return nil, domain.ErrInvalidArgument
	}
	switch typ {
	case PollTypeVotersPay:
		if !votingFee.IsPositive() {
			return nil, domain.ErrInvalidArgument
		}
	case PollTypeCreatorPay:
		if expectedVoters <= 0 || setupFee.IsNegative() {
			return nil, domain.ErrInvalidArgument
		}
	}
	return &Poll{
		Title:          title,
		Type:           typ,
		VotingFee:      votingFee,
		SetupFee:       setupFee,
		ExpectedVoters: expectedVoters,
		Active:         typ == PollTypeVotersPay,
		StartTime:      start,
		EndTime:        end,
		CreatedAt:      time.Now(),
	}, nil
}

// OpenAt reports whether the poll accepts votes at t: active and t in [start, end).
func (p *Poll) OpenAt(t time.Time) bool {
	if p == nil || !p.Active {
		return false
	}
	return !t.Before(p.StartTime) && t.Before(p.EndTime)
}

func (p *Poll) IsCreatorPay() bool { return p != nil && p.Type == PollTypeCreatorPay }
func (p *Poll) IsVotersPay() bool  { return p != nil && p.Type == PollTypeVotersPay }

// MaxVotesPerPayment bounds one Vote row; number_of_votes is a 32-bit column.
const MaxVotesPerPayment = math.MaxInt32

// VotesFor returns floor(amount / voting_fee). A result below one is an error:
// partial votes are never rounded up. Above MaxVotesPerPayment it is domain.ErrTooManyVotes.
func (p *Poll) VotesFor(amount decimal.Decimal) (int, error) {
	if !p.IsVotersPay() || !p.VotingFee.IsPositive() {
		return 0, domain.ErrPollTypeMismatch
	}
	if amount.IsNegative() {
		return 0, domain.ErrInvalidArgument
	}
	q, _ := amount.QuoRem(p.VotingFee, 0)
	if q.LessThan(decimal.NewFromInt(1)) {
		return 0, domain.ErrAmountBelowFee
	}
	if q.GreaterThan(decimal.NewFromInt(MaxVotesPerPayment)) {
		return 0, domain.ErrTooManyVotes
	}
	return int(q.IntPart()), nil
}

// PriceFor returns the amount due for n votes.
func (p *Poll) PriceFor(n int) decimal.Decimal {
	return p.VotingFee.Mul(decimal.NewFromInt(int64(n)))
}
