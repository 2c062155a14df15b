package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"votelab/internal/domain"
)

// ReferenceKind is the type tag leading every payment reference.
type ReferenceKind string

const (
	ReferenceActivate    ReferenceKind = "activate"
	ReferenceVote        ReferenceKind = "vote"
	ReferenceCreatorVote ReferenceKind = "creator-vote"
)

// PaymentReference is the parsed form of "{kind}-{pollID}[-{contestantID}]-{nonce}".
// The nonce only makes references unique for humans and gateways; it carries no data.
type PaymentReference struct {
	Kind         ReferenceKind
	PollID       int64
	ContestantID int64 // zero for activations
	Nonce        string
}

func NewActivationReference(pollID int64) PaymentReference {
	return PaymentReference{Kind: ReferenceActivate, PollID: pollID, Nonce: newNonce()}
}

func NewVoteReference(pollID, contestantID int64) PaymentReference {
	return PaymentReference{Kind: ReferenceVote, PollID: pollID, ContestantID: contestantID, Nonce: newNonce()}
}

func newNonce() string {
	return strings.ToLower(ulid.Make().String())
}

func (r PaymentReference) String() string {
	if r.Kind == ReferenceActivate {
		return fmt.Sprintf("%s-%d-%s", r.Kind, r.PollID, r.Nonce)
	}
	return fmt.Sprintf("%s-%d-%d-%s", r.Kind, r.PollID, r.ContestantID, r.Nonce)
}

// TransactionType maps the reference tag onto the ledger's transaction type.
func (r PaymentReference) TransactionType() TransactionType {
	if r.Kind == ReferenceActivate {
		return TransactionTypePollActivation
	}
	return TransactionTypeVote
}

// ParseReference accepts exactly the three known shapes and rejects everything else
// with domain.ErrInvalidReference.
func ParseReference(s string) (PaymentReference, error) {
	var (
		kind ReferenceKind
		rest string
	)
	switch {
	case strings.HasPrefix(s, string(ReferenceCreatorVote)+"-"):
		kind, rest = ReferenceCreatorVote, s[len(ReferenceCreatorVote)+1:]
	case strings.HasPrefix(s, string(ReferenceVote)+"-"):
		kind, rest = ReferenceVote, s[len(ReferenceVote)+1:]
	case strings.HasPrefix(s, string(ReferenceActivate)+"-"):
		kind, rest = ReferenceActivate, s[len(ReferenceActivate)+1:]
	default:
		return PaymentReference{}, fmt.Errorf("%w: unknown type in %q", domain.ErrInvalidReference, s)
	}

	parts := strings.Split(rest, "-")
	want := 3
	if kind == ReferenceActivate {
		want = 2
	}
	if len(parts) != want {
		return PaymentReference{}, fmt.Errorf("%w: %q", domain.ErrInvalidReference, s)
	}

	ref := PaymentReference{Kind: kind, Nonce: parts[len(parts)-1]}
	var err error
	if ref.PollID, err = parseID(parts[0]); err != nil {
		return PaymentReference{}, fmt.Errorf("%w: poll id in %q", domain.ErrInvalidReference, s)
	}
	if kind != ReferenceActivate {
		if ref.ContestantID, err = parseID(parts[1]); err != nil {
			return PaymentReference{}, fmt.Errorf("%w: contestant id in %q", domain.ErrInvalidReference, s)
		}
	}
	if !isAlnum(ref.Nonce) {
		return PaymentReference{}, fmt.Errorf("%w: suffix in %q", domain.ErrInvalidReference, s)
	}
	return ref, nil
}

func parseID(s string) (int64, error) {
	if s == "" || s[0] == '+' {
		return 0, domain.ErrInvalidArgument
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	return id, nil
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
