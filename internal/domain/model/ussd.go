package model

// SessionState is the position of a caller in the USSD menu.
type SessionState string

const (
	StateInitial            SessionState = "initial"
	StatePollSelected       SessionState = "poll_selected"
	StateCategorySelected   SessionState = "category_selected"
	StateContestantSelected SessionState = "contestant_selected"
	StateVoterCodeInput     SessionState = "voter_code_input"
	StatePaymentPending     SessionState = "payment_pending"
	StateVoteComplete       SessionState = "vote_complete"
)

// Session is the small blob kept per caller between USSD steps.
type Session struct {
	State        SessionState `json:"state"`
	ScopePollID  int64        `json:"scope_poll_id,omitempty"` // set when the dial string names a poll
	PollID       int64        `json:"poll_id,omitempty"`
	Category     string       `json:"category,omitempty"`
	ContestantID int64        `json:"contestant_id,omitempty"`
	VotesCount   int          `json:"votes_count,omitempty"`
	Retries      int          `json:"retries,omitempty"`
}

type ResultKind int

const (
	ResultContinue ResultKind = iota // prompt shown, session kept
	ResultTerminal                   // final message, session gone
	ResultError                      // internal failure, rendered as a final message
)

// ErrorKind classifies ResultError outcomes.
type ErrorKind string

const (
	ErrorKindStore   ErrorKind = "session_store"
	ErrorKindCatalog ErrorKind = "catalog"
	ErrorKindLedger  ErrorKind = "ledger"
	ErrorKindBusy    ErrorKind = "busy"
)

// StepResult is what one navigation step produces.
type StepResult struct {
	Kind    ResultKind
	Text    string
	ErrKind ErrorKind
}

func Continue(prompt string) StepResult  { return StepResult{Kind: ResultContinue, Text: prompt} }
func Terminal(message string) StepResult { return StepResult{Kind: ResultTerminal, Text: message} }
func Failure(kind ErrorKind, message string) StepResult {
	return StepResult{Kind: ResultError, Text: message, ErrKind: kind}
}

func (r StepResult) IsTerminal() bool { return r.Kind != ResultContinue }

// Wire renders the result in the "CON ..." / "END ..." form telephony gateways expect.
func (r StepResult) Wire() string {
	if r.IsTerminal() {
		return "END " + r.Text
	}
	return "CON " + r.Text
}
