package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Storage errors
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Polls and admission codes
	ErrPollNotFound        = errors.New("poll not found")
	ErrPollInactive        = errors.New("poll is not open for voting")
	ErrPollTypeMismatch    = errors.New("operation not allowed for this poll type")
	ErrContestantNotFound  = errors.New("contestant not found")
	ErrCodeNotFound        = errors.New("voter code not found")
	ErrCodeAlreadyUsed     = errors.New("voter code already used")
	ErrVoteCapReached      = errors.New("maximum number of votes reached for this poll")
	ErrCodeQuotaExceeded   = errors.New("requested codes exceed expected voters")
	ErrInvalidVoteCount    = errors.New("invalid number of votes")
	ErrAlreadyActivated    = errors.New("poll activation already paid")
	ErrActivationNotNeeded = errors.New("poll does not require activation payment")

	// Ledger
	ErrInvalidReference = errors.New("malformed payment reference")
	ErrUnpayableVote    = errors.New("reference type does not accept payments")
	ErrAmountBelowFee   = errors.New("amount paid is below the cost of one vote")
	ErrTooManyVotes     = errors.New("amount paid buys more votes than one payment may record")

	// Gateway
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")

	// Sessions
	ErrSessionBusy = errors.New("session is being processed")
)
