package adapter

import (
	"context"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusSuccess   PaymentStatus = "success"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusAbandoned PaymentStatus = "abandoned"
	PaymentStatusPending   PaymentStatus = "pending"
)

// PaymentRequest asks the gateway for a hosted payment page.
type PaymentRequest struct {
	Amount       decimal.Decimal // major units
	Reference    string
	PayerContact string // e-mail the gateway sends the receipt to
	CallbackURL  string
	Metadata     map[string]string
}

type PaymentLink struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// PaymentVerification is the gateway's view of a reference.
type PaymentVerification struct {
	Reference  string
	Status     PaymentStatus
	AmountPaid decimal.Decimal // major units
	Currency   string
}

// PaymentGateway is the port for the payment provider.
// Transport failures wrap domain.ErrGatewayUnavailable; provider refusals wrap domain.ErrGatewayRejected.
type PaymentGateway interface {
	Name() string
	CreatePaymentLink(ctx context.Context, req PaymentRequest) (PaymentLink, error)
	Verify(ctx context.Context, reference string) (PaymentVerification, error)
}
