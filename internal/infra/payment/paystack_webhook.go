package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"votelab/internal/domain"
	"votelab/internal/domain/ports/adapter"
)

const (
	SignatureHeader    = "X-Paystack-Signature"
	EventChargeSuccess = "charge.success"
)

// VerifyPaystackSignature checks the hex HMAC-SHA512 of the raw request body keyed with the secret.
func VerifyPaystackSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// SignPaystackBody is the inverse of VerifyPaystackSignature, used by tests and local tooling.
func SignPaystackBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookEvent is the subset of a Paystack event the ledger needs.
type WebhookEvent struct {
	Event     string
	Reference string
	Status    adapter.PaymentStatus
	Amount    decimal.Decimal // major units
}

func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var raw struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Amount    int64  `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Event == "" {
		return WebhookEvent{}, domain.ErrInvalidArgument
	}
	return WebhookEvent{
		Event:     raw.Event,
		Reference: raw.Data.Reference,
		Status:    mapStatus(raw.Data.Status),
		Amount:    FromMinor(raw.Data.Amount),
	}, nil
}
