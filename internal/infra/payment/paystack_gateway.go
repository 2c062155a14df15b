package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"votelab/internal/domain"
	"votelab/internal/domain/ports/adapter"
	"votelab/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*PaystackGateway)(nil)

const gatewayName = "paystack"

// PaystackGateway implements adapter.PaymentGateway against the Paystack REST API.
// Amounts cross the wire in minor units (pesewas, kobo).
type PaystackGateway struct {
	secretKey   string
	baseURL     string
	callbackURL string
	client      *http.Client
	limiter     *rate.Limiter
}

type PaystackOptions struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
	Timeout     time.Duration
	RatePerSec  float64
	Burst       int
}

func NewPaystackGateway(opts PaystackOptions) (*PaystackGateway, error) {
	if opts.SecretKey == "" {
		return nil, errors.New("paystack secret key empty")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.paystack.co"
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = opts.Timeout
	return &PaystackGateway{
		secretKey:   opts.SecretKey,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		callbackURL: opts.CallbackURL,
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
	}, nil
}

func (g *PaystackGateway) Name() string { return gatewayName }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// ToMinor converts a major-unit amount to the integer minor units Paystack expects.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinor converts Paystack's minor units back to a major-unit decimal.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// CreatePaymentLink calls /transaction/initialize and returns the hosted checkout URL.
func (g *PaystackGateway) CreatePaymentLink(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentLink, error) {
	if !req.Amount.IsPositive() || req.Reference == "" || req.PayerContact == "" {
		return adapter.PaymentLink{}, domain.ErrInvalidArgument
	}
	callback := req.CallbackURL
	if callback == "" {
		callback = g.callbackURL
	}
	payload := map[string]any{
		"amount":    ToMinor(req.Amount),
		"email":     req.PayerContact,
		"reference": req.Reference,
	}
	if callback != "" {
		payload["callback_url"] = callback
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	var data initializeData
	if err := g.do(ctx, "initialize", http.MethodPost, "/transaction/initialize", payload, &data); err != nil {
		return adapter.PaymentLink{}, err
	}
	if data.AuthorizationURL == "" {
		return adapter.PaymentLink{}, fmt.Errorf("%w: empty authorization url", domain.ErrGatewayRejected)
	}
	if data.Reference == "" {
		data.Reference = req.Reference
	}
	return adapter.PaymentLink{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// Verify calls /transaction/verify/{reference}.
func (g *PaystackGateway) Verify(ctx context.Context, reference string) (adapter.PaymentVerification, error) {
	if reference == "" {
		return adapter.PaymentVerification{}, domain.ErrInvalidArgument
	}
	var data verifyData
	if err := g.do(ctx, "verify", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return adapter.PaymentVerification{}, err
	}
	if data.Reference == "" {
		data.Reference = reference
	}
	return adapter.PaymentVerification{
		Reference:  data.Reference,
		Status:     mapStatus(data.Status),
		AmountPaid: FromMinor(data.Amount),
		Currency:   data.Currency,
	}, nil
}

func mapStatus(s string) adapter.PaymentStatus {
	switch strings.ToLower(s) {
	case "success":
		return adapter.PaymentStatusSuccess
	case "abandoned":
		return adapter.PaymentStatusAbandoned
	case "failed", "reversed":
		return adapter.PaymentStatusFailed
	default:
		return adapter.PaymentStatusPending
	}
}

// do sends one request. Transport errors and 5xx/429 responses wrap domain.ErrGatewayUnavailable
// (retryable); other refusals wrap domain.ErrGatewayRejected.
func (g *PaystackGateway) do(ctx context.Context, op, method, path string, payload any, out any) (err error) {
	start := time.Now()
	result := "ok"
	defer func() {
		switch {
		case errors.Is(err, domain.ErrGatewayUnavailable):
			result = "unavailable"
		case err != nil:
			result = "rejected"
		}
		metrics.ObserveGatewayCall(gatewayName, op, result, time.Since(start))
	}()

	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: bad response body: %v", domain.ErrGatewayRejected, err)
	}
	if resp.StatusCode >= 400 || !env.Status {
		return fmt.Errorf("%w: http %d: %s", domain.ErrGatewayRejected, resp.StatusCode, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: bad data: %v", domain.ErrGatewayRejected, err)
		}
	}
	return nil
}
