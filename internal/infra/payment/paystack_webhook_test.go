//go:build !integration

package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votelab/internal/domain/ports/adapter"
)

func TestVerifyPaystackSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"vote-3-9-abc","status":"success","amount":25000}}`)
	sig := SignPaystackBody("whsec", body)

	assert.True(t, VerifyPaystackSignature("whsec", body, sig))
	assert.False(t, VerifyPaystackSignature("other", body, sig))
	assert.False(t, VerifyPaystackSignature("whsec", append(body, ' '), sig))
	assert.False(t, VerifyPaystackSignature("whsec", body, "not-hex"))
	assert.False(t, VerifyPaystackSignature("whsec", body, ""))
}

func TestParseWebhookEvent(t *testing.T) {
	ev, err := ParseWebhookEvent([]byte(`{"event":"charge.success","data":{"reference":"vote-3-9-abc","status":"success","amount":25000}}`))
	require.NoError(t, err)
	assert.Equal(t, EventChargeSuccess, ev.Event)
	assert.Equal(t, "vote-3-9-abc", ev.Reference)
	assert.Equal(t, adapter.PaymentStatusSuccess, ev.Status)
	assert.True(t, ev.Amount.Equal(decimal.NewFromInt(250)))

	_, err = ParseWebhookEvent([]byte(`not json`))
	assert.Error(t, err)
}
