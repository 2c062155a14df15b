//go:build !integration

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("should expand env references and apply defaults", func(t *testing.T) {
		t.Setenv("VOTELAB_PAYSTACK_SECRET", "sk_test_abc")
		raw := []byte(`
database:
  url: postgres://u:p@localhost:5432/votelab
payment:
  paystack:
    secret_key: ${VOTELAB_PAYSTACK_SECRET}
auth:
  jwt_secret: s3cret
`)

		cfg, err := Parse(raw)

		require.NoError(t, err)
		assert.Equal(t, "sk_test_abc", cfg.Payment.Paystack.SecretKey)
		assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
		assert.Equal(t, "GH", cfg.USSD.DefaultRegion)
		assert.Equal(t, 3, cfg.Payment.Retry.Attempts)
		assert.Equal(t, "https://api.paystack.co", cfg.Payment.Paystack.BaseURL)
		assert.Equal(t, ":8080", cfg.HTTP.Addr)
		// 3 attempts x 10s timeout + 2 x 2s backoff + 5s slack
		assert.Equal(t, 39*time.Second, cfg.Session.LockTTL)
	})

	t.Run("should keep the session lock longer than a retried gateway call", func(t *testing.T) {
		raw := []byte(`
database: {url: "postgres://x"}
payment:
  paystack: {secret_key: k, timeout: 20s}
  retry: {attempts: 4, max_delay: 3s}
auth: {jwt_secret: j}
session: {lock_ttl: 5s}
`)
		cfg, err := Parse(raw)

		require.NoError(t, err)
		assert.Equal(t, 89*time.Second, cfg.Payment.CallBudget())
		assert.Greater(t, cfg.Session.LockTTL, cfg.Payment.CallBudget())
	})

	t.Run("should honour a lock ttl already above the budget", func(t *testing.T) {
		raw := []byte(`
database: {url: "postgres://x"}
payment: {paystack: {secret_key: k}}
auth: {jwt_secret: j}
session: {lock_ttl: 2m}
`)
		cfg, err := Parse(raw)

		require.NoError(t, err)
		assert.Equal(t, 2*time.Minute, cfg.Session.LockTTL)
	})

	t.Run("should require the database url", func(t *testing.T) {
		_, err := Parse([]byte("auth:\n  jwt_secret: x\n"))
		assert.EqualError(t, err, "database.url is required")
	})

	t.Run("should reject an inverted reconciler window", func(t *testing.T) {
		raw := []byte(`
database: {url: "postgres://x"}
payment: {paystack: {secret_key: k}}
auth: {jwt_secret: j}
reconciler: {min_age: 2h, max_age: 1h}
`)
		_, err := Parse(raw)
		assert.Error(t, err)
	})
}
