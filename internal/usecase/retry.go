package usecase

import (
	"context"
	"errors"
	"time"

	"votelab/internal/domain"
)

// RetryPolicy bounds the exponential backoff used around gateway calls.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// withRetry runs fn until it succeeds, returns a non-retryable error, or attempts run out.
// Only domain.ErrGatewayUnavailable is retryable.
func withRetry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	delay := p.BaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrGatewayUnavailable) || attempt >= p.Attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
