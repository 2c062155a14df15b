package redis

import (
	"context"
	"time"

	"votelab/internal/domain/ports/repository"
)

var _ repository.RateLimiter = (*RateLimiter)(nil)

type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow counts one hit in a fixed window; the window starts at the first hit.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.IncrWindow(ctx, key, window)
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}
