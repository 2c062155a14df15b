package repository

import (
	"context"
	"time"

	"votelab/internal/domain/model"
)

// SessionRepository stores USSD menu state per caller with a TTL.
// Get returns (nil, nil) when no session exists or it expired.
type SessionRepository interface {
	Get(ctx context.Context, key string) (*model.Session, error)
	Put(ctx context.Context, key string, s *model.Session, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Locker serialises work on one key across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RateLimiter is a fixed-window counter per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
