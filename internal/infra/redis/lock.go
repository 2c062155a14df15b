// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"votelab/internal/domain"
	"votelab/internal/domain/ports/repository"

	"github.com/google/uuid"
)

var _ repository.Locker = (*RedisLocker)(nil)

type RedisLocker struct {
	cli     RedisClient
	tries   int
	backoff time.Duration
}

func NewLocker(c RedisClient) *RedisLocker {
	return &RedisLocker{cli: c, tries: 5, backoff: 50 * time.Millisecond}
}

// TryLock spins a few times on SET NX; a caller that cannot get the lock gets domain.ErrSessionBusy.
// Store errors are returned as they are.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < l.tries; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.backoff): // wait before retrying
		}
	}
	return "", domain.ErrSessionBusy
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := l.cli.DelIfEquals(ctx, key, token)
	return err
}
