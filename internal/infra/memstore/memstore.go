// Package memstore keeps USSD sessions, per-phone locks and rate counters in process.
// It backs single-instance deployments that run without Redis.
package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
)

var (
	_ repository.SessionRepository = (*SessionStore)(nil)
	_ repository.Locker            = (*Locker)(nil)
	_ repository.RateLimiter       = (*RateLimiter)(nil)
)

// SessionStore stores copies, so callers mutating a returned session do not change the stored one.
type SessionStore struct {
	c *gocache.Cache
}

func NewSessionStore(cleanup time.Duration) *SessionStore {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &SessionStore{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func (s *SessionStore) Get(_ context.Context, key string) (*model.Session, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, nil
	}
	sess := v.(model.Session)
	return &sess, nil
}

func (s *SessionStore) Put(_ context.Context, key string, sess *model.Session, ttl time.Duration) error {
	if sess == nil {
		return domain.ErrInvalidArgument
	}
	s.c.Set(key, *sess, ttl)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

// Locker relies on Cache.Add failing while an unexpired item exists.
type Locker struct {
	c       *gocache.Cache
	tries   int
	backoff time.Duration
}

func NewLocker() *Locker {
	return &Locker{c: gocache.New(gocache.NoExpiration, time.Minute), tries: 5, backoff: 50 * time.Millisecond}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < l.tries; i++ {
		if err := l.c.Add(key, token, ttl); err == nil {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	return "", domain.ErrSessionBusy
}

// Unlock is not atomic across the Get and Delete; a lock that expired in between may be freed early.
func (l *Locker) Unlock(_ context.Context, key, token string) error {
	if v, ok := l.c.Get(key); ok && v.(string) == token {
		l.c.Delete(key)
	}
	return nil
}

type RateLimiter struct {
	c *gocache.Cache
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (r *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	// Add only succeeds for the first hit of a window, which also fixes the window's expiry.
	if err := r.c.Add(key, 1, window); err == nil {
		return limit >= 1, nil
	}
	n, err := r.c.IncrementInt(key, 1)
	if err != nil {
		// expired between Add and Increment
		r.c.Set(key, 1, window)
		return limit >= 1, nil
	}
	return n <= limit, nil
}
