//go:build !integration

package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votelab/internal/domain"
	"votelab/internal/domain/model"
)

func TestSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("should expire sessions after their ttl", func(t *testing.T) {
		s := NewSessionStore(time.Millisecond)
		require.NoError(t, s.Put(ctx, "+1", &model.Session{State: model.StatePollSelected, PollID: 1}, 20*time.Millisecond))

		got, err := s.Get(ctx, "+1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(1), got.PollID)

		time.Sleep(40 * time.Millisecond)
		got, err = s.Get(ctx, "+1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("should hand out copies", func(t *testing.T) {
		s := NewSessionStore(0)
		require.NoError(t, s.Put(ctx, "+1", &model.Session{State: model.StateInitial}, time.Minute))

		got, _ := s.Get(ctx, "+1")
		got.State = model.StateVoteComplete

		again, _ := s.Get(ctx, "+1")
		assert.Equal(t, model.StateInitial, again.State)
	})
}

func TestLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocker()
	l.backoff = time.Millisecond

	token, err := l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "k", time.Second)
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	require.NoError(t, l.Unlock(ctx, "k", token))
	_, err = l.TryLock(ctx, "k", time.Second)
	assert.NoError(t, err)
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
