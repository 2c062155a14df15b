//go:build !integration

package postgres

import (
	"context"
	"time"

	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
	red "votelab/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerVoteRepo mocks the database repository that the vote decorator wraps.
type mockInnerVoteRepo struct {
	CreateFunc func(ctx context.Context, tx repository.Tx, v *model.Vote) error
	TallyFunc  func(ctx context.Context, tx repository.Tx, pollID int64) ([]model.ContestantTally, error)
}

func (m *mockInnerVoteRepo) Create(ctx context.Context, tx repository.Tx, v *model.Vote) error {
	return m.CreateFunc(ctx, tx, v)
}
func (m *mockInnerVoteRepo) Tally(ctx context.Context, tx repository.Tx, pollID int64) ([]model.ContestantTally, error) {
	return m.TallyFunc(ctx, tx, pollID)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc        func(ctx context.Context, key string) (string, error)
	SetFunc        func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc        func(ctx context.Context, keys ...string) error
	PingFunc       func(ctx context.Context) error
	IncrWindowFunc func(ctx context.Context, key string, window time.Duration) (int64, error)
	CloseFunc      func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	return true, nil
}
func (m *mockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return nil
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return m.IncrWindowFunc(ctx, key, window)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
