//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
	red "votelab/internal/infra/redis"
)

func TestVoteRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	tallies := []model.ContestantTally{{ContestantID: 1, Name: "Ama", Category: "Best Artist", Votes: 12}}
	talliesJSON, _ := json.Marshal(tallies)

	t.Run("Tally should return from cache on hit", func(t *testing.T) {
		// Arrange
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				if key != "poll:4:results" {
					t.Errorf("unexpected cache key %q", key)
				}
				return string(talliesJSON), nil
			},
		}
		innerRepoCalled := false
		mockInnerRepo := &mockInnerVoteRepo{
			TallyFunc: func(ctx context.Context, tx repository.Tx, pollID int64) ([]model.ContestantTally, error) {
				innerRepoCalled = true
				return nil, nil
			},
		}
		decorator := NewVoteRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute)

		// Act
		result, err := decorator.Tally(ctx, nil, 4)

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if innerRepoCalled {
			t.Error("inner repository should not be called on a cache hit")
		}
		if len(result) != 1 || result[0].Votes != 12 {
			t.Errorf("did not return the cached tallies, got %+v", result)
		}
	})

	t.Run("Tally should fill the cache on miss", func(t *testing.T) {
		// Arrange
		var storedKey string
		var storedTTL time.Duration
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", red.Nil },
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				storedKey, storedTTL = key, expiration
				return nil
			},
		}
		mockInnerRepo := &mockInnerVoteRepo{
			TallyFunc: func(ctx context.Context, tx repository.Tx, pollID int64) ([]model.ContestantTally, error) {
				return tallies, nil
			},
		}
		decorator := NewVoteRepoCacheDecorator(mockInnerRepo, mockRedis, 0)

		// Act
		result, err := decorator.Tally(ctx, nil, 4)

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result) != 1 {
			t.Fatalf("expected 1 tally, got %d", len(result))
		}
		if storedKey != "poll:4:results" || storedTTL != 5*time.Minute {
			t.Errorf("expected results cached for 5m, got key=%q ttl=%v", storedKey, storedTTL)
		}
	})

	t.Run("Tally should fall through when redis is down", func(t *testing.T) {
		// Arrange
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", errors.New("connection refused") },
		}
		mockInnerRepo := &mockInnerVoteRepo{
			TallyFunc: func(ctx context.Context, tx repository.Tx, pollID int64) ([]model.ContestantTally, error) {
				return tallies, nil
			},
		}

		// Act
		result, err := NewVoteRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute).Tally(ctx, nil, 4)

		// Assert
		if err != nil || len(result) != 1 {
			t.Fatalf("expected tallies from the database, got %v, %v", result, err)
		}
	})

	t.Run("Create should pass straight through", func(t *testing.T) {
		called := false
		mockInnerRepo := &mockInnerVoteRepo{
			CreateFunc: func(ctx context.Context, tx repository.Tx, v *model.Vote) error {
				called = true
				return nil
			},
		}
		decorator := NewVoteRepoCacheDecorator(mockInnerRepo, &mockRedisClient{}, time.Minute)

		if err := decorator.Create(ctx, nil, &model.Vote{NumberOfVotes: 1}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !called {
			t.Error("inner Create was not called")
		}
	})
}
