package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"votelab/internal/domain/model"
	"votelab/internal/domain/ports/repository"
	"votelab/internal/infra/metrics"
	red "votelab/internal/infra/redis"
)

var _ repository.VoteRepository = (*voteRepoCacheDecorator)(nil)

// voteRepoCacheDecorator caches tallies under the poll's results key. Vote writes do not touch
// the cache here since they run inside a ledger transaction; the change notifier drops the key
// after commit.
type voteRepoCacheDecorator struct {
	inner repository.VoteRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewVoteRepoCacheDecorator(inner repository.VoteRepository, cache red.RedisClient, ttl time.Duration) repository.VoteRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &voteRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *voteRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, v *model.Vote) error {
	return d.inner.Create(ctx, tx, v)
}

func (d *voteRepoCacheDecorator) Tally(ctx context.Context, tx repository.Tx, pollID int64) ([]model.ContestantTally, error) {
	// reads inside a transaction must see uncommitted votes
	if inTx(tx) {
		return d.inner.Tally(ctx, tx, pollID)
	}

	key := red.ResultsKey(pollID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var tallies []model.ContestantTally
		if json.Unmarshal([]byte(val), &tallies) == nil {
			metrics.IncCacheRequest("results", "hit")
			return tallies, nil
		}
	} else if !errors.Is(err, red.Nil) {
		metrics.IncCacheRequest("results", "error")
	}

	metrics.IncCacheRequest("results", "miss")
	tallies, err := d.inner.Tally(ctx, tx, pollID)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(tallies); err == nil {
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return tallies, nil
}
