package redis

import (
	"context"
	"strconv"

	"votelab/internal/domain/ports/adapter"
)

var _ adapter.ChangeNotifier = (*Notifier)(nil)

// Notifier drops the cached results of a poll and publishes its id on the poll's votes channel.
type Notifier struct {
	client RedisClient
}

func NewNotifier(client RedisClient) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) NotifyPollChanged(ctx context.Context, pollID int64) error {
	if err := n.client.Del(ctx, ResultsKey(pollID)); err != nil {
		return err
	}
	return n.client.Publish(ctx, VotesChannel(pollID), strconv.FormatInt(pollID, 10))
}
