package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"votelab/internal/domain/ports/adapter"
	"votelab/internal/infra/worker"
)

// Dispatcher runs best-effort work off the request path. *worker.Pool satisfies it.
type Dispatcher interface {
	Submit(task worker.Task) error
}

// changeSignal tells subscribers that a poll's tally changed. Failures are logged and dropped;
// they never affect the ledger write that triggered them.
type changeSignal struct {
	notifier adapter.ChangeNotifier
	async    Dispatcher
	log      *zerolog.Logger
}

const notifyTimeout = 3 * time.Second

func (s *changeSignal) fire(pollID int64) {
	if s == nil || s.notifier == nil {
		return
	}
	task := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyPollChanged(ctx, pollID); err != nil {
			s.log.Warn().Err(err).Int64("poll_id", pollID).Msg("poll change notification failed")
		}
		return nil
	}
	if s.async == nil {
		_ = task(context.Background())
		return
	}
	if err := s.async.Submit(task); err != nil {
		s.log.Warn().Err(err).Int64("poll_id", pollID).Msg("poll change notification dropped")
	}
}
