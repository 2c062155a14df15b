package adapter

import "context"

// ChangeNotifier tells subscribers that a poll's tally changed.
// Delivery is best-effort; callers ignore its errors.
type ChangeNotifier interface {
	NotifyPollChanged(ctx context.Context, pollID int64) error
}
