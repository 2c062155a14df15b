package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PendingReconciler is the slice of the ledger the reconciler drives.
type PendingReconciler interface {
	ReconcilePending(ctx context.Context, minAge, maxAge time.Duration, limit int) (int, error)
}

// PaymentReconciler periodically verifies stale pending transactions with the gateway and
// settles the ones that were paid. It covers lost webhooks and voters who never came back to
// the verify endpoint.
type PaymentReconciler struct {
	ledger    PendingReconciler
	interval  time.Duration // how often to scan
	minAge    time.Duration // how old a pending transaction must be before it is checked
	maxAge    time.Duration // older transactions are considered abandoned
	batchSize int
	log       *zerolog.Logger
}

func NewPaymentReconciler(ledger PendingReconciler, interval, minAge, maxAge time.Duration, batchSize int, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if minAge <= 0 {
		minAge = 10 * time.Minute
	}
	if maxAge <= minAge {
		maxAge = 24 * time.Hour
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	l := logger.With().Str("component", "payment_reconciler").Logger()
	return &PaymentReconciler{ledger: ledger, interval: interval, minAge: minAge, maxAge: maxAge, batchSize: batchSize, log: &l}
}

// Start blocks until ctx is cancelled.
func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	settled, err := w.ledger.ReconcilePending(ctx, w.minAge, w.maxAge, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("reconcile pending failed")
		return
	}
	if settled > 0 {
		w.log.Info().Int("settled", settled).Msg("reconciled pending payments")
	}
}
