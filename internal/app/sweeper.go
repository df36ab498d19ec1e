package app

import (
	"context"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/clock"
	"github.com/sirupsen/logrus"
)

type HoldSweeper interface {
	DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error)
}

type ReservationSweeper interface {
	CompletePastReservations(ctx context.Context, now time.Time) (int64, error)
	FlagStaleRefunds(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// Sweeper removes expired holds, completes reservations whose check-out has
// passed and flags refunds that were never sent to the gateway. Expiry is
// also enforced at read time, so a late sweep never lets an expired hold
// commit.
type Sweeper struct {
	holds        HoldSweeper
	reservations ReservationSweeper
	clock        clock.Clock
	interval     time.Duration
	log          logrus.FieldLogger
}

const (
	defaultSweepInterval = time.Minute
	// staleRefundAfter is how long a cancellation may wait for its refund
	// call before it is handed to manual review.
	staleRefundAfter = 15 * time.Minute
)

func NewSweeper(holds HoldSweeper, reservations ReservationSweeper, clk clock.Clock, interval time.Duration, log logrus.FieldLogger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sweeper{
		holds:        holds,
		reservations: reservations,
		clock:        clk,
		interval:     interval,
		log:          log,
	}
}

type SweepResult struct {
	ExpiredHolds          int64
	CompletedReservations int64
	FlaggedRefunds        int64
}

// SweepOnce runs every pass even if an earlier one fails and returns the
// first error.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	var res SweepResult
	var firstErr error

	n, err := s.holds.DeleteExpiredHolds(ctx, now)
	if err != nil {
		firstErr = err
	}
	res.ExpiredHolds = n

	n, err = s.reservations.CompletePastReservations(ctx, now)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	res.CompletedReservations = n

	n, err = s.reservations.FlagStaleRefunds(ctx, now.Add(-staleRefundAfter), now)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	res.FlaggedRefunds = n
	return res, firstErr
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.WithError(err).Warn("sweep failed")
			}
			if res.ExpiredHolds > 0 || res.CompletedReservations > 0 {
				s.log.WithFields(logrus.Fields{
					"expired_holds":          res.ExpiredHolds,
					"completed_reservations": res.CompletedReservations,
				}).Info("sweep finished")
			}
			if res.FlaggedRefunds > 0 {
				s.log.WithField("flagged_refunds", res.FlaggedRefunds).Warn("stale refunds flagged for manual review")
			}
		}
	}
}
