package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingService_Commit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("confirms a captured payment", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_1", domain.PaymentStateCaptured, 700)

		r, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"})
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationConfirmed, r.Status)
		assert.Equal(t, domain.PaymentCompleted, r.PaymentStatus)
		assert.Equal(t, h.ID, r.HoldID)
		assert.Equal(t, h.Price, r.Price)
		assert.Equal(t, "order_pay_1", r.PaymentOrderID)
		assert.Equal(t, 1, f.store.ledgerCount(f.property.ID))

		_, err = f.store.GetHold(ctx, h.ID)
		require.ErrorIs(t, err, domain.ErrHoldNotFound)

		assert.Eventually(t, func() bool {
			titles := f.notifier.titles()
			return len(titles) == 1 && titles[0] == "Booking Confirmed"
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("captures an authorized payment", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_1", domain.PaymentStateAuthorized, 700)

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"})
		require.NoError(t, err)
		assert.Equal(t, 1, f.gateway.captures)
	})

	t.Run("replay fails with hold already used every time", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_1", domain.PaymentStateCaptured, 700)
		in := CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"}

		_, err := f.booking.Commit(ctx, in)
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			_, err = f.booking.Commit(ctx, in)
			require.ErrorIs(t, err, domain.ErrHoldAlreadyUsed)
		}
		assert.Equal(t, 1, f.store.reservationCount())
	})

	t.Run("payment reference cannot pay twice", func(t *testing.T) {
		f := newFixture(t)
		f.book(t, "user-1", "Morning", "pay_1")
		h := f.hold(t, "user-1", "Evening")

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"})
		require.ErrorIs(t, err, domain.ErrPaymentReferenceUsed)
		assert.Equal(t, 1, f.store.reservationCount())
	})

	t.Run("unpaid payment is a payment error", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_1", domain.PaymentStateCreated, 700)

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"})
		require.ErrorIs(t, err, domain.ErrPaymentNotCompleted)
		assert.Equal(t, domain.KindPayment, domain.KindOf(err))

		_, err = f.store.GetHold(ctx, h.ID)
		require.NoError(t, err, "hold stays pending after a payment failure")
	})

	t.Run("short payment is rejected", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_1", domain.PaymentStateCaptured, 699)

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"})
		require.ErrorIs(t, err, domain.ErrPaymentAmountMismatch)
	})

	t.Run("gateway outage surfaces as payment unavailable", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.fetchErr = fmt.Errorf("fetch: %w", domain.ErrPaymentUnavailable)

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"})
		require.ErrorIs(t, err, domain.ErrPaymentUnavailable)
	})

	t.Run("other user's hold is rejected", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_1", domain.PaymentStateCaptured, 700)

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-2", PaymentReference: "pay_1"})
		require.ErrorIs(t, err, domain.ErrUserMismatch)
	})

	t.Run("unknown hold is expired or missing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.booking.Commit(ctx, CommitInput{HoldID: newUUID(), UserID: "user-1", PaymentReference: "pay_1"})
		require.ErrorIs(t, err, domain.ErrHoldExpiredOrMissing)
		assert.Equal(t, domain.KindExpired, domain.KindOf(err))
	})
}

func TestBookingService_ExpiryBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("commit at exactly expires_at fails", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_1", domain.PaymentStateCaptured, 700)
		f.clock.Set(h.ExpiresAt)

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"})
		require.ErrorIs(t, err, domain.ErrHoldExpiredOrMissing)
		assert.Equal(t, 0, f.store.reservationCount())
	})

	t.Run("commit just before expiry succeeds", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_1", domain.PaymentStateCaptured, 700)
		f.clock.Set(h.ExpiresAt.Add(-time.Millisecond))

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"})
		require.NoError(t, err)
	})

	t.Run("expiry during payment verification keeps the money visible", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_1", domain.PaymentStateCaptured, 700)
		f.gateway.onFetch = func() { f.clock.Set(h.ExpiresAt) }

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"})
		var secured *domain.PaymentSecuredError
		require.True(t, errors.As(err, &secured), "expected PaymentSecuredError, got %v", err)
		assert.Equal(t, "pay_1", secured.PaymentReference)
		assert.Equal(t, int64(700), secured.Amount)
		require.ErrorIs(t, err, domain.ErrHoldExpiredOrMissing)

		entry := f.logs.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
	})
}

func TestBookingService_LostCommitRace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// commitFirst makes another commit of h win while the loser is still
	// verifying its own payment.
	commitFirst := func(t *testing.T, f *fixture, h domain.Hold, ref string) {
		var fired atomic.Bool
		f.gateway.onFetch = func() {
			if !fired.CompareAndSwap(false, true) {
				return
			}
			_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: h.UserID, PaymentReference: ref})
			require.NoError(t, err)
		}
	}

	t.Run("second payment captured for a used hold stays visible", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_A", domain.PaymentStateCaptured, 700)
		f.gateway.add("pay_B", domain.PaymentStateAuthorized, 700)
		commitFirst(t, f, h, "pay_A")

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_B"})
		var secured *domain.PaymentSecuredError
		require.True(t, errors.As(err, &secured), "expected PaymentSecuredError, got %v", err)
		assert.Equal(t, "pay_B", secured.PaymentReference)
		assert.Equal(t, int64(700), secured.Amount)
		require.ErrorIs(t, err, domain.ErrHoldAlreadyUsed)
		assert.Equal(t, 1, f.gateway.captures)
		assert.Equal(t, 1, f.store.reservationCount())
	})

	t.Run("same payment racing itself is a plain replay", func(t *testing.T) {
		f := newFixture(t)
		h := f.hold(t, "user-1", "Morning")
		f.gateway.add("pay_A", domain.PaymentStateCaptured, 700)
		commitFirst(t, f, h, "pay_A")

		_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_A"})
		require.ErrorIs(t, err, domain.ErrHoldAlreadyUsed)
		var secured *domain.PaymentSecuredError
		assert.False(t, errors.As(err, &secured))
		assert.Equal(t, 1, f.store.reservationCount())
	})
}

func TestBookingService_WriteIsAtomic(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := f.hold(t, "user-1", "Morning")
	f.gateway.add("pay_1", domain.PaymentStateCaptured, 700)
	f.store.appendLedgerErr = fmt.Errorf("ledger append: %w", domain.ErrTransactionAborted)

	_, err := f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: "user-1", PaymentReference: "pay_1"})
	require.ErrorIs(t, err, domain.ErrTransactionAborted)
	assert.Equal(t, domain.KindConsistency, domain.KindOf(err))

	assert.Equal(t, 0, f.store.reservationCount(), "reservation insert must roll back")
	assert.Equal(t, 0, f.store.ledgerCount(f.property.ID))
	_, err = f.store.GetHold(ctx, h.ID)
	require.NoError(t, err, "hold deletion must roll back")
}

func TestBookingService_NoDoubleBooking(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	const users = 8
	holds := make([]domain.Hold, users)
	for i := range holds {
		user := fmt.Sprintf("user-%d", i)
		holds[i] = f.hold(t, user, "Morning")
		f.gateway.add("pay_"+user, domain.PaymentStateCaptured, 700)
	}

	var wg sync.WaitGroup
	errs := make([]error, users)
	for i, h := range holds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.booking.Commit(ctx, CommitInput{HoldID: h.ID, UserID: h.UserID, PaymentReference: "pay_" + h.UserID})
		}()
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, domain.ErrSlotNoLongerAvailable)
		var secured *domain.PaymentSecuredError
		require.True(t, errors.As(err, &secured))
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.store.ledgerCount(f.property.ID))
	assert.Equal(t, 1, f.store.reservationCount())
}
