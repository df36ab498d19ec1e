package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/google/uuid"
)

func TestBookingRepository(t *testing.T) {
	t.Run("commit writes reservation and ledger and drops the hold", func(t *testing.T) {
		pool, ctx := setupDB(t)
		holds := NewHoldRepository(pool)
		repo := NewBookingRepository(pool)
		p, slots := insertFarmhouse(t, ctx, pool)
		now := testNow()

		hold := pendingHold(p, slots["Night"], "user-1", now)
		if err := holds.CreateHold(ctx, hold); err != nil {
			t.Fatalf("create hold: %v", err)
		}
		res := commitHold(t, ctx, repo, hold, "pay_1", now)

		entries, err := repo.ListLedgerEntries(ctx, p.ID, testDate)
		if err != nil {
			t.Fatalf("list ledger: %v", err)
		}
		if len(entries) != 1 || !entries[0].Matches(testDate, "Night", hold.Timing) || entries[0].ReservationID != res.ID {
			t.Fatalf("unexpected ledger: %+v", entries)
		}

		byHold, err := repo.GetReservationByHoldID(ctx, hold.ID)
		if err != nil {
			t.Fatalf("by hold: %v", err)
		}
		if byHold == nil || byHold.ID != res.ID || byHold.Price.Total != hold.Price.Total || byHold.Cancellation != nil {
			t.Fatalf("unexpected reservation: %+v", byHold)
		}
		byRef, err := repo.GetReservationByPaymentReference(ctx, "pay_1")
		if err != nil || byRef == nil || byRef.ID != res.ID {
			t.Fatalf("by reference: %+v, %v", byRef, err)
		}
		none, err := repo.GetReservationByPaymentReference(ctx, "pay_unknown")
		if err != nil || none != nil {
			t.Fatalf("expected nil reservation, got %+v, %v", none, err)
		}

		if _, err := repo.GetHold(ctx, hold.ID); err != domain.ErrHoldNotFound {
			t.Fatalf("expected consumed hold deleted, got %v", err)
		}
	})

	t.Run("unique keys map to domain conflicts", func(t *testing.T) {
		pool, ctx := setupDB(t)
		repo := NewBookingRepository(pool)
		p, slots := insertFarmhouse(t, ctx, pool)
		now := testNow()

		hold := pendingHold(p, slots["Morning"], "user-1", now)
		first := commitHold(t, ctx, repo, hold, "pay_1", now)

		replay := domain.NewReservation(uuid.NewString(), hold, domain.Payment{Reference: "pay_2"}, now)
		if err := repo.CreateReservation(ctx, replay); err != domain.ErrHoldAlreadyUsed {
			t.Fatalf("expected ErrHoldAlreadyUsed, got %v", err)
		}

		other := pendingHold(p, slots["Morning"], "user-2", now)
		reused := domain.NewReservation(uuid.NewString(), other, domain.Payment{Reference: "pay_1"}, now)
		if err := repo.CreateReservation(ctx, reused); err != domain.ErrPaymentReferenceUsed {
			t.Fatalf("expected ErrPaymentReferenceUsed, got %v", err)
		}

		second := domain.NewReservation(uuid.NewString(), other, domain.Payment{Reference: "pay_3"}, now)
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.CreateReservation(txCtx, second); err != nil {
				return err
			}
			return repo.AppendLedgerEntry(txCtx, second.LedgerEntry())
		})
		if err != domain.ErrSlotNoLongerAvailable {
			t.Fatalf("expected ErrSlotNoLongerAvailable, got %v", err)
		}

		if _, err := repo.GetReservation(ctx, second.ID); err != domain.ErrReservationNotFound {
			t.Fatalf("expected rolled back reservation, got %v", err)
		}
		entries, err := repo.ListLedgerEntries(ctx, p.ID, testDate)
		if err != nil {
			t.Fatalf("list ledger: %v", err)
		}
		if len(entries) != 1 || entries[0].ReservationID != first.ID {
			t.Fatalf("unexpected ledger: %+v", entries)
		}
	})

	t.Run("property lock serializes concurrent commits", func(t *testing.T) {
		pool, ctx := setupDB(t)
		repo := NewBookingRepository(pool)
		p, slots := insertFarmhouse(t, ctx, pool)
		now := testNow()

		const users = 6
		var wg sync.WaitGroup
		errs := make(chan error, users)
		for i := 0; i < users; i++ {
			hold := pendingHold(p, slots["Night"], uuid.NewString(), now)
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.WithTx(ctx, func(txCtx context.Context) error {
					if err := repo.LockProperty(txCtx, p.ID); err != nil {
						return err
					}
					ledger, err := repo.ListLedgerEntries(txCtx, p.ID, testDate)
					if err != nil {
						return err
					}
					if !domain.SlotFree(ledger, hold.Date, hold.Label, hold.Timing) {
						return domain.ErrSlotNoLongerAvailable
					}
					time.Sleep(5 * time.Millisecond)
					res := domain.NewReservation(uuid.NewString(), hold, domain.Payment{Reference: uuid.NewString()}, now)
					if err := repo.CreateReservation(txCtx, res); err != nil {
						return err
					}
					return repo.AppendLedgerEntry(txCtx, res.LedgerEntry())
				})
			}()
		}
		wg.Wait()
		close(errs)

		var won, lost int
		for err := range errs {
			switch {
			case err == nil:
				won++
			case errors.Is(err, domain.ErrSlotNoLongerAvailable):
				lost++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if won != 1 || lost != users-1 {
			t.Fatalf("expected exactly one winner, got won=%d lost=%d", won, lost)
		}
	})
}
