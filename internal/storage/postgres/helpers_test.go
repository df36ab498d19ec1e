package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/ganapathi9191/farmhouse-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var testDate = domain.DateOf(time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC))

func setupDB(t *testing.T) (*pgxpool.Pool, context.Context) {
	t.Helper()
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)
	return pool, ctx
}

func insertFarmhouse(t *testing.T, ctx context.Context, pool *pgxpool.Pool) (domain.Property, map[string]domain.SlotTemplate) {
	t.Helper()
	return testutil.InsertProperty(t, ctx, pool, "Green Acres", 100, map[string]string{
		"Morning": "9am-1pm",
		"Night":   "8pm-6am",
	})
}

func pendingHold(p domain.Property, slot domain.SlotTemplate, userID string, now time.Time) domain.Hold {
	checkIn, checkOut := slot.Timing.Resolve(testDate, time.UTC)
	fees := domain.FeeConfig{CleaningFee: 100, ServiceFee: 50}
	return domain.Hold{
		ID:         uuid.NewString(),
		UserID:     userID,
		PropertyID: p.ID,
		SlotID:     slot.ID,
		Date:       testDate,
		Label:      slot.Label,
		Timing:     slot.Timing,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Price:      fees.Breakdown(slot.Price),
		Status:     domain.HoldStatusPending,
		ExpiresAt:  now.Add(10 * time.Minute),
		CreatedAt:  now,
	}
}

func commitHold(t *testing.T, ctx context.Context, repo *BookingRepository, hold domain.Hold, ref string, now time.Time) domain.Reservation {
	t.Helper()
	res := domain.NewReservation(uuid.NewString(), hold, domain.Payment{Reference: ref, Status: domain.PaymentStateCaptured, Amount: hold.Price.Total}, now)
	err := repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := repo.CreateReservation(txCtx, res); err != nil {
			return err
		}
		if err := repo.AppendLedgerEntry(txCtx, res.LedgerEntry()); err != nil {
			return err
		}
		return repo.DeleteHold(txCtx, hold.ID)
	})
	if err != nil {
		t.Fatalf("commit hold: %v", err)
	}
	return res
}

func testNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
