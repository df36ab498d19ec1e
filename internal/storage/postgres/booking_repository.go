package postgres

import (
	"context"
	"fmt"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingRepository writes the reservation and ledger rows of a commit. The
// ledger's unique slot key is the last line of defence against a double
// booking.
type BookingRepository struct {
	queries
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{queries{pool: pool}}
}

func (r *BookingRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	_, err := r.exec(ctx, `
INSERT INTO reservations (
	id, user_id, property_id, hold_id, slot_date, label, start_minute, end_minute,
	check_in, check_out, slot_price, cleaning_fee, service_fee, total,
	payment_reference, payment_order_id, payment_status, status, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		res.ID, res.UserID, res.PropertyID, res.HoldID, res.Date.Time(), res.Label,
		res.Timing.StartMinute, res.Timing.EndMinute, res.CheckIn, res.CheckOut,
		res.Price.SlotPrice, res.Price.CleaningFee, res.Price.ServiceFee, res.Price.Total,
		res.PaymentReference, res.PaymentOrderID, string(res.PaymentStatus), string(res.Status),
		res.CreatedAt, res.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err, "reservations_hold_id_key"):
			return domain.ErrHoldAlreadyUsed
		case isUniqueViolation(err, "reservations_payment_reference_key"):
			return domain.ErrPaymentReferenceUsed
		case isForeignKeyViolation(err):
			return domain.ErrPropertyNotFound
		case isInvalidUUID(err):
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *BookingRepository) AppendLedgerEntry(ctx context.Context, e domain.LedgerEntry) error {
	_, err := r.exec(ctx, `
INSERT INTO ledger_entries (
	reservation_id, property_id, user_id, slot_date, label, start_minute, end_minute, check_in, check_out, booked_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ReservationID, e.PropertyID, e.UserID, e.Date.Time(), e.Label,
		e.Timing.StartMinute, e.Timing.EndMinute, e.CheckIn, e.CheckOut, e.BookedAt)
	if err != nil {
		if isUniqueViolation(err, "ledger_entries_slot_key") {
			return domain.ErrSlotNoLongerAvailable
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}
