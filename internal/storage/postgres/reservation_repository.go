package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReservationRepository reads booking history and applies the cancellation
// and completion transitions.
type ReservationRepository struct {
	queries
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{queries{pool: pool}}
}

const reservationColumns = `id, user_id, property_id, hold_id, slot_date, label, start_minute, end_minute,
	check_in, check_out, slot_price, cleaning_fee, service_fee, total,
	payment_reference, payment_order_id, payment_status, status, created_at, updated_at,
	cancel_reason, cancelled_at, hours_before_check_in, refund_percent, refund_amount,
	cancellation_charge, refund_id, refund_status, requires_manual_review`

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		r             domain.Reservation
		day           time.Time
		paymentStatus string
		status        string
		reason        *string
		cancelledAt   *time.Time
		hoursBefore   *float64
		percent       *int
		refundAmount  *int64
		charge        *int64
		refundID      *string
		refundStatus  *string
		manualReview  bool
	)
	err := row.Scan(&r.ID, &r.UserID, &r.PropertyID, &r.HoldID, &day, &r.Label,
		&r.Timing.StartMinute, &r.Timing.EndMinute, &r.CheckIn, &r.CheckOut,
		&r.Price.SlotPrice, &r.Price.CleaningFee, &r.Price.ServiceFee, &r.Price.Total,
		&r.PaymentReference, &r.PaymentOrderID, &paymentStatus, &status, &r.CreatedAt, &r.UpdatedAt,
		&reason, &cancelledAt, &hoursBefore, &percent, &refundAmount,
		&charge, &refundID, &refundStatus, &manualReview)
	if err != nil {
		return domain.Reservation{}, err
	}
	r.Date = domain.DateOf(day)
	r.PaymentStatus = domain.PaymentStatus(paymentStatus)
	r.Status = domain.ReservationStatus(status)
	if cancelledAt != nil {
		r.Cancellation = &domain.Cancellation{
			Reason:               deref(reason),
			CancelledAt:          *cancelledAt,
			HoursBeforeCheckIn:   deref(hoursBefore),
			RefundPercent:        deref(percent),
			RefundAmount:         deref(refundAmount),
			CancellationCharge:   deref(charge),
			RefundID:             deref(refundID),
			RefundStatus:         domain.RefundStatus(deref(refundStatus)),
			RequiresManualReview: manualReview,
		}
	}
	return r, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func (q queries) GetReservation(ctx context.Context, reservationID string) (domain.Reservation, error) {
	return q.getReservation(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, reservationID)
}

func (q queries) GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error) {
	return q.getReservation(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, reservationID)
}

func (q queries) getReservation(ctx context.Context, sql string, args ...any) (domain.Reservation, error) {
	r, err := scanReservation(q.queryRow(ctx, sql, args...))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// GetReservationByHoldID returns nil when no reservation was made from the hold.
func (q queries) GetReservationByHoldID(ctx context.Context, holdID string) (*domain.Reservation, error) {
	return q.findReservation(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE hold_id = $1`, holdID)
}

// GetReservationByPaymentReference returns nil when the reference is unused.
func (q queries) GetReservationByPaymentReference(ctx context.Context, ref string) (*domain.Reservation, error) {
	return q.findReservation(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE payment_reference = $1`, ref)
}

func (q queries) findReservation(ctx context.Context, sql string, args ...any) (*domain.Reservation, error) {
	r, err := q.getReservation(ctx, sql, args...)
	if err != nil {
		if errors.Is(err, domain.ErrReservationNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// ListReservationsByUser returns the user's reservations, newest first. An
// empty status lists every status.
func (r *ReservationRepository) ListReservationsByUser(ctx context.Context, userID string, status domain.ReservationStatus) ([]domain.Reservation, error) {
	rows, err := r.query(ctx, `
SELECT `+reservationColumns+`
FROM reservations
WHERE user_id = $1 AND ($2 = '' OR status = $2)
ORDER BY created_at DESC, id`, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}
	return out, nil
}

// MarkCancelled persists the status change and the cancellation record.
func (r *ReservationRepository) MarkCancelled(ctx context.Context, res domain.Reservation) error {
	return r.writeCancellation(ctx, res)
}

// UpdateRefund persists the outcome of the refund attempt.
func (r *ReservationRepository) UpdateRefund(ctx context.Context, res domain.Reservation) error {
	return r.writeCancellation(ctx, res)
}

func (r *ReservationRepository) writeCancellation(ctx context.Context, res domain.Reservation) error {
	c := res.Cancellation
	if c == nil {
		return fmt.Errorf("write cancellation %s: no cancellation record", res.ID)
	}
	tag, err := r.exec(ctx, `
UPDATE reservations SET
	status = $2,
	payment_status = $3,
	updated_at = $4,
	cancel_reason = $5,
	cancelled_at = $6,
	hours_before_check_in = $7,
	refund_percent = $8,
	refund_amount = $9,
	cancellation_charge = $10,
	refund_id = NULLIF($11, ''),
	refund_status = $12,
	requires_manual_review = $13
WHERE id = $1`,
		res.ID, string(res.Status), string(res.PaymentStatus), res.UpdatedAt,
		c.Reason, c.CancelledAt, c.HoursBeforeCheckIn, c.RefundPercent, c.RefundAmount,
		c.CancellationCharge, c.RefundID, string(c.RefundStatus), c.RequiresManualReview)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) DeleteLedgerEntry(ctx context.Context, reservationID string) error {
	if _, err := r.exec(ctx, `DELETE FROM ledger_entries WHERE reservation_id = $1`, reservationID); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return nil
}

// FlagStaleRefunds marks cancellations whose refund never reached the
// gateway, because no refund id was recorded before cutoff, for manual review.
func (r *ReservationRepository) FlagStaleRefunds(ctx context.Context, cutoff, now time.Time) (int64, error) {
	tag, err := r.exec(ctx, `
UPDATE reservations
SET requires_manual_review = TRUE, updated_at = $2
WHERE status = 'cancelled'
	AND refund_status = 'pending'
	AND refund_id IS NULL
	AND NOT requires_manual_review
	AND cancelled_at <= $1`, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("flag stale refunds: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CompletePastReservations moves confirmed reservations whose check-out has
// passed to completed. Their ledger entries stay as history.
func (r *ReservationRepository) CompletePastReservations(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.exec(ctx, `
UPDATE reservations
SET status = 'completed', updated_at = $1
WHERE status = 'confirmed' AND check_out <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("complete reservations: %w", err)
	}
	return tag.RowsAffected(), nil
}
