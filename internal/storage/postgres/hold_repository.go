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

type HoldRepository struct {
	queries
}

func NewHoldRepository(pool *pgxpool.Pool) *HoldRepository {
	return &HoldRepository{queries{pool: pool}}
}

// DeletePendingHolds drops the pending holds of one (user, property, slot,
// date) tuple so a new hold can replace them.
func (r *HoldRepository) DeletePendingHolds(ctx context.Context, key domain.HoldKey) (int64, error) {
	tag, err := r.exec(ctx, `
DELETE FROM holds
WHERE user_id = $1 AND property_id = $2 AND slot_id = $3 AND slot_date = $4 AND status = 'pending'`,
		key.UserID, key.PropertyID, key.SlotID, key.Date.Time())
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("delete pending holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *HoldRepository) CreateHold(ctx context.Context, h domain.Hold) error {
	_, err := r.exec(ctx, `
INSERT INTO holds (
	id, user_id, property_id, slot_id, slot_date, label, start_minute, end_minute,
	check_in, check_out, slot_price, cleaning_fee, service_fee, total, status, expires_at, created_at, idempotency_key
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NULLIF($18, ''))`,
		h.ID, h.UserID, h.PropertyID, h.SlotID, h.Date.Time(), h.Label, h.Timing.StartMinute, h.Timing.EndMinute,
		h.CheckIn, h.CheckOut, h.Price.SlotPrice, h.Price.CleaningFee, h.Price.ServiceFee, h.Price.Total,
		string(h.Status), h.ExpiresAt, h.CreatedAt, h.IdempotencyKey)
	if err != nil {
		if isUniqueViolation(err, "holds_pending_tuple_key") {
			return domain.ErrHoldConflict
		}
		if isUniqueViolation(err, "holds_idempotency_key") {
			return domain.ErrIdempotencyConflict
		}
		if isForeignKeyViolation(err) {
			return domain.ErrSlotNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

// DeleteExpiredHolds removes pending holds whose TTL ran out by now.
func (r *HoldRepository) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.exec(ctx, `DELETE FROM holds WHERE status = 'pending' AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired holds: %w", err)
	}
	return tag.RowsAffected(), nil
}

const holdColumns = `id, user_id, property_id, slot_id, slot_date, label, start_minute, end_minute,
	check_in, check_out, slot_price, cleaning_fee, service_fee, total, status, expires_at, created_at, idempotency_key`

func scanHold(row pgx.Row) (domain.Hold, error) {
	var h domain.Hold
	var day time.Time
	var status string
	var key *string
	err := row.Scan(&h.ID, &h.UserID, &h.PropertyID, &h.SlotID, &day, &h.Label,
		&h.Timing.StartMinute, &h.Timing.EndMinute, &h.CheckIn, &h.CheckOut,
		&h.Price.SlotPrice, &h.Price.CleaningFee, &h.Price.ServiceFee, &h.Price.Total,
		&status, &h.ExpiresAt, &h.CreatedAt, &key)
	if err != nil {
		return domain.Hold{}, err
	}
	h.Date = domain.DateOf(day)
	h.Status = domain.HoldStatus(status)
	h.IdempotencyKey = deref(key)
	return h, nil
}

// FindHoldByIdempotencyKey returns nil when the user has no pending hold
// under key.
func (r *HoldRepository) FindHoldByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Hold, error) {
	h, err := scanHold(r.queryRow(ctx,
		`SELECT `+holdColumns+` FROM holds WHERE user_id = $1 AND idempotency_key = $2 AND status = 'pending'`, userID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find hold by idempotency key: %w", err)
	}
	return &h, nil
}

func (q queries) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	return q.getHold(ctx, holdID, false)
}

func (q queries) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	return q.getHold(ctx, holdID, true)
}

func (q queries) getHold(ctx context.Context, holdID string, forUpdate bool) (domain.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	h, err := scanHold(q.queryRow(ctx, query, holdID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Hold{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Hold{}, domain.ErrHoldNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (q queries) DeleteHold(ctx context.Context, holdID string) error {
	if _, err := q.exec(ctx, `DELETE FROM holds WHERE id = $1`, holdID); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete hold: %w", err)
	}
	return nil
}
