package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queries holds the pool and the reads shared by several repositories.
// Every method runs inside the context's transaction when there is one.
type queries struct {
	pool *pgxpool.Pool
}

func (q queries) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, q.pool, fn)
}

func (q queries) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return q.pool.Exec(ctx, sql, args...)
}

func (q queries) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return q.pool.Query(ctx, sql, args...)
}

func (q queries) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return q.pool.QueryRow(ctx, sql, args...)
}

const propertyColumns = `id, name, hourly_rate, timezone, active, created_at`

func scanProperty(row pgx.Row) (domain.Property, error) {
	var p domain.Property
	err := row.Scan(&p.ID, &p.Name, &p.HourlyRate, &p.Timezone, &p.Active, &p.CreatedAt)
	return p, err
}

func (q queries) GetProperty(ctx context.Context, propertyID string) (domain.Property, error) {
	return q.getProperty(ctx, propertyID, false)
}

// GetPropertyForUpdate locks the property row. Every ledger write takes
// this lock first, which serializes bookings per property.
func (q queries) GetPropertyForUpdate(ctx context.Context, propertyID string) (domain.Property, error) {
	return q.getProperty(ctx, propertyID, true)
}

func (q queries) LockProperty(ctx context.Context, propertyID string) error {
	_, err := q.getProperty(ctx, propertyID, true)
	return err
}

func (q queries) getProperty(ctx context.Context, propertyID string, forUpdate bool) (domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanProperty(q.queryRow(ctx, query, propertyID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Property{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Property{}, domain.ErrPropertyNotFound
		}
		return domain.Property{}, fmt.Errorf("get property: %w", err)
	}

	closures, err := q.listNotes(ctx, `
SELECT closed_on, reason, created_at
FROM property_closures
WHERE property_id = $1
ORDER BY closed_on`, propertyID)
	if err != nil {
		return domain.Property{}, fmt.Errorf("list closures: %w", err)
	}
	p.Closures = closures
	return p, nil
}

func (q queries) listNotes(ctx context.Context, sql string, args ...any) ([]domain.DateNote, error) {
	rows, err := q.query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.DateNote
	for rows.Next() {
		var day time.Time
		var n domain.DateNote
		if err := rows.Scan(&day, &n.Reason, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Date = domain.DateOf(day)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

const slotColumns = `id, property_id, label, start_minute, end_minute, duration_minutes, price, active, created_at`

func scanSlot(row pgx.Row) (domain.SlotTemplate, error) {
	var s domain.SlotTemplate
	err := row.Scan(&s.ID, &s.PropertyID, &s.Label, &s.Timing.StartMinute, &s.Timing.EndMinute,
		&s.DurationMinutes, &s.Price, &s.Active, &s.CreatedAt)
	return s, err
}

// ListSlots returns the property's templates with their suspensions,
// ordered by start time.
func (q queries) ListSlots(ctx context.Context, propertyID string) ([]domain.SlotTemplate, error) {
	rows, err := q.query(ctx, `
SELECT `+slotColumns+`
FROM slot_templates
WHERE property_id = $1
ORDER BY start_minute, label`, propertyID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []domain.SlotTemplate
	index := make(map[string]int)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		index[s.ID] = len(slots)
		slots = append(slots, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate slots: %w", rows.Err())
	}
	if len(slots) == 0 {
		return slots, nil
	}

	susp, err := q.query(ctx, `
SELECT s.slot_id, s.suspended_on, s.reason, s.created_at
FROM slot_suspensions s
JOIN slot_templates t ON t.id = s.slot_id
WHERE t.property_id = $1
ORDER BY s.suspended_on`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list suspensions: %w", err)
	}
	defer susp.Close()
	for susp.Next() {
		var slotID string
		var day time.Time
		var n domain.DateNote
		if err := susp.Scan(&slotID, &day, &n.Reason, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan suspension: %w", err)
		}
		n.Date = domain.DateOf(day)
		if i, ok := index[slotID]; ok {
			slots[i].Suspensions = append(slots[i].Suspensions, n)
		}
	}
	if susp.Err() != nil {
		return nil, fmt.Errorf("iterate suspensions: %w", susp.Err())
	}
	return slots, nil
}

func (q queries) GetSlot(ctx context.Context, slotID string) (domain.SlotTemplate, error) {
	return q.getSlot(ctx, `SELECT `+slotColumns+` FROM slot_templates WHERE id = $1`, slotID)
}

func (q queries) GetSlotByLabel(ctx context.Context, propertyID, label string) (domain.SlotTemplate, error) {
	return q.getSlot(ctx, `SELECT `+slotColumns+` FROM slot_templates WHERE property_id = $1 AND label = $2`, propertyID, label)
}

func (q queries) getSlot(ctx context.Context, sql string, args ...any) (domain.SlotTemplate, error) {
	s, err := scanSlot(q.queryRow(ctx, sql, args...))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.SlotTemplate{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SlotTemplate{}, domain.ErrSlotNotFound
		}
		return domain.SlotTemplate{}, fmt.Errorf("get slot: %w", err)
	}
	s.Suspensions, err = q.listNotes(ctx, `
SELECT suspended_on, reason, created_at
FROM slot_suspensions
WHERE slot_id = $1
ORDER BY suspended_on`, s.ID)
	if err != nil {
		return domain.SlotTemplate{}, fmt.Errorf("list suspensions: %w", err)
	}
	return s, nil
}

// ListLedgerEntries returns the confirmed bookings of a property on date.
func (q queries) ListLedgerEntries(ctx context.Context, propertyID string, date domain.Date) ([]domain.LedgerEntry, error) {
	rows, err := q.query(ctx, `
SELECT reservation_id, property_id, user_id, slot_date, label, start_minute, end_minute, check_in, check_out, booked_at
FROM ledger_entries
WHERE property_id = $1 AND slot_date = $2
ORDER BY start_minute`, propertyID, date.Time())
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var day time.Time
		if err := rows.Scan(&e.ReservationID, &e.PropertyID, &e.UserID, &day, &e.Label,
			&e.Timing.StartMinute, &e.Timing.EndMinute, &e.CheckIn, &e.CheckOut, &e.BookedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Date = domain.DateOf(day)
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate ledger: %w", rows.Err())
	}
	return entries, nil
}
