package postgres

import (
	"context"
	"fmt"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository stores properties, slot templates and their date-level
// closures and suspensions.
type CatalogRepository struct {
	queries
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{queries{pool: pool}}
}

func (r *CatalogRepository) CreateProperty(ctx context.Context, p domain.Property) error {
	_, err := r.exec(ctx, `
INSERT INTO properties (id, name, hourly_rate, timezone, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.HourlyRate, p.Timezone, p.Active, p.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert property: %w", err)
	}
	return nil
}

// ListProperties returns properties without their closures.
func (r *CatalogRepository) ListProperties(ctx context.Context) ([]domain.Property, error) {
	rows, err := r.query(ctx, `SELECT `+propertyColumns+` FROM properties ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var properties []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		properties = append(properties, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate properties: %w", rows.Err())
	}
	return properties, nil
}

func (r *CatalogRepository) UpdatePropertyRate(ctx context.Context, propertyID string, hourlyRate int64) error {
	return r.updateProperty(ctx, `UPDATE properties SET hourly_rate = $2 WHERE id = $1`, propertyID, hourlyRate)
}

func (r *CatalogRepository) SetPropertyActive(ctx context.Context, propertyID string, active bool) error {
	return r.updateProperty(ctx, `UPDATE properties SET active = $2 WHERE id = $1`, propertyID, active)
}

func (r *CatalogRepository) updateProperty(ctx context.Context, sql string, args ...any) error {
	tag, err := r.exec(ctx, sql, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update property: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPropertyNotFound
	}
	return nil
}

func (r *CatalogRepository) AddClosure(ctx context.Context, propertyID string, note domain.DateNote) error {
	_, err := r.exec(ctx, `
INSERT INTO property_closures (property_id, closed_on, reason, created_at)
VALUES ($1, $2, $3, $4)`,
		propertyID, note.Date.Time(), note.Reason, note.CreatedAt)
	return noteInsertError(err, "property_closures_pkey", domain.ErrAlreadyClosed, domain.ErrPropertyNotFound)
}

func (r *CatalogRepository) RemoveClosure(ctx context.Context, propertyID string, date domain.Date) error {
	_, err := r.exec(ctx, `DELETE FROM property_closures WHERE property_id = $1 AND closed_on = $2`, propertyID, date.Time())
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete closure: %w", err)
	}
	return nil
}

func (r *CatalogRepository) CreateSlot(ctx context.Context, slot domain.SlotTemplate) error {
	_, err := r.exec(ctx, `
INSERT INTO slot_templates (id, property_id, label, start_minute, end_minute, duration_minutes, price, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		slot.ID, slot.PropertyID, slot.Label, slot.Timing.StartMinute, slot.Timing.EndMinute,
		slot.DurationMinutes, slot.Price, slot.Active, slot.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "slot_templates_label_key") {
			return domain.ErrDuplicateSlotLabel
		}
		if isForeignKeyViolation(err) {
			return domain.ErrPropertyNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateSlotPrice(ctx context.Context, slotID string, price int64) error {
	return r.updateSlot(ctx, `UPDATE slot_templates SET price = $2 WHERE id = $1`, slotID, price)
}

func (r *CatalogRepository) SetSlotActive(ctx context.Context, slotID string, active bool) error {
	return r.updateSlot(ctx, `UPDATE slot_templates SET active = $2 WHERE id = $1`, slotID, active)
}

func (r *CatalogRepository) updateSlot(ctx context.Context, sql string, args ...any) error {
	tag, err := r.exec(ctx, sql, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSlotNotFound
	}
	return nil
}

func (r *CatalogRepository) AddSuspension(ctx context.Context, slotID string, note domain.DateNote) error {
	_, err := r.exec(ctx, `
INSERT INTO slot_suspensions (slot_id, suspended_on, reason, created_at)
VALUES ($1, $2, $3, $4)`,
		slotID, note.Date.Time(), note.Reason, note.CreatedAt)
	return noteInsertError(err, "slot_suspensions_pkey", domain.ErrAlreadySuspended, domain.ErrSlotNotFound)
}

func (r *CatalogRepository) RemoveSuspension(ctx context.Context, slotID string, date domain.Date) error {
	_, err := r.exec(ctx, `DELETE FROM slot_suspensions WHERE slot_id = $1 AND suspended_on = $2`, slotID, date.Time())
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete suspension: %w", err)
	}
	return nil
}

func noteInsertError(err error, pkey string, duplicate, missingParent error) error {
	if err == nil {
		return nil
	}
	switch {
	case isUniqueViolation(err, pkey):
		return duplicate
	case isForeignKeyViolation(err):
		return missingParent
	case isInvalidUUID(err):
		return domain.ErrInvalidID
	}
	return fmt.Errorf("insert date note: %w", err)
}
