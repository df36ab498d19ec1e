package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeeRepository keeps the single active fee configuration row.
type FeeRepository struct {
	queries
}

func NewFeeRepository(pool *pgxpool.Pool) *FeeRepository {
	return &FeeRepository{queries{pool: pool}}
}

// GetFees returns nil when no configuration was saved yet.
func (r *FeeRepository) GetFees(ctx context.Context) (*domain.FeeConfig, error) {
	var f domain.FeeConfig
	err := r.queryRow(ctx, `SELECT cleaning_fee, service_fee, updated_at FROM fee_configs WHERE id = 1`).
		Scan(&f.CleaningFee, &f.ServiceFee, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fees: %w", err)
	}
	return &f, nil
}

func (r *FeeRepository) SaveFees(ctx context.Context, f domain.FeeConfig) error {
	_, err := r.exec(ctx, `
INSERT INTO fee_configs (id, cleaning_fee, service_fee, updated_at)
VALUES (1, $1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET cleaning_fee = EXCLUDED.cleaning_fee, service_fee = EXCLUDED.service_fee, updated_at = EXCLUDED.updated_at`,
		f.CleaningFee, f.ServiceFee, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save fees: %w", err)
	}
	return nil
}
