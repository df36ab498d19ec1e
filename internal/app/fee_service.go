package app

import (
	"context"

	"github.com/ganapathi9191/farmhouse-backend/internal/clock"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

type FeeRepository interface {
	// GetFees returns nil when no fee configuration was ever saved.
	GetFees(ctx context.Context) (*domain.FeeConfig, error)
	SaveFees(ctx context.Context, f domain.FeeConfig) error
}

// FeeService owns the active cleaning and service fees.
type FeeService struct {
	repo     FeeRepository
	clock    clock.Clock
	defaults domain.FeeConfig
}

func NewFeeService(repo FeeRepository, clk clock.Clock, defaults domain.FeeConfig) *FeeService {
	return &FeeService{
		repo:     repo,
		clock:    clk,
		defaults: defaults,
	}
}

// CurrentFees falls back to the configured defaults until an admin saves a
// fee configuration.
func (s *FeeService) CurrentFees(ctx context.Context) (domain.FeeConfig, error) {
	f, err := s.repo.GetFees(ctx)
	if err != nil {
		return domain.FeeConfig{}, err
	}
	if f == nil {
		return s.defaults, nil
	}
	return *f, nil
}

func (s *FeeService) UpdateFees(ctx context.Context, cleaningFee, serviceFee int64) (domain.FeeConfig, error) {
	f := domain.FeeConfig{
		CleaningFee: cleaningFee,
		ServiceFee:  serviceFee,
		UpdatedAt:   s.clock.Now(),
	}
	if err := f.Validate(); err != nil {
		return domain.FeeConfig{}, err
	}
	if err := s.repo.SaveFees(ctx, f); err != nil {
		return domain.FeeConfig{}, err
	}
	return f, nil
}
