package app

import (
	"context"
	"errors"
	"strings"

	"github.com/ganapathi9191/farmhouse-backend/internal/clock"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

type CatalogRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateProperty(ctx context.Context, p domain.Property) error
	GetProperty(ctx context.Context, propertyID string) (domain.Property, error)
	GetPropertyForUpdate(ctx context.Context, propertyID string) (domain.Property, error)
	ListProperties(ctx context.Context) ([]domain.Property, error)
	UpdatePropertyRate(ctx context.Context, propertyID string, hourlyRate int64) error
	SetPropertyActive(ctx context.Context, propertyID string, active bool) error
	AddClosure(ctx context.Context, propertyID string, note domain.DateNote) error
	RemoveClosure(ctx context.Context, propertyID string, date domain.Date) error

	ListSlots(ctx context.Context, propertyID string) ([]domain.SlotTemplate, error)
	GetSlotByLabel(ctx context.Context, propertyID, label string) (domain.SlotTemplate, error)
	CreateSlot(ctx context.Context, slot domain.SlotTemplate) error
	UpdateSlotPrice(ctx context.Context, slotID string, price int64) error
	SetSlotActive(ctx context.Context, slotID string, active bool) error
	AddSuspension(ctx context.Context, slotID string, note domain.DateNote) error
	RemoveSuspension(ctx context.Context, slotID string, date domain.Date) error
}

// CatalogService manages properties and their slot templates.
type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreatePropertyInput struct {
	Name       string
	HourlyRate int64
	Timezone   string
}

func (s *CatalogService) CreateProperty(ctx context.Context, in CreatePropertyInput) (domain.Property, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Property{}, domain.ErrPropertyNameNeeded
	}
	if in.HourlyRate < 0 {
		return domain.Property{}, domain.ErrInvalidRate
	}
	if _, err := domain.LoadLocation(in.Timezone); err != nil {
		return domain.Property{}, err
	}
	tz := in.Timezone
	if tz == "" {
		tz = "UTC"
	}

	p := domain.Property{
		ID:         newUUID(),
		Name:       name,
		HourlyRate: in.HourlyRate,
		Timezone:   tz,
		Active:     true,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.CreateProperty(ctx, p); err != nil {
		return domain.Property{}, err
	}
	return p, nil
}

func (s *CatalogService) GetProperty(ctx context.Context, propertyID string) (domain.Property, error) {
	if !validID(propertyID) {
		return domain.Property{}, domain.ErrInvalidID
	}
	return s.repo.GetProperty(ctx, propertyID)
}

func (s *CatalogService) ListProperties(ctx context.Context) ([]domain.Property, error) {
	return s.repo.ListProperties(ctx)
}

func (s *CatalogService) SetPropertyActive(ctx context.Context, propertyID string, active bool) error {
	if !validID(propertyID) {
		return domain.ErrInvalidID
	}
	return s.repo.SetPropertyActive(ctx, propertyID, active)
}

type DefineSlotInput struct {
	PropertyID string
	Label      string
	Timing     string
	// Price overrides the rate-derived price when set.
	Price *int64
}

func (s *CatalogService) DefineSlot(ctx context.Context, in DefineSlotInput) (domain.SlotTemplate, error) {
	if !validID(in.PropertyID) {
		return domain.SlotTemplate{}, domain.ErrInvalidID
	}

	var result domain.SlotTemplate
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.repo.GetPropertyForUpdate(txCtx, in.PropertyID)
		if err != nil {
			return err
		}
		slot, err := domain.NewSlotTemplate(p.ID, in.Label, in.Timing, p.HourlyRate, in.Price)
		if err != nil {
			return err
		}

		if _, err := s.repo.GetSlotByLabel(txCtx, p.ID, slot.Label); err == nil {
			return domain.ErrDuplicateSlotLabel
		} else if !errors.Is(err, domain.ErrSlotNotFound) {
			return err
		}

		slot.ID = newUUID()
		slot.CreatedAt = s.clock.Now()
		if err := s.repo.CreateSlot(txCtx, slot); err != nil {
			return err
		}
		result = slot
		return nil
	})
	if err != nil {
		return domain.SlotTemplate{}, err
	}
	return result, nil
}

func (s *CatalogService) ListSlots(ctx context.Context, propertyID string) ([]domain.SlotTemplate, error) {
	if !validID(propertyID) {
		return nil, domain.ErrInvalidID
	}
	if _, err := s.repo.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.repo.ListSlots(ctx, propertyID)
}

// RecalculatePricesOnRateChange stores the new rate and re-derives every
// template's price from its stored duration in the same transaction.
// Explicit prices are overwritten.
func (s *CatalogService) RecalculatePricesOnRateChange(ctx context.Context, propertyID string, hourlyRate int64) ([]domain.SlotTemplate, error) {
	if !validID(propertyID) {
		return nil, domain.ErrInvalidID
	}
	if hourlyRate < 0 {
		return nil, domain.ErrInvalidRate
	}

	var result []domain.SlotTemplate
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetPropertyForUpdate(txCtx, propertyID); err != nil {
			return err
		}
		if err := s.repo.UpdatePropertyRate(txCtx, propertyID, hourlyRate); err != nil {
			return err
		}
		slots, err := s.repo.ListSlots(txCtx, propertyID)
		if err != nil {
			return err
		}
		result = make([]domain.SlotTemplate, 0, len(slots))
		for _, slot := range slots {
			repriced := slot.Reprice(hourlyRate)
			if err := s.repo.UpdateSlotPrice(txCtx, slot.ID, repriced.Price); err != nil {
				return err
			}
			result = append(result, repriced)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetSlotActive toggles a template for every date.
func (s *CatalogService) SetSlotActive(ctx context.Context, propertyID, label string, active bool) error {
	slot, err := s.slotByLabel(ctx, propertyID, label)
	if err != nil {
		return err
	}
	return s.repo.SetSlotActive(ctx, slot.ID, active)
}

type SuspendSlotInput struct {
	PropertyID string
	Label      string
	Date       domain.Date
	Reason     string
}

func (s *CatalogService) SuspendSlotOnDate(ctx context.Context, in SuspendSlotInput) error {
	if in.Date.IsZero() {
		return domain.ErrMissingField
	}
	slot, err := s.slotByLabel(ctx, in.PropertyID, in.Label)
	if err != nil {
		return err
	}
	if _, ok := slot.Suspension(in.Date); ok {
		return domain.ErrAlreadySuspended
	}
	return s.repo.AddSuspension(ctx, slot.ID, domain.DateNote{
		Date:      in.Date,
		Reason:    strings.TrimSpace(in.Reason),
		CreatedAt: s.clock.Now(),
	})
}

// ReactivateSlotOnDate removes a suspension. Removing one that does not
// exist is not an error.
func (s *CatalogService) ReactivateSlotOnDate(ctx context.Context, propertyID, label string, date domain.Date) error {
	if date.IsZero() {
		return domain.ErrMissingField
	}
	slot, err := s.slotByLabel(ctx, propertyID, label)
	if err != nil {
		return err
	}
	return s.repo.RemoveSuspension(ctx, slot.ID, date)
}

type ClosePropertyInput struct {
	PropertyID string
	Date       domain.Date
	Reason     string
}

// CloseProperty takes the whole property off sale for one date.
func (s *CatalogService) CloseProperty(ctx context.Context, in ClosePropertyInput) error {
	if !validID(in.PropertyID) {
		return domain.ErrInvalidID
	}
	if in.Date.IsZero() {
		return domain.ErrMissingField
	}
	p, err := s.repo.GetProperty(ctx, in.PropertyID)
	if err != nil {
		return err
	}
	if p.ClosedOn(in.Date) {
		return domain.ErrAlreadyClosed
	}
	return s.repo.AddClosure(ctx, p.ID, domain.DateNote{
		Date:      in.Date,
		Reason:    strings.TrimSpace(in.Reason),
		CreatedAt: s.clock.Now(),
	})
}

func (s *CatalogService) ReopenProperty(ctx context.Context, propertyID string, date domain.Date) error {
	if !validID(propertyID) {
		return domain.ErrInvalidID
	}
	if date.IsZero() {
		return domain.ErrMissingField
	}
	if _, err := s.repo.GetProperty(ctx, propertyID); err != nil {
		return err
	}
	return s.repo.RemoveClosure(ctx, propertyID, date)
}

func (s *CatalogService) slotByLabel(ctx context.Context, propertyID, label string) (domain.SlotTemplate, error) {
	if !validID(propertyID) {
		return domain.SlotTemplate{}, domain.ErrInvalidID
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.SlotTemplate{}, domain.ErrSlotLabelNeeded
	}
	if _, err := s.repo.GetProperty(ctx, propertyID); err != nil {
		return domain.SlotTemplate{}, err
	}
	return s.repo.GetSlotByLabel(ctx, propertyID, label)
}
