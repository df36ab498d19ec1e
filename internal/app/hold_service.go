package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/clock"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetProperty(ctx context.Context, propertyID string) (domain.Property, error)
	GetSlot(ctx context.Context, slotID string) (domain.SlotTemplate, error)
	FindHoldByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Hold, error)
	DeletePendingHolds(ctx context.Context, key domain.HoldKey) (int64, error)
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
}

// SlotChecker answers the best-effort availability question asked before a
// hold is placed.
type SlotChecker interface {
	IsSlotFree(ctx context.Context, propertyID string, date domain.Date, label string, timing domain.TimeRange) (bool, error)
}

// FeeSource supplies the add-on fees in force when a hold is priced.
type FeeSource interface {
	CurrentFees(ctx context.Context) (domain.FeeConfig, error)
}

type HoldService struct {
	repo    HoldRepository
	slots   SlotChecker
	fees    FeeSource
	clock   clock.Clock
	holdTTL time.Duration
}

const (
	defaultHoldTTL = 10 * time.Minute
	MinHoldTTL     = 10 * time.Minute
	MaxHoldTTL     = 30 * time.Minute

	maxIdempotencyKeyLen = 255
)

func NewHoldService(repo HoldRepository, slots SlotChecker, fees FeeSource, clk clock.Clock, opts ...HoldServiceOption) *HoldService {
	svc := &HoldService{
		repo:    repo,
		slots:   slots,
		fees:    fees,
		clock:   clk,
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type HoldServiceOption func(*HoldService)

// WithHoldTTL overrides the default TTL for new holds, clamped to
// [MinHoldTTL, MaxHoldTTL]. Non-positive values are ignored.
func WithHoldTTL(d time.Duration) HoldServiceOption {
	return func(s *HoldService) {
		switch {
		case d <= 0:
		case d < MinHoldTTL:
			s.holdTTL = MinHoldTTL
		case d > MaxHoldTTL:
			s.holdTTL = MaxHoldTTL
		default:
			s.holdTTL = d
		}
	}
}

func (s *HoldService) TTL() time.Duration {
	return s.holdTTL
}

type CreateHoldInput struct {
	UserID     string
	PropertyID string
	SlotID     string
	Date       domain.Date
	// IdempotencyKey is optional. A retry under the same key returns the
	// hold the first request placed while it is still pending.
	IdempotencyKey string
}

// CreateHold places a pending hold priced at the current slot price plus
// fees. Any earlier pending hold for the same user, slot and date is
// replaced, unless the request repeats that hold's idempotency key.
func (s *HoldService) CreateHold(ctx context.Context, in CreateHoldInput) (domain.Hold, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" || in.Date.IsZero() {
		return domain.Hold{}, domain.ErrMissingField
	}
	if !validID(in.PropertyID) || !validID(in.SlotID) {
		return domain.Hold{}, domain.ErrInvalidID
	}
	idemKey := strings.TrimSpace(in.IdempotencyKey)
	if len(idemKey) > maxIdempotencyKeyLen {
		return domain.Hold{}, domain.ErrInvalidIdemKey
	}
	request := domain.HoldKey{UserID: userID, PropertyID: in.PropertyID, SlotID: in.SlotID, Date: in.Date}

	if idemKey != "" {
		if existing, ok, err := s.findReplay(ctx, request, idemKey); err != nil || ok {
			return existing, err
		}
	}

	p, err := s.repo.GetProperty(ctx, in.PropertyID)
	if err != nil {
		return domain.Hold{}, err
	}
	if !p.Active || p.ClosedOn(in.Date) {
		return domain.Hold{}, domain.ErrPropertyInactive
	}
	slot, err := s.repo.GetSlot(ctx, in.SlotID)
	if err != nil {
		return domain.Hold{}, err
	}
	if slot.PropertyID != p.ID {
		return domain.Hold{}, domain.ErrSlotNotFound
	}
	if slot.SuspendedOn(in.Date) {
		return domain.Hold{}, domain.ErrSlotSuspended
	}

	loc, err := p.Location()
	if err != nil {
		return domain.Hold{}, err
	}
	now := s.clock.Now()
	checkIn, checkOut := slot.Timing.Resolve(in.Date, loc)
	if !now.Before(checkIn) {
		return domain.Hold{}, domain.ErrSlotInPast
	}

	free, err := s.slots.IsSlotFree(ctx, p.ID, in.Date, slot.Label, slot.Timing)
	if err != nil {
		return domain.Hold{}, err
	}
	if !free {
		return domain.Hold{}, domain.ErrSlotAlreadyBooked
	}

	fees, err := s.fees.CurrentFees(ctx)
	if err != nil {
		return domain.Hold{}, err
	}

	hold := domain.Hold{
		ID:             newUUID(),
		UserID:         userID,
		PropertyID:     p.ID,
		SlotID:         slot.ID,
		Date:           in.Date,
		Label:          slot.Label,
		Timing:         slot.Timing,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		Price:          fees.Breakdown(slot.Price),
		Status:         domain.HoldStatusPending,
		ExpiresAt:      now.Add(s.holdTTL),
		CreatedAt:      now,
		IdempotencyKey: idemKey,
	}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.DeletePendingHolds(txCtx, hold.Key()); err != nil {
			return err
		}
		return s.repo.CreateHold(txCtx, hold)
	})
	if err != nil {
		// A concurrent request under the same key won the insert.
		if idemKey != "" && (errors.Is(err, domain.ErrIdempotencyConflict) || errors.Is(err, domain.ErrHoldConflict)) {
			if existing, ok, findErr := s.findReplay(ctx, request, idemKey); findErr != nil || ok {
				return existing, findErr
			}
		}
		return domain.Hold{}, err
	}
	return hold, nil
}

// findReplay looks up the pending hold placed under idemKey. ok is false
// when there is none or it has expired. A key reused for another tuple is
// ErrIdempotencyConflict.
func (s *HoldService) findReplay(ctx context.Context, request domain.HoldKey, idemKey string) (domain.Hold, bool, error) {
	existing, err := s.repo.FindHoldByIdempotencyKey(ctx, request.UserID, idemKey)
	if err != nil || existing == nil {
		return domain.Hold{}, false, err
	}
	if !existing.SameRequest(request) {
		return domain.Hold{}, false, domain.ErrIdempotencyConflict
	}
	if !existing.UsableAt(s.clock.Now()) {
		return domain.Hold{}, false, nil
	}
	return *existing, true, nil
}

// GetHold returns a hold that can still be committed.
func (s *HoldService) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	if !validID(holdID) {
		return domain.Hold{}, domain.ErrInvalidID
	}
	hold, err := s.repo.GetHold(ctx, holdID)
	if err != nil {
		return domain.Hold{}, err
	}
	if !hold.UsableAt(s.clock.Now()) {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return hold, nil
}
