package app

import (
	"context"
	"iter"

	"github.com/ganapathi9191/farmhouse-backend/internal/clock"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/sirupsen/logrus"
)

type AvailabilityRepository interface {
	GetProperty(ctx context.Context, propertyID string) (domain.Property, error)
	ListSlots(ctx context.Context, propertyID string) ([]domain.SlotTemplate, error)
	ListLedgerEntries(ctx context.Context, propertyID string, date domain.Date) ([]domain.LedgerEntry, error)
}

// LedgerCache is a read-through cache of a property's ledger for one date.
// A miss is reported as ok == false with a nil error.
type LedgerCache interface {
	GetLedger(ctx context.Context, propertyID string, date domain.Date) (entries []domain.LedgerEntry, ok bool, err error)
	SetLedger(ctx context.Context, propertyID string, date domain.Date, entries []domain.LedgerEntry) error
	InvalidateLedger(ctx context.Context, propertyID string, date domain.Date) error
}

// AvailabilityService answers "which slots are free on this date".
type AvailabilityService struct {
	repo  AvailabilityRepository
	clock clock.Clock
	cache LedgerCache
	log   logrus.FieldLogger
}

type AvailabilityServiceOption func(*AvailabilityService)

func WithLedgerCache(c LedgerCache) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		s.cache = c
	}
}

func WithAvailabilityLogger(l logrus.FieldLogger) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		if l != nil {
			s.log = l
		}
	}
}

func NewAvailabilityService(repo AvailabilityRepository, clk clock.Clock, opts ...AvailabilityServiceOption) *AvailabilityService {
	svc := &AvailabilityService{
		repo:  repo,
		clock: clk,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ListAvailableSlots evaluates every active template of the property on
// date. Store reads happen up front; the returned sequence is pure and can
// be ranged over repeatedly.
func (s *AvailabilityService) ListAvailableSlots(ctx context.Context, propertyID string, date domain.Date) (iter.Seq[domain.SlotAvailability], error) {
	if !validID(propertyID) {
		return nil, domain.ErrInvalidID
	}
	if date.IsZero() {
		return nil, domain.ErrMissingField
	}
	p, err := s.repo.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	loc, err := p.Location()
	if err != nil {
		return nil, err
	}
	if !p.Active || p.ClosedOn(date) {
		return domain.EvaluateSlots(p, loc, nil, date, nil, s.clock.Now()), nil
	}
	slots, err := s.repo.ListSlots(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.ledger(ctx, propertyID, date)
	if err != nil {
		return nil, err
	}
	return domain.EvaluateSlots(p, loc, slots, date, ledger, s.clock.Now()), nil
}

// IsSlotFree reports whether no confirmed reservation occupies the exact
// (date, label, timing) tuple.
func (s *AvailabilityService) IsSlotFree(ctx context.Context, propertyID string, date domain.Date, label string, timing domain.TimeRange) (bool, error) {
	ledger, err := s.ledger(ctx, propertyID, date)
	if err != nil {
		return false, err
	}
	return domain.SlotFree(ledger, date, label, timing), nil
}

// InvalidateLedger drops the cached ledger for one date. Cache failures are
// logged, never returned: the store stays authoritative.
func (s *AvailabilityService) InvalidateLedger(ctx context.Context, propertyID string, date domain.Date) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateLedger(ctx, propertyID, date); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"property_id": propertyID,
			"date":        date.String(),
		}).Warn("ledger cache invalidation failed")
	}
}

func (s *AvailabilityService) ledger(ctx context.Context, propertyID string, date domain.Date) ([]domain.LedgerEntry, error) {
	if s.cache != nil {
		entries, ok, err := s.cache.GetLedger(ctx, propertyID, date)
		if err != nil {
			s.log.WithError(err).WithField("property_id", propertyID).Warn("ledger cache read failed")
		} else if ok {
			return entries, nil
		}
	}
	entries, err := s.repo.ListLedgerEntries(ctx, propertyID, date)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetLedger(ctx, propertyID, date, entries); err != nil {
			s.log.WithError(err).WithField("property_id", propertyID).Warn("ledger cache write failed")
		}
	}
	return entries, nil
}
