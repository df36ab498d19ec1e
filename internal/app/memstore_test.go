package app

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

// memStore is an in-memory store implementing every repository interface.
// Transactions hold a single lock and roll back to a snapshot on error,
// which makes them serializable.
type memStore struct {
	mu   sync.Mutex
	data memData

	// appendLedgerErr, when set, fails the next ledger append.
	appendLedgerErr error
}

type memData struct {
	properties   map[string]domain.Property
	slots        map[string]domain.SlotTemplate
	holds        map[string]domain.Hold
	reservations map[string]domain.Reservation
	ledger       map[string]domain.LedgerEntry
	fees         *domain.FeeConfig
}

func newMemStore() *memStore {
	return &memStore{data: memData{
		properties:   map[string]domain.Property{},
		slots:        map[string]domain.SlotTemplate{},
		holds:        map[string]domain.Hold{},
		reservations: map[string]domain.Reservation{},
		ledger:       map[string]domain.LedgerEntry{},
	}}
}

func (d memData) clone() memData {
	out := memData{
		properties:   maps.Clone(d.properties),
		slots:        maps.Clone(d.slots),
		holds:        maps.Clone(d.holds),
		reservations: maps.Clone(d.reservations),
		ledger:       maps.Clone(d.ledger),
	}
	if d.fees != nil {
		f := *d.fees
		out.fees = &f
	}
	return out
}

type memTxKey struct{}

func (s *memStore) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// Catalog.

func (s *memStore) CreateProperty(ctx context.Context, p domain.Property) error {
	defer s.lock(ctx)()
	s.data.properties[p.ID] = p
	return nil
}

func (s *memStore) GetProperty(ctx context.Context, propertyID string) (domain.Property, error) {
	defer s.lock(ctx)()
	p, ok := s.data.properties[propertyID]
	if !ok {
		return domain.Property{}, domain.ErrPropertyNotFound
	}
	return p, nil
}

func (s *memStore) GetPropertyForUpdate(ctx context.Context, propertyID string) (domain.Property, error) {
	return s.GetProperty(ctx, propertyID)
}

func (s *memStore) LockProperty(ctx context.Context, propertyID string) error {
	_, err := s.GetProperty(ctx, propertyID)
	return err
}

func (s *memStore) ListProperties(ctx context.Context) ([]domain.Property, error) {
	defer s.lock(ctx)()
	out := slices.Collect(maps.Values(s.data.properties))
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) updateProperty(ctx context.Context, propertyID string, fn func(*domain.Property) error) error {
	defer s.lock(ctx)()
	p, ok := s.data.properties[propertyID]
	if !ok {
		return domain.ErrPropertyNotFound
	}
	if err := fn(&p); err != nil {
		return err
	}
	s.data.properties[propertyID] = p
	return nil
}

func (s *memStore) UpdatePropertyRate(ctx context.Context, propertyID string, hourlyRate int64) error {
	return s.updateProperty(ctx, propertyID, func(p *domain.Property) error {
		p.HourlyRate = hourlyRate
		return nil
	})
}

func (s *memStore) SetPropertyActive(ctx context.Context, propertyID string, active bool) error {
	return s.updateProperty(ctx, propertyID, func(p *domain.Property) error {
		p.Active = active
		return nil
	})
}

func (s *memStore) AddClosure(ctx context.Context, propertyID string, note domain.DateNote) error {
	return s.updateProperty(ctx, propertyID, func(p *domain.Property) error {
		if p.ClosedOn(note.Date) {
			return domain.ErrAlreadyClosed
		}
		p.Closures = append(slices.Clone(p.Closures), note)
		return nil
	})
}

func (s *memStore) RemoveClosure(ctx context.Context, propertyID string, date domain.Date) error {
	return s.updateProperty(ctx, propertyID, func(p *domain.Property) error {
		p.Closures = slices.DeleteFunc(slices.Clone(p.Closures), func(n domain.DateNote) bool { return n.Date == date })
		return nil
	})
}

func (s *memStore) ListSlots(ctx context.Context, propertyID string) ([]domain.SlotTemplate, error) {
	defer s.lock(ctx)()
	var out []domain.SlotTemplate
	for _, slot := range s.data.slots {
		if slot.PropertyID == propertyID {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timing.StartMinute < out[j].Timing.StartMinute })
	return out, nil
}

func (s *memStore) GetSlot(ctx context.Context, slotID string) (domain.SlotTemplate, error) {
	defer s.lock(ctx)()
	slot, ok := s.data.slots[slotID]
	if !ok {
		return domain.SlotTemplate{}, domain.ErrSlotNotFound
	}
	return slot, nil
}

func (s *memStore) GetSlotByLabel(ctx context.Context, propertyID, label string) (domain.SlotTemplate, error) {
	defer s.lock(ctx)()
	for _, slot := range s.data.slots {
		if slot.PropertyID == propertyID && slot.Label == label {
			return slot, nil
		}
	}
	return domain.SlotTemplate{}, domain.ErrSlotNotFound
}

func (s *memStore) CreateSlot(ctx context.Context, slot domain.SlotTemplate) error {
	defer s.lock(ctx)()
	for _, existing := range s.data.slots {
		if existing.PropertyID == slot.PropertyID && existing.Label == slot.Label {
			return domain.ErrDuplicateSlotLabel
		}
	}
	s.data.slots[slot.ID] = slot
	return nil
}

func (s *memStore) updateSlot(ctx context.Context, slotID string, fn func(*domain.SlotTemplate) error) error {
	defer s.lock(ctx)()
	slot, ok := s.data.slots[slotID]
	if !ok {
		return domain.ErrSlotNotFound
	}
	if err := fn(&slot); err != nil {
		return err
	}
	s.data.slots[slotID] = slot
	return nil
}

func (s *memStore) UpdateSlotPrice(ctx context.Context, slotID string, price int64) error {
	return s.updateSlot(ctx, slotID, func(slot *domain.SlotTemplate) error {
		slot.Price = price
		return nil
	})
}

func (s *memStore) SetSlotActive(ctx context.Context, slotID string, active bool) error {
	return s.updateSlot(ctx, slotID, func(slot *domain.SlotTemplate) error {
		slot.Active = active
		return nil
	})
}

func (s *memStore) AddSuspension(ctx context.Context, slotID string, note domain.DateNote) error {
	return s.updateSlot(ctx, slotID, func(slot *domain.SlotTemplate) error {
		if _, ok := slot.Suspension(note.Date); ok {
			return domain.ErrAlreadySuspended
		}
		slot.Suspensions = append(slices.Clone(slot.Suspensions), note)
		return nil
	})
}

func (s *memStore) RemoveSuspension(ctx context.Context, slotID string, date domain.Date) error {
	return s.updateSlot(ctx, slotID, func(slot *domain.SlotTemplate) error {
		slot.Suspensions = slices.DeleteFunc(slices.Clone(slot.Suspensions), func(n domain.DateNote) bool { return n.Date == date })
		return nil
	})
}

// Holds.

func (s *memStore) DeletePendingHolds(ctx context.Context, key domain.HoldKey) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for id, h := range s.data.holds {
		if h.Status == domain.HoldStatusPending && h.Key() == key {
			delete(s.data.holds, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateHold(ctx context.Context, hold domain.Hold) error {
	defer s.lock(ctx)()
	for _, h := range s.data.holds {
		if h.Status != domain.HoldStatusPending {
			continue
		}
		if h.Key() == hold.Key() {
			return domain.ErrHoldConflict
		}
		if hold.IdempotencyKey != "" && h.UserID == hold.UserID && h.IdempotencyKey == hold.IdempotencyKey {
			return domain.ErrIdempotencyConflict
		}
	}
	s.data.holds[hold.ID] = hold
	return nil
}

func (s *memStore) FindHoldByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Hold, error) {
	defer s.lock(ctx)()
	for _, h := range s.data.holds {
		if h.Status == domain.HoldStatusPending && h.UserID == userID && h.IdempotencyKey == key {
			return &h, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	defer s.lock(ctx)()
	h, ok := s.data.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return h, nil
}

func (s *memStore) GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error) {
	return s.GetHold(ctx, holdID)
}

func (s *memStore) DeleteHold(ctx context.Context, holdID string) error {
	defer s.lock(ctx)()
	delete(s.data.holds, holdID)
	return nil
}

func (s *memStore) DeleteExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for id, h := range s.data.holds {
		if h.ExpiredAt(now) {
			delete(s.data.holds, id)
			n++
		}
	}
	return n, nil
}

// Reservations and ledger.

func (s *memStore) GetReservationByHoldID(ctx context.Context, holdID string) (*domain.Reservation, error) {
	defer s.lock(ctx)()
	for _, r := range s.data.reservations {
		if r.HoldID == holdID {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetReservationByPaymentReference(ctx context.Context, ref string) (*domain.Reservation, error) {
	defer s.lock(ctx)()
	for _, r := range s.data.reservations {
		if r.PaymentReference == ref {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetReservation(ctx context.Context, reservationID string) (domain.Reservation, error) {
	defer s.lock(ctx)()
	r, ok := s.data.reservations[reservationID]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return r, nil
}

func (s *memStore) GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error) {
	return s.GetReservation(ctx, reservationID)
}

func (s *memStore) ListReservationsByUser(ctx context.Context, userID string, status domain.ReservationStatus) ([]domain.Reservation, error) {
	defer s.lock(ctx)()
	var out []domain.Reservation
	for _, r := range s.data.reservations {
		if r.UserID == userID && (status == "" || r.Status == status) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) CreateReservation(ctx context.Context, r domain.Reservation) error {
	defer s.lock(ctx)()
	for _, existing := range s.data.reservations {
		if existing.HoldID == r.HoldID {
			return domain.ErrHoldAlreadyUsed
		}
		if existing.PaymentReference == r.PaymentReference {
			return domain.ErrPaymentReferenceUsed
		}
	}
	s.data.reservations[r.ID] = r
	return nil
}

func (s *memStore) MarkCancelled(ctx context.Context, r domain.Reservation) error {
	defer s.lock(ctx)()
	if _, ok := s.data.reservations[r.ID]; !ok {
		return domain.ErrReservationNotFound
	}
	s.data.reservations[r.ID] = r
	return nil
}

func (s *memStore) UpdateRefund(ctx context.Context, r domain.Reservation) error {
	return s.MarkCancelled(ctx, r)
}

func (s *memStore) CompletePastReservations(ctx context.Context, now time.Time) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for id, r := range s.data.reservations {
		if r.Status == domain.ReservationConfirmed && !now.Before(r.CheckOut) {
			r.Status = domain.ReservationCompleted
			r.UpdatedAt = now
			s.data.reservations[id] = r
			n++
		}
	}
	return n, nil
}

func (s *memStore) FlagStaleRefunds(ctx context.Context, cutoff, now time.Time) (int64, error) {
	defer s.lock(ctx)()
	var n int64
	for id, r := range s.data.reservations {
		c := r.Cancellation
		if r.Status != domain.ReservationCancelled || c == nil {
			continue
		}
		if c.RefundStatus == domain.RefundPending && c.RefundID == "" && !c.RequiresManualReview && !c.CancelledAt.After(cutoff) {
			flagged := *c
			flagged.RequiresManualReview = true
			r.Cancellation = &flagged
			r.UpdatedAt = now
			s.data.reservations[id] = r
			n++
		}
	}
	return n, nil
}

func (s *memStore) ListLedgerEntries(ctx context.Context, propertyID string, date domain.Date) ([]domain.LedgerEntry, error) {
	defer s.lock(ctx)()
	var out []domain.LedgerEntry
	for _, e := range s.data.ledger {
		if e.PropertyID == propertyID && e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) AppendLedgerEntry(ctx context.Context, e domain.LedgerEntry) error {
	defer s.lock(ctx)()
	if s.appendLedgerErr != nil {
		err := s.appendLedgerErr
		s.appendLedgerErr = nil
		return err
	}
	for _, existing := range s.data.ledger {
		if existing.PropertyID == e.PropertyID && existing.Matches(e.Date, e.Label, e.Timing) {
			return domain.ErrSlotNoLongerAvailable
		}
	}
	s.data.ledger[e.ReservationID] = e
	return nil
}

func (s *memStore) DeleteLedgerEntry(ctx context.Context, reservationID string) error {
	defer s.lock(ctx)()
	delete(s.data.ledger, reservationID)
	return nil
}

// Fees.

func (s *memStore) GetFees(ctx context.Context) (*domain.FeeConfig, error) {
	defer s.lock(ctx)()
	if s.data.fees == nil {
		return nil, nil
	}
	f := *s.data.fees
	return &f, nil
}

func (s *memStore) SaveFees(ctx context.Context, f domain.FeeConfig) error {
	defer s.lock(ctx)()
	s.data.fees = &f
	return nil
}

// Inspection helpers for assertions.

func (s *memStore) ledgerCount(propertyID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.data.ledger {
		if e.PropertyID == propertyID {
			n++
		}
	}
	return n
}

func (s *memStore) reservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.reservations)
}

func (s *memStore) pendingHolds(key domain.HoldKey) []domain.Hold {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Hold
	for _, h := range s.data.holds {
		if h.Status == domain.HoldStatusPending && h.Key() == key {
			out = append(out, h)
		}
	}
	return out
}
