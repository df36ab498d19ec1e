package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/clock"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu        sync.Mutex
	payments  map[string]domain.Payment
	captures  int
	refunds   []domain.Refund
	refundErr error
	fetchErr  error
	// refundStatus is reported for refunds; empty means processed.
	refundStatus string
	// onFetch runs after a successful fetch, e.g. to move the clock.
	onFetch func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]domain.Payment{}}
}

func (g *fakeGateway) add(ref string, status domain.PaymentState, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[ref] = domain.Payment{Reference: ref, Status: status, Amount: amount, Currency: "INR", OrderID: "order_" + ref}
}

func (g *fakeGateway) FetchPayment(_ context.Context, ref string) (domain.Payment, error) {
	g.mu.Lock()
	if g.fetchErr != nil {
		g.mu.Unlock()
		return domain.Payment{}, g.fetchErr
	}
	p, ok := g.payments[ref]
	hook := g.onFetch
	g.mu.Unlock()
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotCompleted
	}
	if hook != nil {
		hook()
	}
	return p, nil
}

func (g *fakeGateway) CapturePayment(_ context.Context, ref string, amount int64, _ string) (domain.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.payments[ref]
	p.Status = domain.PaymentStateCaptured
	p.Amount = amount
	g.payments[ref] = p
	g.captures++
	return p, nil
}

func (g *fakeGateway) RefundPayment(_ context.Context, ref string, amount int64) (domain.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return domain.Refund{}, g.refundErr
	}
	status := g.refundStatus
	if status == "" {
		status = "processed"
	}
	r := domain.Refund{ID: "rfnd_" + ref, Status: status, Amount: amount}
	g.refunds = append(g.refunds, r)
	return r, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, msg domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Title)
	}
	return out
}

var (
	// 2024-05-30 10:00 UTC, two days before the booked date.
	fixtureNow  = time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC)
	fixtureDate = domain.Date{Year: 2024, Month: time.June, Day: 1}
)

type fixture struct {
	store        *memStore
	clock        *clock.Manual
	gateway      *fakeGateway
	notifier     *fakeNotifier
	logs         *logtest.Hook
	catalog      *CatalogService
	availability *AvailabilityService
	fees         *FeeService
	holds        *HoldService
	booking      *BookingService
	cancel       *CancellationService
	reservations *ReservationService

	property domain.Property
	slots    map[string]domain.SlotTemplate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		store:    newMemStore(),
		clock:    clock.NewManual(fixtureNow),
		gateway:  newFakeGateway(),
		notifier: &fakeNotifier{},
		logs:     hook,
	}
	f.catalog = NewCatalogService(f.store, f.clock)
	f.availability = NewAvailabilityService(f.store, f.clock, WithAvailabilityLogger(logger))
	f.fees = NewFeeService(f.store, f.clock, domain.FeeConfig{CleaningFee: 200, ServiceFee: 100})
	f.holds = NewHoldService(f.store, f.availability, f.fees, f.clock)
	f.booking = NewBookingService(f.store, f.gateway, f.clock,
		WithBookingNotifier(f.notifier),
		WithBookingInvalidator(f.availability),
		WithBookingLogger(logger),
	)
	f.cancel = NewCancellationService(f.store, f.gateway, f.clock,
		WithCancellationNotifier(f.notifier),
		WithCancellationInvalidator(f.availability),
		WithCancellationLogger(logger),
	)
	f.reservations = NewReservationService(f.store)

	ctx := context.Background()
	p, err := f.catalog.CreateProperty(ctx, CreatePropertyInput{Name: "Green Acres", HourlyRate: 100, Timezone: "UTC"})
	require.NoError(t, err)
	f.property = p
	f.slots = map[string]domain.SlotTemplate{}
	for label, timing := range map[string]string{"Morning": "9am-1pm", "Evening": "5pm-10pm", "Night": "8pm-6am"} {
		slot, err := f.catalog.DefineSlot(ctx, DefineSlotInput{PropertyID: p.ID, Label: label, Timing: timing})
		require.NoError(t, err)
		f.slots[label] = slot
	}
	return f
}

func (f *fixture) hold(t *testing.T, userID, label string) domain.Hold {
	t.Helper()
	h, err := f.holds.CreateHold(context.Background(), CreateHoldInput{
		UserID:     userID,
		PropertyID: f.property.ID,
		SlotID:     f.slots[label].ID,
		Date:       fixtureDate,
	})
	require.NoError(t, err)
	return h
}

// book places a hold and commits it with a captured payment.
func (f *fixture) book(t *testing.T, userID, label, ref string) domain.Reservation {
	t.Helper()
	h := f.hold(t, userID, label)
	f.gateway.add(ref, domain.PaymentStateCaptured, h.Price.Total)
	r, err := f.booking.Commit(context.Background(), CommitInput{HoldID: h.ID, UserID: userID, PaymentReference: ref})
	require.NoError(t, err)
	return r
}
