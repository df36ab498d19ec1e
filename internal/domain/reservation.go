package domain

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

type PaymentStatus string

const (
	PaymentCompleted         PaymentStatus = "completed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentRefundPending     PaymentStatus = "refund_pending"
	PaymentForfeited         PaymentStatus = "forfeited"
)

type RefundStatus string

const (
	RefundNotApplicable RefundStatus = "not_applicable"
	RefundPending       RefundStatus = "pending"
	RefundProcessed     RefundStatus = "processed"
	RefundFailed        RefundStatus = "failed"
)

// Reservation is a paid, confirmed booking. Slot label, timing and price
// are snapshots taken at commit time.
type Reservation struct {
	ID               string
	UserID           string
	PropertyID       string
	HoldID           string
	Date             Date
	Label            string
	Timing           TimeRange
	CheckIn          time.Time
	CheckOut         time.Time
	Price            PriceBreakdown
	PaymentReference string
	PaymentOrderID   string
	PaymentStatus    PaymentStatus
	Status           ReservationStatus
	Cancellation     *Cancellation
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Cancellation records how a reservation was reversed and what was refunded.
type Cancellation struct {
	Reason               string
	CancelledAt          time.Time
	HoursBeforeCheckIn   float64
	RefundPercent        int
	RefundAmount         int64
	CancellationCharge   int64
	RefundID             string
	RefundStatus         RefundStatus
	RequiresManualReview bool
}

// NewReservation converts a consumed hold into a confirmed reservation.
func NewReservation(id string, hold Hold, payment Payment, now time.Time) Reservation {
	return Reservation{
		ID:               id,
		UserID:           hold.UserID,
		PropertyID:       hold.PropertyID,
		HoldID:           hold.ID,
		Date:             hold.Date,
		Label:            hold.Label,
		Timing:           hold.Timing,
		CheckIn:          hold.CheckIn,
		CheckOut:         hold.CheckOut,
		Price:            hold.Price,
		PaymentReference: payment.Reference,
		PaymentOrderID:   payment.OrderID,
		PaymentStatus:    PaymentCompleted,
		Status:           ReservationConfirmed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// LedgerEntry returns the property ledger row for the reservation.
func (r Reservation) LedgerEntry() LedgerEntry {
	return LedgerEntry{
		ReservationID: r.ID,
		PropertyID:    r.PropertyID,
		UserID:        r.UserID,
		Date:          r.Date,
		Label:         r.Label,
		Timing:        r.Timing,
		CheckIn:       r.CheckIn,
		CheckOut:      r.CheckOut,
		BookedAt:      r.CreatedAt,
	}
}

// CheckCancellable validates the status transition confirmed -> cancelled.
func (r Reservation) CheckCancellable() error {
	switch r.Status {
	case ReservationConfirmed:
		return nil
	case ReservationCancelled:
		return ErrAlreadyCancelled
	default:
		return ErrInvalidStatus
	}
}

// LedgerEntry is one confirmed booking in a property's ledger, the source of
// truth for availability.
type LedgerEntry struct {
	ReservationID string
	PropertyID    string
	UserID        string
	Date          Date
	Label         string
	Timing        TimeRange
	CheckIn       time.Time
	CheckOut      time.Time
	BookedAt      time.Time
}

// Matches applies the exact booking rule: same date, label and timing.
func (e LedgerEntry) Matches(date Date, label string, timing TimeRange) bool {
	return e.Date == date && e.Label == label && e.Timing == timing
}
