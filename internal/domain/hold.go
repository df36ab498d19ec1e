package domain

import "time"

type HoldStatus string

const (
	HoldStatusPending HoldStatus = "pending"
	HoldStatusUsed    HoldStatus = "used"
	HoldStatusExpired HoldStatus = "expired"
)

// Hold is a short-lived, single-user claim on a (property, slot, date)
// pending payment. Holds are advisory: the ledger decides.
type Hold struct {
	ID         string
	UserID     string
	PropertyID string
	SlotID     string
	Date       Date
	Label      string
	Timing     TimeRange
	CheckIn    time.Time
	CheckOut   time.Time
	Price      PriceBreakdown
	Status     HoldStatus
	ExpiresAt  time.Time
	CreatedAt  time.Time
	// IdempotencyKey is optional and unique per user.
	IdempotencyKey string
}

// HoldKey identifies the tuple of which at most one pending hold exists.
type HoldKey struct {
	UserID     string
	PropertyID string
	SlotID     string
	Date       Date
}

func (h Hold) Key() HoldKey {
	return HoldKey{UserID: h.UserID, PropertyID: h.PropertyID, SlotID: h.SlotID, Date: h.Date}
}

// SameRequest reports whether the hold was placed for the same tuple as key.
func (h Hold) SameRequest(key HoldKey) bool {
	return h.Key() == key
}

// ExpiredAt reports whether the hold is past its TTL. now == ExpiresAt is
// expired.
func (h Hold) ExpiredAt(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// UsableAt reports whether the hold can still produce a reservation.
func (h Hold) UsableAt(now time.Time) bool {
	return h.Status == HoldStatusPending && !h.ExpiredAt(now)
}
