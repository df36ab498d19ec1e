package domain

import (
	"iter"
	"time"
)

const (
	ReasonInactiveOnDate = "inactive on date"
	ReasonAlreadyBooked  = "already booked"
)

// SlotAvailability is the evaluation of one template on one date.
type SlotAvailability struct {
	SlotID    string
	Label     string
	Timing    TimeRange
	Price     int64
	CheckIn   time.Time
	CheckOut  time.Time
	Available bool
	Reason    string
	// Started is set once check-in has passed. It does not affect
	// Available, which reflects the ledger only. Holds on a started slot
	// are refused with ErrSlotInPast.
	Started bool
}

// EvaluateSlots yields an evaluation for every active template of an active
// property that is open on date. The sequence can be ranged over any number
// of times.
func EvaluateSlots(p Property, loc *time.Location, slots []SlotTemplate, date Date, ledger []LedgerEntry, now time.Time) iter.Seq[SlotAvailability] {
	return func(yield func(SlotAvailability) bool) {
		if !p.Active || p.ClosedOn(date) {
			return
		}
		for _, slot := range slots {
			if !slot.Active {
				continue
			}
			if !yield(evaluate(slot, loc, date, ledger, now)) {
				return
			}
		}
	}
}

func evaluate(slot SlotTemplate, loc *time.Location, date Date, ledger []LedgerEntry, now time.Time) SlotAvailability {
	checkIn, checkOut := slot.Timing.Resolve(date, loc)
	out := SlotAvailability{
		SlotID:   slot.ID,
		Label:    slot.Label,
		Timing:   slot.Timing,
		Price:    slot.Price,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Started:  !now.Before(checkIn),
	}
	switch {
	case slot.SuspendedOn(date):
		out.Reason = ReasonInactiveOnDate
	case !SlotFree(ledger, date, slot.Label, slot.Timing):
		out.Reason = ReasonAlreadyBooked
	default:
		out.Available = true
	}
	return out
}

// SlotFree reports whether no ledger entry occupies (date, label, timing).
// The availability listing and the commit-time re-check both use it.
func SlotFree(ledger []LedgerEntry, date Date, label string, timing TimeRange) bool {
	for _, e := range ledger {
		if e.Matches(date, label, timing) {
			return false
		}
	}
	return true
}
