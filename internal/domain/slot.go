package domain

import (
	"strings"
	"time"
)

// SlotTemplate is a named, recurring time-of-day window a property rents.
type SlotTemplate struct {
	ID              string
	PropertyID      string
	Label           string
	Timing          TimeRange
	DurationMinutes int
	Price           int64
	Active          bool
	Suspensions     []DateNote
	CreatedAt       time.Time
}

// NewSlotTemplate derives duration and price from timing. A nil explicit
// price means price = round(duration x hourlyRate).
func NewSlotTemplate(propertyID, label, timing string, hourlyRate int64, explicitPrice *int64) (SlotTemplate, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return SlotTemplate{}, ErrSlotLabelNeeded
	}
	tr, err := ParseTimeRange(timing)
	if err != nil {
		return SlotTemplate{}, err
	}
	slot := SlotTemplate{
		PropertyID:      propertyID,
		Label:           label,
		Timing:          tr,
		DurationMinutes: int(tr.Duration() / time.Minute),
		Active:          true,
	}
	if explicitPrice != nil {
		if *explicitPrice < 0 {
			return SlotTemplate{}, ErrInvalidPrice
		}
		slot.Price = *explicitPrice
	} else {
		slot.Price = SlotPrice(slot.Duration(), hourlyRate)
	}
	return slot, nil
}

func (s SlotTemplate) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// Reprice re-derives the price from the stored duration.
func (s SlotTemplate) Reprice(hourlyRate int64) SlotTemplate {
	s.Price = SlotPrice(s.Duration(), hourlyRate)
	return s
}

// SuspendedOn is true for every date when the template is inactive.
func (s SlotTemplate) SuspendedOn(d Date) bool {
	if !s.Active {
		return true
	}
	_, ok := findNote(s.Suspensions, d)
	return ok
}

func (s SlotTemplate) Suspension(d Date) (DateNote, bool) {
	return findNote(s.Suspensions, d)
}
