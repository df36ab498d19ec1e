package domain

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Property is a rentable farmhouse with its own slot catalog and ledger.
type Property struct {
	ID         string
	Name       string
	HourlyRate int64
	// Timezone is an IANA name; slot times resolve in property-local time.
	Timezone  string
	Active    bool
	Closures  []DateNote
	CreatedAt time.Time
}

// DateNote marks a single calendar date with a reason (a closure or a
// slot suspension).
type DateNote struct {
	Date      Date
	Reason    string
	CreatedAt time.Time
}

func (p Property) Location() (*time.Location, error) {
	return LoadLocation(p.Timezone)
}

// ClosedOn reports whether the whole property is inactive on d.
func (p Property) ClosedOn(d Date) bool {
	_, ok := findNote(p.Closures, d)
	return ok
}

// LoadLocation resolves an IANA timezone name; empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}

func findNote(notes []DateNote, d Date) (DateNote, bool) {
	for _, n := range notes {
		if n.Date == d {
			return n, true
		}
	}
	return DateNote{}, false
}
