package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeRange is a recurring time-of-day window as minute-of-day offsets.
// EndMinute <= StartMinute means the window crosses midnight.
type TimeRange struct {
	StartMinute int
	EndMinute   int
}

// Accepts "9am", "9:30am" and "9am:30".
var clockPattern = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)(?::(\d{2}))?$`)

// ParseTimeRange parses strings such as "9am-8pm" or "9:30am - 5:30pm".
func ParseTimeRange(s string) (TimeRange, error) {
	normalized := strings.ToLower(strings.Join(strings.Fields(s), ""))
	start, end, ok := strings.Cut(normalized, "-")
	if !ok || strings.Contains(end, "-") {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	startMin, err := parseClock(start)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return TimeRange{StartMinute: startMin, EndMinute: endMin}, nil
}

// MustParseTimeRange is ParseTimeRange for constants and tests.
func MustParseTimeRange(s string) TimeRange {
	tr, err := ParseTimeRange(s)
	if err != nil {
		panic(err)
	}
	return tr
}

func parseClock(s string) (int, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, ErrInvalidTimeFormat
	}
	if m[2] != "" && m[4] != "" {
		return 0, ErrInvalidTimeFormat
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 1 || hour > 12 {
		return 0, ErrInvalidTimeFormat
	}
	minute := 0
	if mm := m[2] + m[4]; mm != "" {
		minute, err = strconv.Atoi(mm)
		if err != nil || minute > 59 {
			return 0, ErrInvalidTimeFormat
		}
	}
	hour %= 12
	if m[3] == "pm" {
		hour += 12
	}
	return hour*60 + minute, nil
}

// Overnight reports whether the window ends on the following day.
func (r TimeRange) Overnight() bool {
	return r.EndMinute <= r.StartMinute
}

// Duration is the window length; overnight windows add 24h.
func (r TimeRange) Duration() time.Duration {
	minutes := r.EndMinute - r.StartMinute
	if r.Overnight() {
		minutes += minutesPerDay
	}
	return time.Duration(minutes) * time.Minute
}

// Resolve turns the window into absolute check-in and check-out instants on
// date in loc. Every component that needs absolute slot times goes through
// this function.
func (r TimeRange) Resolve(date Date, loc *time.Location) (checkIn, checkOut time.Time) {
	checkIn = time.Date(date.Year, date.Month, date.Day, 0, r.StartMinute, 0, 0, loc)
	checkOut = time.Date(date.Year, date.Month, date.Day, 0, r.EndMinute, 0, 0, loc)
	if !checkOut.After(checkIn) {
		checkOut = time.Date(date.Year, date.Month, date.Day+1, 0, r.EndMinute, 0, 0, loc)
	}
	return checkIn, checkOut
}

// String renders the canonical form, e.g. "9am-1pm" or "9:30am-5:30pm".
func (r TimeRange) String() string {
	return formatClock(r.StartMinute) + "-" + formatClock(r.EndMinute)
}

func formatClock(minuteOfDay int) string {
	hour, minute := minuteOfDay/60, minuteOfDay%60
	suffix := "am"
	if hour >= 12 {
		suffix = "pm"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	if minute == 0 {
		return fmt.Sprintf("%d%s", hour, suffix)
	}
	return fmt.Sprintf("%d:%02d%s", hour, minute, suffix)
}

// SlotPrice is round(hours x hourlyRate).
func SlotPrice(d time.Duration, hourlyRate int64) int64 {
	return int64(math.Round(d.Hours() * float64(hourlyRate)))
}
