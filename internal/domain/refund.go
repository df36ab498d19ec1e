package domain

import (
	"sort"
	"time"
)

// RefundTier grants Percent of the total when cancelling at least MinHours
// before check-in.
type RefundTier struct {
	MinHours float64 `toml:"min_hours"`
	Percent  int     `toml:"percent"`
}

// RefundPolicy is an ordered list of tiers; the first whose MinHours is met
// wins. No matching tier means no refund.
type RefundPolicy struct {
	Tiers []RefundTier
}

func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{Tiers: []RefundTier{
		{MinHours: 24, Percent: 100},
		{MinHours: 12, Percent: 50},
	}}
}

// NewRefundPolicy sorts tiers by MinHours, largest first.
func NewRefundPolicy(tiers []RefundTier) RefundPolicy {
	sorted := append([]RefundTier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinHours > sorted[j].MinHours
	})
	return RefundPolicy{Tiers: sorted}
}

// RefundQuote is the outcome of applying the policy to one cancellation.
type RefundQuote struct {
	HoursBeforeCheckIn float64
	Percent            int
	RefundAmount       int64
	CancellationCharge int64
}

func (q RefundQuote) Eligible() bool {
	return q.RefundAmount > 0
}

// Evaluate quotes a cancellation at now. Cancelling at or after check-in is
// not allowed.
func (p RefundPolicy) Evaluate(total int64, checkIn, now time.Time) (RefundQuote, error) {
	if !now.Before(checkIn) {
		return RefundQuote{}, ErrTooLateToCancel
	}
	hours := checkIn.Sub(now).Hours()
	percent := 0
	for _, tier := range p.Tiers {
		if hours >= tier.MinHours {
			percent = tier.Percent
			break
		}
	}
	refund := total * int64(percent) / 100
	return RefundQuote{
		HoursBeforeCheckIn: hours,
		Percent:            percent,
		RefundAmount:       refund,
		CancellationCharge: total - refund,
	}, nil
}
