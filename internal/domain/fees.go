package domain

import "time"

// FeeConfig holds the fixed add-on fees applied to every booking.
type FeeConfig struct {
	CleaningFee int64
	ServiceFee  int64
	UpdatedAt   time.Time
}

// PriceBreakdown is the monetary snapshot shown to and charged from the user.
type PriceBreakdown struct {
	SlotPrice   int64 `json:"slot_price"`
	CleaningFee int64 `json:"cleaning_fee"`
	ServiceFee  int64 `json:"service_fee"`
	Total       int64 `json:"total"`
}

func (f FeeConfig) Validate() error {
	if f.CleaningFee < 0 || f.ServiceFee < 0 {
		return ErrInvalidFee
	}
	return nil
}

func (f FeeConfig) Breakdown(slotPrice int64) PriceBreakdown {
	return PriceBreakdown{
		SlotPrice:   slotPrice,
		CleaningFee: f.CleaningFee,
		ServiceFee:  f.ServiceFee,
		Total:       slotPrice + f.CleaningFee + f.ServiceFee,
	}
}
