package http

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

type AvailabilityLister interface {
	ListAvailableSlots(ctx context.Context, propertyID string, date domain.Date) (iter.Seq[domain.SlotAvailability], error)
}

// HandleListSlots answers GET /properties/{id}/slots?date=YYYY-MM-DD.
func HandleListSlots(svc AvailabilityLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := domain.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		propertyID := r.PathValue("id")

		seq, err := svc.ListAvailableSlots(r.Context(), propertyID, date)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		resp := availabilityResponse{PropertyID: propertyID, Date: date, Slots: []slotAvailabilityResponse{}}
		for a := range seq {
			resp.Slots = append(resp.Slots, slotAvailabilityResponse{
				SlotID:    a.SlotID,
				Label:     a.Label,
				Timing:    a.Timing.String(),
				Price:     a.Price,
				CheckIn:   a.CheckIn,
				CheckOut:  a.CheckOut,
				Available: a.Available,
				Reason:    a.Reason,
				Started:   a.Started,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type availabilityResponse struct {
	PropertyID string                     `json:"property_id"`
	Date       domain.Date                `json:"date"`
	Slots      []slotAvailabilityResponse `json:"slots"`
}

type slotAvailabilityResponse struct {
	SlotID    string    `json:"slot_id"`
	Label     string    `json:"label"`
	Timing    string    `json:"timing"`
	Price     int64     `json:"price"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Available bool      `json:"available"`
	Reason    string    `json:"reason,omitempty"`
	Started   bool      `json:"started"`
}
