package http

import (
	"context"
	"net/http"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/app"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// HoldCreator is the minimal interface needed to create a hold.
type HoldCreator interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Hold, error)
}

type HoldReader interface {
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
}

// HandleCreateHold returns an HTTP handler for creating holds.
func HandleCreateHold(svc HoldCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createHoldRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		hold, err := svc.CreateHold(r.Context(), app.CreateHoldInput{
			UserID:         req.UserID,
			PropertyID:     req.PropertyID,
			SlotID:         req.SlotID,
			Date:           mustDate(req.Date),
			IdempotencyKey: r.Header.Get(idempotencyHeader),
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newHoldResponse(hold))
	}
}

// HandleGetHold reports a live hold; expired and consumed holds are gone.
func HandleGetHold(svc HoldReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hold, err := svc.GetHold(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newHoldResponse(hold))
	}
}

type createHoldRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	PropertyID string `json:"property_id" validate:"required,uuid"`
	SlotID     string `json:"slot_id" validate:"required,uuid"`
	Date       string `json:"date" validate:"required,civildate"`
}

type holdResponse struct {
	ID             string                `json:"id"`
	UserID         string                `json:"user_id"`
	PropertyID     string                `json:"property_id"`
	SlotID         string                `json:"slot_id"`
	Date           domain.Date           `json:"date"`
	Label          string                `json:"label"`
	Timing         string                `json:"timing"`
	Status         string                `json:"status"`
	CheckIn        time.Time             `json:"check_in"`
	CheckOut       time.Time             `json:"check_out"`
	ExpiresAt      time.Time             `json:"expires_at"`
	PriceBreakdown domain.PriceBreakdown `json:"price_breakdown"`
}

func newHoldResponse(h domain.Hold) holdResponse {
	return holdResponse{
		ID:             h.ID,
		UserID:         h.UserID,
		PropertyID:     h.PropertyID,
		SlotID:         h.SlotID,
		Date:           h.Date,
		Label:          h.Label,
		Timing:         h.Timing.String(),
		Status:         string(h.Status),
		CheckIn:        h.CheckIn,
		CheckOut:       h.CheckOut,
		ExpiresAt:      h.ExpiresAt,
		PriceBreakdown: h.Price,
	}
}
