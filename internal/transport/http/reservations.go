package http

import (
	"context"
	"net/http"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/app"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

type ReservationCanceller interface {
	Cancel(ctx context.Context, in app.CancelInput) (app.CancelResult, error)
}

type ReservationReader interface {
	GetReservation(ctx context.Context, reservationID string) (domain.Reservation, error)
	GetByPaymentReference(ctx context.Context, ref string) (domain.Reservation, error)
	ListByUser(ctx context.Context, userID string, status domain.ReservationStatus) ([]domain.Reservation, error)
}

func HandleCancelReservation(svc ReservationCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cancelRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.Cancel(r.Context(), app.CancelInput{
			ReservationID: r.PathValue("id"),
			UserID:        req.UserID,
			Reason:        req.Reason,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		resp := cancelResponse{
			ReservationID:  res.Reservation.ID,
			Status:         string(res.Reservation.Status),
			PaymentStatus:  string(res.Reservation.PaymentStatus),
			RefundEligible: res.RefundEligible,
			RefundAmount:   res.RefundAmount,
			RefundPercent:  res.RefundPercent,
		}
		if c := res.Reservation.Cancellation; c != nil {
			resp.RefundStatus = string(c.RefundStatus)
			resp.RequiresManualReview = c.RequiresManualReview
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleGetReservation(svc ReservationReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetReservation(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newReservationResponse(res))
	}
}

// HandleFindReservationByPayment answers GET /payments/{reference}/reservation.
func HandleFindReservationByPayment(svc ReservationReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetByPaymentReference(r.Context(), r.PathValue("reference"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newReservationResponse(res))
	}
}

// HandleListUserReservations answers GET /users/{id}/reservations?status=.
func HandleListUserReservations(svc ReservationReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := domain.ReservationStatus(r.URL.Query().Get("status"))
		list, err := svc.ListByUser(r.Context(), r.PathValue("id"), status)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		resp := make([]reservationResponse, 0, len(list))
		for _, res := range list {
			resp = append(resp, newReservationResponse(res))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type cancelRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type cancelResponse struct {
	ReservationID        string `json:"reservation_id"`
	Status               string `json:"status"`
	PaymentStatus        string `json:"payment_status"`
	RefundEligible       bool   `json:"refund_eligible"`
	RefundAmount         int64  `json:"refund_amount"`
	RefundPercent        int    `json:"refund_percent"`
	RefundStatus         string `json:"refund_status"`
	RequiresManualReview bool   `json:"requires_manual_review"`
}

type reservationResponse struct {
	ID               string                `json:"id"`
	UserID           string                `json:"user_id"`
	PropertyID       string                `json:"property_id"`
	HoldID           string                `json:"hold_id"`
	Date             domain.Date           `json:"date"`
	Label            string                `json:"label"`
	Timing           string                `json:"timing"`
	CheckIn          time.Time             `json:"check_in"`
	CheckOut         time.Time             `json:"check_out"`
	PriceBreakdown   domain.PriceBreakdown `json:"price_breakdown"`
	PaymentReference string                `json:"payment_reference"`
	PaymentStatus    string                `json:"payment_status"`
	Status           string                `json:"status"`
	Cancellation     *cancellationResponse `json:"cancellation,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

type cancellationResponse struct {
	Reason               string    `json:"reason,omitempty"`
	CancelledAt          time.Time `json:"cancelled_at"`
	HoursBeforeCheckIn   float64   `json:"hours_before_check_in"`
	RefundPercent        int       `json:"refund_percent"`
	RefundAmount         int64     `json:"refund_amount"`
	CancellationCharge   int64     `json:"cancellation_charge"`
	RefundID             string    `json:"refund_id,omitempty"`
	RefundStatus         string    `json:"refund_status"`
	RequiresManualReview bool      `json:"requires_manual_review"`
}

func newReservationResponse(r domain.Reservation) reservationResponse {
	resp := reservationResponse{
		ID:               r.ID,
		UserID:           r.UserID,
		PropertyID:       r.PropertyID,
		HoldID:           r.HoldID,
		Date:             r.Date,
		Label:            r.Label,
		Timing:           r.Timing.String(),
		CheckIn:          r.CheckIn,
		CheckOut:         r.CheckOut,
		PriceBreakdown:   r.Price,
		PaymentReference: r.PaymentReference,
		PaymentStatus:    string(r.PaymentStatus),
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt,
	}
	if c := r.Cancellation; c != nil {
		resp.Cancellation = &cancellationResponse{
			Reason:               c.Reason,
			CancelledAt:          c.CancelledAt,
			HoursBeforeCheckIn:   c.HoursBeforeCheckIn,
			RefundPercent:        c.RefundPercent,
			RefundAmount:         c.RefundAmount,
			CancellationCharge:   c.CancellationCharge,
			RefundID:             c.RefundID,
			RefundStatus:         string(c.RefundStatus),
			RequiresManualReview: c.RequiresManualReview,
		}
	}
	return resp
}
