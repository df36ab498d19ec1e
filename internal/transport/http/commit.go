package http

import (
	"context"
	"net/http"

	"github.com/ganapathi9191/farmhouse-backend/internal/app"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

// HoldCommitter is the minimal interface needed to turn a paid hold into a
// reservation.
type HoldCommitter interface {
	Commit(ctx context.Context, in app.CommitInput) (domain.Reservation, error)
}

// HandleCommitHold returns an HTTP handler for POST /holds/{id}/commit. A
// replayed commit answers 409 hold_already_used.
func HandleCommitHold(svc HoldCommitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commitRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		res, err := svc.Commit(r.Context(), app.CommitInput{
			HoldID:           r.PathValue("id"),
			UserID:           req.UserID,
			PaymentReference: req.PaymentReference,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newReservationResponse(res))
	}
}

type commitRequest struct {
	UserID           string `json:"user_id" validate:"required"`
	PaymentReference string `json:"payment_reference" validate:"required"`
}
