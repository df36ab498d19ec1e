package http

import (
	"net/http"
	"strings"
)

// Services bundles what the router needs. Readiness may be nil.
type Services struct {
	Catalog      AdminCatalog
	Fees         FeeAdmin
	Availability AvailabilityLister
	Holds        interface {
		HoldCreator
		HoldReader
	}
	Bookings     HoldCommitter
	Cancellation ReservationCanceller
	Reservations ReservationReader
	Readiness    []Pinger
}

var routeMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// Router serves the API routes and answers unmatched requests with JSON
// 404 and 405 errors.
type Router struct {
	mux *http.ServeMux
}

// NewRouter registers every route on a method-aware mux.
func NewRouter(s Services) *Router {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", HealthHandler)
	mux.Handle("GET /ready", ReadinessHandler(s.Readiness...))

	mux.Handle("GET /properties/{id}/slots", HandleListSlots(s.Availability))

	mux.Handle("POST /holds", HandleCreateHold(s.Holds))
	mux.Handle("GET /holds/{id}", HandleGetHold(s.Holds))
	mux.Handle("POST /holds/{id}/commit", HandleCommitHold(s.Bookings))

	mux.Handle("GET /reservations/{id}", HandleGetReservation(s.Reservations))
	mux.Handle("POST /reservations/{id}/cancel", HandleCancelReservation(s.Cancellation))
	mux.Handle("GET /users/{id}/reservations", HandleListUserReservations(s.Reservations))
	mux.Handle("GET /payments/{reference}/reservation", HandleFindReservationByPayment(s.Reservations))

	mux.Handle("GET /admin/properties", HandleListProperties(s.Catalog))
	mux.Handle("POST /admin/properties", HandleCreateProperty(s.Catalog))
	mux.Handle("GET /admin/properties/{id}", HandleGetProperty(s.Catalog))
	mux.Handle("PUT /admin/properties/{id}/rate", HandleUpdateRate(s.Catalog))
	mux.Handle("PUT /admin/properties/{id}/active", HandleSetPropertyActive(s.Catalog))
	mux.Handle("POST /admin/properties/{id}/closures", HandleCloseProperty(s.Catalog))
	mux.Handle("DELETE /admin/properties/{id}/closures/{date}", HandleReopenProperty(s.Catalog))
	mux.Handle("GET /admin/properties/{id}/slots", HandleListSlotTemplates(s.Catalog))
	mux.Handle("POST /admin/properties/{id}/slots", HandleDefineSlot(s.Catalog))
	mux.Handle("PUT /admin/properties/{id}/slots/{label}/active", HandleSetSlotActive(s.Catalog))
	mux.Handle("POST /admin/properties/{id}/slots/{label}/suspensions", HandleSuspendSlot(s.Catalog))
	mux.Handle("DELETE /admin/properties/{id}/slots/{label}/suspensions/{date}", HandleReactivateSlot(s.Catalog))
	mux.Handle("GET /admin/fees", HandleGetFees(s.Fees))
	mux.Handle("PUT /admin/fees", HandleUpdateFees(s.Fees))

	return &Router{mux: mux}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, pattern := rt.mux.Handler(r); pattern != "" {
		rt.mux.ServeHTTP(w, r)
		return
	}
	if allowed := rt.allowedMethods(r); len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	writeError(w, http.StatusNotFound, codeNotFound, "not found")
}

func (rt *Router) allowedMethods(r *http.Request) []string {
	var allowed []string
	for _, m := range routeMethods {
		candidate := r.WithContext(r.Context())
		candidate.Method = m
		if _, pattern := rt.mux.Handler(candidate); pattern != "" {
			allowed = append(allowed, m)
		}
	}
	return allowed
}
