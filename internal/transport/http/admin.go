package http

import (
	"context"
	"net/http"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/app"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

// AdminCatalog is the catalog surface exposed to operators.
type AdminCatalog interface {
	CreateProperty(ctx context.Context, in app.CreatePropertyInput) (domain.Property, error)
	GetProperty(ctx context.Context, propertyID string) (domain.Property, error)
	ListProperties(ctx context.Context) ([]domain.Property, error)
	SetPropertyActive(ctx context.Context, propertyID string, active bool) error
	RecalculatePricesOnRateChange(ctx context.Context, propertyID string, hourlyRate int64) ([]domain.SlotTemplate, error)
	CloseProperty(ctx context.Context, in app.ClosePropertyInput) error
	ReopenProperty(ctx context.Context, propertyID string, date domain.Date) error

	DefineSlot(ctx context.Context, in app.DefineSlotInput) (domain.SlotTemplate, error)
	ListSlots(ctx context.Context, propertyID string) ([]domain.SlotTemplate, error)
	SetSlotActive(ctx context.Context, propertyID, label string, active bool) error
	SuspendSlotOnDate(ctx context.Context, in app.SuspendSlotInput) error
	ReactivateSlotOnDate(ctx context.Context, propertyID, label string, date domain.Date) error
}

type FeeAdmin interface {
	CurrentFees(ctx context.Context) (domain.FeeConfig, error)
	UpdateFees(ctx context.Context, cleaningFee, serviceFee int64) (domain.FeeConfig, error)
}

func HandleListProperties(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		properties, err := svc.ListProperties(r.Context())
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		resp := make([]propertyResponse, 0, len(properties))
		for _, p := range properties {
			resp = append(resp, newPropertyResponse(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleCreateProperty(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPropertyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		p, err := svc.CreateProperty(r.Context(), app.CreatePropertyInput{
			Name:       req.Name,
			HourlyRate: *req.HourlyRate,
			Timezone:   req.Timezone,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newPropertyResponse(p))
	}
}

func HandleGetProperty(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetProperty(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newPropertyResponse(p))
	}
}

// HandleUpdateRate changes the hourly rate and reprices every slot.
func HandleUpdateRate(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateRateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		slots, err := svc.RecalculatePricesOnRateChange(r.Context(), r.PathValue("id"), *req.HourlyRate)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newSlotResponses(slots))
	}
}

func HandleSetPropertyActive(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req activeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.SetPropertyActive(r.Context(), r.PathValue("id"), *req.Active); err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleCloseProperty(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dateNoteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		err := svc.CloseProperty(r.Context(), app.ClosePropertyInput{
			PropertyID: r.PathValue("id"),
			Date:       mustDate(req.Date),
			Reason:     req.Reason,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleReopenProperty(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := domain.ParseDate(r.PathValue("date"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if err := svc.ReopenProperty(r.Context(), r.PathValue("id"), date); err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleListSlotTemplates(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.ListSlots(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newSlotResponses(slots))
	}
}

func HandleDefineSlot(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req defineSlotRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		slot, err := svc.DefineSlot(r.Context(), app.DefineSlotInput{
			PropertyID: r.PathValue("id"),
			Label:      req.Label,
			Timing:     req.Timing,
			Price:      req.Price,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newSlotResponse(slot))
	}
}

func HandleSetSlotActive(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req activeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.SetSlotActive(r.Context(), r.PathValue("id"), r.PathValue("label"), *req.Active); err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleSuspendSlot(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dateNoteRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		err := svc.SuspendSlotOnDate(r.Context(), app.SuspendSlotInput{
			PropertyID: r.PathValue("id"),
			Label:      r.PathValue("label"),
			Date:       mustDate(req.Date),
			Reason:     req.Reason,
		})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleReactivateSlot(svc AdminCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := domain.ParseDate(r.PathValue("date"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if err := svc.ReactivateSlotOnDate(r.Context(), r.PathValue("id"), r.PathValue("label"), date); err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleGetFees(svc FeeAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := svc.CurrentFees(r.Context())
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newFeesResponse(f))
	}
}

func HandleUpdateFees(svc FeeAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req feesRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		f, err := svc.UpdateFees(r.Context(), *req.CleaningFee, *req.ServiceFee)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newFeesResponse(f))
	}
}

type createPropertyRequest struct {
	Name       string `json:"name" validate:"required,max=256"`
	HourlyRate *int64 `json:"hourly_rate" validate:"required,gte=0"`
	Timezone   string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

type updateRateRequest struct {
	HourlyRate *int64 `json:"hourly_rate" validate:"required,gte=0"`
}

type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type dateNoteRequest struct {
	Date   string `json:"date" validate:"required,civildate"`
	Reason string `json:"reason" validate:"max=500"`
}

type defineSlotRequest struct {
	Label  string `json:"label" validate:"required,max=64"`
	Timing string `json:"timing" validate:"required,timerange"`
	Price  *int64 `json:"price,omitempty" validate:"omitempty,gte=0"`
}

type feesRequest struct {
	CleaningFee *int64 `json:"cleaning_fee" validate:"required,gte=0"`
	ServiceFee  *int64 `json:"service_fee" validate:"required,gte=0"`
}

type propertyResponse struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	HourlyRate int64         `json:"hourly_rate"`
	Timezone   string        `json:"timezone"`
	Active     bool          `json:"active"`
	Closures   []dateNoteDTO `json:"closures"`
	CreatedAt  time.Time     `json:"created_at"`
}

type dateNoteDTO struct {
	Date   domain.Date `json:"date"`
	Reason string      `json:"reason,omitempty"`
}

type slotResponse struct {
	ID              string        `json:"id"`
	PropertyID      string        `json:"property_id"`
	Label           string        `json:"label"`
	Timing          string        `json:"timing"`
	DurationMinutes int           `json:"duration_minutes"`
	Price           int64         `json:"price"`
	Active          bool          `json:"active"`
	Suspensions     []dateNoteDTO `json:"suspensions"`
}

type feesResponse struct {
	CleaningFee int64 `json:"cleaning_fee"`
	ServiceFee  int64 `json:"service_fee"`
}

func newDateNotes(notes []domain.DateNote) []dateNoteDTO {
	out := make([]dateNoteDTO, 0, len(notes))
	for _, n := range notes {
		out = append(out, dateNoteDTO{Date: n.Date, Reason: n.Reason})
	}
	return out
}

func newPropertyResponse(p domain.Property) propertyResponse {
	return propertyResponse{
		ID:         p.ID,
		Name:       p.Name,
		HourlyRate: p.HourlyRate,
		Timezone:   p.Timezone,
		Active:     p.Active,
		Closures:   newDateNotes(p.Closures),
		CreatedAt:  p.CreatedAt,
	}
}

func newSlotResponse(s domain.SlotTemplate) slotResponse {
	return slotResponse{
		ID:              s.ID,
		PropertyID:      s.PropertyID,
		Label:           s.Label,
		Timing:          s.Timing.String(),
		DurationMinutes: s.DurationMinutes,
		Price:           s.Price,
		Active:          s.Active,
		Suspensions:     newDateNotes(s.Suspensions),
	}
}

func newSlotResponses(slots []domain.SlotTemplate) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, newSlotResponse(s))
	}
	return out
}

func newFeesResponse(f domain.FeeConfig) feesResponse {
	return feesResponse{CleaningFee: f.CleaningFee, ServiceFee: f.ServiceFee}
}
