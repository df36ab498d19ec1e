package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeValidationFailed   = "validation_failed"
	codeForbidden          = "forbidden"
	codeUnavailable        = "unavailable"
	codeInternalError      = "internal_error"
	codePaymentSecured     = "payment_secured_booking_failed"
)

const supportMessage = "your payment was received but the booking could not be completed; contact support with the payment reference for a refund"

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`

	PaymentReference string `json:"payment_reference,omitempty"`
	Cause            string `json:"cause,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindExpired:
		return http.StatusGone
	case domain.KindPayment:
		return http.StatusPaymentRequired
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConsistency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps err to a status by its domain kind. Errors outside
// the domain taxonomy are logged and reported as internal.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var secured *domain.PaymentSecuredError
	if errors.As(err, &secured) {
		loggerFrom(r.Context()).WithError(err).
			WithField("payment_reference", secured.PaymentReference).
			Error("payment captured without reservation")
		status := statusForKind(domain.KindOf(secured.Err))
		if status == http.StatusBadRequest || status == http.StatusPaymentRequired {
			status = http.StatusInternalServerError
		}
		writeErrorResponse(w, status, errorResponse{
			Error:            supportMessage,
			Code:             codePaymentSecured,
			PaymentReference: secured.PaymentReference,
			Cause:            domain.CodeOf(secured.Err),
		})
		return
	}

	var de *domain.Error
	if errors.As(err, &de) {
		writeError(w, statusForKind(de.Kind), de.Code, de.Message)
		return
	}

	loggerFrom(r.Context()).WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
