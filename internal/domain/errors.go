package domain

import (
	"errors"
	"fmt"
)

// Kind groups errors by how a caller is expected to recover from them.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindExpired     Kind = "expired"
	KindPayment     Kind = "payment"
	KindConsistency Kind = "consistency"
	KindForbidden   Kind = "forbidden"
)

// Error is a typed domain failure with a stable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrInvalidID          = newError(KindValidation, "invalid_id", "invalid id")
	ErrMissingField       = newError(KindValidation, "missing_required_field", "missing required field")
	ErrInvalidTimeFormat  = newError(KindValidation, "invalid_time_format", "invalid time format")
	ErrInvalidDate        = newError(KindValidation, "invalid_date", "invalid date, expected YYYY-MM-DD")
	ErrInvalidTimezone    = newError(KindValidation, "invalid_timezone", "invalid timezone")
	ErrInvalidRate        = newError(KindValidation, "invalid_hourly_rate", "hourly rate must not be negative")
	ErrInvalidPrice       = newError(KindValidation, "invalid_price", "price must not be negative")
	ErrInvalidFee         = newError(KindValidation, "invalid_fee", "fees must not be negative")
	ErrPropertyNameNeeded = newError(KindValidation, "property_name_required", "property name required")
	ErrSlotLabelNeeded    = newError(KindValidation, "slot_label_required", "slot label required")
	ErrSlotInPast         = newError(KindValidation, "slot_in_past", "slot has already started")
	ErrInvalidStatusQuery = newError(KindValidation, "invalid_status_filter", "unknown reservation status")
	ErrInvalidIdemKey     = newError(KindValidation, "invalid_idempotency_key", "idempotency key must be at most 255 characters")

	ErrPropertyNotFound    = newError(KindNotFound, "property_not_found", "property not found")
	ErrSlotNotFound        = newError(KindNotFound, "slot_not_found", "slot not found")
	ErrHoldNotFound        = newError(KindNotFound, "hold_not_found", "hold not found")
	ErrReservationNotFound = newError(KindNotFound, "reservation_not_found", "reservation not found")
	ErrSuspensionNotFound  = newError(KindNotFound, "suspension_not_found", "suspension not found")

	ErrDuplicateSlotLabel    = newError(KindConflict, "duplicate_slot_label", "slot label already exists for property")
	ErrAlreadySuspended      = newError(KindConflict, "already_suspended", "slot already suspended on date")
	ErrAlreadyClosed         = newError(KindConflict, "already_closed", "property already closed on date")
	ErrPropertyInactive      = newError(KindConflict, "property_inactive", "property is not accepting bookings")
	ErrSlotSuspended         = newError(KindConflict, "slot_suspended", "slot is inactive on date")
	ErrSlotAlreadyBooked     = newError(KindConflict, "slot_already_booked", "slot is already booked")
	ErrSlotNoLongerAvailable = newError(KindConflict, "slot_no_longer_available", "slot is no longer available")
	ErrHoldAlreadyUsed       = newError(KindConflict, "hold_already_used", "hold already used")
	ErrHoldConflict          = newError(KindConflict, "hold_conflict", "another hold request for this slot is in progress")
	ErrIdempotencyConflict   = newError(KindConflict, "idempotency_conflict", "idempotency key already used for a different hold")
	ErrPaymentReferenceUsed  = newError(KindConflict, "payment_reference_used", "payment reference already used")
	ErrAlreadyCancelled      = newError(KindConflict, "already_cancelled", "reservation already cancelled")
	ErrInvalidStatus         = newError(KindConflict, "invalid_status", "reservation cannot be cancelled in its current status")
	ErrTooLateToCancel       = newError(KindConflict, "too_late_to_cancel", "check-in time has passed")

	ErrHoldExpiredOrMissing = newError(KindExpired, "hold_expired", "hold expired or missing")

	ErrUserMismatch        = newError(KindForbidden, "user_mismatch", "hold belongs to another user")
	ErrNotReservationOwner = newError(KindForbidden, "unauthorized", "reservation belongs to another user")

	ErrPaymentNotCompleted   = newError(KindPayment, "payment_not_completed", "payment not completed")
	ErrPaymentCaptureFailed  = newError(KindPayment, "payment_capture_failed", "payment capture failed")
	ErrPaymentAmountMismatch = newError(KindPayment, "payment_amount_mismatch", "payment amount does not cover the booking total")
	ErrPaymentUnavailable    = newError(KindPayment, "payment_unavailable", "payment provider unavailable")

	ErrTransactionAborted = newError(KindConsistency, "transaction_aborted", "transaction aborted, retry the request")
)

// KindOf reports the kind of the first domain error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// CodeOf reports the stable code of the first domain error in err's chain.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// PaymentSecuredError reports that money was captured but the reservation
// could not be written. Callers must route the user to support or refund.
type PaymentSecuredError struct {
	PaymentReference string
	Amount           int64
	Err              error
}

func (e *PaymentSecuredError) Error() string {
	return fmt.Sprintf("payment %s captured but booking failed: %v", e.PaymentReference, e.Err)
}

func (e *PaymentSecuredError) Unwrap() error {
	return e.Err
}
