package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ganapathi9191/farmhouse-backend/internal/clock"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/sirupsen/logrus"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetReservationByHoldID(ctx context.Context, holdID string) (*domain.Reservation, error)
	GetReservationByPaymentReference(ctx context.Context, ref string) (*domain.Reservation, error)
	GetHold(ctx context.Context, holdID string) (domain.Hold, error)
	LockProperty(ctx context.Context, propertyID string) error
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	ListLedgerEntries(ctx context.Context, propertyID string, date domain.Date) ([]domain.LedgerEntry, error)
	CreateReservation(ctx context.Context, r domain.Reservation) error
	AppendLedgerEntry(ctx context.Context, e domain.LedgerEntry) error
	DeleteHold(ctx context.Context, holdID string) error
}

// BookingService turns a paid hold into a confirmed reservation.
type BookingService struct {
	repo     BookingRepository
	payments PaymentGateway
	clock    clock.Clock
	currency string
	notifier Notifier
	ledger   LedgerInvalidator
	log      logrus.FieldLogger
}

type BookingServiceOption func(*BookingService)

func WithBookingNotifier(n Notifier) BookingServiceOption {
	return func(s *BookingService) {
		s.notifier = n
	}
}

func WithBookingInvalidator(l LedgerInvalidator) BookingServiceOption {
	return func(s *BookingService) {
		s.ledger = l
	}
}

func WithBookingLogger(l logrus.FieldLogger) BookingServiceOption {
	return func(s *BookingService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCurrency sets the currency used when capturing authorized payments.
func WithCurrency(code string) BookingServiceOption {
	return func(s *BookingService) {
		if code != "" {
			s.currency = code
		}
	}
}

func NewBookingService(repo BookingRepository, payments PaymentGateway, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		repo:     repo,
		payments: payments,
		clock:    clk,
		currency: "INR",
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CommitInput struct {
	HoldID           string
	UserID           string
	PaymentReference string
}

// Commit verifies payment for a hold and writes the reservation, its
// ledger entry and the hold deletion as one transaction. When payment was
// captured but the write fails the error is a *domain.PaymentSecuredError.
func (s *BookingService) Commit(ctx context.Context, in CommitInput) (domain.Reservation, error) {
	userID := strings.TrimSpace(in.UserID)
	ref := strings.TrimSpace(in.PaymentReference)
	if userID == "" || ref == "" {
		return domain.Reservation{}, domain.ErrMissingField
	}
	if !validID(in.HoldID) {
		return domain.Reservation{}, domain.ErrInvalidID
	}

	if existing, err := s.repo.GetReservationByHoldID(ctx, in.HoldID); err != nil {
		return domain.Reservation{}, err
	} else if existing != nil {
		return domain.Reservation{}, domain.ErrHoldAlreadyUsed
	}

	hold, err := s.repo.GetHold(ctx, in.HoldID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldNotFound) {
			return domain.Reservation{}, domain.ErrHoldExpiredOrMissing
		}
		return domain.Reservation{}, err
	}
	if !hold.UsableAt(s.clock.Now()) {
		return domain.Reservation{}, domain.ErrHoldExpiredOrMissing
	}
	if hold.UserID != userID {
		return domain.Reservation{}, domain.ErrUserMismatch
	}

	if used, err := s.repo.GetReservationByPaymentReference(ctx, ref); err != nil {
		return domain.Reservation{}, err
	} else if used != nil {
		return domain.Reservation{}, domain.ErrPaymentReferenceUsed
	}

	payment, err := s.securePayment(ctx, ref, hold.Price.Total)
	if err != nil {
		return domain.Reservation{}, err
	}

	var result domain.Reservation
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockProperty(txCtx, hold.PropertyID); err != nil {
			return err
		}
		if existing, err := s.repo.GetReservationByHoldID(txCtx, hold.ID); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrHoldAlreadyUsed
		}

		locked, err := s.repo.GetHoldForUpdate(txCtx, hold.ID)
		if err != nil {
			if errors.Is(err, domain.ErrHoldNotFound) {
				return domain.ErrHoldExpiredOrMissing
			}
			return err
		}
		now := s.clock.Now()
		if !locked.UsableAt(now) {
			return domain.ErrHoldExpiredOrMissing
		}

		ledger, err := s.repo.ListLedgerEntries(txCtx, locked.PropertyID, locked.Date)
		if err != nil {
			return err
		}
		if !domain.SlotFree(ledger, locked.Date, locked.Label, locked.Timing) {
			return domain.ErrSlotNoLongerAvailable
		}

		r := domain.NewReservation(newUUID(), locked, payment, now)
		if err := s.repo.CreateReservation(txCtx, r); err != nil {
			return err
		}
		if err := s.repo.AppendLedgerEntry(txCtx, r.LedgerEntry()); err != nil {
			return err
		}
		if err := s.repo.DeleteHold(txCtx, locked.ID); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		if s.alreadyBackedBy(ctx, hold.ID, ref, err) {
			return domain.Reservation{}, err
		}
		s.log.WithError(err).WithFields(logrus.Fields{
			"hold_id":           hold.ID,
			"payment_reference": payment.Reference,
			"amount":            payment.Amount,
		}).Error("payment captured but booking failed")
		return domain.Reservation{}, &domain.PaymentSecuredError{
			PaymentReference: payment.Reference,
			Amount:           payment.Amount,
			Err:              err,
		}
	}

	if s.ledger != nil {
		s.ledger.InvalidateLedger(ctx, result.PropertyID, result.Date)
	}
	s.log.WithFields(logrus.Fields{
		"reservation_id": result.ID,
		"property_id":    result.PropertyID,
		"date":           result.Date.String(),
		"slot":           result.Label,
	}).Info("reservation confirmed")
	dispatch(s.notifier, s.log, domain.Notification{
		UserID:      result.UserID,
		Title:       "Booking Confirmed",
		Message:     fmt.Sprintf("Your %s slot (%s) on %s is confirmed.", result.Label, result.Timing, result.Date),
		Category:    domain.NotificationBooking,
		ReferenceID: result.ID,
		CreatedAt:   result.CreatedAt,
	})
	return result, nil
}

// alreadyBackedBy reports whether a failed write lost only to a reservation
// that consumes the same payment, so nothing captured here is left over.
func (s *BookingService) alreadyBackedBy(ctx context.Context, holdID, ref string, err error) bool {
	switch {
	case errors.Is(err, domain.ErrPaymentReferenceUsed):
		return true
	case errors.Is(err, domain.ErrHoldAlreadyUsed):
		existing, lookupErr := s.repo.GetReservationByHoldID(ctx, holdID)
		if lookupErr != nil {
			s.log.WithError(lookupErr).WithField("hold_id", holdID).Warn("reservation lookup after lost commit failed")
			return false
		}
		return existing != nil && existing.PaymentReference == ref
	}
	return false
}

// securePayment makes sure the referenced payment is captured for at least
// total, capturing an authorized payment if needed.
func (s *BookingService) securePayment(ctx context.Context, ref string, total int64) (domain.Payment, error) {
	payment, err := s.payments.FetchPayment(ctx, ref)
	if err != nil {
		return domain.Payment{}, err
	}
	switch payment.Status {
	case domain.PaymentStateCaptured:
	case domain.PaymentStateAuthorized:
		if payment.Amount < total {
			return domain.Payment{}, domain.ErrPaymentAmountMismatch
		}
		currency := payment.Currency
		if currency == "" {
			currency = s.currency
		}
		payment, err = s.payments.CapturePayment(ctx, ref, payment.Amount, currency)
		if err != nil {
			return domain.Payment{}, err
		}
		if payment.Status != domain.PaymentStateCaptured {
			return domain.Payment{}, domain.ErrPaymentCaptureFailed
		}
	default:
		return domain.Payment{}, domain.ErrPaymentNotCompleted
	}
	if payment.Amount < total {
		return domain.Payment{}, domain.ErrPaymentAmountMismatch
	}
	if payment.Reference == "" {
		payment.Reference = ref
	}
	return payment, nil
}
