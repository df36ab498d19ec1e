package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ganapathi9191/farmhouse-backend/internal/clock"
	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/sirupsen/logrus"
)

type CancellationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetReservation(ctx context.Context, reservationID string) (domain.Reservation, error)
	GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error)
	LockProperty(ctx context.Context, propertyID string) error
	MarkCancelled(ctx context.Context, r domain.Reservation) error
	DeleteLedgerEntry(ctx context.Context, reservationID string) error
	UpdateRefund(ctx context.Context, r domain.Reservation) error
}

// CancellationService reverses confirmed reservations under a refund policy.
type CancellationService struct {
	repo     CancellationRepository
	payments PaymentGateway
	policy   domain.RefundPolicy
	clock    clock.Clock
	notifier Notifier
	ledger   LedgerInvalidator
	log      logrus.FieldLogger
}

type CancellationServiceOption func(*CancellationService)

func WithRefundPolicy(p domain.RefundPolicy) CancellationServiceOption {
	return func(s *CancellationService) {
		if len(p.Tiers) > 0 {
			s.policy = p
		}
	}
}

func WithCancellationNotifier(n Notifier) CancellationServiceOption {
	return func(s *CancellationService) {
		s.notifier = n
	}
}

func WithCancellationInvalidator(l LedgerInvalidator) CancellationServiceOption {
	return func(s *CancellationService) {
		s.ledger = l
	}
}

func WithCancellationLogger(l logrus.FieldLogger) CancellationServiceOption {
	return func(s *CancellationService) {
		if l != nil {
			s.log = l
		}
	}
}

func NewCancellationService(repo CancellationRepository, payments PaymentGateway, clk clock.Clock, opts ...CancellationServiceOption) *CancellationService {
	svc := &CancellationService{
		repo:     repo,
		payments: payments,
		policy:   domain.DefaultRefundPolicy(),
		clock:    clk,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CancelInput struct {
	ReservationID string
	UserID        string
	Reason        string
}

type CancelResult struct {
	Reservation    domain.Reservation
	RefundEligible bool
	RefundAmount   int64
	RefundPercent  int
}

// Cancel frees the slot and records the refund owed. The refund call happens
// after the cancellation commits; a failed refund is flagged for manual
// review and does not fail the cancellation.
func (s *CancellationService) Cancel(ctx context.Context, in CancelInput) (CancelResult, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return CancelResult{}, domain.ErrMissingField
	}
	if !validID(in.ReservationID) {
		return CancelResult{}, domain.ErrInvalidID
	}

	current, err := s.repo.GetReservation(ctx, in.ReservationID)
	if err != nil {
		return CancelResult{}, err
	}
	if current.UserID != userID {
		return CancelResult{}, domain.ErrNotReservationOwner
	}

	var cancelled domain.Reservation
	var quote domain.RefundQuote
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockProperty(txCtx, current.PropertyID); err != nil {
			return err
		}
		r, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if err := r.CheckCancellable(); err != nil {
			return err
		}
		now := s.clock.Now()
		quote, err = s.policy.Evaluate(r.Price.Total, r.CheckIn, now)
		if err != nil {
			return err
		}

		r.Status = domain.ReservationCancelled
		r.UpdatedAt = now
		r.Cancellation = &domain.Cancellation{
			Reason:             strings.TrimSpace(in.Reason),
			CancelledAt:        now,
			HoursBeforeCheckIn: quote.HoursBeforeCheckIn,
			RefundPercent:      quote.Percent,
			RefundAmount:       quote.RefundAmount,
			CancellationCharge: quote.CancellationCharge,
			RefundStatus:       domain.RefundNotApplicable,
		}
		if quote.Eligible() {
			r.Cancellation.RefundStatus = domain.RefundPending
			r.PaymentStatus = domain.PaymentRefundPending
		} else {
			r.PaymentStatus = domain.PaymentForfeited
		}

		if err := s.repo.MarkCancelled(txCtx, r); err != nil {
			return err
		}
		if err := s.repo.DeleteLedgerEntry(txCtx, r.ID); err != nil {
			return err
		}
		cancelled = r
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}

	if s.ledger != nil {
		s.ledger.InvalidateLedger(ctx, cancelled.PropertyID, cancelled.Date)
	}
	if quote.Eligible() {
		cancelled = s.refund(ctx, cancelled)
	}

	s.log.WithFields(logrus.Fields{
		"reservation_id": cancelled.ID,
		"refund_amount":  quote.RefundAmount,
		"refund_percent": quote.Percent,
	}).Info("reservation cancelled")

	msg := fmt.Sprintf("Your booking on %s has been cancelled.", cancelled.Date)
	if quote.Eligible() {
		msg = fmt.Sprintf("Your booking on %s has been cancelled. A refund of %d will be processed.", cancelled.Date, quote.RefundAmount)
	}
	dispatch(s.notifier, s.log, domain.Notification{
		UserID:      cancelled.UserID,
		Title:       "Booking Cancelled",
		Message:     msg,
		Category:    domain.NotificationCancellation,
		ReferenceID: cancelled.ID,
		CreatedAt:   cancelled.UpdatedAt,
	})

	return CancelResult{
		Reservation:    cancelled,
		RefundEligible: quote.Eligible(),
		RefundAmount:   quote.RefundAmount,
		RefundPercent:  quote.Percent,
	}, nil
}

func (s *CancellationService) refund(ctx context.Context, r domain.Reservation) domain.Reservation {
	c := *r.Cancellation
	refund, err := s.payments.RefundPayment(ctx, r.PaymentReference, c.RefundAmount)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"reservation_id":    r.ID,
			"payment_reference": r.PaymentReference,
			"amount":            c.RefundAmount,
		}).Error("refund failed, flagged for manual review")
		c.RefundStatus = domain.RefundFailed
		c.RequiresManualReview = true
	} else {
		c.RefundID = refund.ID
		c.RefundStatus = refund.Outcome()
		switch c.RefundStatus {
		case domain.RefundProcessed:
			if c.RefundAmount >= r.Price.Total {
				r.PaymentStatus = domain.PaymentRefunded
			} else {
				r.PaymentStatus = domain.PaymentPartiallyRefunded
			}
		case domain.RefundFailed:
			s.log.WithFields(logrus.Fields{
				"reservation_id": r.ID,
				"refund_id":      refund.ID,
			}).Error("gateway reported refund failed, flagged for manual review")
			c.RequiresManualReview = true
		}
	}
	r.Cancellation = &c

	if err := s.repo.UpdateRefund(ctx, r); err != nil {
		s.log.WithError(err).WithField("reservation_id", r.ID).Error("recording refund outcome failed")
	}
	return r
}
