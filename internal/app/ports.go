package app

import (
	"context"
	"time"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// PaymentGateway is the payment capability consumed by commit and cancel.
// Implementations return domain payment errors for gateway failures.
type PaymentGateway interface {
	FetchPayment(ctx context.Context, reference string) (domain.Payment, error)
	CapturePayment(ctx context.Context, reference string, amount int64, currency string) (domain.Payment, error)
	RefundPayment(ctx context.Context, reference string, amount int64) (domain.Refund, error)
}

// Notifier accepts user notifications. Delivery is its own concern.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// LedgerInvalidator drops cached ledger reads after a ledger write.
type LedgerInvalidator interface {
	InvalidateLedger(ctx context.Context, propertyID string, date domain.Date)
}

const notifyTimeout = 5 * time.Second

// dispatch hands n to the notifier without blocking the caller. Failures are
// logged only.
func dispatch(notifier Notifier, log logrus.FieldLogger, n domain.Notification) {
	if notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := notifier.Notify(ctx, n); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"user_id":      n.UserID,
				"category":     n.Category,
				"reference_id": n.ReferenceID,
			}).Warn("notification dispatch failed")
		}
	}()
}
