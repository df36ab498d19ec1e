// Package payment adapts the Razorpay API to the gateway the booking and
// cancellation services consume.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
	razorpay "github.com/razorpay/razorpay-go"
)

// paymentsAPI is the subset of the Razorpay payments resource in use.
type paymentsAPI interface {
	Fetch(paymentID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Capture(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Gateway struct {
	payments paymentsAPI
}

func NewRazorpayGateway(keyID, keySecret string) *Gateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &Gateway{payments: client.Payment}
}

func (g *Gateway) FetchPayment(ctx context.Context, reference string) (domain.Payment, error) {
	raw, err := call(ctx, func() (map[string]interface{}, error) {
		return g.payments.Fetch(reference, nil, nil)
	})
	if err != nil {
		return domain.Payment{}, fmt.Errorf("%w: fetch %s: %v", domain.ErrPaymentUnavailable, reference, err)
	}
	return parsePayment(raw)
}

func (g *Gateway) CapturePayment(ctx context.Context, reference string, amount int64, currency string) (domain.Payment, error) {
	raw, err := call(ctx, func() (map[string]interface{}, error) {
		return g.payments.Capture(reference, int(amount), map[string]interface{}{"currency": currency}, nil)
	})
	if err != nil {
		return domain.Payment{}, fmt.Errorf("%w: capture %s: %v", domain.ErrPaymentCaptureFailed, reference, err)
	}
	return parsePayment(raw)
}

func (g *Gateway) RefundPayment(ctx context.Context, reference string, amount int64) (domain.Refund, error) {
	raw, err := call(ctx, func() (map[string]interface{}, error) {
		return g.payments.Refund(reference, int(amount), nil, nil)
	})
	if err != nil {
		return domain.Refund{}, fmt.Errorf("%w: refund %s: %v", domain.ErrPaymentUnavailable, reference, err)
	}
	return parseRefund(raw)
}

// call runs a blocking SDK request and gives up when ctx is done. The
// request itself keeps running until the SDK's own timeout.
func call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	type result struct {
		raw map[string]interface{}
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := fn()
		done <- result{raw, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.raw, r.err
	}
}

func parsePayment(raw map[string]interface{}) (domain.Payment, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return domain.Payment{}, fmt.Errorf("%w: payment response without id", domain.ErrPaymentUnavailable)
	}
	status, _ := raw["status"].(string)
	currency, _ := raw["currency"].(string)
	orderID, _ := raw["order_id"].(string)
	amount, err := minorUnits(raw["amount"])
	if err != nil {
		return domain.Payment{}, fmt.Errorf("%w: payment %s: %v", domain.ErrPaymentUnavailable, id, err)
	}
	return domain.Payment{
		Reference: id,
		Status:    domain.PaymentState(status),
		Amount:    amount,
		Currency:  currency,
		OrderID:   orderID,
	}, nil
}

func parseRefund(raw map[string]interface{}) (domain.Refund, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return domain.Refund{}, fmt.Errorf("%w: refund response without id", domain.ErrPaymentUnavailable)
	}
	status, _ := raw["status"].(string)
	amount, err := minorUnits(raw["amount"])
	if err != nil {
		return domain.Refund{}, fmt.Errorf("%w: refund %s: %v", domain.ErrPaymentUnavailable, id, err)
	}
	return domain.Refund{ID: id, Status: status, Amount: amount}, nil
}

// minorUnits reads an amount the SDK decoded from JSON.
func minorUnits(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case nil:
		return 0, errors.New("missing amount")
	default:
		return 0, fmt.Errorf("unexpected amount type %T", v)
	}
}

// Unconfigured rejects every call. It stands in when no gateway
// credentials are set so the rest of the service can run.
type Unconfigured struct{}

func (Unconfigured) FetchPayment(context.Context, string) (domain.Payment, error) {
	return domain.Payment{}, fmt.Errorf("%w: gateway not configured", domain.ErrPaymentUnavailable)
}

func (Unconfigured) CapturePayment(context.Context, string, int64, string) (domain.Payment, error) {
	return domain.Payment{}, fmt.Errorf("%w: gateway not configured", domain.ErrPaymentUnavailable)
}

func (Unconfigured) RefundPayment(context.Context, string, int64) (domain.Refund, error) {
	return domain.Refund{}, fmt.Errorf("%w: gateway not configured", domain.ErrPaymentUnavailable)
}
