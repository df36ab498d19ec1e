package domain

type PaymentState string

const (
	PaymentStateCreated    PaymentState = "created"
	PaymentStateAuthorized PaymentState = "authorized"
	PaymentStateCaptured   PaymentState = "captured"
	PaymentStateFailed     PaymentState = "failed"
	PaymentStateRefunded   PaymentState = "refunded"
)

// Payment is what the payment gateway reports for a reference.
type Payment struct {
	Reference string
	Status    PaymentState
	Amount    int64
	Currency  string
	OrderID   string
}

// Refund is the gateway's answer to a refund request.
type Refund struct {
	ID     string
	Status string
	Amount int64
}

// Outcome maps the gateway's refund status onto the recorded one. Anything
// the gateway has not settled yet stays pending.
func (r Refund) Outcome() RefundStatus {
	switch r.Status {
	case "processed":
		return RefundProcessed
	case "failed":
		return RefundFailed
	}
	return RefundPending
}
