package domain

import "time"

const (
	NotificationBooking      = "booking"
	NotificationCancellation = "cancellation"
)

// Notification is handed to the notification sink; delivery is out of scope.
type Notification struct {
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Category    string    `json:"category"`
	ReferenceID string    `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
