package types

import "time"

// Notification kinds published on the message queue.
const (
	NotificationRegistrationCreated = "registration.created"
	NotificationPaymentCompleted    = "payment.completed"
)

// Notification is the JSON payload published after a registration or
// payment commits.
type Notification struct {
	Kind           string    `json:"kind"`
	RegistrationID string    `json:"registration_id"`
	EventID        int       `json:"event_id"`
	UserID         int       `json:"user_id"`
	PaymentID      string    `json:"payment_id,omitempty"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	Amount         float64   `json:"amount"`
	OccurredAt     time.Time `json:"occurred_at"`
}
