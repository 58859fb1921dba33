package types

import "time"

// PaymentStatus is the payment lifecycle state of a registration.
type PaymentStatus string

const (
	// PaymentPending is the initial state. A declined payment leaves the
	// registration pending so the client can retry.
	PaymentPending PaymentStatus = "pending"

	// PaymentCompleted is terminal and reached at most once.
	PaymentCompleted PaymentStatus = "completed"
)

// Registration binds one user to one event and carries its own payment lifecycle.
type Registration struct {
	// ID is an opaque, globally unique identifier (UUID).
	ID string `json:"id" db:"id"`

	EventID int `json:"event_id" db:"event_id"`
	UserID  int `json:"user_id" db:"user_id"`

	RegistrationDate time.Time `json:"registration_date" db:"registration_date"`

	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`

	// PaymentID is the correlation token presented to the payment endpoint.
	PaymentID string `json:"payment_id" db:"payment_id"`

	// Amount is the event price at registration time. It is never re-read
	// from the event afterwards.
	Amount float64 `json:"amount" db:"amount"`

	// PaymentDate is set when the payment completes.
	PaymentDate *time.Time `json:"payment_date" db:"payment_date"`
}

// RegistrationUser is the user summary embedded in registration listings.
type RegistrationUser struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	StudentID string `json:"student_id"`
}

// RegistrationEvent is the event summary embedded in registration listings.
type RegistrationEvent struct {
	Title string `json:"title"`
	Date  Date   `json:"date"`
}

// RegistrationDetail is a registration joined with its user and event.
// Either side is nil when the linked record no longer exists.
type RegistrationDetail struct {
	Registration
	User  *RegistrationUser  `json:"user"`
	Event *RegistrationEvent `json:"event"`
}

// PaymentRequest is the client input to the payment simulator.
type PaymentRequest struct {
	PaymentID  string
	Amount     float64
	CardNumber string
}

// PaymentResult describes a successfully processed payment.
type PaymentResult struct {
	TransactionID string
	Amount        float64
	Registration  Registration
}
