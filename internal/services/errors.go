package services

import "errors"

var (
	ErrEventNotFound         = errors.New("Event not found")
	ErrUserIDRequired        = errors.New("user_id is required")
	ErrUserNotFound          = errors.New("User not found")
	ErrAlreadyRegistered     = errors.New("Already registered for this event")
	ErrEventFull             = errors.New("Event is full")
	ErrMissingPaymentDetails = errors.New("Missing payment details")
	ErrRegistrationNotFound  = errors.New("Registration not found")
	ErrAlreadyPaid           = errors.New("Payment already completed")
	ErrPaymentDeclined       = errors.New("Payment failed. Please try again.")
	ErrEmailTaken            = errors.New("Email already registered")
	ErrStudentIDTaken        = errors.New("Student ID already registered")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrImagesDisabled        = errors.New("image storage is not configured")
	ErrImageNotFound         = errors.New("Image not found")
)

// ValidationError reports malformed or missing client input. Its message is
// safe to return to the client as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

func required(field string) error {
	return invalid(field + " is required")
}
