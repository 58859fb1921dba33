package types

import "time"

// User represents a student account. Users are immutable once created.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the student's display or full name.
	Name string `json:"name" db:"name"`

	// Email is unique across users.
	Email string `json:"email" db:"email"`

	// StudentID is the university-issued identifier, unique across users.
	StudentID string `json:"student_id" db:"student_id"`

	Department     string `json:"department" db:"department"`
	GraduationYear int    `json:"graduation_year" db:"graduation_year"`
	Phone          string `json:"phone" db:"phone"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
