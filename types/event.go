package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of an event date.
const DateLayout = "2006-01-02"

// Event represents a schedulable campus activity with a finite capacity
// and a ticket price.
type Event struct {
	// ID is the unique identifier of the event.
	ID int `json:"id" db:"id"`

	// Title is the human-readable name of the event.
	Title string `json:"title" db:"title"`

	// Description is the free-form event description shown to students.
	Description string `json:"description" db:"description"`

	// Date is the calendar day the event takes place on.
	Date Date `json:"date" db:"date"`

	// Time is the start time of day in HH:MM format.
	Time string `json:"time" db:"time"`

	Location string `json:"location" db:"location"`
	Category string `json:"category" db:"category"`

	// Capacity is the maximum number of registrations the event accepts.
	Capacity int `json:"capacity" db:"capacity"`

	// Price is the amount charged per registration. It is copied onto each
	// registration at the moment it is created.
	Price float64 `json:"price" db:"price"`

	// Image is an optional image reference (URL or /images/ path).
	Image string `json:"image" db:"image"`

	// Status is free text; new events default to "active".
	Status    string `json:"status" db:"status"`
	Organizer string `json:"organizer" db:"organizer"`

	// Tags are unordered free-form labels.
	Tags []string `json:"tags" db:"tags"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// EventDetail is an event augmented with its current registration load.
type EventDetail struct {
	Event
	RegisteredCount int `json:"registered_count"`
	AvailableSpots  int `json:"available_spots"`
}

// EventFilter narrows an event listing. Empty fields are ignored.
type EventFilter struct {
	Category string
	Status   string
	Search   string
}

// EventPatch carries a validated partial event update; nil fields are left
// untouched.
type EventPatch struct {
	Title       *string
	Description *string
	Date        *Date
	Time        *string
	Location    *string
	Category    *string
	Capacity    *int
	Price       *float64
	Image       *string
	Status      *string
	Organizer   *string
	Tags        *[]string
}

// Apply copies the set fields of p onto e.
func (p EventPatch) Apply(e *Event) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&e.Title, p.Title)
	setString(&e.Description, p.Description)
	setString(&e.Time, p.Time)
	setString(&e.Location, p.Location)
	setString(&e.Category, p.Category)
	setString(&e.Image, p.Image)
	setString(&e.Status, p.Status)
	setString(&e.Organizer, p.Organizer)
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Capacity != nil {
		e.Capacity = *p.Capacity
	}
	if p.Price != nil {
		e.Price = *p.Price
	}
	if p.Tags != nil {
		e.Tags = append([]string{}, (*p.Tags)...)
	}
}

// Date is a calendar day without a time component.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string, rejecting impossible days such as 2025-13-01.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as YYYY-MM-DD, which both Postgres DATE and SQLite accept.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(value string) error {
	if len(value) >= len(DateLayout) {
		if parsed, err := ParseDate(value[:len(DateLayout)]); err == nil {
			*d = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", value)
}
