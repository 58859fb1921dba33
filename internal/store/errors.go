package store

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

var (
	ErrDuplicateEmail        = errors.New("email already exists")
	ErrDuplicateStudentID    = errors.New("student id already exists")
	ErrDuplicateRegistration = errors.New("registration already exists")
	ErrNotPending            = errors.New("registration is not pending")
)

// uniqueViolation reports whether err is a unique constraint violation and,
// if so, the driver's description of the violated key (constraint name on
// Postgres, "table.column" on SQLite).
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23505" {
			return pqErr.Constraint, true
		}
		return "", false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// The primary code sits in the low byte of an extended code.
		if liteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
			return "", false
		}
		msg := liteErr.Error()
		if _, key, ok := strings.Cut(msg, "UNIQUE constraint failed: "); ok {
			return key, true
		}
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return msg, true
		}
	}
	return "", false
}
