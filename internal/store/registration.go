package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campus-events/apiserver/types"
)

const registrationColumns = `r.id, r.event_id, r.user_id, r.registration_date, r.payment_status, r.payment_id, r.amount, r.payment_date`

// RegistrationRepository handles persistence for registrations and their
// payment state.
type RegistrationRepository struct {
	db *DB
}

func NewRegistrationRepository(db *DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a registration. A second registration for the same
// (event, user) pair yields ErrDuplicateRegistration.
func (r *RegistrationRepository) Create(ctx context.Context, reg types.Registration) (types.Registration, error) {
	const query = `
		INSERT INTO registrations (id, event_id, user_id, registration_date, payment_status, payment_id, amount, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.exec(
		ctx,
		query,
		reg.ID,
		reg.EventID,
		reg.UserID,
		reg.RegistrationDate,
		string(reg.PaymentStatus),
		reg.PaymentID,
		reg.Amount,
		nullTime(reg.PaymentDate),
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return types.Registration{}, ErrDuplicateRegistration
		}
		return types.Registration{}, fmt.Errorf("create registration: %w", err)
	}
	return reg, nil
}

func (r *RegistrationRepository) GetByPaymentID(ctx context.Context, paymentID string) (types.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.payment_id = $1`
	reg, err := scanRegistration(r.db.queryRow(ctx, query, paymentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Registration{}, ErrNotFound
		}
		return types.Registration{}, fmt.Errorf("get registration by payment id: %w", err)
	}
	return reg, nil
}

func (r *RegistrationRepository) FindByEventAndUser(ctx context.Context, eventID, userID int) (types.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.event_id = $1 AND r.user_id = $2`
	reg, err := scanRegistration(r.db.queryRow(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Registration{}, ErrNotFound
		}
		return types.Registration{}, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

// CountByEvent counts registrations of an event in any payment state.
func (r *RegistrationRepository) CountByEvent(ctx context.Context, eventID int) (int, error) {
	var count int
	if err := r.db.queryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID int) ([]types.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.event_id = $1 ORDER BY r.registration_date`
	rows, err := r.db.query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event registrations: %w", err)
	}
	defer rows.Close()

	regs := make([]types.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// ListDetailed returns every registration, newest first, joined with its user
// and event. A missing side is left nil.
func (r *RegistrationRepository) ListDetailed(ctx context.Context) ([]types.RegistrationDetail, error) {
	query := `
		SELECT ` + registrationColumns + `,
			u.name, u.email, u.student_id,
			e.title, e.date
		FROM registrations r
		LEFT JOIN users u ON u.id = r.user_id
		LEFT JOIN events e ON e.id = r.event_id
		ORDER BY r.registration_date DESC`
	rows, err := r.db.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	details := make([]types.RegistrationDetail, 0)
	for rows.Next() {
		var (
			reg                            types.Registration
			status                         string
			paymentDate                    sql.NullTime
			userName, userEmail, studentID sql.NullString
			eventTitle                     sql.NullString
			eventDate                      types.Date
		)
		if err := rows.Scan(
			&reg.ID,
			&reg.EventID,
			&reg.UserID,
			&reg.RegistrationDate,
			&status,
			&reg.PaymentID,
			&reg.Amount,
			&paymentDate,
			&userName,
			&userEmail,
			&studentID,
			&eventTitle,
			&eventDate,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		reg.PaymentStatus = types.PaymentStatus(status)
		reg.PaymentDate = timePtr(paymentDate)

		detail := types.RegistrationDetail{Registration: reg}
		if userName.Valid {
			detail.User = &types.RegistrationUser{
				Name:      userName.String,
				Email:     userEmail.String,
				StudentID: studentID.String,
			}
		}
		if eventTitle.Valid {
			detail.Event = &types.RegistrationEvent{Title: eventTitle.String, Date: eventDate}
		}
		details = append(details, detail)
	}
	return details, rows.Err()
}

// MarkCompleted moves a pending registration to completed. The update is
// conditional on the pending state, so of two racing payments only one
// succeeds; the other gets ErrNotPending.
func (r *RegistrationRepository) MarkCompleted(ctx context.Context, paymentID string, paidAt time.Time) error {
	const query = `
		UPDATE registrations
		SET payment_status = $1,
			payment_date = $2
		WHERE payment_id = $3 AND payment_status = $4`
	result, err := r.db.exec(
		ctx,
		query,
		string(types.PaymentCompleted),
		paidAt,
		paymentID,
		string(types.PaymentPending),
	)
	if err != nil {
		return fmt.Errorf("complete payment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotPending
	}
	return nil
}

func scanRegistration(row rowScanner) (types.Registration, error) {
	var (
		reg         types.Registration
		status      string
		paymentDate sql.NullTime
	)
	if err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&reg.RegistrationDate,
		&status,
		&reg.PaymentID,
		&reg.Amount,
		&paymentDate,
	); err != nil {
		return types.Registration{}, err
	}
	reg.PaymentStatus = types.PaymentStatus(status)
	reg.PaymentDate = timePtr(paymentDate)
	return reg, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
