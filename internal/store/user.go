package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/campus-events/apiserver/types"
)

const userColumns = `id, name, email, student_id, department, graduation_year, phone, created_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	rows, err := r.db.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepository) GetByStudentID(ctx context.Context, studentID string) (types.User, error) {
	return r.getBy(ctx, "student_id", studentID)
}

func (r *UserRepository) getBy(ctx context.Context, column string, value any) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	user, err := scanUser(r.db.queryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("get user by %s: %w", column, err)
	}
	return user, nil
}

// Create inserts a user. A clash on email or student id is reported as
// ErrDuplicateEmail or ErrDuplicateStudentID.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	const query = `
		INSERT INTO users (name, email, student_id, department, graduation_year, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.queryRow(
		ctx,
		query,
		user.Name,
		user.Email,
		user.StudentID,
		user.Department,
		user.GraduationYear,
		user.Phone,
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		if key, ok := uniqueViolation(err); ok {
			if strings.Contains(key, "student_id") {
				return types.User{}, ErrDuplicateStudentID
			}
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.StudentID,
		&user.Department,
		&user.GraduationYear,
		&user.Phone,
		&user.CreatedAt,
	)
	return user, err
}
