package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/campus-events/apiserver/internal/clock"
	"github.com/campus-events/apiserver/internal/store"
	"github.com/campus-events/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByStudentID(ctx context.Context, studentID string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserInput is a user as submitted by a client. Nil fields were absent.
type UserInput struct {
	Name           *string
	Email          *string
	StudentID      *string
	Department     *string
	GraduationYear *json.Number
	Phone          *string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo  UserRepository
	clock clock.Clock
}

func NewUserService(repo UserRepository, clk clock.Clock) *UserService {
	return &UserService{repo: repo, clock: clk}
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.User{}, ErrUserNotFound
	}
	return user, err
}

// Create validates and stores a new user. Email and student id must both be
// unused; the unique constraints catch a concurrent clash the pre-check misses.
func (s *UserService) Create(ctx context.Context, in UserInput) (types.User, error) {
	requiredFields := []struct {
		name   string
		value  *string
		maxLen int
	}{
		{"name", in.Name, 100},
		{"email", in.Email, 120},
		{"student_id", in.StudentID, 20},
		{"department", in.Department, 100},
	}
	for _, field := range requiredFields {
		if field.value == nil || strings.TrimSpace(*field.value) == "" {
			return types.User{}, required(field.name)
		}
		if err := checkLength(field.name, strings.TrimSpace(*field.value), field.maxLen); err != nil {
			return types.User{}, err
		}
	}
	if in.GraduationYear == nil || *in.GraduationYear == "" {
		return types.User{}, required("graduation_year")
	}
	year, err := strconv.ParseFloat(in.GraduationYear.String(), 64)
	if err != nil || year != math.Trunc(year) || year < 1 || year > 9999 {
		return types.User{}, invalid("graduation_year must be a valid year")
	}

	user := types.User{
		Name:           strings.TrimSpace(*in.Name),
		Email:          strings.TrimSpace(*in.Email),
		StudentID:      strings.TrimSpace(*in.StudentID),
		Department:     strings.TrimSpace(*in.Department),
		GraduationYear: int(year),
		CreatedAt:      s.clock.Now(),
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
		if err := checkLength("phone", user.Phone, 20); err != nil {
			return types.User{}, err
		}
	}

	if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}
	if _, err := s.repo.GetByStudentID(ctx, user.StudentID); err == nil {
		return types.User{}, ErrStudentIDTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	created, err := s.repo.Create(ctx, user)
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		return types.User{}, ErrEmailTaken
	case errors.Is(err, store.ErrDuplicateStudentID):
		return types.User{}, ErrStudentIDTaken
	}
	return created, err
}
