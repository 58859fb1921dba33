package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestUserService_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)

	year := json.Number("2026")
	user, err := env.userService.Create(ctx, UserInput{
		Name:           ptr(" John Doe "),
		Email:          ptr("john@student.edu"),
		StudentID:      ptr("STU001"),
		Department:     ptr("Computer Science"),
		GraduationYear: &year,
		Phone:          ptr("+1-555-0101"),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID == 0 || user.Name != "John Doe" || user.GraduationYear != 2026 || user.Phone != "+1-555-0101" {
		t.Fatalf("unexpected user %+v", user)
	}

	got, err := env.userService.GetByID(ctx, user.ID)
	if err != nil || got.Email != "john@student.edu" {
		t.Fatalf("GetByID: got %+v, %v", got, err)
	}
	if _, err := env.userService.GetByID(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	duplicates := []struct {
		name      string
		email     string
		studentID string
		wantErr   error
	}{
		{"email", "john@student.edu", "STU002", ErrEmailTaken},
		{"student id", "other@student.edu", "STU001", ErrStudentIDTaken},
	}
	for _, tc := range duplicates {
		_, err := env.userService.Create(ctx, UserInput{
			Name:           ptr("Other"),
			Email:          ptr(tc.email),
			StudentID:      ptr(tc.studentID),
			Department:     ptr("Math"),
			GraduationYear: &year,
		})
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}

	users, _ := env.userService.List(ctx)
	if len(users) != 1 {
		t.Fatalf("expected one user, got %d", len(users))
	}
}

func TestUserService_CreateValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	valid := func() UserInput {
		return UserInput{
			Name:           ptr("Jane"),
			Email:          ptr("jane@student.edu"),
			StudentID:      ptr("STU002"),
			Department:     ptr("Business"),
			GraduationYear: ptrNumber("2025"),
		}
	}

	cases := []struct {
		name    string
		mutate  func(in *UserInput)
		message string
	}{
		{"missing name", func(in *UserInput) { in.Name = nil }, "name is required"},
		{"blank email", func(in *UserInput) { in.Email = ptr(" ") }, "email is required"},
		{"missing student id", func(in *UserInput) { in.StudentID = nil }, "student_id is required"},
		{"missing department", func(in *UserInput) { in.Department = nil }, "department is required"},
		{"missing year", func(in *UserInput) { in.GraduationYear = nil }, "graduation_year is required"},
		{"fractional year", func(in *UserInput) { in.GraduationYear = ptrNumber("2025.5") }, "graduation_year must be a valid year"},
		{"long student id", func(in *UserInput) { in.StudentID = ptr(strings.Repeat("9", 21)) }, "student_id must be at most 20 characters"},
		{"long phone", func(in *UserInput) { in.Phone = ptr(strings.Repeat("5", 21)) }, "phone must be at most 20 characters"},
	}
	for _, tc := range cases {
		in := valid()
		tc.mutate(&in)
		_, err := env.userService.Create(context.Background(), in)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) || validationErr.Message != tc.message {
			t.Fatalf("%s: expected %q, got %v", tc.name, tc.message, err)
		}
	}
}
