package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campus-events/apiserver/internal/services"
	"github.com/campus-events/apiserver/internal/storage"
)

func TestWriteServiceError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err         error
		wantStatus  int
		wantMessage string
	}{
		{&services.ValidationError{Message: "title is required"}, http.StatusBadRequest, "title is required"},
		{services.ErrUserIDRequired, http.StatusBadRequest, "user_id is required"},
		{services.ErrMissingPaymentDetails, http.StatusBadRequest, "Missing payment details"},
		{services.ErrPaymentDeclined, http.StatusBadRequest, "Payment failed. Please try again."},
		{services.ErrEmailTaken, http.StatusBadRequest, "Email already registered"},
		{services.ErrStudentIDTaken, http.StatusBadRequest, "Student ID already registered"},
		{services.ErrEventNotFound, http.StatusNotFound, "Event not found"},
		{services.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{services.ErrRegistrationNotFound, http.StatusNotFound, "Registration not found"},
		{storage.ErrObjectNotFound, http.StatusNotFound, "Image not found"},
		{services.ErrAlreadyRegistered, http.StatusConflict, "Already registered for this event"},
		{services.ErrEventFull, http.StatusConflict, "Event is full"},
		{services.ErrAlreadyPaid, http.StatusConflict, "Payment already completed"},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{services.ErrImagesDisabled, http.StatusServiceUnavailable, "image storage is not configured"},
		{fmt.Errorf("wrapped: %w", services.ErrEventFull), http.StatusConflict, "Event is full"},
		{fmt.Errorf("get event 9: %w", services.ErrEventNotFound), http.StatusNotFound, "Event not found"},
		{fmt.Errorf("register: %w", &services.ValidationError{Message: "capacity must be a non-negative integer"}), http.StatusBadRequest, "capacity must be a non-negative integer"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

		if rec.Code != tc.wantStatus {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.wantStatus, rec.Code)
		}
		resp := decodeError(t, rec)
		if resp.Status != "error" || resp.Message != tc.wantMessage {
			t.Fatalf("%v: expected message %q, got %+v", tc.err, tc.wantMessage, resp)
		}
	}
}

func TestRegisterRequestUserID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		body string
		want int
	}{
		{`{"user_id": 7}`, 7},
		{`{"user_id": "7"}`, 7},
		{`{"user_id": null}`, 0},
		{`{}`, 0},
		{`{"user_id": "abc"}`, 0},
		{`{"user_id": 1.5}`, 0},
		{`{"user_id": -3}`, 0},
	}
	for _, tc := range cases {
		var req RegisterRequest
		if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.body, err)
		}
		if got := req.userID(); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.body, tc.want, got)
		}
	}
}

func TestPaymentRequestFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		body       string
		wantAmount float64
		wantCard   string
	}{
		{`{"amount": 25.5, "card_number": "4111 1111"}`, 25.5, "4111 1111"},
		{`{"amount": "25.5", "card_number": 4111111111111111}`, 25.5, "4111111111111111"},
		{`{"amount": null}`, 0, ""},
		{`{"amount": "free", "card_number": ""}`, 0, ""},
	}
	for _, tc := range cases {
		var req PaymentRequest
		if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.body, err)
		}
		if got := req.amount(); got != tc.wantAmount {
			t.Fatalf("%s: expected amount %v, got %v", tc.body, tc.wantAmount, got)
		}
		if got := req.cardNumber(); got != tc.wantCard {
			t.Fatalf("%s: expected card %q, got %q", tc.body, tc.wantCard, got)
		}
	}
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func TestHealth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"connected", nil, "connected"},
		{"disconnected", errors.New("dial tcp: refused"), "disconnected"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		Health(stubPinger{err: tc.err})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", tc.name, http.StatusOK, rec.Code)
		}
		var resp HealthResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if resp.Status != "ok" || resp.Database != tc.want || resp.Timestamp.IsZero() {
			t.Fatalf("%s: unexpected body %+v", tc.name, resp)
		}
	}
}
