package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/campus-events/apiserver/internal/services"
	"github.com/campus-events/apiserver/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

const (
	statusSuccess = "success"
	statusError   = "error"

	msgInvalidJSON    = "Invalid JSON"
	msgInternalError  = "Internal server error"
	msgUnauthorized   = "Unauthorized"
	msgTooManyRequest = "Too many requests"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func subjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(contextSubjectKey).(string)
	return subject
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: statusError, Message: message})
}

// serviceErrors maps service sentinels onto their status codes. The client
// always sees the sentinel's own message, never the wrapping context.
var serviceErrors = []struct {
	err    error
	status int
}{
	{services.ErrEventNotFound, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrRegistrationNotFound, http.StatusNotFound},
	{services.ErrImageNotFound, http.StatusNotFound},
	{services.ErrUserIDRequired, http.StatusBadRequest},
	{services.ErrMissingPaymentDetails, http.StatusBadRequest},
	{services.ErrPaymentDeclined, http.StatusBadRequest},
	{services.ErrEmailTaken, http.StatusBadRequest},
	{services.ErrStudentIDTaken, http.StatusBadRequest},
	{services.ErrAlreadyRegistered, http.StatusConflict},
	{services.ErrEventFull, http.StatusConflict},
	{services.ErrAlreadyPaid, http.StatusConflict},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrImagesDisabled, http.StatusServiceUnavailable},
}

// writeServiceError maps a service error onto its status code. Anything it
// does not recognise is logged and reported as a generic internal error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Message)
		return
	}
	if errors.Is(err, storage.ErrObjectNotFound) {
		writeError(w, http.StatusNotFound, services.ErrImageNotFound.Error())
		return
	}
	for _, known := range serviceErrors {
		if errors.Is(err, known.err) {
			writeError(w, known.status, known.err.Error())
			return
		}
	}

	slog.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, msgInternalError)
}

// decodeJSON reads a JSON object body into dst. Numbers are kept as
// json.Number so fields can be validated by the services.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(body)
	decoder.UseNumber()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
