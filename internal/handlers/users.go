package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/campus-events/apiserver/internal/services"
	"github.com/campus-events/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// UserHandler provides HTTP handlers for student accounts.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService) {
	handler := NewUserHandler(userService)

	r.Get("/", handler.ListUsers)
	r.Post("/", handler.CreateUser)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	user, err := h.userService.Create(r.Context(), services.UserInput{
		Name:           req.Name,
		Email:          req.Email,
		StudentID:      req.StudentID,
		Department:     req.Department,
		GraduationYear: req.GraduationYear,
		Phone:          req.Phone,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserResponse{Status: statusSuccess, User: user})
}

type UserRequest struct {
	Name           *string      `json:"name"`
	Email          *string      `json:"email"`
	StudentID      *string      `json:"student_id"`
	Department     *string      `json:"department"`
	GraduationYear *json.Number `json:"graduation_year"`
	Phone          *string      `json:"phone"`
}

type UserResponse struct {
	Status string     `json:"status"`
	User   types.User `json:"user"`
}
