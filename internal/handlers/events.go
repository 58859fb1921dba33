package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/campus-events/apiserver/internal/services"
	"github.com/campus-events/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxImageBytes   = 5 << 20
	formFieldImage  = "image"
	sniffLen        = 512
	msgEventDeleted = "Event deleted"
	msgRegistered   = "Registration successful! Please complete payment."
)

// EventHandler provides HTTP handlers for events and event registration.
type EventHandler struct {
	eventService        *services.EventService
	registrationService *services.RegistrationService
}

func NewEventHandler(eventService *services.EventService, registrationService *services.RegistrationService) *EventHandler {
	return &EventHandler{
		eventService:        eventService,
		registrationService: registrationService,
	}
}

// EventRouter registers event routes on the given router. Writes go through
// requireAdmin; registration goes through limit.
func EventRouter(
	r chi.Router,
	eventService *services.EventService,
	registrationService *services.RegistrationService,
	requireAdmin func(http.Handler) http.Handler,
	limit func(http.Handler) http.Handler,
) {
	handler := NewEventHandler(eventService, registrationService)

	r.Get("/", handler.ListEvents)
	r.With(requireAdmin).Post("/", handler.CreateEvent)
	r.Route("/{eventID}", func(r chi.Router) {
		r.Get("/", handler.GetEvent)
		r.With(requireAdmin).Put("/", handler.UpdateEvent)
		r.With(requireAdmin).Delete("/", handler.DeleteEvent)
		r.With(limit).Post("/register", handler.Register)
		r.With(requireAdmin).Get("/registrations", handler.ListRegistrations)
		if eventService.ImagesEnabled() {
			r.With(requireAdmin).Post("/image", handler.UploadImage)
		}
	})
}

func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	events, err := h.eventService.List(r.Context(), types.EventFilter{
		Category: query.Get("category"),
		Status:   query.Get("status"),
		Search:   query.Get("search"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusNotFound, services.ErrEventNotFound.Error())
		return
	}

	detail, err := h.eventService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	event, err := h.eventService.Create(r.Context(), req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "event created", "event_id", event.ID, "by", subjectFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, EventResponse{Status: statusSuccess, Event: event})
}

func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusNotFound, services.ErrEventNotFound.Error())
		return
	}

	var req EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	event, err := h.eventService.Update(r.Context(), id, req.toInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EventResponse{Status: statusSuccess, Event: event})
}

func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusNotFound, services.ErrEventNotFound.Error())
		return
	}

	if err := h.eventService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "event deleted", "event_id", id, "by", subjectFromContext(r.Context()))
	writeJSON(w, http.StatusOK, MessageResponse{Status: statusSuccess, Message: msgEventDeleted})
}

// Register enrolls the user named in the body for the event.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusNotFound, services.ErrEventNotFound.Error())
		return
	}

	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if _, err := h.eventService.Get(r.Context(), eventID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	reg, err := h.registrationService.Register(r.Context(), eventID, req.userID())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Status:       statusSuccess,
		Registration: reg,
		Message:      msgRegistered,
	})
}

// ListRegistrations returns the registrations of one event, oldest first.
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusNotFound, services.ErrEventNotFound.Error())
		return
	}

	if _, err := h.eventService.Get(r.Context(), eventID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	regs, err := h.registrationService.ListForEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// UploadImage stores a multipart "image" file and attaches it to the event.
func (h *EventHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusNotFound, services.ErrEventNotFound.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "image must be a multipart upload of at most 5 MiB")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		writeError(w, http.StatusBadRequest, "image must be at most 5 MiB")
		return
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "image must be an image file")
		return
	}

	body := io.MultiReader(bytes.NewReader(head), file)
	event, err := h.eventService.SetImage(r.Context(), id, header.Filename, contentType, header.Size, body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EventResponse{Status: statusSuccess, Event: event})
}

// ImageRouter serves stored event images.
func ImageRouter(r chi.Router, eventService *services.EventService) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		reader, err := eventService.OpenImage(r.Context(), key)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		defer reader.Close()

		if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, reader)
	})
}

// EventRequest is the JSON body of event create and update. Absent fields
// stay nil.
type EventRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Date        *string      `json:"date"`
	Time        *string      `json:"time"`
	Location    *string      `json:"location"`
	Category    *string      `json:"category"`
	Capacity    *json.Number `json:"capacity"`
	Price       *json.Number `json:"price"`
	Image       *string      `json:"image"`
	Status      *string      `json:"status"`
	Organizer   *string      `json:"organizer"`
	Tags        *[]string    `json:"tags"`
}

func (req EventRequest) toInput() services.EventInput {
	return services.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Location:    req.Location,
		Category:    req.Category,
		Capacity:    req.Capacity,
		Price:       req.Price,
		Image:       req.Image,
		Status:      req.Status,
		Organizer:   req.Organizer,
		Tags:        req.Tags,
	}
}

type EventResponse struct {
	Status string      `json:"status"`
	Event  types.Event `json:"event"`
}

type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RegisterRequest accepts user_id as a JSON number or a numeric string.
type RegisterRequest struct {
	UserID json.RawMessage `json:"user_id"`
}

// userID returns 0 when the id is absent or unusable.
func (req RegisterRequest) userID() int {
	raw := strings.TrimSpace(string(req.UserID))
	if raw == "" || raw == "null" {
		return 0
	}
	raw = strings.Trim(raw, `"`)
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id < 0 {
		return 0
	}
	return id
}

type RegisterResponse struct {
	Status       string             `json:"status"`
	Registration types.Registration `json:"registration"`
	Message      string             `json:"message"`
}
