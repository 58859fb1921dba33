package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/campus-events/apiserver/internal/clock"
	"github.com/campus-events/apiserver/internal/store"
	"github.com/campus-events/apiserver/types"
	"github.com/google/uuid"
)

const (
	defaultEventStatus    = "active"
	defaultEventOrganizer = "University"

	// ImagePathPrefix is the public path under which stored images are served.
	ImagePathPrefix = "/images/"
)

// DefaultCategories is returned by Categories while no event has a category.
var DefaultCategories = []string{
	"Technology", "Cultural", "Career", "Sports", "Academic",
	"Workshop", "Seminar", "Concert", "Exhibition", "Other",
}

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// EventRepository defines persistence operations for events.
type EventRepository interface {
	List(ctx context.Context, filter types.EventFilter) ([]types.Event, error)
	Get(ctx context.Context, id int) (types.Event, error)
	Create(ctx context.Context, event types.Event) (types.Event, error)
	Update(ctx context.Context, event types.Event) (types.Event, error)
	Delete(ctx context.Context, id int) error
	Categories(ctx context.Context) ([]string, error)
}

// RegistrationCounter counts the registrations held by an event.
type RegistrationCounter interface {
	CountByEvent(ctx context.Context, eventID int) (int, error)
}

// ImageStore is the object storage used for uploaded event images.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// EventInput is an event as submitted by a client. Nil fields were absent
// from the request.
type EventInput struct {
	Title       *string
	Description *string
	Date        *string
	Time        *string
	Location    *string
	Category    *string
	Capacity    *json.Number
	Price       *json.Number
	Image       *string
	Status      *string
	Organizer   *string
	Tags        *[]string
}

// EventService encapsulates event use-cases.
type EventService struct {
	repo   EventRepository
	counts RegistrationCounter
	images ImageStore
	clock  clock.Clock
	logger *slog.Logger
}

// EventOption customizes an EventService.
type EventOption func(*EventService)

// WithImageStore enables image uploads backed by the given store.
func WithImageStore(images ImageStore) EventOption {
	return func(s *EventService) {
		s.images = images
	}
}

// WithEventLogger sets the logger used for best-effort cleanup failures.
func WithEventLogger(logger *slog.Logger) EventOption {
	return func(s *EventService) {
		s.logger = logger
	}
}

func NewEventService(repo EventRepository, counts RegistrationCounter, clk clock.Clock, opts ...EventOption) *EventService {
	s := &EventService{
		repo:   repo,
		counts: counts,
		clock:  clk,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EventService) List(ctx context.Context, filter types.EventFilter) ([]types.Event, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Status = strings.TrimSpace(filter.Status)
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// Get returns an event with its current registration count and the spots left.
func (s *EventService) Get(ctx context.Context, id int) (types.EventDetail, error) {
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.EventDetail{}, ErrEventNotFound
		}
		return types.EventDetail{}, err
	}

	count, err := s.counts.CountByEvent(ctx, id)
	if err != nil {
		return types.EventDetail{}, err
	}

	return types.EventDetail{
		Event:           event,
		RegisteredCount: count,
		AvailableSpots:  event.Capacity - count,
	}, nil
}

func (s *EventService) Create(ctx context.Context, in EventInput) (types.Event, error) {
	requiredFields := []struct {
		name  string
		value *string
	}{
		{"title", in.Title},
		{"description", in.Description},
		{"date", in.Date},
		{"time", in.Time},
		{"location", in.Location},
		{"category", in.Category},
	}
	for _, field := range requiredFields {
		if field.value == nil || strings.TrimSpace(*field.value) == "" {
			return types.Event{}, required(field.name)
		}
	}
	if in.Capacity == nil || *in.Capacity == "" {
		return types.Event{}, required("capacity")
	}
	if in.Price == nil || *in.Price == "" {
		return types.Event{}, required("price")
	}

	event := types.Event{
		Status:    defaultEventStatus,
		Organizer: defaultEventOrganizer,
		Tags:      []string{},
		CreatedAt: s.clock.Now(),
	}
	patch, err := in.patch()
	if err != nil {
		return types.Event{}, err
	}
	patch.Apply(&event)

	return s.repo.Create(ctx, event)
}

// Update applies the fields present in the input to an existing event.
func (s *EventService) Update(ctx context.Context, id int, in EventInput) (types.Event, error) {
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Event{}, ErrEventNotFound
		}
		return types.Event{}, err
	}

	patch, err := in.patch()
	if err != nil {
		return types.Event{}, err
	}
	patch.Apply(&event)

	updated, err := s.repo.Update(ctx, event)
	if errors.Is(err, store.ErrNotFound) {
		return types.Event{}, ErrEventNotFound
	}
	return updated, err
}

// Delete removes an event and its registrations, then its stored image.
func (s *EventService) Delete(ctx context.Context, id int) error {
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}

	s.removeImage(ctx, event.Image)
	return nil
}

// Categories lists the categories in use, or DefaultCategories when none are.
func (s *EventService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return append([]string(nil), DefaultCategories...), nil
	}
	return categories, nil
}

// ImagesEnabled reports whether an image store is configured.
func (s *EventService) ImagesEnabled() bool {
	return s.images != nil
}

// SetImage stores an uploaded image and points the event at it. A previously
// uploaded image is removed afterwards.
func (s *EventService) SetImage(ctx context.Context, id int, filename, contentType string, size int64, r io.Reader) (types.Event, error) {
	if s.images == nil {
		return types.Event{}, ErrImagesDisabled
	}

	event, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Event{}, ErrEventNotFound
		}
		return types.Event{}, err
	}

	key := fmt.Sprintf("events/%d/%s%s", id, uuid.NewString(), strings.ToLower(path.Ext(filename)))
	if err := s.images.Put(ctx, key, r, size, contentType); err != nil {
		return types.Event{}, fmt.Errorf("store image: %w", err)
	}

	previous := event.Image
	event.Image = ImagePathPrefix + key
	updated, err := s.repo.Update(ctx, event)
	if err != nil {
		_ = s.images.Delete(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return types.Event{}, ErrEventNotFound
		}
		return types.Event{}, err
	}

	s.removeImage(ctx, previous)
	return updated, nil
}

// OpenImage streams a stored image by its object key.
func (s *EventService) OpenImage(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.images == nil {
		return nil, ErrImagesDisabled
	}
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if !strings.HasPrefix(key, "events/") {
		return nil, ErrImageNotFound
	}
	return s.images.Get(ctx, key)
}

func (s *EventService) removeImage(ctx context.Context, image string) {
	if s.images == nil || !strings.HasPrefix(image, ImagePathPrefix) {
		return
	}
	key := strings.TrimPrefix(image, ImagePathPrefix)
	if err := s.images.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to remove event image", "key", key, "error", err)
	}
}

// Column limits shared by both database dialects.
const (
	maxTitleLen     = 200
	maxLocationLen  = 200
	maxCategoryLen  = 100
	maxImageLen     = 500
	maxStatusLen    = 20
	maxOrganizerLen = 100
	maxPrice        = 99999999.99
)

// patch validates the fields present in the input and normalises them into
// an EventPatch.
func (in EventInput) patch() (types.EventPatch, error) {
	var p types.EventPatch

	textFields := []struct {
		name   string
		value  *string
		maxLen int
		dest   **string
	}{
		{"title", in.Title, maxTitleLen, &p.Title},
		{"description", in.Description, 0, &p.Description},
		{"location", in.Location, maxLocationLen, &p.Location},
		{"category", in.Category, maxCategoryLen, &p.Category},
	}
	for _, field := range textFields {
		if field.value == nil {
			continue
		}
		value := strings.TrimSpace(*field.value)
		if value == "" {
			return types.EventPatch{}, required(field.name)
		}
		if err := checkLength(field.name, value, field.maxLen); err != nil {
			return types.EventPatch{}, err
		}
		*field.dest = &value
	}

	if in.Date != nil {
		date, err := types.ParseDate(*in.Date)
		if err != nil {
			return types.EventPatch{}, invalid("date must be in YYYY-MM-DD format")
		}
		p.Date = &date
	}

	if in.Time != nil {
		value := strings.TrimSpace(*in.Time)
		if !timePattern.MatchString(value) {
			return types.EventPatch{}, invalid("time must be in HH:MM format")
		}
		p.Time = &value
	}

	if in.Capacity != nil {
		capacity, err := parseCapacity(*in.Capacity)
		if err != nil {
			return types.EventPatch{}, err
		}
		p.Capacity = &capacity
	}

	if in.Price != nil {
		price, err := parsePrice(*in.Price)
		if err != nil {
			return types.EventPatch{}, err
		}
		p.Price = &price
	}

	optionalFields := []struct {
		name     string
		value    *string
		fallback string
		maxLen   int
		dest     **string
	}{
		{"image", in.Image, "", maxImageLen, &p.Image},
		{"status", in.Status, defaultEventStatus, maxStatusLen, &p.Status},
		{"organizer", in.Organizer, defaultEventOrganizer, maxOrganizerLen, &p.Organizer},
	}
	for _, field := range optionalFields {
		if field.value == nil {
			continue
		}
		value := strings.TrimSpace(*field.value)
		if value == "" {
			value = field.fallback
		}
		if err := checkLength(field.name, value, field.maxLen); err != nil {
			return types.EventPatch{}, err
		}
		*field.dest = &value
	}

	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		p.Tags = &tags
	}
	return p, nil
}

func checkLength(name, value string, maxLen int) error {
	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		return invalid(fmt.Sprintf("%s must be at most %d characters", name, maxLen))
	}
	return nil
}

func parseCapacity(raw json.Number) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw.String()), 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, invalid("capacity must be a non-negative integer")
	}
	return int(f), nil
}

func parsePrice(raw json.Number) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw.String()), 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, invalid("price must be a non-negative number")
	}
	f = math.Round(f*100) / 100
	if f > maxPrice {
		return 0, invalid("price must be at most 99999999.99")
	}
	return f, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
