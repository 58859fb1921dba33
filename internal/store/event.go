package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/campus-events/apiserver/types"
)

const eventColumns = `id, title, description, date, time, location, category, capacity, price, image, status, organizer, tags, created_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) List(ctx context.Context, filter types.EventFilter) ([]types.Event, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Search))+"%")
		n := len(args)
		lower := r.db.lower()
		conds = append(conds, fmt.Sprintf(`(%s(title) LIKE $%d ESCAPE '\' OR %s(description) LIKE $%d ESCAPE '\')`, lower, n, lower, n))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]types.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepository) Get(ctx context.Context, id int) (types.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(r.db.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Event{}, ErrNotFound
		}
		return types.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// GetForUpdate reads an event and, on Postgres, locks its row until the
// surrounding transaction ends. Registrations for the same event queue up
// behind the lock.
func (r *EventRepository) GetForUpdate(ctx context.Context, id int) (types.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1` + r.db.forUpdate()
	event, err := scanEvent(r.db.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Event{}, ErrNotFound
		}
		return types.Event{}, fmt.Errorf("get event for update: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, event types.Event) (types.Event, error) {
	tagsJSON, err := marshalTags(event.Tags)
	if err != nil {
		return types.Event{}, err
	}

	const query = `
		INSERT INTO events (title, description, date, time, location, category, capacity, price, image, status, organizer, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	if err := r.db.queryRow(
		ctx,
		query,
		event.Title,
		event.Description,
		event.Date,
		event.Time,
		event.Location,
		event.Category,
		event.Capacity,
		event.Price,
		event.Image,
		event.Status,
		event.Organizer,
		tagsJSON,
		event.CreatedAt,
	).Scan(&event.ID); err != nil {
		return types.Event{}, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Update(ctx context.Context, event types.Event) (types.Event, error) {
	tagsJSON, err := marshalTags(event.Tags)
	if err != nil {
		return types.Event{}, err
	}

	const query = `
		UPDATE events
		SET title = $1,
			description = $2,
			date = $3,
			time = $4,
			location = $5,
			category = $6,
			capacity = $7,
			price = $8,
			image = $9,
			status = $10,
			organizer = $11,
			tags = $12
		WHERE id = $13`
	result, err := r.db.exec(
		ctx,
		query,
		event.Title,
		event.Description,
		event.Date,
		event.Time,
		event.Location,
		event.Category,
		event.Capacity,
		event.Price,
		event.Image,
		event.Status,
		event.Organizer,
		tagsJSON,
		event.ID,
	)
	if err != nil {
		return types.Event{}, fmt.Errorf("update event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Event{}, err
	}
	if affected == 0 {
		return types.Event{}, ErrNotFound
	}
	return event, nil
}

// Delete removes an event together with its registrations in one transaction.
func (r *EventRepository) Delete(ctx context.Context, id int) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := r.db.exec(ctx, `DELETE FROM registrations WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("delete event registrations: %w", err)
		}
		result, err := r.db.exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Categories returns the distinct non-empty categories in use, sorted.
func (r *EventRepository) Categories(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT category FROM events WHERE category <> '' ORDER BY category`
	rows, err := r.db.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (types.Event, error) {
	var event types.Event
	var tagsJSON []byte
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Date,
		&event.Time,
		&event.Location,
		&event.Category,
		&event.Capacity,
		&event.Price,
		&event.Image,
		&event.Status,
		&event.Organizer,
		&tagsJSON,
		&event.CreatedAt,
	); err != nil {
		return types.Event{}, err
	}

	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &event.Tags); err != nil {
			return types.Event{}, fmt.Errorf("decode tags of event %d: %w", event.ID, err)
		}
	}
	if event.Tags == nil {
		event.Tags = []string{}
	}
	return event, nil
}

// marshalTags encodes tags as a JSON text value; lib/pq would send a []byte
// as bytea, which a JSONB column rejects.
func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
