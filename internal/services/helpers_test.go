package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/campus-events/apiserver/internal/clock"
	"github.com/campus-events/apiserver/internal/db"
	"github.com/campus-events/apiserver/internal/store"
	"github.com/campus-events/apiserver/types"
)

var testNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db            *store.DB
	events        *store.EventRepository
	users         *store.UserRepository
	regs          *store.RegistrationRepository
	clock         *clock.Fixed
	notifier      *recordingNotifier
	eventService  *EventService
	userService   *UserService
	registrations *RegistrationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	storeDB := store.NewDB(conn, store.DialectSQLite)
	env := &testEnv{
		db:       storeDB,
		events:   store.NewEventRepository(storeDB),
		users:    store.NewUserRepository(storeDB),
		regs:     store.NewRegistrationRepository(storeDB),
		clock:    clock.NewFixed(testNow),
		notifier: &recordingNotifier{},
	}
	env.eventService = NewEventService(env.events, env.regs, env.clock)
	env.userService = NewUserService(env.users, env.clock)
	env.registrations = NewRegistrationService(storeDB, env.events, env.users, env.regs, env.clock, env.notifier)
	return env
}

func (e *testEnv) createEvent(t *testing.T, capacity int, price string) types.Event {
	t.Helper()
	event, err := e.eventService.Create(context.Background(), validEventInput(capacity, price))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func (e *testEnv) createUser(t *testing.T, email, studentID string) types.User {
	t.Helper()
	year := json.Number("2026")
	user, err := e.userService.Create(context.Background(), UserInput{
		Name:           ptr("Student"),
		Email:          ptr(email),
		StudentID:      ptr(studentID),
		Department:     ptr("Computer Science"),
		GraduationYear: &year,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func validEventInput(capacity int, price string) EventInput {
	capNum := json.Number(jsonInt(capacity))
	priceNum := json.Number(price)
	return EventInput{
		Title:       ptr("Tech Talk"),
		Description: ptr("A talk about Go"),
		Date:        ptr("2025-09-15"),
		Time:        ptr("14:30"),
		Location:    ptr("Room 101"),
		Category:    ptr("Technology"),
		Capacity:    &capNum,
		Price:       &priceNum,
	}
}

func jsonInt(n int) string {
	data, _ := json.Marshal(n)
	return string(data)
}

func ptrNumber(s string) *json.Number {
	n := json.Number(s)
	return &n
}

func ptr[T any](v T) *T {
	return &v
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []types.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n types.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) notifications() []types.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Notification(nil), r.sent...)
}

func dashboardRepo(env *testEnv) DashboardRepository {
	return store.NewDashboardRepository(env.db)
}
