package services

import (
	"context"
	"errors"
	"time"

	"github.com/campus-events/apiserver/internal/clock"
	"github.com/campus-events/apiserver/internal/store"
	"github.com/campus-events/apiserver/types"
	"github.com/google/uuid"
)

// Transactor runs fn in a single storage transaction carried by ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventLocker reads an event and holds it locked for the rest of the
// transaction.
type EventLocker interface {
	GetForUpdate(ctx context.Context, id int) (types.Event, error)
}

// UserFinder resolves a user by id.
type UserFinder interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// RegistrationRepository defines persistence operations for registrations.
type RegistrationRepository interface {
	Create(ctx context.Context, reg types.Registration) (types.Registration, error)
	GetByPaymentID(ctx context.Context, paymentID string) (types.Registration, error)
	FindByEventAndUser(ctx context.Context, eventID, userID int) (types.Registration, error)
	CountByEvent(ctx context.Context, eventID int) (int, error)
	ListByEvent(ctx context.Context, eventID int) ([]types.Registration, error)
	ListDetailed(ctx context.Context) ([]types.RegistrationDetail, error)
	MarkCompleted(ctx context.Context, paymentID string, paidAt time.Time) error
}

// RegistrationService enrolls users in events.
type RegistrationService struct {
	tx       Transactor
	events   EventLocker
	users    UserFinder
	regs     RegistrationRepository
	clock    clock.Clock
	notifier Notifier
}

func NewRegistrationService(
	tx Transactor,
	events EventLocker,
	users UserFinder,
	regs RegistrationRepository,
	clk clock.Clock,
	notifier Notifier,
) *RegistrationService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &RegistrationService{
		tx:       tx,
		events:   events,
		users:    users,
		regs:     regs,
		clock:    clk,
		notifier: notifier,
	}
}

// Register creates a pending registration of userID for eventID.
//
// The checks run in order and the first failure wins: the event must exist,
// the user must be given and exist, the pair must not be registered yet and
// the event must have a free spot. All of them and the insert share one
// transaction that holds the event row locked, so concurrent registrations
// for the same event cannot overbook it.
func (s *RegistrationService) Register(ctx context.Context, eventID, userID int) (types.Registration, error) {
	var reg types.Registration
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		if userID <= 0 {
			return ErrUserIDRequired
		}
		if _, err := s.users.GetByID(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if _, err := s.regs.FindByEventAndUser(ctx, eventID, userID); err == nil {
			return ErrAlreadyRegistered
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		count, err := s.regs.CountByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if count >= event.Capacity {
			return ErrEventFull
		}

		reg, err = s.regs.Create(ctx, types.Registration{
			ID:               uuid.NewString(),
			EventID:          eventID,
			UserID:           userID,
			RegistrationDate: s.clock.Now(),
			PaymentStatus:    types.PaymentPending,
			PaymentID:        uuid.NewString(),
			Amount:           event.Price,
		})
		if errors.Is(err, store.ErrDuplicateRegistration) {
			return ErrAlreadyRegistered
		}
		return err
	})
	if err != nil {
		return types.Registration{}, err
	}

	s.notifier.Notify(ctx, types.Notification{
		Kind:           types.NotificationRegistrationCreated,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		PaymentID:      reg.PaymentID,
		Amount:         reg.Amount,
		OccurredAt:     reg.RegistrationDate,
	})
	return reg, nil
}

// List returns every registration with its user and event summaries, newest first.
func (s *RegistrationService) List(ctx context.Context) ([]types.RegistrationDetail, error) {
	return s.regs.ListDetailed(ctx)
}

// ListForEvent returns the registrations of one event in the order they were made.
func (s *RegistrationService) ListForEvent(ctx context.Context, eventID int) ([]types.Registration, error) {
	return s.regs.ListByEvent(ctx, eventID)
}
