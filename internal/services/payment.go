package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/campus-events/apiserver/internal/clock"
	"github.com/campus-events/apiserver/internal/store"
	"github.com/campus-events/apiserver/types"
	"github.com/google/uuid"
)

const (
	defaultPaymentDelay       = time.Second
	defaultPaymentSuccessRate = 0.9
)

// PaymentService simulates a card payment for a pending registration.
type PaymentService struct {
	regs        RegistrationRepository
	clock       clock.Clock
	notifier    Notifier
	delay       time.Duration
	successRate float64
	draw        func() float64
}

// PaymentOption customizes a PaymentService.
type PaymentOption func(*PaymentService)

// WithPaymentDelay sets the artificial processing delay. Zero disables it.
func WithPaymentDelay(d time.Duration) PaymentOption {
	return func(s *PaymentService) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithSuccessRate sets the probability, in [0, 1], that a payment is accepted.
func WithSuccessRate(rate float64) PaymentOption {
	return func(s *PaymentService) {
		if rate >= 0 && rate <= 1 {
			s.successRate = rate
		}
	}
}

// WithDraw replaces the random source. draw must return values in [0, 1).
func WithDraw(draw func() float64) PaymentOption {
	return func(s *PaymentService) {
		if draw != nil {
			s.draw = draw
		}
	}
}

// WithPaymentNotifier sets where completed payments are announced.
func WithPaymentNotifier(n Notifier) PaymentOption {
	return func(s *PaymentService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func NewPaymentService(regs RegistrationRepository, clk clock.Clock, opts ...PaymentOption) *PaymentService {
	s := &PaymentService{
		regs:        regs,
		clock:       clk,
		notifier:    NopNotifier(),
		delay:       defaultPaymentDelay,
		successRate: defaultPaymentSuccessRate,
		draw:        rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process runs one payment attempt for the registration behind req.PaymentID.
//
// A declined attempt changes nothing and may be retried. An accepted attempt
// moves the registration from pending to completed exactly once; the charged
// amount is always the one recorded at registration time, whatever the client
// sent.
func (s *PaymentService) Process(ctx context.Context, req types.PaymentRequest) (types.PaymentResult, error) {
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	if req.PaymentID == "" || req.Amount == 0 || strings.TrimSpace(req.CardNumber) == "" {
		return types.PaymentResult{}, ErrMissingPaymentDetails
	}

	reg, err := s.regs.GetByPaymentID(ctx, req.PaymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.PaymentResult{}, ErrRegistrationNotFound
		}
		return types.PaymentResult{}, err
	}
	if reg.PaymentStatus == types.PaymentCompleted {
		return types.PaymentResult{}, ErrAlreadyPaid
	}

	if err := s.wait(ctx); err != nil {
		return types.PaymentResult{}, err
	}

	if s.draw() >= s.successRate {
		return types.PaymentResult{}, ErrPaymentDeclined
	}

	paidAt := s.clock.Now()
	if err := s.regs.MarkCompleted(ctx, reg.PaymentID, paidAt); err != nil {
		if errors.Is(err, store.ErrNotPending) {
			return types.PaymentResult{}, ErrAlreadyPaid
		}
		return types.PaymentResult{}, err
	}
	reg.PaymentStatus = types.PaymentCompleted
	reg.PaymentDate = &paidAt

	result := types.PaymentResult{
		TransactionID: uuid.NewString(),
		Amount:        reg.Amount,
		Registration:  reg,
	}

	s.notifier.Notify(ctx, types.Notification{
		Kind:           types.NotificationPaymentCompleted,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		PaymentID:      reg.PaymentID,
		TransactionID:  result.TransactionID,
		Amount:         reg.Amount,
		OccurredAt:     paidAt,
	})
	return result, nil
}

func (s *PaymentService) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
