package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/campus-events/apiserver/internal/clock"
	"github.com/campus-events/apiserver/internal/store"
	"github.com/campus-events/apiserver/types"
)

type fakeRegistrations struct {
	mu        sync.Mutex
	byPayment map[string]types.Registration
	completed int
}

func newFakeRegistrations(regs ...types.Registration) *fakeRegistrations {
	f := &fakeRegistrations{byPayment: make(map[string]types.Registration)}
	for _, reg := range regs {
		f.byPayment[reg.PaymentID] = reg
	}
	return f
}

func (f *fakeRegistrations) Create(_ context.Context, reg types.Registration) (types.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPayment[reg.PaymentID] = reg
	return reg, nil
}

func (f *fakeRegistrations) GetByPaymentID(_ context.Context, paymentID string) (types.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.byPayment[paymentID]
	if !ok {
		return types.Registration{}, store.ErrNotFound
	}
	return reg, nil
}

func (f *fakeRegistrations) FindByEventAndUser(context.Context, int, int) (types.Registration, error) {
	return types.Registration{}, store.ErrNotFound
}

func (f *fakeRegistrations) CountByEvent(context.Context, int) (int, error) {
	return 0, nil
}

func (f *fakeRegistrations) ListByEvent(context.Context, int) ([]types.Registration, error) {
	return nil, nil
}

func (f *fakeRegistrations) ListDetailed(context.Context) ([]types.RegistrationDetail, error) {
	return nil, nil
}

func (f *fakeRegistrations) MarkCompleted(_ context.Context, paymentID string, paidAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.byPayment[paymentID]
	if !ok || reg.PaymentStatus != types.PaymentPending {
		return store.ErrNotPending
	}
	reg.PaymentStatus = types.PaymentCompleted
	reg.PaymentDate = &paidAt
	f.byPayment[paymentID] = reg
	f.completed++
	return nil
}

func pendingRegistration() types.Registration {
	return types.Registration{
		ID:               "reg-1",
		EventID:          1,
		UserID:           2,
		RegistrationDate: testNow,
		PaymentStatus:    types.PaymentPending,
		PaymentID:        "pay-1",
		Amount:           10,
	}
}

func always(v float64) func() float64 {
	return func() float64 { return v }
}

func TestPaymentService_Process(t *testing.T) {
	t.Parallel()

	t.Run("success charges the stored amount", func(t *testing.T) {
		t.Parallel()

		regs := newFakeRegistrations(pendingRegistration())
		notifier := &recordingNotifier{}
		svc := NewPaymentService(regs, clock.NewFixed(testNow),
			WithPaymentDelay(0), WithDraw(always(0)), WithPaymentNotifier(notifier))

		result, err := svc.Process(context.Background(), types.PaymentRequest{PaymentID: "pay-1", Amount: 0.01, CardNumber: "4111"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Amount != 10 {
			t.Fatalf("expected stored amount 10, got %v", result.Amount)
		}
		if result.TransactionID == "" {
			t.Fatalf("expected transaction id")
		}

		stored, _ := regs.GetByPaymentID(context.Background(), "pay-1")
		if stored.PaymentStatus != types.PaymentCompleted || stored.PaymentDate == nil || !stored.PaymentDate.Equal(testNow) {
			t.Fatalf("unexpected stored registration %+v", stored)
		}

		sent := notifier.notifications()
		if len(sent) != 1 || sent[0].Kind != types.NotificationPaymentCompleted || sent[0].TransactionID != result.TransactionID {
			t.Fatalf("unexpected notifications %+v", sent)
		}

		_, err = svc.Process(context.Background(), types.PaymentRequest{PaymentID: "pay-1", Amount: 10, CardNumber: "4111"})
		if !errors.Is(err, ErrAlreadyPaid) {
			t.Fatalf("expected ErrAlreadyPaid, got %v", err)
		}
		if regs.completed != 1 {
			t.Fatalf("expected exactly one completion, got %d", regs.completed)
		}
	})

	t.Run("decline leaves the registration pending", func(t *testing.T) {
		t.Parallel()

		regs := newFakeRegistrations(pendingRegistration())
		notifier := &recordingNotifier{}
		svc := NewPaymentService(regs, clock.NewFixed(testNow),
			WithPaymentDelay(0), WithSuccessRate(0.9), WithDraw(always(0.95)), WithPaymentNotifier(notifier))

		_, err := svc.Process(context.Background(), types.PaymentRequest{PaymentID: "pay-1", Amount: 10, CardNumber: "4111"})
		if !errors.Is(err, ErrPaymentDeclined) {
			t.Fatalf("expected ErrPaymentDeclined, got %v", err)
		}
		stored, _ := regs.GetByPaymentID(context.Background(), "pay-1")
		if stored.PaymentStatus != types.PaymentPending || stored.PaymentDate != nil {
			t.Fatalf("expected registration untouched, got %+v", stored)
		}
		if len(notifier.notifications()) != 0 {
			t.Fatalf("expected no notification on decline")
		}
	})

	t.Run("retry after decline can succeed", func(t *testing.T) {
		t.Parallel()

		draws := []float64{0.99, 0.1}
		draw := func() float64 {
			v := draws[0]
			draws = draws[1:]
			return v
		}
		regs := newFakeRegistrations(pendingRegistration())
		svc := NewPaymentService(regs, clock.NewFixed(testNow), WithPaymentDelay(0), WithDraw(draw))

		req := types.PaymentRequest{PaymentID: "pay-1", Amount: 10, CardNumber: "4111"}
		if _, err := svc.Process(context.Background(), req); !errors.Is(err, ErrPaymentDeclined) {
			t.Fatalf("expected first attempt declined, got %v", err)
		}
		if _, err := svc.Process(context.Background(), req); err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
	})

	t.Run("validation and lookup errors", func(t *testing.T) {
		t.Parallel()

		regs := newFakeRegistrations(pendingRegistration())
		svc := NewPaymentService(regs, clock.NewFixed(testNow), WithPaymentDelay(0), WithDraw(always(0)))

		cases := []struct {
			name    string
			req     types.PaymentRequest
			wantErr error
		}{
			{"missing payment id", types.PaymentRequest{Amount: 10, CardNumber: "4111"}, ErrMissingPaymentDetails},
			{"blank payment id", types.PaymentRequest{PaymentID: "  ", Amount: 10, CardNumber: "4111"}, ErrMissingPaymentDetails},
			{"missing amount", types.PaymentRequest{PaymentID: "pay-1", CardNumber: "4111"}, ErrMissingPaymentDetails},
			{"missing card", types.PaymentRequest{PaymentID: "pay-1", Amount: 10}, ErrMissingPaymentDetails},
			{"unknown payment id", types.PaymentRequest{PaymentID: "nope", Amount: 10, CardNumber: "4111"}, ErrRegistrationNotFound},
		}
		for _, tc := range cases {
			if _, err := svc.Process(context.Background(), tc.req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
			}
		}
		if regs.completed != 0 {
			t.Fatalf("expected no completion, got %d", regs.completed)
		}
	})

	t.Run("cancelled context stops the delay", func(t *testing.T) {
		t.Parallel()

		regs := newFakeRegistrations(pendingRegistration())
		svc := NewPaymentService(regs, clock.NewFixed(testNow), WithPaymentDelay(time.Hour), WithDraw(always(0)))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := svc.Process(ctx, types.PaymentRequest{PaymentID: "pay-1", Amount: 10, CardNumber: "4111"}); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if regs.completed != 0 {
			t.Fatalf("expected no completion, got %d", regs.completed)
		}
	})
}

func TestPaymentService_ConcurrentPaymentsCompleteOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	event := env.createEvent(t, 5, "12.5")
	user := env.createUser(t, "a@uni.edu", "S1")
	reg, err := env.registrations.Register(ctx, event.ID, user.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	svc := NewPaymentService(env.regs, env.clock, WithPaymentDelay(0), WithDraw(always(0)))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, paid int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Process(ctx, types.PaymentRequest{PaymentID: reg.PaymentID, Amount: 1, CardNumber: "4111"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadyPaid):
				paid++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || paid != 4 {
		t.Fatalf("expected 1 success and 4 already paid, got %d and %d", ok, paid)
	}
}

func TestPaymentService_DefaultSourceApprovesAboutNinetyPercent(t *testing.T) {
	t.Parallel()

	const trials = 2000
	regs := make([]types.Registration, trials)
	for i := range regs {
		regs[i] = pendingRegistration()
		regs[i].ID = fmt.Sprintf("reg-%d", i)
		regs[i].PaymentID = fmt.Sprintf("pay-%d", i)
	}
	svc := NewPaymentService(newFakeRegistrations(regs...), clock.NewFixed(testNow), WithPaymentDelay(0))

	approved := 0
	for i := range trials {
		_, err := svc.Process(context.Background(), types.PaymentRequest{
			PaymentID:  fmt.Sprintf("pay-%d", i),
			Amount:     10,
			CardNumber: "4111",
		})
		switch {
		case err == nil:
			approved++
		case errors.Is(err, ErrPaymentDeclined):
		default:
			t.Fatalf("trial %d: unexpected error %v", i, err)
		}
	}

	// Six standard deviations either side of 1800.
	if approved < 1720 || approved > 1880 {
		t.Fatalf("expected about 90%% of %d payments approved, got %d", trials, approved)
	}
}
