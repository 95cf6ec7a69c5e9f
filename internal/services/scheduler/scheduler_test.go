package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/silver-circles/internal/config"
	"github.com/magabrotheeeer/silver-circles/internal/services/subscription"
)

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, batchSize int) (subscription.ReconcileReport, error) {
	args := m.Called(ctx, batchSize)
	return args.Get(0).(subscription.ReconcileReport), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestService_RunOnce(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockReconciler)
	}{
		{
			name: "single pass",
			setupMocks: func(m *MockReconciler) {
				m.On("Reconcile", mock.Anything, 2).Return(subscription.ReconcileReport{Checked: 1, Revoked: 1}, nil).Once()
			},
		},
		{
			name: "one call covers every page",
			setupMocks: func(m *MockReconciler) {
				m.On("Reconcile", mock.Anything, 2).Return(subscription.ReconcileReport{Checked: 5, Revoked: 3, Failed: 2}, nil).Once()
			},
		},
		{
			name: "nothing to reconcile",
			setupMocks: func(m *MockReconciler) {
				m.On("Reconcile", mock.Anything, 2).Return(subscription.ReconcileReport{}, nil).Once()
			},
		},
		{
			name: "store error stops the pass",
			setupMocks: func(m *MockReconciler) {
				m.On("Reconcile", mock.Anything, 2).Return(subscription.ReconcileReport{}, errors.New("db down")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := new(MockReconciler)
			tt.setupMocks(rec)
			s := NewService(rec, config.Scheduler{ReconcileInterval: time.Hour, BatchSize: 2}, newNoopLogger())

			s.RunOnce(context.Background())
			rec.AssertExpectations(t)
		})
	}
}

func TestService_RunStopsOnCancel(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("Reconcile", mock.Anything, 100).Return(subscription.ReconcileReport{}, nil)
	s := NewService(rec, config.Scheduler{ReconcileInterval: 10 * time.Millisecond}, newNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	rec.AssertCalled(t, "Reconcile", mock.Anything, 100)
}
