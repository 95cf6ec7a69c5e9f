// Package scheduler периодически сверяет премиум пользователей с биллингом.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/config"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/services/subscription"
)

// Reconciler выполняет один проход сверки.
type Reconciler interface {
	Reconcile(ctx context.Context, batchSize int) (subscription.ReconcileReport, error)
}

// Service запускает сверку по таймеру.
type Service struct {
	reconciler Reconciler
	interval   time.Duration
	batchSize  int
	log        *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(reconciler Reconciler, cfg config.Scheduler, log *slog.Logger) *Service {
	interval := cfg.ReconcileInterval
	if interval <= 0 {
		interval = time.Hour
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return &Service{
		reconciler: reconciler,
		interval:   interval,
		batchSize:  batch,
		log:        log,
	}
}

// Run выполняет сверку сразу и затем с заданным интервалом до отмены ctx.
func (s *Service) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reconciliation loop stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один полный проход сверки.
func (s *Service) RunOnce(ctx context.Context) {
	s.log.Info("starting premium reconciliation")
	report, err := s.reconciler.Reconcile(ctx, s.batchSize)
	if err != nil {
		s.log.Error("failed to reconcile premium", sl.Err(err),
			slog.Int("checked", report.Checked),
			slog.Int("failed", report.Failed),
		)
		return
	}
	if report.Checked == 0 {
		s.log.Info("no expired premium found")
		return
	}
	s.log.Info("premium reconciliation finished",
		slog.Int("checked", report.Checked),
		slog.Int("extended", report.Extended),
		slog.Int("revoked", report.Revoked),
		slog.Int("failed", report.Failed),
	)
}
