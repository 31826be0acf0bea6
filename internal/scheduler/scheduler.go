package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"ignitia/internal/domain"
)

// DefaultOutboxSchedule runs the outbox dispatcher every ten seconds.
const DefaultOutboxSchedule = "*/10 * * * * *"

// Scheduler runs background jobs on cron schedules.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher domain.NotificationService
	logger     *slog.Logger
	timeout    time.Duration
}

// New creates a scheduler that drains the notification outbox on outboxSchedule
// (six-field cron expression, seconds first). Each run is bounded by timeout.
func New(dispatcher domain.NotificationService, outboxSchedule string, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if outboxSchedule == "" {
		outboxSchedule = DefaultOutboxSchedule
	}
	s := &Scheduler{
		// Overlapping runs of the same job are skipped.
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		dispatcher: dispatcher,
		logger:     logger,
		timeout:    timeout,
	}
	if _, err := s.cron.AddFunc(outboxSchedule, s.DispatchOutbox); err != nil {
		return nil, fmt.Errorf("register outbox job %q: %w", outboxSchedule, err)
	}
	return s, nil
}

// DispatchOutbox sends one batch of pending notifications.
func (s *Scheduler) DispatchOutbox() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	sent, err := s.dispatcher.DispatchPending(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "outbox dispatch failed", "err", err)
		return
	}
	if sent > 0 {
		s.logger.InfoContext(ctx, "outbox dispatched", "sent", sent)
	}
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out", "err", ctx.Err())
	}
}
