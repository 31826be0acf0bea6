package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ignitia/internal/domain"
)

const defaultOutboxBatch = 50

type notificationService struct {
	outbox    domain.OutboxRepository
	tx        domain.Transactor
	mailer    domain.Mailer
	renderer  domain.EmailTemplateRenderer
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

// NewNotificationService returns a NotificationService that queues emails in the outbox and
// delivers up to batchSize of them per DispatchPending call.
func NewNotificationService(outbox domain.OutboxRepository, tx domain.Transactor, mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger, batchSize int) domain.NotificationService {
	if batchSize <= 0 {
		batchSize = defaultOutboxBatch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationService{
		outbox:    outbox,
		tx:        tx,
		mailer:    mailer,
		renderer:  renderer,
		logger:    logger,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Notify queues an email. Failures are logged and never reach the caller.
func (s *notificationService) Notify(ctx context.Context, recipient, template string, data any) {
	n, err := domain.NewNotification(recipient, template, data, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "notification not queued", "template", template, "err", err)
		return
	}
	if err := s.outbox.Enqueue(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "notification not queued", "template", template, "recipient", recipient, "err", err)
		return
	}
	s.logger.DebugContext(ctx, "notification queued", "id", n.ID, "template", template)
}

// DispatchPending sends one batch of queued emails. Each entry ends SENT or FAILED.
func (s *notificationService) DispatchPending(ctx context.Context) (int, error) {
	sent := 0
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		sent = 0
		batch, err := s.outbox.ClaimPending(ctx, s.batchSize)
		if err != nil {
			return fmt.Errorf("claim notifications: %w", err)
		}
		for _, n := range batch {
			if err := s.deliver(n); err != nil {
				s.logger.ErrorContext(ctx, "notification failed", "id", n.ID, "template", n.Template, "err", err)
				if err := s.outbox.MarkFailed(ctx, n.ID, s.now(), err.Error()); err != nil {
					return fmt.Errorf("mark notification failed: %w", err)
				}
				continue
			}
			if err := s.outbox.MarkSent(ctx, n.ID, s.now()); err != nil {
				return fmt.Errorf("mark notification sent: %w", err)
			}
			sent++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sent, nil
}

func (s *notificationService) deliver(n *domain.Notification) error {
	var data map[string]any
	if err := json.Unmarshal(n.Payload, &data); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	subject, htmlBody, textBody, err := s.renderer.Render(n.Template, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", n.Template, err)
	}
	if err := s.mailer.Send(n.Recipient, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
