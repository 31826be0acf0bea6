package postgres

import (
	"context"
	"database/sql"
	"time"

	"ignitia/internal/domain"
)

type outboxRepository struct {
	DB *sql.DB
}

func NewOutboxRepository(db *sql.DB) domain.OutboxRepository {
	return &outboxRepository{DB: db}
}

func (r *outboxRepository) Enqueue(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notification_outbox (recipient, template, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return executorFrom(ctx, r.DB).QueryRowContext(ctx, query,
		n.Recipient, n.Template, []byte(n.Payload), string(n.Status), n.CreatedAt,
	).Scan(&n.ID)
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT id, recipient, template, payload, status, created_at
		FROM notification_outbox
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := executorFrom(ctx, r.DB).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Notification, 0)
	for rows.Next() {
		n := &domain.Notification{}
		var payload []byte
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Template, &payload, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Payload = payload
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	return r.finish(ctx, id, domain.NotificationSent, at, "")
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, at time.Time, reason string) error {
	return r.finish(ctx, id, domain.NotificationFailed, at, reason)
}

func (r *outboxRepository) finish(ctx context.Context, id string, status domain.NotificationStatus, at time.Time, reason string) error {
	query := `UPDATE notification_outbox SET status = $1, processed_at = $2, error = $3 WHERE id = $4`
	res, err := executorFrom(ctx, r.DB).ExecContext(ctx, query, string(status), at, reason, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
