package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// Email template names.
const (
	TemplateWelcome            = "welcome"
	TemplateTeamCreated        = "team_created"
	TemplateAccountRequired    = "account_required"
	TemplateRequestApproved    = "request_approved"
	TemplateInvitationReceived = "invitation_received"
	TemplateInvitationAccepted = "invitation_accepted"
	TemplateMemberRemoved      = "member_removed"
)

// WelcomeMessageEmailData holds data for the welcome email.
type WelcomeMessageEmailData struct {
	Email     string
	FirstName string
}

// TeamEmailData is shared by the team workflow emails. Actor is the other party of the event
// (the leader for invitations, the new member for accepted invitations).
type TeamEmailData struct {
	Email      string
	TeamName   string
	ActorEmail string
}

// NotificationStatus is the delivery state of an outbox entry.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
)

// Notification is an outbox entry: an email waiting to be rendered and sent.
type Notification struct {
	ID          string             `json:"id"`
	Recipient   string             `json:"recipient"`
	Template    string             `json:"template"`
	Payload     json.RawMessage    `json:"payload"`
	Status      NotificationStatus `json:"status"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	ProcessedAt *time.Time         `json:"processed_at,omitempty"`
}

// NewNotification encodes data as the payload of a pending notification.
func NewNotification(recipient, template string, data any, createdAt time.Time) (*Notification, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", template, err)
	}
	return &Notification{
		Recipient: recipient,
		Template:  template,
		Payload:   payload,
		Status:    NotificationPending,
		CreatedAt: createdAt,
	}, nil
}

// OutboxRepository stores notifications until they are dispatched.
type OutboxRepository interface {
	Enqueue(ctx context.Context, n *Notification) error
	// ClaimPending locks up to limit pending rows, skipping rows locked by other dispatchers.
	ClaimPending(ctx context.Context, limit int) ([]*Notification, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, at time.Time, reason string) error
}

// NotificationService queues notifications and delivers them in the background.
// Delivery failures are recorded on the entry and never retried.
type NotificationService interface {
	Notify(ctx context.Context, recipient, template string, data any)
	DispatchPending(ctx context.Context) (sent int, err error)
}
