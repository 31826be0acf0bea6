package email

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ignitia/internal/domain"
)

func TestTemplateRenderer_RendersEveryTemplate(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	data := map[string]any{
		"Email":      "member@example.com",
		"FirstName":  "Asha",
		"TeamName":   "Rocket <Crew>",
		"ActorEmail": "leader@example.com",
	}
	names := []string{
		domain.TemplateWelcome,
		domain.TemplateTeamCreated,
		domain.TemplateAccountRequired,
		domain.TemplateRequestApproved,
		domain.TemplateInvitationReceived,
		domain.TemplateInvitationAccepted,
		domain.TemplateMemberRemoved,
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			subject, html, text, err := r.Render(name, data)
			require.NoError(t, err)
			assert.NotEmpty(t, subject)
			assert.NotContains(t, subject, "\n")
			assert.NotEmpty(t, html)
			assert.NotEmpty(t, text)
			assert.NotContains(t, html, "<Crew>", "html bodies must escape data")
		})
	}
}

func TestTemplateRenderer_StructData(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	subject, _, text, err := r.Render(domain.TemplateInvitationReceived, domain.TeamEmailData{
		Email:      "cand@example.com",
		TeamName:   "Rocket",
		ActorEmail: "lead@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Invitation to join Rocket", subject)
	assert.Contains(t, text, "lead@example.com invited you")
}

func TestTemplateRenderer_UnknownTemplate(t *testing.T) {
	r, err := NewTemplateRenderer()
	require.NoError(t, err)

	_, _, _, err = r.Render("does_not_exist", nil)
	assert.Error(t, err)
}

func TestNewMailer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		config  MailerConfig
		wantErr bool
		wantT   any
	}{
		{name: "noop", config: MailerConfig{Provider: "noop"}, wantT: &noopMailer{}},
		{name: "unknown falls back to noop", config: MailerConfig{Provider: "carrier-pigeon"}, wantT: &noopMailer{}},
		{name: "sendgrid without key", config: MailerConfig{Provider: "sendgrid"}, wantErr: true},
		{name: "sendgrid", config: MailerConfig{Provider: "sendgrid", SendGrid: SendGridConfig{APIKey: "SG.key"}}, wantT: &sendGridMailer{}},
		{name: "ses without region", config: MailerConfig{Provider: "ses"}, wantErr: true},
		{name: "ses", config: MailerConfig{Provider: "ses", SES: SESConfig{Region: "eu-west-1"}}, wantT: &sesMailer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMailer(tt.config, logger)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantT, m)
		})
	}
}

func TestNoopMailer_Send(t *testing.T) {
	m := &noopMailer{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	assert.NoError(t, m.Send("a@b.com", "subject", "<p>hi</p>", "hi"))
}

func TestFormatFrom(t *testing.T) {
	assert.Equal(t, "noreply@ignitia.dev", formatFrom("", "noreply@ignitia.dev"))
	assert.Equal(t, "Ignitia <noreply@ignitia.dev>", formatFrom("Ignitia", "noreply@ignitia.dev"))
}
