package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"ignitia/internal/domain"
)

// payloadValidator is the part of *idtoken.Validator used here.
type payloadValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

type googleVerifier struct {
	validator payloadValidator
	clientID  string
}

// NewGoogleVerifier returns an IdentityVerifier that validates Google ID tokens issued for clientID.
func NewGoogleVerifier(ctx context.Context, clientID string) (domain.IdentityVerifier, error) {
	v, err := idtoken.NewValidator(ctx, option.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	if err != nil {
		return nil, fmt.Errorf("create google id token validator: %w", err)
	}
	return &googleVerifier{validator: v, clientID: clientID}, nil
}

func (g *googleVerifier) VerifyEmail(ctx context.Context, idToken string) (string, error) {
	payload, err := g.validator.Validate(ctx, idToken, g.clientID)
	if err != nil {
		return "", fmt.Errorf("validate id token: %w", err)
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return "", errors.New("id token has no email claim")
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return "", errors.New("id token email is not verified")
	}
	return strings.ToLower(email), nil
}
