package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ignitia/internal/domain"
)

const (
	sessionAudience = "ignitia:session"
	teamAudience    = "ignitia:team"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type jwtSessions struct {
	secret []byte
}

// NewJWTSessions returns a TokenIssuer and TokenVerifier pair backed by HS256 JWTs.
func NewJWTSessions(secret string) (domain.TokenIssuer, domain.TokenVerifier) {
	s := &jwtSessions{secret: []byte(secret)}
	return s, s
}

func (s *jwtSessions) Issue(userID, email string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{sessionAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (s *jwtSessions) Verify(token string) (string, error) {
	claims := &sessionClaims{}
	if err := parseHS256(token, s.secret, sessionAudience, claims); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

type teamClaims struct {
	jwt.RegisteredClaims
	TeamID string `json:"team_id"`
}

type jwtTeamTokens struct {
	secret []byte
	expiry time.Duration
}

// NewJWTTeamTokens returns a TeamTokenManager signing HS256 tokens valid for expiry.
func NewJWTTeamTokens(secret string, expiry time.Duration) domain.TeamTokenManager {
	return &jwtTeamTokens{secret: []byte(secret), expiry: expiry}
}

func (m *jwtTeamTokens) IssueTeamToken(teamID string) (string, error) {
	now := time.Now()
	claims := teamClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{teamAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
		TeamID: teamID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign team token: %w", err)
	}
	return signed, nil
}

func (m *jwtTeamTokens) VerifyTeamToken(token string) (string, error) {
	claims := &teamClaims{}
	if err := parseHS256(token, m.secret, teamAudience, claims); err != nil {
		return "", domain.ErrInvalidTeamToken
	}
	if claims.TeamID == "" {
		return "", domain.ErrInvalidTeamToken
	}
	return claims.TeamID, nil
}

func parseHS256(token string, secret []byte, audience string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	return nil
}
