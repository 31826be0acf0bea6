package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ignitia/internal/domain"
)

const minPasswordLen = 8

var (
	emailRegexp    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)
)

type authService struct {
	userRepo       domain.UserRepository
	hasher         domain.PasswordHasher
	tokenIssuer    domain.TokenIssuer
	identity       domain.IdentityVerifier
	notifier       domain.NotificationService
	tokenExpiry    time.Duration
	contextTimeout time.Duration
}

// NewAuthService creates an AuthService for password and Google sign-in.
func NewAuthService(userRepo domain.UserRepository, hasher domain.PasswordHasher, tokenIssuer domain.TokenIssuer, identity domain.IdentityVerifier, notifier domain.NotificationService, tokenExpiry, timeout time.Duration) domain.AuthService {
	if timeout <= 0 {
		timeout = defaultContextTimeout
	}
	return &authService{
		userRepo:       userRepo,
		hasher:         hasher,
		tokenIssuer:    tokenIssuer,
		identity:       identity,
		notifier:       notifier,
		tokenExpiry:    tokenExpiry,
		contextTimeout: timeout,
	}
}

func (s *authService) SignUp(ctx context.Context, username, email, password string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if !usernameRegexp.MatchString(username) || !emailRegexp.MatchString(email) || len(password) < minPasswordLen {
		return nil, domain.ErrInvalidInput
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := domain.NewUser(domain.LoginBasic, username, email, now, now)
	user.PasswordHash = hash
	user.Salt = salt
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.welcome(ctx, user)
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.LoginType != domain.LoginBasic || user.PasswordHash == "" {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	token, err := s.tokenIssuer.Issue(user.ID, user.Email, s.tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}

// GoogleAuth logs in the account whose email the identity token vouches for, creating it on
// first use.
func (s *authService) GoogleAuth(ctx context.Context, idToken, email string) (string, *domain.User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	verified, err := s.identity.VerifyEmail(ctx, idToken)
	if err != nil {
		return "", nil, false, domain.ErrInvalidCredentials
	}
	if verified != strings.TrimSpace(strings.ToLower(email)) {
		return "", nil, false, domain.ErrIdentityMismatch
	}

	created := false
	user, err := s.userRepo.GetByEmail(ctx, verified)
	if errors.Is(err, domain.ErrNotFound) {
		now := time.Now()
		user = domain.NewUser(domain.LoginGoogle, "", verified, now, now)
		if err := s.userRepo.Create(ctx, user); err != nil {
			return "", nil, false, fmt.Errorf("failed to create user: %w", err)
		}
		created = true
		s.welcome(ctx, user)
	} else if err != nil {
		return "", nil, false, fmt.Errorf("failed to get user: %w", err)
	}

	token, err := s.tokenIssuer.Issue(user.ID, user.Email, s.tokenExpiry)
	if err != nil {
		return "", nil, false, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, created, nil
}

func (s *authService) welcome(ctx context.Context, user *domain.User) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, user.Email, domain.TemplateWelcome, domain.WelcomeMessageEmailData{
		Email:     user.Email,
		FirstName: user.FirstName,
	})
}
