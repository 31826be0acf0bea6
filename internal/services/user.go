package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ignitia/internal/domain"
)

type userService struct {
	workflow
	catalog []domain.Event
}

// NewUserService creates a UserService over the given event catalog.
func NewUserService(stores WorkflowStores, catalog []domain.Event, logger *slog.Logger, timeout time.Duration) domain.UserService {
	return &userService{
		workflow: newWorkflow(stores, nil, logger, timeout),
		catalog:  catalog,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := &domain.Profile{User: user}
	if !user.IsAffiliated() {
		return profile, nil
	}
	team, err := s.getTeam(ctx, user.Affiliation.TeamID)
	if err != nil {
		return nil, err
	}
	if profile.Team, err = s.details(ctx, team); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *userService) FillDetails(ctx context.Context, userID string, details domain.UserDetails) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	details.FirstName = strings.TrimSpace(details.FirstName)
	details.LastName = strings.TrimSpace(details.LastName)
	details.MobileNumber = strings.TrimSpace(details.MobileNumber)
	details.RegNo = strings.ToUpper(strings.TrimSpace(details.RegNo))
	if details.FirstName == "" || details.MobileNumber == "" || details.RegNo == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := parseID(userID, domain.ErrInvalidUserID); err != nil {
		return nil, err
	}
	if err := s.users.UpdateDetails(ctx, userID, details); errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("update details: %w", err)
	}
	return s.getUser(ctx, userID)
}

// SetRegistration toggles the user's registration for one event. Leaving YANTRA drops the
// user's pending join requests and invitations.
func (s *userService) SetRegistration(ctx context.Context, userID string, code domain.EventCode, op domain.RegistrationOp) (*domain.User, error) {
	if !code.Valid() {
		return nil, domain.ErrInvalidEventCode
	}
	if op != domain.OpRegister && op != domain.OpUnregister {
		return nil, domain.ErrInvalidInput
	}
	var user *domain.User
	err := s.run(ctx, func(ctx context.Context, _ *notices) error {
		u, err := s.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		if op == domain.OpRegister {
			if u.IsRegistered(code) {
				return domain.ErrAlreadyRegistered
			}
			u.RegisteredEvents[code] = domain.Registered
		} else {
			if !u.IsRegistered(code) {
				return domain.ErrNotRegistered
			}
			if code == domain.EventYantra && u.IsAffiliated() {
				return domain.ErrCannotUnregisterInTeam
			}
			u.RegisteredEvents[code] = domain.NotRegistered
			if code == domain.EventYantra {
				if err := s.dropLedgers(ctx, u); err != nil {
					return err
				}
			}
		}
		if err := s.users.SetRegisteredEvents(ctx, u.ID, u.RegisteredEvents); err != nil {
			return fmt.Errorf("set registered events: %w", err)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) dropLedgers(ctx context.Context, u *domain.User) error {
	if _, err := s.requests.DeleteByUser(ctx, domain.Outbound, u.ID); err != nil {
		return fmt.Errorf("drop join requests: %w", err)
	}
	invites, err := s.requests.DeleteByUser(ctx, domain.Inbound, u.ID)
	if err != nil {
		return fmt.Errorf("drop invitations: %w", err)
	}
	teams := make([]string, 0, len(invites))
	for _, inv := range invites {
		teams = append(teams, inv.TeamID)
	}
	if err := s.users.RefreshPendingRequests(ctx, u.ID); err != nil {
		return fmt.Errorf("refresh pending requests: %w", err)
	}
	if err := s.teams.RefreshPendingInvites(ctx, teams...); err != nil {
		return fmt.Errorf("refresh pending invites: %w", err)
	}
	u.PendingRequests = 0
	return nil
}

func (s *userService) ListEvents(ctx context.Context) []domain.Event {
	out := make([]domain.Event, len(s.catalog))
	copy(out, s.catalog)
	return out
}
