package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ignitia/internal/domain"
)

type requestService struct {
	workflow
}

// NewRequestService creates a RequestService covering join requests (outbound) and
// invitations (inbound).
func NewRequestService(stores WorkflowStores, notifier domain.NotificationService, logger *slog.Logger, timeout time.Duration) domain.RequestService {
	return &requestService{workflow: newWorkflow(stores, notifier, logger, timeout)}
}

// refresh recomputes the counter fed by the ledger of dir.
func (s *requestService) refresh(ctx context.Context, dir domain.Direction, teamID, userID string) error {
	if dir == domain.Outbound {
		if err := s.users.RefreshPendingRequests(ctx, userID); err != nil {
			return fmt.Errorf("refresh pending requests: %w", err)
		}
		return nil
	}
	if err := s.teams.RefreshPendingInvites(ctx, teamID); err != nil {
		return fmt.Errorf("refresh pending invites: %w", err)
	}
	return nil
}

// open checks that neither ledger holds the pair and creates the entry in the ledger of dir.
func (s *requestService) open(ctx context.Context, dir domain.Direction, team *domain.Team, user *domain.User, leaderID string) (*domain.PendingRequest, error) {
	other, err := s.pending(ctx, dir.Opposite(), team.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if other {
		return nil, domain.ErrRequestOtherDirection
	}
	same, err := s.pending(ctx, dir, team.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if same {
		return nil, domain.ErrRequestAlreadySent
	}
	return s.insert(ctx, dir, team.ID, user.ID, leaderID)
}

func (s *requestService) insert(ctx context.Context, dir domain.Direction, teamID, userID, leaderID string) (*domain.PendingRequest, error) {
	req := domain.NewPendingRequest(dir, teamID, userID, leaderID, s.now())
	if err := s.requests.Create(ctx, req); err != nil {
		if errors.Is(err, domain.ErrRequestAlreadySent) {
			return nil, err
		}
		return nil, fmt.Errorf("create %s request: %w", dir, err)
	}
	if err := s.refresh(ctx, dir, teamID, userID); err != nil {
		return nil, err
	}
	return req, nil
}

// close deletes the pair's entry from the ledger of dir and recomputes the counter it fed.
func (s *requestService) close(ctx context.Context, dir domain.Direction, teamID, userID string) error {
	if err := s.requests.Delete(ctx, dir, teamID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrRequestNotFound
		}
		return fmt.Errorf("delete %s request: %w", dir, err)
	}
	return s.refresh(ctx, dir, teamID, userID)
}

func (s *requestService) SendJoinRequest(ctx context.Context, userID, teamID string) (*domain.PendingRequest, error) {
	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return nil, err
	}
	var req *domain.PendingRequest
	err := s.run(ctx, func(ctx context.Context, _ *notices) error {
		team, err := s.lockTeam(ctx, teamID)
		if err != nil {
			return err
		}
		user, err := s.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		n, err := s.requests.CountByUser(ctx, domain.Outbound, user.ID)
		if err != nil {
			return fmt.Errorf("count join requests: %w", err)
		}
		if n >= domain.MaxPendingRequests {
			return domain.ErrPendingRequestLimit
		}
		if user.IsAffiliated() {
			return domain.ErrAlreadyInTeam
		}
		if team.IsFull() {
			return domain.ErrTeamFull
		}
		req, err = s.open(ctx, domain.Outbound, team, user, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *requestService) WithdrawJoinRequest(ctx context.Context, userID, teamID string) error {
	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return err
	}
	return s.run(ctx, func(ctx context.Context, _ *notices) error {
		if _, err := s.lockUser(ctx, userID); err != nil {
			return err
		}
		return s.close(ctx, domain.Outbound, teamID, userID)
	})
}

func (s *requestService) RespondToJoinRequest(ctx context.Context, leaderID, teamID, userID string, d domain.Decision) error {
	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return err
	}
	if err := parseID(userID, domain.ErrInvalidUserID); err != nil {
		return err
	}
	if d != domain.DecisionApprove && d != domain.DecisionReject {
		return domain.ErrInvalidDecision
	}
	return s.run(ctx, func(ctx context.Context, out *notices) error {
		team, err := s.leaderOf(ctx, leaderID, teamID)
		if err != nil {
			return err
		}
		user, err := s.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsAffiliated() {
			return domain.ErrAlreadyInTeam
		}
		found, err := s.pending(ctx, domain.Outbound, team.ID, user.ID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrRequestNotFound
		}
		if d == domain.DecisionReject {
			s.logger.InfoContext(ctx, "join request rejected", "team_id", team.ID, "user_id", user.ID)
			return s.close(ctx, domain.Outbound, team.ID, user.ID)
		}
		if err := s.admit(ctx, team, user); err != nil {
			return err
		}
		out.add(user.Email, domain.TemplateRequestApproved, domain.TeamEmailData{Email: user.Email, TeamName: team.Name})
		return nil
	})
}

func (s *requestService) ListTeamJoinRequests(ctx context.Context, leaderID, teamID string) ([]*domain.PendingRequest, error) {
	return s.listForLeader(ctx, domain.Outbound, leaderID, teamID)
}

func (s *requestService) ListUserJoinRequests(ctx context.Context, userID string) ([]*domain.PendingRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsAffiliated() {
		return nil, domain.ErrAlreadyInTeam
	}
	reqs, err := s.requests.ListByUser(ctx, domain.Outbound, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	return reqs, nil
}

func (s *requestService) InviteMember(ctx context.Context, leaderID, teamID, userID string) (*domain.PendingRequest, error) {
	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return nil, err
	}
	if err := parseID(userID, domain.ErrInvalidUserID); err != nil {
		return nil, err
	}
	var req *domain.PendingRequest
	err := s.run(ctx, func(ctx context.Context, out *notices) error {
		team, err := s.leaderOf(ctx, leaderID, teamID)
		if err != nil {
			return err
		}
		candidate, err := s.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		if candidate.IsAffiliated() {
			return domain.ErrAlreadyInTeam
		}
		if team.IsFull() {
			return domain.ErrTeamFull
		}
		other, err := s.pending(ctx, domain.Outbound, team.ID, candidate.ID)
		if err != nil {
			return err
		}
		if other {
			return domain.ErrRequestOtherDirection
		}
		same, err := s.pending(ctx, domain.Inbound, team.ID, candidate.ID)
		if err != nil {
			return err
		}
		if same {
			return domain.ErrRequestAlreadySent
		}
		if team.PendingInvites >= domain.MaxPendingRequests {
			return domain.ErrPendingRequestLimit
		}
		req, err = s.insert(ctx, domain.Inbound, team.ID, candidate.ID, leaderID)
		if err != nil {
			return err
		}
		leader, err := s.getUser(ctx, leaderID)
		if err != nil {
			return err
		}
		out.add(candidate.Email, domain.TemplateInvitationReceived, domain.TeamEmailData{
			Email: candidate.Email, TeamName: team.Name, ActorEmail: leader.Email,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *requestService) WithdrawInvitation(ctx context.Context, leaderID, teamID, userID string) error {
	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return err
	}
	if err := parseID(userID, domain.ErrInvalidUserID); err != nil {
		return err
	}
	return s.run(ctx, func(ctx context.Context, _ *notices) error {
		if _, err := s.leaderOf(ctx, leaderID, teamID); err != nil {
			return err
		}
		return s.close(ctx, domain.Inbound, teamID, userID)
	})
}

func (s *requestService) RespondToInvitation(ctx context.Context, userID, teamID string, d domain.Decision) error {
	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return err
	}
	if d != domain.DecisionApprove && d != domain.DecisionReject {
		return domain.ErrInvalidDecision
	}
	return s.run(ctx, func(ctx context.Context, out *notices) error {
		// Affiliation is reported before the team lookup; the locked row is re-checked below.
		current, err := s.getUser(ctx, userID)
		if err != nil {
			return err
		}
		if current.IsAffiliated() {
			return domain.ErrAlreadyInTeam
		}
		team, err := s.lockTeam(ctx, teamID)
		if err != nil {
			return err
		}
		user, err := s.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsAffiliated() {
			return domain.ErrAlreadyInTeam
		}
		found, err := s.pending(ctx, domain.Inbound, team.ID, user.ID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrRequestNotFound
		}
		if d == domain.DecisionReject {
			s.logger.InfoContext(ctx, "invitation rejected", "team_id", team.ID, "user_id", user.ID)
			return s.close(ctx, domain.Inbound, team.ID, user.ID)
		}
		if err := s.admit(ctx, team, user); err != nil {
			return err
		}
		leader, err := s.getUser(ctx, team.LeaderID)
		if err != nil {
			return err
		}
		out.add(leader.Email, domain.TemplateInvitationAccepted, domain.TeamEmailData{
			Email: leader.Email, TeamName: team.Name, ActorEmail: user.Email,
		})
		return nil
	})
}

func (s *requestService) ListTeamInvitations(ctx context.Context, leaderID, teamID string) ([]*domain.PendingRequest, error) {
	return s.listForLeader(ctx, domain.Inbound, leaderID, teamID)
}

func (s *requestService) ListUserInvitations(ctx context.Context, userID string) ([]*domain.PendingRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	reqs, err := s.requests.ListByUser(ctx, domain.Inbound, userID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return reqs, nil
}

func (s *requestService) listForLeader(ctx context.Context, dir domain.Direction, leaderID, teamID string) ([]*domain.PendingRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return nil, err
	}
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.LeaderID != leaderID {
		return nil, domain.ErrNotTeamLeader
	}
	reqs, err := s.requests.ListByTeam(ctx, dir, team.ID)
	if err != nil {
		return nil, fmt.Errorf("list %s requests: %w", dir, err)
	}
	return reqs, nil
}
