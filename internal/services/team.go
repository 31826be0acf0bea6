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

type teamService struct {
	workflow
	tokens domain.TeamTokenManager
}

// NewTeamService creates a TeamService. Every mutating operation runs in one transaction
// and locks the team row before any user row.
func NewTeamService(stores WorkflowStores, tokens domain.TeamTokenManager, notifier domain.NotificationService, logger *slog.Logger, timeout time.Duration) domain.TeamService {
	return &teamService{
		workflow: newWorkflow(stores, notifier, logger, timeout),
		tokens:   tokens,
	}
}

func normalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func (s *teamService) CreateTeam(ctx context.Context, leaderID string, in domain.CreateTeamInput) (*domain.Team, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrEmptyTeamName
	}
	emails := normalizeEmails(in.TeammateEmails)
	if len(emails) > domain.MaxTeammates {
		return nil, domain.ErrTooManyTeammates
	}
	if err := parseID(leaderID, domain.ErrInvalidUserID); err != nil {
		return nil, err
	}

	var team *domain.Team
	err := s.run(ctx, func(ctx context.Context, out *notices) error {
		seen := make(map[string]bool, len(emails))
		for _, e := range emails {
			if seen[e] {
				return domain.ErrDuplicateTeammateEmail
			}
			seen[e] = true
		}
		if _, err := s.teams.GetByName(ctx, name); err == nil {
			return domain.ErrTeamNameTaken
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get team by name: %w", err)
		}

		leader, err := s.lockUser(ctx, leaderID)
		if err != nil {
			return err
		}
		if !leader.IsRegistered(domain.EventYantra) {
			return domain.ErrNotRegisteredForEvent
		}
		if leader.IsAffiliated() {
			return domain.ErrAlreadyInTeam
		}
		if seen[leader.Email] {
			return domain.ErrLeaderCannotBeMember
		}
		n, err := s.ledgerEntries(ctx, leader.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrHasPendingRequests
		}

		memberIDs := make([]string, 0, len(emails))
		for _, email := range emails {
			mate, err := s.users.LockByEmail(ctx, email)
			if errors.Is(err, domain.ErrNotFound) {
				out.addAlways(email, domain.TemplateAccountRequired, domain.TeamEmailData{
					Email: email, TeamName: name, ActorEmail: leader.Email,
				})
				return domain.ErrTeammateNotSignedUp
			}
			if err != nil {
				return fmt.Errorf("lock teammate: %w", err)
			}
			if !mate.IsRegistered(domain.EventYantra) {
				return domain.ErrTeammateNotRegistered
			}
			if mate.IsAffiliated() {
				return domain.ErrTeammateInTeam
			}
			n, err := s.ledgerEntries(ctx, mate.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.ErrTeammateHasPendingRequests
			}
			memberIDs = append(memberIDs, mate.ID)
		}

		team = domain.NewTeam(name, leader.ID, memberIDs, s.now())
		if err := s.teams.Create(ctx, team); err != nil {
			if errors.Is(err, domain.ErrTeamNameTaken) || errors.Is(err, domain.ErrAlreadyInTeam) {
				return err
			}
			return fmt.Errorf("create team: %w", err)
		}
		for _, id := range team.Members {
			role := domain.RoleMember
			if id == leader.ID {
				role = domain.RoleLeader
			}
			if err := s.users.SetAffiliation(ctx, id, &domain.Affiliation{TeamID: team.ID, Role: role}); err != nil {
				return fmt.Errorf("set affiliation: %w", err)
			}
		}
		out.add(leader.Email, domain.TemplateTeamCreated, domain.TeamEmailData{Email: leader.Email, TeamName: team.Name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "team created", "team_id", team.ID, "leader_id", team.LeaderID, "members", len(team.Members))
	return team, nil
}

func (s *teamService) GetTeam(ctx context.Context, teamID string) (*domain.TeamDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return nil, err
	}
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, team)
}

func (s *teamService) ListOpenTeams(ctx context.Context, params domain.PaginationParams) ([]*domain.Team, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	teams, total, err := s.teams.ListOpen(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list open teams: %w", err)
	}
	return teams, total, nil
}

func (s *teamService) RenameTeam(ctx context.Context, leaderID, teamID, name string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyTeamName
	}
	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return nil, err
	}

	var team *domain.Team
	err := s.run(ctx, func(ctx context.Context, _ *notices) error {
		t, err := s.leaderOf(ctx, leaderID, teamID)
		if err != nil {
			return err
		}
		if t.NameChanges >= domain.MaxTeamRenames {
			return domain.ErrRenameLimitReached
		}
		if t.Name == name {
			return domain.ErrTeamNameUnchanged
		}
		if _, err := s.teams.GetByName(ctx, name); err == nil {
			return domain.ErrTeamNameTaken
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get team by name: %w", err)
		}
		if err := s.teams.Rename(ctx, t.ID, name); err != nil {
			if errors.Is(err, domain.ErrTeamNameTaken) {
				return err
			}
			return fmt.Errorf("rename team: %w", err)
		}
		t.Name = name
		t.NameChanges++
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) RemoveMember(ctx context.Context, leaderID, teamID, userID string) error {
	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return err
	}
	if err := parseID(userID, domain.ErrInvalidUserID); err != nil {
		return err
	}
	return s.run(ctx, func(ctx context.Context, out *notices) error {
		team, err := s.leaderOf(ctx, leaderID, teamID)
		if err != nil {
			return err
		}
		target, err := s.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		if !target.InTeam(team.ID) {
			return domain.ErrNotTeamMember
		}
		if target.ID == team.LeaderID {
			return domain.ErrCannotRemoveLeader
		}
		if err := s.detach(ctx, team, target.ID); err != nil {
			return err
		}
		out.add(target.Email, domain.TemplateMemberRemoved, domain.TeamEmailData{Email: target.Email, TeamName: team.Name})
		return nil
	})
}

func (s *teamService) LeaveTeam(ctx context.Context, userID, teamID string) error {
	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return err
	}
	return s.run(ctx, func(ctx context.Context, _ *notices) error {
		team, err := s.lockTeam(ctx, teamID)
		if err != nil {
			return err
		}
		user, err := s.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		if !user.InTeam(team.ID) {
			return domain.ErrNotTeamMember
		}
		if user.LeadsTeam(team.ID) {
			return domain.ErrLeaderCannotLeave
		}
		return s.detach(ctx, team, user.ID)
	})
}

// detach clears the user's affiliation and pulls them from the roster.
func (s *teamService) detach(ctx context.Context, team *domain.Team, userID string) error {
	if err := s.users.SetAffiliation(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear affiliation: %w", err)
	}
	if err := s.teams.RemoveMember(ctx, team.ID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	s.logger.InfoContext(ctx, "member left team", "team_id", team.ID, "user_id", userID)
	return nil
}

func (s *teamService) DeleteTeam(ctx context.Context, leaderID, teamID string) error {
	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return err
	}
	return s.run(ctx, func(ctx context.Context, _ *notices) error {
		team, err := s.leaderOf(ctx, leaderID, teamID)
		if err != nil {
			return err
		}
		if len(team.Members) != 1 {
			return domain.ErrTeamHasMembers
		}
		if team.PendingInvites > 0 {
			return domain.ErrTeamHasPendingInvites
		}
		leader, err := s.lockUser(ctx, leaderID)
		if err != nil {
			return err
		}
		removed, err := s.requests.DeleteByTeam(ctx, domain.Outbound, team.ID)
		if err != nil {
			return fmt.Errorf("drop join requests: %w", err)
		}
		requesters := make([]string, 0, len(removed))
		for _, r := range removed {
			requesters = append(requesters, r.UserID)
		}
		if err := s.users.RefreshPendingRequests(ctx, requesters...); err != nil {
			return fmt.Errorf("refresh pending requests: %w", err)
		}
		if err := s.users.SetAffiliation(ctx, leader.ID, nil); err != nil {
			return fmt.Errorf("clear affiliation: %w", err)
		}
		if err := s.teams.Delete(ctx, team.ID); err != nil {
			return fmt.Errorf("delete team: %w", err)
		}
		s.logger.InfoContext(ctx, "team deleted", "team_id", team.ID, "dropped_requests", len(removed))
		return nil
	})
}

func (s *teamService) UploadSubmission(ctx context.Context, userID string, sub *domain.Submission) (*domain.Team, error) {
	if sub == nil {
		return nil, domain.ErrInvalidInput
	}
	var team *domain.Team
	err := s.run(ctx, func(ctx context.Context, _ *notices) error {
		user, err := s.getUser(ctx, userID)
		if err != nil {
			return err
		}
		if !user.IsAffiliated() {
			return domain.ErrNotInAnyTeam
		}
		t, err := s.lockTeam(ctx, user.Affiliation.TeamID)
		if err != nil {
			return err
		}
		if err := s.teams.UpdateSubmission(ctx, t.ID, sub); err != nil {
			return fmt.Errorf("update submission: %w", err)
		}
		t.Submission = sub
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) GetSubmission(ctx context.Context, userID string) (*domain.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsAffiliated() {
		return nil, domain.ErrNotInAnyTeam
	}
	return s.getTeam(ctx, user.Affiliation.TeamID)
}

func (s *teamService) IssueTeamToken(ctx context.Context, leaderID, teamID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return "", err
	}
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return "", err
	}
	if team.LeaderID != leaderID {
		return "", domain.ErrNotTeamLeader
	}
	token, err := s.tokens.IssueTeamToken(team.ID)
	if err != nil {
		return "", fmt.Errorf("issue team token: %w", err)
	}
	return token, nil
}

// JoinWithToken admits the user into the team named by a leader-issued token, through the same
// admission path as an approved request.
func (s *teamService) JoinWithToken(ctx context.Context, userID, token string) (*domain.Team, error) {
	teamID, err := s.tokens.VerifyTeamToken(token)
	if err != nil {
		return nil, domain.ErrInvalidTeamToken
	}
	var team *domain.Team
	err = s.run(ctx, func(ctx context.Context, out *notices) error {
		t, err := s.lockTeam(ctx, teamID)
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
		if !user.IsRegistered(domain.EventYantra) {
			return domain.ErrNotRegisteredForEvent
		}
		if err := s.admit(ctx, t, user); err != nil {
			return err
		}
		leader, err := s.getUser(ctx, t.LeaderID)
		if err != nil {
			return err
		}
		out.add(leader.Email, domain.TemplateInvitationAccepted, domain.TeamEmailData{
			Email: leader.Email, TeamName: t.Name, ActorEmail: user.Email,
		})
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) ListCandidates(ctx context.Context, leaderID, teamID string, params domain.PaginationParams) ([]*domain.MemberProfile, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := parseID(teamID, domain.ErrInvalidTeamID); err != nil {
		return nil, 0, err
	}
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, 0, err
	}
	if team.LeaderID != leaderID {
		return nil, 0, domain.ErrNotTeamLeader
	}
	users, total, err := s.users.ListCandidates(ctx, domain.EventYantra, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list candidates: %w", err)
	}
	profiles := make([]*domain.MemberProfile, len(users))
	for i, u := range users {
		profiles[i] = u.Profile()
	}
	return profiles, total, nil
}
