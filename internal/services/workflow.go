package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ignitia/internal/domain"
)

const defaultContextTimeout = 10 * time.Second

// WorkflowStores groups the stores every team workflow operation reads and writes.
type WorkflowStores struct {
	Users    domain.UserRepository
	Teams    domain.TeamRepository
	Requests domain.RequestRepository
	Tx       domain.Transactor
}

// workflow holds what the team and request services share: the stores, the notifier and
// the helpers that lock rows and admit a user into a team.
type workflow struct {
	users          domain.UserRepository
	teams          domain.TeamRepository
	requests       domain.RequestRepository
	tx             domain.Transactor
	notifier       domain.NotificationService
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

func newWorkflow(stores WorkflowStores, notifier domain.NotificationService, logger *slog.Logger, timeout time.Duration) workflow {
	if timeout <= 0 {
		timeout = defaultContextTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return workflow{
		users:          stores.Users,
		teams:          stores.Teams,
		requests:       stores.Requests,
		tx:             stores.Tx,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

// notice is an email queued while an operation runs. Notices are handed to the notifier once the
// transaction has committed; a notice marked always is sent even when the operation fails.
type notice struct {
	to       string
	template string
	data     any
	always   bool
}

type notices []notice

func (n *notices) add(to, template string, data any) {
	*n = append(*n, notice{to: to, template: template, data: data})
}

func (n *notices) addAlways(to, template string, data any) {
	*n = append(*n, notice{to: to, template: template, data: data, always: true})
}

// run executes fn in one transaction and then emits the notices fn queued.
func (w *workflow) run(ctx context.Context, fn func(ctx context.Context, out *notices) error) error {
	ctx, cancel := context.WithTimeout(ctx, w.contextTimeout)
	defer cancel()

	var out notices
	err := w.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		out = out[:0]
		return fn(ctx, &out)
	})
	w.emit(ctx, out, err == nil)
	return err
}

func (w *workflow) emit(ctx context.Context, out notices, committed bool) {
	if w.notifier == nil {
		return
	}
	for _, n := range out {
		if committed || n.always {
			w.notifier.Notify(ctx, n.to, n.template, n.data)
		}
	}
}

func parseID(id string, invalid error) error {
	if _, err := uuid.Parse(id); err != nil {
		return invalid
	}
	return nil
}

func (w *workflow) lockTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	t, err := w.teams.LockByID(ctx, teamID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock team: %w", err)
	}
	return t, nil
}

func (w *workflow) getTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	t, err := w.teams.GetByID(ctx, teamID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return t, nil
}

func (w *workflow) lockUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := w.users.LockByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return u, nil
}

func (w *workflow) getUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := w.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// leaderOf locks the team and checks that userID leads it.
func (w *workflow) leaderOf(ctx context.Context, userID, teamID string) (*domain.Team, error) {
	t, err := w.lockTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if t.LeaderID != userID {
		return nil, domain.ErrNotTeamLeader
	}
	return t, nil
}

func (w *workflow) pending(ctx context.Context, dir domain.Direction, teamID, userID string) (bool, error) {
	_, err := w.requests.Get(ctx, dir, teamID, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s request: %w", dir, err)
	}
	return true, nil
}

// ledgerEntries counts the entries of userID across both ledgers.
func (w *workflow) ledgerEntries(ctx context.Context, userID string) (int, error) {
	total := 0
	for _, dir := range []domain.Direction{domain.Outbound, domain.Inbound} {
		n, err := w.requests.CountByUser(ctx, dir, userID)
		if err != nil {
			return 0, fmt.Errorf("count %s requests: %w", dir, err)
		}
		total += n
	}
	return total, nil
}

// admit makes user a member of team. All of the user's ledger entries are dropped and every
// counter they fed is recomputed. Once the roster reaches InvitePurgeSize the team's remaining
// invitations are dropped as well.
func (w *workflow) admit(ctx context.Context, team *domain.Team, user *domain.User) error {
	if team.IsFull() {
		return domain.ErrTeamFull
	}
	if err := w.users.SetAffiliation(ctx, user.ID, &domain.Affiliation{TeamID: team.ID, Role: domain.RoleMember}); err != nil {
		return fmt.Errorf("set affiliation: %w", err)
	}
	if err := w.teams.AddMember(ctx, team.ID, user.ID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	team.Members = append(team.Members, user.ID)
	user.Affiliation = &domain.Affiliation{TeamID: team.ID, Role: domain.RoleMember}

	if _, err := w.requests.DeleteByUser(ctx, domain.Outbound, user.ID); err != nil {
		return fmt.Errorf("drop join requests: %w", err)
	}
	invites, err := w.requests.DeleteByUser(ctx, domain.Inbound, user.ID)
	if err != nil {
		return fmt.Errorf("drop invitations: %w", err)
	}
	touched := []string{team.ID}
	for _, inv := range invites {
		if inv.TeamID != team.ID {
			touched = append(touched, inv.TeamID)
		}
	}
	if len(team.Members) == domain.InvitePurgeSize {
		purged, err := w.requests.DeleteByTeam(ctx, domain.Inbound, team.ID)
		if err != nil {
			return fmt.Errorf("purge team invitations: %w", err)
		}
		if len(purged) > 0 {
			w.logger.InfoContext(ctx, "team invitations purged", "team_id", team.ID, "count", len(purged))
		}
	}
	if err := w.users.RefreshPendingRequests(ctx, user.ID); err != nil {
		return fmt.Errorf("refresh pending requests: %w", err)
	}
	if err := w.teams.RefreshPendingInvites(ctx, touched...); err != nil {
		return fmt.Errorf("refresh pending invites: %w", err)
	}
	user.PendingRequests = 0
	w.logger.InfoContext(ctx, "member admitted", "team_id", team.ID, "user_id", user.ID, "members", len(team.Members))
	return nil
}

// details loads the member profiles of a team in roster order.
func (w *workflow) details(ctx context.Context, team *domain.Team) (*domain.TeamDetails, error) {
	users, err := w.users.ListByIDs(ctx, team.Members)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	byID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	members := make([]*domain.MemberProfile, 0, len(team.Members))
	for _, id := range team.Members {
		if u, ok := byID[id]; ok {
			members = append(members, u.Profile())
		}
	}
	return &domain.TeamDetails{Team: team, Members: members}, nil
}
