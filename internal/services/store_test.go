package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ignitia/internal/domain"
)

// memStore is an in-memory implementation of the user, team and ledger repositories.
// memTx serializes transactions on txMu and restores a snapshot when fn fails, so the
// repositories themselves do no locking.
type memStore struct {
	txMu   sync.Mutex
	users  map[string]*domain.User
	teams  map[string]*domain.Team
	ledger map[domain.Direction][]*domain.PendingRequest
	clock  time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*domain.User),
		teams: make(map[string]*domain.Team),
		ledger: map[domain.Direction][]*domain.PendingRequest{
			domain.Outbound: {},
			domain.Inbound:  {},
		},
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) stores() WorkflowStores {
	return WorkflowStores{Users: memUsers{m}, Teams: memTeams{m}, Requests: memRequests{m}, Tx: memTx{m}}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.Affiliation != nil {
		a := *u.Affiliation
		c.Affiliation = &a
	}
	return &c
}

func cloneTeam(t *domain.Team) *domain.Team {
	c := *t
	c.Members = append([]string{}, t.Members...)
	if t.Submission != nil {
		s := *t.Submission
		c.Submission = &s
	}
	return &c
}

func cloneRequest(r *domain.PendingRequest) *domain.PendingRequest {
	c := *r
	return &c
}

type memSnapshot struct {
	users  map[string]*domain.User
	teams  map[string]*domain.Team
	ledger map[domain.Direction][]*domain.PendingRequest
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		users:  make(map[string]*domain.User, len(m.users)),
		teams:  make(map[string]*domain.Team, len(m.teams)),
		ledger: make(map[domain.Direction][]*domain.PendingRequest, len(m.ledger)),
	}
	for id, u := range m.users {
		s.users[id] = cloneUser(u)
	}
	for id, t := range m.teams {
		s.teams[id] = cloneTeam(t)
	}
	for dir, entries := range m.ledger {
		cp := make([]*domain.PendingRequest, len(entries))
		for i, r := range entries {
			cp[i] = cloneRequest(r)
		}
		s.ledger[dir] = cp
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.users, m.teams, m.ledger = s.users, s.teams, s.ledger
}

func (m *memStore) countUser(dir domain.Direction, userID string) int {
	n := 0
	for _, r := range m.ledger[dir] {
		if r.UserID == userID {
			n++
		}
	}
	return n
}

func (m *memStore) countTeam(dir domain.Direction, teamID string) int {
	n := 0
	for _, r := range m.ledger[dir] {
		if r.TeamID == teamID {
			n++
		}
	}
	return n
}

func page[T any](items []T, p domain.PaginationParams) []T {
	start := min(p.Offset(), len(items))
	end := len(items)
	if p.PageSize > 0 && start+p.PageSize < end {
		end = start + p.PageSize
	}
	return items[start:end]
}

type memTx struct{ *memStore }

func (m memTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memUsers struct{ *memStore }

func (r memUsers) Create(ctx context.Context, u *domain.User) error {
	for _, e := range r.users {
		if e.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
		if u.Username != "" && e.Username == u.Username {
			return domain.ErrDuplicateUsername
		}
	}
	u.ID = uuid.NewString()
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r memUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username != "" && u.Username == username })
}

func (r memUsers) LockByID(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r memUsers) LockByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.GetByEmail(ctx, email)
}

func (r memUsers) ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r memUsers) UpdateDetails(ctx context.Context, id string, d domain.UserDetails) error {
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.FirstName, u.LastName, u.MobileNumber, u.RegNo = d.FirstName, d.LastName, d.MobileNumber, d.RegNo
	u.HasFilledDetails = true
	return nil
}

func (r memUsers) SetRegisteredEvents(ctx context.Context, id string, events domain.RegisteredEvents) error {
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.RegisteredEvents = events
	return nil
}

func (r memUsers) SetAffiliation(ctx context.Context, id string, a *domain.Affiliation) error {
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Affiliation = nil
	if a != nil {
		cp := *a
		u.Affiliation = &cp
	}
	return nil
}

func (r memUsers) RefreshPendingRequests(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			u.PendingRequests = r.countUser(domain.Outbound, id)
		}
	}
	return nil
}

func (r memUsers) ListCandidates(ctx context.Context, event domain.EventCode, params domain.PaginationParams) ([]*domain.User, int, error) {
	all := make([]*domain.User, 0)
	for _, u := range r.users {
		if u.IsRegistered(event) && !u.IsAffiliated() {
			all = append(all, cloneUser(u))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return page(all, params), len(all), nil
}

type memTeams struct{ *memStore }

func (r memTeams) rostered(userID string) bool {
	for _, t := range r.teams {
		if t.HasMember(userID) {
			return true
		}
	}
	return false
}

func (r memTeams) Create(ctx context.Context, t *domain.Team) error {
	for _, e := range r.teams {
		if e.Name == t.Name {
			return domain.ErrTeamNameTaken
		}
	}
	for _, id := range t.Members {
		if r.rostered(id) {
			return domain.ErrAlreadyInTeam
		}
	}
	t.ID = uuid.NewString()
	r.teams[t.ID] = cloneTeam(t)
	return nil
}

func (r memTeams) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	t, ok := r.teams[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTeam(t), nil
}

func (r memTeams) GetByName(ctx context.Context, name string) (*domain.Team, error) {
	for _, t := range r.teams {
		if t.Name == name {
			return cloneTeam(t), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memTeams) LockByID(ctx context.Context, id string) (*domain.Team, error) {
	return r.GetByID(ctx, id)
}

func (r memTeams) ListOpen(ctx context.Context, params domain.PaginationParams) ([]*domain.Team, int, error) {
	open := make([]*domain.Team, 0)
	for _, t := range r.teams {
		if !t.IsFull() {
			open = append(open, cloneTeam(t))
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Name < open[j].Name })
	return page(open, params), len(open), nil
}

func (r memTeams) AddMember(ctx context.Context, teamID, userID string) error {
	t, ok := r.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.rostered(userID) {
		return domain.ErrAlreadyInTeam
	}
	t.Members = append(t.Members, userID)
	return nil
}

func (r memTeams) RemoveMember(ctx context.Context, teamID, userID string) error {
	t, ok := r.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	i := slices.Index(t.Members, userID)
	if i < 0 {
		return domain.ErrNotFound
	}
	t.Members = slices.Delete(t.Members, i, i+1)
	return nil
}

func (r memTeams) Rename(ctx context.Context, teamID, name string) error {
	t, ok := r.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, e := range r.teams {
		if e.ID != teamID && e.Name == name {
			return domain.ErrTeamNameTaken
		}
	}
	t.Name = name
	t.NameChanges++
	return nil
}

func (r memTeams) UpdateSubmission(ctx context.Context, teamID string, s *domain.Submission) error {
	t, ok := r.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *s
	t.Submission = &cp
	return nil
}

func (r memTeams) Delete(ctx context.Context, id string) error {
	if _, ok := r.teams[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.teams, id)
	for dir, entries := range r.ledger {
		r.ledger[dir] = slices.DeleteFunc(entries, func(p *domain.PendingRequest) bool { return p.TeamID == id })
	}
	return nil
}

func (r memTeams) RefreshPendingInvites(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if t, ok := r.teams[id]; ok {
			t.PendingInvites = r.countTeam(domain.Inbound, id)
		}
	}
	return nil
}

type memRequests struct{ *memStore }

func (r memRequests) index(dir domain.Direction, teamID, userID string) int {
	return slices.IndexFunc(r.ledger[dir], func(p *domain.PendingRequest) bool {
		return p.TeamID == teamID && p.UserID == userID
	})
}

func (r memRequests) Create(ctx context.Context, req *domain.PendingRequest) error {
	if r.index(req.Direction, req.TeamID, req.UserID) >= 0 {
		return domain.ErrRequestAlreadySent
	}
	req.ID = uuid.NewString()
	r.ledger[req.Direction] = append(r.ledger[req.Direction], cloneRequest(req))
	return nil
}

func (r memRequests) Get(ctx context.Context, dir domain.Direction, teamID, userID string) (*domain.PendingRequest, error) {
	i := r.index(dir, teamID, userID)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	return cloneRequest(r.ledger[dir][i]), nil
}

func (r memRequests) list(dir domain.Direction, match func(*domain.PendingRequest) bool) []*domain.PendingRequest {
	out := make([]*domain.PendingRequest, 0)
	for _, p := range r.ledger[dir] {
		if !match(p) {
			continue
		}
		c := cloneRequest(p)
		if t, ok := r.teams[p.TeamID]; ok {
			c.TeamName = t.Name
		}
		if u, ok := r.users[p.UserID]; ok {
			c.User = u.Profile()
		}
		out = append(out, c)
	}
	return out
}

func (r memRequests) ListByUser(ctx context.Context, dir domain.Direction, userID string) ([]*domain.PendingRequest, error) {
	return r.list(dir, func(p *domain.PendingRequest) bool { return p.UserID == userID }), nil
}

func (r memRequests) ListByTeam(ctx context.Context, dir domain.Direction, teamID string) ([]*domain.PendingRequest, error) {
	return r.list(dir, func(p *domain.PendingRequest) bool { return p.TeamID == teamID }), nil
}

func (r memRequests) CountByUser(ctx context.Context, dir domain.Direction, userID string) (int, error) {
	return r.countUser(dir, userID), nil
}

func (r memRequests) Delete(ctx context.Context, dir domain.Direction, teamID, userID string) error {
	i := r.index(dir, teamID, userID)
	if i < 0 {
		return domain.ErrNotFound
	}
	r.ledger[dir] = slices.Delete(r.ledger[dir], i, i+1)
	return nil
}

func (r memRequests) deleteWhere(dir domain.Direction, match func(*domain.PendingRequest) bool) []*domain.PendingRequest {
	removed := make([]*domain.PendingRequest, 0)
	kept := make([]*domain.PendingRequest, 0, len(r.ledger[dir]))
	for _, p := range r.ledger[dir] {
		if match(p) {
			removed = append(removed, cloneRequest(p))
		} else {
			kept = append(kept, p)
		}
	}
	r.ledger[dir] = kept
	return removed
}

func (r memRequests) DeleteByUser(ctx context.Context, dir domain.Direction, userID string) ([]*domain.PendingRequest, error) {
	return r.deleteWhere(dir, func(p *domain.PendingRequest) bool { return p.UserID == userID }), nil
}

func (r memRequests) DeleteByTeam(ctx context.Context, dir domain.Direction, teamID string) ([]*domain.PendingRequest, error) {
	return r.deleteWhere(dir, func(p *domain.PendingRequest) bool { return p.TeamID == teamID }), nil
}

// fakeNotifier records notifications instead of queueing them.
type fakeNotifier struct {
	mu      sync.Mutex
	notices []sentNotice
}

type sentNotice struct {
	To       string
	Template string
	Data     any
}

func (f *fakeNotifier) Notify(ctx context.Context, recipient, template string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, sentNotice{To: recipient, Template: template, Data: data})
}

func (f *fakeNotifier) DispatchPending(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeNotifier) sent(template string) []sentNotice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentNotice, 0)
	for _, n := range f.notices {
		if n.Template == template {
			out = append(out, n)
		}
	}
	return out
}

// fakeTeamTokens issues tokens of the form "team:<id>".
type fakeTeamTokens struct{}

func (fakeTeamTokens) IssueTeamToken(teamID string) (string, error) { return "team:" + teamID, nil }

func (fakeTeamTokens) VerifyTeamToken(token string) (string, error) {
	id, ok := strings.CutPrefix(token, "team:")
	if !ok {
		return "", errors.New("bad token")
	}
	return id, nil
}

var testCatalog = []domain.Event{
	{Code: domain.EventT10, Slug: "t10", Name: "T10"},
	{Code: domain.EventYantra, Slug: "yantra", Name: "Yantra", TeamEvent: true},
	{Code: domain.EventNexus, Slug: "nexus", Name: "Nexus"},
	{Code: domain.EventDevops, Slug: "devops", Name: "DevOps"},
}

type harness struct {
	store    *memStore
	notifier *fakeNotifier
	teams    domain.TeamService
	requests domain.RequestService
	users    domain.UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	m := newMemStore()
	n := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &harness{
		store:    m,
		notifier: n,
		teams:    NewTeamService(m.stores(), fakeTeamTokens{}, n, logger, time.Second),
		requests: NewRequestService(m.stores(), n, logger, time.Second),
		users:    NewUserService(m.stores(), testCatalog, logger, time.Second),
	}
}

// newUser stores a participant, registered for YANTRA when yantra is set.
func (h *harness) newUser(t *testing.T, email string, yantra bool) *domain.User {
	t.Helper()
	now := h.store.tick()
	u := domain.NewUser(domain.LoginGoogle, "", email, now, now)
	if yantra {
		u.RegisteredEvents[domain.EventYantra] = domain.Registered
	}
	require.NoError(t, memUsers{h.store}.Create(context.Background(), u))
	return u
}

func (h *harness) newTeam(t *testing.T, name string, leader *domain.User, mates ...*domain.User) *domain.Team {
	t.Helper()
	emails := make([]string, len(mates))
	for i, m := range mates {
		emails[i] = m.Email
	}
	team, err := h.teams.CreateTeam(context.Background(), leader.ID, domain.CreateTeamInput{Name: name, TeammateEmails: emails})
	require.NoError(t, err)
	return team
}

func (h *harness) user(id string) *domain.User { return h.store.users[id] }

func (h *harness) team(id string) *domain.Team { return h.store.teams[id] }

// requireInvariants checks the cross-model consistency rules of the workflow.
func requireInvariants(t *testing.T, m *memStore) {
	t.Helper()
	seen := make(map[[2]string]domain.Direction)
	for dir, entries := range m.ledger {
		for _, r := range entries {
			key := [2]string{r.TeamID, r.UserID}
			if other, ok := seen[key]; ok {
				t.Errorf("pair %v present in %s and %s ledgers", key, other, dir)
			}
			seen[key] = dir
		}
	}
	for _, u := range m.users {
		assert.Equal(t, m.countUser(domain.Outbound, u.ID), u.PendingRequests, "pending requests of %s", u.Email)
		assert.LessOrEqual(t, u.PendingRequests, domain.MaxPendingRequests)
		if u.Affiliation == nil {
			continue
		}
		assert.NotEmpty(t, u.Affiliation.TeamID)
		team, ok := m.teams[u.Affiliation.TeamID]
		if !assert.True(t, ok, "%s affiliated with missing team", u.Email) {
			continue
		}
		assert.True(t, team.HasMember(u.ID), "%s not on roster of %s", u.Email, team.Name)
		wantRole := domain.RoleMember
		if team.LeaderID == u.ID {
			wantRole = domain.RoleLeader
		}
		assert.Equal(t, wantRole, u.Affiliation.Role)
		assert.Zero(t, m.countUser(domain.Outbound, u.ID)+m.countUser(domain.Inbound, u.ID), "%s affiliated with pending entries", u.Email)
	}
	for _, team := range m.teams {
		assert.GreaterOrEqual(t, len(team.Members), 1)
		assert.LessOrEqual(t, len(team.Members), domain.MaxTeamSize)
		if len(team.Members) > 0 {
			assert.Equal(t, team.LeaderID, team.Members[0])
		}
		for _, id := range team.Members {
			u := m.users[id]
			if assert.NotNil(t, u) && assert.NotNil(t, u.Affiliation) {
				assert.Equal(t, team.ID, u.Affiliation.TeamID)
			}
		}
		assert.Equal(t, m.countTeam(domain.Inbound, team.ID), team.PendingInvites, "pending invites of %s", team.Name)
		assert.LessOrEqual(t, team.PendingInvites, domain.MaxPendingRequests)
		assert.LessOrEqual(t, team.NameChanges, domain.MaxTeamRenames)
	}
}
