package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ignitia/internal/delivery/http/helpers"
	"ignitia/internal/delivery/http/middleware"
	"ignitia/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

var testTime = time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

// call records the arguments a fake service received.
type call struct {
	method string
	args   []any
}

type recorder struct {
	calls []call
}

func (r *recorder) record(method string, args ...any) {
	r.calls = append(r.calls, call{method: method, args: args})
}

func (r *recorder) last() call {
	if len(r.calls) == 0 {
		return call{}
	}
	return r.calls[len(r.calls)-1]
}

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	recorder
	user    *domain.User
	token   string
	created bool
	err     error
}

func (f *fakeAuthService) SignUp(ctx context.Context, username, email, password string) (*domain.User, error) {
	f.record("SignUp", username, email, password)
	return f.user, f.err
}

func (f *fakeAuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	f.record("Login", username, password)
	return f.token, f.user, f.err
}

func (f *fakeAuthService) GoogleAuth(ctx context.Context, idToken, email string) (string, *domain.User, bool, error) {
	f.record("GoogleAuth", idToken, email)
	return f.token, f.user, f.created, f.err
}

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	recorder
	profile *domain.Profile
	user    *domain.User
	events  []domain.Event
	err     error
}

func (f *fakeUserService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	f.record("GetProfile", userID)
	return f.profile, f.err
}

func (f *fakeUserService) FillDetails(ctx context.Context, userID string, d domain.UserDetails) (*domain.User, error) {
	f.record("FillDetails", userID, d)
	return f.user, f.err
}

func (f *fakeUserService) SetRegistration(ctx context.Context, userID string, code domain.EventCode, op domain.RegistrationOp) (*domain.User, error) {
	f.record("SetRegistration", userID, code, op)
	return f.user, f.err
}

func (f *fakeUserService) ListEvents(ctx context.Context) []domain.Event {
	f.record("ListEvents")
	return f.events
}

// fakeTeamService implements domain.TeamService for handler tests.
type fakeTeamService struct {
	recorder
	team     *domain.Team
	details  *domain.TeamDetails
	teams    []*domain.Team
	profiles []*domain.MemberProfile
	total    int
	token    string
	err      error
}

func (f *fakeTeamService) CreateTeam(ctx context.Context, leaderID string, in domain.CreateTeamInput) (*domain.Team, error) {
	f.record("CreateTeam", leaderID, in)
	return f.team, f.err
}

func (f *fakeTeamService) GetTeam(ctx context.Context, teamID string) (*domain.TeamDetails, error) {
	f.record("GetTeam", teamID)
	return f.details, f.err
}

func (f *fakeTeamService) ListOpenTeams(ctx context.Context, p domain.PaginationParams) ([]*domain.Team, int, error) {
	f.record("ListOpenTeams", p)
	return f.teams, f.total, f.err
}

func (f *fakeTeamService) RenameTeam(ctx context.Context, leaderID, teamID, name string) (*domain.Team, error) {
	f.record("RenameTeam", leaderID, teamID, name)
	return f.team, f.err
}

func (f *fakeTeamService) RemoveMember(ctx context.Context, leaderID, teamID, userID string) error {
	f.record("RemoveMember", leaderID, teamID, userID)
	return f.err
}

func (f *fakeTeamService) LeaveTeam(ctx context.Context, userID, teamID string) error {
	f.record("LeaveTeam", userID, teamID)
	return f.err
}

func (f *fakeTeamService) DeleteTeam(ctx context.Context, leaderID, teamID string) error {
	f.record("DeleteTeam", leaderID, teamID)
	return f.err
}

func (f *fakeTeamService) UploadSubmission(ctx context.Context, userID string, s *domain.Submission) (*domain.Team, error) {
	f.record("UploadSubmission", userID, *s)
	return f.team, f.err
}

func (f *fakeTeamService) GetSubmission(ctx context.Context, userID string) (*domain.Team, error) {
	f.record("GetSubmission", userID)
	return f.team, f.err
}

func (f *fakeTeamService) IssueTeamToken(ctx context.Context, leaderID, teamID string) (string, error) {
	f.record("IssueTeamToken", leaderID, teamID)
	return f.token, f.err
}

func (f *fakeTeamService) JoinWithToken(ctx context.Context, userID, token string) (*domain.Team, error) {
	f.record("JoinWithToken", userID, token)
	return f.team, f.err
}

func (f *fakeTeamService) ListCandidates(ctx context.Context, leaderID, teamID string, p domain.PaginationParams) ([]*domain.MemberProfile, int, error) {
	f.record("ListCandidates", leaderID, teamID, p)
	return f.profiles, f.total, f.err
}

// fakeRequestService implements domain.RequestService for handler tests.
type fakeRequestService struct {
	recorder
	req  *domain.PendingRequest
	list []*domain.PendingRequest
	err  error
}

func (f *fakeRequestService) SendJoinRequest(ctx context.Context, userID, teamID string) (*domain.PendingRequest, error) {
	f.record("SendJoinRequest", userID, teamID)
	return f.req, f.err
}

func (f *fakeRequestService) WithdrawJoinRequest(ctx context.Context, userID, teamID string) error {
	f.record("WithdrawJoinRequest", userID, teamID)
	return f.err
}

func (f *fakeRequestService) RespondToJoinRequest(ctx context.Context, leaderID, teamID, userID string, d domain.Decision) error {
	f.record("RespondToJoinRequest", leaderID, teamID, userID, d)
	return f.err
}

func (f *fakeRequestService) ListTeamJoinRequests(ctx context.Context, leaderID, teamID string) ([]*domain.PendingRequest, error) {
	f.record("ListTeamJoinRequests", leaderID, teamID)
	return f.list, f.err
}

func (f *fakeRequestService) ListUserJoinRequests(ctx context.Context, userID string) ([]*domain.PendingRequest, error) {
	f.record("ListUserJoinRequests", userID)
	return f.list, f.err
}

func (f *fakeRequestService) InviteMember(ctx context.Context, leaderID, teamID, userID string) (*domain.PendingRequest, error) {
	f.record("InviteMember", leaderID, teamID, userID)
	return f.req, f.err
}

func (f *fakeRequestService) WithdrawInvitation(ctx context.Context, leaderID, teamID, userID string) error {
	f.record("WithdrawInvitation", leaderID, teamID, userID)
	return f.err
}

func (f *fakeRequestService) RespondToInvitation(ctx context.Context, userID, teamID string, d domain.Decision) error {
	f.record("RespondToInvitation", userID, teamID, d)
	return f.err
}

func (f *fakeRequestService) ListTeamInvitations(ctx context.Context, leaderID, teamID string) ([]*domain.PendingRequest, error) {
	f.record("ListTeamInvitations", leaderID, teamID)
	return f.list, f.err
}

func (f *fakeRequestService) ListUserInvitations(ctx context.Context, userID string) ([]*domain.PendingRequest, error) {
	f.record("ListUserInvitations", userID)
	return f.list, f.err
}

// serve routes one request through a ServeMux so path values are populated. userID, when set,
// is placed in the context as the authenticated user.
func serve(t *testing.T, pattern string, handler http.HandlerFunc, method, target, body, userID string) (*httptest.ResponseRecorder, helpers.APIResponse) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)

	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if userID != "" {
		req = req.WithContext(middleware.SetUserID(req.Context(), userID))
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	var envelope helpers.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope), rr.Body.String())
	return rr, envelope
}

// dataAs re-decodes the envelope data into out.
func dataAs(t *testing.T, envelope helpers.APIResponse, out any) {
	t.Helper()
	b, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, out))
}
