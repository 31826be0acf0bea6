package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ignitia/internal/delivery/http/helpers"
	"ignitia/internal/domain"
)

func TestTeamController_CreateTeam(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantRule   string
		wantInput  *domain.CreateTeamInput
	}{
		{
			name:       "created",
			body:       `{"name":"Rocket","teammate_emails":["b@x.io","c@x.io"]}`,
			wantStatus: http.StatusCreated,
			wantInput:  &domain.CreateTeamInput{Name: "Rocket", TeammateEmails: []string{"b@x.io", "c@x.io"}},
		},
		{name: "solo team", body: `{"name":"Solo"}`, wantStatus: http.StatusCreated, wantInput: &domain.CreateTeamInput{Name: "Solo"}},
		{name: "missing name", body: `{"teammate_emails":[]}`, wantStatus: http.StatusBadRequest},
		{name: "four teammates", body: `{"name":"R","teammate_emails":["a@x.io","b@x.io","c@x.io","d@x.io"]}`, wantStatus: http.StatusBadRequest},
		{name: "bad teammate email", body: `{"name":"R","teammate_emails":["nope"]}`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"name":"R","leader":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "name taken", body: `{"name":"Rocket"}`, err: domain.ErrTeamNameTaken, wantStatus: http.StatusConflict, wantRule: "TEAM_NAME_EXISTS"},
		{name: "teammate not signed up", body: `{"name":"Rocket","teammate_emails":["b@x.io"]}`, err: domain.ErrTeammateNotSignedUp, wantStatus: http.StatusNotFound, wantRule: "NOT_SIGNED_UP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeTeamService{team: &domain.Team{ID: "t-1", Name: "Rocket"}, err: tt.err}
			ctrl := NewTeamController(testLogger, fake)

			rr, env := serve(t, "POST /teams", ctrl.CreateTeam, http.MethodPost, "/teams", tt.body, "u-1")
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantInput != nil {
				assert.Equal(t, []any{"u-1", *tt.wantInput}, fake.last().args)
			}
			if tt.wantRule != "" {
				assert.Equal(t, tt.wantRule, env.Error.Rule)
			}
			if tt.wantStatus == http.StatusBadRequest {
				assert.Empty(t, fake.calls)
				assert.Equal(t, helpers.ErrCodeBadRequest, env.Error.Code)
			}
		})
	}
}

func TestTeamController_ListTeams(t *testing.T) {
	fake := &fakeTeamService{teams: []*domain.Team{{ID: "t-1"}, {ID: "t-2"}}, total: 7}
	ctrl := NewTeamController(testLogger, fake)

	rr, env := serve(t, "GET /teams", ctrl.ListTeams, http.MethodGet, "/teams?page=2&page_size=2", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{domain.PaginationParams{Page: 2, PageSize: 2}}, fake.last().args)

	var page helpers.PageResponse[domain.Team]
	dataAs(t, env, &page)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "t-2", page.Items[1].ID)
	assert.Equal(t, helpers.PaginationMeta{Page: 2, PageSize: 2, Total: 7, TotalPages: 4}, page.Pagination)
}

func TestTeamController_ListTeamsEmpty(t *testing.T) {
	ctrl := NewTeamController(testLogger, &fakeTeamService{})

	rr, _ := serve(t, "GET /teams", ctrl.ListTeams, http.MethodGet, "/teams", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":{"items":[],"pagination":{"page":1,"page_size":20,"total":0,"total_pages":0}},"error":null}`, rr.Body.String())
}

func TestTeamController_GetTeam(t *testing.T) {
	fake := &fakeTeamService{details: &domain.TeamDetails{
		Team:    &domain.Team{ID: "t-1", Name: "Rocket", LeaderID: "u-1"},
		Members: []*domain.MemberProfile{{ID: "u-1"}},
	}}
	ctrl := NewTeamController(testLogger, fake)

	rr, env := serve(t, "GET /teams/{teamID}", ctrl.GetTeam, http.MethodGet, "/teams/t-1", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{"t-1"}, fake.last().args)
	var details domain.TeamDetails
	dataAs(t, env, &details)
	assert.Equal(t, "Rocket", details.Team.Name)
	require.Len(t, details.Members, 1)

	fake.err = domain.ErrTeamNotFound
	rr, env = serve(t, "GET /teams/{teamID}", ctrl.GetTeam, http.MethodGet, "/teams/t-9", "", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "TEAM_NOT_FOUND", env.Error.Rule)
}

func TestTeamController_LeaderActions(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		method      string
		target      string
		body        string
		handler     func(*TeamController) http.HandlerFunc
		err         error
		wantStatus  int
		wantMethod  string
		wantArgs    []any
		wantMessage string
	}{
		{
			name: "rename", pattern: "PATCH /teams/{teamID}", method: http.MethodPatch, target: "/teams/t-1", body: `{"name":"Comet"}`,
			handler:    func(c *TeamController) http.HandlerFunc { return c.RenameTeam },
			wantStatus: http.StatusOK, wantMethod: "RenameTeam", wantArgs: []any{"u-1", "t-1", "Comet"},
		},
		{
			name: "rename limit", pattern: "PATCH /teams/{teamID}", method: http.MethodPatch, target: "/teams/t-1", body: `{"name":"Comet"}`,
			handler: func(c *TeamController) http.HandlerFunc { return c.RenameTeam }, err: domain.ErrRenameLimitReached,
			wantStatus: http.StatusConflict, wantMethod: "RenameTeam", wantArgs: []any{"u-1", "t-1", "Comet"},
		},
		{
			name: "delete", pattern: "DELETE /teams/{teamID}", method: http.MethodDelete, target: "/teams/t-1",
			handler:    func(c *TeamController) http.HandlerFunc { return c.DeleteTeam },
			wantStatus: http.StatusOK, wantMethod: "DeleteTeam", wantArgs: []any{"u-1", "t-1"}, wantMessage: "team deleted",
		},
		{
			name: "delete by non-leader", pattern: "DELETE /teams/{teamID}", method: http.MethodDelete, target: "/teams/t-1",
			handler: func(c *TeamController) http.HandlerFunc { return c.DeleteTeam }, err: domain.ErrNotTeamLeader,
			wantStatus: http.StatusForbidden, wantMethod: "DeleteTeam", wantArgs: []any{"u-1", "t-1"},
		},
		{
			name: "leave", pattern: "POST /teams/{teamID}/leave", method: http.MethodPost, target: "/teams/t-1/leave",
			handler:    func(c *TeamController) http.HandlerFunc { return c.LeaveTeam },
			wantStatus: http.StatusOK, wantMethod: "LeaveTeam", wantArgs: []any{"u-1", "t-1"}, wantMessage: "left team",
		},
		{
			name: "leader cannot leave", pattern: "POST /teams/{teamID}/leave", method: http.MethodPost, target: "/teams/t-1/leave",
			handler: func(c *TeamController) http.HandlerFunc { return c.LeaveTeam }, err: domain.ErrLeaderCannotLeave,
			wantStatus: http.StatusConflict, wantMethod: "LeaveTeam", wantArgs: []any{"u-1", "t-1"},
		},
		{
			name: "remove member", pattern: "DELETE /teams/{teamID}/members/{userID}", method: http.MethodDelete, target: "/teams/t-1/members/u-2",
			handler:    func(c *TeamController) http.HandlerFunc { return c.RemoveMember },
			wantStatus: http.StatusOK, wantMethod: "RemoveMember", wantArgs: []any{"u-1", "t-1", "u-2"}, wantMessage: "member removed",
		},
		{
			name: "join with token", pattern: "POST /teams/join", method: http.MethodPost, target: "/teams/join", body: `{"token":"abc"}`,
			handler:    func(c *TeamController) http.HandlerFunc { return c.JoinWithToken },
			wantStatus: http.StatusOK, wantMethod: "JoinWithToken", wantArgs: []any{"u-1", "abc"},
		},
		{
			name: "expired token", pattern: "POST /teams/join", method: http.MethodPost, target: "/teams/join", body: `{"token":"abc"}`,
			handler: func(c *TeamController) http.HandlerFunc { return c.JoinWithToken }, err: domain.ErrInvalidTeamToken,
			wantStatus: http.StatusBadRequest, wantMethod: "JoinWithToken", wantArgs: []any{"u-1", "abc"},
		},
		{
			name: "submission", pattern: "PUT /users/me/team/submission", method: http.MethodPut, target: "/users/me/team/submission",
			body:       `{"project_name":"Lens","github_link":"https://github.com/x/lens"}`,
			handler:    func(c *TeamController) http.HandlerFunc { return c.UploadSubmission },
			wantStatus: http.StatusOK, wantMethod: "UploadSubmission",
			wantArgs: []any{"u-1", domain.Submission{ProjectName: "Lens", GithubLink: "https://github.com/x/lens"}},
		},
		{
			name: "submission outside a team", pattern: "GET /users/me/team/submission", method: http.MethodGet, target: "/users/me/team/submission",
			handler: func(c *TeamController) http.HandlerFunc { return c.GetSubmission }, err: domain.ErrNotInAnyTeam,
			wantStatus: http.StatusForbidden, wantMethod: "GetSubmission", wantArgs: []any{"u-1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeTeamService{team: &domain.Team{ID: "t-1"}, err: tt.err}
			ctrl := NewTeamController(testLogger, fake)

			rr, env := serve(t, tt.pattern, tt.handler(ctrl), tt.method, tt.target, tt.body, "u-1")
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			require.Len(t, fake.calls, 1)
			assert.Equal(t, tt.wantMethod, fake.last().method)
			assert.Equal(t, tt.wantArgs, fake.last().args)
			if tt.wantMessage != "" {
				var msg MessageResponse
				dataAs(t, env, &msg)
				assert.Equal(t, tt.wantMessage, msg.Message)
			}
		})
	}
}

func TestTeamController_SubmissionRejectsBadLink(t *testing.T) {
	fake := &fakeTeamService{}
	ctrl := NewTeamController(testLogger, fake)

	rr, env := serve(t, "PUT /users/me/team/submission", ctrl.UploadSubmission, http.MethodPut, "/users/me/team/submission",
		`{"project_name":"Lens","video_link":"not a url"}`, "u-1")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Error.Message, "video_link must be a valid URL")
	assert.Empty(t, fake.calls)
}

func TestTeamController_IssueToken(t *testing.T) {
	fake := &fakeTeamService{token: "signed"}
	ctrl := NewTeamController(testLogger, fake)

	rr, env := serve(t, "GET /teams/{teamID}/token", ctrl.IssueToken, http.MethodGet, "/teams/t-1/token", "", "u-1")
	require.Equal(t, http.StatusOK, rr.Code)
	var tok TeamTokenResponse
	dataAs(t, env, &tok)
	assert.Equal(t, "signed", tok.Token)
	assert.Equal(t, []any{"u-1", "t-1"}, fake.last().args)
}

func TestTeamController_ListCandidates(t *testing.T) {
	fake := &fakeTeamService{profiles: []*domain.MemberProfile{{ID: "u-3", Email: "c@x.io"}}, total: 1}
	ctrl := NewTeamController(testLogger, fake)

	rr, env := serve(t, "GET /teams/{teamID}/candidates", ctrl.ListCandidates, http.MethodGet, "/teams/t-1/candidates?page_size=500", "", "u-1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{"u-1", "t-1", domain.PaginationParams{Page: 1, PageSize: helpers.MaxPageSize}}, fake.last().args)

	var page helpers.PageResponse[domain.MemberProfile]
	dataAs(t, env, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c@x.io", page.Items[0].Email)
}

func TestTeamController_RequiresUser(t *testing.T) {
	fake := &fakeTeamService{}
	ctrl := NewTeamController(testLogger, fake)

	rr, env := serve(t, "POST /teams", ctrl.CreateTeam, http.MethodPost, "/teams", `{"name":"Rocket"}`, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, helpers.ErrCodeUnauthorized, env.Error.Code)
	assert.Empty(t, fake.calls)
}
