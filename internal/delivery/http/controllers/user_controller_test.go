package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ignitia/internal/delivery/http/helpers"
	"ignitia/internal/domain"
)

func TestUserController_GetMe(t *testing.T) {
	tests := []struct {
		name          string
		contextUserID string
		err           error
		wantStatus    int
		wantBodyCode  string
	}{
		{name: "success", contextUserID: "user-123", wantStatus: http.StatusOK},
		{name: "no user in context", wantStatus: http.StatusUnauthorized, wantBodyCode: helpers.ErrCodeUnauthorized},
		{name: "user not found", contextUserID: "user-123", err: domain.ErrUserNotFound, wantStatus: http.StatusNotFound, wantBodyCode: helpers.ErrCodeNotFound},
		{name: "service error", contextUserID: "user-123", err: assert.AnError, wantStatus: http.StatusInternalServerError, wantBodyCode: helpers.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeUserService{
				profile: &domain.Profile{
					User: &domain.User{ID: "user-123", Email: "a@b.io"},
					Team: &domain.TeamDetails{Team: &domain.Team{ID: "t-1", Name: "Rocket"}},
				},
				err: tt.err,
			}
			ctrl := NewUserController(testLogger, fake)

			rr, env := serve(t, "GET /users/me", ctrl.GetMe, http.MethodGet, "/users/me", "", tt.contextUserID)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBodyCode != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantBodyCode, env.Error.Code)
				return
			}
			var p domain.Profile
			dataAs(t, env, &p)
			assert.Equal(t, "user-123", p.User.ID)
			assert.Equal(t, "Rocket", p.Team.Team.Name)
			assert.Equal(t, []any{"user-123"}, fake.last().args)
		})
	}
}

func TestUserController_FillDetails(t *testing.T) {
	fake := &fakeUserService{user: &domain.User{ID: "u-1", HasFilledDetails: true}}
	ctrl := NewUserController(testLogger, fake)

	rr, _ := serve(t, "POST /users/me/details", ctrl.FillDetails, http.MethodPost, "/users/me/details",
		`{"first_name":"Ada","last_name":"L","mobile_number":"999","reg_no":"21bce1"}`, "u-1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{"u-1", domain.UserDetails{FirstName: "Ada", LastName: "L", MobileNumber: "999", RegNo: "21bce1"}}, fake.last().args)

	rr, env := serve(t, "POST /users/me/details", ctrl.FillDetails, http.MethodPost, "/users/me/details", `{"first_name":"Ada"}`, "u-1")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.Error.Message, "mobile_number is required")
	assert.Len(t, fake.calls, 1)
}

func TestUserController_UpdateRegistration(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantArgs   []any
		wantRule   string
	}{
		{name: "register yantra", body: `{"event_code":1,"op":"register"}`, wantStatus: http.StatusOK, wantArgs: []any{"u-1", domain.EventYantra, domain.OpRegister}},
		{name: "code zero is accepted", body: `{"event_code":0,"op":"unregister"}`, wantStatus: http.StatusOK, wantArgs: []any{"u-1", domain.EventT10, domain.OpUnregister}},
		{name: "missing code", body: `{"op":"register"}`, wantStatus: http.StatusBadRequest},
		{name: "bad op", body: `{"event_code":1,"op":"toggle"}`, wantStatus: http.StatusBadRequest},
		{name: "in a team", body: `{"event_code":1,"op":"unregister"}`, err: domain.ErrCannotUnregisterInTeam, wantStatus: http.StatusConflict, wantRule: "PART_OF_TEAM_CANT_UNREGISTER"},
		{name: "unknown event", body: `{"event_code":9,"op":"register"}`, err: domain.ErrInvalidEventCode, wantStatus: http.StatusBadRequest, wantRule: "INVALID_EVENT_CODE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeUserService{user: &domain.User{ID: "u-1"}, err: tt.err}
			ctrl := NewUserController(testLogger, fake)

			rr, env := serve(t, "PATCH /users/me/registrations", ctrl.UpdateRegistration, http.MethodPatch, "/users/me/registrations", tt.body, "u-1")
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantArgs != nil {
				assert.Equal(t, tt.wantArgs, fake.last().args)
			}
			if tt.wantRule != "" {
				assert.Equal(t, tt.wantRule, env.Error.Rule)
			}
		})
	}
}

func TestUserController_ListEvents(t *testing.T) {
	fake := &fakeUserService{events: []domain.Event{{Code: domain.EventYantra, Slug: "yantra", Name: "Yantra", TeamEvent: true}}}
	ctrl := NewUserController(testLogger, fake)

	rr, env := serve(t, "GET /events", ctrl.ListEvents, http.MethodGet, "/events", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var events []domain.Event
	dataAs(t, env, &events)
	assert.Equal(t, fake.events, events)
}
