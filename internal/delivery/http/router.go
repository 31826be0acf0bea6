package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"ignitia/internal/delivery/http/controllers"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Auth     *controllers.AuthController
	Users    *controllers.UserController
	Teams    *controllers.TeamController
	Requests *controllers.RequestController
}

// NewRouter initializes the HTTP router with all application routes.
// requireAuth wraps every route that acts on behalf of the signed-in user.
func NewRouter(c Controllers, requireAuth func(http.HandlerFunc) http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /auth/signup", c.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)
	mux.HandleFunc("POST /auth/google", c.Auth.GoogleAuth)

	// Catalog
	mux.HandleFunc("GET /events", c.Users.ListEvents)

	// Current user
	mux.HandleFunc("GET /users/me", requireAuth(c.Users.GetMe))
	mux.HandleFunc("POST /users/me/details", requireAuth(c.Users.FillDetails))
	mux.HandleFunc("PATCH /users/me/registrations", requireAuth(c.Users.UpdateRegistration))
	mux.HandleFunc("GET /users/me/join-requests", requireAuth(c.Requests.ListMyJoinRequests))
	mux.HandleFunc("GET /users/me/invitations", requireAuth(c.Requests.ListMyInvitations))
	mux.HandleFunc("POST /users/me/invitations/{teamID}", requireAuth(c.Requests.RespondToInvitation))
	mux.HandleFunc("PUT /users/me/team/submission", requireAuth(c.Teams.UploadSubmission))
	mux.HandleFunc("GET /users/me/team/submission", requireAuth(c.Teams.GetSubmission))

	// Teams
	mux.HandleFunc("POST /teams", requireAuth(c.Teams.CreateTeam))
	mux.HandleFunc("GET /teams", requireAuth(c.Teams.ListTeams))
	mux.HandleFunc("POST /teams/join", requireAuth(c.Teams.JoinWithToken))
	mux.HandleFunc("GET /teams/{teamID}", requireAuth(c.Teams.GetTeam))
	mux.HandleFunc("PATCH /teams/{teamID}", requireAuth(c.Teams.RenameTeam))
	mux.HandleFunc("DELETE /teams/{teamID}", requireAuth(c.Teams.DeleteTeam))
	mux.HandleFunc("POST /teams/{teamID}/leave", requireAuth(c.Teams.LeaveTeam))
	mux.HandleFunc("DELETE /teams/{teamID}/members/{userID}", requireAuth(c.Teams.RemoveMember))
	mux.HandleFunc("GET /teams/{teamID}/token", requireAuth(c.Teams.IssueToken))
	mux.HandleFunc("GET /teams/{teamID}/candidates", requireAuth(c.Teams.ListCandidates))

	// Join requests
	mux.HandleFunc("GET /teams/{teamID}/join-requests", requireAuth(c.Requests.ListTeamJoinRequests))
	mux.HandleFunc("POST /teams/{teamID}/join-requests", requireAuth(c.Requests.SendJoinRequest))
	mux.HandleFunc("DELETE /teams/{teamID}/join-requests", requireAuth(c.Requests.WithdrawJoinRequest))
	mux.HandleFunc("POST /teams/{teamID}/join-requests/{userID}", requireAuth(c.Requests.RespondToJoinRequest))

	// Invitations
	mux.HandleFunc("GET /teams/{teamID}/invitations", requireAuth(c.Requests.ListTeamInvitations))
	mux.HandleFunc("POST /teams/{teamID}/invitations/{userID}", requireAuth(c.Requests.InviteMember))
	mux.HandleFunc("DELETE /teams/{teamID}/invitations/{userID}", requireAuth(c.Requests.WithdrawInvitation))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
