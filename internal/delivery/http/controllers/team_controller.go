package controllers

import (
	"log/slog"
	"net/http"

	"ignitia/internal/delivery/http/helpers"
	"ignitia/internal/delivery/http/middleware"
	"ignitia/internal/domain"
)

// CreateTeamRequest is the request body for POST /teams.
type CreateTeamRequest struct {
	Name           string   `json:"name" validate:"required,max=64"`
	TeammateEmails []string `json:"teammate_emails" validate:"max=3,dive,email"`
}

// RenameTeamRequest is the request body for PATCH /teams/{teamID}.
type RenameTeamRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// JoinTeamRequest is the request body for POST /teams/join.
type JoinTeamRequest struct {
	Token string `json:"token" validate:"required"`
}

// SubmissionRequest is the request body for PUT /users/me/team/submission.
type SubmissionRequest struct {
	ProjectName string `json:"project_name" validate:"required,max=128"`
	TechStack   string `json:"tech_stack" validate:"max=512"`
	Description string `json:"description" validate:"max=4096"`
	VideoLink   string `json:"video_link" validate:"omitempty,url"`
	GithubLink  string `json:"github_link" validate:"omitempty,url"`
	FileLink    string `json:"file_link" validate:"omitempty,url"`
}

// TeamTokenResponse is the data of GET /teams/{teamID}/token.
type TeamTokenResponse struct {
	Token string `json:"token"`
}

// MessageResponse is the data of endpoints that only acknowledge an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// TeamSuccessResponse is the success response envelope for endpoints returning a team.
type TeamSuccessResponse struct {
	Data  *domain.Team      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// TeamDetailsSuccessResponse is the success response envelope for GET /teams/{teamID}.
type TeamDetailsSuccessResponse struct {
	Data  *domain.TeamDetails `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// TeamController handles team lifecycle and administration endpoints.
type TeamController struct {
	Logger  *slog.Logger
	Service domain.TeamService
}

// NewTeamController creates a TeamController with the given logger and service.
func NewTeamController(logger *slog.Logger, svc domain.TeamService) *TeamController {
	return &TeamController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateTeam godoc
// @Summary Create a team
// @Description The caller becomes leader. Up to 3 teammates are named by email; each must have an account, be registered for YANTRA, be unaffiliated and have no pending requests. Unknown emails receive an account invitation.
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateTeamRequest true "Team name and teammate emails"
// @Success 201 {object} controllers.TeamSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.rule: NOT_SIGNED_UP"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /teams [post]
func (c *TeamController) CreateTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req CreateTeamRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	team, err := c.Service.CreateTeam(r.Context(), userID, domain.CreateTeamInput{Name: req.Name, TeammateEmails: req.TeammateEmails})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, team)
}

// ListTeams godoc
// @Summary List teams with open slots
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} helpers.APIResponse "data.items are teams, data.pagination the page metadata"
// @Router /teams [get]
func (c *TeamController) ListTeams(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	teams, total, err := c.Service.ListOpenTeams(r.Context(), params)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.NewPageResponse(teams, params, total))
}

// GetTeam godoc
// @Summary Get a team with member profiles
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Success 200 {object} controllers.TeamDetailsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /teams/{teamID} [get]
func (c *TeamController) GetTeam(w http.ResponseWriter, r *http.Request) {
	details, err := c.Service.GetTeam(r.Context(), r.PathValue("teamID"))
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, details)
}

// RenameTeam godoc
// @Summary Rename a team
// @Description Leader only. A team can be renamed at most 3 times.
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Param body body RenameTeamRequest true "New name"
// @Success 200 {object} controllers.TeamSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.rule: TEAM_NAME_EXISTS, SAME_EXISTING_TEAMNAME or UPDATE_TEAMNAME_LIMIT_EXCEEDED"
// @Router /teams/{teamID} [patch]
func (c *TeamController) RenameTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req RenameTeamRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	team, err := c.Service.RenameTeam(r.Context(), userID, r.PathValue("teamID"), req.Name)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, team)
}

// DeleteTeam godoc
// @Summary Delete a team
// @Description Leader only. The leader must be the only member and no invitations may be pending.
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.rule: TEAMSIZE_MORE_THAN_ONE or TEAM_LEADER_REQUESTS_PENDING_DELETE_TEAM"
// @Router /teams/{teamID} [delete]
func (c *TeamController) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteTeam(r.Context(), userID, r.PathValue("teamID")); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "team deleted"})
}

// LeaveTeam godoc
// @Summary Leave a team
// @Description Members only; the leader cannot leave.
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.rule: USER_IS_LEADER"
// @Router /teams/{teamID}/leave [post]
func (c *TeamController) LeaveTeam(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.LeaveTeam(r.Context(), userID, r.PathValue("teamID")); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "left team"})
}

// RemoveMember godoc
// @Summary Remove a member
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Param userID path string true "Member user ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.rule: CANNOT_REMOVE_LEADER"
// @Router /teams/{teamID}/members/{userID} [delete]
func (c *TeamController) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.RemoveMember(r.Context(), userID, r.PathValue("teamID"), r.PathValue("userID")); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "member removed"})
}

// IssueToken godoc
// @Summary Issue a team join token
// @Description Leader only. Anyone holding the token can join while the team has room.
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Success 200 {object} helpers.APIResponse "data.token"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /teams/{teamID}/token [get]
func (c *TeamController) IssueToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	token, err := c.Service.IssueTeamToken(r.Context(), userID, r.PathValue("teamID"))
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, TeamTokenResponse{Token: token})
}

// JoinWithToken godoc
// @Summary Join a team with a token
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body JoinTeamRequest true "Team token"
// @Success 200 {object} controllers.TeamSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.rule: INVALID_TEAM_TOKEN"
// @Failure 409 {object} helpers.APIResponse "error.rule: TEAM_IS_FULL or USER_ALREADY_IN_TEAM"
// @Router /teams/join [post]
func (c *TeamController) JoinWithToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req JoinTeamRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	team, err := c.Service.JoinWithToken(r.Context(), userID, req.Token)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, team)
}

// ListCandidates godoc
// @Summary List users who can be invited
// @Description Leader only. YANTRA-registered users without a team.
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} helpers.APIResponse "data.items are member profiles"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /teams/{teamID}/candidates [get]
func (c *TeamController) ListCandidates(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	params := helpers.ParsePagination(r)
	users, total, err := c.Service.ListCandidates(r.Context(), userID, r.PathValue("teamID"), params)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.NewPageResponse(users, params, total))
}

// UploadSubmission godoc
// @Summary Upload the team's project submission
// @Description Any member of a team can replace its submission.
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SubmissionRequest true "Submission"
// @Success 200 {object} controllers.TeamSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.rule: USER_NOT_IN_TEAM"
// @Router /users/me/team/submission [put]
func (c *TeamController) UploadSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req SubmissionRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	team, err := c.Service.UploadSubmission(r.Context(), userID, &domain.Submission{
		ProjectName: req.ProjectName,
		TechStack:   req.TechStack,
		Description: req.Description,
		VideoLink:   req.VideoLink,
		GithubLink:  req.GithubLink,
		FileLink:    req.FileLink,
	})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, team)
}

// GetSubmission godoc
// @Summary Get the team's project submission
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.TeamSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.rule: USER_NOT_IN_TEAM"
// @Router /users/me/team/submission [get]
func (c *TeamController) GetSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	team, err := c.Service.GetSubmission(r.Context(), userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, team)
}
