package controllers

import (
	"log/slog"
	"net/http"

	"ignitia/internal/delivery/http/helpers"
	"ignitia/internal/delivery/http/middleware"
	"ignitia/internal/domain"
)

// DecisionRequest is the request body for answering a join request or an invitation.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve accept reject"`
}

// RequestSuccessResponse is the success response envelope for endpoints returning one ledger entry.
type RequestSuccessResponse struct {
	Data  *domain.PendingRequest `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// RequestListSuccessResponse is the success response envelope for ledger listings.
type RequestListSuccessResponse struct {
	Data  []*domain.PendingRequest `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// RequestController handles join requests (user to team) and invitations (team to user).
type RequestController struct {
	Logger  *slog.Logger
	Service domain.RequestService
}

// NewRequestController creates a RequestController with the given logger and service.
func NewRequestController(logger *slog.Logger, svc domain.RequestService) *RequestController {
	return &RequestController{
		Logger:  logger,
		Service: svc,
	}
}

func (c *RequestController) writeList(w http.ResponseWriter, r *http.Request, list []*domain.PendingRequest, err error) {
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	if list == nil {
		list = []*domain.PendingRequest{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

func decode(w http.ResponseWriter, r *http.Request) (domain.Decision, bool) {
	var req DecisionRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return "", false
	}
	d, err := domain.ParseDecision(req.Decision)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return "", false
	}
	return d, true
}

// SendJoinRequest godoc
// @Summary Ask to join a team
// @Description A user may have at most 5 pending join requests.
// @Tags join-requests
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Success 201 {object} controllers.RequestSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.rule: TEAM_IS_FULL, USER_ALREADY_IN_TEAM, REQUEST_ALREADY_SENT, PENDING_REQUEST_OTHER_MODEL or PENDING_REQUESTS_LIMIT_REACHED"
// @Router /teams/{teamID}/join-requests [post]
func (c *RequestController) SendJoinRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	req, err := c.Service.SendJoinRequest(r.Context(), userID, r.PathValue("teamID"))
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, req)
}

// WithdrawJoinRequest godoc
// @Summary Withdraw a join request
// @Tags join-requests
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.rule: NO_PENDING_REQUESTS"
// @Router /teams/{teamID}/join-requests [delete]
func (c *RequestController) WithdrawJoinRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.WithdrawJoinRequest(r.Context(), userID, r.PathValue("teamID")); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "join request withdrawn"})
}

// RespondToJoinRequest godoc
// @Summary Approve or reject a join request
// @Description Leader only. Approval admits the user and drops all of their other pending entries.
// @Tags join-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Param userID path string true "Requesting user ID"
// @Param body body DecisionRequest true "approve or reject"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.rule: NO_PENDING_REQUESTS"
// @Failure 409 {object} helpers.APIResponse "error.rule: TEAM_IS_FULL or USER_ALREADY_IN_TEAM"
// @Router /teams/{teamID}/join-requests/{userID} [post]
func (c *RequestController) RespondToJoinRequest(w http.ResponseWriter, r *http.Request) {
	leaderID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	d, ok := decode(w, r)
	if !ok {
		return
	}
	if err := c.Service.RespondToJoinRequest(r.Context(), leaderID, r.PathValue("teamID"), r.PathValue("userID"), d); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	msg := "join request approved"
	if d == domain.DecisionReject {
		msg = "join request rejected"
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: msg})
}

// ListTeamJoinRequests godoc
// @Summary List a team's pending join requests
// @Tags join-requests
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Success 200 {object} controllers.RequestListSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /teams/{teamID}/join-requests [get]
func (c *RequestController) ListTeamJoinRequests(w http.ResponseWriter, r *http.Request) {
	leaderID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListTeamJoinRequests(r.Context(), leaderID, r.PathValue("teamID"))
	c.writeList(w, r, list, err)
}

// ListMyJoinRequests godoc
// @Summary List my pending join requests
// @Tags join-requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.RequestListSuccessResponse
// @Failure 409 {object} helpers.APIResponse "error.rule: USER_ALREADY_IN_TEAM"
// @Router /users/me/join-requests [get]
func (c *RequestController) ListMyJoinRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListUserJoinRequests(r.Context(), userID)
	c.writeList(w, r, list, err)
}

// InviteMember godoc
// @Summary Invite a user to the team
// @Description Leader only. A team may have at most 5 pending invitations.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Param userID path string true "Invited user ID"
// @Success 201 {object} controllers.RequestSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /teams/{teamID}/invitations/{userID} [post]
func (c *RequestController) InviteMember(w http.ResponseWriter, r *http.Request) {
	leaderID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	req, err := c.Service.InviteMember(r.Context(), leaderID, r.PathValue("teamID"), r.PathValue("userID"))
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, req)
}

// WithdrawInvitation godoc
// @Summary Withdraw an invitation
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Param userID path string true "Invited user ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.rule: NO_PENDING_REQUESTS"
// @Router /teams/{teamID}/invitations/{userID} [delete]
func (c *RequestController) WithdrawInvitation(w http.ResponseWriter, r *http.Request) {
	leaderID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.WithdrawInvitation(r.Context(), leaderID, r.PathValue("teamID"), r.PathValue("userID")); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "invitation withdrawn"})
}

// ListTeamInvitations godoc
// @Summary List a team's pending invitations
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Success 200 {object} controllers.RequestListSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /teams/{teamID}/invitations [get]
func (c *RequestController) ListTeamInvitations(w http.ResponseWriter, r *http.Request) {
	leaderID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListTeamInvitations(r.Context(), leaderID, r.PathValue("teamID"))
	c.writeList(w, r, list, err)
}

// ListMyInvitations godoc
// @Summary List my pending invitations
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.RequestListSuccessResponse
// @Router /users/me/invitations [get]
func (c *RequestController) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListUserInvitations(r.Context(), userID)
	c.writeList(w, r, list, err)
}

// RespondToInvitation godoc
// @Summary Accept or reject an invitation
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param teamID path string true "Team ID"
// @Param body body DecisionRequest true "accept or reject"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.rule: NO_PENDING_REQUESTS or TEAM_NOT_FOUND"
// @Failure 409 {object} helpers.APIResponse "error.rule: TEAM_IS_FULL or USER_ALREADY_IN_TEAM"
// @Router /users/me/invitations/{teamID} [post]
func (c *RequestController) RespondToInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	d, ok := decode(w, r)
	if !ok {
		return
	}
	if err := c.Service.RespondToInvitation(r.Context(), userID, r.PathValue("teamID"), d); err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	msg := "invitation accepted"
	if d == domain.DecisionReject {
		msg = "invitation rejected"
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: msg})
}
