package controllers

import (
	"log/slog"
	"net/http"

	"ignitia/internal/delivery/http/helpers"
	"ignitia/internal/delivery/http/middleware"
	"ignitia/internal/domain"
)

// FillDetailsRequest is the request body for POST /users/me/details.
type FillDetailsRequest struct {
	FirstName    string `json:"first_name" validate:"required,max=64"`
	LastName     string `json:"last_name" validate:"max=64"`
	MobileNumber string `json:"mobile_number" validate:"required,max=20"`
	RegNo        string `json:"reg_no" validate:"required,max=32"`
}

// RegistrationRequest is the request body for PATCH /users/me/registrations.
type RegistrationRequest struct {
	EventCode *int   `json:"event_code" validate:"required"`
	Op        string `json:"op" validate:"required,oneof=register unregister"`
}

// ProfileSuccessResponse is the success response envelope for GET /users/me (200).
type ProfileSuccessResponse struct {
	Data  *domain.Profile   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserSuccessResponse is the success response envelope for endpoints returning the user (200).
type UserSuccessResponse struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserController handles profile and event registration endpoints.
type UserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

// NewUserController creates a UserController with the given logger and service.
func NewUserController(logger *slog.Logger, svc domain.UserService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// GetMe godoc
// @Summary Get current user
// @Description Returns the authenticated user and, when affiliated, the team with member profiles.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ProfileSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me [get]
func (c *UserController) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	profile, err := c.Service.GetProfile(r.Context(), userID)
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, profile)
}

// FillDetails godoc
// @Summary Fill profile details
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body FillDetailsRequest true "Profile details"
// @Success 200 {object} controllers.UserSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /users/me/details [post]
func (c *UserController) FillDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req FillDetailsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.FillDetails(r.Context(), userID, domain.UserDetails{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MobileNumber: req.MobileNumber,
		RegNo:        req.RegNo,
	})
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// UpdateRegistration godoc
// @Summary Register for or unregister from an event
// @Description event_code is 0 (T10), 1 (YANTRA), 2 (NEXUS) or 3 (DEVOPS). A team member cannot unregister from YANTRA.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RegistrationRequest true "Event and operation"
// @Success 200 {object} controllers.UserSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.rule: ALREADY_REGISTERED, NOT_REGISTERED or PART_OF_TEAM_CANT_UNREGISTER"
// @Router /users/me/registrations [patch]
func (c *UserController) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req RegistrationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.SetRegistration(r.Context(), userID, domain.EventCode(*req.EventCode), domain.RegistrationOp(req.Op))
	if err != nil {
		helpers.WriteDomainError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// ListEvents godoc
// @Summary List events
// @Tags events
// @Produce json
// @Success 200 {object} helpers.APIResponse "data is the event catalog"
// @Router /events [get]
func (c *UserController) ListEvents(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, c.Service.ListEvents(r.Context()))
}
