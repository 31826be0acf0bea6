package domain

import (
	"context"
	"strings"
	"time"
)

// Direction tells which ledger a pending request lives in.
type Direction string

const (
	// Outbound requests are sent by a user asking to join a team.
	Outbound Direction = "OUTBOUND"
	// Inbound requests are invitations sent by a team leader to a user.
	Inbound Direction = "INBOUND"
)

// Opposite returns the other ledger.
func (d Direction) Opposite() Direction {
	if d == Outbound {
		return Inbound
	}
	return Outbound
}

// RequestStatus is the state of a ledger entry. Resolved entries are deleted, so only pending exists.
type RequestStatus string

const StatusPendingApproval RequestStatus = "PENDING_APPROVAL"

// PendingRequest is a ledger entry linking a user and a team.
// swagger:model PendingRequest
type PendingRequest struct {
	ID        string         `json:"id"`
	Direction Direction      `json:"direction"`
	TeamID    string         `json:"team_id"`
	UserID    string         `json:"user_id"`
	LeaderID  string         `json:"leader_id,omitempty"`
	Status    RequestStatus  `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	TeamName  string         `json:"team_name,omitempty"`
	User      *MemberProfile `json:"user,omitempty"`
}

// NewPendingRequest returns a pending entry. leaderID is only set for inbound requests.
func NewPendingRequest(dir Direction, teamID, userID, leaderID string, createdAt time.Time) *PendingRequest {
	return &PendingRequest{
		Direction: dir,
		TeamID:    teamID,
		UserID:    userID,
		LeaderID:  leaderID,
		Status:    StatusPendingApproval,
		CreatedAt: createdAt,
	}
}

// Decision is the answer to a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision accepts approve/accept and reject.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "accept":
		return DecisionApprove, nil
	case "reject":
		return DecisionReject, nil
	}
	return "", ErrInvalidDecision
}

// RequestRepository stores both ledgers; every call names the ledger with a Direction.
// List calls fill TeamName and User.
type RequestRepository interface {
	Create(ctx context.Context, r *PendingRequest) error
	Get(ctx context.Context, dir Direction, teamID, userID string) (*PendingRequest, error)
	ListByUser(ctx context.Context, dir Direction, userID string) ([]*PendingRequest, error)
	ListByTeam(ctx context.Context, dir Direction, teamID string) ([]*PendingRequest, error)
	CountByUser(ctx context.Context, dir Direction, userID string) (int, error)
	Delete(ctx context.Context, dir Direction, teamID, userID string) error
	// DeleteByUser removes every entry of userID in the ledger and returns the removed entries.
	DeleteByUser(ctx context.Context, dir Direction, userID string) ([]*PendingRequest, error)
	// DeleteByTeam removes every entry of teamID in the ledger and returns the removed entries.
	DeleteByTeam(ctx context.Context, dir Direction, teamID string) ([]*PendingRequest, error)
}

// RequestService covers both directions of the request/approval protocol.
type RequestService interface {
	SendJoinRequest(ctx context.Context, userID, teamID string) (*PendingRequest, error)
	WithdrawJoinRequest(ctx context.Context, userID, teamID string) error
	RespondToJoinRequest(ctx context.Context, leaderID, teamID, userID string, d Decision) error
	ListTeamJoinRequests(ctx context.Context, leaderID, teamID string) ([]*PendingRequest, error)
	ListUserJoinRequests(ctx context.Context, userID string) ([]*PendingRequest, error)

	InviteMember(ctx context.Context, leaderID, teamID, userID string) (*PendingRequest, error)
	WithdrawInvitation(ctx context.Context, leaderID, teamID, userID string) error
	RespondToInvitation(ctx context.Context, userID, teamID string, d Decision) error
	ListTeamInvitations(ctx context.Context, leaderID, teamID string) ([]*PendingRequest, error)
	ListUserInvitations(ctx context.Context, userID string) ([]*PendingRequest, error)
}

// Transactor runs fn inside a single store transaction carried by the context passed to fn.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
