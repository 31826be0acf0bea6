package domain

import (
	"context"
	"slices"
	"time"
)

// Capacity limits of the team-formation workflow.
const (
	MaxTeamSize        = 4
	MaxTeammates       = MaxTeamSize - 1
	MaxPendingRequests = 5
	MaxTeamRenames     = 3
	// InvitePurgeSize is the roster size at which a team's open invitations are dropped.
	InvitePurgeSize = 3
)

// Submission is the free-form project payload of a team.
// swagger:model Submission
type Submission struct {
	ProjectName string `json:"project_name"`
	TechStack   string `json:"tech_stack"`
	Description string `json:"description"`
	VideoLink   string `json:"video_link"`
	GithubLink  string `json:"github_link"`
	FileLink    string `json:"file_link"`
}

// Team is a hackathon team. Members is ordered by join time with the leader first.
// swagger:model Team
type Team struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	LeaderID       string      `json:"leader_id"`
	Members        []string    `json:"members"`
	NameChanges    int         `json:"name_changes"`
	PendingInvites int         `json:"pending_invites"`
	Submission     *Submission `json:"submission,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// NewTeam returns a Team led by leaderID with the given members after the leader.
func NewTeam(name, leaderID string, memberIDs []string, createdAt time.Time) *Team {
	members := make([]string, 0, len(memberIDs)+1)
	members = append(members, leaderID)
	members = append(members, memberIDs...)
	return &Team{
		Name:      name,
		LeaderID:  leaderID,
		Members:   members,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// IsFull reports whether the roster reached MaxTeamSize.
func (t *Team) IsFull() bool {
	return len(t.Members) >= MaxTeamSize
}

// HasMember reports whether userID is on the roster.
func (t *Team) HasMember(userID string) bool {
	return slices.Contains(t.Members, userID)
}

// TeamDetails is a team together with its member profiles.
// swagger:model TeamDetails
type TeamDetails struct {
	Team    *Team            `json:"team"`
	Members []*MemberProfile `json:"members"`
}

// CreateTeamInput is the input of team creation.
type CreateTeamInput struct {
	Name           string
	TeammateEmails []string
}

// TeamRepository defines storage for teams and their rosters.
type TeamRepository interface {
	// Create inserts the team and its roster rows and sets t.ID.
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id string) (*Team, error)
	GetByName(ctx context.Context, name string) (*Team, error)
	LockByID(ctx context.Context, id string) (*Team, error)
	ListOpen(ctx context.Context, params PaginationParams) ([]*Team, int, error)
	AddMember(ctx context.Context, teamID, userID string) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	// Rename sets the name and increments the rename counter.
	Rename(ctx context.Context, teamID, name string) error
	UpdateSubmission(ctx context.Context, teamID string, s *Submission) error
	Delete(ctx context.Context, id string) error
	// RefreshPendingInvites recomputes pending_invites from the inbound ledger.
	RefreshPendingInvites(ctx context.Context, ids ...string) error
}

// TeamTokenManager signs and verifies tokens that let a user join a team without an invitation.
type TeamTokenManager interface {
	IssueTeamToken(teamID string) (string, error)
	VerifyTeamToken(token string) (teamID string, err error)
}

// TeamService covers team lifecycle and administration.
type TeamService interface {
	CreateTeam(ctx context.Context, leaderID string, in CreateTeamInput) (*Team, error)
	GetTeam(ctx context.Context, teamID string) (*TeamDetails, error)
	ListOpenTeams(ctx context.Context, params PaginationParams) ([]*Team, int, error)
	RenameTeam(ctx context.Context, leaderID, teamID, name string) (*Team, error)
	RemoveMember(ctx context.Context, leaderID, teamID, userID string) error
	LeaveTeam(ctx context.Context, userID, teamID string) error
	DeleteTeam(ctx context.Context, leaderID, teamID string) error
	UploadSubmission(ctx context.Context, userID string, s *Submission) (*Team, error)
	GetSubmission(ctx context.Context, userID string) (*Team, error)
	IssueTeamToken(ctx context.Context, leaderID, teamID string) (string, error)
	JoinWithToken(ctx context.Context, userID, token string) (*Team, error)
	ListCandidates(ctx context.Context, leaderID, teamID string, params PaginationParams) ([]*MemberProfile, int, error)
}
