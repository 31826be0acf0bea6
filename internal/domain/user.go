package domain

import (
	"context"
	"time"
)

// LoginType records how an account authenticates.
type LoginType int

const (
	LoginGoogle LoginType = 0
	LoginBasic  LoginType = 1
)

// TeamRole is the role a user holds inside their team.
type TeamRole string

const (
	RoleLeader TeamRole = "LEADER"
	RoleMember TeamRole = "MEMBER"
)

// Affiliation is the (team, role) pair a user holds. A nil *Affiliation means the user is unaffiliated.
// swagger:model Affiliation
type Affiliation struct {
	TeamID string   `json:"team_id"`
	Role   TeamRole `json:"role"`
}

// User represents a registered participant.
// swagger:model User
type User struct {
	ID               string           `json:"id"`
	LoginType        LoginType        `json:"login_type"`
	Username         string           `json:"username,omitempty"`
	Email            string           `json:"email"`
	PasswordHash     string           `json:"-"`
	Salt             string           `json:"-"`
	HasFilledDetails bool             `json:"has_filled_details"`
	FirstName        string           `json:"first_name"`
	LastName         string           `json:"last_name"`
	MobileNumber     string           `json:"mobile_number"`
	RegNo            string           `json:"reg_no"`
	RegisteredEvents RegisteredEvents `json:"registered_events"`
	Affiliation      *Affiliation     `json:"affiliation"`
	PendingRequests  int              `json:"yantra_pending_requests"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewUser returns a new unaffiliated User registered for no event. ID is set by the repository on create.
func NewUser(loginType LoginType, username, email string, createdAt, updatedAt time.Time) *User {
	return &User{
		LoginType: loginType,
		Username:  username,
		Email:     email,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// IsRegistered reports whether the user holds the registration slot for code.
func (u *User) IsRegistered(code EventCode) bool {
	return code.Valid() && u.RegisteredEvents[code] == Registered
}

// IsAffiliated reports whether the user belongs to a team.
func (u *User) IsAffiliated() bool {
	return u.Affiliation != nil
}

// InTeam reports whether the user belongs to the given team.
func (u *User) InTeam(teamID string) bool {
	return u.Affiliation != nil && u.Affiliation.TeamID == teamID
}

// LeadsTeam reports whether the user is the leader of the given team.
func (u *User) LeadsTeam(teamID string) bool {
	return u.InTeam(teamID) && u.Affiliation.Role == RoleLeader
}

// Profile returns the public view of the user.
func (u *User) Profile() *MemberProfile {
	p := &MemberProfile{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		MobileNumber: u.MobileNumber,
		RegNo:        u.RegNo,
	}
	if u.Affiliation != nil {
		p.Role = u.Affiliation.Role
	}
	return p
}

// MemberProfile is the subset of a user shown to other participants.
// swagger:model MemberProfile
type MemberProfile struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	MobileNumber string   `json:"mobile_number"`
	RegNo        string   `json:"reg_no"`
	Role         TeamRole `json:"role,omitempty"`
}

// UserDetails are the profile fields a user fills in after signing up.
type UserDetails struct {
	FirstName    string
	LastName     string
	MobileNumber string
	RegNo        string
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues session tokens for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a session token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// IdentityVerifier validates a third-party identity token and returns the verified email.
type IdentityVerifier interface {
	VerifyEmail(ctx context.Context, idToken string) (email string, err error)
}

// UserRepository defines storage for users. Lock* variants must run inside a transaction
// and hold a row lock until it ends.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	LockByID(ctx context.Context, id string) (*User, error)
	LockByEmail(ctx context.Context, email string) (*User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*User, error)
	UpdateDetails(ctx context.Context, id string, details UserDetails) error
	SetRegisteredEvents(ctx context.Context, id string, events RegisteredEvents) error
	SetAffiliation(ctx context.Context, id string, affiliation *Affiliation) error
	// RefreshPendingRequests recomputes yantra_pending_requests from the outbound ledger.
	RefreshPendingRequests(ctx context.Context, ids ...string) error
	ListCandidates(ctx context.Context, event EventCode, params PaginationParams) ([]*User, int, error)
}

// Profile bundles a user with their team when affiliated.
type Profile struct {
	User *User        `json:"user"`
	Team *TeamDetails `json:"team"`
}

// UserService covers profile and event registration operations.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	FillDetails(ctx context.Context, userID string, details UserDetails) (*User, error)
	SetRegistration(ctx context.Context, userID string, code EventCode, op RegistrationOp) (*User, error)
	ListEvents(ctx context.Context) []Event
}

// AuthService covers signup and login.
type AuthService interface {
	SignUp(ctx context.Context, username, email, password string) (*User, error)
	Login(ctx context.Context, username, password string) (token string, user *User, err error)
	// GoogleAuth logs in or creates the account matching the identity token. created reports a new account.
	GoogleAuth(ctx context.Context, idToken, email string) (token string, user *User, created bool, err error)
}
