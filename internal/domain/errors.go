package domain

import "errors"

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

// ErrorKind classifies business-rule failures so the delivery layer can map them to a status.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindPermission
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPermission:
		return "permission"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Error is a business-rule violation. Code is the stable machine-readable identifier
// returned to clients; Message is human readable.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation failures.
var (
	ErrInvalidInput     = newError(KindValidation, "INVALID_INPUT", "invalid input")
	ErrInvalidTeamID    = newError(KindValidation, "INVALID_TEAM_ID", "invalid team id")
	ErrInvalidUserID    = newError(KindValidation, "INVALID_USER_ID", "invalid user id")
	ErrInvalidEventCode = newError(KindValidation, "INVALID_EVENT_CODE", "invalid event code")
	ErrInvalidDecision  = newError(KindValidation, "INVALID_DECISION", "decision must be approve or reject")
	ErrTooManyTeammates = newError(KindValidation, "TOO_MANY_TEAMMATES", "a team can be created with at most 3 teammates")
	ErrEmptyTeamName    = newError(KindValidation, "TEAM_NAME_REQUIRED", "team name is required")
	ErrInvalidTeamToken = newError(KindValidation, "INVALID_TEAM_TOKEN", "invalid or expired team token")
)

// Not-found failures.
var (
	ErrUserNotFound        = newError(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrTeamNotFound        = newError(KindNotFound, "TEAM_NOT_FOUND", "team not found")
	ErrRequestNotFound     = newError(KindNotFound, "NO_PENDING_REQUESTS", "no pending request found")
	ErrTeammateNotSignedUp = newError(KindNotFound, "NOT_SIGNED_UP", "teammate has not signed up; an invitation to create an account was sent")
)

// Conflict failures.
var (
	ErrDuplicateEmail             = newError(KindConflict, "EMAIL_EXISTS", "email already in use")
	ErrDuplicateUsername          = newError(KindConflict, "USERNAME_EXISTS", "username already in use")
	ErrAlreadyRegistered          = newError(KindConflict, "ALREADY_REGISTERED", "already registered for the event")
	ErrNotRegistered              = newError(KindConflict, "NOT_REGISTERED", "not registered for the event")
	ErrCannotUnregisterInTeam     = newError(KindConflict, "PART_OF_TEAM_CANT_UNREGISTER", "a team member cannot unregister from the event")
	ErrNotRegisteredForEvent      = newError(KindConflict, "USER_NOT_REGISTERED_FOR_EVENT", "user is not registered for the event")
	ErrTeamNameTaken              = newError(KindConflict, "TEAM_NAME_EXISTS", "team name already taken")
	ErrTeamNameUnchanged          = newError(KindConflict, "SAME_EXISTING_TEAMNAME", "new team name is the same as the current one")
	ErrRenameLimitReached         = newError(KindConflict, "UPDATE_TEAMNAME_LIMIT_EXCEEDED", "team name can be changed at most 3 times")
	ErrTeamFull                   = newError(KindConflict, "TEAM_IS_FULL", "team is full")
	ErrAlreadyInTeam              = newError(KindConflict, "USER_ALREADY_IN_TEAM", "user is already part of a team")
	ErrRequestAlreadySent         = newError(KindConflict, "REQUEST_ALREADY_SENT", "a pending request already exists")
	ErrRequestOtherDirection      = newError(KindConflict, "PENDING_REQUEST_OTHER_MODEL", "a pending request exists in the opposite direction")
	ErrPendingRequestLimit        = newError(KindConflict, "PENDING_REQUESTS_LIMIT_REACHED", "pending request limit reached")
	ErrHasPendingRequests         = newError(KindConflict, "USER_HAS_PENDING_REQUESTS", "user has pending requests")
	ErrDuplicateTeammateEmail     = newError(KindConflict, "TEAM_MEMBERS_SAME_EMAIL", "teammate emails must be distinct")
	ErrLeaderCannotBeMember       = newError(KindConflict, "TEAM_LEADER_CANNOT_BE_TEAM_MEMBER", "team leader cannot be listed as a teammate")
	ErrTeammateNotRegistered      = newError(KindConflict, "ONE_OF_THE_TEAM_MATES_NOT_REGISTERED", "teammate is not registered for the event")
	ErrTeammateInTeam             = newError(KindConflict, "ONE_OF_THE_TEAM_MATES_ALREADY_IN_TEAM", "teammate is already part of a team")
	ErrTeammateHasPendingRequests = newError(KindConflict, "ONE_OF_THE_TEAM_MATES_HAS_PENDING_REQUESTS", "teammate has pending requests")
	ErrLeaderCannotLeave          = newError(KindConflict, "USER_IS_LEADER", "team leader cannot leave the team")
	ErrCannotRemoveLeader         = newError(KindConflict, "CANNOT_REMOVE_LEADER", "team leader cannot be removed")
	ErrTeamHasMembers             = newError(KindConflict, "TEAMSIZE_MORE_THAN_ONE", "team still has members")
	ErrTeamHasPendingInvites      = newError(KindConflict, "TEAM_LEADER_REQUESTS_PENDING_DELETE_TEAM", "team has pending invitations")
)

// Permission failures.
var (
	ErrNotTeamLeader = newError(KindPermission, "INVALID_USERID_FOR_TEAMID_OR_USER_NOT_LEADER", "user is not the leader of the team")
	ErrNotTeamMember = newError(KindPermission, "INVALID_USERID_FOR_TEAMID", "user is not a member of the team")
	ErrNotInAnyTeam  = newError(KindPermission, "USER_NOT_IN_TEAM", "user is not part of any team")
)

// Authentication failures.
var (
	ErrInvalidCredentials = newError(KindUnauthorized, "INVALID_USERNAME_OR_PASSWORD", "invalid username or password")
	ErrIdentityMismatch   = newError(KindUnauthorized, "INVALID_IDENTITY", "identity token does not match the given email")
)

// KindOf returns the kind of the first *Error in err's chain, or 0 when err is not a business-rule failure.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
