package questservice

import "errors"

// ErrorKind classifies domain failures for the transport layer.
type ErrorKind int

const (
	// KindNotFound is an entity lookup miss.
	KindNotFound ErrorKind = iota + 1
	// KindConflict is a violated precondition the caller must change.
	KindConflict
	// KindUnavailable means no resource could satisfy the request right now.
	KindUnavailable
	// KindInvalid is malformed input.
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindInvalid:
		return "invalid"
	}
	return "unknown"
}

// Error is a domain failure. Failures are terminal for the request and are
// never retried automatically.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrUserNotFound       = newError(KindNotFound, "user_not_found", "user not found")
	ErrTeamNotFound       = newError(KindNotFound, "team_not_found", "team not found")
	ErrProofNotFound      = newError(KindNotFound, "proof_not_found", "proof not found")
	ErrSubmissionNotFound = newError(KindNotFound, "submission_not_found", "submission not found")

	ErrNotMember       = newError(KindConflict, "not_member", "user is not on a team")
	ErrNotCaptain      = newError(KindConflict, "not_captain", "only the captain can do this")
	ErrTeamNotFull     = newError(KindConflict, "team_not_full", "team is not full yet")
	ErrAlreadyStarted  = newError(KindConflict, "already_started", "team has already started")
	ErrNotStarted      = newError(KindConflict, "not_started", "team has not started")
	ErrRenameUsed      = newError(KindConflict, "rename_used", "team was already renamed")
	ErrDefaultName     = newError(KindConflict, "default_name", "rename the team before starting")
	ErrNameTooShort    = newError(KindConflict, "name_too_short", "team name is too short")
	ErrNameTaken       = newError(KindConflict, "name_taken", "team name is already taken")
	ErrNotWhitelisted  = newError(KindConflict, "not_whitelisted", "phone is not on the participant list")
	ErrDuplicate       = newError(KindConflict, "duplicate", "this link was already submitted")
	ErrProofRace       = newError(KindConflict, "proof_changed", "proof changed concurrently, retry")
	ErrMembershipTaken = newError(KindConflict, "already_member", "user already joined a team")
	ErrIdentityTaken   = newError(KindConflict, "identity_taken", "phone or messaging id belongs to another user")

	ErrNoRouteAvailable = newError(KindUnavailable, "no_route_available", "no route is available")

	ErrInvalidURL   = newError(KindInvalid, "invalid_url", "url must be http or https")
	ErrMissingMedia = newError(KindInvalid, "missing_media", "photo is required")
	ErrMissingUser  = newError(KindInvalid, "missing_user", "user_id or tg_id is required")
)

// KindOf returns the kind of a domain failure, or 0 for any other error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CodeOf returns the machine code of a domain failure, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
