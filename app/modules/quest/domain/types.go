// Package questdomain holds the closed value sets and pure rules of the quest
// game. It has no storage or transport dependencies.
package questdomain

import "fmt"

// Role is a team member's role. Only the engine moves a member between roles.
type Role string

const (
	RolePlayer  Role = "PLAYER"
	RoleCaptain Role = "CAPTAIN"
)

// ParseRole accepts the stored representation of a role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePlayer, RoleCaptain:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) IsCaptain() bool { return r == RoleCaptain }

// ProofStatus is the moderation state of a checkpoint proof.
type ProofStatus string

const (
	ProofPending  ProofStatus = "PENDING"
	ProofApproved ProofStatus = "APPROVED"
	ProofRejected ProofStatus = "REJECTED"
)

// CanJudge reports whether a proof in this state accepts approve or reject.
func (s ProofStatus) CanJudge() bool { return s == ProofPending }

// CanReopen reports whether a new submission may overwrite a proof in this state.
func (s ProofStatus) CanReopen() bool { return s == ProofRejected }

// SubmissionKind distinguishes free-form submissions.
type SubmissionKind string

const (
	KindArticle SubmissionKind = "article"
	KindPhoto   SubmissionKind = "photo"
)

// SubmissionStatus is the moderation state of a free-form submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// ParseSubmissionStatus accepts the wire form of a submission status.
func ParseSubmissionStatus(s string) (SubmissionStatus, error) {
	switch SubmissionStatus(s) {
	case SubmissionPending, SubmissionApproved, SubmissionRejected:
		return SubmissionStatus(s), nil
	}
	return "", fmt.Errorf("unknown submission status %q", s)
}

// SubmitOutcome tells the submitter what happened to a proof submission.
type SubmitOutcome string

const (
	OutcomeQueued          SubmitOutcome = "queued"
	OutcomeAlreadyQueued   SubmitOutcome = "already_queued"
	OutcomeRequeued        SubmitOutcome = "requeued"
	OutcomeAlreadyApproved SubmitOutcome = "already_approved"
	OutcomeRouteFinished   SubmitOutcome = "route_finished"
)

// WhitelistEntry is a pre-declared participant. TeamNumber is 0 when the list
// does not bind the participant to a team.
type WhitelistEntry struct {
	Phone      string
	FirstName  string
	LastName   string
	TeamNumber int
}
