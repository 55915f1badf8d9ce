package questservice

import (
	"time"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
)

// RegisterRequest identifies a participant by messaging identity and phone.
type RegisterRequest struct {
	TgID      int64
	Phone     string
	FirstName string
	LastName  string
}

// RegisterResult is the outcome of registration.
type RegisterResult struct {
	UserID  int64     `json:"user_id"`
	Created bool      `json:"created"`
	Joined  bool      `json:"joined"`
	Team    *TeamView `json:"team"`
}

// MemberView is one roster line.
type MemberView struct {
	UserID    int64            `json:"user_id"`
	TgID      *int64           `json:"tg_id,omitempty"`
	FirstName string           `json:"first_name"`
	LastName  *string          `json:"last_name,omitempty"`
	Phone     *string          `json:"phone,omitempty"`
	Role      questdomain.Role `json:"role"`
	IsCaptain bool             `json:"is_captain"`
}

// TeamView is a team with its roster.
type TeamView struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	IsLocked        bool         `json:"is_locked"`
	RouteCode       *string      `json:"route_code,omitempty"`
	CurrentOrderNum int          `json:"current_order_num"`
	CanRename       bool         `json:"can_rename"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	FinishedAt      *time.Time   `json:"finished_at,omitempty"`
	Capacity        int          `json:"capacity"`
	IsFull          bool         `json:"is_full"`
	Members         []MemberView `json:"members"`
	Captain         *MemberView  `json:"captain,omitempty"`
}

// TeamSummary is a team list line.
type TeamSummary struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	IsLocked    bool       `json:"is_locked"`
	RouteCode   *string    `json:"route_code,omitempty"`
	MemberCount int        `json:"member_count"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// StartResult is returned by StartGame.
type StartResult struct {
	OK             bool      `json:"ok"`
	AlreadyStarted bool      `json:"already_started"`
	StartedAt      time.Time `json:"started_at"`
	RouteCode      string    `json:"route_code"`
}

// CheckpointResult is the team's current task, or Finished.
type CheckpointResult struct {
	Finished bool                  `json:"finished"`
	Task     *questdomain.TaskCard `json:"task,omitempty"`
}

// SubmitProofRequest carries a proof's opaque media reference.
type SubmitProofRequest struct {
	TgID     int64
	MediaRef string
}

// SubmitProofResult tells the captain what happened to the submission.
type SubmitProofResult struct {
	OK      bool                      `json:"ok"`
	ProofID int64                     `json:"proof_id,omitempty"`
	Outcome questdomain.SubmitOutcome `json:"outcome"`
}

// Progress counts approved checkpoints on the team's route.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// ModerationResult is returned by ApproveProof and RejectProof.
type ModerationResult struct {
	OK               bool     `json:"ok"`
	AlreadyProcessed bool     `json:"already_processed"`
	ProofID          int64    `json:"proof_id"`
	TeamID           int64    `json:"team_id"`
	Progress         Progress `json:"progress"`
	Finished         bool     `json:"finished"`

	event *questdomain.ProgressEvent
	topic string
}

// PendingProof is a proof awaiting moderation.
type PendingProof struct {
	ID                int64      `json:"id"`
	TeamID            int64      `json:"team_id"`
	TeamName          string     `json:"team_name"`
	RouteCode         string     `json:"route_code"`
	CheckpointID      int64      `json:"checkpoint_id"`
	OrderNum          int        `json:"order_num"`
	CheckpointTitle   string     `json:"checkpoint_title"`
	PhotoFileID       string     `json:"photo_file_id"`
	SubmittedByUserID int64      `json:"submitted_by_user_id"`
	SubmittedByTgID   *int64     `json:"submitted_by_tg_id,omitempty"`
	SubmittedByName   string     `json:"submitted_by_name"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// UserRef names a user by internal id or messaging identity.
type UserRef struct {
	UserID int64 `json:"user_id,omitempty"`
	TgID   int64 `json:"tg_id,omitempty"`
}

// IsZero reports whether neither identifier is set.
func (r UserRef) IsZero() bool { return r.UserID == 0 && r.TgID == 0 }

// MoveMemberRequest relocates a member to another team.
type MoveMemberRequest struct {
	User        UserRef
	DestTeamID  int64
	MakeCaptain bool
}

// UserView is an admin user list line.
type UserView struct {
	ID        int64     `json:"id"`
	TgID      *int64    `json:"tg_id,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  *string   `json:"last_name,omitempty"`
	IsActive  bool      `json:"is_active"`
	TeamID    *int64    `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmissionView is a free-form submission.
type SubmissionView struct {
	ID           int64                        `json:"id"`
	UserID       int64                        `json:"user_id"`
	TeamID       *int64                       `json:"team_id,omitempty"`
	Kind         questdomain.SubmissionKind   `json:"type"`
	URL          *string                      `json:"url,omitempty"`
	CanonicalURL *string                      `json:"canonical_url,omitempty"`
	TgFileID     *string                      `json:"tg_file_id,omitempty"`
	Caption      *string                      `json:"caption,omitempty"`
	Status       questdomain.SubmissionStatus `json:"status"`
	RejectReason *string                      `json:"reject_reason,omitempty"`
	CreatedAt    time.Time                    `json:"created_at"`
	ReviewedAt   *time.Time                   `json:"reviewed_at,omitempty"`

	SubmitterTgID *int64 `json:"submitter_tg_id,omitempty"`
	SubmitterName string `json:"submitter_name,omitempty"`
	TeamName      string `json:"team_name,omitempty"`
}

// SubmissionModeration is returned by ApproveSubmission and RejectSubmission.
type SubmissionModeration struct {
	OK               bool            `json:"ok"`
	AlreadyProcessed bool            `json:"already_processed"`
	Submission       *SubmissionView `json:"submission,omitempty"`

	event *questdomain.SubmissionEvent
	topic string
}

// RouteSeed describes a route and its ordered checkpoints for seeding.
type RouteSeed struct {
	Code        string           `yaml:"code" json:"code"`
	Name        string           `yaml:"name" json:"name"`
	Checkpoints []CheckpointSeed `yaml:"checkpoints" json:"checkpoints"`
}

// CheckpointSeed is one seeded checkpoint. OrderNum defaults to its position.
type CheckpointSeed struct {
	OrderNum  int    `yaml:"order_num" json:"order_num"`
	Title     string `yaml:"title" json:"title"`
	Riddle    string `yaml:"riddle" json:"riddle"`
	PhotoHint string `yaml:"photo_hint" json:"photo_hint"`
}

// SeedResult reports what SeedRoutes wrote.
type SeedResult struct {
	Routes      int `json:"routes"`
	Checkpoints int `json:"checkpoints"`
}
