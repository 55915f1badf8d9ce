package questdb

import (
	"time"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/uptrace/bun"
)

// Route is an ordered set of checkpoints identified by a one-letter code.
type Route struct {
	bun.BaseModel `bun:"table:routes,alias:r"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Code      string    `bun:"code,notnull,unique"`
	Name      string    `bun:"name,notnull"`
	IsActive  bool      `bun:"is_active,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Checkpoint is one step of a route. OrderNum is 1-based and unique per route.
type Checkpoint struct {
	bun.BaseModel `bun:"table:checkpoints,alias:c"`

	ID        int64   `bun:"id,pk,autoincrement"`
	RouteID   int64   `bun:"route_id,notnull"`
	OrderNum  int     `bun:"order_num,notnull"`
	Title     string  `bun:"title,notnull"`
	Riddle    string  `bun:"riddle,notnull"`
	PhotoHint *string `bun:"photo_hint,nullzero"`
}

type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID              int64      `bun:"id,pk,autoincrement"`
	Name            string     `bun:"name,notnull,unique"`
	Description     *string    `bun:"description,nullzero"`
	IsLocked        bool       `bun:"is_locked,notnull,default:false"`
	RouteID         *int64     `bun:"route_id,nullzero"`
	CurrentOrderNum int        `bun:"current_order_num,notnull,default:1"`
	CanRename       bool       `bun:"can_rename,notnull,default:true"`
	StartedAt       *time.Time `bun:"started_at,nullzero"`
	FinishedAt      *time.Time `bun:"finished_at,nullzero"`
	CreatedAt       time.Time  `bun:"created_at,notnull,default:current_timestamp"`
}

// HasStarted reports whether the team has left NOT_STARTED.
func (t *Team) HasStarted() bool { return t.StartedAt != nil }

// HasFinished reports whether the team reached FINISHED.
func (t *Team) HasFinished() bool { return t.FinishedAt != nil }

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement"`
	TgID      *int64    `bun:"tg_id,unique,nullzero"`
	Phone     *string   `bun:"phone,unique,nullzero"`
	FirstName string    `bun:"first_name,notnull,default:''"`
	LastName  *string   `bun:"last_name,nullzero"`
	IsActive  bool      `bun:"is_active,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// TeamMember binds a user to at most one team.
type TeamMember struct {
	bun.BaseModel `bun:"table:team_members,alias:tm"`

	ID        int64            `bun:"id,pk,autoincrement"`
	TeamID    int64            `bun:"team_id,notnull"`
	UserID    int64            `bun:"user_id,notnull,unique"`
	Role      questdomain.Role `bun:"role,notnull"`
	CreatedAt time.Time        `bun:"created_at,notnull,default:current_timestamp"`
}

// Proof is a team's evidence for one checkpoint. One row per (team, checkpoint).
type Proof struct {
	bun.BaseModel `bun:"table:proofs,alias:p"`

	ID                int64                   `bun:"id,pk,autoincrement"`
	TeamID            int64                   `bun:"team_id,notnull"`
	RouteID           int64                   `bun:"route_id,notnull"`
	CheckpointID      int64                   `bun:"checkpoint_id,notnull"`
	PhotoFileID       string                  `bun:"photo_file_id,notnull"`
	Status            questdomain.ProofStatus `bun:"status,notnull"`
	SubmittedByUserID int64                   `bun:"submitted_by_user_id,notnull"`
	JudgedBy          *int64                  `bun:"judged_by,nullzero"`
	JudgedAt          *time.Time              `bun:"judged_at,nullzero"`
	Comment           *string                 `bun:"comment,nullzero"`
	CreatedAt         time.Time               `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt         *time.Time              `bun:"updated_at,nullzero"`
}

// Submission is a free-form article link or photo moderated outside the route.
type Submission struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID           int64                        `bun:"id,pk,autoincrement"`
	UserID       int64                        `bun:"user_id,notnull"`
	TeamID       *int64                       `bun:"team_id,nullzero"`
	Kind         questdomain.SubmissionKind   `bun:"kind,notnull"`
	URL          *string                      `bun:"url,nullzero"`
	CanonicalURL *string                      `bun:"canonical_url,nullzero"`
	TgFileID     *string                      `bun:"tg_file_id,nullzero"`
	Caption      *string                      `bun:"caption,nullzero"`
	Status       questdomain.SubmissionStatus `bun:"status,notnull"`
	RejectReason *string                      `bun:"reject_reason,nullzero"`
	CreatedAt    time.Time                    `bun:"created_at,notnull,default:current_timestamp"`
	ReviewedAt   *time.Time                   `bun:"reviewed_at,nullzero"`
	ReviewedByTg *int64                       `bun:"reviewed_by_tg,nullzero"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	Team *Team `bun:"rel:belongs-to,join:team_id=id" json:"-"`
}

// RouteLoad is a playable route with the number of teams bound to it.
type RouteLoad struct {
	RouteID     int64  `bun:"route_id"`
	Code        string `bun:"code"`
	Checkpoints int    `bun:"checkpoints"`
	Teams       int    `bun:"teams"`
}

// TeamSummary is a team row with its member count.
type TeamSummary struct {
	Team        `bun:",extend"`
	RouteCode   *string `bun:"route_code"`
	MemberCount int     `bun:"member_count"`
}

// MemberRow is a membership joined with its user.
type MemberRow struct {
	MemberID  int64            `bun:"member_id"`
	TeamID    int64            `bun:"team_id"`
	UserID    int64            `bun:"user_id"`
	Role      questdomain.Role `bun:"role"`
	TgID      *int64           `bun:"tg_id"`
	FirstName string           `bun:"first_name"`
	LastName  *string          `bun:"last_name"`
	Phone     *string          `bun:"phone"`
	JoinedAt  time.Time        `bun:"joined_at"`
}

// PendingProofRow is a PENDING proof with the context a moderator needs.
type PendingProofRow struct {
	ID                int64      `bun:"id"`
	TeamID            int64      `bun:"team_id"`
	TeamName          string     `bun:"team_name"`
	RouteCode         string     `bun:"route_code"`
	CheckpointID      int64      `bun:"checkpoint_id"`
	OrderNum          int        `bun:"order_num"`
	CheckpointTitle   string     `bun:"checkpoint_title"`
	PhotoFileID       string     `bun:"photo_file_id"`
	SubmittedByUserID int64      `bun:"submitted_by_user_id"`
	SubmittedByTgID   *int64     `bun:"submitted_by_tg_id"`
	SubmittedByName   string     `bun:"submitted_by_name"`
	CreatedAt         time.Time  `bun:"created_at"`
	UpdatedAt         *time.Time `bun:"updated_at"`
}

// TeamFilter narrows ListTeams. A zero Limit means no limit.
type TeamFilter struct {
	Query string
	Limit int
}

// Judgement is a moderator decision applied to a pending proof or submission.
type Judgement struct {
	ID       int64
	Approve  bool
	JudgedBy int64
	Comment  *string
	At       time.Time
}
