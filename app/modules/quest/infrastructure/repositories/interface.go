package questdb

import (
	"context"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/uptrace/bun"
)

// Repository defines the contract for quest persistence. Every method takes an
// optional bun.IDB so callers can run several calls in one transaction; a nil
// db uses the repository's own connection.
type Repository interface {
	// --- Routes & checkpoints ---
	GetRouteByID(ctx context.Context, db bun.IDB, id int64) (*Route, error)
	GetRouteByCode(ctx context.Context, db bun.IDB, code string) (*Route, error)
	UpsertRoute(ctx context.Context, db bun.IDB, route *Route) error
	UpsertCheckpoint(ctx context.Context, db bun.IDB, cp *Checkpoint) error
	// ListRouteLoads returns active routes with at least one checkpoint, by ascending id.
	ListRouteLoads(ctx context.Context, db bun.IDB) ([]RouteLoad, error)
	CountCheckpoints(ctx context.Context, db bun.IDB, routeID int64) (int, error)
	GetCheckpointByOrder(ctx context.Context, db bun.IDB, routeID int64, orderNum int) (*Checkpoint, error)
	GetCheckpointByID(ctx context.Context, db bun.IDB, id int64) (*Checkpoint, error)

	// --- Users ---
	GetUserByID(ctx context.Context, db bun.IDB, id int64) (*User, error)
	GetUserByTgID(ctx context.Context, db bun.IDB, tgID int64) (*User, error)
	GetUserByPhone(ctx context.Context, db bun.IDB, phone string) (*User, error)
	CreateUser(ctx context.Context, db bun.IDB, user *User) error
	UpdateUser(ctx context.Context, db bun.IDB, user *User) error
	ListUsers(ctx context.Context, db bun.IDB, limit, offset int) ([]User, error)

	// --- Teams ---
	GetTeamByID(ctx context.Context, db bun.IDB, id int64) (*Team, error)
	GetTeamByName(ctx context.Context, db bun.IDB, name string) (*Team, error)
	CreateTeam(ctx context.Context, db bun.IDB, team *Team) error
	UpdateTeam(ctx context.Context, db bun.IDB, team *Team) error
	// FindOpenTeam returns the lowest-id unlocked team with fewer than capacity members.
	FindOpenTeam(ctx context.Context, db bun.IDB, capacity int) (*Team, error)
	ListTeamNames(ctx context.Context, db bun.IDB) ([]string, error)
	ListTeams(ctx context.Context, db bun.IDB, filter TeamFilter) ([]TeamSummary, error)
	SetAllTeamsLocked(ctx context.Context, db bun.IDB, locked bool) (int, error)

	// --- Memberships ---
	GetMembershipByUser(ctx context.Context, db bun.IDB, userID int64) (*TeamMember, error)
	// ListMembers returns the roster ordered by join (ascending membership id).
	ListMembers(ctx context.Context, db bun.IDB, teamID int64) ([]MemberRow, error)
	CountMembers(ctx context.Context, db bun.IDB, teamID int64) (int, error)
	AddMember(ctx context.Context, db bun.IDB, member *TeamMember) error
	UpdateMember(ctx context.Context, db bun.IDB, member *TeamMember) error

	// --- Proofs ---
	GetProofByID(ctx context.Context, db bun.IDB, id int64) (*Proof, error)
	GetProofByTeamCheckpoint(ctx context.Context, db bun.IDB, teamID, checkpointID int64) (*Proof, error)
	CreateProof(ctx context.Context, db bun.IDB, proof *Proof) error
	// ReopenProof rewrites a REJECTED proof back to PENDING. It reports false
	// when the row was no longer REJECTED.
	ReopenProof(ctx context.Context, db bun.IDB, proof *Proof) (bool, error)
	// JudgeProof applies j only while the proof is PENDING and reports whether it did.
	JudgeProof(ctx context.Context, db bun.IDB, j Judgement) (bool, error)
	CountApprovedProofs(ctx context.Context, db bun.IDB, teamID, routeID int64) (int, error)
	ListPendingProofs(ctx context.Context, db bun.IDB) ([]PendingProofRow, error)

	// --- Submissions ---
	CreateSubmission(ctx context.Context, db bun.IDB, sub *Submission) error
	GetSubmissionByID(ctx context.Context, db bun.IDB, id int64) (*Submission, error)
	// FindLiveArticle returns a pending or approved article with this canonical URL.
	FindLiveArticle(ctx context.Context, db bun.IDB, canonicalURL string) (*Submission, error)
	// JudgeSubmission applies j only while the submission is pending.
	JudgeSubmission(ctx context.Context, db bun.IDB, j Judgement) (bool, error)
	ListSubmissions(ctx context.Context, db bun.IDB, status questdomain.SubmissionStatus, limit int) ([]Submission, error)
}
