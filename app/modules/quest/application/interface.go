package questservice

import (
	"context"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
)

// Whitelist resolves a normalized phone to a pre-declared participant. A miss
// returns ok=false; it never fails.
type Whitelist interface {
	Lookup(ctx context.Context, phone string) (questdomain.WhitelistEntry, bool)
}

// Service is the quest game's read/write surface.
type Service interface {
	// Players
	RegisterOrAssign(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	GetMyTeam(ctx context.Context, tgID int64) (*TeamView, error)
	RenameTeam(ctx context.Context, tgID int64, newName string) (*TeamView, error)
	StartGame(ctx context.Context, tgID int64) (*StartResult, error)
	CurrentCheckpoint(ctx context.Context, tgID int64) (*CheckpointResult, error)
	SubmitProof(ctx context.Context, req SubmitProofRequest) (*SubmitProofResult, error)
	SubmitArticle(ctx context.Context, tgID int64, rawURL string) (*SubmissionView, error)
	SubmitPhoto(ctx context.Context, tgID int64, fileID, caption string) (*SubmissionView, error)

	// Moderation
	ListPendingProofs(ctx context.Context) ([]PendingProof, error)
	ApproveProof(ctx context.Context, proofID, judgedBy int64) (*ModerationResult, error)
	RejectProof(ctx context.Context, proofID, judgedBy int64, comment string) (*ModerationResult, error)
	ListSubmissions(ctx context.Context, status questdomain.SubmissionStatus, limit int) ([]SubmissionView, error)
	ApproveSubmission(ctx context.Context, id, reviewer int64) (*SubmissionModeration, error)
	RejectSubmission(ctx context.Context, id, reviewer int64, reason string) (*SubmissionModeration, error)

	// Administration
	SearchTeams(ctx context.Context, query string, limit int) ([]TeamSummary, error)
	ListTeams(ctx context.Context) ([]TeamSummary, error)
	GetTeam(ctx context.Context, teamID int64) (*TeamView, error)
	LockAllTeams(ctx context.Context) (int, error)
	UnlockAllTeams(ctx context.Context) (int, error)
	SetCaptain(ctx context.Context, teamID int64, user UserRef) (*TeamView, error)
	UnsetCaptain(ctx context.Context, teamID int64) (*TeamView, error)
	MoveMember(ctx context.Context, req MoveMemberRequest) (*TeamView, error)
	ListUsers(ctx context.Context, limit, offset int) ([]UserView, error)
	SeedRoutes(ctx context.Context, routes []RouteSeed) (*SeedResult, error)
}
