package questhandlers

import (
	"bytes"
	"context"
	"io"
	"sync"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/whitelist"
)

// ------------------------
// Fake Service
// ------------------------

// FakeService implements questservice.Service. Unset funcs return a benign
// default.
type FakeService struct {
	mu    sync.Mutex
	trace []string

	RegisterOrAssignFunc  func(ctx context.Context, req questservice.RegisterRequest) (*questservice.RegisterResult, error)
	GetMyTeamFunc         func(ctx context.Context, tgID int64) (*questservice.TeamView, error)
	RenameTeamFunc        func(ctx context.Context, tgID int64, newName string) (*questservice.TeamView, error)
	StartGameFunc         func(ctx context.Context, tgID int64) (*questservice.StartResult, error)
	CurrentCheckpointFunc func(ctx context.Context, tgID int64) (*questservice.CheckpointResult, error)
	SubmitProofFunc       func(ctx context.Context, req questservice.SubmitProofRequest) (*questservice.SubmitProofResult, error)
	SubmitArticleFunc     func(ctx context.Context, tgID int64, rawURL string) (*questservice.SubmissionView, error)
	SubmitPhotoFunc       func(ctx context.Context, tgID int64, fileID, caption string) (*questservice.SubmissionView, error)
	ListPendingProofsFunc func(ctx context.Context) ([]questservice.PendingProof, error)
	ApproveProofFunc      func(ctx context.Context, proofID, judgedBy int64) (*questservice.ModerationResult, error)
	RejectProofFunc       func(ctx context.Context, proofID, judgedBy int64, comment string) (*questservice.ModerationResult, error)
	ListSubmissionsFunc   func(ctx context.Context, status questdomain.SubmissionStatus, limit int) ([]questservice.SubmissionView, error)
	ApproveSubmissionFunc func(ctx context.Context, id, reviewer int64) (*questservice.SubmissionModeration, error)
	RejectSubmissionFunc  func(ctx context.Context, id, reviewer int64, reason string) (*questservice.SubmissionModeration, error)
	SearchTeamsFunc       func(ctx context.Context, query string, limit int) ([]questservice.TeamSummary, error)
	ListTeamsFunc         func(ctx context.Context) ([]questservice.TeamSummary, error)
	GetTeamFunc           func(ctx context.Context, teamID int64) (*questservice.TeamView, error)
	LockAllTeamsFunc      func(ctx context.Context) (int, error)
	UnlockAllTeamsFunc    func(ctx context.Context) (int, error)
	SetCaptainFunc        func(ctx context.Context, teamID int64, user questservice.UserRef) (*questservice.TeamView, error)
	UnsetCaptainFunc      func(ctx context.Context, teamID int64) (*questservice.TeamView, error)
	MoveMemberFunc        func(ctx context.Context, req questservice.MoveMemberRequest) (*questservice.TeamView, error)
	ListUsersFunc         func(ctx context.Context, limit, offset int) ([]questservice.UserView, error)
	SeedRoutesFunc        func(ctx context.Context, routes []questservice.RouteSeed) (*questservice.SeedResult, error)
}

func (f *FakeService) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the service calls made, in order.
func (f *FakeService) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeService) RegisterOrAssign(ctx context.Context, req questservice.RegisterRequest) (*questservice.RegisterResult, error) {
	f.record("RegisterOrAssign")
	if f.RegisterOrAssignFunc != nil {
		return f.RegisterOrAssignFunc(ctx, req)
	}
	return &questservice.RegisterResult{}, nil
}

func (f *FakeService) GetMyTeam(ctx context.Context, tgID int64) (*questservice.TeamView, error) {
	f.record("GetMyTeam")
	if f.GetMyTeamFunc != nil {
		return f.GetMyTeamFunc(ctx, tgID)
	}
	return &questservice.TeamView{}, nil
}

func (f *FakeService) RenameTeam(ctx context.Context, tgID int64, newName string) (*questservice.TeamView, error) {
	f.record("RenameTeam")
	if f.RenameTeamFunc != nil {
		return f.RenameTeamFunc(ctx, tgID, newName)
	}
	return &questservice.TeamView{}, nil
}

func (f *FakeService) StartGame(ctx context.Context, tgID int64) (*questservice.StartResult, error) {
	f.record("StartGame")
	if f.StartGameFunc != nil {
		return f.StartGameFunc(ctx, tgID)
	}
	return &questservice.StartResult{OK: true}, nil
}

func (f *FakeService) CurrentCheckpoint(ctx context.Context, tgID int64) (*questservice.CheckpointResult, error) {
	f.record("CurrentCheckpoint")
	if f.CurrentCheckpointFunc != nil {
		return f.CurrentCheckpointFunc(ctx, tgID)
	}
	return &questservice.CheckpointResult{Finished: true}, nil
}

func (f *FakeService) SubmitProof(ctx context.Context, req questservice.SubmitProofRequest) (*questservice.SubmitProofResult, error) {
	f.record("SubmitProof")
	if f.SubmitProofFunc != nil {
		return f.SubmitProofFunc(ctx, req)
	}
	return &questservice.SubmitProofResult{OK: true, Outcome: questdomain.OutcomeQueued}, nil
}

func (f *FakeService) SubmitArticle(ctx context.Context, tgID int64, rawURL string) (*questservice.SubmissionView, error) {
	f.record("SubmitArticle")
	if f.SubmitArticleFunc != nil {
		return f.SubmitArticleFunc(ctx, tgID, rawURL)
	}
	return &questservice.SubmissionView{}, nil
}

func (f *FakeService) SubmitPhoto(ctx context.Context, tgID int64, fileID, caption string) (*questservice.SubmissionView, error) {
	f.record("SubmitPhoto")
	if f.SubmitPhotoFunc != nil {
		return f.SubmitPhotoFunc(ctx, tgID, fileID, caption)
	}
	return &questservice.SubmissionView{}, nil
}

func (f *FakeService) ListPendingProofs(ctx context.Context) ([]questservice.PendingProof, error) {
	f.record("ListPendingProofs")
	if f.ListPendingProofsFunc != nil {
		return f.ListPendingProofsFunc(ctx)
	}
	return nil, nil
}

func (f *FakeService) ApproveProof(ctx context.Context, proofID, judgedBy int64) (*questservice.ModerationResult, error) {
	f.record("ApproveProof")
	if f.ApproveProofFunc != nil {
		return f.ApproveProofFunc(ctx, proofID, judgedBy)
	}
	return &questservice.ModerationResult{OK: true}, nil
}

func (f *FakeService) RejectProof(ctx context.Context, proofID, judgedBy int64, comment string) (*questservice.ModerationResult, error) {
	f.record("RejectProof")
	if f.RejectProofFunc != nil {
		return f.RejectProofFunc(ctx, proofID, judgedBy, comment)
	}
	return &questservice.ModerationResult{OK: true}, nil
}

func (f *FakeService) ListSubmissions(ctx context.Context, status questdomain.SubmissionStatus, limit int) ([]questservice.SubmissionView, error) {
	f.record("ListSubmissions")
	if f.ListSubmissionsFunc != nil {
		return f.ListSubmissionsFunc(ctx, status, limit)
	}
	return nil, nil
}

func (f *FakeService) ApproveSubmission(ctx context.Context, id, reviewer int64) (*questservice.SubmissionModeration, error) {
	f.record("ApproveSubmission")
	if f.ApproveSubmissionFunc != nil {
		return f.ApproveSubmissionFunc(ctx, id, reviewer)
	}
	return &questservice.SubmissionModeration{OK: true}, nil
}

func (f *FakeService) RejectSubmission(ctx context.Context, id, reviewer int64, reason string) (*questservice.SubmissionModeration, error) {
	f.record("RejectSubmission")
	if f.RejectSubmissionFunc != nil {
		return f.RejectSubmissionFunc(ctx, id, reviewer, reason)
	}
	return &questservice.SubmissionModeration{OK: true}, nil
}

func (f *FakeService) SearchTeams(ctx context.Context, query string, limit int) ([]questservice.TeamSummary, error) {
	f.record("SearchTeams")
	if f.SearchTeamsFunc != nil {
		return f.SearchTeamsFunc(ctx, query, limit)
	}
	return nil, nil
}

func (f *FakeService) ListTeams(ctx context.Context) ([]questservice.TeamSummary, error) {
	f.record("ListTeams")
	if f.ListTeamsFunc != nil {
		return f.ListTeamsFunc(ctx)
	}
	return nil, nil
}

func (f *FakeService) GetTeam(ctx context.Context, teamID int64) (*questservice.TeamView, error) {
	f.record("GetTeam")
	if f.GetTeamFunc != nil {
		return f.GetTeamFunc(ctx, teamID)
	}
	return &questservice.TeamView{}, nil
}

func (f *FakeService) LockAllTeams(ctx context.Context) (int, error) {
	f.record("LockAllTeams")
	if f.LockAllTeamsFunc != nil {
		return f.LockAllTeamsFunc(ctx)
	}
	return 0, nil
}

func (f *FakeService) UnlockAllTeams(ctx context.Context) (int, error) {
	f.record("UnlockAllTeams")
	if f.UnlockAllTeamsFunc != nil {
		return f.UnlockAllTeamsFunc(ctx)
	}
	return 0, nil
}

func (f *FakeService) SetCaptain(ctx context.Context, teamID int64, user questservice.UserRef) (*questservice.TeamView, error) {
	f.record("SetCaptain")
	if f.SetCaptainFunc != nil {
		return f.SetCaptainFunc(ctx, teamID, user)
	}
	return &questservice.TeamView{}, nil
}

func (f *FakeService) UnsetCaptain(ctx context.Context, teamID int64) (*questservice.TeamView, error) {
	f.record("UnsetCaptain")
	if f.UnsetCaptainFunc != nil {
		return f.UnsetCaptainFunc(ctx, teamID)
	}
	return &questservice.TeamView{}, nil
}

func (f *FakeService) MoveMember(ctx context.Context, req questservice.MoveMemberRequest) (*questservice.TeamView, error) {
	f.record("MoveMember")
	if f.MoveMemberFunc != nil {
		return f.MoveMemberFunc(ctx, req)
	}
	return &questservice.TeamView{}, nil
}

func (f *FakeService) ListUsers(ctx context.Context, limit, offset int) ([]questservice.UserView, error) {
	f.record("ListUsers")
	if f.ListUsersFunc != nil {
		return f.ListUsersFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (f *FakeService) SeedRoutes(ctx context.Context, routes []questservice.RouteSeed) (*questservice.SeedResult, error) {
	f.record("SeedRoutes")
	if f.SeedRoutesFunc != nil {
		return f.SeedRoutesFunc(ctx, routes)
	}
	return &questservice.SeedResult{}, nil
}

var _ questservice.Service = (*FakeService)(nil)

// ------------------------
// Fake Whitelist
// ------------------------

type FakeWhitelist struct {
	ReloadFunc            func(ctx context.Context) error
	stats      whitelist.Stats
	reloads    int
}

func (f *FakeWhitelist) Reload(ctx context.Context) error {
	f.reloads++
	if f.ReloadFunc != nil {
		return f.ReloadFunc(ctx)
	}
	return nil
}

func (f *FakeWhitelist) Stats() whitelist.Stats { return f.stats }

// ------------------------
// Fake Media Store
// ------------------------

type savedUpload struct {
	teamID   int64
	orderNum int
	name     string
	data     []byte
}

type FakeMedia struct {
	SaveErr error
	saved   []savedUpload
	removed []string
}

func (f *FakeMedia) Save(ctx context.Context, teamID int64, orderNum int, originalName string, r io.Reader) (string, error) {
	if f.SaveErr != nil {
		return "", f.SaveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	f.saved = append(f.saved, savedUpload{teamID: teamID, orderNum: orderNum, name: originalName, data: buf.Bytes()})
	return "local:" + originalName, nil
}

func (f *FakeMedia) Remove(ctx context.Context, ref string) error {
	f.removed = append(f.removed, ref)
	return nil
}
