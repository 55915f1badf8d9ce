package questservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	questdb "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

var testStart = time.Date(2026, 5, 16, 10, 0, 0, 0, time.UTC)

// recordingPublisher captures published progress events.
type recordingPublisher struct {
	mu       sync.Mutex
	topics   []string
	events   []questdomain.ProgressEvent
	payloads [][]byte
	metadata []message.Metadata
	err      error
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, msg := range msgs {
		var ev questdomain.ProgressEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return err
		}
		p.topics = append(p.topics, topic)
		p.events = append(p.events, ev)
		p.payloads = append(p.payloads, msg.Payload)
		p.metadata = append(p.metadata, msg.Metadata)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestService(repo *FakeQuestRepo, wl Whitelist, pub message.Publisher, settings Settings) *QuestService {
	svc := NewQuestService(
		repo,
		wl,
		pub,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		nil,
		settings,
	)
	svc.now = fixedClock(testStart)
	return svc
}

func register(t *testing.T, svc *QuestService, tgID int64, name string) *RegisterResult {
	t.Helper()
	res, err := svc.RegisterOrAssign(context.Background(), RegisterRequest{TgID: tgID, FirstName: name})
	require.NoError(t, err)
	return res
}

func TestRegisterOrAssign(t *testing.T) {
	tests := []struct {
		name        string
		setupRepo   func(*FakeQuestRepo)
		whitelist   FakeWhitelist
		strict      bool
		req         RegisterRequest
		wantErr     error
		wantCreated bool
		wantJoined  bool
		wantTeam    string
		wantFirst   string
	}{
		{
			name:        "new user gets the first default team",
			setupRepo:   func(f *FakeQuestRepo) {},
			req:         RegisterRequest{TgID: 10, Phone: "8 (900) 111-22-33", FirstName: "Ann"},
			wantCreated: true,
			wantJoined:  true,
			wantTeam:    "Team №1",
			wantFirst:   "Ann",
		},
		{
			name: "known messaging identity keeps its team",
			setupRepo: func(f *FakeQuestRepo) {
				team := f.seedTeam("Owls")
				u := f.seedUser(10, "Ann")
				f.seedMember(team.ID, u.ID, questdomain.RolePlayer)
			},
			req:      RegisterRequest{TgID: 10, FirstName: "Ann"},
			wantTeam: "Owls",
		},
		{
			name: "phone match adopts the messaging identity",
			setupRepo: func(f *FakeQuestRepo) {
				phone := "+79001112233"
				f.mu.Lock()
				f.users[500] = &questdb.User{ID: 500, Phone: &phone, FirstName: "Old", IsActive: true}
				f.mu.Unlock()
			},
			req:        RegisterRequest{TgID: 77, Phone: "+7 900 111 22 33"},
			wantJoined: true,
			wantTeam:   "Team №1",
			wantFirst:  "Old",
		},
		{
			name:      "whitelist team number binds to the canonical team",
			setupRepo: func(f *FakeQuestRepo) { f.seedTeam("Team №1") },
			whitelist: FakeWhitelist{
				"+79001112233": {Phone: "+79001112233", FirstName: "Lena", LastName: "K", TeamNumber: 3},
			},
			req:         RegisterRequest{TgID: 11, Phone: "89001112233"},
			wantCreated: true,
			wantJoined:  true,
			wantTeam:    "Team №3",
			wantFirst:   "Lena",
		},
		{
			name:      "strict whitelist rejects unlisted phones",
			setupRepo: func(f *FakeQuestRepo) {},
			whitelist: FakeWhitelist{},
			strict:    true,
			req:       RegisterRequest{TgID: 12, Phone: "+79990000000"},
			wantErr:   ErrNotWhitelisted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeQuestRepo()
			tt.setupRepo(repo)

			var wl Whitelist
			if tt.whitelist != nil {
				wl = tt.whitelist
			}
			svc := newTestService(repo, wl, nil, Settings{TeamSize: 3, WhitelistStrict: tt.strict})

			res, err := svc.RegisterOrAssign(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, KindConflict, KindOf(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, res.Created)
			assert.Equal(t, tt.wantJoined, res.Joined)
			require.NotNil(t, res.Team)
			assert.Equal(t, tt.wantTeam, res.Team.Name)

			user, err := repo.GetUserByTgID(context.Background(), nil, tt.req.TgID)
			require.NoError(t, err)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, user.FirstName)
			}
		})
	}
}

func TestAssignNextOpenTeamSkipsUsedNames(t *testing.T) {
	repo := NewFakeQuestRepo()
	locked := repo.seedTeam("Team №1")
	locked.IsLocked = true
	repo.seedTeam("Team №3").IsLocked = true

	svc := newTestService(repo, nil, nil, Settings{TeamSize: 2})
	res := register(t, svc, 1, "A")

	assert.Equal(t, "Team №2", res.Team.Name)
}

func TestCaptainAndStartScenario(t *testing.T) {
	repo := NewFakeQuestRepo()
	route := repo.seedRoute("A", 2)
	svc := newTestService(repo, nil, nil, Settings{TeamSize: 2})
	ctx := context.Background()

	first := register(t, svc, 101, "U1")
	assert.Nil(t, first.Team.Captain)
	assert.False(t, first.Team.IsFull)

	second := register(t, svc, 102, "U2")
	require.Equal(t, first.Team.ID, second.Team.ID)
	require.NotNil(t, second.Team.Captain)
	assert.Equal(t, first.UserID, second.Team.Captain.UserID)
	assert.Equal(t, questdomain.RoleCaptain, repo.role(first.UserID))
	assert.Equal(t, questdomain.RolePlayer, repo.role(second.UserID))
	require.NotNil(t, second.Team.RouteCode)
	assert.Equal(t, "A", *second.Team.RouteCode)

	_, err := svc.StartGame(ctx, 102)
	assert.ErrorIs(t, err, ErrNotCaptain)

	_, err = svc.StartGame(ctx, 101)
	assert.ErrorIs(t, err, ErrDefaultName)
	assert.Equal(t, KindConflict, KindOf(err))

	renamed, err := svc.RenameTeam(ctx, 101, "  Trailblazers ")
	require.NoError(t, err)
	assert.Equal(t, "Trailblazers", renamed.Name)
	assert.False(t, renamed.CanRename)

	started, err := svc.StartGame(ctx, 101)
	require.NoError(t, err)
	assert.True(t, started.OK)
	assert.False(t, started.AlreadyStarted)
	assert.Equal(t, "A", started.RouteCode)

	team := repo.team(first.Team.ID)
	assert.Equal(t, 1, team.CurrentOrderNum)
	require.NotNil(t, team.RouteID)
	assert.Equal(t, route.ID, *team.RouteID)

	again, err := svc.StartGame(ctx, 101)
	require.NoError(t, err)
	assert.True(t, again.AlreadyStarted)
	assert.Equal(t, started.StartedAt, again.StartedAt)
}

func TestRenameTeamRules(t *testing.T) {
	tests := []struct {
		name      string
		teamSize  int
		setupTeam func(f *FakeQuestRepo, team *questdb.Team)
		newName   string
		wantErr   error
	}{
		{name: "team not full", teamSize: 3, newName: "Owls", wantErr: ErrTeamNotFull},
		{
			name:      "already started",
			teamSize:  1,
			setupTeam: func(f *FakeQuestRepo, team *questdb.Team) { team.StartedAt = &testStart },
			newName:   "Owls",
			wantErr:   ErrAlreadyStarted,
		},
		{
			name:      "rename already used",
			teamSize:  1,
			setupTeam: func(f *FakeQuestRepo, team *questdb.Team) { team.CanRename = false },
			newName:   "Owls",
			wantErr:   ErrRenameUsed,
		},
		{name: "too short", teamSize: 1, newName: " x ", wantErr: ErrNameTooShort},
		{
			name:      "name taken",
			teamSize:  1,
			setupTeam: func(f *FakeQuestRepo, team *questdb.Team) { f.seedTeam("Owls") },
			newName:   "Owls",
			wantErr:   ErrNameTaken,
		},
		{name: "ok", teamSize: 1, newName: "Owls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeQuestRepo()
			team := repo.seedTeam("Team №1")
			user := repo.seedUser(1, "Cap")
			repo.seedMember(team.ID, user.ID, questdomain.RoleCaptain)
			if tt.setupTeam != nil {
				tt.setupTeam(repo, team)
			}
			svc := newTestService(repo, nil, nil, Settings{TeamSize: tt.teamSize})

			view, err := svc.RenameTeam(context.Background(), 1, tt.newName)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.newName, view.Name)
		})
	}
}

func TestRenameTeamUnknownUser(t *testing.T) {
	svc := newTestService(NewFakeQuestRepo(), nil, nil, Settings{TeamSize: 1})
	_, err := svc.RenameTeam(context.Background(), 404, "Owls")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestStartGameWithoutPlayableRoute(t *testing.T) {
	repo := NewFakeQuestRepo()
	repo.seedRoute("Z", 0)
	team := repo.seedTeam("Owls")
	user := repo.seedUser(1, "Cap")
	repo.seedMember(team.ID, user.ID, questdomain.RoleCaptain)
	svc := newTestService(repo, nil, nil, Settings{TeamSize: 1})

	_, err := svc.StartGame(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoRouteAvailable)
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.Nil(t, repo.team(team.ID).StartedAt)
}

func TestPickLeastLoadedRoute(t *testing.T) {
	tests := []struct {
		name   string
		loads  []questdb.RouteLoad
		wantID int64
		wantOK bool
	}{
		{
			name: "uneven load picks the emptier route",
			loads: []questdb.RouteLoad{
				{RouteID: 1, Code: "A", Checkpoints: 5, Teams: 3},
				{RouteID: 2, Code: "B", Checkpoints: 4, Teams: 1},
			},
			wantID: 2,
			wantOK: true,
		},
		{
			name: "tie goes to the lowest id",
			loads: []questdb.RouteLoad{
				{RouteID: 1, Code: "A", Checkpoints: 5, Teams: 2},
				{RouteID: 2, Code: "B", Checkpoints: 4, Teams: 2},
			},
			wantID: 1,
			wantOK: true,
		},
		{
			name: "route without checkpoints is never picked",
			loads: []questdb.RouteLoad{
				{RouteID: 1, Code: "A", Checkpoints: 0, Teams: 0},
				{RouteID: 2, Code: "B", Checkpoints: 4, Teams: 9},
			},
			wantID: 2,
			wantOK: true,
		},
		{name: "nothing eligible", loads: []questdb.RouteLoad{{RouteID: 1, Checkpoints: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickLeastLoadedRoute(tt.loads)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, got.RouteID)
			}
		})
	}
}

func TestAutoAssignUsesCurrentLoad(t *testing.T) {
	repo := NewFakeQuestRepo()
	a := repo.seedRoute("A", 3)
	b := repo.seedRoute("B", 3)
	busy := repo.seedTeam("Busy")
	busy.RouteID = &a.ID
	busy.IsLocked = true

	svc := newTestService(repo, nil, nil, Settings{TeamSize: 1})
	res := register(t, svc, 1, "Solo")

	require.NotNil(t, res.Team.RouteCode)
	assert.Equal(t, b.Code, *res.Team.RouteCode)
}

// startedTeam builds a started team of one captain on a route with n checkpoints.
func startedTeam(t *testing.T, repo *FakeQuestRepo, n int) (*questdb.Route, *questdb.Team) {
	t.Helper()
	route := repo.seedRoute("A", n)
	team := repo.seedTeam("Trailblazers")
	team.RouteID = &route.ID
	team.CanRename = false
	team.StartedAt = &testStart
	user := repo.seedUser(101, "Cap")
	repo.seedMember(team.ID, user.ID, questdomain.RoleCaptain)
	return route, team
}

func TestProgressionScenario(t *testing.T) {
	repo := NewFakeQuestRepo()
	_, team := startedTeam(t, repo, 2)
	pub := &recordingPublisher{}
	svc := newTestService(repo, nil, pub, Settings{TeamSize: 1})
	ctx := context.Background()

	cur, err := svc.CurrentCheckpoint(ctx, 101)
	require.NoError(t, err)
	require.NotNil(t, cur.Task)
	assert.Equal(t, 1, cur.Task.OrderNum)
	assert.Equal(t, 2, cur.Task.Total)

	sub1, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "file-1"})
	require.NoError(t, err)
	assert.Equal(t, questdomain.OutcomeQueued, sub1.Outcome)

	mod1, err := svc.ApproveProof(ctx, sub1.ProofID, 0)
	require.NoError(t, err)
	assert.True(t, mod1.OK)
	assert.Equal(t, Progress{Done: 1, Total: 2}, mod1.Progress)
	assert.False(t, mod1.Finished)
	assert.Equal(t, 2, repo.team(team.ID).CurrentOrderNum)

	sub2, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "file-2"})
	require.NoError(t, err)
	assert.NotEqual(t, sub1.ProofID, sub2.ProofID)

	mod2, err := svc.ApproveProof(ctx, sub2.ProofID, 0)
	require.NoError(t, err)
	assert.True(t, mod2.Finished)
	assert.Equal(t, Progress{Done: 2, Total: 2}, mod2.Progress)

	finished := repo.team(team.ID)
	require.NotNil(t, finished.FinishedAt)
	assert.LessOrEqual(t, finished.CurrentOrderNum, 3)

	cur, err = svc.CurrentCheckpoint(ctx, 101)
	require.NoError(t, err)
	assert.True(t, cur.Finished)
	assert.Nil(t, cur.Task)

	after, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "file-3"})
	require.NoError(t, err)
	assert.Equal(t, questdomain.OutcomeRouteFinished, after.Outcome)

	require.Len(t, pub.events, 2)
	assert.Equal(t, []string{questdomain.TopicProofApproved, questdomain.TopicTeamFinished}, pub.topics)
	require.NotNil(t, pub.events[0].Next)
	assert.Equal(t, 2, pub.events[0].Next.OrderNum)
	assert.Equal(t, []int64{101}, pub.events[0].Recipients)
	assert.True(t, pub.events[1].Finished)
	assert.Nil(t, pub.events[1].Next)
	assert.NotEmpty(t, pub.metadata[0].Get("correlation_id"))
}

func TestSubmitProofTwiceWhilePending(t *testing.T) {
	repo := NewFakeQuestRepo()
	startedTeam(t, repo, 2)
	svc := newTestService(repo, nil, nil, Settings{TeamSize: 1})
	ctx := context.Background()

	first, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "file-1"})
	require.NoError(t, err)
	second, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "file-1b"})
	require.NoError(t, err)

	assert.Equal(t, first.ProofID, second.ProofID)
	assert.Equal(t, questdomain.OutcomeAlreadyQueued, second.Outcome)
	assert.Equal(t, 1, repo.proofCount())
	assert.Equal(t, "file-1", repo.proof(first.ProofID).PhotoFileID)
}

func TestSubmitProofLosesInsertRace(t *testing.T) {
	repo := NewFakeQuestRepo()
	startedTeam(t, repo, 1)
	repo.CreateProofFunc = func(ctx context.Context, db bun.IDB, proof *questdb.Proof) error {
		winner := *proof
		winner.PhotoFileID = "other"
		repo.mu.Lock()
		defer repo.mu.Unlock()
		if err := repo.insertProofLocked(&winner); err != nil {
			return err
		}
		return questdb.ErrDuplicate
	}
	svc := newTestService(repo, nil, nil, Settings{TeamSize: 1})

	res, err := svc.SubmitProof(context.Background(), SubmitProofRequest{TgID: 101, MediaRef: "mine"})
	require.NoError(t, err)
	assert.Equal(t, questdomain.OutcomeAlreadyQueued, res.Outcome)
	assert.Equal(t, "other", repo.proof(res.ProofID).PhotoFileID)
	assert.Equal(t, 1, repo.proofCount())
}

func TestRejectThenResubmitReusesRow(t *testing.T) {
	repo := NewFakeQuestRepo()
	_, team := startedTeam(t, repo, 2)
	pub := &recordingPublisher{}
	svc := newTestService(repo, nil, pub, Settings{TeamSize: 1})
	ctx := context.Background()

	sub, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "blurry"})
	require.NoError(t, err)
	before := repo.proof(sub.ProofID)

	rej, err := svc.RejectProof(ctx, sub.ProofID, 555, "  too dark ")
	require.NoError(t, err)
	assert.True(t, rej.OK)
	rejected := repo.proof(sub.ProofID)
	assert.Equal(t, questdomain.ProofRejected, rejected.Status)
	require.NotNil(t, rejected.Comment)
	assert.Equal(t, "too dark", *rejected.Comment)
	assert.Equal(t, 1, repo.team(team.ID).CurrentOrderNum)

	again, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "sharp"})
	require.NoError(t, err)
	assert.Equal(t, sub.ProofID, again.ProofID)
	assert.Equal(t, questdomain.OutcomeRequeued, again.Outcome)

	after := repo.proof(sub.ProofID)
	assert.Equal(t, questdomain.ProofPending, after.Status)
	assert.Equal(t, "sharp", after.PhotoFileID)
	assert.Nil(t, after.JudgedBy)
	assert.Nil(t, after.Comment)
	require.NotNil(t, after.UpdatedAt)
	assert.NotEqual(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, 1, repo.proofCount())

	require.Len(t, pub.topics, 1)
	assert.Equal(t, questdomain.TopicProofRejected, pub.topics[0])
	assert.Equal(t, "too dark", pub.events[0].Comment)
}

func TestReopenRaceIsAConflict(t *testing.T) {
	repo := NewFakeQuestRepo()
	startedTeam(t, repo, 1)
	svc := newTestService(repo, nil, nil, Settings{TeamSize: 1})
	ctx := context.Background()

	sub, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "a"})
	require.NoError(t, err)
	_, err = svc.RejectProof(ctx, sub.ProofID, 1, "")
	require.NoError(t, err)

	repo.ReopenProofFunc = func(ctx context.Context, db bun.IDB, proof *questdb.Proof) (bool, error) {
		return false, nil
	}
	_, err = svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "b"})
	assert.ErrorIs(t, err, ErrProofRace)
}

func TestApproveTwiceFinishesOnce(t *testing.T) {
	repo := NewFakeQuestRepo()
	_, team := startedTeam(t, repo, 1)
	pub := &recordingPublisher{}
	svc := newTestService(repo, nil, pub, Settings{TeamSize: 1})
	ctx := context.Background()

	sub, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "a"})
	require.NoError(t, err)

	first, err := svc.ApproveProof(ctx, sub.ProofID, 0)
	require.NoError(t, err)
	require.True(t, first.Finished)
	finishedAt := *repo.team(team.ID).FinishedAt

	second, err := svc.ApproveProof(ctx, sub.ProofID, 0)
	require.NoError(t, err)
	assert.False(t, second.OK)
	assert.True(t, second.AlreadyProcessed)

	rejectLate, err := svc.RejectProof(ctx, sub.ProofID, 0, "late")
	require.NoError(t, err)
	assert.True(t, rejectLate.AlreadyProcessed)

	final := repo.team(team.ID)
	assert.Equal(t, finishedAt, *final.FinishedAt)
	assert.Equal(t, 2, final.CurrentOrderNum)
	assert.Len(t, pub.events, 1)
}

func TestApproveLosesJudgeRace(t *testing.T) {
	repo := NewFakeQuestRepo()
	_, team := startedTeam(t, repo, 2)
	svc := newTestService(repo, nil, nil, Settings{TeamSize: 1})
	ctx := context.Background()

	sub, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "a"})
	require.NoError(t, err)

	repo.JudgeProofFunc = func(ctx context.Context, db bun.IDB, j questdb.Judgement) (bool, error) {
		return false, nil
	}
	res, err := svc.ApproveProof(ctx, sub.ProofID, 0)
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, 1, repo.team(team.ID).CurrentOrderNum)
	assert.NotContains(t, repo.Trace(), "UpdateTeam")
}

func TestApproveUnknownProof(t *testing.T) {
	svc := newTestService(NewFakeQuestRepo(), nil, nil, Settings{TeamSize: 1})
	_, err := svc.ApproveProof(context.Background(), 999, 0)
	assert.ErrorIs(t, err, ErrProofNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestSubmitProofGuards(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *FakeQuestRepo)
		req     SubmitProofRequest
		wantErr error
	}{
		{
			name:    "missing media",
			setup:   func(f *FakeQuestRepo) { startedTeam(t, f, 1) },
			req:     SubmitProofRequest{TgID: 101, MediaRef: "  "},
			wantErr: ErrMissingMedia,
		},
		{
			name: "player cannot submit",
			setup: func(f *FakeQuestRepo) {
				_, team := startedTeam(t, f, 1)
				u := f.seedUser(202, "Player")
				f.seedMember(team.ID, u.ID, questdomain.RolePlayer)
			},
			req:     SubmitProofRequest{TgID: 202, MediaRef: "x"},
			wantErr: ErrNotCaptain,
		},
		{
			name: "team not started",
			setup: func(f *FakeQuestRepo) {
				team := f.seedTeam("Owls")
				u := f.seedUser(101, "Cap")
				f.seedMember(team.ID, u.ID, questdomain.RoleCaptain)
			},
			req:     SubmitProofRequest{TgID: 101, MediaRef: "x"},
			wantErr: ErrNotStarted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeQuestRepo()
			tt.setup(repo)
			svc := newTestService(repo, nil, nil, Settings{TeamSize: 1})

			_, err := svc.SubmitProof(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListPendingProofs(t *testing.T) {
	repo := NewFakeQuestRepo()
	startedTeam(t, repo, 2)
	svc := newTestService(repo, nil, nil, Settings{TeamSize: 1})
	ctx := context.Background()

	sub, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "pic"})
	require.NoError(t, err)

	pending, err := svc.ListPendingProofs(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, sub.ProofID, pending[0].ID)
	assert.Equal(t, "Trailblazers", pending[0].TeamName)
	assert.Equal(t, "A", pending[0].RouteCode)
	assert.Equal(t, 1, pending[0].OrderNum)
	assert.Equal(t, "pic", pending[0].PhotoFileID)
}

func TestInfrastructureErrorsAreNotDomainFailures(t *testing.T) {
	repo := NewFakeQuestRepo()
	boom := errors.New("connection reset")
	repo.GetUserByTgIDFunc = func(ctx context.Context, db bun.IDB, tgID int64) (*questdb.User, error) {
		return nil, boom
	}
	svc := newTestService(repo, nil, nil, Settings{TeamSize: 1})

	_, err := svc.GetMyTeam(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ErrorKind(0), KindOf(err))
}

func TestPublishFailureDoesNotFailModeration(t *testing.T) {
	repo := NewFakeQuestRepo()
	startedTeam(t, repo, 2)
	pub := &recordingPublisher{err: errors.New("bus closed")}
	svc := newTestService(repo, nil, pub, Settings{TeamSize: 1})
	ctx := attr.WithCorrelationID(context.Background(), "corr-1")

	sub, err := svc.SubmitProof(ctx, SubmitProofRequest{TgID: 101, MediaRef: "a"})
	require.NoError(t, err)

	res, err := svc.ApproveProof(ctx, sub.ProofID, 0)
	require.NoError(t, err)
	assert.True(t, res.OK)
}
