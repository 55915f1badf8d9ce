package questservice

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	questdb "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Quest Repo
// ------------------------

// FakeQuestRepo is an in-memory Repository. Tests seed it directly and can
// override single methods through the Func fields.
type FakeQuestRepo struct {
	mu    sync.Mutex
	trace []string
	seq   int64

	routes      map[int64]*questdb.Route
	checkpoints map[int64]*questdb.Checkpoint
	users       map[int64]*questdb.User
	teams       map[int64]*questdb.Team
	members     map[int64]*questdb.TeamMember
	proofs      map[int64]*questdb.Proof
	submissions map[int64]*questdb.Submission

	CreateProofFunc     func(ctx context.Context, db bun.IDB, proof *questdb.Proof) error
	JudgeProofFunc      func(ctx context.Context, db bun.IDB, j questdb.Judgement) (bool, error)
	ListRouteLoadsFunc  func(ctx context.Context, db bun.IDB) ([]questdb.RouteLoad, error)
	GetUserByTgIDFunc   func(ctx context.Context, db bun.IDB, tgID int64) (*questdb.User, error)
	ListPendingFunc     func(ctx context.Context, db bun.IDB) ([]questdb.PendingProofRow, error)
	ReopenProofFunc     func(ctx context.Context, db bun.IDB, proof *questdb.Proof) (bool, error)
	FindLiveArticleFunc func(ctx context.Context, db bun.IDB, canonicalURL string) (*questdb.Submission, error)
}

func NewFakeQuestRepo() *FakeQuestRepo {
	return &FakeQuestRepo{
		trace:       []string{},
		routes:      map[int64]*questdb.Route{},
		checkpoints: map[int64]*questdb.Checkpoint{},
		users:       map[int64]*questdb.User{},
		teams:       map[int64]*questdb.Team{},
		members:     map[int64]*questdb.TeamMember{},
		proofs:      map[int64]*questdb.Proof{},
		submissions: map[int64]*questdb.Submission{},
	}
}

func (f *FakeQuestRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeQuestRepo) nextID() int64 {
	f.seq++
	return f.seq
}

// --- Seeding helpers ---

func (f *FakeQuestRepo) seedRoute(code string, checkpoints int) *questdb.Route {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &questdb.Route{ID: f.nextID(), Code: code, Name: "Route " + code, IsActive: true}
	f.routes[r.ID] = r
	for i := 1; i <= checkpoints; i++ {
		cp := &questdb.Checkpoint{ID: f.nextID(), RouteID: r.ID, OrderNum: i, Title: code + " task", Riddle: "riddle"}
		f.checkpoints[cp.ID] = cp
	}
	return r
}

func (f *FakeQuestRepo) seedTeam(name string) *questdb.Team {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &questdb.Team{ID: f.nextID(), Name: name, CurrentOrderNum: 1, CanRename: true}
	f.teams[t.ID] = t
	return t
}

func (f *FakeQuestRepo) seedUser(tgID int64, name string) *questdb.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &questdb.User{ID: f.nextID(), TgID: &tgID, FirstName: name, IsActive: true}
	f.users[u.ID] = u
	return u
}

func (f *FakeQuestRepo) seedMember(teamID, userID int64, role questdomain.Role) *questdb.TeamMember {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &questdb.TeamMember{ID: f.nextID(), TeamID: teamID, UserID: userID, Role: role}
	f.members[m.ID] = m
	return m
}

func (f *FakeQuestRepo) team(id int64) questdb.Team {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.teams[id]
}

func (f *FakeQuestRepo) proof(id int64) questdb.Proof {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.proofs[id]
}

func (f *FakeQuestRepo) proofCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.proofs)
}

func (f *FakeQuestRepo) role(userID int64) questdomain.Role {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.UserID == userID {
			return m.Role
		}
	}
	return ""
}

// --- Routes & checkpoints ---

func (f *FakeQuestRepo) GetRouteByID(ctx context.Context, db bun.IDB, id int64) (*questdb.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetRouteByID")
	if r, ok := f.routes[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) GetRouteByCode(ctx context.Context, db bun.IDB, code string) (*questdb.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetRouteByCode")
	for _, r := range f.routes {
		if r.Code == code {
			c := *r
			return &c, nil
		}
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) UpsertRoute(ctx context.Context, db bun.IDB, route *questdb.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpsertRoute")
	for _, r := range f.routes {
		if r.Code == route.Code {
			r.Name = route.Name
			r.IsActive = route.IsActive
			route.ID = r.ID
			return nil
		}
	}
	route.ID = f.nextID()
	c := *route
	f.routes[route.ID] = &c
	return nil
}

func (f *FakeQuestRepo) UpsertCheckpoint(ctx context.Context, db bun.IDB, cp *questdb.Checkpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpsertCheckpoint")
	for _, c := range f.checkpoints {
		if c.RouteID == cp.RouteID && c.OrderNum == cp.OrderNum {
			c.Title, c.Riddle, c.PhotoHint = cp.Title, cp.Riddle, cp.PhotoHint
			cp.ID = c.ID
			return nil
		}
	}
	cp.ID = f.nextID()
	c := *cp
	f.checkpoints[cp.ID] = &c
	return nil
}

func (f *FakeQuestRepo) ListRouteLoads(ctx context.Context, db bun.IDB) ([]questdb.RouteLoad, error) {
	if f.ListRouteLoadsFunc != nil {
		f.record("ListRouteLoads")
		return f.ListRouteLoadsFunc(ctx, db)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListRouteLoads")
	var loads []questdb.RouteLoad
	for _, r := range f.routes {
		if !r.IsActive {
			continue
		}
		l := questdb.RouteLoad{RouteID: r.ID, Code: r.Code}
		for _, c := range f.checkpoints {
			if c.RouteID == r.ID {
				l.Checkpoints++
			}
		}
		for _, t := range f.teams {
			if t.RouteID != nil && *t.RouteID == r.ID {
				l.Teams++
			}
		}
		if l.Checkpoints > 0 {
			loads = append(loads, l)
		}
	}
	sort.Slice(loads, func(i, j int) bool { return loads[i].RouteID < loads[j].RouteID })
	return loads, nil
}

func (f *FakeQuestRepo) CountCheckpoints(ctx context.Context, db bun.IDB, routeID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CountCheckpoints")
	n := 0
	for _, c := range f.checkpoints {
		if c.RouteID == routeID {
			n++
		}
	}
	return n, nil
}

func (f *FakeQuestRepo) GetCheckpointByOrder(ctx context.Context, db bun.IDB, routeID int64, orderNum int) (*questdb.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCheckpointByOrder")
	for _, c := range f.checkpoints {
		if c.RouteID == routeID && c.OrderNum == orderNum {
			cp := *c
			return &cp, nil
		}
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) GetCheckpointByID(ctx context.Context, db bun.IDB, id int64) (*questdb.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCheckpointByID")
	if c, ok := f.checkpoints[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, questdb.ErrNotFound
}

// --- Users ---

func (f *FakeQuestRepo) GetUserByID(ctx context.Context, db bun.IDB, id int64) (*questdb.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetUserByID")
	if u, ok := f.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) GetUserByTgID(ctx context.Context, db bun.IDB, tgID int64) (*questdb.User, error) {
	if f.GetUserByTgIDFunc != nil {
		f.record("GetUserByTgID")
		return f.GetUserByTgIDFunc(ctx, db, tgID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetUserByTgID")
	for _, u := range f.users {
		if u.TgID != nil && *u.TgID == tgID {
			c := *u
			return &c, nil
		}
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) GetUserByPhone(ctx context.Context, db bun.IDB, phone string) (*questdb.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetUserByPhone")
	for _, u := range f.users {
		if u.Phone != nil && *u.Phone == phone {
			c := *u
			return &c, nil
		}
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) CreateUser(ctx context.Context, db bun.IDB, user *questdb.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateUser")
	for _, u := range f.users {
		if (u.TgID != nil && user.TgID != nil && *u.TgID == *user.TgID) ||
			(u.Phone != nil && user.Phone != nil && *u.Phone == *user.Phone) {
			return questdb.ErrDuplicate
		}
	}
	user.ID = f.nextID()
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *FakeQuestRepo) UpdateUser(ctx context.Context, db bun.IDB, user *questdb.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateUser")
	if _, ok := f.users[user.ID]; !ok {
		return questdb.ErrNotFound
	}
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *FakeQuestRepo) ListUsers(ctx context.Context, db bun.IDB, limit, offset int) ([]questdb.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListUsers")
	var out []questdb.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// --- Teams ---

func (f *FakeQuestRepo) GetTeamByID(ctx context.Context, db bun.IDB, id int64) (*questdb.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetTeamByID")
	if t, ok := f.teams[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) GetTeamByName(ctx context.Context, db bun.IDB, name string) (*questdb.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetTeamByName")
	for _, t := range f.teams {
		if t.Name == name {
			c := *t
			return &c, nil
		}
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) CreateTeam(ctx context.Context, db bun.IDB, team *questdb.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateTeam")
	for _, t := range f.teams {
		if t.Name == team.Name {
			return questdb.ErrDuplicate
		}
	}
	team.ID = f.nextID()
	c := *team
	f.teams[team.ID] = &c
	return nil
}

func (f *FakeQuestRepo) UpdateTeam(ctx context.Context, db bun.IDB, team *questdb.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateTeam")
	for _, t := range f.teams {
		if t.Name == team.Name && t.ID != team.ID {
			return questdb.ErrDuplicate
		}
	}
	if _, ok := f.teams[team.ID]; !ok {
		return questdb.ErrNotFound
	}
	c := *team
	f.teams[team.ID] = &c
	return nil
}

func (f *FakeQuestRepo) countMembersLocked(teamID int64) int {
	n := 0
	for _, m := range f.members {
		if m.TeamID == teamID {
			n++
		}
	}
	return n
}

func (f *FakeQuestRepo) FindOpenTeam(ctx context.Context, db bun.IDB, capacity int) (*questdb.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FindOpenTeam")
	var best *questdb.Team
	for _, t := range f.teams {
		if t.IsLocked || f.countMembersLocked(t.ID) >= capacity {
			continue
		}
		if best == nil || t.ID < best.ID {
			best = t
		}
	}
	if best == nil {
		return nil, questdb.ErrNotFound
	}
	c := *best
	return &c, nil
}

func (f *FakeQuestRepo) ListTeamNames(ctx context.Context, db bun.IDB) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListTeamNames")
	var names []string
	for _, t := range f.teams {
		names = append(names, t.Name)
	}
	return names, nil
}

func (f *FakeQuestRepo) ListTeams(ctx context.Context, db bun.IDB, filter questdb.TeamFilter) ([]questdb.TeamSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListTeams")
	var out []questdb.TeamSummary
	for _, t := range f.teams {
		if filter.Query != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(filter.Query)) {
			continue
		}
		row := questdb.TeamSummary{Team: *t, MemberCount: f.countMembersLocked(t.ID)}
		if t.RouteID != nil {
			if r, ok := f.routes[*t.RouteID]; ok {
				code := r.Code
				row.RouteCode = &code
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *FakeQuestRepo) SetAllTeamsLocked(ctx context.Context, db bun.IDB, locked bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetAllTeamsLocked")
	n := 0
	for _, t := range f.teams {
		if t.IsLocked != locked {
			t.IsLocked = locked
			n++
		}
	}
	return n, nil
}

// --- Memberships ---

func (f *FakeQuestRepo) GetMembershipByUser(ctx context.Context, db bun.IDB, userID int64) (*questdb.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetMembershipByUser")
	for _, m := range f.members {
		if m.UserID == userID {
			c := *m
			return &c, nil
		}
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) ListMembers(ctx context.Context, db bun.IDB, teamID int64) ([]questdb.MemberRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListMembers")
	var rows []questdb.MemberRow
	for _, m := range f.members {
		if m.TeamID != teamID {
			continue
		}
		row := questdb.MemberRow{MemberID: m.ID, TeamID: m.TeamID, UserID: m.UserID, Role: m.Role, JoinedAt: m.CreatedAt}
		if u, ok := f.users[m.UserID]; ok {
			row.TgID, row.FirstName, row.LastName, row.Phone = u.TgID, u.FirstName, u.LastName, u.Phone
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].MemberID < rows[j].MemberID })
	return rows, nil
}

func (f *FakeQuestRepo) CountMembers(ctx context.Context, db bun.IDB, teamID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CountMembers")
	return f.countMembersLocked(teamID), nil
}

func (f *FakeQuestRepo) AddMember(ctx context.Context, db bun.IDB, member *questdb.TeamMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddMember")
	for _, m := range f.members {
		if m.UserID == member.UserID {
			return questdb.ErrDuplicate
		}
	}
	member.ID = f.nextID()
	c := *member
	f.members[member.ID] = &c
	return nil
}

func (f *FakeQuestRepo) UpdateMember(ctx context.Context, db bun.IDB, member *questdb.TeamMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateMember")
	m, ok := f.members[member.ID]
	if !ok {
		return questdb.ErrNotFound
	}
	m.TeamID = member.TeamID
	m.Role = member.Role
	return nil
}

// --- Proofs ---

func (f *FakeQuestRepo) GetProofByID(ctx context.Context, db bun.IDB, id int64) (*questdb.Proof, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetProofByID")
	if p, ok := f.proofs[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) GetProofByTeamCheckpoint(ctx context.Context, db bun.IDB, teamID, checkpointID int64) (*questdb.Proof, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetProofByTeamCheckpoint")
	for _, p := range f.proofs {
		if p.TeamID == teamID && p.CheckpointID == checkpointID {
			c := *p
			return &c, nil
		}
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) CreateProof(ctx context.Context, db bun.IDB, proof *questdb.Proof) error {
	if f.CreateProofFunc != nil {
		f.record("CreateProof")
		return f.CreateProofFunc(ctx, db, proof)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateProof")
	return f.insertProofLocked(proof)
}

func (f *FakeQuestRepo) insertProofLocked(proof *questdb.Proof) error {
	for _, p := range f.proofs {
		if p.TeamID == proof.TeamID && p.CheckpointID == proof.CheckpointID {
			return questdb.ErrDuplicate
		}
	}
	proof.ID = f.nextID()
	c := *proof
	f.proofs[proof.ID] = &c
	return nil
}

func (f *FakeQuestRepo) ReopenProof(ctx context.Context, db bun.IDB, proof *questdb.Proof) (bool, error) {
	if f.ReopenProofFunc != nil {
		f.record("ReopenProof")
		return f.ReopenProofFunc(ctx, db, proof)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ReopenProof")
	p, ok := f.proofs[proof.ID]
	if !ok || p.Status != questdomain.ProofRejected {
		return false, nil
	}
	c := *proof
	f.proofs[proof.ID] = &c
	return true, nil
}

func (f *FakeQuestRepo) JudgeProof(ctx context.Context, db bun.IDB, j questdb.Judgement) (bool, error) {
	if f.JudgeProofFunc != nil {
		f.record("JudgeProof")
		return f.JudgeProofFunc(ctx, db, j)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("JudgeProof")
	p, ok := f.proofs[j.ID]
	if !ok || p.Status != questdomain.ProofPending {
		return false, nil
	}
	p.Status = questdomain.ProofRejected
	if j.Approve {
		p.Status = questdomain.ProofApproved
	}
	by, at := j.JudgedBy, j.At
	p.JudgedBy, p.JudgedAt, p.Comment, p.UpdatedAt = &by, &at, j.Comment, &at
	return true, nil
}

func (f *FakeQuestRepo) CountApprovedProofs(ctx context.Context, db bun.IDB, teamID, routeID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CountApprovedProofs")
	n := 0
	for _, p := range f.proofs {
		if p.TeamID == teamID && p.RouteID == routeID && p.Status == questdomain.ProofApproved {
			n++
		}
	}
	return n, nil
}

func (f *FakeQuestRepo) ListPendingProofs(ctx context.Context, db bun.IDB) ([]questdb.PendingProofRow, error) {
	if f.ListPendingFunc != nil {
		f.record("ListPendingProofs")
		return f.ListPendingFunc(ctx, db)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListPendingProofs")
	var rows []questdb.PendingProofRow
	for _, p := range f.proofs {
		if p.Status != questdomain.ProofPending {
			continue
		}
		row := questdb.PendingProofRow{
			ID:                p.ID,
			TeamID:            p.TeamID,
			CheckpointID:      p.CheckpointID,
			PhotoFileID:       p.PhotoFileID,
			SubmittedByUserID: p.SubmittedByUserID,
			CreatedAt:         p.CreatedAt,
			UpdatedAt:         p.UpdatedAt,
		}
		if t, ok := f.teams[p.TeamID]; ok {
			row.TeamName = t.Name
		}
		if c, ok := f.checkpoints[p.CheckpointID]; ok {
			row.OrderNum, row.CheckpointTitle = c.OrderNum, c.Title
		}
		if r, ok := f.routes[p.RouteID]; ok {
			row.RouteCode = r.Code
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

// --- Submissions ---

func (f *FakeQuestRepo) CreateSubmission(ctx context.Context, db bun.IDB, sub *questdb.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateSubmission")
	sub.ID = f.nextID()
	c := *sub
	f.submissions[sub.ID] = &c
	return nil
}

func (f *FakeQuestRepo) GetSubmissionByID(ctx context.Context, db bun.IDB, id int64) (*questdb.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSubmissionByID")
	if s, ok := f.submissions[id]; ok {
		c := f.withRelations(*s)
		return &c, nil
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) FindLiveArticle(ctx context.Context, db bun.IDB, canonicalURL string) (*questdb.Submission, error) {
	if f.FindLiveArticleFunc != nil {
		f.record("FindLiveArticle")
		return f.FindLiveArticleFunc(ctx, db, canonicalURL)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FindLiveArticle")
	for _, s := range f.submissions {
		if s.Kind == questdomain.KindArticle && s.CanonicalURL != nil && *s.CanonicalURL == canonicalURL &&
			s.Status != questdomain.SubmissionRejected {
			c := *s
			return &c, nil
		}
	}
	return nil, questdb.ErrNotFound
}

func (f *FakeQuestRepo) JudgeSubmission(ctx context.Context, db bun.IDB, j questdb.Judgement) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("JudgeSubmission")
	s, ok := f.submissions[j.ID]
	if !ok || s.Status != questdomain.SubmissionPending {
		return false, nil
	}
	s.Status = questdomain.SubmissionRejected
	if j.Approve {
		s.Status = questdomain.SubmissionApproved
	}
	at, by := j.At, j.JudgedBy
	s.RejectReason, s.ReviewedAt, s.ReviewedByTg = j.Comment, &at, &by
	return true, nil
}

func (f *FakeQuestRepo) ListSubmissions(ctx context.Context, db bun.IDB, status questdomain.SubmissionStatus, limit int) ([]questdb.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListSubmissions")
	var out []questdb.Submission
	for _, s := range f.submissions {
		if s.Status == status {
			out = append(out, f.withRelations(*s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// withRelations fills the submitter and team the way the bun relations do.
// Callers hold f.mu.
func (f *FakeQuestRepo) withRelations(s questdb.Submission) questdb.Submission {
	if u, ok := f.users[s.UserID]; ok {
		c := *u
		s.User = &c
	}
	if s.TeamID != nil {
		if t, ok := f.teams[*s.TeamID]; ok {
			c := *t
			s.Team = &c
		}
	}
	return s
}

// --- Accessors for assertions ---

func (f *FakeQuestRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ questdb.Repository = (*FakeQuestRepo)(nil)

// ------------------------
// Fake Whitelist
// ------------------------

type FakeWhitelist map[string]questdomain.WhitelistEntry

func (w FakeWhitelist) Lookup(_ context.Context, phone string) (questdomain.WhitelistEntry, bool) {
	e, ok := w[phone]
	return e, ok
}

var _ Whitelist = FakeWhitelist(nil)

// fixedClock returns a now func that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}
