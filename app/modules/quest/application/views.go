package questservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	questdb "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// teamView assembles a team with its roster and route code.
func (s *QuestService) teamView(ctx context.Context, db bun.IDB, team *questdb.Team) (*TeamView, error) {
	members, err := s.repo.ListMembers(ctx, db, team.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	view := &TeamView{
		ID:              team.ID,
		Name:            team.Name,
		IsLocked:        team.IsLocked,
		CurrentOrderNum: team.CurrentOrderNum,
		CanRename:       team.CanRename,
		StartedAt:       team.StartedAt,
		FinishedAt:      team.FinishedAt,
		Capacity:        s.settings.TeamSize,
		IsFull:          len(members) >= s.settings.TeamSize,
		Members:         make([]MemberView, 0, len(members)),
	}

	if team.RouteID != nil {
		route, err := s.repo.GetRouteByID(ctx, db, *team.RouteID)
		if err != nil && !errors.Is(err, questdb.ErrNotFound) {
			return nil, fmt.Errorf("failed to get route: %w", err)
		}
		if route != nil {
			code := route.Code
			view.RouteCode = &code
		}
	}

	for _, m := range members {
		mv := memberView(m)
		view.Members = append(view.Members, mv)
		if mv.IsCaptain && view.Captain == nil {
			captain := mv
			view.Captain = &captain
		}
	}
	return view, nil
}

func memberView(m questdb.MemberRow) MemberView {
	return MemberView{
		UserID:    m.UserID,
		TgID:      m.TgID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Phone:     m.Phone,
		Role:      m.Role,
		IsCaptain: m.Role.IsCaptain(),
	}
}

func teamSummary(t questdb.TeamSummary) TeamSummary {
	return TeamSummary{
		ID:          t.ID,
		Name:        t.Name,
		IsLocked:    t.IsLocked,
		RouteCode:   t.RouteCode,
		MemberCount: t.MemberCount,
		StartedAt:   t.StartedAt,
		FinishedAt:  t.FinishedAt,
	}
}

func pendingProof(r questdb.PendingProofRow) PendingProof {
	return PendingProof{
		ID:                r.ID,
		TeamID:            r.TeamID,
		TeamName:          r.TeamName,
		RouteCode:         r.RouteCode,
		CheckpointID:      r.CheckpointID,
		OrderNum:          r.OrderNum,
		CheckpointTitle:   r.CheckpointTitle,
		PhotoFileID:       r.PhotoFileID,
		SubmittedByUserID: r.SubmittedByUserID,
		SubmittedByTgID:   r.SubmittedByTgID,
		SubmittedByName:   r.SubmittedByName,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func submissionView(sub *questdb.Submission) *SubmissionView {
	v := &SubmissionView{
		ID:           sub.ID,
		UserID:       sub.UserID,
		TeamID:       sub.TeamID,
		Kind:         sub.Kind,
		URL:          sub.URL,
		CanonicalURL: sub.CanonicalURL,
		TgFileID:     sub.TgFileID,
		Caption:      sub.Caption,
		Status:       sub.Status,
		RejectReason: sub.RejectReason,
		CreatedAt:    sub.CreatedAt,
		ReviewedAt:   sub.ReviewedAt,
	}
	if u := sub.User; u != nil {
		v.SubmitterTgID = u.TgID
		v.SubmitterName = displayName(u.FirstName, u.LastName)
	}
	if sub.Team != nil {
		v.TeamName = sub.Team.Name
	}
	return v
}

// memberContext resolves a messaging identity to its user, membership and team.
type memberContext struct {
	user   *questdb.User
	member *questdb.TeamMember
	team   *questdb.Team
}

func (s *QuestService) loadMember(ctx context.Context, db bun.IDB, tgID int64) (*memberContext, error) {
	user, err := s.repo.GetUserByTgID(ctx, db, tgID)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	member, err := s.repo.GetMembershipByUser(ctx, db, user.ID)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	team, err := s.repo.GetTeamByID(ctx, db, member.TeamID)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &memberContext{user: user, member: member, team: team}, nil
}

// loadCaptain is loadMember plus the captain check.
func (s *QuestService) loadCaptain(ctx context.Context, db bun.IDB, tgID int64) (*memberContext, error) {
	mc, err := s.loadMember(ctx, db, tgID)
	if err != nil {
		return nil, err
	}
	if !mc.member.Role.IsCaptain() {
		return nil, ErrNotCaptain
	}
	return mc, nil
}

func (s *QuestService) isFull(ctx context.Context, db bun.IDB, teamID int64) (bool, error) {
	n, err := s.repo.CountMembers(ctx, db, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to count members: %w", err)
	}
	return n >= s.settings.TeamSize, nil
}

// displayName joins first and last name the way cards show them.
func displayName(first string, last *string) string {
	name := strings.TrimSpace(first)
	if last != nil && strings.TrimSpace(*last) != "" {
		name = strings.TrimSpace(name + " " + strings.TrimSpace(*last))
	}
	return name
}
