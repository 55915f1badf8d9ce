package questservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	questdb "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories"
	"github.com/Black-And-White-Club/quest-bot/app/shared/results"
	"github.com/uptrace/bun"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxUserPage        = 500
)

// SearchTeams matches team names case-insensitively.
func (s *QuestService) SearchTeams(ctx context.Context, query string, limit int) ([]TeamSummary, error) {
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}
	filter := questdb.TeamFilter{Query: strings.TrimSpace(query), Limit: limit}
	return execute(s, ctx, "SearchTeams", filter.Query, func(ctx context.Context, db bun.IDB) (results.OperationResult[[]TeamSummary, error], error) {
		return s.listTeamsLogic(ctx, db, filter)
	})
}

// ListTeams returns every team by ascending id.
func (s *QuestService) ListTeams(ctx context.Context) ([]TeamSummary, error) {
	return execute(s, ctx, "ListTeams", "", func(ctx context.Context, db bun.IDB) (results.OperationResult[[]TeamSummary, error], error) {
		return s.listTeamsLogic(ctx, db, questdb.TeamFilter{})
	})
}

func (s *QuestService) listTeamsLogic(ctx context.Context, db bun.IDB, filter questdb.TeamFilter) (results.OperationResult[[]TeamSummary, error], error) {
	rows, err := s.repo.ListTeams(ctx, db, filter)
	if err != nil {
		return infraError[[]TeamSummary](err)
	}
	out := make([]TeamSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, teamSummary(r))
	}
	return success(out)
}

// GetTeam returns one team with its roster.
func (s *QuestService) GetTeam(ctx context.Context, teamID int64) (*TeamView, error) {
	return execute(s, ctx, "GetTeam", strconv.FormatInt(teamID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*TeamView, error], error) {
		team, err := s.getTeam(ctx, db, teamID)
		if err != nil {
			return fail[*TeamView](err)
		}
		view, err := s.teamView(ctx, db, team)
		if err != nil {
			return infraError[*TeamView](err)
		}
		return success(view)
	})
}

// LockAllTeams closes every team to auto-assignment. Full teams that lack a
// captain get one.
func (s *QuestService) LockAllTeams(ctx context.Context) (int, error) {
	return execute(s, ctx, "LockAllTeams", "", func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
		n, err := s.repo.SetAllTeamsLocked(ctx, db, true)
		if err != nil {
			return infraError[int](err)
		}
		teams, err := s.repo.ListTeams(ctx, db, questdb.TeamFilter{})
		if err != nil {
			return infraError[int](err)
		}
		for _, t := range teams {
			if _, err := s.ensureCaptainIfFull(ctx, db, t.ID); err != nil {
				return fail[int](err)
			}
		}
		return success(n)
	})
}

// UnlockAllTeams reopens every team to auto-assignment.
func (s *QuestService) UnlockAllTeams(ctx context.Context) (int, error) {
	return execute(s, ctx, "UnlockAllTeams", "", func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
		n, err := s.repo.SetAllTeamsLocked(ctx, db, false)
		if err != nil {
			return infraError[int](err)
		}
		return success(n)
	})
}

// SetCaptain makes user the only captain of teamID. The user must already be
// on that team.
func (s *QuestService) SetCaptain(ctx context.Context, teamID int64, user UserRef) (*TeamView, error) {
	return execute(s, ctx, "SetCaptain", strconv.FormatInt(teamID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*TeamView, error], error) {
		team, err := s.getTeam(ctx, db, teamID)
		if err != nil {
			return fail[*TeamView](err)
		}
		_, member, err := s.resolveMember(ctx, db, user)
		if err != nil {
			return fail[*TeamView](err)
		}
		if member.TeamID != team.ID {
			return failure[*TeamView](ErrNotMember)
		}
		if err := s.promoteToCaptain(ctx, db, team.ID, member.ID); err != nil {
			return fail[*TeamView](err)
		}
		view, err := s.teamView(ctx, db, team)
		if err != nil {
			return infraError[*TeamView](err)
		}
		return success(view)
	})
}

// UnsetCaptain demotes the team's captain. The team stays captainless until
// the next membership change or lock re-evaluates it.
func (s *QuestService) UnsetCaptain(ctx context.Context, teamID int64) (*TeamView, error) {
	return execute(s, ctx, "UnsetCaptain", strconv.FormatInt(teamID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*TeamView, error], error) {
		team, err := s.getTeam(ctx, db, teamID)
		if err != nil {
			return fail[*TeamView](err)
		}
		if err := s.demoteCaptains(ctx, db, team.ID); err != nil {
			return infraError[*TeamView](err)
		}
		view, err := s.teamView(ctx, db, team)
		if err != nil {
			return infraError[*TeamView](err)
		}
		return success(view)
	})
}

// MoveMember relocates a member to another team and re-evaluates captains on
// both sides.
func (s *QuestService) MoveMember(ctx context.Context, req MoveMemberRequest) (*TeamView, error) {
	return execute(s, ctx, "MoveMember", strconv.FormatInt(req.DestTeamID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*TeamView, error], error) {
		return s.moveMemberLogic(ctx, db, req)
	})
}

func (s *QuestService) moveMemberLogic(ctx context.Context, db bun.IDB, req MoveMemberRequest) (results.OperationResult[*TeamView, error], error) {
	dest, err := s.getTeam(ctx, db, req.DestTeamID)
	if err != nil {
		return fail[*TeamView](err)
	}
	_, member, err := s.resolveMember(ctx, db, req.User)
	if err != nil {
		return fail[*TeamView](err)
	}
	sourceID := member.TeamID

	if sourceID != dest.ID {
		member.TeamID = dest.ID
		member.Role = questdomain.RolePlayer
		if err := s.repo.UpdateMember(ctx, db, member); err != nil {
			return infraError[*TeamView](fmt.Errorf("failed to move member: %w", err))
		}
	}

	if req.MakeCaptain {
		if err := s.promoteToCaptain(ctx, db, dest.ID, member.ID); err != nil {
			return fail[*TeamView](err)
		}
	}

	if sourceID != dest.ID {
		if _, err := s.ensureCaptainIfFull(ctx, db, sourceID); err != nil {
			return fail[*TeamView](err)
		}
	}
	if err := s.onMembershipChanged(ctx, db, dest); err != nil {
		return fail[*TeamView](err)
	}

	view, err := s.teamView(ctx, db, dest)
	if err != nil {
		return infraError[*TeamView](err)
	}
	return success(view)
}

// ListUsers pages through users by ascending id.
func (s *QuestService) ListUsers(ctx context.Context, limit, offset int) ([]UserView, error) {
	if limit <= 0 || limit > maxUserPage {
		limit = maxUserPage
	}
	if offset < 0 {
		offset = 0
	}
	return execute(s, ctx, "ListUsers", strconv.Itoa(offset), func(ctx context.Context, db bun.IDB) (results.OperationResult[[]UserView, error], error) {
		users, err := s.repo.ListUsers(ctx, db, limit, offset)
		if err != nil {
			return infraError[[]UserView](err)
		}
		out := make([]UserView, 0, len(users))
		for _, u := range users {
			view := UserView{
				ID:        u.ID,
				TgID:      u.TgID,
				Phone:     u.Phone,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				IsActive:  u.IsActive,
				CreatedAt: u.CreatedAt,
			}
			member, err := s.repo.GetMembershipByUser(ctx, db, u.ID)
			switch {
			case err == nil:
				teamID := member.TeamID
				view.TeamID = &teamID
			case !errors.Is(err, questdb.ErrNotFound):
				return infraError[[]UserView](fmt.Errorf("failed to get membership: %w", err))
			}
			out = append(out, view)
		}
		return success(out)
	})
}

func (s *QuestService) getTeam(ctx context.Context, db bun.IDB, teamID int64) (*questdb.Team, error) {
	team, err := s.repo.GetTeamByID(ctx, db, teamID)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// resolveMember finds a user by internal id or messaging identity together
// with their membership.
func (s *QuestService) resolveMember(ctx context.Context, db bun.IDB, ref UserRef) (*questdb.User, *questdb.TeamMember, error) {
	if ref.IsZero() {
		return nil, nil, ErrMissingUser
	}
	var (
		user *questdb.User
		err  error
	)
	if ref.UserID != 0 {
		user, err = s.repo.GetUserByID(ctx, db, ref.UserID)
	} else {
		user, err = s.repo.GetUserByTgID(ctx, db, ref.TgID)
	}
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	member, err := s.repo.GetMembershipByUser(ctx, db, user.ID)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return nil, nil, ErrNotMember
		}
		return nil, nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return user, member, nil
}
