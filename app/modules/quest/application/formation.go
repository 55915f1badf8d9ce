package questservice

import (
	"context"
	"errors"
	"fmt"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	questdb "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// assignNextOpenTeam returns the lowest-id unlocked team below capacity, or
// creates the next default-named team when every team is locked or full.
func (s *QuestService) assignNextOpenTeam(ctx context.Context, db bun.IDB) (*questdb.Team, error) {
	team, err := s.repo.FindOpenTeam(ctx, db, s.settings.TeamSize)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, questdb.ErrNotFound) {
		return nil, fmt.Errorf("failed to find open team: %w", err)
	}

	names, err := s.repo.ListTeamNames(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to list team names: %w", err)
	}
	return s.createTeam(ctx, db, questdomain.DefaultTeamName(questdomain.NextDefaultTeamNumber(names)))
}

// teamForNumber binds a whitelisted team number to a team: by default name
// first, then by id, otherwise a new team with the default name.
func (s *QuestService) teamForNumber(ctx context.Context, db bun.IDB, n int) (*questdb.Team, error) {
	name := questdomain.DefaultTeamName(n)
	team, err := s.repo.GetTeamByName(ctx, db, name)
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, questdb.ErrNotFound) {
		return nil, fmt.Errorf("failed to get team by name: %w", err)
	}

	team, err = s.repo.GetTeamByID(ctx, db, int64(n))
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, questdb.ErrNotFound) {
		return nil, fmt.Errorf("failed to get team by id: %w", err)
	}

	return s.createTeam(ctx, db, name)
}

func (s *QuestService) createTeam(ctx context.Context, db bun.IDB, name string) (*questdb.Team, error) {
	team := &questdb.Team{
		Name:            name,
		CurrentOrderNum: 1,
		CanRename:       true,
		CreatedAt:       s.now(),
	}
	if err := s.repo.CreateTeam(ctx, db, team); err != nil {
		return nil, fmt.Errorf("failed to create team %q: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Created team", "team_id", team.ID, "name", name)
	return team, nil
}

// pickLeastLoadedRoute chooses, among routes with checkpoints, the one with
// the fewest bound teams. Ties go to the first route in ascending id order.
func pickLeastLoadedRoute(loads []questdb.RouteLoad) (questdb.RouteLoad, bool) {
	var (
		best  questdb.RouteLoad
		found bool
	)
	for _, l := range loads {
		if l.Checkpoints < 1 {
			continue
		}
		if !found || l.Teams < best.Teams || (l.Teams == best.Teams && l.RouteID < best.RouteID) {
			best, found = l, true
		}
	}
	return best, found
}

// autoAssignRoute binds team to the least-loaded playable route. A team that
// already has a route is left alone.
func (s *QuestService) autoAssignRoute(ctx context.Context, db bun.IDB, team *questdb.Team) error {
	if team.RouteID != nil {
		return nil
	}

	loads, err := s.repo.ListRouteLoads(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to list route loads: %w", err)
	}
	chosen, ok := pickLeastLoadedRoute(loads)
	if !ok {
		return ErrNoRouteAvailable
	}

	routeID := chosen.RouteID
	team.RouteID = &routeID
	if team.CurrentOrderNum < 1 {
		team.CurrentOrderNum = 1
	}
	if err := s.repo.UpdateTeam(ctx, db, team); err != nil {
		return fmt.Errorf("failed to bind route: %w", err)
	}
	s.logger.InfoContext(ctx, "Assigned route", "team_id", team.ID, "route", chosen.Code)
	return nil
}

// ensureCaptainIfFull promotes the earliest member of a full team that has no
// captain. It reports whether a promotion happened.
func (s *QuestService) ensureCaptainIfFull(ctx context.Context, db bun.IDB, teamID int64) (bool, error) {
	members, err := s.repo.ListMembers(ctx, db, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to list members: %w", err)
	}
	if len(members) < s.settings.TeamSize {
		return false, nil
	}
	for _, m := range members {
		if m.Role.IsCaptain() {
			return false, nil
		}
	}
	if err := s.promoteToCaptain(ctx, db, teamID, members[0].MemberID); err != nil {
		return false, err
	}
	return true, nil
}

// onMembershipChanged re-evaluates the captain and route rules for a team
// whose member count just changed.
func (s *QuestService) onMembershipChanged(ctx context.Context, db bun.IDB, team *questdb.Team) error {
	if _, err := s.ensureCaptainIfFull(ctx, db, team.ID); err != nil {
		return err
	}
	count, err := s.repo.CountMembers(ctx, db, team.ID)
	if err != nil {
		return fmt.Errorf("failed to count members: %w", err)
	}
	if count < s.settings.TeamSize {
		return nil
	}
	if err := s.autoAssignRoute(ctx, db, team); err != nil {
		if errors.Is(err, ErrNoRouteAvailable) {
			// Start retries the assignment.
			s.logger.WarnContext(ctx, "No route available for full team", "team_id", team.ID)
			return nil
		}
		return err
	}
	return nil
}

// promoteToCaptain makes memberID the only captain of teamID.
func (s *QuestService) promoteToCaptain(ctx context.Context, db bun.IDB, teamID, memberID int64) error {
	members, err := s.repo.ListMembers(ctx, db, teamID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	var target *questdb.MemberRow
	for i := range members {
		m := members[i]
		if m.MemberID == memberID {
			target = &members[i]
			continue
		}
		if m.Role.IsCaptain() {
			if err := s.setRole(ctx, db, m, questdomain.RolePlayer); err != nil {
				return err
			}
		}
	}
	if target == nil {
		return ErrNotMember
	}
	if target.Role.IsCaptain() {
		return nil
	}
	return s.setRole(ctx, db, *target, questdomain.RoleCaptain)
}

// demoteCaptains turns every captain of teamID into a player.
func (s *QuestService) demoteCaptains(ctx context.Context, db bun.IDB, teamID int64) error {
	members, err := s.repo.ListMembers(ctx, db, teamID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	for _, m := range members {
		if m.Role.IsCaptain() {
			if err := s.setRole(ctx, db, m, questdomain.RolePlayer); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *QuestService) setRole(ctx context.Context, db bun.IDB, m questdb.MemberRow, role questdomain.Role) error {
	err := s.repo.UpdateMember(ctx, db, &questdb.TeamMember{
		ID:     m.MemberID,
		TeamID: m.TeamID,
		UserID: m.UserID,
		Role:   role,
	})
	if err != nil {
		return fmt.Errorf("failed to set role %s: %w", role, err)
	}
	return nil
}
