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

// RegisterOrAssign resolves the participant and makes sure they are on a team.
func (s *QuestService) RegisterOrAssign(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	return execute(s, ctx, "RegisterOrAssign", strconv.FormatInt(req.TgID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*RegisterResult, error], error) {
		return s.registerLogic(ctx, db, req)
	})
}

func (s *QuestService) registerLogic(ctx context.Context, db bun.IDB, req RegisterRequest) (results.OperationResult[*RegisterResult, error], error) {
	phone := questdomain.NormalizePhone(req.Phone)

	var (
		entry  questdomain.WhitelistEntry
		listed bool
	)
	if s.whitelist != nil && phone != "" {
		entry, listed = s.whitelist.Lookup(ctx, phone)
	}

	if s.settings.WhitelistStrict && !listed {
		joined, err := s.alreadyJoined(ctx, db, req.TgID)
		if err != nil {
			return infraError[*RegisterResult](err)
		}
		if !joined {
			return failure[*RegisterResult](ErrNotWhitelisted)
		}
	}

	user, created, err := s.resolveUser(ctx, db, req, phone, entry)
	if err != nil {
		return fail[*RegisterResult](err)
	}

	var (
		team   *questdb.Team
		joined bool
	)
	member, err := s.repo.GetMembershipByUser(ctx, db, user.ID)
	switch {
	case err == nil:
		team, err = s.repo.GetTeamByID(ctx, db, member.TeamID)
		if err != nil {
			return infraError[*RegisterResult](fmt.Errorf("failed to get team: %w", err))
		}
	case errors.Is(err, questdb.ErrNotFound):
		if entry.TeamNumber > 0 {
			team, err = s.teamForNumber(ctx, db, entry.TeamNumber)
		} else {
			team, err = s.assignNextOpenTeam(ctx, db)
		}
		if err != nil {
			return infraError[*RegisterResult](err)
		}
		err = s.repo.AddMember(ctx, db, &questdb.TeamMember{
			TeamID:    team.ID,
			UserID:    user.ID,
			Role:      questdomain.RolePlayer,
			CreatedAt: s.now(),
		})
		if errors.Is(err, questdb.ErrDuplicate) {
			return failure[*RegisterResult](ErrMembershipTaken)
		}
		if err != nil {
			return infraError[*RegisterResult](fmt.Errorf("failed to add member: %w", err))
		}
		joined = true
	default:
		return infraError[*RegisterResult](fmt.Errorf("failed to get membership: %w", err))
	}

	if err := s.onMembershipChanged(ctx, db, team); err != nil {
		return fail[*RegisterResult](err)
	}

	view, err := s.teamView(ctx, db, team)
	if err != nil {
		return infraError[*RegisterResult](err)
	}
	return success(&RegisterResult{
		UserID:  user.ID,
		Created: created,
		Joined:  joined,
		Team:    view,
	})
}

// resolveUser finds the user by messaging identity, then by phone (adopting
// the identity), and otherwise creates one.
func (s *QuestService) resolveUser(ctx context.Context, db bun.IDB, req RegisterRequest, phone string, entry questdomain.WhitelistEntry) (*questdb.User, bool, error) {
	user, err := s.repo.GetUserByTgID(ctx, db, req.TgID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, questdb.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to get user by tg_id: %w", err)
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	if phone != "" {
		user, err = s.repo.GetUserByPhone(ctx, db, phone)
		switch {
		case err == nil:
			tgID := req.TgID
			user.TgID = &tgID
			if firstName != "" {
				user.FirstName = firstName
			}
			if lastName != "" {
				user.LastName = &lastName
			}
			if err := s.repo.UpdateUser(ctx, db, user); err != nil {
				return nil, false, fmt.Errorf("failed to adopt tg_id: %w", err)
			}
			return user, false, nil
		case !errors.Is(err, questdb.ErrNotFound):
			return nil, false, fmt.Errorf("failed to get user by phone: %w", err)
		}
	}

	if firstName == "" {
		firstName = entry.FirstName
	}
	if lastName == "" {
		lastName = entry.LastName
	}

	tgID := req.TgID
	user = &questdb.User{
		TgID:      &tgID,
		FirstName: firstName,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if phone != "" {
		user.Phone = &phone
	}
	if lastName != "" {
		user.LastName = &lastName
	}
	if err := s.repo.CreateUser(ctx, db, user); err != nil {
		if errors.Is(err, questdb.ErrDuplicate) {
			return nil, false, ErrIdentityTaken
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return user, true, nil
}

// alreadyJoined reports whether tgID belongs to a user who is on a team.
// Strict whitelist mode still lets such users back in.
func (s *QuestService) alreadyJoined(ctx context.Context, db bun.IDB, tgID int64) (bool, error) {
	user, err := s.repo.GetUserByTgID(ctx, db, tgID)
	if errors.Is(err, questdb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get user by tg_id: %w", err)
	}
	_, err = s.repo.GetMembershipByUser(ctx, db, user.ID)
	if errors.Is(err, questdb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get membership: %w", err)
	}
	return true, nil
}

// GetMyTeam returns the caller's team and roster.
func (s *QuestService) GetMyTeam(ctx context.Context, tgID int64) (*TeamView, error) {
	return execute(s, ctx, "GetMyTeam", strconv.FormatInt(tgID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*TeamView, error], error) {
		mc, err := s.loadMember(ctx, db, tgID)
		if err != nil {
			return fail[*TeamView](err)
		}
		view, err := s.teamView(ctx, db, mc.team)
		if err != nil {
			return infraError[*TeamView](err)
		}
		return success(view)
	})
}
