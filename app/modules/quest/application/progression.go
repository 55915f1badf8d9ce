package questservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	questdb "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories"
	"github.com/Black-And-White-Club/quest-bot/app/shared/results"
	"github.com/uptrace/bun"
)

// RenameTeam spends the team's one-shot rename right.
func (s *QuestService) RenameTeam(ctx context.Context, tgID int64, newName string) (*TeamView, error) {
	return execute(s, ctx, "RenameTeam", strconv.FormatInt(tgID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*TeamView, error], error) {
		return s.renameLogic(ctx, db, tgID, newName)
	})
}

func (s *QuestService) renameLogic(ctx context.Context, db bun.IDB, tgID int64, newName string) (results.OperationResult[*TeamView, error], error) {
	mc, err := s.loadCaptain(ctx, db, tgID)
	if err != nil {
		return fail[*TeamView](err)
	}
	team := mc.team

	full, err := s.isFull(ctx, db, team.ID)
	if err != nil {
		return infraError[*TeamView](err)
	}
	switch {
	case !full:
		return failure[*TeamView](ErrTeamNotFull)
	case team.HasStarted():
		return failure[*TeamView](ErrAlreadyStarted)
	case !team.CanRename:
		return failure[*TeamView](ErrRenameUsed)
	}

	name, ok := questdomain.CleanTeamName(newName)
	if !ok {
		return failure[*TeamView](ErrNameTooShort)
	}
	if name != team.Name {
		existing, err := s.repo.GetTeamByName(ctx, db, name)
		if err == nil && existing.ID != team.ID {
			return failure[*TeamView](ErrNameTaken)
		}
		if err != nil && !errors.Is(err, questdb.ErrNotFound) {
			return infraError[*TeamView](fmt.Errorf("failed to check team name: %w", err))
		}
	}

	team.Name = name
	team.CanRename = false
	if err := s.repo.UpdateTeam(ctx, db, team); err != nil {
		if errors.Is(err, questdb.ErrDuplicate) {
			return failure[*TeamView](ErrNameTaken)
		}
		return infraError[*TeamView](fmt.Errorf("failed to rename team: %w", err))
	}

	view, err := s.teamView(ctx, db, team)
	if err != nil {
		return infraError[*TeamView](err)
	}
	return success(view)
}

// StartGame moves the caller's team from NOT_STARTED to IN_PROGRESS(1).
// Calling it on a started team succeeds without writing anything.
func (s *QuestService) StartGame(ctx context.Context, tgID int64) (*StartResult, error) {
	return execute(s, ctx, "StartGame", strconv.FormatInt(tgID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*StartResult, error], error) {
		return s.startLogic(ctx, db, tgID)
	})
}

func (s *QuestService) startLogic(ctx context.Context, db bun.IDB, tgID int64) (results.OperationResult[*StartResult, error], error) {
	mc, err := s.loadCaptain(ctx, db, tgID)
	if err != nil {
		return fail[*StartResult](err)
	}
	team := mc.team

	if team.HasStarted() {
		code, err := s.routeCode(ctx, db, team)
		if err != nil {
			return infraError[*StartResult](err)
		}
		return success(&StartResult{OK: true, AlreadyStarted: true, StartedAt: *team.StartedAt, RouteCode: code})
	}

	full, err := s.isFull(ctx, db, team.ID)
	if err != nil {
		return infraError[*StartResult](err)
	}
	if !full {
		return failure[*StartResult](ErrTeamNotFull)
	}

	if err := s.autoAssignRoute(ctx, db, team); err != nil {
		return fail[*StartResult](err)
	}

	if team.CanRename && questdomain.IsDefaultTeamName(team.Name) {
		return failure[*StartResult](ErrDefaultName)
	}

	now := s.now()
	team.StartedAt = &now
	if team.CurrentOrderNum < 1 {
		team.CurrentOrderNum = 1
	}
	if err := s.repo.UpdateTeam(ctx, db, team); err != nil {
		return infraError[*StartResult](fmt.Errorf("failed to start team: %w", err))
	}

	code, err := s.routeCode(ctx, db, team)
	if err != nil {
		return infraError[*StartResult](err)
	}
	return success(&StartResult{OK: true, StartedAt: now, RouteCode: code})
}

// CurrentCheckpoint returns the task the caller's team is working on.
func (s *QuestService) CurrentCheckpoint(ctx context.Context, tgID int64) (*CheckpointResult, error) {
	return execute(s, ctx, "CurrentCheckpoint", strconv.FormatInt(tgID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*CheckpointResult, error], error) {
		mc, err := s.loadMember(ctx, db, tgID)
		if err != nil {
			return fail[*CheckpointResult](err)
		}
		if mc.team.HasFinished() {
			return success(&CheckpointResult{Finished: true})
		}
		if !mc.team.HasStarted() || mc.team.RouteID == nil {
			return failure[*CheckpointResult](ErrNotStarted)
		}

		card, err := s.currentTask(ctx, db, mc.team)
		if err != nil {
			return infraError[*CheckpointResult](err)
		}
		if card == nil {
			return success(&CheckpointResult{Finished: true})
		}
		return success(&CheckpointResult{Task: card})
	})
}

// currentTask looks up the checkpoint at the team's pointer. A nil card means
// the route is exhausted.
func (s *QuestService) currentTask(ctx context.Context, db bun.IDB, team *questdb.Team) (*questdomain.TaskCard, error) {
	if team.RouteID == nil {
		return nil, nil
	}
	cp, err := s.repo.GetCheckpointByOrder(ctx, db, *team.RouteID, team.CurrentOrderNum)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	total, err := s.repo.CountCheckpoints(ctx, db, *team.RouteID)
	if err != nil {
		return nil, fmt.Errorf("failed to count checkpoints: %w", err)
	}
	return taskCard(cp, total), nil
}

// advance moves the team past the checkpoint at orderNum. It is the only
// mutator of current_order_num. Approving the last checkpoint sets
// finished_at once; the pointer then sits one past the route.
func (s *QuestService) advance(ctx context.Context, db bun.IDB, team *questdb.Team, orderNum, total int) error {
	if orderNum != team.CurrentOrderNum {
		// The approved proof is not for the current task; the pointer stays.
		return nil
	}
	if team.CurrentOrderNum <= total {
		team.CurrentOrderNum++
	}
	if orderNum >= total && team.FinishedAt == nil {
		now := s.now()
		team.FinishedAt = &now
	}
	if err := s.repo.UpdateTeam(ctx, db, team); err != nil {
		return fmt.Errorf("failed to advance team: %w", err)
	}
	return nil
}

func (s *QuestService) routeCode(ctx context.Context, db bun.IDB, team *questdb.Team) (string, error) {
	if team.RouteID == nil {
		return "", nil
	}
	route, err := s.repo.GetRouteByID(ctx, db, *team.RouteID)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get route: %w", err)
	}
	return route.Code, nil
}

func taskCard(cp *questdb.Checkpoint, total int) *questdomain.TaskCard {
	card := &questdomain.TaskCard{
		CheckpointID: cp.ID,
		OrderNum:     cp.OrderNum,
		Total:        total,
		Title:        cp.Title,
		Riddle:       cp.Riddle,
	}
	if cp.PhotoHint != nil && *cp.PhotoHint != "" {
		card.HasPhotoHint = true
		card.PhotoHint = *cp.PhotoHint
	}
	return card
}
