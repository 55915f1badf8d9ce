package questdb

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

func (r *Impl) GetTeamByID(ctx context.Context, db bun.IDB, id int64) (*Team, error) {
	db = r.resolveDB(db)
	team := new(Team)
	if err := scanOne(ctx, db.NewSelect().Model(team).Where("t.id = ?", id), "team"); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *Impl) GetTeamByName(ctx context.Context, db bun.IDB, name string) (*Team, error) {
	db = r.resolveDB(db)
	team := new(Team)
	if err := scanOne(ctx, db.NewSelect().Model(team).Where("t.name = ?", name), "team by name"); err != nil {
		return nil, err
	}
	return team, nil
}

// CreateTeam inserts a team. It returns ErrDuplicate when the name is taken.
func (r *Impl) CreateTeam(ctx context.Context, db bun.IDB, team *Team) error {
	db = r.resolveDB(db)
	if team.CreatedAt.IsZero() {
		team.CreatedAt = time.Now().UTC()
	}
	res, err := db.NewInsert().
		Model(team).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	return insertResult(res, err, "team")
}

// UpdateTeam writes every mutable column of a team.
func (r *Impl) UpdateTeam(ctx context.Context, db bun.IDB, team *Team) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(team).
		Column("name", "description", "is_locked", "route_id", "current_order_num", "can_rename", "started_at", "finished_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update team: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *Impl) FindOpenTeam(ctx context.Context, db bun.IDB, capacity int) (*Team, error) {
	db = r.resolveDB(db)
	team := new(Team)
	q := db.NewSelect().
		Model(team).
		Where("NOT t.is_locked").
		Where("(SELECT COUNT(*) FROM team_members AS tm WHERE tm.team_id = t.id) < ?", capacity).
		OrderExpr("t.id ASC")
	if err := scanOne(ctx, q, "open team"); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *Impl) ListTeamNames(ctx context.Context, db bun.IDB) ([]string, error) {
	db = r.resolveDB(db)
	var names []string
	if err := db.NewSelect().Model((*Team)(nil)).Column("name").Scan(ctx, &names); err != nil {
		return nil, fmt.Errorf("failed to list team names: %w", err)
	}
	return names, nil
}

// ListTeams returns teams by ascending id, filtered by a case-insensitive
// name substring when filter.Query is set.
func (r *Impl) ListTeams(ctx context.Context, db bun.IDB, filter TeamFilter) ([]TeamSummary, error) {
	db = r.resolveDB(db)
	var teams []TeamSummary
	q := db.NewSelect().
		Model(&teams).
		ColumnExpr("t.*").
		ColumnExpr("r.code AS route_code").
		ColumnExpr("(SELECT COUNT(*) FROM team_members AS tm WHERE tm.team_id = t.id) AS member_count").
		Join("LEFT JOIN routes AS r ON r.id = t.route_id").
		OrderExpr("t.id ASC")
	if filter.Query != "" {
		q = q.Where("t.name ILIKE ?", "%"+filter.Query+"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// SetAllTeamsLocked flips the lock flag on every team and returns how many changed.
func (r *Impl) SetAllTeamsLocked(ctx context.Context, db bun.IDB, locked bool) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("is_locked = ?", locked).
		Where("is_locked <> ?", locked).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to set team locks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
