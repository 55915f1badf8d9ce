package leaderboarddb

import (
	"context"
	"fmt"
	"time"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/uptrace/bun"
)

// TeamTally counts a team's approved work by kind.
type TeamTally struct {
	TeamID    int64   `bun:"team_id"`
	TeamName  string  `bun:"team_name"`
	RouteCode *string `bun:"route_code"`
	Articles  int     `bun:"articles"`
	Photos    int     `bun:"photos"`
	Proofs    int     `bun:"proofs"`
}

// TeamProgress is a team's position on its route.
type TeamProgress struct {
	TeamID     int64      `bun:"team_id"`
	TeamName   string     `bun:"team_name"`
	RouteCode  *string    `bun:"route_code"`
	TasksDone  int        `bun:"tasks_done"`
	TotalTasks int        `bun:"total_tasks"`
	StartedAt  *time.Time `bun:"started_at"`
	FinishedAt *time.Time `bun:"finished_at"`
}

// Repository is the leaderboard read model.
type Repository interface {
	// ListTallies returns one row per team, by ascending team id. A non-empty
	// routeCode keeps only teams bound to that route.
	ListTallies(ctx context.Context, routeCode string) ([]TeamTally, error)
	// ListProgress returns approved checkpoints and route length per team,
	// filtered like ListTallies.
	ListProgress(ctx context.Context, routeCode string) ([]TeamProgress, error)
}

// Impl reads tallies from the quest tables.
type Impl struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) ListTallies(ctx context.Context, routeCode string) ([]TeamTally, error) {
	var rows []TeamTally
	q := r.db.NewSelect().
		TableExpr("teams AS t").
		ColumnExpr("t.id AS team_id").
		ColumnExpr("t.name AS team_name").
		ColumnExpr("r.code AS route_code").
		ColumnExpr("(SELECT count(*) FROM submissions AS s WHERE s.team_id = t.id AND s.kind = ? AND s.status = ?) AS articles",
			questdomain.KindArticle, questdomain.SubmissionApproved).
		ColumnExpr("(SELECT count(*) FROM submissions AS s WHERE s.team_id = t.id AND s.kind = ? AND s.status = ?) AS photos",
			questdomain.KindPhoto, questdomain.SubmissionApproved).
		ColumnExpr("(SELECT count(*) FROM proofs AS p WHERE p.team_id = t.id AND p.status = ?) AS proofs",
			questdomain.ProofApproved).
		Join("LEFT JOIN routes AS r ON r.id = t.route_id").
		OrderExpr("t.id ASC")
	if routeCode != "" {
		q = q.Where("r.code = ?", routeCode)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to list leaderboard tallies: %w", err)
	}
	return rows, nil
}

func (r *Impl) ListProgress(ctx context.Context, routeCode string) ([]TeamProgress, error) {
	var rows []TeamProgress
	q := r.db.NewSelect().
		TableExpr("teams AS t").
		ColumnExpr("t.id AS team_id").
		ColumnExpr("t.name AS team_name").
		ColumnExpr("r.code AS route_code").
		ColumnExpr("t.started_at").
		ColumnExpr("t.finished_at").
		ColumnExpr("(SELECT count(*) FROM proofs AS p WHERE p.team_id = t.id AND p.status = ?) AS tasks_done",
			questdomain.ProofApproved).
		ColumnExpr("(SELECT count(*) FROM checkpoints AS c WHERE c.route_id = t.route_id) AS total_tasks").
		Join("LEFT JOIN routes AS r ON r.id = t.route_id").
		OrderExpr("t.id ASC")
	if routeCode != "" {
		q = q.Where("r.code = ?", routeCode)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to list team progress: %w", err)
	}
	return rows, nil
}
