package questdb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// GetRouteByID retrieves a route by id.
func (r *Impl) GetRouteByID(ctx context.Context, db bun.IDB, id int64) (*Route, error) {
	db = r.resolveDB(db)
	route := new(Route)
	if err := scanOne(ctx, db.NewSelect().Model(route).Where("r.id = ?", id), "route"); err != nil {
		return nil, err
	}
	return route, nil
}

// GetRouteByCode retrieves a route by its letter code.
func (r *Impl) GetRouteByCode(ctx context.Context, db bun.IDB, code string) (*Route, error) {
	db = r.resolveDB(db)
	route := new(Route)
	if err := scanOne(ctx, db.NewSelect().Model(route).Where("r.code = ?", code), "route by code"); err != nil {
		return nil, err
	}
	return route, nil
}

// UpsertRoute creates a route or updates the one with the same code.
func (r *Impl) UpsertRoute(ctx context.Context, db bun.IDB, route *Route) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(route).
		On("CONFLICT (code) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("is_active = EXCLUDED.is_active").
		Returning("id, created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert route: %w", err)
	}
	return nil
}

// UpsertCheckpoint creates a checkpoint or updates the one at the same
// (route, order_num).
func (r *Impl) UpsertCheckpoint(ctx context.Context, db bun.IDB, cp *Checkpoint) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(cp).
		On("CONFLICT (route_id, order_num) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("riddle = EXCLUDED.riddle").
		Set("photo_hint = EXCLUDED.photo_hint").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert checkpoint: %w", err)
	}
	return nil
}

// ListRouteLoads returns active routes that have checkpoints, with bound-team counts.
func (r *Impl) ListRouteLoads(ctx context.Context, db bun.IDB) ([]RouteLoad, error) {
	db = r.resolveDB(db)
	var loads []RouteLoad
	err := db.NewSelect().
		TableExpr("routes AS r").
		ColumnExpr("r.id AS route_id, r.code").
		ColumnExpr("(SELECT COUNT(*) FROM checkpoints AS c WHERE c.route_id = r.id) AS checkpoints").
		ColumnExpr("(SELECT COUNT(*) FROM teams AS t WHERE t.route_id = r.id) AS teams").
		Where("r.is_active").
		Where("EXISTS (SELECT 1 FROM checkpoints AS c WHERE c.route_id = r.id)").
		OrderExpr("r.id ASC").
		Scan(ctx, &loads)
	if err != nil {
		return nil, fmt.Errorf("failed to list route loads: %w", err)
	}
	return loads, nil
}

// CountCheckpoints returns the length of a route.
func (r *Impl) CountCheckpoints(ctx context.Context, db bun.IDB, routeID int64) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().
		Model((*Checkpoint)(nil)).
		Where("route_id = ?", routeID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count checkpoints: %w", err)
	}
	return n, nil
}

// GetCheckpointByOrder returns the checkpoint at orderNum on a route.
func (r *Impl) GetCheckpointByOrder(ctx context.Context, db bun.IDB, routeID int64, orderNum int) (*Checkpoint, error) {
	db = r.resolveDB(db)
	cp := new(Checkpoint)
	q := db.NewSelect().
		Model(cp).
		Where("c.route_id = ?", routeID).
		Where("c.order_num = ?", orderNum)
	if err := scanOne(ctx, q, "checkpoint"); err != nil {
		return nil, err
	}
	return cp, nil
}

func (r *Impl) GetCheckpointByID(ctx context.Context, db bun.IDB, id int64) (*Checkpoint, error) {
	db = r.resolveDB(db)
	cp := new(Checkpoint)
	if err := scanOne(ctx, db.NewSelect().Model(cp).Where("c.id = ?", id), "checkpoint"); err != nil {
		return nil, err
	}
	return cp, nil
}
