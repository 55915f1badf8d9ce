package questservice

import (
	"context"
	"fmt"
	"strings"

	questdb "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories"
	"github.com/Black-And-White-Club/quest-bot/app/shared/results"
	"github.com/uptrace/bun"
)

// SeedRoutes upserts routes by code and their checkpoints by (route, order_num).
// A checkpoint without an order number takes its 1-based position in the list.
func (s *QuestService) SeedRoutes(ctx context.Context, routes []RouteSeed) (*SeedResult, error) {
	return execute(s, ctx, "SeedRoutes", fmt.Sprintf("%d routes", len(routes)), func(ctx context.Context, db bun.IDB) (results.OperationResult[*SeedResult, error], error) {
		out := &SeedResult{}
		for _, seed := range routes {
			code := strings.ToUpper(strings.TrimSpace(seed.Code))
			if code == "" {
				return infraError[*SeedResult](fmt.Errorf("route %q: code is required", seed.Name))
			}
			name := strings.TrimSpace(seed.Name)
			if name == "" {
				name = "Route " + code
			}

			route := &questdb.Route{Code: code, Name: name, IsActive: true, CreatedAt: s.now()}
			if err := s.repo.UpsertRoute(ctx, db, route); err != nil {
				return infraError[*SeedResult](err)
			}
			out.Routes++

			for i, cs := range seed.Checkpoints {
				cp := &questdb.Checkpoint{
					RouteID:  route.ID,
					OrderNum: cs.OrderNum,
					Title:    strings.TrimSpace(cs.Title),
					Riddle:   strings.TrimSpace(cs.Riddle),
				}
				if cp.OrderNum < 1 {
					cp.OrderNum = i + 1
				}
				if hint := strings.TrimSpace(cs.PhotoHint); hint != "" {
					cp.PhotoHint = &hint
				}
				if err := s.repo.UpsertCheckpoint(ctx, db, cp); err != nil {
					return infraError[*SeedResult](fmt.Errorf("route %s checkpoint %d: %w", code, cp.OrderNum, err))
				}
				out.Checkpoints++
			}
		}
		return success(out)
	})
}
