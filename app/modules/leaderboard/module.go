package leaderboard

import (
	"context"
	"log/slog"

	leaderboardservice "github.com/Black-And-White-Club/quest-bot/app/modules/leaderboard/application"
	leaderboardhandlers "github.com/Black-And-White-Club/quest-bot/app/modules/leaderboard/infrastructure/handlers"
	leaderboarddb "github.com/Black-And-White-Club/quest-bot/app/modules/leaderboard/infrastructure/repositories"
	"github.com/Black-And-White-Club/quest-bot/app/shared/httpmw"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability"
	"github.com/Black-And-White-Club/quest-bot/config"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

// Module represents the leaderboard module.
type Module struct {
	service *leaderboardservice.LeaderboardService
	logger  *slog.Logger
}

// NewModule creates the leaderboard module and mounts /api/leaderboard when
// httpRouter is non-nil.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	db bun.IDB,
	httpRouter chi.Router,
) *Module {
	logger := obs.Logger
	logger.InfoContext(ctx, "Initializing leaderboard module")

	service := leaderboardservice.NewLeaderboardService(
		leaderboarddb.NewRepository(db),
		leaderboardservice.Weights{
			Article: cfg.Game.ArticlePoints,
			Photo:   cfg.Game.PhotoPoints,
			Proof:   cfg.Game.ProofPoints,
		},
		logger,
		obs.Metrics,
		obs.Tracer,
	)

	if httpRouter != nil {
		handlers := leaderboardhandlers.NewLeaderboardHandlers(service, logger)
		limiter := httpmw.NewIPRateLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst)
		httpRouter.Route("/api/leaderboard", func(r chi.Router) {
			r.Use(httpmw.CORSMiddleware(cfg.HTTP.AllowedOrigins))
			r.Use(httpmw.RateLimitMiddleware(limiter))
			r.Use(httpmw.AppSecretMiddleware(cfg.HTTP.AppSecret))
			handlers.RegisterRoutes(r)
		})
	}

	return &Module{service: service, logger: logger}
}

// Service returns the leaderboard service.
func (m *Module) Service() leaderboardservice.Service {
	return m.service
}
