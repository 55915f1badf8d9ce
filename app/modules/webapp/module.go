package webapp

import (
	"context"
	"log/slog"

	leaderboardservice "github.com/Black-And-White-Club/quest-bot/app/modules/leaderboard/application"
	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	webapphandlers "github.com/Black-And-White-Club/quest-bot/app/modules/webapp/infrastructure/handlers"
	"github.com/Black-And-White-Club/quest-bot/app/shared/httpmw"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability"
	"github.com/Black-And-White-Club/quest-bot/config"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// Module serves the Telegram Mini App API under /api/webapp.
type Module struct {
	handlers *webapphandlers.WebAppHandlers
	logger   *slog.Logger
}

// NewModule mounts the Mini App endpoints when httpRouter is non-nil. Player
// endpoints are authenticated by the launch data Telegram signs with the bot
// token, not by the app secret.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	quest questservice.Service,
	standings leaderboardservice.Service,
	httpRouter chi.Router,
) *Module {
	logger := obs.Logger
	logger.InfoContext(ctx, "Initializing webapp module")
	if cfg.Telegram.Token == "" {
		logger.WarnContext(ctx, "Bot token is empty; Mini App player endpoints will answer 503")
	}

	handlers := webapphandlers.NewWebAppHandlers(quest, standings, webapphandlers.Coordinator{
		Telegram: cfg.WebApp.CoordinatorContact,
		Phone:    cfg.WebApp.CoordinatorPhone,
	}, logger)

	if httpRouter != nil {
		limiter := httpmw.NewIPRateLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst)
		httpRouter.Route("/api/webapp", func(r chi.Router) {
			r.Use(httpmw.CORSMiddleware(cfg.HTTP.AllowedOrigins))
			r.Use(httpmw.RateLimitMiddleware(limiter))
			handlers.RegisterRoutes(r, httpmw.InitDataMiddleware(cfg.Telegram.Token, cfg.WebApp.InitDataMaxAge))
		})
	}

	return &Module{handlers: handlers, logger: logger}
}
