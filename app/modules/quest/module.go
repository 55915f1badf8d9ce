package quest

import (
	"context"
	"log/slog"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	questhandlers "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/handlers"
	"github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/media"
	questdb "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories"
	"github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/whitelist"
	"github.com/Black-And-White-Club/quest-bot/app/shared/httpmw"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/Black-And-White-Club/quest-bot/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

// Module wires the quest game: repository, whitelist, service and HTTP API.
type Module struct {
	service   *questservice.QuestService
	repo      questdb.Repository
	whitelist *whitelist.Store
	handlers  *questhandlers.QuestHandlers
	logger    *slog.Logger
}

// NewModule creates the quest module and mounts its routes under /api when
// httpRouter is non-nil. A whitelist that fails to load leaves the store
// empty; admins can fix the file and reload.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	db *bun.DB,
	publisher message.Publisher,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "Initializing quest module")

	repo := questdb.NewRepository(db)

	wl := whitelist.NewStore(cfg.Whitelist.Path, logger)
	if err := wl.Load(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to load whitelist", attr.String("path", cfg.Whitelist.Path), attr.Error(err))
	}

	service := questservice.NewQuestService(
		repo,
		wl,
		publisher,
		logger,
		obs.Metrics,
		obs.Tracer,
		db,
		questservice.Settings{
			TeamSize:        cfg.Game.TeamSize,
			WhitelistStrict: cfg.Whitelist.Strict,
		},
	)

	handlers := questhandlers.NewQuestHandlers(service, wl, media.NewLocalStore(cfg.Game.ProofsDir), logger)

	if httpRouter != nil {
		limiter := httpmw.NewIPRateLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst)
		httpRouter.Route("/api", func(r chi.Router) {
			r.Use(httpmw.CORSMiddleware(cfg.HTTP.AllowedOrigins))
			r.Use(httpmw.RateLimitMiddleware(limiter))
			r.Use(httpmw.AppSecretMiddleware(cfg.HTTP.AppSecret))
			handlers.RegisterRoutes(r)
		})
	}

	return &Module{
		service:   service,
		repo:      repo,
		whitelist: wl,
		handlers:  handlers,
		logger:    logger,
	}, nil
}

// Service returns the quest service for use by other modules.
func (m *Module) Service() questservice.Service {
	return m.service
}

// Repository returns the quest repository for read-side consumers.
func (m *Module) Repository() questdb.Repository {
	return m.repo
}

// Whitelist returns the participant whitelist store.
func (m *Module) Whitelist() *whitelist.Store {
	return m.whitelist
}

// Close logs shutdown. The database is owned by the app.
func (m *Module) Close() error {
	m.logger.Info("Quest module stopped")
	return nil
}
