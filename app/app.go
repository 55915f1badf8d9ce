package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Black-And-White-Club/quest-bot/app/modules/leaderboard"
	"github.com/Black-And-White-Club/quest-bot/app/modules/quest"
	"github.com/Black-And-White-Club/quest-bot/app/modules/relay"
	"github.com/Black-And-White-Club/quest-bot/app/modules/webapp"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/Black-And-White-Club/quest-bot/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// App holds the process-wide dependencies and the modules built on them.
type App struct {
	Config        *config.Config
	Observability *observability.Observability
	DB            *bun.DB
	PubSub        *gochannel.GoChannel
	Router        *message.Router
	HTTPRouter    chi.Router

	QuestModule       *quest.Module
	LeaderboardModule *leaderboard.Module
	RelayModule       *relay.Module
	WebAppModule      *webapp.Module

	httpServer    *http.Server
	metricsServer *http.Server
}

// NewDB opens a bun handle over pgdriver.
func NewDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Initialize connects the database, builds the event bus and wires every module.
func (app *App) Initialize(ctx context.Context, cfg *config.Config) error {
	obs, err := observability.Init(observability.Config{Environment: cfg.Observability.Environment})
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	app.Config = cfg
	app.Observability = obs
	logger := obs.Logger

	app.DB = NewDB(cfg.Postgres.DSN)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := app.DB.PingContext(pingCtx); err != nil {
		app.DB.Close()
		app.DB = nil
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.InfoContext(ctx, "Database connected")

	wmLogger := watermill.NewSlogLogger(logger)
	app.PubSub = gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)

	app.Router, err = message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, wmLogger)
	if err != nil {
		return fmt.Errorf("failed to create message router: %w", err)
	}

	app.HTTPRouter = NewHTTPRouter(app.DB)

	if err := app.initializeModules(ctx); err != nil {
		return err
	}

	app.httpServer = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           app.HTTPRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if cfg.Observability.MetricsAddress != "" {
		app.metricsServer = &http.Server{
			Addr:              cfg.Observability.MetricsAddress,
			Handler:           MetricsHandler(obs.Registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	logger.InfoContext(ctx, "Application initialized",
		attr.String("http_addr", cfg.HTTP.Addr),
		attr.Bool("relay_enabled", app.RelayModule.Enabled()),
	)
	return nil
}

func (app *App) initializeModules(ctx context.Context) error {
	var err error
	app.QuestModule, err = quest.NewModule(ctx, app.Config, app.Observability, app.DB, app.PubSub, app.HTTPRouter)
	if err != nil {
		return fmt.Errorf("failed to initialize quest module: %w", err)
	}

	app.LeaderboardModule = leaderboard.NewModule(ctx, app.Config, app.Observability, app.DB, app.HTTPRouter)

	app.WebAppModule = webapp.NewModule(ctx, app.Config, app.Observability,
		app.QuestModule.Service(), app.LeaderboardModule.Service(), app.HTTPRouter)

	app.RelayModule, err = relay.NewModule(ctx, app.Config, app.Observability, app.QuestModule.Service(), app.Router, app.PubSub)
	if err != nil {
		return fmt.Errorf("failed to initialize relay module: %w", err)
	}
	return nil
}

// Logger returns the application logger.
func (app *App) Logger() *slog.Logger {
	if app.Observability == nil {
		return slog.Default()
	}
	return app.Observability.Logger
}
