package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
)

// Close tears the app down in dependency order: the relay stops sending,
// the event bus drains, the listeners close, then the database.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	logger := app.Logger()

	if app.RelayModule != nil {
		if err := app.RelayModule.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("relay: %w", err))
		}
	}
	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("message router: %w", err))
		}
	}
	if app.PubSub != nil {
		if err := app.PubSub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("pubsub: %w", err))
		}
	}
	if app.httpServer != nil {
		if err := app.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}
	if app.metricsServer != nil {
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if app.QuestModule != nil {
		app.QuestModule.Close()
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.ErrorContext(ctx, "Shutdown finished with errors", attr.Error(err))
	} else {
		logger.InfoContext(ctx, "Application shut down gracefully")
	}
	return err
}
