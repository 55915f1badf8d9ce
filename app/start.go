package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
)

// Run starts the HTTP listeners, the event router and the relay, then blocks
// until ctx is cancelled or a listener fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.Logger()
	errCh := make(chan error, 3)

	go func() {
		logger.InfoContext(ctx, "HTTP server listening", attr.String("addr", app.httpServer.Addr))
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if app.metricsServer != nil {
		go func() {
			logger.InfoContext(ctx, "Metrics server listening", attr.String("addr", app.metricsServer.Addr))
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// A router without handlers returns immediately from Run, so it only
	// starts when the relay subscribed to something.
	if app.RelayModule.Enabled() {
		go func() {
			if err := app.Router.Run(ctx); err != nil {
				errCh <- fmt.Errorf("message router: %w", err)
			}
		}()
		select {
		case <-app.Router.Running():
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("message router failed to start within 5s")
		}
	}

	app.RelayModule.Run(ctx)

	select {
	case <-ctx.Done():
		logger.InfoContext(ctx, "Shutdown signal received")
		return nil
	case err := <-errCh:
		logger.ErrorContext(ctx, "Component failed", attr.Error(err))
		return err
	}
}
