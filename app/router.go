package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is the part of the database handle the health check needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewHTTPRouter returns the root router with the unauthenticated health
// endpoint. Modules mount their own sub-routes on it.
func NewHTTPRouter(db Pinger) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", HealthHandler(db))
	return r
}

// HealthHandler reports 200 when the database answers a ping within 2s.
func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"ok": true}
		if err := db.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"ok": false, "error": "database unavailable"}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

// MetricsHandler exposes the registry on /metrics.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
