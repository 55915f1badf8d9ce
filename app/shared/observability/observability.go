// Package observability builds the logger, tracer and metrics registry shared
// by every module.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName      = "quest-bot"
	metricsNamespace = "quest"
)

// Config selects the logger format and the environment tag.
type Config struct {
	Environment string
	Level       slog.Level
	Output      io.Writer
}

// Observability bundles the instrumentation handles passed to modules.
type Observability struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Registry *prometheus.Registry
	Metrics  *metrics.Prometheus
}

// NewLogger returns a text logger for development and a JSON logger otherwise.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.Environment == "development" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("environment", cfg.Environment),
	)
}

// Init creates the logger, a tracer from the global otel provider and a fresh
// Prometheus registry with the quest collectors registered.
func Init(cfg Config) (*Observability, error) {
	logger := NewLogger(cfg)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.NewPrometheus(reg, metricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return &Observability{
		Logger:   logger,
		Tracer:   otel.Tracer(serviceName),
		Registry: reg,
		Metrics:  m,
	}, nil
}
