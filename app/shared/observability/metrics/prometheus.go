package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements OperationMetrics and RelayMetrics on a registry.
type Prometheus struct {
	attempts   *prometheus.CounterVec
	successes  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	polls      *prometheus.CounterVec
	pending    prometheus.Gauge
	deliveries *prometheus.CounterVec
	seenSize   prometheus.Gauge
}

// NewPrometheus registers the quest collectors on reg under namespace.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	p := &Prometheus{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, []string{"service", "operation"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_success_total",
			Help:      "Service operations that completed without an infrastructure error.",
		}, []string{"service", "operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failure_total",
			Help:      "Service operations that failed with an infrastructure error or panic.",
		}, []string{"service", "operation"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "polls_total",
			Help:      "Pending queue polls by result.",
		}, []string{"result"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "pending_items",
			Help:      "Pending proofs seen on the last successful poll.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "deliveries_total",
			Help:      "Review card deliveries by outcome.",
		}, []string{"outcome"}),
		seenSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "seen_keys",
			Help:      "Version keys held in the relay seen set.",
		}),
	}

	for _, c := range []prometheus.Collector{p.attempts, p.successes, p.failures, p.durations, p.polls, p.pending, p.deliveries, p.seenSize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) RecordOperationAttempt(_ context.Context, operation, service string) {
	p.attempts.WithLabelValues(service, operation).Inc()
}

func (p *Prometheus) RecordOperationSuccess(_ context.Context, operation, service string) {
	p.successes.WithLabelValues(service, operation).Inc()
}

func (p *Prometheus) RecordOperationFailure(_ context.Context, operation, service string) {
	p.failures.WithLabelValues(service, operation).Inc()
}

func (p *Prometheus) RecordOperationDuration(_ context.Context, operation, service string, d time.Duration) {
	p.durations.WithLabelValues(service, operation).Observe(d.Seconds())
}

func (p *Prometheus) RecordPoll(_ context.Context, ok bool, pending int) {
	if !ok {
		p.polls.WithLabelValues("error").Inc()
		return
	}
	p.polls.WithLabelValues("ok").Inc()
	p.pending.Set(float64(pending))
}

func (p *Prometheus) RecordDelivery(_ context.Context, outcome string) {
	p.deliveries.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) SetSeenSize(n int) {
	p.seenSize.Set(float64(n))
}

var (
	_ OperationMetrics = (*Prometheus)(nil)
	_ RelayMetrics     = (*Prometheus)(nil)
)
