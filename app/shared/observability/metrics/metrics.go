// Package metrics defines the metric recorders used by the service layer and
// the relay, with a Prometheus implementation and a no-op for tests.
package metrics

import (
	"context"
	"time"
)

// OperationMetrics records the outcome of service operations.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, d time.Duration)
}

// RelayMetrics records notification relay activity.
type RelayMetrics interface {
	RecordPoll(ctx context.Context, ok bool, pending int)
	RecordDelivery(ctx context.Context, outcome string)
	SetSeenSize(n int)
}

// Delivery outcomes.
const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
	DeliverySkipped   = "skipped"
)

type Noop struct{}

// NewNoop returns recorders that discard everything.
func NewNoop() *Noop { return &Noop{} }

func (Noop) RecordOperationAttempt(context.Context, string, string)                 {}
func (Noop) RecordOperationSuccess(context.Context, string, string)                 {}
func (Noop) RecordOperationFailure(context.Context, string, string)                 {}
func (Noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (Noop) RecordPoll(context.Context, bool, int)                                  {}
func (Noop) RecordDelivery(context.Context, string)                                 {}
func (Noop) SetSeenSize(int)                                                        {}

var (
	_ OperationMetrics = (*Noop)(nil)
	_ RelayMetrics     = (*Noop)(nil)
)
