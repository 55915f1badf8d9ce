package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, "quest")
	require.NoError(t, err)

	ctx := context.Background()
	p.RecordOperationAttempt(ctx, "StartGame", "QuestService")
	p.RecordOperationSuccess(ctx, "StartGame", "QuestService")
	p.RecordOperationDuration(ctx, "StartGame", "QuestService", 10*time.Millisecond)
	p.RecordPoll(ctx, true, 3)
	p.RecordPoll(ctx, false, 0)
	p.RecordDelivery(ctx, DeliveryDelivered)
	p.SetSeenSize(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.attempts.WithLabelValues("QuestService", "StartGame")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.successes.WithLabelValues("QuestService", "StartGame")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.polls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.polls.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.pending))
	assert.Equal(t, 7.0, testutil.ToFloat64(p.seenSize))
}

func TestPrometheus_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg, "quest")
	require.NoError(t, err)

	_, err = NewPrometheus(reg, "quest")
	assert.Error(t, err)
}
