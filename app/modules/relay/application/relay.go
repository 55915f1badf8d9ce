// Package relayservice surfaces the pending proof and submission queues to
// moderators and tells players how their work was judged.
package relayservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/metrics"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// ErrTransportFailure marks poll and delivery errors. They never leave the
// relay loop; they are logged and retried.
var ErrTransportFailure = errors.New("relay transport failure")

// Config tunes the relay loop.
type Config struct {
	ChatID          int64
	PollInterval    time.Duration
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	BackoffSleepCap time.Duration
	SeenCapacity    int
	SeenRetain      int
	// SendRate bounds outbound deliveries per second. Zero means unlimited.
	SendRate float64
	// SubmissionLimit caps pending submissions read per poll. Zero leaves
	// the cap to the source.
	SubmissionLimit int
}

// Relay polls the pending proof and submission queues and delivers one card
// per version key.
type Relay struct {
	source  PendingSource
	channel ReviewChannel
	cfg     Config
	logger  *slog.Logger
	metrics metrics.RelayMetrics
	tracer  trace.Tracer
	limiter *rate.Limiter
	seen    *SeenSet
	backoff *backoff.ExponentialBackOff

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRelay creates a stopped relay. Call Start to run it.
func NewRelay(source PendingSource, channel ReviewChannel, cfg Config, logger *slog.Logger, m metrics.RelayMetrics, tracer trace.Tracer) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = cfg.BackoffBase
	}
	if cfg.BackoffSleepCap <= 0 {
		cfg.BackoffSleepCap = cfg.BackoffMax
	}

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.BackoffBase,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         cfg.BackoffMax,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	return &Relay{
		source:  source,
		channel: channel,
		cfg:     cfg,
		logger:  logger.With(attr.String("component", "relay")),
		metrics: m,
		tracer:  tracer,
		limiter: rate.NewLimiter(limit, 1),
		seen:    NewSeenSet(cfg.SeenCapacity, cfg.SeenRetain),
		backoff: b,
	}
}

// Start launches the loop. Calling Start on a running relay does nothing,
// and neither does calling it while a stopped loop is still winding down.
func (r *Relay) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		select {
		case <-r.done:
		default:
			if r.cancel == nil {
				r.logger.WarnContext(ctx, "Relay not restarted, previous loop still running")
			}
			return
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(loopCtx, r.done)

	r.logger.InfoContext(ctx, "Relay started",
		attr.Int64("chat_id", r.cfg.ChatID),
		attr.Duration("poll_interval", r.cfg.PollInterval),
	)
}

// Stop cancels the loop and waits until it has exited, including any
// delivery in flight, or until ctx expires. After a timeout the relay keeps
// tracking the old loop, so a later Stop waits for it again and Start does
// not launch a second one alongside it.
func (r *Relay) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if done == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		r.mu.Lock()
		if r.done == done {
			r.done = nil
		}
		r.mu.Unlock()
		r.logger.InfoContext(ctx, "Relay stopped")
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Relay stop timed out", attr.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (r *Relay) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Relay loop crashed", attr.Any("panic", rec))
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		wait := r.cfg.PollInterval
		if _, err := r.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			wait = min(r.backoff.NextBackOff(), r.cfg.BackoffSleepCap)
			r.logger.WarnContext(ctx, "Pending queue poll failed",
				attr.Duration("retry_in", wait),
				attr.Error(err),
			)
		} else {
			r.backoff.Reset()
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// pendingCard is one queue item ready for delivery.
type pendingCard struct {
	key  VersionKey
	card Card
}

// Poll runs one relay cycle: fetch both queues, deliver cards for unseen
// version keys and remember the ones that were delivered. A failed delivery
// is logged and does not stop the batch. The returned error is non-nil only
// when a queue could not be read; proofs are still delivered when only the
// submission queue failed.
func (r *Relay) Poll(ctx context.Context) (delivered int, err error) {
	ctx = attr.EnsureCorrelationID(ctx)
	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "relay.Poll")
		defer func() {
			span.SetAttributes(attribute.Int("delivered", delivered))
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()
	}

	proofs, err := r.source.ListPendingProofs(ctx)
	if err != nil {
		r.metrics.RecordPoll(ctx, false, 0)
		return 0, fmt.Errorf("%w: list pending proofs: %w", ErrTransportFailure, err)
	}
	items := make([]pendingCard, 0, len(proofs))
	for _, p := range proofs {
		items = append(items, pendingCard{key: KeyOf(p), card: RenderCard(p)})
	}

	subs, subErr := r.source.ListSubmissions(ctx, questdomain.SubmissionPending, r.cfg.SubmissionLimit)
	if subErr != nil {
		subErr = fmt.Errorf("%w: list pending submissions: %w", ErrTransportFailure, subErr)
	}
	for _, s := range subs {
		items = append(items, pendingCard{key: SubmissionKeyOf(s), card: RenderSubmissionCard(s)})
	}
	r.metrics.RecordPoll(ctx, subErr == nil, len(items))

	for _, item := range items {
		if r.seen.Contains(item.key) {
			continue
		}
		if err := r.limiter.Wait(ctx); err != nil {
			// Cancelled while throttled; the rest is picked up next run.
			r.metrics.RecordDelivery(ctx, metrics.DeliverySkipped)
			break
		}
		if err := r.deliver(ctx, item); err != nil {
			r.metrics.RecordDelivery(ctx, metrics.DeliveryFailed)
			r.logger.WarnContext(ctx, "Failed to deliver moderation card",
				attr.ExtractCorrelationID(ctx),
				attr.String("version_key", item.key.String()),
				attr.Error(err),
			)
			continue
		}
		r.seen.Add(item.key)
		r.metrics.RecordDelivery(ctx, metrics.DeliveryDelivered)
		delivered++
	}
	r.metrics.SetSeenSize(r.seen.Len())

	if delivered > 0 {
		r.logger.InfoContext(ctx, "Moderation cards delivered",
			attr.ExtractCorrelationID(ctx),
			attr.Int("delivered", delivered),
			attr.Int("pending", len(items)),
		)
	}
	return delivered, subErr
}

// deliver sends one card, turning a panic in the channel into an error.
func (r *Relay) deliver(ctx context.Context, item pendingCard) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic delivering %s: %v", item.key, rec)
		}
	}()
	if err := r.channel.Deliver(ctx, r.cfg.ChatID, item.card); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	return nil
}
