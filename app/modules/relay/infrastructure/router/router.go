package relayrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// PlayerNotifier reacts to judged proofs and submissions.
type PlayerNotifier interface {
	NotifyProgress(ctx context.Context, topic string, ev questdomain.ProgressEvent) (int, error)
	NotifySubmission(ctx context.Context, topic string, ev questdomain.SubmissionEvent) (int, error)
}

// RelayRouter binds quest moderation topics to the player notifier.
type RelayRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewRelayRouter creates the router wrapper. registry may be nil to skip
// router metrics.
func NewRelayRouter(logger *slog.Logger, router *message.Router, subscriber message.Subscriber, registry *prometheus.Registry) *RelayRouter {
	var builder *metrics.PrometheusMetricsBuilder
	if registry != nil {
		b := metrics.NewPrometheusMetricsBuilder(registry, "quest", "relay")
		builder = &b
	}
	return &RelayRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		metricsBuilder: builder,
	}
}

// Configure adds middleware and registers the progress and submission
// handlers.
func (r *RelayRouter) Configure(notifier PlayerNotifier) {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}
	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
	)

	for _, topic := range []string{
		questdomain.TopicProofApproved,
		questdomain.TopicProofRejected,
		questdomain.TopicTeamFinished,
	} {
		r.Router.AddNoPublisherHandler(
			"relay."+topic,
			topic,
			r.subscriber,
			eventHandler(r.logger, topic, func(ctx context.Context, ev questdomain.ProgressEvent) error {
				if _, err := notifier.NotifyProgress(ctx, topic, ev); err != nil {
					return fmt.Errorf("failed to notify team %d: %w", ev.TeamID, err)
				}
				return nil
			}),
		)
	}

	for _, topic := range []string{
		questdomain.TopicSubmissionApproved,
		questdomain.TopicSubmissionRejected,
	} {
		r.Router.AddNoPublisherHandler(
			"relay."+topic,
			topic,
			r.subscriber,
			eventHandler(r.logger, topic, func(ctx context.Context, ev questdomain.SubmissionEvent) error {
				if _, err := notifier.NotifySubmission(ctx, topic, ev); err != nil {
					return fmt.Errorf("failed to notify submitter of %d: %w", ev.SubmissionID, err)
				}
				return nil
			}),
		)
	}
}

// eventHandler decodes a T payload and hands it to handle. Malformed payloads
// are acked instead of redelivered; a retry cannot fix them.
func eventHandler[T any](logger *slog.Logger, topic string, handle func(ctx context.Context, ev T) error) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ctx := msg.Context()
		if id := msg.Metadata.Get("correlation_id"); id != "" {
			ctx = attr.WithCorrelationID(ctx, id)
		}

		var ev T
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			logger.ErrorContext(ctx, "Dropping malformed event",
				attr.String("topic", topic),
				attr.String("message_uuid", msg.UUID),
				attr.Error(err),
			)
			return nil
		}
		return handle(ctx, ev)
	}
}

// Close stops the router.
func (r *RelayRouter) Close() error {
	return r.Router.Close()
}
