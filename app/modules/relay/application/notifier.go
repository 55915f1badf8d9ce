package relayservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"golang.org/x/time/rate"
)

// Notifier tells players how their proofs and submissions were judged.
type Notifier struct {
	messenger Messenger
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewNotifier creates a notifier. sendRate bounds messages per second; zero
// means unlimited.
func NewNotifier(messenger Messenger, sendRate float64, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if sendRate > 0 {
		limit = rate.Limit(sendRate)
	}
	return &Notifier{
		messenger: messenger,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.With(attr.String("component", "notifier")),
	}
}

// NotifyProgress sends the message for topic to each recipient of ev once.
// Per-recipient failures are logged and skipped. The error is non-nil only
// when ctx ends before every recipient was tried.
func (n *Notifier) NotifyProgress(ctx context.Context, topic string, ev questdomain.ProgressEvent) (sent int, err error) {
	text, ok := ProgressText(topic, ev)
	if !ok {
		return 0, nil
	}
	sent, err = n.sendAll(ctx, ev.Recipients, text, attr.Int64("team_id", ev.TeamID))
	if err != nil {
		return sent, err
	}
	n.logger.InfoContext(ctx, "Team notified",
		attr.ExtractCorrelationID(ctx),
		attr.String("topic", topic),
		attr.Int64("team_id", ev.TeamID),
		attr.Int("sent", sent),
	)
	return sent, nil
}

// NotifySubmission tells the submitter how an article or photo was judged.
// It follows the NotifyProgress error rules.
func (n *Notifier) NotifySubmission(ctx context.Context, topic string, ev questdomain.SubmissionEvent) (sent int, err error) {
	text, ok := SubmissionText(topic, ev)
	if !ok {
		return 0, nil
	}
	sent, err = n.sendAll(ctx, ev.Recipients, text, attr.Int64("submission_id", ev.SubmissionID))
	if err != nil {
		return sent, err
	}
	n.logger.InfoContext(ctx, "Submitter notified",
		attr.ExtractCorrelationID(ctx),
		attr.String("topic", topic),
		attr.Int64("submission_id", ev.SubmissionID),
		attr.Int("sent", sent),
	)
	return sent, nil
}

func (n *Notifier) sendAll(ctx context.Context, recipients []int64, text string, subject slog.Attr) (sent int, err error) {
	seen := make(map[int64]struct{}, len(recipients))
	for _, chatID := range recipients {
		if _, dup := seen[chatID]; dup || chatID == 0 {
			continue
		}
		seen[chatID] = struct{}{}

		if err := n.limiter.Wait(ctx); err != nil {
			return sent, err
		}
		if err := n.messenger.SendText(ctx, chatID, text); err != nil {
			n.logger.WarnContext(ctx, "Failed to notify player",
				attr.ExtractCorrelationID(ctx),
				subject,
				attr.Int64("chat_id", chatID),
				attr.Error(err),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

// ProgressText renders the player message for a moderation event. It
// reports false for topics players are not told about.
func ProgressText(topic string, ev questdomain.ProgressEvent) (string, bool) {
	switch topic {
	case questdomain.TopicTeamFinished:
		return fmt.Sprintf("🏁 %s finished the route! %d/%d checkpoints accepted.", ev.TeamName, ev.Done, ev.Total), true

	case questdomain.TopicProofApproved:
		var b strings.Builder
		fmt.Fprintf(&b, "✅ Proof accepted: %d/%d.", ev.Done, ev.Total)
		if ev.Next != nil {
			b.WriteString("\n\n")
			b.WriteString(TaskText(*ev.Next))
		}
		return b.String(), true

	case questdomain.TopicProofRejected:
		msg := "❌ Proof rejected. Send a new photo for the same task."
		if c := strings.TrimSpace(ev.Comment); c != "" {
			msg = fmt.Sprintf("❌ Proof rejected: %s\nSend a new photo for the same task.", c)
		}
		return msg, true
	}
	return "", false
}

// SubmissionText renders the submitter message for a submission judgement.
func SubmissionText(topic string, ev questdomain.SubmissionEvent) (string, bool) {
	what := "photo"
	if ev.Kind == questdomain.KindArticle {
		what = "article"
	}
	switch topic {
	case questdomain.TopicSubmissionApproved:
		return fmt.Sprintf("✅ Your %s was accepted.", what), true
	case questdomain.TopicSubmissionRejected:
		msg := fmt.Sprintf("❌ Your %s was rejected.", what)
		if r := strings.TrimSpace(ev.Reason); r != "" {
			msg += "\nReason: " + r
		}
		return msg, true
	}
	return "", false
}

// TaskText renders a checkpoint task card.
func TaskText(t questdomain.TaskCard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %d/%d: %s\n%s", t.OrderNum, t.Total, t.Title, t.Riddle)
	if t.HasPhotoHint {
		b.WriteString("\n(photo hint attached in the app)")
	}
	return b.String()
}
