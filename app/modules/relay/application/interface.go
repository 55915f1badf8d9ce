package relayservice

import (
	"context"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
)

// PendingSource is the moderation queue read surface the relay polls. Proofs
// and free-form submissions share one review chat.
type PendingSource interface {
	ListPendingProofs(ctx context.Context) ([]questservice.PendingProof, error)
	ListSubmissions(ctx context.Context, status questdomain.SubmissionStatus, limit int) ([]questservice.SubmissionView, error)
}

// ReviewChannel delivers a rendered moderation card to a chat. A non-nil
// error means the card was not delivered and may be retried on a later poll.
type ReviewChannel interface {
	Deliver(ctx context.Context, chatID int64, card Card) error
}

// Messenger sends a plain text message to a player chat.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
}
