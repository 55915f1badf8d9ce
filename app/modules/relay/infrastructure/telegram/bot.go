// Package telegram is the review channel and player messenger backed by the
// Telegram Bot API. It also turns moderation button clicks and replies into
// approve and reject calls.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/media"
	relayservice "github.com/Black-And-White-Club/quest-bot/app/modules/relay/application"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the subset of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Moderator is the moderation surface driven by card buttons and replies.
type Moderator interface {
	ApproveProof(ctx context.Context, proofID, judgedBy int64) (*questservice.ModerationResult, error)
	RejectProof(ctx context.Context, proofID, judgedBy int64, comment string) (*questservice.ModerationResult, error)
	ListPendingProofs(ctx context.Context) ([]questservice.PendingProof, error)
	ApproveSubmission(ctx context.Context, id, reviewer int64) (*questservice.SubmissionModeration, error)
	RejectSubmission(ctx context.Context, id, reviewer int64, reason string) (*questservice.SubmissionModeration, error)
	ListSubmissions(ctx context.Context, status questdomain.SubmissionStatus, limit int) ([]questservice.SubmissionView, error)
}

// MediaResolver maps a stored upload reference onto a file under the upload
// directory. References it does not resolve are never read from disk.
type MediaResolver interface {
	Resolve(ref string) (string, bool)
}

// maxReasonPrompts bounds the reject prompts awaiting a reply.
const maxReasonPrompts = 256

// Bot delivers cards and messages and handles moderator input from the
// review chat.
type Bot struct {
	sender       Sender
	moderator    Moderator
	resolver     MediaResolver
	reviewChatID int64
	logger       *slog.Logger

	mu      sync.Mutex
	prompts map[int]int64 // prompt message id -> submission id
	order   []int
}

// NewBot creates a bot. moderator may be nil when callbacks are not handled.
// resolver may be nil, in which case only Telegram file ids are sent as photos.
func NewBot(sender Sender, moderator Moderator, resolver MediaResolver, reviewChatID int64, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		sender:       sender,
		moderator:    moderator,
		resolver:     resolver,
		reviewChatID: reviewChatID,
		logger:       logger.With(attr.String("component", "telegram")),
		prompts:      make(map[int]int64),
	}
}

var (
	_ relayservice.ReviewChannel = (*Bot)(nil)
	_ relayservice.Messenger     = (*Bot)(nil)
	_ MediaResolver              = (*media.LocalStore)(nil)
)

// Deliver posts the card with approve/reject buttons. Cards with usable
// media go out as a photo, anything else as text.
func (b *Bot) Deliver(ctx context.Context, chatID int64, card relayservice.Card) error {
	keyboard := reviewKeyboard(card)

	var msg tgbotapi.Chattable
	if file, ok := b.mediaFile(card.MediaRef); ok {
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = card.Caption
		photo.ReplyMarkup = keyboard
		msg = photo
	} else {
		text := card.Caption
		if card.MediaRef != "" {
			b.logger.WarnContext(ctx, "Card media not sendable, posting text only",
				attr.String("media_ref", card.MediaRef),
			)
			text += "\n\n(photo unavailable)"
		}
		m := tgbotapi.NewMessage(chatID, text)
		m.ReplyMarkup = keyboard
		msg = m
	}

	if _, err := b.sender.Send(msg); err != nil {
		if card.IsSubmission() {
			return fmt.Errorf("failed to send submission %d: %w", card.SubmissionID, err)
		}
		return fmt.Errorf("failed to send proof %d: %w", card.ProofID, err)
	}
	return nil
}

// SendText sends a plain message.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

// Run handles updates until ctx ends or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(attr.EnsureCorrelationID(ctx), upd)
		}
	}
}

// HandleUpdate dispatches one update. Only the review chat is served.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.IsCommand():
		b.handleCommand(ctx, upd.Message)
	case upd.Message != nil && upd.Message.ReplyToMessage != nil:
		b.handleReply(ctx, upd.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	if m.Chat == nil || m.Chat.ID != b.reviewChatID || b.moderator == nil {
		return
	}
	if m.Command() != "pending" {
		return
	}
	items, err := b.moderator.ListPendingProofs(ctx)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to list pending proofs", attr.Error(err))
		b.send(ctx, tgbotapi.NewMessage(m.Chat.ID, "Could not load the queue."))
		return
	}
	subs, err := b.moderator.ListSubmissions(ctx, questdomain.SubmissionPending, 0)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to list pending submissions", attr.Error(err))
		b.send(ctx, tgbotapi.NewMessage(m.Chat.ID, "Could not load the queue."))
		return
	}

	text := fmt.Sprintf("Pending proofs: %d", len(items))
	switch {
	case len(items) == 0 && len(subs) == 0:
		text = "The queue is empty."
	case len(subs) > 0:
		text += fmt.Sprintf("\nPending submissions: %d", len(subs))
	}
	b.send(ctx, tgbotapi.NewMessage(m.Chat.ID, text))
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.Message.Chat == nil || q.Message.Chat.ID != b.reviewChatID || b.moderator == nil {
		b.answer(ctx, q.ID, "Not available here")
		return
	}
	action, id, err := relayservice.ParseCallback(q.Data)
	if err != nil {
		b.answer(ctx, q.ID, "")
		return
	}
	judge, reviewer := moderatorOf(q.From)

	var text string
	switch action {
	case relayservice.ActionApprove, relayservice.ActionReject:
		var res *questservice.ModerationResult
		if action == relayservice.ActionApprove {
			res, err = b.moderator.ApproveProof(ctx, id, judge)
		} else {
			res, err = b.moderator.RejectProof(ctx, id, judge, "")
		}
		if err == nil {
			text = OutcomeText(action, id, reviewer, res)
		}

	case relayservice.ActionApproveSubmission:
		var res *questservice.SubmissionModeration
		res, err = b.moderator.ApproveSubmission(ctx, id, judge)
		if err == nil {
			text = SubmissionOutcomeText(action, id, reviewer, res)
		}

	case relayservice.ActionRejectSubmission:
		// The reason comes as a reply to the prompt; the rejection waits for it.
		b.answer(ctx, q.ID, "Reply with the reason")
		b.clearButtons(ctx, q.Message)
		prompt := tgbotapi.NewMessage(q.Message.Chat.ID, fmt.Sprintf("Reply to this message with the reason for rejecting submission #%d.", id))
		prompt.ReplyToMessageID = q.Message.MessageID
		prompt.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
		sent, err := b.sender.Send(prompt)
		if err != nil {
			b.logger.WarnContext(ctx, "Failed to ask for reject reason",
				attr.Int64("submission_id", id),
				attr.Error(err),
			)
			return
		}
		b.rememberPrompt(sent.MessageID, id)
		return
	}

	if err != nil {
		b.logger.WarnContext(ctx, "Moderation from card failed",
			attr.ExtractCorrelationID(ctx),
			attr.String("action", action),
			attr.Int64("id", id),
			attr.Error(err),
		)
		b.answer(ctx, q.ID, "Failed: "+err.Error())
		return
	}

	b.answer(ctx, q.ID, text)
	b.clearButtons(ctx, q.Message)
	b.send(ctx, tgbotapi.NewMessage(q.Message.Chat.ID, text))
}

// handleReply turns a reply to a reject prompt into a submission rejection
// with the reply text as the reason.
func (b *Bot) handleReply(ctx context.Context, m *tgbotapi.Message) {
	if m.Chat == nil || m.Chat.ID != b.reviewChatID || b.moderator == nil {
		return
	}
	promptID := m.ReplyToMessage.MessageID
	id, ok := b.promptFor(promptID)
	if !ok {
		return
	}
	reason := strings.TrimSpace(m.Text)
	if reason == "" {
		return
	}

	judge, reviewer := moderatorOf(m.From)
	res, err := b.moderator.RejectSubmission(ctx, id, judge, reason)
	if err != nil {
		b.logger.WarnContext(ctx, "Submission rejection failed",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("submission_id", id),
			attr.Error(err),
		)
		b.send(ctx, replyTo(m, "Could not reject: "+err.Error()))
		return
	}
	b.forgetPrompt(promptID)
	b.send(ctx, replyTo(m, SubmissionOutcomeText(relayservice.ActionRejectSubmission, id, reviewer, res)))
}

func (b *Bot) rememberPrompt(messageID int, submissionID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.order) >= maxReasonPrompts {
		delete(b.prompts, b.order[0])
		b.order = b.order[1:]
	}
	b.prompts[messageID] = submissionID
	b.order = append(b.order, messageID)
}

func (b *Bot) promptFor(messageID int) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.prompts[messageID]
	return id, ok
}

func (b *Bot) forgetPrompt(messageID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.prompts, messageID)
	for i, id := range b.order {
		if id == messageID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *Bot) clearButtons(ctx context.Context, m *tgbotapi.Message) {
	strip := tgbotapi.NewEditMessageReplyMarkup(m.Chat.ID, m.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.sender.Request(strip); err != nil {
		b.logger.DebugContext(ctx, "Failed to clear card buttons", attr.Error(err))
	}
}

// moderatorOf returns the judge id and the name shown in the review chat.
func moderatorOf(u *tgbotapi.User) (int64, string) {
	if u == nil {
		return 0, "moderator"
	}
	switch {
	case u.UserName != "":
		return u.ID, "@" + u.UserName
	case u.FirstName != "":
		return u.ID, u.FirstName
	}
	return u.ID, "moderator"
}

func replyTo(m *tgbotapi.Message, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(m.Chat.ID, text)
	msg.ReplyToMessageID = m.MessageID
	return msg
}

// OutcomeText is the review chat message posted after a button click.
func OutcomeText(action string, proofID int64, reviewer string, res *questservice.ModerationResult) string {
	if res == nil || res.AlreadyProcessed {
		return fmt.Sprintf("Proof #%d was already processed.", proofID)
	}
	var b strings.Builder
	if action == relayservice.ActionApprove {
		fmt.Fprintf(&b, "Proof #%d approved by %s. Team %d progress: %d/%d.", proofID, reviewer, res.TeamID, res.Progress.Done, res.Progress.Total)
		if res.Finished {
			b.WriteString(" Route finished!")
		}
	} else {
		fmt.Fprintf(&b, "Proof #%d rejected by %s.", proofID, reviewer)
	}
	return b.String()
}

// SubmissionOutcomeText is the review chat message after a submission is
// judged from a card.
func SubmissionOutcomeText(action string, id int64, reviewer string, res *questservice.SubmissionModeration) string {
	if res == nil || res.AlreadyProcessed {
		return fmt.Sprintf("Submission #%d was already processed.", id)
	}
	if action == relayservice.ActionApproveSubmission {
		return fmt.Sprintf("Submission #%d approved by %s.", id, reviewer)
	}
	return fmt.Sprintf("Submission #%d rejected by %s. Reason recorded.", id, reviewer)
}

func (b *Bot) answer(ctx context.Context, callbackID, text string) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.DebugContext(ctx, "Failed to answer callback", attr.Error(err))
	}
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		b.logger.WarnContext(ctx, "Failed to send message", attr.Error(err))
	}
}

func reviewKeyboard(card relayservice.Card) tgbotapi.InlineKeyboardMarkup {
	approve, reject, id := relayservice.ActionApprove, relayservice.ActionReject, card.ProofID
	if card.IsSubmission() {
		approve, reject, id = relayservice.ActionApproveSubmission, relayservice.ActionRejectSubmission, card.SubmissionID
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", relayservice.CallbackData(approve, id)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", relayservice.CallbackData(reject, id)),
		),
	)
}

// mediaFile maps a media reference to an upload. Local references are read
// from disk only when the resolver places them inside the upload directory.
// Other references are Telegram file ids; anything path-like is refused.
func (b *Bot) mediaFile(ref string) (tgbotapi.RequestFileData, bool) {
	if ref == "" {
		return nil, false
	}
	if media.IsLocalRef(ref) {
		if b.resolver == nil {
			return nil, false
		}
		path, ok := b.resolver.Resolve(ref)
		if !ok {
			return nil, false
		}
		return tgbotapi.FilePath(path), true
	}
	if strings.ContainsAny(ref, `/\`) {
		return nil, false
	}
	return tgbotapi.FileID(ref), true
}
