package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	"github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/media"
	relayservice "github.com/Black-And-White-Club/quest-bot/app/modules/relay/application"
	relayrouter "github.com/Black-And-White-Club/quest-bot/app/modules/relay/infrastructure/router"
	"github.com/Black-And-White-Club/quest-bot/app/modules/relay/infrastructure/telegram"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/Black-And-White-Club/quest-bot/config"
	"github.com/ThreeDotsLabs/watermill/message"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Module runs the moderation relay, the player notifier and the review chat
// update loop.
type Module struct {
	relay    *relayservice.Relay
	router   *relayrouter.RelayRouter
	bot      *telegram.Bot
	api      *tgbotapi.BotAPI
	logger   *slog.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	disabled bool
}

// NewModule creates the relay module. Without a bot token or review chat the
// module is inert: Run and Close do nothing.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs *observability.Observability,
	quest questservice.Service,
	router *message.Router,
	subscriber message.Subscriber,
) (*Module, error) {
	logger := obs.Logger
	if cfg.Telegram.Token == "" || cfg.Telegram.ReviewChatID == 0 {
		logger.WarnContext(ctx, "Telegram token or review chat not set, relay disabled")
		return &Module{logger: logger, disabled: true}, nil
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	api.Debug = false

	bot := telegram.NewBot(api, quest, media.NewLocalStore(cfg.Game.ProofsDir), cfg.Telegram.ReviewChatID, logger)

	relay := relayservice.NewRelay(quest, bot, relayservice.Config{
		ChatID:          cfg.Telegram.ReviewChatID,
		PollInterval:    cfg.Relay.PollInterval,
		BackoffBase:     cfg.Relay.BackoffBase,
		BackoffMax:      cfg.Relay.BackoffMax,
		BackoffSleepCap: cfg.Relay.BackoffSleepCap,
		SeenCapacity:    cfg.Relay.SeenCapacity,
		SeenRetain:      cfg.Relay.SeenRetain,
		SendRate:        cfg.Relay.SendRate,
	}, logger, obs.Metrics, obs.Tracer)

	rr := relayrouter.NewRelayRouter(logger, router, subscriber, obs.Registry)
	rr.Configure(relayservice.NewNotifier(bot, cfg.Relay.SendRate, logger))

	logger.InfoContext(ctx, "Relay module initialized", attr.String("bot", api.Self.UserName))

	return &Module{
		relay:  relay,
		router: rr,
		bot:    bot,
		api:    api,
		logger: logger,
	}, nil
}

// Run starts the relay loop and the review chat update loop. The watermill
// router is run by the app.
func (m *Module) Run(ctx context.Context) {
	if m.disabled {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.relay.Start(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := m.api.GetUpdatesChan(u)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.bot.Run(ctx, updates); err != nil && ctx.Err() == nil {
			m.logger.ErrorContext(ctx, "Telegram update loop stopped", attr.Error(err))
		}
	}()
}

// Close stops the relay first so no card is sent after the app starts
// tearing down its dependencies.
func (m *Module) Close(ctx context.Context) error {
	if m.disabled {
		return nil
	}
	err := m.relay.Stop(ctx)
	m.api.StopReceivingUpdates()
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.InfoContext(ctx, "Relay module stopped")
	return err
}

// Enabled reports whether the relay registered handlers and will run.
func (m *Module) Enabled() bool {
	return !m.disabled
}
