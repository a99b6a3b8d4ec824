package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/channel"
	"chanfinder/pkg/config"
)

const channelName = "telegram"
const messagePreviewLimit = 240
const maxConcurrentUpdates = 8

// Adapter bridges Telegram updates into the router.
type Adapter struct {
	cfg       config.TelegramConfig
	allowFrom map[string]struct{}
	commands  []channel.Command
	events    *bus.MessageBus
	log       *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithCommands registers the command menu shown by Telegram clients.
func WithCommands(commands []channel.Command) Option {
	return func(a *Adapter) {
		a.commands = commands
	}
}

// WithEvents publishes delivery failures on mb.
func WithEvents(mb *bus.MessageBus) Option {
	return func(a *Adapter) {
		a.events = mb
	}
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger, opts ...Option) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	a := &Adapter{
		cfg:       cfg,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and forwards updates through handler
// until ctx ends.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	botOpts, err := a.botOptions()
	if err != nil {
		return err
	}

	bot, err := telego.NewBot(strings.TrimSpace(a.cfg.Token), botOpts...)
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}

	me, err := bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot identity: %w", err)
	}

	a.registerCommands(ctx, bot)

	updates, err := bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started", "username", me.Username, "bot_id", me.ID)
	return a.serve(ctx, bot, me.ID, updates, handler)
}

// serve dispatches updates to handler and delivers each reply. Messages of
// one chat are handled in order; different chats run concurrently.
func (a *Adapter) serve(ctx context.Context, api botAPI, selfID int64, updates <-chan telego.Update, handler channel.Handler) error {
	ttl := time.Duration(a.cfg.RoleCacheSeconds) * time.Second
	roles := newRoleChecker(api, a.cfg.RoleCacheSize, ttl)
	out := newSender(api, a.cfg.RateLimitPerSecond, a.cfg.RateLimitBurst, a.log)
	out.onFail = a.publishFailure

	d := newDispatcher(maxConcurrentUpdates, func(inbound bus.InboundMessage) {
		a.process(ctx, roles, out, inbound, handler)
	})

	for {
		select {
		case <-ctx.Done():
			d.wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				d.wait()
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			for _, inbound := range toInbound(update, selfID) {
				if !inbound.IsAutomated && !a.senderAllowed(inbound.SenderID) {
					a.log.Debug("Ignoring message from unauthorized sender", "sender_id", inbound.SenderID)
					continue
				}
				d.submit(inbound)
			}
		}
	}
}

func (a *Adapter) process(ctx context.Context, roles channel.RoleChecker, out *sender, inbound bus.InboundMessage, handler channel.Handler) {
	chatID, err := strconv.ParseInt(inbound.ChatID, 10, 64)
	if err != nil {
		a.log.Error("Invalid chat id", "chat_id", inbound.ChatID, "error", err)
		return
	}

	a.log.Debug("Received message",
		"chat_id", inbound.ChatID,
		"sender_id", inbound.SenderID,
		"kind", inbound.Kind,
		"content", previewText(inbound.Content),
	)

	outbound, err := handler(ctx, roles, inbound)
	if err != nil {
		a.log.Error("Failed to process inbound message", "error", err)
		outbound = bus.OutboundMessage{ReplyTo: inbound.MessageID, Error: err.Error()}
	}

	out.deliver(ctx, chatID, inbound, outbound)
}

func (a *Adapter) publishFailure(chatID string, err error) {
	if a.events == nil {
		return
	}
	a.events.PublishEvent(context.Background(), bus.Event{
		Type:    bus.EventDeliveryFailed,
		Channel: channelName,
		ChatID:  chatID,
		Error:   err.Error(),
	})
}

func (a *Adapter) botOptions() ([]telego.BotOption, error) {
	proxy := strings.TrimSpace(a.cfg.Proxy)
	if proxy == "" {
		return nil, nil
	}

	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", proxy, err)
	}
	return []telego.BotOption{
		telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}),
	}, nil
}

// registerCommands publishes the command menu. Failure only costs the menu.
func (a *Adapter) registerCommands(ctx context.Context, bot *telego.Bot) {
	if len(a.commands) == 0 {
		return
	}

	commands := make([]telego.BotCommand, 0, len(a.commands))
	for _, c := range a.commands {
		commands = append(commands, telego.BotCommand{Command: c.Name, Description: c.Description})
	}
	if err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		a.log.Warn("Failed to register bot commands", "error", err)
	}
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)

	runes := []rune(trimmed)
	if len(runes) <= messagePreviewLimit {
		return trimmed
	}

	return string(runes[:messagePreviewLimit]) + "..."
}
