// Package router decides how the bot answers each inbound message: moderation
// gate first, then commands, then the matching cascade over a freshly loaded
// catalog.
package router

import (
	"context"
	"log/slog"
	"strings"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/catalog"
	"chanfinder/pkg/channel"
	"chanfinder/pkg/match"
	"chanfinder/pkg/moderation"
	"chanfinder/pkg/render"
)

// Options carries router settings that come from configuration.
type Options struct {
	// AdminUserIDs may edit the catalog from chat.
	AdminUserIDs []string
}

// Router is the per-process engine instance handed to every adapter.
type Router struct {
	store      *catalog.Store
	engine     *match.Engine
	moderation *moderation.State
	bus        *bus.MessageBus
	admins     map[string]struct{}
	log        *slog.Logger
}

// New wires a router. bus may be nil when nobody observes routing events.
func New(store *catalog.Store, engine *match.Engine, mod *moderation.State, mb *bus.MessageBus, opts Options, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	if engine == nil {
		engine = match.New()
	}
	if mod == nil {
		mod = moderation.New()
	}

	admins := make(map[string]struct{}, len(opts.AdminUserIDs))
	for _, id := range opts.AdminUserIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			admins[trimmed] = struct{}{}
		}
	}

	return &Router{
		store:      store,
		engine:     engine,
		moderation: mod,
		bus:        mb,
		admins:     admins,
		log:        log.With("component", "router"),
	}
}

// Moderation exposes the moderation state, mainly for status reporting.
func (r *Router) Moderation() *moderation.State {
	return r.moderation
}

// Handle implements channel.Handler. An empty outbound message means the
// inbound message is left unanswered.
func (r *Router) Handle(ctx context.Context, roles channel.RoleChecker, msg bus.InboundMessage) (bus.OutboundMessage, error) {
	requestID := bus.NewRequestID()

	if r.moderation.ShouldSuppress(msg) {
		r.log.Info("Suppressing automated message", "chat_id", msg.ChatID, "sender_id", msg.SenderID, "request_id", requestID)
		r.publish(ctx, bus.EventMessageSuppressed, msg, requestID, nil)
		return bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, ReplyTo: msg.MessageID, Delete: true}, nil
	}
	if msg.FromSelf {
		return bus.OutboundMessage{}, nil
	}

	switch msg.Kind {
	case bus.InboundMemberJoined:
		return r.reply(msg, memberWelcomeText(msg.SenderName), nil), nil
	case bus.InboundBotJoined:
		return r.reply(msg, botWelcomeText, nil), nil
	case bus.InboundCallback:
		return r.handleCallback(ctx, msg, requestID), nil
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return bus.OutboundMessage{}, nil
	}
	if strings.HasPrefix(content, "/") {
		return r.handleCommand(ctx, roles, msg, requestID), nil
	}

	return r.route(ctx, msg, requestID), nil
}

// route runs the matching cascade against the current catalog.
func (r *Router) route(ctx context.Context, msg bus.InboundMessage, requestID string) bus.OutboundMessage {
	cat := r.store.LoadAll(ctx)

	decision, ok := r.engine.Match(msg.Content, cat)
	if !ok {
		r.log.Debug("No response matched", "chat_id", msg.ChatID, "request_id", requestID)
		r.publish(ctx, bus.EventRouteMissed, msg, requestID, nil)
		return bus.OutboundMessage{}
	}

	r.log.Info("Response matched",
		"chat_id", msg.ChatID,
		"request_id", requestID,
		"strategy", decision.Strategy,
		"name", decision.Name,
		"trigger", decision.Trigger,
	)
	r.publish(ctx, bus.EventRouteMatched, msg, requestID, map[string]string{
		bus.PayloadStrategy: string(decision.Strategy),
		bus.PayloadName:     decision.Name,
	})

	payload := render.Render(decision.Name, decision.Definition)
	out := r.reply(msg, payload.Text, payload.Rows)
	out.Metadata = map[string]string{
		bus.PayloadStrategy: string(decision.Strategy),
		bus.PayloadName:     decision.Name,
	}
	return out
}

func (r *Router) reply(msg bus.InboundMessage, text string, rows [][]render.Button) bus.OutboundMessage {
	return bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		ReplyTo: msg.MessageID,
		Content: text,
		Buttons: rows,
	}
}

func (r *Router) publish(ctx context.Context, eventType bus.EventType, msg bus.InboundMessage, requestID string, payload map[string]string) {
	if r.bus == nil {
		return
	}
	r.bus.PublishEvent(ctx, bus.Event{
		Type:      eventType,
		Channel:   msg.Channel,
		ChatID:    msg.ChatID,
		RequestID: requestID,
		Payload:   payload,
	})
}

func (r *Router) isOwner(userID string) bool {
	_, ok := r.admins[strings.TrimSpace(userID)]
	return ok
}
