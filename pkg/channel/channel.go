package channel

import (
	"context"

	"chanfinder/pkg/bus"
)

// RoleChecker reports whether a user holds an elevated role (creator or
// administrator) in a conversation.
type RoleChecker interface {
	IsElevated(ctx context.Context, chatID string, userID string) (bool, error)
}

// RoleCheckerFunc adapts a function to RoleChecker.
type RoleCheckerFunc func(ctx context.Context, chatID string, userID string) (bool, error)

func (f RoleCheckerFunc) IsElevated(ctx context.Context, chatID string, userID string) (bool, error) {
	return f(ctx, chatID, userID)
}

// Handler processes one inbound channel message and returns an outbound reply.
// roles answers membership questions against the originating transport.
type Handler func(ctx context.Context, roles RoleChecker, msg bus.InboundMessage) (bus.OutboundMessage, error)

// Command is a slash command a transport may advertise to its users.
type Command struct {
	Name        string
	Description string
}

// Adapter bridges one external transport (for example Telegram) into the router.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
