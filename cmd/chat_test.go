package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/catalog"
	"chanfinder/pkg/channel"
	"chanfinder/pkg/logger"
	"chanfinder/pkg/router"
)

func TestResolveMessage(t *testing.T) {
	original := consoleOpts.message
	t.Cleanup(func() {
		consoleOpts.message = original
	})

	consoleOpts.message = " from-flag "
	if got := resolveMessage([]string{"from", "args"}); got != "from-flag" {
		t.Fatalf("resolveMessage with flag = %q, want %q", got, "from-flag")
	}

	consoleOpts.message = ""
	if got := resolveMessage([]string{"one", "piece"}); got != "one piece" {
		t.Fatalf("resolveMessage with args = %q, want %q", got, "one piece")
	}

	if got := resolveMessage(nil); got != "" {
		t.Fatalf("resolveMessage without input = %q, want empty", got)
	}
}

func TestConsoleRouteBuildsInboundMessages(t *testing.T) {
	t.Parallel()

	var seen []bus.InboundMessage
	var elevated []bool
	handle := func(ctx context.Context, roles channel.RoleChecker, msg bus.InboundMessage) (bus.OutboundMessage, error) {
		ok, err := roles.IsElevated(ctx, msg.ChatID, msg.SenderID)
		if err != nil {
			t.Fatalf("IsElevated: %v", err)
		}
		seen = append(seen, msg)
		elevated = append(elevated, ok)
		return bus.OutboundMessage{}, nil
	}

	route := consoleRoute(handle, consoleOptions{group: true, admin: true, senderID: "9"})
	for _, text := range []string{"naruto", "!show_popular", "!"} {
		if _, err := route(context.Background(), text); err != nil {
			t.Fatalf("route(%q): %v", text, err)
		}
	}

	if len(seen) != 3 {
		t.Fatalf("handler saw %d messages, want 3", len(seen))
	}
	if seen[0].Kind != bus.InboundText || seen[0].ConversationKind != bus.ConversationSupergroup || seen[0].SenderID != "9" {
		t.Fatalf("unexpected text message: %#v", seen[0])
	}
	if seen[1].Kind != bus.InboundCallback || seen[1].Content != "show_popular" {
		t.Fatalf("unexpected tap message: %#v", seen[1])
	}
	if seen[2].Kind != bus.InboundText {
		t.Fatalf("a bare prefix should stay text, got %#v", seen[2])
	}
	if seen[0].MessageID != 1 || seen[2].MessageID != 3 {
		t.Fatalf("message ids = %d..%d, want 1..3", seen[0].MessageID, seen[2].MessageID)
	}
	for i, ok := range elevated {
		if !ok {
			t.Fatalf("message %d was not elevated", i)
		}
	}
}

func TestConsoleRouteThroughRouter(t *testing.T) {
	t.Parallel()

	store, err := catalog.Open(catalog.BackendFile, filepath.Join(t.TempDir(), "filters.json"), logger.Discard())
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Upsert(ctx, "one piece", catalog.NewDefinition("https://t.me/onepiece", nil)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	r := router.New(store, nil, nil, nil, router.Options{}, logger.Discard())
	route := consoleRoute(r.Handle, consoleOptions{senderID: "1"})

	out, err := route(ctx, "where can I watch one piece")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if out.Content != "https://t.me/onepiece" {
		t.Fatalf("content = %q, want the one piece link", out.Content)
	}

	out, err = route(ctx, "/ad on")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if !strings.Contains(strings.ToLower(out.Content), "group") {
		t.Fatalf("/ad in a private console should be refused, got %q", out.Content)
	}
}

func TestConsoleSenderLabel(t *testing.T) {
	t.Parallel()

	got := consoleSenderLabel(consoleOptions{senderID: "5", bot: true, group: true})
	if got != "user 5 · bot · in group" {
		t.Fatalf("consoleSenderLabel = %q", got)
	}
}
