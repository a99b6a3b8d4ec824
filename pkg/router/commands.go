package router

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/catalog"
	"chanfinder/pkg/channel"
	"chanfinder/pkg/match"
	"chanfinder/pkg/render"
)

// Commands lists the commands shown in the client's command menu.
func Commands() []channel.Command {
	return []channel.Command{
		{Name: "start", Description: "Show the welcome message"},
		{Name: "help", Description: "Show help information"},
		{Name: "anime", Description: "Show all anime channels"},
		{Name: "movie", Description: "Show all anime movies"},
		{Name: "command", Description: "Show all available commands"},
		{Name: "checkall", Description: "Show all responses with links (group admins)"},
		{Name: "ad", Description: "Turn ad deletion on or off (group admins)"},
	}
}

// parseCommand splits "/name@bot args" into its lower-cased name and the raw
// argument text.
func parseCommand(content string) (string, string) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(content), "/")
	head, args, _ := strings.Cut(trimmed, " ")
	if nl := strings.IndexByte(head, '\n'); nl >= 0 {
		head, args = head[:nl], head[nl+1:]+" "+args
	}
	name, _, _ := strings.Cut(head, "@")
	return strings.ToLower(name), strings.TrimSpace(args)
}

func (r *Router) handleCommand(ctx context.Context, roles channel.RoleChecker, msg bus.InboundMessage, requestID string) bus.OutboundMessage {
	name, args := parseCommand(msg.Content)

	var out bus.OutboundMessage
	switch name {
	case "start":
		out = r.reply(msg, startText(msg.SenderName), menuButtons())
	case "help":
		out = r.reply(msg, helpText, nil)
	case "anime":
		out = r.reply(msg, match.AnimeListText(), nil)
	case "movie":
		out = r.reply(msg, movieListText, nil)
	case "command":
		out = r.reply(msg, commandText, nil)
	case "checkall":
		out = r.checkAll(ctx, roles, msg)
	case "ad":
		out = r.toggleAds(ctx, roles, msg, args, requestID)
	case "filter":
		out = r.addFilter(ctx, msg, args, requestID)
	case "unfilter":
		out = r.removeFilter(ctx, msg, args, requestID)
	default:
		r.log.Debug("Ignoring unknown command", "command", name, "chat_id", msg.ChatID)
		return bus.OutboundMessage{}
	}

	r.publish(ctx, bus.EventCommandHandled, msg, requestID, map[string]string{bus.PayloadCommand: name})
	return out
}

// requireGroupAdmin returns a refusal reply when the sender may not run a
// group admin command.
func (r *Router) requireGroupAdmin(ctx context.Context, roles channel.RoleChecker, msg bus.InboundMessage) (bus.OutboundMessage, bool) {
	if !msg.ConversationKind.IsGroup() {
		return r.reply(msg, groupOnlyText, nil), false
	}
	if roles == nil {
		return r.reply(msg, adminOnlyText, nil), false
	}

	elevated, err := roles.IsElevated(ctx, msg.ChatID, msg.SenderID)
	if err != nil {
		r.log.Warn("Role check failed", "chat_id", msg.ChatID, "sender_id", msg.SenderID, "error", err)
		return r.reply(msg, roleCheckFailText, nil), false
	}
	if !elevated {
		return r.reply(msg, adminOnlyText, nil), false
	}

	return bus.OutboundMessage{}, true
}

func (r *Router) toggleAds(ctx context.Context, roles channel.RoleChecker, msg bus.InboundMessage, args string, requestID string) bus.OutboundMessage {
	if refusal, ok := r.requireGroupAdmin(ctx, roles, msg); !ok {
		return refusal
	}

	fields := strings.Fields(args)
	if len(fields) == 0 {
		return r.reply(msg, adMissingArgText, nil)
	}

	var enabled bool
	switch strings.ToLower(fields[0]) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return r.reply(msg, adUsageText, nil)
	}

	r.moderation.Set(msg.ChatID, enabled)
	r.log.Info("Moderation changed", "chat_id", msg.ChatID, "enabled", enabled, "by", msg.SenderID)
	r.publish(ctx, bus.EventModerationChanged, msg, requestID, map[string]string{bus.PayloadEnabled: fmt.Sprint(enabled)})

	if enabled {
		return r.reply(msg, adEnabledText, nil)
	}
	return r.reply(msg, adDisabledText, nil)
}

var titleCaser = cases.Title(language.Und)

// checkAll lists every response carrying links. The transport splits long
// listings into several messages.
func (r *Router) checkAll(ctx context.Context, roles channel.RoleChecker, msg bus.InboundMessage) bus.OutboundMessage {
	if refusal, ok := r.requireGroupAdmin(ctx, roles, msg); !ok {
		return refusal
	}

	cat, err := r.store.Load(ctx)
	if err != nil {
		r.log.Error("Failed to load catalog for listing", "error", err)
		return r.reply(msg, catalogErrorText, nil)
	}

	names := make([]string, 0, len(cat))
	for name := range cat {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString(checkAllHeader)
	for _, name := range names {
		for _, link := range cat[name].ButtonLinks {
			fmt.Fprintf(&b, "• %s\n  Link: %s\n\n", titleCaser.String(name), link.URL)
		}
	}

	return r.reply(msg, b.String(), nil)
}

// parseFilter reads "<name> | <content> | <label> = <url>; <label> = <url>".
// Content may span lines; the link section is optional.
func parseFilter(args string) (string, catalog.Definition, error) {
	parts := strings.SplitN(args, "|", 3)
	if len(parts) < 2 {
		return "", catalog.Definition{}, fmt.Errorf("missing content")
	}

	name := catalog.NormalizeName(parts[0])
	content := strings.TrimSpace(parts[1])
	if name == "" || content == "" {
		return "", catalog.Definition{}, fmt.Errorf("name and content are required")
	}

	var links catalog.Links
	if len(parts) == 3 {
		for _, pair := range strings.Split(parts[2], ";") {
			if strings.TrimSpace(pair) == "" {
				continue
			}
			label, url, ok := strings.Cut(pair, "=")
			label, url = strings.TrimSpace(label), strings.TrimSpace(url)
			if !ok || label == "" || url == "" {
				return "", catalog.Definition{}, fmt.Errorf("link %q must look like <label> = <url>", strings.TrimSpace(pair))
			}
			links = append(links, catalog.Link{Label: label, URL: url})
		}
	}

	return name, catalog.NewDefinition(content, links), nil
}

func (r *Router) addFilter(ctx context.Context, msg bus.InboundMessage, args string, requestID string) bus.OutboundMessage {
	if !r.isOwner(msg.SenderID) {
		return r.reply(msg, ownerOnlyText, nil)
	}

	name, def, err := parseFilter(args)
	if err != nil {
		return r.reply(msg, filterUsageText+"\n("+err.Error()+")", nil)
	}

	if err := r.store.Upsert(ctx, name, def); err != nil {
		r.log.Error("Failed to save response", "name", name, "error", err)
		return r.reply(msg, fmt.Sprintf("Could not save '%s': %s", name, catalog.CategoryFromError(err)), nil)
	}

	r.publish(ctx, bus.EventCatalogChanged, msg, requestID, map[string]string{bus.PayloadName: name})
	preview := render.Render(name, def)
	return r.reply(msg, fmt.Sprintf("Saved '%s'. Preview:\n\n%s", name, preview.Text), preview.Rows)
}

func (r *Router) removeFilter(ctx context.Context, msg bus.InboundMessage, args string, requestID string) bus.OutboundMessage {
	if !r.isOwner(msg.SenderID) {
		return r.reply(msg, ownerOnlyText, nil)
	}

	name := catalog.NormalizeName(args)
	if name == "" {
		return r.reply(msg, unfilterUsageText, nil)
	}

	removed, err := r.store.Remove(ctx, name)
	if err != nil {
		r.log.Error("Failed to remove response", "name", name, "error", err)
		return r.reply(msg, fmt.Sprintf("Could not remove '%s': %s", name, catalog.CategoryFromError(err)), nil)
	}
	if !removed {
		return r.reply(msg, fmt.Sprintf("No response named '%s'.", name), nil)
	}

	r.publish(ctx, bus.EventCatalogChanged, msg, requestID, map[string]string{bus.PayloadName: name})
	return r.reply(msg, fmt.Sprintf("Removed '%s'.", name), nil)
}
