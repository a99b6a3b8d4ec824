package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/catalog"
	"chanfinder/pkg/match"
	"chanfinder/pkg/render"
)

func animeToken(name string) string {
	return callbackAnimePref + strings.ReplaceAll(name, " ", "_")
}

// handleCallback answers a button press. Menu navigation edits the message
// that carried the buttons; option buttons only get a notice. The transport
// acknowledges every callback whether or not a notice is set.
func (r *Router) handleCallback(ctx context.Context, msg bus.InboundMessage, requestID string) bus.OutboundMessage {
	token := strings.TrimSpace(msg.Content)

	switch token {
	case callbackAnimeList:
		return r.edit(msg, match.AnimeListText(), [][]render.Button{backButton(callbackBackToMenu, "Back to Menu")})
	case callbackMovieList:
		return r.edit(msg, movieListText, [][]render.Button{backButton(callbackBackToMenu, "Back to Menu")})
	case callbackPopular:
		return r.edit(msg, "Popular anime channels:", popularButtons())
	case callbackHelp:
		return r.edit(msg, helpText, [][]render.Button{backButton(callbackBackToMenu, "Back to Menu")})
	case callbackBackToMenu:
		return r.edit(msg, menuText, menuButtons())
	}

	if rest, ok := strings.CutPrefix(token, render.OptionPrefix); ok {
		index, err := strconv.Atoi(rest)
		if err != nil || index < 0 {
			return r.notice(msg, "Unknown option")
		}
		return r.notice(msg, fmt.Sprintf("You selected option %d", index+1))
	}

	if rest, ok := strings.CutPrefix(token, callbackAnimePref); ok {
		return r.showAnime(ctx, msg, strings.ReplaceAll(rest, "_", " "), requestID)
	}

	r.log.Debug("Ignoring unknown callback", "token", token, "chat_id", msg.ChatID)
	return r.notice(msg, "")
}

func (r *Router) showAnime(ctx context.Context, msg bus.InboundMessage, name string, requestID string) bus.OutboundMessage {
	name = catalog.NormalizeName(name)
	def, ok := r.store.LoadAll(ctx)[name]
	back := backButton(callbackPopular, "Back")
	if !ok {
		return r.edit(msg, fmt.Sprintf("Sorry, no channel is listed for '%s' yet.", name), [][]render.Button{back})
	}

	r.publish(ctx, bus.EventRouteMatched, msg, requestID, map[string]string{
		bus.PayloadStrategy: "menu",
		bus.PayloadName:     name,
	})

	payload := render.Render(name, def)
	return r.edit(msg, payload.Text, append(payload.Rows, back))
}

func (r *Router) edit(msg bus.InboundMessage, text string, rows [][]render.Button) bus.OutboundMessage {
	out := r.reply(msg, text, rows)
	out.ReplyTo = 0
	out.EditMessageID = msg.MessageID
	return out
}

// notice acknowledges the button press with a short toast and no message.
func (r *Router) notice(msg bus.InboundMessage, text string) bus.OutboundMessage {
	return bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Notice:  text,
	}
}
