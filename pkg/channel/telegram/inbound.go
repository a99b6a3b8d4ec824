package telegram

import (
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"chanfinder/pkg/bus"
)

// Metadata keys attached to inbound messages.
const (
	metaUpdateID   = "update_id"
	metaCallbackID = "callback_query_id"
)

// toInbound maps one Telegram update to the messages the router should see.
// A service message announcing several new members yields one message per
// member. selfID is the bot's own user id.
func toInbound(update telego.Update, selfID int64) []bus.InboundMessage {
	if query := update.CallbackQuery; query != nil {
		if msg, ok := callbackInbound(update.UpdateID, query, selfID); ok {
			return []bus.InboundMessage{msg}
		}
		return nil
	}

	message := update.Message
	if message == nil || message.From == nil {
		return nil
	}

	base := bus.InboundMessage{
		Channel:          channelName,
		SenderID:         strconv.FormatInt(message.From.ID, 10),
		SenderName:       message.From.FirstName,
		ChatID:           strconv.FormatInt(message.Chat.ID, 10),
		ConversationKind: conversationKind(message.Chat.Type),
		MessageID:        message.MessageID,
		IsAutomated:      message.From.IsBot,
		FromSelf:         message.From.ID == selfID,
		Metadata:         map[string]string{metaUpdateID: strconv.Itoa(update.UpdateID)},
	}

	if len(message.NewChatMembers) > 0 {
		out := make([]bus.InboundMessage, 0, len(message.NewChatMembers))
		for _, member := range message.NewChatMembers {
			joined := base
			joined.SenderID = strconv.FormatInt(member.ID, 10)
			joined.SenderName = member.FirstName
			joined.IsAutomated = member.IsBot
			joined.FromSelf = false
			joined.Kind = bus.InboundMemberJoined
			if member.ID == selfID {
				joined.Kind = bus.InboundBotJoined
			}
			out = append(out, joined)
		}
		return out
	}

	content := strings.TrimSpace(message.Text)
	if content == "" && base.IsAutomated {
		// Promotional posts from other bots are often captioned media.
		content = strings.TrimSpace(message.Caption)
	}
	if content == "" {
		return nil
	}

	base.Content = content
	return []bus.InboundMessage{base}
}

func callbackInbound(updateID int, query *telego.CallbackQuery, selfID int64) (bus.InboundMessage, bool) {
	if query.Message == nil {
		return bus.InboundMessage{}, false
	}

	chat := query.Message.GetChat()
	return bus.InboundMessage{
		Channel:          channelName,
		Kind:             bus.InboundCallback,
		SenderID:         strconv.FormatInt(query.From.ID, 10),
		SenderName:       query.From.FirstName,
		ChatID:           strconv.FormatInt(chat.ID, 10),
		ConversationKind: conversationKind(chat.Type),
		MessageID:        query.Message.GetMessageID(),
		Content:          query.Data,
		FromSelf:         query.From.ID == selfID,
		Metadata: map[string]string{
			metaUpdateID:   strconv.Itoa(updateID),
			metaCallbackID: query.ID,
		},
	}, true
}

func conversationKind(chatType string) bus.ConversationKind {
	switch chatType {
	case telego.ChatTypeGroup:
		return bus.ConversationGroup
	case telego.ChatTypeSupergroup:
		return bus.ConversationSupergroup
	case telego.ChatTypeChannel:
		return bus.ConversationChannel
	default:
		return bus.ConversationPrivate
	}
}
