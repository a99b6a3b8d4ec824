package bus

import "chanfinder/pkg/render"

// ConversationKind classifies where a message was posted.
type ConversationKind string

const (
	ConversationPrivate    ConversationKind = "private"
	ConversationGroup      ConversationKind = "group"
	ConversationSupergroup ConversationKind = "supergroup"
	ConversationChannel    ConversationKind = "channel"
)

// IsGroup reports whether the conversation is a group chat.
func (k ConversationKind) IsGroup() bool {
	return k == ConversationGroup || k == ConversationSupergroup
}

// InboundKind distinguishes text messages from other inbound updates.
type InboundKind string

const (
	InboundText         InboundKind = ""
	InboundMemberJoined InboundKind = "member_joined"
	InboundBotJoined    InboundKind = "bot_joined"
	InboundCallback     InboundKind = "callback"
)

type InboundMessage struct {
	Channel          string            `json:"channel"`
	Kind             InboundKind       `json:"kind,omitempty"`
	SenderID         string            `json:"sender_id"`
	SenderName       string            `json:"sender_name,omitempty"`
	ChatID           string            `json:"chat_id"`
	ConversationKind ConversationKind  `json:"conversation_kind"`
	MessageID        int               `json:"message_id,omitempty"`
	Content          string            `json:"content"`
	IsAutomated      bool              `json:"is_automated,omitempty"`
	FromSelf         bool              `json:"from_self,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type OutboundMessage struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	// ReplyTo is the inbound message id the reply should thread under.
	ReplyTo int               `json:"reply_to,omitempty"`
	Content string            `json:"content"`
	Buttons [][]render.Button `json:"buttons,omitempty"`
	// Delete asks the transport to remove the inbound message instead of replying.
	Delete bool `json:"delete,omitempty"`
	// EditMessageID replaces the text and buttons of an earlier bot message.
	EditMessageID int `json:"edit_message_id,omitempty"`
	// Notice is a short acknowledgement shown for callback queries.
	Notice   string            `json:"notice,omitempty"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Empty reports whether there is nothing to deliver.
func (m OutboundMessage) Empty() bool {
	return !m.Delete && m.Content == "" && len(m.Buttons) == 0 && m.Notice == ""
}
