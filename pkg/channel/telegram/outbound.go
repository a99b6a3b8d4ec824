package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"chanfinder/pkg/bus"
	"chanfinder/pkg/render"
)

// botAPI is the subset of the Bot API the adapter calls. *telego.Bot
// satisfies it.
type botAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)
}

// sender delivers router replies, pacing sends per chat.
type sender struct {
	api   botAPI
	limit rate.Limit
	burst int
	log   *slog.Logger

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	onFail   func(chatID string, err error)
}

func newSender(api botAPI, perSecond float64, burst int, log *slog.Logger) *sender {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}

	return &sender{
		api:      api,
		limit:    limit,
		burst:    burst,
		log:      log,
		limiters: make(map[int64]*rate.Limiter),
	}
}

func (s *sender) limiter(chatID int64) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[chatID] = l
	}
	return l
}

// deliver performs whatever out asks for in chatID. Failures are logged and
// reported through onFail; they never stop the adapter.
func (s *sender) deliver(ctx context.Context, chatID int64, in bus.InboundMessage, out bus.OutboundMessage) {
	if callbackID := in.Metadata[metaCallbackID]; callbackID != "" {
		// Every callback is acknowledged so the client stops its spinner.
		params := &telego.AnswerCallbackQueryParams{CallbackQueryID: callbackID, Text: out.Notice}
		if err := s.api.AnswerCallbackQuery(ctx, params); err != nil {
			s.fail(chatID, "Failed to answer callback query", err)
		}
	}

	switch {
	case out.Delete:
		err := s.api.DeleteMessage(ctx, &telego.DeleteMessageParams{ChatID: tu.ID(chatID), MessageID: out.ReplyTo})
		if err != nil {
			s.fail(chatID, "Failed to delete message", err)
		}
		return
	case out.Content == "" && out.Error == "":
		return
	case out.EditMessageID != 0:
		s.edit(ctx, chatID, out)
		return
	}

	text := out.Content
	if text == "" {
		text = out.Error
	}

	chunks := render.ChunkText(text, render.MaxMessageRunes)
	for i, chunk := range chunks {
		var markup *telego.InlineKeyboardMarkup
		if i == len(chunks)-1 {
			markup = keyboard(out.Buttons)
		}
		replyTo := 0
		if i == 0 {
			replyTo = out.ReplyTo
		}
		if !s.send(ctx, chatID, replyTo, chunk, markup) {
			return
		}
	}
}

// send replies to replyTo, falling back once to a plain send when the reply
// is rejected (for example because the original message is gone).
func (s *sender) send(ctx context.Context, chatID int64, replyTo int, text string, markup *telego.InlineKeyboardMarkup) bool {
	if err := s.limiter(chatID).Wait(ctx); err != nil {
		return false
	}

	params := tu.Message(tu.ID(chatID), text)
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if replyTo != 0 {
		params.ReplyParameters = &telego.ReplyParameters{MessageID: replyTo}
	}

	s.log.Info("Sending message", "chat_id", chatID, "reply_to", replyTo, "content", previewText(text))
	_, err := s.api.SendMessage(ctx, params)
	if err == nil {
		return true
	}
	if replyTo == 0 {
		s.fail(chatID, "Failed to send telegram message", err)
		return false
	}

	s.log.Warn("Reply failed, sending without reply reference", "chat_id", chatID, "error", err)
	params.ReplyParameters = nil
	if _, err := s.api.SendMessage(ctx, params); err != nil {
		s.fail(chatID, "Failed to send telegram message", err)
		return false
	}
	return true
}

func (s *sender) edit(ctx context.Context, chatID int64, out bus.OutboundMessage) {
	if err := s.limiter(chatID).Wait(ctx); err != nil {
		return
	}

	text := out.Content
	if chunks := render.ChunkText(text, render.MaxMessageRunes); len(chunks) > 1 {
		text = chunks[0]
	}

	_, err := s.api.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:      tu.ID(chatID),
		MessageID:   out.EditMessageID,
		Text:        text,
		ReplyMarkup: keyboard(out.Buttons),
	})
	if err != nil {
		s.fail(chatID, "Failed to edit message", err)
	}
}

func (s *sender) fail(chatID int64, msg string, err error) {
	s.log.Error(msg, "chat_id", chatID, "error", err)
	if s.onFail != nil {
		s.onFail(strconv.FormatInt(chatID, 10), err)
	}
}

// keyboard converts rendered rows into an inline keyboard. Link buttons open
// their URL; placeholders carry their token as callback data.
func keyboard(rows [][]render.Button) *telego.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	out := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			button := telego.InlineKeyboardButton{Text: b.Label}
			if b.IsLink() {
				button.URL = b.URL
			} else {
				button.CallbackData = b.Token
			}
			buttons = append(buttons, button)
		}
		out = append(out, buttons)
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: out}
}
