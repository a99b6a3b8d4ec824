package logger

import (
	"context"
	"log/slog"
	"regexp"
)

// botToken matches a Telegram bot token, "<bot id>:<35 char secret>". Telego
// errors carry it inside request URLs.
var botToken = regexp.MustCompile(`\d{5,}:[A-Za-z0-9_-]{30,}`)

const tokenMask = "<bot-token>"

// Redact masks bot tokens in s.
func Redact(s string) string {
	return botToken.ReplaceAllString(s, tokenMask)
}

// redactHandler rewrites messages and string or error attributes before they
// reach next.
type redactHandler struct {
	next slog.Handler
}

func (h redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h redactHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, Redact(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(redactAttr(attr))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		clean[i] = redactAttr(attr)
	}
	return redactHandler{next: h.next.WithAttrs(clean)}
}

func (h redactHandler) WithGroup(name string) slog.Handler {
	return redactHandler{next: h.next.WithGroup(name)}
}

func redactAttr(attr slog.Attr) slog.Attr {
	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, Redact(value.String()))
	case slog.KindGroup:
		group := value.Group()
		clean := make([]any, len(group))
		for i, item := range group {
			clean[i] = redactAttr(item)
		}
		return slog.Group(attr.Key, clean...)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(attr.Key, Redact(err.Error()))
		}
	}
	return slog.Attr{Key: attr.Key, Value: value}
}
