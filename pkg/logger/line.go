package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Entry is one json log line. Component and the chat a record concerns are
// lifted out of Fields so lines can be filtered per chat.
type Entry struct {
	Level     string         `json:"level"`
	Timestamp string         `json:"timestamp"`
	Component string         `json:"component"`
	ChatID    string         `json:"chat_id,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Caller    string         `json:"caller,omitempty"`
}

type lineHandler struct {
	level     slog.Level
	addSource bool
	attrs     []slog.Attr
	prefix    string

	mu *sync.Mutex
	w  io.Writer
}

func newLineHandler(w io.Writer, level slog.Level, addSource bool) *lineHandler {
	return &lineHandler{level: level, addSource: addSource, mu: &sync.Mutex{}, w: w}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *lineHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	entry := Entry{
		Level:     strings.ToLower(record.Level.String()),
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Component: DefaultComponent,
		Message:   record.Message,
		Fields:    map[string]any{},
	}

	for _, attr := range h.attrs {
		entry.add(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		entry.add(h.qualify(attr))
		return true
	})
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}
	if h.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		if frame.File != "" {
			entry.Caller = fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
		}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(append(line, '\n'))
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, attr := range attrs {
		next.attrs = append(next.attrs, h.qualify(attr))
	}
	return &next
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *lineHandler) qualify(attr slog.Attr) slog.Attr {
	attr.Key = h.prefix + attr.Key
	return attr
}

func (e *Entry) add(attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	switch attr.Key {
	case "component":
		if s, ok := attr.Value.Any().(string); ok && s != "" {
			e.Component = s
			return
		}
	case "chat_id":
		e.ChatID = attr.Value.String()
		return
	}
	e.Fields[attr.Key] = plain(attr.Value)
}

// plain converts v into something encoding/json renders readably.
func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindGroup:
		out := make(map[string]any, len(v.Group()))
		for _, item := range v.Group() {
			out[item.Key] = plain(item.Value.Resolve())
		}
		return out
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.Any()
	}
}
