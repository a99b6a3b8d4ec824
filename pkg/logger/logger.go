// Package logger builds the process-wide slog.Logger. Text output goes
// through charmbracelet/log; the json format writes one Entry per line for
// log shippers. Both formats mask Telegram bot tokens.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmLog "github.com/charmbracelet/log"

	"chanfinder/pkg/config"
)

// DefaultComponent tags records logged before any component was attached.
const DefaultComponent = "chanfinder"

const (
	envFormat    = "CHANFINDER_LOG_FORMAT"
	envLevel     = "CHANFINDER_LOG_LEVEL"
	envAddSource = "CHANFINDER_LOG_ADD_SOURCE"
)

type settings struct {
	json      bool
	level     slog.Level
	addSource bool
}

// New logs to stderr.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	return newWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit destination, used by the local chat
// UI to keep logs off the terminal it draws on.
func NewWithWriter(cfg config.LoggingConfig, writer io.Writer) (*slog.Logger, error) {
	return newWithWriter(cfg, writer)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newWithWriter(cfg config.LoggingConfig, writer io.Writer) (*slog.Logger, error) {
	s, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	var h slog.Handler
	if s.json {
		h = newLineHandler(writer, s.level, s.addSource)
	} else {
		h = charmLog.NewWithOptions(writer, charmLog.Options{
			Level:           charmLevel(s.level),
			ReportTimestamp: true,
			ReportCaller:    s.addSource,
			Formatter:       charmLog.TextFormatter,
		})
	}

	return slog.New(redactHandler{next: h}), nil
}

// resolve merges cfg with the CHANFINDER_LOG_* environment, which wins.
func resolve(cfg config.LoggingConfig) (settings, error) {
	format := envOr(envFormat, cfg.Format)
	var s settings
	switch format {
	case "", "text":
	case "json":
		s.json = true
	default:
		return settings{}, fmt.Errorf("unsupported log format %q", format)
	}

	level, err := parseLevel(envOr(envLevel, cfg.Level))
	if err != nil {
		return settings{}, err
	}
	s.level = level

	s.addSource = cfg.AddSource
	if v := envOr(envAddSource, ""); v != "" {
		s.addSource = v == "1" || v == "true" || v == "yes" || v == "on"
	}
	return s, nil
}

func envOr(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.ToLower(v)
	}
	return strings.ToLower(strings.TrimSpace(fallback))
}

func parseLevel(text string) (slog.Level, error) {
	switch text {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unsupported log level %q", text)
}

func charmLevel(level slog.Level) charmLog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmLog.DebugLevel
	case level <= slog.LevelInfo:
		return charmLog.InfoLevel
	case level <= slog.LevelWarn:
		return charmLog.WarnLevel
	default:
		return charmLog.ErrorLevel
	}
}
