package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultService = "ledger"

// Config selects the level and encoding of process logs.
type Config struct {
	Level   string // trace, debug, info, warn, error
	Format  string // json, console
	Service string // defaults to "ledger"
}

func New(cfg Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter builds the root logger. Every entry carries a timestamp and
// the service name so ledger logs can be told apart from the order service.
func NewWithWriter(cfg Config, w io.Writer) zerolog.Logger {
	output := w
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	service := cfg.Service
	if service == "" {
		service = defaultService
	}

	return zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Component tags a child logger for a background worker such as the outbox
// relay or the payment sweeper.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// parseLevel falls back to info for empty or unknown levels. Levels above
// error would silence failed settlements and are not accepted.
func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel || lvl > zerolog.ErrorLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
