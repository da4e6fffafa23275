// Package logging builds the process logger and request-scoped loggers.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/solatis/couponkeeper/internal/types"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options configures New.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Out    io.Writer // nil: stderr
}

// New returns the root logger. Text output goes through zerolog's
// ConsoleWriter.
func New(opts Options) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var w io.Writer
	switch strings.ToLower(opts.Format) {
	case "", FormatJSON:
		w = out
	case FormatText:
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (want json or text)", opts.Format)
	}

	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", "couponkeeper").
		Logger(), nil
}

// ParseLevel maps a flag value to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// WithRequest derives a logger tagged with a fresh request_id and stores it
// in ctx. Handlers read it back with zerolog.Ctx.
func WithRequest(ctx context.Context, base zerolog.Logger) (context.Context, zerolog.Logger, string) {
	id := types.NewRequestID()
	logger := base.With().Str("request_id", id).Logger()
	return logger.WithContext(ctx), logger, id
}
