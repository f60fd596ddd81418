// Package logger builds the zerolog loggers used across the service.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName tags every record written by loggers from New.
const ServiceName = "fake-bank"

// Options configures a logger.
type Options struct {
	Level  string    // debug, info, warn, error; anything else means info
	Pretty bool      // console output instead of JSON
	Caller bool      // attach file:line
	Out    io.Writer // defaults to stdout
}

// New creates the process logger from the log level and pretty flag in config.
func New(level string, pretty bool) zerolog.Logger {
	return Build(Options{Level: level, Pretty: pretty, Caller: true})
}

// Build creates a logger from opts.
func Build(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("service", ServiceName)
	if opts.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// Component returns a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
