// Package logger provides a thin wrapper around zerolog.Logger used across
// the tally server.
//
// The Logger type embeds zerolog.Logger so the full zerolog API (Trace,
// Debug, Info, Warn, Error, etc.) is available directly. Components receive a
// *Logger at construction time; component loggers are derived with Component.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger so helper constructors can be added without
// touching the upstream type.
type Logger struct {
	zerolog.Logger
}

// New constructs a *Logger writing JSON to w at the given level.
//
// Callers choose the writer per transport: the stdio transport must log to
// stderr because stdout carries the protocol stream.
func New(w io.Writer, level zerolog.Level) *Logger {
	l := zerolog.New(w).Level(level).With().
		Timestamp().
		Logger()
	return &Logger{l}
}

// NewStderr constructs a production logger writing to stderr.
func NewStderr(level zerolog.Level) *Logger {
	return New(os.Stderr, level)
}

// Nop returns a *Logger that discards all output. Intended for tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// Component returns a child logger tagged with a component name, useful for
// filtering logs from different parts of the server.
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.Logger.With().Str("component", name).Logger()}
}

// ParseLevel maps the user-facing level names (trace, debug, info, warn,
// error) to zerolog levels. Unrecognized values fall back to info rather than
// failing startup.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
