// Package config parses tallyd configuration from environment variables and
// command-line flags. Flags take precedence over environment, environment
// over defaults.
package config

import (
	"flag"
	"fmt"
	"net/netip"

	"github.com/caarlos0/env/v11"
)

// TransportMode selects how the counter service is exposed. Immutable once
// parsed; the host branches on it exactly once at startup.
type TransportMode string

const (
	// TransportStdio serves a single session over stdin/stdout.
	TransportStdio TransportMode = "stdio"
	// TransportSSE serves per-connection sessions over HTTP Server-Sent Events.
	TransportSSE TransportMode = "sse"
	// TransportStreamHTTP serves per-connection sessions over the Streamable
	// HTTP transport, sharing the SSE listener lifecycle.
	TransportStreamHTTP TransportMode = "streamhttp"
)

// ParseTransportMode validates a user-supplied transport name.
func ParseTransportMode(s string) (TransportMode, error) {
	switch TransportMode(s) {
	case TransportStdio, TransportSSE, TransportStreamHTTP:
		return TransportMode(s), nil
	default:
		return "", fmt.Errorf("unknown transport %q (expected stdio, sse, or streamhttp)", s)
	}
}

// Config holds the tallyd runtime configuration.
type Config struct {
	Transport   string `env:"TALLY_TRANSPORT"    envDefault:"sse"`
	BindAddress string `env:"TALLY_BIND_ADDRESS" envDefault:"127.0.0.1:8000"`
	LogLevel    string `env:"TALLY_LOG_LEVEL"    envDefault:"info"`
	HistoryDB   string `env:"TALLY_HISTORY_DB"`

	// Mode is the validated form of Transport, populated by Validate.
	Mode TransportMode `env:"-"`
}

// Parse layers flags over environment variables into a Config and validates
// the result. The returned error covers flag parsing only; semantic
// validation errors are surfaced by Validate so the host can classify them.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport mode: stdio, sse, or streamhttp")
	fs.StringVar(&cfg.BindAddress, "bind-address", cfg.BindAddress, "bind address for the HTTP transports")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: trace, debug, info, warn, or error")
	fs.StringVar(&cfg.HistoryDB, "history-db", cfg.HistoryDB, "path to the invocation history database (empty disables history)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the transport mode and, for the HTTP transports, the bind
// address. A malformed bind address is a fatal configuration error; it is
// never retried.
func (c *Config) Validate() error {
	mode, err := ParseTransportMode(c.Transport)
	if err != nil {
		return err
	}
	c.Mode = mode

	if mode != TransportStdio {
		if _, err := netip.ParseAddrPort(c.BindAddress); err != nil {
			return fmt.Errorf("invalid bind address %q: %w", c.BindAddress, err)
		}
	}
	return nil
}

// Addr returns the validated bind address. Validate must have succeeded.
func (c *Config) Addr() (netip.AddrPort, error) {
	return netip.ParseAddrPort(c.BindAddress)
}
