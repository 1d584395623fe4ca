// tallyd serves the tally counter over stdio, SSE, or streamable HTTP.
//
// Usage:
//   - SSE (default):          tallyd
//   - SSE on a custom addr:   tallyd -bind-address 0.0.0.0:9000
//   - stdio:                  tallyd -transport stdio
//   - set log level:          tallyd -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/counter"
	"github.com/tallyhq/tally/internal/history"
	"github.com/tallyhq/tally/internal/host"
	"github.com/tallyhq/tally/internal/logger"
)

// Version is set at build time via -ldflags "-X main.Version=v1.0.0"
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	showVersion := flag.Bool("version", false, "Print version and exit")
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "tallyd: %v\n", err)
		return 2
	}

	if *showVersion {
		fmt.Printf("tallyd %s\n", Version)
		return 0
	}

	// Logs always go to stderr: in stdio mode stdout carries the protocol
	// stream and must stay clean.
	log := logger.NewStderr(logger.ParseLevel(cfg.LogLevel))

	log.Info().Str("version", Version).Msg("starting tally server")
	log.Debug().
		Str("transport", cfg.Transport).
		Str("bind_address", cfg.BindAddress).
		Str("log_level", cfg.LogLevel).
		Msg("parsed configuration")

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Str("phase", "parsing").Msg("invalid configuration")
		return 1
	}

	var opts []counter.Option
	opts = append(opts, counter.WithLogger(log.Component("counter")))

	if cfg.HistoryDB != "" {
		store, err := history.NewStore(cfg.HistoryDB)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.HistoryDB).Msg("failed to open history store")
			return 1
		}
		defer func() { _ = store.Close() }()
		log.Info().Str("path", cfg.HistoryDB).Msg("invocation history enabled")

		sweeper := history.NewSweeper(store, history.DefaultRetention, log.Component("history"))
		if err := sweeper.Start(); err != nil {
			log.Error().Err(err).Msg("failed to start history sweeper")
			return 1
		}
		defer sweeper.Stop()

		opts = append(opts, counter.WithHistory(store))
	}

	factory := func() *mcp.Server {
		return counter.NewServer(opts...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := host.New(cfg, factory, log.Component("host"))
	if err := h.Run(ctx); err != nil {
		var phaseErr host.PhaseError
		if errors.As(err, &phaseErr) {
			log.Error().Err(err).Str("phase", phaseErr.Phase()).Msg("server failed")
		} else {
			log.Error().Err(err).Msg("server failed")
		}
		return 1
	}

	log.Info().Msg("tally server exiting")
	return 0
}
