// Package host binds the counter service to a transport and drives the
// process lifecycle from startup to termination.
//
// The stdio path attaches one service instance to stdin/stdout and blocks
// until the peer closes the stream. The HTTP paths (sse, streamhttp) start a
// listener, hand each inbound connection a fresh service instance, and block
// until the run context is cancelled, then shut the listener down
// cooperatively. At most one transport binding is active per process.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/logger"
)

// Factory constructs a fresh service instance wrapped in an MCP server. The
// stdio transport invokes it once; the HTTP transports invoke it once per
// inbound connection, so instances never share state.
type Factory func() *mcp.Server

// Handle is a running attachment of a service instance to a transport. Wait
// blocks until the session ends naturally; Cancel requests cooperative
// shutdown and is safe to call more than once.
type Handle interface {
	Wait() error
	Cancel()
}

// Host owns the single transport binding of the process.
type Host struct {
	cfg       config.Config
	newServer Factory
	log       *logger.Logger
}

// New creates a Host serving instances produced by newServer.
func New(cfg config.Config, newServer Factory, log *logger.Logger) *Host {
	if log == nil {
		log = logger.Nop()
	}
	return &Host{cfg: cfg, newServer: newServer, log: log}
}

// Run drives the process lifecycle to completion. For the stdio transport it
// returns when the stream closes; for the HTTP transports it returns after
// ctx is cancelled (the interrupt signal) and the listener has been shut
// down. Any returned error is a PhaseError and fatal.
func (h *Host) Run(ctx context.Context) error {
	h.log.Debug().
		Str("transport", string(h.cfg.Mode)).
		Str("bind_address", h.cfg.BindAddress).
		Msg("host starting")

	switch h.cfg.Mode {
	case config.TransportStdio:
		return h.runStdio(ctx)
	case config.TransportSSE, config.TransportStreamHTTP:
		return h.runHTTP(ctx)
	default:
		return &ConfigError{Err: fmt.Errorf("unknown transport %q", h.cfg.Transport)}
	}
}

// runStdio attaches one service instance to stdin/stdout and waits for the
// stream to close. There is no cancel path in this mode; termination is
// driven by the remote peer.
func (h *Host) runStdio(ctx context.Context) error {
	h.log.Info().Msg("using stdio transport")
	return h.runStream(ctx, &mcp.StdioTransport{})
}

// runStream attaches one service instance to the given duplex transport and
// waits for natural completion.
func (h *Host) runStream(ctx context.Context, transport mcp.Transport) error {
	server := h.newServer()
	session, err := attach(ctx, server, transport)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to attach service to stream transport")
		return &AttachError{Err: err}
	}

	h.log.Info().Msg("service attached, waiting for completion")
	if err := session.Wait(); err != nil {
		h.log.Error().Err(err).Msg("stream session failed")
		return &SessionError{Err: err}
	}
	h.log.Info().Msg("stream session completed")
	return nil
}

// runHTTP starts the listener for the sse or streamhttp transport and blocks
// until the run context is cancelled. Cancellation of the listener strictly
// precedes return.
func (h *Host) runHTTP(ctx context.Context) error {
	addr, err := h.cfg.Addr()
	if err != nil {
		h.log.Error().Err(err).Str("bind_address", h.cfg.BindAddress).Msg("failed to parse bind address")
		return &ConfigError{Err: err}
	}

	handle, err := h.listenHTTP(addr)
	if err != nil {
		h.log.Error().Err(err).Str("addr", addr.String()).Msg("failed to start listener")
		return err
	}

	h.log.Info().
		Str("addr", handle.Addr()).
		Str("transport", string(h.cfg.Mode)).
		Msg("server running, send interrupt to stop")

	select {
	case <-ctx.Done():
		h.log.Info().Msg("shutdown requested")
		handle.Cancel()
		h.log.Info().Msg("shutdown complete")
		return nil
	case err := <-handle.serveErr:
		handle.Cancel()
		h.log.Error().Err(err).Msg("server failed")
		return &SessionError{Err: err}
	}
}

// streamSession is the stream-mode session handle.
type streamSession struct {
	ss   *mcp.ServerSession
	once sync.Once
}

// attach connects the server to a duplex transport.
func attach(ctx context.Context, server *mcp.Server, transport mcp.Transport) (*streamSession, error) {
	ss, err := server.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}
	return &streamSession{ss: ss}, nil
}

// Wait blocks until the remote peer disconnects or the stream closes. A
// peer-initiated close and context cancellation are both clean exits, not
// failures.
func (s *streamSession) Wait() error {
	err := s.ss.Wait()
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Cancel closes the session. Idempotent.
func (s *streamSession) Cancel() {
	s.once.Do(func() {
		_ = s.ss.Close()
	})
}
