package host

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/metrics"
	"github.com/tallyhq/tally/internal/ratelimit"
)

// shutdownTimeout bounds the graceful drain on cancellation. Connections
// still open when it expires (long-lived SSE streams, typically) are closed
// hard. See DESIGN.md for the drain policy decision.
const shutdownTimeout = 10 * time.Second

// httpHandle is the push-mode session handle: the running HTTP listener plus
// its shutdown machinery. Owned exclusively by the Host.
type httpHandle struct {
	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error
	cancel     sync.Once
	done       chan struct{}
}

// Addr returns the bound listener address, useful when binding port 0.
func (p *httpHandle) Addr() string {
	return p.listener.Addr().String()
}

// Wait blocks until the serve loop has exited.
func (p *httpHandle) Wait() error {
	<-p.done
	return nil
}

// Cancel stops accepting new connections and closes active ones. Cancelling
// twice has the same effect as cancelling once.
func (p *httpHandle) Cancel() {
	p.cancel.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := p.httpServer.Shutdown(ctx); err != nil {
			// Graceful drain expired; close remaining connections hard.
			_ = p.httpServer.Close()
		}
		<-p.done
	})
}

// listenHTTP binds the listener and starts serving the configured HTTP
// transport. The bind happens synchronously so an address already in use is
// reported before the host enters the running state.
func (h *Host) listenHTTP(addr netip.AddrPort) (*httpHandle, error) {
	listener, err := net.Listen("tcp", addr.String())
	if err != nil {
		return nil, &BindError{Err: err}
	}
	h.log.Info().Str("addr", listener.Addr().String()).Msg("listener bound")

	handle := &httpHandle{
		httpServer: &http.Server{Handler: h.buildMux()},
		listener:   listener,
		serveErr:   make(chan error, 1),
		done:       make(chan struct{}),
	}

	go func() {
		defer close(handle.done)
		if err := handle.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			handle.serveErr <- err
		}
	}()

	return handle, nil
}

// buildMux assembles the HTTP surface: the protocol endpoint for the
// selected transport plus health and metrics. The protocol endpoint is
// wrapped with request-ID, access-log, rate-limit, and metrics middleware;
// health and metrics stay unwrapped so probes and scrapes are never throttled.
func (h *Host) buildMux() *http.ServeMux {
	factory := func(req *http.Request) *mcp.Server {
		return h.newServer()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealthCheck)
	mux.Handle("/metrics", metrics.Handler())

	limiter := ratelimit.Default()

	switch h.cfg.Mode {
	case config.TransportSSE:
		sseHandler := mcp.NewSSEHandler(factory, nil)
		wrapped := h.instrument(limiter, h.trackSessions(sseHandler))
		mux.Handle("/sse", wrapped)
		mux.Handle("/sse/", wrapped)
	case config.TransportStreamHTTP:
		streamHandler := mcp.NewStreamableHTTPHandler(factory, &mcp.StreamableHTTPOptions{
			EventStore: mcp.NewMemoryEventStore(nil),
		})
		wrapped := h.instrument(limiter, streamHandler)
		mux.Handle("/mcp", wrapped)
		mux.Handle("/mcp/", wrapped)
	}

	return mux
}

// instrument wraps a protocol handler with the standard middleware chain.
func (h *Host) instrument(limiter *ratelimit.Limiter, next http.Handler) http.Handler {
	logged := h.requestLog(next)
	limited := ratelimit.Middleware(limiter)(logged)
	return metrics.Middleware(limited)
}

// requestLog tags each request with an ID and emits an access log line.
func (h *Host) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}
		w.Header().Set("X-Request-ID", requestID)

		h.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Str("request_id", requestID).
			Msg("http request")

		next.ServeHTTP(w, r)
	})
}

// trackSessions maintains the active-session gauge for SSE streams. A GET on
// the SSE endpoint is one long-lived session; its handler returns when the
// client disconnects.
func (h *Host) trackSessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			metrics.RecordSessionStart("sse")
			defer metrics.RecordSessionEnd("sse")
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealthCheck is a basic liveness check
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
