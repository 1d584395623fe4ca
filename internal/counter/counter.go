// Package counter implements the MCP counter service served by tallyd. Each
// Counter owns independent state; the push transports construct a fresh one
// per inbound connection so sessions never observe each other's value.
package counter

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/history"
	"github.com/tallyhq/tally/internal/logger"
	"github.com/tallyhq/tally/internal/metrics"
)

// Counter holds the per-session counter state.
type Counter struct {
	mu    sync.Mutex
	value int64

	// sessionID tags history rows and log lines from this instance.
	sessionID string
	store     *history.Store
	log       *logger.Logger
}

// Option configures a Counter.
type Option func(*Counter)

// WithHistory attaches the invocation history store. A nil store leaves
// recording disabled.
func WithHistory(store *history.Store) Option {
	return func(c *Counter) { c.store = store }
}

// WithLogger sets the service logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Counter) { c.log = log }
}

// New constructs a fresh Counter starting at zero.
func New(opts ...Option) *Counter {
	c := &Counter{
		sessionID: "ctr_" + uuid.New().String()[:8],
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the instance's identifier.
func (c *Counter) SessionID() string {
	return c.sessionID
}

// Increment adds one to the counter and returns the new value.
func (c *Counter) Increment() int64 {
	return c.apply("increment", 1)
}

// Decrement subtracts one from the counter and returns the new value.
func (c *Counter) Decrement() int64 {
	return c.apply("decrement", -1)
}

// Reset sets the counter back to zero and returns the previous value.
func (c *Counter) Reset() int64 {
	c.mu.Lock()
	prev := c.value
	c.value = 0
	c.mu.Unlock()

	metrics.ObserveCounterValue(0)
	c.record("reset", -prev, 0)
	return prev
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *Counter) apply(tool string, delta int64) int64 {
	c.mu.Lock()
	c.value += delta
	v := c.value
	c.mu.Unlock()

	metrics.ObserveCounterValue(v)
	c.record(tool, delta, v)
	return v
}

// record writes one history row. History failures are logged and swallowed:
// the ledger is observational and must never fail a tool call.
func (c *Counter) record(tool string, delta, value int64) {
	if c.store == nil {
		return
	}
	err := c.store.Record(&history.Invocation{
		SessionID: c.sessionID,
		Tool:      tool,
		Delta:     delta,
		Value:     value,
	})
	if err != nil {
		metrics.RecordHistoryWrite("error")
		c.log.Warn().Err(err).Str("tool", tool).Msg("failed to record invocation")
		return
	}
	metrics.RecordHistoryWrite("ok")
}
