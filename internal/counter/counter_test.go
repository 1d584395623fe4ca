package counter

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tallyhq/tally/internal/history"
)

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("tool result content is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestCounter_IncrementDecrement(t *testing.T) {
	c := New()

	if v := c.Increment(); v != 1 {
		t.Errorf("Increment() = %d, want 1", v)
	}
	if v := c.Increment(); v != 2 {
		t.Errorf("Increment() = %d, want 2", v)
	}
	if v := c.Decrement(); v != 1 {
		t.Errorf("Decrement() = %d, want 1", v)
	}
	if v := c.Value(); v != 1 {
		t.Errorf("Value() = %d, want 1", v)
	}
}

func TestCounter_Reset(t *testing.T) {
	c := New()
	c.Increment()
	c.Increment()

	if prev := c.Reset(); prev != 2 {
		t.Errorf("Reset() = %d, want previous value 2", prev)
	}
	if v := c.Value(); v != 0 {
		t.Errorf("Value() after reset = %d, want 0", v)
	}
}

func TestCounter_InstancesAreIndependent(t *testing.T) {
	a := New()
	b := New()

	a.Increment()
	a.Increment()
	b.Decrement()

	if v := a.Value(); v != 2 {
		t.Errorf("a.Value() = %d, want 2", v)
	}
	if v := b.Value(); v != -1 {
		t.Errorf("b.Value() = %d, want -1", v)
	}
	if a.SessionID() == b.SessionID() {
		t.Error("two instances share a session ID")
	}
}

func TestCounter_ConcurrentIncrements(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	if v := c.Value(); v != 1000 {
		t.Errorf("Value() = %d, want 1000", v)
	}
}

func TestHandlers_TextResults(t *testing.T) {
	ctx := context.Background()
	c := New()

	res, _, err := c.handleIncrement(ctx, nil, emptyInput{})
	if err != nil {
		t.Fatalf("handleIncrement error = %v", err)
	}
	if got := textOf(t, res); got != "1" {
		t.Errorf("increment result = %q, want 1", got)
	}

	res, _, err = c.handleGetValue(ctx, nil, emptyInput{})
	if err != nil {
		t.Fatalf("handleGetValue error = %v", err)
	}
	if got := textOf(t, res); got != "1" {
		t.Errorf("get_value result = %q, want 1", got)
	}

	res, _, err = c.handleEcho(ctx, nil, echoInput{Message: "ping"})
	if err != nil {
		t.Fatalf("handleEcho error = %v", err)
	}
	if got := textOf(t, res); got != "ping" {
		t.Errorf("echo result = %q, want ping", got)
	}

	res, _, err = c.handleSum(ctx, nil, sumInput{Numbers: []float64{1, 2, 3.5}})
	if err != nil {
		t.Fatalf("handleSum error = %v", err)
	}
	if got := textOf(t, res); got != "6.5" {
		t.Errorf("sum result = %q, want 6.5", got)
	}

	res, _, err = c.handleSayHello(ctx, nil, emptyInput{})
	if err != nil {
		t.Fatalf("handleSayHello error = %v", err)
	}
	if got := textOf(t, res); got == "" {
		t.Error("say_hello returned empty greeting")
	}
}

func TestValueResource(t *testing.T) {
	c := New()
	c.Increment()

	res, err := c.handleValueResource(context.Background(), nil)
	if err != nil {
		t.Fatalf("handleValueResource error = %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("resource has %d contents, want 1", len(res.Contents))
	}
	if res.Contents[0].Text != "1" {
		t.Errorf("resource text = %q, want 1", res.Contents[0].Text)
	}
	if res.Contents[0].URI != valueResourceURI {
		t.Errorf("resource URI = %q, want %q", res.Contents[0].URI, valueResourceURI)
	}
}

func TestCounterPrompt(t *testing.T) {
	c := New()

	res, err := c.handleCounterPrompt(context.Background(), nil)
	if err != nil {
		t.Fatalf("handleCounterPrompt error = %v", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("prompt has %d messages, want 1", len(res.Messages))
	}
}

func TestCounter_RecordsHistory(t *testing.T) {
	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.NewStore error = %v", err)
	}
	defer func() { _ = store.Close() }()

	c := New(WithHistory(store))
	c.Increment()
	c.Decrement()

	invs, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(invs) != 2 {
		t.Fatalf("history has %d rows, want 2", len(invs))
	}
	for _, inv := range invs {
		if inv.SessionID != c.SessionID() {
			t.Errorf("row session = %q, want %q", inv.SessionID, c.SessionID())
		}
	}
}

func TestNewServer_NotNil(t *testing.T) {
	if NewServer() == nil {
		t.Fatal("NewServer() returned nil")
	}
}
