package counter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tallyhq/tally/internal/metrics"
)

const (
	serverName    = "tally"
	serverVersion = "0.1.0"

	valueResourceURI = "counter://value"
)

// NewServer builds a fresh Counter and wraps it in an *mcp.Server with the
// counter tools, the value resource, and the usage prompt registered. The
// push transports call this once per inbound connection; the stdio transport
// calls it once per process.
func NewServer(opts ...Option) *mcp.Server {
	return New(opts...).Server()
}

// Server wraps the Counter in an *mcp.Server.
func (c *Counter) Server() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "increment",
		Description: "Increment the counter by 1 and return the new value.",
	}, c.handleIncrement)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "decrement",
		Description: "Decrement the counter by 1 and return the new value.",
	}, c.handleDecrement)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_value",
		Description: "Get the current counter value.",
	}, c.handleGetValue)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset",
		Description: "Reset the counter to 0 and return the previous value.",
	}, c.handleReset)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "say_hello",
		Description: "Return a friendly greeting.",
	}, c.handleSayHello)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "echo",
		Description: "Echo the provided message back to the caller.",
	}, c.handleEcho)

	// sum carries an explicit schema so the array items are typed as numbers.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "sum",
		Description: "Sum a list of numbers and return the total.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"numbers": {
					Type:        "array",
					Description: "numbers to add together",
					Items:       &jsonschema.Schema{Type: "number"},
				},
			},
			Required: []string{"numbers"},
		},
	}, c.handleSum)

	server.AddResource(&mcp.Resource{
		Name:        "counter_value",
		Description: "The current counter value as plain text.",
		MIMEType:    "text/plain",
		URI:         valueResourceURI,
	}, c.handleValueResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "counter_prompt",
		Description: "Instructions for driving the counter tools.",
	}, c.handleCounterPrompt)

	return server
}

type emptyInput struct{}

type echoInput struct {
	Message string `json:"message" jsonschema:"the message to echo back"`
}

type sumInput struct {
	Numbers []float64 `json:"numbers"`
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func (c *Counter) handleIncrement(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	v := c.Increment()
	metrics.RecordToolCall("increment", "ok")
	c.log.Debug().Int64("value", v).Str("session", c.sessionID).Msg("counter incremented")
	return textResult(strconv.FormatInt(v, 10)), nil, nil
}

func (c *Counter) handleDecrement(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	v := c.Decrement()
	metrics.RecordToolCall("decrement", "ok")
	c.log.Debug().Int64("value", v).Str("session", c.sessionID).Msg("counter decremented")
	return textResult(strconv.FormatInt(v, 10)), nil, nil
}

func (c *Counter) handleGetValue(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	metrics.RecordToolCall("get_value", "ok")
	return textResult(strconv.FormatInt(c.Value(), 10)), nil, nil
}

func (c *Counter) handleReset(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	prev := c.Reset()
	metrics.RecordToolCall("reset", "ok")
	c.log.Debug().Int64("previous", prev).Str("session", c.sessionID).Msg("counter reset")
	return textResult(fmt.Sprintf("counter reset (was %d)", prev)), nil, nil
}

func (c *Counter) handleSayHello(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	metrics.RecordToolCall("say_hello", "ok")
	return textResult("hello from tally"), nil, nil
}

func (c *Counter) handleEcho(ctx context.Context, req *mcp.CallToolRequest, input echoInput) (*mcp.CallToolResult, any, error) {
	metrics.RecordToolCall("echo", "ok")
	return textResult(input.Message), nil, nil
}

func (c *Counter) handleSum(ctx context.Context, req *mcp.CallToolRequest, input sumInput) (*mcp.CallToolResult, any, error) {
	var total float64
	for _, n := range input.Numbers {
		total += n
	}
	metrics.RecordToolCall("sum", "ok")
	return textResult(strconv.FormatFloat(total, 'f', -1, 64)), nil, nil
}

func (c *Counter) handleValueResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      valueResourceURI,
				MIMEType: "text/plain",
				Text:     strconv.FormatInt(c.Value(), 10),
			},
		},
	}, nil
}

func (c *Counter) handleCounterPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "How to use the counter",
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: "Use the increment and decrement tools to change the counter, " +
						"get_value to read it, and reset to start over. " +
						"The current value is " + strconv.FormatInt(c.Value(), 10) + ".",
				},
			},
		},
	}, nil
}
