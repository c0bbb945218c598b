package testutils

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// MockTool implements the Tool interface for testing
type MockTool struct {
	definition mcp.Tool
	executeErr error
	panicValue any
	delay      time.Duration
	result     *mcp.CallToolResult
	calls      atomic.Int32
}

// NewMockTool creates a new mock tool with a single required string "input"
func NewMockTool(name string) *MockTool {
	return &MockTool{
		definition: mcp.NewTool(name,
			mcp.WithDescription("Mock tool for testing"),
			mcp.WithString("input",
				mcp.Required(),
				mcp.Description("Test input parameter"),
			),
		),
		result: mcp.NewToolResultText("mock result"),
	}
}

// WithError configures the mock to return an error
func (m *MockTool) WithError(err error) *MockTool {
	m.executeErr = err
	return m
}

// WithPanic configures the mock to panic with v
func (m *MockTool) WithPanic(v any) *MockTool {
	m.panicValue = v
	return m
}

// WithDelay makes Execute sleep before returning
func (m *MockTool) WithDelay(d time.Duration) *MockTool {
	m.delay = d
	return m
}

// WithResult configures the mock to return a specific result
func (m *MockTool) WithResult(result *mcp.CallToolResult) *MockTool {
	m.result = result
	return m
}

// Calls returns how many times Execute ran
func (m *MockTool) Calls() int {
	return int(m.calls.Load())
}

// Definition returns the tool's definition for MCP registration
func (m *MockTool) Definition() mcp.Tool {
	return m.definition
}

// Execute executes the mock tool
func (m *MockTool) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.panicValue != nil {
		panic(m.panicValue)
	}
	if m.executeErr != nil {
		return nil, m.executeErr
	}
	return m.result, nil
}
