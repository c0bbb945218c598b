package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// Tool is the interface that all MCP tool implementations must satisfy
type Tool interface {
	// Definition returns the tool's definition for MCP registration
	Definition() mcp.Tool

	// Execute runs the tool with the caller's already validated arguments
	Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error)
}

// ExtendedHelpProvider is an optional interface that tools can implement to provide
// detailed usage information, examples, and troubleshooting help
type ExtendedHelpProvider interface {
	ProvideExtendedInfo() *ExtendedHelp
}

// ExtendedHelp contains detailed information about a tool's usage
type ExtendedHelp struct {
	Examples         []ToolExample        `json:"examples,omitempty"`
	CommonPatterns   []string             `json:"common_patterns,omitempty"`
	Troubleshooting  []TroubleshootingTip `json:"troubleshooting,omitempty"`
	ParameterDetails map[string]string    `json:"parameter_details,omitempty"`
	WhenToUse        string               `json:"when_to_use,omitempty"`
	WhenNotToUse     string               `json:"when_not_to_use,omitempty"`
}

// ToolExample represents a usage example for a tool
type ToolExample struct {
	Description    string         `json:"description"`
	Arguments      map[string]any `json:"arguments"`
	ExpectedResult string         `json:"expected_result,omitempty"`
}

// TroubleshootingTip represents a troubleshooting tip for a tool
type TroubleshootingTip struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}

// HandlerFunc is the body of a tool: it receives typed access to the call arguments
type HandlerFunc func(ctx context.Context, logger *logrus.Logger, args Args) (*mcp.CallToolResult, error)

// Func pairs a descriptor with its handler so the two can never drift apart
type Func struct {
	def  mcp.Tool
	fn   HandlerFunc
	help *ExtendedHelp
}

// NewFunc builds a Tool from a descriptor and a handler
func NewFunc(def mcp.Tool, fn HandlerFunc) *Func {
	return &Func{def: def, fn: fn}
}

// WithHelp attaches extended help, exposed through get_tool_help
func (f *Func) WithHelp(help *ExtendedHelp) *Func {
	f.help = help
	return f
}

// Definition returns the tool descriptor
func (f *Func) Definition() mcp.Tool {
	return f.def
}

// Execute runs the handler
func (f *Func) Execute(ctx context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	return f.fn(ctx, logger, Args(args))
}

// ProvideExtendedInfo returns the attached help, or nil
func (f *Func) ProvideExtendedInfo() *ExtendedHelp {
	return f.help
}

// HasExtendedHelp reports whether a tool provides extended help
func HasExtendedHelp(t Tool) bool {
	p, ok := t.(ExtendedHelpProvider)
	return ok && p.ProvideExtendedInfo() != nil
}

// Text wraps a formatted status string in the standard content envelope
func Text(format string, a ...any) *mcp.CallToolResult {
	if len(a) == 0 {
		return mcp.NewToolResultText(format)
	}
	return mcp.NewToolResultText(fmt.Sprintf(format, a...))
}
