// Package toolhelp provides get_tool_help, which describes any registered tool
// and suggests close names for unknown ones.
package toolhelp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sahilm/fuzzy"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

const maxSuggestions = 5

// ToolHelpResponse is the output of get_tool_help
type ToolHelpResponse struct {
	ToolName        string              `json:"tool_name"`
	BasicInfo       map[string]any      `json:"basic_info"`
	ExtendedInfo    *tools.ExtendedHelp `json:"extended_info,omitempty"`
	HasExtendedInfo bool                `json:"has_extended_info"`
	Message         string              `json:"message,omitempty"`
	Related         []string            `json:"related,omitempty"`
}

// ToolHelpTool answers questions about the tools in a registry
type ToolHelpTool struct {
	registry *registry.Registry
}

// Register adds get_tool_help to reg. Tools registered later are also covered.
func Register(reg *registry.Registry) error {
	return reg.Register(&ToolHelpTool{registry: reg})
}

// Definition returns the tool's definition for MCP registration
func (t *ToolHelpTool) Definition() mcp.Tool {
	return tools.Define("get_tool_help",
		"Get the parameters, usage examples and troubleshooting tips for a tool. Unknown names return the closest matches",
		tools.Reads,
		mcp.WithString("toolName",
			mcp.Required(),
			mcp.Description("Name of the tool, e.g. create_excel"),
		),
	)
}

// Execute executes the get_tool_help tool
func (t *ToolHelpTool) Execute(_ context.Context, logger *logrus.Logger, args map[string]any) (*mcp.CallToolResult, error) {
	toolName, err := tools.Args(args).RequireString("toolName")
	if err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	toolName = strings.TrimSpace(toolName)

	tool, exists := t.registry.Get(toolName)
	if !exists {
		suggestions := t.Suggest(toolName)
		logger.WithFields(logrus.Fields{"tool": toolName, "suggestions": len(suggestions)}).Debug("Help requested for unknown tool")
		if len(suggestions) == 0 {
			return nil, fmt.Errorf("unknown tool: %s", toolName)
		}
		return nil, fmt.Errorf("unknown tool: %s. Did you mean: %s", toolName, strings.Join(suggestions, ", "))
	}

	response := &ToolHelpResponse{
		ToolName:  toolName,
		BasicInfo: extractBasicInfo(tool),
		Related:   t.related(toolName),
	}
	if provider, ok := tool.(tools.ExtendedHelpProvider); ok && provider.ProvideExtendedInfo() != nil {
		response.HasExtendedInfo = true
		response.ExtendedInfo = provider.ProvideExtendedInfo()
	} else {
		response.Message = fmt.Sprintf("%s has no extended help; the input schema above lists its parameters", toolName)
	}
	return newToolResult(response)
}

// Suggest returns the registered names closest to name, best first
func (t *ToolHelpTool) Suggest(name string) []string {
	names := t.registry.Names()
	matches := fuzzy.Find(name, names)
	if len(matches) == 0 {
		// fuzzy needs the pattern's characters in order, so retry on the words of the name
		for word := range strings.SplitSeq(strings.ReplaceAll(name, "-", "_"), "_") {
			if len(word) < 3 {
				continue
			}
			matches = append(matches, fuzzy.Find(word, names)...)
		}
	}
	var out []string
	for _, m := range matches {
		if !slices.Contains(out, m.Str) {
			out = append(out, m.Str)
		}
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// related lists tools sharing the name's object, e.g. the other *_excel tools
func (t *ToolHelpTool) related(name string) []string {
	_, object, ok := strings.Cut(name, "_")
	if !ok {
		return nil
	}
	var out []string
	for _, other := range t.registry.Names() {
		if other != name && strings.HasSuffix(other, "_"+object) {
			out = append(out, other)
		}
	}
	return out
}

// extractBasicInfo extracts basic information from a tool's definition
func extractBasicInfo(tool tools.Tool) map[string]any {
	definition := tool.Definition()
	basicInfo := map[string]any{
		"name":        definition.Name,
		"description": definition.Description,
	}
	if definition.InputSchema.Type != "" {
		basicInfo["input_schema"] = definition.InputSchema
	}
	return basicInfo
}

func newToolResult(response *ToolHelpResponse) (*mcp.CallToolResult, error) {
	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
