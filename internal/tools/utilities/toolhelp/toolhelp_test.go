package toolhelp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sammcj/mcp-office/internal/tools/utilities/toolhelp"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *logrus.Logger, tools.Args) (*mcp.CallToolResult, error) {
	return tools.Text("ok"), nil
}

func setup(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(testutils.CreateTestLogger())
	require.NoError(t, toolhelp.Register(reg))
	require.NoError(t, reg.RegisterAll(
		tools.NewFunc(tools.Define("create_excel", "Create a workbook", tools.Creates, tools.Filename("Workbook")), noop).
			WithHelp(&tools.ExtendedHelp{
				WhenToUse:       "Starting a new workbook",
				Troubleshooting: []tools.TroubleshootingTip{{Problem: "sheet names", Solution: "Keep them under 31 characters"}},
				Examples:        []tools.ToolExample{{Description: "One sheet", Arguments: map[string]any{"filename": "a.xlsx"}}},
			}),
		tools.NewFunc(tools.Define("read_excel", "Read a workbook", tools.Reads, tools.Filename("Workbook")), noop),
		tools.NewFunc(tools.Define("create_word_document", "Create a document", tools.Creates, tools.Filename("Document")), noop),
	))
	return reg
}

func help(t *testing.T, reg *registry.Registry, name string) (*toolhelp.ToolHelpResponse, error) {
	t.Helper()
	tool, ok := reg.Get("get_tool_help")
	require.True(t, ok)
	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), map[string]any{"toolName": name})
	if err != nil {
		return nil, err
	}
	var resp toolhelp.ToolHelpResponse
	require.NoError(t, json.Unmarshal([]byte(testutils.ResultText(t, result)), &resp))
	return &resp, nil
}

func TestHelp_ExtendedInfo(t *testing.T) {
	reg := setup(t)
	resp, err := help(t, reg, "create_excel")
	require.NoError(t, err)

	assert.Equal(t, "create_excel", resp.ToolName)
	assert.Equal(t, "Create a workbook", resp.BasicInfo["description"])
	assert.Contains(t, resp.BasicInfo, "input_schema")
	require.True(t, resp.HasExtendedInfo)
	assert.Equal(t, "Starting a new workbook", resp.ExtendedInfo.WhenToUse)
	require.Len(t, resp.ExtendedInfo.Troubleshooting, 1)
	assert.Equal(t, "sheet names", resp.ExtendedInfo.Troubleshooting[0].Problem)
	require.Len(t, resp.ExtendedInfo.Examples, 1)
	assert.Equal(t, []string{"read_excel"}, resp.Related)
}

func TestHelp_WithoutExtendedInfo(t *testing.T) {
	reg := setup(t)
	resp, err := help(t, reg, "read_excel")
	require.NoError(t, err)
	assert.False(t, resp.HasExtendedInfo)
	assert.Nil(t, resp.ExtendedInfo)
	assert.Contains(t, resp.Message, "no extended help")
}

func TestHelp_UnknownToolSuggests(t *testing.T) {
	reg := setup(t)
	_, err := help(t, reg, "crexcel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool: crexcel")
	assert.Contains(t, err.Error(), "create_excel")

	_, err = help(t, reg, "zzzz")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "Did you mean")
}

func TestSuggest_FallsBackToWords(t *testing.T) {
	reg := setup(t)
	tool, _ := reg.Get("get_tool_help")
	suggestions := tool.(*toolhelp.ToolHelpTool).Suggest("excel_create")
	assert.Contains(t, suggestions, "create_excel")
}

func TestHelp_DescribesItself(t *testing.T) {
	reg := setup(t)
	resp, err := help(t, reg, "get_tool_help")
	require.NoError(t, err)
	assert.Equal(t, "get_tool_help", resp.ToolName)
}
