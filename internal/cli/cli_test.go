package cli_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/catalog"
	"github.com/sammcj/mcp-office/internal/cli"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/internal/server"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T, format cli.OutputFormat) (*cli.Runner, *bytes.Buffer, string) {
	t.Helper()
	logger := testutils.CreateTestLogger()
	dir := t.TempDir()
	store := output.NewStore(dir, t.TempDir(), security.NewPolicy(logger), logger)
	reg := registry.New(logger)
	_, err := catalog.Register(reg, store, logger, email.Options{})
	require.NoError(t, err)
	d, err := server.NewDispatcher(reg, logger, mcp.Implementation{Name: "mcp-office", Version: "test"})
	require.NoError(t, err)

	var out bytes.Buffer
	return cli.NewRunner(reg, d, &out, format), &out, dir
}

func TestRun_JSONArguments(t *testing.T) {
	runner, out, dir := newRunner(t, cli.OutputText)

	err := runner.Run(context.Background(), "create_excel", []string{
		`{"filename":"report.xlsx","sheets":[{"name":"Data","data":[["a","b"],[1,2]]}]}`,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "report.xlsx")
	assert.FileExists(t, filepath.Join(dir, "report.xlsx"))
}

func TestRun_FlagsAndKebabName(t *testing.T) {
	runner, out, _ := newRunner(t, cli.OutputText)

	err := runner.Run(context.Background(), "get-tool-help", []string{"--tool-name", "create_excel"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"tool_name": "create_excel"`)
}

func TestRun_FlagsOverrideJSON(t *testing.T) {
	runner, out, _ := newRunner(t, cli.OutputText)

	err := runner.Run(context.Background(), "get_tool_help", []string{"--tool-name=split_pdf", `{"toolName":"merge_pdfs"}`})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"tool_name": "split_pdf"`)
}

func TestRun_ValidationError(t *testing.T) {
	runner, _, _ := newRunner(t, cli.OutputText)

	err := runner.Run(context.Background(), "create_excel", []string{"--filename", "x.xlsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheets")
}

func TestRun_UnknownTool(t *testing.T) {
	runner, _, _ := newRunner(t, cli.OutputText)

	err := runner.Run(context.Background(), "nonexistent_tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool: nonexistent_tool")
}

func TestRun_BadArguments(t *testing.T) {
	runner, _, _ := newRunner(t, cli.OutputText)

	err := runner.Run(context.Background(), "get_tool_help", []string{"positional"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected argument")

	err = runner.Run(context.Background(), "get_tool_help", []string{"--tool-name"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a value")
}

func TestRun_JSONOutput(t *testing.T) {
	runner, out, _ := newRunner(t, cli.OutputJSON)

	require.NoError(t, runner.Run(context.Background(), "get_tool_help", []string{"--tool-name", "create_word_document"}))
	assert.Contains(t, out.String(), `"content"`)
}

func TestDescribe(t *testing.T) {
	runner, out, _ := newRunner(t, cli.OutputText)

	require.NoError(t, runner.Describe("create-excel"))
	text := out.String()
	assert.Contains(t, text, "Tool: create_excel")
	assert.Contains(t, text, "--filename")
	assert.Contains(t, text, "(required)")

	assert.Error(t, runner.Describe("missing"))
}

func TestDescribe_JSON(t *testing.T) {
	runner, out, _ := newRunner(t, cli.OutputJSON)

	require.NoError(t, runner.Describe("merge_pdfs"))
	assert.Contains(t, out.String(), `"name": "merge_pdfs"`)
}
