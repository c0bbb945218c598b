package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/catalog"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/internal/server"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, disabled ...string) (*registry.Registry, string) {
	t.Helper()
	reg, dir, _ := buildFamilies(t, disabled...)
	return reg, dir
}

func buildFamilies(t *testing.T, disabled ...string) (*registry.Registry, string, []catalog.Family) {
	t.Helper()
	logger := testutils.CreateTestLogger()
	dir := t.TempDir()
	store := output.NewStore(dir, t.TempDir(), security.NewPolicy(logger), logger)
	reg := registry.New(logger, disabled...)
	families, err := catalog.Register(reg, store, logger, email.Options{})
	require.NoError(t, err)
	return reg, dir, families
}

func TestCatalog_Size(t *testing.T) {
	reg, _, families := buildFamilies(t)
	assert.Equal(t, catalog.Size, reg.Len())
	assert.Len(t, reg.List(), reg.Len())

	counts := map[string]int{}
	for _, f := range families {
		counts[f.Name] = len(f.Tools)
	}
	assert.Equal(t, map[string]int{"excel": 54, "word": 39, "powerpoint": 28, "outlook": 25, "pdf": 4, "help": 1}, counts)
	assert.Equal(t, "create_excel", families[0].Tools[0])
}

func TestCatalog_NamesAreUniqueSnakeCase(t *testing.T) {
	reg, _ := build(t)
	snake := regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)
	seen := make(map[string]bool)
	for _, def := range reg.List() {
		assert.False(t, seen[def.Name], "duplicate %s", def.Name)
		seen[def.Name] = true
		assert.Regexp(t, snake, def.Name)
		assert.NotEmpty(t, def.Description, def.Name)
		assert.Equal(t, "object", def.InputSchema.Type, def.Name)
	}
}

func TestCatalog_CreateExcelRequiredFields(t *testing.T) {
	reg, _ := build(t)
	tool, ok := reg.Get("create_excel")
	require.True(t, ok)
	assert.Equal(t, []string{"filename", "sheets"}, tool.Definition().InputSchema.Required)
}

func TestCatalog_SchemasCompile(t *testing.T) {
	reg, _ := build(t)
	_, err := server.NewValidator(reg.List())
	require.NoError(t, err)
}

func TestCatalog_DisabledToolsAreSkipped(t *testing.T) {
	reg, _ := build(t, "send_email", "merge_pdfs")
	assert.Equal(t, catalog.Size-2, reg.Len())
	_, ok := reg.Get("send_email")
	assert.False(t, ok)
}

func TestCatalog_HelpCoversEveryTool(t *testing.T) {
	reg, _ := build(t)
	help, ok := reg.Get("get_tool_help")
	require.True(t, ok)
	for _, name := range []string{"create_excel", "mail_merge", "create_meeting_invite", "split_pdf"} {
		result, err := help.Execute(context.Background(), testutils.CreateTestLogger(), map[string]any{"toolName": name})
		require.NoError(t, err, name)
		assert.Contains(t, testutils.ResultText(t, result), `"tool_name": "`+name+`"`)
	}
}

// serve runs the full stdio stack over the given input and returns the output lines
func serve(t *testing.T, reg *registry.Registry, input string) []string {
	t.Helper()
	d, err := server.NewDispatcher(reg, testutils.CreateTestLogger(), mcp.Implementation{Name: "mcp-office", Version: "test"})
	require.NoError(t, err)
	var out bytes.Buffer
	transport := server.NewTransport(strings.NewReader(input), &out, d, testutils.CreateTestLogger())
	require.NoError(t, transport.Serve(context.Background()))
	return testutils.Lines(out.String())
}

func TestEndToEnd_UnknownTool(t *testing.T) {
	reg, _ := build(t)
	lines := serve(t, reg, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"nonexistent_tool","arguments":{}}}`+"\n")
	require.Len(t, lines, 1)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"error":{"code":-32603,"message":"Unknown tool: nonexistent_tool"}}`, lines[0])
}

func TestEndToEnd_ListMatchesRegistry(t *testing.T) {
	reg, _ := build(t)
	lines := serve(t, reg, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`+"\n"+`{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n")
	require.Len(t, lines, 1, "notifications get no response")

	var resp struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				InputSchema struct {
					Required []string `json:"required"`
				} `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	require.Len(t, resp.Result.Tools, reg.Len())
	for i, def := range reg.List() {
		assert.Equal(t, def.Name, resp.Result.Tools[i].Name)
		if def.Name == "create_excel" {
			assert.Equal(t, []string{"filename", "sheets"}, resp.Result.Tools[i].InputSchema.Required)
		}
	}
}

func TestEndToEnd_CreateAndReadWorkbook(t *testing.T) {
	reg, dir := build(t)
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"create_excel","arguments":{"filename":"budget.xlsx","sheets":[{"name":"Q1","data":[["Item","Cost"],["Rent",1200]]}]}}}`,
		`not json at all`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"create_excel","arguments":{"filename":"missing-sheets.xlsx"}}}`,
	}, "\n") + "\n"
	lines := serve(t, reg, input)
	require.Len(t, lines, 2, "the malformed line is dropped")

	byID := map[string]map[string]any{}
	for _, line := range lines {
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		byID[string(mustJSON(t, resp["id"]))] = resp
	}
	assert.Contains(t, byID["1"], "result")
	require.Contains(t, byID["2"], "error")
	assert.EqualValues(t, -32602, byID["2"]["error"].(map[string]any)["code"])
	assert.FileExists(t, dir+"/budget.xlsx")
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestEndToEnd_UnknownMethod(t *testing.T) {
	reg, _ := build(t)
	lines := serve(t, reg, `{"jsonrpc":"2.0","id":"x","method":"resources/list"}`+"\n")
	require.Len(t, lines, 1)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"x","error":{"code":-32601,"message":"Method not found: resources/list"}}`, lines[0])
}
