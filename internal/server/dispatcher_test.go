package server_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/server"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(t *testing.T, raw string) *server.Request {
	t.Helper()
	var req server.Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	return &req
}

func encode(t *testing.T, resp *server.Response) string {
	t.Helper()
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

func TestDispatcher_UnknownToolExactWireForm(t *testing.T) {
	d := newDispatcher(t, newTestRegistry(t))

	resp := d.Handle(context.Background(), request(t,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"nonexistent_tool","arguments":{}}}`))

	assert.Equal(t,
		`{"jsonrpc":"2.0","id":2,"error":{"code":-32603,"message":"Unknown tool: nonexistent_tool"}}`,
		encode(t, resp))
}

func TestDispatcher_UnknownMethod(t *testing.T) {
	d := newDispatcher(t, newTestRegistry(t))

	for _, method := range []string{"ping", "resources/list", "", "TOOLS/LIST"} {
		t.Run(method, func(t *testing.T) {
			resp := d.Handle(context.Background(), &server.Request{
				JSONRPC: "2.0", ID: json.RawMessage(`5`), Method: method,
			})
			require.NotNil(t, resp.Error)
			assert.Equal(t, server.CodeMethodNotFound, resp.Error.Code)
			assert.Equal(t, "Method not found: "+method, resp.Error.Message)
			assert.Nil(t, resp.Result)
		})
	}
}

func TestDispatcher_Initialize(t *testing.T) {
	d := newDispatcher(t, newTestRegistry(t))

	resp := d.Handle(context.Background(), request(t, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.Nil(t, resp.Error)

	var decoded struct {
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(encode(t, resp)), &decoded))
	result := decoded.Result

	assert.Equal(t, mcp.LATEST_PROTOCOL_VERSION, result["protocolVersion"])
	assert.Equal(t, map[string]any{"tools": map[string]any{}}, result["capabilities"])
	assert.Equal(t, map[string]any{"name": "mcp-office", "version": "test"}, result["serverInfo"])

	resp = d.Handle(context.Background(), request(t,
		`{"jsonrpc":"2.0","id":2,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`))
	assert.Equal(t, "2024-11-05", resp.Result.(server.InitializeResult).ProtocolVersion)
}

func TestDispatcher_ToolsListMatchesRegistry(t *testing.T) {
	reg := newTestRegistry(t)
	d := newDispatcher(t, reg)

	first := encode(t, d.Handle(context.Background(), request(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)))
	second := encode(t, d.Handle(context.Background(), request(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)))
	assert.Equal(t, first, second)

	var parsed struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(first), &parsed))

	var names []string
	for _, tool := range parsed.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, reg.Names(), names)
}

func TestDispatcher_ToolCallOutcomes(t *testing.T) {
	d := newDispatcher(t, newTestRegistry(t))

	tests := []struct {
		name    string
		params  string
		code    int
		message string
	}{
		{"success", `{"name":"echo","arguments":{"input":"hi"}}`, 0, ""},
		{"handler error", `{"name":"failing","arguments":{"input":"hi"}}`, server.CodeInternalError, "Sheet not found: Data"},
		{"panic recovered", `{"name":"panicking","arguments":{"input":"hi"}}`, server.CodeInternalError, "tool panicked: boom"},
		{"missing required argument", `{"name":"echo","arguments":{}}`, server.CodeInvalidParams, "invalid arguments for tool echo"},
		{"absent arguments", `{"name":"echo"}`, server.CodeInvalidParams, "invalid arguments for tool echo"},
		{"wrong argument type", `{"name":"echo","arguments":{"input":5}}`, server.CodeInvalidParams, "invalid arguments for tool echo"},
		{"malformed params", `[1,2]`, server.CodeInvalidParams, "Invalid tools/call params"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := d.Handle(context.Background(), &server.Request{
				JSONRPC: "2.0",
				ID:      json.RawMessage(`1`),
				Method:  "tools/call",
				Params:  json.RawMessage(tt.params),
			})
			require.NotNil(t, resp)
			if tt.code == 0 {
				require.Nil(t, resp.Error)
				wire := encode(t, resp)
				assert.Contains(t, wire, `"type":"text"`)
				assert.Contains(t, wire, `"text":"mock result"`)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tt.message)
		})
	}
}

func TestDispatcher_NotificationReturnsNil(t *testing.T) {
	d := newDispatcher(t, newTestRegistry(t))
	assert.Nil(t, d.Handle(context.Background(), request(t, `{"jsonrpc":"2.0","method":"tools/list"}`)))
	assert.Nil(t, d.Handle(context.Background(), request(t, `{"jsonrpc":"2.0","method":"bogus"}`)))
}

func TestDispatcher_InvalidArgumentsNeverReachTool(t *testing.T) {
	echo := testutils.NewMockTool("echo")
	empty := testutils.NewMockTool("empty").WithResult(nil)
	reg := registry.New(testutils.CreateTestLogger())
	require.NoError(t, reg.RegisterAll(echo, empty))
	d := newDispatcher(t, reg)

	resp := d.Handle(context.Background(), request(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"input":false}}}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, 0, echo.Calls())

	resp = d.Handle(context.Background(), request(t,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"empty","arguments":{"input":"x"}}}`))
	require.Nil(t, resp.Error)
	assert.Equal(t, 1, empty.Calls())
	assert.Contains(t, encode(t, resp), `"text":""`)
}
