package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/server"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns its chunks one Read at a time
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

// syncBuffer is a bytes.Buffer safe for concurrent writers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *server.Error   `json:"error"`
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(testutils.CreateTestLogger())
	require.NoError(t, reg.RegisterAll(
		testutils.NewMockTool("echo"),
		testutils.NewMockTool("failing").WithError(errors.New("Sheet not found: Data")),
		testutils.NewMockTool("panicking").WithPanic("boom"),
	))
	return reg
}

func newDispatcher(t *testing.T, reg *registry.Registry) *server.Dispatcher {
	t.Helper()
	d, err := server.NewDispatcher(reg, testutils.CreateTestLogger(), mcp.Implementation{Name: "mcp-office", Version: "test"})
	require.NoError(t, err)
	return d
}

// serve runs input through a transport and returns the responses keyed by raw id
func serve(t *testing.T, in io.Reader, opts ...server.TransportOption) ([]string, map[string]wireResponse) {
	t.Helper()
	reg := newTestRegistry(t)
	out := &syncBuffer{}
	tr := server.NewTransport(in, out, newDispatcher(t, reg), testutils.CreateTestLogger(), opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.Serve(ctx))

	lines := testutils.Lines(out.String())
	byID := make(map[string]wireResponse, len(lines))
	for _, line := range lines {
		var resp wireResponse
		require.NoError(t, json.Unmarshal([]byte(line), &resp), "response line must be valid JSON: %s", line)
		byID[string(resp.ID)] = resp
	}
	return lines, byID
}

func TestTransport_OneResponsePerRequestWithSameID(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18"}}`,
		`{"jsonrpc":"2.0","id":"abc","method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"input":"x"}}}`,
	}, "\n") + "\n"

	lines, byID := serve(t, strings.NewReader(input))
	require.Len(t, lines, 3)
	assert.Contains(t, byID, "1")
	assert.Contains(t, byID, `"abc"`)
	assert.Contains(t, byID, "3")
	for _, resp := range byID {
		assert.Equal(t, "2.0", resp.JSONRPC)
	}
}

func TestTransport_NotificationsGetNoResponse(t *testing.T) {
	input := `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
		`{"jsonrpc":"2.0","method":"tools/list"}` + "\n" +
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"nonexistent_tool"}}` + "\n"

	lines, _ := serve(t, strings.NewReader(input))
	assert.Empty(t, lines)
}

func TestTransport_MalformedLineIsDroppedWithoutBlocking(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n" +
		"not json\n" +
		"\n   \n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"

	lines, byID := serve(t, strings.NewReader(input))
	require.Len(t, lines, 2)
	assert.Contains(t, byID, "1")
	assert.Contains(t, byID, "2")
}

func TestTransport_CarriesSplitObjectAcrossChunks(t *testing.T) {
	reader := &chunkReader{chunks: []string{
		`{"jsonrpc":"2.0","id":7,"met`,
		`hod":"tools/list"}` + "\n",
	}}

	lines, byID := serve(t, reader)
	require.Len(t, lines, 1)
	resp := byID["7"]
	require.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), `"echo"`)
}

func TestTransport_OneByteReads(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\r\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"

	lines, _ := serve(t, iotest.OneByteReader(strings.NewReader(input)), server.WithChunkSize(3))
	assert.Len(t, lines, 2)
}

func TestTransport_UnterminatedFinalLineIsHandled(t *testing.T) {
	lines, byID := serve(t, strings.NewReader(`{"jsonrpc":"2.0","id":9,"method":"tools/list"}`))
	require.Len(t, lines, 1)
	assert.Contains(t, byID, "9")
}

func TestTransport_OversizedLineIsDropped(t *testing.T) {
	big := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{"pad":"` + strings.Repeat("x", 4096) + `"}}`
	input := big + "\n" + `{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"

	lines, byID := serve(t, strings.NewReader(input), server.WithMaxLineBytes(1024), server.WithChunkSize(512))
	require.Len(t, lines, 1)
	assert.Contains(t, byID, "2")
}

func TestTransport_OversizedLineWithinOneChunkIsDropped(t *testing.T) {
	big := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{"pad":"` + strings.Repeat("x", 300) + `"}}`
	input := big + "\n" + `{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"

	lines, byID := serve(t, strings.NewReader(input), server.WithMaxLineBytes(128), server.WithChunkSize(64*1024))
	require.Len(t, lines, 1)
	assert.Contains(t, byID, "2")
	assert.NotContains(t, byID, "1")
}

func TestTransport_EmptyInputReturnsNil(t *testing.T) {
	lines, _ := serve(t, strings.NewReader(""))
	assert.Empty(t, lines)
}

func TestTransport_CancelledContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	reg := newTestRegistry(t)
	tr := server.NewTransport(pr, io.Discard, newDispatcher(t, reg), testutils.CreateTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestTransport_ConcurrentHandlersWriteWholeLines(t *testing.T) {
	reg := registry.New(testutils.CreateTestLogger())
	require.NoError(t, reg.Register(testutils.NewMockTool("slow").WithDelay(20*time.Millisecond)))

	var sb strings.Builder
	for i := 1; i <= 50; i++ {
		sb.WriteString(`{"jsonrpc":"2.0","id":`)
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(`,"method":"tools/call","params":{"name":"slow","arguments":{"input":"x"}}}` + "\n")
	}

	out := &syncBuffer{}
	tr := server.NewTransport(strings.NewReader(sb.String()), out, newDispatcher(t, reg), testutils.CreateTestLogger())
	require.NoError(t, tr.Serve(context.Background()))

	lines := testutils.Lines(out.String())
	require.Len(t, lines, 50)
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)), "interleaved output: %s", line)
	}
}
