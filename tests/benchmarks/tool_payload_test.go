package benchmarks

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/catalog"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/internal/server"
	"github.com/sirupsen/logrus"
)

var (
	perToolMax = flag.Int("per-tool-max", 6000, "Maximum descriptor bytes per tool before failing")
	totalMax   = flag.Int("total-max", 400000, "Maximum bytes for the whole tools/list result before failing")
	top        = flag.Int("top", 10, "Number of largest tools to report")
)

// ToolPayload is the serialised size of one tool descriptor
type ToolPayload struct {
	Name        string
	TotalBytes  int
	DescBytes   int
	ParamsBytes int
}

func newRegistry(tb testing.TB) *registry.Registry {
	tb.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := output.NewStore(tb.TempDir(), tb.TempDir(), security.NewPolicy(logger), logger)
	reg := registry.New(logger)
	if _, err := catalog.Register(reg, store, logger, email.Options{}); err != nil {
		tb.Fatalf("Failed to register catalog: %v", err)
	}
	return reg
}

func measure(def mcp.Tool) (*ToolPayload, error) {
	full, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool definition: %w", err)
	}
	desc, err := json.Marshal(def.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal description: %w", err)
	}
	params, err := json.Marshal(def.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}
	return &ToolPayload{Name: def.Name, TotalBytes: len(full), DescBytes: len(desc), ParamsBytes: len(params)}, nil
}

func TestToolPayloadSize(t *testing.T) {
	reg := newRegistry(t)

	var payloads []*ToolPayload
	total := 0
	for _, def := range reg.List() {
		p, err := measure(def)
		if err != nil {
			t.Errorf("Failed to measure %s: %v", def.Name, err)
			continue
		}
		payloads = append(payloads, p)
		total += p.TotalBytes

		if p.TotalBytes > *perToolMax {
			t.Errorf("Tool %s descriptor is %d bytes, over the %d byte limit", p.Name, p.TotalBytes, *perToolMax)
		}
	}

	sort.Slice(payloads, func(i, j int) bool { return payloads[i].TotalBytes > payloads[j].TotalBytes })

	if testing.Verbose() {
		fmt.Printf("%-34s %8s %8s %8s\n", "Tool", "Total", "Desc", "Params")
		fmt.Println(strings.Repeat("─", 62))
		for _, p := range payloads[:min(*top, len(payloads))] {
			fmt.Printf("%-34s %8d %8d %8d\n", p.Name, p.TotalBytes, p.DescBytes, p.ParamsBytes)
		}
		fmt.Printf("\n%d tools, %d bytes total, %d average\n", len(payloads), total, total/max(len(payloads), 1))
	}

	if total > *totalMax {
		t.Errorf("tools/list payload is %d bytes, over the %d byte limit", total, *totalMax)
	}
}

func BenchmarkToolsList(b *testing.B) {
	reg := newRegistry(b)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	d, err := server.NewDispatcher(reg, logger, mcp.Implementation{Name: "mcp-office", Version: "bench"})
	if err != nil {
		b.Fatal(err)
	}
	req := &server.Request{JSONRPC: server.JSONRPCVersion, ID: json.RawMessage("1"), Method: "tools/list"}

	b.ReportAllocs()
	for b.Loop() {
		resp := d.Handle(b.Context(), req)
		if _, err := json.Marshal(resp); err != nil {
			b.Fatal(err)
		}
	}
}
