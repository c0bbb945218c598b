//go:build listtools

package benchmarks

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/sammcj/mcp-office/internal/catalog"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sirupsen/logrus"
)

// TestListTools outputs all tool definitions as seen by MCP clients
func TestListTools(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	logger.SetOutput(os.Stderr)

	store := output.NewStore(t.TempDir(), t.TempDir(), security.NewPolicy(logger), logger)
	reg := registry.New(logger)
	families, err := catalog.Register(reg, store, logger, email.Options{})
	if err != nil {
		t.Fatalf("Failed to register catalog: %v", err)
	}

	out := struct {
		Count    int              `json:"count"`
		Families []catalog.Family `json:"families"`
		Tools    []map[string]any `json:"tools"`
	}{
		Count:    reg.Len(),
		Families: families,
	}

	for _, def := range reg.List() {
		toolData := map[string]any{
			"name":        def.Name,
			"description": def.Description,
			"inputSchema": def.InputSchema,
		}
		if def.Annotations.Title != "" ||
			def.Annotations.ReadOnlyHint != nil ||
			def.Annotations.DestructiveHint != nil ||
			def.Annotations.IdempotentHint != nil ||
			def.Annotations.OpenWorldHint != nil {
			toolData["annotations"] = def.Annotations
		}
		out.Tools = append(out.Tools, toolData)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		t.Fatalf("Error encoding JSON: %v", err)
	}

	fmt.Fprintf(os.Stderr, "\nTotal tools: %d\n", reg.Len())
}
