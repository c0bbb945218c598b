// Package cli runs catalog tools straight from the command line. Calls go
// through the same dispatcher as the stdio server, so arguments are
// validated against the tool's input schema exactly as they would be for a
// tools/call request.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/server"
)

// OutputFormat controls how tool results are rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// ErrToolFailed is returned when a tool reports an error result
var ErrToolFailed = errors.New("tool returned an error")

// Runner executes tools from command line arguments.
type Runner struct {
	registry   *registry.Registry
	dispatcher *server.Dispatcher
	out        io.Writer
	output     OutputFormat
}

// NewRunner creates a Runner writing to out.
func NewRunner(reg *registry.Registry, d *server.Dispatcher, out io.Writer, output OutputFormat) *Runner {
	return &Runner{registry: reg, dispatcher: d, out: out, output: output}
}

// Describe prints the parameters of a single tool.
func (r *Runner) Describe(name string) error {
	resolved, ok := r.resolveTool(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}
	tool, _ := r.registry.Get(resolved)
	def := tool.Definition()

	if r.output == OutputJSON {
		return r.writeJSON(def)
	}

	_, _ = fmt.Fprintf(r.out, "Tool: %s\n\n", def.Name)
	if def.Description != "" {
		_, _ = fmt.Fprintf(r.out, "%s\n\n", def.Description)
	}

	props := def.InputSchema.Properties
	if len(props) == 0 {
		_, _ = fmt.Fprintln(r.out, "No parameters.")
		return nil
	}

	_, _ = fmt.Fprintln(r.out, "Parameters:")
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	slices.Sort(names)

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, pName := range names {
		pMap, ok := props[pName].(map[string]any)
		if !ok {
			continue
		}
		pType, _ := pMap["type"].(string)
		pDesc, _ := pMap["description"].(string)

		reqMark := ""
		if slices.Contains(def.InputSchema.Required, pName) {
			reqMark = " (required)"
		}
		_, _ = fmt.Fprintf(w, "  --%s\t%s\t%s%s%s\n", toFlagName(pName), pType, firstLine(pDesc), reqMark, formatEnum(pMap))
	}
	return w.Flush()
}

// Run executes a tool. args can be a JSON object, --key=value flags, or both;
// flags take precedence over JSON keys.
func (r *Runner) Run(ctx context.Context, name string, args []string) error {
	resolved, ok := r.resolveTool(name)
	if !ok {
		return fmt.Errorf("unknown tool: %s (run 'mcp-office tools' to see available tools)", name)
	}
	tool, _ := r.registry.Get(resolved)

	params, err := parseArgs(args, tool.Definition())
	if err != nil {
		return fmt.Errorf("argument error: %w", err)
	}

	body, err := json.Marshal(server.CallToolParams{Name: resolved, Arguments: params})
	if err != nil {
		return err
	}
	resp := r.dispatcher.Handle(ctx, &server.Request{
		JSONRPC: server.JSONRPCVersion,
		ID:      json.RawMessage("1"),
		Method:  "tools/call",
		Params:  body,
	})
	if resp.Error != nil {
		return fmt.Errorf("%s: %s", resolved, resp.Error.Message)
	}

	result, _ := resp.Result.(*mcp.CallToolResult)
	return r.render(result)
}

// parseArgs converts command line arguments into tool arguments.
func parseArgs(args []string, def mcp.Tool) (map[string]any, error) {
	params := make(map[string]any)
	schema := buildSchemaInfo(def)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(arg), &obj); err != nil {
				return nil, fmt.Errorf("invalid JSON argument: %w", err)
			}
			for k, v := range obj {
				if _, exists := params[k]; !exists {
					params[k] = v
				}
			}
			continue
		}

		if strings.HasPrefix(arg, "--") {
			key, val, err := parseFlag(arg, args, &i, schema)
			if err != nil {
				return nil, err
			}
			params[key] = val
			continue
		}

		return nil, fmt.Errorf("unexpected argument: %s (use --key=value flags or pass a JSON object)", arg)
	}

	return params, nil
}

// schemaInfo holds what argument parsing needs from an input schema.
type schemaInfo struct {
	// typeMap maps parameter names to their JSON Schema types
	typeMap map[string]string
	// flagToParam maps kebab-case flag names to parameter names
	flagToParam map[string]string
}

// parseFlag parses --key=value, --key value or a bare boolean --flag.
func parseFlag(arg string, args []string, idx *int, schema schemaInfo) (string, any, error) {
	stripped := strings.TrimPrefix(arg, "--")

	if flagName, rawVal, found := strings.Cut(stripped, "="); found {
		paramName := schema.resolveParam(flagName)
		return paramName, coerceValue(rawVal, schema.typeMap[paramName]), nil
	}

	paramName := schema.resolveParam(stripped)
	if schema.typeMap[paramName] == "boolean" {
		return paramName, true, nil
	}

	*idx++
	if *idx >= len(args) {
		return "", nil, fmt.Errorf("flag --%s requires a value", stripped)
	}
	return paramName, coerceValue(args[*idx], schema.typeMap[paramName]), nil
}

func (s schemaInfo) resolveParam(flagName string) string {
	if actual, ok := s.flagToParam[flagName]; ok {
		return actual
	}
	return flagName
}

func buildSchemaInfo(def mcp.Tool) schemaInfo {
	info := schemaInfo{
		typeMap:     make(map[string]string, len(def.InputSchema.Properties)),
		flagToParam: make(map[string]string, len(def.InputSchema.Properties)),
	}
	for name, prop := range def.InputSchema.Properties {
		if pm, ok := prop.(map[string]any); ok {
			if t, ok := pm["type"].(string); ok {
				info.typeMap[name] = t
			}
		}
		info.flagToParam[toFlagName(name)] = name
	}
	return info
}

// coerceValue converts a raw flag value to the Go type its schema expects.
func coerceValue(raw, schemaType string) any {
	switch schemaType {
	case "integer":
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
	case "number":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	case "array":
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			return arr
		}
		parts := strings.Split(raw, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	case "object":
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			return obj
		}
	}
	return raw
}

func (r *Runner) render(result *mcp.CallToolResult) error {
	if result == nil {
		return nil
	}
	if r.output == OutputJSON {
		if err := r.writeJSON(result); err != nil {
			return err
		}
	} else {
		for _, content := range result.Content {
			if c, ok := mcp.AsTextContent(content); ok {
				_, _ = fmt.Fprintln(r.out, c.Text)
				continue
			}
			if err := r.writeJSON(content); err != nil {
				return err
			}
		}
	}
	if result.IsError {
		return ErrToolFailed
	}
	return nil
}

// resolveTool accepts kebab-case names as well as the registered snake_case ones.
func (r *Runner) resolveTool(name string) (string, bool) {
	for _, candidate := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if _, ok := r.registry.Get(candidate); ok {
			return candidate, true
		}
	}
	return name, false
}

func (r *Runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string) string {
	before, _, _ := strings.Cut(s, "\n")
	return before
}

// toFlagName converts camelCase or snake_case to kebab-case.
func toFlagName(s string) string {
	s = strings.ReplaceAll(s, "_", "-")
	var out strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out.WriteByte('-')
			}
			out.WriteRune(r + 32)
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func formatEnum(pMap map[string]any) string {
	var vals []string
	switch enum := pMap["enum"].(type) {
	case []string:
		vals = enum
	case []any:
		for _, v := range enum {
			vals = append(vals, fmt.Sprint(v))
		}
	}
	if len(vals) == 0 {
		return ""
	}
	return " [" + strings.Join(vals, "|") + "]"
}
