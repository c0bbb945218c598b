package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaBaseURL = "https://mcp-office.local/tools/"

// Validator checks tools/call arguments against the input schema each tool
// advertises in tools/list, so a descriptor is both documentation and contract.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the input schema of every tool. A schema that fails to
// compile is a programming error and is reported at start-up.
func NewValidator(defs []mcp.Tool) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(defs))}
	c := jsonschema.NewCompiler()

	for _, def := range defs {
		raw, err := inputSchemaJSON(def)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", def.Name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("tool %s: failed to parse input schema: %w", def.Name, err)
		}
		url := schemaBaseURL + def.Name + ".json"
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("tool %s: failed to add input schema: %w", def.Name, err)
		}
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("tool %s: failed to compile input schema: %w", def.Name, err)
		}
		v.schemas[def.Name] = sch
	}
	return v, nil
}

// Validate checks args against the named tool's schema. Tools without a compiled
// schema are accepted unchanged.
func (v *Validator) Validate(name string, args map[string]any) error {
	sch, ok := v.schemas[name]
	if !ok {
		return nil
	}

	// Round-trip through the validator's own decoder so numbers keep full precision
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}

	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("invalid arguments for tool %s: %s", name, flatten(err.Error()))
	}
	return nil
}

func inputSchemaJSON(def mcp.Tool) ([]byte, error) {
	if len(def.RawInputSchema) > 0 {
		return def.RawInputSchema, nil
	}
	schema := def.InputSchema
	if schema.Type == "" {
		schema.Type = "object"
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}
	return raw, nil
}

// flatten collapses the validator's multi-line report into one line
func flatten(msg string) string {
	lines := strings.Split(msg, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "; ")
}
