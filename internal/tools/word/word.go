// Package word exposes the Word document tools. Edits open the named .docx
// when it exists, or start from a blank document, and write the result back
// through the output store.
package word

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/tools"
)

type handlers struct {
	gen   *docx.Generator
	store *output.Store
}

// Register adds the Word tools to reg
func Register(reg *registry.Registry, gen *docx.Generator, store *output.Store) error {
	h := &handlers{gen: gen, store: store}
	var all []tools.Tool
	for _, group := range [][]tools.Tool{
		h.documentTools(),
		h.contentTools(),
		h.layoutTools(),
		h.reviewTools(),
		h.objectTools(),
		h.styleTools(),
		h.conversionTools(),
	} {
		all = append(all, group...)
	}
	return reg.RegisterAll(all...)
}

func (h *handlers) edit(ctx context.Context, args tools.Args, fn func(d *docx.Document) error) (string, bool, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return "", false, err
	}
	return h.store.Edit(ctx, filename, args.String("outputPath"), func(existing []byte) ([]byte, error) {
		return h.gen.Apply(existing, fn)
	})
}

// read loads an existing file named by the key argument
func (h *handlers) read(args tools.Args, key string) ([]byte, string, error) {
	name, err := args.RequireString(key)
	if err != nil {
		return nil, "", err
	}
	path, err := h.store.ResolveInput(name)
	if err != nil {
		return nil, "", err
	}
	data, err := h.store.Read(path)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", &docx.DocumentError{Operation: "read", Cause: fmt.Errorf("%s does not exist", path)}
	}
	return data, path, nil
}

func (h *handlers) inspect(args tools.Args, fn func(d *docx.Document) error) (string, error) {
	data, path, err := h.read(args, "filename")
	if err != nil {
		return "", err
	}
	return path, h.gen.Inspect(data, fn)
}

func created(existed bool) string {
	if existed {
		return ""
	}
	return " (new document created)"
}

func document() mcp.ToolOption {
	return tools.Filename("Path to the .docx document. Created if it does not exist")
}

// anchor selects a paragraph by text for tools that attach to one
func anchor(what string) mcp.ToolOption {
	return mcp.WithString("anchorText", mcp.Description("Attach the "+what+" to the first paragraph containing this text. Defaults to the last paragraph"))
}

func quote(s string) string {
	if r := []rune(s); len(r) > 40 {
		s = string(r[:37]) + "..."
	}
	return "'" + strings.ReplaceAll(s, "\n", " ") + "'"
}

var runProperties = map[string]any{
	"bold":      map[string]any{"type": "boolean"},
	"italic":    map[string]any{"type": "boolean"},
	"underline": map[string]any{"type": "boolean"},
	"fontSize":  map[string]any{"type": "number", "description": "Points"},
	"color":     map[string]any{"type": "string", "description": "Hex colour such as 1F4E79"},
	"font":      map[string]any{"type": "string"},
	"highlight": map[string]any{"type": "string", "description": "Highlight colour name such as yellow"},
}

func runStyle(a tools.Args) docx.RunStyle {
	return docx.RunStyle{
		Bold:      a.Bool("bold", false),
		Italic:    a.Bool("italic", false),
		Underline: a.Bool("underline", false),
		Strike:    a.Bool("strikethrough", false),
		FontSize:  a.Float("fontSize", 0),
		Color:     strings.TrimPrefix(a.String("color"), "#"),
		Font:      a.String("font"),
		Highlight: a.String("highlight"),
	}
}

func alignOption() mcp.ToolOption {
	return mcp.WithString("alignment", mcp.Enum("left", "center", "right", "justify"))
}
