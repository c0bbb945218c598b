// Package powerpoint exposes the PowerPoint tools. Slides are addressed by
// their 1-based position in the show.
package powerpoint

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/pptx"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/tools"
)

type handlers struct {
	gen   *pptx.Generator
	store *output.Store
}

// Register adds the PowerPoint tools to reg
func Register(reg *registry.Registry, gen *pptx.Generator, store *output.Store) error {
	h := &handlers{gen: gen, store: store}
	var all []tools.Tool
	for _, group := range [][]tools.Tool{
		h.presentationTools(),
		h.slideTools(),
		h.contentTools(),
		h.designTools(),
	} {
		all = append(all, group...)
	}
	return reg.RegisterAll(all...)
}

func (h *handlers) edit(ctx context.Context, args tools.Args, fn func(p *pptx.Presentation) error) (string, bool, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return "", false, err
	}
	return h.store.Edit(ctx, filename, args.String("outputPath"), func(existing []byte) ([]byte, error) {
		return h.gen.Apply(existing, fn)
	})
}

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
		return nil, "", &pptx.PresentationError{Operation: "read", Cause: fmt.Errorf("%s does not exist", path)}
	}
	return data, path, nil
}

func (h *handlers) inspect(args tools.Args, fn func(p *pptx.Presentation) error) (string, error) {
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
	return " (new presentation created)"
}

func deck() mcp.ToolOption {
	return tools.Filename("Path to the .pptx presentation")
}

func slideNumber() mcp.ToolOption {
	return mcp.WithNumber("slideNumber", mcp.Required(), mcp.Description("1-based slide position"), mcp.Min(1))
}

// everySlide is slideNumber where 0 applies the change to every slide
func everySlide() mcp.ToolOption {
	return mcp.WithNumber("slideNumber", mcp.DefaultNumber(0), mcp.Description("1-based slide position, 0 for every slide"), mcp.Min(0))
}

func boxOptions(x, y, w, h float64) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("x", mcp.DefaultNumber(x), mcp.Description("Left edge in inches")),
		mcp.WithNumber("y", mcp.DefaultNumber(y), mcp.Description("Top edge in inches")),
		mcp.WithNumber("width", mcp.DefaultNumber(w), mcp.Description("Inches")),
		mcp.WithNumber("height", mcp.DefaultNumber(h), mcp.Description("Inches")),
	}
}

func box(args tools.Args, def pptx.Box) pptx.Box {
	return pptx.Box{
		X: args.Float("x", def.X),
		Y: args.Float("y", def.Y),
		W: args.Float("width", def.W),
		H: args.Float("height", def.H),
	}
}

func where(n int) string {
	if n == 0 {
		return "every slide"
	}
	return fmt.Sprintf("slide %d", n)
}

// lines accepts either a string array or a newline separated string
func lines(args tools.Args, key string) []string {
	if s, ok := args[key].(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return strings.Split(s, "\n")
		}
		return nil
	}
	return args.Strings(key)
}
