package word

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

func selector() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("matchText", mcp.Description("Change every paragraph containing this text")),
		mcp.WithNumber("paragraphIndex", mcp.Description("0-based paragraph to change when matchText is not given. Omit both to change every paragraph"), mcp.Min(0)),
	}
}

func (h *handlers) styleTools() []tools.Tool {
	styleOpts := append([]mcp.ToolOption{
		document(),
		mcp.WithString("style", mcp.Required(), mcp.Description("Style such as Heading1, Title, Quote, Code, ListParagraph or Caption")),
	}, selector()...)
	styleOpts = append(styleOpts, tools.OutputPath())

	spacingOpts := append([]mcp.ToolOption{
		document(),
		mcp.WithNumber("lineSpacing", mcp.Required(), mcp.Description("Multiple of single spacing, e.g. 1.5"), mcp.Min(0.5), mcp.Max(5)),
		mcp.WithNumber("spaceBefore", mcp.Description("Points"), mcp.Min(0)),
		mcp.WithNumber("spaceAfter", mcp.Description("Points"), mcp.Min(0)),
	}, selector()...)
	spacingOpts = append(spacingOpts, tools.OutputPath())

	return []tools.Tool{
		tools.NewFunc(tools.Define("apply_paragraph_style",
			"Apply a paragraph style to matching paragraphs. Built-in styles missing from the document are added",
			tools.Edits, styleOpts...,
		), h.applyStyle),

		tools.NewFunc(tools.Define("set_line_spacing",
			"Set line spacing and paragraph spacing on matching paragraphs",
			tools.Edits, spacingOpts...,
		), h.setLineSpacing),
	}
}

func paragraphIndex(args tools.Args) int {
	if !args.Has("paragraphIndex") {
		return -1
	}
	return args.Int("paragraphIndex", -1)
}

func (h *handlers) applyStyle(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	style, err := args.RequireString("style")
	if err != nil {
		return nil, err
	}
	var n int
	path, _, err := h.edit(ctx, args, func(d *docx.Document) error {
		var err error
		n, err = d.ApplyStyle(style, args.String("matchText"), paragraphIndex(args))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Applied style %s to %d paragraph(s) in %s", style, n, path), nil
}

func (h *handlers) setLineSpacing(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	spacing := args.Float("lineSpacing", 1)
	var n int
	path, _, err := h.edit(ctx, args, func(d *docx.Document) error {
		var err error
		n, err = d.SetLineSpacing(spacing, args.Float("spaceBefore", 0), args.Float("spaceAfter", 0), args.String("matchText"), paragraphIndex(args))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set line spacing %g on %d paragraph(s) in %s", spacing, n, path), nil
}
