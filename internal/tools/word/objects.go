package word

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

var sourceProperties = map[string]any{
	"author":    map[string]any{"type": "string", "description": "Last, First or an organisation"},
	"title":     map[string]any{"type": "string"},
	"year":      map[string]any{"type": "string"},
	"publisher": map[string]any{"type": "string"},
	"journal":   map[string]any{"type": "string"},
	"url":       map[string]any{"type": "string"},
	"pages":     map[string]any{"type": "string"},
}

func sourceFrom(a tools.Args) docx.Source {
	return docx.Source{
		Author:    a.String("author"),
		Title:     a.String("title"),
		Year:      a.String("year"),
		Publisher: a.String("publisher"),
		Journal:   a.String("journal"),
		URL:       a.String("url"),
		Pages:     a.String("pages"),
	}
}

func citationStyle() mcp.ToolOption {
	return mcp.WithString("style", mcp.Enum("apa", "mla", "chicago"), mcp.DefaultString("apa"))
}

func (h *handlers) objectTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_watermark",
			"Add large pale text such as DRAFT or CONFIDENTIAL to the page header",
			tools.Edits,
			document(),
			mcp.WithString("text", mcp.Required()),
			mcp.WithString("color", mcp.DefaultString("D9D9D9")),
			tools.OutputPath(),
		), h.addWatermark),

		tools.NewFunc(tools.Define("add_text_box",
			"Append a bordered, shaded call-out box with an optional title",
			tools.Edits,
			document(),
			mcp.WithString("text", mcp.Required()),
			mcp.WithString("title"),
			mcp.WithString("fillColor", mcp.DefaultString("F2F2F2")),
			tools.OutputPath(),
		), h.addTextBox),

		tools.NewFunc(tools.Define("add_equation",
			"Append an equation in linear form, e.g. E = mc^2 or (a+b)/c",
			tools.Edits,
			document(),
			mcp.WithString("equation", mcp.Required()),
			alignOption(),
			tools.OutputPath(),
		), h.addEquation),

		tools.NewFunc(tools.Define("add_citation",
			"Cite a source in APA, MLA or Chicago author-date form, either after new text or at the end of an existing paragraph",
			tools.Edits,
			document(),
			mcp.WithObject("source", mcp.Required(), mcp.Properties(sourceProperties)),
			citationStyle(),
			mcp.WithString("text", mcp.Description("Sentence the citation follows, added as a new paragraph")),
			anchor("citation"),
			tools.OutputPath(),
		), h.addCitation),

		tools.NewFunc(tools.Define("add_bibliography",
			"Append a reference list sorted by author, formatted in APA, MLA or Chicago style",
			tools.Edits,
			document(),
			tools.ObjectArray("sources", "Works to list", sourceProperties, mcp.Required(), mcp.MinItems(1)),
			citationStyle(),
			mcp.WithString("title", mcp.Description("Defaults to References, Works Cited or Bibliography by style")),
			tools.OutputPath(),
		), h.addBibliography),

		tools.NewFunc(tools.Define("add_signature_line",
			"Append a signature block: a line to sign on, the signer's name and title, and an optional date line",
			tools.Edits,
			document(),
			mcp.WithString("signerName"),
			mcp.WithString("signerTitle"),
			mcp.WithString("instructions"),
			mcp.WithBoolean("includeDate", mcp.DefaultBool(true)),
			tools.OutputPath(),
		), h.addSignatureLine),

		tools.NewFunc(tools.Define("add_caption",
			"Append a numbered caption such as 'Figure 2: Revenue by region'. Numbers are fields Word renumbers on update",
			tools.Edits,
			document(),
			mcp.WithString("label", mcp.Enum("Figure", "Table", "Equation"), mcp.DefaultString("Figure")),
			mcp.WithString("text"),
			tools.OutputPath(),
		), h.addCaption),
	}
}

func (h *handlers) addWatermark(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	text, err := args.RequireString("text")
	if err != nil {
		return nil, err
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.AddWatermark(text, strings.TrimPrefix(args.String("color"), "#"))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added watermark %s to %s%s", quote(strings.ToUpper(text)), path, created(existed)), nil
}

func (h *handlers) addTextBox(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	text, err := args.RequireString("text")
	if err != nil {
		return nil, err
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		d.AddTextBox(text, args.String("title"), strings.TrimPrefix(args.String("fillColor"), "#"))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added text box to %s%s", path, created(existed)), nil
}

func (h *handlers) addEquation(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	eq, err := args.RequireString("equation")
	if err != nil {
		return nil, err
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.AddEquation(eq, args.StringOr("alignment", "center"))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added equation %s to %s%s", quote(eq), path, created(existed)), nil
}

func (h *handlers) addCitation(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	src := sourceFrom(args.Map("source"))
	if src.Author == "" {
		return nil, &tools.ValidationError{Field: "source.author", Message: "is required"}
	}
	var citation string
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		var err error
		citation, err = d.AddCitation(src, args.StringOr("style", "apa"), args.String("text"), args.String("anchorText"))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added citation %s to %s%s", citation, path, created(existed)), nil
}

func (h *handlers) addBibliography(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var sources []docx.Source
	for _, s := range args.Maps("sources") {
		sources = append(sources, sourceFrom(s))
	}
	style := args.StringOr("style", "apa")
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.AddBibliography(sources, style, args.String("title"))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added %s bibliography with %d source(s) to %s%s", strings.ToUpper(style), len(sources), path, created(existed)), nil
}

func (h *handlers) addSignatureLine(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name := args.String("signerName")
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		d.AddSignatureLine(name, args.String("signerTitle"), args.String("instructions"), args.Bool("includeDate", true))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if name == "" {
		return tools.Text("Added signature line to %s%s", path, created(existed)), nil
	}
	return tools.Text("Added signature line for %s to %s%s", name, path, created(existed)), nil
}

func (h *handlers) addCaption(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	label := args.StringOr("label", "Figure")
	var number int
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		var err error
		number, err = d.AddCaption(label, args.String("text"))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added caption %s %d to %s%s", label, number, path, created(existed)), nil
}
