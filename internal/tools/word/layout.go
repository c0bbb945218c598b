package word

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

func (h *handlers) layoutTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("set_word_header",
			"Replace the page header with text. Each line becomes a paragraph",
			tools.Edits,
			document(),
			mcp.WithString("text", mcp.Required()),
			alignOption(),
			tools.OutputPath(),
		), h.setHeaderFooter(docx.Header)),

		tools.NewFunc(tools.Define("set_word_footer",
			"Replace the page footer with text. Each line becomes a paragraph",
			tools.Edits,
			document(),
			mcp.WithString("text", mcp.Required()),
			alignOption(),
			tools.OutputPath(),
		), h.setHeaderFooter(docx.Footer)),

		tools.NewFunc(tools.Define("add_page_numbers",
			"Add page number fields to the footer or header, below any existing text",
			tools.Edits,
			document(),
			mcp.WithString("format", mcp.Description("Text with {PAGE} and {NUMPAGES}"), mcp.DefaultString("Page {PAGE} of {NUMPAGES}")),
			mcp.WithString("position", mcp.Enum("footer", "header"), mcp.DefaultString("footer")),
			alignOption(),
			tools.OutputPath(),
		), h.addPageNumbers),

		tools.NewFunc(tools.Define("add_table_of_contents",
			"Append a table of contents field built from headings. Word fills it in when the document is opened",
			tools.Edits,
			document(),
			mcp.WithString("title", mcp.DefaultString("Contents")),
			mcp.WithNumber("maxLevel", mcp.Description("Deepest heading level listed"), mcp.DefaultNumber(3), mcp.Min(1), mcp.Max(9)),
			tools.OutputPath(),
		), h.addTableOfContents),

		tools.NewFunc(tools.Define("add_section_break",
			"End the current section so the following content can have its own page layout",
			tools.Edits,
			document(),
			mcp.WithString("type", mcp.Enum("nextPage", "continuous", "evenPage", "oddPage", "nextColumn"), mcp.DefaultString("nextPage")),
			tools.OutputPath(),
		), h.addSectionBreak),

		tools.NewFunc(tools.Define("set_page_margins",
			"Set the page margins of the last section in inches. Omitted sides keep their value",
			tools.Edits,
			document(),
			mcp.WithNumber("top", mcp.Min(0)),
			mcp.WithNumber("right", mcp.Min(0)),
			mcp.WithNumber("bottom", mcp.Min(0)),
			mcp.WithNumber("left", mcp.Min(0)),
			tools.OutputPath(),
		), h.setMargins),

		tools.NewFunc(tools.Define("set_page_orientation",
			"Switch the last section between portrait and landscape",
			tools.Edits,
			document(),
			mcp.WithString("orientation", mcp.Required(), mcp.Enum("portrait", "landscape")),
			tools.OutputPath(),
		), h.setOrientation),

		tools.NewFunc(tools.Define("set_text_columns",
			"Lay the last section out in newspaper-style columns",
			tools.Edits,
			document(),
			mcp.WithNumber("columns", mcp.Required(), mcp.Min(1), mcp.Max(45)),
			mcp.WithNumber("spacing", mcp.Description("Gap between columns in inches"), mcp.DefaultNumber(0.5)),
			mcp.WithBoolean("separator", mcp.Description("Draw a line between columns"), mcp.DefaultBool(false)),
			tools.OutputPath(),
		), h.setColumns),
	}
}

func (h *handlers) setHeaderFooter(kind docx.HeaderFooter) tools.HandlerFunc {
	name := "header"
	if kind == docx.Footer {
		name = "footer"
	}
	return func(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
		text, err := args.RequireString("text")
		if err != nil {
			return nil, err
		}
		style := docx.ParagraphStyle{Align: args.StringOr("alignment", "center")}
		var paragraphs []string
		for _, line := range strings.Split(text, "\n") {
			paragraphs = append(paragraphs, docx.Paragraph(style, docx.Run(line, docx.RunStyle{})))
		}
		path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
			return d.SetHeaderFooter(kind, paragraphs...)
		})
		if err != nil {
			return nil, err
		}
		return tools.Text("Set %s %s in %s%s", name, quote(text), path, created(existed)), nil
	}
}

func (h *handlers) addPageNumbers(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	format := args.StringOr("format", "Page {PAGE} of {NUMPAGES}")
	if !strings.Contains(format, "{PAGE}") && !strings.Contains(format, "{NUMPAGES}") {
		return nil, &tools.ValidationError{Field: "format", Value: format, Message: "must contain {PAGE} or {NUMPAGES}"}
	}
	kind, where := docx.Footer, "footer"
	if args.String("position") == "header" {
		kind, where = docx.Header, "header"
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		var paragraphs []string
		if existing := d.HeaderFooterText(kind); existing != "" {
			for _, line := range strings.Split(existing, "\n") {
				paragraphs = append(paragraphs, docx.Paragraph(docx.ParagraphStyle{Align: "center"}, docx.Run(line, docx.RunStyle{})))
			}
		}
		paragraphs = append(paragraphs, docx.PageNumberParagraph(format, args.StringOr("alignment", "center")))
		return d.SetHeaderFooter(kind, paragraphs...)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added page numbers (%s) to the %s of %s%s", format, where, path, created(existed)), nil
}

func (h *handlers) addTableOfContents(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	level := args.Int("maxLevel", 3)
	var headings int
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		for _, b := range d.Blocks() {
			if b.Kind == docx.BlockHeading && b.Level >= 1 && b.Level <= level {
				headings++
			}
		}
		return d.AddTableOfContents(args.StringOr("title", "Contents"), level)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added table of contents (levels 1-%d, %d heading(s) so far) to %s%s", level, headings, path, created(existed)), nil
}

func (h *handlers) addSectionBreak(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	kind := args.StringOr("type", "nextPage")
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.AddSectionBreak(kind)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added %s section break to %s%s", kind, path, created(existed)), nil
}

func (h *handlers) setMargins(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	top, right := args.Float("top", 0), args.Float("right", 0)
	bottom, left := args.Float("bottom", 0), args.Float("left", 0)
	if top == 0 && right == 0 && bottom == 0 && left == 0 {
		return nil, &tools.ValidationError{Field: "top", Message: "give at least one margin"}
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.SetMargins(top, right, bottom, left)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set page margins in %s%s", path, created(existed)), nil
}

func (h *handlers) setOrientation(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	orientation := args.String("orientation")
	if orientation != "portrait" && orientation != "landscape" {
		return nil, &tools.ValidationError{Field: "orientation", Value: orientation, Message: "must be portrait or landscape"}
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.SetOrientation(orientation == "landscape")
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set %s orientation in %s%s", orientation, path, created(existed)), nil
}

func (h *handlers) setColumns(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	count := args.Int("columns", 1)
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.SetColumns(count, args.Float("spacing", 0.5), args.Bool("separator", false))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set %d text column(s) in %s%s", count, path, created(existed)), nil
}
