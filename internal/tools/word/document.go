package word

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

var propertyOptions = []mcp.ToolOption{
	mcp.WithString("title"),
	mcp.WithString("subject"),
	mcp.WithString("author"),
	mcp.WithString("keywords"),
	mcp.WithString("description"),
	mcp.WithString("category"),
}

func properties(a tools.Args) docx.Properties {
	return docx.Properties{
		Title:       a.String("title"),
		Subject:     a.String("subject"),
		Creator:     a.String("author"),
		Keywords:    a.String("keywords"),
		Description: a.String("description"),
		Category:    a.String("category"),
	}
}

func (h *handlers) documentTools() []tools.Tool {
	createOpts := []mcp.ToolOption{document()}
	createOpts = append(createOpts, propertyOptions...)
	createOpts = append(createOpts,
		mcp.WithString("heading", mcp.Description("Title shown at the top of the document")),
		tools.StringArray("paragraphs", "Body paragraphs in order"),
		mcp.WithString("markdown", mcp.Description("Body content as markdown, appended after paragraphs")),
		tools.OutputPath(),
	)
	setOpts := []mcp.ToolOption{document()}
	setOpts = append(setOpts, propertyOptions...)
	setOpts = append(setOpts, tools.OutputPath())

	return []tools.Tool{
		tools.NewFunc(tools.Define("create_word_document",
			"Create a new Word document with an optional title, paragraphs or markdown body, and document properties. Overwrites any existing file.",
			tools.Creates, createOpts...,
		), h.createDocument).WithHelp(&tools.ExtendedHelp{
			Examples: []tools.ToolExample{
				{
					Description: "Memo with two paragraphs",
					Arguments: map[string]any{
						"filename": "memo.docx", "heading": "Office move", "author": "Facilities",
						"paragraphs": []any{"We move on 3 March.", "Please pack your desk by Friday."},
					},
				},
				{
					Description: "Report body from markdown",
					Arguments: map[string]any{
						"filename": "report.docx", "title": "Q3 report",
						"markdown": "# Summary\n\nRevenue grew **12%**.\n\n- North up\n- South flat",
					},
				},
			},
			WhenToUse: "Starting a fresh document. Use the add_* tools to extend an existing one",
		}),

		tools.NewFunc(tools.Define("read_word_document",
			"Read a Word document's body as plain text, markdown or HTML",
			tools.Reads,
			document(),
			mcp.WithString("format", mcp.Enum("text", "markdown", "html"), mcp.DefaultString("text")),
			mcp.WithBoolean("includeHeaderFooter", mcp.DefaultBool(false)),
		), h.readDocument),

		tools.NewFunc(tools.Define("get_document_statistics",
			"Count words, characters, paragraphs, sentences, headings, tables, images, comments and sections, and estimate the page count",
			tools.Reads,
			document(),
		), h.statistics),

		tools.NewFunc(tools.Define("set_document_properties",
			"Set the core properties of a document. Omitted properties keep their value",
			tools.Edits, setOpts...,
		), h.setProperties),
	}
}

func (h *handlers) createDocument(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	props := properties(args)
	if props.Title == "" {
		props.Title = args.String("heading")
	}
	d, err := h.gen.Blank(&props)
	if err != nil {
		return nil, err
	}
	if heading := args.String("heading"); heading != "" {
		if err := d.AddHeading(heading, 0); err != nil {
			return nil, err
		}
	}
	paragraphs := args.Strings("paragraphs")
	for _, p := range paragraphs {
		if err := d.AddParagraph(p, docx.RunStyle{}, docx.ParagraphStyle{}); err != nil {
			return nil, err
		}
	}
	if md := args.String("markdown"); md != "" {
		if err := d.AppendMarkdown(md); err != nil {
			return nil, err
		}
	}
	data, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	path, err := h.store.Create(ctx, filename, args.String("outputPath"), data)
	if err != nil {
		return nil, err
	}
	logger.WithField("path", path).Info("Created Word document")
	return tools.Text("Created Word document with %d block(s) at %s", len(d.Blocks()), path), nil
}

func (h *handlers) readDocument(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	format := args.StringOr("format", "text")
	var body, header, footer string
	path, err := h.inspect(args, func(d *docx.Document) error {
		switch format {
		case "markdown":
			md, err := d.Markdown()
			if err != nil {
				return err
			}
			body = md
		case "html":
			body = d.HTML()
		case "text":
			body = d.PlainText()
		default:
			return &tools.ValidationError{Field: "format", Value: format, Message: "must be text, markdown or html"}
		}
		header, footer = d.HeaderFooterText(docx.Header), d.HeaderFooterText(docx.Footer)
		return nil
	})
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Content of %s:\n\n", path)
	if args.Bool("includeHeaderFooter", false) && header != "" {
		fmt.Fprintf(&b, "[Header]\n%s\n\n", header)
	}
	if strings.TrimSpace(body) == "" {
		b.WriteString("(empty document)")
	} else {
		b.WriteString(body)
	}
	if args.Bool("includeHeaderFooter", false) && footer != "" {
		fmt.Fprintf(&b, "\n\n[Footer]\n%s", footer)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) statistics(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var s docx.Statistics
	var title string
	path, err := h.inspect(args, func(d *docx.Document) error {
		s = d.Statistics()
		props, _ := d.Properties()
		title = props.Title
		return nil
	})
	if err != nil {
		return nil, err
	}
	name := path
	if title != "" {
		name = fmt.Sprintf("%s (%s)", path, title)
	}
	return tools.Text("Statistics for %s:\nWords: %d\nCharacters: %d (%d without spaces)\nParagraphs: %d\nSentences: %d\nHeadings: %d\nTables: %d\nImages: %d\nComments: %d\nSections: %d\nEstimated pages: %d",
		name, s.Words, s.Characters, s.CharactersNoWS, s.Paragraphs, s.Sentences, s.Headings, s.Tables, s.Images, s.Comments, s.Sections, s.EstimatedPages), nil
}

func (h *handlers) setProperties(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	props := properties(args)
	if props == (docx.Properties{}) {
		return nil, &tools.ValidationError{Field: "title", Message: "no properties given"}
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.SetProperties(props)
	})
	if err != nil {
		return nil, err
	}
	var set []string
	for _, p := range []struct{ name, value string }{
		{"title", props.Title}, {"subject", props.Subject}, {"author", props.Creator},
		{"keywords", props.Keywords}, {"description", props.Description}, {"category", props.Category},
	} {
		if p.value != "" {
			set = append(set, p.name)
		}
	}
	return tools.Text("Set document %s on %s%s", strings.Join(set, ", "), path, created(existed)), nil
}
