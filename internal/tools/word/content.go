package word

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

var imageTypes = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}

func (h *handlers) contentTools() []tools.Tool {
	paragraphOpts := []mcp.ToolOption{
		document(),
		mcp.WithString("text", mcp.Required()),
		mcp.WithString("style", mcp.Description("Paragraph style such as Quote, Code or Heading2")),
		alignOption(),
	}
	for name, schema := range runProperties {
		paragraphOpts = append(paragraphOpts, propertyOption(name, schema.(map[string]any)))
	}
	paragraphOpts = append(paragraphOpts,
		mcp.WithNumber("spaceAfter", mcp.Description("Points after the paragraph")),
		tools.OutputPath(),
	)

	return []tools.Tool{
		tools.NewFunc(tools.Define("add_paragraph",
			"Append a paragraph of text with optional character and paragraph formatting",
			tools.Edits, paragraphOpts...,
		), h.addParagraph),

		tools.NewFunc(tools.Define("add_heading",
			"Append a heading. Level 0 is the document title, 1-6 are section headings used by the table of contents",
			tools.Edits,
			document(),
			mcp.WithString("text", mcp.Required()),
			mcp.WithNumber("level", mcp.DefaultNumber(1), mcp.Min(0), mcp.Max(6)),
			tools.OutputPath(),
		), h.addHeading),

		tools.NewFunc(tools.Define("add_word_table",
			"Append a table. The first row is a repeating header row unless hasHeader is false",
			tools.Edits,
			document(),
			tools.Grid("data", "Rows of cell values", mcp.Required(), mcp.MinItems(1)),
			tools.StringArray("headers", "Header row, placed before data"),
			mcp.WithBoolean("hasHeader", mcp.DefaultBool(true)),
			mcp.WithString("style", mcp.Description("Table style"), mcp.DefaultString("TableGrid")),
			mcp.WithString("headerColor", mcp.Description("Header fill, e.g. D9E2F3")),
			tools.OutputPath(),
		), h.addTable),

		tools.NewFunc(tools.Define("add_word_image",
			"Append an image from a file. Give width or height in pixels to scale it, keeping the aspect ratio",
			tools.Edits,
			document(),
			mcp.WithString("imagePath", mcp.Required(), mcp.Description("PNG, JPEG, GIF or BMP file")),
			mcp.WithNumber("width", mcp.Min(1)),
			mcp.WithNumber("height", mcp.Min(1)),
			mcp.WithString("altText"),
			alignOption(),
			tools.OutputPath(),
		), h.addImage),

		tools.NewFunc(tools.Define("add_page_break",
			"Start a new page",
			tools.Edits,
			document(),
			tools.OutputPath(),
		), h.addPageBreak),

		tools.NewFunc(tools.Define("add_bullet_list",
			"Append a bulleted list. Indent an item with two spaces per level, up to three levels",
			tools.Edits,
			document(),
			tools.StringArray("items", "List items", mcp.Required(), mcp.MinItems(1)),
			tools.OutputPath(),
		), h.addList(false)),

		tools.NewFunc(tools.Define("add_numbered_list",
			"Append a numbered list that starts again at 1. Indent an item with two spaces per level",
			tools.Edits,
			document(),
			tools.StringArray("items", "List items", mcp.Required(), mcp.MinItems(1)),
			tools.OutputPath(),
		), h.addList(true)),

		tools.NewFunc(tools.Define("add_word_hyperlink",
			"Append a paragraph containing a hyperlink to a URL or to a bookmark (#name)",
			tools.Edits,
			document(),
			mcp.WithString("text", mcp.Required(), mcp.Description("Link text")),
			mcp.WithString("url", mcp.Required()),
			mcp.WithString("prefix", mcp.Description("Text before the link in the same paragraph")),
			tools.OutputPath(),
		), h.addHyperlink),

		tools.NewFunc(tools.Define("find_replace_word",
			"Replace text throughout the body, headers and footers. Formatting of the first run in a changed paragraph is kept",
			tools.Edits,
			document(),
			mcp.WithString("find", mcp.Required()),
			mcp.WithString("replace", mcp.Required(), mcp.Description("Replacement, may be empty")),
			mcp.WithBoolean("matchCase", mcp.DefaultBool(false)),
			tools.OutputPath(),
		), h.findReplace),
	}
}

func propertyOption(name string, schema map[string]any) mcp.ToolOption {
	var opts []mcp.PropertyOption
	if d, ok := schema["description"].(string); ok {
		opts = append(opts, mcp.Description(d))
	}
	switch schema["type"] {
	case "boolean":
		return mcp.WithBoolean(name, opts...)
	case "number":
		return mcp.WithNumber(name, opts...)
	}
	return mcp.WithString(name, opts...)
}

func (h *handlers) addParagraph(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	text, err := args.RequireString("text")
	if err != nil {
		return nil, err
	}
	para := docx.ParagraphStyle{
		Style:      args.String("style"),
		Align:      args.String("alignment"),
		SpaceAfter: args.Float("spaceAfter", 0),
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.AddParagraph(text, runStyle(args), para)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added paragraph %s to %s%s", quote(text), path, created(existed)), nil
}

func (h *handlers) addHeading(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	text, err := args.RequireString("text")
	if err != nil {
		return nil, err
	}
	level := args.Int("level", 1)
	if level < 0 || level > 6 {
		return nil, &tools.ValidationError{Field: "level", Value: level, Message: "must be between 0 and 6"}
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.AddHeading(text, level)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added level %d heading %s to %s%s", level, quote(text), path, created(existed)), nil
}

func (h *handlers) addTable(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var rows [][]string
	if headers := args.Strings("headers"); len(headers) > 0 {
		rows = append(rows, headers)
	}
	for _, r := range args.Rows("data") {
		row := make([]string, len(r))
		for i, v := range r {
			row[i] = tools.Stringify(v)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, &tools.ValidationError{Field: "data", Message: "table needs at least one row"}
	}
	opts := docx.TableOptions{
		Header:     args.Bool("hasHeader", true),
		Style:      args.StringOr("style", "TableGrid"),
		HeaderFill: strings.TrimPrefix(args.String("headerColor"), "#"),
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.AddTable(rows, opts)
	})
	if err != nil {
		return nil, err
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	return tools.Text("Added %dx%d table to %s%s", len(rows), cols, path, created(existed)), nil
}

func (h *handlers) addImage(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	data, imagePath, err := h.read(args, "imagePath")
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(imagePath))
	if !slices.Contains(imageTypes, ext) {
		return nil, &tools.ValidationError{Field: "imagePath", Value: imagePath, Message: "unsupported image type " + ext}
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.AddImage(data, ext, args.Int("width", 0), args.Int("height", 0), args.String("altText"), args.String("alignment"))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added image %s to %s%s", filepath.Base(imagePath), path, created(existed)), nil
}

func (h *handlers) addPageBreak(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		d.AddPageBreak()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added page break to %s%s", path, created(existed)), nil
}

func (h *handlers) addList(numbered bool) tools.HandlerFunc {
	kind := "bulleted"
	if numbered {
		kind = "numbered"
	}
	return func(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
		items := args.Strings("items")
		if len(items) == 0 {
			return nil, &tools.ValidationError{Field: "items", Message: "at least one item is required"}
		}
		path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
			return d.AddList(items, numbered)
		})
		if err != nil {
			return nil, err
		}
		return tools.Text("Added %s list with %d item(s) to %s%s", kind, len(items), path, created(existed)), nil
	}
}

func (h *handlers) addHyperlink(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	text, err := args.RequireString("text")
	if err != nil {
		return nil, err
	}
	target, err := args.RequireString("url")
	if err != nil {
		return nil, err
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.AddHyperlink(text, target, args.String("prefix"))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added link %s to %s in %s%s", quote(text), target, path, created(existed)), nil
}

func (h *handlers) findReplace(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	find, err := args.RequireString("find")
	if err != nil {
		return nil, err
	}
	replace := args.String("replace")
	var count int
	path, _, err := h.edit(ctx, args, func(d *docx.Document) error {
		var err error
		count, err = d.ReplaceText(find, replace, args.Bool("matchCase", false))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Replaced %d occurrence(s) of %s with %s in %s", count, quote(find), quote(replace), path), nil
}
