package word

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

func (h *handlers) conversionTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("mail_merge",
			"Fill a template's {{Field}} or «Field» placeholders from records, into one combined document or one document per record",
			tools.Creates,
			mcp.WithString("templatePath", mcp.Required(), mcp.Description("Template .docx")),
			tools.ObjectArray("records", "Field values per recipient", map[string]any{}, mcp.Required(), mcp.MinItems(1)),
			tools.Filename("Output document. With separateFiles each record gets a numbered copy of this name"),
			mcp.WithBoolean("separateFiles", mcp.DefaultBool(false)),
			mcp.WithString("nameField", mcp.Description("Record field used in file names when separateFiles is set")),
			tools.OutputPath(),
		), h.mailMerge).WithHelp(&tools.ExtendedHelp{
			Examples: []tools.ToolExample{
				{
					Description: "Letters to two customers in one file",
					Arguments: map[string]any{
						"templatePath": "letter-template.docx", "filename": "letters.docx",
						"records": []any{
							map[string]any{"Name": "Ada", "Balance": "£120"},
							map[string]any{"Name": "Alan", "Balance": "£80"},
						},
					},
				},
			},
			Troubleshooting: []tools.TroubleshootingTip{
				{Problem: "A placeholder was left in the output", Solution: "Field names are case sensitive; compare them with the template"},
			},
		}),

		tools.NewFunc(tools.Define("compare_documents",
			"Compare two documents and write a third showing the differences as tracked changes",
			tools.Creates,
			mcp.WithString("originalPath", mcp.Required()),
			mcp.WithString("revisedPath", mcp.Required()),
			tools.Filename("Comparison document to create"),
			mcp.WithString("author", mcp.Description("Author recorded on the changes")),
			tools.OutputPath(),
		), h.compare),

		tools.NewFunc(tools.Define("html_to_word",
			"Convert HTML (headings, paragraphs, lists, tables, links, bold and italic) into a Word document",
			tools.Creates,
			tools.Filename("Document to create"),
			mcp.WithString("html", mcp.Description("HTML source")),
			mcp.WithString("htmlPath", mcp.Description("HTML file, used when html is not given")),
			mcp.WithString("title"),
			tools.OutputPath(),
		), h.fromSource("html")),

		tools.NewFunc(tools.Define("markdown_to_word",
			"Convert markdown, including tables and task lists, into a Word document",
			tools.Creates,
			tools.Filename("Document to create"),
			mcp.WithString("markdown", mcp.Description("Markdown source")),
			mcp.WithString("markdownPath", mcp.Description("Markdown file, used when markdown is not given")),
			mcp.WithString("title"),
			tools.OutputPath(),
		), h.fromSource("markdown")),

		tools.NewFunc(tools.Define("word_to_markdown",
			"Convert a Word document to markdown, returning it and optionally saving it",
			tools.Reads,
			document(),
			mcp.WithString("outputPath", mcp.Description("Markdown file to write. Omit to only return the text")),
		), h.toMarkdown),
	}
}

func (h *handlers) mailMerge(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	template, _, err := h.read(args, "templatePath")
	if err != nil {
		return nil, err
	}
	var records []map[string]string
	for _, r := range args.Maps("records") {
		record := make(map[string]string, len(r))
		for k, v := range r {
			record[k] = tools.Stringify(v)
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, &tools.ValidationError{Field: "records", Message: "at least one record is required"}
	}
	fields, err := h.gen.Placeholders(template)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, f := range fields {
		if _, ok := records[0][f]; !ok {
			missing = append(missing, f)
		}
	}

	var paths []string
	if args.Bool("separateFiles", false) {
		ext := filepath.Ext(filename)
		base := strings.TrimSuffix(filename, ext)
		for i, record := range records {
			data, err := h.gen.MergeRecord(template, record)
			if err != nil {
				return nil, err
			}
			suffix := fmt.Sprintf("%d", i+1)
			if v := record[args.String("nameField")]; v != "" {
				suffix = safeName(v)
			}
			path, err := h.store.Create(ctx, base+"-"+suffix+ext, args.String("outputPath"), data)
			if err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}
	} else {
		data, err := h.gen.MailMerge(template, records)
		if err != nil {
			return nil, err
		}
		path, err := h.store.Create(ctx, filename, args.String("outputPath"), data)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	logger.WithFields(logrus.Fields{"records": len(records), "files": len(paths)}).Info("Mail merge complete")

	var b strings.Builder
	fmt.Fprintf(&b, "Merged %d record(s) into %s", len(records), strings.Join(paths, ", "))
	if len(missing) > 0 {
		fmt.Fprintf(&b, "\nFields without values in the first record: %s", strings.Join(missing, ", "))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}

func (h *handlers) compare(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	original, _, err := h.read(args, "originalPath")
	if err != nil {
		return nil, err
	}
	revised, _, err := h.read(args, "revisedPath")
	if err != nil {
		return nil, err
	}
	data, c, err := h.gen.Compare(original, revised, args.String("author"))
	if err != nil {
		return nil, err
	}
	path, err := h.store.Create(ctx, filename, args.String("outputPath"), data)
	if err != nil {
		return nil, err
	}
	return tools.Text("Compared documents into %s: %d inserted, %d deleted, %d modified, %d unchanged paragraph(s)",
		path, c.Inserted, c.Deleted, c.Modified, c.Unchanged), nil
}

// fromSource builds the html_to_word and markdown_to_word handlers
func (h *handlers) fromSource(kind string) tools.HandlerFunc {
	return func(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
		filename, err := args.RequireString("filename")
		if err != nil {
			return nil, err
		}
		source := args.String(kind)
		if source == "" {
			if args.String(kind+"Path") == "" {
				return nil, &tools.ValidationError{Field: kind, Message: fmt.Sprintf("give %s or %sPath", kind, kind)}
			}
			data, _, err := h.read(args, kind+"Path")
			if err != nil {
				return nil, err
			}
			source = string(data)
		}
		var props *docx.Properties
		if title := args.String("title"); title != "" {
			props = &docx.Properties{Title: title}
		}
		var data []byte
		if kind == "html" {
			data, err = h.gen.FromHTML(source, props)
		} else {
			data, err = h.gen.FromMarkdown(source, props)
		}
		if err != nil {
			return nil, err
		}
		path, err := h.store.Create(ctx, filename, args.String("outputPath"), data)
		if err != nil {
			return nil, err
		}
		return tools.Text("Converted %s to Word document %s", kind, path), nil
	}
}

func (h *handlers) toMarkdown(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var md string
	src, err := h.inspect(args, func(d *docx.Document) error {
		var err error
		md, err = d.Markdown()
		return err
	})
	if err != nil {
		return nil, err
	}
	target := args.String("outputPath")
	if target == "" {
		return tools.Text("Markdown of %s:\n\n%s", src, md), nil
	}
	path, err := h.store.Create(ctx, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+".md", target, []byte(md+"\n"))
	if err != nil {
		return nil, err
	}
	return tools.Text("Wrote markdown of %s to %s:\n\n%s", src, path, md), nil
}
