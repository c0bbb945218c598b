package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

func (h *handlers) workbookTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("create_excel",
			"Create a new Excel workbook with one or more sheets. Each sheet may have a bold, frozen header row and data rows; strings starting with '=' become formulas. Overwrites any existing file.",
			tools.Creates,
			workbook(),
			tools.ObjectArray("sheets", "Sheets to create, in order", map[string]any{
				"name":         map[string]any{"type": "string", "description": "Sheet name (max 31 characters)"},
				"headers":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"data":         map[string]any{"type": "array", "items": map[string]any{"type": "array"}, "description": "Rows of cell values"},
				"columnWidths": map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
			}, mcp.Required(), mcp.MinItems(1)),
			mcp.WithObject("properties", mcp.Description("Document properties: title, subject, author, keywords, description, category, company")),
			tools.OutputPath(),
		), h.createExcel).WithHelp(createExcelHelp),

		tools.NewFunc(tools.Define("read_excel",
			"Read a workbook's sheets as markdown tables of formatted values",
			tools.Reads,
			workbook(),
			mcp.WithString("sheetName", mcp.Description("Only read this sheet. Defaults to every sheet")),
			mcp.WithNumber("maxRows", mcp.Description("Maximum data rows shown per sheet"), mcp.DefaultNumber(100), mcp.Min(1)),
		), h.readExcel),

		tools.NewFunc(tools.Define("get_workbook_info",
			"Summarise a workbook: sheets with their used ranges and visibility, tables, named ranges and document properties",
			tools.Reads,
			workbook(),
		), h.workbookInfo),

		tools.NewFunc(tools.Define("set_workbook_properties",
			"Set the document properties of a workbook (title, subject, author, keywords, description, category, company)",
			tools.Edits,
			workbook(),
			mcp.WithString("title"),
			mcp.WithString("subject"),
			mcp.WithString("author"),
			mcp.WithString("keywords"),
			mcp.WithString("description"),
			mcp.WithString("category"),
			mcp.WithString("company"),
			tools.OutputPath(),
		), h.setProperties),

		tools.NewFunc(tools.Define("merge_workbooks",
			"Combine the sheets of several workbooks into one new workbook. Sources may be glob patterns such as reports/**/*.xlsx; clashing sheet names get a numeric suffix.",
			tools.Creates,
			tools.Filename("Path of the merged workbook to write"),
			tools.StringArray("sources", "Workbooks or glob patterns to merge, in order", mcp.Required(), mcp.MinItems(1)),
			tools.StringArray("labels", "Optional sheet name prefixes, one per source"),
			tools.OutputPath(),
		), h.mergeWorkbooks),
	}
}

var createExcelHelp = &tools.ExtendedHelp{
	WhenToUse: "Start a new spreadsheet in a single call, including headers, data and formulas",
	Examples: []tools.ToolExample{
		{
			Description: "Sales sheet with a total formula",
			Arguments: map[string]any{
				"filename": "sales.xlsx",
				"sheets": []any{map[string]any{
					"name":    "Q1",
					"headers": []any{"Month", "Revenue"},
					"data":    []any{[]any{"Jan", 1200}, []any{"Feb", 1500}, []any{"Total", "=SUM(B2:B3)"}},
				}},
			},
			ExpectedResult: "Creates sales.xlsx with a Q1 sheet, a frozen bold header and a SUM formula",
		},
	},
	Troubleshooting: []tools.TroubleshootingTip{
		{Problem: "sheet name is invalid", Solution: "Names are at most 31 characters and cannot contain : \\ / ? * [ ]"},
	},
	ParameterDetails: map[string]string{
		"sheets": "Array of {name, headers, data, columnWidths}. Without columnWidths the columns are auto-fitted",
	},
}

func propertiesFrom(a tools.Args) xlsx.Properties {
	return xlsx.Properties{
		Title:       a.String("title"),
		Subject:     a.String("subject"),
		Creator:     a.StringOr("author", a.String("creator")),
		Keywords:    a.String("keywords"),
		Description: a.String("description"),
		Category:    a.String("category"),
		Company:     a.String("company"),
	}
}

func (h *handlers) createExcel(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	var sheets []xlsx.Sheet
	for _, s := range args.Maps("sheets") {
		sheets = append(sheets, xlsx.Sheet{
			Name:         s.String("name"),
			Headers:      s.Strings("headers"),
			Rows:         s.Rows("data"),
			ColumnWidths: s.Floats("columnWidths"),
		})
	}
	var props *xlsx.Properties
	if args.Has("properties") {
		p := propertiesFrom(args.Map("properties"))
		props = &p
	}

	data, err := h.gen.Create(sheets, props)
	if err != nil {
		return nil, err
	}
	path, err := h.store.Create(ctx, filename, args.String("outputPath"), data)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(sheets))
	rows := 0
	for i, s := range sheets {
		names[i] = s.Name
		if names[i] == "" {
			names[i] = fmt.Sprintf("Sheet%d", i+1)
		}
		rows += len(s.Rows)
	}
	logger.WithFields(logrus.Fields{"path": path, "sheets": len(sheets)}).Info("Created workbook")
	return tools.Text("Created Excel workbook with %d sheet(s) (%s) and %d data rows at %s", len(sheets), strings.Join(names, ", "), rows, path), nil
}

func (h *handlers) readExcel(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	limit := args.Int("maxRows", 100)
	var b strings.Builder
	path, err := h.inspect(args, func(f *excelize.File) error {
		sheets := f.GetSheetList()
		if only := args.String("sheetName"); only != "" {
			if err := xlsx.RequireSheet(f, only); err != nil {
				return err
			}
			sheets = []string{only}
		}
		for _, sheet := range sheets {
			rows, err := xlsx.ReadRange(f, sheet, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(&b, "## %s\n\n%s\n", sheet, markdownTable(rows, limit))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Workbook %s\n\n%s", path, strings.TrimRight(b.String(), "\n")), nil
}

func (h *handlers) workbookInfo(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var b strings.Builder
	path, err := h.inspect(args, func(f *excelize.File) error {
		active := f.GetSheetName(f.GetActiveSheetIndex())
		sheets := f.GetSheetList()
		fmt.Fprintf(&b, "Sheets (%d):\n", len(sheets))
		for _, sheet := range sheets {
			dim, _ := f.GetSheetDimension(sheet)
			line := fmt.Sprintf("- %s: %s", sheet, dim)
			if visible, err := f.GetSheetVisible(sheet); err == nil && !visible {
				line += " (hidden)"
			}
			if sheet == active {
				line += " (active)"
			}
			b.WriteString(line + "\n")
			tables, _ := f.GetTables(sheet)
			for _, t := range tables {
				fmt.Fprintf(&b, "  - table %s %s\n", t.Name, t.Range)
			}
		}
		if names := f.GetDefinedName(); len(names) > 0 {
			b.WriteString("Named ranges:\n")
			for _, n := range names {
				scope := n.Scope
				if scope == "" {
					scope = "Workbook"
				}
				fmt.Fprintf(&b, "- %s = %s (%s)\n", n.Name, n.RefersTo, scope)
			}
		}
		if props, err := f.GetDocProps(); err == nil {
			for _, kv := range [][2]string{
				{"Title", props.Title}, {"Subject", props.Subject}, {"Author", props.Creator},
				{"Keywords", props.Keywords}, {"Category", props.Category}, {"Description", props.Description},
				{"Modified", props.Modified},
			} {
				if kv[1] != "" {
					fmt.Fprintf(&b, "%s: %s\n", kv[0], kv[1])
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Workbook %s\n%s", path, strings.TrimRight(b.String(), "\n")), nil
}

func (h *handlers) setProperties(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	props := propertiesFrom(args)
	if props == (xlsx.Properties{}) {
		return nil, &tools.ValidationError{Field: "title", Message: "at least one property is required"}
	}
	path, existed, err := h.edit(ctx, args, func(f *excelize.File) error {
		current, err := f.GetDocProps()
		if err == nil {
			keep := func(v *string, old string) {
				if *v == "" {
					*v = old
				}
			}
			keep(&props.Title, current.Title)
			keep(&props.Subject, current.Subject)
			keep(&props.Creator, current.Creator)
			keep(&props.Keywords, current.Keywords)
			keep(&props.Description, current.Description)
			keep(&props.Category, current.Category)
		}
		return xlsx.SetProperties(f, props)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Updated document properties of %s%s", path, created(existed)), nil
}

// expandSources resolves each source, expanding glob patterns in order
func (h *handlers) expandSources(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		if !strings.ContainsAny(p, "*?[{") {
			path, err := h.store.ResolveInput(p)
			if err != nil {
				return nil, err
			}
			out = append(out, path)
			continue
		}
		pattern := p
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(h.store.BaseDir(), pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files", p)
		}
		for _, m := range matches {
			path, err := h.store.ResolveInput(m)
			if err != nil {
				return nil, err
			}
			out = append(out, path)
		}
	}
	return out, nil
}

func (h *handlers) mergeWorkbooks(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	paths, err := h.expandSources(args.Strings("sources"))
	if err != nil {
		return nil, err
	}
	sources := make([][]byte, len(paths))
	for i, p := range paths {
		if sources[i], err = os.ReadFile(p); err != nil {
			return nil, &xlsx.WorkbookError{Operation: "merge", Path: p, Cause: err}
		}
	}
	labels := args.Strings("labels")
	if len(labels) > 0 && len(labels) != len(paths) {
		return nil, &tools.ValidationError{Field: "labels", Message: fmt.Sprintf("got %d labels for %d workbooks", len(labels), len(paths))}
	}

	data, sheets, err := h.gen.Merge(sources, labels)
	if err != nil {
		return nil, err
	}
	path, err := h.store.Create(ctx, filename, args.String("outputPath"), data)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": path, "sources": len(paths)}).Info("Merged workbooks")
	return tools.Text("Merged %d workbooks into %s with sheets: %s", len(paths), path, strings.Join(sheets, ", ")), nil
}
