// Package excel exposes the spreadsheet tools. Every tool loads the workbook
// named by filename, applies one change through the xlsx generator and writes
// the result back through the output store.
package excel

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/xuri/excelize/v2"
)

type handlers struct {
	gen   *xlsx.Generator
	store *output.Store
}

// Register adds the Excel tools to reg
func Register(reg *registry.Registry, gen *xlsx.Generator, store *output.Store) error {
	h := &handlers{gen: gen, store: store}
	var all []tools.Tool
	for _, group := range [][]tools.Tool{
		h.workbookTools(),
		h.worksheetTools(),
		h.dataTools(),
		h.formulaTools(),
		h.formattingTools(),
		h.rowColumnTools(),
		h.chartTools(),
		h.pivotTools(),
		h.tableTools(),
		h.validationTools(),
		h.annotationTools(),
		h.pageTools(),
		h.conversionTools(),
	} {
		all = append(all, group...)
	}
	return reg.RegisterAll(all...)
}

// edit runs fn against the workbook named by the filename argument, starting
// from a blank workbook when the file does not exist yet
func (h *handlers) edit(ctx context.Context, args tools.Args, fn func(f *excelize.File) error) (string, bool, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return "", false, err
	}
	return h.store.Edit(ctx, filename, args.String("outputPath"), func(existing []byte) ([]byte, error) {
		return h.gen.Apply(existing, fn)
	})
}

// editSheet is edit for tools working on one sheet. A missing sheet is
// created when create is set and the workbook is new.
func (h *handlers) editSheet(ctx context.Context, args tools.Args, fn func(f *excelize.File, sheet string) error) (string, string, bool, error) {
	var sheet string
	path, existed, err := h.edit(ctx, args, func(f *excelize.File) error {
		name, err := xlsx.SheetOrActive(f, args.String("sheetName"))
		if err != nil {
			return err
		}
		sheet = name
		return fn(f, name)
	})
	return path, sheet, existed, err
}

// read loads an existing workbook for a read-only tool
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
		return nil, "", &xlsx.WorkbookError{Operation: "open", Path: path, Cause: fmt.Errorf("file does not exist")}
	}
	return data, path, nil
}

// inspect opens an existing workbook read-only
func (h *handlers) inspect(args tools.Args, fn func(f *excelize.File) error) (string, error) {
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
	return " (new workbook created)"
}

// sheetName is the optional sheet selector shared by most tools
func sheetName() mcp.ToolOption {
	return mcp.WithString("sheetName", mcp.Description("Worksheet to use. Defaults to the active sheet"))
}

func workbook() mcp.ToolOption {
	return tools.Filename("Path to the .xlsx workbook")
}

func rangeParam(description string) mcp.ToolOption {
	return mcp.WithString("range", mcp.Required(), mcp.Description(description))
}

func cellParam(description string) mcp.ToolOption {
	return mcp.WithString("cell", mcp.Required(), mcp.Description(description))
}

// markdownTable renders rows as a markdown table, the first row as header
func markdownTable(rows [][]string, limit int) string {
	if len(rows) == 0 {
		return "(empty)"
	}
	rows = xlsx.PadRows(rows)
	var b strings.Builder
	cell := func(s string) string {
		return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
	}
	writeRow := func(row []string) {
		b.WriteString("|")
		for _, v := range row {
			b.WriteString(" " + cell(v) + " |")
		}
		b.WriteString("\n")
	}
	writeRow(rows[0])
	b.WriteString("|" + strings.Repeat(" --- |", len(rows[0])) + "\n")
	shown := rows[1:]
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, row := range shown {
		writeRow(row)
	}
	if hidden := len(rows) - 1 - len(shown); hidden > 0 {
		fmt.Fprintf(&b, "... %d more rows\n", hidden)
	}
	return b.String()
}

// columns parses column letters or 1-based numbers
func columns(values []string) ([]int, error) {
	out := make([]int, 0, len(values))
	for _, v := range values {
		n, err := xlsx.ColumnIndex(v)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func styleFrom(a tools.Args) xlsx.StyleSpec {
	return xlsx.StyleSpec{
		Bold:            a.Bool("bold", false),
		Italic:          a.Bool("italic", false),
		Underline:       a.Bool("underline", false),
		Strike:          a.Bool("strikethrough", false),
		FontSize:        a.Float("fontSize", 0),
		FontColor:       a.String("fontColor"),
		FontFamily:      a.String("fontFamily"),
		FillColor:       a.String("fillColor"),
		NumberFormat:    a.String("numberFormat"),
		HorizontalAlign: a.String("horizontalAlign"),
		VerticalAlign:   a.String("verticalAlign"),
		WrapText:        a.Bool("wrapText", false),
		Border:          a.String("border"),
		BorderColor:     a.String("borderColor"),
	}
}

// styleProperties is the schema of a style object
var styleProperties = map[string]any{
	"bold":            map[string]any{"type": "boolean"},
	"italic":          map[string]any{"type": "boolean"},
	"underline":       map[string]any{"type": "boolean"},
	"strikethrough":   map[string]any{"type": "boolean"},
	"fontSize":        map[string]any{"type": "number"},
	"fontColor":       map[string]any{"type": "string", "description": "Hex colour such as FF0000"},
	"fontFamily":      map[string]any{"type": "string"},
	"fillColor":       map[string]any{"type": "string", "description": "Hex background colour"},
	"numberFormat":    map[string]any{"type": "string", "description": "Excel number format such as #,##0.00 or 0%"},
	"horizontalAlign": map[string]any{"type": "string", "enum": []string{"left", "center", "right", "justify"}},
	"verticalAlign":   map[string]any{"type": "string", "enum": []string{"top", "center", "bottom"}},
	"wrapText":        map[string]any{"type": "boolean"},
	"border":          map[string]any{"type": "string", "enum": xlsx.BorderStyles()},
	"borderColor":     map[string]any{"type": "string"},
}
