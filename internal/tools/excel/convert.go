package excel

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

func (h *handlers) conversionTools() []tools.Tool {
	delimiter := mcp.WithString("delimiter", mcp.Description("Field separator, a single character"), mcp.DefaultString(","))
	return []tools.Tool{
		tools.NewFunc(tools.Define("csv_to_excel",
			"Convert a CSV file into a workbook. Numbers and booleans become typed cells; values with leading zeros stay text",
			tools.Creates,
			mcp.WithString("csvPath", mcp.Required(), mcp.Description("CSV file to read")),
			tools.Filename("Workbook to create"),
			mcp.WithString("sheetName", mcp.DefaultString("Sheet1")),
			delimiter,
			mcp.WithBoolean("hasHeader", mcp.Description("Treat the first row as bold headers"), mcp.DefaultBool(true)),
			tools.OutputPath(),
		), h.csvToExcel),

		tools.NewFunc(tools.Define("excel_to_csv",
			"Export one sheet as CSV using the displayed cell values",
			tools.Creates,
			workbook(),
			sheetName(),
			delimiter,
			mcp.WithString("outputPath", mcp.Description("CSV file to write. Defaults to the workbook name with .csv")),
		), h.excelToCSV),

		tools.NewFunc(tools.Define("excel_to_json",
			"Export one sheet as JSON: an array of objects keyed by the header row, or an array of rows",
			tools.Creates,
			workbook(),
			sheetName(),
			mcp.WithBoolean("useHeaders", mcp.DefaultBool(true)),
			mcp.WithString("outputPath", mcp.Description("JSON file to write. Defaults to the workbook name with .json")),
		), h.excelToJSON),

		tools.NewFunc(tools.Define("json_to_excel",
			"Build a workbook from an array of JSON objects, given inline or as a file. Keys become the header row",
			tools.Creates,
			tools.Filename("Workbook to create"),
			mcp.WithString("jsonPath", mcp.Description("File holding a JSON array of objects")),
			tools.ObjectArray("data", "Records given inline instead of jsonPath", map[string]any{}),
			tools.StringArray("columns", "Column order. Defaults to every key"),
			mcp.WithString("sheetName", mcp.DefaultString("Data")),
			tools.OutputPath(),
		), h.jsonToExcel),
	}
}

func delimiterArg(args tools.Args) (rune, error) {
	d := args.StringOr("delimiter", ",")
	if d == `\t` || strings.EqualFold(d, "tab") {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(d)
	if size == 0 || size != len(d) || r == '"' || r == '\n' || r == '\r' {
		return 0, &tools.ValidationError{Field: "delimiter", Value: d, Message: "must be a single character other than a quote or newline"}
	}
	return r, nil
}

func withExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

func (h *handlers) csvToExcel(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	comma, err := delimiterArg(args)
	if err != nil {
		return nil, err
	}
	data, src, err := h.read(args, "csvPath")
	if err != nil {
		return nil, err
	}
	out, rows, err := h.gen.FromCSV(data, args.StringOr("sheetName", "Sheet1"), comma, args.Bool("hasHeader", true))
	if err != nil {
		return nil, err
	}
	path, err := h.store.Create(ctx, filename, args.String("outputPath"), out)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"source": src, "rows": rows}).Info("Converted CSV to workbook")
	return tools.Text("Converted %s (%d data rows) to %s", filepath.Base(src), rows, path), nil
}

func (h *handlers) excelToCSV(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	comma, err := delimiterArg(args)
	if err != nil {
		return nil, err
	}
	data, src, err := h.read(args, "filename")
	if err != nil {
		return nil, err
	}
	out, sheet, rows, err := h.gen.ToCSV(data, args.String("sheetName"), comma)
	if err != nil {
		return nil, err
	}
	target := args.String("outputPath")
	if target == "" {
		target = withExt(src, ".csv")
	}
	path, err := h.store.Create(ctx, withExt(filepath.Base(src), ".csv"), target, out)
	if err != nil {
		return nil, err
	}
	return tools.Text("Exported %d rows of '%s' to %s", rows, sheet, path), nil
}

func (h *handlers) excelToJSON(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	data, src, err := h.read(args, "filename")
	if err != nil {
		return nil, err
	}
	records, count, err := h.gen.ToRecords(data, args.String("sheetName"), args.Bool("useHeaders", true))
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	target := args.String("outputPath")
	if target == "" {
		target = withExt(src, ".json")
	}
	path, err := h.store.Create(ctx, withExt(filepath.Base(src), ".json"), target, append(out, '\n'))
	if err != nil {
		return nil, err
	}
	return tools.Text("Exported %d records to %s", count, path), nil
}

func (h *handlers) jsonToExcel(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	var records []map[string]any
	switch {
	case args.Has("data"):
		for _, m := range args.Maps("data") {
			records = append(records, m)
		}
	case args.String("jsonPath") != "":
		data, src, err := h.read(args, "jsonPath")
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, &tools.ValidationError{Field: "jsonPath", Value: src, Message: "expected a JSON array of objects: " + err.Error()}
		}
	default:
		return nil, &tools.ValidationError{Field: "data", Message: "give data or a jsonPath"}
	}
	if len(records) == 0 {
		return nil, &tools.ValidationError{Field: "data", Message: "no records to convert"}
	}
	out, err := h.gen.FromRecords(records, args.StringOr("sheetName", "Data"), args.Strings("columns"))
	if err != nil {
		return nil, err
	}
	path, err := h.store.Create(ctx, filename, args.String("outputPath"), out)
	if err != nil {
		return nil, err
	}
	return tools.Text("Created %s with %d rows", path, len(records)), nil
}
