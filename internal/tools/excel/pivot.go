package excel

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

func (h *handlers) pivotTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("create_pivot_table",
			"Create a native pivot table summarising a source range with a header row",
			tools.Edits,
			workbook(),
			mcp.WithString("sourceSheet", mcp.Required()),
			mcp.WithString("sourceRange", mcp.Required(), mcp.Description("Data including the header row, e.g. A1:E200")),
			mcp.WithString("targetSheet", mcp.Description("Sheet for the pivot, created if missing. Defaults to the source sheet")),
			mcp.WithString("targetCell", mcp.DefaultString("A3")),
			tools.StringArray("rows", "Header names to group rows by", mcp.Required()),
			tools.StringArray("columns", "Header names to spread across columns"),
			tools.StringArray("filters", "Header names offered as report filters"),
			tools.ObjectArray("values", "Fields to aggregate", map[string]any{
				"field":    map[string]any{"type": "string"},
				"function": map[string]any{"type": "string", "enum": []string{"sum", "count", "average", "min", "max", "product", "stddev", "var"}},
				"name":     map[string]any{"type": "string", "description": "Caption, e.g. Total Sales"},
			}, mcp.Required(), mcp.MinItems(1)),
			mcp.WithString("style", mcp.Description("Pivot style such as PivotStyleLight16")),
			tools.OutputPath(),
		), h.createPivotTable),

		tools.NewFunc(tools.Define("add_power_query",
			"Document a Power Query data connection: its source and transformation steps are recorded on a Power Query sheet for the user to build in Excel. No query is executed",
			tools.Edits,
			workbook(),
			mcp.WithString("queryName", mcp.Required()),
			mcp.WithString("source", mcp.Required(), mcp.Description("Data source, such as a file path, URL or database table")),
			mcp.WithString("sourceType", mcp.Enum("csv", "excel", "web", "database", "json", "other"), mcp.DefaultString("other")),
			tools.StringArray("steps", "Transformation steps in order, e.g. [\"Remove blank rows\",\"Group by Region\"]"),
			mcp.WithString("loadTo", mcp.Description("Sheet the result should load into")),
			tools.OutputPath(),
		), h.addPowerQuery),
	}
}

func (h *handlers) createPivotTable(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	spec := xlsx.PivotSpec{
		SourceSheet: args.String("sourceSheet"),
		SourceRange: args.String("sourceRange"),
		TargetSheet: args.String("targetSheet"),
		TargetCell:  strings.ToUpper(args.StringOr("targetCell", "A3")),
		Rows:        args.Strings("rows"),
		Columns:     args.Strings("columns"),
		Filters:     args.Strings("filters"),
		Style:       args.String("style"),
	}
	for _, v := range args.Maps("values") {
		spec.Values = append(spec.Values, xlsx.PivotValue{
			Field:    v.String("field"),
			Function: v.StringOr("function", "sum"),
			Name:     v.String("name"),
		})
	}
	path, existed, err := h.edit(ctx, args, func(f *excelize.File) error {
		return xlsx.AddPivotTable(f, spec)
	})
	if err != nil {
		return nil, err
	}
	target := spec.TargetSheet
	if target == "" {
		target = spec.SourceSheet
	}
	return tools.Text("Created pivot table at '%s'!%s from '%s'!%s grouped by %s in %s%s",
		target, spec.TargetCell, spec.SourceSheet, spec.SourceRange, strings.Join(spec.Rows, ", "), path, created(existed)), nil
}

func (h *handlers) addPowerQuery(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, err := args.RequireString("queryName")
	if err != nil {
		return nil, err
	}
	steps := args.Strings("steps")
	path, existed, err := h.edit(ctx, args, func(f *excelize.File) error {
		rows := [][]any{
			{"Source", args.String("source")},
			{"Source type", args.StringOr("sourceType", "other")},
		}
		if to := args.String("loadTo"); to != "" {
			rows = append(rows, []any{"Load to", to})
		}
		for i, step := range steps {
			rows = append(rows, []any{"Step " + number(float64(i+1)), step})
		}
		rows = append(rows, []any{"Status", "Build with Data > Get Data in Excel"})
		return xlsx.NotesSheet(f, "Power Query", "Query: "+name, rows)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Documented Power Query '%s' with %d step(s) on the 'Power Query' sheet in %s%s", name, len(steps), path, created(existed)), nil
}
