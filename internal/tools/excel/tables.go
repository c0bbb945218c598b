package excel

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

func (h *handlers) tableTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_excel_table",
			"Turn a range with a header row into a structured Excel table with filter buttons and banded rows",
			tools.Edits,
			workbook(),
			sheetName(),
			rangeParam("Table range including the header row, e.g. A1:D20"),
			mcp.WithString("tableName", mcp.Description("Name used in structured references. Defaults to TableN")),
			mcp.WithString("style", mcp.Description("Table style such as TableStyleMedium2"), mcp.DefaultString("TableStyleMedium9")),
			mcp.WithBoolean("showStripes", mcp.DefaultBool(true)),
			tools.OutputPath(),
		), h.addTable),
	}
}

func (h *handlers) addTable(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	spec := xlsx.TableSpec{
		Range:       args.String("range"),
		Name:        args.String("tableName"),
		Style:       args.String("style"),
		ShowStripes: args.Bool("showStripes", true),
	}
	rng, err := xlsx.ParseRange(spec.Range)
	if err != nil {
		return nil, err
	}
	if rng.Rows() < 2 {
		return nil, &tools.ValidationError{Field: "range", Value: spec.Range, Message: "a table needs a header row and at least one data row"}
	}
	var name string
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		var err error
		name, err = xlsx.AddTable(f, sheet, spec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Created table %s over %s on '%s' in %s%s", name, rng, sheet, path, created(existed)), nil
}
