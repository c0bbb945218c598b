package excel

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

func (h *handlers) rowColumnTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("insert_rows",
			"Insert blank rows before a row. Formulas and references below shift down",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithNumber("row", mcp.Required(), mcp.Description("1-based row to insert before"), mcp.Min(1)),
			mcp.WithNumber("count", mcp.DefaultNumber(1), mcp.Min(1)),
			tools.OutputPath(),
		), h.insertRows),

		tools.NewFunc(tools.Define("delete_rows",
			"Delete rows. Rows below shift up",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithNumber("row", mcp.Required(), mcp.Description("First 1-based row to delete"), mcp.Min(1)),
			mcp.WithNumber("count", mcp.DefaultNumber(1), mcp.Min(1)),
			tools.OutputPath(),
		), h.deleteRows),

		tools.NewFunc(tools.Define("insert_columns",
			"Insert blank columns before a column. Columns to the right shift",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("column", mcp.Required(), mcp.Description("Column letter to insert before, e.g. C")),
			mcp.WithNumber("count", mcp.DefaultNumber(1), mcp.Min(1)),
			tools.OutputPath(),
		), h.insertColumns),

		tools.NewFunc(tools.Define("delete_columns",
			"Delete columns. Columns to the right shift left",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("column", mcp.Required(), mcp.Description("First column letter to delete")),
			mcp.WithNumber("count", mcp.DefaultNumber(1), mcp.Min(1)),
			tools.OutputPath(),
		), h.deleteColumns),

		tools.NewFunc(tools.Define("group_rows",
			"Group rows into a collapsible outline, optionally collapsed",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithNumber("startRow", mcp.Required(), mcp.Min(1)),
			mcp.WithNumber("endRow", mcp.Required(), mcp.Min(1)),
			mcp.WithNumber("level", mcp.Description("Outline level 1-7"), mcp.DefaultNumber(1), mcp.Min(1), mcp.Max(7)),
			mcp.WithBoolean("collapsed", mcp.DefaultBool(false)),
			tools.OutputPath(),
		), h.groupRows),
	}
}

func rowSpan(args tools.Args) (int, int, error) {
	row, count := args.Int("row", 1), args.Int("count", 1)
	if row < 1 || count < 1 {
		return 0, 0, &tools.ValidationError{Field: "row", Value: row, Message: "row and count must be positive"}
	}
	if row+count-1 > xlsx.MaxRows {
		return 0, 0, &tools.ValidationError{Field: "count", Value: count, Message: fmt.Sprintf("would pass row %d", xlsx.MaxRows)}
	}
	return row, count, nil
}

func columnSpan(args tools.Args) (string, int, int, error) {
	col, err := xlsx.ColumnIndex(args.String("column"))
	if err != nil {
		return "", 0, 0, &tools.ValidationError{Field: "column", Value: args.String("column"), Message: err.Error()}
	}
	count := args.Int("count", 1)
	if count < 1 || col+count-1 > xlsx.MaxColumns {
		return "", 0, 0, &tools.ValidationError{Field: "count", Value: count, Message: fmt.Sprintf("must be between 1 and %d columns", xlsx.MaxColumns-col+1)}
	}
	name, _ := excelize.ColumnNumberToName(col)
	return name, col, count, nil
}

func (h *handlers) insertRows(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	row, count, err := rowSpan(args)
	if err != nil {
		return nil, err
	}
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return f.InsertRows(sheet, row, count)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Inserted %d row(s) before row %d on '%s' in %s%s", count, row, sheet, path, created(existed)), nil
}

func (h *handlers) deleteRows(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	row, count, err := rowSpan(args)
	if err != nil {
		return nil, err
	}
	path, sheet, _, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		// removing the same index repeatedly deletes consecutive rows
		for range count {
			if err := f.RemoveRow(sheet, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Deleted %d row(s) from row %d on '%s' in %s", count, row, sheet, path), nil
}

func (h *handlers) insertColumns(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, _, count, err := columnSpan(args)
	if err != nil {
		return nil, err
	}
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return f.InsertCols(sheet, name, count)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Inserted %d column(s) before column %s on '%s' in %s%s", count, name, sheet, path, created(existed)), nil
}

func (h *handlers) deleteColumns(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, _, count, err := columnSpan(args)
	if err != nil {
		return nil, err
	}
	path, sheet, _, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		for range count {
			if err := f.RemoveCol(sheet, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Deleted %d column(s) from column %s on '%s' in %s", count, name, sheet, path), nil
}

func (h *handlers) groupRows(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	start, end := args.Int("startRow", 1), args.Int("endRow", 1)
	if end < start {
		return nil, &tools.ValidationError{Field: "endRow", Value: end, Message: "must not be before startRow"}
	}
	level := args.Int("level", 1)
	if level < 1 || level > 7 {
		return nil, &tools.ValidationError{Field: "level", Value: level, Message: "must be between 1 and 7"}
	}
	collapsed := args.Bool("collapsed", false)
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		for r := start; r <= end; r++ {
			if err := f.SetRowOutlineLevel(sheet, r, uint8(level)); err != nil {
				return err
			}
			if collapsed {
				if err := f.SetRowVisible(sheet, r, false); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	state := "expanded"
	if collapsed {
		state = "collapsed"
	}
	return tools.Text("Grouped rows %d-%d at level %d (%s) on '%s' in %s%s", start, end, level, state, sheet, path, created(existed)), nil
}
