package excel

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

func (h *handlers) formattingTools() []tools.Tool {
	formatOpts := []mcp.ToolOption{
		workbook(),
		sheetName(),
		rangeParam("Range to format, e.g. A1:D1"),
	}
	for name, schema := range styleProperties {
		formatOpts = append(formatOpts, styleOption(name, schema.(map[string]any)))
	}
	formatOpts = append(formatOpts, tools.OutputPath())

	return []tools.Tool{
		tools.NewFunc(tools.Define("format_cells",
			"Apply font, fill, number format, alignment and border formatting to a range. Unset properties keep their current value",
			tools.Edits, formatOpts...,
		), h.formatCells),

		tools.NewFunc(tools.Define("merge_cells",
			"Merge a range into one cell. The top-left value is kept",
			tools.Edits,
			workbook(),
			sheetName(),
			rangeParam("Range to merge, e.g. A1:D1"),
			mcp.WithBoolean("center", mcp.Description("Centre the merged content"), mcp.DefaultBool(true)),
			tools.OutputPath(),
		), h.mergeCells),

		tools.NewFunc(tools.Define("unmerge_cells",
			"Split merged cells in a range back into individual cells",
			tools.Edits,
			workbook(),
			sheetName(),
			rangeParam("Merged range, e.g. A1:D1"),
			tools.OutputPath(),
		), h.unmergeCells),

		tools.NewFunc(tools.Define("set_column_width",
			"Set the width of one or more columns in characters",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("columns", mcp.Required(), mcp.Description("Column or span, e.g. B or B:E")),
			mcp.WithNumber("width", mcp.Required(), mcp.Min(0), mcp.Max(255)),
			tools.OutputPath(),
		), h.setColumnWidth),

		tools.NewFunc(tools.Define("set_row_height",
			"Set the height of one or more rows in points",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithNumber("startRow", mcp.Required(), mcp.Min(1)),
			mcp.WithNumber("endRow", mcp.Description("Last row, defaults to startRow")),
			mcp.WithNumber("height", mcp.Required(), mcp.Min(0), mcp.Max(409)),
			tools.OutputPath(),
		), h.setRowHeight),

		tools.NewFunc(tools.Define("auto_fit_columns",
			"Size columns to fit their longest value",
			tools.Edits,
			workbook(),
			sheetName(),
			tools.StringArray("columns", "Columns to fit as letters or numbers. Omit for every used column"),
			tools.OutputPath(),
		), h.autoFitColumns),

		tools.NewFunc(tools.Define("freeze_panes",
			"Freeze the rows above and the columns left of a cell so they stay visible while scrolling. Use A1 to unfreeze",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("cell", mcp.Description("Top-left scrollable cell, e.g. B2 freezes row 1 and column A")),
			mcp.WithNumber("rows", mcp.Description("Rows to freeze, used when cell is omitted"), mcp.Min(0)),
			mcp.WithNumber("columns", mcp.Description("Columns to freeze, used when cell is omitted"), mcp.Min(0)),
			tools.OutputPath(),
		), h.freezePanes),

		tools.NewFunc(tools.Define("add_conditional_formatting",
			"Highlight cells by rule: value comparisons, colour scales, data bars, duplicates, top N or a formula",
			tools.Edits,
			workbook(),
			sheetName(),
			rangeParam("Range the rule covers"),
			mcp.WithString("type", mcp.Required(),
				mcp.Enum("cellValue", "colorScale", "dataBar", "duplicate", "unique", "top10", "formula")),
			mcp.WithString("operator", mcp.Description("Comparison for cellValue rules"), mcp.Enum(xlsx.ConditionalOperators()...)),
			mcp.WithString("value", mcp.Description("Comparison value, or the lower bound for between")),
			mcp.WithString("value2", mcp.Description("Upper bound for between and notBetween")),
			mcp.WithString("formula", mcp.Description("Formula for formula rules, e.g. =$C2>100")),
			mcp.WithNumber("rank", mcp.Description("N for top10 rules"), mcp.DefaultNumber(10)),
			mcp.WithString("minColor"),
			mcp.WithString("midColor"),
			mcp.WithString("maxColor"),
			mcp.WithString("barColor"),
			mcp.WithObject("format", mcp.Description("Style for matching cells"), mcp.Properties(styleProperties)),
			tools.OutputPath(),
		), h.addConditionalFormatting).WithHelp(conditionalHelp),
	}
}

func styleOption(name string, schema map[string]any) mcp.ToolOption {
	var opts []mcp.PropertyOption
	if d, ok := schema["description"].(string); ok {
		opts = append(opts, mcp.Description(d))
	}
	if e, ok := schema["enum"].([]string); ok {
		opts = append(opts, mcp.Enum(e...))
	}
	switch schema["type"] {
	case "boolean":
		return mcp.WithBoolean(name, opts...)
	case "number":
		return mcp.WithNumber(name, opts...)
	}
	return mcp.WithString(name, opts...)
}

func (h *handlers) formatCells(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	spec := styleFrom(args)
	if spec.Empty() {
		return nil, &tools.ValidationError{Field: "format", Message: "no formatting properties given"}
	}
	ref := args.String("range")
	var cells int
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		var err error
		cells, err = xlsx.ApplyStyle(f, sheet, ref, spec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Formatted %d cell(s) in %s on '%s' in %s%s", cells, ref, sheet, path, created(existed)), nil
}

func (h *handlers) mergeCells(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	rng, err := xlsx.ParseRange(args.String("range"))
	if err != nil {
		return nil, err
	}
	if rng.Rows() == 1 && rng.Cols() == 1 {
		return nil, &tools.ValidationError{Field: "range", Value: rng.String(), Message: "a merge needs more than one cell"}
	}
	center := args.Bool("center", true)
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		first, last := rng.Cell(0, 0), rng.Cell(rng.Cols()-1, rng.Rows()-1)
		if err := f.MergeCell(sheet, first, last); err != nil {
			return err
		}
		if center {
			_, err := xlsx.ApplyStyle(f, sheet, first, xlsx.StyleSpec{HorizontalAlign: "center", VerticalAlign: "center"})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Merged %s on '%s' in %s%s", rng, sheet, path, created(existed)), nil
}

func (h *handlers) unmergeCells(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	rng, err := xlsx.ParseRange(args.String("range"))
	if err != nil {
		return nil, err
	}
	path, sheet, _, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		merged, err := f.GetMergeCells(sheet)
		if err != nil {
			return err
		}
		for _, m := range merged {
			if strings.EqualFold(m.GetStartAxis(), rng.Cell(0, 0)) {
				return f.UnmergeCell(sheet, m.GetStartAxis(), m.GetEndAxis())
			}
		}
		return &xlsx.RangeError{Range: rng.String(), Cause: fmt.Errorf("no merged cells start at %s", rng.Cell(0, 0))}
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Unmerged %s on '%s' in %s", rng, sheet, path), nil
}

func (h *handlers) setColumnWidth(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	span := strings.ToUpper(strings.TrimSpace(args.String("columns")))
	first, last, _ := strings.Cut(span, ":")
	if last == "" {
		last = first
	}
	for _, c := range []string{first, last} {
		if _, err := excelize.ColumnNameToNumber(c); err != nil {
			return nil, &tools.ValidationError{Field: "columns", Value: span, Message: err.Error()}
		}
	}
	width := args.Float("width", 0)
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return f.SetColWidth(sheet, first, last, width)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set width of column(s) %s on '%s' to %s in %s%s", span, sheet, number(width), path, created(existed)), nil
}

func (h *handlers) setRowHeight(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	start := args.Int("startRow", 1)
	end := args.Int("endRow", start)
	if end < start {
		return nil, &tools.ValidationError{Field: "endRow", Value: end, Message: "must not be before startRow"}
	}
	if end > xlsx.MaxRows {
		return nil, &tools.ValidationError{Field: "endRow", Value: end, Message: fmt.Sprintf("exceeds %d", xlsx.MaxRows)}
	}
	height := args.Float("height", 15)
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		for r := start; r <= end; r++ {
			if err := f.SetRowHeight(sheet, r, height); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set height of %d row(s) from %d on '%s' to %s in %s%s", end-start+1, start, sheet, number(height), path, created(existed)), nil
}

func (h *handlers) autoFitColumns(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var cols []int
	if names := args.Strings("columns"); len(names) > 0 {
		var err error
		if cols, err = columns(names); err != nil {
			return nil, err
		}
	}
	var fitted int
	path, sheet, _, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		var err error
		fitted, err = xlsx.AutoFit(f, sheet, cols)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Auto-fitted %d column(s) on '%s' in %s", fitted, sheet, path), nil
}

func (h *handlers) freezePanes(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	cell := strings.ToUpper(args.String("cell"))
	var col, row int
	if cell != "" {
		var err error
		if col, row, err = excelize.CellNameToCoordinates(cell); err != nil {
			return nil, &tools.ValidationError{Field: "cell", Value: cell, Message: err.Error()}
		}
		col, row = col-1, row-1
	} else {
		col, row = args.Int("columns", 0), args.Int("rows", 0)
		if col == 0 && row == 0 {
			return nil, &tools.ValidationError{Field: "cell", Message: "give a cell or the rows and columns to freeze"}
		}
	}
	topLeft, _ := excelize.CoordinatesToCellName(col+1, row+1)

	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		if col == 0 && row == 0 {
			return f.SetPanes(sheet, &excelize.Panes{})
		}
		pane := "bottomLeft"
		switch {
		case col > 0 && row > 0:
			pane = "bottomRight"
		case col > 0:
			pane = "topRight"
		}
		return f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			XSplit:      col,
			YSplit:      row,
			TopLeftCell: topLeft,
			ActivePane:  pane,
		})
	})
	if err != nil {
		return nil, err
	}
	if col == 0 && row == 0 {
		return tools.Text("Unfroze panes on '%s' in %s", sheet, path), nil
	}
	return tools.Text("Froze %d row(s) and %d column(s) on '%s' in %s%s", row, col, sheet, path, created(existed)), nil
}

func (h *handlers) addConditionalFormatting(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	rule := xlsx.ConditionalRule{
		Type:     args.String("type"),
		Operator: args.String("operator"),
		Value:    args.String("value"),
		Value2:   args.String("value2"),
		Formula:  args.String("formula"),
		Style:    styleFrom(args.Map("format")),
		MinColor: args.String("minColor"),
		MidColor: args.String("midColor"),
		MaxColor: args.String("maxColor"),
		BarColor: args.String("barColor"),
		Rank:     args.Int("rank", 10),
	}
	switch rule.Type {
	case "cellValue":
		if rule.Operator == "" || rule.Value == "" {
			return nil, &tools.ValidationError{Field: "operator", Message: "cellValue rules need an operator and a value"}
		}
	case "formula":
		if rule.Formula == "" {
			return nil, &tools.ValidationError{Field: "formula", Message: "formula rules need a formula"}
		}
		f, err := checkFormula(rule.Formula)
		if err != nil {
			return nil, err
		}
		rule.Formula = f[1:]
	}
	ref := args.String("range")
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.AddConditionalFormat(f, sheet, ref, rule)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added %s conditional formatting to %s on '%s' in %s%s", rule.Type, ref, sheet, path, created(existed)), nil
}

var conditionalHelp = &tools.ExtendedHelp{
	Examples: []tools.ToolExample{
		{
			Description: "Highlight sales over 1000 in green",
			Arguments: map[string]any{
				"filename": "sales.xlsx", "range": "C2:C50", "type": "cellValue",
				"operator": "greaterThan", "value": "1000",
				"format": map[string]any{"fillColor": "C6EFCE", "fontColor": "006100"},
			},
		},
		{
			Description: "Three colour scale from red to green",
			Arguments: map[string]any{
				"filename": "sales.xlsx", "range": "D2:D50", "type": "colorScale",
				"minColor": "F8696B", "midColor": "FFEB84", "maxColor": "63BE7B",
			},
		},
		{
			Description: "Shade whole rows where the status column says Overdue",
			Arguments: map[string]any{
				"filename": "tasks.xlsx", "range": "A2:F100", "type": "formula",
				"formula": `=$F2="Overdue"`, "format": map[string]any{"fillColor": "FFC7CE"},
			},
		},
	},
	ParameterDetails: map[string]string{
		"formula": "Written relative to the top-left cell of range; use $ to pin the column",
		"value":   "A number, a quoted string or a formula such as $H$1",
	},
	Troubleshooting: []tools.TroubleshootingTip{
		{Problem: "Every row is highlighted by a formula rule", Solution: "Anchor the column with $ but leave the row relative, e.g. =$C2>100"},
	},
}
