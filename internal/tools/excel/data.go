package excel

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

func (h *handlers) dataTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("write_cells",
			"Write values into a sheet, either as a block of rows from a start cell or as individual cells. Strings starting with '=' become formulas. A missing sheet is created.",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("startCell", mcp.Description("Top left cell of data"), mcp.DefaultString("A1")),
			tools.Grid("data", "Rows of values to write from startCell"),
			mcp.WithObject("cells", mcp.Description("Individual cells, e.g. {\"B2\": 10, \"C2\": \"=B2*2\"}")),
			tools.OutputPath(),
		), h.writeCells).WithHelp(&tools.ExtendedHelp{
			Examples: []tools.ToolExample{
				{
					Description: "Append a block with a formula column",
					Arguments: map[string]any{
						"filename":  "budget.xlsx",
						"sheetName": "2026",
						"startCell": "A2",
						"data":      []any{[]any{"Rent", 1200, "=B2*12"}, []any{"Power", 90, "=B3*12"}},
					},
				},
			},
			CommonPatterns: []string{"Use cells for scattered updates and data for contiguous blocks; both may be given in one call"},
		}),

		tools.NewFunc(tools.Define("read_range",
			"Read a range of cells as a markdown table. Formulas can be shown instead of their results",
			tools.Reads,
			workbook(),
			sheetName(),
			mcp.WithString("range", mcp.Description("Range such as A1:D20. Defaults to the used area")),
			mcp.WithBoolean("showFormulas", mcp.DefaultBool(false)),
		), h.readRange),

		tools.NewFunc(tools.Define("sort_range",
			"Sort the rows of a range by one or more columns",
			tools.Edits,
			workbook(),
			sheetName(),
			rangeParam("Range to sort, e.g. A1:D50"),
			tools.ObjectArray("sortBy", "Sort keys in priority order", map[string]any{
				"column":     map[string]any{"type": "string", "description": "Column letter, e.g. C"},
				"descending": map[string]any{"type": "boolean"},
			}),
			mcp.WithBoolean("hasHeader", mcp.Description("Keep the first row in place"), mcp.DefaultBool(true)),
			tools.OutputPath(),
		), h.sortRange),

		tools.NewFunc(tools.Define("apply_autofilter",
			"Add filter buttons to a header row, optionally with a filter expression on one column such as 'x > 100'",
			tools.Edits,
			workbook(),
			sheetName(),
			rangeParam("Range including the header row"),
			mcp.WithString("column", mcp.Description("Column letter the expression applies to")),
			mcp.WithString("expression", mcp.Description("Filter expression, e.g. x > 100 or x == Blue")),
			tools.OutputPath(),
		), h.autoFilter),

		tools.NewFunc(tools.Define("find_replace_excel",
			"Find and replace text in the cells of one or all sheets. Formulas and numbers are left alone",
			tools.Edits,
			workbook(),
			mcp.WithString("sheetName", mcp.Description("Limit to one sheet. Defaults to every sheet")),
			mcp.WithString("find", mcp.Required()),
			mcp.WithString("replace", mcp.Description("Replacement text; empty deletes the match")),
			mcp.WithString("range", mcp.Description("Limit to a range")),
			mcp.WithBoolean("matchCase", mcp.DefaultBool(false)),
			mcp.WithBoolean("wholeCell", mcp.DefaultBool(false)),
			mcp.WithBoolean("regex", mcp.Description("Treat find as a regular expression; replace may use $1"), mcp.DefaultBool(false)),
			tools.OutputPath(),
		), h.findReplace),

		tools.NewFunc(tools.Define("remove_duplicates",
			"Remove duplicate rows from a range, comparing all or selected columns. Remaining rows move up",
			tools.Edits,
			workbook(),
			sheetName(),
			rangeParam("Range to deduplicate"),
			tools.StringArray("columns", "Columns to compare (letters). Defaults to all"),
			mcp.WithBoolean("hasHeader", mcp.DefaultBool(true)),
			tools.OutputPath(),
		), h.removeDuplicates),

		tools.NewFunc(tools.Define("transpose_range",
			"Copy a range with rows and columns swapped to a target cell, on the same or another sheet",
			tools.Edits,
			workbook(),
			sheetName(),
			rangeParam("Range to transpose"),
			mcp.WithString("targetCell", mcp.Required()),
			mcp.WithString("targetSheet", mcp.Description("Destination sheet, created when missing. Defaults to the source sheet")),
			tools.OutputPath(),
		), h.transposeRange),

		tools.NewFunc(tools.Define("calculate_statistics",
			"Compute count, sum, mean, median, min, max, standard deviation and variance of the numeric cells in a range",
			tools.Reads,
			workbook(),
			sheetName(),
			rangeParam("Range to analyse"),
		), h.statistics),
	}
}

func (h *handlers) writeCells(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	rows := args.Rows("data")
	cells := args.Map("cells")
	if len(rows) == 0 && len(cells) == 0 {
		return nil, &tools.ValidationError{Field: "data", Message: "provide data rows or cells"}
	}
	start := strings.ToUpper(args.StringOr("startCell", "A1"))
	written := 0
	var sheet string
	path, existed, err := h.edit(ctx, args, func(f *excelize.File) error {
		sheet = args.String("sheetName")
		if sheet == "" {
			name, err := xlsx.SheetOrActive(f, "")
			if err != nil {
				return err
			}
			sheet = name
		} else if _, err := xlsx.EnsureSheet(f, sheet); err != nil {
			return err
		}
		if len(rows) > 0 {
			n, err := xlsx.WriteRows(f, sheet, start, rows)
			written += n
			if err != nil {
				return err
			}
		}
		for cell, v := range cells {
			if _, err := xlsx.ParseRange(cell); err != nil {
				return err
			}
			if err := xlsx.SetValue(f, sheet, strings.ToUpper(cell), v); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": path, "sheet": sheet, "cells": written}).Debug("Wrote cells")
	return tools.Text("Wrote %d cells to sheet '%s' in %s%s", written, sheet, path, created(existed)), nil
}

func (h *handlers) readRange(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var rows [][]string
	var sheet, ref string
	path, err := h.inspect(args, func(f *excelize.File) error {
		name, err := xlsx.SheetOrActive(f, args.String("sheetName"))
		if err != nil {
			return err
		}
		sheet = name
		ref = args.String("range")
		if ref == "" {
			used, ok, err := xlsx.UsedRange(f, sheet)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			ref = used.String()
		}
		rng, err := xlsx.ParseRange(ref)
		if err != nil {
			return err
		}
		if !args.Bool("showFormulas", false) {
			rows, err = xlsx.ReadRange(f, sheet, rng.String())
			return err
		}
		values, err := xlsx.ReadValues(f, sheet, rng)
		if err != nil {
			return err
		}
		for _, row := range values {
			out := make([]string, len(row))
			for i, v := range row {
				out[i] = tools.Stringify(v)
			}
			rows = append(rows, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ref == "" {
		return tools.Text("Sheet '%s' in %s is empty", sheet, path), nil
	}
	return tools.Text("%s!%s in %s:\n\n%s", sheet, ref, path, markdownTable(rows, 0)), nil
}

func (h *handlers) sortRange(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	rng, err := xlsx.ParseRange(args.String("range"))
	if err != nil {
		return nil, err
	}
	var keys []xlsx.SortKey
	var described []string
	for _, k := range args.Maps("sortBy") {
		col, err := xlsx.ColumnIndex(k.String("column"))
		if err != nil {
			return nil, &tools.ValidationError{Field: "sortBy", Value: k.String("column"), Message: err.Error()}
		}
		desc := k.Bool("descending", false)
		keys = append(keys, xlsx.SortKey{Column: col, Descending: desc})
		order := "ascending"
		if desc {
			order = "descending"
		}
		described = append(described, strings.ToUpper(k.String("column"))+" "+order)
	}
	path, sheet, _, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.SortRange(f, sheet, rng, keys, args.Bool("hasHeader", true))
	})
	if err != nil {
		return nil, err
	}
	by := "first column ascending"
	if len(described) > 0 {
		by = strings.Join(described, ", ")
	}
	return tools.Text("Sorted %s on '%s' by %s in %s", rng, sheet, by, path), nil
}

func (h *handlers) autoFilter(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	rng, err := xlsx.ParseRange(args.String("range"))
	if err != nil {
		return nil, err
	}
	var opts []excelize.AutoFilterOptions
	if expr := args.String("expression"); expr != "" {
		col := strings.ToUpper(args.String("column"))
		if col == "" {
			return nil, &tools.ValidationError{Field: "column", Message: "is required with an expression"}
		}
		opts = append(opts, excelize.AutoFilterOptions{Column: col, Expression: expr})
	}
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return f.AutoFilter(sheet, rng.String(), opts)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Applied autofilter to %s on '%s' in %s%s", rng, sheet, path, created(existed)), nil
}

func (h *handlers) findReplace(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	find, err := args.RequireString("find")
	if err != nil {
		return nil, err
	}
	opts := xlsx.FindOptions{
		MatchCase: args.Bool("matchCase", false),
		WholeCell: args.Bool("wholeCell", false),
		Regex:     args.Bool("regex", false),
		Ref:       args.String("range"),
	}
	total := 0
	path, _, err := h.edit(ctx, args, func(f *excelize.File) error {
		sheets := f.GetSheetList()
		if only := args.String("sheetName"); only != "" {
			if err := xlsx.RequireSheet(f, only); err != nil {
				return err
			}
			sheets = []string{only}
		}
		for _, sheet := range sheets {
			n, err := xlsx.FindReplace(f, sheet, find, args.String("replace"), opts)
			if err != nil {
				return &xlsx.SheetError{Operation: "find and replace", SheetName: sheet, Cause: err}
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Replaced '%s' in %d cell(s) in %s", find, total, path), nil
}

func (h *handlers) removeDuplicates(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	rng, err := xlsx.ParseRange(args.String("range"))
	if err != nil {
		return nil, err
	}
	cols, err := columns(args.Strings("columns"))
	if err != nil {
		return nil, &tools.ValidationError{Field: "columns", Message: err.Error()}
	}
	removed := 0
	path, sheet, _, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		removed, err = xlsx.RemoveDuplicates(f, sheet, rng, cols, args.Bool("hasHeader", true))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Removed %d duplicate row(s) from %s on '%s' in %s", removed, rng, sheet, path), nil
}

func (h *handlers) transposeRange(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	rng, err := xlsx.ParseRange(args.String("range"))
	if err != nil {
		return nil, err
	}
	var out xlsx.Range
	var target string
	path, sheet, _, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		target = args.StringOr("targetSheet", sheet)
		if _, err := xlsx.EnsureSheet(f, target); err != nil {
			return err
		}
		out, err = xlsx.Transpose(f, sheet, rng, target, args.String("targetCell"))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Transposed %s on '%s' to %s on '%s' in %s", rng, sheet, out, target, path), nil
}

func (h *handlers) statistics(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	rng, err := xlsx.ParseRange(args.String("range"))
	if err != nil {
		return nil, err
	}
	var stats xlsx.Stats
	var sheet string
	path, err := h.inspect(args, func(f *excelize.File) error {
		if sheet, err = xlsx.SheetOrActive(f, args.String("sheetName")); err != nil {
			return err
		}
		stats, err = xlsx.Statistics(f, sheet, rng)
		return err
	})
	if err != nil {
		return nil, err
	}
	if stats.Count == 0 {
		return tools.Text("No numeric values in %s!%s of %s", sheet, rng, path), nil
	}
	return tools.Text("Statistics for %s!%s in %s:\nCount: %d\nSum: %s\nMean: %s\nMedian: %s\nMin: %s\nMax: %s\nStd dev: %s\nVariance: %s",
		sheet, rng, path, stats.Count,
		number(stats.Sum), number(stats.Mean), number(stats.Median), number(stats.Min),
		number(stats.Max), number(stats.StdDev), number(stats.Variance)), nil
}

// number rounds to six decimals without switching to exponent notation
func number(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
