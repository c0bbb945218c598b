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

func (h *handlers) worksheetTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_worksheet",
			"Add a worksheet to a workbook, optionally at a position and with header cells",
			tools.Edits,
			workbook(),
			mcp.WithString("sheetName", mcp.Required(), mcp.Description("Name of the new sheet")),
			mcp.WithNumber("position", mcp.Description("1-based position among the sheets. Defaults to last"), mcp.Min(1)),
			tools.StringArray("headers", "Optional header row"),
			tools.OutputPath(),
		), h.addWorksheet),

		tools.NewFunc(tools.Define("delete_worksheet",
			"Delete a worksheet. The last remaining sheet cannot be deleted",
			tools.Edits,
			workbook(),
			mcp.WithString("sheetName", mcp.Required()),
			tools.OutputPath(),
		), h.deleteWorksheet),

		tools.NewFunc(tools.Define("rename_worksheet",
			"Rename a worksheet",
			tools.Edits,
			workbook(),
			mcp.WithString("sheetName", mcp.Required(), mcp.Description("Current name")),
			mcp.WithString("newName", mcp.Required()),
			tools.OutputPath(),
		), h.renameWorksheet),

		tools.NewFunc(tools.Define("copy_worksheet",
			"Copy a worksheet, including values, formulas and formatting, to a new sheet in the same workbook",
			tools.Edits,
			workbook(),
			mcp.WithString("sheetName", mcp.Required(), mcp.Description("Sheet to copy")),
			mcp.WithString("newName", mcp.Description("Name of the copy. Defaults to '<sheet> (2)'")),
			tools.OutputPath(),
		), h.copyWorksheet),

		tools.NewFunc(tools.Define("list_worksheets",
			"List the worksheets of a workbook with their used range and visibility",
			tools.Reads,
			workbook(),
		), h.listWorksheets),

		tools.NewFunc(tools.Define("hide_worksheet",
			"Hide or unhide a worksheet. A very hidden sheet can only be shown again programmatically",
			tools.Edits,
			workbook(),
			mcp.WithString("sheetName", mcp.Required()),
			mcp.WithBoolean("hidden", mcp.Description("false shows the sheet again"), mcp.DefaultBool(true)),
			mcp.WithBoolean("veryHidden", mcp.DefaultBool(false)),
			tools.OutputPath(),
		), h.hideWorksheet),

		tools.NewFunc(tools.Define("set_tab_color",
			"Set the colour of a worksheet's tab",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("color", mcp.Required(), mcp.Description("Hex colour such as 4472C4")),
			tools.OutputPath(),
		), h.setTabColor),

		tools.NewFunc(tools.Define("protect_worksheet",
			"Protect a worksheet against edits, optionally with a password",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("password"),
			mcp.WithBoolean("allowFormatting", mcp.DefaultBool(false)),
			mcp.WithBoolean("allowSorting", mcp.DefaultBool(false)),
			tools.OutputPath(),
		), h.protectWorksheet),
	}
}

func (h *handlers) addWorksheet(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, err := args.RequireString("sheetName")
	if err != nil {
		return nil, err
	}
	if err := xlsx.ValidateSheetName(name); err != nil {
		return nil, &tools.ValidationError{Field: "sheetName", Value: name, Message: err.Error()}
	}
	path, existed, err := h.edit(ctx, args, func(f *excelize.File) error {
		if idx, _ := f.GetSheetIndex(name); idx >= 0 {
			return &xlsx.SheetError{Operation: "add", SheetName: name, Cause: fmt.Errorf("sheet already exists")}
		}
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if pos := args.Int("position", 0); pos > 0 {
			if err := moveSheet(f, name, pos); err != nil {
				return err
			}
		}
		if headers := args.Strings("headers"); len(headers) > 0 {
			row := make([]any, len(headers))
			for i, h := range headers {
				row[i] = h
			}
			if _, err := xlsx.WriteRows(f, name, "A1", [][]any{row}); err != nil {
				return err
			}
			end, _ := excelize.CoordinatesToCellName(len(headers), 1)
			if _, err := xlsx.ApplyStyle(f, name, "A1:"+end, xlsx.StyleSpec{Bold: true}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added worksheet '%s' to %s%s", name, path, created(existed)), nil
}

// moveSheet places a sheet at a 1-based position
func moveSheet(f *excelize.File, name string, pos int) error {
	sheets := f.GetSheetList()
	current, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	if pos-1 >= current {
		return nil
	}
	return f.MoveSheet(name, sheets[pos-1])
}

func (h *handlers) deleteWorksheet(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, err := args.RequireString("sheetName")
	if err != nil {
		return nil, err
	}
	path, _, err := h.edit(ctx, args, func(f *excelize.File) error {
		if err := xlsx.RequireSheet(f, name); err != nil {
			return err
		}
		if f.SheetCount <= 1 {
			return &xlsx.SheetError{Operation: "delete", SheetName: name, Cause: fmt.Errorf("a workbook must keep at least one sheet")}
		}
		return f.DeleteSheet(name)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Deleted worksheet '%s' from %s", name, path), nil
}

func (h *handlers) renameWorksheet(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, err := args.RequireString("sheetName")
	if err != nil {
		return nil, err
	}
	newName, err := args.RequireString("newName")
	if err != nil {
		return nil, err
	}
	if err := xlsx.ValidateSheetName(newName); err != nil {
		return nil, &tools.ValidationError{Field: "newName", Value: newName, Message: err.Error()}
	}
	path, _, err := h.edit(ctx, args, func(f *excelize.File) error {
		if err := xlsx.RequireSheet(f, name); err != nil {
			return err
		}
		if idx, _ := f.GetSheetIndex(newName); idx >= 0 && !strings.EqualFold(name, newName) {
			return &xlsx.SheetError{Operation: "rename", SheetName: name, Cause: fmt.Errorf("a sheet named '%s' already exists", newName)}
		}
		return f.SetSheetName(name, newName)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Renamed worksheet '%s' to '%s' in %s", name, newName, path), nil
}

func (h *handlers) copyWorksheet(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, err := args.RequireString("sheetName")
	if err != nil {
		return nil, err
	}
	target := args.StringOr("newName", name+" (2)")
	if err := xlsx.ValidateSheetName(target); err != nil {
		return nil, &tools.ValidationError{Field: "newName", Value: target, Message: err.Error()}
	}
	path, _, err := h.edit(ctx, args, func(f *excelize.File) error {
		from, err := f.GetSheetIndex(name)
		if err != nil || from < 0 {
			return &xlsx.SheetError{Operation: "copy", SheetName: name, Cause: fmt.Errorf("sheet not found")}
		}
		if idx, _ := f.GetSheetIndex(target); idx >= 0 {
			return &xlsx.SheetError{Operation: "copy", SheetName: target, Cause: fmt.Errorf("sheet already exists")}
		}
		to, err := f.NewSheet(target)
		if err != nil {
			return err
		}
		return f.CopySheet(from, to)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Copied worksheet '%s' to '%s' in %s", name, target, path), nil
}

func (h *handlers) listWorksheets(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var lines []string
	path, err := h.inspect(args, func(f *excelize.File) error {
		for i, sheet := range f.GetSheetList() {
			dim, _ := f.GetSheetDimension(sheet)
			line := fmt.Sprintf("%d. %s (%s)", i+1, sheet, dim)
			if visible, err := f.GetSheetVisible(sheet); err == nil && !visible {
				line += " hidden"
			}
			lines = append(lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("%d worksheet(s) in %s:\n%s", len(lines), path, strings.Join(lines, "\n")), nil
}

func (h *handlers) hideWorksheet(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, err := args.RequireString("sheetName")
	if err != nil {
		return nil, err
	}
	hidden := args.Bool("hidden", true)
	path, _, err := h.edit(ctx, args, func(f *excelize.File) error {
		if err := xlsx.RequireSheet(f, name); err != nil {
			return err
		}
		if hidden {
			visible := 0
			for _, s := range f.GetSheetList() {
				if v, _ := f.GetSheetVisible(s); v && s != name {
					visible++
				}
			}
			if visible == 0 {
				return &xlsx.SheetError{Operation: "hide", SheetName: name, Cause: fmt.Errorf("at least one sheet must stay visible")}
			}
			if f.GetSheetName(f.GetActiveSheetIndex()) == name {
				for i, s := range f.GetSheetList() {
					if v, _ := f.GetSheetVisible(s); v && s != name {
						f.SetActiveSheet(i)
						break
					}
				}
			}
		}
		return f.SetSheetVisible(name, !hidden, args.Bool("veryHidden", false))
	})
	if err != nil {
		return nil, err
	}
	state := "Showed"
	if hidden {
		state = "Hid"
	}
	return tools.Text("%s worksheet '%s' in %s", state, name, path), nil
}

func (h *handlers) setTabColor(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	color := xlsx.NormalizeColor(args.String("color"))
	if len(color) != 6 {
		return nil, &tools.ValidationError{Field: "color", Value: args.String("color"), Message: "expected a 6 digit hex colour"}
	}
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return f.SetSheetProps(sheet, &excelize.SheetPropsOptions{TabColorRGB: &color})
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set tab colour of '%s' to #%s in %s%s", sheet, color, path, created(existed)), nil
}

func (h *handlers) protectWorksheet(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	password := args.String("password")
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.Protect(f, sheet, password, args.Bool("allowFormatting", false), args.Bool("allowSorting", false))
	})
	if err != nil {
		return nil, err
	}
	how := "without a password"
	if password != "" {
		how = "with a password"
	}
	return tools.Text("Protected worksheet '%s' %s in %s%s", sheet, how, path, created(existed)), nil
}
