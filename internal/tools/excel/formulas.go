package excel

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Functions that reach outside the workbook are refused
var dangerousFunctions = []string{
	"INDIRECT",     // arbitrary cell references
	"WEBSERVICE",   // HTTP requests
	"RTD",          // real-time data servers
	"CALL",         // DLL calls
	"REGISTER.ID",  // external resources
	"GET.WORKBOOK", // workbook metadata
	"IMPORTDATA",
	"IMPORTXML",
	"IMPORTHTML",
	"IMPORTFEED",
	"IMPORTRANGE",
}

var dangerousPattern = regexp.MustCompile(`\b(` + strings.ReplaceAll(strings.Join(dangerousFunctions, "|"), ".", `\.`) + `)\s*\(`)

// Excel 2019+ accepts formulas up to 8192 characters
const maxFormulaLength = 8192

var namePattern = regexp.MustCompile(`^[A-Za-z_\\][A-Za-z0-9_.]*$`)

// checkFormula normalises a formula to its leading "=" form and rejects
// unsafe or malformed ones
func checkFormula(formula string) (string, error) {
	formula = strings.TrimSpace(formula)
	if !strings.HasPrefix(formula, "=") {
		formula = "=" + formula
	}
	if len(formula) == 1 {
		return "", &tools.ValidationError{Field: "formula", Message: "is empty"}
	}
	if len(formula) > maxFormulaLength {
		return "", &tools.ValidationError{Field: "formula", Message: fmt.Sprintf("longer than %d characters", maxFormulaLength)}
	}
	if m := dangerousPattern.FindStringSubmatch(strings.ToUpper(formula)); m != nil {
		return "", &tools.ValidationError{Field: "formula", Value: formula, Message: fmt.Sprintf("function %s is not allowed", m[1])}
	}
	depth := 0
	for _, r := range formula {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth < 0 {
			break
		}
	}
	if depth != 0 {
		return "", &tools.ValidationError{Field: "formula", Value: formula, Message: "unbalanced parentheses"}
	}
	return formula, nil
}

func (h *handlers) formulaTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_formula",
			"Put a formula in a cell, or fill it over a range with relative references adjusted per row and column. The computed value is reported",
			tools.Edits,
			workbook(),
			sheetName(),
			cellParam("Cell for the formula, e.g. D2"),
			mcp.WithString("formula", mcp.Required(), mcp.Description("Formula with or without the leading '=', e.g. =SUM(B2:C2)")),
			mcp.WithString("fillRange", mcp.Description("Range starting at cell to fill, e.g. D2:D20")),
			tools.OutputPath(),
		), h.addFormula),

		tools.NewFunc(tools.Define("calculate_formula",
			"Evaluate the formula in a cell, or an ad hoc formula against the workbook's data, without changing the file",
			tools.Reads,
			workbook(),
			sheetName(),
			mcp.WithString("cell", mcp.Description("Cell whose value to calculate")),
			mcp.WithString("formula", mcp.Description("Formula to evaluate instead, e.g. =AVERAGE(B2:B10)")),
		), h.calculateFormula),

		tools.NewFunc(tools.Define("add_named_range",
			"Define a workbook or sheet scoped name for a range, usable in formulas",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("name", mcp.Required(), mcp.Description("Name such as SalesData")),
			rangeParam("Range the name refers to"),
			mcp.WithString("scope", mcp.Description("'workbook' or 'sheet'"), mcp.Enum("workbook", "sheet"), mcp.DefaultString("workbook")),
			mcp.WithString("comment"),
			tools.OutputPath(),
		), h.addNamedRange),

		tools.NewFunc(tools.Define("goal_seek",
			"Record a goal seek setup: the formula cell, its target value and the input cell to vary. The workbook gets a note and a Goal Seek sheet documenting the request, and the current formula value is reported. No solver runs.",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("setCell", mcp.Required(), mcp.Description("Cell containing the formula")),
			mcp.WithNumber("toValue", mcp.Required()),
			mcp.WithString("byChangingCell", mcp.Required()),
			tools.OutputPath(),
		), h.goalSeek),

		tools.NewFunc(tools.Define("create_scenario",
			"Document a what-if scenario: named values for a set of input cells. The scenario is listed on a Scenarios sheet and noted on each input cell; the current values are not changed unless apply is set",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("name", mcp.Required()),
			mcp.WithObject("values", mcp.Required(), mcp.Description("Input cell to value, e.g. {\"B2\": 0.05, \"B3\": 12}")),
			mcp.WithString("comment"),
			mcp.WithBoolean("apply", mcp.Description("Also write the values into the cells"), mcp.DefaultBool(false)),
			tools.OutputPath(),
		), h.createScenario),
	}
}

func (h *handlers) addFormula(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	formula, err := checkFormula(args.String("formula"))
	if err != nil {
		return nil, err
	}
	cell := strings.ToUpper(args.String("cell"))
	if _, _, err := excelize.CellNameToCoordinates(cell); err != nil {
		return nil, &tools.ValidationError{Field: "cell", Value: cell, Message: err.Error()}
	}
	fill := args.String("fillRange")
	var result string
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		if fill == "" {
			if err := f.SetCellFormula(sheet, cell, formula[1:]); err != nil {
				return err
			}
		} else {
			rng, err := xlsx.ParseRange(fill)
			if err != nil {
				return err
			}
			if rng.Cell(0, 0) != cell {
				return &tools.ValidationError{Field: "fillRange", Value: fill, Message: "must start at cell " + cell}
			}
			shared, ref := "shared", rng.String()
			if err := f.SetCellFormula(sheet, cell, formula[1:], excelize.FormulaOpts{Type: &shared, Ref: &ref}); err != nil {
				return err
			}
		}
		v, err := f.CalcCellValue(sheet, cell)
		if err != nil {
			result = "not calculated: " + err.Error()
		} else {
			result = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	where := cell
	if fill != "" {
		where = fill
	}
	return tools.Text("Added formula %s to %s on '%s' (value %s) in %s%s", formula, where, sheet, result, path, created(existed)), nil
}

func (h *handlers) calculateFormula(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	cell := strings.ToUpper(args.String("cell"))
	formula := args.String("formula")
	if cell == "" && formula == "" {
		return nil, &tools.ValidationError{Field: "cell", Message: "provide a cell or a formula"}
	}
	adHoc := formula != ""
	if adHoc {
		var err error
		if formula, err = checkFormula(formula); err != nil {
			return nil, err
		}
	}
	var value, sheet string
	path, err := h.inspect(args, func(f *excelize.File) error {
		var err error
		if sheet, err = xlsx.SheetOrActive(f, args.String("sheetName")); err != nil {
			return err
		}
		target := cell
		if adHoc {
			// evaluate in a scratch cell below the data; the file is not saved
			used, ok, err := xlsx.UsedRange(f, sheet)
			if err != nil {
				return err
			}
			row := 1
			if ok {
				row = used.EndRow + 1
			}
			target, _ = excelize.CoordinatesToCellName(1, row)
			if err := f.SetCellFormula(sheet, target, formula[1:]); err != nil {
				return err
			}
		} else if fml, _ := f.GetCellFormula(sheet, cell); fml != "" {
			formula = "=" + fml
		}
		value, err = f.CalcCellValue(sheet, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	switch {
	case adHoc:
		return tools.Text("%s = %s on '%s' in %s", formula, value, sheet, path), nil
	case formula != "":
		return tools.Text("%s!%s = %s (formula %s) in %s", sheet, cell, value, formula, path), nil
	}
	return tools.Text("%s!%s = %s in %s", sheet, cell, value, path), nil
}

func (h *handlers) addNamedRange(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, err := args.RequireString("name")
	if err != nil {
		return nil, err
	}
	if !namePattern.MatchString(name) || len(name) > 255 {
		return nil, &tools.ValidationError{Field: "name", Value: name, Message: "must start with a letter or underscore and contain only letters, digits, periods and underscores"}
	}
	if _, err := xlsx.ParseRange(name); err == nil {
		return nil, &tools.ValidationError{Field: "name", Value: name, Message: "looks like a cell reference"}
	}
	rng, err := xlsx.ParseRange(args.String("range"))
	if err != nil {
		return nil, err
	}
	var refersTo string
	path, _, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		refersTo = rng.Absolute(sheet)
		dn := &excelize.DefinedName{Name: name, RefersTo: refersTo, Comment: args.String("comment")}
		if args.String("scope") == "sheet" {
			dn.Scope = sheet
		}
		return f.SetDefinedName(dn)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Defined name %s = %s (%s scope) in %s%s", name, refersTo, args.StringOr("scope", "workbook"), path, created(existed)), nil
}

func (h *handlers) goalSeek(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	setCell := strings.ToUpper(args.String("setCell"))
	changing := strings.ToUpper(args.String("byChangingCell"))
	target := args.Float("toValue", 0)
	for field, c := range map[string]string{"setCell": setCell, "byChangingCell": changing} {
		if _, _, err := excelize.CellNameToCoordinates(c); err != nil {
			return nil, &tools.ValidationError{Field: field, Value: c, Message: err.Error()}
		}
	}
	var current string
	path, sheet, _, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		fml, _ := f.GetCellFormula(sheet, setCell)
		if fml == "" {
			return &xlsx.SheetError{Operation: "goal seek", SheetName: sheet, Cause: fmt.Errorf("%s does not contain a formula", setCell)}
		}
		if v, err := f.CalcCellValue(sheet, setCell); err == nil {
			current = v
		}
		note := fmt.Sprintf("Goal seek: set %s to %s by changing %s", setCell, number(target), changing)
		if err := xlsx.Annotate(f, sheet, changing, "", note); err != nil {
			return err
		}
		return xlsx.NotesSheet(f, "Goal Seek", "Goal seek on "+sheet, [][]any{
			{"Formula cell", setCell},
			{"Formula", "=" + fml},
			{"Target value", target},
			{"Changing cell", changing},
			{"Current value", current},
			{"Status", "Run Data > What-If Analysis > Goal Seek in Excel to solve"},
		})
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Recorded goal seek on '%s': set %s (currently %s) to %s by changing %s in %s", sheet, setCell, current, number(target), changing, path), nil
}

func (h *handlers) createScenario(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, err := args.RequireString("name")
	if err != nil {
		return nil, err
	}
	values := args.Map("values")
	if len(values) == 0 {
		return nil, &tools.ValidationError{Field: "values", Message: "at least one cell value is required"}
	}
	cells := make([]string, 0, len(values))
	for c := range values {
		if _, _, err := excelize.CellNameToCoordinates(strings.ToUpper(c)); err != nil {
			return nil, &tools.ValidationError{Field: "values", Value: c, Message: err.Error()}
		}
		cells = append(cells, c)
	}
	slices.SortFunc(cells, byPosition)
	apply := args.Bool("apply", false)
	path, sheet, _, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		rows := [][]any{{"Sheet", sheet}}
		if c := args.String("comment"); c != "" {
			rows = append(rows, []any{"Comment", c})
		}
		for _, c := range cells {
			cell := strings.ToUpper(c)
			current, _ := xlsx.Value(f, sheet, cell)
			rows = append(rows, []any{cell, values[c], fmt.Sprintf("current: %s", tools.Stringify(current))})
			if err := xlsx.Annotate(f, sheet, cell, "", fmt.Sprintf("Scenario %s: %s", name, tools.Stringify(values[c]))); err != nil {
				return err
			}
			if apply {
				if err := xlsx.SetValue(f, sheet, cell, values[c]); err != nil {
					return err
				}
			}
		}
		return xlsx.NotesSheet(f, "Scenarios", "Scenario: "+name, rows)
	})
	if err != nil {
		return nil, err
	}
	state := "documented"
	if apply {
		state = "applied"
	}
	return tools.Text("Scenario '%s' with %d input cell(s) on '%s' %s in %s", name, len(cells), sheet, state, path), nil
}

// byPosition orders cell names row by row
func byPosition(a, b string) int {
	ac, ar, _ := excelize.CellNameToCoordinates(strings.ToUpper(a))
	bc, br, _ := excelize.CellNameToCoordinates(strings.ToUpper(b))
	if ar != br {
		return ar - br
	}
	return ac - bc
}
