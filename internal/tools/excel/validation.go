package excel

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

func (h *handlers) validationTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_data_validation",
			"Restrict what can be entered in a range: a drop-down list, number, date, time or text length bounds, or a custom formula",
			tools.Edits,
			workbook(),
			sheetName(),
			rangeParam("Cells to validate, e.g. C2:C100"),
			mcp.WithString("type", mcp.Required(), mcp.Enum("list", "whole", "decimal", "date", "time", "textLength", "custom")),
			tools.StringArray("values", "Allowed entries for list validation"),
			mcp.WithString("operator", mcp.DefaultString("between"), mcp.Enum(
				"between", "notBetween", "equal", "notEqual", "greaterThan", "greaterThanOrEqual", "lessThan", "lessThanOrEqual")),
			mcp.WithString("min", mcp.Description("Lower bound, single comparison value, or the formula for custom")),
			mcp.WithString("max", mcp.Description("Upper bound for between and notBetween")),
			mcp.WithString("inputTitle"),
			mcp.WithString("inputMessage", mcp.Description("Prompt shown when a cell is selected")),
			mcp.WithString("errorTitle"),
			mcp.WithString("errorMessage", mcp.Description("Message shown when an entry is rejected")),
			mcp.WithBoolean("allowBlank", mcp.DefaultBool(true)),
			tools.OutputPath(),
		), h.addDataValidation).WithHelp(&tools.ExtendedHelp{
			Examples: []tools.ToolExample{
				{
					Description: "Status drop-down",
					Arguments: map[string]any{
						"filename": "tracker.xlsx", "range": "D2:D200", "type": "list",
						"values": []any{"Open", "In progress", "Done"},
					},
				},
				{
					Description: "Whole numbers from 1 to 10",
					Arguments: map[string]any{
						"filename": "survey.xlsx", "range": "B2:B50", "type": "whole", "min": "1", "max": "10",
						"errorMessage": "Enter a score between 1 and 10",
					},
				},
			},
			ParameterDetails: map[string]string{
				"values": "List entries may not contain commas and together must stay under 255 characters",
			},
		}),
	}
}

func (h *handlers) addDataValidation(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	spec := xlsx.ValidationSpec{
		Range:        args.String("range"),
		Type:         args.String("type"),
		Operator:     args.StringOr("operator", "between"),
		Values:       args.Strings("values"),
		Min:          args.String("min"),
		Max:          args.String("max"),
		InputTitle:   args.String("inputTitle"),
		InputMessage: args.String("inputMessage"),
		ErrorTitle:   args.String("errorTitle"),
		ErrorMessage: args.String("errorMessage"),
		AllowBlank:   args.Bool("allowBlank", true),
	}
	if spec.Type == "custom" && spec.Min != "" {
		formula, err := checkFormula(spec.Min)
		if err != nil {
			return nil, err
		}
		spec.Min = formula
	}
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.AddValidation(f, sheet, spec)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added %s validation to %s on '%s' in %s%s", spec.Type, spec.Range, sheet, path, created(existed)), nil
}
