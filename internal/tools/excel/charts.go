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

func (h *handlers) chartTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_chart",
			"Embed a native Excel chart. Give a dataRange with a header row and categories in the first column, or explicit series",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("chartType", mcp.Required(), mcp.Enum(xlsx.ChartTypes()...)),
			mcp.WithString("dataRange", mcp.Description("Header row plus data, e.g. A1:C13")),
			tools.ObjectArray("series", "Explicit series, used instead of dataRange", map[string]any{
				"name":       map[string]any{"type": "string"},
				"categories": map[string]any{"type": "string", "description": "Category labels, e.g. Sheet1!$A$2:$A$13"},
				"values":     map[string]any{"type": "string", "description": "Values, e.g. Sheet1!$B$2:$B$13"},
			}),
			mcp.WithString("title"),
			mcp.WithString("position", mcp.Description("Top-left cell of the chart. Defaults to beside the data")),
			mcp.WithString("xAxisTitle"),
			mcp.WithString("yAxisTitle"),
			mcp.WithString("legend", mcp.Enum("none", "top", "bottom", "left", "right", "top_right")),
			mcp.WithNumber("width", mcp.Description("Pixels"), mcp.DefaultNumber(480)),
			mcp.WithNumber("height", mcp.Description("Pixels"), mcp.DefaultNumber(290)),
			tools.OutputPath(),
		), h.addChart).WithHelp(chartHelp),

		tools.NewFunc(tools.Define("add_sparkline",
			"Draw in-cell sparklines, one per data row: location cells pair up with data ranges",
			tools.Edits,
			workbook(),
			sheetName(),
			tools.StringArray("locations", "Cells that show the sparklines, e.g. [\"F2\",\"F3\"]", mcp.Required()),
			tools.StringArray("dataRanges", "Data per sparkline, e.g. [\"B2:E2\",\"B3:E3\"]", mcp.Required()),
			mcp.WithString("type", mcp.Enum("line", "column", "win_loss"), mcp.DefaultString("line")),
			mcp.WithBoolean("markers", mcp.DefaultBool(false)),
			tools.OutputPath(),
		), h.addSparkline),
	}
}

func (h *handlers) addChart(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	spec := xlsx.ChartSpec{
		Type:      args.String("chartType"),
		Title:     args.String("title"),
		Position:  strings.ToUpper(args.String("position")),
		DataRange: args.String("dataRange"),
		XTitle:    args.String("xAxisTitle"),
		YTitle:    args.String("yAxisTitle"),
		Legend:    args.String("legend"),
		Width:     uint(max(args.Int("width", 480), 0)),
		Height:    uint(max(args.Int("height", 290), 0)),
	}
	for _, s := range args.Maps("series") {
		spec.Series = append(spec.Series, xlsx.ChartSeries{
			Name:       s.String("name"),
			Categories: s.String("categories"),
			Values:     s.String("values"),
		})
	}
	if spec.DataRange == "" && len(spec.Series) == 0 {
		return nil, &tools.ValidationError{Field: "dataRange", Message: "give a dataRange or at least one series"}
	}
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.AddChart(f, sheet, spec)
	})
	if err != nil {
		return nil, err
	}
	title := ""
	if spec.Title != "" {
		title = " '" + spec.Title + "'"
	}
	return tools.Text("Added %s chart%s to '%s' in %s%s", spec.Type, title, sheet, path, created(existed)), nil
}

func (h *handlers) addSparkline(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	locations, ranges := args.Strings("locations"), args.Strings("dataRanges")
	if len(locations) == 0 {
		return nil, &tools.ValidationError{Field: "locations", Message: "at least one location is required"}
	}
	kind := args.StringOr("type", "line")
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.AddSparkline(f, sheet, locations, ranges, kind, args.Bool("markers", false))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added %d %s sparkline(s) to '%s' in %s%s", len(locations), kind, sheet, path, created(existed)), nil
}

var chartHelp = &tools.ExtendedHelp{
	Examples: []tools.ToolExample{
		{
			Description: "Column chart of monthly revenue and cost",
			Arguments: map[string]any{
				"filename": "finance.xlsx", "sheetName": "Summary", "chartType": "column",
				"dataRange": "A1:C13", "title": "Revenue vs Cost", "position": "E2",
			},
			ExpectedResult: "One series per column after the first, named by the header row",
		},
		{
			Description: "Pie chart from explicit references",
			Arguments: map[string]any{
				"filename": "finance.xlsx", "chartType": "pie",
				"series": []any{map[string]any{"name": "Share", "categories": "Summary!$A$2:$A$5", "values": "Summary!$B$2:$B$5"}},
			},
		},
	},
	WhenToUse: "Visualising tabular data that already sits in the workbook",
	Troubleshooting: []tools.TroubleshootingTip{
		{Problem: "The chart shows a single flat series", Solution: "Make sure dataRange includes the header row and the category column"},
	},
}
