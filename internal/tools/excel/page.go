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

func (h *handlers) pageTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("set_excel_page_setup",
			"Set how a sheet prints: orientation, paper size, fit to pages and margins",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("orientation", mcp.Enum("portrait", "landscape")),
			mcp.WithString("paperSize", mcp.Enum("letter", "legal", "a3", "a4", "a5")),
			mcp.WithNumber("fitToWidth", mcp.Description("Pages wide"), mcp.Min(0)),
			mcp.WithNumber("fitToHeight", mcp.Description("Pages tall"), mcp.Min(0)),
			mcp.WithObject("margins", mcp.Description("Margins in inches"), mcp.Properties(map[string]any{
				"top":    map[string]any{"type": "number"},
				"bottom": map[string]any{"type": "number"},
				"left":   map[string]any{"type": "number"},
				"right":  map[string]any{"type": "number"},
			})),
			tools.OutputPath(),
		), h.setPageSetup),

		tools.NewFunc(tools.Define("set_excel_header_footer",
			"Set the printed header and footer of a sheet. Plain text is centred; Excel codes such as &P (page), &N (pages), &D (date) and &L/&C/&R sections are passed through",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("header"),
			mcp.WithString("footer"),
			tools.OutputPath(),
		), h.setHeaderFooter),
	}
}

func (h *handlers) setPageSetup(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	margins := args.Map("margins")
	setup := xlsx.PageSetup{
		Orientation:  args.String("orientation"),
		PaperSize:    args.String("paperSize"),
		FitToWidth:   args.Int("fitToWidth", 0),
		FitToHeight:  args.Int("fitToHeight", 0),
		MarginTop:    margins.Float("top", 0),
		MarginBottom: margins.Float("bottom", 0),
		MarginLeft:   margins.Float("left", 0),
		MarginRight:  margins.Float("right", 0),
	}
	if setup == (xlsx.PageSetup{}) {
		return nil, &tools.ValidationError{Field: "orientation", Message: "no page settings given"}
	}
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.SetPageSetup(f, sheet, setup)
	})
	if err != nil {
		return nil, err
	}
	var parts []string
	if setup.Orientation != "" {
		parts = append(parts, setup.Orientation)
	}
	if setup.PaperSize != "" {
		parts = append(parts, strings.ToUpper(setup.PaperSize))
	}
	summary := "margins"
	if len(parts) > 0 {
		summary = strings.Join(parts, ", ")
	}
	return tools.Text("Updated page setup (%s) for '%s' in %s%s", summary, sheet, path, created(existed)), nil
}

func (h *handlers) setHeaderFooter(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	header, footer := args.String("header"), args.String("footer")
	if header == "" && footer == "" {
		return nil, &tools.ValidationError{Field: "header", Message: "give a header, a footer or both"}
	}
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.HeaderFooter(f, sheet, header, footer)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set header and footer for '%s' in %s%s", sheet, path, created(existed)), nil
}
