package excel

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var imageTypes = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".svg", ".emf", ".wmf"}

func (h *handlers) annotationTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_cell_comment",
			"Attach a comment (note) to a cell",
			tools.Edits,
			workbook(),
			sheetName(),
			cellParam("Cell to annotate, e.g. B4"),
			mcp.WithString("comment", mcp.Required()),
			mcp.WithString("author", mcp.Description("Shown as the comment author")),
			tools.OutputPath(),
		), h.addCellComment),

		tools.NewFunc(tools.Define("add_cell_hyperlink",
			"Link a cell to a URL, an email address or a location in the workbook such as #Summary!A1",
			tools.Edits,
			workbook(),
			sheetName(),
			cellParam("Cell to link"),
			mcp.WithString("url", mcp.Required(), mcp.Description("https://..., mailto:... or #Sheet!A1")),
			mcp.WithString("displayText", mcp.Description("Cell text. Defaults to the url")),
			mcp.WithString("tooltip"),
			tools.OutputPath(),
		), h.addCellHyperlink),

		tools.NewFunc(tools.Define("insert_excel_image",
			"Place an image file on a sheet with its top-left corner at a cell",
			tools.Edits,
			workbook(),
			sheetName(),
			mcp.WithString("imagePath", mcp.Required(), mcp.Description("PNG, JPEG, GIF, BMP, TIFF, SVG, EMF or WMF file")),
			mcp.WithString("cell", mcp.DefaultString("A1")),
			mcp.WithNumber("scale", mcp.Description("Scale factor, 1 is the original size"), mcp.DefaultNumber(1)),
			mcp.WithString("altText"),
			tools.OutputPath(),
		), h.insertImage),
	}
}

func (h *handlers) addCellComment(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	cell := strings.ToUpper(args.String("cell"))
	text, err := args.RequireString("comment")
	if err != nil {
		return nil, err
	}
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.Annotate(f, sheet, cell, args.String("author"), text)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added comment to %s on '%s' in %s%s", cell, sheet, path, created(existed)), nil
}

func (h *handlers) addCellHyperlink(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	cell := strings.ToUpper(args.String("cell"))
	target, err := args.RequireString("url")
	if err != nil {
		return nil, err
	}
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.AddHyperlink(f, sheet, cell, target, args.String("displayText"), args.String("tooltip"))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Linked %s on '%s' to %s in %s%s", cell, sheet, target, path, created(existed)), nil
}

func (h *handlers) insertImage(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	data, imagePath, err := h.read(args, "imagePath")
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(imagePath))
	if !slices.Contains(imageTypes, ext) {
		return nil, &tools.ValidationError{Field: "imagePath", Value: imagePath, Message: "unsupported image type " + ext}
	}
	cell := strings.ToUpper(args.StringOr("cell", "A1"))
	path, sheet, existed, err := h.editSheet(ctx, args, func(f *excelize.File, sheet string) error {
		return xlsx.InsertImage(f, sheet, cell, ext, data, args.Float("scale", 1), args.String("altText"))
	})
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"image": imagePath, "bytes": len(data)}).Debug("Inserted image")
	return tools.Text("Inserted %s at %s on '%s' in %s%s", filepath.Base(imagePath), cell, sheet, path, created(existed)), nil
}
