package powerpoint

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/pptx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

var imageTypes = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}

func with(opts []mcp.ToolOption, more ...mcp.ToolOption) []mcp.ToolOption {
	return append(append([]mcp.ToolOption{}, opts...), more...)
}

func (h *handlers) contentTools() []tools.Tool {
	body := pptx.BodyBox
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_slide_text",
			"Place a text box on a slide",
			tools.Edits,
			with(boxOptions(body.X, body.Y, body.W, 1),
				deck(), slideNumber(),
				mcp.WithString("text", mcp.Required(), mcp.Description("Text, one paragraph per line")),
				mcp.WithNumber("fontSize", mcp.DefaultNumber(18)),
				mcp.WithBoolean("bold"),
				mcp.WithBoolean("italic"),
				mcp.WithBoolean("underline"),
				mcp.WithBoolean("bullets", mcp.Description("Prefix each line with a bullet")),
				mcp.WithString("color", mcp.Description("Hex colour such as 1F4E79")),
				mcp.WithString("font"),
				mcp.WithString("alignment", mcp.Enum("left", "center", "right", "justify")),
				tools.OutputPath(),
			)...,
		), h.addText),

		tools.NewFunc(tools.Define("add_slide_image",
			"Place an image from a file on a slide. Give only width or height to keep the aspect ratio",
			tools.Edits,
			deck(), slideNumber(),
			mcp.WithString("imagePath", mcp.Required()),
			mcp.WithNumber("x", mcp.DefaultNumber(1)),
			mcp.WithNumber("y", mcp.DefaultNumber(1.5)),
			mcp.WithNumber("width", mcp.Description("Inches")),
			mcp.WithNumber("height", mcp.Description("Inches")),
			mcp.WithString("altText"),
			tools.OutputPath(),
		), h.addImage),

		tools.NewFunc(tools.Define("add_slide_table",
			"Place a native table on a slide",
			tools.Edits,
			with(boxOptions(body.X, body.Y, body.W, 3),
				deck(), slideNumber(),
				tools.Grid("data", "Rows of cell values", mcp.Required(), mcp.MinItems(1)),
				tools.StringArray("headers", "Header row, placed before data"),
				mcp.WithNumber("fontSize", mcp.DefaultNumber(14)),
				tools.OutputPath(),
			)...,
		), h.addTable),

		tools.NewFunc(tools.Define("add_slide_chart",
			"Draw a chart on a slide. Column and bar charts are drawn with shapes, other types as a data table",
			tools.Edits,
			with(boxOptions(body.X, body.Y, body.W, body.H),
				deck(), slideNumber(),
				mcp.WithString("chartType", mcp.Enum(pptx.ChartTypes...), mcp.DefaultString("column")),
				mcp.WithString("title"),
				tools.StringArray("categories", "Category labels", mcp.Required(), mcp.MinItems(1)),
				tools.ObjectArray("series", "Named value series, one value per category", map[string]any{
					"name":   map[string]any{"type": "string"},
					"values": map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
				}, mcp.Required(), mcp.MinItems(1)),
				tools.OutputPath(),
			)...,
		), h.addChart).WithHelp(&tools.ExtendedHelp{
			Examples: []tools.ToolExample{
				{
					Description: "Quarterly revenue by region",
					Arguments: map[string]any{
						"filename": "review.pptx", "slideNumber": 2, "title": "Revenue",
						"categories": []any{"Q1", "Q2", "Q3"},
						"series": []any{
							map[string]any{"name": "North", "values": []any{10, 14, 18}},
							map[string]any{"name": "South", "values": []any{8, 9, 11}},
						},
					},
				},
			},
		}),

		tools.NewFunc(tools.Define("add_shape",
			"Place a preset shape such as a rectangle, arrow or callout on a slide",
			tools.Edits,
			with(boxOptions(2, 2, 3, 2),
				deck(), slideNumber(),
				mcp.WithString("shapeType", mcp.Required(), mcp.Enum(pptx.ShapeTypes...)),
				mcp.WithString("fillColor"),
				mcp.WithString("lineColor"),
				mcp.WithString("text"),
				tools.OutputPath(),
			)...,
		), h.addShape),

		tools.NewFunc(tools.Define("add_slide_hyperlink",
			"Place a link on a slide. A url of the form #3 jumps to slide 3",
			tools.Edits,
			with(boxOptions(body.X, 6, 6, 0.5),
				deck(), slideNumber(),
				mcp.WithString("url", mcp.Required()),
				mcp.WithString("text", mcp.Description("Link text, defaults to the url")),
				tools.OutputPath(),
			)...,
		), h.addHyperlink),

		tools.NewFunc(tools.Define("add_video_placeholder",
			"Place a labelled frame standing in for a video, linking to the source when it is a web address",
			tools.Edits,
			with(boxOptions(2.67, 1.75, 8, 4.5),
				deck(), slideNumber(),
				mcp.WithString("source", mcp.Description("Video file or URL")),
				mcp.WithString("title"),
				tools.OutputPath(),
			)...,
		), h.addVideo),
	}
}

func (h *handlers) addText(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	text, err := args.RequireString("text")
	if err != nil {
		return nil, err
	}
	style := pptx.TextStyle{
		FontSize:  args.Float("fontSize", 18),
		Bold:      args.Bool("bold", false),
		Italic:    args.Bool("italic", false),
		Underline: args.Bool("underline", false),
		Bullets:   args.Bool("bullets", false),
		Color:     args.String("color"),
		Font:      args.String("font"),
		Align:     args.String("alignment"),
	}
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.AddText(n, text, box(args, pptx.Box{X: pptx.BodyBox.X, Y: pptx.BodyBox.Y, W: pptx.BodyBox.W, H: 1}), style)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added text to slide %d of %s", n, path), nil
}

func (h *handlers) addImage(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	data, imagePath, err := h.read(args, "imagePath")
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(imagePath))
	if !slices.Contains(imageTypes, ext) {
		return nil, &tools.ValidationError{Field: "imagePath", Value: imagePath, Message: "unsupported image type " + ext}
	}
	b := box(args, pptx.Box{X: 1, Y: 1.5})
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.AddImage(n, data, ext, b, args.String("altText"))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added image %s to slide %d of %s", filepath.Base(imagePath), n, path), nil
}

func (h *handlers) addTable(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	var rows [][]string
	headers := args.Strings("headers")
	if len(headers) > 0 {
		rows = append(rows, headers)
	}
	for _, r := range args.Rows("data") {
		row := make([]string, len(r))
		for i, v := range r {
			row[i] = tools.Stringify(v)
		}
		rows = append(rows, row)
	}
	b := box(args, pptx.Box{X: pptx.BodyBox.X, Y: pptx.BodyBox.Y, W: pptx.BodyBox.W, H: 3})
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.AddTable(n, rows, len(headers) > 0, b, args.Float("fontSize", 14))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added table with %d row(s) to slide %d of %s", len(rows), n, path), nil
}

func (h *handlers) addChart(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	spec := pptx.ChartSpec{
		Type:       args.StringOr("chartType", "column"),
		Title:      args.String("title"),
		Categories: args.Strings("categories"),
	}
	for i, s := range args.Maps("series") {
		name := s.String("name")
		if name == "" {
			name = fmt.Sprintf("Series %d", i+1)
		}
		spec.Series = append(spec.Series, pptx.Series{Name: name, Values: s.Floats("values")})
	}
	var rendering string
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		var err error
		rendering, err = p.AddChart(n, spec, box(args, pptx.BodyBox))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added %s chart with %d series to slide %d of %s (drawn as %s)", spec.Type, len(spec.Series), n, path, rendering), nil
}

func (h *handlers) addShape(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	shape, err := args.RequireString("shapeType")
	if err != nil {
		return nil, err
	}
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.AddShape(n, shape, box(args, pptx.Box{X: 2, Y: 2, W: 3, H: 2}), args.String("fillColor"), args.String("lineColor"), args.String("text"))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added %s shape to slide %d of %s", shape, n, path), nil
}

func (h *handlers) addHyperlink(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	url, err := args.RequireString("url")
	if err != nil {
		return nil, err
	}
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.AddHyperlink(n, args.String("text"), url, box(args, pptx.Box{X: pptx.BodyBox.X, Y: 6, W: 6, H: 0.5}))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added link to %s on slide %d of %s", url, n, path), nil
}

func (h *handlers) addVideo(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.AddVideoPlaceholder(n, args.String("source"), args.String("title"), box(args, pptx.Box{X: 2.67, Y: 1.75, W: 8, H: 4.5}))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added video placeholder to slide %d of %s. Insert the video in PowerPoint to play it", n, path), nil
}
