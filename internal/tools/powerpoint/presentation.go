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

var propertyOptions = []mcp.ToolOption{
	mcp.WithString("title"),
	mcp.WithString("subject"),
	mcp.WithString("author"),
	mcp.WithString("keywords"),
	mcp.WithString("description"),
	mcp.WithString("category"),
}

func properties(a tools.Args) pptx.Properties {
	return pptx.Properties{
		Title:       a.String("title"),
		Subject:     a.String("subject"),
		Creator:     a.String("author"),
		Keywords:    a.String("keywords"),
		Description: a.String("description"),
		Category:    a.String("category"),
	}
}

func themeNames() []string {
	names := make([]string, 0, len(pptx.Themes))
	for name := range pptx.Themes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var slideProperties = map[string]any{
	"layout":   map[string]any{"type": "string", "description": "title, content, section, titleOnly or blank"},
	"title":    map[string]any{"type": "string"},
	"subtitle": map[string]any{"type": "string"},
	"bullets":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	"notes":    map[string]any{"type": "string", "description": "Speaker notes"},
}

func slideOptions(a tools.Args) pptx.SlideOptions {
	return pptx.SlideOptions{
		Layout:   a.String("layout"),
		Title:    a.String("title"),
		Subtitle: a.String("subtitle"),
		Bullets:  lines(a, "bullets"),
		Notes:    a.String("notes"),
	}
}

func (h *handlers) presentationTools() []tools.Tool {
	createOpts := []mcp.ToolOption{deck()}
	createOpts = append(createOpts, propertyOptions...)
	createOpts = append(createOpts,
		mcp.WithString("subtitle", mcp.Description("Subtitle of the title slide")),
		mcp.WithString("theme", mcp.Enum(themeNames()...), mcp.DefaultString("office")),
		tools.ObjectArray("slides", "Slides after the title slide", slideProperties),
		tools.OutputPath(),
	)
	setOpts := []mcp.ToolOption{deck()}
	setOpts = append(setOpts, propertyOptions...)
	setOpts = append(setOpts, tools.OutputPath())

	return []tools.Tool{
		tools.NewFunc(tools.Define("create_powerpoint",
			"Create a presentation with a title slide and optional content slides. Overwrites any existing file.",
			tools.Creates, createOpts...,
		), h.create).WithHelp(&tools.ExtendedHelp{
			Examples: []tools.ToolExample{
				{
					Description: "Three slide pitch",
					Arguments: map[string]any{
						"filename": "pitch.pptx", "title": "Project Falcon", "subtitle": "Board update", "theme": "ocean",
						"slides": []any{
							map[string]any{"title": "Progress", "bullets": []any{"Beta shipped", "40 customers"}},
							map[string]any{"title": "Next steps", "bullets": []any{"Hire two engineers"}, "notes": "Mention budget"},
						},
					},
				},
			},
			WhenToUse: "Starting a deck from structured content. For markdown use create_presentation_from_outline",
		}),

		tools.NewFunc(tools.Define("read_presentation",
			"Read the text of every slide, with tables, image counts and optionally speaker notes",
			tools.Reads,
			deck(),
			mcp.WithBoolean("includeNotes", mcp.DefaultBool(true)),
		), h.readPresentation),

		tools.NewFunc(tools.Define("get_presentation_info",
			"Summarise a presentation: slide count and size, theme, layouts, slide titles, sections and properties",
			tools.Reads,
			deck(),
		), h.info),

		tools.NewFunc(tools.Define("set_presentation_properties",
			"Set the core properties of a presentation. Omitted properties keep their value",
			tools.Edits, setOpts...,
		), h.setProperties),

		tools.NewFunc(tools.Define("find_replace_presentation",
			"Replace text on every slide",
			tools.Edits,
			deck(),
			mcp.WithString("find", mcp.Required()),
			mcp.WithString("replace", mcp.Description("Replacement, empty to delete")),
			mcp.WithBoolean("matchCase", mcp.DefaultBool(false)),
			tools.OutputPath(),
		), h.findReplace),

		tools.NewFunc(tools.Define("export_presentation_outline",
			"Export the presentation as a markdown outline, one heading per slide with notes as quotes",
			tools.Reads,
			deck(),
			mcp.WithString("outputPath", mcp.Description("Markdown file to write. Omit to only return the outline")),
		), h.exportOutline),

		tools.NewFunc(tools.Define("merge_presentations",
			"Append the slides of several presentations into a new one. The first keeps its theme",
			tools.Creates,
			tools.StringArray("files", "Presentations to merge, in order", mcp.Required(), mcp.MinItems(2)),
			tools.Filename("Merged presentation to create"),
			tools.OutputPath(),
		), h.merge),

		tools.NewFunc(tools.Define("create_presentation_from_outline",
			"Build a presentation from a markdown outline: # starts a title slide, ## a content slide, list items become bullets and > quotes become speaker notes",
			tools.Creates,
			deck(),
			mcp.WithString("outline", mcp.Description("Markdown outline")),
			mcp.WithString("outlinePath", mcp.Description("Markdown file, used when outline is not given")),
			mcp.WithString("title", mcp.Description("Presentation title property")),
			mcp.WithString("theme", mcp.Enum(themeNames()...)),
			tools.OutputPath(),
		), h.fromOutline).WithHelp(&tools.ExtendedHelp{
			Examples: []tools.ToolExample{
				{
					Description: "Deck from an outline",
					Arguments: map[string]any{
						"filename": "talk.pptx",
						"outline":  "# Go at scale\n\n## Why Go\n\n- Fast builds\n- Simple deployment\n\n> Keep this short\n\n## Questions",
					},
					ExpectedResult: "Three slides: a title slide and two content slides",
				},
			},
		}),
	}
}

func (h *handlers) create(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	props := properties(args)
	p, err := h.gen.Blank(&props)
	if err != nil {
		return nil, err
	}
	if theme := args.String("theme"); theme != "" {
		if err := p.ApplyTheme(theme); err != nil {
			return nil, &tools.ValidationError{Field: "theme", Value: theme, Message: err.Error()}
		}
	}
	if props.Title != "" || args.String("subtitle") != "" {
		if _, err := p.AddSlide(pptx.SlideOptions{Layout: pptx.LayoutTitle, Title: props.Title, Subtitle: args.String("subtitle")}); err != nil {
			return nil, err
		}
	}
	for i, s := range args.Maps("slides") {
		if _, err := p.AddSlide(slideOptions(s)); err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
	}
	data, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	path, err := h.store.Create(ctx, filename, args.String("outputPath"), data)
	if err != nil {
		return nil, err
	}
	count := len(p.Slides())
	logger.WithFields(logrus.Fields{"path": path, "slides": count}).Info("Created presentation")
	return tools.Text("Created presentation with %d slide(s) at %s", count, path), nil
}

func (h *handlers) readPresentation(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var slides []pptx.SlideContent
	path, err := h.inspect(args, func(p *pptx.Presentation) error {
		slides = p.Read()
		return nil
	})
	if err != nil {
		return nil, err
	}
	notes := args.Bool("includeNotes", true)

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d slide(s)\n", path, len(slides))
	for _, s := range slides {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "\nSlide %d [%s]: %s\n", s.Index, s.Layout, title)
		for _, line := range s.Body {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		if s.Images > 0 {
			fmt.Fprintf(&b, "  (%d image(s))\n", s.Images)
		}
		for _, a := range s.Animations {
			fmt.Fprintf(&b, "  %s\n", a)
		}
		if notes && s.Notes != "" {
			fmt.Fprintf(&b, "  Notes: %s\n", strings.ReplaceAll(s.Notes, "\n", " / "))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) info(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var info pptx.Info
	path, err := h.inspect(args, func(p *pptx.Presentation) error {
		var err error
		info, err = p.Info()
		return err
	})
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Presentation: %s\n", path)
	fmt.Fprintf(&b, "Slides: %d\n", info.Slides)
	fmt.Fprintf(&b, "Slide size: %.2f x %.2f in\n", info.Width, info.Height)
	fmt.Fprintf(&b, "Theme: %s\n", info.Theme)
	fmt.Fprintf(&b, "Layouts: %s\n", strings.Join(info.Layouts, ", "))
	fmt.Fprintf(&b, "Images: %d\n", info.Images)
	if len(info.Sections) > 0 {
		fmt.Fprintf(&b, "Sections: %s\n", strings.Join(info.Sections, ", "))
	}
	for _, field := range []struct{ name, value string }{
		{"Title", info.Properties.Title},
		{"Subject", info.Properties.Subject},
		{"Author", info.Properties.Creator},
		{"Keywords", info.Properties.Keywords},
		{"Category", info.Properties.Category},
	} {
		if field.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", field.name, field.value)
		}
	}
	if len(info.Titles) > 0 {
		b.WriteString("\nSlide titles:\n")
		for i, t := range info.Titles {
			fmt.Fprintf(&b, "%d. %s\n", i+1, t)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) setProperties(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	props := properties(args)
	if props == (pptx.Properties{}) {
		return nil, &tools.ValidationError{Field: "title", Message: "no properties given"}
	}
	path, existed, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.SetProperties(props)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Updated properties of %s%s", path, created(existed)), nil
}

func (h *handlers) findReplace(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	find, err := args.RequireString("find")
	if err != nil {
		return nil, err
	}
	var count int
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		var err error
		count, err = p.FindReplace(find, args.String("replace"), args.Bool("matchCase", false))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Replaced %d occurrence(s) of %q in %s", count, find, path), nil
}

func (h *handlers) exportOutline(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var outline string
	src, err := h.inspect(args, func(p *pptx.Presentation) error {
		outline = p.Outline()
		return nil
	})
	if err != nil {
		return nil, err
	}
	target := args.String("outputPath")
	if target == "" {
		return tools.Text("Outline of %s:\n\n%s", src, outline), nil
	}
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".md"
	path, err := h.store.Create(ctx, name, target, []byte(outline))
	if err != nil {
		return nil, err
	}
	return tools.Text("Wrote outline of %s to %s:\n\n%s", src, path, outline), nil
}

func (h *handlers) merge(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	files := args.Strings("files")
	if len(files) < 2 {
		return nil, &tools.ValidationError{Field: "files", Value: files, Message: "at least two presentations are required"}
	}
	decks := make([][]byte, 0, len(files))
	for _, f := range files {
		data, _, err := h.read(tools.Args{"file": f}, "file")
		if err != nil {
			return nil, err
		}
		decks = append(decks, data)
	}
	data, count, err := h.gen.Merge(decks)
	if err != nil {
		return nil, err
	}
	path, err := h.store.Create(ctx, filename, args.String("outputPath"), data)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": path, "sources": len(files)}).Info("Merged presentations")
	return tools.Text("Merged %d presentations into %s (%d slides)", len(files), path, count), nil
}

func (h *handlers) fromOutline(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	outline := args.String("outline")
	if outline == "" {
		if args.String("outlinePath") == "" {
			return nil, &tools.ValidationError{Field: "outline", Message: "give outline or outlinePath"}
		}
		data, _, err := h.read(args, "outlinePath")
		if err != nil {
			return nil, err
		}
		outline = string(data)
	}
	var props *pptx.Properties
	if title := args.String("title"); title != "" {
		props = &pptx.Properties{Title: title}
	}
	data, count, err := h.gen.FromOutline(outline, props, args.String("theme"))
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, &tools.ValidationError{Field: "outline", Message: "outline has no headings, so no slides were produced"}
	}
	path, err := h.store.Create(ctx, filename, args.String("outputPath"), data)
	if err != nil {
		return nil, err
	}
	return tools.Text("Created presentation with %d slide(s) from outline at %s", count, path), nil
}
