package powerpoint

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/pptx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

func layoutOption() mcp.ToolOption {
	return mcp.WithString("layout",
		mcp.Description("Layout name or alias: title, content, section, titleOnly, blank. Defaults to Title and Content"))
}

func (h *handlers) slideTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_slide",
			"Add a slide with a title, subtitle, bullets and speaker notes",
			tools.Edits,
			deck(),
			layoutOption(),
			mcp.WithString("title"),
			mcp.WithString("subtitle"),
			tools.StringArray("bullets", "Bullet points"),
			mcp.WithString("notes", mcp.Description("Speaker notes")),
			mcp.WithNumber("after", mcp.DefaultNumber(0), mcp.Description("Insert after this slide, 0 to append"), mcp.Min(0)),
			tools.OutputPath(),
		), h.addSlide),

		tools.NewFunc(tools.Define("delete_slide",
			"Delete a slide",
			tools.Edits,
			deck(), slideNumber(), tools.OutputPath(),
		), h.deleteSlide),

		tools.NewFunc(tools.Define("move_slide",
			"Move a slide to another position",
			tools.Edits,
			deck(),
			mcp.WithNumber("from", mcp.Required(), mcp.Min(1)),
			mcp.WithNumber("to", mcp.Required(), mcp.Min(1)),
			tools.OutputPath(),
		), h.moveSlide),

		tools.NewFunc(tools.Define("duplicate_slide",
			"Copy a slide, placing the copy directly after it",
			tools.Edits,
			deck(), slideNumber(), tools.OutputPath(),
		), h.duplicateSlide),

		tools.NewFunc(tools.Define("set_slide_layout",
			"Change the layout a slide is based on",
			tools.Edits,
			deck(), slideNumber(),
			mcp.WithString("layout", mcp.Required(), mcp.Description("Layout name or alias: title, content, section, titleOnly, blank")),
			tools.OutputPath(),
		), h.setLayout),

		tools.NewFunc(tools.Define("add_section",
			"Start a section by inserting a section header slide",
			tools.Edits,
			deck(),
			mcp.WithString("name", mcp.Required(), mcp.Description("Section title")),
			mcp.WithString("subtitle"),
			mcp.WithNumber("after", mcp.DefaultNumber(0), mcp.Description("Insert after this slide, 0 to append"), mcp.Min(0)),
			tools.OutputPath(),
		), h.addSection),
	}
}

func (h *handlers) addSlide(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var index, total int
	path, existed, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		var err error
		index, err = p.InsertSlide(args.Int("after", 0), slideOptions(args))
		total = len(p.Slides())
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added slide %d of %d to %s%s", index, total, path, created(existed)), nil
}

func (h *handlers) deleteSlide(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	var remaining int
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		if err := p.DeleteSlide(n); err != nil {
			return err
		}
		remaining = len(p.Slides())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Deleted slide %d from %s, %d remaining", n, path, remaining), nil
}

func (h *handlers) moveSlide(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	from, to := args.Int("from", 0), args.Int("to", 0)
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.MoveSlide(from, to)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Moved slide %d to position %d in %s", from, to, path), nil
}

func (h *handlers) duplicateSlide(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	var copyAt int
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		var err error
		copyAt, err = p.DuplicateSlide(n)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Duplicated slide %d as slide %d in %s", n, copyAt, path), nil
}

func (h *handlers) setLayout(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	layout, err := args.RequireString("layout")
	if err != nil {
		return nil, err
	}
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.SetLayout(n, layout)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set slide %d of %s to layout %s", n, path, layout), nil
}

func (h *handlers) addSection(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name, err := args.RequireString("name")
	if err != nil {
		return nil, err
	}
	var index int
	path, existed, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		var err error
		index, err = p.AddSection(name, args.String("subtitle"), args.Int("after", 0))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added section %q as slide %d of %s%s", name, index, path, created(existed)), nil
}
