package powerpoint

import (
	"context"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/pptx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

func transitionNames() []string {
	names := []string{"none"}
	for name := range pptx.Transitions {
		names = append(names, name)
	}
	slices.Sort(names[1:])
	return names
}

func (h *handlers) designTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_speaker_notes",
			"Set the speaker notes of a slide, replacing any existing notes",
			tools.Edits,
			deck(), slideNumber(),
			mcp.WithString("notes", mcp.Required(), mcp.Description("Notes text, empty to clear")),
			tools.OutputPath(),
		), h.addNotes),

		tools.NewFunc(tools.Define("set_slide_background",
			"Set a solid background colour",
			tools.Edits,
			deck(), everySlide(),
			mcp.WithString("color", mcp.Required(), mcp.Description("Hex colour such as F2F2F2")),
			tools.OutputPath(),
		), h.setBackground),

		tools.NewFunc(tools.Define("add_slide_transition",
			"Set the transition into a slide",
			tools.Edits,
			deck(), everySlide(),
			mcp.WithString("transition", mcp.Required(), mcp.Enum(transitionNames()...)),
			mcp.WithString("speed", mcp.Enum("slow", "medium", "fast"), mcp.DefaultString("medium")),
			mcp.WithNumber("advanceAfter", mcp.Description("Seconds before advancing automatically, 0 for on click"), mcp.Min(0)),
			tools.OutputPath(),
		), h.setTransition),

		tools.NewFunc(tools.Define("add_animation",
			"Record an entrance animation for a shape on a slide",
			tools.Edits,
			deck(), slideNumber(),
			mcp.WithString("effect", mcp.Required(), mcp.Enum(pptx.Animations...)),
			mcp.WithString("shapeName", mcp.Description("Shape to animate, as listed in the slide. Omit for the whole slide")),
			mcp.WithNumber("delay", mcp.Description("Seconds"), mcp.Min(0)),
			tools.OutputPath(),
		), h.addAnimation).WithHelp(&tools.ExtendedHelp{
			Troubleshooting: []tools.TroubleshootingTip{
				{Problem: "Slide has no shape named ...", Solution: "Shapes are named by kind and number, such as 'TextBox 3' or 'Title 1'. Omit shapeName to animate the whole slide"},
			},
		}),

		tools.NewFunc(tools.Define("apply_theme",
			"Apply a colour and font theme to the whole presentation",
			tools.Edits,
			deck(),
			mcp.WithString("theme", mcp.Required(), mcp.Enum(themeNames()...)),
			tools.OutputPath(),
		), h.applyTheme),

		tools.NewFunc(tools.Define("add_slide_numbers",
			"Show the slide number in the bottom right of every slide",
			tools.Edits,
			deck(),
			mcp.WithBoolean("skipTitleSlide", mcp.DefaultBool(true)),
			tools.OutputPath(),
		), h.addNumbers),

		tools.NewFunc(tools.Define("add_slide_footer",
			"Show footer text at the bottom of every slide. Empty text removes the footer",
			tools.Edits,
			deck(),
			mcp.WithString("text", mcp.Required()),
			mcp.WithBoolean("skipTitleSlide", mcp.DefaultBool(true)),
			tools.OutputPath(),
		), h.addFooter),
	}
}

func (h *handlers) addNotes(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	notes := args.String("notes")
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.SetNotes(n, notes)
	})
	if err != nil {
		return nil, err
	}
	if notes == "" {
		return tools.Text("Cleared speaker notes of slide %d in %s", n, path), nil
	}
	return tools.Text("Set speaker notes of slide %d in %s", n, path), nil
}

func (h *handlers) setBackground(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	color, err := args.RequireString("color")
	if err != nil {
		return nil, err
	}
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.SetBackground(n, color)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set background of %s in %s to %s", where(n), path, color), nil
}

func (h *handlers) setTransition(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	kind, err := args.RequireString("transition")
	if err != nil {
		return nil, err
	}
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.SetTransition(n, kind, args.StringOr("speed", "medium"), args.Float("advanceAfter", 0))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Set %s transition on %s in %s", kind, where(n), path), nil
}

func (h *handlers) addAnimation(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	n := args.Int("slideNumber", 0)
	effect, err := args.RequireString("effect")
	if err != nil {
		return nil, err
	}
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.AddAnimation(n, args.String("shapeName"), effect, args.Float("delay", 0))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Recorded %s animation on slide %d of %s", effect, n, path), nil
}

func (h *handlers) applyTheme(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	theme, err := args.RequireString("theme")
	if err != nil {
		return nil, err
	}
	path, existed, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		return p.ApplyTheme(theme)
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Applied theme %s to %s%s", theme, path, created(existed)), nil
}

func (h *handlers) addNumbers(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var count int
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		var err error
		count, err = p.AddSlideNumbers(args.Bool("skipTitleSlide", true))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added slide numbers to %d slide(s) in %s", count, path), nil
}

func (h *handlers) addFooter(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	text := args.String("text")
	var count int
	path, _, err := h.edit(ctx, args, func(p *pptx.Presentation) error {
		var err error
		count, err = p.SetFooter(text, args.Bool("skipTitleSlide", true))
		return err
	})
	if err != nil {
		return nil, err
	}
	if text == "" {
		return tools.Text("Removed footers from %s", path), nil
	}
	return tools.Text("Added footer to %d slide(s) in %s", count, path), nil
}
