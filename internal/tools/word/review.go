package word

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

func (h *handlers) reviewTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("add_footnote",
			"Add a numbered note: a superscript marker on a paragraph and the note text at the end of the document",
			tools.Edits,
			document(),
			mcp.WithString("text", mcp.Required(), mcp.Description("Note text")),
			anchor("marker"),
			tools.OutputPath(),
		), h.addFootnote),

		tools.NewFunc(tools.Define("add_word_comment",
			"Attach a review comment to a paragraph",
			tools.Edits,
			document(),
			mcp.WithString("comment", mcp.Required()),
			mcp.WithString("author"),
			anchor("comment"),
			tools.OutputPath(),
		), h.addComment),

		tools.NewFunc(tools.Define("set_track_changes",
			"Turn revision tracking on or off, so later edits in Word are recorded as tracked changes",
			tools.Edits,
			document(),
			mcp.WithBoolean("enabled", mcp.Required()),
			tools.OutputPath(),
		), h.setTrackChanges),

		tools.NewFunc(tools.Define("protect_document",
			"Restrict editing to read only, comments, tracked changes or form filling, optionally with a password. type none removes protection",
			tools.Edits,
			document(),
			mcp.WithString("type", mcp.Enum("readOnly", "comments", "trackedChanges", "forms", "none"), mcp.DefaultString("readOnly")),
			mcp.WithString("password"),
			tools.OutputPath(),
		), h.protect),
	}
}

func (h *handlers) addFootnote(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	text, err := args.RequireString("text")
	if err != nil {
		return nil, err
	}
	var number int
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		var err error
		number, err = d.AddFootnote(text, args.String("anchorText"))
		return err
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added note %d to %s%s", number, path, created(existed)), nil
}

func (h *handlers) addComment(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	text, err := args.RequireString("comment")
	if err != nil {
		return nil, err
	}
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.AddComment(text, args.String("author"), args.String("anchorText"))
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added comment %s to %s%s", quote(text), path, created(existed)), nil
}

func (h *handlers) setTrackChanges(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	enabled := args.Bool("enabled", true)
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		return d.SetTrackChanges(enabled)
	})
	if err != nil {
		return nil, err
	}
	state := "off"
	if enabled {
		state = "on"
	}
	return tools.Text("Turned track changes %s in %s%s", state, path, created(existed)), nil
}

func (h *handlers) protect(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	kind := args.StringOr("type", "readOnly")
	password := args.String("password")
	path, existed, err := h.edit(ctx, args, func(d *docx.Document) error {
		if kind == "none" {
			return d.Unprotect()
		}
		return d.Protect(kind, password)
	})
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": path, "type": kind, "password": password != ""}).Info("Changed document protection")
	if kind == "none" {
		return tools.Text("Removed editing restrictions from %s", path), nil
	}
	how := "without a password"
	if password != "" {
		how = "with a password"
	}
	return tools.Text("Protected %s (%s) %s%s", path, kind, how, created(existed)), nil
}
