package tools

import "github.com/mark3labs/mcp-go/mcp"

// Effect classifies what a tool does to the outside world and drives its MCP annotations
type Effect int

const (
	// Reads only inspects files
	Reads Effect = iota
	// Creates writes a complete artifact, replacing whatever was at the path
	Creates
	// Edits loads an existing artifact, modifies it and writes it back
	Edits
	// Sends has effects outside the local filesystem, such as delivering mail
	Sends
)

// Define builds a tool descriptor with a description and annotations matching its effect
func Define(name, description string, effect Effect, opts ...mcp.ToolOption) mcp.Tool {
	all := make([]mcp.ToolOption, 0, len(opts)+5)
	all = append(all, mcp.WithDescription(description))
	all = append(all, opts...)

	switch effect {
	case Reads:
		all = append(all,
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithOpenWorldHintAnnotation(false),
		)
	case Creates:
		all = append(all,
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(true), // overwrites the target file
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithOpenWorldHintAnnotation(false),
		)
	case Edits:
		all = append(all,
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(false),
		)
	case Sends:
		all = append(all,
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false), // retrying a send can deliver twice
			mcp.WithOpenWorldHintAnnotation(true),
		)
	}
	return mcp.NewTool(name, all...)
}

// Filename is the required target file parameter shared by the document tools
func Filename(description string) mcp.ToolOption {
	return mcp.WithString("filename", mcp.Required(), mcp.Description(description))
}

// OutputPath is the optional write redirection shared by the document tools
func OutputPath() mcp.ToolOption {
	return mcp.WithString("outputPath",
		mcp.Description("Where to write the result. A directory keeps the file name; omitted means write back to filename"),
	)
}

// StringArray declares an array-of-strings parameter
func StringArray(name, description string, opts ...mcp.PropertyOption) mcp.ToolOption {
	all := append([]mcp.PropertyOption{mcp.Description(description), mcp.WithStringItems()}, opts...)
	return mcp.WithArray(name, all...)
}

// Grid declares a two-dimensional array parameter of spreadsheet-like values
func Grid(name, description string, opts ...mcp.PropertyOption) mcp.ToolOption {
	all := append([]mcp.PropertyOption{
		mcp.Description(description),
		mcp.Items(map[string]any{"type": "array"}),
	}, opts...)
	return mcp.WithArray(name, all...)
}

// ObjectArray declares an array-of-objects parameter with the given item properties
func ObjectArray(name, description string, properties map[string]any, opts ...mcp.PropertyOption) mcp.ToolOption {
	all := append([]mcp.PropertyOption{
		mcp.Description(description),
		mcp.Items(map[string]any{"type": "object", "properties": properties}),
	}, opts...)
	return mcp.WithArray(name, all...)
}
