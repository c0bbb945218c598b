// Package main generates tool reference documentation from the registered catalog
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/catalog"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type ToolInfo struct {
	Name        string
	Description string
	Effect      string
	Parameters  []ParameterInfo
	Examples    []tools.ToolExample
	WhenToUse   string
}

type ParameterInfo struct {
	Name        string
	Type        string
	Required    bool
	Description string
	EnumValues  string
}

type FamilyInfo struct {
	Title string
	Tools []ToolInfo
}

type ReferenceData struct {
	TotalTools  int
	GeneratedAt string
	Families    []FamilyInfo
}

const referenceTemplate = `# mcp-office tool reference

{{.TotalTools}} tools. Generated {{.GeneratedAt}}.

{{range .Families}}- [{{.Title}}](#{{anchor .Title}}) ({{len .Tools}})
{{end}}
{{range .Families}}
## {{.Title}}
{{range .Tools}}
### {{.Name}}

{{.Description}}
{{if .Effect}}
_{{.Effect}}_
{{end}}
{{if .Parameters}}
| Parameter | Type | Required | Description |
|-----------|------|----------|-------------|
{{range .Parameters}}| ` + "`{{.Name}}`" + ` | {{.Type}} | {{if .Required}}yes{{end}} | {{cell .Description}}{{if .EnumValues}} One of: {{.EnumValues}}.{{end}} |
{{end}}{{else}}
No parameters.
{{end}}{{if .WhenToUse}}
**When to use:** {{.WhenToUse}}
{{end}}{{range .Examples}}
{{.Description}}:

` + "```json\n{{json .Arguments}}\n```" + `
{{end}}{{end}}{{end}}`

func main() {
	var (
		toolName  = flag.String("tool", "", "Generate docs for a single tool only")
		outputDir = flag.String("output", "docs", "Output directory")
		html      = flag.Bool("html", false, "Also render the reference as HTML")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	scratch, err := os.MkdirTemp("", "mcp-office-docs")
	if err != nil {
		fail(err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	store := output.NewStore(scratch, scratch, security.NewPolicy(logger), logger)
	reg := registry.New(logger)
	families, err := catalog.Register(reg, store, logger, email.Options{})
	if err != nil {
		fail(err)
	}

	data := ReferenceData{GeneratedAt: time.Now().UTC().Format("2006-01-02 15:04 UTC")}
	title := cases.Title(language.English)
	for _, family := range families {
		info := FamilyInfo{Title: familyTitle(title, family.Name)}
		for _, name := range family.Tools {
			if *toolName != "" && name != *toolName {
				continue
			}
			tool, _ := reg.Get(name)
			info.Tools = append(info.Tools, extractToolInfo(tool))
		}
		if len(info.Tools) > 0 {
			data.Families = append(data.Families, info)
			data.TotalTools += len(info.Tools)
		}
	}
	if data.TotalTools == 0 {
		fail(fmt.Errorf("tool %q not found", *toolName))
	}

	markdown, err := render(data)
	if err != nil {
		fail(err)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fail(err)
	}
	base := "tools"
	if *toolName != "" {
		base = *toolName
	}
	mdPath := filepath.Join(*outputDir, base+".md")
	if err := os.WriteFile(mdPath, markdown, 0o644); err != nil {
		fail(err)
	}
	fmt.Printf("Generated documentation for %d tools in %s\n", data.TotalTools, mdPath)

	if *html {
		var buf bytes.Buffer
		md := goldmark.New(goldmark.WithExtensions(extension.GFM))
		if err := md.Convert(markdown, &buf); err != nil {
			fail(err)
		}
		htmlPath := filepath.Join(*outputDir, base+".html")
		if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
			fail(err)
		}
		fmt.Printf("Rendered %s\n", htmlPath)
	}
}

func fail(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func familyTitle(caser cases.Caser, name string) string {
	switch name {
	case "pdf":
		return "PDF"
	case "powerpoint":
		return "PowerPoint"
	}
	return caser.String(name)
}

func extractToolInfo(tool tools.Tool) ToolInfo {
	def := tool.Definition()
	info := ToolInfo{
		Name:        def.Name,
		Description: def.Description,
		Effect:      effect(def),
	}

	names := make([]string, 0, len(def.InputSchema.Properties))
	for name := range def.InputSchema.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		prop, _ := def.InputSchema.Properties[name].(map[string]any)
		param := ParameterInfo{
			Name:     name,
			Required: slices.Contains(def.InputSchema.Required, name),
		}
		param.Type, _ = prop["type"].(string)
		param.Description, _ = prop["description"].(string)
		param.EnumValues = enumValues(prop["enum"])
		info.Parameters = append(info.Parameters, param)
	}
	// required parameters first
	slices.SortStableFunc(info.Parameters, func(a, b ParameterInfo) int {
		switch {
		case a.Required == b.Required:
			return 0
		case a.Required:
			return -1
		}
		return 1
	})

	if provider, ok := tool.(tools.ExtendedHelpProvider); ok {
		if help := provider.ProvideExtendedInfo(); help != nil {
			info.Examples = help.Examples
			info.WhenToUse = help.WhenToUse
		}
	}
	return info
}

func effect(def mcp.Tool) string {
	a := def.Annotations
	switch {
	case a.ReadOnlyHint != nil && *a.ReadOnlyHint:
		return "Read only"
	case a.OpenWorldHint != nil && *a.OpenWorldHint:
		return "Sends to an external service"
	case a.IdempotentHint != nil && *a.IdempotentHint:
		return "Writes a new file"
	case a.DestructiveHint != nil && *a.DestructiveHint:
		return "Edits an existing file"
	}
	return ""
}

func enumValues(raw any) string {
	var vals []string
	switch enum := raw.(type) {
	case []string:
		vals = slices.Clone(enum)
	case []any:
		for _, v := range enum {
			vals = append(vals, fmt.Sprint(v))
		}
	}
	for i, v := range vals {
		vals[i] = "`" + v + "`"
	}
	return strings.Join(vals, ", ")
}

func render(data ReferenceData) ([]byte, error) {
	tmpl, err := template.New("reference").Funcs(template.FuncMap{
		"anchor": func(s string) string { return strings.ToLower(strings.ReplaceAll(s, " ", "-")) },
		"cell":   func(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ") },
		"json": func(v any) (string, error) {
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				return "", err
			}
			return strings.TrimSpace(buf.String()), nil
		},
	}).Parse(referenceTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering template: %w", err)
	}
	return buf.Bytes(), nil
}
