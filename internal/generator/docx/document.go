// Package docx builds and edits WordprocessingML documents on top of the
// ooxml package model.
package docx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sammcj/mcp-office/internal/ooxml"
	"github.com/sirupsen/logrus"
)

const (
	mainPart      = "word/document.xml"
	stylesPart    = "word/styles.xml"
	settingsPart  = "word/settings.xml"
	numberingPart = "word/numbering.xml"
	commentsPart  = "word/comments.xml"
	appPart       = "docProps/app.xml"
)

// DocumentError wraps a failure to read or write a Word document
type DocumentError struct {
	Operation string
	Cause     error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document error during %s: %v", e.Operation, e.Cause)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// Properties are the core properties of a document
type Properties struct {
	Title       string
	Subject     string
	Creator     string
	Keywords    string
	Description string
	Category    string
}

// Generator produces Word documents
type Generator struct {
	logger *logrus.Logger
}

// New creates a document generator
func New(logger *logrus.Logger) *Generator {
	return &Generator{logger: logger}
}

// Document is an open document. Body edits work on the main part's markup,
// which is written back by Bytes.
type Document struct {
	pkg  *ooxml.Package
	main string
	xml  string
}

// Blank returns an empty document with the default styles and list definitions
func (g *Generator) Blank(props *Properties) (*Document, error) {
	pkg := ooxml.New()
	parts := []struct {
		name, contentType, relType, content string
	}{
		{mainPart, typeDocument, ooxml.RelOfficeDocument, blankDocument},
		{stylesPart, typeStyles, ooxml.RelStyles, blankStyles},
		{settingsPart, typeSettings, ooxml.RelSettings, blankSettings},
		{numberingPart, typeNumbering, ooxml.RelNumbering, blankNumbering},
		{appPart, ooxml.TypeAppProps, ooxml.RelAppProps, blankApp},
	}
	for _, p := range parts {
		pkg.SetPartString(p.name, p.content)
		if err := pkg.SetOverride(p.name, p.contentType); err != nil {
			return nil, err
		}
		source := mainPart
		if p.name == mainPart || p.name == appPart {
			source = ""
		}
		if _, err := pkg.Link(source, p.relType, p.name); err != nil {
			return nil, err
		}
	}

	var core ooxml.CoreProperties
	if props != nil {
		core = ooxml.CoreProperties{
			Title: props.Title, Subject: props.Subject, Creator: props.Creator,
			Keywords: props.Keywords, Description: props.Description, Category: props.Category,
		}
	}
	if core.Creator == "" {
		core.Creator = "mcp-office"
	}
	core.LastModifiedBy = core.Creator
	if err := pkg.SetCoreProperties(core); err != nil {
		return nil, err
	}
	return &Document{pkg: pkg, main: mainPart, xml: blankDocument}, nil
}

// Open reads a document. Nil or empty content yields a blank document.
func (g *Generator) Open(data []byte) (*Document, error) {
	if len(data) == 0 {
		return g.Blank(nil)
	}
	pkg, err := ooxml.Open(data)
	if err != nil {
		return nil, &DocumentError{Operation: "open", Cause: err}
	}
	main, err := pkg.MainPart()
	if err != nil {
		return nil, &DocumentError{Operation: "open", Cause: err}
	}
	content := pkg.PartString(main)
	if ooxml.IndexTag(content, "<w:body") < 0 {
		return nil, &DocumentError{Operation: "open", Cause: fmt.Errorf("%s is not a Word document body", main)}
	}
	if g.logger != nil {
		g.logger.WithFields(logrus.Fields{"part": main, "parts": len(pkg.Names())}).Debug("Opened document")
	}
	return &Document{pkg: pkg, main: main, xml: content}, nil
}

// Apply opens a document, lets fn modify it and returns the saved bytes
func (g *Generator) Apply(existing []byte, fn func(d *Document) error) ([]byte, error) {
	d, err := g.Open(existing)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	return d.Bytes()
}

// Inspect opens an existing document for fn without saving it
func (g *Generator) Inspect(existing []byte, fn func(d *Document) error) error {
	if len(existing) == 0 {
		return &DocumentError{Operation: "read", Cause: fmt.Errorf("document is empty or does not exist")}
	}
	d, err := g.Open(existing)
	if err != nil {
		return err
	}
	return fn(d)
}

// Bytes serialises the document, updating its modification time
func (d *Document) Bytes() ([]byte, error) {
	d.pkg.SetPartString(d.main, d.xml)
	if err := d.pkg.Touch(); err != nil {
		return nil, &DocumentError{Operation: "save", Cause: err}
	}
	data, err := d.pkg.Bytes()
	if err != nil {
		return nil, &DocumentError{Operation: "save", Cause: err}
	}
	return data, nil
}

// Package exposes the underlying package
func (d *Document) Package() *ooxml.Package {
	return d.pkg
}

// XML returns the current main part markup
func (d *Document) XML() string {
	return d.xml
}

// Append adds block markup (paragraphs, tables) at the end of the body, ahead
// of the final section properties.
func (d *Document) Append(blocks ...string) {
	fragment := strings.Join(blocks, "")
	body := d.bodyEnd()
	if at := d.finalSectPr(); at >= 0 {
		body = at
	}
	d.xml = d.xml[:body] + fragment + d.xml[body:]
}

// Prepend adds block markup at the start of the body
func (d *Document) Prepend(blocks ...string) {
	d.xml = ooxml.InsertAfterOpen(d.xml, "<w:body", strings.Join(blocks, ""))
}

func (d *Document) bodyEnd() int {
	if i := strings.LastIndex(d.xml, "</w:body>"); i >= 0 {
		return i
	}
	return len(d.xml)
}

// finalSectPr locates the body-level sectPr, which is the last child of w:body.
// Section breaks carry their own sectPr inside a paragraph's w:pPr.
func (d *Document) finalSectPr() int {
	end := d.bodyEnd()
	spans := ooxml.Elements(d.xml, "w:sectPr")
	if len(spans) == 0 {
		return -1
	}
	last := spans[len(spans)-1]
	if strings.TrimSpace(d.xml[last.End:end]) != "" {
		return -1
	}
	return last.Start
}

// SectionProperties returns the body-level sectPr, creating a default one
func (d *Document) SectionProperties() (*ooxml.Element, error) {
	at := d.finalSectPr()
	if at < 0 {
		end := d.bodyEnd()
		d.xml = d.xml[:end] + defaultSectPr + d.xml[end:]
		at = end
	}
	spans := ooxml.Elements(d.xml[at:], "w:sectPr")
	return ooxml.ParseElement(d.xml[at : at+spans[0].End])
}

// SetSectionProperties replaces the body-level sectPr
func (d *Document) SetSectionProperties(e *ooxml.Element) {
	at := d.finalSectPr()
	if at < 0 {
		d.xml = d.xml[:d.bodyEnd()] + e.String() + d.xml[d.bodyEnd():]
		return
	}
	spans := ooxml.Elements(d.xml[at:], "w:sectPr")
	d.xml = d.xml[:at] + e.String() + d.xml[at+spans[0].End:]
}

// Paragraphs returns the spans of all top-level and nested paragraphs
func (d *Document) Paragraphs() []ooxml.Span {
	return ooxml.Elements(d.xml, "w:p")
}

// Text returns the plain text of each paragraph in document order
func (d *Document) Text() []string {
	var out []string
	for _, s := range d.Paragraphs() {
		out = append(out, paragraphText(d.xml[s.Start:s.End]))
	}
	return out
}

// SetProperties replaces the core properties, keeping the creation time
func (d *Document) SetProperties(props Properties) error {
	current, err := d.pkg.CoreProperties()
	if err != nil {
		return err
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&current.Title, props.Title)
	set(&current.Subject, props.Subject)
	set(&current.Creator, props.Creator)
	set(&current.Keywords, props.Keywords)
	set(&current.Description, props.Description)
	set(&current.Category, props.Category)
	return d.pkg.SetCoreProperties(current)
}

// Properties returns the core properties
func (d *Document) Properties() (ooxml.CoreProperties, error) {
	return d.pkg.CoreProperties()
}

// auxPart returns the part linked from the main part with relType, if any
func (d *Document) auxPart(relType string) (string, error) {
	rels, err := d.pkg.Rels(d.main)
	if err != nil {
		return "", err
	}
	for _, rel := range rels.OfType(relType) {
		return ooxml.ResolveTarget(d.main, rel.Target), nil
	}
	return "", nil
}

// ensurePart returns the part for relType, creating it from blank when missing
func (d *Document) ensurePart(relType, name, contentType, blank string) (string, error) {
	part, err := d.auxPart(relType)
	if err != nil || part != "" {
		return part, err
	}
	d.pkg.SetPartString(name, blank)
	if err := d.pkg.SetOverride(name, contentType); err != nil {
		return "", err
	}
	if _, err := d.pkg.Link(d.main, relType, name); err != nil {
		return "", err
	}
	return name, nil
}

// EnsureStyle adds a built-in style definition to styles.xml when missing
func (d *Document) EnsureStyle(styleID string) error {
	def, known := styleDefinitions[styleID]
	part, err := d.ensurePart(ooxml.RelStyles, stylesPart, typeStyles, blankStyles)
	if err != nil {
		return err
	}
	styles := d.pkg.PartString(part)
	if strings.Contains(styles, `w:styleId="`+styleID+`"`) {
		return nil
	}
	if !known {
		return fmt.Errorf("unknown style %q", styleID)
	}
	if strings.HasPrefix(styleID, "TOCHeading") {
		if err := d.EnsureStyle("Heading1"); err != nil {
			return err
		}
		styles = d.pkg.PartString(part)
	}
	d.pkg.SetPartString(part, ooxml.InsertBeforeLast(styles, def, "</w:styles>"))
	return nil
}

// HasStyle reports whether styles.xml defines styleID
func (d *Document) HasStyle(styleID string) bool {
	part, _ := d.auxPart(ooxml.RelStyles)
	return part != "" && strings.Contains(d.pkg.PartString(part), `w:styleId="`+styleID+`"`)
}

// ensureNumbering makes sure the bullet and numbered list definitions exist
func (d *Document) ensureNumbering() error {
	part, err := d.ensurePart(ooxml.RelNumbering, numberingPart, typeNumbering, blankNumbering)
	if err != nil {
		return err
	}
	numbering := d.pkg.PartString(part)
	if strings.Contains(numbering, `w:abstractNumId="901"`) {
		return nil
	}
	// abstractNum elements must precede every num
	if ooxml.IndexTag(numbering, "<w:num") >= 0 {
		numbering = ooxml.InsertBefore(numbering, abstractNums, "<w:num")
	} else {
		numbering = ooxml.InsertBeforeLast(numbering, abstractNums, "</w:numbering>")
	}
	numbering = ooxml.InsertBeforeLast(numbering, nums, "</w:numbering>")
	d.pkg.SetPartString(part, numbering)
	return nil
}

// settings returns the settings part markup, creating the part when missing
func (d *Document) settings() (string, string, error) {
	part, err := d.ensurePart(ooxml.RelSettings, settingsPart, typeSettings, blankSettings)
	if err != nil {
		return "", "", err
	}
	return part, d.pkg.PartString(part), nil
}

var (
	numPattern      = regexp.MustCompile(`<w:num w:numId="(\d+)"[^>]*>\s*<w:abstractNumId w:val="(\d+)"`)
	abstractPattern = regexp.MustCompile(`(?s)<w:abstractNum [^>]*w:abstractNumId="(\d+)".*?<w:numFmt w:val="([^"]+)"`)
)

// numberedLists maps numIds whose first level counts (rather than bullets)
func (d *Document) numberedLists() map[string]bool {
	out := map[string]bool{itoa(numberedNumID): true}
	part, _ := d.auxPart(ooxml.RelNumbering)
	if part == "" {
		return out
	}
	numbering := d.pkg.PartString(part)
	formats := map[string]string{}
	for _, m := range abstractPattern.FindAllStringSubmatch(numbering, -1) {
		formats[m[1]] = m[2]
	}
	for _, m := range numPattern.FindAllStringSubmatch(numbering, -1) {
		if f, ok := formats[m[2]]; ok {
			out[m[1]] = f != "bullet" && f != "none"
		}
	}
	return out
}

// restartNumbering adds a list instance of the numbered definition that
// starts again at 1 and returns its numId
func (d *Document) restartNumbering() (int, error) {
	if err := d.ensureNumbering(); err != nil {
		return 0, err
	}
	part, _ := d.auxPart(ooxml.RelNumbering)
	numbering := d.pkg.PartString(part)
	highest := numberedNumID
	for _, m := range numPattern.FindAllStringSubmatch(numbering, -1) {
		highest = max(highest, atoiOr(m[1], 0))
	}
	id := highest + 1
	num := `<w:num w:numId="` + itoa(id) + `"><w:abstractNumId w:val="` + itoa(numberedNumID) + `"/><w:lvlOverride w:ilvl="0"><w:startOverride w:val="1"/></w:lvlOverride></w:num>`
	d.pkg.SetPartString(part, ooxml.InsertBeforeLast(numbering, num, "</w:numbering>"))
	return id, nil
}
