// Package pptx builds and edits PresentationML slide decks on top of the
// ooxml package model.
package pptx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sammcj/mcp-office/internal/ooxml"
	"github.com/sirupsen/logrus"
)

// PresentationError wraps a failure to read or write a presentation
type PresentationError struct {
	Operation string
	Cause     error
}

func (e *PresentationError) Error() string {
	return fmt.Sprintf("presentation error during %s: %v", e.Operation, e.Cause)
}

func (e *PresentationError) Unwrap() error {
	return e.Cause
}

// Properties are the core properties of a presentation
type Properties struct {
	Title       string
	Subject     string
	Creator     string
	Keywords    string
	Description string
	Category    string
}

// Generator produces PowerPoint presentations
type Generator struct {
	logger *logrus.Logger
}

// New creates a presentation generator
func New(logger *logrus.Logger) *Generator {
	return &Generator{logger: logger}
}

// Presentation is an open slide deck. The slide list lives in the main part's
// markup, which is written back by Bytes.
type Presentation struct {
	pkg  *ooxml.Package
	main string
	xml  string
}

// Slide identifies a slide by its position in the deck
type Slide struct {
	Index int
	ID    int
	RelID string
	Part  string
}

// Blank returns an empty deck with one master, the built-in layouts and the
// office theme
func (g *Generator) Blank(props *Properties) (*Presentation, error) {
	pkg := ooxml.New()
	if err := assemble(pkg); err != nil {
		return nil, &PresentationError{Operation: "create", Cause: err}
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
	return &Presentation{pkg: pkg, main: presentationPart, xml: blankPresentation}, nil
}

func assemble(pkg *ooxml.Package) error {
	add := func(part, contentType, content string) error {
		pkg.SetPartString(part, content)
		return pkg.SetOverride(part, contentType)
	}

	if err := add(presentationPart, typePresentation, blankPresentation); err != nil {
		return err
	}
	if _, err := pkg.Link("", ooxml.RelOfficeDocument, presentationPart); err != nil {
		return err
	}
	// the master must be rId1 of the presentation part
	if _, err := pkg.Link(presentationPart, ooxml.RelSlideMaster, masterPart); err != nil {
		return err
	}

	var ids strings.Builder
	for i, l := range layouts {
		part := fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", i+1)
		if err := add(part, typeSlideLayout, layoutXML(l)); err != nil {
			return err
		}
		if _, err := pkg.Link(part, ooxml.RelSlideMaster, masterPart); err != nil {
			return err
		}
		relID, err := pkg.Link(masterPart, ooxml.RelSlideLayout, part)
		if err != nil {
			return err
		}
		ids.WriteString(`<p:sldLayoutId id="` + strconv.Itoa(2147483649+i) + `" r:id="` + relID + `"/>`)
	}

	if err := add(themePart, typeTheme, themeXML(Themes["office"])); err != nil {
		return err
	}
	if _, err := pkg.Link(masterPart, ooxml.RelTheme, themePart); err != nil {
		return err
	}
	if err := add(masterPart, typeSlideMaster, masterXML(ids.String())); err != nil {
		return err
	}

	aux := []struct {
		part, contentType, relType, content string
	}{
		{"ppt/presProps.xml", typePresProps, ooxml.RelPresProps, blankPresProps},
		{"ppt/viewProps.xml", typeViewProps, ooxml.RelViewProps, blankViewProps},
		{themePart, typeTheme, ooxml.RelTheme, ""},
		{"ppt/tableStyles.xml", typeTableStyles, ooxml.RelTableStyles, blankTableStyles},
	}
	for _, a := range aux {
		if a.content != "" {
			if err := add(a.part, a.contentType, a.content); err != nil {
				return err
			}
		}
		if _, err := pkg.Link(presentationPart, a.relType, a.part); err != nil {
			return err
		}
	}

	if err := add(appPart, ooxml.TypeAppProps, blankApp); err != nil {
		return err
	}
	_, err := pkg.Link("", ooxml.RelAppProps, appPart)
	return err
}

// Open reads a presentation. Nil or empty content yields a blank deck.
func (g *Generator) Open(data []byte) (*Presentation, error) {
	if len(data) == 0 {
		return g.Blank(nil)
	}
	pkg, err := ooxml.Open(data)
	if err != nil {
		return nil, &PresentationError{Operation: "open", Cause: err}
	}
	main, err := pkg.MainPart()
	if err != nil {
		return nil, &PresentationError{Operation: "open", Cause: err}
	}
	content := pkg.PartString(main)
	if ooxml.IndexTag(content, "<p:presentation") < 0 {
		return nil, &PresentationError{Operation: "open", Cause: fmt.Errorf("%s is not a presentation", main)}
	}
	p := &Presentation{pkg: pkg, main: main, xml: content}
	if g.logger != nil {
		g.logger.WithFields(logrus.Fields{"part": main, "slides": len(p.Slides())}).Debug("Opened presentation")
	}
	return p, nil
}

// Apply opens a presentation, lets fn modify it and returns the saved bytes
func (g *Generator) Apply(existing []byte, fn func(p *Presentation) error) ([]byte, error) {
	p, err := g.Open(existing)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	return p.Bytes()
}

// Inspect opens an existing presentation for fn without saving it
func (g *Generator) Inspect(existing []byte, fn func(p *Presentation) error) error {
	if len(existing) == 0 {
		return &PresentationError{Operation: "read", Cause: fmt.Errorf("presentation is empty or does not exist")}
	}
	p, err := g.Open(existing)
	if err != nil {
		return err
	}
	return fn(p)
}

// Bytes serialises the presentation, updating its modification time
func (p *Presentation) Bytes() ([]byte, error) {
	p.pkg.SetPartString(p.main, p.xml)
	if err := p.pkg.Touch(); err != nil {
		return nil, &PresentationError{Operation: "save", Cause: err}
	}
	data, err := p.pkg.Bytes()
	if err != nil {
		return nil, &PresentationError{Operation: "save", Cause: err}
	}
	return data, nil
}

// Package exposes the underlying package
func (p *Presentation) Package() *ooxml.Package {
	return p.pkg
}

// SetProperties updates the non-empty fields of the core properties
func (p *Presentation) SetProperties(props Properties) error {
	current, err := p.pkg.CoreProperties()
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
	return p.pkg.SetCoreProperties(current)
}

// Properties returns the core properties
func (p *Presentation) Properties() (ooxml.CoreProperties, error) {
	return p.pkg.CoreProperties()
}

// Slides lists the slides in show order
func (p *Presentation) Slides() []Slide {
	rels, err := p.pkg.Rels(p.main)
	if err != nil {
		return nil
	}
	var slides []Slide
	for _, tag := range p.slideIDTags() {
		id, _ := strconv.Atoi(ooxml.Attr(tag, "id"))
		relID := ooxml.Attr(tag, "r:id")
		rel, ok := rels.Get(relID)
		if !ok {
			continue
		}
		slides = append(slides, Slide{
			Index: len(slides) + 1,
			ID:    id,
			RelID: relID,
			Part:  ooxml.ResolveTarget(p.main, rel.Target),
		})
	}
	return slides
}

// Slide returns the slide at a 1-based position
func (p *Presentation) Slide(index int) (Slide, error) {
	slides := p.Slides()
	if index < 1 || index > len(slides) {
		return Slide{}, fmt.Errorf("slide %d does not exist (presentation has %d slides)", index, len(slides))
	}
	return slides[index-1], nil
}

func (p *Presentation) slideIDTags() []string {
	var tags []string
	for _, s := range ooxml.Elements(p.listXML(), "p:sldId") {
		tags = append(tags, p.listXML()[s.Start:s.End])
	}
	return tags
}

func (p *Presentation) listXML() string {
	spans := ooxml.Elements(p.xml, "p:sldIdLst")
	if len(spans) == 0 {
		return ""
	}
	return p.xml[spans[0].Start:spans[0].End]
}

func (p *Presentation) setSlideIDTags(tags []string) {
	list := "<p:sldIdLst>" + strings.Join(tags, "") + "</p:sldIdLst>"
	if updated, ok := ooxml.ReplaceElement(p.xml, "p:sldIdLst", list); ok {
		p.xml = updated
		return
	}
	p.xml = ooxml.InsertBefore(p.xml, list, "<p:sldSz", "<p:notesSz", "</p:presentation>")
}

func (p *Presentation) nextSlideID() int {
	next := 256
	for _, tag := range p.slideIDTags() {
		if id, err := strconv.Atoi(ooxml.Attr(tag, "id")); err == nil && id >= next {
			next = id + 1
		}
	}
	return next
}

// addSlidePart stores slide markup with its relationships and inserts it
// after position (0 puts it at the end). It returns the new 1-based index.
func (p *Presentation) addSlidePart(content string, rels *ooxml.Relationships, after int) (int, error) {
	part := p.pkg.NextName("ppt/slides/slide", ".xml")
	p.pkg.SetPartString(part, content)
	if err := p.pkg.SetOverride(part, typeSlide); err != nil {
		return 0, err
	}
	if rels != nil {
		if err := p.pkg.SaveRels(part, rels); err != nil {
			return 0, err
		}
	}
	relID, err := p.pkg.Link(p.main, ooxml.RelSlide, part)
	if err != nil {
		return 0, err
	}

	tags := p.slideIDTags()
	tag := `<p:sldId id="` + strconv.Itoa(p.nextSlideID()) + `" r:id="` + relID + `"/>`
	if after <= 0 || after > len(tags) {
		after = len(tags)
	}
	tags = append(tags[:after], append([]string{tag}, tags[after:]...)...)
	p.setSlideIDTags(tags)
	return after + 1, nil
}

// SlideXML returns the markup of the slide at a 1-based position
func (p *Presentation) SlideXML(index int) (string, error) {
	s, err := p.Slide(index)
	if err != nil {
		return "", err
	}
	return p.slideXML(s), nil
}

// slideXML returns the markup of a slide part
func (p *Presentation) slideXML(s Slide) string {
	return p.pkg.PartString(s.Part)
}

func (p *Presentation) setSlideXML(s Slide, content string) {
	p.pkg.SetPartString(s.Part, content)
}

// editSlide applies fn to the markup of one slide
func (p *Presentation) editSlide(index int, fn func(s Slide, content string) (string, error)) error {
	s, err := p.Slide(index)
	if err != nil {
		return err
	}
	content, err := fn(s, p.slideXML(s))
	if err != nil {
		return err
	}
	p.setSlideXML(s, content)
	return nil
}

// targets expands 0 to every slide
func (p *Presentation) targets(index int) ([]int, error) {
	if index != 0 {
		if _, err := p.Slide(index); err != nil {
			return nil, err
		}
		return []int{index}, nil
	}
	var all []int
	for _, s := range p.Slides() {
		all = append(all, s.Index)
	}
	return all, nil
}

var shapeID = regexp.MustCompile(`<p:cNvPr[^>]*\sid="(\d+)"`)

func nextShapeID(content string) int {
	next := 2
	for _, m := range shapeID.FindAllStringSubmatch(content, -1) {
		if id, err := strconv.Atoi(m[1]); err == nil && id >= next {
			next = id + 1
		}
	}
	return next
}

func appendShape(content, shape string) string {
	return ooxml.InsertBeforeLast(content, shape, "</p:spTree>")
}

// shapeSpans returns every top-level shape of a slide
func shapeSpans(content string) []ooxml.Span {
	var spans []ooxml.Span
	for _, name := range []string{"p:sp", "p:pic", "p:graphicFrame", "p:grpSp", "p:cxnSp"} {
		spans = append(spans, ooxml.Elements(content, name)...)
	}
	return spans
}

func shapeName(shape string) string {
	if i := strings.Index(shape, "<p:cNvPr"); i >= 0 {
		end := strings.Index(shape[i:], ">")
		if end > 0 {
			return ooxml.Attr(shape[i:i+end+1], "name")
		}
	}
	return ""
}

// removeShapes drops the shapes with the given name
func removeShapes(content, name string) string {
	spans := ooxml.Elements(content, "p:sp")
	for i := len(spans) - 1; i >= 0; i-- {
		if shapeName(content[spans[i].Start:spans[i].End]) == name {
			content = content[:spans[i].Start] + content[spans[i].End:]
		}
	}
	return content
}

func slideXMLFor(shapes string) string {
	return xmlHeader + `<p:sld ` + namespaces + `><p:cSld><p:spTree>` + groupProperties + shapes +
		`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`
}
