package pptx

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sammcj/mcp-office/internal/ooxml"
)

// SlideOptions describes the content of a new slide
type SlideOptions struct {
	Layout   string
	Title    string
	Subtitle string
	Bullets  []string
	Notes    string
}

var layoutAliases = map[string]string{
	"title":           LayoutTitle,
	"content":         LayoutTitleContent,
	"titleandcontent": LayoutTitleContent,
	"bullets":         LayoutTitleContent,
	"section":         LayoutSectionHeader,
	"sectionheader":   LayoutSectionHeader,
	"titleonly":       LayoutTitleOnly,
	"blank":           LayoutBlank,
}

// LayoutInfo describes a slide layout part
type LayoutInfo struct {
	Part string
	Name string
	Type string
}

// Layouts lists the layouts of the first slide master
func (p *Presentation) Layouts() ([]LayoutInfo, error) {
	rels, err := p.pkg.Rels(p.main)
	if err != nil {
		return nil, err
	}
	masters := rels.OfType(ooxml.RelSlideMaster)
	if len(masters) == 0 {
		return nil, fmt.Errorf("presentation has no slide master")
	}
	master := ooxml.ResolveTarget(p.main, masters[0].Target)
	masterRels, err := p.pkg.Rels(master)
	if err != nil {
		return nil, err
	}
	var out []LayoutInfo
	for _, rel := range masterRels.OfType(ooxml.RelSlideLayout) {
		part := ooxml.ResolveTarget(master, rel.Target)
		out = append(out, describeLayout(part, p.pkg.PartString(part)))
	}
	return out, nil
}

func describeLayout(part, content string) LayoutInfo {
	l := LayoutInfo{Part: part}
	if i := ooxml.IndexTag(content, "<p:sldLayout"); i >= 0 {
		l.Type = ooxml.Attr(content[i:i+strings.Index(content[i:], ">")+1], "type")
	}
	if i := ooxml.IndexTag(content, "<p:cSld"); i >= 0 {
		l.Name = ooxml.Attr(content[i:i+strings.Index(content[i:], ">")+1], "name")
	}
	return l
}

func layoutKey(name string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(name))
}

// findLayout resolves a layout by display name, alias or type. An empty name
// selects Title and Content.
func (p *Presentation) findLayout(name string) (LayoutInfo, error) {
	if strings.TrimSpace(name) == "" {
		name = LayoutTitleContent
	}
	if alias, ok := layoutAliases[layoutKey(name)]; ok {
		name = alias
	}
	all, err := p.Layouts()
	if err != nil {
		return LayoutInfo{}, err
	}
	var names []string
	for _, l := range all {
		if strings.EqualFold(l.Name, name) || layoutKey(l.Type) == layoutKey(name) {
			return l, nil
		}
		names = append(names, l.Name)
	}
	// foreign decks name their layouts freely, so fall back on the layout type
	for _, l := range layouts {
		if l.Name == name {
			for _, candidate := range all {
				if candidate.Type == l.Type {
					return candidate, nil
				}
			}
		}
	}
	return LayoutInfo{}, fmt.Errorf("unknown layout %q (available: %s)", name, strings.Join(names, ", "))
}

// SlideLayout returns the layout a slide uses
func (p *Presentation) SlideLayout(s Slide) LayoutInfo {
	rels, err := p.pkg.Rels(s.Part)
	if err != nil {
		return LayoutInfo{}
	}
	for _, rel := range rels.OfType(ooxml.RelSlideLayout) {
		part := ooxml.ResolveTarget(s.Part, rel.Target)
		return describeLayout(part, p.pkg.PartString(part))
	}
	return LayoutInfo{}
}

// AddSlide appends a slide built on a layout and returns its position
func (p *Presentation) AddSlide(opts SlideOptions) (int, error) {
	return p.InsertSlide(0, opts)
}

// InsertSlide adds a slide after position (0 appends) and returns its position
func (p *Presentation) InsertSlide(after int, opts SlideOptions) (int, error) {
	l, err := p.findLayout(opts.Layout)
	if err != nil {
		return 0, err
	}

	title := func(phType string, box Box) string {
		return Placeholder(2, "Title 1", phType, 0, box, textParagraphs(nonEmpty(opts.Title), TextStyle{}))
	}
	var shapes string
	bullets := opts.Bullets
	switch l.Type {
	case "title":
		shapes = title("ctrTitle", CenterTitle) +
			Placeholder(3, "Subtitle 2", "subTitle", 1, SubtitleBox, textParagraphs(nonEmpty(opts.Subtitle), TextStyle{}))
	case "obj", "tx":
		shapes = title("title", TitleBox) +
			Placeholder(3, "Content Placeholder 2", "", 1, BodyBox, textParagraphs(bullets, TextStyle{Bullets: true}))
		bullets = nil
	case "secHead":
		shapes = title("title", TitleBox) +
			Placeholder(3, "Text Placeholder 2", "body", 1, SubtitleBox, textParagraphs(nonEmpty(opts.Subtitle), TextStyle{}))
	case "blank":
		if opts.Title != "" {
			shapes = TextBox(2, "TextBox 1", TitleBox, textParagraphs([]string{opts.Title}, TextStyle{FontSize: 36, Bold: true}), false)
		}
	default:
		shapes = title("title", TitleBox)
	}
	if len(bullets) > 0 {
		shapes += TextBox(nextShapeID(shapes), "Bullets", BodyBox, bulletParagraphs(bullets, TextStyle{FontSize: 20}), false)
	}

	rels := &ooxml.Relationships{}
	rels.Add(ooxml.RelSlideLayout, ooxml.RelativeTarget("ppt/slides/slide1.xml", l.Part), false)
	index, err := p.addSlidePart(slideXMLFor(shapes), rels, after)
	if err != nil {
		return 0, err
	}
	if opts.Notes != "" {
		if err := p.SetNotes(index, opts.Notes); err != nil {
			return 0, err
		}
	}
	return index, nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// DeleteSlide removes a slide, its part and any notes slide that belongs to it
func (p *Presentation) DeleteSlide(index int) error {
	s, err := p.Slide(index)
	if err != nil {
		return err
	}
	slideRels, err := p.pkg.Rels(s.Part)
	if err != nil {
		return err
	}
	for _, rel := range slideRels.OfType(ooxml.RelNotesSlide) {
		if rel.External() {
			continue
		}
		notes := ooxml.ResolveTarget(s.Part, rel.Target)
		p.pkg.DeletePart(notes)
		if err := p.pkg.RemoveOverride(notes); err != nil {
			return err
		}
	}

	tags := p.slideIDTags()
	p.setSlideIDTags(slices.Delete(tags, index-1, index))

	rels, err := p.pkg.Rels(p.main)
	if err != nil {
		return err
	}
	rels.Remove(s.RelID)
	if err := p.pkg.SaveRels(p.main, rels); err != nil {
		return err
	}
	p.pkg.DeletePart(s.Part)
	return p.pkg.RemoveOverride(s.Part)
}

// MoveSlide moves the slide at from to position to
func (p *Presentation) MoveSlide(from, to int) error {
	tags := p.slideIDTags()
	if from < 1 || from > len(tags) {
		return fmt.Errorf("slide %d does not exist (presentation has %d slides)", from, len(tags))
	}
	if to < 1 || to > len(tags) {
		return fmt.Errorf("target position %d is out of range 1-%d", to, len(tags))
	}
	tag := tags[from-1]
	tags = slices.Delete(tags, from-1, from)
	tags = slices.Insert(tags, to-1, tag)
	p.setSlideIDTags(tags)
	return nil
}

// DuplicateSlide copies a slide directly after itself and returns the copy's position
func (p *Presentation) DuplicateSlide(index int) (int, error) {
	s, err := p.Slide(index)
	if err != nil {
		return 0, err
	}
	rels, err := p.pkg.Rels(s.Part)
	if err != nil {
		return 0, err
	}
	copied := &ooxml.Relationships{}
	for _, rel := range rels.Items {
		// a notes slide belongs to exactly one slide
		if rel.Type != ooxml.RelNotesSlide {
			copied.Items = append(copied.Items, rel)
		}
	}
	return p.addSlidePart(p.slideXML(s), copied, index)
}

// SetLayout points a slide at another layout
func (p *Presentation) SetLayout(index int, name string) error {
	s, err := p.Slide(index)
	if err != nil {
		return err
	}
	l, err := p.findLayout(name)
	if err != nil {
		return err
	}
	rels, err := p.pkg.Rels(s.Part)
	if err != nil {
		return err
	}
	target := ooxml.RelativeTarget(s.Part, l.Part)
	found := false
	for i, rel := range rels.Items {
		if rel.Type == ooxml.RelSlideLayout {
			rels.Items[i].Target = target
			found = true
		}
	}
	if !found {
		rels.Add(ooxml.RelSlideLayout, target, false)
	}
	return p.pkg.SaveRels(s.Part, rels)
}

// AddText places a text box on a slide. Bulleted text gets explicit bullet markers.
func (p *Presentation) AddText(index int, text string, box Box, style TextStyle) error {
	return p.editSlide(index, func(_ Slide, content string) (string, error) {
		lines := strings.Split(text, "\n")
		body := textParagraphs(lines, style)
		if style.Bullets {
			body = bulletParagraphs(lines, style)
		}
		id := nextShapeID(content)
		return appendShape(content, TextBox(id, fmt.Sprintf("TextBox %d", id-1), box, body, false)), nil
	})
}

// AddShape places a preset geometry on a slide
func (p *Presentation) AddShape(index int, geometry string, box Box, fill, line, text string) error {
	canonical := ""
	for _, g := range ShapeTypes {
		if strings.EqualFold(g, geometry) {
			canonical = g
		}
	}
	if canonical == "" {
		return fmt.Errorf("unknown shape type %q (available: %s)", geometry, strings.Join(ShapeTypes, ", "))
	}
	return p.editSlide(index, func(_ Slide, content string) (string, error) {
		body := ""
		if text != "" {
			body = textParagraphs(strings.Split(text, "\n"), TextStyle{Align: "center"})
		}
		id := nextShapeID(content)
		return appendShape(content, AutoShape(id, fmt.Sprintf("%s %d", canonical, id-1), canonical, box, fill, line, body)), nil
	})
}

// AddTable places a native table on a slide
func (p *Presentation) AddTable(index int, rows [][]string, header bool, box Box, fontSize float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("table has no rows")
	}
	return p.editSlide(index, func(_ Slide, content string) (string, error) {
		id := nextShapeID(content)
		return appendShape(content, TableFrame(id, fmt.Sprintf("Table %d", id-1), box, rows, header, fontSize)), nil
	})
}

// AddHyperlink places a linked text box. A target of the form "#3" jumps to slide 3.
func (p *Presentation) AddHyperlink(index int, text, target string, box Box) error {
	return p.editSlide(index, func(s Slide, content string) (string, error) {
		style := TextStyle{FontSize: 18, Underline: true, Color: "0563C1"}
		if n, ok := strings.CutPrefix(target, "#"); ok {
			dest, err := p.Slide(atoiOr(n, -1))
			if err != nil {
				return "", err
			}
			relID, err := p.pkg.Link(s.Part, ooxml.RelSlide, dest.Part)
			if err != nil {
				return "", err
			}
			style.LinkRelID, style.LinkAction = relID, "ppaction://hlinksldjump"
		} else {
			relID, err := p.pkg.LinkExternal(s.Part, ooxml.RelHyperlink, target)
			if err != nil {
				return "", err
			}
			style.LinkRelID = relID
		}
		if text == "" {
			text = target
		}
		id := nextShapeID(content)
		return appendShape(content, TextBox(id, fmt.Sprintf("Hyperlink %d", id-1), box, textParagraphs([]string{text}, style), false)), nil
	})
}

func atoiOr(s string, fallback int) int {
	n := 0
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n); err != nil {
		return fallback
	}
	return n
}

const notesShape = "Speaker Notes"

// SetNotes stores speaker notes as a hidden text box below the visible slide area
func (p *Presentation) SetNotes(index int, notes string) error {
	return p.editSlide(index, func(_ Slide, content string) (string, error) {
		content = removeShapes(content, notesShape)
		if notes == "" {
			return content, nil
		}
		box := Box{X: 0.5, Y: 7.6, W: 12.3, H: 1.5}
		shape := TextBox(nextShapeID(content), notesShape, box, textParagraphs(strings.Split(notes, "\n"), TextStyle{FontSize: 12}), true)
		return appendShape(content, shape), nil
	})
}

// Notes returns the speaker notes of a slide
func (p *Presentation) Notes(index int) (string, error) {
	s, err := p.Slide(index)
	if err != nil {
		return "", err
	}
	return notesOf(p.slideXML(s)), nil
}

func notesOf(content string) string {
	for _, span := range ooxml.Elements(content, "p:sp") {
		shape := content[span.Start:span.End]
		if shapeName(shape) == notesShape {
			return strings.Join(paragraphTexts(shape), "\n")
		}
	}
	return ""
}

// SetBackground sets a solid background colour on one slide or, with index 0, every slide
func (p *Presentation) SetBackground(index int, color string) error {
	indices, err := p.targets(index)
	if err != nil {
		return err
	}
	bg := `<p:bg><p:bgPr><a:solidFill><a:srgbClr val="` + attr(normalizeColor(color)) + `"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>`
	for _, i := range indices {
		err := p.editSlide(i, func(_ Slide, content string) (string, error) {
			content = ooxml.RemoveElements(content, "p:bg")
			return ooxml.InsertAfterOpen(content, "<p:cSld", bg), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Transitions maps transition names to their slide markup
var Transitions = map[string]string{
	"fade":     `<p:fade/>`,
	"push":     `<p:push dir="u"/>`,
	"wipe":     `<p:wipe dir="r"/>`,
	"split":    `<p:split orient="horz" dir="out"/>`,
	"cut":      `<p:cut/>`,
	"cover":    `<p:cover dir="l"/>`,
	"pull":     `<p:pull dir="l"/>`,
	"zoom":     `<p:zoom/>`,
	"dissolve": `<p:dissolve/>`,
	"random":   `<p:random/>`,
	"circle":   `<p:circle/>`,
	"wheel":    `<p:wheel spokes="4"/>`,
}

// SetTransition sets a slide transition on one slide or, with index 0, every
// slide. "none" removes it. advanceAfter is in seconds, 0 for on click.
func (p *Presentation) SetTransition(index int, kind, speed string, advanceAfter float64) error {
	kind = strings.ToLower(kind)
	effect, ok := Transitions[kind]
	if !ok && kind != "none" {
		names := make([]string, 0, len(Transitions))
		for name := range Transitions {
			names = append(names, name)
		}
		slices.Sort(names)
		return fmt.Errorf("unknown transition %q (available: none, %s)", kind, strings.Join(names, ", "))
	}
	switch speed {
	case "slow", "med", "fast":
	case "medium", "":
		speed = "med"
	default:
		return fmt.Errorf("unknown transition speed %q (use slow, medium or fast)", speed)
	}

	indices, err := p.targets(index)
	if err != nil {
		return err
	}
	transition := `<p:transition spd="` + speed + `"`
	if advanceAfter > 0 {
		transition += ` advTm="` + itoa(int(advanceAfter*1000)) + `"`
	}
	transition += `>` + effect + `</p:transition>`
	for _, i := range indices {
		err := p.editSlide(i, func(_ Slide, content string) (string, error) {
			content = ooxml.RemoveElements(content, "p:transition")
			if kind == "none" {
				return content, nil
			}
			if i := strings.Index(content, "</p:clrMapOvr>"); i >= 0 {
				at := i + len("</p:clrMapOvr>")
				return content[:at] + transition + content[at:], nil
			}
			return ooxml.InsertBefore(content, transition, "<p:timing", "</p:sld>"), nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Animations are the entrance effects accepted by AddAnimation
var Animations = []string{"appear", "fade", "fly-in", "float-in", "split", "wipe", "zoom", "bounce", "spin", "pulse"}

// AddAnimation records an entrance effect for a shape as a hidden annotation,
// listed in the order effects were added
func (p *Presentation) AddAnimation(index int, target, effect string, delay float64) error {
	effect = strings.ToLower(effect)
	if !slices.Contains(Animations, effect) {
		return fmt.Errorf("unknown animation %q (available: %s)", effect, strings.Join(Animations, ", "))
	}
	return p.editSlide(index, func(_ Slide, content string) (string, error) {
		if target != "" && !hasShape(content, target) {
			return "", fmt.Errorf("slide %d has no shape named %q", index, target)
		}
		if target == "" {
			target = "all shapes"
		}
		text := fmt.Sprintf("Animation: %s on %s", effect, target)
		if delay > 0 {
			text += fmt.Sprintf(" after %gs", delay)
		}
		id := nextShapeID(content)
		box := Box{X: 0.5, Y: 9.2, W: 6, H: 0.4}
		return appendShape(content, TextBox(id, fmt.Sprintf("Animation %d", id-1), box, textParagraphs([]string{text}, TextStyle{FontSize: 10}), true)), nil
	})
}

func hasShape(content, name string) bool {
	for _, span := range shapeSpans(content) {
		if strings.EqualFold(shapeName(content[span.Start:span.End]), name) {
			return true
		}
	}
	return false
}

func animationsOf(content string) []string {
	var out []string
	for _, span := range ooxml.Elements(content, "p:sp") {
		shape := content[span.Start:span.End]
		if strings.HasPrefix(shapeName(shape), "Animation ") {
			out = append(out, paragraphTexts(shape)...)
		}
	}
	return out
}

// ApplyTheme replaces the colour and font scheme of the deck
func (p *Presentation) ApplyTheme(name string) error {
	theme, ok := Themes[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(Themes))
		for n := range Themes {
			names = append(names, n)
		}
		slices.Sort(names)
		return fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(names, ", "))
	}
	part, err := p.themePart()
	if err != nil {
		return err
	}
	p.pkg.SetPartString(part, themeXML(theme))
	return nil
}

func (p *Presentation) themePart() (string, error) {
	rels, err := p.pkg.Rels(p.main)
	if err != nil {
		return "", err
	}
	for _, rel := range rels.OfType(ooxml.RelTheme) {
		return ooxml.ResolveTarget(p.main, rel.Target), nil
	}
	return "", fmt.Errorf("presentation has no theme")
}

// ThemeName returns the name of the deck's theme
func (p *Presentation) ThemeName() string {
	part, err := p.themePart()
	if err != nil {
		return ""
	}
	content := p.pkg.PartString(part)
	if i := ooxml.IndexTag(content, "<a:theme"); i >= 0 {
		return ooxml.Attr(content[i:i+strings.Index(content[i:], ">")+1], "name")
	}
	return ""
}

const (
	numberShape = "Slide Number"
	footerShape = "Footer"
)

// AddSlideNumbers places a slide number field on every slide, optionally skipping the first
func (p *Presentation) AddSlideNumbers(skipFirst bool) (int, error) {
	count := 0
	for _, s := range p.Slides() {
		content := removeShapes(p.slideXML(s), numberShape)
		if !(skipFirst && s.Index == 1) {
			field := SlideNumberField(fieldID(), s.Index, TextStyle{FontSize: 12, Color: "7F7F7F"})
			content = appendShape(content, TextBox(nextShapeID(content), numberShape, NumberBox, field, false))
			count++
		}
		p.setSlideXML(s, content)
	}
	return count, nil
}

// SetFooter places footer text on every slide, optionally skipping the first
func (p *Presentation) SetFooter(text string, skipFirst bool) (int, error) {
	count := 0
	for _, s := range p.Slides() {
		content := removeShapes(p.slideXML(s), footerShape)
		if text != "" && !(skipFirst && s.Index == 1) {
			body := textParagraphs([]string{text}, TextStyle{FontSize: 12, Color: "7F7F7F", Align: "center"})
			content = appendShape(content, TextBox(nextShapeID(content), footerShape, FooterBox, body, false))
			count++
		}
		p.setSlideXML(s, content)
	}
	return count, nil
}

// AddSection inserts a section header slide after position (0 appends) and returns its position
func (p *Presentation) AddSection(name, subtitle string, after int) (int, error) {
	if after != 0 {
		if _, err := p.Slide(after); err != nil {
			return 0, err
		}
	}
	return p.InsertSlide(after, SlideOptions{Layout: LayoutSectionHeader, Title: name, Subtitle: subtitle})
}

// Sections lists the titles of section header slides
func (p *Presentation) Sections() []string {
	var out []string
	for _, s := range p.Slides() {
		if p.SlideLayout(s).Type == "secHead" {
			out = append(out, slideTitle(p.slideXML(s)))
		}
	}
	return out
}

// AddVideoPlaceholder places a labelled frame standing in for a video. An http(s)
// source becomes a link on the label.
func (p *Presentation) AddVideoPlaceholder(index int, source, title string, box Box) error {
	return p.editSlide(index, func(s Slide, content string) (string, error) {
		label := title
		if label == "" {
			label = "Video"
		}
		style := TextStyle{FontSize: 20, Color: "FFFFFF", Align: "center"}
		lines := []string{"▶ " + label}
		if source != "" {
			lines = append(lines, source)
		}
		body := textParagraphs(lines[:1], style)
		if source != "" {
			sourceStyle := TextStyle{FontSize: 12, Color: "D9D9D9", Align: "center"}
			if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
				relID, err := p.pkg.LinkExternal(s.Part, ooxml.RelHyperlink, source)
				if err != nil {
					return "", err
				}
				sourceStyle.LinkRelID = relID
			}
			body += textParagraphs(lines[1:], sourceStyle)
		}
		id := nextShapeID(content)
		return appendShape(content, AutoShape(id, fmt.Sprintf("Video %d", id-1), "rect", box, "000000", "404040", body)), nil
	})
}
