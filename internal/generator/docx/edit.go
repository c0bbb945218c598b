package docx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strings"

	"github.com/sammcj/mcp-office/internal/ooxml"
)

// AddParagraph appends a paragraph of text
func (d *Document) AddParagraph(text string, run RunStyle, para ParagraphStyle) error {
	if para.Style != "" && !d.HasStyle(para.Style) {
		if err := d.EnsureStyle(para.Style); err != nil {
			return err
		}
	}
	d.Append(Paragraph(para, Run(text, run)))
	return nil
}

// AddHeading appends a heading; level 0 is the document title
func (d *Document) AddHeading(text string, level int) error {
	if err := d.EnsureStyle(headingStyleID(level)); err != nil {
		return err
	}
	d.Append(Heading(text, level))
	return nil
}

// AddTable appends a table
func (d *Document) AddTable(rows [][]string, opts TableOptions) error {
	if len(rows) == 0 {
		return fmt.Errorf("table needs at least one row")
	}
	if opts.Style == "" || opts.Style == "TableGrid" {
		if err := d.EnsureStyle("TableGrid"); err != nil {
			return err
		}
	}
	d.Append(Table(rows, opts))
	return nil
}

// AddPageBreak appends a page break
func (d *Document) AddPageBreak() {
	d.Append(PageBreak())
}

// AddList appends one paragraph per item
func (d *Document) AddList(items []string, numbered bool) error {
	if len(items) == 0 {
		return fmt.Errorf("list needs at least one item")
	}
	if err := d.ensureNumbering(); err != nil {
		return err
	}
	if err := d.EnsureStyle("ListParagraph"); err != nil {
		return err
	}
	numID := bulletNumID
	if numbered {
		id, err := d.restartNumbering()
		if err != nil {
			return err
		}
		numID = id
	}
	blocks := make([]string, 0, len(items))
	for _, item := range items {
		level := 0
		for strings.HasPrefix(item, "  ") && level < 2 {
			item = item[2:]
			level++
		}
		blocks = append(blocks, Paragraph(ParagraphStyle{Style: "ListParagraph", NumID: numID, Level: level}, Run(item, RunStyle{})))
	}
	d.Append(blocks...)
	return nil
}

// AddHyperlink appends a paragraph with optional leading text and a link.
// Targets starting with "#" link to a bookmark.
func (d *Document) AddHyperlink(text, target, before string) error {
	if err := d.EnsureStyle("Hyperlink"); err != nil {
		return err
	}
	var inline []string
	if before != "" {
		inline = append(inline, Run(before, RunStyle{}))
	}
	if anchor, ok := strings.CutPrefix(target, "#"); ok {
		inline = append(inline, AnchorRun(anchor, text))
	} else {
		id, err := d.pkg.LinkExternal(d.main, ooxml.RelHyperlink, target)
		if err != nil {
			return err
		}
		inline = append(inline, HyperlinkRun(id, text))
	}
	d.Append(Paragraph(ParagraphStyle{}, inline...))
	return nil
}

// Default image size when the format cannot be decoded
const (
	fallbackImageWidth  = 400
	fallbackImageHeight = 300
)

// AddImage embeds an image. A zero width or height is derived from the image
// keeping its aspect ratio.
func (d *Document) AddImage(data []byte, ext string, width, height int, altText string, align string) error {
	relID, err := d.pkg.AddMedia(d.main, "word/media", ext, data)
	if err != nil {
		return err
	}
	w, h := fallbackImageWidth, fallbackImageHeight
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		w, h = cfg.Width, cfg.Height
	}
	switch {
	case width > 0 && height > 0:
		w, h = width, height
	case width > 0:
		h = h * width / w
		w = width
	case height > 0:
		w = w * height / h
		h = height
	}
	id := strings.Count(d.xml, "<wp:docPr") + 1
	name := fmt.Sprintf("Picture %d", id)
	d.Append(Paragraph(ParagraphStyle{Align: align}, InlineImage(relID, id, w, h, name, altText)))
	return nil
}

// ReplaceText replaces find in every paragraph and returns the number of
// replacements. A match that spans runs takes the formatting of the run where
// it starts.
func (d *Document) ReplaceText(find, replace string, matchCase bool) (int, error) {
	if find == "" {
		return 0, fmt.Errorf("search text cannot be empty")
	}
	pattern := regexp.QuoteMeta(find)
	if !matchCase {
		pattern = "(?i)" + pattern
	}
	re := regexp.MustCompile(pattern)

	total := 0
	rewrite := func(doc string) string {
		spans := ooxml.Elements(doc, "w:p")
		for i := len(spans) - 1; i >= 0; i-- {
			s := spans[i]
			p, n := replaceInParagraph(doc[s.Start:s.End], re, replace)
			if n == 0 {
				continue
			}
			total += n
			doc = doc[:s.Start] + p + doc[s.End:]
		}
		return doc
	}

	d.xml = rewrite(d.xml)
	for _, relType := range []string{ooxml.RelHeader, ooxml.RelFooter} {
		rels, err := d.pkg.Rels(d.main)
		if err != nil {
			return total, err
		}
		for _, rel := range rels.OfType(relType) {
			part := ooxml.ResolveTarget(d.main, rel.Target)
			d.pkg.SetPartString(part, rewrite(d.pkg.PartString(part)))
		}
	}
	return total, nil
}

var textElementPattern = regexp.MustCompile(`(<w:t(?: [^>]*)?>)([^<]*)(</w:t>)`)

// replaceInParagraph matches against the concatenated w:t text of a paragraph.
// A match that spans runs is written into the text node where it starts and
// trimmed from the nodes it continues into. Everything outside w:t elements
// is left untouched.
func replaceInParagraph(p string, re *regexp.Regexp, replace string) (string, int) {
	locs := textElementPattern.FindAllStringSubmatchIndex(p, -1)
	if len(locs) == 0 {
		return p, 0
	}
	var full strings.Builder
	bounds := make([]int, len(locs)+1)
	for i, loc := range locs {
		bounds[i] = full.Len()
		full.WriteString(ooxml.Unescape(p[loc[4]:loc[5]]))
	}
	bounds[len(locs)] = full.Len()
	text := full.String()

	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return p, 0
	}

	var out strings.Builder
	last := 0
	for i, loc := range locs {
		start, end := bounds[i], bounds[i+1]
		var node strings.Builder
		cursor, touched := start, false
		for _, m := range matches {
			if m[1] <= start || m[0] >= end {
				continue
			}
			node.WriteString(text[cursor:max(m[0], start)])
			if m[0] >= start {
				node.WriteString(replace)
			}
			cursor = min(m[1], end)
			touched = true
		}
		if !touched {
			continue
		}
		node.WriteString(text[cursor:end])
		out.WriteString(p[last:loc[0]])
		out.WriteString(`<w:t xml:space="preserve">` + ooxml.Escape(node.String()) + `</w:t>`)
		last = loc[1]
	}
	out.WriteString(p[last:])
	return out.String(), len(matches)
}

// HeaderFooter selects the part kind for SetHeader and SetFooter
type HeaderFooter int

const (
	Header HeaderFooter = iota
	Footer
)

func (k HeaderFooter) names() (tag, relType, contentType, prefix, reference string) {
	if k == Footer {
		return "w:ftr", ooxml.RelFooter, typeFooter, "word/footer", "w:footerReference"
	}
	return "w:hdr", ooxml.RelHeader, typeHeader, "word/header", "w:headerReference"
}

// SetHeaderFooter replaces the default header or footer with the given
// paragraphs and references it from the final section
func (d *Document) SetHeaderFooter(kind HeaderFooter, paragraphs ...string) error {
	tag, relType, contentType, prefix, reference := kind.names()
	content := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<` + tag + ` ` + rootNamespaces + `>` + strings.Join(paragraphs, "") + `</` + tag + `>`

	sect, err := d.SectionProperties()
	if err != nil {
		return err
	}
	// reuse the part the default reference points at
	for _, c := range sect.Children {
		if c.Name != reference || ooxml.Attr(c.Raw, "w:type") != "default" {
			continue
		}
		rels, err := d.pkg.Rels(d.main)
		if err != nil {
			return err
		}
		if rel, ok := rels.Get(ooxml.Attr(c.Raw, "r:id")); ok {
			d.pkg.SetPartString(ooxml.ResolveTarget(d.main, rel.Target), content)
			return nil
		}
	}

	part := d.pkg.NextName(prefix, ".xml")
	d.pkg.SetPartString(part, content)
	if err := d.pkg.SetOverride(part, contentType); err != nil {
		return err
	}
	id, err := d.pkg.Link(d.main, relType, part)
	if err != nil {
		return err
	}
	sect.Insert(reference, `<`+reference+` w:type="default" r:id="`+id+`"/>`, sectPrOrder)
	d.SetSectionProperties(sect)
	return nil
}

// HeaderFooterText returns the text of the default header or footer
func (d *Document) HeaderFooterText(kind HeaderFooter) string {
	_, relType, _, _, _ := kind.names()
	rels, err := d.pkg.Rels(d.main)
	if err != nil {
		return ""
	}
	var parts []string
	for _, rel := range rels.OfType(relType) {
		doc := d.pkg.PartString(ooxml.ResolveTarget(d.main, rel.Target))
		for _, s := range ooxml.Elements(doc, "w:p") {
			parts = append(parts, paragraphText(doc[s.Start:s.End]))
		}
	}
	return strings.Join(parts, "\n")
}

// PageNumberParagraph renders "Page X of Y" style fields. Format may contain
// {PAGE} and {NUMPAGES}; the default is "Page {PAGE} of {NUMPAGES}".
func PageNumberParagraph(format, align string) string {
	if format == "" {
		format = "Page {PAGE} of {NUMPAGES}"
	}
	var inline []string
	rest := format
	for rest != "" {
		i := strings.Index(rest, "{")
		if i < 0 {
			inline = append(inline, Run(rest, RunStyle{}))
			break
		}
		if i > 0 {
			inline = append(inline, Run(rest[:i], RunStyle{}))
		}
		rest = rest[i:]
		switch {
		case strings.HasPrefix(rest, "{PAGE}"):
			inline = append(inline, Field("PAGE", "1", RunStyle{}))
			rest = rest[len("{PAGE}"):]
		case strings.HasPrefix(rest, "{NUMPAGES}"):
			inline = append(inline, Field("NUMPAGES", "1", RunStyle{}))
			rest = rest[len("{NUMPAGES}"):]
		default:
			inline = append(inline, Run("{", RunStyle{}))
			rest = rest[1:]
		}
	}
	if align == "" {
		align = "center"
	}
	return Paragraph(ParagraphStyle{Align: align}, inline...)
}

// AddTableOfContents appends a TOC heading and field, and asks Word to
// refresh fields on open
func (d *Document) AddTableOfContents(title string, maxLevel int) error {
	if maxLevel < 1 || maxLevel > 9 {
		maxLevel = 3
	}
	if title == "" {
		title = "Contents"
	}
	if err := d.EnsureStyle("TOCHeading"); err != nil {
		return err
	}
	d.Append(
		Paragraph(ParagraphStyle{Style: "TOCHeading"}, Run(title, RunStyle{})),
		Paragraph(ParagraphStyle{}, Field(fmt.Sprintf(`TOC \o "1-%d" \h \z \u`, maxLevel), "Right-click to update the table of contents.", RunStyle{})),
	)
	return d.SetSetting("w:updateFields", `<w:updateFields w:val="true"/>`)
}

// Section break kinds
var sectionBreakTypes = map[string]string{
	"nextPage":   "nextPage",
	"continuous": "continuous",
	"evenPage":   "evenPage",
	"oddPage":    "oddPage",
	"nextColumn": "nextColumn",
}

// AddSectionBreak ends the current section. The closing section keeps the
// current page setup; the new one starts with the given break type.
func (d *Document) AddSectionBreak(kind string) error {
	if kind == "" {
		kind = "nextPage"
	}
	breakType, ok := sectionBreakTypes[kind]
	if !ok {
		return fmt.Errorf("unknown section break type %q", kind)
	}
	sect, err := d.SectionProperties()
	if err != nil {
		return err
	}
	closing := *sect
	closing.Children = append([]ooxml.Child(nil), sect.Children...)
	// headers stay with the final section
	closing.Remove("w:headerReference")
	closing.Remove("w:footerReference")
	d.Append(`<w:p><w:pPr>` + closing.String() + `</w:pPr></w:p>`)

	sect.Set("w:type", `<w:type w:val="`+breakType+`"/>`, sectPrOrder)
	d.SetSectionProperties(sect)
	return nil
}

// SetMargins sets page margins in inches; zero keeps a side unchanged
func (d *Document) SetMargins(top, right, bottom, left float64) error {
	sect, err := d.SectionProperties()
	if err != nil {
		return err
	}
	current := map[string]string{"w:top": "1440", "w:right": "1440", "w:bottom": "1440", "w:left": "1440", "w:header": "720", "w:footer": "720", "w:gutter": "0"}
	if c, ok := sect.Get("w:pgMar"); ok {
		for k := range current {
			if v := ooxml.Attr(c.Raw, k); v != "" {
				current[k] = v
			}
		}
	}
	for k, v := range map[string]float64{"w:top": top, "w:right": right, "w:bottom": bottom, "w:left": left} {
		if v < 0 {
			return fmt.Errorf("margin %s cannot be negative", strings.TrimPrefix(k, "w:"))
		}
		if v > 0 {
			current[k] = itoa(int(v*1440 + 0.5))
		}
	}
	pgMar := `<w:pgMar`
	for _, k := range []string{"w:top", "w:right", "w:bottom", "w:left", "w:header", "w:footer", "w:gutter"} {
		pgMar += ` ` + k + `="` + current[k] + `"`
	}
	sect.Set("w:pgMar", pgMar+`/>`, sectPrOrder)
	d.SetSectionProperties(sect)
	return nil
}

// SetOrientation switches the final section between portrait and landscape
func (d *Document) SetOrientation(landscape bool) error {
	sect, err := d.SectionProperties()
	if err != nil {
		return err
	}
	w, h := "12240", "15840"
	if c, ok := sect.Get("w:pgSz"); ok {
		if v := ooxml.Attr(c.Raw, "w:w"); v != "" {
			w = v
		}
		if v := ooxml.Attr(c.Raw, "w:h"); v != "" {
			h = v
		}
	}
	short, long := w, h
	if atoiOr(w, 0) > atoiOr(h, 0) {
		short, long = h, w
	}
	pgSz := `<w:pgSz w:w="` + short + `" w:h="` + long + `"/>`
	if landscape {
		pgSz = `<w:pgSz w:w="` + long + `" w:h="` + short + `" w:orient="landscape"/>`
	}
	sect.Set("w:pgSz", pgSz, sectPrOrder)
	d.SetSectionProperties(sect)
	return nil
}

// SetColumns lays the final section out in count columns, spacing in inches
func (d *Document) SetColumns(count int, spacing float64, separator bool) error {
	if count < 1 || count > 45 {
		return fmt.Errorf("column count must be between 1 and 45")
	}
	if spacing <= 0 {
		spacing = 0.5
	}
	sect, err := d.SectionProperties()
	if err != nil {
		return err
	}
	cols := `<w:cols w:num="` + itoa(count) + `" w:space="` + itoa(int(spacing*1440+0.5)) + `"`
	if separator {
		cols += ` w:sep="1"`
	}
	sect.Set("w:cols", cols+`/>`, sectPrOrder)
	d.SetSectionProperties(sect)
	return nil
}

func atoiOr(s string, fallback int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// settingsOrder lists the settings children this package writes, in schema order
var settingsOrder = []string{
	"<w:writeProtection", "<w:view", "<w:zoom", "<w:removePersonalInformation", "<w:removeDateAndTime",
	"<w:doNotDisplayPageBoundaries", "<w:displayBackgroundShape", "<w:printPostScriptOverText",
	"<w:printFractionalCharacterWidth", "<w:printFormsData", "<w:embedTrueTypeFonts", "<w:embedSystemFonts",
	"<w:saveSubsetFonts", "<w:saveFormsData", "<w:mirrorMargins", "<w:alignBordersAndEdges",
	"<w:bordersDoNotSurroundHeader", "<w:bordersDoNotSurroundFooter", "<w:gutterAtTop", "<w:hideSpellingErrors",
	"<w:hideGrammaticalErrors", "<w:activeWritingStyle", "<w:proofState", "<w:formsDesign", "<w:attachedTemplate",
	"<w:linkStyles", "<w:stylePaneFormatFilter", "<w:stylePaneSortMethod", "<w:documentType", "<w:mailMerge",
	"<w:revisionView", "<w:trackRevisions", "<w:doNotTrackMoves", "<w:doNotTrackFormatting", "<w:documentProtection",
	"<w:autoFormatOverride", "<w:styleLockTheme", "<w:styleLockQFSet", "<w:defaultTabStop", "<w:autoHyphenation",
	"<w:consecutiveHyphenLimit", "<w:hyphenationZone", "<w:doNotHyphenateCaps", "<w:showEnvelope",
	"<w:summaryLength", "<w:clickAndTypeStyle", "<w:defaultTableStyle", "<w:evenAndOddHeaders",
	"<w:bookFoldRevPrinting", "<w:bookFoldPrinting", "<w:bookFoldPrintingSheets",
	"<w:drawingGridHorizontalSpacing", "<w:drawingGridVerticalSpacing", "<w:displayHorizontalDrawingGridEvery",
	"<w:displayVerticalDrawingGridEvery", "<w:doNotUseMarginsForDrawingGridOrigin",
	"<w:drawingGridHorizontalOrigin", "<w:drawingGridVerticalOrigin", "<w:doNotShadeFormData",
	"<w:noPunctuationKerning", "<w:characterSpacingControl", "<w:printTwoOnOne", "<w:strictFirstAndLastChars",
	"<w:noLineBreaksAfter", "<w:noLineBreaksBefore", "<w:savePreviewPicture", "<w:doNotValidateAgainstSchema",
	"<w:saveInvalidXml", "<w:ignoreMixedContent", "<w:alwaysShowPlaceholderText", "<w:doNotDemarcateInvalidXml",
	"<w:saveXmlDataOnly", "<w:useXSLTWhenSaving", "<w:saveThroughXslt", "<w:showXMLTags",
	"<w:alwaysMergeEmptyNamespace", "<w:updateFields", "<w:hdrShapeDefaults", "<w:footnotePr", "<w:endnotePr",
	"<w:compat", "<w:docVars", "<w:rsids", "<m:mathPr", "<w:attachedSchema", "<w:themeFontLang",
	"<w:clrSchemeMapping", "<w:doNotIncludeSubdocsInStats", "<w:doNotAutoCompressPictures", "<w:forceUpgrade",
	"<w:captions", "<w:readModeInkLockDown", "<w:smartTagType", "<sl:schemaLibrary", "<w:shapeDefaults",
	"<w:doNotEmbedSmartTags", "<w:decimalSymbol", "<w:listSeparator",
}

// SetSetting replaces or inserts a settings element (name like "w:trackRevisions").
// An empty fragment removes it.
func (d *Document) SetSetting(name, fragment string) error {
	part, settings, err := d.settings()
	if err != nil {
		return err
	}
	settings = ooxml.RemoveElements(settings, name)
	if fragment != "" {
		rank := -1
		for i, m := range settingsOrder {
			if m == "<"+name {
				rank = i
			}
		}
		at := -1
		if rank >= 0 {
			for _, m := range settingsOrder[rank+1:] {
				if i := ooxml.IndexTag(settings, m); i >= 0 && (at < 0 || i < at) {
					at = i
				}
			}
		}
		if at < 0 {
			settings = ooxml.InsertBeforeLast(settings, fragment, "</w:settings>")
		} else {
			settings = settings[:at] + fragment + settings[at:]
		}
	}
	d.pkg.SetPartString(part, settings)
	return nil
}

// Setting reports whether the settings part has an element of that name
func (d *Document) Setting(name string) bool {
	part, _ := d.auxPart(ooxml.RelSettings)
	return part != "" && len(ooxml.Elements(d.pkg.PartString(part), name)) > 0
}

// SetTrackChanges turns revision tracking on or off
func (d *Document) SetTrackChanges(enabled bool) error {
	if enabled {
		return d.SetSetting("w:trackRevisions", `<w:trackRevisions/>`)
	}
	return d.SetSetting("w:trackRevisions", "")
}
