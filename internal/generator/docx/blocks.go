package docx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sammcj/mcp-office/internal/ooxml"
)

// RunStyle is character formatting
type RunStyle struct {
	Bold        bool
	Italic      bool
	Underline   bool
	Strike      bool
	Superscript bool
	Code        bool
	FontSize    float64
	Color       string
	Font        string
	Highlight   string
	CharStyle   string
}

// ParagraphStyle is paragraph formatting. Spacing and indents are in points.
type ParagraphStyle struct {
	Style           string
	Align           string
	SpaceBefore     float64
	SpaceAfter      float64
	LineSpacing     float64
	IndentLeft      float64
	KeepNext        bool
	PageBreakBefore bool
	NumID           int
	Level           int
	Border          bool
	Shading         string
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func twips(points float64) string {
	return strconv.Itoa(int(points*20 + 0.5))
}

func attr(s string) string {
	return strings.ReplaceAll(ooxml.Escape(s), `"`, "&quot;")
}

func (s RunStyle) properties() string {
	var b strings.Builder
	if s.CharStyle != "" {
		b.WriteString(`<w:rStyle w:val="` + attr(s.CharStyle) + `"/>`)
	}
	font := s.Font
	if s.Code && font == "" {
		font = "Consolas"
	}
	if font != "" {
		f := attr(font)
		b.WriteString(`<w:rFonts w:ascii="` + f + `" w:hAnsi="` + f + `" w:cs="` + f + `"/>`)
	}
	if s.Bold {
		b.WriteString(`<w:b/><w:bCs/>`)
	}
	if s.Italic {
		b.WriteString(`<w:i/><w:iCs/>`)
	}
	if s.Strike {
		b.WriteString(`<w:strike/>`)
	}
	if s.Color != "" {
		b.WriteString(`<w:color w:val="` + attr(strings.TrimPrefix(strings.ToUpper(s.Color), "#")) + `"/>`)
	}
	if s.FontSize > 0 {
		hp := itoa(int(s.FontSize*2 + 0.5))
		b.WriteString(`<w:sz w:val="` + hp + `"/><w:szCs w:val="` + hp + `"/>`)
	}
	if s.Highlight != "" {
		b.WriteString(`<w:highlight w:val="` + attr(s.Highlight) + `"/>`)
	}
	if s.Underline {
		b.WriteString(`<w:u w:val="single"/>`)
	}
	if s.Superscript {
		b.WriteString(`<w:vertAlign w:val="superscript"/>`)
	}
	if b.Len() == 0 {
		return ""
	}
	return "<w:rPr>" + b.String() + "</w:rPr>"
}

// Run renders text as a run. Line breaks and tabs become w:br and w:tab.
func Run(text string, style RunStyle) string {
	var b strings.Builder
	b.WriteString("<w:r>")
	b.WriteString(style.properties())
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		for j, part := range strings.Split(line, "\t") {
			if j > 0 {
				b.WriteString("<w:tab/>")
			}
			if part != "" {
				b.WriteString(`<w:t xml:space="preserve">` + ooxml.Escape(part) + `</w:t>`)
			}
		}
	}
	b.WriteString("</w:r>")
	return b.String()
}

func (p ParagraphStyle) properties() string {
	e := &ooxml.Element{Name: "w:pPr", Open: "<w:pPr>"}
	if p.Style != "" {
		e.Set("w:pStyle", `<w:pStyle w:val="`+attr(p.Style)+`"/>`, pPrOrder)
	}
	if p.KeepNext {
		e.Set("w:keepNext", `<w:keepNext/>`, pPrOrder)
	}
	if p.PageBreakBefore {
		e.Set("w:pageBreakBefore", `<w:pageBreakBefore/>`, pPrOrder)
	}
	if p.NumID > 0 {
		e.Set("w:numPr", `<w:numPr><w:ilvl w:val="`+itoa(p.Level)+`"/><w:numId w:val="`+itoa(p.NumID)+`"/></w:numPr>`, pPrOrder)
	}
	if p.Border {
		side := `w:val="single" w:sz="6" w:space="4" w:color="auto"`
		e.Set("w:pBdr", `<w:pBdr><w:top `+side+`/><w:left `+side+`/><w:bottom `+side+`/><w:right `+side+`/></w:pBdr>`, pPrOrder)
	}
	if p.Shading != "" {
		e.Set("w:shd", `<w:shd w:val="clear" w:color="auto" w:fill="`+attr(strings.TrimPrefix(p.Shading, "#"))+`"/>`, pPrOrder)
	}
	if spacing := spacingElement(p.SpaceBefore, p.SpaceAfter, p.LineSpacing); spacing != "" {
		e.Set("w:spacing", spacing, pPrOrder)
	}
	if p.IndentLeft > 0 {
		e.Set("w:ind", `<w:ind w:left="`+twips(p.IndentLeft)+`"/>`, pPrOrder)
	}
	if jc := justification(p.Align); jc != "" {
		e.Set("w:jc", `<w:jc w:val="`+jc+`"/>`, pPrOrder)
	}
	if len(e.Children) == 0 {
		return ""
	}
	return e.String()
}

func spacingElement(before, after, line float64) string {
	var b strings.Builder
	if before > 0 {
		b.WriteString(` w:before="` + twips(before) + `"`)
	}
	if after > 0 {
		b.WriteString(` w:after="` + twips(after) + `"`)
	}
	if line > 0 {
		// auto line rule counts in 240ths of a line
		b.WriteString(` w:line="` + itoa(int(line*240+0.5)) + `" w:lineRule="auto"`)
	}
	if b.Len() == 0 {
		return ""
	}
	return "<w:spacing" + b.String() + "/>"
}

func justification(align string) string {
	switch strings.ToLower(align) {
	case "left", "start":
		return "left"
	case "center", "centre":
		return "center"
	case "right", "end":
		return "right"
	case "justify", "both":
		return "both"
	}
	return ""
}

// Paragraph wraps runs (or other inline markup) in a paragraph
func Paragraph(style ParagraphStyle, inline ...string) string {
	return "<w:p>" + style.properties() + strings.Join(inline, "") + "</w:p>"
}

// Heading is a paragraph in the HeadingN style; level 0 is the Title style
func Heading(text string, level int) string {
	return Paragraph(ParagraphStyle{Style: headingStyleID(level)}, Run(text, RunStyle{}))
}

func headingStyleID(level int) string {
	switch {
	case level <= 0:
		return "Title"
	case level > 6:
		return "Heading6"
	}
	return "Heading" + itoa(level)
}

// PageBreak is a paragraph holding only a page break
func PageBreak() string {
	return `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`
}

// TableOptions control table rendering
type TableOptions struct {
	Header      bool
	Style       string
	ColumnWidth []float64
	HeaderFill  string
}

// Table renders rows of text as a table. The first row repeats on every page
// when Header is set.
func Table(rows [][]string, opts TableOptions) string {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	style := opts.Style
	if style == "" {
		style = "TableGrid"
	}

	var b strings.Builder
	b.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="` + attr(style) + `"/><w:tblW w:w="5000" w:type="pct"/><w:tblLook w:val="04A0" w:firstRow="1" w:lastRow="0" w:firstColumn="1" w:lastColumn="0" w:noHBand="0" w:noVBand="1"/></w:tblPr>`)
	b.WriteString("<w:tblGrid>")
	for c := 0; c < cols; c++ {
		width := 9360 / max(cols, 1)
		if c < len(opts.ColumnWidth) && opts.ColumnWidth[c] > 0 {
			width = int(opts.ColumnWidth[c] * 1440)
		}
		b.WriteString(`<w:gridCol w:w="` + itoa(width) + `"/>`)
	}
	b.WriteString("</w:tblGrid>")

	for i, row := range rows {
		header := opts.Header && i == 0
		b.WriteString("<w:tr>")
		if header {
			b.WriteString("<w:trPr><w:tblHeader/></w:trPr>")
		}
		for c := 0; c < cols; c++ {
			text := ""
			if c < len(row) {
				text = row[c]
			}
			b.WriteString("<w:tc><w:tcPr>")
			b.WriteString(`<w:tcW w:w="0" w:type="auto"/>`)
			if header {
				fill := opts.HeaderFill
				if fill == "" {
					fill = "D9E2F3"
				}
				b.WriteString(`<w:shd w:val="clear" w:color="auto" w:fill="` + attr(strings.TrimPrefix(fill, "#")) + `"/>`)
			}
			b.WriteString("</w:tcPr>")
			b.WriteString(Paragraph(ParagraphStyle{}, Run(text, RunStyle{Bold: header})))
			b.WriteString("</w:tc>")
		}
		b.WriteString("</w:tr>")
	}
	b.WriteString("</w:tbl>")
	return b.String()
}

// HyperlinkRun is a clickable run pointing at an external relationship
func HyperlinkRun(relID, text string) string {
	return `<w:hyperlink r:id="` + relID + `" w:history="1">` + Run(text, RunStyle{CharStyle: "Hyperlink"}) + `</w:hyperlink>`
}

// AnchorRun is a clickable run pointing at a bookmark in the document
func AnchorRun(anchor, text string) string {
	return `<w:hyperlink w:anchor="` + attr(anchor) + `" w:history="1">` + Run(text, RunStyle{CharStyle: "Hyperlink"}) + `</w:hyperlink>`
}

// Field renders a complex field with cached placeholder text, which Word
// replaces when fields are updated
func Field(instruction, placeholder string, style RunStyle) string {
	rPr := style.properties()
	return `<w:r>` + rPr + `<w:fldChar w:fldCharType="begin" w:dirty="true"/></w:r>` +
		`<w:r>` + rPr + `<w:instrText xml:space="preserve"> ` + ooxml.Escape(instruction) + ` </w:instrText></w:r>` +
		`<w:r>` + rPr + `<w:fldChar w:fldCharType="separate"/></w:r>` +
		Run(placeholder, style) +
		`<w:r>` + rPr + `<w:fldChar w:fldCharType="end"/></w:r>`
}

// EMU per pixel at 96 DPI
const emuPerPixel = 9525

// InlineImage renders a drawing of an image relationship sized in pixels
func InlineImage(relID string, id, width, height int, name, description string) string {
	cx, cy := width*emuPerPixel, height*emuPerPixel
	return fmt.Sprintf(`<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0" xmlns:wp="%s">`+
		`<wp:extent cx="%d" cy="%d"/><wp:docPr id="%d" name="%s" descr="%s"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks xmlns:a="%s" noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic xmlns:a="%s"><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic xmlns:pic="%s"><pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`,
		nsWP, cx, cy, id, attr(name), attr(description), nsA, nsA, nsPic, id, attr(name), relID, cx, cy)
}

// Equation renders linear text as an Office Math paragraph
func Equation(text string, align string) string {
	jc := justification(align)
	if jc == "" || jc == "both" {
		jc = "center"
	}
	return `<w:p><m:oMathPara xmlns:m="` + nsM + `"><m:oMathParaPr><m:jc m:val="` + jc + `"/></m:oMathParaPr>` +
		`<m:oMath><m:r><m:t>` + ooxml.Escape(text) + `</m:t></m:r></m:oMath></m:oMathPara></w:p>`
}
