package pptx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sammcj/mcp-office/internal/ooxml"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

func attr(s string) string {
	return ooxml.Escape(s)
}

// Box is a position and size in inches
type Box struct {
	X, Y, W, H float64
}

func emu(inches float64) int {
	return int(inches*emuPerInch + 0.5)
}

func (b Box) xfrm(prefix string) string {
	return fmt.Sprintf(`<%s:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></%s:xfrm>`,
		prefix, emu(b.X), emu(b.Y), emu(b.W), emu(b.H), prefix)
}

// Standard positions on a 13.33 x 7.5 inch slide
var (
	TitleBox    = Box{X: 0.92, Y: 0.4, W: 11.5, H: 1.45}
	BodyBox     = Box{X: 0.92, Y: 2.0, W: 11.5, H: 4.75}
	CenterTitle = Box{X: 1.67, Y: 1.8, W: 10, H: 1.8}
	SubtitleBox = Box{X: 1.67, Y: 3.8, W: 10, H: 1.2}
	FooterBox   = Box{X: 4.42, Y: 6.95, W: 4.5, H: 0.4}
	NumberBox   = Box{X: 11.5, Y: 6.95, W: 1.4, H: 0.4}
)

// TextStyle is run and paragraph formatting for slide text
type TextStyle struct {
	FontSize   float64
	Bold       bool
	Italic     bool
	Underline  bool
	Color      string
	Font       string
	Align      string
	Bullets    bool
	LinkRelID  string
	LinkAction string
}

func (s TextStyle) runProperties() string {
	var attrs strings.Builder
	attrs.WriteString(`lang="en-US"`)
	if s.FontSize > 0 {
		attrs.WriteString(` sz="` + itoa(int(s.FontSize*100+0.5)) + `"`)
	}
	if s.Bold {
		attrs.WriteString(` b="1"`)
	}
	if s.Italic {
		attrs.WriteString(` i="1"`)
	}
	if s.Underline {
		attrs.WriteString(` u="sng"`)
	}
	attrs.WriteString(` dirty="0"`)

	var children strings.Builder
	if s.Color != "" {
		children.WriteString(`<a:solidFill><a:srgbClr val="` + attr(normalizeColor(s.Color)) + `"/></a:solidFill>`)
	}
	if s.Font != "" {
		children.WriteString(`<a:latin typeface="` + attr(s.Font) + `"/>`)
	}
	if s.LinkRelID != "" {
		click := `<a:hlinkClick r:id="` + s.LinkRelID + `"`
		if s.LinkAction != "" {
			click += ` action="` + s.LinkAction + `"`
		}
		children.WriteString(click + `/>`)
	}
	if children.Len() == 0 {
		return `<a:rPr ` + attrs.String() + `/>`
	}
	return `<a:rPr ` + attrs.String() + `>` + children.String() + `</a:rPr>`
}

func normalizeColor(c string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(c), "#"))
}

func alignment(align string) string {
	switch strings.ToLower(align) {
	case "center", "centre":
		return "ctr"
	case "right":
		return "r"
	case "justify":
		return "just"
	case "left":
		return "l"
	}
	return ""
}

// textParagraphs renders one a:p per line. With Bullets, leading pairs of
// spaces raise the list level.
func textParagraphs(lines []string, style TextStyle) string {
	if len(lines) == 0 {
		return `<a:p><a:endParaRPr lang="en-US"/></a:p>`
	}
	var b strings.Builder
	for _, line := range lines {
		level := 0
		for style.Bullets && strings.HasPrefix(line, "  ") && level < 4 {
			line = line[2:]
			level++
		}
		b.WriteString("<a:p>")
		var pPr []string
		if level > 0 {
			pPr = append(pPr, `lvl="`+itoa(level)+`"`)
		}
		if algn := alignment(style.Align); algn != "" {
			pPr = append(pPr, `algn="`+algn+`"`)
		}
		if len(pPr) > 0 {
			b.WriteString(`<a:pPr ` + strings.Join(pPr, " ") + `/>`)
		}
		if line == "" {
			b.WriteString(`<a:endParaRPr lang="en-US"/></a:p>`)
			continue
		}
		b.WriteString(`<a:r>` + style.runProperties() + `<a:t>` + ooxml.Escape(line) + `</a:t></a:r></a:p>`)
	}
	return b.String()
}

// bulletParagraphs renders lines with explicit bullets for shapes that do
// not inherit the master's body style
func bulletParagraphs(lines []string, style TextStyle) string {
	var b strings.Builder
	for _, line := range lines {
		level := 0
		for strings.HasPrefix(line, "  ") && level < 4 {
			line = line[2:]
			level++
		}
		marL := 342900 + level*457200
		b.WriteString(`<a:p><a:pPr marL="` + itoa(marL) + `" indent="-342900"`)
		if level > 0 {
			b.WriteString(` lvl="` + itoa(level) + `"`)
		}
		b.WriteString(`><a:buFont typeface="Arial"/><a:buChar char="&#8226;"/></a:pPr>`)
		b.WriteString(`<a:r>` + style.runProperties() + `<a:t>` + ooxml.Escape(line) + `</a:t></a:r></a:p>`)
	}
	return b.String()
}

// Placeholder renders a shape bound to a layout placeholder (type "title",
// "ctrTitle", "subTitle", "body" or "" for the content placeholder)
func Placeholder(id int, name, phType string, idx int, box Box, body string) string {
	ph := `<p:ph`
	if phType != "" {
		ph += ` type="` + phType + `"`
	}
	if idx > 0 {
		ph += ` idx="` + itoa(idx) + `"`
	}
	ph += `/>`
	return `<p:sp><p:nvSpPr><p:cNvPr id="` + itoa(id) + `" name="` + attr(name) + `"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr>` + ph + `</p:nvPr></p:nvSpPr>` +
		`<p:spPr>` + box.xfrm("a") + `</p:spPr><p:txBody><a:bodyPr><a:normAutofit/></a:bodyPr><a:lstStyle/>` + body + `</p:txBody></p:sp>`
}

// TextBox renders a free text shape. Hidden shapes are kept out of the slide show.
func TextBox(id int, name string, box Box, body string, hidden bool) string {
	cNvPr := `<p:cNvPr id="` + itoa(id) + `" name="` + attr(name) + `"`
	if hidden {
		cNvPr += ` hidden="1"`
	}
	return `<p:sp><p:nvSpPr>` + cNvPr + `/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>` +
		`<p:spPr>` + box.xfrm("a") + `<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>` +
		`<p:txBody><a:bodyPr wrap="square" rtlCol="0"><a:spAutoFit/></a:bodyPr><a:lstStyle/>` + body + `</p:txBody></p:sp>`
}

// ShapeTypes lists the preset geometries accepted by AddShape
var ShapeTypes = []string{
	"rect", "roundRect", "ellipse", "triangle", "rtTriangle", "diamond", "pentagon", "hexagon", "octagon",
	"star5", "star6", "rightArrow", "leftArrow", "upArrow", "downArrow", "chevron", "heart", "cloud",
	"wedgeRectCallout", "flowChartProcess", "flowChartDecision", "can", "cube", "plus", "donut",
}

// AutoShape renders a preset geometry with optional fill, outline and centred text
func AutoShape(id int, name, geometry string, box Box, fill, line, body string) string {
	var spPr strings.Builder
	spPr.WriteString(box.xfrm("a"))
	spPr.WriteString(`<a:prstGeom prst="` + attr(geometry) + `"><a:avLst/></a:prstGeom>`)
	if fill != "" {
		spPr.WriteString(`<a:solidFill><a:srgbClr val="` + attr(normalizeColor(fill)) + `"/></a:solidFill>`)
	}
	if line != "" {
		spPr.WriteString(`<a:ln w="12700"><a:solidFill><a:srgbClr val="` + attr(normalizeColor(line)) + `"/></a:solidFill></a:ln>`)
	}
	if body == "" {
		body = `<a:p><a:endParaRPr lang="en-US"/></a:p>`
	}
	return `<p:sp><p:nvSpPr><p:cNvPr id="` + itoa(id) + `" name="` + attr(name) + `"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>` +
		`<p:spPr>` + spPr.String() + `</p:spPr>` +
		`<p:style><a:lnRef idx="2"><a:schemeClr val="accent1"><a:shade val="50000"/></a:schemeClr></a:lnRef><a:fillRef idx="1"><a:schemeClr val="accent1"/></a:fillRef>` +
		`<a:effectRef idx="0"><a:schemeClr val="accent1"/></a:effectRef><a:fontRef idx="minor"><a:schemeClr val="lt1"/></a:fontRef></p:style>` +
		`<p:txBody><a:bodyPr rtlCol="0" anchor="ctr"/><a:lstStyle/>` + body + `</p:txBody></p:sp>`
}

// Picture renders an image relationship
func Picture(id int, name, relID string, box Box, description string) string {
	return `<p:pic><p:nvPicPr><p:cNvPr id="` + itoa(id) + `" name="` + attr(name) + `" descr="` + attr(description) + `"/>` +
		`<p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>` +
		`<p:blipFill><a:blip r:embed="` + relID + `"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>` +
		`<p:spPr>` + box.xfrm("a") + `<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`
}

// TableFrame renders rows as a native table
func TableFrame(id int, name string, box Box, rows [][]string, header bool, fontSize float64) string {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if fontSize <= 0 {
		fontSize = 14
	}
	colWidth := emu(box.W) / max(cols, 1)
	rowHeight := emu(box.H) / max(len(rows), 1)

	var b strings.Builder
	b.WriteString(`<p:graphicFrame><p:nvGraphicFramePr><p:cNvPr id="` + itoa(id) + `" name="` + attr(name) + `"/>`)
	b.WriteString(`<p:cNvGraphicFramePr><a:graphicFrameLocks noGrp="1"/></p:cNvGraphicFramePr><p:nvPr/></p:nvGraphicFramePr>`)
	b.WriteString(box.xfrm("p"))
	b.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl>`)
	firstRow := "0"
	if header {
		firstRow = "1"
	}
	b.WriteString(`<a:tblPr firstRow="` + firstRow + `" bandRow="1"><a:tableStyleId>` + defaultTableStyle + `</a:tableStyleId></a:tblPr><a:tblGrid>`)
	for c := 0; c < cols; c++ {
		b.WriteString(`<a:gridCol w="` + itoa(colWidth) + `"/>`)
	}
	b.WriteString(`</a:tblGrid>`)
	for _, row := range rows {
		b.WriteString(`<a:tr h="` + itoa(rowHeight) + `">`)
		for c := 0; c < cols; c++ {
			text := ""
			if c < len(row) {
				text = row[c]
			}
			b.WriteString(`<a:tc><a:txBody><a:bodyPr/><a:lstStyle/>`)
			b.WriteString(textParagraphs([]string{text}, TextStyle{FontSize: fontSize}))
			b.WriteString(`</a:txBody><a:tcPr/></a:tc>`)
		}
		b.WriteString(`</a:tr>`)
	}
	b.WriteString(`</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`)
	return b.String()
}

// fieldID returns a field identifier in the braced GUID form PowerPoint writes
func fieldID() string {
	return "{" + strings.ToUpper(uuid.NewString()) + "}"
}

// SlideNumberField renders a paragraph holding a slide number field
func SlideNumberField(fieldID string, number int, style TextStyle) string {
	algn := alignment(style.Align)
	if algn == "" {
		algn = "r"
	}
	return `<a:p><a:pPr algn="` + algn + `"/><a:fld id="` + fieldID + `" type="slidenum">` + style.runProperties() + `<a:t>` + itoa(number) + `</a:t></a:fld></a:p>`
}
