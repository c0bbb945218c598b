package docx

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/sammcj/mcp-office/internal/ooxml"
)

const blankComments = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:comments xmlns:w="` + nsW + `" xmlns:r="` + nsR + `"></w:comments>`

// AddComment attaches a comment to the first paragraph containing anchor, or
// to the last paragraph when anchor is empty
func (d *Document) AddComment(text, author, anchor string) error {
	if author == "" {
		author = "mcp-office"
	}
	part, err := d.ensurePart(ooxml.RelComments, commentsPart, typeComments, blankComments)
	if err != nil {
		return err
	}
	comments := d.pkg.PartString(part)
	id := len(ooxml.Elements(comments, "w:comment"))
	for strings.Contains(comments, `w:id="`+itoa(id)+`"`) {
		id++
	}

	target, err := d.findParagraph(anchor)
	if err != nil {
		return err
	}

	initials := ""
	for _, f := range strings.Fields(author) {
		initials += strings.ToUpper(string([]rune(f)[0]))
	}
	comment := fmt.Sprintf(`<w:comment w:id="%d" w:author="%s" w:date="%s" w:initials="%s">%s</w:comment>`,
		id, attr(author), time.Now().UTC().Format(time.RFC3339), attr(initials),
		Paragraph(ParagraphStyle{}, Run(text, RunStyle{})))
	d.pkg.SetPartString(part, ooxml.InsertBeforeLast(comments, comment, "</w:comments>"))

	p := d.xml[target.Start:target.End]
	start := `<w:commentRangeStart w:id="` + itoa(id) + `"/>`
	end := `<w:commentRangeEnd w:id="` + itoa(id) + `"/><w:r><w:commentReference w:id="` + itoa(id) + `"/></w:r>`
	if pPr := ooxml.Elements(p, "w:pPr"); len(pPr) > 0 {
		p = p[:pPr[0].End] + start + p[pPr[0].End:]
	} else {
		p = ooxml.InsertAfterOpen(p, "<w:p", start)
	}
	p = ooxml.InsertBeforeLast(p, end, "</w:p>")
	d.xml = d.xml[:target.Start] + p + d.xml[target.End:]
	return nil
}

// Comments returns the text of each comment as "author: text"
func (d *Document) Comments() []string {
	part, _ := d.auxPart(ooxml.RelComments)
	if part == "" {
		return nil
	}
	doc := d.pkg.PartString(part)
	var out []string
	for _, s := range ooxml.Elements(doc, "w:comment") {
		c := doc[s.Start:s.End]
		open := c[:strings.Index(c, ">")+1]
		out = append(out, ooxml.Attr(open, "w:author")+": "+strings.TrimSpace(paragraphText(c)))
	}
	return out
}

// findParagraph returns the first body paragraph whose text contains anchor.
// Without an anchor the last non-empty paragraph is used, creating one if needed.
func (d *Document) findParagraph(anchor string) (ooxml.Span, error) {
	spans := d.bodyParagraphs()
	if anchor != "" {
		for _, s := range spans {
			if strings.Contains(paragraphText(d.xml[s.Start:s.End]), anchor) {
				return s, nil
			}
		}
		return ooxml.Span{}, fmt.Errorf("no paragraph contains %q", anchor)
	}
	for i := len(spans) - 1; i >= 0; i-- {
		if strings.TrimSpace(paragraphText(d.xml[spans[i].Start:spans[i].End])) != "" {
			return spans[i], nil
		}
	}
	d.Append(Paragraph(ParagraphStyle{}))
	spans = d.bodyParagraphs()
	return spans[len(spans)-1], nil
}

// bodyParagraphs excludes paragraphs that only carry a section break
func (d *Document) bodyParagraphs() []ooxml.Span {
	return slices.DeleteFunc(d.Paragraphs(), func(s ooxml.Span) bool {
		p := d.xml[s.Start:s.End]
		return strings.Contains(p, "<w:sectPr") && paragraphText(p) == ""
	})
}

// Protection kinds accepted by Protect
var protectionKinds = []string{"readOnly", "comments", "trackedChanges", "forms"}

// spinCount is the hash iteration count written with the protection hash
const spinCount = 100000

// Protect restricts editing. With a password the document stores a salted
// SHA-512 hash, otherwise the restriction can be lifted without one.
func (d *Document) Protect(kind, password string) error {
	if kind == "" {
		kind = "readOnly"
	}
	if !slices.Contains(protectionKinds, kind) {
		return fmt.Errorf("unknown protection type %q, expected one of %s", kind, strings.Join(protectionKinds, ", "))
	}
	fragment := `<w:documentProtection w:edit="` + kind + `" w:enforcement="1"`
	if password != "" {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return err
		}
		hash := protectionHash(password, salt, spinCount)
		fragment += fmt.Sprintf(` w:cryptProviderType="rsaAES" w:cryptAlgorithmClass="hash" w:cryptAlgorithmType="typeAny" w:cryptAlgorithmSid="14" w:cryptSpinCount="%d" w:hash="%s" w:salt="%s"`,
			spinCount, base64.StdEncoding.EncodeToString(hash), base64.StdEncoding.EncodeToString(salt))
	}
	return d.SetSetting("w:documentProtection", fragment+`/>`)
}

// Unprotect removes editing restrictions
func (d *Document) Unprotect() error {
	return d.SetSetting("w:documentProtection", "")
}

func protectionHash(password string, salt []byte, spins int) []byte {
	units := utf16.Encode([]rune(password))
	pw := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(pw[i*2:], u)
	}
	h := sha512.Sum512(append(append([]byte{}, salt...), pw...))
	hash := h[:]
	iter := make([]byte, 4)
	for i := 0; i < spins; i++ {
		binary.LittleEndian.PutUint32(iter, uint32(i))
		next := sha512.Sum512(append(hash, iter...))
		hash = next[:]
	}
	return hash
}

// AddFootnote marks the paragraph containing anchor (or the last paragraph)
// with a superscript number and appends the note text at the end of the body
func (d *Document) AddFootnote(text, anchor string) (int, error) {
	if err := d.EnsureStyle("FootnoteText"); err != nil {
		return 0, err
	}
	number := strings.Count(d.xml, `<w:pStyle w:val="FootnoteText"/>`) + 1
	target, err := d.findParagraph(anchor)
	if err != nil {
		return 0, err
	}
	p := d.xml[target.Start:target.End]
	p = ooxml.InsertBeforeLast(p, Run(itoa(number), RunStyle{Superscript: true}), "</w:p>")
	d.xml = d.xml[:target.Start] + p + d.xml[target.End:]
	d.Append(Paragraph(ParagraphStyle{Style: "FootnoteText"}, Run(itoa(number), RunStyle{Superscript: true}), Run(" "+text, RunStyle{})))
	return number, nil
}

// AddWatermark places large pale text in the default header
func (d *Document) AddWatermark(text, color string) error {
	if color == "" {
		color = "D9D9D9"
	}
	existing := d.HeaderFooterText(Header)
	paragraphs := []string{}
	if existing != "" {
		for _, line := range strings.Split(existing, "\n") {
			paragraphs = append(paragraphs, Paragraph(ParagraphStyle{}, Run(line, RunStyle{})))
		}
	}
	paragraphs = append(paragraphs, Paragraph(ParagraphStyle{Align: "center"},
		Run(strings.ToUpper(text), RunStyle{Bold: true, FontSize: 54, Color: color})))
	return d.SetHeaderFooter(Header, paragraphs...)
}

// AddTextBox appends a bordered, shaded block with an optional bold title
func (d *Document) AddTextBox(text, title, fill string) {
	if fill == "" {
		fill = "F2F2F2"
	}
	style := ParagraphStyle{Border: true, Shading: fill, IndentLeft: 18}
	var blocks []string
	if title != "" {
		blocks = append(blocks, Paragraph(style, Run(title, RunStyle{Bold: true})))
	}
	for _, line := range strings.Split(text, "\n") {
		blocks = append(blocks, Paragraph(style, Run(line, RunStyle{})))
	}
	d.Append(blocks...)
}

// AddEquation appends an Office Math equation in linear form
func (d *Document) AddEquation(text, align string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("equation cannot be empty")
	}
	d.Append(Equation(text, align))
	return nil
}

// AddSignatureLine appends a signature block
func (d *Document) AddSignatureLine(name, title, instructions string, withDate bool) {
	blocks := []string{Paragraph(ParagraphStyle{SpaceBefore: 36}, Run("X "+strings.Repeat("_", 40), RunStyle{}))}
	if name != "" {
		blocks = append(blocks, Paragraph(ParagraphStyle{}, Run(name, RunStyle{Bold: true})))
	}
	if title != "" {
		blocks = append(blocks, Paragraph(ParagraphStyle{}, Run(title, RunStyle{})))
	}
	if withDate {
		blocks = append(blocks, Paragraph(ParagraphStyle{}, Run("Date: "+strings.Repeat("_", 20), RunStyle{})))
	}
	if instructions != "" {
		blocks = append(blocks, Paragraph(ParagraphStyle{}, Run(instructions, RunStyle{Italic: true, FontSize: 9})))
	}
	d.Append(blocks...)
}

// AddCaption appends a numbered caption such as "Figure 2: Revenue by region".
// The number is a SEQ field so Word renumbers captions on update.
func (d *Document) AddCaption(label, text string) (int, error) {
	if label == "" {
		label = "Figure"
	}
	if err := d.EnsureStyle("Caption"); err != nil {
		return 0, err
	}
	number := strings.Count(d.xml, "SEQ "+label+" ") + 1
	inline := []string{Run(label+" ", RunStyle{}), Field("SEQ "+label+` \* ARABIC`, itoa(number), RunStyle{})}
	if text != "" {
		inline = append(inline, Run(": "+text, RunStyle{}))
	}
	d.Append(Paragraph(ParagraphStyle{Style: "Caption"}, inline...))
	return number, nil
}

// ApplyStyle sets the paragraph style of paragraphs whose text contains match,
// or of the paragraph at index (0-based) when match is empty. It returns the
// number of paragraphs changed.
func (d *Document) ApplyStyle(style, match string, index int) (int, error) {
	if !d.HasStyle(style) {
		if err := d.EnsureStyle(style); err != nil {
			return 0, err
		}
	}
	return d.editParagraphs(match, index, func(e *ooxml.Element) {
		e.Set("w:pStyle", `<w:pStyle w:val="`+attr(style)+`"/>`, pPrOrder)
	})
}

// SetLineSpacing sets line spacing as a multiple of single spacing, with
// optional space before and after in points
func (d *Document) SetLineSpacing(multiple, before, after float64, match string, index int) (int, error) {
	if multiple <= 0 {
		return 0, fmt.Errorf("line spacing must be positive")
	}
	spacing := spacingElement(before, after, multiple)
	return d.editParagraphs(match, index, func(e *ooxml.Element) {
		e.Set("w:spacing", spacing, pPrOrder)
	})
}

// editParagraphs applies fn to the pPr of the selected paragraphs. An index
// below zero with no match selects every paragraph.
func (d *Document) editParagraphs(match string, index int, fn func(e *ooxml.Element)) (int, error) {
	spans := d.bodyParagraphs()
	var selected []ooxml.Span
	switch {
	case match != "":
		for _, s := range spans {
			if strings.Contains(paragraphText(d.xml[s.Start:s.End]), match) {
				selected = append(selected, s)
			}
		}
		if len(selected) == 0 {
			return 0, fmt.Errorf("no paragraph contains %q", match)
		}
	case index >= 0:
		if index >= len(spans) {
			return 0, fmt.Errorf("paragraph index %d out of range, document has %d paragraphs", index, len(spans))
		}
		selected = []ooxml.Span{spans[index]}
	default:
		selected = spans
	}

	for i := len(selected) - 1; i >= 0; i-- {
		s := selected[i]
		p, err := setParagraphProperties(d.xml[s.Start:s.End], fn)
		if err != nil {
			return 0, err
		}
		d.xml = d.xml[:s.Start] + p + d.xml[s.End:]
	}
	return len(selected), nil
}

func setParagraphProperties(p string, fn func(e *ooxml.Element)) (string, error) {
	if strings.HasSuffix(p[:strings.Index(p, ">")+1], "/>") {
		p = "<w:p></w:p>"
	}
	if spans := ooxml.Elements(p, "w:pPr"); len(spans) > 0 {
		e, err := ooxml.ParseElement(p[spans[0].Start:spans[0].End])
		if err != nil {
			return "", err
		}
		fn(e)
		return p[:spans[0].Start] + e.String() + p[spans[0].End:], nil
	}
	e := &ooxml.Element{Name: "w:pPr", Open: "<w:pPr>"}
	fn(e)
	open := strings.Index(p, ">") + 1
	return p[:open] + e.String() + p[open:], nil
}
