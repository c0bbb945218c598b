package docx

import (
	"encoding/xml"
	"regexp"
	"slices"
	"strings"

	"github.com/sammcj/mcp-office/internal/ooxml"
)

// paragraphText extracts the visible text of a paragraph. Deleted revisions
// and field instructions are skipped.
func paragraphText(p string) string {
	d := xml.NewDecoder(strings.NewReader(p))
	d.Strict = false

	var b strings.Builder
	inText := false
	for {
		tok, err := d.RawToken()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Space + ":" + t.Name.Local {
			case "w:t", "m:t":
				inText = true
			case "w:tab":
				b.WriteByte('\t')
			case "w:br", "w:cr":
				if !slices.ContainsFunc(t.Attr, func(a xml.Attr) bool { return a.Name.Local == "type" && a.Value == "page" }) {
					b.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String()
}

// BlockKind classifies a body-level element
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockListItem
	BlockTable
)

// Block is one paragraph or table of the body in document order
type Block struct {
	Kind     BlockKind
	Text     string
	Style    string
	Level    int
	Numbered bool
	Rows     [][]string
	Span     ooxml.Span
}

var (
	pStylePattern = regexp.MustCompile(`<w:pStyle w:val="([^"]+)"`)
	ilvlPattern   = regexp.MustCompile(`<w:ilvl w:val="(\d+)"`)
	numIDPattern  = regexp.MustCompile(`<w:numId w:val="(\d+)"`)
)

// Blocks returns the body's paragraphs and tables in order. Paragraphs inside
// table cells are reported as part of their table.
func (d *Document) Blocks() []Block {
	tables := ooxml.Elements(d.xml, "w:tbl")
	inTable := func(s ooxml.Span) bool {
		for _, t := range tables {
			if s.Start >= t.Start && s.End <= t.End {
				return true
			}
		}
		return false
	}

	numbered := d.numberedLists()
	var blocks []Block
	for _, t := range tables {
		blocks = append(blocks, Block{Kind: BlockTable, Rows: tableRows(d.xml[t.Start:t.End]), Span: t})
	}
	for _, s := range d.Paragraphs() {
		if inTable(s) {
			continue
		}
		blocks = append(blocks, classify(d.xml[s.Start:s.End], s, numbered))
	}
	slices.SortFunc(blocks, func(a, b Block) int { return a.Span.Start - b.Span.Start })
	for i := range blocks {
		if blocks[i].Kind == BlockTable {
			var lines []string
			for _, r := range blocks[i].Rows {
				lines = append(lines, strings.Join(r, "\t"))
			}
			blocks[i].Text = strings.Join(lines, "\n")
		}
	}
	return blocks
}

func classify(p string, span ooxml.Span, numbered map[string]bool) Block {
	b := Block{Kind: BlockParagraph, Text: paragraphText(p), Span: span}
	if m := pStylePattern.FindStringSubmatch(p); m != nil {
		b.Style = m[1]
	}
	switch {
	case b.Style == "Title":
		b.Kind, b.Level = BlockHeading, 0
	case strings.HasPrefix(b.Style, "Heading") && len(b.Style) == len("Heading")+1:
		b.Kind, b.Level = BlockHeading, int(b.Style[len(b.Style)-1]-'0')
	case strings.Contains(p, "<w:numPr>"):
		b.Kind = BlockListItem
		if m := ilvlPattern.FindStringSubmatch(p); m != nil {
			b.Level = int(m[1][0] - '0')
		}
		if m := numIDPattern.FindStringSubmatch(p); m != nil {
			b.Numbered = numbered[m[1]]
		}
	}
	return b
}

func tableRows(tbl string) [][]string {
	var rows [][]string
	for _, tr := range ooxml.Elements(tbl, "w:tr") {
		row := tbl[tr.Start:tr.End]
		var cells []string
		for _, tc := range ooxml.Elements(row, "w:tc") {
			cell := row[tc.Start:tc.End]
			var parts []string
			for _, p := range ooxml.Elements(cell, "w:p") {
				parts = append(parts, paragraphText(cell[p.Start:p.End]))
			}
			cells = append(cells, strings.Join(parts, "\n"))
		}
		rows = append(rows, cells)
	}
	return rows
}

// PlainText renders the body as text, one block per line, tables tab separated
func (d *Document) PlainText() string {
	var lines []string
	for _, b := range d.Blocks() {
		lines = append(lines, b.Text)
	}
	return strings.Join(lines, "\n")
}

// HTML renders the body as simple semantic HTML
func (d *Document) HTML() string {
	var b strings.Builder
	b.WriteString("<html><body>")
	openList := ""
	closeList := func() {
		if openList != "" {
			b.WriteString("</" + openList + ">")
			openList = ""
		}
	}
	for _, block := range d.Blocks() {
		if block.Kind != BlockListItem {
			closeList()
		}
		text := htmlEscape(block.Text)
		switch block.Kind {
		case BlockHeading:
			level := max(block.Level, 1)
			b.WriteString("<h" + itoa(level) + ">" + text + "</h" + itoa(level) + ">")
		case BlockListItem:
			tag := "ul"
			if block.Numbered {
				tag = "ol"
			}
			if openList != tag {
				closeList()
				b.WriteString("<" + tag + ">")
				openList = tag
			}
			b.WriteString("<li>" + text + "</li>")
		case BlockTable:
			b.WriteString("<table>")
			for i, row := range block.Rows {
				cell := "td"
				if i == 0 {
					cell = "th"
				}
				b.WriteString("<tr>")
				for _, c := range row {
					b.WriteString("<" + cell + ">" + htmlEscape(c) + "</" + cell + ">")
				}
				b.WriteString("</tr>")
			}
			b.WriteString("</table>")
		default:
			if strings.TrimSpace(block.Text) == "" {
				continue
			}
			switch block.Style {
			case "Code":
				b.WriteString("<pre><code>" + text + "</code></pre>")
			case "Quote":
				b.WriteString("<blockquote><p>" + text + "</p></blockquote>")
			default:
				b.WriteString("<p>" + strings.ReplaceAll(text, "\n", "<br>") + "</p>")
			}
		}
	}
	closeList()
	b.WriteString("</body></html>")
	return b.String()
}

func htmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

// Statistics summarise a document
type Statistics struct {
	Paragraphs     int `json:"paragraphs"`
	Words          int `json:"words"`
	Characters     int `json:"characters"`
	CharactersNoWS int `json:"charactersNoSpaces"`
	Sentences      int `json:"sentences"`
	Headings       int `json:"headings"`
	Tables         int `json:"tables"`
	Images         int `json:"images"`
	Comments       int `json:"comments"`
	Sections       int `json:"sections"`
	EstimatedPages int `json:"estimatedPages"`
}

// wordsPerPage is the usual estimate for single-spaced body text
const wordsPerPage = 500

// Statistics counts words, characters and structural elements
func (d *Document) Statistics() Statistics {
	var s Statistics
	for _, b := range d.Blocks() {
		switch b.Kind {
		case BlockTable:
			s.Tables++
		case BlockHeading:
			s.Headings++
			s.Paragraphs++
		default:
			if strings.TrimSpace(b.Text) != "" {
				s.Paragraphs++
			}
		}
		s.Words += len(strings.Fields(b.Text))
		for _, r := range b.Text {
			if r == '\n' || r == '\t' {
				continue
			}
			s.Characters++
			if r != ' ' {
				s.CharactersNoWS++
			}
		}
		s.Sentences += countSentences(b.Text)
	}
	s.Images = strings.Count(d.xml, "<w:drawing>")
	s.Sections = len(ooxml.Elements(d.xml, "w:sectPr"))
	if part, _ := d.auxPart(ooxml.RelComments); part != "" {
		s.Comments = len(ooxml.Elements(d.pkg.PartString(part), "w:comment"))
	}
	s.EstimatedPages = max(1, (s.Words+wordsPerPage-1)/wordsPerPage) + strings.Count(d.xml, `w:type="page"`)
	return s
}

func countSentences(text string) int {
	n := 0
	prevEnd := false
	for _, r := range strings.TrimSpace(text) {
		end := r == '.' || r == '!' || r == '?'
		if end && !prevEnd {
			n++
		}
		prevEnd = end
	}
	if n == 0 && strings.TrimSpace(text) != "" {
		return 1
	}
	if t := strings.TrimSpace(text); t != "" && !strings.ContainsAny(t[len(t)-1:], ".!?") {
		n++
	}
	return n
}
