package docx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sammcj/mcp-office/internal/ooxml"
)

// FromHTML builds a document from an HTML fragment or page
func (g *Generator) FromHTML(source string, props *Properties) ([]byte, error) {
	d, err := g.Blank(props)
	if err != nil {
		return nil, err
	}
	if err := d.AppendHTML(source); err != nil {
		return nil, err
	}
	return d.Bytes()
}

// AppendHTML converts HTML block and inline elements to body content.
// Scripts, styles and form controls are ignored.
func (d *Document) AppendHTML(source string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	if props, _ := d.Properties(); props.Title == "" {
		if title := strings.TrimSpace(doc.Find("head > title").First().Text()); title != "" {
			if err := d.SetProperties(Properties{Title: title}); err != nil {
				return err
			}
		}
	}
	w := &htmlWriter{d: d}
	w.children(doc.Find("body").First(), 0)
	return w.err
}

type htmlWriter struct {
	d   *Document
	err error
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true, "header": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "ul": true, "ol": true,
	"table": true, "pre": true, "blockquote": true, "hr": true, "figure": true, "nav": true, "aside": true,
}

var skippedTags = map[string]bool{"script": true, "style": true, "noscript": true, "template": true, "form": true, "button": true, "select": true, "iframe": true}

func (w *htmlWriter) fail(err error) {
	if err != nil && w.err == nil {
		w.err = err
	}
}

// children writes block content; runs of inline nodes between blocks form a paragraph
func (w *htmlWriter) children(s *goquery.Selection, listLevel int) {
	var pending []*goquery.Selection
	flush := func() {
		var inline []string
		for _, n := range pending {
			inline = append(inline, w.inline(n, RunStyle{})...)
		}
		pending = nil
		if hasText(inline) {
			w.d.Append(Paragraph(ParagraphStyle{}, inline...))
		}
	}
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case skippedTags[name]:
		case blockTags[name]:
			flush()
			w.block(c, name, listLevel)
		default:
			pending = append(pending, c)
		}
	})
	flush()
}

func (w *htmlWriter) block(s *goquery.Selection, name string, listLevel int) {
	d := w.d
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(name[1] - '0')
		style := headingStyleID(level)
		w.fail(d.EnsureStyle(style))
		d.Append(Paragraph(ParagraphStyle{Style: style}, w.inline(s, RunStyle{})...))
	case "p":
		style := ParagraphStyle{Align: alignment(s)}
		if inline := w.inline(s, RunStyle{}); hasText(inline) {
			d.Append(Paragraph(style, inline...))
		}
	case "ul", "ol":
		w.list(s, name == "ol", listLevel)
	case "table":
		var rows [][]string
		header := false
		s.Find("tr").Each(func(i int, tr *goquery.Selection) {
			var cells []string
			tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, collapseSpace(cell.Text(), true))
			})
			if i == 0 && tr.ChildrenFiltered("th").Length() > 0 {
				header = true
			}
			rows = append(rows, cells)
		})
		if len(rows) > 0 {
			w.fail(d.AddTable(rows, TableOptions{Header: header}))
		}
	case "pre":
		w.fail(d.EnsureStyle("Code"))
		for _, line := range strings.Split(strings.TrimRight(s.Text(), "\n"), "\n") {
			d.Append(Paragraph(ParagraphStyle{Style: "Code"}, Run(line, RunStyle{})))
		}
	case "blockquote":
		w.fail(d.EnsureStyle("Quote"))
		if inline := w.inline(s, RunStyle{}); hasText(inline) {
			d.Append(Paragraph(ParagraphStyle{Style: "Quote"}, inline...))
		}
	case "hr":
		d.Append(`<w:p><w:pPr><w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="auto"/></w:pBdr></w:pPr></w:p>`)
	default:
		w.children(s, listLevel)
	}
}

func (w *htmlWriter) list(s *goquery.Selection, ordered bool, level int) {
	d := w.d
	w.fail(d.EnsureStyle("ListParagraph"))
	w.fail(d.ensureNumbering())
	numID := bulletNumID
	if ordered {
		id, err := d.restartNumbering()
		w.fail(err)
		numID = id
	}
	s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		var inline []string
		var nested []*goquery.Selection
		li.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "ul", "ol":
				nested = append(nested, c)
			default:
				inline = append(inline, w.inline(c, RunStyle{})...)
			}
		})
		if hasText(inline) {
			d.Append(Paragraph(ParagraphStyle{Style: "ListParagraph", NumID: numID, Level: min(level, 2)}, inline...))
		}
		for _, n := range nested {
			w.list(n, goquery.NodeName(n) == "ol", level+1)
		}
	})
}

var whitespace = regexp.MustCompile(`\s+`)

// collapseSpace folds HTML whitespace; trim drops it at both ends
func collapseSpace(s string, trim bool) string {
	s = whitespace.ReplaceAllString(s, " ")
	if trim {
		return strings.TrimSpace(s)
	}
	return s
}

func (w *htmlWriter) inline(s *goquery.Selection, style RunStyle) []string {
	name := goquery.NodeName(s)
	if name == "#text" {
		if t := collapseSpace(s.Text(), false); t != "" {
			return []string{Run(t, style)}
		}
		return nil
	}
	if skippedTags[name] || name == "#comment" {
		return nil
	}

	switch name {
	case "b", "strong":
		style.Bold = true
	case "i", "em", "cite":
		style.Italic = true
	case "u", "ins":
		style.Underline = true
	case "s", "del", "strike":
		style.Strike = true
	case "code", "kbd", "samp":
		style.Code = true
	case "sup":
		style.Superscript = true
	case "mark":
		style.Highlight = "yellow"
	case "br":
		return []string{Run("\n", style)}
	case "img":
		alt, _ := s.Attr("alt")
		return []string{Run("[image: "+alt+"]", RunStyle{Italic: true})}
	case "a":
		href, _ := s.Attr("href")
		label := collapseSpace(s.Text(), true)
		if href == "" || label == "" {
			break
		}
		w.fail(w.d.EnsureStyle("Hyperlink"))
		if anchor, ok := strings.CutPrefix(href, "#"); ok {
			return []string{AnchorRun(anchor, label)}
		}
		id, err := w.d.pkg.LinkExternal(w.d.main, ooxml.RelHyperlink, href)
		if err != nil {
			w.fail(err)
			return []string{Run(label, style)}
		}
		return []string{HyperlinkRun(id, label)}
	}

	var out []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		out = append(out, w.inline(c, style)...)
	})
	return out
}

func alignment(s *goquery.Selection) string {
	if align, ok := s.Attr("align"); ok {
		return align
	}
	style, _ := s.Attr("style")
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(strings.ToLower(k)) == "text-align" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func hasText(runs []string) bool {
	for _, r := range runs {
		if strings.TrimSpace(paragraphText("<w:p>"+r+"</w:p>")) != "" {
			return true
		}
	}
	return false
}
