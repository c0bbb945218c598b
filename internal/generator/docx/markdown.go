package docx

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/sammcj/mcp-office/internal/ooxml"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// FromMarkdown builds a document from markdown
func (g *Generator) FromMarkdown(source string, props *Properties) ([]byte, error) {
	d, err := g.Blank(props)
	if err != nil {
		return nil, err
	}
	if err := d.AppendMarkdown(source); err != nil {
		return nil, err
	}
	return d.Bytes()
}

// AppendMarkdown converts markdown (with GitHub tables and strikethrough) to
// body content
func (d *Document) AppendMarkdown(source string) error {
	src := []byte(source)
	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify))
	doc := md.Parser().Parse(text.NewReader(src))
	w := &markdownWriter{d: d, src: src}
	if err := w.blocks(doc, false); err != nil {
		return err
	}
	return w.err
}

type markdownWriter struct {
	d   *Document
	src []byte
	err error
}

func (w *markdownWriter) blocks(parent ast.Node, quote bool) error {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if err := w.block(n, quote); err != nil {
			return err
		}
	}
	return nil
}

func (w *markdownWriter) block(n ast.Node, quote bool) error {
	d := w.d
	switch v := n.(type) {
	case *ast.Heading:
		style := headingStyleID(v.Level)
		if err := d.EnsureStyle(style); err != nil {
			return err
		}
		d.Append(Paragraph(ParagraphStyle{Style: style}, w.inline(v, RunStyle{})...))
	case *ast.Paragraph, *ast.TextBlock:
		style := ParagraphStyle{}
		if quote {
			if err := d.EnsureStyle("Quote"); err != nil {
				return err
			}
			style.Style = "Quote"
		}
		d.Append(Paragraph(style, w.inline(v, RunStyle{})...))
	case *ast.List:
		return w.list(v, 0)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if err := d.EnsureStyle("Code"); err != nil {
			return err
		}
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content := strings.TrimRight(string(line.Value(w.src)), "\n")
			d.Append(Paragraph(ParagraphStyle{Style: "Code"}, Run(content, RunStyle{})))
		}
	case *ast.Blockquote:
		return w.blocks(v, true)
	case *ast.ThematicBreak:
		d.Append(`<w:p><w:pPr><w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="auto"/></w:pBdr></w:pPr></w:p>`)
	case *extast.Table:
		var rows [][]string
		for r := v.FirstChild(); r != nil; r = r.NextSibling() {
			var cells []string
			for c := r.FirstChild(); c != nil; c = c.NextSibling() {
				cells = append(cells, w.plain(c))
			}
			rows = append(rows, cells)
		}
		_, header := v.FirstChild().(*extast.TableHeader)
		return d.AddTable(rows, TableOptions{Header: header})
	case *ast.HTMLBlock:
		// raw HTML is not rendered
	default:
		return w.blocks(n, quote)
	}
	return nil
}

func (w *markdownWriter) list(list *ast.List, level int) error {
	d := w.d
	if err := d.EnsureStyle("ListParagraph"); err != nil {
		return err
	}
	if err := d.ensureNumbering(); err != nil {
		return err
	}
	numID := bulletNumID
	if list.IsOrdered() {
		id, err := d.restartNumbering()
		if err != nil {
			return err
		}
		numID = id
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch v := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				d.Append(Paragraph(ParagraphStyle{Style: "ListParagraph", NumID: numID, Level: min(level, 2)}, w.inline(v, RunStyle{})...))
			case *ast.List:
				if err := w.list(v, level+1); err != nil {
					return err
				}
			default:
				if err := w.block(c, false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *markdownWriter) inline(parent ast.Node, style RunStyle) []string {
	var out []string
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch v := n.(type) {
		case *ast.Text:
			t := string(v.Segment.Value(w.src))
			if v.HardLineBreak() {
				t += "\n"
			} else if v.SoftLineBreak() {
				t += " "
			}
			out = append(out, Run(t, style))
		case *ast.String:
			out = append(out, Run(string(v.Value), style))
		case *ast.CodeSpan:
			s := style
			s.Code = true
			out = append(out, Run(w.plain(v), s))
		case *ast.Emphasis:
			s := style
			if v.Level >= 2 {
				s.Bold = true
			} else {
				s.Italic = true
			}
			out = append(out, w.inline(v, s)...)
		case *extast.Strikethrough:
			s := style
			s.Strike = true
			out = append(out, w.inline(v, s)...)
		case *ast.Link:
			out = append(out, w.link(string(v.Destination), w.plain(v)))
		case *ast.AutoLink:
			url := string(v.URL(w.src))
			out = append(out, w.link(url, string(v.Label(w.src))))
		case *ast.Image:
			s := style
			s.Italic = true
			out = append(out, Run("[image: "+w.plain(v)+"]", s))
		case *ast.RawHTML:
			// dropped
		default:
			out = append(out, w.inline(n, style)...)
		}
	}
	return out
}

func (w *markdownWriter) link(target, label string) string {
	if label == "" {
		label = target
	}
	if err := w.d.EnsureStyle("Hyperlink"); err != nil && w.err == nil {
		w.err = err
	}
	if anchor, ok := strings.CutPrefix(target, "#"); ok {
		return AnchorRun(anchor, label)
	}
	id, err := w.d.pkg.LinkExternal(w.d.main, ooxml.RelHyperlink, target)
	if err != nil {
		if w.err == nil {
			w.err = err
		}
		return Run(label, RunStyle{})
	}
	return HyperlinkRun(id, label)
}

func (w *markdownWriter) plain(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(w.src))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// Markdown renders the document body as markdown
func (d *Document) Markdown() (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(d.HTML())
	if err != nil {
		return "", fmt.Errorf("failed to convert document to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
