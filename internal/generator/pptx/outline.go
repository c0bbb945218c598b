package pptx

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// FromOutline builds a deck from a markdown outline. A level one heading
// starts a title slide, deeper headings start content slides, list items and
// paragraphs become bullets and block quotes become speaker notes. It returns
// the deck bytes and the number of slides.
func (g *Generator) FromOutline(source string, props *Properties, theme string) ([]byte, int, error) {
	p, err := g.Blank(props)
	if err != nil {
		return nil, 0, err
	}
	if theme != "" {
		if err := p.ApplyTheme(theme); err != nil {
			return nil, 0, err
		}
	}
	slides := parseOutline([]byte(source))
	for _, s := range slides {
		if _, err := p.AddSlide(s); err != nil {
			return nil, 0, err
		}
	}
	data, err := p.Bytes()
	return data, len(slides), err
}

type outlineReader struct {
	src     []byte
	slides  []SlideOptions
	current *SlideOptions
}

func parseOutline(src []byte) []SlideOptions {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	r := &outlineReader{src: src}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		r.block(n)
	}
	r.flush()
	return r.slides
}

func (r *outlineReader) flush() {
	if r.current != nil {
		r.slides = append(r.slides, *r.current)
		r.current = nil
	}
}

func (r *outlineReader) slide() *SlideOptions {
	if r.current == nil {
		r.current = &SlideOptions{Layout: LayoutTitleContent}
	}
	return r.current
}

func (r *outlineReader) block(n ast.Node) {
	switch v := n.(type) {
	case *ast.Heading:
		r.flush()
		layout := LayoutTitleContent
		if v.Level == 1 {
			layout = LayoutTitle
		}
		r.current = &SlideOptions{Layout: layout, Title: r.plain(v)}
	case *ast.List:
		r.list(v, 0)
	case *ast.Blockquote:
		s := r.slide()
		var notes []string
		for c := v.FirstChild(); c != nil; c = c.NextSibling() {
			notes = append(notes, r.plain(c))
		}
		s.Notes = strings.TrimSpace(strings.Join(append([]string{s.Notes}, notes...), "\n"))
	case *ast.ThematicBreak:
		r.flush()
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		s := r.slide()
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if line := strings.TrimRight(string(seg.Value(r.src)), "\r\n"); line != "" {
				s.Bullets = append(s.Bullets, line)
			}
		}
	default:
		content := strings.TrimSpace(r.plain(n))
		if content == "" {
			return
		}
		s := r.slide()
		if s.Layout == LayoutTitle && len(s.Bullets) == 0 {
			s.Subtitle = strings.TrimSpace(s.Subtitle + "\n" + content)
			return
		}
		s.Bullets = append(s.Bullets, content)
	}
}

func (r *outlineReader) list(list *ast.List, depth int) {
	s := r.slide()
	if s.Layout == LayoutTitle {
		s.Layout = LayoutTitleContent
		s.Bullets = append(s.Bullets, nonEmpty(s.Subtitle)...)
		s.Subtitle = ""
	}
	indent := strings.Repeat("  ", depth)
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				r.list(nested, depth+1)
				continue
			}
			if t := strings.TrimSpace(r.plain(c)); t != "" {
				s.Bullets = append(s.Bullets, indent+t)
			}
		}
	}
}

func (r *outlineReader) plain(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(r.src))
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
