package docx

import (
	"fmt"
	"slices"
	"strings"
)

// Source is a work that can be cited
type Source struct {
	Author    string `json:"author"`
	Title     string `json:"title"`
	Year      string `json:"year"`
	Publisher string `json:"publisher,omitempty"`
	Journal   string `json:"journal,omitempty"`
	URL       string `json:"url,omitempty"`
	Pages     string `json:"pages,omitempty"`
}

// Citation styles
const (
	StyleAPA     = "apa"
	StyleMLA     = "mla"
	StyleChicago = "chicago"
)

func citationStyle(style string) (string, error) {
	style = strings.ToLower(style)
	if style == "" {
		return StyleAPA, nil
	}
	if !slices.Contains([]string{StyleAPA, StyleMLA, StyleChicago}, style) {
		return "", fmt.Errorf("unknown citation style %q, expected apa, mla or chicago", style)
	}
	return style, nil
}

func surname(author string) string {
	if first, _, ok := strings.Cut(author, ","); ok {
		return strings.TrimSpace(first)
	}
	fields := strings.Fields(author)
	if len(fields) == 0 {
		return "Anon."
	}
	return fields[len(fields)-1]
}

// InlineCitation formats an in-text citation
func InlineCitation(src Source, style string) string {
	name := surname(src.Author)
	year := src.Year
	if year == "" {
		year = "n.d."
	}
	switch style {
	case StyleMLA:
		if src.Pages != "" {
			return "(" + name + " " + src.Pages + ")"
		}
		return "(" + name + ")"
	case StyleChicago:
		if src.Pages != "" {
			return "(" + name + " " + year + ", " + src.Pages + ")"
		}
		return "(" + name + " " + year + ")"
	}
	if src.Pages != "" {
		return "(" + name + ", " + year + ", p. " + src.Pages + ")"
	}
	return "(" + name + ", " + year + ")"
}

// Reference formats a bibliography entry. The title is returned separately
// so it can be italicised.
func Reference(src Source, style string) (before, title, after string) {
	year := src.Year
	if year == "" {
		year = "n.d."
	}
	container := src.Journal
	if container == "" {
		container = src.Publisher
	}
	tail := func(parts ...string) string {
		var out []string
		for _, p := range parts {
			if p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return ""
		}
		return " " + strings.Join(out, ". ") + "."
	}
	switch style {
	case StyleMLA:
		published := container
		if src.Year != "" {
			published = strings.TrimPrefix(published+", "+src.Year, ", ")
		}
		return src.Author + ". ", src.Title, "." + tail(published, src.URL)
	case StyleChicago:
		return src.Author + ". " + year + ". ", src.Title, "." + tail(container, src.URL)
	}
	return src.Author + " (" + year + "). ", src.Title, "." + tail(container, src.URL)
}

// AddCitation appends an in-text citation to the paragraph containing anchor,
// or adds text followed by the citation as a new paragraph
func (d *Document) AddCitation(src Source, style, text, anchor string) (string, error) {
	style, err := citationStyle(style)
	if err != nil {
		return "", err
	}
	if src.Author == "" {
		return "", fmt.Errorf("citation needs an author")
	}
	citation := InlineCitation(src, style)
	if text != "" || anchor == "" {
		d.Append(Paragraph(ParagraphStyle{}, Run(strings.TrimSpace(text+" "+citation), RunStyle{})))
		return citation, nil
	}
	target, err := d.findParagraph(anchor)
	if err != nil {
		return "", err
	}
	p := d.xml[target.Start:target.End]
	p = p[:strings.LastIndex(p, "</w:p>")] + Run(" "+citation, RunStyle{}) + "</w:p>"
	d.xml = d.xml[:target.Start] + p + d.xml[target.End:]
	return citation, nil
}

// AddBibliography appends a heading and the sources sorted by author
func (d *Document) AddBibliography(sources []Source, style, title string) error {
	style, err := citationStyle(style)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("bibliography needs at least one source")
	}
	if title == "" {
		title = "References"
		if style == StyleMLA {
			title = "Works Cited"
		} else if style == StyleChicago {
			title = "Bibliography"
		}
	}
	if err := d.AddHeading(title, 1); err != nil {
		return err
	}
	if err := d.EnsureStyle("Bibliography"); err != nil {
		return err
	}
	sorted := slices.Clone(sources)
	slices.SortStableFunc(sorted, func(a, b Source) int {
		return strings.Compare(strings.ToLower(surname(a.Author)), strings.ToLower(surname(b.Author)))
	})
	for _, src := range sorted {
		before, t, after := Reference(src, style)
		d.Append(Paragraph(ParagraphStyle{Style: "Bibliography"},
			Run(before, RunStyle{}), Run(t, RunStyle{Italic: true}), Run(after, RunStyle{})))
	}
	return nil
}
