package docx

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/sammcj/mcp-office/internal/ooxml"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Comparison summarises the differences between two documents
type Comparison struct {
	Inserted  int
	Deleted   int
	Modified  int
	Unchanged int
}

// Compare produces a document showing revised against original as tracked
// changes. Paragraphs are aligned by text; a replaced paragraph is diffed
// word by word.
func (g *Generator) Compare(original, revised []byte, author string) ([]byte, Comparison, error) {
	var result Comparison
	if author == "" {
		author = "mcp-office"
	}
	before, err := g.Open(original)
	if err != nil {
		return nil, result, fmt.Errorf("original: %w", err)
	}
	after, err := g.Open(revised)
	if err != nil {
		return nil, result, fmt.Errorf("revised: %w", err)
	}

	out, err := g.Blank(nil)
	if err != nil {
		return nil, result, err
	}
	rev := &revisionWriter{author: author, date: time.Now().UTC().Format(time.RFC3339)}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(linesOf(before), linesOf(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for _, line := range splitLines(d.Text) {
				out.Append(Paragraph(ParagraphStyle{}, Run(line, RunStyle{})))
				result.Unchanged++
			}
		case diffmatchpatch.DiffDelete:
			removed := splitLines(d.Text)
			var added []string
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				added = splitLines(diffs[i+1].Text)
				i++
			}
			paired := min(len(removed), len(added))
			for j := 0; j < paired; j++ {
				out.Append(rev.modified(dmp, removed[j], added[j]))
				result.Modified++
			}
			for _, line := range removed[paired:] {
				out.Append(rev.paragraph(line, false))
				result.Deleted++
			}
			for _, line := range added[paired:] {
				out.Append(rev.paragraph(line, true))
				result.Inserted++
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range splitLines(d.Text) {
				out.Append(rev.paragraph(line, true))
				result.Inserted++
			}
		}
	}
	if err := out.SetSetting("w:trackRevisions", `<w:trackRevisions/>`); err != nil {
		return nil, result, err
	}
	data, err := out.Bytes()
	return data, result, err
}

func linesOf(d *Document) string {
	var b strings.Builder
	for _, block := range d.Blocks() {
		b.WriteString(strings.ReplaceAll(block.Text, "\n", " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func splitLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

type revisionWriter struct {
	author string
	date   string
	next   int
}

func (r *revisionWriter) attrs() string {
	r.next++
	return fmt.Sprintf(`w:id="%d" w:author="%s" w:date="%s"`, r.next, attr(r.author), r.date)
}

func (r *revisionWriter) inserted(text string) string {
	return `<w:ins ` + r.attrs() + `>` + Run(text, RunStyle{}) + `</w:ins>`
}

func (r *revisionWriter) deleted(text string) string {
	return `<w:del ` + r.attrs() + `><w:r><w:delText xml:space="preserve">` + ooxml.Escape(text) + `</w:delText></w:r></w:del>`
}

// paragraph renders a wholly inserted or deleted paragraph, including its mark
func (r *revisionWriter) paragraph(text string, insert bool) string {
	mark, content := "w:del", r.deleted(text)
	if insert {
		mark, content = "w:ins", r.inserted(text)
	}
	return `<w:p><w:pPr><w:rPr><` + mark + ` ` + r.attrs() + `/></w:rPr></w:pPr>` + content + `</w:p>`
}

var wordPattern = regexp.MustCompile(`\s+|[^\s]+`)

// modified diffs two versions of a paragraph on word boundaries
func (r *revisionWriter) modified(dmp *diffmatchpatch.DiffMatchPatch, before, after string) string {
	// map each distinct word to a rune so the diff works on whole words
	index := map[string]rune{}
	var words []string
	encode := func(s string) string {
		var b strings.Builder
		for _, w := range wordPattern.FindAllString(s, -1) {
			c, ok := index[w]
			if !ok {
				c = rune(0xE000 + len(words))
				index[w] = c
				words = append(words, w)
			}
			b.WriteRune(c)
		}
		return b.String()
	}
	ea, eb := encode(before), encode(after)
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(ea, eb, false))

	var inline []string
	for _, d := range diffs {
		var b strings.Builder
		for _, c := range d.Text {
			if i := int(c - 0xE000); i >= 0 && i < len(words) {
				b.WriteString(words[i])
			}
		}
		text := b.String()
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			inline = append(inline, Run(text, RunStyle{}))
		case diffmatchpatch.DiffInsert:
			inline = append(inline, r.inserted(text))
		case diffmatchpatch.DiffDelete:
			inline = append(inline, r.deleted(text))
		}
	}
	return Paragraph(ParagraphStyle{}, inline...)
}

// Revisions lists tracked insertions and deletions as "+text" and "-text"
func (d *Document) Revisions() []string {
	var out []string
	insPattern := regexp.MustCompile(`(?s)<w:ins [^>]*[^/]>(.*?)</w:ins>`)
	delPattern := regexp.MustCompile(`(?s)<w:delText[^>]*>(.*?)</w:delText>`)
	type rev struct {
		at   int
		text string
	}
	var revs []rev
	for _, m := range insPattern.FindAllStringSubmatchIndex(d.xml, -1) {
		revs = append(revs, rev{m[0], "+" + paragraphText("<w:p>"+d.xml[m[2]:m[3]]+"</w:p>")})
	}
	for _, m := range delPattern.FindAllStringSubmatchIndex(d.xml, -1) {
		revs = append(revs, rev{m[0], "-" + ooxml.Unescape(d.xml[m[2]:m[3]])})
	}
	slices.SortFunc(revs, func(a, b rev) int { return a.at - b.at })
	for _, r := range revs {
		out = append(out, r.text)
	}
	return out
}
