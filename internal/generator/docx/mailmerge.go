package docx

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sammcj/mcp-office/internal/ooxml"
)

// mergeField matches {{Field}} and «Field» placeholders
var mergeField = regexp.MustCompile(`\{\{\s*([\w .-]+?)\s*\}\}|«([\w .-]+?)»`)

// Placeholders lists the distinct merge fields of a template in order of appearance
func (g *Generator) Placeholders(template []byte) ([]string, error) {
	var fields []string
	err := g.Inspect(template, func(d *Document) error {
		text := d.PlainText() + "\n" + d.HeaderFooterText(Header) + "\n" + d.HeaderFooterText(Footer)
		for _, m := range mergeField.FindAllStringSubmatch(text, -1) {
			name := m[1] + m[2]
			if !slices.Contains(fields, name) {
				fields = append(fields, name)
			}
		}
		return nil
	})
	return fields, err
}

// MergeRecord fills a template's placeholders from one record
func (g *Generator) MergeRecord(template []byte, record map[string]string) ([]byte, error) {
	d, err := g.merged(template, record)
	if err != nil {
		return nil, err
	}
	return d.Bytes()
}

func (g *Generator) merged(template []byte, record map[string]string) (*Document, error) {
	if len(template) == 0 {
		return nil, &DocumentError{Operation: "mail merge", Cause: fmt.Errorf("template is empty or does not exist")}
	}
	d, err := g.Open(template)
	if err != nil {
		return nil, err
	}
	for key, value := range record {
		for _, placeholder := range []string{"{{" + key + "}}", "{{ " + key + " }}", "«" + key + "»"} {
			if _, err := d.ReplaceText(placeholder, value, true); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// MailMerge fills the template once per record and joins the results into one
// document, each record starting on a new page
func (g *Generator) MailMerge(template []byte, records []map[string]string) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("mail merge needs at least one record")
	}
	out, err := g.merged(template, records[0])
	if err != nil {
		return nil, err
	}
	for _, record := range records[1:] {
		d, err := g.merged(template, record)
		if err != nil {
			return nil, err
		}
		out.Append(PageBreak(), d.bodyContent())
	}
	return out.Bytes()
}

// bodyContent is the body markup without the final section properties
func (d *Document) bodyContent() string {
	open := ooxml.IndexTag(d.xml, "<w:body")
	if open < 0 {
		return ""
	}
	start := open + strings.Index(d.xml[open:], ">") + 1
	end := d.bodyEnd()
	if at := d.finalSectPr(); at >= 0 {
		end = at
	}
	return d.xml[start:end]
}
