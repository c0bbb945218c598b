package ooxml

import (
	"bytes"
	"encoding/xml"
	"regexp"
	"strings"
)

// Escape returns s with XML special characters replaced. Control characters
// that XML 1.0 forbids are dropped.
func Escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)))
	return b.String()
}

// Unescape reverses Escape for text content
func Unescape(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var out strings.Builder
	d := xml.NewDecoder(strings.NewReader("<x>" + s + "</x>"))
	for {
		tok, err := d.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			out.Write(cd)
		}
	}
	return out.String()
}

// Span is a byte range of an element within an XML document
type Span struct {
	Start, End int
}

// Elements returns the spans of every element with the given prefixed name
// (for example "w:p"). Nested occurrences of the same element are reported
// only at their outermost level.
func Elements(doc, name string) []Span {
	prefix, local, _ := strings.Cut(name, ":")
	d := xml.NewDecoder(strings.NewReader(doc))
	d.Strict = false

	var spans []Span
	depth, start := 0, 0
	skipEnd := false
	for {
		offset := int(d.InputOffset())
		tok, err := d.RawToken()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != prefix || t.Name.Local != local {
				continue
			}
			if selfClosing(doc, offset, int(d.InputOffset())) {
				skipEnd = true
				if depth == 0 {
					spans = append(spans, Span{offset, int(d.InputOffset())})
				}
				continue
			}
			if depth == 0 {
				start = offset
			}
			depth++
		case xml.EndElement:
			if t.Name.Space != prefix || t.Name.Local != local {
				continue
			}
			if skipEnd {
				skipEnd = false
				continue
			}
			if depth > 0 {
				depth--
				if depth == 0 {
					spans = append(spans, Span{start, int(d.InputOffset())})
				}
			}
		}
	}
	return spans
}

// RawToken reports a self-closing element as a start followed by a synthetic
// end that consumes no input.
func selfClosing(doc string, start, end int) bool {
	if end > len(doc) || end-start < 2 {
		return false
	}
	return strings.HasSuffix(doc[start:end], "/>")
}

var tagText = regexp.MustCompile(`<[^>]+>`)

// StripTags removes all markup from an XML fragment and unescapes the rest
func StripTags(fragment string) string {
	return Unescape(tagText.ReplaceAllString(fragment, ""))
}

// InsertBefore inserts fragment before the earliest occurrence of any of the
// markers, or appends when none is found.
func InsertBefore(doc, fragment string, markers ...string) string {
	at := -1
	for _, m := range markers {
		if i := indexTag(doc, m); i >= 0 && (at < 0 || i < at) {
			at = i
		}
	}
	if at < 0 {
		return doc + fragment
	}
	return doc[:at] + fragment + doc[at:]
}

// InsertBeforeLast inserts fragment before the last occurrence of marker
func InsertBeforeLast(doc, fragment, marker string) string {
	if i := strings.LastIndex(doc, marker); i >= 0 {
		return doc[:i] + fragment + doc[i:]
	}
	return doc + fragment
}

// InsertAfterOpen inserts fragment right after the opening tag of the first
// element whose tag starts with open (e.g. "<w:sectPr").
func InsertAfterOpen(doc, open, fragment string) string {
	i := indexTag(doc, open)
	if i < 0 {
		return doc
	}
	end := strings.Index(doc[i:], ">")
	if end < 0 {
		return doc
	}
	at := i + end + 1
	if doc[i+end-1] == '/' {
		// self-closing: expand into an open/close pair
		name := strings.TrimPrefix(open, "<")
		return doc[:i+end-1] + ">" + fragment + "</" + name + ">" + doc[at:]
	}
	return doc[:at] + fragment + doc[at:]
}

// RemoveElements deletes every element with the given prefixed name
func RemoveElements(doc, name string) string {
	spans := Elements(doc, name)
	for i := len(spans) - 1; i >= 0; i-- {
		doc = doc[:spans[i].Start] + doc[spans[i].End:]
	}
	return doc
}

// ReplaceElement replaces the first element with the given name, or returns
// ok=false when there is none.
func ReplaceElement(doc, name, replacement string) (string, bool) {
	spans := Elements(doc, name)
	if len(spans) == 0 {
		return doc, false
	}
	s := spans[0]
	return doc[:s.Start] + replacement + doc[s.End:], true
}

// indexTag finds open followed by a tag delimiter so "<w:p" does not match
// "<w:pPr". Markers that already end in ">" match literally.
func indexTag(doc, open string) int {
	if strings.HasSuffix(open, ">") {
		return strings.Index(doc, open)
	}
	from := 0
	for {
		i := strings.Index(doc[from:], open)
		if i < 0 {
			return -1
		}
		i += from
		next := i + len(open)
		if next < len(doc) && strings.ContainsRune(" >/\t\r\n", rune(doc[next])) {
			return i
		}
		from = next
	}
}

// IndexTag is the exported form of indexTag
func IndexTag(doc, open string) int {
	return indexTag(doc, open)
}

// Attr returns the value of an attribute within a single tag
func Attr(tag, name string) string {
	re := regexp.MustCompile(`\s` + regexp.QuoteMeta(name) + `="([^"]*)"`)
	if m := re.FindStringSubmatch(tag); m != nil {
		return Unescape(m[1])
	}
	return ""
}
