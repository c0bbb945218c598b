package ooxml

import (
	"encoding/xml"
	"fmt"
	"slices"
	"strings"
)

// Child is a direct child of an Element, kept as raw markup
type Child struct {
	Name string
	Raw  string
}

// Element is an XML element split into its tags and direct children. Property
// containers such as w:pPr and w:sectPr have a fixed child order; Set keeps it.
type Element struct {
	Name     string
	Open     string
	Children []Child
}

// ParseElement splits raw markup of a single element
func ParseElement(raw string) (*Element, error) {
	d := xml.NewDecoder(strings.NewReader(raw))
	d.Strict = false

	e := &Element{}
	depth := 0
	childStart := 0
	skipEnd := false
	for {
		offset := int(d.InputOffset())
		tok, err := d.RawToken()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			end := int(d.InputOffset())
			selfClose := selfClosing(raw, offset, end)
			name := qualified(t.Name)
			switch {
			case depth == 0:
				e.Name = name
				e.Open = raw[offset:end]
				if selfClose {
					e.Open = strings.TrimRight(strings.TrimSuffix(e.Open, "/>"), " ") + ">"
					return e, nil
				}
				depth = 1
			case depth == 1 && selfClose:
				e.Children = append(e.Children, Child{Name: name, Raw: raw[offset:end]})
			case depth == 1:
				childStart = offset
				depth++
			default:
				if !selfClose {
					depth++
				}
			}
			if selfClose && depth > 0 {
				skipEnd = true
			}
		case xml.EndElement:
			if skipEnd {
				skipEnd = false
				continue
			}
			depth--
			if depth == 1 {
				e.Children = append(e.Children, Child{Name: qualified(t.Name), Raw: raw[childStart:int(d.InputOffset())]})
			}
			if depth == 0 {
				return e, nil
			}
		}
	}
	if e.Name == "" {
		return nil, fmt.Errorf("no element found")
	}
	return e, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Get returns the first child with the given name
func (e *Element) Get(name string) (Child, bool) {
	for _, c := range e.Children {
		if c.Name == name {
			return c, true
		}
	}
	return Child{}, false
}

// Has reports whether a child of that name exists
func (e *Element) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Remove drops all children with the given name
func (e *Element) Remove(name string) {
	e.Children = slices.DeleteFunc(e.Children, func(c Child) bool { return c.Name == name })
}

// Set replaces the child of that name, or inserts it where order puts it.
// Children whose names are not in order keep their position.
func (e *Element) Set(name, raw string, order []string) {
	for i, c := range e.Children {
		if c.Name == name {
			e.Children[i].Raw = raw
			return
		}
	}
	e.Insert(name, raw, order)
}

// Insert adds a child at the position order puts it, after any existing
// children of the same name
func (e *Element) Insert(name, raw string, order []string) {
	rank := slices.Index(order, name)
	at := len(e.Children)
	if rank >= 0 {
		for i, c := range e.Children {
			if r := slices.Index(order, c.Name); r > rank {
				at = i
				break
			}
		}
	}
	e.Children = slices.Insert(e.Children, at, Child{Name: name, Raw: raw})
}

// String renders the element
func (e *Element) String() string {
	var b strings.Builder
	b.WriteString(e.Open)
	for _, c := range e.Children {
		b.WriteString(c.Raw)
	}
	b.WriteString("</" + e.Name + ">")
	return b.String()
}
