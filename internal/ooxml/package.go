// Package ooxml is a small read/modify/write model of Office Open XML packages:
// a zip of named parts, a content-type table and per-part relationships.
package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
)

// ContentTypesPart is the fixed name of the content-type table
const ContentTypesPart = "[Content_Types].xml"

// Package is an in-memory OOXML package
type Package struct {
	parts map[string][]byte
}

// New returns an empty package
func New() *Package {
	return &Package{parts: make(map[string][]byte)}
}

// Open reads a package from its zip bytes
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not an Office document: %w", err)
	}

	p := New()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open part %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}
		p.parts[strings.TrimPrefix(f.Name, "/")] = content
	}

	if !p.Has(ContentTypesPart) {
		return nil, fmt.Errorf("not an Office document: missing %s", ContentTypesPart)
	}
	return p, nil
}

// Has reports whether a part exists
func (p *Package) Has(name string) bool {
	_, ok := p.parts[normalise(name)]
	return ok
}

// Part returns the content of a part
func (p *Package) Part(name string) ([]byte, bool) {
	data, ok := p.parts[normalise(name)]
	return data, ok
}

// PartString returns the content of a part as a string, or "" when absent
func (p *Package) PartString(name string) string {
	data, _ := p.Part(name)
	return string(data)
}

// SetPart creates or replaces a part
func (p *Package) SetPart(name string, data []byte) {
	p.parts[normalise(name)] = data
}

// SetPartString creates or replaces a part from a string
func (p *Package) SetPartString(name, data string) {
	p.SetPart(name, []byte(data))
}

// DeletePart removes a part and its relationships part
func (p *Package) DeletePart(name string) {
	name = normalise(name)
	delete(p.parts, name)
	delete(p.parts, RelsPartName(name))
}

// Names returns all part names, sorted
func (p *Package) Names() []string {
	names := make([]string, 0, len(p.parts))
	for name := range p.parts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NextName returns the first unused name of the form prefix + N + suffix, counting from 1
func (p *Package) NextName(prefix, suffix string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s%d%s", prefix, i, suffix)
		if !p.Has(name) {
			return name
		}
	}
}

// Bytes serialises the package. The content-type table is written first, as
// some consumers expect.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := p.Names()
	slices.SortStableFunc(names, func(a, b string) int {
		switch {
		case a == ContentTypesPart:
			return -1
		case b == ContentTypesPart:
			return 1
		}
		return 0
	})

	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to add part %s: %w", name, err)
		}
		if _, err := w.Write(p.parts[name]); err != nil {
			return nil, fmt.Errorf("failed to write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish package: %w", err)
	}
	return buf.Bytes(), nil
}

// Clone returns a deep copy
func (p *Package) Clone() *Package {
	c := New()
	for name, data := range p.parts {
		c.parts[name] = bytes.Clone(data)
	}
	return c
}

// RelsPartName returns the relationships part for a part, e.g.
// word/document.xml -> word/_rels/document.xml.rels. The package-level
// relationships of "" are _rels/.rels.
func RelsPartName(part string) string {
	part = normalise(part)
	if part == "" {
		return "_rels/.rels"
	}
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// ResolveTarget turns a relationship target relative to source into a part name
func ResolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return normalise(target)
	}
	return normalise(path.Join(path.Dir(normalise(source)), target))
}

// RelativeTarget expresses part as a relationship target relative to source
func RelativeTarget(source, part string) string {
	srcDir := path.Dir(normalise(source))
	part = normalise(part)
	if srcDir == "." {
		return part
	}
	srcParts := strings.Split(srcDir, "/")
	dstParts := strings.Split(part, "/")

	i := 0
	for i < len(srcParts) && i < len(dstParts)-1 && srcParts[i] == dstParts[i] {
		i++
	}
	up := strings.Repeat("../", len(srcParts)-i)
	return up + strings.Join(dstParts[i:], "/")
}

func normalise(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
