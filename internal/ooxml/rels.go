package ooxml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Relationship types used by the generators
const (
	RelOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	RelAppProps       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
	RelStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelSettings       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
	RelNumbering      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	RelHeader         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header"
	RelFooter         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	RelComments       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	RelImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelHyperlink      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	RelTheme          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme"
	RelSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	RelSlideMaster    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	RelNotesSlide     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	RelPresProps      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/presProps"
	RelViewProps      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/viewProps"
	RelTableStyles    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/tableStyles"
)

// Relationship is a single entry of a .rels part
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// External reports whether the target lies outside the package
func (r Relationship) External() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// Relationships is the content of a .rels part
type Relationships struct {
	XMLName xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Items   []Relationship `xml:"Relationship"`
}

// Add appends a relationship and returns its new id
func (r *Relationships) Add(relType, target string, external bool) string {
	id := r.nextID()
	rel := Relationship{ID: id, Type: relType, Target: target}
	if external {
		rel.TargetMode = "External"
	}
	r.Items = append(r.Items, rel)
	return id
}

// Get returns the relationship with the given id
func (r *Relationships) Get(id string) (Relationship, bool) {
	for _, rel := range r.Items {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// OfType returns all relationships of a type, in document order
func (r *Relationships) OfType(relType string) []Relationship {
	var out []Relationship
	for _, rel := range r.Items {
		if rel.Type == relType {
			out = append(out, rel)
		}
	}
	return out
}

// Remove drops a relationship by id
func (r *Relationships) Remove(id string) {
	kept := r.Items[:0]
	for _, rel := range r.Items {
		if rel.ID != id {
			kept = append(kept, rel)
		}
	}
	r.Items = kept
}

func (r *Relationships) nextID() string {
	highest := 0
	for _, rel := range r.Items {
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("rId%d", highest+1)
}

// Rels loads the relationships of a part. A part without relationships yields an empty set.
func (p *Package) Rels(part string) (*Relationships, error) {
	rels := &Relationships{}
	data, ok := p.Part(RelsPartName(part))
	if !ok {
		return rels, nil
	}
	if err := xml.Unmarshal(data, rels); err != nil {
		return nil, fmt.Errorf("invalid relationships for %q: %w", part, err)
	}
	return rels, nil
}

// SaveRels writes the relationships of a part
func (p *Package) SaveRels(part string, rels *Relationships) error {
	data, err := xml.Marshal(rels)
	if err != nil {
		return err
	}
	p.SetPart(RelsPartName(part), append([]byte(xml.Header), data...))
	return nil
}

// MainPart returns the part the package-level officeDocument relationship points to
func (p *Package) MainPart() (string, error) {
	rels, err := p.Rels("")
	if err != nil {
		return "", err
	}
	for _, rel := range rels.OfType(RelOfficeDocument) {
		return ResolveTarget("", rel.Target), nil
	}
	return "", fmt.Errorf("package has no main document part")
}

// Link adds a relationship from source to an internal part and returns its id
func (p *Package) Link(source, relType, part string) (string, error) {
	rels, err := p.Rels(source)
	if err != nil {
		return "", err
	}
	id := rels.Add(relType, RelativeTarget(source, part), false)
	return id, p.SaveRels(source, rels)
}

// LinkExternal adds an external relationship, such as a hyperlink, and returns its id
func (p *Package) LinkExternal(source, relType, target string) (string, error) {
	rels, err := p.Rels(source)
	if err != nil {
		return "", err
	}
	id := rels.Add(relType, target, true)
	return id, p.SaveRels(source, rels)
}

// AddMedia stores binary content under dir (e.g. word/media), registers its
// extension and links it from source as an image. It returns the relationship id.
func (p *Package) AddMedia(source, dir, ext string, data []byte) (string, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "jpg" {
		ext = "jpeg"
	}
	contentType, err := ImageContentType(ext)
	if err != nil {
		return "", err
	}
	if err := p.EnsureDefault(ext, contentType); err != nil {
		return "", err
	}
	name := p.NextName(strings.TrimSuffix(dir, "/")+"/image", "."+ext)
	p.SetPart(name, data)
	return p.Link(source, RelImage, name)
}
