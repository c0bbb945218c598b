package pptx

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/sammcj/mcp-office/internal/ooxml"
)

// Merge appends the slides of every following deck to the first one, which
// keeps its master and theme. It returns the merged bytes and slide count.
func (g *Generator) Merge(decks [][]byte) ([]byte, int, error) {
	if len(decks) < 2 {
		return nil, 0, fmt.Errorf("at least two presentations are required to merge")
	}
	base, err := g.Open(decks[0])
	if err != nil {
		return nil, 0, err
	}
	for i, data := range decks[1:] {
		src, err := g.Open(data)
		if err != nil {
			return nil, 0, fmt.Errorf("presentation %d: %w", i+2, err)
		}
		if err := base.appendFrom(src); err != nil {
			return nil, 0, fmt.Errorf("presentation %d: %w", i+2, err)
		}
	}
	out, err := base.Bytes()
	if err != nil {
		return nil, 0, err
	}
	return out, len(base.Slides()), nil
}

// appendFrom copies every slide of src. Layouts are mapped onto this deck's
// layouts by type, media and other owned parts are copied, and links to notes
// or other slides are dropped.
func (p *Presentation) appendFrom(src *Presentation) error {
	for _, s := range src.Slides() {
		content := src.slideXML(s)
		srcRels, err := src.pkg.Rels(s.Part)
		if err != nil {
			return err
		}

		rels := &ooxml.Relationships{}
		var dropped []string
		for _, rel := range srcRels.Items {
			if rel.External() {
				rels.Items = append(rels.Items, rel)
				continue
			}
			target := ooxml.ResolveTarget(s.Part, rel.Target)
			switch rel.Type {
			case ooxml.RelSlideLayout:
				l, err := p.matchLayout(describeLayout(target, src.pkg.PartString(target)))
				if err != nil {
					return err
				}
				rel.Target = ooxml.RelativeTarget(s.Part, l.Part)
			case ooxml.RelNotesSlide, ooxml.RelSlide:
				dropped = append(dropped, rel.ID)
				continue
			default:
				name, err := p.copyPart(src, target)
				if err != nil {
					return err
				}
				rel.Target = ooxml.RelativeTarget("ppt/slides/slide1.xml", name)
			}
			rels.Items = append(rels.Items, rel)
		}
		for _, id := range dropped {
			content = regexp.MustCompile(`<a:hlinkClick[^>]*r:id="` + regexp.QuoteMeta(id) + `"[^>]*/>`).ReplaceAllString(content, "")
		}
		if _, err := p.addSlidePart(content, rels, 0); err != nil {
			return err
		}
	}
	return nil
}

// matchLayout finds the local layout with the same type, then the same name,
// falling back on Title and Content
func (p *Presentation) matchLayout(want LayoutInfo) (LayoutInfo, error) {
	all, err := p.Layouts()
	if err != nil {
		return LayoutInfo{}, err
	}
	for _, l := range all {
		if want.Type != "" && l.Type == want.Type {
			return l, nil
		}
	}
	for _, l := range all {
		if want.Name != "" && strings.EqualFold(l.Name, want.Name) {
			return l, nil
		}
	}
	if l, err := p.findLayout(LayoutTitleContent); err == nil {
		return l, nil
	}
	if len(all) == 0 {
		return LayoutInfo{}, fmt.Errorf("presentation has no layouts")
	}
	return all[0], nil
}

// copyPart copies a part of src under a free name in the same folder
func (p *Presentation) copyPart(src *Presentation, part string) (string, error) {
	data, ok := src.pkg.Part(part)
	if !ok {
		return "", fmt.Errorf("missing part %s", part)
	}
	ext := path.Ext(part)
	stem := strings.TrimRight(strings.TrimSuffix(part, ext), "0123456789")
	name := p.pkg.NextName(stem, ext)
	p.pkg.SetPart(name, data)

	contentType := src.pkg.ContentType(part)
	if contentType == "" {
		return name, nil
	}
	if strings.HasPrefix(name, "ppt/media/") {
		return name, p.pkg.EnsureDefault(strings.TrimPrefix(ext, "."), contentType)
	}
	return name, p.pkg.SetOverride(name, contentType)
}
