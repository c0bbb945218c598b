package ooxml

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Common content types
const (
	TypeRelationships = "application/vnd.openxmlformats-package.relationships+xml"
	TypeXML           = "application/xml"
	TypeCoreProps     = "application/vnd.openxmlformats-package.core-properties+xml"
	TypeAppProps      = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
)

type contentTypes struct {
	XMLName   xml.Name          `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []contentDefault  `xml:"Default"`
	Overrides []contentOverride `xml:"Override"`
}

type contentDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type contentOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

func (p *Package) contentTypes() (*contentTypes, error) {
	ct := &contentTypes{}
	data, ok := p.Part(ContentTypesPart)
	if !ok {
		ct.Defaults = []contentDefault{
			{Extension: "rels", ContentType: TypeRelationships},
			{Extension: "xml", ContentType: TypeXML},
		}
		return ct, nil
	}
	if err := xml.Unmarshal(data, ct); err != nil {
		return nil, fmt.Errorf("invalid content types: %w", err)
	}
	return ct, nil
}

func (p *Package) saveContentTypes(ct *contentTypes) error {
	data, err := xml.Marshal(ct)
	if err != nil {
		return err
	}
	p.SetPart(ContentTypesPart, append([]byte(xml.Header), data...))
	return nil
}

// SetOverride registers the content type of a single part
func (p *Package) SetOverride(part, contentType string) error {
	ct, err := p.contentTypes()
	if err != nil {
		return err
	}
	name := "/" + normalise(part)
	for i := range ct.Overrides {
		if strings.EqualFold(ct.Overrides[i].PartName, name) {
			ct.Overrides[i].ContentType = contentType
			return p.saveContentTypes(ct)
		}
	}
	ct.Overrides = append(ct.Overrides, contentOverride{PartName: name, ContentType: contentType})
	return p.saveContentTypes(ct)
}

// RemoveOverride drops the content type entry of a part
func (p *Package) RemoveOverride(part string) error {
	ct, err := p.contentTypes()
	if err != nil {
		return err
	}
	name := "/" + normalise(part)
	kept := ct.Overrides[:0]
	for _, o := range ct.Overrides {
		if !strings.EqualFold(o.PartName, name) {
			kept = append(kept, o)
		}
	}
	ct.Overrides = kept
	return p.saveContentTypes(ct)
}

// EnsureDefault registers a content type for a file extension if none is set
func (p *Package) EnsureDefault(ext, contentType string) error {
	ct, err := p.contentTypes()
	if err != nil {
		return err
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return nil
		}
	}
	ct.Defaults = append(ct.Defaults, contentDefault{Extension: ext, ContentType: contentType})
	return p.saveContentTypes(ct)
}

// ContentType returns the content type that applies to a part
func (p *Package) ContentType(part string) string {
	ct, err := p.contentTypes()
	if err != nil {
		return ""
	}
	name := "/" + normalise(part)
	for _, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, name) {
			return o.ContentType
		}
	}
	ext := name[strings.LastIndex(name, ".")+1:]
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType
		}
	}
	return ""
}

// PartsOfType lists the parts registered with an override of the given content type
func (p *Package) PartsOfType(contentType string) []string {
	ct, err := p.contentTypes()
	if err != nil {
		return nil
	}
	var parts []string
	for _, o := range ct.Overrides {
		if o.ContentType == contentType {
			parts = append(parts, normalise(o.PartName))
		}
	}
	return parts
}

// ImageContentType maps an image extension to its MIME type
func ImageContentType(ext string) (string, error) {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "png":
		return "image/png", nil
	case "jpg", "jpeg":
		return "image/jpeg", nil
	case "gif":
		return "image/gif", nil
	case "bmp":
		return "image/bmp", nil
	}
	return "", fmt.Errorf("unsupported image type %q", ext)
}
