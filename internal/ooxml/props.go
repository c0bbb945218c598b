package ooxml

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// CorePropsPart is the conventional location of the core properties
const CorePropsPart = "docProps/core.xml"

// CoreProperties are the Dublin Core metadata shared by all Office formats
type CoreProperties struct {
	Title          string    `json:"title,omitempty"`
	Subject        string    `json:"subject,omitempty"`
	Creator        string    `json:"creator,omitempty"`
	Keywords       string    `json:"keywords,omitempty"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	LastModifiedBy string    `json:"lastModifiedBy,omitempty"`
	Created        time.Time `json:"created"`
	Modified       time.Time `json:"modified"`
}

type corePropsXML struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	Category       string `xml:"category"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

// CoreProperties reads docProps/core.xml
func (p *Package) CoreProperties() (CoreProperties, error) {
	var props CoreProperties
	data, ok := p.Part(CorePropsPart)
	if !ok {
		return props, nil
	}
	var raw corePropsXML
	if err := xml.Unmarshal(data, &raw); err != nil {
		return props, fmt.Errorf("invalid core properties: %w", err)
	}
	props = CoreProperties{
		Title:          raw.Title,
		Subject:        raw.Subject,
		Creator:        raw.Creator,
		Keywords:       raw.Keywords,
		Description:    raw.Description,
		Category:       raw.Category,
		LastModifiedBy: raw.LastModifiedBy,
	}
	props.Created, _ = time.Parse(time.RFC3339, strings.TrimSpace(raw.Created))
	props.Modified, _ = time.Parse(time.RFC3339, strings.TrimSpace(raw.Modified))
	return props, nil
}

// SetCoreProperties writes docProps/core.xml and makes sure it is linked from the package
func (p *Package) SetCoreProperties(props CoreProperties) error {
	now := time.Now().UTC()
	if props.Created.IsZero() {
		props.Created = now
	}
	if props.Modified.IsZero() {
		props.Modified = now
	}

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	element := func(tag, value string) {
		if value != "" {
			fmt.Fprintf(&b, "<%s>%s</%s>", tag, Escape(value), tag)
		}
	}
	element("dc:title", props.Title)
	element("dc:subject", props.Subject)
	element("dc:creator", props.Creator)
	element("cp:keywords", props.Keywords)
	element("dc:description", props.Description)
	element("cp:category", props.Category)
	element("cp:lastModifiedBy", props.LastModifiedBy)
	fmt.Fprintf(&b, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, props.Created.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, `<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>`, props.Modified.UTC().Format(time.RFC3339))
	b.WriteString(`</cp:coreProperties>`)

	p.SetPartString(CorePropsPart, b.String())
	if err := p.SetOverride(CorePropsPart, TypeCoreProps); err != nil {
		return err
	}

	rels, err := p.Rels("")
	if err != nil {
		return err
	}
	if len(rels.OfType(RelCoreProps)) == 0 {
		rels.Add(RelCoreProps, CorePropsPart, false)
		return p.SaveRels("", rels)
	}
	return nil
}

// Touch updates the modification time, keeping the other properties
func (p *Package) Touch() error {
	if !p.Has(CorePropsPart) {
		return nil
	}
	props, err := p.CoreProperties()
	if err != nil {
		return err
	}
	props.Modified = time.Now().UTC()
	return p.SetCoreProperties(props)
}
