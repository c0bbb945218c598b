package ooxml_test

import (
	"testing"

	"github.com/sammcj/mcp-office/internal/ooxml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackage_RoundTrip(t *testing.T) {
	p := ooxml.New()
	require.NoError(t, p.SetOverride("word/document.xml", "application/test+xml"))
	p.SetPartString("word/document.xml", "<doc/>")
	_, err := p.Link("", ooxml.RelOfficeDocument, "word/document.xml")
	require.NoError(t, err)

	data, err := p.Bytes()
	require.NoError(t, err)

	reopened, err := ooxml.Open(data)
	require.NoError(t, err)
	assert.Equal(t, "<doc/>", reopened.PartString("word/document.xml"))
	assert.Equal(t, "application/test+xml", reopened.ContentType("/word/document.xml"))
	assert.Equal(t, ooxml.TypeRelationships, reopened.ContentType("_rels/.rels"))

	main, err := reopened.MainPart()
	require.NoError(t, err)
	assert.Equal(t, "word/document.xml", main)
}

func TestOpen_RejectsNonPackages(t *testing.T) {
	_, err := ooxml.Open([]byte("plain text"))
	assert.Error(t, err)
}

func TestRelationships_IDsAndRemoval(t *testing.T) {
	p := ooxml.New()
	id1, err := p.Link("word/document.xml", ooxml.RelStyles, "word/styles.xml")
	require.NoError(t, err)
	id2, err := p.LinkExternal("word/document.xml", ooxml.RelHyperlink, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "rId1", id1)
	assert.Equal(t, "rId2", id2)

	rels, err := p.Rels("word/document.xml")
	require.NoError(t, err)
	assert.Equal(t, "styles.xml", rels.Items[0].Target)
	assert.True(t, rels.Items[1].External())

	rels.Remove(id1)
	assert.Equal(t, "rId3", rels.Add(ooxml.RelNumbering, "numbering.xml", false))
}

func TestTargets(t *testing.T) {
	assert.Equal(t, "word/_rels/document.xml.rels", ooxml.RelsPartName("word/document.xml"))
	assert.Equal(t, "_rels/.rels", ooxml.RelsPartName(""))
	assert.Equal(t, "ppt/slideLayouts/slideLayout1.xml", ooxml.ResolveTarget("ppt/slides/slide1.xml", "../slideLayouts/slideLayout1.xml"))
	assert.Equal(t, "../slideLayouts/slideLayout1.xml", ooxml.RelativeTarget("ppt/slides/slide1.xml", "ppt/slideLayouts/slideLayout1.xml"))
	assert.Equal(t, "slides/slide2.xml", ooxml.RelativeTarget("ppt/presentation.xml", "ppt/slides/slide2.xml"))
	assert.Equal(t, "docProps/core.xml", ooxml.RelativeTarget("", "docProps/core.xml"))
}

func TestCoreProperties(t *testing.T) {
	p := ooxml.New()
	require.NoError(t, p.SetCoreProperties(ooxml.CoreProperties{Title: "Q3 <Report>", Creator: "Finance"}))

	props, err := p.CoreProperties()
	require.NoError(t, err)
	assert.Equal(t, "Q3 <Report>", props.Title)
	assert.Equal(t, "Finance", props.Creator)
	assert.False(t, props.Created.IsZero())

	rels, err := p.Rels("")
	require.NoError(t, err)
	assert.Len(t, rels.OfType(ooxml.RelCoreProps), 1)

	require.NoError(t, p.SetCoreProperties(props))
	rels, _ = p.Rels("")
	assert.Len(t, rels.OfType(ooxml.RelCoreProps), 1, "relationship is not duplicated")
}

func TestAddMedia(t *testing.T) {
	p := ooxml.New()
	id, err := p.AddMedia("word/document.xml", "word/media", ".jpg", []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.Equal(t, "rId1", id)
	assert.True(t, p.Has("word/media/image1.jpeg"))
	assert.Equal(t, "image/jpeg", p.ContentType("word/media/image1.jpeg"))

	_, err = p.AddMedia("word/document.xml", "word/media", "tiff", nil)
	assert.Error(t, err)
}

func TestElements(t *testing.T) {
	doc := `<w:body><w:p><w:r><w:t>a</w:t></w:r></w:p><w:p/><w:tbl><w:tr><w:tc><w:p><w:r><w:t>b</w:t></w:r></w:p></w:tc></w:tr></w:tbl><w:pPr/></w:body>`
	spans := ooxml.Elements(doc, "w:p")
	require.Len(t, spans, 3)
	assert.Equal(t, "<w:p><w:r><w:t>a</w:t></w:r></w:p>", doc[spans[0].Start:spans[0].End])
	assert.Equal(t, "<w:p/>", doc[spans[1].Start:spans[1].End])
	assert.Equal(t, "b", ooxml.StripTags(doc[spans[2].Start:spans[2].End]))
}

func TestXMLHelpers(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt;", ooxml.Escape("a & b <c>\x01"))
	assert.Equal(t, "a & b <c>", ooxml.Unescape("a &amp; b &lt;c&gt;"))

	doc := `<w:sectPr/>`
	assert.Equal(t, `<w:sectPr><w:x/></w:sectPr>`, ooxml.InsertAfterOpen(doc, "<w:sectPr", "<w:x/>"))
	assert.Equal(t, 8, ooxml.IndexTag(`<w:pPr/><w:p>`, "<w:p"))
	assert.Equal(t, "720", ooxml.Attr(`<w:pgMar w:top="720" w:left="1440"/>`, "w:top"))

	removed := ooxml.RemoveElements(`<a><w:bg x="1"/><b/><w:bg>y</w:bg></a>`, "w:bg")
	assert.Equal(t, "<a><b/></a>", removed)
}

func TestInsertBefore_EarliestMarker(t *testing.T) {
	doc := `<w:settings><w:zoom/><w:defaultTabStop/><w:compat/></w:settings>`
	got := ooxml.InsertBefore(doc, "<w:trackRevisions/>", "<w:compat", "<w:defaultTabStop", "</w:settings>")
	assert.Equal(t, `<w:settings><w:zoom/><w:trackRevisions/><w:defaultTabStop/><w:compat/></w:settings>`, got)
	assert.Equal(t, "ab", ooxml.InsertBefore("a", "b", "<w:missing"))
}

func TestElement(t *testing.T) {
	order := []string{"w:pStyle", "w:keepNext", "w:numPr", "w:spacing", "w:jc"}
	e, err := ooxml.ParseElement(`<w:pPr><w:pStyle w:val="Title"/><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr><w:jc w:val="center"/></w:pPr>`)
	require.NoError(t, err)
	assert.Equal(t, "w:pPr", e.Name)
	require.Len(t, e.Children, 3)
	assert.Equal(t, `<w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr>`, e.Children[1].Raw)

	e.Set("w:spacing", `<w:spacing w:line="360"/>`, order)
	e.Set("w:pStyle", `<w:pStyle w:val="Heading1"/>`, order)
	e.Remove("w:numPr")
	assert.Equal(t, `<w:pPr><w:pStyle w:val="Heading1"/><w:spacing w:line="360"/><w:jc w:val="center"/></w:pPr>`, e.String())

	empty, err := ooxml.ParseElement(`<w:rPr/>`)
	require.NoError(t, err)
	empty.Set("w:b", "<w:b/>", nil)
	assert.Equal(t, `<w:rPr><w:b/></w:rPr>`, empty.String())
}
