package docx_test

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator() *docx.Generator {
	return docx.New(testutils.CreateTestLogger())
}

// build creates a document, applies fn and reopens the saved bytes
func build(t *testing.T, g *docx.Generator, fn func(d *docx.Document) error) *docx.Document {
	t.Helper()
	data, err := g.Apply(nil, fn)
	require.NoError(t, err)
	d, err := g.Open(data)
	require.NoError(t, err)
	return d
}

func TestBlankDocumentRoundTrip(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		if err := d.AddHeading("Report", 1); err != nil {
			return err
		}
		return d.AddParagraph("Hello", docx.RunStyle{Bold: true}, docx.ParagraphStyle{Align: "center"})
	})

	assert.Equal(t, []string{"Report", "Hello"}, d.Text())
	assert.True(t, d.HasStyle("Heading1"))
	assert.Contains(t, d.XML(), `<w:jc w:val="center"/>`)

	props, err := d.Properties()
	require.NoError(t, err)
	assert.Equal(t, "mcp-office", props.Creator)
	assert.False(t, props.Modified.IsZero())
}

func TestOpen_RejectsNonDocuments(t *testing.T) {
	g := newGenerator()
	_, err := g.Open([]byte("plain text"))
	var docErr *docx.DocumentError
	assert.ErrorAs(t, err, &docErr)

	err = g.Inspect(nil, func(*docx.Document) error { return nil })
	assert.Error(t, err)
}

func TestBlocks(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		if err := d.AddList([]string{"one", "  nested", "two"}, false); err != nil {
			return err
		}
		if err := d.AddList([]string{"first", "second"}, true); err != nil {
			return err
		}
		return d.AddTable([][]string{{"Name", "Qty"}, {"Apple", "3"}}, docx.TableOptions{Header: true})
	})

	blocks := d.Blocks()
	var items []docx.Block
	var tables []docx.Block
	for _, b := range blocks {
		switch b.Kind {
		case docx.BlockListItem:
			items = append(items, b)
		case docx.BlockTable:
			tables = append(tables, b)
		}
	}
	require.Len(t, items, 5)
	assert.Equal(t, "nested", items[1].Text)
	assert.Equal(t, 1, items[1].Level)
	assert.False(t, items[0].Numbered)
	assert.True(t, items[3].Numbered)
	require.Len(t, tables, 1)
	assert.Equal(t, [][]string{{"Name", "Qty"}, {"Apple", "3"}}, tables[0].Rows)
	assert.Contains(t, d.PlainText(), "Apple\t3")
}

func TestReplaceText(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		d.Append(docx.Paragraph(docx.ParagraphStyle{},
			docx.Run("Hello Wo", docx.RunStyle{Bold: true}),
			docx.Run("rld", docx.RunStyle{})))
		return d.AddParagraph("world peace, world wide", docx.RunStyle{}, docx.ParagraphStyle{})
	})

	n, err := d.ReplaceText("world", "Earth", false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"Hello Earth", "Earth peace, Earth wide"}, d.Text())
	// the match started in the bold run
	assert.Contains(t, d.XML(), "<w:b/>")

	n, err = d.ReplaceText("EARTH", "x", true)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = d.ReplaceText("", "x", false)
	assert.Error(t, err)
}

func TestReplaceText_SplitRunsKeepInlineContent(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		d.Append(docx.Paragraph(docx.ParagraphStyle{},
			docx.Run("Hel", docx.RunStyle{Italic: true}),
			docx.Run("lo there ", docx.RunStyle{}),
			`<w:r><w:drawing><wp:inline><wp:docPr id="7" name="Picture 7"/></wp:inline></w:drawing></w:r>`,
			`<w:hyperlink r:id="rId42"><w:r><w:t>see site</w:t></w:r></w:hyperlink>`,
			`<w:r><w:fldChar w:fldCharType="begin"/></w:r>`))
		return nil
	})

	n, err := d.ReplaceText("Hello", "Bye", true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"Bye there see site"}, d.Text())

	xml := d.XML()
	assert.Contains(t, xml, `<wp:docPr id="7" name="Picture 7"/>`)
	assert.Contains(t, xml, `<w:hyperlink r:id="rId42">`)
	assert.Contains(t, xml, `w:fldCharType="begin"`)
	assert.Contains(t, xml, "<w:i/>")
	assert.Equal(t, 1, strings.Count(xml, "Bye"))

	n, err = d.ReplaceText("there see", "over", true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"Bye over site"}, d.Text())
	assert.Contains(t, d.XML(), `<w:hyperlink r:id="rId42">`)
}

func TestHeaderFooterAndFields(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		if err := d.SetHeaderFooter(docx.Header, docx.Paragraph(docx.ParagraphStyle{}, docx.Run("Confidential", docx.RunStyle{}))); err != nil {
			return err
		}
		if err := d.SetHeaderFooter(docx.Footer, docx.PageNumberParagraph("", "right")); err != nil {
			return err
		}
		// replacing the header reuses its part
		return d.SetHeaderFooter(docx.Header, docx.Paragraph(docx.ParagraphStyle{}, docx.Run("Internal", docx.RunStyle{})))
	})

	assert.Equal(t, "Internal", d.HeaderFooterText(docx.Header))
	assert.Equal(t, "Page 1 of 1", d.HeaderFooterText(docx.Footer))
	assert.Equal(t, 1, strings.Count(d.XML(), "<w:headerReference"))
	assert.True(t, d.Package().Has("word/header1.xml"))
	assert.False(t, d.Package().Has("word/header2.xml"))

	sect, err := d.SectionProperties()
	require.NoError(t, err)
	// references come before page size
	assert.Equal(t, "w:headerReference", sect.Children[0].Name)
}

func TestPageLayout(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		if err := d.AddParagraph("Section one", docx.RunStyle{}, docx.ParagraphStyle{}); err != nil {
			return err
		}
		if err := d.AddSectionBreak("continuous"); err != nil {
			return err
		}
		if err := d.SetMargins(0.5, 0, 0, 2); err != nil {
			return err
		}
		if err := d.SetOrientation(true); err != nil {
			return err
		}
		return d.SetColumns(2, 0.25, true)
	})

	sect, err := d.SectionProperties()
	require.NoError(t, err)
	pgSz, ok := sect.Get("w:pgSz")
	require.True(t, ok)
	assert.Contains(t, pgSz.Raw, `w:w="15840"`)
	assert.Contains(t, pgSz.Raw, `w:orient="landscape"`)
	pgMar, _ := sect.Get("w:pgMar")
	assert.Contains(t, pgMar.Raw, `w:top="720"`)
	assert.Contains(t, pgMar.Raw, `w:left="2880"`)
	assert.Contains(t, pgMar.Raw, `w:right="1440"`)
	cols, _ := sect.Get("w:cols")
	assert.Contains(t, cols.Raw, `w:num="2"`)
	typ, _ := sect.Get("w:type")
	assert.Contains(t, typ.Raw, "continuous")

	assert.Equal(t, 2, d.Statistics().Sections)
	assert.Error(t, d.AddSectionBreak("sideways"))
	assert.Error(t, d.SetColumns(0, 0, false))
}

func TestSettingsKeepSchemaOrder(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		if err := d.Protect("readOnly", "secret"); err != nil {
			return err
		}
		if err := d.SetTrackChanges(true); err != nil {
			return err
		}
		return d.AddTableOfContents("", 2)
	})

	settings := d.Package().PartString("word/settings.xml")
	track := strings.Index(settings, "<w:trackRevisions")
	protect := strings.Index(settings, "<w:documentProtection")
	tab := strings.Index(settings, "<w:defaultTabStop")
	update := strings.Index(settings, "<w:updateFields")
	compat := strings.Index(settings, "<w:compat>")
	require.True(t, track > 0 && protect > 0 && update > 0)
	assert.Less(t, track, protect)
	assert.Less(t, protect, tab)
	assert.Less(t, update, compat)
	assert.Contains(t, settings, `w:edit="readOnly"`)
	assert.Contains(t, settings, `w:hash="`)
	assert.Contains(t, d.XML(), `TOC \o &#34;1-2&#34;`)

	assert.True(t, d.Setting("w:trackRevisions"))
	require.NoError(t, d.SetTrackChanges(false))
	assert.False(t, d.Setting("w:trackRevisions"))
	assert.Error(t, d.Protect("everything", ""))
}

func TestCommentsAndNotes(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		if err := d.AddParagraph("The important clause.", docx.RunStyle{}, docx.ParagraphStyle{}); err != nil {
			return err
		}
		if err := d.AddComment("Check this", "Ada Lovelace", "important"); err != nil {
			return err
		}
		if _, err := d.AddFootnote("Source: annual report", "clause"); err != nil {
			return err
		}
		_, err := d.AddCaption("Table", "Totals")
		return err
	})

	assert.Equal(t, []string{"Ada Lovelace: Check this"}, d.Comments())
	assert.Contains(t, d.XML(), `<w:commentRangeStart w:id="0"/>`)
	assert.Equal(t, 1, d.Statistics().Comments)

	text := d.Text()
	assert.Equal(t, "The important clause.1", text[0])
	assert.Equal(t, "1 Source: annual report", text[1])
	assert.Equal(t, "Table 1: Totals", text[2])

	n, err := d.AddCaption("Table", "Second")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Error(t, d.AddComment("Missing", "", "no such text"))
}

func TestPlaceholdersAndStyles(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		if err := d.AddParagraph("Intro", docx.RunStyle{}, docx.ParagraphStyle{}); err != nil {
			return err
		}
		if err := d.AddWatermark("Draft", ""); err != nil {
			return err
		}
		d.AddTextBox("Boxed text", "Note", "")
		if err := d.AddEquation("E = mc^2", ""); err != nil {
			return err
		}
		d.AddSignatureLine("Ada Lovelace", "Director", "", true)
		if _, err := d.ApplyStyle("Quote", "Intro", -1); err != nil {
			return err
		}
		_, err := d.SetLineSpacing(1.5, 0, 6, "", 0)
		return err
	})

	assert.Equal(t, "DRAFT", d.HeaderFooterText(docx.Header))
	assert.Contains(t, d.PlainText(), "Boxed text")
	assert.Contains(t, d.PlainText(), "E = mc^2")
	assert.Contains(t, d.PlainText(), "Ada Lovelace")
	assert.Contains(t, d.XML(), `<w:pStyle w:val="Quote"/>`)
	assert.Contains(t, d.XML(), `<w:spacing w:after="120" w:line="360" w:lineRule="auto"/>`)
	assert.True(t, d.HasStyle("Quote"))

	_, err := d.ApplyStyle("NoSuchStyle", "", 0)
	assert.Error(t, err)
	_, err = d.ApplyStyle("Quote", "", 99)
	assert.Error(t, err)
	assert.Error(t, d.AddEquation(" ", ""))
}

func TestCitations(t *testing.T) {
	g := newGenerator()
	sources := []docx.Source{
		{Author: "Turing, Alan", Title: "Computing Machinery and Intelligence", Year: "1950", Journal: "Mind"},
		{Author: "Ada Lovelace", Title: "Notes", Year: "1843"},
	}
	d := build(t, g, func(d *docx.Document) error {
		if _, err := d.AddCitation(sources[0], "apa", "Machines can think", ""); err != nil {
			return err
		}
		return d.AddBibliography(sources, "apa", "")
	})

	text := d.Text()
	assert.Equal(t, "Machines can think (Turing, 1950)", text[0])
	assert.Equal(t, "References", text[1])
	assert.Equal(t, "Ada Lovelace (1843). Notes.", text[2])
	assert.Equal(t, "Turing, Alan (1950). Computing Machinery and Intelligence. Mind.", text[3])

	assert.Equal(t, "(Lovelace)", docx.InlineCitation(sources[1], docx.StyleMLA))
	assert.Equal(t, "(Turing 1950)", docx.InlineCitation(sources[0], docx.StyleChicago))
	_, err := d.AddCitation(sources[0], "harvard", "", "")
	assert.Error(t, err)
}

func TestAddImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))))

	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		return d.AddImage(buf.Bytes(), "png", 100, 0, "chart", "center")
	})

	assert.True(t, d.Package().Has("word/media/image1.png"))
	assert.Contains(t, d.XML(), `cx="952500" cy="476250"`)
	assert.Contains(t, d.XML(), `descr="chart"`)
	assert.Equal(t, 1, d.Statistics().Images)
}

func TestHyperlinks(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		if err := d.AddHyperlink("docs", "https://example.com/docs", "See the "); err != nil {
			return err
		}
		return d.AddHyperlink("top", "#top", "")
	})

	assert.Equal(t, []string{"See the docs", "top"}, d.Text())
	rels, err := d.Package().Rels("word/document.xml")
	require.NoError(t, err)
	links := rels.OfType("http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink")
	require.Len(t, links, 1)
	assert.True(t, links[0].External())
	assert.Contains(t, d.XML(), `w:anchor="top"`)
}

func TestStatistics(t *testing.T) {
	g := newGenerator()
	d := build(t, g, func(d *docx.Document) error {
		if err := d.AddHeading("Title", 0); err != nil {
			return err
		}
		return d.AddParagraph("One two three. Four five!", docx.RunStyle{}, docx.ParagraphStyle{})
	})

	s := d.Statistics()
	assert.Equal(t, 2, s.Paragraphs)
	assert.Equal(t, 1, s.Headings)
	assert.Equal(t, 6, s.Words)
	assert.Equal(t, 3, s.Sentences)
	assert.Equal(t, 1, s.EstimatedPages)
	assert.Equal(t, len("Title")+len("One two three. Four five!"), s.Characters)
}

func TestFromMarkdown(t *testing.T) {
	g := newGenerator()
	src := "# Title\n\nSome **bold** and [a link](https://example.com).\n\n- one\n- two\n\n1. first\n2. second\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n```\ncode line\n```\n"
	data, err := g.FromMarkdown(src, &docx.Properties{Title: "From markdown"})
	require.NoError(t, err)
	d, err := g.Open(data)
	require.NoError(t, err)

	blocks := d.Blocks()
	require.NotEmpty(t, blocks)
	assert.Equal(t, docx.BlockHeading, blocks[0].Kind)
	assert.Equal(t, "Title", blocks[0].Text)
	assert.Equal(t, "Some bold and a link.", blocks[1].Text)
	assert.Equal(t, docx.BlockListItem, blocks[2].Kind)
	assert.False(t, blocks[2].Numbered)
	assert.True(t, blocks[4].Numbered)
	assert.Equal(t, docx.BlockTable, blocks[6].Kind)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, blocks[6].Rows)
	assert.Contains(t, d.PlainText(), "code line")

	props, err := d.Properties()
	require.NoError(t, err)
	assert.Equal(t, "From markdown", props.Title)

	md, err := d.Markdown()
	require.NoError(t, err)
	assert.Contains(t, md, "# Title")
	assert.Contains(t, md, "one")
	assert.Contains(t, md, "first")
}

func TestFromHTML(t *testing.T) {
	g := newGenerator()
	src := `<html><head><title>Page</title></head><body>
<h2>Sub</h2>
<p>Para <b>bold</b> <a href="https://example.com">link</a></p>
<ul><li>x</li><li>y<ul><li>z</li></ul></li></ul>
<table><tr><th>h</th></tr><tr><td>v</td></tr></table>
<script>ignored()</script>
</body></html>`
	data, err := g.FromHTML(src, nil)
	require.NoError(t, err)
	d, err := g.Open(data)
	require.NoError(t, err)

	blocks := d.Blocks()
	require.Len(t, blocks, 6)
	assert.Equal(t, docx.BlockHeading, blocks[0].Kind)
	assert.Equal(t, 2, blocks[0].Level)
	assert.Equal(t, "Para bold link", blocks[1].Text)
	assert.Equal(t, "z", blocks[4].Text)
	assert.Equal(t, 1, blocks[4].Level)
	assert.Equal(t, [][]string{{"h"}, {"v"}}, blocks[5].Rows)
	assert.NotContains(t, d.PlainText(), "ignored")

	props, err := d.Properties()
	require.NoError(t, err)
	assert.Equal(t, "Page", props.Title)
}

func TestCompare(t *testing.T) {
	g := newGenerator()
	doc := func(lines ...string) []byte {
		data, err := g.Apply(nil, func(d *docx.Document) error {
			for _, l := range lines {
				if err := d.AddParagraph(l, docx.RunStyle{}, docx.ParagraphStyle{}); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)
		return data
	}

	data, result, err := g.Compare(doc("Alpha", "Beta", "Gamma"), doc("Alpha", "Beta changed", "Delta", "Gamma"), "Reviewer")
	require.NoError(t, err)
	assert.Equal(t, docx.Comparison{Inserted: 1, Modified: 1, Unchanged: 2}, result)

	d, err := g.Open(data)
	require.NoError(t, err)
	assert.Contains(t, d.Revisions(), "+Delta")
	assert.Contains(t, d.Revisions(), "+ changed")
	assert.Contains(t, d.XML(), `w:author="Reviewer"`)
	assert.True(t, d.Setting("w:trackRevisions"))
}

func TestMailMerge(t *testing.T) {
	g := newGenerator()
	template, err := g.Apply(nil, func(d *docx.Document) error {
		d.Append(docx.Paragraph(docx.ParagraphStyle{},
			docx.Run("Dear {{Na", docx.RunStyle{}),
			docx.Run("me}}, order «Order» shipped.", docx.RunStyle{})))
		return nil
	})
	require.NoError(t, err)

	fields, err := g.Placeholders(template)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Order"}, fields)

	data, err := g.MailMerge(template, []map[string]string{
		{"Name": "Ada", "Order": "A-1"},
		{"Name": "Linus", "Order": "B-2"},
	})
	require.NoError(t, err)
	d, err := g.Open(data)
	require.NoError(t, err)
	text := d.PlainText()
	assert.Contains(t, text, "Dear Ada, order A-1 shipped.")
	assert.Contains(t, text, "Dear Linus, order B-2 shipped.")
	assert.Contains(t, d.XML(), `w:type="page"`)

	_, err = g.MailMerge(template, nil)
	assert.Error(t, err)
}
