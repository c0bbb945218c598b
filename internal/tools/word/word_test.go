package word_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sammcj/mcp-office/internal/tools/word"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t   *testing.T
	dir string
	reg *registry.Registry
}

func setup(t *testing.T) *harness {
	t.Helper()
	logger := testutils.CreateTestLogger()
	dir := t.TempDir()
	store := output.NewStore(dir, t.TempDir(), security.NewPolicy(logger), logger)
	reg := registry.New(logger)
	require.NoError(t, word.Register(reg, docx.New(logger), store))
	return &harness{t: t, dir: dir, reg: reg}
}

func (h *harness) call(name string, args map[string]any) (string, error) {
	h.t.Helper()
	tool, ok := h.reg.Get(name)
	require.True(h.t, ok, "tool %s not registered", name)
	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), args)
	if err != nil {
		return "", err
	}
	return testutils.ResultText(h.t, result), nil
}

func (h *harness) mustCall(name string, args map[string]any) string {
	h.t.Helper()
	text, err := h.call(name, args)
	require.NoError(h.t, err, name)
	return text
}

func (h *harness) read(name string) string {
	h.t.Helper()
	return h.mustCall("read_word_document", map[string]any{"filename": name})
}

func TestRegister_AllTools(t *testing.T) {
	h := setup(t)
	assert.Equal(t, 39, h.reg.Len())
	for _, name := range []string{"create_word_document", "mail_merge", "add_footnote", "protect_document", "word_to_markdown"} {
		_, ok := h.reg.Get(name)
		assert.True(t, ok, name)
	}
}

func TestCreateAndRead(t *testing.T) {
	h := setup(t)
	text := h.mustCall("create_word_document", map[string]any{
		"filename":   "report.docx",
		"heading":    "Quarterly Report",
		"paragraphs": []any{"Revenue grew.", "Costs fell."},
	})
	assert.Contains(t, text, "report.docx")

	content := h.read("report.docx")
	assert.Contains(t, content, "Quarterly Report")
	assert.Contains(t, content, "Revenue grew.")
	assert.Contains(t, content, "Costs fell.")
}

func TestEdit_CreatesMissingDocument(t *testing.T) {
	h := setup(t)
	text := h.mustCall("add_paragraph", map[string]any{"filename": "notes.docx", "text": "First note"})
	assert.Contains(t, text, "new document created")
	assert.FileExists(t, filepath.Join(h.dir, "notes.docx"))

	text = h.mustCall("add_paragraph", map[string]any{"filename": "notes.docx", "text": "Second note"})
	assert.NotContains(t, text, "new document created")
	assert.Contains(t, h.read("notes.docx"), "Second note")
}

func TestStatus_TruncatesOnCharacters(t *testing.T) {
	h := setup(t)
	long := strings.Repeat("a", 36) + "日本語のテキスト"
	text := h.mustCall("add_paragraph", map[string]any{"filename": "notes.docx", "text": long})
	assert.True(t, utf8.ValidString(text))
	assert.Contains(t, text, "'"+strings.Repeat("a", 36)+"日...'")
}

func TestRead_MissingDocument(t *testing.T) {
	h := setup(t)
	_, err := h.call("read_word_document", map[string]any{"filename": "absent.docx"})
	assert.Error(t, err)
}

func TestFindReplace(t *testing.T) {
	h := setup(t)
	h.mustCall("create_word_document", map[string]any{
		"filename":   "draft.docx",
		"paragraphs": []any{"The cat sat.", "Another cat ran."},
	})
	text := h.mustCall("find_replace_word", map[string]any{"filename": "draft.docx", "find": "cat", "replace": "dog"})
	assert.Contains(t, text, "2")

	content := h.read("draft.docx")
	assert.Contains(t, content, "The dog sat.")
	assert.NotContains(t, content, "cat")
}

func TestApplyParagraphStyle_MatchText(t *testing.T) {
	h := setup(t)
	h.mustCall("create_word_document", map[string]any{
		"filename":   "styled.docx",
		"paragraphs": []any{"Plain text", "Quoted text"},
	})
	text := h.mustCall("apply_paragraph_style", map[string]any{"filename": "styled.docx", "style": "Quote", "matchText": "Quoted"})
	assert.Contains(t, text, "1 paragraph(s)")

	text = h.mustCall("set_line_spacing", map[string]any{"filename": "styled.docx", "lineSpacing": 1.5})
	assert.Contains(t, text, "2 paragraph(s)")
}

func TestMailMerge_SeparateFiles(t *testing.T) {
	h := setup(t)
	h.mustCall("create_word_document", map[string]any{
		"filename":   "template.docx",
		"paragraphs": []any{"Dear {{Name}},", "You owe {{Amount}}."},
	})
	text := h.mustCall("mail_merge", map[string]any{
		"templatePath":  "template.docx",
		"filename":      "letter.docx",
		"separateFiles": true,
		"nameField":     "Name",
		"records": []any{
			map[string]any{"Name": "Ada", "Amount": "10"},
			map[string]any{"Name": "Alan", "Amount": 20.0},
		},
	})
	assert.Contains(t, text, "Merged 2 record(s)")

	ada := h.read("letter-Ada.docx")
	assert.Contains(t, ada, "Dear Ada,")
	assert.Contains(t, ada, "You owe 10.")
	assert.Contains(t, h.read("letter-Alan.docx"), "You owe 20.")
}

func TestMailMerge_CombinedReportsMissingFields(t *testing.T) {
	h := setup(t)
	h.mustCall("create_word_document", map[string]any{
		"filename":   "template.docx",
		"paragraphs": []any{"Hello {{Name}} from {{City}}"},
	})
	text := h.mustCall("mail_merge", map[string]any{
		"templatePath": "template.docx",
		"filename":     "all.docx",
		"records":      []any{map[string]any{"Name": "Ada"}, map[string]any{"Name": "Alan"}},
	})
	assert.Contains(t, text, "City")

	content := h.read("all.docx")
	assert.Contains(t, content, "Hello Ada")
	assert.Contains(t, content, "Hello Alan")
}

func TestCompareDocuments(t *testing.T) {
	h := setup(t)
	h.mustCall("create_word_document", map[string]any{"filename": "v1.docx", "paragraphs": []any{"Alpha", "Beta"}})
	h.mustCall("create_word_document", map[string]any{"filename": "v2.docx", "paragraphs": []any{"Alpha", "Gamma"}})

	text := h.mustCall("compare_documents", map[string]any{
		"originalPath": "v1.docx", "revisedPath": "v2.docx", "filename": "diff.docx", "author": "Reviewer",
	})
	assert.Contains(t, text, "1 unchanged")
	assert.FileExists(t, filepath.Join(h.dir, "diff.docx"))
}

func TestMarkdownRoundTrip(t *testing.T) {
	h := setup(t)
	h.mustCall("markdown_to_word", map[string]any{
		"filename": "guide.docx",
		"markdown": "# Setup\n\nInstall the **tool** first.\n\n- one\n- two\n",
	})
	content := h.read("guide.docx")
	assert.Contains(t, content, "Setup")
	assert.Contains(t, content, "Install the tool first.")

	text := h.mustCall("word_to_markdown", map[string]any{"filename": "guide.docx", "outputPath": "guide.md"})
	assert.Contains(t, text, "Setup")
	data, err := os.ReadFile(filepath.Join(h.dir, "guide.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Setup")
	assert.Contains(t, string(data), "two")
}

func TestHTMLToWord(t *testing.T) {
	h := setup(t)
	_, err := h.call("html_to_word", map[string]any{"filename": "page.docx"})
	var verr *tools.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "html", verr.Field)

	testutils.WriteFile(t, h.dir, "page.html", "<h1>News</h1><p>Hello <b>world</b></p>")
	h.mustCall("html_to_word", map[string]any{"filename": "page.docx", "htmlPath": "page.html"})
	content := h.read("page.docx")
	assert.Contains(t, content, "News")
	assert.Contains(t, content, "Hello world")
}

func TestStatistics(t *testing.T) {
	h := setup(t)
	h.mustCall("create_word_document", map[string]any{"filename": "stats.docx", "paragraphs": []any{"One two three.", "Four five."}})
	h.mustCall("add_word_table", map[string]any{
		"filename": "stats.docx",
		"headers":  []any{"A", "B"},
		"data":     []any{[]any{"1", "2"}},
	})
	text := h.mustCall("get_document_statistics", map[string]any{"filename": "stats.docx"})
	assert.Contains(t, text, "Words: ")
	assert.Contains(t, text, "Tables: 1")
}

func TestProtectAndTrackChanges(t *testing.T) {
	h := setup(t)
	h.mustCall("create_word_document", map[string]any{"filename": "locked.docx", "paragraphs": []any{"Body"}})
	h.mustCall("set_track_changes", map[string]any{"filename": "locked.docx", "enabled": true})
	text := h.mustCall("protect_document", map[string]any{"filename": "locked.docx", "type": "readOnly", "password": "secret"})
	assert.Contains(t, text, "locked.docx")
}
