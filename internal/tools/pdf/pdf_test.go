package pdf_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/internal/tools/pdf"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePDF builds a minimal document with the given number of blank pages
func samplePDF(pages int, title string) []byte {
	var b strings.Builder
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	b.WriteString("%PDF-1.4\n")
	kids := make([]string, pages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", i+4)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	obj(fmt.Sprintf("<< /Title (%s) /Author (Test Suite) /CreationDate (D:20240102030405Z) >>", title))
	for range pages {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R /Info 3 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return []byte(b.String())
}

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
	require.NoError(t, pdf.Register(reg, store))
	return &harness{t: t, dir: dir, reg: reg}
}

func (h *harness) write(name string, pages int) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(h.t, os.WriteFile(path, samplePDF(pages, strings.TrimSuffix(name, ".pdf")), 0o644))
	return path
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

func (h *harness) pages(name string) int {
	h.t.Helper()
	n, err := api.PageCountFile(filepath.Join(h.dir, name))
	require.NoError(h.t, err)
	return n
}

func TestRegister(t *testing.T) {
	h := setup(t)
	assert.ElementsMatch(t, []string{"get_pdf_info", "merge_pdfs", "split_pdf", "add_pdf_watermark"}, h.reg.Names())
}

func TestInfo(t *testing.T) {
	h := setup(t)
	h.write("report.pdf", 3)

	text := h.mustCall("get_pdf_info", map[string]any{"filename": "report.pdf"})
	var info pdf.Info
	require.NoError(t, json.Unmarshal([]byte(text), &info))
	assert.Equal(t, 3, info.Pages)
	assert.Equal(t, "report", info.Title)
	assert.Equal(t, "Test Suite", info.Author)
	assert.Contains(t, info.CreationDate, "D:20240102030405")
	assert.False(t, info.Encrypted)
	require.Len(t, info.PageSizes, 1)
	assert.Equal(t, "1-3", info.PageSizes[0].Pages)
	assert.InDelta(t, 612, info.PageSizes[0].Width, 0.01)

	_, err := h.call("get_pdf_info", map[string]any{"filename": "missing.pdf"})
	assert.ErrorContains(t, err, "does not exist")
}

func TestInfo_SizeLimit(t *testing.T) {
	h := setup(t)
	h.write("big.pdf", 1)
	defer testutils.WithEnv(t, pdf.PDFMaxFileSizeEnvVar, "10")()
	_, err := h.call("get_pdf_info", map[string]any{"filename": "big.pdf"})
	assert.ErrorContains(t, err, "limit")
}

func TestMerge(t *testing.T) {
	h := setup(t)
	h.write("cover.pdf", 1)
	h.write("chapters/01.pdf", 2)
	h.write("chapters/02.pdf", 3)

	text := h.mustCall("merge_pdfs", map[string]any{
		"filename": "book.pdf",
		"files":    []any{"cover.pdf", "chapters/*.pdf"},
	})
	assert.Contains(t, text, "Merged 3 PDFs")
	assert.Contains(t, text, "(6 pages)")
	assert.Equal(t, 6, h.pages("book.pdf"))

	_, err := h.call("merge_pdfs", map[string]any{"filename": "x.pdf", "files": []any{"cover.pdf"}})
	assert.ErrorContains(t, err, "at least two")

	_, err = h.call("merge_pdfs", map[string]any{"filename": "x.pdf", "files": []any{"none/*.pdf", "cover.pdf"}})
	assert.ErrorContains(t, err, "no files match")
}

func TestSplit(t *testing.T) {
	h := setup(t)
	h.write("deck.pdf", 4)

	text := h.mustCall("split_pdf", map[string]any{"filename": "deck.pdf", "span": 2, "outputDir": "parts"})
	assert.Contains(t, text, "into 2 file(s)")
	entries, err := os.ReadDir(filepath.Join(h.dir, "parts"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	text = h.mustCall("split_pdf", map[string]any{"filename": "deck.pdf", "ranges": []any{"1-3", "4"}, "outputDir": "ranges"})
	assert.Contains(t, text, "into 2 file(s)")
	assert.Equal(t, 3, h.pages("ranges/deck_part1_1-3.pdf"))
	assert.Equal(t, 1, h.pages("ranges/deck_part2_4.pdf"))

	_, err = h.call("split_pdf", map[string]any{"filename": "deck.pdf", "ranges": []any{"3-9"}})
	assert.ErrorContains(t, err, "invalid page range")
}

func TestWatermark(t *testing.T) {
	h := setup(t)
	h.write("draft.pdf", 3)
	before, err := os.ReadFile(filepath.Join(h.dir, "draft.pdf"))
	require.NoError(t, err)

	text := h.mustCall("add_pdf_watermark", map[string]any{"filename": "draft.pdf", "text": "DRAFT", "pages": "1-2"})
	assert.Contains(t, text, "to 2 of 3 pages")

	after, err := os.ReadFile(filepath.Join(h.dir, "draft.pdf"))
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, 3, h.pages("draft.pdf"))

	h.mustCall("add_pdf_watermark", map[string]any{"filename": "draft.pdf", "text": "COPY", "outputPath": "copy.pdf"})
	assert.Equal(t, 3, h.pages("copy.pdf"))

	_, err = h.call("add_pdf_watermark", map[string]any{"filename": "draft.pdf", "text": " "})
	assert.Error(t, err)
}

func TestParsePageSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "all", want: []int{1, 2, 3, 4, 5}},
		{in: "", want: []int{1, 2, 3, 4, 5}},
		{in: "2-3, 5", want: []int{2, 3, 5}},
		{in: "4,1,4", want: []int{1, 4}},
		{in: "0", wantErr: true},
		{in: "4-2", wantErr: true},
		{in: "x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := pdf.ParsePageSelection(tt.in, 5)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
