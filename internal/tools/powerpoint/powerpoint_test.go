package powerpoint_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sammcj/mcp-office/internal/generator/pptx"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sammcj/mcp-office/internal/tools/powerpoint"
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
	require.NoError(t, powerpoint.Register(reg, pptx.New(logger), store))
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

func (h *harness) deck() {
	h.t.Helper()
	h.mustCall("create_powerpoint", map[string]any{
		"filename": "deck.pptx",
		"title":    "Roadmap",
		"subtitle": "2026 plan",
		"slides": []any{
			map[string]any{"title": "Goals", "bullets": []any{"Grow revenue", "Ship mobile"}, "notes": "Keep it brief"},
			map[string]any{"title": "Risks", "bullets": []any{"Hiring"}},
		},
	})
}

func (h *harness) read() string {
	h.t.Helper()
	return h.mustCall("read_presentation", map[string]any{"filename": "deck.pptx"})
}

func TestRegister_AllTools(t *testing.T) {
	h := setup(t)
	assert.Equal(t, 28, h.reg.Len())
}

func TestCreateAndRead(t *testing.T) {
	h := setup(t)
	h.deck()
	content := h.read()
	assert.Contains(t, content, "3 slide(s)")
	assert.Contains(t, content, "Slide 1")
	assert.Contains(t, content, "Roadmap")
	assert.Contains(t, content, "Grow revenue")
	assert.Contains(t, content, "Notes: Keep it brief")

	noNotes := h.mustCall("read_presentation", map[string]any{"filename": "deck.pptx", "includeNotes": false})
	assert.NotContains(t, noNotes, "Keep it brief")
}

func TestCreate_UnknownTheme(t *testing.T) {
	h := setup(t)
	_, err := h.call("create_powerpoint", map[string]any{"filename": "x.pptx", "theme": "neon"})
	var verr *tools.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "theme", verr.Field)
}

func TestSlideManagement(t *testing.T) {
	h := setup(t)
	h.deck()

	text := h.mustCall("add_slide", map[string]any{"filename": "deck.pptx", "title": "Budget", "after": 1.0})
	assert.Contains(t, text, "slide 2 of 4")

	h.mustCall("move_slide", map[string]any{"filename": "deck.pptx", "from": 2.0, "to": 4.0})
	text = h.mustCall("duplicate_slide", map[string]any{"filename": "deck.pptx", "slideNumber": 4.0})
	assert.Contains(t, text, "as slide 5")

	text = h.mustCall("delete_slide", map[string]any{"filename": "deck.pptx", "slideNumber": 5.0})
	assert.Contains(t, text, "4 remaining")

	_, err := h.call("delete_slide", map[string]any{"filename": "deck.pptx", "slideNumber": 9.0})
	assert.Error(t, err)

	info := h.mustCall("get_presentation_info", map[string]any{"filename": "deck.pptx"})
	assert.Contains(t, info, "Slides: 4")
	assert.Contains(t, info, "4. Budget")
}

func TestAddSlide_CreatesMissingDeck(t *testing.T) {
	h := setup(t)
	text := h.mustCall("add_slide", map[string]any{"filename": "fresh.pptx", "title": "Hello"})
	assert.Contains(t, text, "new presentation created")
	assert.FileExists(t, filepath.Join(h.dir, "fresh.pptx"))
}

func TestSlideContent(t *testing.T) {
	h := setup(t)
	h.deck()
	h.mustCall("add_slide_text", map[string]any{"filename": "deck.pptx", "slideNumber": 3.0, "text": "Mitigate early", "bold": true})
	h.mustCall("add_slide_table", map[string]any{
		"filename": "deck.pptx", "slideNumber": 3.0,
		"headers": []any{"Risk", "Owner"},
		"data":    []any{[]any{"Hiring", "Ops"}},
	})
	h.mustCall("add_shape", map[string]any{"filename": "deck.pptx", "slideNumber": 2.0, "shapeType": "rightArrow", "text": "Next"})
	text := h.mustCall("add_slide_chart", map[string]any{
		"filename": "deck.pptx", "slideNumber": 2.0, "title": "Revenue",
		"categories": []any{"Q1", "Q2"},
		"series":     []any{map[string]any{"name": "North", "values": []any{1.0, 2.0}}},
	})
	assert.Contains(t, text, "drawn as shapes")

	content := h.read()
	assert.Contains(t, content, "Mitigate early")
	assert.Contains(t, content, "Risk | Owner")
	assert.Contains(t, content, "Next")
}

func TestSlideImage(t *testing.T) {
	h := setup(t)
	h.deck()
	_, err := h.call("add_slide_image", map[string]any{"filename": "deck.pptx", "slideNumber": 1.0, "imagePath": "missing.png"})
	assert.Error(t, err)

	testutils.WriteFile(t, h.dir, "notes.txt", "not an image")
	_, err = h.call("add_slide_image", map[string]any{"filename": "deck.pptx", "slideNumber": 1.0, "imagePath": "notes.txt"})
	var verr *tools.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "imagePath", verr.Field)
}

func TestDesign(t *testing.T) {
	h := setup(t)
	h.deck()
	assert.Contains(t, h.mustCall("set_slide_background", map[string]any{"filename": "deck.pptx", "color": "F2F2F2"}), "every slide")
	assert.Contains(t, h.mustCall("add_slide_transition", map[string]any{"filename": "deck.pptx", "slideNumber": 2.0, "transition": "fade"}), "slide 2")
	h.mustCall("apply_theme", map[string]any{"filename": "deck.pptx", "theme": "dark"})
	h.mustCall("add_animation", map[string]any{"filename": "deck.pptx", "slideNumber": 2.0, "effect": "fade"})
	h.mustCall("add_speaker_notes", map[string]any{"filename": "deck.pptx", "slideNumber": 3.0, "notes": "Ask for questions"})

	assert.Contains(t, h.mustCall("add_slide_numbers", map[string]any{"filename": "deck.pptx"}), "2 slide(s)")
	assert.Contains(t, h.mustCall("add_slide_footer", map[string]any{"filename": "deck.pptx", "text": "Confidential", "skipTitleSlide": false}), "3 slide(s)")

	info := h.mustCall("get_presentation_info", map[string]any{"filename": "deck.pptx"})
	assert.Contains(t, info, "Theme: Dark")

	content := h.read()
	assert.Contains(t, content, "Animation: fade")
	assert.Contains(t, content, "Notes: Ask for questions")
}

func TestFindReplaceAndSections(t *testing.T) {
	h := setup(t)
	h.deck()
	text := h.mustCall("find_replace_presentation", map[string]any{"filename": "deck.pptx", "find": "revenue", "replace": "profit"})
	assert.Contains(t, text, "Replaced 1")
	assert.Contains(t, h.read(), "Grow profit")

	h.mustCall("add_section", map[string]any{"filename": "deck.pptx", "name": "Appendix"})
	assert.Contains(t, h.mustCall("get_presentation_info", map[string]any{"filename": "deck.pptx"}), "Sections: Appendix")
}

func TestOutlineRoundTrip(t *testing.T) {
	h := setup(t)
	_, err := h.call("create_presentation_from_outline", map[string]any{"filename": "talk.pptx"})
	assert.Error(t, err)

	text := h.mustCall("create_presentation_from_outline", map[string]any{
		"filename": "talk.pptx",
		"outline":  "# Go at scale\n\n## Why Go\n\n- Fast builds\n- Simple deployment\n\n> Keep this short\n\n## Questions\n",
	})
	assert.Contains(t, text, "3 slide(s)")

	text = h.mustCall("export_presentation_outline", map[string]any{"filename": "talk.pptx", "outputPath": "talk.md"})
	assert.Contains(t, text, "Why Go")
	data, err := os.ReadFile(filepath.Join(h.dir, "talk.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Fast builds")
}

func TestMergePresentations(t *testing.T) {
	h := setup(t)
	h.deck()
	h.mustCall("create_powerpoint", map[string]any{"filename": "extra.pptx", "title": "Extra"})

	_, err := h.call("merge_presentations", map[string]any{"filename": "all.pptx", "files": []any{"deck.pptx"}})
	assert.Error(t, err)

	text := h.mustCall("merge_presentations", map[string]any{"filename": "all.pptx", "files": []any{"deck.pptx", "extra.pptx"}})
	assert.Contains(t, text, "4 slides")
}

func TestSetProperties(t *testing.T) {
	h := setup(t)
	h.deck()
	_, err := h.call("set_presentation_properties", map[string]any{"filename": "deck.pptx"})
	assert.Error(t, err)

	h.mustCall("set_presentation_properties", map[string]any{"filename": "deck.pptx", "author": "Planning", "subject": "Strategy"})
	info := h.mustCall("get_presentation_info", map[string]any{"filename": "deck.pptx"})
	assert.Contains(t, info, "Author: Planning")
	assert.Contains(t, info, "Title: Roadmap")
}
