package records_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/generator/records"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*records.Store, string) {
	t.Helper()
	dir := t.TempDir()
	logger := testutils.CreateTestLogger()
	files := output.NewStore(dir, t.TempDir(), security.NewPolicy(logger), logger)
	return records.NewStore(files, logger), dir
}

func ptr[T any](v T) *T { return &v }

func TestTasks_Lifecycle(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()
	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	first, path, err := s.AddTask(ctx, "tasks.json", "", records.Task{Title: "Write report", Priority: "High", Due: &due})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tasks.json"), path)
	assert.Len(t, first.ID, 36)
	assert.Equal(t, "high", first.Priority)
	assert.Equal(t, records.StatusNotStarted, first.Status)

	second, _, err := s.AddTask(ctx, "tasks.json", "", records.Task{Title: "Book travel"})
	require.NoError(t, err)
	assert.Equal(t, "normal", second.Priority)

	updated, _, err := s.UpdateTask(ctx, "tasks.json", "", first.ID[:8], records.TaskPatch{PercentComplete: ptr(40)})
	require.NoError(t, err)
	assert.Equal(t, records.StatusInProgress, updated.Status)
	assert.Equal(t, 40, updated.PercentComplete)

	open, err := s.ListTasks("tasks.json", records.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "Write report", open[0].Title, "dated tasks sort first")

	done, _, err := s.CompleteTask(ctx, "tasks.json", "", second.ID)
	require.NoError(t, err)
	assert.Equal(t, records.StatusCompleted, done.Status)
	assert.Equal(t, 100, done.PercentComplete)
	require.NotNil(t, done.Completed)

	open, err = s.ListTasks("tasks.json", records.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, open, 1)

	all, err := s.ListTasks("tasks.json", records.TaskFilter{IncludeCompleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := s.ListTasks("tasks.json", records.TaskFilter{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "Book travel", completed[0].Title)

	reopened, _, err := s.UpdateTask(ctx, "tasks.json", "", second.ID, records.TaskPatch{Status: ptr("in progress")})
	require.NoError(t, err)
	assert.Equal(t, records.StatusInProgress, reopened.Status)
	assert.Zero(t, reopened.PercentComplete)
	assert.Nil(t, reopened.Completed)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var file map[string]any
	require.NoError(t, json.Unmarshal(raw, &file))
	assert.Equal(t, records.KindTasks, file["kind"])
	assert.EqualValues(t, 1, file["version"])
}

func TestTasks_Errors(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, _, err := s.AddTask(ctx, "tasks.json", "", records.Task{})
	assert.ErrorContains(t, err, "needs a title")

	_, _, err = s.AddTask(ctx, "tasks.json", "", records.Task{Title: "x", Priority: "critical"})
	assert.ErrorContains(t, err, "unknown priority")

	_, _, err = s.UpdateTask(ctx, "tasks.json", "", "missing", records.TaskPatch{})
	assert.ErrorContains(t, err, "no record with id")

	_, _, err = s.UpdateTask(ctx, "tasks.json", "", "", records.TaskPatch{})
	assert.ErrorContains(t, err, "an id is required")
}

func TestTasks_OverdueFilter(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)
	_, _, err := s.AddTask(ctx, "t.json", "", records.Task{Title: "late", Due: &past})
	require.NoError(t, err)
	_, _, err = s.AddTask(ctx, "t.json", "", records.Task{Title: "fine", Due: &future})
	require.NoError(t, err)

	overdue, err := s.ListTasks("t.json", records.TaskFilter{OverdueOnly: true})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "late", overdue[0].Title)
}

func TestDecode_RejectsOtherKinds(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	_, _, err := s.AddNote(ctx, "items.json", "", records.Note{Body: "hello"})
	require.NoError(t, err)

	_, err = s.ListTasks("items.json", records.TaskFilter{})
	assert.ErrorContains(t, err, `file holds "notes" records`)

	_, err = records.Decode[records.Task](records.KindTasks, []byte("{broken"))
	assert.ErrorContains(t, err, "not a tasks file")
}

func TestLookup_AmbiguousPrefix(t *testing.T) {
	items := []records.Note{{ID: "abc-1"}, {ID: "abc-2"}}
	_, err := records.Lookup(items, "abc")
	assert.ErrorContains(t, err, "more than one")

	i, err := records.Lookup(items, "abc-2")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestRules(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	rule, _, err := s.AddRule(ctx, "rules.json", "", records.Rule{
		Name:       "Invoices",
		Enabled:    true,
		Conditions: records.RuleConditions{From: []string{"billing@"}, SubjectContains: []string{"invoice"}},
		Actions:    records.RuleActions{MoveToFolder: "Finance", Categorize: []string{"Bills"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `When a message is from billing@ and subject contains "invoice": move to Finance, categorise as Bills`, rule.Describe())

	assert.True(t, rule.Matches(&email.Parsed{From: "Billing <billing@acme.test>", Subject: "Your Invoice #12"}))
	assert.False(t, rule.Matches(&email.Parsed{From: "Billing <billing@acme.test>", Subject: "Newsletter"}))

	_, _, err = s.AddRule(ctx, "rules.json", "", records.Rule{Name: "invoices", Conditions: rule.Conditions, Actions: rule.Actions})
	assert.ErrorContains(t, err, "already exists")

	_, _, err = s.AddRule(ctx, "rules.json", "", records.Rule{Name: "Empty", Actions: rule.Actions})
	assert.ErrorContains(t, err, "at least one condition")

	_, _, err = s.AddRule(ctx, "rules.json", "", records.Rule{Name: "Idle", Conditions: rule.Conditions})
	assert.ErrorContains(t, err, "at least one action")
}

func TestTemplates(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	tpl, replaced, _, err := s.SaveTemplate(ctx, "templates.json", "", records.Template{
		Name:    "Welcome",
		Subject: "Welcome {{name}}",
		Body:    "Hi {{name}}, your start date is {{start}}.",
	})
	require.NoError(t, err)
	assert.False(t, replaced)
	assert.Equal(t, []string{"name", "start"}, tpl.Variables)

	again, replaced, _, err := s.SaveTemplate(ctx, "templates.json", "", records.Template{Name: "welcome", Subject: "Hello", Body: "Hi"})
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, tpl.ID, again.ID)

	found, err := s.FindTemplate("templates.json", "WELCOME")
	require.NoError(t, err)
	assert.Equal(t, "Hello", found.Subject)

	_, err = s.FindTemplate("templates.json", "Goodbye")
	assert.ErrorContains(t, err, "no template named")
}

func TestSignatures(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	work, _, err := s.SaveSignature(ctx, "sigs.json", "", records.SignatureRecord{Label: "work", Signature: email.Signature{Name: "Sam", Company: "Acme"}})
	require.NoError(t, err)
	assert.True(t, work.Default, "first signature becomes the default")

	_, _, err = s.SaveSignature(ctx, "sigs.json", "", records.SignatureRecord{Label: "personal", Signature: email.Signature{Name: "Sam J"}})
	require.NoError(t, err)

	def, err := s.FindSignature("sigs.json", "")
	require.NoError(t, err)
	assert.Equal(t, "Acme", def.Company)

	_, _, err = s.SaveSignature(ctx, "sigs.json", "", records.SignatureRecord{Label: "personal", Default: true, Signature: email.Signature{Name: "Sam J"}})
	require.NoError(t, err)
	def, err = s.FindSignature("sigs.json", "")
	require.NoError(t, err)
	assert.Equal(t, "Sam J", def.Name)

	_, err = s.FindSignature("sigs.json", "other")
	assert.ErrorContains(t, err, `no signature labelled "other"`)
}

func TestOutOfOffice(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	o, _, err := s.SetOutOfOffice(ctx, "ooo.json", "", records.OutOfOffice{Enabled: true, Start: &start, End: &end, InternalReply: "Away"})
	require.NoError(t, err)
	assert.Equal(t, "contacts", o.ExternalAudience)
	assert.Equal(t, "Away", o.ExternalReply)
	assert.True(t, o.Active(start.Add(time.Hour)))
	assert.False(t, o.Active(end))

	again, _, err := s.SetOutOfOffice(ctx, "ooo.json", "", records.OutOfOffice{Enabled: false, InternalReply: "Back"})
	require.NoError(t, err)
	assert.Equal(t, o.ID, again.ID)

	_, _, err = s.SetOutOfOffice(ctx, "ooo.json", "", records.OutOfOffice{Start: &end, End: &start})
	assert.ErrorContains(t, err, "end time must be after")
}

func TestNotes(t *testing.T) {
	s, _ := newStore(t)
	n, _, err := s.AddNote(context.Background(), "notes.json", "", records.Note{Body: "Call Jo\nabout the venue", Color: "Blue"})
	require.NoError(t, err)
	assert.Equal(t, "Call Jo", n.Title)
	assert.Equal(t, "blue", n.Color)

	_, _, err = s.AddNote(context.Background(), "notes.json", "", records.Note{Body: "x", Color: "orange"})
	assert.ErrorContains(t, err, "unknown note colour")
}
