package outlook_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sammcj/mcp-office/internal/generator/contacts"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/generator/ical"
	"github.com/sammcj/mcp-office/internal/generator/records"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/internal/tools/outlook"
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
	require.NoError(t, outlook.Register(reg, outlook.Generators{
		Mail:     email.New(logger, email.Options{}),
		Calendar: ical.New(logger),
		Contacts: contacts.New(logger),
		Records:  records.NewStore(store, logger),
	}, store))
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

func TestRegister_AllTools(t *testing.T) {
	h := setup(t)
	assert.Equal(t, 25, h.reg.Len())
	for _, name := range []string{"send_email", "create_meeting_invite", "import_contacts_csv", "list_tasks", "create_mail_rule", "create_note"} {
		_, ok := h.reg.Get(name)
		assert.True(t, ok, name)
	}
}

func TestDraftAndParse(t *testing.T) {
	h := setup(t)
	testutils.WriteFile(t, h.dir, "agenda.txt", "1. Budget\n2. Hiring\n")

	text := h.mustCall("create_email_draft", map[string]any{
		"filename":    "draft.eml",
		"from":        "me@example.com",
		"to":          []any{"team@example.com"},
		"subject":     "Weekly sync",
		"body":        "Agenda attached.",
		"importance":  "high",
		"attachments": []any{"agenda.txt"},
	})
	assert.Contains(t, text, `Saved draft "Weekly sync"`)
	assert.Contains(t, text, "1 attachment(s)")

	parsed := h.mustCall("parse_email", map[string]any{"filename": "draft.eml"})
	assert.Contains(t, parsed, "Subject: Weekly sync")
	assert.Contains(t, parsed, "team@example.com")
	assert.Contains(t, parsed, "Agenda attached.")
	assert.Contains(t, parsed, "agenda.txt")
	assert.Contains(t, parsed, "Status: draft")
}

func TestDraftWithSignature(t *testing.T) {
	h := setup(t)
	h.mustCall("create_email_signature", map[string]any{
		"filename": "signatures.json",
		"name":     "Ana Lopez",
		"title":    "Engineer",
		"closing":  "Kind regards",
		"default":  true,
	})
	h.mustCall("create_email_draft", map[string]any{
		"filename":      "signed.eml",
		"to":            []any{"bo@example.com"},
		"subject":       "Hello",
		"body":          "Quick note.",
		"signatureFile": "signatures.json",
	})
	parsed := h.mustCall("parse_email", map[string]any{"filename": "signed.eml"})
	assert.Contains(t, parsed, "Kind regards")
	assert.Contains(t, parsed, "Ana Lopez")
}

func TestSendEmail_RequiresRecipients(t *testing.T) {
	h := setup(t)
	_, err := h.call("send_email", map[string]any{"subject": "No one", "body": "x", "smtpHost": "localhost"})
	require.Error(t, err)
}

func TestTemplates(t *testing.T) {
	h := setup(t)
	text := h.mustCall("create_email_template", map[string]any{
		"filename": "templates.json",
		"name":     "welcome",
		"subject":  "Welcome {{name}}",
		"body":     "Hi {{name}}, your start date is {{start}}.",
	})
	assert.Contains(t, text, "Saved template")
	assert.Contains(t, text, "name")

	text = h.mustCall("apply_email_template", map[string]any{
		"templateFile": "templates.json",
		"template":     "welcome",
		"variables":    map[string]any{"name": "Ana"},
		"filename":     "welcome.eml",
		"to":           []any{"ana@example.com"},
	})
	assert.Contains(t, text, `"Welcome Ana"`)
	assert.Contains(t, text, "Unfilled placeholders: start")

	parsed := h.mustCall("parse_email", map[string]any{"filename": "welcome.eml"})
	assert.Contains(t, parsed, "Hi Ana")
}

func TestSearchEmails(t *testing.T) {
	h := setup(t)
	for _, m := range []struct{ file, subject string }{
		{"inbox/invoice.eml", "Invoice 42"},
		{"inbox/lunch.eml", "Lunch on Friday"},
	} {
		h.mustCall("create_email_draft", map[string]any{
			"filename": m.file, "from": "billing@example.com", "to": []any{"me@example.com"}, "subject": m.subject, "body": "x",
		})
	}
	text := h.mustCall("search_emails", map[string]any{"subject": "invoice"})
	assert.Contains(t, text, "1 message(s)")
	assert.Contains(t, text, "Invoice 42")
	assert.NotContains(t, text, "Lunch")
}

func TestOutOfOffice(t *testing.T) {
	h := setup(t)
	text := h.mustCall("set_out_of_office", map[string]any{
		"filename": "ooo.json",
		"start":    "2099-08-01",
		"end":      "2099-08-15",
		"contact":  "bo@example.com",
	})
	assert.Contains(t, text, "scheduled")
	assert.Contains(t, text, "from 2099-08-01 until 2099-08-15")
	assert.Contains(t, text, "bo@example.com")
}

func TestCalendarEvents(t *testing.T) {
	h := setup(t)
	text := h.mustCall("create_calendar_event", map[string]any{
		"filename": "dentist.ics",
		"title":    "Dentist",
		"start":    "2026-03-14T09:30",
		"timezone": "UTC",
		"location": "High Street",
	})
	assert.Contains(t, text, `"Dentist"`)

	listing := h.mustCall("read_calendar", map[string]any{"filename": "dentist.ics", "timezone": "UTC"})
	assert.Contains(t, listing, "1 event(s)")
	assert.Contains(t, listing, "Dentist")
	assert.Contains(t, listing, "Where: High Street")
	assert.Contains(t, listing, "2026-03-14 09:30")

	_, err := h.call("create_calendar_event", map[string]any{"filename": "bad.ics", "title": "x", "start": "next tuesday"})
	require.Error(t, err)
}

func TestMeetingInviteAndCancel(t *testing.T) {
	h := setup(t)
	_, err := h.call("create_meeting_invite", map[string]any{
		"filename": "review.ics", "title": "Review", "start": "2026-03-14T10:00", "attendees": []any{"ana@example.com"},
	})
	require.Error(t, err, "an invitation needs an organizer")

	text := h.mustCall("create_meeting_invite", map[string]any{
		"filename":          "review.ics",
		"title":             "Review",
		"start":             "2026-03-14T10:00",
		"end":               "2026-03-14T10:30",
		"timezone":          "UTC",
		"organizer":         "lead@example.com",
		"attendees":         []any{"ana@example.com", "bo@example.com"},
		"optionalAttendees": []any{"cy@example.com"},
	})
	assert.Contains(t, text, "3 attendee(s)")

	listing := h.mustCall("read_calendar", map[string]any{"filename": "review.ics"})
	assert.Contains(t, listing, "method REQUEST")
	assert.Contains(t, listing, "Organizer: lead@example.com")

	text = h.mustCall("cancel_meeting", map[string]any{
		"filename": "review-cancel.ics", "invitePath": "review.ics", "reason": "Postponed",
	})
	assert.Contains(t, text, "Created cancellation")

	listing = h.mustCall("read_calendar", map[string]any{"filename": "review-cancel.ics"})
	assert.Contains(t, listing, "method CANCEL")
	assert.Contains(t, listing, "Cancelled: Review")
	assert.Contains(t, listing, "Status: CANCELLED")

	_, err = h.call("cancel_meeting", map[string]any{"filename": "x.ics"})
	require.Error(t, err)
}

func TestRecurringEvent(t *testing.T) {
	h := setup(t)
	text := h.mustCall("create_recurring_event", map[string]any{
		"filename":  "standup.ics",
		"title":     "Standup",
		"start":     "2026-03-02T09:00",
		"timezone":  "UTC",
		"frequency": "weekly",
		"byDay":     []any{"Monday", "WE"},
		"count":     10,
	})
	assert.Contains(t, text, "FREQ=WEEKLY;COUNT=10;BYDAY=MO,WE")

	listing := h.mustCall("read_calendar", map[string]any{"filename": "standup.ics"})
	assert.Contains(t, listing, "Repeats: FREQ=WEEKLY")

	_, err := h.call("create_recurring_event", map[string]any{
		"filename": "bad.ics", "title": "x", "start": "2026-03-02", "frequency": "hourly",
	})
	require.Error(t, err)
}

func TestCreateCalendarAndRange(t *testing.T) {
	h := setup(t)
	text := h.mustCall("create_calendar", map[string]any{
		"filename": "team.ics",
		"name":     "Team",
		"timezone": "UTC",
		"events": []any{
			map[string]any{"title": "Kickoff", "start": "2026-01-05T10:00"},
			map[string]any{"title": "Offsite", "start": "2026-02-10", "allDay": true},
			map[string]any{"title": "Retro", "start": "2026-03-20T15:00"},
		},
	})
	assert.Contains(t, text, "3 event(s)")

	listing := h.mustCall("read_calendar", map[string]any{"filename": "team.ics", "from": "2026-02-01", "to": "2026-03-01"})
	assert.Contains(t, listing, "Team")
	assert.Contains(t, listing, "1 event(s)")
	assert.Contains(t, listing, "Offsite")
	assert.NotContains(t, listing, "Kickoff")
}

func TestContacts(t *testing.T) {
	h := setup(t)
	h.mustCall("create_contact", map[string]any{
		"filename": "people.vcf", "firstName": "Ana", "lastName": "Lopez", "email": "ana@example.com",
		"company": "Acme", "mobile": "+44 7700 900000",
	})
	h.mustCall("create_contact", map[string]any{"filename": "people.vcf", "fullName": "Bo Chen", "email": "bo@example.com"})

	_, err := h.call("create_contact", map[string]any{"filename": "people.vcf", "fullName": "Ana Again", "email": "ANA@example.com"})
	require.Error(t, err, "duplicate email")

	text := h.mustCall("create_contact_group", map[string]any{
		"filename": "people.vcf", "name": "Project", "members": []any{"ana@example.com", "bo@example.com"},
	})
	assert.Contains(t, text, "2 member(s)")

	listing := h.mustCall("read_contacts", map[string]any{"filename": "people.vcf"})
	assert.Contains(t, listing, "Ana Lopez <ana@example.com>")
	assert.Contains(t, listing, "Mobile: +44 7700 900000")
	assert.Contains(t, listing, "Project (2)")

	filtered := h.mustCall("read_contacts", map[string]any{"filename": "people.vcf", "query": "acme"})
	assert.Contains(t, filtered, "Ana Lopez")
	assert.NotContains(t, filtered, "Bo Chen")
}

func TestContactsCSVRoundTrip(t *testing.T) {
	h := setup(t)
	testutils.WriteFile(t, h.dir, "export.csv", "first_name,last_name,email,company\nAna,Lopez,ana@example.com,Acme\nBo,Chen,bo@example.com,\n")

	text := h.mustCall("import_contacts_csv", map[string]any{"filename": "book.vcf", "csvPath": "export.csv"})
	assert.Contains(t, text, "Imported 2 contact(s)")

	text = h.mustCall("export_contacts_csv", map[string]any{"filename": "book.vcf"})
	assert.Contains(t, text, "Exported 2 contact(s)")

	data, err := os.ReadFile(filepath.Join(h.dir, "book.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "E-mail Address")
	assert.Contains(t, string(data), "ana@example.com")
}

func TestTasks(t *testing.T) {
	h := setup(t)
	h.mustCall("create_task", map[string]any{
		"filename": "tasks.json", "title": "File taxes", "due": "2020-04-30", "priority": "high",
	})
	text := h.mustCall("create_task", map[string]any{"filename": "tasks.json", "title": "Plan offsite", "categories": []any{"team"}})
	assert.Contains(t, text, "normal priority")

	listing := h.mustCall("list_tasks", map[string]any{"filename": "tasks.json"})
	assert.Contains(t, listing, "2 task(s)")
	assert.Contains(t, listing, "OVERDUE")

	overdue := h.mustCall("list_tasks", map[string]any{"filename": "tasks.json", "overdueOnly": true})
	assert.Contains(t, overdue, "File taxes")
	assert.NotContains(t, overdue, "Plan offsite")

	id := strings.Fields(text)[2]
	require.Len(t, id, 36)

	text = h.mustCall("update_task", map[string]any{"filename": "tasks.json", "taskId": id[:8], "percentComplete": 50})
	assert.Contains(t, text, "in_progress, 50% complete")

	text = h.mustCall("complete_task", map[string]any{"filename": "tasks.json", "taskId": id})
	assert.Contains(t, text, "Completed task")

	listing = h.mustCall("list_tasks", map[string]any{"filename": "tasks.json"})
	assert.Contains(t, listing, "1 task(s)")
	assert.NotContains(t, listing, "Plan offsite")

	_, err := h.call("complete_task", map[string]any{"filename": "tasks.json", "taskId": "missing"})
	require.Error(t, err)
}

func TestMailRule(t *testing.T) {
	h := setup(t)
	h.mustCall("create_email_draft", map[string]any{
		"filename": "invoice.eml", "from": "billing@vendor.com", "to": []any{"me@example.com"},
		"subject": "Invoice 42 for March", "body": "Please pay.",
	})

	text := h.mustCall("create_mail_rule", map[string]any{
		"filename":        "rules.json",
		"name":            "Invoices",
		"subjectContains": []any{"invoice"},
		"moveToFolder":    "Finance",
		"testEmail":       "invoice.eml",
	})
	assert.Contains(t, text, `subject contains "invoice"`)
	assert.Contains(t, text, "move to Finance")
	assert.Contains(t, text, "the rule matches invoice.eml")

	_, err := h.call("create_mail_rule", map[string]any{"filename": "rules.json", "name": "Empty", "moveToFolder": "x"})
	require.Error(t, err, "a rule needs a condition")

	parsed := h.mustCall("parse_email", map[string]any{"filename": "invoice.eml", "rulesFile": "rules.json"})
	assert.Contains(t, parsed, "Matching rules:")
	assert.Contains(t, parsed, "Invoices")
}

func TestCreateNote(t *testing.T) {
	h := setup(t)
	text := h.mustCall("create_note", map[string]any{"filename": "notes.json", "body": "Call the plumber\nAfter 3pm"})
	assert.Contains(t, text, `yellow note`)
	assert.Contains(t, text, `"Call the plumber"`)

	_, err := h.call("create_note", map[string]any{"filename": "notes.json", "body": "x", "color": "purple"})
	require.Error(t, err)
}
