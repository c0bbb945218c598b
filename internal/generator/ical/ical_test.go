package ical_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sammcj/mcp-office/internal/generator/ical"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator() *ical.Generator {
	return ical.New(testutils.CreateTestLogger())
}

func TestEvent_PublishedWithoutAttendees(t *testing.T) {
	g := newGenerator()
	start := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	out, err := g.Event(ical.Event{
		Summary:         "Dentist",
		Location:        "High Street",
		Start:           start,
		ReminderMinutes: 30,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "DTSTART:20260314T093000Z")
	assert.Contains(t, out, "DTEND:20260314T103000Z")
	assert.Contains(t, out, "BEGIN:VALARM")
	assert.Contains(t, out, "TRIGGER:-PT30M")

	parsed, err := g.Parse([]byte(out))
	require.NoError(t, err)
	require.Len(t, parsed.Events, 1)
	e := parsed.Events[0]
	assert.Equal(t, "Dentist", e.Summary)
	assert.Equal(t, "High Street", e.Location)
	assert.True(t, e.Start.Equal(start))
	assert.True(t, e.End.Equal(start.Add(time.Hour)))
	assert.Equal(t, "CONFIRMED", e.Status)
	assert.NotEmpty(t, e.UID)
}

func TestEvent_MeetingInvite(t *testing.T) {
	g := newGenerator()
	start := time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC)
	invite := ical.Event{
		UID:       "kickoff-1@example.com",
		Summary:   "Kickoff",
		Start:     start,
		End:       start.Add(30 * time.Minute),
		Organizer: ical.Attendee{Email: "alice@example.com", Name: "Alice"},
		Attendees: []ical.Attendee{
			{Email: "bob@example.com", Name: "Bob"},
			{Email: "carol@example.com", Optional: true},
		},
	}
	out, err := g.Event(invite)
	require.NoError(t, err)
	assert.Contains(t, out, "METHOD:REQUEST")
	assert.Contains(t, out, "UID:kickoff-1@example.com")

	parsed, err := g.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "REQUEST", parsed.Method)
	e := parsed.Events[0]
	assert.Equal(t, "alice@example.com", e.Organizer.Email)
	require.Len(t, e.Attendees, 2)
	assert.Equal(t, "bob@example.com", e.Attendees[0].Email)
	assert.False(t, e.Attendees[0].Optional)
	assert.True(t, e.Attendees[1].Optional)

	invite.Organizer = ical.Attendee{}
	_, err = g.Event(invite)
	assert.ErrorContains(t, err, "organizer")
}

func TestCancel(t *testing.T) {
	g := newGenerator()
	start := time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC)
	original := ical.Event{
		UID:       "kickoff-1@example.com",
		Summary:   "Kickoff",
		Start:     start,
		Organizer: ical.Attendee{Email: "alice@example.com"},
		Attendees: []ical.Attendee{{Email: "bob@example.com"}},
	}
	out, err := g.Cancel(original, "Postponed")
	require.NoError(t, err)
	assert.Contains(t, out, "METHOD:CANCEL")

	parsed, err := g.Parse([]byte(out))
	require.NoError(t, err)
	e := parsed.Events[0]
	assert.Equal(t, "kickoff-1@example.com", e.UID)
	assert.Equal(t, "CANCELLED", e.Status)
	assert.Equal(t, 1, e.Sequence)
	assert.Equal(t, "Cancelled: Kickoff", e.Summary)
	assert.Equal(t, "Postponed", e.Description)

	original.UID = ""
	_, err = g.Cancel(original, "")
	assert.Error(t, err)
}

func TestRecurrence(t *testing.T) {
	tests := []struct {
		name    string
		rule    ical.Recurrence
		want    string
		wantErr bool
	}{
		{"weekly", ical.Recurrence{Frequency: "weekly", Interval: 2, Count: 5, ByDay: []string{"mo", "Wednesday"}}, "FREQ=WEEKLY;INTERVAL=2;COUNT=5;BYDAY=MO,WE", false},
		{"until", ical.Recurrence{Frequency: "MONTHLY", Until: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), ByDay: []string{"-1FR"}}, "FREQ=MONTHLY;UNTIL=20261231T000000Z;BYDAY=-1FR", false},
		{"daily", ical.Recurrence{Frequency: "daily", Interval: 1}, "FREQ=DAILY", false},
		{"bad frequency", ical.Recurrence{Frequency: "hourly"}, "", true},
		{"count and until", ical.Recurrence{Frequency: "daily", Count: 2, Until: time.Now()}, "", true},
		{"bad day", ical.Recurrence{Frequency: "weekly", ByDay: []string{"XX"}}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.RRule()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecurringAllDayEvent(t *testing.T) {
	g := newGenerator()
	day := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	out, err := g.Event(ical.Event{
		Summary: "Stand-up week",
		Start:   day,
		AllDay:  true,
		Recurrence: &ical.Recurrence{
			Frequency:  "weekly",
			Count:      4,
			Exceptions: []time.Time{day.AddDate(0, 0, 14)},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;COUNT=4")
	assert.Contains(t, out, "20260518")

	parsed, err := g.Parse([]byte(out))
	require.NoError(t, err)
	e := parsed.Events[0]
	assert.True(t, e.AllDay)
	assert.Equal(t, day, e.Start)
	assert.Equal(t, day.AddDate(0, 0, 1), e.End)
	require.NotNil(t, e.Recurrence)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", e.Recurrence.Rule)
}

func TestCalendarAndBetween(t *testing.T) {
	g := newGenerator()
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	out, err := g.Calendar("Team", "Shared dates", "Europe/London", []ical.Event{
		{Summary: "Third", Start: base.AddDate(0, 0, 2)},
		{Summary: "First", Start: base},
		{Summary: "Second", Start: base.AddDate(0, 0, 1)},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "X-WR-TIMEZONE:Europe/London")

	parsed, err := g.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "Team", parsed.Name)
	var names []string
	for _, e := range parsed.Events {
		names = append(names, e.Summary)
	}
	assert.Equal(t, []string{"First", "Second", "Third"}, names)

	window := ical.Between(parsed.Events, base.Add(12*time.Hour), base.AddDate(0, 0, 2))
	require.Len(t, window, 1)
	assert.Equal(t, "Second", window[0].Summary)

	_, err = g.Calendar("Bad", "", "Mars/Olympus", nil)
	assert.Error(t, err)
}

func TestEventValidation(t *testing.T) {
	g := newGenerator()
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := g.Event(ical.Event{Start: start})
	assert.ErrorContains(t, err, "summary")
	_, err = g.Event(ical.Event{Summary: "x"})
	assert.ErrorContains(t, err, "start")
	_, err = g.Event(ical.Event{Summary: "x", Start: start, End: start.Add(-time.Hour)})
	assert.ErrorContains(t, err, "ends before")

	_, err = g.Parse([]byte("not a calendar"))
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	ts, allDay, err := ical.ParseTime("2026-03-14", time.UTC)
	require.NoError(t, err)
	assert.True(t, allDay)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), ts)

	ts, allDay, err = ical.ParseTime("2026-03-14T09:30:00+01:00", time.UTC)
	require.NoError(t, err)
	assert.False(t, allDay)
	assert.Equal(t, 8, ts.UTC().Hour())

	ts, _, err = ical.ParseTime("2026-03-14 09:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 30, ts.Minute())

	_, _, err = ical.ParseTime("next tuesday", time.UTC)
	assert.Error(t, err)
}
