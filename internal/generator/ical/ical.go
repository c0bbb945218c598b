// Package ical produces and reads RFC 5545 calendars: single events,
// meeting invitations, recurring series and cancellations.
package ical

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const productID = "-//mcp-office//Calendar 1.0//EN"

// Attendee is a meeting participant
type Attendee struct {
	Email    string
	Name     string
	Optional bool
}

// Event is one calendar entry
type Event struct {
	UID             string
	Summary         string
	Description     string
	Location        string
	URL             string
	Start           time.Time
	End             time.Time
	AllDay          bool
	Organizer       Attendee
	Attendees       []Attendee
	Recurrence      *Recurrence
	ReminderMinutes int
	Status          string
	Categories      []string
	Sequence        int
	Private         bool
}

// Recurrence is the subset of RRULE the tools expose
type Recurrence struct {
	Frequency  string
	Interval   int
	Count      int
	Until      time.Time
	ByDay      []string
	Exceptions []time.Time
	// Rule is the raw RRULE value of a parsed event
	Rule string
}

var frequencies = []string{"DAILY", "WEEKLY", "MONTHLY", "YEARLY"}

var weekday = regexp.MustCompile(`^[+-]?\d{0,2}(MO|TU|WE|TH|FR|SA|SU)$`)

// RRule renders the recurrence as an RRULE value
func (r Recurrence) RRule() (string, error) {
	freq := strings.ToUpper(r.Frequency)
	if !slices.Contains(frequencies, freq) {
		return "", fmt.Errorf("unknown frequency %q (use daily, weekly, monthly or yearly)", r.Frequency)
	}
	if r.Count > 0 && !r.Until.IsZero() {
		return "", fmt.Errorf("a recurrence takes either a count or an end date, not both")
	}
	if r.Count < 0 || r.Interval < 0 {
		return "", fmt.Errorf("count and interval must not be negative")
	}

	parts := []string{"FREQ=" + freq}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if r.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(r.Count))
	}
	if !r.Until.IsZero() {
		parts = append(parts, "UNTIL="+r.Until.UTC().Format(utcFormat))
	}
	if len(r.ByDay) > 0 {
		days := make([]string, 0, len(r.ByDay))
		for _, d := range r.ByDay {
			d = strings.ToUpper(strings.TrimSpace(d))
			if len(d) > 2 {
				if short, ok := dayNames[d]; ok {
					d = short
				}
			}
			if !weekday.MatchString(d) {
				return "", fmt.Errorf("invalid weekday %q", d)
			}
			days = append(days, d)
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	return strings.Join(parts, ";"), nil
}

var dayNames = map[string]string{
	"MONDAY": "MO", "TUESDAY": "TU", "WEDNESDAY": "WE", "THURSDAY": "TH",
	"FRIDAY": "FR", "SATURDAY": "SA", "SUNDAY": "SU",
}

const (
	utcFormat  = "20060102T150405Z"
	dateFormat = "20060102"
)

// Generator builds calendars
type Generator struct {
	logger *logrus.Logger
	now    func() time.Time
}

// New creates a calendar generator
func New(logger *logrus.Logger) *Generator {
	return &Generator{logger: logger, now: time.Now}
}

func (g *Generator) calendar(method ics.Method) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	if method != "" {
		cal.SetMethod(method)
	}
	return cal
}

// Event renders a single event. Events with attendees are invitations
// (METHOD:REQUEST), others are published.
func (g *Generator) Event(e Event) (string, error) {
	method := ics.MethodPublish
	if len(e.Attendees) > 0 {
		method = ics.MethodRequest
		if e.Organizer.Email == "" {
			return "", fmt.Errorf("a meeting invitation needs an organizer")
		}
	}
	cal := g.calendar(method)
	if _, err := g.addEvent(cal, e); err != nil {
		return "", err
	}
	return cal.Serialize(), nil
}

// Calendar renders a named calendar holding any number of events
func (g *Generator) Calendar(name, description, timezone string, events []Event) (string, error) {
	cal := g.calendar(ics.MethodPublish)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	if description != "" {
		cal.SetXWRCalDesc(description)
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return "", fmt.Errorf("unknown time zone %q", timezone)
		}
		cal.SetXWRTimezone(timezone)
	}
	for _, e := range events {
		if _, err := g.addEvent(cal, e); err != nil {
			return "", err
		}
	}
	return cal.Serialize(), nil
}

// Cancel renders a cancellation of a meeting. The sequence is raised above the
// original's so clients accept the update.
func (g *Generator) Cancel(e Event, reason string) (string, error) {
	if e.UID == "" {
		return "", fmt.Errorf("cancelling a meeting needs the UID of the original invitation")
	}
	e.Status = "CANCELLED"
	e.Sequence++
	e.Recurrence = nil
	e.ReminderMinutes = 0
	if reason != "" {
		e.Description = strings.TrimSpace(reason + "\n\n" + e.Description)
	}
	if !strings.HasPrefix(strings.ToUpper(e.Summary), "CANCELLED") {
		e.Summary = strings.TrimSpace("Cancelled: " + e.Summary)
	}
	cal := g.calendar(ics.MethodCancel)
	if _, err := g.addEvent(cal, e); err != nil {
		return "", err
	}
	return cal.Serialize(), nil
}

func (g *Generator) addEvent(cal *ics.Calendar, e Event) (*ics.VEvent, error) {
	if strings.TrimSpace(e.Summary) == "" {
		return nil, fmt.Errorf("an event needs a summary")
	}
	if e.Start.IsZero() {
		return nil, fmt.Errorf("event %q has no start time", e.Summary)
	}
	if !e.End.IsZero() && e.End.Before(e.Start) {
		return nil, fmt.Errorf("event %q ends before it starts", e.Summary)
	}

	uid := e.UID
	if uid == "" {
		uid = uuid.NewString() + "@mcp-office"
	}
	ev := cal.AddEvent(uid)
	now := g.now().UTC()
	ev.SetDtStampTime(now)
	ev.SetCreatedTime(now)
	ev.SetModifiedAt(now)

	if e.AllDay {
		end := e.End
		if !end.After(e.Start) {
			end = e.Start.AddDate(0, 0, 1)
		}
		ev.SetAllDayStartAt(e.Start)
		ev.SetAllDayEndAt(end)
	} else {
		end := e.End
		if end.IsZero() {
			end = e.Start.Add(time.Hour)
		}
		ev.SetStartAt(e.Start)
		ev.SetEndAt(end)
	}

	ev.SetSummary(e.Summary)
	if e.Description != "" {
		ev.SetDescription(e.Description)
	}
	if e.Location != "" {
		ev.SetLocation(e.Location)
	}
	if e.URL != "" {
		ev.SetProperty(ics.ComponentPropertyUrl, e.URL)
	}
	if e.Organizer.Email != "" {
		var params []ics.PropertyParameter
		if e.Organizer.Name != "" {
			params = append(params, ics.WithCN(e.Organizer.Name))
		}
		ev.SetOrganizer("mailto:"+e.Organizer.Email, params...)
	}
	for _, a := range e.Attendees {
		role := ics.ParticipationRoleReqParticipant
		if a.Optional {
			role = ics.ParticipationRoleOptParticipant
		}
		params := []ics.PropertyParameter{
			ics.CalendarUserTypeIndividual, ics.ParticipationStatusNeedsAction, role, ics.WithRSVP(true),
		}
		if a.Name != "" {
			params = append(params, ics.WithCN(a.Name))
		}
		ev.AddAttendee(a.Email, params...)
	}

	status := strings.ToUpper(e.Status)
	if status == "" {
		status = "CONFIRMED"
	}
	ev.SetProperty(ics.ComponentPropertyStatus, status)
	ev.SetProperty(ics.ComponentPropertySequence, strconv.Itoa(e.Sequence))
	if e.Private {
		ev.SetProperty(ics.ComponentPropertyClass, "PRIVATE")
	}
	if len(e.Categories) > 0 {
		ev.SetProperty(ics.ComponentPropertyCategories, strings.Join(e.Categories, ","))
	}

	if r := e.Recurrence; r != nil {
		rule := r.Rule
		if rule == "" {
			var err error
			if rule, err = r.RRule(); err != nil {
				return nil, err
			}
		}
		ev.AddProperty(ics.ComponentPropertyRrule, rule)
		for _, ex := range r.Exceptions {
			if e.AllDay {
				ev.AddProperty(ics.ComponentPropertyExdate, ex.Format(dateFormat), &ics.KeyValues{Key: string(ics.ParameterValue), Value: []string{"DATE"}})
				continue
			}
			ev.AddProperty(ics.ComponentPropertyExdate, ex.UTC().Format(utcFormat))
		}
	}

	if e.ReminderMinutes > 0 {
		alarm := ev.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger(fmt.Sprintf("-PT%dM", e.ReminderMinutes))
		alarm.SetProperty(ics.ComponentPropertyDescription, "Reminder: "+e.Summary)
	}
	return ev, nil
}

// Parsed is the content of a calendar file
type Parsed struct {
	Name   string
	Method string
	Events []Event
}

// Parse reads a calendar. Events are returned in start order.
func (g *Generator) Parse(data []byte) (*Parsed, error) {
	if !bytes.Contains(bytes.ToUpper(data), []byte("BEGIN:VCALENDAR")) {
		return nil, fmt.Errorf("not a valid calendar: missing BEGIN:VCALENDAR")
	}
	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("not a valid calendar: %w", err)
	}
	out := &Parsed{}
	for _, p := range cal.CalendarProperties {
		switch p.IANAToken {
		case string(ics.PropertyXWRCalName):
			out.Name = unescape(p.Value)
		case string(ics.PropertyMethod):
			out.Method = p.Value
		}
	}
	for _, ev := range cal.Events() {
		out.Events = append(out.Events, readEvent(ev))
	}
	slices.SortStableFunc(out.Events, func(a, b Event) int { return a.Start.Compare(b.Start) })
	return out, nil
}

func readEvent(ev *ics.VEvent) Event {
	value := func(p ics.ComponentProperty) string {
		if prop := ev.GetProperty(p); prop != nil {
			return unescape(prop.Value)
		}
		return ""
	}
	e := Event{
		UID:         ev.Id(),
		Summary:     value(ics.ComponentPropertySummary),
		Description: value(ics.ComponentPropertyDescription),
		Location:    value(ics.ComponentPropertyLocation),
		URL:         value(ics.ComponentPropertyUrl),
		Status:      value(ics.ComponentPropertyStatus),
		Private:     value(ics.ComponentPropertyClass) == "PRIVATE",
	}
	e.Sequence, _ = strconv.Atoi(value(ics.ComponentPropertySequence))
	if cats := value(ics.ComponentPropertyCategories); cats != "" {
		e.Categories = strings.Split(cats, ",")
	}

	if start := ev.GetProperty(ics.ComponentPropertyDtStart); start != nil && len(start.Value) == len(dateFormat) {
		e.AllDay = true
		e.Start, _ = time.Parse(dateFormat, start.Value)
		if end := ev.GetProperty(ics.ComponentPropertyDtEnd); end != nil {
			e.End, _ = time.Parse(dateFormat, end.Value)
		}
	} else {
		e.Start, _ = ev.GetStartAt()
		e.End, _ = ev.GetEndAt()
	}

	if org := ev.GetProperty(ics.ComponentPropertyOrganizer); org != nil {
		e.Organizer = Attendee{Email: trimMailto(org.Value), Name: firstParam(org.ICalParameters, "CN")}
	}
	for _, a := range ev.Attendees() {
		attendee := Attendee{Email: trimMailto(a.Email()), Name: firstParam(a.ICalParameters, "CN")}
		attendee.Optional = firstParam(a.ICalParameters, "ROLE") == string(ics.ParticipationRoleOptParticipant)
		e.Attendees = append(e.Attendees, attendee)
	}
	if rule := value(ics.ComponentPropertyRrule); rule != "" {
		e.Recurrence = &Recurrence{Rule: rule}
	}
	return e
}

func firstParam(params map[string][]string, key string) string {
	if v := params[key]; len(v) > 0 {
		return strings.Trim(v[0], `"`)
	}
	return ""
}

func trimMailto(s string) string {
	if len(s) >= 7 && strings.EqualFold(s[:7], "mailto:") {
		return s[7:]
	}
	return s
}

var escapes = strings.NewReplacer(`\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n", `\\`, `\`)

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return escapes.Replace(s)
}

// Between filters events overlapping [from, to). Zero bounds are open.
func Between(events []Event, from, to time.Time) []Event {
	var out []Event
	for _, e := range events {
		end := e.End
		if end.IsZero() {
			end = e.Start
		}
		if !from.IsZero() && end.Before(from) {
			continue
		}
		if !to.IsZero() && !e.Start.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTime reads a date or date-time argument. A bare date reports allDay.
// Times without an offset are taken in loc.
func ParseTime(s string, loc *time.Location) (t time.Time, allDay bool, err error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, true, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid date/time %q (use ISO 8601, e.g. 2026-03-14T09:30:00Z)", s)
}
