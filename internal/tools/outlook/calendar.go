package outlook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/ical"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

func eventOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		tools.Filename("Calendar file to create (.ics)"),
		mcp.WithString("title", mcp.Required()),
		mcp.WithString("start", mcp.Required(), mcp.Description("Date (all day) or date-time, e.g. 2026-03-14T09:30")),
		mcp.WithString("end", mcp.Description("Defaults to one hour after start, or the next day for all-day events")),
		mcp.WithString("timezone", mcp.Description("IANA zone for times without an offset, e.g. Europe/London")),
		mcp.WithString("location"),
		mcp.WithString("description"),
		mcp.WithNumber("reminderMinutes", mcp.Min(0)),
		tools.StringArray("categories", "Categories"),
		mcp.WithBoolean("private"),
	}
}

// event reads the fields shared by every event tool
func event(args tools.Args) (ical.Event, *time.Location, error) {
	loc, err := location(args)
	if err != nil {
		return ical.Event{}, nil, err
	}
	start, allDay, err := timeArg(args, "start", loc)
	if err != nil {
		return ical.Event{}, nil, err
	}
	end, _, err := timeArg(args, "end", loc)
	if err != nil {
		return ical.Event{}, nil, err
	}
	return ical.Event{
		Summary:         args.String("title"),
		Description:     args.String("description"),
		Location:        args.String("location"),
		URL:             args.String("url"),
		Start:           start,
		End:             end,
		AllDay:          allDay || args.Bool("allDay", false),
		ReminderMinutes: args.Int("reminderMinutes", 0),
		Categories:      args.Strings("categories"),
		Private:         args.Bool("private", false),
	}, loc, nil
}

func attendees(args tools.Args) []ical.Attendee {
	var out []ical.Attendee
	for _, key := range []string{"attendees", "optionalAttendees"} {
		for _, a := range args.Strings(key) {
			out = append(out, ical.Attendee{Email: a, Optional: key == "optionalAttendees"})
		}
	}
	return out
}

func (h *handlers) calendarTools() []tools.Tool {
	meetingOpts := append(eventOptions(),
		mcp.WithString("organizer", mcp.Required(), mcp.Description("Organizer email address")),
		mcp.WithString("organizerName"),
		tools.StringArray("attendees", "Required attendee addresses", mcp.Required(), mcp.MinItems(1)),
		tools.StringArray("optionalAttendees", "Optional attendee addresses"),
		mcp.WithString("url", mcp.Description("Online meeting link")),
		tools.OutputPath(),
	)
	recurringOpts := append(eventOptions(),
		mcp.WithString("frequency", mcp.Required(), mcp.Enum("daily", "weekly", "monthly", "yearly")),
		mcp.WithNumber("interval", mcp.DefaultNumber(1), mcp.Min(1)),
		mcp.WithNumber("count", mcp.Description("Number of occurrences"), mcp.Min(1)),
		mcp.WithString("until", mcp.Description("Last date of the series")),
		tools.StringArray("byDay", "Weekdays such as MO, WE or Friday"),
		tools.StringArray("exceptions", "Start dates to skip"),
		tools.OutputPath(),
	)

	return []tools.Tool{
		tools.NewFunc(tools.Define("create_calendar_event",
			"Create an .ics file holding one event",
			tools.Creates,
			append(eventOptions(), mcp.WithBoolean("allDay"), mcp.WithString("url"), tools.OutputPath())...,
		), h.createEvent),

		tools.NewFunc(tools.Define("create_meeting_invite",
			"Create a meeting invitation (.ics with METHOD:REQUEST) that mail clients offer to accept or decline",
			tools.Creates, meetingOpts...,
		), h.createMeeting).WithHelp(&tools.ExtendedHelp{
			Examples: []tools.ToolExample{
				{
					Description: "Thirty minute review with two attendees",
					Arguments: map[string]any{
						"filename": "review.ics", "title": "Design review", "start": "2026-03-14T10:00", "end": "2026-03-14T10:30",
						"timezone": "Europe/London", "organizer": "lead@example.com",
						"attendees": []any{"ana@example.com", "bo@example.com"}, "reminderMinutes": 15,
					},
				},
			},
			CommonPatterns: []string{"Attach the .ics to a draft with create_email_draft so recipients get the invitation"},
		}),

		tools.NewFunc(tools.Define("create_recurring_event",
			"Create an .ics file holding a repeating event",
			tools.Creates, recurringOpts...,
		), h.createRecurring),

		tools.NewFunc(tools.Define("cancel_meeting",
			"Create a cancellation for a meeting, either from its invitation file or from its UID",
			tools.Creates,
			tools.Filename("Cancellation to create (.ics)"),
			mcp.WithString("invitePath", mcp.Description("Original invitation (.ics)")),
			mcp.WithString("uid", mcp.Description("UID of the meeting, when invitePath is not given")),
			mcp.WithString("title"),
			mcp.WithString("start"),
			mcp.WithString("timezone"),
			mcp.WithString("organizer"),
			tools.StringArray("attendees", "Attendee addresses"),
			mcp.WithString("reason"),
			tools.OutputPath(),
		), h.cancelMeeting),

		tools.NewFunc(tools.Define("read_calendar",
			"List the events of an .ics file, optionally within a date range",
			tools.Reads,
			tools.Filename("Calendar to read (.ics)"),
			mcp.WithString("from", mcp.Description("Date or date-time")),
			mcp.WithString("to", mcp.Description("Date or date-time")),
			mcp.WithString("timezone"),
		), h.readCalendar),

		tools.NewFunc(tools.Define("create_calendar",
			"Create a named calendar holding several events",
			tools.Creates,
			tools.Filename("Calendar file to create (.ics)"),
			mcp.WithString("name", mcp.Required()),
			mcp.WithString("description"),
			mcp.WithString("timezone"),
			tools.ObjectArray("events", "Events in the calendar", map[string]any{
				"title":           map[string]any{"type": "string"},
				"start":           map[string]any{"type": "string"},
				"end":             map[string]any{"type": "string"},
				"location":        map[string]any{"type": "string"},
				"description":     map[string]any{"type": "string"},
				"allDay":          map[string]any{"type": "boolean"},
				"reminderMinutes": map[string]any{"type": "number"},
			}),
			tools.OutputPath(),
		), h.createCalendar),
	}
}

func (h *handlers) render(ctx context.Context, args tools.Args, ics string) (string, error) {
	return h.write(ctx, args, []byte(ics))
}

func (h *handlers) createEvent(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	e, _, err := event(args)
	if err != nil {
		return nil, err
	}
	ics, err := h.Calendar.Event(e)
	if err != nil {
		return nil, err
	}
	path, err := h.render(ctx, args, ics)
	if err != nil {
		return nil, err
	}
	return tools.Text("Created event %q on %s at %s", e.Summary, formatTime(e.Start), path), nil
}

func (h *handlers) createMeeting(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	e, _, err := event(args)
	if err != nil {
		return nil, err
	}
	e.Organizer = ical.Attendee{Email: args.String("organizer"), Name: args.String("organizerName")}
	e.Attendees = attendees(args)
	ics, err := h.Calendar.Event(e)
	if err != nil {
		return nil, err
	}
	path, err := h.render(ctx, args, ics)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": path, "attendees": len(e.Attendees)}).Info("Created meeting invitation")
	return tools.Text("Created invitation %q on %s for %d attendee(s) at %s", e.Summary, formatTime(e.Start), len(e.Attendees), path), nil
}

func (h *handlers) createRecurring(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	e, loc, err := event(args)
	if err != nil {
		return nil, err
	}
	until, _, err := timeArg(args, "until", loc)
	if err != nil {
		return nil, err
	}
	r := &ical.Recurrence{
		Frequency: args.String("frequency"),
		Interval:  args.Int("interval", 1),
		Count:     args.Int("count", 0),
		Until:     until,
		ByDay:     args.Strings("byDay"),
	}
	for _, s := range args.Strings("exceptions") {
		t, _, err := ical.ParseTime(s, loc)
		if err != nil {
			return nil, &tools.ValidationError{Field: "exceptions", Value: s, Message: err.Error()}
		}
		if e.AllDay || t.Hour() != 0 || t.Minute() != 0 {
			r.Exceptions = append(r.Exceptions, t)
			continue
		}
		// a bare date skips the occurrence at the series' start time
		r.Exceptions = append(r.Exceptions, time.Date(t.Year(), t.Month(), t.Day(), e.Start.Hour(), e.Start.Minute(), e.Start.Second(), 0, loc))
	}
	rule, err := r.RRule()
	if err != nil {
		return nil, &tools.ValidationError{Field: "frequency", Value: r.Frequency, Message: err.Error()}
	}
	e.Recurrence = r
	ics, err := h.Calendar.Event(e)
	if err != nil {
		return nil, err
	}
	path, err := h.render(ctx, args, ics)
	if err != nil {
		return nil, err
	}
	return tools.Text("Created recurring event %q starting %s (%s) at %s", e.Summary, formatTime(e.Start), rule, path), nil
}

func (h *handlers) cancelMeeting(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	var e ical.Event
	if args.String("invitePath") != "" {
		data, _, err := h.read(args, "invitePath")
		if err != nil {
			return nil, err
		}
		parsed, err := h.Calendar.Parse(data)
		if err != nil {
			return nil, err
		}
		if len(parsed.Events) == 0 {
			return nil, fmt.Errorf("the invitation holds no events")
		}
		e = parsed.Events[0]
		if uid := args.String("uid"); uid != "" {
			found := false
			for _, candidate := range parsed.Events {
				if candidate.UID == uid {
					e, found = candidate, true
				}
			}
			if !found {
				return nil, &tools.ValidationError{Field: "uid", Value: uid, Message: "no event with this UID in the invitation"}
			}
		}
	} else {
		uid, err := args.RequireString("uid")
		if err != nil {
			return nil, &tools.ValidationError{Field: "uid", Message: "give invitePath or uid"}
		}
		loc, err := location(args)
		if err != nil {
			return nil, err
		}
		start, allDay, err := timeArg(args, "start", loc)
		if err != nil {
			return nil, err
		}
		if start.IsZero() {
			return nil, &tools.ValidationError{Field: "start", Message: "the meeting start is required without invitePath"}
		}
		e = ical.Event{
			UID:       uid,
			Summary:   args.StringOr("title", "Meeting"),
			Start:     start,
			AllDay:    allDay,
			Organizer: ical.Attendee{Email: args.String("organizer")},
			Attendees: attendees(args),
		}
	}
	ics, err := h.Calendar.Cancel(e, args.String("reason"))
	if err != nil {
		return nil, err
	}
	path, err := h.render(ctx, args, ics)
	if err != nil {
		return nil, err
	}
	return tools.Text("Created cancellation of %q (%s) at %s", e.Summary, e.UID, path), nil
}

func (h *handlers) readCalendar(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	data, path, err := h.read(args, "filename")
	if err != nil {
		return nil, err
	}
	loc, err := location(args)
	if err != nil {
		return nil, err
	}
	from, _, err := timeArg(args, "from", loc)
	if err != nil {
		return nil, err
	}
	to, _, err := timeArg(args, "to", loc)
	if err != nil {
		return nil, err
	}
	parsed, err := h.Calendar.Parse(data)
	if err != nil {
		return nil, err
	}
	events := ical.Between(parsed.Events, from, to)

	var b strings.Builder
	name := path
	if parsed.Name != "" {
		name = fmt.Sprintf("%s (%s)", parsed.Name, path)
	}
	fmt.Fprintf(&b, "%s: %d event(s)", name, len(events))
	if parsed.Method != "" {
		fmt.Fprintf(&b, ", method %s", parsed.Method)
	}
	b.WriteString("\n")
	for i, e := range events {
		fmt.Fprintf(&b, "\n%d. %s\n   When: %s", i+1, e.Summary, formatTime(e.Start.In(loc)))
		if !e.End.IsZero() && !e.AllDay {
			fmt.Fprintf(&b, " - %s", formatTime(e.End.In(loc)))
		}
		b.WriteString("\n")
		if e.Location != "" {
			fmt.Fprintf(&b, "   Where: %s\n", e.Location)
		}
		if e.Organizer.Email != "" {
			fmt.Fprintf(&b, "   Organizer: %s\n", e.Organizer.Email)
		}
		if len(e.Attendees) > 0 {
			emails := make([]string, len(e.Attendees))
			for j, a := range e.Attendees {
				emails[j] = a.Email
			}
			fmt.Fprintf(&b, "   Attendees: %s\n", strings.Join(emails, ", "))
		}
		if e.Recurrence != nil && e.Recurrence.Rule != "" {
			fmt.Fprintf(&b, "   Repeats: %s\n", e.Recurrence.Rule)
		}
		if e.Status != "" && e.Status != "CONFIRMED" {
			fmt.Fprintf(&b, "   Status: %s\n", e.Status)
		}
		fmt.Fprintf(&b, "   UID: %s\n", e.UID)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) createCalendar(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	if _, err := location(args); err != nil {
		return nil, err
	}
	var events []ical.Event
	for i, item := range args.Maps("events") {
		if item.String("timezone") == "" && args.String("timezone") != "" {
			item["timezone"] = args.String("timezone")
		}
		e, _, err := event(item)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i+1, err)
		}
		if e.Start.IsZero() {
			return nil, fmt.Errorf("event %d: start is required", i+1)
		}
		events = append(events, e)
	}
	ics, err := h.Calendar.Calendar(args.String("name"), args.String("description"), args.String("timezone"), events)
	if err != nil {
		return nil, err
	}
	path, err := h.render(ctx, args, ics)
	if err != nil {
		return nil, err
	}
	return tools.Text("Created calendar %q with %d event(s) at %s", args.String("name"), len(events), path), nil
}
