// Package outlook exposes the Outlook tools: mail drafts and sending,
// calendars, contacts and the JSON record collections behind tasks, rules,
// notes, templates and signatures.
package outlook

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/contacts"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/generator/ical"
	"github.com/sammcj/mcp-office/internal/generator/records"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/tools"
)

// Generators are the collaborators the Outlook tools delegate to
type Generators struct {
	Mail     *email.Generator
	Calendar *ical.Generator
	Contacts *contacts.Generator
	Records  *records.Store
}

type handlers struct {
	Generators
	store *output.Store
}

// Register adds the Outlook tools to reg
func Register(reg *registry.Registry, gens Generators, store *output.Store) error {
	h := &handlers{Generators: gens, store: store}
	var all []tools.Tool
	for _, group := range [][]tools.Tool{
		h.mailTools(),
		h.calendarTools(),
		h.contactTools(),
		h.taskTools(),
		h.organiserTools(),
	} {
		all = append(all, group...)
	}
	return reg.RegisterAll(all...)
}

// read loads an existing file named by the key argument
func (h *handlers) read(args tools.Args, key string) ([]byte, string, error) {
	name, err := args.RequireString(key)
	if err != nil {
		return nil, "", err
	}
	return h.readFile(name)
}

func (h *handlers) readFile(name string) ([]byte, string, error) {
	path, err := h.store.ResolveInput(name)
	if err != nil {
		return nil, "", err
	}
	data, err := h.store.Read(path)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", fmt.Errorf("%s does not exist", path)
	}
	return data, path, nil
}

// write creates filename (or outputPath) with data
func (h *handlers) write(ctx context.Context, args tools.Args, data []byte) (string, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return "", err
	}
	return h.store.Create(ctx, filename, args.String("outputPath"), data)
}

func location(args tools.Args) (*time.Location, error) {
	name := args.String("timezone")
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &tools.ValidationError{Field: "timezone", Value: name, Message: "unknown time zone"}
	}
	return loc, nil
}

// timeArg parses an optional date or date-time argument
func timeArg(args tools.Args, key string, loc *time.Location) (time.Time, bool, error) {
	s := args.String(key)
	if s == "" {
		return time.Time{}, false, nil
	}
	t, allDay, err := ical.ParseTime(s, loc)
	if err != nil {
		return time.Time{}, false, &tools.ValidationError{Field: key, Value: s, Message: err.Error()}
	}
	return t, allDay, nil
}

func timePtr(args tools.Args, key string, loc *time.Location) (*time.Time, error) {
	t, _, err := timeArg(args, key, loc)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func collection(description string) mcp.ToolOption {
	return tools.Filename(description + " (.json). Created if it does not exist")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04 MST")
}
