package records

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sammcj/mcp-office/internal/generator/email"
)

// RuleConditions match incoming mail; all non-empty conditions must hold
type RuleConditions struct {
	From            []string `json:"from,omitempty"`
	To              []string `json:"to,omitempty"`
	SubjectContains []string `json:"subjectContains,omitempty"`
	BodyContains    []string `json:"bodyContains,omitempty"`
	HasAttachment   bool     `json:"hasAttachment,omitempty"`
	Importance      string   `json:"importance,omitempty"`
}

// RuleActions are applied to matching mail
type RuleActions struct {
	MoveToFolder string   `json:"moveToFolder,omitempty"`
	CopyToFolder string   `json:"copyToFolder,omitempty"`
	Categorize   []string `json:"categorize,omitempty"`
	ForwardTo    []string `json:"forwardTo,omitempty"`
	MarkAsRead   bool     `json:"markAsRead,omitempty"`
	Flag         bool     `json:"flag,omitempty"`
	Delete       bool     `json:"delete,omitempty"`
	StopRules    bool     `json:"stopProcessingMoreRules,omitempty"`
}

// Rule is a client side mail rule
type Rule struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Enabled    bool           `json:"enabled"`
	Conditions RuleConditions `json:"conditions"`
	Actions    RuleActions    `json:"actions"`
	Created    time.Time      `json:"created"`
}

// Key implements Item
func (r Rule) Key() string { return r.ID }

func (c RuleConditions) empty() bool {
	return len(c.From) == 0 && len(c.To) == 0 && len(c.SubjectContains) == 0 &&
		len(c.BodyContains) == 0 && !c.HasAttachment && c.Importance == ""
}

func (a RuleActions) empty() bool {
	return a.MoveToFolder == "" && a.CopyToFolder == "" && len(a.Categorize) == 0 &&
		len(a.ForwardTo) == 0 && !a.MarkAsRead && !a.Flag && !a.Delete
}

// Matches reports whether a parsed message satisfies the rule
func (r Rule) Matches(m *email.Parsed) bool {
	c := r.Conditions
	anyFold := func(haystack []string, needles []string) bool {
		if len(needles) == 0 {
			return true
		}
		for _, h := range haystack {
			for _, n := range needles {
				if strings.Contains(strings.ToLower(h), strings.ToLower(n)) {
					return true
				}
			}
		}
		return false
	}
	return anyFold([]string{m.From}, c.From) &&
		anyFold(m.To, c.To) &&
		anyFold([]string{m.Subject}, c.SubjectContains) &&
		anyFold([]string{m.Body()}, c.BodyContains) &&
		(!c.HasAttachment || len(m.Attachments) > 0) &&
		(c.Importance == "" || strings.EqualFold(c.Importance, m.Importance))
}

// Describe renders the rule as one readable sentence
func (r Rule) Describe() string {
	var conds, acts []string
	c, a := r.Conditions, r.Actions
	if len(c.From) > 0 {
		conds = append(conds, "from "+strings.Join(c.From, " or "))
	}
	if len(c.To) > 0 {
		conds = append(conds, "sent to "+strings.Join(c.To, " or "))
	}
	if len(c.SubjectContains) > 0 {
		conds = append(conds, `subject contains "`+strings.Join(c.SubjectContains, `" or "`)+`"`)
	}
	if len(c.BodyContains) > 0 {
		conds = append(conds, `body contains "`+strings.Join(c.BodyContains, `" or "`)+`"`)
	}
	if c.HasAttachment {
		conds = append(conds, "has an attachment")
	}
	if c.Importance != "" {
		conds = append(conds, "importance is "+c.Importance)
	}
	if a.MoveToFolder != "" {
		acts = append(acts, "move to "+a.MoveToFolder)
	}
	if a.CopyToFolder != "" {
		acts = append(acts, "copy to "+a.CopyToFolder)
	}
	if len(a.Categorize) > 0 {
		acts = append(acts, "categorise as "+strings.Join(a.Categorize, ", "))
	}
	if len(a.ForwardTo) > 0 {
		acts = append(acts, "forward to "+strings.Join(a.ForwardTo, ", "))
	}
	if a.MarkAsRead {
		acts = append(acts, "mark as read")
	}
	if a.Flag {
		acts = append(acts, "flag")
	}
	if a.Delete {
		acts = append(acts, "delete")
	}
	if a.StopRules {
		acts = append(acts, "stop processing more rules")
	}
	return fmt.Sprintf("When a message is %s: %s", strings.Join(conds, " and "), strings.Join(acts, ", "))
}

// AddRule validates and appends a mail rule
func (s *Store) AddRule(ctx context.Context, filename, outputPath string, r Rule) (Rule, string, error) {
	if strings.TrimSpace(r.Name) == "" {
		return Rule{}, "", fmt.Errorf("a rule needs a name")
	}
	if r.Conditions.empty() {
		return Rule{}, "", fmt.Errorf("rule %q needs at least one condition", r.Name)
	}
	if r.Actions.empty() {
		return Rule{}, "", fmt.Errorf("rule %q needs at least one action", r.Name)
	}
	r.ID = s.newID()
	r.Created = s.now().UTC()
	path, err := Modify(ctx, s, KindRules, filename, outputPath, func(f *File[Rule]) error {
		if slices.ContainsFunc(f.Items, func(x Rule) bool { return strings.EqualFold(x.Name, r.Name) }) {
			return fmt.Errorf("a rule named %q already exists", r.Name)
		}
		f.Items = append(f.Items, r)
		return nil
	})
	return r, path, err
}

// Template is a reusable message with {{variable}} placeholders
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	HTML      bool      `json:"html,omitempty"`
	Variables []string  `json:"variables,omitempty"`
	Category  string    `json:"category,omitempty"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
}

// Key implements Item
func (t Template) Key() string { return t.ID }

// SaveTemplate adds a template, replacing one with the same name
func (s *Store) SaveTemplate(ctx context.Context, filename, outputPath string, t Template) (Template, bool, string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return Template{}, false, "", fmt.Errorf("a template needs a name")
	}
	t.Variables = email.Placeholders(t.Subject + "\n" + t.Body)
	now := s.now().UTC()
	replaced := false
	path, err := Modify(ctx, s, KindTemplates, filename, outputPath, func(f *File[Template]) error {
		i := slices.IndexFunc(f.Items, func(x Template) bool { return strings.EqualFold(x.Name, t.Name) })
		if i >= 0 {
			t.ID, t.Created, t.Modified = f.Items[i].ID, f.Items[i].Created, now
			f.Items[i] = t
			replaced = true
			return nil
		}
		t.ID, t.Created, t.Modified = s.newID(), now, now
		f.Items = append(f.Items, t)
		return nil
	})
	return t, replaced, path, err
}

// FindTemplate returns the template whose name or id matches ref
func (s *Store) FindTemplate(filename, ref string) (Template, error) {
	f, _, err := Load[Template](s, KindTemplates, filename)
	if err != nil {
		return Template{}, err
	}
	if i := slices.IndexFunc(f.Items, func(x Template) bool { return strings.EqualFold(x.Name, ref) }); i >= 0 {
		return f.Items[i], nil
	}
	i, err := Lookup(f.Items, ref)
	if err != nil {
		return Template{}, fmt.Errorf("no template named %q in %s", ref, filename)
	}
	return f.Items[i], nil
}

// SignatureRecord is a stored signature
type SignatureRecord struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Default   bool            `json:"default,omitempty"`
	Signature email.Signature `json:"signature"`
}

// Key implements Item
func (r SignatureRecord) Key() string { return r.ID }

// SaveSignature stores a signature under label, replacing one with the same
// label. Marking it default clears the flag on the others.
func (s *Store) SaveSignature(ctx context.Context, filename, outputPath string, rec SignatureRecord) (SignatureRecord, string, error) {
	if strings.TrimSpace(rec.Signature.Name) == "" {
		return SignatureRecord{}, "", fmt.Errorf("a signature needs a name")
	}
	if rec.Label == "" {
		rec.Label = rec.Signature.Name
	}
	path, err := Modify(ctx, s, KindSignatures, filename, outputPath, func(f *File[SignatureRecord]) error {
		if len(f.Items) == 0 {
			rec.Default = true
		}
		if rec.Default {
			for i := range f.Items {
				f.Items[i].Default = false
			}
		}
		if i := slices.IndexFunc(f.Items, func(x SignatureRecord) bool { return strings.EqualFold(x.Label, rec.Label) }); i >= 0 {
			rec.ID = f.Items[i].ID
			f.Items[i] = rec
			return nil
		}
		rec.ID = s.newID()
		f.Items = append(f.Items, rec)
		return nil
	})
	return rec, path, err
}

// FindSignature returns the signature with the given label, or the default
// one when label is empty
func (s *Store) FindSignature(filename, label string) (email.Signature, error) {
	f, _, err := Load[SignatureRecord](s, KindSignatures, filename)
	if err != nil {
		return email.Signature{}, err
	}
	for _, r := range f.Items {
		if (label == "" && r.Default) || (label != "" && strings.EqualFold(r.Label, label)) {
			return r.Signature, nil
		}
	}
	if label == "" {
		return email.Signature{}, fmt.Errorf("no default signature in %s", filename)
	}
	return email.Signature{}, fmt.Errorf("no signature labelled %q in %s", label, filename)
}

// OutOfOffice is an automatic reply setting
type OutOfOffice struct {
	ID               string     `json:"id"`
	Enabled          bool       `json:"enabled"`
	Start            *time.Time `json:"start,omitempty"`
	End              *time.Time `json:"end,omitempty"`
	InternalReply    string     `json:"internalReply"`
	ExternalReply    string     `json:"externalReply,omitempty"`
	ExternalAudience string     `json:"externalAudience"`
	Modified         time.Time  `json:"modified"`
}

// Key implements Item
func (o OutOfOffice) Key() string { return o.ID }

// Active reports whether replies are sent at t
func (o OutOfOffice) Active(t time.Time) bool {
	if !o.Enabled {
		return false
	}
	return (o.Start == nil || !t.Before(*o.Start)) && (o.End == nil || t.Before(*o.End))
}

var audiences = []string{"none", "contacts", "all"}

// SetOutOfOffice replaces the out-of-office setting held in filename
func (s *Store) SetOutOfOffice(ctx context.Context, filename, outputPath string, o OutOfOffice) (OutOfOffice, string, error) {
	if o.Start != nil && o.End != nil && !o.End.After(*o.Start) {
		return OutOfOffice{}, "", fmt.Errorf("the end time must be after the start time")
	}
	if o.ExternalAudience == "" {
		o.ExternalAudience = "contacts"
	}
	if !slices.Contains(audiences, o.ExternalAudience) {
		return OutOfOffice{}, "", fmt.Errorf("unknown external audience %q (use none, contacts or all)", o.ExternalAudience)
	}
	if o.ExternalReply == "" && o.ExternalAudience != "none" {
		o.ExternalReply = o.InternalReply
	}
	o.Modified = s.now().UTC()
	path, err := Modify(ctx, s, KindOutOfOffice, filename, outputPath, func(f *File[OutOfOffice]) error {
		if len(f.Items) > 0 {
			o.ID = f.Items[0].ID
		} else {
			o.ID = s.newID()
		}
		f.Items = []OutOfOffice{o}
		return nil
	})
	return o, path, err
}

// Note is a sticky note
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Color      string    `json:"color"`
	Categories []string  `json:"categories,omitempty"`
	Created    time.Time `json:"created"`
}

// Key implements Item
func (n Note) Key() string { return n.ID }

// NoteColors are the colours a note may take
var NoteColors = []string{"yellow", "blue", "green", "pink", "white"}

// AddNote appends a note. The title defaults to the first line of the body.
func (s *Store) AddNote(ctx context.Context, filename, outputPath string, n Note) (Note, string, error) {
	if strings.TrimSpace(n.Body) == "" && strings.TrimSpace(n.Title) == "" {
		return Note{}, "", fmt.Errorf("a note needs a title or body")
	}
	if n.Title == "" {
		n.Title, _, _ = strings.Cut(strings.TrimSpace(n.Body), "\n")
	}
	n.Color = strings.ToLower(n.Color)
	if n.Color == "" {
		n.Color = "yellow"
	}
	if !slices.Contains(NoteColors, n.Color) {
		return Note{}, "", fmt.Errorf("unknown note colour %q (use %s)", n.Color, strings.Join(NoteColors, ", "))
	}
	n.ID = s.newID()
	n.Created = s.now().UTC()
	path, err := Modify(ctx, s, KindNotes, filename, outputPath, func(f *File[Note]) error {
		f.Items = append(f.Items, n)
		return nil
	})
	return n, path, err
}
