package email

import (
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Placeholders lists the distinct variable names used in s, in order
func Placeholders(s string) []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(s, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}

// Render substitutes {{name}} placeholders. Unknown placeholders are left in
// place and reported as missing.
func Render(s string, vars map[string]string) (string, []string) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		if !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return m
	})
	return out, missing
}

// Signature is a sign-off block appended to messages
type Signature struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
	Closing string `json:"closing,omitempty"`
}

func (s Signature) lines() []string {
	var lines []string
	if s.Title != "" && s.Company != "" {
		lines = append(lines, s.Title+", "+s.Company)
	} else if s.Title != "" || s.Company != "" {
		lines = append(lines, s.Title+s.Company)
	}
	if s.Phone != "" {
		lines = append(lines, "Phone: "+s.Phone)
	}
	if s.Email != "" {
		lines = append(lines, "Email: "+s.Email)
	}
	if s.Website != "" {
		lines = append(lines, s.Website)
	}
	return lines
}

// Text renders the signature as plain text
func (s Signature) Text() string {
	var b strings.Builder
	b.WriteString("-- \n")
	if s.Closing != "" {
		b.WriteString(s.Closing + "\n")
	}
	b.WriteString(s.Name)
	for _, l := range s.lines() {
		b.WriteString("\n" + l)
	}
	return b.String()
}

// HTML renders the signature as an HTML block
func (s Signature) HTML() string {
	var b strings.Builder
	b.WriteString(`<div class="signature" style="font-family:Calibri,Arial,sans-serif;font-size:11pt;color:#444">`)
	if s.Closing != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(s.Closing))
	}
	fmt.Fprintf(&b, "<p><strong>%s</strong>", html.EscapeString(s.Name))
	for _, l := range s.lines() {
		switch {
		case s.Email != "" && l == "Email: "+s.Email:
			fmt.Fprintf(&b, `<br>Email: <a href="mailto:%[1]s">%[1]s</a>`, html.EscapeString(s.Email))
		case s.Website != "" && l == s.Website:
			fmt.Fprintf(&b, `<br><a href="%[1]s">%[1]s</a>`, html.EscapeString(s.Website))
		default:
			fmt.Fprintf(&b, "<br>%s", html.EscapeString(l))
		}
	}
	b.WriteString("</p></div>")
	return b.String()
}

// AppendSignature adds a signature to the bodies of m
func AppendSignature(m *Message, s Signature) {
	if m.Text != "" || m.HTML == "" {
		m.Text = strings.TrimRight(m.Text, "\n") + "\n\n" + s.Text()
	}
	if m.HTML != "" {
		m.HTML += s.HTML()
	}
}

// AutoReply builds an out-of-office reply body
func AutoReply(message, from, until, contact string) string {
	var b strings.Builder
	if message != "" {
		b.WriteString(message)
	} else {
		b.WriteString("Thank you for your email. I am currently out of the office")
		if from != "" && until != "" {
			fmt.Fprintf(&b, " from %s until %s", from, until)
		} else if until != "" {
			fmt.Fprintf(&b, " until %s", until)
		}
		b.WriteString(" with limited access to email.")
	}
	if contact != "" {
		fmt.Fprintf(&b, "\n\nFor urgent matters please contact %s.", contact)
	}
	return b.String()
}
