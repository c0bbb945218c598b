package email_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator(opts email.Options) *email.Generator {
	return email.New(testutils.CreateTestLogger(), opts)
}

func TestCompose_RoundTrip(t *testing.T) {
	g := newGenerator(email.Options{})
	data, err := g.Compose(email.Message{
		From:       "alice@example.com",
		FromName:   "Alice Smith",
		To:         []string{"bob@example.com"},
		Cc:         []string{"carol@example.com", "dan@example.com"},
		Subject:    "Quarterly numbers",
		Text:       "Hi Bob,\n\nThe figures are attached.",
		HTML:       `<p>Hi Bob,</p><p>The figures are <a href="https://example.com/q3">online</a>.</p>`,
		Importance: "high",
		Attachments: []email.Attachment{
			{Name: "q3.csv", Data: []byte("region,total\nnorth,10\n")},
		},
	})
	require.NoError(t, err)

	p, err := email.Parse(data)
	require.NoError(t, err)
	assert.Contains(t, p.From, "alice@example.com")
	assert.Equal(t, []string{"bob@example.com"}, p.To)
	assert.Equal(t, []string{"carol@example.com", "dan@example.com"}, p.Cc)
	assert.Equal(t, "Quarterly numbers", p.Subject)
	assert.Equal(t, "high", p.Importance)
	assert.Contains(t, p.Text, "The figures are attached.")
	assert.Contains(t, p.HTML, "<p>Hi Bob,</p>")
	assert.Equal(t, []string{"https://example.com/q3"}, p.Links)
	require.Len(t, p.Attachments, 1)
	assert.Equal(t, "q3.csv", p.Attachments[0].Name)
	assert.Equal(t, len("region,total\nnorth,10\n"), p.Attachments[0].Size)
	assert.False(t, p.Draft)
	assert.NotEmpty(t, p.MessageID)
	assert.False(t, p.Date.IsZero())
}

func TestCompose_HTMLOnlyGetsTextAlternative(t *testing.T) {
	g := newGenerator(email.Options{})
	data, err := g.Compose(email.Message{
		From:    "alice@example.com",
		To:      []string{"bob@example.com"},
		Subject: "Notice",
		HTML:    "<h1>Heads up</h1><p>The office is <strong>closed</strong> on Friday.</p>",
	})
	require.NoError(t, err)

	p, err := email.Parse(data)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "# Heads up")
	assert.Contains(t, p.Text, "**closed**")
}

func TestCompose_Draft(t *testing.T) {
	g := newGenerator(email.Options{SMTP: email.SMTP{From: "me@example.com"}})
	data, err := g.Compose(email.Message{Subject: "Unfinished", Text: "todo", Draft: true})
	require.NoError(t, err)
	assert.Contains(t, string(data), "X-Unsent: 1")

	p, err := email.Parse(data)
	require.NoError(t, err)
	assert.True(t, p.Draft)
	assert.Contains(t, p.From, "me@example.com")
}

func TestCompose_Validation(t *testing.T) {
	g := newGenerator(email.Options{})

	_, err := g.Compose(email.Message{From: "a@example.com", Subject: "x"})
	assert.ErrorContains(t, err, "at least one recipient")

	_, err = g.Compose(email.Message{From: "a@example.com", To: []string{"not an address"}})
	assert.ErrorContains(t, err, "invalid to address")

	_, err = g.Compose(email.Message{From: "a@example.com", To: []string{"b@example.com"}, Importance: "extreme"})
	assert.ErrorContains(t, err, "unknown importance")
}

func TestParse_RejectsGarbage(t *testing.T) {
	_, err := email.Parse([]byte("this is not\nan email"))
	assert.Error(t, err)
}

func TestParse_QuotedPrintableAndEncodedSubject(t *testing.T) {
	raw := "From: =?UTF-8?Q?Ren=C3=A9e?= <renee@example.com>\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: =?UTF-8?B?Q2Fmw6kgbWVldGluZw==?=\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"See you at the caf=C3=A9 at 10.\r\n"
	p, err := email.Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Café meeting", p.Subject)
	assert.Contains(t, p.From, "Renée")
	assert.Equal(t, "See you at the café at 10.", p.Text)
}

func TestSend_RequiresServer(t *testing.T) {
	g := newGenerator(email.Options{})
	err := g.Send(context.Background(), email.Message{To: []string{"b@example.com"}}, email.SMTP{})
	assert.ErrorContains(t, err, "no SMTP server configured")
}

func TestSend_DeniedDomain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("deny_domains:\n  - \"*.blocked.test\"\n"), 0o600))
	policy, err := security.LoadPolicy(path, testutils.CreateTestLogger())
	require.NoError(t, err)

	g := newGenerator(email.Options{Policy: policy})
	err = g.Send(context.Background(), email.Message{
		From: "me@example.com",
		To:   []string{"Eve <eve@mail.blocked.test>"},
	}, email.SMTP{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, security.ErrAccessDenied))

	err = g.Send(context.Background(), email.Message{
		From: "me@example.com",
		To:   []string{"bob@example.com"},
	}, email.SMTP{Host: "smtp.blocked.test", Port: 25})
	assert.True(t, errors.Is(err, security.ErrAccessDenied))
}

func TestSend_RateLimited(t *testing.T) {
	g := newGenerator(email.Options{RatePerMinute: 1, Timeout: 500 * time.Millisecond})
	msg := email.Message{From: "me@example.com", To: []string{"bob@example.com"}, Subject: "hi", Text: "hi"}
	server := email.SMTP{Host: "127.0.0.1", Port: 1}

	// The first send uses the only token and then fails to connect
	err := g.Send(context.Background(), msg, server)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "rate limit")

	err = g.Send(context.Background(), msg, server)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestRender(t *testing.T) {
	out, missing := email.Render("Hello {{name}}, your order {{ order }} ships {{date}}. Thanks {{name}}!", map[string]string{
		"name":  "Sam",
		"order": "#42",
	})
	assert.Equal(t, "Hello Sam, your order #42 ships {{date}}. Thanks Sam!", out)
	assert.Equal(t, []string{"date"}, missing)

	assert.Equal(t, []string{"a", "b"}, email.Placeholders("{{a}} {{b}} {{a}}"))
}

func TestSignature(t *testing.T) {
	sig := email.Signature{
		Name:    "Sam Jones",
		Title:   "Engineer",
		Company: "Acme",
		Email:   "sam@acme.test",
		Closing: "Cheers,",
	}
	assert.Equal(t, "-- \nCheers,\nSam Jones\nEngineer, Acme\nEmail: sam@acme.test", sig.Text())

	html := sig.HTML()
	assert.Contains(t, html, "<strong>Sam Jones</strong>")
	assert.Contains(t, html, `<a href="mailto:sam@acme.test">sam@acme.test</a>`)

	msg := email.Message{Text: "Body", HTML: "<p>Body</p>"}
	email.AppendSignature(&msg, sig)
	assert.True(t, strings.HasSuffix(msg.Text, "Email: sam@acme.test"))
	assert.True(t, strings.HasPrefix(msg.Text, "Body\n\n-- \n"))
	assert.True(t, strings.HasSuffix(msg.HTML, "</div>"))
}

func TestAutoReply(t *testing.T) {
	body := email.AutoReply("", "1 May", "9 May", "Jo (jo@example.com)")
	assert.Equal(t, "Thank you for your email. I am currently out of the office from 1 May until 9 May with limited access to email.\n\nFor urgent matters please contact Jo (jo@example.com).", body)
	assert.Equal(t, "Away", email.AutoReply("Away", "", "", ""))
}

func TestSearch(t *testing.T) {
	g := newGenerator(email.Options{})
	dir := t.TempDir()
	write := func(name string, m email.Message) {
		data, err := g.Compose(m)
		require.NoError(t, err)
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, data, 0o600))
	}
	write("inbox/budget.eml", email.Message{From: "finance@example.com", To: []string{"me@example.com"}, Subject: "Budget review", Text: "Numbers for Q3"})
	write("inbox/lunch.eml", email.Message{From: "pat@example.com", To: []string{"me@example.com"}, Subject: "Lunch", Text: "Pizza on Friday?"})
	write("archive/old.eml", email.Message{From: "pat@example.com", To: []string{"me@example.com"}, Subject: "Hello", Text: "Welcome to the budget team"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "inbox", "notes.txt"), []byte("budget"), 0o600))

	all, err := email.Search(dir, email.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	hits, err := email.Search(dir, email.SearchOptions{Query: "budget"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Budget review", hits[0].Subject)

	fromPat, err := email.Search(dir, email.SearchOptions{From: "pat@", Pattern: "inbox/*.eml"})
	require.NoError(t, err)
	require.Len(t, fromPat, 1)
	assert.Equal(t, "Lunch", fromPat[0].Subject)
	assert.Equal(t, filepath.Join(dir, "inbox", "lunch.eml"), fromPat[0].Path)

	_, err = email.Search(dir, email.SearchOptions{Pattern: "[unclosed"})
	assert.Error(t, err)
}
