// Package email composes RFC 5322 messages, sends them over SMTP with a
// rate limit and reads .eml files back.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

// Attachment is a file carried by a message
type Attachment struct {
	Name string
	Data []byte
}

// Message is an outgoing email
type Message struct {
	From        string
	FromName    string
	To          []string
	Cc          []string
	Bcc         []string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	Importance  string
	Attachments []Attachment
	// Draft marks the message as unsent so mail clients open it for editing
	Draft bool
}

// SMTP holds the settings of an outgoing mail server
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	StartTLS bool
}

// Options configure a Generator
type Options struct {
	SMTP          SMTP
	RatePerMinute int
	Timeout       time.Duration
	Policy        *security.Policy
}

// Generator composes and sends mail
type Generator struct {
	logger  *logrus.Logger
	smtp    SMTP
	limiter *rate.Limiter
	timeout time.Duration
	policy  *security.Policy
}

// New creates a mail generator. A zero rate disables the send limit.
func New(logger *logrus.Logger, opts Options) *Generator {
	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Limit(opts.RatePerMinute) / 60
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Policy == nil {
		opts.Policy = security.NewPolicy(logger)
	}
	return &Generator{
		logger:  logger,
		smtp:    opts.SMTP,
		limiter: rate.NewLimiter(limit, 1),
		timeout: opts.Timeout,
		policy:  opts.Policy,
	}
}

// DefaultSMTP returns the configured server settings
func (g *Generator) DefaultSMTP() SMTP {
	return g.smtp
}

var importance = map[string]mail.Importance{
	"low":    mail.ImportanceLow,
	"normal": mail.ImportanceNormal,
	"high":   mail.ImportanceHigh,
	"urgent": mail.ImportanceUrgent,
}

func (g *Generator) build(m Message) (*mail.Msg, error) {
	if len(m.To) == 0 && len(m.Cc) == 0 && len(m.Bcc) == 0 && !m.Draft {
		return nil, errors.New("a message needs at least one recipient")
	}
	if m.From == "" {
		m.From = g.smtp.From
	}

	msg := mail.NewMsg()
	if m.From != "" {
		var err error
		if m.FromName != "" {
			err = msg.FromFormat(m.FromName, m.From)
		} else {
			err = msg.From(m.From)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid sender %q: %w", m.From, err)
		}
	}
	recipients := []struct {
		field string
		addrs []string
		set   func(...string) error
	}{
		{"to", m.To, msg.To},
		{"cc", m.Cc, msg.Cc},
		{"bcc", m.Bcc, msg.Bcc},
	}
	for _, r := range recipients {
		if len(r.addrs) == 0 {
			continue
		}
		if err := r.set(r.addrs...); err != nil {
			return nil, fmt.Errorf("invalid %s address: %w", r.field, err)
		}
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetUserAgent("mcp-office")

	if level := strings.ToLower(m.Importance); level != "" {
		imp, ok := importance[level]
		if !ok {
			return nil, fmt.Errorf("unknown importance %q (use low, normal, high or urgent)", m.Importance)
		}
		msg.SetImportance(imp)
	}
	if m.Draft {
		msg.SetGenHeader(mail.Header("X-Unsent"), "1")
	}

	switch {
	case m.HTML != "" && m.Text == "":
		text, err := HTMLToText(m.HTML)
		if err != nil {
			return nil, err
		}
		msg.SetBodyString(mail.TypeTextPlain, text)
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	case m.HTML != "":
		msg.SetBodyString(mail.TypeTextPlain, m.Text)
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	default:
		msg.SetBodyString(mail.TypeTextPlain, m.Text)
	}

	for _, a := range m.Attachments {
		if err := msg.AttachReader(a.Name, bytes.NewReader(a.Data)); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", a.Name, err)
		}
	}
	return msg, nil
}

// Compose renders a message as .eml bytes
func (g *Generator) Compose(m Message) ([]byte, error) {
	msg, err := g.build(m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}
	return buf.Bytes(), nil
}

// Send delivers a message through server, or the configured server when
// server.Host is empty. Sends are rate limited and bounded by the network
// timeout. A send is not retried.
func (g *Generator) Send(ctx context.Context, m Message, server SMTP) error {
	if server.Host == "" {
		server = g.smtp
	}
	if server.Host == "" {
		return errors.New("no SMTP server configured (set SMTP_HOST or pass smtpHost)")
	}
	if server.Port == 0 {
		server.Port = 587
	}
	if m.From == "" {
		m.From = server.From
	}
	if err := g.policy.CheckDomain(server.Host); err != nil {
		return err
	}
	for _, list := range [][]string{m.To, m.Cc, m.Bcc} {
		for _, addr := range list {
			if a, err := netmail.ParseAddress(addr); err == nil {
				addr = a.Address
			}
			if err := g.policy.CheckDomain(addr); err != nil {
				return err
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limit reached, try again later: %w", err)
	}

	msg, err := g.build(m)
	if err != nil {
		return err
	}
	opts := []mail.Option{mail.WithPort(server.Port), mail.WithTimeout(g.timeout)}
	if server.StartTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if server.Username != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(server.Username), mail.WithPassword(server.Password))
	}
	client, err := mail.NewClient(server.Host, opts...)
	if err != nil {
		return fmt.Errorf("invalid SMTP settings: %w", err)
	}

	logger := g.logger.WithFields(logrus.Fields{"host": server.Host, "port": server.Port, "recipients": len(m.To) + len(m.Cc) + len(m.Bcc)})
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		logger.WithError(err).Warn("Failed to send email")
		return fmt.Errorf("failed to send email via %s:%d: %w", server.Host, server.Port, err)
	}
	logger.Info("Sent email")
	return nil
}
