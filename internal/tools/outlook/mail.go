package outlook

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/generator/records"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

func messageOptions(recipientsRequired bool) []mcp.ToolOption {
	var to []mcp.PropertyOption
	if recipientsRequired {
		to = append(to, mcp.Required(), mcp.MinItems(1))
	}
	return []mcp.ToolOption{
		tools.StringArray("to", "Recipient addresses", to...),
		tools.StringArray("cc", "Copy addresses"),
		tools.StringArray("bcc", "Blind copy addresses"),
		mcp.WithString("from", mcp.Description("Sender address, defaults to the configured SMTP sender")),
		mcp.WithString("fromName"),
		mcp.WithString("replyTo"),
		mcp.WithString("subject", mcp.Required()),
		mcp.WithString("body", mcp.Description("Plain text body")),
		mcp.WithString("htmlBody", mcp.Description("HTML body. A plain text alternative is derived when body is empty")),
		mcp.WithString("importance", mcp.Enum("low", "normal", "high", "urgent")),
		tools.StringArray("attachments", "Files to attach"),
		mcp.WithString("signatureFile", mcp.Description("Signature collection (.json) to sign from")),
		mcp.WithString("signature", mcp.Description("Signature label, defaults to the collection's default signature")),
	}
}

func (h *handlers) message(args tools.Args) (email.Message, error) {
	m := email.Message{
		From:       args.String("from"),
		FromName:   args.String("fromName"),
		To:         args.Strings("to"),
		Cc:         args.Strings("cc"),
		Bcc:        args.Strings("bcc"),
		ReplyTo:    args.String("replyTo"),
		Subject:    args.String("subject"),
		Text:       args.String("body"),
		HTML:       args.String("htmlBody"),
		Importance: args.String("importance"),
	}
	for _, name := range args.Strings("attachments") {
		data, path, err := h.readFile(name)
		if err != nil {
			return m, fmt.Errorf("attachment: %w", err)
		}
		m.Attachments = append(m.Attachments, email.Attachment{Name: filepath.Base(path), Data: data})
	}
	if file := args.String("signatureFile"); file != "" {
		sig, err := h.Records.FindSignature(file, args.String("signature"))
		if err != nil {
			return m, err
		}
		email.AppendSignature(&m, sig)
	}
	return m, nil
}

func (h *handlers) mailTools() []tools.Tool {
	draftOpts := append([]mcp.ToolOption{tools.Filename("Draft to create (.eml)")}, messageOptions(false)...)
	draftOpts = append(draftOpts, tools.OutputPath())

	sendOpts := append(messageOptions(true),
		mcp.WithString("smtpHost", mcp.Description("Overrides the configured SMTP server")),
		mcp.WithNumber("smtpPort", mcp.Min(1), mcp.Max(65535)),
		mcp.WithString("smtpUsername"),
		mcp.WithString("smtpPassword"),
		mcp.WithBoolean("startTLS", mcp.DefaultBool(true)),
		mcp.WithString("saveCopy", mcp.Description("Also write the sent message to this .eml file")),
	)

	return []tools.Tool{
		tools.NewFunc(tools.Define("create_email_draft",
			"Write an email as an unsent .eml draft that mail clients open for editing",
			tools.Creates, draftOpts...,
		), h.createDraft),

		tools.NewFunc(tools.Define("send_email",
			"Send an email over SMTP. Sends are rate limited and never retried",
			tools.Sends, sendOpts...,
		), h.sendEmail).WithHelp(&tools.ExtendedHelp{
			WhenToUse:    "Delivering a message now. Use create_email_draft to let a person review it first",
			WhenNotToUse: "Retrying after a timeout: the first attempt may have been delivered",
			ParameterDetails: map[string]string{
				"smtpHost": "Without it the server from SMTP_HOST or the config file is used",
			},
			Troubleshooting: []tools.TroubleshootingTip{
				{Problem: "no SMTP server configured", Solution: "Set SMTP_HOST, SMTP_USERNAME, SMTP_PASSWORD and SMTP_FROM, or pass smtpHost"},
				{Problem: "send rate limit reached", Solution: "Wait a minute; the limit is mail_rate_per_minute in the config"},
			},
		}),

		tools.NewFunc(tools.Define("create_email_template",
			"Save a reusable email with {{variable}} placeholders. A template with the same name is replaced",
			tools.Edits,
			collection("Template collection"),
			mcp.WithString("name", mcp.Required()),
			mcp.WithString("subject", mcp.Required()),
			mcp.WithString("body", mcp.Required(), mcp.Description("Body with {{variable}} placeholders")),
			mcp.WithBoolean("html", mcp.Description("Body is HTML")),
			mcp.WithString("category"),
			tools.OutputPath(),
		), h.createTemplate),

		tools.NewFunc(tools.Define("apply_email_template",
			"Fill a saved template's placeholders and write the result as a draft",
			tools.Creates,
			mcp.WithString("templateFile", mcp.Required(), mcp.Description("Template collection (.json)")),
			mcp.WithString("template", mcp.Required(), mcp.Description("Template name or id")),
			mcp.WithObject("variables", mcp.Description("Placeholder values"), mcp.AdditionalProperties(map[string]any{"type": "string"})),
			tools.Filename("Draft to create (.eml)"),
			tools.StringArray("to", "Recipient addresses"),
			tools.StringArray("cc", "Copy addresses"),
			mcp.WithString("from"),
			tools.OutputPath(),
		), h.applyTemplate),

		tools.NewFunc(tools.Define("parse_email",
			"Read an .eml file: headers, body, links and attachments",
			tools.Reads,
			tools.Filename("Message to read (.eml)"),
			mcp.WithBoolean("includeHtml", mcp.DefaultBool(false)),
			mcp.WithString("rulesFile", mcp.Description("Mail rule collection (.json) to test the message against")),
		), h.parseEmail),

		tools.NewFunc(tools.Define("search_emails",
			"Search .eml files under a directory by sender, subject, date and free text",
			tools.Reads,
			mcp.WithString("directory", mcp.Description("Directory to scan, defaults to the output directory")),
			mcp.WithString("pattern", mcp.Description("File glob relative to the directory"), mcp.DefaultString("**/*.eml")),
			mcp.WithString("query", mcp.Description("Fuzzy match on sender, recipients and subject, or literal match on the body")),
			mcp.WithString("from"),
			mcp.WithString("subject"),
			mcp.WithString("since", mcp.Description("Date or date-time")),
			mcp.WithString("until", mcp.Description("Date or date-time")),
			mcp.WithNumber("limit", mcp.DefaultNumber(20), mcp.Min(1)),
		), h.searchEmails),

		tools.NewFunc(tools.Define("create_email_signature",
			"Save an email signature. The first saved signature, or one marked default, signs drafts that name the collection",
			tools.Edits,
			collection("Signature collection"),
			mcp.WithString("name", mcp.Required()),
			mcp.WithString("label", mcp.Description("Label to select the signature by, defaults to the name")),
			mcp.WithString("title"),
			mcp.WithString("company"),
			mcp.WithString("phone"),
			mcp.WithString("email"),
			mcp.WithString("website"),
			mcp.WithString("closing", mcp.Description("Line before the name, e.g. Kind regards")),
			mcp.WithBoolean("default"),
			tools.OutputPath(),
		), h.createSignature),

		tools.NewFunc(tools.Define("set_out_of_office",
			"Record an automatic reply setting with its active period and reply text",
			tools.Edits,
			collection("Out-of-office setting"),
			mcp.WithBoolean("enabled", mcp.DefaultBool(true)),
			mcp.WithString("start", mcp.Description("Date or date-time")),
			mcp.WithString("end", mcp.Description("Date or date-time")),
			mcp.WithString("message", mcp.Description("Reply to colleagues. Generated from the dates when omitted")),
			mcp.WithString("externalMessage", mcp.Description("Reply to outside senders, defaults to message")),
			mcp.WithString("externalAudience", mcp.Enum("none", "contacts", "all"), mcp.DefaultString("contacts")),
			mcp.WithString("contact", mcp.Description("Who to contact in the meantime")),
			mcp.WithString("timezone"),
			tools.OutputPath(),
		), h.setOutOfOffice),
	}
}

func (h *handlers) createDraft(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	m, err := h.message(args)
	if err != nil {
		return nil, err
	}
	m.Draft = true
	data, err := h.Mail.Compose(m)
	if err != nil {
		return nil, err
	}
	path, err := h.write(ctx, args, data)
	if err != nil {
		return nil, err
	}
	return tools.Text("Saved draft %q to %s (%d recipient(s), %d attachment(s))",
		m.Subject, path, len(m.To)+len(m.Cc)+len(m.Bcc), len(m.Attachments)), nil
}

func (h *handlers) sendEmail(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	m, err := h.message(args)
	if err != nil {
		return nil, err
	}
	server := email.SMTP{
		Host:     args.String("smtpHost"),
		Port:     args.Int("smtpPort", 0),
		Username: args.String("smtpUsername"),
		Password: args.String("smtpPassword"),
		StartTLS: args.Bool("startTLS", true),
	}
	if err := h.Mail.Send(ctx, m, server); err != nil {
		return nil, err
	}
	recipients := strings.Join(append(append(append([]string{}, m.To...), m.Cc...), m.Bcc...), ", ")
	result := fmt.Sprintf("Sent %q to %s", m.Subject, recipients)

	if copyName := args.String("saveCopy"); copyName != "" {
		data, err := h.Mail.Compose(m)
		if err == nil {
			var path string
			if path, err = h.store.Create(ctx, copyName, "", data); err == nil {
				result += "\nSaved a copy to " + path
			}
		}
		if err != nil {
			logger.WithError(err).Warn("Failed to save copy of sent email")
			result += "\nThe message was sent but the copy could not be saved: " + err.Error()
		}
	}
	return mcp.NewToolResultText(result), nil
}

func (h *handlers) createTemplate(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	t, replaced, path, err := h.Records.SaveTemplate(ctx, filename, args.String("outputPath"), records.Template{
		Name:     args.String("name"),
		Subject:  args.String("subject"),
		Body:     args.String("body"),
		HTML:     args.Bool("html", false),
		Category: args.String("category"),
	})
	if err != nil {
		return nil, err
	}
	verb := "Saved"
	if replaced {
		verb = "Replaced"
	}
	vars := "no variables"
	if len(t.Variables) > 0 {
		vars = "variables " + strings.Join(t.Variables, ", ")
	}
	return tools.Text("%s template %q (id %s) in %s with %s", verb, t.Name, t.ID, path, vars), nil
}

func (h *handlers) applyTemplate(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	ref, err := args.RequireString("template")
	if err != nil {
		return nil, err
	}
	file, err := args.RequireString("templateFile")
	if err != nil {
		return nil, err
	}
	t, err := h.Records.FindTemplate(file, ref)
	if err != nil {
		return nil, err
	}
	vars := args.StringMap("variables")
	subject, missingSubject := email.Render(t.Subject, vars)
	body, missingBody := email.Render(t.Body, vars)

	m := email.Message{
		From:    args.String("from"),
		To:      args.Strings("to"),
		Cc:      args.Strings("cc"),
		Subject: subject,
		Draft:   true,
	}
	if t.HTML {
		m.HTML = body
	} else {
		m.Text = body
	}
	data, err := h.Mail.Compose(m)
	if err != nil {
		return nil, err
	}
	path, err := h.write(ctx, args, data)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range append(missingSubject, missingBody...) {
		if !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
	}
	result := fmt.Sprintf("Created draft %q from template %q at %s", subject, t.Name, path)
	if len(missing) > 0 {
		result += "\nUnfilled placeholders: " + strings.Join(missing, ", ")
	}
	return mcp.NewToolResultText(result), nil
}

func (h *handlers) parseEmail(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	data, path, err := h.read(args, "filename")
	if err != nil {
		return nil, err
	}
	p, err := email.Parse(data)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Message: %s\n", path)
	fmt.Fprintf(&b, "From: %s\n", p.From)
	if len(p.To) > 0 {
		fmt.Fprintf(&b, "To: %s\n", strings.Join(p.To, ", "))
	}
	if len(p.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", strings.Join(p.Cc, ", "))
	}
	if p.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\n", p.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\n", p.Subject)
	if !p.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", p.Date.Format(time.RFC1123Z))
	}
	if p.Importance != "" {
		fmt.Fprintf(&b, "Importance: %s\n", p.Importance)
	}
	if p.Draft {
		b.WriteString("Status: draft\n")
	}
	fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(p.Body()))
	if args.Bool("includeHtml", false) && p.HTML != "" {
		fmt.Fprintf(&b, "\nHTML:\n%s\n", p.HTML)
	}
	if len(p.Links) > 0 {
		fmt.Fprintf(&b, "\nLinks:\n")
		for _, l := range p.Links {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}
	if len(p.Attachments) > 0 {
		fmt.Fprintf(&b, "\nAttachments:\n")
		for _, a := range p.Attachments {
			fmt.Fprintf(&b, "- %s (%s, %d bytes)\n", a.Name, a.ContentType, a.Size)
		}
	}

	if rulesFile := args.String("rulesFile"); rulesFile != "" {
		f, _, err := records.Load[records.Rule](h.Records, records.KindRules, rulesFile)
		if err != nil {
			return nil, err
		}
		var matched []string
		for _, r := range f.Items {
			if r.Enabled && r.Matches(p) {
				matched = append(matched, fmt.Sprintf("%s (%s)", r.Name, r.Describe()))
				if r.Actions.StopRules {
					break
				}
			}
		}
		if len(matched) == 0 {
			b.WriteString("\nNo mail rules match\n")
		} else {
			b.WriteString("\nMatching rules:\n- " + strings.Join(matched, "\n- ") + "\n")
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) searchEmails(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	dir := args.String("directory")
	if dir == "" {
		dir = h.store.BaseDir()
	}
	root, err := h.store.ResolveInput(dir)
	if err != nil {
		return nil, err
	}
	since, _, err := timeArg(args, "since", time.Local)
	if err != nil {
		return nil, err
	}
	until, _, err := timeArg(args, "until", time.Local)
	if err != nil {
		return nil, err
	}
	results, err := email.Search(root, email.SearchOptions{
		Pattern: args.StringOr("pattern", "**/*.eml"),
		Query:   args.String("query"),
		From:    args.String("from"),
		Subject: args.String("subject"),
		Since:   since,
		Until:   until,
		Limit:   args.Int("limit", 20),
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return tools.Text("No messages under %s match", root), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d message(s) under %s:\n", len(results), root)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n   From: %s\n   Subject: %s\n", i+1, r.Path, r.From, r.Subject)
		if !r.Date.IsZero() {
			fmt.Fprintf(&b, "   Date: %s\n", r.Date.Format("2006-01-02 15:04"))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) createSignature(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	sig := email.Signature{
		Name:    args.String("name"),
		Title:   args.String("title"),
		Company: args.String("company"),
		Phone:   args.String("phone"),
		Email:   args.String("email"),
		Website: args.String("website"),
		Closing: args.String("closing"),
	}
	rec, path, err := h.Records.SaveSignature(ctx, filename, args.String("outputPath"), records.SignatureRecord{
		Label:     args.String("label"),
		Default:   args.Bool("default", false),
		Signature: sig,
	})
	if err != nil {
		return nil, err
	}
	state := ""
	if rec.Default {
		state = " as the default"
	}
	return tools.Text("Saved signature %q%s in %s:\n\n%s", rec.Label, state, path, sig.Text()), nil
}

func (h *handlers) setOutOfOffice(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return nil, err
	}
	loc, err := location(args)
	if err != nil {
		return nil, err
	}
	start, err := timePtr(args, "start", loc)
	if err != nil {
		return nil, err
	}
	end, err := timePtr(args, "end", loc)
	if err != nil {
		return nil, err
	}
	var from, until string
	if start != nil {
		from = formatTime(*start)
	}
	if end != nil {
		until = formatTime(*end)
	}
	reply := email.AutoReply(args.String("message"), from, until, args.String("contact"))
	external := args.String("externalMessage")
	if external != "" {
		external = email.AutoReply(external, from, until, args.String("contact"))
	}

	o, path, err := h.Records.SetOutOfOffice(ctx, filename, args.String("outputPath"), records.OutOfOffice{
		Enabled:          args.Bool("enabled", true),
		Start:            start,
		End:              end,
		InternalReply:    reply,
		ExternalReply:    external,
		ExternalAudience: args.StringOr("externalAudience", "contacts"),
	})
	if err != nil {
		return nil, err
	}
	state := "disabled"
	switch {
	case o.Active(time.Now()):
		state = "active now"
	case o.Enabled:
		state = "scheduled"
	}
	return tools.Text("Out-of-office %s, saved to %s\n\nReply:\n%s", state, path, o.InternalReply), nil
}
