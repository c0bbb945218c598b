package outlook

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/contacts"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

func (h *handlers) contactTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("create_contact",
			"Add a contact to a vCard address book (.vcf), creating the file if needed",
			tools.Edits,
			tools.Filename("Address book (.vcf)"),
			mcp.WithString("fullName", mcp.Description("Defaults to firstName lastName")),
			mcp.WithString("firstName"),
			mcp.WithString("lastName"),
			mcp.WithString("email"),
			mcp.WithString("phone"),
			mcp.WithString("mobile"),
			mcp.WithString("company"),
			mcp.WithString("jobTitle"),
			mcp.WithString("street"),
			mcp.WithString("city"),
			mcp.WithString("region"),
			mcp.WithString("postalCode"),
			mcp.WithString("country"),
			mcp.WithString("website"),
			mcp.WithString("birthday", mcp.Description("YYYY-MM-DD")),
			mcp.WithString("notes"),
			tools.StringArray("categories", "Categories"),
			tools.OutputPath(),
		), h.createContact),

		tools.NewFunc(tools.Define("create_contact_group",
			"Add a distribution list to an address book. Members are email addresses; a card is added for each",
			tools.Edits,
			tools.Filename("Address book (.vcf)"),
			mcp.WithString("name", mcp.Required()),
			tools.StringArray("members", "Member email addresses", mcp.Required(), mcp.MinItems(1)),
			tools.OutputPath(),
		), h.createGroup),

		tools.NewFunc(tools.Define("import_contacts_csv",
			"Convert a CSV export (Outlook, Google or simple headers) into a vCard address book",
			tools.Creates,
			tools.Filename("Address book to create (.vcf)"),
			mcp.WithString("csvPath", mcp.Required()),
			tools.OutputPath(),
		), h.importCSV).WithHelp(&tools.ExtendedHelp{
			ParameterDetails: map[string]string{
				"csvPath": "The first row must be a header. Recognised columns include First Name, Last Name, E-mail Address, " +
					"Mobile Phone, Company and Job Title, along with lower case or snake_case variants. Other columns are ignored.",
			},
		}),

		tools.NewFunc(tools.Define("export_contacts_csv",
			"Export a vCard address book as an Outlook-compatible CSV file",
			tools.Creates,
			tools.Filename("Address book to export (.vcf)"),
			mcp.WithString("outputPath", mcp.Description("CSV file to write. Defaults to the address book name with .csv")),
		), h.exportCSV),

		tools.NewFunc(tools.Define("read_contacts",
			"List the contacts and groups of a vCard address book",
			tools.Reads,
			tools.Filename("Address book (.vcf)"),
			mcp.WithString("query", mcp.Description("Only contacts whose name, email or company contains this text")),
		), h.readContacts),
	}
}

// appendCards adds encoded cards to the address book, creating it when missing
func (h *handlers) appendCards(ctx context.Context, args tools.Args, cards []byte, check func(existing []contacts.Contact) error) (string, error) {
	filename, err := args.RequireString("filename")
	if err != nil {
		return "", err
	}
	path, _, err := h.store.Edit(ctx, filename, args.String("outputPath"), func(existing []byte) ([]byte, error) {
		if len(bytes.TrimSpace(existing)) == 0 {
			return cards, nil
		}
		current, _, err := h.Contacts.Decode(existing)
		if err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(current); err != nil {
				return nil, err
			}
		}
		if !bytes.HasSuffix(existing, []byte("\n")) {
			existing = append(existing, '\r', '\n')
		}
		return append(existing, cards...), nil
	})
	return path, err
}

func (h *handlers) createContact(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	c := contacts.Contact{
		FullName:  args.String("fullName"),
		FirstName: args.String("firstName"),
		LastName:  args.String("lastName"),
		Email:     args.String("email"),
		Phone:     args.String("phone"),
		Mobile:    args.String("mobile"),
		Company:   args.String("company"),
		JobTitle:  args.String("jobTitle"),
		Address: contacts.Address{
			Street:     args.String("street"),
			City:       args.String("city"),
			Region:     args.String("region"),
			PostalCode: args.String("postalCode"),
			Country:    args.String("country"),
		},
		Website:    args.String("website"),
		Birthday:   args.String("birthday"),
		Notes:      args.String("notes"),
		Categories: args.Strings("categories"),
	}
	if c.DisplayName() == "" {
		return nil, &tools.ValidationError{Field: "fullName", Message: "a contact needs a name, company or email address"}
	}
	cards, err := h.Contacts.Encode(c)
	if err != nil {
		return nil, err
	}
	path, err := h.appendCards(ctx, args, cards, func(existing []contacts.Contact) error {
		if c.Email == "" {
			return nil
		}
		for _, e := range existing {
			if strings.EqualFold(e.Email, c.Email) {
				return fmt.Errorf("%s already holds a contact with email %s (%s)", args.String("filename"), c.Email, e.DisplayName())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Added contact %s to %s", c.DisplayName(), path), nil
}

func (h *handlers) createGroup(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	name := args.String("name")
	var members []contacts.Contact
	for _, m := range args.Strings("members") {
		members = append(members, contacts.Contact{Email: strings.TrimSpace(m)})
	}
	// members already in the book are referenced, not duplicated
	var known []contacts.Contact
	if data, _ := h.store.Read(h.inputPath(args.String("filename"))); len(bytes.TrimSpace(data)) > 0 {
		known, _, _ = h.Contacts.Decode(data)
	}
	cards, err := h.Contacts.EncodeGroup(name, members, known...)
	if err != nil {
		return nil, err
	}
	path, err := h.appendCards(ctx, args, cards, nil)
	if err != nil {
		return nil, err
	}
	return tools.Text("Added group %q with %d member(s) to %s", name, len(members), path), nil
}

func (h *handlers) inputPath(name string) string {
	path, err := h.store.ResolveInput(name)
	if err != nil {
		return ""
	}
	return path
}

func (h *handlers) importCSV(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	data, _, err := h.read(args, "csvPath")
	if err != nil {
		return nil, err
	}
	list, err := h.Contacts.FromCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s holds no contacts", args.String("csvPath"))
	}
	cards, err := h.Contacts.Encode(list...)
	if err != nil {
		return nil, err
	}
	path, err := h.write(ctx, args, cards)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"path": path, "contacts": len(list)}).Info("Imported contacts")
	return tools.Text("Imported %d contact(s) into %s", len(list), path), nil
}

func (h *handlers) exportCSV(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	data, source, err := h.read(args, "filename")
	if err != nil {
		return nil, err
	}
	list, _, err := h.Contacts.Decode(data)
	if err != nil {
		return nil, err
	}
	out, err := h.Contacts.ToCSV(list)
	if err != nil {
		return nil, err
	}
	target := args.String("outputPath")
	if target == "" {
		target = strings.TrimSuffix(source, filepath.Ext(source)) + ".csv"
	}
	path, err := h.store.Create(ctx, target, "", out)
	if err != nil {
		return nil, err
	}
	return tools.Text("Exported %d contact(s) to %s", len(list), path), nil
}

func (h *handlers) readContacts(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	data, path, err := h.read(args, "filename")
	if err != nil {
		return nil, err
	}
	list, groups, err := h.Contacts.Decode(data)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(args.String("query"))
	var b strings.Builder
	shown := 0
	for _, c := range list {
		if query != "" && !strings.Contains(strings.ToLower(c.DisplayName()+" "+c.Email+" "+c.Company), query) {
			continue
		}
		shown++
		fmt.Fprintf(&b, "\n%d. %s", shown, c.DisplayName())
		if c.Email != "" {
			fmt.Fprintf(&b, " <%s>", c.Email)
		}
		b.WriteString("\n")
		if c.Company != "" || c.JobTitle != "" {
			fmt.Fprintf(&b, "   %s\n", strings.Trim(c.JobTitle+", "+c.Company, ", "))
		}
		for _, phone := range []struct{ label, value string }{{"Phone", c.Phone}, {"Mobile", c.Mobile}} {
			if phone.value != "" {
				fmt.Fprintf(&b, "   %s: %s\n", phone.label, phone.value)
			}
		}
		if len(c.Categories) > 0 {
			fmt.Fprintf(&b, "   Categories: %s\n", strings.Join(c.Categories, ", "))
		}
	}
	header := fmt.Sprintf("%s: %d contact(s)", path, shown)
	if query != "" {
		header += fmt.Sprintf(" matching %q of %d", args.String("query"), len(list))
	}
	if len(groups) > 0 && query == "" {
		b.WriteString("\nGroups:\n")
		for _, g := range groups {
			fmt.Fprintf(&b, "- %s (%d): %s\n", g.Name, len(g.Members), strings.Join(g.Members, ", "))
		}
	}
	return mcp.NewToolResultText(header + "\n" + b.String()), nil
}
