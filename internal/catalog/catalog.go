// Package catalog assembles the complete tool surface: it builds the document
// generators and hands them to each tool family's Register.
package catalog

import (
	"fmt"

	"github.com/sammcj/mcp-office/internal/generator/contacts"
	"github.com/sammcj/mcp-office/internal/generator/docx"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/generator/ical"
	"github.com/sammcj/mcp-office/internal/generator/pptx"
	"github.com/sammcj/mcp-office/internal/generator/records"
	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/tools/excel"
	"github.com/sammcj/mcp-office/internal/tools/outlook"
	"github.com/sammcj/mcp-office/internal/tools/pdf"
	"github.com/sammcj/mcp-office/internal/tools/powerpoint"
	"github.com/sammcj/mcp-office/internal/tools/utilities/toolhelp"
	"github.com/sammcj/mcp-office/internal/tools/word"
	"github.com/sirupsen/logrus"
)

// Size is the number of tools in the full catalog
const Size = 151

// Family is one group of tools, such as the Excel tools, in registration order
type Family struct {
	Name  string
	Tools []string
}

// Register builds the generators and registers every tool family with reg
func Register(reg *registry.Registry, store *output.Store, logger *logrus.Logger, mail email.Options) ([]Family, error) {
	steps := []struct {
		family   string
		register func() error
	}{
		{"excel", func() error { return excel.Register(reg, xlsx.New(logger), store) }},
		{"word", func() error { return word.Register(reg, docx.New(logger), store) }},
		{"powerpoint", func() error { return powerpoint.Register(reg, pptx.New(logger), store) }},
		{"outlook", func() error {
			return outlook.Register(reg, outlook.Generators{
				Mail:     email.New(logger, mail),
				Calendar: ical.New(logger),
				Contacts: contacts.New(logger),
				Records:  records.NewStore(store, logger),
			}, store)
		}},
		{"pdf", func() error { return pdf.Register(reg, store) }},
		{"help", func() error { return toolhelp.Register(reg) }},
	}
	var families []Family
	for _, step := range steps {
		before := reg.Len()
		if err := step.register(); err != nil {
			return nil, fmt.Errorf("failed to register %s tools: %w", step.family, err)
		}
		family := Family{Name: step.family}
		for _, def := range reg.List()[before:] {
			family.Tools = append(family.Tools, def.Name)
		}
		families = append(families, family)
	}
	logger.WithField("tools", reg.Len()).Debug("Tool catalog registered")
	return families, nil
}
