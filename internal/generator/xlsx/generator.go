// Package xlsx builds and edits spreadsheet workbooks with excelize.
package xlsx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Excel limits
const (
	MaxRows            = 1048576
	MaxColumns         = 16384
	MaxCellValueLength = 32767
	MaxSheetNameLength = 31
)

// Sheet describes one worksheet of a new workbook
type Sheet struct {
	Name         string
	Headers      []string
	Rows         [][]any
	ColumnWidths []float64
}

// Properties are the document properties of a workbook
type Properties struct {
	Title       string
	Subject     string
	Creator     string
	Keywords    string
	Description string
	Category    string
	Company     string
}

// Generator produces workbook bytes
type Generator struct {
	logger *logrus.Logger
}

// New creates a workbook generator
func New(logger *logrus.Logger) *Generator {
	return &Generator{logger: logger}
}

// Create builds a workbook from sheet descriptions. Header rows are bold and
// frozen; formulas in rows are recognised by a leading "=".
func (g *Generator) Create(sheets []Sheet, props *Properties) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("at least one sheet is required")
	}

	// sheet names are unique ignoring case
	names := make([]string, len(sheets))
	seen := make(map[string]bool, len(sheets))
	for i, sheet := range sheets {
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if err := ValidateSheetName(name); err != nil {
			return nil, err
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("duplicate sheet name %q", name)
		}
		seen[key] = true
		names[i] = name
	}

	f := excelize.NewFile()
	defer g.close(f)

	for i, sheet := range sheets {
		name := names[i]
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %q: %w", name, err)
		}
		if err := g.fillSheet(f, name, sheet); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	if props != nil {
		if err := SetProperties(f, *props); err != nil {
			return nil, err
		}
	}
	return g.bytes(f)
}

func (g *Generator) fillSheet(f *excelize.File, name string, sheet Sheet) error {
	row := 1
	if len(sheet.Headers) > 0 {
		headers := make([]any, len(sheet.Headers))
		for i, h := range sheet.Headers {
			headers[i] = h
		}
		if err := f.SetSheetRow(name, "A1", &headers); err != nil {
			return err
		}
		end, _ := excelize.CoordinatesToCellName(len(headers), 1)
		if _, err := ApplyStyle(f, name, "A1:"+end, StyleSpec{Bold: true, FillColor: "D9E1F2", Border: "thin"}); err != nil {
			return err
		}
		if err := f.SetPanes(name, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return err
		}
		row = 2
	}

	if len(sheet.Rows) > 0 {
		start, _ := excelize.CoordinatesToCellName(1, row)
		if _, err := WriteRows(f, name, start, sheet.Rows); err != nil {
			return err
		}
	}

	for i, width := range sheet.ColumnWidths {
		if width <= 0 {
			continue
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return err
		}
	}
	if len(sheet.ColumnWidths) == 0 && (len(sheet.Headers) > 0 || len(sheet.Rows) > 0) {
		if _, err := AutoFit(f, name, nil); err != nil {
			return err
		}
	}
	return nil
}

// Open loads a workbook. Nil or empty content yields a new single-sheet workbook.
func (g *Generator) Open(existing []byte) (*excelize.File, error) {
	if len(existing) == 0 {
		return excelize.NewFile(), nil
	}
	f, err := excelize.OpenReader(bytes.NewReader(existing))
	if err != nil {
		return nil, &WorkbookError{Operation: "open", Cause: err}
	}
	return f, nil
}

// Apply opens a workbook, lets fn modify it and returns the saved bytes
func (g *Generator) Apply(existing []byte, fn func(f *excelize.File) error) ([]byte, error) {
	f, err := g.Open(existing)
	if err != nil {
		return nil, err
	}
	defer g.close(f)

	if err := fn(f); err != nil {
		return nil, err
	}
	return g.bytes(f)
}

// Inspect opens a workbook read-only for fn
func (g *Generator) Inspect(existing []byte, fn func(f *excelize.File) error) error {
	if len(existing) == 0 {
		return fmt.Errorf("workbook is empty or does not exist")
	}
	f, err := g.Open(existing)
	if err != nil {
		return err
	}
	defer g.close(f)
	return fn(f)
}

func (g *Generator) bytes(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &WorkbookError{Operation: "save", Cause: err}
	}
	return buf.Bytes(), nil
}

func (g *Generator) close(f *excelize.File) {
	if err := f.Close(); err != nil && g.logger != nil {
		g.logger.WithError(err).Warn("Failed to close workbook")
	}
}

// ValidateSheetName applies Excel's sheet naming rules
func ValidateSheetName(name string) error {
	if name == "" {
		return fmt.Errorf("sheet name cannot be empty")
	}
	if len([]rune(name)) > MaxSheetNameLength {
		return fmt.Errorf("sheet name %q is longer than %d characters", name, MaxSheetNameLength)
	}
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return fmt.Errorf("sheet name %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// RequireSheet fails unless the workbook has a sheet of that name
func RequireSheet(f *excelize.File, name string) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil || idx < 0 {
		return &SheetError{Operation: "lookup", SheetName: name, Cause: fmt.Errorf("sheet not found")}
	}
	return nil
}

// SheetOrActive returns name when given (checking it exists), else the active sheet
func SheetOrActive(f *excelize.File, name string) (string, error) {
	if name != "" {
		return name, RequireSheet(f, name)
	}
	active := f.GetSheetName(f.GetActiveSheetIndex())
	if active == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return "", fmt.Errorf("workbook has no sheets")
		}
		active = sheets[0]
	}
	return active, nil
}

// EnsureSheet returns the named sheet, creating it when missing
func EnsureSheet(f *excelize.File, name string) (created bool, err error) {
	if idx, _ := f.GetSheetIndex(name); idx >= 0 {
		return false, nil
	}
	if err := ValidateSheetName(name); err != nil {
		return false, err
	}
	if _, err := f.NewSheet(name); err != nil {
		return false, err
	}
	return true, nil
}

// SetProperties writes the workbook's document properties
func SetProperties(f *excelize.File, props Properties) error {
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       props.Title,
		Subject:     props.Subject,
		Creator:     props.Creator,
		Keywords:    props.Keywords,
		Description: props.Description,
		Category:    props.Category,
	}); err != nil {
		return fmt.Errorf("failed to set document properties: %w", err)
	}
	if props.Company != "" {
		if err := f.SetAppProps(&excelize.AppProperties{Company: props.Company}); err != nil {
			return fmt.Errorf("failed to set application properties: %w", err)
		}
	}
	return nil
}
