package xlsx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_\\][A-Za-z0-9_.]*$`)

// TableSpec describes a structured table over an existing range
type TableSpec struct {
	Range       string
	Name        string
	Style       string
	ShowStripes bool
}

// AddTable turns a range with a header row into an Excel table
func AddTable(f *excelize.File, sheet string, spec TableSpec) (string, error) {
	rng, err := ParseRange(spec.Range)
	if err != nil {
		return "", err
	}
	name := spec.Name
	if name == "" {
		tables, _ := f.GetTables(sheet)
		name = fmt.Sprintf("Table%d", len(tables)+1)
	}
	if !tableNamePattern.MatchString(name) || len(name) > 255 {
		return "", fmt.Errorf("invalid table name %q: use letters, digits, underscores and periods, starting with a letter or underscore", name)
	}
	style := spec.Style
	if style == "" {
		style = "TableStyleMedium9"
	}
	header := true
	stripes := spec.ShowStripes
	if err := f.AddTable(sheet, &excelize.Table{
		Range:          rng.String(),
		Name:           name,
		StyleName:      style,
		ShowHeaderRow:  &header,
		ShowRowStripes: &stripes,
	}); err != nil {
		return "", fmt.Errorf("failed to create table: %w", err)
	}
	return name, nil
}

// PivotSpec describes a native pivot table
type PivotSpec struct {
	SourceSheet string
	SourceRange string
	TargetSheet string
	TargetCell  string
	Rows        []string
	Columns     []string
	Filters     []string
	Values      []PivotValue
	Style       string
}

// PivotValue is an aggregated data field
type PivotValue struct {
	Field    string
	Function string
	Name     string
}

var aggregations = map[string]string{
	"sum":     "Sum",
	"count":   "Count",
	"average": "Average",
	"avg":     "Average",
	"min":     "Min",
	"max":     "Max",
	"product": "Product",
	"stddev":  "StdDev",
	"var":     "Var",
}

// AddPivotTable creates a pivot table, adding the target sheet if needed
func AddPivotTable(f *excelize.File, spec PivotSpec) error {
	if err := RequireSheet(f, spec.SourceSheet); err != nil {
		return err
	}
	src, err := ParseRange(spec.SourceRange)
	if err != nil {
		return err
	}
	if len(spec.Rows) == 0 || len(spec.Values) == 0 {
		return fmt.Errorf("a pivot table needs at least one row field and one value field")
	}
	if spec.TargetSheet == "" {
		spec.TargetSheet = spec.SourceSheet
	}
	if spec.TargetCell == "" {
		spec.TargetCell = "A3"
	}
	if _, err := EnsureSheet(f, spec.TargetSheet); err != nil {
		return err
	}

	col, row, err := excelize.CellNameToCoordinates(spec.TargetCell)
	if err != nil {
		return fmt.Errorf("invalid target cell %q: %w", spec.TargetCell, err)
	}
	target := Range{StartCol: col, StartRow: row, EndCol: col + 1, EndRow: row + 1}

	fields := func(names []string) []excelize.PivotTableField {
		var out []excelize.PivotTableField
		for _, n := range names {
			out = append(out, excelize.PivotTableField{Data: n, DefaultSubtotal: true})
		}
		return out
	}
	var data []excelize.PivotTableField
	for _, v := range spec.Values {
		fn, ok := aggregations[strings.ToLower(v.Function)]
		if !ok {
			fn = "Sum"
		}
		data = append(data, excelize.PivotTableField{Data: v.Field, Name: v.Name, Subtotal: fn})
	}

	style := spec.Style
	if style == "" {
		style = "PivotStyleMedium9"
	}
	opts := &excelize.PivotTableOptions{
		DataRange:           fmt.Sprintf("%s!%s", QuoteSheet(spec.SourceSheet), src),
		PivotTableRange:     fmt.Sprintf("%s!%s", QuoteSheet(spec.TargetSheet), target),
		Rows:                fields(spec.Rows),
		Columns:             fields(spec.Columns),
		Filter:              fields(spec.Filters),
		Data:                data,
		RowGrandTotals:      true,
		ColGrandTotals:      true,
		ShowDrill:           true,
		ShowRowHeaders:      true,
		ShowColHeaders:      true,
		PivotTableStyleName: style,
	}
	if err := f.AddPivotTable(opts); err != nil {
		return fmt.Errorf("failed to create pivot table: %w", err)
	}
	return nil
}

// ValidationSpec describes a data validation rule
type ValidationSpec struct {
	Range        string
	Type         string
	Operator     string
	Values       []string
	Min          string
	Max          string
	InputTitle   string
	InputMessage string
	ErrorTitle   string
	ErrorMessage string
	AllowBlank   bool
}

var validationTypes = map[string]excelize.DataValidationType{
	"whole":      excelize.DataValidationTypeWhole,
	"decimal":    excelize.DataValidationTypeDecimal,
	"date":       excelize.DataValidationTypeDate,
	"time":       excelize.DataValidationTypeTime,
	"textLength": excelize.DataValidationTypeTextLength,
}

var validationOperators = map[string]excelize.DataValidationOperator{
	"between":            excelize.DataValidationOperatorBetween,
	"notBetween":         excelize.DataValidationOperatorNotBetween,
	"equal":              excelize.DataValidationOperatorEqual,
	"notEqual":           excelize.DataValidationOperatorNotEqual,
	"greaterThan":        excelize.DataValidationOperatorGreaterThan,
	"greaterThanOrEqual": excelize.DataValidationOperatorGreaterThanOrEqual,
	"lessThan":           excelize.DataValidationOperatorLessThan,
	"lessThanOrEqual":    excelize.DataValidationOperatorLessThanOrEqual,
}

// AddValidation attaches a validation rule to a range. Type "list" uses
// Values as the allowed entries; the numeric types use Min and Max.
func AddValidation(f *excelize.File, sheet string, spec ValidationSpec) error {
	rng, err := ParseRange(spec.Range)
	if err != nil {
		return err
	}
	dv := excelize.NewDataValidation(spec.AllowBlank)
	dv.Sqref = rng.String()

	switch spec.Type {
	case "list":
		if len(spec.Values) == 0 {
			return fmt.Errorf("list validation needs at least one value")
		}
		if err := dv.SetDropList(spec.Values); err != nil {
			return fmt.Errorf("invalid list values: %w", err)
		}
	case "custom":
		if spec.Min == "" {
			return fmt.Errorf("custom validation needs a formula in min")
		}
		dv.Type = "custom"
		dv.Formula1 = strings.TrimPrefix(spec.Min, "=")
	default:
		kind, ok := validationTypes[spec.Type]
		if !ok {
			return fmt.Errorf("unknown validation type %q", spec.Type)
		}
		op := excelize.DataValidationOperatorBetween
		if spec.Operator != "" {
			if op, ok = validationOperators[spec.Operator]; !ok {
				return fmt.Errorf("unknown validation operator %q", spec.Operator)
			}
		}
		if err := dv.SetRange(numberOrText(spec.Min), numberOrText(spec.Max), kind, op); err != nil {
			return fmt.Errorf("invalid validation bounds: %w", err)
		}
	}

	if spec.InputMessage != "" {
		dv.SetInput(spec.InputTitle, spec.InputMessage)
	}
	if spec.ErrorMessage != "" {
		dv.SetError(excelize.DataValidationErrorStyleStop, spec.ErrorTitle, spec.ErrorMessage)
	}
	return f.AddDataValidation(sheet, dv)
}

func numberOrText(s string) any {
	if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return n
	}
	return s
}

// Annotate attaches a cell comment
func Annotate(f *excelize.File, sheet, cell, author, text string) error {
	if author == "" {
		author = "mcp-office"
	}
	if err := f.AddComment(sheet, excelize.Comment{Cell: cell, Author: author, Text: text}); err != nil {
		return fmt.Errorf("failed to add comment to %s: %w", cell, err)
	}
	return nil
}

// AddHyperlink links a cell, setting its text and a hyperlink style. Targets
// starting with "#" or containing "!" are internal locations.
func AddHyperlink(f *excelize.File, sheet, cell, target, display, tooltip string) error {
	kind := "External"
	location := target
	if strings.HasPrefix(target, "#") || (!strings.Contains(target, "://") && strings.Contains(target, "!")) {
		kind = "Location"
		location = strings.TrimPrefix(target, "#")
	}
	if display == "" {
		display = target
	}
	opts := []excelize.HyperlinkOpts{{Display: &display}}
	if tooltip != "" {
		opts[0].Tooltip = &tooltip
	}
	if err := f.SetCellHyperLink(sheet, cell, location, kind, opts...); err != nil {
		return fmt.Errorf("failed to link %s: %w", cell, err)
	}
	if err := f.SetCellStr(sheet, cell, display); err != nil {
		return err
	}
	_, err := ApplyStyle(f, sheet, cell, StyleSpec{FontColor: "0563C1", Underline: true})
	return err
}

// InsertImage places an image with its top left corner at cell
func InsertImage(f *excelize.File, sheet, cell, ext string, data []byte, scale float64, altText string) error {
	if scale <= 0 {
		scale = 1
	}
	ext = "." + strings.TrimPrefix(strings.ToLower(ext), ".")
	if err := f.AddPictureFromBytes(sheet, cell, &excelize.Picture{
		Extension: ext,
		File:      data,
		Format: &excelize.GraphicOptions{
			AltText:         altText,
			ScaleX:          scale,
			ScaleY:          scale,
			LockAspectRatio: true,
			Positioning:     "oneCell",
		},
	}); err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}
	return nil
}

// AddSparkline draws one sparkline per source row into the location cells
func AddSparkline(f *excelize.File, sheet string, locations, ranges []string, kind string, markers bool) error {
	if len(locations) != len(ranges) {
		return fmt.Errorf("got %d locations for %d data ranges", len(locations), len(ranges))
	}
	switch kind {
	case "", "line", "column", "win_loss":
	default:
		return fmt.Errorf("unknown sparkline type %q", kind)
	}
	qualified := make([]string, len(ranges))
	for i, r := range ranges {
		qualified[i] = r
		if !strings.Contains(r, "!") {
			qualified[i] = QuoteSheet(sheet) + "!" + r
		}
	}
	if kind == "" {
		kind = "line"
	}
	return f.AddSparkline(sheet, &excelize.SparklineOptions{
		Location: locations,
		Range:    qualified,
		Type:     kind,
		Markers:  markers,
	})
}

// PageSetup is the printable layout of a sheet
type PageSetup struct {
	Orientation string
	PaperSize   string
	FitToWidth  int
	FitToHeight int
	// Margins in inches; zero keeps the current value
	MarginTop, MarginBottom, MarginLeft, MarginRight float64
}

var paperSizes = map[string]int{
	"letter": 1,
	"legal":  5,
	"a3":     8,
	"a4":     9,
	"a5":     11,
}

// SetPageSetup applies orientation, paper size, scaling and margins
func SetPageSetup(f *excelize.File, sheet string, setup PageSetup) error {
	layout := &excelize.PageLayoutOptions{}
	if setup.Orientation != "" {
		o := strings.ToLower(setup.Orientation)
		if o != "portrait" && o != "landscape" {
			return fmt.Errorf("orientation must be portrait or landscape")
		}
		layout.Orientation = &o
	}
	if setup.PaperSize != "" {
		size, ok := paperSizes[strings.ToLower(setup.PaperSize)]
		if !ok {
			return fmt.Errorf("unknown paper size %q", setup.PaperSize)
		}
		layout.Size = &size
	}
	if setup.FitToWidth > 0 {
		layout.FitToWidth = &setup.FitToWidth
	}
	if setup.FitToHeight > 0 {
		layout.FitToHeight = &setup.FitToHeight
	}
	if err := f.SetPageLayout(sheet, layout); err != nil {
		return err
	}

	margins := &excelize.PageLayoutMarginsOptions{}
	set := func(dst **float64, v float64) {
		if v > 0 {
			*dst = &v
		}
	}
	set(&margins.Top, setup.MarginTop)
	set(&margins.Bottom, setup.MarginBottom)
	set(&margins.Left, setup.MarginLeft)
	set(&margins.Right, setup.MarginRight)
	return f.SetPageMargins(sheet, margins)
}

// HeaderFooter sets the printed header and footer. Each part may use Excel's
// codes such as &P (page) and &N (page count); plain text is centred.
func HeaderFooter(f *excelize.File, sheet, header, footer string) error {
	centre := func(s string) string {
		if s == "" || strings.HasPrefix(s, "&L") || strings.HasPrefix(s, "&C") || strings.HasPrefix(s, "&R") {
			return s
		}
		return "&C" + s
	}
	return f.SetHeaderFooter(sheet, &excelize.HeaderFooterOptions{
		OddHeader: centre(header),
		OddFooter: centre(footer),
	})
}

// Protect locks a sheet, optionally with a password
func Protect(f *excelize.File, sheet, password string, allowFormatting, allowSorting bool) error {
	opts := &excelize.SheetProtectionOptions{
		Password:            password,
		SelectLockedCells:   true,
		SelectUnlockedCells: true,
		FormatCells:         allowFormatting,
		FormatColumns:       allowFormatting,
		FormatRows:          allowFormatting,
		Sort:                allowSorting,
		AutoFilter:          allowSorting,
	}
	if password != "" {
		opts.AlgorithmName = "SHA-512"
	}
	return f.ProtectSheet(sheet, opts)
}

// NotesSheet writes a documentation sheet: a bold title followed by label/value rows
func NotesSheet(f *excelize.File, sheet, title string, rows [][]any) error {
	if _, err := EnsureSheet(f, sheet); err != nil {
		return err
	}
	used, ok, err := UsedRange(f, sheet)
	if err != nil {
		return err
	}
	start := 1
	if ok {
		start = used.EndRow + 2
	}
	titleCell, _ := excelize.CoordinatesToCellName(1, start)
	if err := f.SetCellStr(sheet, titleCell, title); err != nil {
		return err
	}
	if _, err := ApplyStyle(f, sheet, titleCell, StyleSpec{Bold: true, FontSize: 13}); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, start+1)
	if _, err := WriteRows(f, sheet, first, rows); err != nil {
		return err
	}
	_, err = AutoFit(f, sheet, nil)
	return err
}
