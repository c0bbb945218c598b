package xlsx

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// StyleSpec is the subset of cell formatting the tools expose
type StyleSpec struct {
	Bold            bool
	Italic          bool
	Underline       bool
	Strike          bool
	FontSize        float64
	FontColor       string
	FontFamily      string
	FillColor       string
	NumberFormat    string
	HorizontalAlign string
	VerticalAlign   string
	WrapText        bool
	Border          string
	BorderColor     string
	Locked          *bool
}

// Empty reports whether the spec would change nothing
func (s StyleSpec) Empty() bool {
	return s == StyleSpec{}
}

// Style converts the spec into an excelize style
func (s StyleSpec) Style() *excelize.Style {
	style := &excelize.Style{}

	if s.Bold || s.Italic || s.Underline || s.Strike || s.FontSize > 0 || s.FontColor != "" || s.FontFamily != "" {
		style.Font = &excelize.Font{
			Bold:   s.Bold,
			Italic: s.Italic,
			Strike: s.Strike,
			Size:   s.FontSize,
			Color:  NormalizeColor(s.FontColor),
			Family: s.FontFamily,
		}
		if s.Underline {
			style.Font.Underline = "single"
		}
	}
	if s.FillColor != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{NormalizeColor(s.FillColor)}}
	}
	if s.Border != "" && s.Border != "none" {
		color := NormalizeColor(s.BorderColor)
		if color == "" {
			color = "000000"
		}
		for _, side := range []string{"left", "top", "right", "bottom"} {
			style.Border = append(style.Border, excelize.Border{Type: side, Color: color, Style: borderStyle(s.Border)})
		}
	}
	if s.HorizontalAlign != "" || s.VerticalAlign != "" || s.WrapText {
		style.Alignment = &excelize.Alignment{
			Horizontal: s.HorizontalAlign,
			Vertical:   s.VerticalAlign,
			WrapText:   s.WrapText,
		}
	}
	if s.NumberFormat != "" {
		format := s.NumberFormat
		style.CustomNumFmt = &format
	}
	if s.Locked != nil {
		style.Protection = &excelize.Protection{Locked: *s.Locked}
	}
	return style
}

// ApplyStyle formats every cell in ref, merging with each cell's existing
// style rather than replacing it. It returns the number of cells formatted.
func ApplyStyle(f *excelize.File, sheet, ref string, spec StyleSpec) (int, error) {
	rng, err := ParseRange(ref)
	if err != nil {
		return 0, err
	}
	overlay := spec.Style()

	// cells sharing a style share the merged result
	merged := map[int]int{}
	formatted := 0
	for r := 0; r < rng.Rows(); r++ {
		for c := 0; c < rng.Cols(); c++ {
			cell := rng.Cell(c, r)
			existingID, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				return formatted, err
			}
			id, ok := merged[existingID]
			if !ok {
				existing := &excelize.Style{}
				if existingID > 0 {
					if s, err := f.GetStyle(existingID); err == nil && s != nil {
						existing = s
					}
				}
				id, err = f.NewStyle(mergeStyles(existing, overlay))
				if err != nil {
					return formatted, fmt.Errorf("failed to create style: %w", err)
				}
				merged[existingID] = id
			}
			if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
				return formatted, err
			}
			formatted++
		}
	}
	return formatted, nil
}

func mergeStyles(existing, overlay *excelize.Style) *excelize.Style {
	merged := *existing

	if overlay.Font != nil {
		font := excelize.Font{}
		if existing.Font != nil {
			font = *existing.Font
		}
		font.Bold = font.Bold || overlay.Font.Bold
		font.Italic = font.Italic || overlay.Font.Italic
		font.Strike = font.Strike || overlay.Font.Strike
		if overlay.Font.Underline != "" {
			font.Underline = overlay.Font.Underline
		}
		if overlay.Font.Family != "" {
			font.Family = overlay.Font.Family
		}
		if overlay.Font.Size > 0 {
			font.Size = overlay.Font.Size
		}
		if overlay.Font.Color != "" {
			font.Color = overlay.Font.Color
		}
		merged.Font = &font
	}
	if overlay.Fill.Type != "" {
		merged.Fill = overlay.Fill
	}
	if len(overlay.Border) > 0 {
		sides := map[string]excelize.Border{}
		for _, b := range existing.Border {
			sides[b.Type] = b
		}
		for _, b := range overlay.Border {
			sides[b.Type] = b
		}
		merged.Border = merged.Border[:0:0]
		for _, side := range []string{"left", "top", "right", "bottom", "diagonalDown", "diagonalUp"} {
			if b, ok := sides[side]; ok {
				merged.Border = append(merged.Border, b)
			}
		}
	}
	if overlay.Alignment != nil {
		align := excelize.Alignment{}
		if existing.Alignment != nil {
			align = *existing.Alignment
		}
		if overlay.Alignment.Horizontal != "" {
			align.Horizontal = overlay.Alignment.Horizontal
		}
		if overlay.Alignment.Vertical != "" {
			align.Vertical = overlay.Alignment.Vertical
		}
		align.WrapText = align.WrapText || overlay.Alignment.WrapText
		merged.Alignment = &align
	}
	if overlay.CustomNumFmt != nil {
		merged.CustomNumFmt = overlay.CustomNumFmt
		merged.NumFmt = 0
	}
	if overlay.Protection != nil {
		merged.Protection = overlay.Protection
	}
	return &merged
}

func borderStyle(name string) int {
	styles := map[string]int{
		"thin":             1,
		"medium":           2,
		"dashed":           3,
		"dotted":           4,
		"thick":            5,
		"double":           6,
		"hair":             7,
		"mediumDashed":     8,
		"dashDot":          9,
		"mediumDashDot":    10,
		"dashDotDot":       11,
		"mediumDashDotDot": 12,
		"slantDashDot":     13,
	}
	if s, ok := styles[name]; ok {
		return s
	}
	return 1
}

// BorderStyles lists the accepted border style names
func BorderStyles() []string {
	return []string{"none", "thin", "medium", "dashed", "dotted", "thick", "double", "hair"}
}

// NormalizeColor strips a leading "#" and upper-cases a hex colour
func NormalizeColor(color string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(color), "#"))
}

// AutoFit sizes columns to their longest value. Nil columns means every used column.
func AutoFit(f *excelize.File, sheet string, columns []int) (int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, err
	}

	widths := map[int]float64{}
	for _, row := range rows {
		for i, value := range row {
			col := i + 1
			if columns != nil && !slices.Contains(columns, col) {
				continue
			}
			longest := 0
			for _, line := range strings.Split(value, "\n") {
				longest = max(longest, utf8.RuneCountInString(line))
			}
			widths[col] = max(widths[col], min(max(float64(longest)+2, 8), 60))
		}
	}

	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return 0, err
		}
	}
	return len(widths), nil
}

// ConditionalRule describes one conditional format
type ConditionalRule struct {
	// Type is one of cellValue, colorScale, dataBar, duplicate, unique, top10, formula
	Type     string
	Operator string
	Value    string
	Value2   string
	Formula  string
	Style    StyleSpec
	MinColor string
	MidColor string
	MaxColor string
	BarColor string
	Rank     int
}

var criteria = map[string]string{
	"greaterThan":        ">",
	"greaterThanOrEqual": ">=",
	"lessThan":           "<",
	"lessThanOrEqual":    "<=",
	"equal":              "==",
	"notEqual":           "!=",
	"between":            "between",
	"notBetween":         "not between",
}

// ConditionalOperators lists the comparison operators of cellValue rules
func ConditionalOperators() []string {
	ops := make([]string, 0, len(criteria))
	for op := range criteria {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

// AddConditionalFormat applies a conditional formatting rule to a range
func AddConditionalFormat(f *excelize.File, sheet, ref string, rule ConditionalRule) error {
	rng, err := ParseRange(ref)
	if err != nil {
		return err
	}

	opts := excelize.ConditionalFormatOptions{}
	needsStyle := true
	switch rule.Type {
	case "cellValue", "cell":
		op, ok := criteria[rule.Operator]
		if !ok {
			return fmt.Errorf("unknown operator %q", rule.Operator)
		}
		opts.Type = "cell"
		opts.Criteria = op
		if op == "between" || op == "not between" {
			opts.MinValue, opts.MaxValue = rule.Value, rule.Value2
		} else {
			opts.Value = rule.Value
		}
	case "colorScale":
		needsStyle = false
		opts.Type = "2_color_scale"
		opts.Criteria = "="
		opts.MinType, opts.MaxType = "min", "max"
		opts.MinColor = "#" + defaultColor(rule.MinColor, "F8696B")
		opts.MaxColor = "#" + defaultColor(rule.MaxColor, "63BE7B")
		if rule.MidColor != "" {
			opts.Type = "3_color_scale"
			opts.MidType, opts.MidValue = "percentile", "50"
			opts.MidColor = "#" + NormalizeColor(rule.MidColor)
		}
	case "dataBar":
		needsStyle = false
		opts.Type = "data_bar"
		opts.Criteria = "="
		opts.MinType, opts.MaxType = "min", "max"
		opts.BarColor = "#" + defaultColor(rule.BarColor, "638EC6")
	case "duplicate", "unique":
		opts.Type = rule.Type
		opts.Criteria = "="
	case "top10":
		opts.Type = "top"
		opts.Criteria = "="
		opts.Value = fmt.Sprint(max(rule.Rank, 1))
	case "formula":
		if rule.Formula == "" {
			return fmt.Errorf("formula rules need a formula")
		}
		opts.Type = "formula"
		opts.Criteria = strings.TrimPrefix(rule.Formula, "=")
	default:
		return fmt.Errorf("unknown conditional format type %q", rule.Type)
	}

	if needsStyle {
		spec := rule.Style
		if spec.Empty() {
			spec = StyleSpec{FontColor: "9C0006", FillColor: "FFC7CE"}
		}
		id, err := f.NewConditionalStyle(spec.Style())
		if err != nil {
			return fmt.Errorf("failed to create conditional style: %w", err)
		}
		opts.Format = &id
	}

	return f.SetConditionalFormat(sheet, rng.String(), []excelize.ConditionalFormatOptions{opts})
}

func defaultColor(color, def string) string {
	if c := NormalizeColor(color); c != "" {
		return c
	}
	return def
}
