package xlsx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var cellReferencePattern = regexp.MustCompile(`^\$?[A-Za-z]{1,3}\$?[0-9]+$`)

// Range is a rectangular block of cells, 1-based and inclusive
type Range struct {
	StartCol, StartRow int
	EndCol, EndRow     int
}

// ParseRange parses "A1:C10" or a single cell reference such as "B2"
func ParseRange(ref string) (Range, error) {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "$", "")
	if ref == "" {
		return Range{}, &RangeError{Range: ref, Cause: fmt.Errorf("range cannot be empty")}
	}
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		ref = ref[i+1:]
	}

	start, end, isRange := strings.Cut(ref, ":")
	if !isRange {
		end = start
	}
	if !cellReferencePattern.MatchString(start) || !cellReferencePattern.MatchString(end) {
		return Range{}, &RangeError{Range: ref, Cause: fmt.Errorf("expected a reference such as A1:B10")}
	}

	sc, sr, err := excelize.CellNameToCoordinates(strings.ToUpper(start))
	if err != nil {
		return Range{}, &RangeError{Range: ref, Cause: err}
	}
	ec, er, err := excelize.CellNameToCoordinates(strings.ToUpper(end))
	if err != nil {
		return Range{}, &RangeError{Range: ref, Cause: err}
	}
	if sc > ec {
		sc, ec = ec, sc
	}
	if sr > er {
		sr, er = er, sr
	}
	return Range{StartCol: sc, StartRow: sr, EndCol: ec, EndRow: er}, nil
}

// Rows is the number of rows covered
func (r Range) Rows() int { return r.EndRow - r.StartRow + 1 }

// Cols is the number of columns covered
func (r Range) Cols() int { return r.EndCol - r.StartCol + 1 }

// Cell returns the name of the cell at a 0-based offset from the top left
func (r Range) Cell(colOffset, rowOffset int) string {
	name, _ := excelize.CoordinatesToCellName(r.StartCol+colOffset, r.StartRow+rowOffset)
	return name
}

// String renders the range in A1:B2 form
func (r Range) String() string {
	return r.Cell(0, 0) + ":" + r.Cell(r.Cols()-1, r.Rows()-1)
}

// Absolute renders the range as an absolute reference on a sheet, e.g. 'Data'!$A$1:$B$2
func (r Range) Absolute(sheet string) string {
	abs := func(col, row int) string {
		name, _ := excelize.ColumnNumberToName(col)
		return fmt.Sprintf("$%s$%d", name, row)
	}
	return fmt.Sprintf("%s!%s:%s", QuoteSheet(sheet), abs(r.StartCol, r.StartRow), abs(r.EndCol, r.EndRow))
}

// CellAbsolute renders one cell as an absolute reference on a sheet
func CellAbsolute(sheet string, col, row int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return fmt.Sprintf("%s!$%s$%d", QuoteSheet(sheet), name, row)
}

// QuoteSheet quotes a sheet name for use in formulas when it needs it
func QuoteSheet(sheet string) string {
	if strings.ContainsAny(sheet, " -'()&,;+") {
		return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet
}

// ColumnIndex accepts a column letter ("C") or a 1-based number ("3")
func ColumnIndex(col string) (int, error) {
	col = strings.TrimSpace(col)
	if n, err := strconv.Atoi(col); err == nil {
		if n < 1 || n > MaxColumns {
			return 0, fmt.Errorf("column %d is out of range", n)
		}
		return n, nil
	}
	n, err := excelize.ColumnNameToNumber(strings.ToUpper(col))
	if err != nil {
		return 0, fmt.Errorf("invalid column %q: %w", col, err)
	}
	return n, nil
}

// WriteRows writes a block of values starting at cell. Strings starting with
// "=" become formulas. It returns the number of cells written.
func WriteRows(f *excelize.File, sheet, cell string, rows [][]any) (int, error) {
	col, row, err := excelize.CellNameToCoordinates(strings.ToUpper(cell))
	if err != nil {
		return 0, fmt.Errorf("invalid start cell %q: %w", cell, err)
	}
	if row+len(rows)-1 > MaxRows {
		return 0, fmt.Errorf("data does not fit: %d rows from row %d exceeds the sheet limit", len(rows), row)
	}

	written := 0
	for r, values := range rows {
		if col+len(values)-1 > MaxColumns {
			return written, fmt.Errorf("row %d does not fit within the sheet's columns", r+1)
		}
		for c, value := range values {
			name, _ := excelize.CoordinatesToCellName(col+c, row+r)
			if err := SetValue(f, sheet, name, value); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

// SetValue writes one cell, recognising formulas
func SetValue(f *excelize.File, sheet, cell string, value any) error {
	if s, ok := value.(string); ok {
		if len(s) > 1 && strings.HasPrefix(s, "=") {
			if err := f.SetCellFormula(sheet, cell, s[1:]); err != nil {
				return fmt.Errorf("failed to set formula in %s: %w", cell, err)
			}
			return nil
		}
		if len(s) > MaxCellValueLength {
			return fmt.Errorf("value for %s exceeds %d characters", cell, MaxCellValueLength)
		}
	}
	if value == nil {
		value = ""
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", cell, err)
	}
	return nil
}

// Value reads a cell back as a typed value suitable for SetValue: formulas
// come back with their "=", numbers as float64, booleans as bool.
func Value(f *excelize.File, sheet, cell string) (any, error) {
	if formula, err := f.GetCellFormula(sheet, cell); err == nil && formula != "" {
		return "=" + formula, nil
	}
	raw, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	kind, err := f.GetCellType(sheet, cell)
	if err != nil {
		return raw, nil
	}
	switch kind {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return raw, nil
	}
	if raw == "" {
		return nil, nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n, nil
	}
	return raw, nil
}

// ReadRange returns the formatted values in a range. An empty ref reads the
// sheet's used area.
func ReadRange(f *excelize.File, sheet, ref string) ([][]string, error) {
	if ref == "" {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
		}
		return rows, nil
	}

	rng, err := ParseRange(ref)
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, rng.Rows())
	for r := 0; r < rng.Rows(); r++ {
		row := make([]string, rng.Cols())
		for c := 0; c < rng.Cols(); c++ {
			v, err := f.GetCellValue(sheet, rng.Cell(c, r))
			if err != nil {
				return nil, err
			}
			row[c] = v
		}
		out = append(out, row)
	}
	return out, nil
}

// ReadValues returns the typed values of a range, see Value
func ReadValues(f *excelize.File, sheet string, rng Range) ([][]any, error) {
	out := make([][]any, rng.Rows())
	for r := range out {
		out[r] = make([]any, rng.Cols())
		for c := range out[r] {
			v, err := Value(f, sheet, rng.Cell(c, r))
			if err != nil {
				return nil, err
			}
			out[r][c] = v
		}
	}
	return out, nil
}

// UsedRange returns the extent of the sheet's data, or ok=false for an empty sheet
func UsedRange(f *excelize.File, sheet string) (Range, bool, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Range{}, false, err
	}
	maxCols := 0
	for _, row := range rows {
		maxCols = max(maxCols, len(row))
	}
	if len(rows) == 0 || maxCols == 0 {
		return Range{}, false, nil
	}
	return Range{StartCol: 1, StartRow: 1, EndCol: maxCols, EndRow: len(rows)}, true, nil
}

// PadRows makes every row as long as the longest one
func PadRows(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}
	return rows
}
