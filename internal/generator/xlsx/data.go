package xlsx

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SortKey orders rows by one column of a range
type SortKey struct {
	// Column is 1-based within the sheet
	Column     int
	Descending bool
}

// SortRange sorts the rows of a range in place. With hasHeader the first row stays put.
func SortRange(f *excelize.File, sheet string, rng Range, keys []SortKey, hasHeader bool) error {
	if len(keys) == 0 {
		keys = []SortKey{{Column: rng.StartCol}}
	}
	for _, k := range keys {
		if k.Column < rng.StartCol || k.Column > rng.EndCol {
			name, _ := excelize.ColumnNumberToName(k.Column)
			return fmt.Errorf("sort column %s is outside %s", name, rng)
		}
	}

	body := rng
	if hasHeader {
		body.StartRow++
	}
	if body.Rows() < 2 {
		return nil
	}

	rows, err := ReadValues(f, sheet, body)
	if err != nil {
		return err
	}
	slices.SortStableFunc(rows, func(a, b []any) int {
		for _, k := range keys {
			idx := k.Column - rng.StartCol
			c := compareValues(a[idx], b[idx])
			if k.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return writeBlock(f, sheet, body, rows)
}

// compareValues orders numbers before text and blanks last
func compareValues(a, b any) int {
	rank := func(v any) int {
		switch v.(type) {
		case nil:
			return 3
		case float64, bool:
			return 0
		}
		return 1
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}
	af, aok := toNumber(a)
	bf, bok := toNumber(b)
	if aok && bok {
		return cmp.Compare(af, bf)
	}
	return strings.Compare(strings.ToLower(fmt.Sprint(a)), strings.ToLower(fmt.Sprint(b)))
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// RemoveDuplicates drops repeated rows within a range, comparing the given
// 1-based sheet columns (all columns when empty). Remaining rows move up and
// the freed rows at the bottom are cleared. It returns the number removed.
func RemoveDuplicates(f *excelize.File, sheet string, rng Range, columns []int, hasHeader bool) (int, error) {
	body := rng
	if hasHeader {
		body.StartRow++
	}
	if body.Rows() < 2 {
		return 0, nil
	}
	rows, err := ReadValues(f, sheet, body)
	if err != nil {
		return 0, err
	}

	seen := map[string]bool{}
	kept := make([][]any, 0, len(rows))
	for _, row := range rows {
		var key strings.Builder
		for i, v := range row {
			if len(columns) > 0 && !slices.Contains(columns, body.StartCol+i) {
				continue
			}
			fmt.Fprintf(&key, "%v\x1f", v)
		}
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		kept = append(kept, row)
	}

	removed := len(rows) - len(kept)
	for len(kept) < len(rows) {
		kept = append(kept, make([]any, body.Cols()))
	}
	return removed, writeBlock(f, sheet, body, kept)
}

// Transpose copies a range to target with rows and columns swapped
func Transpose(f *excelize.File, sheet string, rng Range, targetSheet, targetCell string) (Range, error) {
	rows, err := ReadValues(f, sheet, rng)
	if err != nil {
		return Range{}, err
	}
	col, row, err := excelize.CellNameToCoordinates(strings.ToUpper(targetCell))
	if err != nil {
		return Range{}, fmt.Errorf("invalid target cell %q: %w", targetCell, err)
	}
	out := Range{StartCol: col, StartRow: row, EndCol: col + rng.Rows() - 1, EndRow: row + rng.Cols() - 1}
	if out.EndCol > MaxColumns || out.EndRow > MaxRows {
		return Range{}, fmt.Errorf("transposed range does not fit at %s", targetCell)
	}

	transposed := make([][]any, rng.Cols())
	for c := range transposed {
		transposed[c] = make([]any, rng.Rows())
		for r := range rows {
			transposed[c][r] = rows[r][c]
		}
	}
	return out, writeBlock(f, targetSheet, out, transposed)
}

func writeBlock(f *excelize.File, sheet string, rng Range, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			cell := rng.Cell(c, r)
			if v == nil {
				if err := f.SetCellValue(sheet, cell, nil); err != nil {
					return err
				}
				continue
			}
			if err := SetValue(f, sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// FindOptions controls FindReplace
type FindOptions struct {
	MatchCase bool
	WholeCell bool
	Regex     bool
	// Ref limits the search to a range; empty searches the used area
	Ref string
}

// FindReplace replaces text in the string cells of a sheet, leaving formulas
// and numbers alone. It returns the number of cells changed.
func FindReplace(f *excelize.File, sheet, find, replace string, opts FindOptions) (int, error) {
	if find == "" {
		return 0, fmt.Errorf("search text cannot be empty")
	}

	expr := find
	if !opts.Regex {
		expr = regexp.QuoteMeta(find)
	}
	if opts.WholeCell {
		expr = "^(?:" + expr + ")$"
	}
	if !opts.MatchCase {
		expr = "(?i)" + expr
	}
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid search pattern: %w", err)
	}

	var rng Range
	if opts.Ref != "" {
		if rng, err = ParseRange(opts.Ref); err != nil {
			return 0, err
		}
	} else {
		used, ok, err := UsedRange(f, sheet)
		if err != nil || !ok {
			return 0, err
		}
		rng = used
	}

	changed := 0
	for r := 0; r < rng.Rows(); r++ {
		for c := 0; c < rng.Cols(); c++ {
			cell := rng.Cell(c, r)
			v, err := Value(f, sheet, cell)
			if err != nil {
				return changed, err
			}
			s, ok := v.(string)
			if !ok || strings.HasPrefix(s, "=") || !pattern.MatchString(s) {
				continue
			}
			replacement := replace
			if !opts.Regex {
				replacement = strings.ReplaceAll(replace, "$", "$$")
			}
			if err := f.SetCellStr(sheet, cell, pattern.ReplaceAllString(s, replacement)); err != nil {
				return changed, err
			}
			changed++
		}
	}
	return changed, nil
}

// Stats are descriptive statistics of the numeric cells of a range
type Stats struct {
	Count    int     `json:"count"`
	Sum      float64 `json:"sum"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	StdDev   float64 `json:"stdDev"`
	Variance float64 `json:"variance"`
}

// Statistics computes Stats over the numeric values in a range. Formulas are
// evaluated first.
func Statistics(f *excelize.File, sheet string, rng Range) (Stats, error) {
	var values []float64
	for r := 0; r < rng.Rows(); r++ {
		for c := 0; c < rng.Cols(); c++ {
			cell := rng.Cell(c, r)
			v, err := Value(f, sheet, cell)
			if err != nil {
				return Stats{}, err
			}
			if s, ok := v.(string); ok && strings.HasPrefix(s, "=") {
				calc, err := f.CalcCellValue(sheet, cell)
				if err != nil {
					continue
				}
				v = calc
			}
			switch n := v.(type) {
			case float64:
				values = append(values, n)
			case string:
				if x, err := strconv.ParseFloat(n, 64); err == nil {
					values = append(values, x)
				}
			}
		}
	}
	return Describe(values), nil
}

// Describe computes Stats for a sample. Variance is the sample variance.
func Describe(values []float64) Stats {
	s := Stats{Count: len(values)}
	if s.Count == 0 {
		return s
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	s.Min, s.Max = sorted[0], sorted[len(sorted)-1]
	for _, v := range sorted {
		s.Sum += v
	}
	s.Mean = s.Sum / float64(s.Count)
	if mid := s.Count / 2; s.Count%2 == 0 {
		s.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		s.Median = sorted[mid]
	}
	if s.Count > 1 {
		for _, v := range sorted {
			s.Variance += (v - s.Mean) * (v - s.Mean)
		}
		s.Variance /= float64(s.Count - 1)
		s.StdDev = math.Sqrt(s.Variance)
	}
	return s
}
