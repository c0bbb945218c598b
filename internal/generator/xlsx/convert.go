package xlsx

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FromCSV builds a workbook from delimited text. Numeric fields become numbers.
func (g *Generator) FromCSV(data []byte, sheet string, delimiter rune, hasHeader bool) ([]byte, int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	if delimiter != 0 {
		r.Comma = delimiter
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]any
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("invalid CSV: %w", err)
		}
		row := make([]any, len(record))
		for i, field := range record {
			row[i] = inferValue(field)
		}
		rows = append(rows, row)
	}
	if sheet == "" {
		sheet = "Sheet1"
	}

	spec := Sheet{Name: sheet, Rows: rows}
	if hasHeader && len(rows) > 0 {
		for _, v := range rows[0] {
			spec.Headers = append(spec.Headers, fmt.Sprint(v))
		}
		spec.Rows = rows[1:]
	}
	out, err := g.Create([]Sheet{spec}, nil)
	return out, len(spec.Rows), err
}

// inferValue turns CSV text into a number or boolean when it is clearly one.
// Values with leading zeros stay text so identifiers survive.
func inferValue(field string) any {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return field
	}
	if strings.HasPrefix(field, "=") {
		// do not let CSV content inject formulas
		return "'" + field
	}
	if len(trimmed) > 1 && trimmed[0] == '0' && trimmed[1] != '.' {
		return field
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	return field
}

// ToCSV exports one sheet as delimited text using formatted cell values
func (g *Generator) ToCSV(existing []byte, sheet string, delimiter rune) ([]byte, string, int, error) {
	var out bytes.Buffer
	rowCount := 0
	err := g.Inspect(existing, func(f *excelize.File) error {
		name, err := SheetOrActive(f, sheet)
		if err != nil {
			return err
		}
		sheet = name
		rows, err := f.GetRows(name)
		if err != nil {
			return err
		}
		rows = PadRows(rows)
		w := csv.NewWriter(&out)
		if delimiter != 0 {
			w.Comma = delimiter
		}
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		rowCount = len(rows)
		return nil
	})
	return out.Bytes(), sheet, rowCount, err
}

// ToRecords exports one sheet as objects keyed by the header row, or as
// arrays when headers is false
func (g *Generator) ToRecords(existing []byte, sheet string, headers bool) (any, int, error) {
	var result any
	count := 0
	err := g.Inspect(existing, func(f *excelize.File) error {
		name, err := SheetOrActive(f, sheet)
		if err != nil {
			return err
		}
		used, ok, err := UsedRange(f, name)
		if err != nil {
			return err
		}
		if !ok {
			result = []any{}
			return nil
		}
		values, err := ReadValues(f, name, used)
		if err != nil {
			return err
		}
		for r, row := range values {
			for i, v := range row {
				if s, ok := v.(string); ok && strings.HasPrefix(s, "=") {
					if calc, err := f.CalcCellValue(name, used.Cell(i, r)); err == nil {
						row[i] = inferValue(calc)
					}
				}
			}
		}
		if !headers {
			result, count = values, len(values)
			return nil
		}

		keys := make([]string, len(values[0]))
		for i, v := range values[0] {
			keys[i] = fmt.Sprint(v)
			if v == nil || keys[i] == "" {
				keys[i] = fmt.Sprintf("column%d", i+1)
			}
		}
		records := make([]map[string]any, 0, len(values)-1)
		for _, row := range values[1:] {
			rec := make(map[string]any, len(keys))
			for i, k := range keys {
				rec[k] = row[i]
			}
			records = append(records, rec)
		}
		result, count = records, len(records)
		return nil
	})
	return result, count, err
}

// FromRecords builds a one-sheet workbook from JSON objects. Columns follow
// the order keys first appear in, unless columns is given.
func (g *Generator) FromRecords(records []map[string]any, sheet string, columns []string) ([]byte, error) {
	if len(columns) == 0 {
		seen := map[string]bool{}
		for _, rec := range records {
			keys := make([]string, 0, len(rec))
			for k := range rec {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				if !seen[k] {
					seen[k] = true
					columns = append(columns, k)
				}
			}
		}
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			switch v := rec[c].(type) {
			case map[string]any, []any:
				row[j] = fmt.Sprint(v)
			default:
				row[j] = v
			}
		}
		rows[i] = row
	}
	if sheet == "" {
		sheet = "Data"
	}
	return g.Create([]Sheet{{Name: sheet, Headers: columns, Rows: rows}}, nil)
}

// Merge copies the sheets of several workbooks into one. Values, formulas and
// column widths are copied; clashing sheet names get a numeric suffix.
func (g *Generator) Merge(sources [][]byte, labels []string) ([]byte, []string, error) {
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("no workbooks to merge")
	}

	const placeholder = "__merge__"
	var names []string
	out, err := g.Apply(nil, func(dst *excelize.File) error {
		if err := dst.SetSheetName("Sheet1", placeholder); err != nil {
			return err
		}
		for i, src := range sources {
			label := ""
			if i < len(labels) {
				label = labels[i]
			}
			if err := g.Inspect(src, func(f *excelize.File) error {
				for _, sheet := range f.GetSheetList() {
					name := uniqueSheetName(sheet, names)
					if err := copySheet(f, sheet, dst, name); err != nil {
						return fmt.Errorf("failed to copy %s from %s: %w", sheet, label, err)
					}
					names = append(names, name)
				}
				return nil
			}); err != nil {
				return err
			}
		}
		if len(names) == 0 {
			return fmt.Errorf("the workbooks contain no sheets")
		}
		if err := dst.DeleteSheet(placeholder); err != nil {
			return err
		}
		dst.SetActiveSheet(0)
		return nil
	})
	return out, names, err
}

func uniqueSheetName(name string, taken []string) string {
	candidate := name
	for i := 2; slices.Contains(taken, candidate); i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		base := []rune(name)
		if len(base)+len(suffix) > MaxSheetNameLength {
			base = base[:MaxSheetNameLength-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	return candidate
}

func copySheet(src *excelize.File, sheet string, dst *excelize.File, name string) error {
	if _, err := dst.NewSheet(name); err != nil {
		return err
	}
	used, ok, err := UsedRange(src, sheet)
	if err != nil || !ok {
		return err
	}
	values, err := ReadValues(src, sheet, used)
	if err != nil {
		return err
	}
	if err := writeBlock(dst, name, used, values); err != nil {
		return err
	}
	for col := used.StartCol; col <= used.EndCol; col++ {
		colName, _ := excelize.ColumnNumberToName(col)
		width, err := src.GetColWidth(sheet, colName)
		if err == nil && width > 0 {
			if err := dst.SetColWidth(name, colName, colName, width); err != nil {
				return err
			}
		}
	}
	merged, err := src.GetMergeCells(sheet)
	if err == nil {
		for _, m := range merged {
			if err := dst.MergeCell(name, m.GetStartAxis(), m.GetEndAxis()); err != nil {
				return err
			}
		}
	}
	return nil
}
