package xlsx

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

var chartTypes = map[string]excelize.ChartType{
	"line":          excelize.Line,
	"bar":           excelize.Bar,
	"stackedBar":    excelize.BarStacked,
	"column":        excelize.Col,
	"stackedColumn": excelize.ColStacked,
	"pie":           excelize.Pie,
	"doughnut":      excelize.Doughnut,
	"scatter":       excelize.Scatter,
	"area":          excelize.Area,
	"radar":         excelize.Radar,
}

// ChartTypes lists the supported chart type names
func ChartTypes() []string {
	return slices.Sorted(maps.Keys(chartTypes))
}

// ChartSeries is one plotted series with references on the data sheet
type ChartSeries struct {
	Name       string
	Categories string
	Values     string
}

// ChartSpec describes a chart to embed in a sheet
type ChartSpec struct {
	Type     string
	Title    string
	Position string
	// DataRange is a header row plus data, with categories in the first
	// column. It is used when Series is empty.
	DataRange string
	Series    []ChartSeries
	XTitle    string
	YTitle    string
	Legend    string
	Width     uint
	Height    uint
}

// AddChart embeds a native chart. Series references without a sheet name
// refer to the data sheet.
func AddChart(f *excelize.File, sheet string, spec ChartSpec) error {
	kind, ok := chartTypes[spec.Type]
	if !ok {
		return fmt.Errorf("invalid chart type %q, must be one of %v", spec.Type, ChartTypes())
	}

	series := spec.Series
	if len(series) == 0 {
		derived, err := seriesFromRange(sheet, spec.DataRange)
		if err != nil {
			return err
		}
		series = derived
	}

	chart := &excelize.Chart{
		Type:      kind,
		Dimension: excelize.ChartDimension{Width: orDefault(spec.Width, 480), Height: orDefault(spec.Height, 290)},
		Legend:    excelize.ChartLegend{Position: "bottom"},
	}
	if spec.Legend != "" {
		chart.Legend.Position = spec.Legend
	}
	if spec.Title != "" {
		chart.Title = []excelize.RichTextRun{{Text: spec.Title}}
	}
	if spec.XTitle != "" {
		chart.XAxis.Title = []excelize.RichTextRun{{Text: spec.XTitle}}
	}
	if spec.YTitle != "" {
		chart.YAxis.Title = []excelize.RichTextRun{{Text: spec.YTitle}}
	}
	for _, s := range series {
		chart.Series = append(chart.Series, excelize.ChartSeries{
			Name:       s.Name,
			Categories: qualify(sheet, s.Categories),
			Values:     qualify(sheet, s.Values),
		})
	}

	position := spec.Position
	if position == "" {
		used, ok, err := UsedRange(f, sheet)
		if err != nil {
			return err
		}
		position = "A1"
		if ok {
			position, _ = excelize.CoordinatesToCellName(used.EndCol+2, 1)
		}
	}

	if err := f.AddChart(sheet, position, chart); err != nil {
		return fmt.Errorf("failed to create %s chart: %w", spec.Type, err)
	}
	return nil
}

// seriesFromRange turns "A1:C5" into one series per column after the first,
// named by the header row
func seriesFromRange(sheet, ref string) ([]ChartSeries, error) {
	if ref == "" {
		return nil, fmt.Errorf("a data range or explicit series is required")
	}
	rng, err := ParseRange(ref)
	if err != nil {
		return nil, err
	}
	if rng.Rows() < 2 {
		return nil, fmt.Errorf("data range %s needs a header row and at least one data row", ref)
	}

	column := func(col int) Range {
		return Range{StartCol: col, StartRow: rng.StartRow + 1, EndCol: col, EndRow: rng.EndRow}
	}
	if rng.Cols() == 1 {
		return []ChartSeries{{
			Name:   CellAbsolute(sheet, rng.StartCol, rng.StartRow),
			Values: column(rng.StartCol).Absolute(sheet),
		}}, nil
	}

	categories := column(rng.StartCol).Absolute(sheet)
	var series []ChartSeries
	for col := rng.StartCol + 1; col <= rng.EndCol; col++ {
		series = append(series, ChartSeries{
			Name:       CellAbsolute(sheet, col, rng.StartRow),
			Categories: categories,
			Values:     column(col).Absolute(sheet),
		})
	}
	return series, nil
}

func qualify(sheet, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.Contains(ref, "!") {
		return ref
	}
	rng, err := ParseRange(ref)
	if err != nil {
		return ref
	}
	return rng.Absolute(sheet)
}

func orDefault(v, def uint) uint {
	if v == 0 {
		return def
	}
	return v
}
