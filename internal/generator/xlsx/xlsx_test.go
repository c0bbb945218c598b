package xlsx_test

import (
	"testing"

	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newGenerator() *xlsx.Generator {
	return xlsx.New(testutils.CreateTestLogger())
}

func sample(t *testing.T, g *xlsx.Generator) []byte {
	t.Helper()
	data, err := g.Create([]xlsx.Sheet{{
		Name:    "Sales",
		Headers: []string{"Region", "Units", "Price"},
		Rows: [][]any{
			{"North", 10.0, 2.5},
			{"South", 4.0, 3.0},
			{"East", 7.0, 1.5},
			{"South", 4.0, 3.0},
		},
	}, {Name: "Notes"}}, &xlsx.Properties{Title: "Quarterly"})
	require.NoError(t, err)
	return data
}

func TestCreate(t *testing.T) {
	g := newGenerator()
	data := sample(t, g)

	require.NoError(t, g.Inspect(data, func(f *excelize.File) error {
		assert.Equal(t, []string{"Sales", "Notes"}, f.GetSheetList())
		v, _ := f.GetCellValue("Sales", "A1")
		assert.Equal(t, "Region", v)
		v, _ = f.GetCellValue("Sales", "B2")
		assert.Equal(t, "10", v)
		props, err := f.GetDocProps()
		require.NoError(t, err)
		assert.Equal(t, "Quarterly", props.Title)
		return nil
	}))
}

func TestCreate_Validation(t *testing.T) {
	g := newGenerator()
	_, err := g.Create(nil, nil)
	assert.Error(t, err)
	_, err = g.Create([]xlsx.Sheet{{Name: "bad/name"}}, nil)
	assert.Error(t, err)
}

func TestCreate_DuplicateSheetNames(t *testing.T) {
	g := newGenerator()
	tests := []struct {
		name   string
		sheets []xlsx.Sheet
	}{
		{"exact", []xlsx.Sheet{{Name: "Data", Rows: [][]any{{"first"}}}, {Name: "Data", Rows: [][]any{{"second"}}}}},
		{"case", []xlsx.Sheet{{Name: "Data"}, {Name: "DATA"}}},
		{"default name", []xlsx.Sheet{{Name: "Sheet2"}, {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := g.Create(tt.sheets, nil)
			assert.ErrorContains(t, err, "duplicate sheet name")
			assert.Nil(t, data)
		})
	}
}

func TestApply_FreshWhenMissing(t *testing.T) {
	g := newGenerator()
	data, err := g.Apply(nil, func(f *excelize.File) error {
		_, err := xlsx.WriteRows(f, "Sheet1", "B2", [][]any{{1.0, 2.0, "=B2+C2"}})
		return err
	})
	require.NoError(t, err)

	require.NoError(t, g.Inspect(data, func(f *excelize.File) error {
		formula, _ := f.GetCellFormula("Sheet1", "D2")
		assert.Equal(t, "B2+C2", formula)
		v, err := f.CalcCellValue("Sheet1", "D2")
		require.NoError(t, err)
		assert.Equal(t, "3", v)
		return nil
	}))
}

func TestInspect_RejectsEmpty(t *testing.T) {
	assert.Error(t, newGenerator().Inspect(nil, func(*excelize.File) error { return nil }))
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want xlsx.Range
		err  bool
	}{
		{in: "A1:C3", want: xlsx.Range{StartCol: 1, StartRow: 1, EndCol: 3, EndRow: 3}},
		{in: "b2", want: xlsx.Range{StartCol: 2, StartRow: 2, EndCol: 2, EndRow: 2}},
		{in: "Sheet1!$A$1:$B$2", want: xlsx.Range{StartCol: 1, StartRow: 1, EndCol: 2, EndRow: 2}},
		{in: "C3:A1", want: xlsx.Range{StartCol: 1, StartRow: 1, EndCol: 3, EndRow: 3}},
		{in: "", err: true},
		{in: "A1:B", err: true},
		{in: "hello", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := xlsx.ParseRange(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	rng, _ := xlsx.ParseRange("B2:C4")
	assert.Equal(t, "B2:C4", rng.String())
	assert.Equal(t, "'My Sheet'!$B$2:$C$4", rng.Absolute("My Sheet"))
}

func TestSortAndDeduplicate(t *testing.T) {
	g := newGenerator()
	data, err := g.Apply(sample(t, g), func(f *excelize.File) error {
		rng, _ := xlsx.ParseRange("A1:C5")
		if err := xlsx.SortRange(f, "Sales", rng, []xlsx.SortKey{{Column: 2, Descending: true}}, true); err != nil {
			return err
		}
		removed, err := xlsx.RemoveDuplicates(f, "Sales", rng, nil, true)
		assert.Equal(t, 1, removed)
		return err
	})
	require.NoError(t, err)

	require.NoError(t, g.Inspect(data, func(f *excelize.File) error {
		rows, err := xlsx.ReadRange(f, "Sales", "A1:B5")
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"Region", "Units"},
			{"North", "10"},
			{"East", "7"},
			{"South", "4"},
			{"", ""},
		}, rows)
		return nil
	}))
}

func TestTransposeAndFindReplace(t *testing.T) {
	g := newGenerator()
	_, err := g.Apply(sample(t, g), func(f *excelize.File) error {
		rng, _ := xlsx.ParseRange("A1:B2")
		out, err := xlsx.Transpose(f, "Sales", rng, "Notes", "A1")
		require.NoError(t, err)
		assert.Equal(t, "A1:B2", out.String())
		v, _ := f.GetCellValue("Notes", "B1")
		assert.Equal(t, "North", v)

		n, err := xlsx.FindReplace(f, "Sales", "south", "S", xlsx.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		n, err = xlsx.FindReplace(f, "Sales", "south", "S", xlsx.FindOptions{MatchCase: true})
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	})
	require.NoError(t, err)
}

func TestStatistics(t *testing.T) {
	s := xlsx.Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5.0, s.Mean, 1e-9)
	assert.InDelta(t, 4.5, s.Median, 1e-9)
	assert.InDelta(t, 2.138, s.StdDev, 1e-3)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Zero(t, xlsx.Describe(nil).Count)
}

func TestObjects(t *testing.T) {
	g := newGenerator()
	data, err := g.Apply(sample(t, g), func(f *excelize.File) error {
		require.NoError(t, xlsx.AddChart(f, "Sales", xlsx.ChartSpec{Type: "column", Title: "Units", DataRange: "A1:B5"}))
		assert.Error(t, xlsx.AddChart(f, "Sales", xlsx.ChartSpec{Type: "hologram", DataRange: "A1:B5"}))

		name, err := xlsx.AddTable(f, "Sales", xlsx.TableSpec{Range: "A1:C5"})
		require.NoError(t, err)
		assert.Equal(t, "Table1", name)

		require.NoError(t, xlsx.AddPivotTable(f, xlsx.PivotSpec{
			SourceSheet: "Sales", SourceRange: "A1:C5", TargetSheet: "Pivot",
			Rows: []string{"Region"}, Values: []xlsx.PivotValue{{Field: "Units", Function: "sum"}},
		}))
		require.NoError(t, xlsx.AddValidation(f, "Sales", xlsx.ValidationSpec{Range: "D2:D5", Type: "list", Values: []string{"Yes", "No"}}))
		require.NoError(t, xlsx.AddValidation(f, "Sales", xlsx.ValidationSpec{Range: "B2:B5", Type: "whole", Min: "0", Max: "100"}))
		require.NoError(t, xlsx.AddConditionalFormat(f, "Sales", "B2:B5", xlsx.ConditionalRule{Type: "cellValue", Operator: "greaterThan", Value: "5"}))
		require.NoError(t, xlsx.AddHyperlink(f, "Sales", "E1", "https://example.com", "Site", ""))
		require.NoError(t, xlsx.Annotate(f, "Sales", "A1", "", "Regions by territory"))
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, g.Inspect(data, func(f *excelize.File) error {
		assert.Contains(t, f.GetSheetList(), "Pivot")
		ok, link, err := f.GetCellHyperLink("Sales", "E1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "https://example.com", link)
		comments, err := f.GetComments("Sales")
		require.NoError(t, err)
		require.Len(t, comments, 1)
		assert.Contains(t, comments[0].Text, "Regions by territory")
		return nil
	}))
}

func TestConversions(t *testing.T) {
	g := newGenerator()

	data, rows, err := g.FromCSV([]byte("name,id,score\nAda,007,9.5\nBob,12,7\n"), "People", ',', true)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	csvOut, sheet, n, err := g.ToCSV(data, "", ',')
	require.NoError(t, err)
	assert.Equal(t, "People", sheet)
	assert.Equal(t, 3, n)
	assert.Equal(t, "name,id,score\nAda,007,9.5\nBob,12,7\n", string(csvOut))

	records, count, err := g.ToRecords(data, "People", true)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	first := records.([]map[string]any)[0]
	assert.Equal(t, "Ada", first["name"])
	assert.Equal(t, "007", first["id"])
	assert.Equal(t, 9.5, first["score"])

	fromJSON, err := g.FromRecords([]map[string]any{{"b": 1.0, "a": "x"}, {"c": true}}, "", nil)
	require.NoError(t, err)
	require.NoError(t, g.Inspect(fromJSON, func(f *excelize.File) error {
		rows, _ := f.GetRows("Data")
		assert.Equal(t, []string{"a", "b", "c"}, rows[0])
		return nil
	}))

	merged, names, err := g.Merge([][]byte{data, sample(t, g), data}, []string{"one", "two", "three"})
	require.NoError(t, err)
	assert.Equal(t, []string{"People", "Sales", "Notes", "People (2)"}, names)
	require.NoError(t, g.Inspect(merged, func(f *excelize.File) error {
		assert.Equal(t, names, f.GetSheetList())
		return nil
	}))
}
