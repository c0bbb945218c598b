package excel_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sammcj/mcp-office/internal/generator/xlsx"
	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/internal/tools/excel"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type harness struct {
	t   *testing.T
	dir string
	reg *registry.Registry
}

func setup(t *testing.T) *harness {
	t.Helper()
	logger := testutils.CreateTestLogger()
	dir := t.TempDir()
	store := output.NewStore(dir, t.TempDir(), security.NewPolicy(logger), logger)
	reg := registry.New(logger)
	require.NoError(t, excel.Register(reg, xlsx.New(logger), store))
	return &harness{t: t, dir: dir, reg: reg}
}

func (h *harness) call(name string, args map[string]any) (string, error) {
	h.t.Helper()
	tool, ok := h.reg.Get(name)
	require.True(h.t, ok, "tool %s not registered", name)
	result, err := tool.Execute(context.Background(), testutils.CreateTestLogger(), args)
	if err != nil {
		return "", err
	}
	return testutils.ResultText(h.t, result), nil
}

func (h *harness) mustCall(name string, args map[string]any) string {
	h.t.Helper()
	text, err := h.call(name, args)
	require.NoError(h.t, err, name)
	return text
}

func (h *harness) open(name string) *excelize.File {
	h.t.Helper()
	f, err := excelize.OpenFile(filepath.Join(h.dir, name))
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = f.Close() })
	return f
}

func (h *harness) sales() {
	h.t.Helper()
	h.mustCall("create_excel", map[string]any{
		"filename": "sales.xlsx",
		"sheets": []any{map[string]any{
			"name":    "Sales",
			"headers": []any{"Region", "Units", "Price"},
			"data": []any{
				[]any{"North", 10.0, 2.5},
				[]any{"South", 4.0, 3.0},
				[]any{"East", 7.0, 1.5},
			},
		}},
	})
}

func TestRegister_AllTools(t *testing.T) {
	h := setup(t)
	assert.Equal(t, 54, h.reg.Len())

	tool, ok := h.reg.Get("create_excel")
	require.True(t, ok)
	assert.Equal(t, []string{"filename", "sheets"}, tool.Definition().InputSchema.Required)
}

func TestCreateAndRead(t *testing.T) {
	h := setup(t)
	h.sales()

	text := h.mustCall("read_excel", map[string]any{"filename": "sales.xlsx"})
	assert.Contains(t, text, "| Region | Units | Price |")
	assert.Contains(t, text, "| South | 4 | 3 |")

	info := h.mustCall("get_workbook_info", map[string]any{"filename": "sales.xlsx"})
	assert.Contains(t, info, "Sales")
}

func TestCreate_DuplicateSheetNames(t *testing.T) {
	h := setup(t)
	_, err := h.call("create_excel", map[string]any{
		"filename": "dup.xlsx",
		"sheets": []any{
			map[string]any{"name": "Data", "data": []any{[]any{"first"}}},
			map[string]any{"name": "data", "data": []any{[]any{"second"}}},
		},
	})
	assert.ErrorContains(t, err, "duplicate sheet name")
	assert.NoFileExists(t, filepath.Join(h.dir, "dup.xlsx"))
}

func TestReadMissingWorkbook(t *testing.T) {
	h := setup(t)
	_, err := h.call("read_excel", map[string]any{"filename": "nope.xlsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestEditCreatesMissingWorkbook(t *testing.T) {
	h := setup(t)
	text := h.mustCall("write_cells", map[string]any{
		"filename": "fresh.xlsx",
		"cells":    map[string]any{"B2": 5.0, "C2": "=B2*2"},
	})
	assert.Contains(t, text, "new workbook created")

	f := h.open("fresh.xlsx")
	v, err := f.CalcCellValue(f.GetSheetName(0), "C2")
	require.NoError(t, err)
	assert.Equal(t, "10", v)
}

func TestFormulas(t *testing.T) {
	h := setup(t)
	h.sales()

	text := h.mustCall("add_formula", map[string]any{
		"filename": "sales.xlsx", "cell": "D2", "formula": "B2*C2", "fillRange": "D2:D4",
	})
	assert.Contains(t, text, "value 25")

	f := h.open("sales.xlsx")
	v, err := f.CalcCellValue("Sales", "D4")
	require.NoError(t, err)
	assert.Equal(t, "10.5", v)

	text = h.mustCall("calculate_formula", map[string]any{"filename": "sales.xlsx", "formula": "=SUM(B2:B4)"})
	assert.Contains(t, text, "= 21")

	_, err = h.call("add_formula", map[string]any{"filename": "sales.xlsx", "cell": "E2", "formula": `=WEBSERVICE("http://x")`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEBSERVICE")

	_, err = h.call("add_formula", map[string]any{"filename": "sales.xlsx", "cell": "E2", "formula": "=SUM(B2:B4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parentheses")
}

func TestNamedRange(t *testing.T) {
	h := setup(t)
	h.sales()
	h.mustCall("add_named_range", map[string]any{"filename": "sales.xlsx", "name": "Units", "range": "B2:B4"})

	f := h.open("sales.xlsx")
	names := f.GetDefinedName()
	require.Len(t, names, 1)
	assert.Equal(t, "Sales!$B$2:$B$4", names[0].RefersTo)

	_, err := h.call("add_named_range", map[string]any{"filename": "sales.xlsx", "name": "B2", "range": "B2:B4"})
	assert.Error(t, err)
}

func TestWorksheetLifecycle(t *testing.T) {
	h := setup(t)
	h.sales()

	h.mustCall("add_worksheet", map[string]any{"filename": "sales.xlsx", "sheetName": "Summary"})
	h.mustCall("rename_worksheet", map[string]any{"filename": "sales.xlsx", "sheetName": "Summary", "newName": "Overview"})
	h.mustCall("copy_worksheet", map[string]any{"filename": "sales.xlsx", "sheetName": "Sales"})
	list := h.mustCall("list_worksheets", map[string]any{"filename": "sales.xlsx"})
	assert.Contains(t, list, "Overview")
	assert.Contains(t, list, "Sales (2)")

	h.mustCall("delete_worksheet", map[string]any{"filename": "sales.xlsx", "sheetName": "Overview"})
	f := h.open("sales.xlsx")
	assert.Equal(t, []string{"Sales", "Sales (2)"}, f.GetSheetList())
}

func TestFormattingAndLayout(t *testing.T) {
	h := setup(t)
	h.sales()

	h.mustCall("format_cells", map[string]any{"filename": "sales.xlsx", "range": "A1:C1", "bold": true, "fillColor": "#DDEBF7"})
	h.mustCall("merge_cells", map[string]any{"filename": "sales.xlsx", "range": "E1:G1"})
	h.mustCall("set_column_width", map[string]any{"filename": "sales.xlsx", "columns": "A:B", "width": 20.0})
	h.mustCall("freeze_panes", map[string]any{"filename": "sales.xlsx", "cell": "B2"})
	h.mustCall("add_conditional_formatting", map[string]any{
		"filename": "sales.xlsx", "range": "B2:B4", "type": "cellValue",
		"operator": "greaterThan", "value": "5", "format": map[string]any{"fillColor": "C6EFCE"},
	})

	f := h.open("sales.xlsx")
	style, err := f.GetCellStyle("Sales", "B1")
	require.NoError(t, err)
	s, err := f.GetStyle(style)
	require.NoError(t, err)
	require.NotNil(t, s.Font)
	assert.True(t, s.Font.Bold)

	merged, err := f.GetMergeCells("Sales")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "E1", merged[0].GetStartAxis())

	width, err := f.GetColWidth("Sales", "B")
	require.NoError(t, err)
	assert.Equal(t, 20.0, width)

	panes, err := f.GetPanes("Sales")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.XSplit)
	assert.Equal(t, 1, panes.YSplit)

	h.mustCall("unmerge_cells", map[string]any{"filename": "sales.xlsx", "range": "E1:G1"})
	_, err = h.call("unmerge_cells", map[string]any{"filename": "sales.xlsx", "range": "E1:G1"})
	assert.Error(t, err)
}

func TestRowsAndColumns(t *testing.T) {
	h := setup(t)
	h.sales()

	h.mustCall("insert_rows", map[string]any{"filename": "sales.xlsx", "row": 2.0, "count": 2.0})
	f := h.open("sales.xlsx")
	v, _ := f.GetCellValue("Sales", "A4")
	assert.Equal(t, "North", v)

	h.mustCall("delete_rows", map[string]any{"filename": "sales.xlsx", "row": 2.0, "count": 2.0})
	h.mustCall("delete_columns", map[string]any{"filename": "sales.xlsx", "column": "B"})
	f = h.open("sales.xlsx")
	v, _ = f.GetCellValue("Sales", "B1")
	assert.Equal(t, "Price", v)

	h.mustCall("group_rows", map[string]any{"filename": "sales.xlsx", "startRow": 2.0, "endRow": 3.0, "collapsed": true})
	f = h.open("sales.xlsx")
	level, err := f.GetRowOutlineLevel("Sales", 2)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), level)
	visible, err := f.GetRowVisible("Sales", 3)
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestObjects(t *testing.T) {
	h := setup(t)
	h.sales()

	h.mustCall("add_chart", map[string]any{"filename": "sales.xlsx", "chartType": "column", "dataRange": "A1:B4", "title": "Units"})
	h.mustCall("add_excel_table", map[string]any{"filename": "sales.xlsx", "range": "A1:C4", "tableName": "SalesTable"})
	h.mustCall("add_data_validation", map[string]any{"filename": "sales.xlsx", "range": "A2:A4", "type": "list", "values": []any{"North", "South", "East"}})
	h.mustCall("add_cell_comment", map[string]any{"filename": "sales.xlsx", "cell": "B2", "comment": "checked"})
	h.mustCall("add_cell_hyperlink", map[string]any{"filename": "sales.xlsx", "cell": "E1", "url": "https://example.com", "displayText": "Site"})

	f := h.open("sales.xlsx")
	tables, err := f.GetTables("Sales")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "SalesTable", tables[0].Name)

	validations, err := f.GetDataValidations("Sales")
	require.NoError(t, err)
	assert.Len(t, validations, 1)

	comments, err := f.GetComments("Sales")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "B2", comments[0].Cell)

	ok, target, err := f.GetCellHyperLink("Sales", "E1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", target)

	_, err = h.call("add_chart", map[string]any{"filename": "sales.xlsx", "chartType": "column"})
	assert.Error(t, err)
}

func TestPivotTable(t *testing.T) {
	h := setup(t)
	h.sales()
	text := h.mustCall("create_pivot_table", map[string]any{
		"filename": "sales.xlsx", "sourceSheet": "Sales", "sourceRange": "A1:C4",
		"targetSheet": "Pivot", "rows": []any{"Region"},
		"values": []any{map[string]any{"field": "Units", "function": "sum"}},
	})
	assert.Contains(t, text, "'Pivot'!A3")

	f := h.open("sales.xlsx")
	pivots, err := f.GetPivotTables("Pivot")
	require.NoError(t, err)
	assert.Len(t, pivots, 1)
}

func TestSimulatedAnalysis(t *testing.T) {
	h := setup(t)
	h.sales()
	h.mustCall("add_formula", map[string]any{"filename": "sales.xlsx", "cell": "E2", "formula": "=B2*C2"})

	text := h.mustCall("goal_seek", map[string]any{"filename": "sales.xlsx", "setCell": "E2", "toValue": 50.0, "byChangingCell": "B2"})
	assert.Contains(t, text, "currently 25")

	h.mustCall("create_scenario", map[string]any{
		"filename": "sales.xlsx", "name": "Best case", "values": map[string]any{"B3": 9.0, "B2": 12.0}, "apply": true,
	})
	h.mustCall("add_power_query", map[string]any{"filename": "sales.xlsx", "queryName": "Regions", "source": "regions.csv", "steps": []any{"Trim"}})

	f := h.open("sales.xlsx")
	assert.Contains(t, f.GetSheetList(), "Goal Seek")
	assert.Contains(t, f.GetSheetList(), "Scenarios")
	assert.Contains(t, f.GetSheetList(), "Power Query")
	v, _ := f.GetCellValue("Sales", "B2")
	assert.Equal(t, "12", v)

	_, err := h.call("goal_seek", map[string]any{"filename": "sales.xlsx", "setCell": "A2", "toValue": 1.0, "byChangingCell": "B2"})
	assert.Error(t, err)
}

func TestPageSetup(t *testing.T) {
	h := setup(t)
	h.sales()
	h.mustCall("set_excel_page_setup", map[string]any{"filename": "sales.xlsx", "orientation": "landscape", "paperSize": "a4"})
	h.mustCall("set_excel_header_footer", map[string]any{"filename": "sales.xlsx", "header": "Quarterly sales", "footer": "Page &P of &N"})

	f := h.open("sales.xlsx")
	layout, err := f.GetPageLayout("Sales")
	require.NoError(t, err)
	require.NotNil(t, layout.Orientation)
	assert.Equal(t, "landscape", *layout.Orientation)
	hf, err := f.GetHeaderFooter("Sales")
	require.NoError(t, err)
	assert.Equal(t, "&CQuarterly sales", hf.OddHeader)

	_, err = h.call("set_excel_page_setup", map[string]any{"filename": "sales.xlsx"})
	assert.Error(t, err)
}

func TestConversions(t *testing.T) {
	h := setup(t)
	testutils.WriteFile(t, h.dir, "people.csv", "name;age;id\nAda;36;007\nAlan;41;008\n")

	text := h.mustCall("csv_to_excel", map[string]any{"csvPath": "people.csv", "filename": "people.xlsx", "delimiter": ";"})
	assert.Contains(t, text, "2 data rows")

	h.mustCall("excel_to_json", map[string]any{"filename": "people.xlsx"})
	raw, err := os.ReadFile(filepath.Join(h.dir, "people.json"))
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Ada", records[0]["name"])
	assert.Equal(t, "007", records[0]["id"])

	h.mustCall("excel_to_csv", map[string]any{"filename": "people.xlsx"})
	csv, err := os.ReadFile(filepath.Join(h.dir, "people.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csv), "Alan,41,008")

	h.mustCall("json_to_excel", map[string]any{
		"filename": "items.xlsx",
		"data":     []any{map[string]any{"sku": "A1", "qty": 3.0}},
		"columns":  []any{"sku", "qty"},
	})
	f := h.open("items.xlsx")
	v, _ := f.GetCellValue("Data", "A2")
	assert.Equal(t, "A1", v)

	_, err = h.call("csv_to_excel", map[string]any{"csvPath": "people.csv", "filename": "x.xlsx", "delimiter": "ab"})
	assert.Error(t, err)
}

func TestMergeWorkbooks(t *testing.T) {
	h := setup(t)
	h.sales()
	h.mustCall("create_excel", map[string]any{
		"filename": "other.xlsx",
		"sheets":   []any{map[string]any{"name": "Sales", "data": []any{[]any{"x"}}}},
	})
	text := h.mustCall("merge_workbooks", map[string]any{"filename": "all.xlsx", "sources": []any{"sales.xlsx", "other.xlsx"}})
	assert.Contains(t, text, "Merged 2 workbooks")

	f := h.open("all.xlsx")
	assert.Len(t, f.GetSheetList(), 2)
}
