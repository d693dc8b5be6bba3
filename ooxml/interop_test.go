package ooxml_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/TsubasaBE/go-xlsx/cell"
	"github.com/TsubasaBE/go-xlsx/workbook"
)

// ── excelize interop ──────────────────────────────────────────────────────────

func TestExcelizeReadsOutput(t *testing.T) {
	wb := workbook.New()
	ws, _ := wb.AddWorksheet("Report")
	require.NoError(t, ws.SetString("A1", "name"))
	require.NoError(t, ws.SetNumber("B1", 42.5))
	require.NoError(t, ws.SetBool("C1", true))
	require.NoError(t, ws.SetFormula("D1", "B1*2", cell.Number(85)))
	require.NoError(t, ws.SetHyperlink("E1", "site", "https://example.com"))
	require.NoError(t, ws.SetString("A3", "wide"))
	require.NoError(t, ws.MergeCells("A3:C3"))
	hidden, _ := wb.AddWorksheet("Hidden")
	require.NoError(t, hidden.SetNumber("A1", 1))
	require.NoError(t, wb.SetSheetVisibility("Hidden", workbook.SheetHidden))

	f, err := excelize.OpenReader(bytes.NewReader(writeBytes(t, wb)))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Report", "Hidden"}, f.GetSheetList())
	visible, err := f.GetSheetVisible("Hidden")
	require.NoError(t, err)
	assert.False(t, visible)

	for ref, want := range map[string]string{"A1": "name", "B1": "42.5", "C1": "TRUE", "E1": "site", "A3": "wide"} {
		got, err := f.GetCellValue("Report", ref)
		require.NoError(t, err)
		assert.Equal(t, want, got, ref)
	}
	formula, err := f.GetCellFormula("Report", "D1")
	require.NoError(t, err)
	assert.Equal(t, "B1*2", formula)

	ok, target, err := f.GetCellHyperLink("Report", "E1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", target)

	merges, err := f.GetMergeCells("Report")
	require.NoError(t, err)
	require.Len(t, merges, 1)
	assert.Equal(t, "A3", merges[0].GetStartAxis())
	assert.Equal(t, "C3", merges[0].GetEndAxis())
}

func TestReadExcelizeOutput(t *testing.T) {
	when := time.Date(2024, 3, 15, 13, 30, 0, 0, time.UTC)
	f := excelize.NewFile()
	defer f.Close()
	const sh = "Sheet1"
	require.NoError(t, f.SetCellValue(sh, "A1", "hello"))
	require.NoError(t, f.SetCellValue(sh, "B1", 42.5))
	require.NoError(t, f.SetCellValue(sh, "C1", true))
	require.NoError(t, f.SetCellFormula(sh, "D1", "B1*2"))
	require.NoError(t, f.SetCellValue(sh, "E1", when))
	require.NoError(t, f.SetCellValue(sh, "A2", "link"))
	require.NoError(t, f.SetCellHyperLink(sh, "A2", "https://example.com", "External"))
	require.NoError(t, f.MergeCell(sh, "B3", "C4"))
	require.NoError(t, f.SetColWidth(sh, "F", "F", 20))
	require.NoError(t, f.SetRowHeight(sh, 5, 40))
	_, err := f.NewSheet("Second")
	require.NoError(t, err)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	wb, err := readBytes(buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, []string{"Sheet1", "Second"}, wb.SheetNames())
	ws := sheet(t, wb, sh)

	text, err := ws.Text(mustCell(t, ws, "A1").Value)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, cell.Number(42.5), mustCell(t, ws, "B1").Value)
	assert.Equal(t, cell.Bool(true), mustCell(t, ws, "C1").Value)

	fm, ok := mustCell(t, ws, "D1").Value.(cell.Formula)
	require.True(t, ok, "D1 should be a formula")
	assert.Equal(t, "B1*2", fm.Expr)

	d := mustCell(t, ws, "E1")
	require.Equal(t, cell.TypeDate, d.Type())
	assert.True(t, when.Equal(d.Value.(cell.Date).Time()), "got %v", d.Value)

	h, ok := mustCell(t, ws, "A2").Value.(cell.Hyperlink)
	require.True(t, ok, "A2 should be a hyperlink")
	assert.Equal(t, "https://example.com", h.Target)

	require.Len(t, ws.Merges(), 1)
	assert.Equal(t, "B3:C4", ws.Merges()[0].String())
	assert.Equal(t, cell.TypeMerge, mustCell(t, ws, "C4").Type())

	require.NotNil(t, ws.Column(6))
	assert.Equal(t, 20.0, ws.Column(6).Width)
	require.NotNil(t, ws.Row(5))
	assert.Equal(t, 40.0, ws.Row(5).Height)
}
