package csv_test

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/TsubasaBE/go-xlsx/cell"
	"github.com/TsubasaBE/go-xlsx/csv"
	"github.com/TsubasaBE/go-xlsx/workbook"
	"github.com/TsubasaBE/go-xlsx/worksheet"
)

func newSheet(t *testing.T) (*workbook.Workbook, *worksheet.Worksheet) {
	t.Helper()
	wb := workbook.New()
	ws, err := wb.AddWorksheet("Data")
	require.NoError(t, err)
	return wb, ws
}

func writeString(t *testing.T, ws *worksheet.Worksheet, opts ...csv.Option) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, csv.Write(context.Background(), &buf, ws, opts...))
	return buf.String()
}

func mustCell(t *testing.T, ws *worksheet.Worksheet, ref string) cell.Cell {
	t.Helper()
	c, err := ws.Cell(ref)
	require.NoError(t, err)
	return c
}

// ── Write ─────────────────────────────────────────────────────────────────────

func TestWriteValuesAndQuoting(t *testing.T) {
	_, ws := newSheet(t)
	require.NoError(t, ws.SetString("A1", "plain"))
	require.NoError(t, ws.SetString("B1", "a,b"))
	require.NoError(t, ws.SetString("C1", `say "hi"`))
	require.NoError(t, ws.SetString("D1", "line\nbreak"))
	require.NoError(t, ws.SetNumber("A2", 3.14))
	require.NoError(t, ws.SetBool("B2", true))
	require.NoError(t, ws.SetDate("C2", time.Date(2016, 12, 3, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, ws.SetError("D2", cell.ErrorDiv0))
	require.NoError(t, ws.SetFormula("A3", "1+1", cell.Number(2)))
	require.NoError(t, ws.SetHyperlink("B3", "go", "https://go.dev"))
	require.NoError(t, ws.SetString("C3", "m"))
	require.NoError(t, ws.MergeCells("C3:D3"))

	want := "plain,\"a,b\",\"say \"\"hi\"\"\",\"line\nbreak\"\n" +
		"3.14,TRUE,2016-12-03T10:00:00Z,#DIV/0!\n" +
		"2,go,m,\n"
	assert.Equal(t, want, writeString(t, ws))
}

func TestWritePadsToGrid(t *testing.T) {
	_, ws := newSheet(t)
	require.NoError(t, ws.SetString("C2", "x"))
	assert.Equal(t, ",,\n,,x\n", writeString(t, ws))
}

func TestWriteEmptySheet(t *testing.T) {
	_, ws := newSheet(t)
	assert.Empty(t, writeString(t, ws))
}

func TestWriteOptions(t *testing.T) {
	_, ws := newSheet(t)
	require.NoError(t, ws.SetString("A1", "a;b"))
	require.NoError(t, ws.SetString("B1", "c,d"))
	require.NoError(t, ws.SetDate("C1", time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)))

	out := writeString(t, ws, csv.WithDelimiter(';'), csv.WithDateLayout("2006-01-02"), csv.WithBOM(true))
	assert.Equal(t, "\xef\xbb\xbf\"a;b\";c,d;2020-02-29\n", out)

	err := csv.Write(context.Background(), &bytes.Buffer{}, ws, csv.WithDelimiter('"'))
	assert.ErrorIs(t, err, csv.ErrInvalidDelimiter)
}

func TestFormatNumber(t *testing.T) {
	a, b := 0.1, 0.2
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{-0.125, "-0.125"},
		{3.14, "3.14"},
		{1234567, "1234567"},
		{a + b, "0.30000000000000004"},
		{1e21, "1e+21"},
		{1e-7, "1e-07"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, csv.FormatNumber(tc.in), "%v", tc.in)
	}
}

func TestWriteFile(t *testing.T) {
	_, ws := newSheet(t)
	require.NoError(t, ws.SetNumber("A1", 1))
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, csv.WriteFile(context.Background(), path, ws))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(data))
}

// ── Read ──────────────────────────────────────────────────────────────────────

func TestReadInfersNumbers(t *testing.T) {
	wb := workbook.New()
	in := "3.14,7,abc,,-2e3\n.5,+1,1.2.3,TRUE\n"
	ws, err := csv.Read(context.Background(), strings.NewReader(in), wb, "In")
	require.NoError(t, err)

	assert.Equal(t, cell.Number(3.14), mustCell(t, ws, "A1").Value)
	assert.Equal(t, cell.Number(7), mustCell(t, ws, "B1").Value)
	assert.Equal(t, cell.TypeString, mustCell(t, ws, "C1").Type())
	assert.Equal(t, cell.TypeNull, mustCell(t, ws, "D1").Type(), "empty fields produce no cell")
	assert.Equal(t, cell.Number(-2000), mustCell(t, ws, "E1").Value)
	assert.Equal(t, cell.Number(0.5), mustCell(t, ws, "A2").Value)
	assert.Equal(t, cell.Number(1), mustCell(t, ws, "B2").Value)
	assert.Equal(t, cell.TypeString, mustCell(t, ws, "C2").Type())
	assert.Equal(t, cell.TypeString, mustCell(t, ws, "D2").Type(), "booleans are not inferred")
	assert.Equal(t, 8, ws.CellCount())
}

func TestRoundTripIsLossyForNumericStrings(t *testing.T) {
	_, ws := newSheet(t)
	require.NoError(t, ws.SetNumber("A1", 3.14))
	require.NoError(t, ws.SetString("B1", "7"))
	require.NoError(t, ws.SetString("C1", "quoted, \"text\"\nspanning lines"))

	wb := workbook.New()
	back, err := csv.Read(context.Background(), strings.NewReader(writeString(t, ws)), wb, "")
	require.NoError(t, err)
	assert.Equal(t, "sheet1", back.Name())
	assert.Equal(t, cell.Number(3.14), mustCell(t, back, "A1").Value)
	assert.Equal(t, cell.Number(7), mustCell(t, back, "B1").Value)
	text, err := back.Text(mustCell(t, back, "C1").Value)
	require.NoError(t, err)
	assert.Equal(t, "quoted, \"text\"\nspanning lines", text)
}

func TestReadByteOrderMarks(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("név,1\n")
	require.NoError(t, err)
	for name, in := range map[string]string{
		"utf8":    "\xef\xbb\xbfnév,1\n",
		"utf16le": utf16,
	} {
		t.Run(name, func(t *testing.T) {
			wb := workbook.New()
			ws, err := csv.Read(context.Background(), strings.NewReader(in), wb, "S")
			require.NoError(t, err)
			text, err := ws.Text(mustCell(t, ws, "A1").Value)
			require.NoError(t, err)
			assert.Equal(t, "név", text)
			assert.Equal(t, cell.Number(1), mustCell(t, ws, "B1").Value)
		})
	}
}

func TestReadMalformedRecord(t *testing.T) {
	wb := workbook.New()
	_, err := csv.Read(context.Background(), strings.NewReader("a,b\nc,\"unterminated\n"), wb, "Bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, csv.ErrMalformedRecord)

	var re *csv.RecordError
	require.True(t, errors.As(err, &re))
	assert.GreaterOrEqual(t, re.Line, 2, "the error points at the unterminated record")
	assert.Positive(t, re.Column)
	assert.Zero(t, wb.Len(), "a failed read leaves the workbook untouched")
}

func TestReadStrictQuoting(t *testing.T) {
	wb := workbook.New()
	_, err := csv.Read(context.Background(), strings.NewReader("a,b\"c\n"), wb, "Bare")
	assert.ErrorIs(t, err, csv.ErrMalformedRecord)
	assert.ErrorIs(t, err, stdcsv.ErrBareQuote)

	ws, err := csv.Read(context.Background(), strings.NewReader("\"two\r\nlines\",x\r\n"), wb, "CRLF")
	require.NoError(t, err)
	text, err := ws.Text(mustCell(t, ws, "A1").Value)
	require.NoError(t, err)
	assert.Equal(t, "two\nlines", text, "CRLF inside a quoted field reads as LF")
	text, err = ws.Text(mustCell(t, ws, "B1").Value)
	require.NoError(t, err)
	assert.Equal(t, "x", text)
}

func TestReadDelimiter(t *testing.T) {
	wb := workbook.New()
	ws, err := csv.Read(context.Background(), strings.NewReader("x;y\n"), wb, "S", csv.WithDelimiter(';'))
	require.NoError(t, err)
	assert.Equal(t, 2, ws.CellCount())
}

func TestReadDuplicateName(t *testing.T) {
	wb := workbook.New()
	_, err := wb.AddWorksheet("Taken")
	require.NoError(t, err)
	_, err = csv.Read(context.Background(), strings.NewReader("1\n"), wb, "taken")
	assert.ErrorIs(t, err, workbook.ErrDuplicateSheet)
	assert.Equal(t, 1, wb.Len())
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,2\n"), 0o644))

	wb := workbook.New()
	ws, err := csv.ReadFile(context.Background(), path, wb, "")
	require.NoError(t, err)
	assert.Equal(t, "prices", ws.Name())

	_, err = csv.ReadFile(context.Background(), filepath.Join(dir, "missing.csv"), wb, "")
	assert.ErrorIs(t, err, csv.ErrNotFound)
	assert.Equal(t, 1, wb.Len())
}

func TestReadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	wb := workbook.New()
	_, err := csv.Read(ctx, strings.NewReader("1\n"), wb, "S")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, wb.Len())
}
