package worksheet_test

import (
	"errors"
	"testing"
	"time"

	"github.com/TsubasaBE/go-xlsx/cell"
	"github.com/TsubasaBE/go-xlsx/numfmt"
	"github.com/TsubasaBE/go-xlsx/stringtable"
	"github.com/TsubasaBE/go-xlsx/styles"
	"github.com/TsubasaBE/go-xlsx/worksheet"
)

func newSheet() *worksheet.Worksheet {
	return worksheet.New("Sheet1", stringtable.New(), styles.NewRegistry())
}

func mustCell(t *testing.T, ws *worksheet.Worksheet, ref string) cell.Cell {
	t.Helper()
	c, err := ws.Cell(ref)
	if err != nil {
		t.Fatalf("Cell(%s): %v", ref, err)
	}
	return c
}

// ── Values ────────────────────────────────────────────────────────────────────

func TestCellTypeAssignment(t *testing.T) {
	ws := newSheet()
	now := time.Date(2016, 12, 3, 10, 0, 0, 0, time.UTC)
	steps := []struct {
		ref  string
		set  func() error
		want cell.Type
	}{
		{"A1", func() error { return ws.SetNumber("A1", 7) }, cell.TypeNumber},
		{"B1", func() error { return ws.SetString("B1", "Hello, World!") }, cell.TypeString},
		{"C1", func() error { return ws.SetBool("C1", true) }, cell.TypeBoolean},
		{"D1", func() error { return ws.SetDate("D1", now) }, cell.TypeDate},
		{"E1", func() error { return ws.SetHyperlink("E1", "www.google.com", "http://www.google.com") }, cell.TypeHyperlink},
		{"F1", func() error { return ws.SetFormula("F1", "A1", cell.Number(7)) }, cell.TypeFormula},
		{"G1", func() error { return ws.SetFormula("G1", "D1", cell.Date(now)) }, cell.TypeFormula},
		{"H1", func() error { return ws.SetError("H1", cell.ErrorDiv0) }, cell.TypeError},
		{"I1", func() error { return ws.SetValue("I1", nil) }, cell.TypeNull},
	}
	for _, s := range steps {
		if err := s.set(); err != nil {
			t.Fatalf("set %s: %v", s.ref, err)
		}
		if got := mustCell(t, ws, s.ref).Type(); got != s.want {
			t.Errorf("%s type = %v, want %v", s.ref, got, s.want)
		}
	}

	f := mustCell(t, ws, "F1").Value.(cell.Formula)
	if f.Expr != "A1" || f.Result != cell.Number(7) {
		t.Errorf("formula = %+v", f)
	}
}

func TestSharedStringDedup(t *testing.T) {
	ws := newSheet()
	if err := ws.SetString("A1", "Hello, World!"); err != nil {
		t.Fatal(err)
	}
	if err := ws.SetString("B2", "Hello, World!"); err != nil {
		t.Fatal(err)
	}
	if ws.Strings().Len() != 1 {
		t.Fatalf("string table has %d entries, want 1", ws.Strings().Len())
	}
	a := mustCell(t, ws, "A1").Value.(cell.String)
	b := mustCell(t, ws, "B2").Value.(cell.String)
	if a != b {
		t.Errorf("cells reference %d and %d", a.Index, b.Index)
	}
	if s, _ := ws.Text(a); s != "Hello, World!" {
		t.Errorf("Text = %q", s)
	}
}

func TestInvalidValuesRejected(t *testing.T) {
	ws := newSheet()
	tests := []struct {
		name string
		v    cell.Value
	}{
		{"dangling string", cell.String{Index: 3}},
		{"dangling hyperlink", cell.Hyperlink{Text: 0, Target: "x"}},
		{"merge placeholder", cell.Merge{Anchor: cell.Address{Row: 1, Col: 1}}},
		{"hyperlink result", cell.Formula{Expr: "A1", Result: cell.Hyperlink{}}},
		{"empty formula", cell.Formula{Result: cell.Number(1)}},
		{"blank formula", cell.Formula{Expr: "  "}},
		{"bare equals sign", cell.Formula{Expr: "="}},
	}
	for _, tc := range tests {
		if err := ws.SetValue("A1", tc.v); !errors.Is(err, worksheet.ErrInvariant) {
			t.Errorf("%s: err = %v, want ErrInvariant", tc.name, err)
		}
	}
	if ws.CellCount() != 0 {
		t.Errorf("rejected values left %d cells behind", ws.CellCount())
	}
	if err := ws.SetNumber("not-a-ref", 1); !errors.Is(err, cell.ErrInvalidAddress) {
		t.Errorf("bad ref err = %v", err)
	}
}

func TestFormulaLeadingEqualsDropped(t *testing.T) {
	ws := newSheet()
	if err := ws.SetFormula("A1", "=B1", cell.Number(1)); err != nil {
		t.Fatal(err)
	}
	if err := ws.PutCell(cell.Cell{Row: 2, Col: 1, Value: cell.Formula{Expr: "=SUM(B1:B2)"}}); err != nil {
		t.Fatal(err)
	}
	for ref, want := range map[string]string{"A1": "B1", "A2": "SUM(B1:B2)"} {
		if f := mustCell(t, ws, ref).Value.(cell.Formula); f.Expr != want {
			t.Errorf("%s expr = %q, want %q", ref, f.Expr, want)
		}
	}
	if err := ws.SetFormula("A3", "", nil); !errors.Is(err, worksheet.ErrInvariant) {
		t.Errorf("empty SetFormula err = %v, want ErrInvariant", err)
	}
	if err := ws.PutCell(cell.Cell{Row: 4, Col: 1, Value: cell.Formula{Expr: "="}}); !errors.Is(err, worksheet.ErrInvariant) {
		t.Errorf("PutCell bare equals err = %v, want ErrInvariant", err)
	}
}

func TestDateRoundedToMillisecond(t *testing.T) {
	ws := newSheet()
	when := time.Date(2020, 5, 6, 7, 8, 9, 250_400_000, time.UTC)
	if err := ws.SetDate("A1", when); err != nil {
		t.Fatal(err)
	}
	if err := ws.SetFormula("B1", "A1", cell.Date(when)); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2020, 5, 6, 7, 8, 9, 250_000_000, time.UTC)
	if got := mustCell(t, ws, "A1").Value.(cell.Date).Time(); !got.Equal(want) {
		t.Errorf("A1 = %v, want %v", got, want)
	}
	res := mustCell(t, ws, "B1").Value.(cell.Formula).Result.(cell.Date)
	if !res.Time().Equal(want) {
		t.Errorf("B1 result = %v, want %v", res.Time(), want)
	}
}

func TestDateGetsDateStyle(t *testing.T) {
	ws := newSheet()
	bold := styles.DefaultStyle()
	bold.Font.Bold = true
	if err := ws.SetCellStyle("A1", bold); err != nil {
		t.Fatal(err)
	}
	if err := ws.SetDate("A1", time.Now()); err != nil {
		t.Fatal(err)
	}
	s, err := ws.Style("A1")
	if err != nil {
		t.Fatal(err)
	}
	if s.NumFmt != numfmt.DefaultDateFormat || !s.Font.Bold {
		t.Errorf("style after SetDate = %+v", s)
	}

	custom := styles.DefaultStyle()
	custom.NumFmt = "yyyy-mm-dd"
	if err := ws.SetCellStyle("B1", custom); err != nil {
		t.Fatal(err)
	}
	if err := ws.SetDate("B1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if s, _ := ws.Style("B1"); s.NumFmt != "yyyy-mm-dd" {
		t.Errorf("existing date format replaced by %q", s.NumFmt)
	}

	// Restyling a date cell with a plain style keeps it date-like.
	if err := ws.SetCellStyle("B1", bold); err != nil {
		t.Fatal(err)
	}
	c := mustCell(t, ws, "B1")
	if !ws.Styles().IsDate(c.Style) {
		t.Error("date cell lost its date format after SetCellStyle")
	}
}

// ── Defaults ──────────────────────────────────────────────────────────────────

func TestStyleResolutionOrder(t *testing.T) {
	ws := newSheet()
	rowStyle := styles.DefaultStyle()
	rowStyle.Font.Italic = true
	colStyle := styles.DefaultStyle()
	colStyle.Fill = styles.SolidFill(styles.ARGB("FFFF00"))

	if err := ws.SetColumnStyle(2, colStyle); err != nil {
		t.Fatal(err)
	}
	if err := ws.SetNumber("B5", 1); err != nil {
		t.Fatal(err)
	}
	if err := ws.SetRowStyle(3, rowStyle); err != nil {
		t.Fatal(err)
	}
	for _, ref := range []string{"B3", "C3", "C4"} {
		if err := ws.SetNumber(ref, 1); err != nil {
			t.Fatal(err)
		}
	}

	check := func(ref string, want styles.Style) {
		t.Helper()
		got, err := ws.Style(ref)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s style = %+v, want %+v", ref, got, want)
		}
	}
	check("B5", colStyle)
	check("B3", rowStyle) // row default wins over column default
	check("C3", rowStyle)
	check("C4", styles.DefaultStyle())
	check("B9", colStyle) // unpopulated position reports the default

	// Defaults apply at creation only.
	if err := ws.SetRowStyle(5, rowStyle); err != nil {
		t.Fatal(err)
	}
	check("B5", colStyle)
}

func TestRowAndColumnMetrics(t *testing.T) {
	ws := newSheet()
	if err := ws.SetRowHeight(4, 30); err != nil {
		t.Fatal(err)
	}
	if err := ws.SetColumnWidth(3, 18.5); err != nil {
		t.Fatal(err)
	}
	if ws.Row(4) == nil || ws.Row(4).Height != 30 {
		t.Error("row height not recorded")
	}
	if ws.Column(3) == nil || ws.Column(3).Width != 18.5 {
		t.Error("column width not recorded")
	}
	if err := ws.SetRowHeight(0, 10); !errors.Is(err, cell.ErrInvalidAddress) {
		t.Errorf("row 0 err = %v", err)
	}
	if err := ws.SetColumnStyleIndex(1, 99); !errors.Is(err, worksheet.ErrInvariant) {
		t.Errorf("dangling column style err = %v", err)
	}
}

// ── Iteration ─────────────────────────────────────────────────────────────────

func TestRowsAscending(t *testing.T) {
	ws := newSheet()
	for _, ref := range []string{"C10", "A2", "B2", "Z1", "A10"} {
		if err := ws.SetNumber(ref, 1); err != nil {
			t.Fatal(err)
		}
	}
	var got []string
	for r := range ws.Rows() {
		for c := range r.Cells() {
			got = append(got, c.Address().String())
		}
	}
	want := []string{"Z1", "A2", "B2", "A10", "C10"}
	if len(got) != len(want) {
		t.Fatalf("visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %s, want %s", i, got[i], want[i])
		}
	}
	dim, ok := ws.Dimension()
	if !ok || dim.String() != "A1:Z10" {
		t.Errorf("Dimension() = %v, %v", dim, ok)
	}
}

func TestClear(t *testing.T) {
	ws := newSheet()
	_ = ws.SetNumber("A1", 1)
	if err := ws.Clear("A1"); err != nil {
		t.Fatal(err)
	}
	if ws.CellCount() != 0 {
		t.Error("Clear should remove the cell")
	}
	if _, ok := ws.Dimension(); ok {
		t.Error("empty sheet should have no dimension")
	}
}

// ── Merges ────────────────────────────────────────────────────────────────────

func TestMergePropagation(t *testing.T) {
	ws := newSheet()
	red := styles.DefaultStyle()
	red.Font.Color = styles.ARGB("FF0000")
	if err := ws.SetString("B2", "B2"); err != nil {
		t.Fatal(err)
	}
	if err := ws.SetCellStyle("B2", red); err != nil {
		t.Fatal(err)
	}
	if err := ws.MergeCells("B2:C3"); err != nil {
		t.Fatal(err)
	}

	anchor := mustCell(t, ws, "B2")
	if anchor.Type() != cell.TypeString {
		t.Errorf("anchor type = %v", anchor.Type())
	}
	for _, ref := range []string{"B3", "C2", "C3"} {
		c := mustCell(t, ws, ref)
		if c.Type() != cell.TypeMerge {
			t.Errorf("%s type = %v, want Merge", ref, c.Type())
		}
		v, err := ws.Effective(ref)
		if err != nil {
			t.Fatal(err)
		}
		if s, _ := ws.Text(v); s != "B2" {
			t.Errorf("%s resolves to %q, want B2", ref, s)
		}
		if st, _ := ws.Style(ref); st != red {
			t.Errorf("%s style = %+v, want anchor style", ref, st)
		}
	}

	// One-time copy: restyling the anchor leaves placeholders alone.
	blue := styles.DefaultStyle()
	blue.Font.Color = styles.ARGB("0000FF")
	if err := ws.SetCellStyle("B2", blue); err != nil {
		t.Fatal(err)
	}
	if st, _ := ws.Style("C3"); st != red {
		t.Error("anchor style change propagated to a placeholder")
	}
}

func TestMergeSetForwardsToAnchor(t *testing.T) {
	ws := newSheet()
	_ = ws.SetNumber("A1", 1)
	if err := ws.MergeCells("A1:B1"); err != nil {
		t.Fatal(err)
	}
	if err := ws.SetNumber("B1", 5); err != nil {
		t.Fatal(err)
	}
	if v := mustCell(t, ws, "A1").Value; v != cell.Number(5) {
		t.Errorf("anchor = %v, want 5", v)
	}
	if mustCell(t, ws, "B1").Type() != cell.TypeMerge {
		t.Error("placeholder overwritten")
	}
}

func TestMergeOverlapRejected(t *testing.T) {
	ws := newSheet()
	if err := ws.MergeCells("B2:C3"); err != nil {
		t.Fatal(err)
	}
	if err := ws.MergeCells("C3:D4"); !errors.Is(err, worksheet.ErrOverlap) {
		t.Fatalf("err = %v, want ErrOverlap", err)
	}
	merges := ws.Merges()
	if len(merges) != 1 || merges[0].String() != "B2:C3" {
		t.Errorf("Merges() = %v", merges)
	}
	if mustCell(t, ws, "D4").Type() != cell.TypeNull {
		t.Error("failed merge touched D4")
	}
	if err := ws.MergeCells("nonsense"); !errors.Is(err, cell.ErrInvalidRange) {
		t.Errorf("bad range err = %v", err)
	}
}

func TestMergeTooLarge(t *testing.T) {
	ws := newSheet()
	whole, _ := cell.ParseRange("A1:XFD1048576")
	if err := ws.MergeCells(whole.String()); !errors.Is(err, worksheet.ErrMergeTooLarge) {
		t.Fatalf("MergeCells err = %v, want ErrMergeTooLarge", err)
	}
	err := ws.RestoreMerge(whole)
	if !errors.Is(err, worksheet.ErrMergeTooLarge) || !errors.Is(err, worksheet.ErrInvariant) {
		t.Fatalf("RestoreMerge err = %v, want ErrMergeTooLarge wrapping ErrInvariant", err)
	}
	if ws.CellCount() != 0 || len(ws.Merges()) != 0 {
		t.Fatalf("rejected merge left %d cells and %d regions", ws.CellCount(), len(ws.Merges()))
	}

	tall, _ := cell.ParseRange("A1:P65537")
	if tall.Size() <= worksheet.MaxMergedCells {
		t.Fatalf("tall.Size() = %d", tall.Size())
	}
	if err := ws.MergeCells(tall.String()); !errors.Is(err, worksheet.ErrMergeTooLarge) {
		t.Errorf("MergeCells(%s) err = %v, want ErrMergeTooLarge", tall, err)
	}
}

func TestUnmerge(t *testing.T) {
	ws := newSheet()
	_ = ws.SetString("A1", "x")
	if err := ws.MergeCells("A1:B2"); err != nil {
		t.Fatal(err)
	}
	italic := styles.DefaultStyle()
	italic.Font.Italic = true
	if err := ws.SetCellStyle("B2", italic); err != nil {
		t.Fatal(err)
	}
	if err := ws.UnmergeCells("A1:A2"); !errors.Is(err, worksheet.ErrNotMerged) {
		t.Errorf("partial unmerge err = %v, want ErrNotMerged", err)
	}
	if err := ws.UnmergeCells("A1:B2"); err != nil {
		t.Fatal(err)
	}
	if len(ws.Merges()) != 0 {
		t.Error("region not removed")
	}
	if mustCell(t, ws, "B2").Type() != cell.TypeNull {
		t.Error("placeholder not reverted to Null")
	}
	if st, _ := ws.Style("B2"); st != italic {
		t.Error("unmerge must keep the cell's own style")
	}
	if mustCell(t, ws, "A1").Type() != cell.TypeString {
		t.Error("anchor value lost")
	}
}

func TestRestoreMergeKeepsStyles(t *testing.T) {
	ws := newSheet()
	reg := ws.Styles()
	bold := styles.DefaultStyle()
	bold.Font.Bold = true
	bi := reg.Intern(bold)
	if err := ws.PutCell(cell.Cell{Row: 1, Col: 1, Value: cell.Number(1), Style: bi}); err != nil {
		t.Fatal(err)
	}
	if err := ws.PutCell(cell.Cell{Row: 1, Col: 2, Value: cell.Number(9), Style: 0}); err != nil {
		t.Fatal(err)
	}
	r, _ := cell.ParseRange("A1:C1")
	if err := ws.RestoreMerge(r); err != nil {
		t.Fatal(err)
	}
	if c := mustCell(t, ws, "B1"); c.Type() != cell.TypeMerge || c.Style != 0 {
		t.Errorf("B1 = %+v, want Merge keeping style 0", c)
	}
	if c := mustCell(t, ws, "C1"); c.Type() != cell.TypeMerge || c.Style != bi {
		t.Errorf("C1 = %+v, want Merge with anchor style", c)
	}
	if err := ws.PutCell(cell.Cell{Row: 2, Col: 1, Value: cell.Number(1), Style: 42}); !errors.Is(err, worksheet.ErrInvariant) {
		t.Errorf("PutCell dangling style err = %v", err)
	}
}
