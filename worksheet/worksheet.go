// Package worksheet holds the in-memory model of one sheet: sparse rows of
// cells, column definitions, row and column default styles, and merged
// regions.
//
// A Worksheet shares the string table and style registry of the workbook that
// created it.  Every mutating method re-establishes the model invariants
// before it returns:
//
//   - a cell's type is always derived from its value
//   - a Date cell always carries a date-like number format
//   - string and style indices always resolve
//   - merged regions never overlap, and every non-anchor cell of a region
//     holds a Merge placeholder
package worksheet

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/TsubasaBE/go-xlsx/cell"
	"github.com/TsubasaBE/go-xlsx/numfmt"
	"github.com/TsubasaBE/go-xlsx/stringtable"
	"github.com/TsubasaBE/go-xlsx/styles"
)

var (
	// ErrInvariant is returned when a mutation would break a model invariant,
	// such as a value referencing a string that was never interned.
	ErrInvariant = errors.New("worksheet: structural invariant violation")
	// ErrOverlap is returned by MergeCells when the range intersects an
	// existing merged region.
	ErrOverlap = errors.New("worksheet: merge region overlaps an existing region")
	// ErrNotMerged is returned by UnmergeCells when no region matches.
	ErrNotMerged = errors.New("worksheet: range is not a merged region")
	// ErrMergeTooLarge is returned when merging a range would take the
	// sheet past MaxMergedCells.  It wraps ErrInvariant.
	ErrMergeTooLarge = fmt.Errorf("%w: merged regions too large", ErrInvariant)
)

// MaxMergedCells bounds the number of cells all merged regions of one sheet
// may cover.  Every covered cell is stored as a placeholder.
const MaxMergedCells = 1 << 20

// Row is one populated row.
type Row struct {
	// Index is the 1-based row number.
	Index int
	// Style is the default style index for cells created in this row.  It
	// applies only when HasStyle is set.
	Style    int
	HasStyle bool
	// Height is the row height in points; 0 means the sheet default.
	Height float64

	cells map[int]*cell.Cell
}

// Cells iterates over the row's cells in ascending column order.  The cells
// belong to the worksheet and must not be modified.
func (r *Row) Cells() func(yield func(*cell.Cell) bool) {
	return func(yield func(*cell.Cell) bool) {
		for _, col := range sortedKeys(r.cells) {
			if !yield(r.cells[col]) {
				return
			}
		}
	}
}

// Len returns the number of cells in the row.
func (r *Row) Len() int { return len(r.cells) }

// Column is a column definition.
type Column struct {
	// Index is the 1-based column number.
	Index int
	// Width is the column width in characters; 0 means the sheet default.
	Width float64
	// Style is the default style index for cells created in this column.  It
	// applies only when HasStyle is set.
	Style    int
	HasStyle bool
}

// Worksheet is one sheet of a workbook.
type Worksheet struct {
	name    string
	rows    map[int]*Row
	cols    map[int]*Column
	merges  []cell.Range
	// merged counts the cells covered by merges.
	merged  int
	strings *stringtable.Table
	styles  *styles.Registry
}

// New returns an empty worksheet bound to the given workbook tables.
func New(name string, st *stringtable.Table, reg *styles.Registry) *Worksheet {
	return &Worksheet{
		name:    name,
		rows:    make(map[int]*Row),
		cols:    make(map[int]*Column),
		strings: st,
		styles:  reg,
	}
}

// Clone returns a deep copy of ws bound to st and reg, which must assign
// the same indices as the tables of ws (see stringtable.Table.Clone and
// styles.Registry.Clone).
func (ws *Worksheet) Clone(st *stringtable.Table, reg *styles.Registry) *Worksheet {
	c := New(ws.name, st, reg)
	for idx, r := range ws.rows {
		nr := *r
		nr.cells = make(map[int]*cell.Cell, len(r.cells))
		for col, cl := range r.cells {
			cp := *cl
			nr.cells[col] = &cp
		}
		c.rows[idx] = &nr
	}
	for idx, col := range ws.cols {
		cp := *col
		c.cols[idx] = &cp
	}
	c.merges = slices.Clone(ws.merges)
	c.merged = ws.merged
	return c
}

// Name returns the sheet name.
func (ws *Worksheet) Name() string { return ws.name }

// Strings returns the shared string table the sheet interns into.
func (ws *Worksheet) Strings() *stringtable.Table { return ws.strings }

// Styles returns the style registry the sheet interns into.
func (ws *Worksheet) Styles() *styles.Registry { return ws.styles }

// Intern adds text to the shared string table and returns it as a value.
func (ws *Worksheet) Intern(text string) cell.String {
	return cell.String{Index: ws.strings.Intern(text)}
}

// ── Mutation ──────────────────────────────────────────────────────────────────

// SetValue assigns v to the cell at ref.  A nil v is Null.  Assigning to a
// non-anchor cell of a merged region assigns the anchor instead.
func (ws *Worksheet) SetValue(ref string, v cell.Value) error {
	a, err := parseRef(ref)
	if err != nil {
		return err
	}
	return ws.SetValueAt(a.Row, a.Col, v)
}

// SetValueAt is SetValue with numeric coordinates.
func (ws *Worksheet) SetValueAt(row, col int, v cell.Value) error {
	a := cell.Address{Row: row, Col: col}
	if !a.Valid() {
		return fmt.Errorf("worksheet %q: %w: row %d col %d", ws.name, cell.ErrInvalidAddress, row, col)
	}
	if v == nil {
		v = cell.Null{}
	}
	v = normalizeValue(v)
	if err := ws.checkValue(v); err != nil {
		return err
	}
	if region, ok := ws.MergeAt(a); ok {
		a = region.Start
	}
	c := ws.materialize(a)
	c.Value = v
	return ws.ensureDateStyle(c)
}

// SetNumber assigns a number.
func (ws *Worksheet) SetNumber(ref string, f float64) error {
	return ws.SetValue(ref, cell.Number(f))
}

// SetString interns s and assigns it.
func (ws *Worksheet) SetString(ref string, s string) error {
	return ws.SetValue(ref, ws.Intern(s))
}

// SetBool assigns a boolean.
func (ws *Worksheet) SetBool(ref string, b bool) error {
	return ws.SetValue(ref, cell.Bool(b))
}

// SetDate assigns a date, rounded to the millisecond.  The cell's style
// gets a date number format when it has none.
func (ws *Worksheet) SetDate(ref string, t time.Time) error {
	return ws.SetValue(ref, cell.Date(t))
}

// SetHyperlink assigns a link with display text and target.
func (ws *Worksheet) SetHyperlink(ref, text, target string) error {
	return ws.SetValue(ref, cell.Hyperlink{Text: ws.strings.Intern(text), Target: target})
}

// SetFormula assigns a formula with an optional cached result.  A leading
// "=" is dropped; otherwise the expression is stored verbatim and never
// evaluated.  An empty expression is rejected.
func (ws *Worksheet) SetFormula(ref, expr string, result cell.Value) error {
	return ws.SetValue(ref, cell.Formula{Expr: expr, Result: result})
}

// SetError assigns an error code.
func (ws *Worksheet) SetError(ref string, code cell.Error) error {
	return ws.SetValue(ref, code)
}

// Clear empties the cell at ref.  Outside merged regions the cell is
// removed together with its style.  Inside a region the anchor's value is
// reset and every cell keeps its style.
func (ws *Worksheet) Clear(ref string) error {
	a, err := parseRef(ref)
	if err != nil {
		return err
	}
	if region, ok := ws.MergeAt(a); ok {
		if c := ws.lookup(region.Start); c != nil {
			c.Value = cell.Null{}
		}
		return nil
	}
	if r, ok := ws.rows[a.Row]; ok {
		delete(r.cells, a.Col)
	}
	return nil
}

// SetCellStyle interns s and applies it to the cell at ref, creating an
// empty cell when needed.
func (ws *Worksheet) SetCellStyle(ref string, s styles.Style) error {
	a, err := parseRef(ref)
	if err != nil {
		return err
	}
	return ws.setStyleIndex(a, ws.styles.Intern(s))
}

// SetCellStyleIndex applies an already interned style to the cell at ref.
func (ws *Worksheet) SetCellStyleIndex(ref string, idx int) error {
	a, err := parseRef(ref)
	if err != nil {
		return err
	}
	if _, err := ws.styles.Resolve(idx); err != nil {
		return fmt.Errorf("worksheet %q: %w: %w", ws.name, ErrInvariant, err)
	}
	return ws.setStyleIndex(a, idx)
}

func (ws *Worksheet) setStyleIndex(a cell.Address, idx int) error {
	c := ws.materialize(a)
	c.Style = idx
	return ws.ensureDateStyle(c)
}

// SetRowStyle interns s as the default style of row.  It affects cells
// created afterwards only.
func (ws *Worksheet) SetRowStyle(row int, s styles.Style) error {
	return ws.SetRowStyleIndex(row, ws.styles.Intern(s))
}

// SetRowStyleIndex sets an already interned default style for row.
func (ws *Worksheet) SetRowStyleIndex(row, idx int) error {
	r, err := ws.row(row)
	if err != nil {
		return err
	}
	if _, err := ws.styles.Resolve(idx); err != nil {
		return fmt.Errorf("worksheet %q: %w: %w", ws.name, ErrInvariant, err)
	}
	r.Style, r.HasStyle = idx, true
	return nil
}

// SetRowHeight sets the height of row in points.
func (ws *Worksheet) SetRowHeight(row int, height float64) error {
	r, err := ws.row(row)
	if err != nil {
		return err
	}
	r.Height = height
	return nil
}

// SetColumnStyle interns s as the default style of col.  It affects cells
// created afterwards only.
func (ws *Worksheet) SetColumnStyle(col int, s styles.Style) error {
	return ws.SetColumnStyleIndex(col, ws.styles.Intern(s))
}

// SetColumnStyleIndex sets an already interned default style for col.
func (ws *Worksheet) SetColumnStyleIndex(col, idx int) error {
	c, err := ws.column(col)
	if err != nil {
		return err
	}
	if _, err := ws.styles.Resolve(idx); err != nil {
		return fmt.Errorf("worksheet %q: %w: %w", ws.name, ErrInvariant, err)
	}
	c.Style, c.HasStyle = idx, true
	return nil
}

// SetColumnWidth sets the width of col in characters.
func (ws *Worksheet) SetColumnWidth(col int, width float64) error {
	c, err := ws.column(col)
	if err != nil {
		return err
	}
	c.Width = width
	return nil
}

// PutCell stores a fully resolved cell as is.  It is meant for decoders that
// already know each cell's style index: no default style resolution, merge
// forwarding or date-format adjustment takes place.  Indices are still
// validated.
func (ws *Worksheet) PutCell(c cell.Cell) error {
	a := c.Address()
	if !a.Valid() {
		return fmt.Errorf("worksheet %q: %w: row %d col %d", ws.name, cell.ErrInvalidAddress, c.Row, c.Col)
	}
	if c.Value == nil {
		c.Value = cell.Null{}
	}
	c.Value = normalizeValue(c.Value)
	if err := ws.checkValue(c.Value); err != nil {
		return err
	}
	if _, err := ws.styles.Resolve(c.Style); err != nil {
		return fmt.Errorf("worksheet %q: cell %s: %w: %w", ws.name, a, ErrInvariant, err)
	}
	r, err := ws.row(c.Row)
	if err != nil {
		return err
	}
	stored := c
	r.cells[c.Col] = &stored
	return nil
}

// ── Reading ───────────────────────────────────────────────────────────────────

// Cell returns a copy of the cell at ref.  An unpopulated position yields a
// Null cell whose style is the row or column default, or 0.
func (ws *Worksheet) Cell(ref string) (cell.Cell, error) {
	a, err := parseRef(ref)
	if err != nil {
		return cell.Cell{}, err
	}
	return ws.CellAt(a.Row, a.Col), nil
}

// CellAt is Cell with numeric coordinates.
func (ws *Worksheet) CellAt(row, col int) cell.Cell {
	a := cell.Address{Row: row, Col: col}
	if c := ws.lookup(a); c != nil {
		return *c
	}
	return cell.Cell{Row: row, Col: col, Value: cell.Null{}, Style: ws.defaultStyle(a)}
}

// DefaultStyleAt returns the style a cell created at (row, col) would get:
// the row default, then the column default, then 0.
func (ws *Worksheet) DefaultStyleAt(row, col int) int {
	return ws.defaultStyle(cell.Address{Row: row, Col: col})
}

// Effective returns the value shown at ref: the anchor's value for a merge
// placeholder, the cell's own value otherwise.
func (ws *Worksheet) Effective(ref string) (cell.Value, error) {
	c, err := ws.Cell(ref)
	if err != nil {
		return nil, err
	}
	if m, ok := c.Value.(cell.Merge); ok {
		return ws.CellAt(m.Anchor.Row, m.Anchor.Col).Value, nil
	}
	return c.Value, nil
}

// Style returns the resolved style record of the cell at ref.
func (ws *Worksheet) Style(ref string) (styles.Style, error) {
	c, err := ws.Cell(ref)
	if err != nil {
		return styles.Style{}, err
	}
	return ws.styles.Resolve(c.Style)
}

// Text returns the text of a String, Hyperlink, or Formula-with-String-result
// value.
func (ws *Worksheet) Text(v cell.Value) (string, error) {
	switch x := v.(type) {
	case cell.String:
		return ws.strings.Text(x.Index)
	case cell.Hyperlink:
		return ws.strings.Text(x.Text)
	case cell.Formula:
		if s, ok := x.Result.(cell.String); ok {
			return ws.strings.Text(s.Index)
		}
	}
	return "", fmt.Errorf("worksheet: %v value has no text", cell.TypeOf(v))
}

// Row returns the row with index row, or nil when it is not populated.
func (ws *Worksheet) Row(row int) *Row { return ws.rows[row] }

// Rows iterates over populated rows in ascending order.  Rows that carry
// only a style or height are included.
func (ws *Worksheet) Rows() func(yield func(*Row) bool) {
	return func(yield func(*Row) bool) {
		for _, idx := range sortedKeys(ws.rows) {
			if !yield(ws.rows[idx]) {
				return
			}
		}
	}
}

// Column returns the definition of col, or nil.
func (ws *Worksheet) Column(col int) *Column { return ws.cols[col] }

// Columns iterates over column definitions in ascending order.
func (ws *Worksheet) Columns() func(yield func(*Column) bool) {
	return func(yield func(*Column) bool) {
		for _, idx := range sortedKeys(ws.cols) {
			if !yield(ws.cols[idx]) {
				return
			}
		}
	}
}

// Dimension returns the smallest range covering every populated cell.  ok is
// false for a sheet without cells.
func (ws *Worksheet) Dimension() (r cell.Range, ok bool) {
	for _, row := range ws.rows {
		for col := range row.cells {
			a := cell.Address{Row: row.Index, Col: col}
			if !ok {
				r, ok = cell.Range{Start: a, End: a}, true
				continue
			}
			r = cell.NewRange(
				cell.Address{Row: min(r.Start.Row, a.Row), Col: min(r.Start.Col, a.Col)},
				cell.Address{Row: max(r.End.Row, a.Row), Col: max(r.End.Col, a.Col)},
			)
		}
	}
	return r, ok
}

// CellCount returns the number of populated cells.
func (ws *Worksheet) CellCount() int {
	n := 0
	for _, r := range ws.rows {
		n += len(r.cells)
	}
	return n
}

// ── internal ─────────────────────────────────────────────────────────────────

func parseRef(ref string) (cell.Address, error) {
	a, err := cell.ParseAddress(ref)
	if err != nil {
		return a, err
	}
	if !a.Valid() {
		return a, fmt.Errorf("%w %q", cell.ErrInvalidAddress, ref)
	}
	return a, nil
}

func (ws *Worksheet) row(idx int) (*Row, error) {
	if idx < 1 || idx > cell.MaxRows {
		return nil, fmt.Errorf("worksheet %q: %w: row %d", ws.name, cell.ErrInvalidAddress, idx)
	}
	r, ok := ws.rows[idx]
	if !ok {
		r = &Row{Index: idx, cells: make(map[int]*cell.Cell)}
		ws.rows[idx] = r
	}
	return r, nil
}

func (ws *Worksheet) column(idx int) (*Column, error) {
	if idx < 1 || idx > cell.MaxColumns {
		return nil, fmt.Errorf("worksheet %q: %w: column %d", ws.name, cell.ErrInvalidAddress, idx)
	}
	c, ok := ws.cols[idx]
	if !ok {
		c = &Column{Index: idx}
		ws.cols[idx] = c
	}
	return c, nil
}

func (ws *Worksheet) lookup(a cell.Address) *cell.Cell {
	if r, ok := ws.rows[a.Row]; ok {
		return r.cells[a.Col]
	}
	return nil
}

// defaultStyle resolves the style of a cell created at a: row default, then
// column default, then 0.
func (ws *Worksheet) defaultStyle(a cell.Address) int {
	if r, ok := ws.rows[a.Row]; ok && r.HasStyle {
		return r.Style
	}
	if c, ok := ws.cols[a.Col]; ok && c.HasStyle {
		return c.Style
	}
	return 0
}

// materialize returns the cell at a, creating a Null cell with the default
// style when the position is empty.  a must be valid.
func (ws *Worksheet) materialize(a cell.Address) *cell.Cell {
	if c := ws.lookup(a); c != nil {
		return c
	}
	r, _ := ws.row(a.Row)
	c := &cell.Cell{Row: a.Row, Col: a.Col, Value: cell.Null{}, Style: ws.defaultStyle(a)}
	r.cells[a.Col] = c
	return c
}

func (ws *Worksheet) checkString(i int) error {
	if _, err := ws.strings.Text(i); err != nil {
		return fmt.Errorf("worksheet %q: %w: %w", ws.name, ErrInvariant, err)
	}
	return nil
}

// checkValue rejects values whose indices do not resolve and Merge values,
// which only MergeCells may create.
func (ws *Worksheet) checkValue(v cell.Value) error {
	switch x := v.(type) {
	case cell.String:
		return ws.checkString(x.Index)
	case cell.Hyperlink:
		return ws.checkString(x.Text)
	case cell.Formula:
		if strings.TrimSpace(x.Expr) == "" {
			return fmt.Errorf("worksheet %q: %w: empty formula expression", ws.name, ErrInvariant)
		}
		if !cell.ValidResult(x.Result) {
			return fmt.Errorf("worksheet %q: %w: formula result of type %v", ws.name, ErrInvariant, cell.TypeOf(x.Result))
		}
		if s, ok := x.Result.(cell.String); ok {
			return ws.checkString(s.Index)
		}
	case cell.Merge:
		return fmt.Errorf("worksheet %q: %w: merge placeholders are created by MergeCells", ws.name, ErrInvariant)
	}
	return nil
}

// normalizeValue brings v into its stored form: dates are rounded to the
// millisecond and formula expressions lose a leading "=".
func normalizeValue(v cell.Value) cell.Value {
	switch x := v.(type) {
	case cell.Date:
		return cell.Date(x.Time().Round(time.Millisecond))
	case cell.Formula:
		x.Expr = strings.TrimPrefix(x.Expr, "=")
		if d, ok := x.Result.(cell.Date); ok {
			x.Result = cell.Date(d.Time().Round(time.Millisecond))
		}
		return x
	}
	return v
}

func holdsDate(v cell.Value) bool {
	switch x := v.(type) {
	case cell.Date:
		return true
	case cell.Formula:
		_, ok := x.Result.(cell.Date)
		return ok
	}
	return false
}

// ensureDateStyle gives a date cell a date number format when its style has
// none.  Other attributes of the style are kept.
func (ws *Worksheet) ensureDateStyle(c *cell.Cell) error {
	if !holdsDate(c.Value) || ws.styles.IsDate(c.Style) {
		return nil
	}
	idx, err := ws.styles.WithNumFmt(c.Style, numfmt.DefaultDateFormat)
	if err != nil {
		return fmt.Errorf("worksheet %q: cell %s: %w: %w", ws.name, c.Address(), ErrInvariant, err)
	}
	if !ws.styles.IsDate(idx) {
		return fmt.Errorf("worksheet %q: cell %s: %w: recognizer rejects %q", ws.name, c.Address(), ErrInvariant, numfmt.DefaultDateFormat)
	}
	c.Style = idx
	return nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
