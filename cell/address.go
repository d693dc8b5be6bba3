// Package cell defines the value model of a worksheet cell and the "A1"
// address notation used to locate cells and ranges.
package cell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrInvalidAddress is returned when a string is not a valid "A1" address.
	ErrInvalidAddress = errors.New("cell: invalid address")
	// ErrInvalidRange is returned when a string is not a valid "A1:B2" range.
	ErrInvalidRange = errors.New("cell: invalid range")
)

// Sheet grid limits.
const (
	MaxRows    = excelize.TotalRows
	MaxColumns = excelize.MaxColumns
)

// Address is a 1-based (row, column) position.
type Address struct {
	Row int
	Col int
}

// ParseAddress parses an address such as "B3" or "$B$3".
func ParseAddress(s string) (Address, error) {
	col, row, err := excelize.CellNameToCoordinates(strings.ReplaceAll(strings.TrimSpace(s), "$", ""))
	if err != nil {
		return Address{}, fmt.Errorf("%w %q: %v", ErrInvalidAddress, s, err)
	}
	return Address{Row: row, Col: col}, nil
}

// MustParseAddress is like ParseAddress but panics on error.  Intended for
// literals in tests and initialisers.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Valid reports whether a lies inside the sheet grid.
func (a Address) Valid() bool {
	return a.Row >= 1 && a.Row <= MaxRows && a.Col >= 1 && a.Col <= MaxColumns
}

// String returns the "A1" form of a, or "" when a is not valid.
func (a Address) String() string {
	name, err := excelize.CoordinatesToCellName(a.Col, a.Row)
	if err != nil {
		return ""
	}
	return name
}

// ColumnName returns the letters for a 1-based column index ("A", "AA", ...).
func ColumnName(col int) (string, error) {
	return excelize.ColumnNumberToName(col)
}

// Range is a rectangular block of cells.  Start is the top-left corner and
// End the bottom-right corner, both inclusive.
type Range struct {
	Start Address
	End   Address
}

// ParseRange parses "B2:C3".  Reversed corners are normalised and a single
// address is accepted as a one-cell range.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 2 || parts[0] == "" {
		return Range{}, fmt.Errorf("%w %q", ErrInvalidRange, s)
	}
	a, err := ParseAddress(parts[0])
	if err != nil {
		return Range{}, fmt.Errorf("%w %q: %v", ErrInvalidRange, s, err)
	}
	b := a
	if len(parts) == 2 {
		if b, err = ParseAddress(parts[1]); err != nil {
			return Range{}, fmt.Errorf("%w %q: %v", ErrInvalidRange, s, err)
		}
	}
	return NewRange(a, b), nil
}

// NewRange returns the range spanned by two corners in any order.
func NewRange(a, b Address) Range {
	return Range{
		Start: Address{Row: min(a.Row, b.Row), Col: min(a.Col, b.Col)},
		End:   Address{Row: max(a.Row, b.Row), Col: max(a.Col, b.Col)},
	}
}

// String returns "B2:C3", or just "B2" for a single cell.
func (r Range) String() string {
	if r.Start == r.End {
		return r.Start.String()
	}
	return r.Start.String() + ":" + r.End.String()
}

// Contains reports whether a lies inside r.
func (r Range) Contains(a Address) bool {
	return a.Row >= r.Start.Row && a.Row <= r.End.Row &&
		a.Col >= r.Start.Col && a.Col <= r.End.Col
}

// Overlaps reports whether r and o share at least one cell.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Row <= o.End.Row && o.Start.Row <= r.End.Row &&
		r.Start.Col <= o.End.Col && o.Start.Col <= r.End.Col
}

// Size returns the number of cells in r.
func (r Range) Size() int {
	return (r.End.Row - r.Start.Row + 1) * (r.End.Col - r.Start.Col + 1)
}

// Each calls fn for every address of r in row-major order.
func (r Range) Each(fn func(Address)) {
	for row := r.Start.Row; row <= r.End.Row; row++ {
		for col := r.Start.Col; col <= r.End.Col; col++ {
			fn(Address{Row: row, Col: col})
		}
	}
}
