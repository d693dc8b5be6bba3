package cell

import "time"

// Type classifies the content of a cell.  It is always derived from the
// cell's Value and never stored on its own.
type Type int

const (
	TypeNull Type = iota
	TypeMerge
	TypeNumber
	TypeString
	TypeDate
	TypeHyperlink
	TypeFormula
	TypeBoolean
	TypeError
)

var typeNames = [...]string{
	TypeNull:      "Null",
	TypeMerge:     "Merge",
	TypeNumber:    "Number",
	TypeString:    "String",
	TypeDate:      "Date",
	TypeHyperlink: "Hyperlink",
	TypeFormula:   "Formula",
	TypeBoolean:   "Boolean",
	TypeError:     "Error",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "Unknown"
	}
	return typeNames[t]
}

// Value is the content of a cell.  The dynamic type is exactly one of:
//
//   - Null: no value
//   - Number: a double-precision number
//   - String: an index into the workbook's shared string table
//   - Bool: a boolean
//   - Date: a point in time, stored as a serial number on disk
//   - Hyperlink: display text (shared string index) plus a link target
//   - Formula: an expression and its cached result (never evaluated here)
//   - Merge: placeholder for a non-anchor cell of a merged region
//   - Error: an error code such as "#DIV/0!"
//
// Classification follows the variant, so a Formula stays a Formula whatever
// its cached result is, and a Merge placeholder is never anything else.
type Value interface {
	Type() Type
	isValue()
}

// Null is the empty value.
type Null struct{}

// Number is a plain numeric value.
type Number float64

// String references a shared string by its index in the workbook's table.
type String struct {
	Index int
}

// Bool is a boolean value.
type Bool bool

// Date is a date/time value.  On disk it is a serial number whose cell
// style carries a date-like number format.
type Date time.Time

// Hyperlink is a link cell.  Text is the shared string index of the display
// text; Target is a URL, or "#Sheet!A1" for a location inside the workbook.
type Hyperlink struct {
	Text   int
	Target string
}

// Formula stores an expression and an optional cached result.  Result is
// nil or one of Null, Number, String, Bool, Date, Error.
type Formula struct {
	Expr   string
	Result Value
}

// Merge marks a cell covered by a merged region whose top-left cell is
// Anchor.
type Merge struct {
	Anchor Address
}

// Error is an Excel error code.
type Error string

// Excel error codes.
const (
	ErrorNull  Error = "#NULL!"
	ErrorDiv0  Error = "#DIV/0!"
	ErrorValue Error = "#VALUE!"
	ErrorRef   Error = "#REF!"
	ErrorName  Error = "#NAME?"
	ErrorNum   Error = "#NUM!"
	ErrorNA    Error = "#N/A"
)

func (Null) Type() Type      { return TypeNull }
func (Number) Type() Type    { return TypeNumber }
func (String) Type() Type    { return TypeString }
func (Bool) Type() Type      { return TypeBoolean }
func (Date) Type() Type      { return TypeDate }
func (Hyperlink) Type() Type { return TypeHyperlink }
func (Formula) Type() Type   { return TypeFormula }
func (Merge) Type() Type     { return TypeMerge }
func (Error) Type() Type     { return TypeError }

func (Null) isValue()      {}
func (Number) isValue()    {}
func (String) isValue()    {}
func (Bool) isValue()      {}
func (Date) isValue()      {}
func (Hyperlink) isValue() {}
func (Formula) isValue()   {}
func (Merge) isValue()     {}
func (Error) isValue()     {}

// Time returns d as a time.Time.
func (d Date) Time() time.Time { return time.Time(d) }

// TypeOf returns the classification of v.  A nil Value is Null.
func TypeOf(v Value) Type {
	if v == nil {
		return TypeNull
	}
	return v.Type()
}

// IsNull reports whether v carries no value.
func IsNull(v Value) bool { return TypeOf(v) == TypeNull }

// ValidResult reports whether v may be stored as a formula's cached result.
func ValidResult(v Value) bool {
	switch v.(type) {
	case nil, Null, Number, String, Bool, Date, Error:
		return true
	}
	return false
}

// Equal reports whether a and b hold the same value.  Dates compare by
// instant; a nil Value equals Null.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch x := a.(type) {
	case Date:
		y, ok := b.(Date)
		return ok && x.Time().Equal(y.Time())
	case Formula:
		y, ok := b.(Formula)
		return ok && x.Expr == y.Expr && Equal(x.Result, y.Result)
	}
	return a == b
}

// Cell is a single populated worksheet position.
type Cell struct {
	// Row and Col are 1-based.
	Row int
	Col int
	// Value is never nil for a cell stored in a worksheet.
	Value Value
	// Style is an index into the workbook's style registry.
	Style int
}

// Type returns the classification of the cell's value.
func (c Cell) Type() Type { return TypeOf(c.Value) }

// Address returns the cell's position.
func (c Cell) Address() Address { return Address{Row: c.Row, Col: c.Col} }
