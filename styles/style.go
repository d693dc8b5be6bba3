// Package styles holds cell-formatting records and the workbook-scoped
// registry that interns them.  A cell refers to its formatting by registry
// index only; equal records always share one index.
//
// Every record type in this package is a comparable value type so that a
// Style can be used directly as a map key.
package styles

import "strings"

// ColorKind selects which field of a Color is meaningful.
type ColorKind uint8

const (
	ColorUnset ColorKind = iota
	ColorARGB
	ColorTheme
	ColorIndexed
	ColorAuto
)

// Color is a font, fill or border colour.
type Color struct {
	Kind ColorKind
	// ARGB is an 8-digit upper-case hex value such as "FFFF0000".
	ARGB string
	// Index is the theme or palette index for ColorTheme and ColorIndexed.
	Index int
	// Tint lightens (positive) or darkens (negative) the base colour.
	Tint float64
}

// ARGB returns an explicit colour.  A 6-digit RGB value gets an opaque alpha
// channel.
func ARGB(hex string) Color {
	hex = strings.ToUpper(strings.TrimPrefix(hex, "#"))
	if len(hex) == 6 {
		hex = "FF" + hex
	}
	return Color{Kind: ColorARGB, ARGB: hex}
}

// ThemeColor returns a reference into the workbook theme palette.
func ThemeColor(i int) Color { return Color{Kind: ColorTheme, Index: i} }

// IndexedColor returns a reference into the legacy indexed palette.
func IndexedColor(i int) Color { return Color{Kind: ColorIndexed, Index: i} }

// AutoColor returns the automatic (system) colour.
func AutoColor() Color { return Color{Kind: ColorAuto} }

// Font describes character formatting.
type Font struct {
	Name   string
	Size   float64
	Family int
	Bold   bool
	Italic bool
	// Underline is "" for none, otherwise "single", "double",
	// "singleAccounting" or "doubleAccounting".
	Underline string
	Strike    bool
	Outline   bool
	Color     Color
}

// FillType discriminates the fill variants.
type FillType uint8

const (
	FillNone FillType = iota
	FillPattern
	FillGradient
)

// Fill is a cell background.  Pattern fills use Pattern ("solid",
// "gray125", ...) with foreground Fg and background Bg.  Gradient fills run
// from Fg to Bg at Degree.
type Fill struct {
	Type    FillType
	Pattern string
	Fg      Color
	Bg      Color
	Degree  float64
}

// SolidFill returns a solid pattern fill in c.
func SolidFill(c Color) Fill {
	return Fill{Type: FillPattern, Pattern: "solid", Fg: c, Bg: IndexedColor(64)}
}

// Edge is one side of a cell border.  An empty Style means no line.
type Edge struct {
	Style string
	Color Color
}

// Border is the set of cell edges.
type Border struct {
	Left, Right, Top, Bottom Edge
	Diagonal                 Edge
	DiagonalUp               bool
	DiagonalDown             bool
}

// Alignment controls text placement within a cell.
type Alignment struct {
	Horizontal   string
	Vertical     string
	WrapText     bool
	Indent       int
	TextRotation int
	ShrinkToFit  bool
}

// Style is the complete formatting of a cell.  NumFmt is the number format
// string; "" means General.
type Style struct {
	Font      Font
	Fill      Fill
	Border    Border
	Alignment Alignment
	NumFmt    string
}

// DefaultStyle is the style at registry index 0 of a new workbook.
func DefaultStyle() Style {
	return Style{
		Font: Font{Name: "Calibri", Size: 11, Family: 2, Color: ThemeColor(1)},
	}
}

// normalize returns the canonical form of s: the form styles.xml gives back
// after an encode and decode.  Registries store only canonical records.
func normalize(s Style) Style {
	if strings.EqualFold(s.NumFmt, "General") {
		s.NumFmt = ""
	}
	if s.Font.Underline == "none" {
		s.Font.Underline = ""
	}
	s.Font.Color = normalizeColor(s.Font.Color)
	s.Fill = normalizeFill(s.Fill)
	for _, e := range []*Edge{&s.Border.Left, &s.Border.Right, &s.Border.Top, &s.Border.Bottom, &s.Border.Diagonal} {
		e.Color = normalizeColor(e.Color)
	}
	return s
}

func normalizeColor(c Color) Color {
	switch c.Kind {
	case ColorARGB:
		if c.ARGB == "" {
			return Color{}
		}
		n := ARGB(c.ARGB)
		n.Tint = c.Tint
		return n
	case ColorTheme, ColorIndexed:
		return Color{Kind: c.Kind, Index: c.Index, Tint: c.Tint}
	case ColorAuto:
		return Color{Kind: ColorAuto}
	}
	return Color{}
}

func normalizeFill(f Fill) Fill {
	switch f.Type {
	case FillPattern:
		if f.Pattern == "" || f.Pattern == "none" {
			return Fill{}
		}
		return Fill{Type: FillPattern, Pattern: f.Pattern, Fg: normalizeColor(f.Fg), Bg: normalizeColor(f.Bg)}
	case FillGradient:
		return Fill{Type: FillGradient, Fg: normalizeColor(f.Fg), Bg: normalizeColor(f.Bg), Degree: f.Degree}
	}
	return Fill{}
}
