package styles

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/TsubasaBE/go-xlsx/numfmt"
)

const mainNS = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"

// ── xl/styles.xml mapping ─────────────────────────────────────────────────────
//
// One set of structs serves both directions.  Field order is the schema's
// child order, which encoding/xml preserves on output.

type xmlStyleSheet struct {
	XMLName      xml.Name        `xml:"styleSheet"`
	XMLNS        string          `xml:"xmlns,attr,omitempty"`
	NumFmts      *xmlNumFmts     `xml:"numFmts"`
	Fonts        xmlFonts        `xml:"fonts"`
	Fills        xmlFills        `xml:"fills"`
	Borders      xmlBorders      `xml:"borders"`
	CellStyleXfs *xmlXfs         `xml:"cellStyleXfs"`
	CellXfs      xmlXfs          `xml:"cellXfs"`
	CellStyles   *xmlCellStyles  `xml:"cellStyles"`
	Dxfs         *xmlCountedList `xml:"dxfs"`
}

type xmlNumFmts struct {
	Count   int         `xml:"count,attr"`
	NumFmts []xmlNumFmt `xml:"numFmt"`
}

type xmlNumFmt struct {
	ID         int    `xml:"numFmtId,attr"`
	FormatCode string `xml:"formatCode,attr"`
}

type xmlVal struct {
	Val string `xml:"val,attr,omitempty"`
}

type xmlColor struct {
	Auto    string  `xml:"auto,attr,omitempty"`
	Indexed *int    `xml:"indexed,attr"`
	RGB     string  `xml:"rgb,attr,omitempty"`
	Theme   *int    `xml:"theme,attr"`
	Tint    float64 `xml:"tint,attr,omitempty"`
}

type xmlFonts struct {
	Count int       `xml:"count,attr"`
	Fonts []xmlFont `xml:"font"`
}

type xmlFont struct {
	B       *xmlVal   `xml:"b"`
	I       *xmlVal   `xml:"i"`
	Strike  *xmlVal   `xml:"strike"`
	Outline *xmlVal   `xml:"outline"`
	U       *xmlVal   `xml:"u"`
	Sz      *xmlVal   `xml:"sz"`
	Color   *xmlColor `xml:"color"`
	Name    *xmlVal   `xml:"name"`
	Family  *xmlVal   `xml:"family"`
}

type xmlFills struct {
	Count int       `xml:"count,attr"`
	Fills []xmlFill `xml:"fill"`
}

type xmlFill struct {
	Pattern  *xmlPatternFill  `xml:"patternFill"`
	Gradient *xmlGradientFill `xml:"gradientFill"`
}

type xmlPatternFill struct {
	PatternType string    `xml:"patternType,attr,omitempty"`
	FgColor     *xmlColor `xml:"fgColor"`
	BgColor     *xmlColor `xml:"bgColor"`
}

type xmlGradientFill struct {
	Degree float64           `xml:"degree,attr,omitempty"`
	Stops  []xmlGradientStop `xml:"stop"`
}

type xmlGradientStop struct {
	Position float64  `xml:"position,attr"`
	Color    xmlColor `xml:"color"`
}

type xmlBorders struct {
	Count   int         `xml:"count,attr"`
	Borders []xmlBorder `xml:"border"`
}

type xmlBorder struct {
	DiagonalUp   bool     `xml:"diagonalUp,attr,omitempty"`
	DiagonalDown bool     `xml:"diagonalDown,attr,omitempty"`
	Left         *xmlEdge `xml:"left"`
	Right        *xmlEdge `xml:"right"`
	Top          *xmlEdge `xml:"top"`
	Bottom       *xmlEdge `xml:"bottom"`
	Diagonal     *xmlEdge `xml:"diagonal"`
}

type xmlEdge struct {
	Style string    `xml:"style,attr,omitempty"`
	Color *xmlColor `xml:"color"`
}

type xmlXfs struct {
	Count int     `xml:"count,attr"`
	Xfs   []xmlXf `xml:"xf"`
}

type xmlXf struct {
	NumFmtID          int           `xml:"numFmtId,attr"`
	FontID            int           `xml:"fontId,attr"`
	FillID            int           `xml:"fillId,attr"`
	BorderID          int           `xml:"borderId,attr"`
	XfID              *int          `xml:"xfId,attr"`
	ApplyNumberFormat string        `xml:"applyNumberFormat,attr,omitempty"`
	ApplyFont         string        `xml:"applyFont,attr,omitempty"`
	ApplyFill         string        `xml:"applyFill,attr,omitempty"`
	ApplyBorder       string        `xml:"applyBorder,attr,omitempty"`
	ApplyAlignment    string        `xml:"applyAlignment,attr,omitempty"`
	Alignment         *xmlAlignment `xml:"alignment"`
}

type xmlAlignment struct {
	Horizontal   string `xml:"horizontal,attr,omitempty"`
	Vertical     string `xml:"vertical,attr,omitempty"`
	TextRotation int    `xml:"textRotation,attr,omitempty"`
	WrapText     bool   `xml:"wrapText,attr,omitempty"`
	Indent       int    `xml:"indent,attr,omitempty"`
	ShrinkToFit  bool   `xml:"shrinkToFit,attr,omitempty"`
}

type xmlCellStyles struct {
	Count  int            `xml:"count,attr"`
	Styles []xmlCellStyle `xml:"cellStyle"`
}

type xmlCellStyle struct {
	Name      string `xml:"name,attr"`
	XfID      int    `xml:"xfId,attr"`
	BuiltinID *int   `xml:"builtinId,attr"`
}

type xmlCountedList struct {
	Count int `xml:"count,attr"`
}

// ── Decode ────────────────────────────────────────────────────────────────────

// Decode builds a Registry from the bytes of xl/styles.xml.  Each cellXfs
// entry becomes one registry index in file order, without deduplication, so
// the indices stored in worksheet cells stay valid.  A nil recogniser means
// the default.
func Decode(data []byte, rec *numfmt.Recognizer) (*Registry, error) {
	var ss xmlStyleSheet
	if err := xml.Unmarshal(data, &ss); err != nil {
		return nil, fmt.Errorf("styles: decode: %w", err)
	}

	custom := make(map[int]string)
	if ss.NumFmts != nil {
		for _, nf := range ss.NumFmts.NumFmts {
			custom[nf.ID] = nf.FormatCode
		}
	}

	r := newEmpty()
	r.SetRecognizer(rec)
	for i, xf := range ss.CellXfs.Xfs {
		s, err := resolveXf(&ss, xf, custom)
		if err != nil {
			return nil, fmt.Errorf("styles: cellXfs[%d]: %w", i, err)
		}
		r.add(normalize(s))
	}
	if r.Len() == 0 {
		r.add(DefaultStyle())
	}
	return r, nil
}

func resolveXf(ss *xmlStyleSheet, xf xmlXf, custom map[int]string) (Style, error) {
	var s Style
	if xf.FontID < 0 || xf.FontID >= len(ss.Fonts.Fonts) {
		return s, fmt.Errorf("%w: fontId %d (have %d fonts)", ErrDanglingReference, xf.FontID, len(ss.Fonts.Fonts))
	}
	if xf.FillID < 0 || xf.FillID >= len(ss.Fills.Fills) {
		return s, fmt.Errorf("%w: fillId %d (have %d fills)", ErrDanglingReference, xf.FillID, len(ss.Fills.Fills))
	}
	if xf.BorderID < 0 || xf.BorderID >= len(ss.Borders.Borders) {
		return s, fmt.Errorf("%w: borderId %d (have %d borders)", ErrDanglingReference, xf.BorderID, len(ss.Borders.Borders))
	}
	if _, ok := custom[xf.NumFmtID]; !ok && xf.NumFmtID >= numfmt.FirstCustomID {
		return s, fmt.Errorf("%w: numFmtId %d", ErrDanglingReference, xf.NumFmtID)
	}

	s.Font = fontFromXML(ss.Fonts.Fonts[xf.FontID])
	s.Fill = fillFromXML(ss.Fills.Fills[xf.FillID])
	s.Border = borderFromXML(ss.Borders.Borders[xf.BorderID])
	s.NumFmt = numfmt.Lookup(xf.NumFmtID, custom)
	if a := xf.Alignment; a != nil {
		s.Alignment = Alignment{
			Horizontal:   a.Horizontal,
			Vertical:     a.Vertical,
			WrapText:     a.WrapText,
			Indent:       a.Indent,
			TextRotation: a.TextRotation,
			ShrinkToFit:  a.ShrinkToFit,
		}
	}
	return s, nil
}

// flag reads a CT_BooleanProperty: present means true unless val says
// otherwise.
func flag(v *xmlVal) bool {
	if v == nil {
		return false
	}
	switch v.Val {
	case "0", "false":
		return false
	}
	return true
}

func colorFromXML(c *xmlColor) Color {
	switch {
	case c == nil:
		return Color{}
	case c.RGB != "":
		col := ARGB(c.RGB)
		col.Tint = c.Tint
		return col
	case c.Theme != nil:
		return Color{Kind: ColorTheme, Index: *c.Theme, Tint: c.Tint}
	case c.Indexed != nil:
		return Color{Kind: ColorIndexed, Index: *c.Indexed, Tint: c.Tint}
	case c.Auto == "1" || c.Auto == "true":
		return Color{Kind: ColorAuto}
	}
	return Color{}
}

func fontFromXML(x xmlFont) Font {
	f := Font{
		Bold:    flag(x.B),
		Italic:  flag(x.I),
		Strike:  flag(x.Strike),
		Outline: flag(x.Outline),
		Color:   colorFromXML(x.Color),
	}
	if x.U != nil {
		f.Underline = x.U.Val
		if f.Underline == "" {
			f.Underline = "single"
		} else if f.Underline == "none" {
			f.Underline = ""
		}
	}
	if x.Sz != nil {
		f.Size, _ = strconv.ParseFloat(x.Sz.Val, 64)
	}
	if x.Name != nil {
		f.Name = x.Name.Val
	}
	if x.Family != nil {
		f.Family, _ = strconv.Atoi(x.Family.Val)
	}
	return f
}

func fillFromXML(x xmlFill) Fill {
	switch {
	case x.Gradient != nil:
		f := Fill{Type: FillGradient, Degree: x.Gradient.Degree}
		if n := len(x.Gradient.Stops); n > 0 {
			f.Fg = colorFromXML(&x.Gradient.Stops[0].Color)
			f.Bg = colorFromXML(&x.Gradient.Stops[n-1].Color)
		}
		return f
	case x.Pattern != nil && x.Pattern.PatternType != "" && x.Pattern.PatternType != "none":
		return Fill{
			Type:    FillPattern,
			Pattern: x.Pattern.PatternType,
			Fg:      colorFromXML(x.Pattern.FgColor),
			Bg:      colorFromXML(x.Pattern.BgColor),
		}
	}
	return Fill{}
}

func edgeFromXML(e *xmlEdge) Edge {
	if e == nil {
		return Edge{}
	}
	return Edge{Style: e.Style, Color: colorFromXML(e.Color)}
}

func borderFromXML(x xmlBorder) Border {
	return Border{
		Left:         edgeFromXML(x.Left),
		Right:        edgeFromXML(x.Right),
		Top:          edgeFromXML(x.Top),
		Bottom:       edgeFromXML(x.Bottom),
		Diagonal:     edgeFromXML(x.Diagonal),
		DiagonalUp:   x.DiagonalUp,
		DiagonalDown: x.DiagonalDown,
	}
}

// ── Encode ────────────────────────────────────────────────────────────────────

// Encode writes the registry as xl/styles.xml.  Fonts, fills, borders and
// number formats are deduplicated into their sub-tables; cellXfs holds one
// entry per registry index in registry order.
func (r *Registry) Encode(w io.Writer) error {
	ss := xmlStyleSheet{XMLNS: mainNS}

	fonts := map[Font]int{}
	fills := map[Fill]int{
		{}: 0,
		{Type: FillPattern, Pattern: "gray125"}: 1,
	}
	ss.Fills.Fills = []xmlFill{
		{Pattern: &xmlPatternFill{PatternType: "none"}},
		{Pattern: &xmlPatternFill{PatternType: "gray125"}},
	}
	borders := map[Border]int{}
	customFmts := map[string]int{}
	nextFmt := numfmt.FirstCustomID

	for _, s := range r.styles {
		fontID, ok := fonts[s.Font]
		if !ok {
			fontID = len(ss.Fonts.Fonts)
			fonts[s.Font] = fontID
			ss.Fonts.Fonts = append(ss.Fonts.Fonts, fontToXML(s.Font))
		}
		fillID, ok := fills[s.Fill]
		if !ok {
			fillID = len(ss.Fills.Fills)
			fills[s.Fill] = fillID
			ss.Fills.Fills = append(ss.Fills.Fills, fillToXML(s.Fill))
		}
		borderID, ok := borders[s.Border]
		if !ok {
			borderID = len(ss.Borders.Borders)
			borders[s.Border] = borderID
			ss.Borders.Borders = append(ss.Borders.Borders, borderToXML(s.Border))
		}
		fmtID, ok := numfmt.BuiltInID(s.NumFmt)
		if !ok {
			if fmtID, ok = customFmts[s.NumFmt]; !ok {
				fmtID = nextFmt
				nextFmt++
				customFmts[s.NumFmt] = fmtID
				if ss.NumFmts == nil {
					ss.NumFmts = &xmlNumFmts{}
				}
				ss.NumFmts.NumFmts = append(ss.NumFmts.NumFmts, xmlNumFmt{ID: fmtID, FormatCode: s.NumFmt})
			}
		}

		xf := xmlXf{NumFmtID: fmtID, FontID: fontID, FillID: fillID, BorderID: borderID, XfID: intPtr(0)}
		if fmtID != 0 {
			xf.ApplyNumberFormat = "1"
		}
		if fontID != 0 {
			xf.ApplyFont = "1"
		}
		if fillID != 0 {
			xf.ApplyFill = "1"
		}
		if borderID != 0 {
			xf.ApplyBorder = "1"
		}
		if s.Alignment != (Alignment{}) {
			xf.ApplyAlignment = "1"
			xf.Alignment = &xmlAlignment{
				Horizontal:   s.Alignment.Horizontal,
				Vertical:     s.Alignment.Vertical,
				TextRotation: s.Alignment.TextRotation,
				WrapText:     s.Alignment.WrapText,
				Indent:       s.Alignment.Indent,
				ShrinkToFit:  s.Alignment.ShrinkToFit,
			}
		}
		ss.CellXfs.Xfs = append(ss.CellXfs.Xfs, xf)
	}
	if len(ss.Fonts.Fonts) == 0 {
		ss.Fonts.Fonts = append(ss.Fonts.Fonts, fontToXML(DefaultStyle().Font))
	}
	if len(ss.Borders.Borders) == 0 {
		ss.Borders.Borders = append(ss.Borders.Borders, borderToXML(Border{}))
	}

	if ss.NumFmts != nil {
		ss.NumFmts.Count = len(ss.NumFmts.NumFmts)
	}
	ss.Fonts.Count = len(ss.Fonts.Fonts)
	ss.Fills.Count = len(ss.Fills.Fills)
	ss.Borders.Count = len(ss.Borders.Borders)
	ss.CellXfs.Count = len(ss.CellXfs.Xfs)
	ss.CellStyleXfs = &xmlXfs{Count: 1, Xfs: []xmlXf{{}}}
	ss.CellStyles = &xmlCellStyles{
		Count:  1,
		Styles: []xmlCellStyle{{Name: "Normal", XfID: 0, BuiltinID: intPtr(0)}},
	}
	ss.Dxfs = &xmlCountedList{}

	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	enc := xml.NewEncoder(bw)
	if err := enc.Encode(&ss); err != nil {
		return fmt.Errorf("styles: encode: %w", err)
	}
	return bw.Flush()
}

func intPtr(i int) *int { return &i }

func colorToXML(c Color) *xmlColor {
	switch c.Kind {
	case ColorARGB:
		return &xmlColor{RGB: c.ARGB, Tint: c.Tint}
	case ColorTheme:
		return &xmlColor{Theme: intPtr(c.Index), Tint: c.Tint}
	case ColorIndexed:
		return &xmlColor{Indexed: intPtr(c.Index), Tint: c.Tint}
	case ColorAuto:
		return &xmlColor{Auto: "1"}
	}
	return nil
}

func fontToXML(f Font) xmlFont {
	var x xmlFont
	on := func(b bool) *xmlVal {
		if b {
			return &xmlVal{}
		}
		return nil
	}
	x.B, x.I, x.Strike, x.Outline = on(f.Bold), on(f.Italic), on(f.Strike), on(f.Outline)
	switch f.Underline {
	case "":
	case "single":
		x.U = &xmlVal{}
	default:
		x.U = &xmlVal{Val: f.Underline}
	}
	if f.Size != 0 {
		x.Sz = &xmlVal{Val: strconv.FormatFloat(f.Size, 'f', -1, 64)}
	}
	x.Color = colorToXML(f.Color)
	if f.Name != "" {
		x.Name = &xmlVal{Val: f.Name}
	}
	if f.Family != 0 {
		x.Family = &xmlVal{Val: strconv.Itoa(f.Family)}
	}
	return x
}

func fillToXML(f Fill) xmlFill {
	switch f.Type {
	case FillGradient:
		return xmlFill{Gradient: &xmlGradientFill{
			Degree: f.Degree,
			Stops: []xmlGradientStop{
				{Position: 0, Color: derefColor(colorToXML(f.Fg))},
				{Position: 1, Color: derefColor(colorToXML(f.Bg))},
			},
		}}
	case FillPattern:
		return xmlFill{Pattern: &xmlPatternFill{
			PatternType: f.Pattern,
			FgColor:     colorToXML(f.Fg),
			BgColor:     colorToXML(f.Bg),
		}}
	}
	return xmlFill{Pattern: &xmlPatternFill{PatternType: "none"}}
}

func derefColor(c *xmlColor) xmlColor {
	if c == nil {
		return xmlColor{}
	}
	return *c
}

func edgeToXML(e Edge) *xmlEdge {
	return &xmlEdge{Style: e.Style, Color: colorToXML(e.Color)}
}

func borderToXML(b Border) xmlBorder {
	return xmlBorder{
		DiagonalUp:   b.DiagonalUp,
		DiagonalDown: b.DiagonalDown,
		Left:         edgeToXML(b.Left),
		Right:        edgeToXML(b.Right),
		Top:          edgeToXML(b.Top),
		Bottom:       edgeToXML(b.Bottom),
		Diagonal:     edgeToXML(b.Diagonal),
	}
}
