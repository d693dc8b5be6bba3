package ooxml

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TsubasaBE/go-xlsx/cell"
	"github.com/TsubasaBE/go-xlsx/internal/opc"
	"github.com/TsubasaBE/go-xlsx/numfmt"
	"github.com/TsubasaBE/go-xlsx/workbook"
	"github.com/TsubasaBE/go-xlsx/worksheet"
)

const (
	partWorkbook      = "xl/workbook.xml"
	partStyles        = "xl/styles.xml"
	partSharedStrings = "xl/sharedStrings.xml"
	partCoreProps     = "docProps/core.xml"
	partAppProps      = "docProps/app.xml"
)

func sheetPart(i int) string { return "xl/worksheets/sheet" + strconv.Itoa(i+1) + ".xml" }

// Write serializes wb as an .xlsx container to w.  The context is checked
// between parts; on cancellation or error the output is incomplete and must
// be discarded.
func Write(ctx context.Context, w io.Writer, wb *workbook.Workbook, opts ...Option) error {
	cfg := newConfig(opts)
	pw := opc.NewWriter(w)
	bw := &bookWriter{ctx: ctx, cfg: cfg, wb: wb, pkg: pw}
	if err := bw.write(); err != nil {
		return err
	}
	return pw.Close()
}

// WriteFile writes wb to path.  The container is assembled in a temporary
// file in the same directory and renamed over path only on success, so a
// failed write never leaves a truncated file behind.
func WriteFile(ctx context.Context, path string, wb *workbook.Workbook, opts ...Option) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("ooxml: create %q: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()
	bw := bufio.NewWriter(f)
	if err = Write(ctx, bw, wb, opts...); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("ooxml: write %q: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("ooxml: write %q: %w", path, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("ooxml: write %q: %w", path, err)
	}
	return nil
}

type bookWriter struct {
	ctx context.Context
	cfg *config
	wb  *workbook.Workbook
	pkg *opc.Writer

	// refs counts cells that point into the shared string table.
	refs int
}

func (b *bookWriter) write() error {
	sheets := b.wb.Worksheets()
	withStrings := b.wb.Strings().Len() > 0
	b.cfg.log.WithFields(logrus.Fields{
		"sheets":  len(sheets),
		"strings": b.wb.Strings().Len(),
		"styles":  b.wb.Styles().Len(),
	}).Debug("ooxml: writing workbook")

	steps := []struct {
		part string
		fn   func(io.Writer) error
	}{
		{opc.ContentTypesPart, func(w io.Writer) error { return b.contentTypes(len(sheets), withStrings).Encode(w) }},
		{opc.RelsPath(""), func(w io.Writer) error { return packageRels().Encode(w) }},
		{partCoreProps, b.writeCoreProps},
		{partAppProps, b.writeAppProps},
		{partWorkbook, b.writeWorkbook},
		{opc.RelsPath(partWorkbook), func(w io.Writer) error { return workbookRels(len(sheets), withStrings).Encode(w) }},
		{partStyles, b.wb.Styles().Encode},
	}
	for _, s := range steps {
		if err := b.part(s.part, s.fn); err != nil {
			return err
		}
	}
	for i, ws := range sheets {
		if err := b.writeSheet(i, ws); err != nil {
			return err
		}
	}
	if withStrings {
		return b.part(partSharedStrings, func(w io.Writer) error {
			return b.wb.Strings().Encode(w, b.refs)
		})
	}
	return nil
}

// part checks for cancellation, then streams one part through fn.
func (b *bookWriter) part(name string, fn func(io.Writer) error) error {
	if err := b.ctx.Err(); err != nil {
		return err
	}
	b.cfg.log.WithField("part", name).Debug("ooxml: writing part")
	w, err := b.pkg.CreatePart(name)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		return fmt.Errorf("ooxml: write %s: %w", name, err)
	}
	return nil
}

func (b *bookWriter) contentTypes(sheets int, withStrings bool) *opc.ContentTypes {
	ct := opc.NewContentTypes()
	ct.AddOverride(partWorkbook, opc.ContentTypeWorkbook)
	for i := range sheets {
		ct.AddOverride(sheetPart(i), opc.ContentTypeWorksheet)
	}
	ct.AddOverride(partStyles, opc.ContentTypeStyles)
	if withStrings {
		ct.AddOverride(partSharedStrings, opc.ContentTypeSharedStrings)
	}
	ct.AddOverride(partCoreProps, opc.ContentTypeCoreProps)
	ct.AddOverride(partAppProps, opc.ContentTypeExtendedProps)
	return ct
}

func packageRels() *opc.Relationships {
	rels := opc.NewRelationships()
	rels.Add(opc.RelTypeOfficeDocument, partWorkbook, "")
	rels.Add(opc.RelTypeCoreProps, partCoreProps, "")
	rels.Add(opc.RelTypeExtendedProps, partAppProps, "")
	return rels
}

// workbookRels assigns rId1..rIdN to the sheets in order, then styles and
// shared strings.
func workbookRels(sheets int, withStrings bool) *opc.Relationships {
	rels := opc.NewRelationships()
	for i := range sheets {
		rels.Add(opc.RelTypeWorksheet, opc.RelativeTarget(partWorkbook, sheetPart(i)), "")
	}
	rels.Add(opc.RelTypeStyles, opc.RelativeTarget(partWorkbook, partStyles), "")
	if withStrings {
		rels.Add(opc.RelTypeSharedStrings, opc.RelativeTarget(partWorkbook, partSharedStrings), "")
	}
	return rels
}

func encodeDoc(w io.Writer, v any) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	if err := xml.NewEncoder(bw).Encode(v); err != nil {
		return err
	}
	return bw.Flush()
}

func (b *bookWriter) writeWorkbook(w io.Writer) error {
	x := xmlWorkbookOut{
		XMLNS:      nsMain,
		XMLNSR:     nsRel,
		WorkbookPr: xmlWorkbookPr{Date1904: b.wb.Date1904},
		CalcPr:     &xmlCalcPr{CalcID: 191029},
	}
	for i, name := range b.wb.SheetNames() {
		s := xmlSheetOut{Name: name, SheetID: i + 1, RID: "rId" + strconv.Itoa(i+1)}
		switch b.wb.SheetVisibility(name) {
		case workbook.SheetHidden:
			s.State = "hidden"
		case workbook.SheetVeryHidden:
			s.State = "veryHidden"
		}
		x.Sheets = append(x.Sheets, s)
	}
	return encodeDoc(w, &x)
}

func w3cdtf(t time.Time) *xmlW3CDTF {
	if t.IsZero() {
		return nil
	}
	return &xmlW3CDTF{Type: "dcterms:W3CDTF", Value: t.UTC().Format(time.RFC3339)}
}

func (b *bookWriter) writeCoreProps(w io.Writer) error {
	p := b.wb.Properties
	return encodeDoc(w, &xmlCorePropsOut{
		XMLNSCP:        nsCoreProp,
		XMLNSDC:        nsDC,
		XMLNSDCTerms:   nsDCTerms,
		XMLNSDCMIType:  nsDCMIType,
		XMLNSXSI:       nsXSI,
		Title:          p.Title,
		Subject:        p.Subject,
		Creator:        p.Creator,
		LastModifiedBy: p.LastModifiedBy,
		Created:        w3cdtf(p.Created),
		Modified:       w3cdtf(p.Modified),
	})
}

func (b *bookWriter) writeAppProps(w io.Writer) error {
	return encodeDoc(w, &xmlAppProps{XMLNS: nsExtProp, Application: b.cfg.app})
}

// ── worksheets ────────────────────────────────────────────────────────────────

const worksheetHeader = xml.Header +
	`<worksheet xmlns="` + nsMain + `" xmlns:r="` + nsRel + `">`

type pendingLink struct {
	ref    string
	target string
}

func (b *bookWriter) writeSheet(i int, ws *worksheet.Worksheet) error {
	var links []pendingLink
	name := sheetPart(i)
	err := b.part(name, func(w io.Writer) error {
		var err error
		links, err = b.encodeSheet(w, ws)
		return err
	})
	if err != nil || len(links) == 0 {
		return err
	}
	rels := opc.NewRelationships()
	for _, l := range links {
		if !strings.HasPrefix(l.target, "#") {
			rels.Add(opc.RelTypeHyperlink, l.target, opc.TargetModeExternal)
		}
	}
	if rels.Len() == 0 {
		return nil
	}
	return b.part(opc.RelsPath(name), rels.Encode)
}

// encodeSheet streams one worksheet: the root element by hand, then one
// encoder call per row so that no sheet is ever held in serialized form.
func (b *bookWriter) encodeSheet(w io.Writer, ws *worksheet.Worksheet) ([]pendingLink, error) {
	bw := bufio.NewWriter(w)
	enc := xml.NewEncoder(bw)

	dim := "A1"
	if r, ok := ws.Dimension(); ok {
		dim = r.String()
	}
	bw.WriteString(worksheetHeader)
	bw.WriteString(`<dimension ref="` + dim + `"/>`)
	bw.WriteString(`<sheetFormatPr defaultRowHeight="15"/>`)

	if cols := b.columns(ws); len(cols.Cols) > 0 {
		if err := enc.Encode(cols); err != nil {
			return nil, err
		}
		enc.Flush()
	}

	var links []pendingLink
	bw.WriteString(`<sheetData>`)
	for row := range ws.Rows() {
		x, rowLinks, err := b.row(ws, row)
		if err != nil {
			return nil, err
		}
		links = append(links, rowLinks...)
		if len(x.C) == 0 && !x.CustomFormat && !x.CustomHeight {
			continue
		}
		if err := enc.Encode(x); err != nil {
			return nil, err
		}
	}
	enc.Flush()
	bw.WriteString(`</sheetData>`)

	if merges := ws.Merges(); len(merges) > 0 {
		mc := xmlMergeCells{Count: len(merges)}
		for _, m := range merges {
			mc.Cells = append(mc.Cells, struct {
				Ref string `xml:"ref,attr"`
			}{m.String()})
		}
		if err := enc.Encode(mc); err != nil {
			return nil, err
		}
	}
	if len(links) > 0 {
		var hl xmlHyperlinksOut
		n := 0
		for _, l := range links {
			if loc, ok := strings.CutPrefix(l.target, "#"); ok {
				hl.Links = append(hl.Links, xmlHyperlinkOut{Ref: l.ref, Location: loc})
				continue
			}
			n++
			hl.Links = append(hl.Links, xmlHyperlinkOut{Ref: l.ref, RID: "rId" + strconv.Itoa(n)})
		}
		if err := enc.Encode(hl); err != nil {
			return nil, err
		}
	}
	err := enc.Encode(xmlPageMargins{Left: 0.7, Right: 0.7, Top: 0.75, Bottom: 0.75, Header: 0.3, Footer: 0.3})
	if err != nil {
		return nil, err
	}
	enc.Flush()
	bw.WriteString(`</worksheet>`)
	return links, bw.Flush()
}

// defaultColumnWidth is written for columns that carry only a style; a
// missing width would hide the column in some consumers.
const defaultColumnWidth = 9.140625

func (b *bookWriter) columns(ws *worksheet.Worksheet) xmlCols {
	var x xmlCols
	for c := range ws.Columns() {
		if c.Width == 0 && !c.HasStyle {
			continue
		}
		col := xmlCol{Min: c.Index, Max: c.Index, Width: defaultColumnWidth}
		if c.Width > 0 {
			col.Width, col.CustomWidth = c.Width, true
		}
		if c.HasStyle {
			col.Style = &c.Style
		}
		x.Cols = append(x.Cols, col)
	}
	return x
}

func (b *bookWriter) row(ws *worksheet.Worksheet, r *worksheet.Row) (xmlRow, []pendingLink, error) {
	x := xmlRow{R: r.Index}
	if r.HasStyle {
		if err := b.checkStyle(ws, r.Style); err != nil {
			return x, nil, fmt.Errorf("row %d: %w", r.Index, err)
		}
		x.S, x.CustomFormat = r.Style, true
	}
	if r.Height > 0 {
		x.Ht, x.CustomHeight = r.Height, true
	}
	var links []pendingLink
	for c := range r.Cells() {
		xc, emit, err := b.cell(ws, c)
		if err != nil {
			return x, nil, fmt.Errorf("cell %s: %w", c.Address(), err)
		}
		if !emit {
			continue
		}
		if h, ok := c.Value.(cell.Hyperlink); ok {
			links = append(links, pendingLink{ref: xc.R, target: h.Target})
		}
		x.C = append(x.C, xc)
	}
	return x, links, nil
}

func (b *bookWriter) checkStyle(ws *worksheet.Worksheet, idx int) error {
	if idx < 0 || idx >= ws.Styles().Len() {
		return fmt.Errorf("%w: style index %d of %d", ErrInvariant, idx, ws.Styles().Len())
	}
	return nil
}

func (b *bookWriter) checkString(idx int) error {
	if _, err := b.wb.Strings().Text(idx); err != nil {
		return fmt.Errorf("%w: %w", ErrInvariant, err)
	}
	return nil
}

func ptr(s string) *string { return &s }

func formatNumber(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: number %v cannot be stored", ErrInvariant, f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

func (b *bookWriter) serial(t time.Time) (string, error) {
	if t.Before(numfmt.Epoch(b.wb.Date1904)) {
		return "", fmt.Errorf("%w: date %s precedes the epoch", ErrInvariant, t.Format(time.RFC3339))
	}
	return formatNumber(numfmt.ToSerial(t, b.wb.Date1904))
}

// cell maps one model cell to its XML form.  emit is false for Null cells
// whose style matches the row or column default, which are left out of the
// part.
func (b *bookWriter) cell(ws *worksheet.Worksheet, c *cell.Cell) (x xmlCell, emit bool, err error) {
	if err := b.checkStyle(ws, c.Style); err != nil {
		return x, false, err
	}
	x.R, x.S = c.Address().String(), c.Style

	switch v := c.Value.(type) {
	case nil, cell.Null:
		return x, c.Style != ws.DefaultStyleAt(c.Row, c.Col), nil
	case cell.Merge:
		return x, true, nil
	case cell.Formula:
		if !cell.ValidResult(v.Result) {
			return x, false, fmt.Errorf("%w: formula result of type %v", ErrInvariant, cell.TypeOf(v.Result))
		}
		x.F = &xmlFormula{Expr: v.Expr}
		err = b.value(ws, c, v.Result, &x, true)
	default:
		err = b.value(ws, c, v, &x, false)
	}
	return x, err == nil, err
}

// value fills the type and value of x.  Formula results hold strings inline
// (t="str") rather than in the shared table.
func (b *bookWriter) value(ws *worksheet.Worksheet, c *cell.Cell, v cell.Value, x *xmlCell, result bool) error {
	switch v := v.(type) {
	case nil, cell.Null:
	case cell.Number:
		s, err := formatNumber(float64(v))
		if err != nil {
			return err
		}
		x.V = &s
	case cell.String:
		if err := b.checkString(v.Index); err != nil {
			return err
		}
		if result {
			text, _ := b.wb.Strings().Text(v.Index)
			x.T, x.V = "str", &text
			return nil
		}
		b.refs++
		x.T, x.V = "s", ptr(strconv.Itoa(v.Index))
	case cell.Hyperlink:
		if err := b.checkString(v.Text); err != nil {
			return err
		}
		b.refs++
		x.T, x.V = "s", ptr(strconv.Itoa(v.Text))
	case cell.Bool:
		x.T, x.V = "b", ptr("0")
		if v {
			x.V = ptr("1")
		}
	case cell.Date:
		if !ws.Styles().IsDate(c.Style) {
			return fmt.Errorf("%w: date stored with non-date style %d", ErrInvariant, c.Style)
		}
		s, err := b.serial(v.Time())
		if err != nil {
			return err
		}
		x.V = &s
	case cell.Error:
		x.T, x.V = "e", ptr(string(v))
	default:
		return fmt.Errorf("%w: cannot store %v value", ErrInvariant, cell.TypeOf(v))
	}
	return nil
}
