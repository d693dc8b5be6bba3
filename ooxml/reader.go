package ooxml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TsubasaBE/go-xlsx/cell"
	"github.com/TsubasaBE/go-xlsx/internal/opc"
	"github.com/TsubasaBE/go-xlsx/numfmt"
	"github.com/TsubasaBE/go-xlsx/stringtable"
	"github.com/TsubasaBE/go-xlsx/styles"
	"github.com/TsubasaBE/go-xlsx/workbook"
	"github.com/TsubasaBE/go-xlsx/worksheet"
)

// ReadFile opens and decodes the .xlsx file at path.  A missing file yields
// an error matching ErrNotFound.
func ReadFile(ctx context.Context, path string, opts ...Option) (*workbook.Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ooxml: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("ooxml: %w", err)
	}
	return Read(ctx, f, fi.Size(), opts...)
}

// Read decodes an .xlsx container of the given size.  The returned workbook
// is complete; on any error no workbook is returned.
func Read(ctx context.Context, r io.ReaderAt, size int64, opts ...Option) (*workbook.Workbook, error) {
	cfg := newConfig(opts)
	pkg, err := opc.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptContainer, err)
	}
	br := &bookReader{ctx: ctx, cfg: cfg, pkg: pkg}
	wb, err := br.read()
	if err != nil {
		return nil, err
	}
	return wb, nil
}

type bookReader struct {
	ctx context.Context
	cfg *config
	pkg *opc.Reader
	wb  *workbook.Workbook
}

// readPart checks for cancellation and returns the bytes of a part.  A
// missing part maps to missing, which lets callers choose between a
// manifest and a reference error.
func (b *bookReader) readPart(name string, missing error) ([]byte, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	b.cfg.log.WithField("part", name).Debug("ooxml: reading part")
	data, err := b.pkg.ReadPart(name)
	if errors.Is(err, opc.ErrPartNotFound) {
		return nil, fmt.Errorf("%w: %w", missing, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptContainer, err)
	}
	return data, nil
}

func (b *bookReader) rels(source string, missing error) (*opc.Relationships, error) {
	name := opc.RelsPath(source)
	data, err := b.readPart(name, missing)
	if err != nil {
		return nil, err
	}
	rels, err := opc.DecodeRelationships(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedXML, name, err)
	}
	return rels, nil
}

func (b *bookReader) read() (*workbook.Workbook, error) {
	root, err := b.rels("", ErrMissingManifest)
	if err != nil {
		return nil, err
	}
	doc, ok := root.FirstOfKind("officeDocument")
	if !ok {
		return nil, fmt.Errorf("%w: no officeDocument relationship", ErrMissingManifest)
	}
	wbPart := opc.ResolveTarget("", doc.Target)
	wbRels, err := b.rels(wbPart, ErrMissingManifest)
	if err != nil {
		return nil, err
	}

	st, err := b.sharedStrings(wbPart, wbRels)
	if err != nil {
		return nil, err
	}
	reg, err := b.styles(wbPart, wbRels)
	if err != nil {
		return nil, err
	}
	b.wb = workbook.FromTables(st, reg)

	data, err := b.readPart(wbPart, ErrMissingManifest)
	if err != nil {
		return nil, err
	}
	var x xmlWorkbookIn
	if err := xml.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedXML, wbPart, err)
	}
	if x.WorkbookPr != nil {
		b.wb.Date1904 = xmlBool(x.WorkbookPr.Date1904)
	}
	if err := b.coreProps(root); err != nil {
		return nil, err
	}

	for _, s := range x.Sheets {
		rel, ok := wbRels.Get(s.RID)
		if !ok {
			return nil, fmt.Errorf("%w: sheet %q: relationship %q", ErrDanglingReference, s.Name, s.RID)
		}
		ws, err := b.wb.AddWorksheet(s.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedXML, err)
		}
		switch s.State {
		case "hidden":
			b.wb.SetSheetVisibility(s.Name, workbook.SheetHidden)
		case "veryHidden":
			b.wb.SetSheetVisibility(s.Name, workbook.SheetVeryHidden)
		}
		if err := b.sheet(ws, opc.ResolveTarget(wbPart, rel.Target)); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", s.Name, err)
		}
	}
	b.cfg.log.WithFields(logrus.Fields{
		"sheets":  b.wb.Len(),
		"strings": st.Len(),
		"styles":  reg.Len(),
	}).Debug("ooxml: read workbook")
	return b.wb, nil
}

func (b *bookReader) sharedStrings(wbPart string, rels *opc.Relationships) (*stringtable.Table, error) {
	rel, ok := rels.FirstOfKind("sharedStrings")
	if !ok {
		return stringtable.New(), nil
	}
	name := opc.ResolveTarget(wbPart, rel.Target)
	data, err := b.readPart(name, ErrDanglingReference)
	if err != nil {
		return nil, err
	}
	st, err := stringtable.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedXML, name, err)
	}
	return st, nil
}

func (b *bookReader) styles(wbPart string, rels *opc.Relationships) (*styles.Registry, error) {
	rel, ok := rels.FirstOfKind("styles")
	if !ok {
		reg := styles.NewRegistry()
		reg.SetRecognizer(b.cfg.recognizer)
		return reg, nil
	}
	name := opc.ResolveTarget(wbPart, rel.Target)
	data, err := b.readPart(name, ErrDanglingReference)
	if err != nil {
		return nil, err
	}
	reg, err := styles.Decode(data, b.cfg.recognizer)
	if errors.Is(err, styles.ErrDanglingReference) {
		return nil, fmt.Errorf("%w: %s: %w", ErrDanglingReference, name, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedXML, name, err)
	}
	return reg, nil
}

// coreProps loads docProps/core.xml when the package declares it.  Dates
// that do not parse are left zero.
func (b *bookReader) coreProps(root *opc.Relationships) error {
	rel, ok := root.FirstOfKind("core-properties")
	if !ok {
		return nil
	}
	name := opc.ResolveTarget("", rel.Target)
	if !b.pkg.Has(name) {
		return nil
	}
	data, err := b.readPart(name, ErrDanglingReference)
	if err != nil {
		return err
	}
	var x xmlCorePropsIn
	if err := xml.Unmarshal(data, &x); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedXML, name, err)
	}
	p := &b.wb.Properties
	p.Title, p.Subject, p.Creator, p.LastModifiedBy = x.Title, x.Subject, x.Creator, x.LastModifiedBy
	p.Created, _ = time.Parse(time.RFC3339, strings.TrimSpace(x.Created))
	p.Modified, _ = time.Parse(time.RFC3339, strings.TrimSpace(x.Modified))
	return nil
}

func xmlBool(s string) bool {
	v, err := strconv.ParseBool(s)
	return err == nil && v
}

// ── worksheets ────────────────────────────────────────────────────────────────

func (b *bookReader) sheet(ws *worksheet.Worksheet, name string) error {
	data, err := b.readPart(name, ErrDanglingReference)
	if err != nil {
		return err
	}
	sr := &sheetReader{b: b, ws: ws, part: name}
	if err := sr.decode(bytes.NewReader(data)); err != nil {
		return err
	}
	return sr.finish()
}

type sheetReader struct {
	b    *bookReader
	ws   *worksheet.Worksheet
	part string

	lastRow int
	merges  []cell.Range
	links   []xmlHyperlinkIn
}

func (sr *sheetReader) malformed(err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformedXML, sr.part, err)
}

// decode walks the part token by token and decodes one <row>, <col>,
// <mergeCell> or <hyperlink> element at a time.
func (sr *sheetReader) decode(r io.Reader) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return sr.malformed(err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "row":
			var x xmlRow
			if err := dec.DecodeElement(&x, &se); err != nil {
				return sr.malformed(err)
			}
			if err := sr.row(&x); err != nil {
				return err
			}
		case "col":
			var x xmlCol
			if err := dec.DecodeElement(&x, &se); err != nil {
				return sr.malformed(err)
			}
			if err := sr.col(&x); err != nil {
				return err
			}
		case "mergeCell":
			var x struct {
				Ref string `xml:"ref,attr"`
			}
			if err := dec.DecodeElement(&x, &se); err != nil {
				return sr.malformed(err)
			}
			rg, err := cell.ParseRange(x.Ref)
			if err != nil {
				return sr.malformed(err)
			}
			sr.merges = append(sr.merges, rg)
		case "hyperlink":
			var x xmlHyperlinkIn
			if err := dec.DecodeElement(&x, &se); err != nil {
				return sr.malformed(err)
			}
			sr.links = append(sr.links, x)
		case "extLst", "drawing", "legacyDrawing", "sheetViews", "conditionalFormatting", "dataValidations":
			if err := dec.Skip(); err != nil {
				return sr.malformed(err)
			}
		}
	}
}

func (sr *sheetReader) styleIndex(s int) error {
	if s < 0 || s >= sr.ws.Styles().Len() {
		return fmt.Errorf("%w: %s: style index %d of %d", ErrDanglingReference, sr.part, s, sr.ws.Styles().Len())
	}
	return nil
}

func (sr *sheetReader) col(x *xmlCol) error {
	if x.Min < 1 || x.Max < x.Min || x.Max > cell.MaxColumns {
		return sr.malformed(fmt.Errorf("column span %d:%d", x.Min, x.Max))
	}
	if x.Style != nil {
		if err := sr.styleIndex(*x.Style); err != nil {
			return err
		}
	}
	for c := x.Min; c <= x.Max; c++ {
		if x.CustomWidth && x.Width > 0 {
			sr.ws.SetColumnWidth(c, x.Width)
		}
		if x.Style != nil {
			sr.ws.SetColumnStyleIndex(c, *x.Style)
		}
	}
	return nil
}

func (sr *sheetReader) row(x *xmlRow) error {
	idx := x.R
	if idx == 0 {
		idx = sr.lastRow + 1
	}
	if idx < 1 || idx > cell.MaxRows {
		return sr.malformed(fmt.Errorf("row index %d", idx))
	}
	sr.lastRow = idx
	if x.CustomFormat {
		if err := sr.styleIndex(x.S); err != nil {
			return err
		}
		sr.ws.SetRowStyleIndex(idx, x.S)
	}
	if x.CustomHeight && x.Ht > 0 {
		sr.ws.SetRowHeight(idx, x.Ht)
	}
	lastCol := 0
	for i := range x.C {
		c, err := sr.cell(idx, lastCol, &x.C[i])
		if err != nil {
			return err
		}
		lastCol = c.Col
		if err := sr.ws.PutCell(c); err != nil {
			return fmt.Errorf("%w: %w", ErrInvariant, err)
		}
	}
	return nil
}

func (sr *sheetReader) cell(row, lastCol int, x *xmlCell) (cell.Cell, error) {
	a := cell.Address{Row: row, Col: lastCol + 1}
	if x.R != "" {
		var err error
		if a, err = cell.ParseAddress(x.R); err != nil {
			return cell.Cell{}, sr.malformed(err)
		}
		if a.Row != row {
			return cell.Cell{}, sr.malformed(fmt.Errorf("cell %s outside row %d", x.R, row))
		}
	}
	if err := sr.styleIndex(x.S); err != nil {
		return cell.Cell{}, fmt.Errorf("cell %s: %w", a, err)
	}
	c := cell.Cell{Row: a.Row, Col: a.Col, Style: x.S}
	v, err := sr.value(x, c.Style)
	if err != nil {
		return cell.Cell{}, fmt.Errorf("cell %s: %w", a, err)
	}
	// Followers of a shared formula carry no expression of their own; they
	// are kept as their cached value.
	if x.F != nil && strings.TrimSpace(x.F.Expr) != "" {
		if v == nil {
			v = cell.Null{}
		}
		v = cell.Formula{Expr: x.F.Expr, Result: v}
	}
	if v == nil {
		v = cell.Null{}
	}
	c.Value = v
	if holdsDate(v) && !sr.ws.Styles().IsDate(c.Style) {
		// t="d" cells may come with a general style.
		if c.Style, err = sr.ws.Styles().WithNumFmt(c.Style, numfmt.DefaultDateFormat); err != nil {
			return cell.Cell{}, err
		}
	}
	return c, nil
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

// value resolves the t attribute and <v> or <is> content.  A nil result
// means the cell holds no value.
func (sr *sheetReader) value(x *xmlCell, style int) (cell.Value, error) {
	if x.T == "inlineStr" {
		if x.Is == nil {
			return sr.ws.Intern(""), nil
		}
		return sr.ws.Intern(x.Is.text()), nil
	}
	if x.V == nil {
		if x.T == "str" && x.F != nil {
			return sr.ws.Intern(""), nil
		}
		return nil, nil
	}
	raw := *x.V
	switch x.T {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, sr.malformed(err)
		}
		if _, err := sr.ws.Strings().Text(i); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDanglingReference, err)
		}
		return cell.String{Index: i}, nil
	case "str":
		return sr.ws.Intern(raw), nil
	case "b":
		return cell.Bool(xmlBool(strings.TrimSpace(raw))), nil
	case "e":
		return cell.Error(raw), nil
	case "d":
		t, err := parseISODate(raw)
		if err != nil {
			return nil, sr.malformed(err)
		}
		return cell.Date(t), nil
	case "", "n":
		if strings.TrimSpace(raw) == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, sr.malformed(err)
		}
		if sr.ws.Styles().IsDate(style) {
			if t, err := numfmt.FromSerial(f, sr.b.wb.Date1904); err == nil {
				return cell.Date(t), nil
			}
		}
		return cell.Number(f), nil
	}
	return nil, sr.malformed(fmt.Errorf("unknown cell type %q", x.T))
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range isoLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO 8601 date %q", s)
}

// finish applies the merge regions and hyperlinks collected while decoding,
// after every cell of the sheet is in place.
func (sr *sheetReader) finish() error {
	for _, rg := range sr.merges {
		if err := sr.ws.RestoreMerge(rg); err != nil {
			return fmt.Errorf("%w: %w", ErrInvariant, err)
		}
	}
	if len(sr.links) == 0 {
		return nil
	}
	var rels *opc.Relationships
	for _, l := range sr.links {
		target := ""
		switch {
		case l.RID != "":
			if rels == nil {
				var err error
				if rels, err = sr.b.rels(sr.part, ErrDanglingReference); err != nil {
					return err
				}
			}
			rel, ok := rels.Get(l.RID)
			if !ok {
				return fmt.Errorf("%w: hyperlink %s: relationship %q", ErrDanglingReference, l.Ref, l.RID)
			}
			target = rel.Target
		case l.Location != "":
			target = "#" + l.Location
		default:
			continue
		}
		if err := sr.link(l.Ref, target); err != nil {
			return err
		}
	}
	return nil
}

// link turns the String cell at the top-left of ref into a Hyperlink.
// Links over cells without text are dropped.
func (sr *sheetReader) link(ref, target string) error {
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		ref = ref[:i]
	}
	a, err := cell.ParseAddress(ref)
	if err != nil {
		return sr.malformed(err)
	}
	c := sr.ws.CellAt(a.Row, a.Col)
	s, ok := c.Value.(cell.String)
	if !ok {
		sr.b.cfg.log.WithFields(logrus.Fields{"part": sr.part, "cell": ref}).
			Debug("ooxml: hyperlink on a cell without text ignored")
		return nil
	}
	c.Value = cell.Hyperlink{Text: s.Index, Target: target}
	if err := sr.ws.PutCell(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvariant, err)
	}
	return nil
}
