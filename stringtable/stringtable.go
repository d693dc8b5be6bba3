// Package stringtable implements the workbook-scoped shared string table and
// its xl/sharedStrings.xml encoding.
package stringtable

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// ErrOutOfRange is returned by Text for an index that was never interned.
var ErrOutOfRange = errors.New("stringtable: index out of range")

const mainNS = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"

// Table holds the distinct strings of a workbook.  Indices are dense and
// follow first-interned order; an interned string never moves.  Comparison
// is exact (case and whitespace significant).
type Table struct {
	strings []string
	index   map[string]int
}

// New returns an empty Table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// Intern returns the index of s, appending it when it is not yet present.
func (t *Table) Intern(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	i := len(t.strings)
	t.strings = append(t.strings, s)
	t.index[s] = i
	return i
}

// Lookup returns the index of s without interning it.
func (t *Table) Lookup(s string) (int, bool) {
	i, ok := t.index[s]
	return i, ok
}

// Text returns the string at index i.
func (t *Table) Text(i int) (string, error) {
	if i < 0 || i >= len(t.strings) {
		return "", fmt.Errorf("%w: %d (table has %d entries)", ErrOutOfRange, i, len(t.strings))
	}
	return t.strings[i], nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.strings)
}

// All returns a copy of the entries in index order.
func (t *Table) All() []string {
	out := make([]string, len(t.strings))
	copy(out, t.strings)
	return out
}

// Clone returns an independent copy with the same indices.
func (t *Table) Clone() *Table {
	return &Table{strings: slices.Clone(t.strings), index: maps.Clone(t.index)}
}

// ── sharedStrings.xml ────────────────────────────────────────────────────────

type xmlText struct {
	Space string `xml:"xml:space,attr,omitempty"`
	Text  string `xml:",chardata"`
}

// xmlSI is one <si> entry.  Plain entries carry a single <t>; rich-text
// entries carry <r> runs whose <t> texts are concatenated.  Phonetic runs
// (<rPh>) are not part of the displayed text and are ignored.
type xmlSI struct {
	XMLName xml.Name `xml:"si"`
	T       *xmlText `xml:"t"`
	R       []struct {
		T xmlText `xml:"t"`
	} `xml:"r"`
}

func (si *xmlSI) text() string {
	if len(si.R) == 0 {
		if si.T == nil {
			return ""
		}
		return si.T.Text
	}
	var b strings.Builder
	if si.T != nil {
		b.WriteString(si.T.Text)
	}
	for _, r := range si.R {
		b.WriteString(r.T.Text)
	}
	return b.String()
}

// Decode reads a complete <sst> document.  Entries keep their file order, so
// the i-th <si> is index i even when the file repeats a string.
func Decode(r io.Reader) (*Table, error) {
	t := New()
	dec := xml.NewDecoder(r)
	sawRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stringtable: decode: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "sst":
			sawRoot = true
		case "si":
			var si xmlSI
			if err := dec.DecodeElement(&si, &se); err != nil {
				return nil, fmt.Errorf("stringtable: decode entry %d: %w", len(t.strings), err)
			}
			t.appendDecoded(si.text())
		}
	}
	if !sawRoot {
		return nil, errors.New("stringtable: decode: missing <sst> root element")
	}
	return t, nil
}

func (t *Table) appendDecoded(s string) {
	if _, ok := t.index[s]; !ok {
		t.index[s] = len(t.strings)
	}
	t.strings = append(t.strings, s)
}

// Encode writes the table as an <sst> document.  refs is the number of
// cells referencing the table and is written as the count attribute.
func (t *Table) Encode(w io.Writer, refs int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, xml.Header)
	fmt.Fprintf(bw, `<sst xmlns="%s" count="%d" uniqueCount="%d">`, mainNS, refs, len(t.strings))
	enc := xml.NewEncoder(bw)
	for _, s := range t.strings {
		si := xmlSI{T: &xmlText{Text: s}}
		if needsPreserve(s) {
			si.T.Space = "preserve"
		}
		if err := enc.Encode(&si); err != nil {
			return fmt.Errorf("stringtable: encode: %w", err)
		}
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("stringtable: encode: %w", err)
	}
	bw.WriteString("</sst>")
	return bw.Flush()
}

func needsPreserve(s string) bool {
	if s == "" {
		return false
	}
	return strings.TrimSpace(s) != s || strings.ContainsAny(s, "\n\t")
}
