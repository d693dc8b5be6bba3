// Package workbook holds the ordered set of worksheets of a document together
// with the shared string table and style registry they intern into.
package workbook

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/TsubasaBE/go-xlsx/numfmt"
	"github.com/TsubasaBE/go-xlsx/stringtable"
	"github.com/TsubasaBE/go-xlsx/styles"
	"github.com/TsubasaBE/go-xlsx/worksheet"
)

// Sheet visibility levels, as stored in the state attribute of a <sheet>
// element.  Use these constants with SheetVisibility and SetSheetVisibility.
const (
	// SheetVisible indicates the sheet tab is visible.
	SheetVisible = 0
	// SheetHidden indicates the sheet is hidden but can be unhidden by the
	// user via Excel's "Unhide" dialog.
	SheetHidden = 1
	// SheetVeryHidden indicates the sheet is hidden and cannot be unhidden
	// through the Excel UI.
	SheetVeryHidden = 2
)

// MaxSheetNameLen is the longest sheet name spreadsheet applications accept.
const MaxSheetNameLen = 31

var (
	// ErrDuplicateSheet is returned when a sheet name is already taken.
	// Names compare case-insensitively.
	ErrDuplicateSheet = errors.New("workbook: duplicate sheet name")
	// ErrInvalidSheetName is returned for names that are too long or contain
	// one of the characters []:*?/\.
	ErrInvalidSheetName = errors.New("workbook: invalid sheet name")
	// ErrSheetNotFound is returned when no sheet matches a name or index.
	ErrSheetNotFound = errors.New("workbook: sheet not found")
)

// Properties are the document properties stored in docProps/core.xml.
type Properties struct {
	Title          string
	Subject        string
	Creator        string
	LastModifiedBy string
	Created        time.Time
	Modified       time.Time
}

type sheetEntry struct {
	ws         *worksheet.Worksheet
	visibility int
}

// Workbook is an in-memory spreadsheet document.  It is single-owner: a
// Workbook and its worksheets must not be mutated concurrently.  Independent
// workbooks share no state.
type Workbook struct {
	sheets    []sheetEntry
	strings   *stringtable.Table
	styles    *styles.Registry
	autoNames int

	// Properties are written to and read from docProps/core.xml.
	Properties Properties
	// Date1904 is true when dates are stored in the 1904 date system (serial
	// 0 = 1904-01-01).  New workbooks use the 1900 system.
	Date1904 bool
}

// New returns an empty workbook with a fresh string table and a style
// registry holding only the default style.
func New() *Workbook {
	return FromTables(stringtable.New(), styles.NewRegistry())
}

// FromTables returns an empty workbook that adopts existing tables.  Decoders
// use it to build a workbook around the tables they loaded.
func FromTables(st *stringtable.Table, reg *styles.Registry) *Workbook {
	return &Workbook{strings: st, styles: reg}
}

// Strings returns the workbook's shared string table.
func (wb *Workbook) Strings() *stringtable.Table { return wb.strings }

// Styles returns the workbook's style registry.
func (wb *Workbook) Styles() *styles.Registry { return wb.styles }

// SetDateRecognizer replaces the recogniser that decides which number
// formats are dates.  nil restores the default.
func (wb *Workbook) SetDateRecognizer(rec *numfmt.Recognizer) {
	wb.styles.SetRecognizer(rec)
}

// Clone returns a deep copy of wb.  The copy has its own string table and
// style registry, shared by its sheets the same way, so edits to either
// workbook never reach the other.
func (wb *Workbook) Clone() *Workbook {
	c := FromTables(wb.strings.Clone(), wb.styles.Clone())
	c.sheets = make([]sheetEntry, len(wb.sheets))
	for i, e := range wb.sheets {
		c.sheets[i] = sheetEntry{ws: e.ws.Clone(c.strings, c.styles), visibility: e.visibility}
	}
	c.autoNames = wb.autoNames
	c.Properties = wb.Properties
	c.Date1904 = wb.Date1904
	return c
}

// AddWorksheet appends a new, empty worksheet.  An empty name is replaced by
// "sheet<N>", where N counts the auto-named sheets of this workbook and skips
// names already in use.
func (wb *Workbook) AddWorksheet(name string) (*worksheet.Worksheet, error) {
	if name == "" {
		for {
			wb.autoNames++
			name = "sheet" + strconv.Itoa(wb.autoNames)
			if wb.index(name) < 0 {
				break
			}
		}
	}
	if err := ValidateSheetName(name); err != nil {
		return nil, err
	}
	if wb.index(name) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSheet, name)
	}
	ws := worksheet.New(name, wb.strings, wb.styles)
	wb.sheets = append(wb.sheets, sheetEntry{ws: ws})
	return ws, nil
}

// ValidateSheetName checks name against the rules spreadsheet applications
// enforce.
func ValidateSheetName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidSheetName)
	case utf8.RuneCountInString(name) > MaxSheetNameLen:
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidSheetName, name, MaxSheetNameLen)
	case strings.ContainsAny(name, `[]:*?/\`):
		return fmt.Errorf("%w: %q contains one of []:*?/\\", ErrInvalidSheetName, name)
	case strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'"):
		return fmt.Errorf("%w: %q starts or ends with an apostrophe", ErrInvalidSheetName, name)
	}
	return nil
}

// Worksheets returns the worksheets in display order.
func (wb *Workbook) Worksheets() []*worksheet.Worksheet {
	out := make([]*worksheet.Worksheet, len(wb.sheets))
	for i, e := range wb.sheets {
		out[i] = e.ws
	}
	return out
}

// SheetNames returns the display names of all worksheets in order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.sheets))
	for i, e := range wb.sheets {
		names[i] = e.ws.Name()
	}
	return names
}

// Len returns the number of worksheets.
func (wb *Workbook) Len() int { return len(wb.sheets) }

// Worksheet returns the worksheet with the given name (case-insensitive).
func (wb *Workbook) Worksheet(name string) (*worksheet.Worksheet, error) {
	i := wb.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return wb.sheets[i].ws, nil
}

// WorksheetAt returns the worksheet at the given 1-based index.
func (wb *Workbook) WorksheetAt(idx int) (*worksheet.Worksheet, error) {
	if idx < 1 || idx > len(wb.sheets) {
		return nil, fmt.Errorf("%w: index %d out of range [1, %d]", ErrSheetNotFound, idx, len(wb.sheets))
	}
	return wb.sheets[idx-1].ws, nil
}

// RemoveWorksheet deletes the named worksheet.  Strings and styles it
// interned stay in the workbook tables.
func (wb *Workbook) RemoveWorksheet(name string) error {
	i := wb.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	wb.sheets = append(wb.sheets[:i], wb.sheets[i+1:]...)
	return nil
}

// SheetVisibility returns the visibility level of the named sheet
// (case-insensitive): SheetVisible, SheetHidden, or SheetVeryHidden.  It
// returns -1 if no sheet with that name exists.
func (wb *Workbook) SheetVisibility(name string) int {
	i := wb.index(name)
	if i < 0 {
		return -1
	}
	return wb.sheets[i].visibility
}

// SetSheetVisibility changes the visibility level of the named sheet.
func (wb *Workbook) SetSheetVisibility(name string, visibility int) error {
	if visibility < SheetVisible || visibility > SheetVeryHidden {
		return fmt.Errorf("workbook: invalid visibility %d", visibility)
	}
	i := wb.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	wb.sheets[i].visibility = visibility
	return nil
}

func (wb *Workbook) index(name string) int {
	for i, e := range wb.sheets {
		if strings.EqualFold(e.ws.Name(), name) {
			return i
		}
	}
	return -1
}
