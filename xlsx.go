// Package xlsx is an in-memory spreadsheet engine with an Office Open XML
// (.xlsx) codec and a CSV codec.  No cgo is required.
//
// # Quick start
//
//	wb := xlsx.New()
//	ws, _ := wb.AddWorksheet("Prices")
//	ws.SetString("A1", "bolt")
//	ws.SetNumber("B1", 0.25)
//	ws.MergeCells("C1:D1")
//	if err := xlsx.Save(ctx, wb, "prices.xlsx"); err != nil { ... }
//
//	wb, err := xlsx.Open(ctx, "prices.xlsx")
//	if err != nil { ... }
//	for _, ws := range wb.Worksheets() {
//	    for row := range ws.Rows() {
//	        for c := range row.Cells() {
//	            fmt.Println(c.Row, c.Col, c.Value)
//	        }
//	    }
//	}
//
// The [workbook], [worksheet], [cell] and [styles] packages hold the data
// model; [ooxml] and [csv] convert it to and from files.  This package only
// carries shortcuts for the common cases.
//
// # Dates
//
// Cells hold dates as [time.Time]; the serial representation exists only on
// disk.  [ConvertDate] turns a raw serial found elsewhere into a time using
// either date system.
package xlsx

import (
	"context"
	"io"
	"time"

	"github.com/TsubasaBE/go-xlsx/numfmt"
	"github.com/TsubasaBE/go-xlsx/ooxml"
	"github.com/TsubasaBE/go-xlsx/workbook"
)

// Version is the current version of the go-xlsx library.
const Version = "0.1.0"

// New returns an empty workbook.
func New() *workbook.Workbook {
	return workbook.New()
}

// Open reads the named .xlsx file.
func Open(ctx context.Context, name string, opts ...ooxml.Option) (*workbook.Workbook, error) {
	return ooxml.ReadFile(ctx, name, opts...)
}

// OpenReader reads an .xlsx package from r.  size must equal the total byte
// length of the data.
func OpenReader(ctx context.Context, r io.ReaderAt, size int64, opts ...ooxml.Option) (*workbook.Workbook, error) {
	return ooxml.Read(ctx, r, size, opts...)
}

// Save writes wb to the named file, replacing it atomically.
func Save(ctx context.Context, wb *workbook.Workbook, name string, opts ...ooxml.Option) error {
	return ooxml.WriteFile(ctx, name, wb, opts...)
}

// ConvertDate converts a date serial number to a UTC [time.Time].
//
// In the 1900 system serial 0 is 1900-01-01 and serial 60 is the phantom
// 1900-02-29 (returned as 1900-03-01).  In the 1904 system serial 0 is
// 1904-01-01.  Negative, non-finite and out-of-range serials are errors.
func ConvertDate(serial float64, date1904 bool) (time.Time, error) {
	return numfmt.FromSerial(serial, date1904)
}

// IsDateFormat reports whether a numFmtId and optional custom format string
// describe a date or time format under the default rules.
func IsDateFormat(id int, format string) bool {
	return numfmt.DefaultRecognizer().IsDateID(id, format)
}
