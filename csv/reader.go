package csv

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/TsubasaBE/go-xlsx/cell"
	"github.com/TsubasaBE/go-xlsx/workbook"
	"github.com/TsubasaBE/go-xlsx/worksheet"
)

// numeric matches the fields Read stores as numbers: an optional sign,
// digits with an optional fraction, and an optional exponent.
var numeric = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

type field struct {
	row, col int
	text     string
}

// Read parses CSV text from r into a new worksheet of wb called name (an
// empty name picks the next automatic one).  The input is parsed completely
// before the sheet is added, so wb is unchanged when Read fails.
//
// A leading UTF-8 or UTF-16 byte order mark selects the encoding; without
// one the input is UTF-8.  Numeric-looking fields become Number cells, other
// non-empty fields String cells.  Empty fields produce no cell.
//
// Quoting is strict: a quote inside an unquoted field is a malformed record.
// A CRLF inside a quoted field is read as LF.
func Read(ctx context.Context, r io.Reader, wb *workbook.Workbook, name string, opts ...Option) (*worksheet.Worksheet, error) {
	cfg := newConfig(opts)
	if !cfg.validDelim() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDelimiter, cfg.delim)
	}
	if name != "" {
		if err := workbook.ValidateSheetName(name); err != nil {
			return nil, err
		}
		if _, err := wb.Worksheet(name); err == nil {
			return nil, fmt.Errorf("%w: %q", workbook.ErrDuplicateSheet, name)
		}
	}

	fields, rows, err := parse(ctx, r, cfg)
	if err != nil {
		return nil, err
	}

	ws, err := wb.AddWorksheet(name)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		var v cell.Value
		if numeric.MatchString(f.text) {
			n, perr := strconv.ParseFloat(f.text, 64)
			if perr == nil {
				v = cell.Number(n)
			}
		}
		if v == nil {
			v = ws.Intern(f.text)
		}
		if err := ws.SetValueAt(f.row, f.col, v); err != nil {
			wb.RemoveWorksheet(ws.Name())
			return nil, fmt.Errorf("csv: %w", err)
		}
	}
	cfg.log.WithFields(logrus.Fields{
		"sheet":   ws.Name(),
		"records": rows,
		"cells":   len(fields),
	}).Debug("csv: read sheet")
	return ws, nil
}

// ReadFile reads the CSV file at path into a new worksheet of wb.  An empty
// name uses the file name without its extension.
func ReadFile(ctx context.Context, path string, wb *workbook.Workbook, name string, opts ...Option) (*worksheet.Worksheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	defer f.Close()
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return Read(ctx, f, wb, name, opts...)
}

// parse reads every record and returns the non-empty fields with their
// 1-based positions.
func parse(ctx context.Context, r io.Reader, cfg *config) ([]field, int, error) {
	cr := stdcsv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.Comma = cfg.delim
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var fields []field
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return fields, row, nil
		}
		if err != nil {
			var pe *stdcsv.ParseError
			if errors.As(err, &pe) {
				return nil, 0, &RecordError{Line: pe.Line, Column: pe.Column, Err: pe.Err}
			}
			return nil, 0, fmt.Errorf("csv: read: %w", err)
		}
		row++
		if row%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		if row > cell.MaxRows {
			return nil, 0, fmt.Errorf("csv: %w: more than %d records", worksheet.ErrInvariant, cell.MaxRows)
		}
		if len(rec) > cell.MaxColumns {
			return nil, 0, fmt.Errorf("csv: %w: record %d has %d fields", worksheet.ErrInvariant, row, len(rec))
		}
		for i, text := range rec {
			if text == "" {
				continue
			}
			fields = append(fields, field{row: row, col: i + 1, text: text})
		}
	}
}
