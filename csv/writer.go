package csv

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/TsubasaBE/go-xlsx/cell"
	"github.com/TsubasaBE/go-xlsx/worksheet"
)

// checkEvery is the number of records between context checks.
const checkEvery = 1024

// Write serializes the values of ws to w.  The grid spans rows 1 to the
// last populated row and columns 1 to the last populated column, so every
// record has the same number of fields.  Each record ends with "\n".
func Write(ctx context.Context, w io.Writer, ws *worksheet.Worksheet, opts ...Option) error {
	cfg := newConfig(opts)
	if !cfg.validDelim() {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, cfg.delim)
	}
	var tw io.WriteCloser
	if cfg.bom {
		tw = transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
		w = tw
	}
	bw := bufio.NewWriter(w)
	if err := writeGrid(ctx, bw, ws, cfg); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("csv: write: %w", err)
	}
	if tw != nil {
		return tw.Close()
	}
	return nil
}

func writeGrid(ctx context.Context, bw *bufio.Writer, ws *worksheet.Worksheet, cfg *config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dim, ok := ws.Dimension()
	if !ok {
		cfg.log.WithField("sheet", ws.Name()).Debug("csv: empty sheet")
		return nil
	}
	maxRow, maxCol := dim.End.Row, dim.End.Col
	cfg.log.WithFields(logrus.Fields{
		"sheet": ws.Name(),
		"rows":  maxRow,
		"cols":  maxCol,
	}).Debug("csv: writing sheet")

	delim := string(cfg.delim)
	for r := 1; r <= maxRow; r++ {
		if r%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for c := 1; c <= maxCol; c++ {
			if c > 1 {
				bw.WriteString(delim)
			}
			field, err := fieldText(ws, ws.CellAt(r, c).Value, cfg)
			if err != nil {
				return fmt.Errorf("csv: sheet %q row %d col %d: %w", ws.Name(), r, c, err)
			}
			bw.WriteString(quote(field, delim))
		}
		bw.WriteByte('\n')
	}
	return nil
}

// WriteFile writes ws to path through a temporary file that replaces path
// only on success.
func WriteFile(ctx context.Context, path string, ws *worksheet.Worksheet, opts ...Option) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("csv: create %q: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()
	if err = Write(ctx, f, ws, opts...); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("csv: write %q: %w", path, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("csv: write %q: %w", path, err)
	}
	return nil
}

// quote wraps field in quotes, doubling inner quotes, only when it holds the
// delimiter, a quote or a line break.
func quote(field, delim string) string {
	if !strings.Contains(field, delim) && !strings.ContainsAny(field, "\"\r\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func fieldText(ws *worksheet.Worksheet, v cell.Value, cfg *config) (string, error) {
	switch x := v.(type) {
	case nil, cell.Null, cell.Merge:
		return "", nil
	case cell.Number:
		return FormatNumber(float64(x)), nil
	case cell.String, cell.Hyperlink:
		return ws.Text(x)
	case cell.Bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case cell.Date:
		return x.Time().Format(cfg.layout), nil
	case cell.Formula:
		return fieldText(ws, x.Result, cfg)
	case cell.Error:
		return string(x), nil
	}
	return "", fmt.Errorf("unsupported value %v", cell.TypeOf(v))
}

// FormatNumber renders f in its shortest round-tripping form, in plain
// decimal notation between 1e-6 and 1e21 and in exponent notation outside.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if a := math.Abs(f); a == 0 || (a >= 1e-6 && a < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
