// Package csv converts a single worksheet to and from RFC 4180 style text.
//
// CSV carries values only.  Styles, merge regions and formula expressions
// are dropped on write, and every field read back is either a Number (when
// it looks numeric) or a String.
package csv

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

var (
	// ErrMalformedRecord is wrapped by *RecordError when the input has
	// broken quoting.
	ErrMalformedRecord = errors.New("csv: malformed record")
	// ErrInvalidDelimiter is returned for a delimiter that cannot separate
	// fields.
	ErrInvalidDelimiter = errors.New("csv: invalid delimiter")
	// ErrNotFound is returned by ReadFile when the path does not exist.
	ErrNotFound = fs.ErrNotExist
)

// RecordError locates a malformed record.  It matches ErrMalformedRecord
// and the underlying parse error with errors.Is.
type RecordError struct {
	Line   int // 1-based line where the error was detected
	Column int // 1-based byte column
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("csv: malformed record at line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *RecordError) Unwrap() []error { return []error{ErrMalformedRecord, e.Err} }

// Option configures Read and Write.
type Option func(*config)

type config struct {
	delim  rune
	bom    bool
	layout string
	log    logrus.FieldLogger
}

func newConfig(opts []Option) *config {
	l := logrus.New()
	l.SetOutput(io.Discard)
	cfg := &config{delim: ',', layout: time.RFC3339, log: l}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

func (c *config) validDelim() bool {
	return c.delim != 0 && c.delim != '"' && c.delim != '\r' && c.delim != '\n' &&
		utf8.ValidRune(c.delim) && c.delim != utf8.RuneError
}

// WithDelimiter sets the field delimiter.  The default is a comma.
func WithDelimiter(r rune) Option {
	return func(c *config) { c.delim = r }
}

// WithBOM makes Write start the output with a UTF-8 byte order mark, which
// some spreadsheet applications need to detect the encoding.  Read always
// honours a BOM.
func WithBOM(on bool) Option {
	return func(c *config) { c.bom = on }
}

// WithDateLayout sets the time layout Write uses for date cells.  The
// default is time.RFC3339.
func WithDateLayout(layout string) Option {
	return func(c *config) {
		if layout != "" {
			c.layout = layout
		}
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}
