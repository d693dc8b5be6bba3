// Package ooxml converts between the in-memory workbook model and the OOXML
// spreadsheet container (.xlsx): a zip archive of interrelated XML parts.
//
// Write streams each worksheet row by row, so memory use is bounded by the
// model rather than by its serialized form.  Read loads the shared strings
// and styles first, because every cell refers to them by index, then
// decodes worksheets in manifest order.  A failed Read never returns a
// partial workbook.
package ooxml

import (
	"errors"
	"io"
	"io/fs"

	"github.com/sirupsen/logrus"

	"github.com/TsubasaBE/go-xlsx/numfmt"
)

var (
	// ErrCorruptContainer is returned when the input is not a readable zip
	// archive.
	ErrCorruptContainer = errors.New("ooxml: corrupt container")
	// ErrMissingManifest is returned when a required bookkeeping part (the
	// package relationships, the workbook part or its relationships) is
	// absent.
	ErrMissingManifest = errors.New("ooxml: missing manifest part")
	// ErrMalformedXML is returned when a part cannot be parsed.
	ErrMalformedXML = errors.New("ooxml: malformed XML")
	// ErrDanglingReference is returned when a part refers to a string, style,
	// relationship or part that does not exist.
	ErrDanglingReference = errors.New("ooxml: dangling reference")
	// ErrInvariant is returned when a model cannot be written because it
	// violates a structural invariant, or a file would produce such a model.
	ErrInvariant = errors.New("ooxml: structural invariant violation")
	// ErrNotFound is returned by ReadFile when the path does not exist.
	ErrNotFound = fs.ErrNotExist
)

// Option configures Read and Write.
type Option func(*config)

type config struct {
	log        logrus.FieldLogger
	recognizer *numfmt.Recognizer
	app        string
}

func newConfig(opts []Option) *config {
	l := logrus.New()
	l.SetOutput(io.Discard)
	cfg := &config{log: l, app: "go-xlsx"}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithLogger sets the logger used for part-level progress messages.  The
// default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRecognizer sets the date-format recogniser Read uses to tell dates
// from numbers.  The workbook it returns keeps using it.  Write ignores the
// option and uses the workbook's own recogniser.
func WithRecognizer(r *numfmt.Recognizer) Option {
	return func(c *config) { c.recognizer = r }
}

// WithApplication sets the application name written to docProps/app.xml.
func WithApplication(name string) Option {
	return func(c *config) { c.app = name }
}
