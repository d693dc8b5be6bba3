package styles

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/TsubasaBE/go-xlsx/numfmt"
)

var (
	// ErrOutOfRange is returned by Resolve for an index that does not exist.
	ErrOutOfRange = errors.New("styles: index out of range")
	// ErrDanglingReference is returned by Decode when a cell format refers to
	// a font, fill, border or number format the file does not define.
	ErrDanglingReference = errors.New("styles: dangling reference")
)

// Registry is the workbook-scoped list of distinct styles.  Indices are
// dense, start at 0 and never move once assigned.  A Registry is not safe
// for concurrent mutation; its read methods are safe for concurrent use.
type Registry struct {
	styles     []Style
	index      map[Style]int
	recognizer *numfmt.Recognizer
	// dates[i] caches whether styles[i] has a date-like number format.
	dates []bool
}

// NewRegistry returns a registry holding DefaultStyle at index 0.
func NewRegistry() *Registry {
	r := newEmpty()
	r.Intern(DefaultStyle())
	return r
}

func newEmpty() *Registry {
	return &Registry{
		index:      make(map[Style]int),
		recognizer: numfmt.DefaultRecognizer(),
	}
}

// Intern returns the index of s, appending it when no equal style exists.
func (r *Registry) Intern(s Style) int {
	s = normalize(s)
	if i, ok := r.index[s]; ok {
		return i
	}
	return r.add(s)
}

// add appends s unconditionally.  The first index of a style stays its
// canonical one.
func (r *Registry) add(s Style) int {
	i := len(r.styles)
	r.styles = append(r.styles, s)
	r.dates = append(r.dates, r.recognizer.IsDate(s.NumFmt))
	if _, ok := r.index[s]; !ok {
		r.index[s] = i
	}
	return i
}

// Resolve returns the style at index i.
func (r *Registry) Resolve(i int) (Style, error) {
	if i < 0 || i >= len(r.styles) {
		return Style{}, fmt.Errorf("%w: %d (registry has %d entries)", ErrOutOfRange, i, len(r.styles))
	}
	return r.styles[i], nil
}

// Len returns the number of styles.
func (r *Registry) Len() int { return len(r.styles) }

// WithNumFmt returns the index of the style at i with its number format
// replaced by format.
func (r *Registry) WithNumFmt(i int, format string) (int, error) {
	s, err := r.Resolve(i)
	if err != nil {
		return 0, err
	}
	s.NumFmt = format
	return r.Intern(s), nil
}

// IsDate reports whether the style at i carries a date-like number format.
// Unknown indices are not dates.
func (r *Registry) IsDate(i int) bool {
	if i < 0 || i >= len(r.styles) {
		return false
	}
	return r.dates[i]
}

// SetRecognizer replaces the date-format recogniser.  A nil recogniser
// restores the default.
func (r *Registry) SetRecognizer(rec *numfmt.Recognizer) {
	if rec == nil {
		rec = numfmt.DefaultRecognizer()
	}
	r.recognizer = rec
	for i, s := range r.styles {
		r.dates[i] = rec.IsDate(s.NumFmt)
	}
}

// Clone returns an independent copy of r with the same indices.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		styles:     slices.Clone(r.styles),
		index:      maps.Clone(r.index),
		recognizer: r.recognizer,
		dates:      slices.Clone(r.dates),
	}
	if c.index == nil {
		c.index = make(map[Style]int)
	}
	return c
}

// Recognizer returns the recogniser used by IsDate.
func (r *Registry) Recognizer() *numfmt.Recognizer { return r.recognizer }
