package numfmt

import (
	"strings"

	"github.com/xuri/nfp"
)

// Recognizer decides whether a number format is date-like.
//
// Workbooks store dates as plain serial numbers; only the number format of
// the cell's style tells a date apart from a number.  A format is date-like
// when the nfp tokenizer finds date/time or elapsed-time tokens in any of
// its sections.  Because format strings are open-ended (locale prefixes,
// vendor extensions), callers may add Extra substrings that also mark a
// format as a date and Exclude substrings that veto it.  Matching of both
// lists is case-insensitive.
//
// The zero value, and a nil *Recognizer, apply the tokenizer rule only.
type Recognizer struct {
	Extra   []string
	Exclude []string
}

// DefaultRecognizer returns a recogniser with no extra rules.
func DefaultRecognizer() *Recognizer {
	return &Recognizer{}
}

// IsDate reports whether format is a date, time or date-time format.
func (r *Recognizer) IsDate(format string) bool {
	if format == "" || strings.EqualFold(format, "General") {
		return false
	}
	if r != nil {
		lower := strings.ToLower(format)
		for _, p := range r.Exclude {
			if p != "" && strings.Contains(lower, strings.ToLower(p)) {
				return false
			}
		}
		for _, p := range r.Extra {
			if p != "" && strings.Contains(lower, strings.ToLower(p)) {
				return true
			}
		}
	}
	return hasDateTokens(format)
}

// IsDateID reports whether a numFmtId with an optional custom format string
// is date-like.  Built-in date ids are recognised without a format string.
func (r *Recognizer) IsDateID(id int, format string) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		if format == "" {
			return true
		}
	}
	if format == "" {
		format = BuiltIn[id]
	}
	return r.IsDate(format)
}

func hasDateTokens(format string) bool {
	ps := nfp.NumberFormatParser()
	for _, sec := range ps.Parse(format) {
		for _, tok := range sec.Items {
			switch tok.TType {
			case nfp.TokenTypeDateTimes, nfp.TokenTypeElapsedDateTimes:
				return true
			}
		}
	}
	return false
}
