// Package numfmt holds number-format metadata: the built-in format table,
// the recogniser that decides whether a format is date-like, and the
// conversion between Excel serial numbers and time.Time.
package numfmt

import "sort"

// FirstCustomID is the first numFmtId available to formats defined by a
// workbook.  Lower ids are built in.
const FirstCustomID = 164

// DefaultDateFormat is applied to cells that receive a date but whose style
// has no date-like number format.  It is built-in id 14.
const DefaultDateFormat = "mm-dd-yy"

// BuiltIn maps built-in numFmtId values to their canonical format strings
// as defined by ECMA-376 §18.8.30.  IDs 27–36 and 50–58 are locale-specific
// in the standard; the entries here are neutral Western fallbacks used when
// no numFmt element overrides the ID in the file.
var BuiltIn = map[int]string{
	0:  "General",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	5:  `($#,##0_);($#,##0)`,
	6:  `($#,##0_);[Red]($#,##0)`,
	7:  `($#,##0.00_);($#,##0.00)`,
	8:  `($#,##0.00_);[Red]($#,##0.00)`,
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "mm-dd-yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	27: "MM-DD-YYYY",
	28: "D-MMM-YY",
	29: "D-MMM-YY",
	30: "M/D/YY",
	31: "YYYY-M-D",
	32: "H:MM",
	33: "H:MM:SS",
	34: "H:MM AM/PM",
	35: "H:MM:SS AM/PM",
	36: "MM-DD-YYYY",
	37: `#,##0 ;(#,##0)`,
	38: `#,##0 ;[Red](#,##0)`,
	39: `#,##0.00;(#,##0.00)`,
	40: `#,##0.00;[Red](#,##0.00)`,
	41: `_(* #,##0_);_(* (#,##0);_(* "-"_);_(@_)`,
	42: `_($* #,##0_);_($* (#,##0);_($* "-"_);_(@_)`,
	43: `_(* #,##0.00_);_(* (#,##0.00);_(* "-"??_);_(@_)`,
	44: `_($* #,##0.00_);_($* (#,##0.00);_($* "-"??_);_(@_)`,
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mmss.0",
	48: "##0.0E+0",
	49: "@",
	50: "MM-DD-YYYY",
	51: "D-MMM-YY",
	52: "H:MM AM/PM",
	53: "H:MM:SS AM/PM",
	54: "D-MMM-YY",
	55: "H:MM AM/PM",
	56: "H:MM:SS AM/PM",
	57: "MM-DD-YYYY",
	58: "D-MMM-YY",
}

// localeIDs are the locale-dependent built-ins.  Their table entries are
// fallbacks, so a format string is never mapped back onto them.
func localeID(id int) bool {
	return (id >= 27 && id <= 36) || (id >= 50 && id <= 58)
}

var reverseBuiltIn = func() map[string]int {
	ids := make([]int, 0, len(BuiltIn))
	for id := range BuiltIn {
		if !localeID(id) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	m := make(map[string]int, len(ids))
	for _, id := range ids {
		if _, dup := m[BuiltIn[id]]; !dup {
			m[BuiltIn[id]] = id
		}
	}
	return m
}()

// BuiltInID returns the built-in numFmtId whose format string is exactly
// pattern.  The empty pattern is General (id 0).
func BuiltInID(pattern string) (int, bool) {
	if pattern == "" {
		return 0, true
	}
	id, ok := reverseBuiltIn[pattern]
	return id, ok
}

// Lookup returns the format string for a numFmtId, consulting custom (the
// workbook's own numFmt table) first.  General is returned as "".
func Lookup(id int, custom map[int]string) string {
	if s, ok := custom[id]; ok {
		if s == "General" {
			return ""
		}
		return s
	}
	if id == 0 {
		return ""
	}
	return BuiltIn[id]
}
