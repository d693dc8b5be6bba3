package numfmt_test

import (
	"math"
	"testing"
	"time"

	"github.com/TsubasaBE/go-xlsx/numfmt"
)

// ── Recognizer ────────────────────────────────────────────────────────────────

func TestRecognizerIsDate(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{"", false},
		{"General", false},
		{"0.00", false},
		{"#,##0", false},
		{"0%", false},
		{"@", false},
		{"mm-dd-yy", true},
		{"yyyy-mm-dd", true},
		{"d-mmm-yy", true},
		{"h:mm AM/PM", true},
		{"[h]:mm:ss", true},
		{"dd/mm/yyyy hh:mm", true},
		{`"Date: "yyyy`, true},
	}
	r := numfmt.DefaultRecognizer()
	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			if got := r.IsDate(tc.format); got != tc.want {
				t.Errorf("IsDate(%q) = %v, want %v", tc.format, got, tc.want)
			}
		})
	}
}

func TestRecognizerNilAndZeroValue(t *testing.T) {
	var nilRec *numfmt.Recognizer
	var zero numfmt.Recognizer
	for _, f := range []string{"yyyy-mm-dd", "0.00"} {
		want := numfmt.DefaultRecognizer().IsDate(f)
		if got := nilRec.IsDate(f); got != want {
			t.Errorf("nil recognizer IsDate(%q) = %v, want %v", f, got, want)
		}
		if got := zero.IsDate(f); got != want {
			t.Errorf("zero recognizer IsDate(%q) = %v, want %v", f, got, want)
		}
	}
}

func TestRecognizerExtraAndExclude(t *testing.T) {
	r := &numfmt.Recognizer{
		Extra:   []string{"JJJJ"},
		Exclude: []string{"[$-F400]"},
	}
	if !r.IsDate("tt.mm.jjjj") {
		t.Error("extra pattern should match case-insensitively")
	}
	if r.IsDate("[$-F400]h:mm:ss AM/PM") {
		t.Error("excluded pattern must never be a date")
	}
	if !r.IsDate("yyyy") {
		t.Error("tokenizer rule still applies alongside extra patterns")
	}
}

func TestRecognizerIsDateID(t *testing.T) {
	r := numfmt.DefaultRecognizer()
	if !r.IsDateID(14, "") {
		t.Error("id 14 is a built-in date format")
	}
	if !r.IsDateID(46, "") {
		t.Error("id 46 is a built-in elapsed-time format")
	}
	if r.IsDateID(2, "") {
		t.Error("id 2 is a number format")
	}
	if !r.IsDateID(164, "yyyy-mm-dd") {
		t.Error("custom date format should be recognised")
	}
	if r.IsDateID(165, "0.000") {
		t.Error("custom number format is not a date")
	}
}

// ── Built-in table ────────────────────────────────────────────────────────────

func TestBuiltInID(t *testing.T) {
	tests := []struct {
		pattern string
		id      int
		ok      bool
	}{
		{"", 0, true},
		{"General", 0, true},
		{"0.00", 2, true},
		{"mm-dd-yy", 14, true},
		{"@", 49, true},
		{"MM-DD-YYYY", 0, false},
		{"yyyy-mm-dd", 0, false},
	}
	for _, tc := range tests {
		id, ok := numfmt.BuiltInID(tc.pattern)
		if ok != tc.ok || (ok && id != tc.id) {
			t.Errorf("BuiltInID(%q) = (%d, %v), want (%d, %v)", tc.pattern, id, ok, tc.id, tc.ok)
		}
	}
	if id, ok := numfmt.BuiltInID(numfmt.DefaultDateFormat); !ok || id != 14 {
		t.Errorf("DefaultDateFormat maps to (%d, %v), want built-in 14", id, ok)
	}
}

func TestLookup(t *testing.T) {
	custom := map[int]string{164: "yyyy-mm-dd", 0: "General"}
	if got := numfmt.Lookup(164, custom); got != "yyyy-mm-dd" {
		t.Errorf("Lookup(164) = %q", got)
	}
	if got := numfmt.Lookup(0, custom); got != "" {
		t.Errorf("Lookup(0) = %q, want empty (General)", got)
	}
	if got := numfmt.Lookup(4, nil); got != "#,##0.00" {
		t.Errorf("Lookup(4) = %q", got)
	}
	if got := numfmt.Lookup(200, nil); got != "" {
		t.Errorf("Lookup(200) = %q, want empty", got)
	}
}

// ── Serial conversion ─────────────────────────────────────────────────────────

func TestFromSerial(t *testing.T) {
	tests := []struct {
		name     string
		serial   float64
		date1904 bool
		want     time.Time
		wantErr  bool
	}{
		{name: "serial 0", serial: 0, want: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "serial 1", serial: 1, want: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "serial 59", serial: 59, want: time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC)},
		{name: "phantom leap day", serial: 60, want: time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "serial 61", serial: 61, want: time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "noon", serial: 45000.5, want: time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC)},
		{name: "rounds to millisecond", serial: 41235.45578, want: time.Date(2012, 11, 22, 10, 56, 19, 392*int(time.Millisecond), time.UTC)},
		{name: "rolls over midnight", serial: 45000.9999999999, want: time.Date(2023, 3, 16, 0, 0, 0, 0, time.UTC)},
		{name: "far future", serial: 2958465, want: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)},
		{name: "1904 epoch", serial: 0, date1904: true, want: time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "1904 offset", serial: 43538, date1904: true, want: time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "negative", serial: -1, wantErr: true},
		{name: "NaN", serial: math.NaN(), wantErr: true},
		{name: "Inf", serial: math.Inf(1), wantErr: true},
		{name: "beyond 9999", serial: 3e6, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := numfmt.FromSerial(tc.serial, tc.date1904)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("FromSerial(%v) = %v, want error", tc.serial, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromSerial(%v): %v", tc.serial, err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("FromSerial(%v) = %v, want %v", tc.serial, got, tc.want)
			}
		})
	}
}

func TestToSerial(t *testing.T) {
	tests := []struct {
		in       time.Time
		date1904 bool
		want     float64
	}{
		{time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), false, 1},
		{time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC), false, 59},
		{time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC), false, 61},
		{time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC), false, 45000.5},
		{time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), true, 43538},
		{time.Date(2023, 3, 15, 14, 0, 0, 0, time.FixedZone("CET", 2*3600)), false, 45000.5},
		{time.Date(2023, 3, 15, 12, 0, 0, 400_000, time.UTC), false, 45000.5},
	}
	for _, tc := range tests {
		if got := numfmt.ToSerial(tc.in, tc.date1904); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ToSerial(%v, %v) = %v, want %v", tc.in, tc.date1904, got, tc.want)
		}
	}
}

func TestEpoch(t *testing.T) {
	for d1904, want := range map[bool]float64{false: 1, true: 0} {
		start := numfmt.Epoch(d1904)
		if got := numfmt.ToSerial(start, d1904); got != want {
			t.Errorf("ToSerial(Epoch(%v)) = %v, want %v", d1904, got, want)
		}
		back, err := numfmt.FromSerial(want, d1904)
		if err != nil || !back.Equal(start) {
			t.Errorf("FromSerial(%v, %v) = %v, %v; want %v", want, d1904, back, err, start)
		}
	}
	if got := numfmt.Epoch(false); !got.Equal(time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Epoch(false) = %v", got)
	}
}

func TestSerialRoundTrip(t *testing.T) {
	for _, tm := range []time.Time{
		time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 1, 0, 0, 1, 0, time.UTC),
		time.Date(2016, 12, 3, 10, 15, 0, 0, time.UTC),
		time.Date(2261, 7, 4, 23, 59, 59, 0, time.UTC),
		time.Date(2020, 5, 6, 7, 8, 9, 250*int(time.Millisecond), time.UTC),
		time.Date(1999, 12, 31, 23, 59, 59, 999*int(time.Millisecond), time.UTC),
		time.Date(9999, 12, 31, 12, 0, 0, 1*int(time.Millisecond), time.UTC),
	} {
		for _, d1904 := range []bool{false, true} {
			if d1904 && tm.Year() < 1904 {
				continue
			}
			got, err := numfmt.FromSerial(numfmt.ToSerial(tm, d1904), d1904)
			if err != nil {
				t.Fatalf("round trip %v: %v", tm, err)
			}
			if !got.Equal(tm) {
				t.Errorf("round trip %v (1904=%v) = %v", tm, d1904, got)
			}
		}
	}
}
