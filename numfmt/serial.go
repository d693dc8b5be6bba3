package numfmt

import (
	"fmt"
	"math"
	"time"
)

const (
	secondsPerDay = 24 * 60 * 60
	millisPerDay  = secondsPerDay * 1000
)

// maxSerial is one above the last valid 1900-system serial (9999-12-31).
const maxSerial = 2_958_466

var (
	epoch1900 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	epoch1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	// leapBugCutoff is serial 61 in the 1900 system.  Lotus 1-2-3 treated
	// 1900 as a leap year and Excel kept the phantom 1900-02-29 (serial 60),
	// so serials below 61 are one day off the true calendar.
	leapBugCutoff = time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)
)

// ToSerial converts t to an Excel serial number (fractional days).  The
// instant is taken in UTC and rounded to the millisecond.
func ToSerial(t time.Time, date1904 bool) float64 {
	t = t.UTC().Round(time.Millisecond)
	base := epoch1900
	if date1904 {
		base = epoch1904
	}
	ms := (t.Unix()-base.Unix())*1000 + int64(t.Nanosecond()/int(time.Millisecond))
	days, rem := ms/millisPerDay, ms%millisPerDay
	serial := float64(days) + float64(rem)/millisPerDay
	if !date1904 && t.Before(leapBugCutoff) {
		serial--
	}
	return serial
}

// Epoch returns the earliest instant with a serial number in the given date
// system: 1900-01-01 (serial 1) or 1904-01-01 (serial 0).
func Epoch(date1904 bool) time.Time {
	if date1904 {
		return epoch1904
	}
	return time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
}

// FromSerial converts an Excel serial number back to a UTC time.Time,
// rounded to the nearest millisecond.
//
// In the 1900 system serial 0 is 1900-01-01 00:00 and serial 60 is the
// phantom 1900-02-29, which maps to 1900-03-01.
func FromSerial(serial float64, date1904 bool) (time.Time, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, fmt.Errorf("numfmt: invalid serial %v", serial)
	}
	if serial < 0 {
		return time.Time{}, fmt.Errorf("numfmt: negative serial %v not supported", serial)
	}
	limit := float64(maxSerial)
	if date1904 {
		limit -= 1462
	}
	if serial > limit {
		return time.Time{}, fmt.Errorf("numfmt: serial %v exceeds maximum %v", serial, limit)
	}

	ms, rollover := fracMillis(serial)
	days := int(serial) + rollover
	clock := time.Duration(ms) * time.Millisecond

	if date1904 {
		return epoch1904.AddDate(0, 0, days).Add(clock), nil
	}
	switch {
	case days == 0:
		return time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC).Add(clock), nil
	case days >= 61:
		return epoch1900.AddDate(0, 0, days).Add(clock), nil
	default:
		return epoch1900.AddDate(0, 0, days+1).Add(clock), nil
	}
}

// fracMillis converts the fractional-day part of serial to whole
// milliseconds within the day, plus one when rounding reaches midnight.
func fracMillis(serial float64) (ms int64, rollover int) {
	ms = int64(math.Round((serial - math.Trunc(serial)) * millisPerDay))
	return ms % millisPerDay, int(ms / millisPerDay)
}
