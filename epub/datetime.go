package epub

import (
	"fmt"
	"strings"
	"time"
)

// Offset bounds in minutes: UTC-12:00 through UTC+14:00.
const (
	minUTCOffset = -720
	maxUTCOffset = 840
)

// Date is a calendar date. Components are clamped into range at
// construction; absent components default to the earliest valid value.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate builds a date, clamping month to 1–12 and day to 1–31.
func NewDate(year, month, day int) Date {
	return Date{
		Year:  year,
		Month: clamp(month, 1, 12),
		Day:   clamp(day, 1, 31),
	}
}

// At combines the date with a time of day.
func (d Date) At(t Time) DateTime { return DateTime{Date: d, Time: t} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time is a time of day with an optional UTC offset in minutes.
type Time struct {
	Hour   int
	Minute int
	Second int
	// offset is the UTC offset in minutes; valid only when hasOffset.
	offset    int
	hasOffset bool
}

// NewTime builds a local (offset-less) time, clamping components.
func NewTime(hour, minute, second int) Time {
	return Time{
		Hour:   clamp(hour, 0, 23),
		Minute: clamp(minute, 0, 59),
		Second: clamp(second, 0, 59),
	}
}

// NewOffsetTime builds a time with a UTC offset in minutes, clamped to
// the valid range of real-world zones.
func NewOffsetTime(hour, minute, second, utcOffset int) Time {
	t := NewTime(hour, minute, second)
	t.offset = clamp(utcOffset, minUTCOffset, maxUTCOffset)
	t.hasOffset = true
	return t
}

// UTC builds a time pinned to UTC.
func UTC(hour, minute, second int) Time {
	return NewOffsetTime(hour, minute, second, 0)
}

// Offset returns the UTC offset in minutes and whether one is present.
func (t Time) Offset() (int, bool) { return t.offset, t.hasOffset }

// OffsetHour returns the hour component of the offset.
func (t Time) OffsetHour() (int, bool) { return t.offset / 60, t.hasOffset }

// OffsetMinute returns the minute component of the offset.
func (t Time) OffsetMinute() (int, bool) {
	m := t.offset % 60
	if m < 0 {
		m = -m
	}
	return m, t.hasOffset
}

// IsLocal reports a time without zone information.
func (t Time) IsLocal() bool { return !t.hasOffset }

// IsOffset reports a time with a non-UTC offset.
func (t Time) IsOffset() bool { return t.hasOffset && t.offset != 0 }

// IsUTC reports a time pinned to UTC.
func (t Time) IsUTC() bool { return t.hasOffset && t.offset == 0 }

func (t Time) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if !t.hasOffset {
		return s
	}
	if t.offset == 0 {
		return s + "Z"
	}
	sign := "+"
	off := t.offset
	if off < 0 {
		sign = "-"
		off = -off
	}
	return fmt.Sprintf("%s%s%02d:%02d", s, sign, off/60, off%60)
}

// DateTime is a best-effort timestamp as found in dc:date and
// dcterms:modified values.
type DateTime struct {
	Date Date
	Time Time
}

// Now returns the current moment in UTC. This is the library's only
// impurity; callers needing determinism construct values explicitly.
func Now() DateTime {
	return FromUnix(time.Now().Unix())
}

// FromUnix converts a Unix timestamp to a UTC DateTime.
func FromUnix(secs int64) DateTime {
	t := time.Unix(secs, 0).UTC()
	return DateTime{
		Date: NewDate(t.Year(), int(t.Month()), t.Day()),
		Time: UTC(t.Hour(), t.Minute(), t.Second()),
	}
}

// IsZero reports the zero DateTime, which no parse produces.
func (dt DateTime) IsZero() bool { return dt == DateTime{} }

func (dt DateTime) String() string {
	return dt.Date.String() + "T" + dt.Time.String()
}

// ParseDateTime reads ISO-8601 and its common real-world variants. The
// scanner seeks digits, so any separator (or none at all) works:
// `YYYY[MM[DD]]` with `-`, `/`, `.` or compact form, optionally
// followed by `T` or a space and `HH[MM[SS]][Z|±HH[MM]]` (compact
// `20250525T121521Z` included). Out-of-range components are clamped;
// absent ones take the earliest valid value. A date part without a year
// fails; an unreadable time part falls back to 00:00:00.
func ParseDateTime(raw string) (DateTime, bool) {
	raw = strings.TrimSpace(raw)
	dateStr := raw
	timeStr := ""
	hasTime := false
	if i := strings.IndexAny(raw, "T "); i >= 0 {
		dateStr, timeStr = raw[:i], raw[i+1:]
		hasTime = true
	}

	date, ok := ParseDate(dateStr)
	if !ok {
		return DateTime{}, false
	}
	dt := DateTime{Date: date, Time: NewTime(0, 0, 0)}
	if hasTime {
		if t, ok := ParseTime(timeStr); ok {
			dt.Time = t
		}
	}
	return dt, true
}

// ParseDate reads a date alone. Non-digit runs between components are
// skipped; trailing garbage after the last readable component is
// ignored.
func ParseDate(raw string) (Date, bool) {
	sc := &numScanner{s: strings.TrimSpace(raw)}
	year, ok := sc.takeDateNum(4)
	if !ok {
		return Date{}, false
	}
	month, day := 1, 1
	if m, ok := sc.takeDateNum(2); ok {
		month = m
		if d, ok := sc.takeDateNum(2); ok {
			day = d
		}
	}
	return NewDate(year, month, day), true
}

// ParseTime reads a time of day alone, with an optional `Z` or `±HH[MM]`
// offset suffix.
func ParseTime(raw string) (Time, bool) {
	sc := &numScanner{s: strings.TrimSpace(raw)}
	hour, ok := sc.takeTimeNum(2)
	if !ok {
		return Time{}, false
	}
	minute, second := 0, 0
	if m, ok := sc.takeTimeNum(2); ok {
		minute = m
		if s, ok := sc.takeTimeNum(2); ok {
			second = s
		}
	}

	// Scan the remainder for a zone designator; fractional seconds and
	// other stray characters along the way are skipped.
	for sc.i < len(sc.s) {
		c := sc.s[sc.i]
		sc.i++
		if c == 'Z' {
			return UTC(hour, minute, second), true
		}
		if c == '+' || c == '-' {
			oh, _ := sc.takeTimeNum(2)
			om, _ := sc.takeTimeNum(2)
			offset := oh*60 + om
			if c == '-' {
				offset = -offset
			}
			return NewOffsetTime(hour, minute, second, offset), true
		}
	}
	return NewTime(hour, minute, second), true
}

// numScanner walks a byte string extracting bounded numbers.
type numScanner struct {
	s string
	i int
}

// takeDateNum skips any run of non-digits, then reads up to max digits.
func (sc *numScanner) takeDateNum(max int) (int, bool) {
	for sc.i < len(sc.s) && !isDigit(sc.s[sc.i]) {
		sc.i++
	}
	return sc.takeNum(max)
}

// takeTimeNum is takeDateNum, but stops short of a zone designator so
// offset digits are not consumed as time-of-day components.
func (sc *numScanner) takeTimeNum(max int) (int, bool) {
	for sc.i < len(sc.s) {
		c := sc.s[sc.i]
		if c == 'Z' || c == '+' || c == '-' {
			return 0, false
		}
		if isDigit(c) {
			break
		}
		sc.i++
	}
	return sc.takeNum(max)
}

func (sc *numScanner) takeNum(max int) (int, bool) {
	v, n := 0, 0
	for sc.i < len(sc.s) && n < max && isDigit(sc.s[sc.i]) {
		v = v*10 + int(sc.s[sc.i]-'0')
		sc.i++
		n++
	}
	return v, n > 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
