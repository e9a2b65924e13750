package epub

import "testing"

func TestParseDateTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2024-02-29T10:05:06Z", "2024-02-29T10:05:06Z"},
		{"2024-02-29 10:05:06Z", "2024-02-29T10:05:06Z"},
		{"2024-02-29T10:05:06+02:00", "2024-02-29T10:05:06+02:00"},
		{"2024-02-29T10:05:06-0530", "2024-02-29T10:05:06-05:30"},
		{"2024-02-29T10:05:06.123Z", "2024-02-29T10:05:06Z"},
		{"2024-02-29T10:05", "2024-02-29T10:05:00"},
		{"2024-02-29T10", "2024-02-29T10:00:00"},
		{"2024", "2024-01-01T00:00:00"},
		{"2024-06", "2024-06-01T00:00:00"},
		{"2024/06/15", "2024-06-15T00:00:00"},
		{"2024.06.15", "2024-06-15T00:00:00"},
		{"  2024-06-15  ", "2024-06-15T00:00:00"},
		// Compact and mixed-separator forms: the scanner seeks digits,
		// it never insists on one separator style.
		{"20250525T121521Z", "2025-05-25T12:15:21Z"},
		{"20200520", "2020-05-20T00:00:00"},
		{"2024-06/15", "2024-06-15T00:00:00"},
		{"2022.01.01 12:00:00-0800", "2022-01-01T12:00:00-08:00"},
		{"2021-06-unknown", "2021-06-01T00:00:00"},
		// An unreadable time part falls back to midnight.
		{"2024-06-15Txx", "2024-06-15T00:00:00"},
		{"2024-", "2024-01-01T00:00:00"},
	}
	for _, c := range cases {
		dt, ok := ParseDateTime(c.in)
		if !ok {
			t.Errorf("ParseDateTime(%q) failed", c.in)
			continue
		}
		if got := dt.String(); got != c.want {
			t.Errorf("ParseDateTime(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseDateTimeClamping(t *testing.T) {
	dt, ok := ParseDateTime("2024-13-32T25:61:61Z")
	if !ok {
		t.Fatal("parse failed")
	}
	if dt.Date.Month != 12 || dt.Date.Day != 31 {
		t.Errorf("date not clamped: %v", dt.Date)
	}
	if dt.Time.Hour != 23 || dt.Time.Minute != 59 || dt.Time.Second != 59 {
		t.Errorf("time not clamped: %v", dt.Time)
	}

	// Zero components clamp up to the earliest valid value.
	dt, _ = ParseDateTime("2024-00-00")
	if dt.Date.Month != 1 || dt.Date.Day != 1 {
		t.Errorf("zero components not clamped: %v", dt.Date)
	}
}

func TestParseDateTimeRejects(t *testing.T) {
	// Only a missing year is fatal; everything else degrades.
	bad := []string{"", "abc", "T12:00:00", "----"}
	for _, in := range bad {
		if _, ok := ParseDateTime(in); ok {
			t.Errorf("ParseDateTime(%q) unexpectedly succeeded", in)
		}
	}
}

func TestOffsetClamping(t *testing.T) {
	tm := NewOffsetTime(10, 0, 0, 2000)
	if off, ok := tm.Offset(); !ok || off != 840 {
		t.Errorf("offset = %d, want clamp to 840", off)
	}
	tm = NewOffsetTime(10, 0, 0, -2000)
	if off, _ := tm.Offset(); off != -720 {
		t.Errorf("offset = %d, want clamp to -720", off)
	}
}

func TestTimeZoneClassification(t *testing.T) {
	if !NewTime(1, 2, 3).IsLocal() {
		t.Error("NewTime should be local")
	}
	if !UTC(1, 2, 3).IsUTC() {
		t.Error("UTC should be utc")
	}
	if !NewOffsetTime(1, 2, 3, 60).IsOffset() {
		t.Error("offset time should be offset")
	}
	if h, _ := NewOffsetTime(1, 2, 3, -330).OffsetHour(); h != -5 {
		t.Errorf("OffsetHour = %d, want -5", h)
	}
	if m, _ := NewOffsetTime(1, 2, 3, -330).OffsetMinute(); m != 30 {
		t.Errorf("OffsetMinute = %d, want 30", m)
	}
}

func TestFromUnix(t *testing.T) {
	dt := FromUnix(0)
	if dt.String() != "1970-01-01T00:00:00Z" {
		t.Errorf("FromUnix(0) = %q", dt.String())
	}
}

func TestDateAt(t *testing.T) {
	dt := NewDate(2023, 5, 6).At(UTC(7, 8, 9))
	if dt.String() != "2023-05-06T07:08:09Z" {
		t.Errorf("At = %q", dt.String())
	}
}
