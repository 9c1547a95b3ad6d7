package domain

import (
	"errors"
	"testing"
	"time"
)

// mustDate builds a local midnight time for the given date.
func mustDate(t *testing.T, y int, m time.Month, d int) time.Time {
	t.Helper()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestNextOccurrence_SameWeekdayIsNeverToday(t *testing.T) {
	// 2025-05-05 is a Monday.
	ref := mustDate(t, 2025, time.May, 5)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		refOnDay := NextOccurrence(wd, ref) // land on wd first
		next := NextOccurrence(wd, refOnDay)
		gap := next.Sub(refOnDay)
		if gap != 7*24*time.Hour {
			t.Fatalf("weekday %v: want 7 days ahead, got %v", wd, gap)
		}
		if next.Weekday() != wd {
			t.Fatalf("weekday %v: landed on %v", wd, next.Weekday())
		}
	}
}

func TestNextOccurrence_AlwaysStrictlyAhead(t *testing.T) {
	ref := mustDate(t, 2025, time.May, 7) // Wednesday
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		next := NextOccurrence(wd, ref)
		days := int(next.Sub(ref).Hours() / 24)
		if days < 1 || days > 7 {
			t.Fatalf("weekday %v: %d days ahead, want 1..7", wd, days)
		}
		if wd != ref.Weekday() && days > 6 {
			t.Fatalf("weekday %v: %d days ahead, want 1..6 for non-matching day", wd, days)
		}
	}
}

func TestParseWeekday_CaseInsensitive(t *testing.T) {
	for _, s := range []string{"monday", "Monday", "MONDAY", " monday "} {
		wd, err := ParseWeekday(s)
		if err != nil {
			t.Fatalf("ParseWeekday(%q): %v", s, err)
		}
		if wd != time.Monday {
			t.Fatalf("ParseWeekday(%q) = %v, want Monday", s, wd)
		}
	}
}

func TestParseWeekday_Invalid(t *testing.T) {
	for _, s := range []string{"", "someday", "mon", "воскресенье"} {
		if _, err := ParseWeekday(s); !errors.Is(err, ErrInvalidWeekday) {
			t.Fatalf("ParseWeekday(%q): want ErrInvalidWeekday, got %v", s, err)
		}
	}
}

func TestNextOccurrenceOf(t *testing.T) {
	ref := mustDate(t, 2025, time.May, 6) // Tuesday
	got, err := NextOccurrenceOf("friday", ref)
	if err != nil {
		t.Fatalf("NextOccurrenceOf: %v", err)
	}
	want := mustDate(t, 2025, time.May, 9)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := NextOccurrenceOf("caturday", ref); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("want ErrInvalidWeekday, got %v", err)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		h, m    int
		wantErr bool
	}{
		{in: "18:00", h: 18},
		{in: "09:30", h: 9, m: 30},
		{in: "18:00 - 20:00", h: 18},
		{in: "18:00-20:00", h: 18},
		{in: "24:00", wantErr: true},
		{in: "18:60", wantErr: true},
		{in: "six pm", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		h, m, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidTimeFormat) {
				t.Fatalf("ParseTimeOfDay(%q): want ErrInvalidTimeFormat, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q): %v", tc.in, err)
		}
		if h != tc.h || m != tc.m {
			t.Fatalf("ParseTimeOfDay(%q) = %d:%d, want %d:%d", tc.in, h, m, tc.h, tc.m)
		}
	}
}

func TestFormatDateWithWeekday(t *testing.T) {
	// 2026-02-15 is a Sunday.
	d := mustDate(t, 2026, time.February, 15)
	if got, want := FormatDateWithWeekday(d), "15.02.2026 (воскресенье)"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeTimeOfDay(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"9:00", "09:00"},
		{"09:05", "09:05"},
		{"9:5", "09:05"},
		{"9:00 - 20:00", "09:00 - 20:00"},
		{"18:00 - 20:00", "18:00 - 20:00"},
	}
	for _, tc := range cases {
		got, err := NormalizeTimeOfDay(tc.in)
		if err != nil {
			t.Errorf("NormalizeTimeOfDay(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeTimeOfDay(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := NormalizeTimeOfDay("25:00"); err == nil {
		t.Error("NormalizeTimeOfDay(25:00) should fail")
	}
}
