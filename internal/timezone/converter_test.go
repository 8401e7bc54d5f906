package timezone

import (
	"strings"
	"testing"
	"time"
)

func TestLocalToUTC(t *testing.T) {
	c := NewConverter(nil)
	cases := []struct {
		date, clock, zone string
		want              string
	}{
		{"2024-01-15", "14:00", "America/New_York", "2024-01-15T19:00:00"},
		{"2024-07-15", "14:00", "America/New_York", "2024-07-15T18:00:00"},
		{"2024-01-15", "09:30", "Asia/Kolkata", "2024-01-15T04:00:00"},
		{"2024-01-15", "14:00", "", "2024-01-15T14:00:00"},
		{"2024-01-15", "14:00", "Not/AZone", "2024-01-15T14:00:00"},
		{"2024-01-15", "9", "UTC", "2024-01-15T09:00:00"},
	}
	for _, tc := range cases {
		got, err := c.LocalToUTC(tc.date, tc.clock, tc.zone)
		if err != nil {
			t.Fatalf("LocalToUTC(%q, %q, %q) error = %v", tc.date, tc.clock, tc.zone, err)
		}
		if got != tc.want {
			t.Fatalf("LocalToUTC(%q, %q, %q) = %q, want %q", tc.date, tc.clock, tc.zone, got, tc.want)
		}
	}
}

func TestLocalToUTCRejectsBadInput(t *testing.T) {
	c := NewConverter(nil)
	if _, err := c.LocalToUTC("", "14:00", "UTC"); err == nil {
		t.Fatalf("LocalToUTC() expected error for blank date")
	}
	if _, err := c.LocalToUTC("2024-13-01", "14:00", "UTC"); err == nil {
		t.Fatalf("LocalToUTC() expected error for invalid month")
	}
}

func TestUTCToLocal(t *testing.T) {
	c := NewConverter(nil)
	got := c.UTCToLocal("2024-01-15T19:00:00Z", "America/New_York")
	if want := "January 15, 2024 at 2:00 PM EST"; got != want {
		t.Fatalf("UTCToLocal() = %q, want %q", got, want)
	}
	got = c.UTCToLocal("2024-01-15T19:00:00", "")
	if want := "January 15, 2024 at 7:00 PM UTC"; got != want {
		t.Fatalf("UTCToLocal(naive) = %q, want %q", got, want)
	}
	if got := c.UTCToLocal("not a time", "UTC"); got != "not a time" {
		t.Fatalf("UTCToLocal(bad) = %q, want input unchanged", got)
	}
}

func TestFormatLocalDateTime(t *testing.T) {
	c := NewConverter(nil)
	got := c.FormatLocalDateTime("2024-01-15", "14:00", "Europe/London")
	if want := "January 15, 2024 at 2:00 PM GMT"; got != want {
		t.Fatalf("FormatLocalDateTime() = %q, want %q", got, want)
	}
	if got := c.FormatLocalDateTime("someday", "noon", "UTC"); got != "someday at noon" {
		t.Fatalf("FormatLocalDateTime(bad) = %q, want fallback", got)
	}
}

func TestTodayUsesZone(t *testing.T) {
	c := NewConverter(nil)
	now := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)
	if got := c.Today("America/Los_Angeles", now); got != "2024-01-14" {
		t.Fatalf("Today() = %q, want %q", got, "2024-01-14")
	}
	if !c.Known("Europe/Paris") || c.Known("Mars/Olympus") {
		t.Fatalf("Known() misreports zone validity")
	}
	if loc := c.Location("  "); !strings.EqualFold(loc.String(), "UTC") {
		t.Fatalf("Location(blank) = %s, want UTC", loc)
	}
}

func TestParseInstant(t *testing.T) {
	want := time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-03-11T18:00:00Z", "2025-03-11T14:00:00-04:00", " 2025-03-11T18:00:00 "} {
		got, err := ParseInstant(in)
		if err != nil {
			t.Fatalf("ParseInstant(%q) error = %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseInstant(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseInstant("tomorrow"); err == nil {
		t.Fatalf("ParseInstant(tomorrow) error = nil, want error")
	}
}
