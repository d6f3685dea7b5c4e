package schedule

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestAssignTimeDeterministic(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	first := AssignTime(date, "instagram", DefaultWindow)
	for i := 0; i < 5; i++ {
		if got := AssignTime(date, "instagram", DefaultWindow); got != first {
			t.Fatalf("AssignTime not deterministic: got %s, want %s", got, first)
		}
	}
}

func TestAssignTimeOnGridAndInWindow(t *testing.T) {
	window := PostingWindow{Earliest: "09:00", Latest: "17:00"}
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 60; i++ {
		got := AssignTime(date.AddDate(0, 0, i), "linkedin", window)

		minutes := clockMinutes(t, got)
		if minutes%5 != 0 {
			t.Errorf("time %s not on the 5-minute grid", got)
		}
		if minutes < 9*60 || minutes > 17*60 {
			t.Errorf("time %s outside window 09:00-17:00", got)
		}
	}
}

func TestAssignTimeOffGridWindowStartRoundsUp(t *testing.T) {
	// A window opening at 08:02 must never yield times before 08:05;
	// rounding the start down to 08:00 would assign times outside it.
	window := PostingWindow{Earliest: "08:02", Latest: "12:00"}
	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 60; i++ {
		got := AssignTime(date.AddDate(0, 0, i), "facebook", window)
		if minutes := clockMinutes(t, got); minutes < 8*60+5 {
			t.Errorf("time %s precedes window start 08:02", got)
		}
	}
}

func TestAssignTimeSeedChangesResultSet(t *testing.T) {
	// Different seeds should not produce identical times across a whole
	// month; a single collision is fine.
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	same := 0
	for i := 0; i < 30; i++ {
		d := date.AddDate(0, 0, i)
		if AssignTime(d, "instagram", DefaultWindow) == AssignTime(d, "tiktok", DefaultWindow) {
			same++
		}
	}
	if same == 30 {
		t.Error("seed has no effect on assigned times")
	}
}

func TestAssignTimeInvalidWindowFallsBack(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	got := AssignTime(date, "instagram", PostingWindow{Earliest: "garbage", Latest: "xx"})

	minutes := clockMinutes(t, got)
	if minutes < 8*60 || minutes > 20*60 {
		t.Errorf("fallback time %s outside default window 08:00-20:00", got)
	}
}

func TestRoundToNearest5Min(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"09:47", "09:45"},
		{"09:48", "09:50"},
		{"09:45", "09:45"},
		{"00:02", "00:00"},
		{"23:59", "23:55"},
		{"garbage", "garbage"},
	}
	for _, tc := range cases {
		if got := RoundToNearest5Min(tc.in); got != tc.want {
			t.Errorf("RoundToNearest5Min(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWindowForUnknownPlatform(t *testing.T) {
	if got := WindowFor("myspace"); got != DefaultWindow {
		t.Errorf("Expected default window for unknown platform, got %+v", got)
	}
	if got := WindowFor("linkedin"); got.Earliest != "07:00" || got.Latest != "17:00" {
		t.Errorf("Unexpected linkedin window: %+v", got)
	}
}

func TestSetWindowOverrides(t *testing.T) {
	t.Cleanup(func() { windowOverrides = map[string]PostingWindow{} })

	if err := SetWindowOverrides(map[string][2]string{"instagram": {"10:00", "12:00"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := WindowFor("instagram"); got.Earliest != "10:00" || got.Latest != "12:00" {
		t.Errorf("override not applied: %+v", got)
	}
	if got := WindowFor("facebook"); got.Earliest != "09:00" {
		t.Errorf("unrelated platform changed: %+v", got)
	}

	if err := SetWindowOverrides(map[string][2]string{"instagram": {"12:00", "10:00"}}); err == nil {
		t.Error("expected an error for an inverted span")
	}
	if err := SetWindowOverrides(map[string][2]string{"instagram": {"noon", "13:00"}}); err == nil {
		t.Error("expected an error for a malformed clock time")
	}
}

func clockMinutes(t *testing.T, clock string) int {
	t.Helper()
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		t.Fatalf("malformed time %q", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		t.Fatalf("malformed hour in %q", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		t.Fatalf("malformed minute in %q", clock)
	}
	return h*60 + m
}
