package schedule

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// PostingWindow is the time-of-day span inside which auto-assigned posting
// times fall, expressed as 24-hour "HH:MM" bounds (inclusive).
type PostingWindow struct {
	Earliest string
	Latest   string
}

// DefaultWindow is used whenever a platform or industry profile has no
// posting window configured.
var DefaultWindow = PostingWindow{Earliest: "08:00", Latest: "20:00"}

// defaultProfileWindows are the built-in per-platform posting windows.
// Operators can override them through config.
var defaultProfileWindows = map[string]PostingWindow{
	"instagram": {Earliest: "08:00", Latest: "20:00"},
	"facebook":  {Earliest: "09:00", Latest: "21:00"},
	"linkedin":  {Earliest: "07:00", Latest: "17:00"},
	"tiktok":    {Earliest: "11:00", Latest: "22:00"},
}

// windowOverrides holds operator-configured windows. Set once at startup,
// before any plan is built.
var windowOverrides = map[string]PostingWindow{}

// SetWindowOverrides installs per-platform window overrides from config.
// Malformed spans are rejected so a typo cannot silently collapse a window.
func SetWindowOverrides(spans map[string][2]string) error {
	out := make(map[string]PostingWindow, len(spans))
	for platform, span := range spans {
		w := PostingWindow{Earliest: span[0], Latest: span[1]}
		if _, _, err := windowMinutes(w); err != nil {
			return fmt.Errorf("posting window for %q: %w", platform, err)
		}
		out[platform] = w
	}
	windowOverrides = out
	return nil
}

// WindowFor returns the posting window for a platform profile, preferring
// an operator override and falling back to DefaultWindow when the profile
// is unknown or the window is malformed.
func WindowFor(platform string) PostingWindow {
	if w, ok := windowOverrides[platform]; ok {
		return w
	}
	if w, ok := defaultProfileWindows[platform]; ok {
		if _, _, err := windowMinutes(w); err == nil {
			return w
		}
	}
	return DefaultWindow
}

// AssignTime deterministically derives a posting time for a date. The same
// (date, seed) pair always yields the same "HH:MM", so regenerating a plan
// never shuffles times the operator has already seen. The result is always
// a multiple of 5 minutes inside the window.
func AssignTime(date time.Time, seed string, window PostingWindow) string {
	startMin, endMin, err := windowMinutes(window)
	if err != nil {
		startMin, endMin, _ = windowMinutes(DefaultWindow)
	}

	increments := (endMin-startMin)/5 + 1

	data := date.Format(DateLayout) + "|" + seed
	hash := sha256.Sum256([]byte(data))
	num := uint64(hash[0])<<24 | uint64(hash[1])<<16 | uint64(hash[2])<<8 | uint64(hash[3])

	minutes := startMin + int(num%uint64(increments))*5
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// RoundToNearest5Min snaps a manually edited "HH:MM" time onto the 5-minute
// grid. Invalid input is returned unchanged so callers can validate
// separately.
func RoundToNearest5Min(t string) string {
	minutes, err := parseClock(t)
	if err != nil {
		return t
	}
	rounded := ((minutes + 2) / 5) * 5
	if rounded >= 24*60 {
		rounded = 23*60 + 55
	}
	return fmt.Sprintf("%02d:%02d", rounded/60, rounded%60)
}

// windowMinutes converts a window into minute-of-day bounds on the 5-minute
// grid. The start rounds up and the end rounds down so assigned times never
// escape the window.
func windowMinutes(w PostingWindow) (start, end int, err error) {
	start, err = parseClock(w.Earliest)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid window start %q: %w", w.Earliest, err)
	}
	end, err = parseClock(w.Latest)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid window end %q: %w", w.Latest, err)
	}
	start = ((start + 4) / 5) * 5
	end = (end / 5) * 5
	if end < start {
		return 0, 0, fmt.Errorf("window end %q precedes start %q", w.Latest, w.Earliest)
	}
	return start, end, nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(t string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(t, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("not a HH:MM time: %w", err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("out of range clock time %q", t)
	}
	return h*60 + m, nil
}
