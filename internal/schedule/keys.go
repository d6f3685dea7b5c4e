package schedule

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used throughout record keys and
// plan output.
const DateLayout = "2006-01-02"

// DefaultPlatform is assumed for legacy records whose key carries no
// platform segment.
const DefaultPlatform = "instagram"

// RecordKey identifies one committed post: one record per (date, platform).
// Legacy single-platform records use a bare date as their key.
type RecordKey struct {
	Date     time.Time
	Platform string
}

// String renders the key in its stored form: "YYYY-MM-DD" for legacy keys,
// "YYYY-MM-DD-<platform>" otherwise.
func (k RecordKey) String() string {
	if k.Platform == "" {
		return k.Date.Format(DateLayout)
	}
	return k.Date.Format(DateLayout) + "-" + k.Platform
}

// EffectivePlatform resolves the platform this key belongs to, mapping
// legacy keys onto DefaultPlatform.
func (k RecordKey) EffectivePlatform() string {
	if k.Platform == "" {
		return DefaultPlatform
	}
	return k.Platform
}

// WithDate builds the key for the same platform on a different date,
// preserving the legacy (platform-less) form when the source key had one.
func (k RecordKey) WithDate(date time.Time) RecordKey {
	return RecordKey{Date: date, Platform: k.Platform}
}

// ParseKey parses a stored record key. The scheme is inferred from the key
// itself: the first ten characters must be a calendar date, and anything
// after a following dash is the platform segment.
func ParseKey(key string) (RecordKey, error) {
	if len(key) < len(DateLayout) {
		return RecordKey{}, fmt.Errorf("record key %q too short", key)
	}

	date, err := time.Parse(DateLayout, key[:len(DateLayout)])
	if err != nil {
		return RecordKey{}, fmt.Errorf("record key %q has no leading date: %w", key, err)
	}

	rest := key[len(DateLayout):]
	if rest == "" {
		return RecordKey{Date: date}, nil
	}
	if !strings.HasPrefix(rest, "-") || len(rest) == 1 {
		return RecordKey{}, fmt.Errorf("malformed record key %q", key)
	}
	return RecordKey{Date: date, Platform: rest[1:]}, nil
}

// KeyFor builds the key for a post on a platform. An empty platform produces
// a legacy bare-date key.
func KeyFor(date time.Time, platform string) RecordKey {
	return RecordKey{Date: date, Platform: platform}
}
