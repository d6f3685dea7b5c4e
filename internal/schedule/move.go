package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-post-scheduler/internal/records"
)

// ErrPastDate is returned when a move targets a date before today.
var ErrPastDate = errors.New("target date is in the past")

// MoveResult reports the outcome of one move attempt.
type MoveResult struct {
	OK                    bool
	NeedsConfirmOverwrite bool
	Err                   error
}

// MoveOptions control a single move attempt.
type MoveOptions struct {
	// Overwrite authorizes replacing an existing record on the target date.
	// Without it, a collision is reported as advisory and nothing changes.
	Overwrite bool
	// Today anchors the past-date check; zero means time.Now().
	Today time.Time
}

// Mover relocates an already-committed post to a new date. Each attempt
// validates the target, then either commits (with a freshly derived posting
// time) or reports why it cannot.
type Mover struct {
	store records.Store
}

// NewMover creates a Mover over the given record store.
func NewMover(store records.Store) *Mover {
	return &Mover{store: store}
}

// Move relocates the record stored under key to the target date.
//
// A target before today is rejected outright. A target equal to the current
// date is a no-op success. If the target date already holds a record for the
// same platform and overwrite was not authorized, the result carries
// NeedsConfirmOverwrite and no mutation happens; a second call with
// Overwrite set performs the move. On commit the posting time is re-derived
// for the new date, discarding any manual edit, and the platform segment of
// the old key carries over into the new key.
func (m *Mover) Move(ctx context.Context, key string, target time.Time, opts MoveOptions) MoveResult {
	srcKey, err := ParseKey(key)
	if err != nil {
		return MoveResult{Err: fmt.Errorf("parsing record key: %w", err)}
	}
	target = midnight(target)

	today := midnight(opts.Today)
	if opts.Today.IsZero() {
		today = midnight(time.Now())
	}
	// Calendar-date comparisons, not instant comparisons: the key's date is
	// parsed in UTC while operator input arrives in the business timezone,
	// and midnight differs between the two.
	if target.Format(DateLayout) < today.Format(DateLayout) {
		return MoveResult{Err: ErrPastDate}
	}

	if target.Format(DateLayout) == srcKey.Date.Format(DateLayout) {
		return MoveResult{OK: true}
	}

	rec, err := m.store.Get(ctx, key)
	if err != nil {
		return MoveResult{Err: fmt.Errorf("loading record %q: %w", key, err)}
	}

	dstKey := srcKey.WithDate(target)
	occupied, err := m.store.Exists(ctx, dstKey.String())
	if err != nil {
		return MoveResult{Err: fmt.Errorf("checking target %q: %w", dstKey, err)}
	}
	if occupied && !opts.Overwrite {
		return MoveResult{NeedsConfirmOverwrite: true}
	}

	platform := srcKey.EffectivePlatform()
	moved := *rec
	moved.Key = dstKey.String()
	moved.Date = target
	moved.Platform = platform
	moved.PostingTime = AssignTime(target, platform, WindowFor(platform))
	moved.ManualTime = false
	moved.UpdatedAt = time.Now()

	if err := m.store.Move(ctx, key, moved); err != nil {
		return MoveResult{Err: fmt.Errorf("committing move to %q: %w", dstKey, err)}
	}
	return MoveResult{OK: true}
}
