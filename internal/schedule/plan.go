package schedule

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ai-post-scheduler/internal/records"
)

// MinCadence and MaxCadence bound the posts-per-week setting.
const (
	MinCadence = 1
	MaxCadence = 7
)

// weekOrder is the business-week ordering used for weekday selection and
// for the breakdown grouping.
var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// PlanSlot is one posting slot inside a generated plan.
type PlanSlot struct {
	Date         time.Time `json:"date"`
	Weekday      string    `json:"weekday"`
	PostingTime  string    `json:"posting_time"`
	IsManualDate bool      `json:"is_manual_date"`
	HasImage     bool      `json:"has_image"`
	StarterText  string    `json:"starter_text"`
	ImageURL     string    `json:"image_url,omitempty"`
}

// GeneratedPlan is the result of one planner invocation. It is a pure
// function of its inputs and is never mutated after construction;
// regenerating means building a new plan.
type GeneratedPlan struct {
	StartDate          time.Time           `json:"start_date"`
	EndDate            time.Time           `json:"end_date"`
	Platform           string              `json:"platform"`
	TotalSlots         int                 `json:"total_slots"`
	Slots              []PlanSlot          `json:"slots"`
	DayOfWeekBreakdown map[string][]string `json:"day_of_week_breakdown"`
}

// BlockedDateSet holds the calendar dates already committed for a platform.
// The planner never mutates it.
type BlockedDateSet map[string]struct{}

// NewBlockedDateSet builds a set from concrete dates.
func NewBlockedDateSet(dates ...time.Time) BlockedDateSet {
	s := make(BlockedDateSet, len(dates))
	for _, d := range dates {
		s[d.Format(DateLayout)] = struct{}{}
	}
	return s
}

// Has reports whether a date is blocked.
func (s BlockedDateSet) Has(date time.Time) bool {
	_, ok := s[date.Format(DateLayout)]
	return ok
}

// BlockedFromRecords builds the blocked set for a platform from committed
// records, mapping legacy bare-date keys onto the default platform.
// Records with malformed keys are ignored.
func BlockedFromRecords(recs []records.Record, platform string) BlockedDateSet {
	blocked := NewBlockedDateSet()
	for _, rec := range recs {
		key, err := ParseKey(rec.Key)
		if err != nil {
			continue
		}
		if key.EffectivePlatform() != platform {
			continue
		}
		blocked[key.Date.Format(DateLayout)] = struct{}{}
	}
	return blocked
}

// BuildPlan distributes round(cadence*days/7) posting slots across the date
// range, skipping blocked dates, and assigns each slot a deterministic
// posting time. Identical inputs always produce an identical plan.
func BuildPlan(start, end time.Time, cadence int, platform string, blocked BlockedDateSet) (*GeneratedPlan, error) {
	start = midnight(start)
	end = midnight(end)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid date range: end %s precedes start %s",
			end.Format(DateLayout), start.Format(DateLayout))
	}
	if cadence < MinCadence || cadence > MaxCadence {
		return nil, fmt.Errorf("cadence %d out of range [%d, %d]", cadence, MinCadence, MaxCadence)
	}

	days := int(end.Sub(start).Hours()/24) + 1
	target := int(math.Round(float64(cadence) * float64(days) / 7.0))
	if target > days {
		target = days
	}

	// Candidate pool: every unblocked date in range, partitioned by weekday.
	pool := make(map[time.Weekday][]time.Time)
	candidates := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if blocked.Has(d) {
			continue
		}
		pool[d.Weekday()] = append(pool[d.Weekday()], d)
		candidates++
	}
	if target > candidates {
		target = candidates
	}

	selected := selectWeekdays(cadence)
	quotas := apportion(target, len(selected))

	taken := make(map[string]struct{}, target)
	var dates []time.Time
	for i, wd := range selected {
		avail := pool[wd]
		n := quotas[i]
		if n > len(avail) {
			n = len(avail)
		}
		for _, d := range avail[:n] {
			taken[d.Format(DateLayout)] = struct{}{}
			dates = append(dates, d)
		}
	}

	// Blocked-out weekdays can leave the plan short of its target; spill the
	// shortfall onto the remaining candidates in chronological order.
	if len(dates) < target {
		for d := start; !d.After(end) && len(dates) < target; d = d.AddDate(0, 0, 1) {
			if blocked.Has(d) {
				continue
			}
			if _, ok := taken[d.Format(DateLayout)]; ok {
				continue
			}
			taken[d.Format(DateLayout)] = struct{}{}
			dates = append(dates, d)
		}
	}

	sortDates(dates)

	window := WindowFor(platform)
	slots := make([]PlanSlot, 0, len(dates))
	for _, d := range dates {
		slots = append(slots, PlanSlot{
			Date:        d,
			Weekday:     d.Weekday().String(),
			PostingTime: AssignTime(d, platform, window),
		})
	}

	breakdown := make(map[string][]string)
	for _, wd := range weekOrder {
		for _, s := range slots {
			if s.Date.Weekday() == wd {
				breakdown[wd.String()] = append(breakdown[wd.String()], s.Date.Format(DateLayout))
			}
		}
	}

	return &GeneratedPlan{
		StartDate:          start,
		EndDate:            end,
		Platform:           platform,
		TotalSlots:         len(slots),
		Slots:              slots,
		DayOfWeekBreakdown: breakdown,
	}, nil
}

// selectWeekdays picks cadence weekdays out of the business week with an
// even stride, so cadence 5 lands on Mon/Tue/Wed/Fri/Sat rather than five
// consecutive days. The choice depends only on the cadence.
func selectWeekdays(cadence int) []time.Weekday {
	out := make([]time.Weekday, 0, cadence)
	for i := 0; i < cadence; i++ {
		out = append(out, weekOrder[i*len(weekOrder)/cadence])
	}
	return out
}

// apportion splits total across n buckets by largest remainder: every bucket
// gets the floor share and the first total%n buckets absorb the leftover.
func apportion(total, n int) []int {
	out := make([]int, n)
	if n == 0 {
		return out
	}
	base, rem := total/n, total%n
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// Slot returns the plan slot on a given date, if any.
func (p *GeneratedPlan) Slot(date time.Time) (*PlanSlot, bool) {
	key := date.Format(DateLayout)
	for i := range p.Slots {
		if p.Slots[i].Date.Format(DateLayout) == key {
			return &p.Slots[i], true
		}
	}
	return nil, false
}

// CloneSlots returns a copy of the plan's slot sequence so consumers can
// derive previews without mutating the plan.
func (p *GeneratedPlan) CloneSlots() []PlanSlot {
	out := make([]PlanSlot, len(p.Slots))
	copy(out, p.Slots)
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
