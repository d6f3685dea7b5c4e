// Package importer parses bulk CSV imports and merges them into a generated
// plan, with all-or-nothing validation before anything is persisted.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"ai-post-scheduler/internal/schedule"
)

// dateLayouts are the calendar-date formats accepted for the date column.
var dateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006"}

// maxSkippedPreview caps how many skipped-row keys are listed individually;
// the total count is always reported alongside.
const maxSkippedPreview = 10

// ImportRow is one parsed row of the bulk import. A nil Date means the row
// will be auto-assigned to the next free slot in chronological order.
type ImportRow struct {
	Line     int
	Date     *time.Time
	Body     string
	ImageURL string
}

// SchedulePreview is the merged, ready-to-apply view of a plan plus import
// rows. It is a fresh value; the plan it was derived from is untouched.
type SchedulePreview struct {
	Platform        string
	Rows            []schedule.PlanSlot
	ManualDateCount int
	AutoDateCount   int
}

// ValidationResult reports whether an import may proceed. Errors are ordered
// and human-readable; any error blocks the whole import.
type ValidationResult struct {
	Valid        bool
	Errors       []string
	Matched      int
	Skipped      []string
	SkippedTotal int
}

// ParseRows reads a CSV table with a header row. Recognized columns are
// "date" (optional), "starterText" (or "body"/"text", required) and
// "imageUrl" (optional); matching is case- and spacing-insensitive and
// unknown columns are ignored. A malformed date is a parse error carrying
// the row number, never a silently dropped row.
func ParseRows(r io.Reader) ([]ImportRow, []string) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, []string{fmt.Sprintf("could not read header row: %v", err)}
	}

	dateCol, bodyCol, imageCol := -1, -1, -1
	for i, name := range header {
		switch normalizeHeader(name) {
		case "date":
			dateCol = i
		case "startertext", "body", "bodytext", "text":
			bodyCol = i
		case "imageurl", "image":
			imageCol = i
		}
	}
	if bodyCol < 0 {
		return nil, []string{"missing required column: starterText"}
	}

	var rows []ImportRow
	var parseErrors []string
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		row := ImportRow{Line: line}
		if bodyCol < len(record) {
			row.Body = strings.TrimSpace(record[bodyCol])
		}
		if imageCol >= 0 && imageCol < len(record) {
			row.ImageURL = strings.TrimSpace(record[imageCol])
		}
		if dateCol >= 0 && dateCol < len(record) {
			raw := strings.TrimSpace(record[dateCol])
			if raw != "" {
				date, err := parseDate(raw)
				if err != nil {
					parseErrors = append(parseErrors, fmt.Sprintf("row %d: unrecognized date %q", line, raw))
					continue
				}
				row.Date = &date
			}
		}
		rows = append(rows, row)
	}

	return rows, parseErrors
}

// Validate checks the parsed rows against a plan and the already-committed
// dates. All rules must pass before any apply step; a failed import is
// rejected in full. Explicit dates with no slot in the plan are not errors:
// they are skipped and tracked by key for a partial-apply preview.
func Validate(plan *schedule.GeneratedPlan, rows []ImportRow, blocked schedule.BlockedDateSet) ValidationResult {
	var res ValidationResult

	seen := make(map[string]int)
	autoRows := 0
	explicitMatches := make(map[string]struct{})

	for _, row := range rows {
		if row.Body == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: starterText must not be empty", row.Line))
		}

		if row.Date == nil {
			autoRows++
			continue
		}

		key := row.Date.Format(schedule.DateLayout)
		if prev, dup := seen[key]; dup {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: duplicate date %s (already used by row %d)", row.Line, key, prev))
			continue
		}
		seen[key] = row.Line

		if blocked.Has(*row.Date) {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: date %s already has a committed post", row.Line, key))
			continue
		}

		if _, ok := plan.Slot(*row.Date); !ok {
			res.SkippedTotal++
			if len(res.Skipped) < maxSkippedPreview {
				res.Skipped = append(res.Skipped, key)
			}
			continue
		}
		explicitMatches[key] = struct{}{}
		res.Matched++
	}

	free := plan.TotalSlots - len(explicitMatches)
	if autoRows > free {
		res.Errors = append(res.Errors, fmt.Sprintf("%d rows have no date but only %d free slots remain in the plan", autoRows, free))
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// ApplyToPlan merges rows into a copy of the plan's slots and returns the
// resulting preview. Rows with an explicit date overwrite their matching
// slot and mark it manual; rows without a date consume the remaining auto
// slots strictly in chronological order. The plan itself is never mutated.
func ApplyToPlan(plan *schedule.GeneratedPlan, rows []ImportRow) *SchedulePreview {
	slots := plan.CloneSlots()
	byDate := make(map[string]int, len(slots))
	for i, s := range slots {
		byDate[s.Date.Format(schedule.DateLayout)] = i
	}

	preview := &SchedulePreview{Platform: plan.Platform}

	var undated []ImportRow
	for _, row := range rows {
		if row.Date == nil {
			undated = append(undated, row)
			continue
		}
		i, ok := byDate[row.Date.Format(schedule.DateLayout)]
		if !ok {
			continue
		}
		slots[i].IsManualDate = true
		slots[i].StarterText = row.Body
		slots[i].ImageURL = row.ImageURL
		slots[i].HasImage = row.ImageURL != ""
		preview.ManualDateCount++
	}

	// Undated rows fill whatever the explicit rows left over, earliest
	// slot first. Slots are already in date order; the stable sort on the
	// rows keeps input order for rows parsed on the same call.
	sort.SliceStable(undated, func(i, j int) bool { return undated[i].Line < undated[j].Line })
	next := 0
	for _, row := range undated {
		for next < len(slots) && slots[next].IsManualDate {
			next++
		}
		if next >= len(slots) {
			break
		}
		slots[next].StarterText = row.Body
		slots[next].ImageURL = row.ImageURL
		slots[next].HasImage = row.ImageURL != ""
		preview.AutoDateCount++
		next++
	}

	preview.Rows = slots
	return preview
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no accepted date layout matches %q", raw)
}
