package importer

import (
	"strings"
	"testing"
	"time"

	"ai-post-scheduler/internal/schedule"
)

func mustPlan(t *testing.T, start, end time.Time, cadence int, blocked schedule.BlockedDateSet) *schedule.GeneratedPlan {
	t.Helper()
	plan, err := schedule.BuildPlan(start, end, cadence, "instagram", blocked)
	if err != nil {
		t.Fatalf("building plan: %v", err)
	}
	return plan
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseRowsHeaderTolerance(t *testing.T) {
	csv := "Date, Starter Text ,Image URL\n2024-01-15,Fish tacos,https://img.example/1.jpg\n"
	rows, errs := ParseRows(strings.NewReader(csv))
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.Date == nil || row.Date.Format(schedule.DateLayout) != "2024-01-15" {
		t.Errorf("date not parsed: %+v", row.Date)
	}
	if row.Body != "Fish tacos" {
		t.Errorf("body = %q", row.Body)
	}
	if row.ImageURL != "https://img.example/1.jpg" {
		t.Errorf("imageURL = %q", row.ImageURL)
	}
}

func TestParseRowsBodyAliases(t *testing.T) {
	for _, header := range []string{"starterText", "body", "bodyText", "text"} {
		t.Run(header, func(t *testing.T) {
			rows, errs := ParseRows(strings.NewReader(header + "\nhello\n"))
			if len(errs) != 0 {
				t.Fatalf("parse errors: %v", errs)
			}
			if len(rows) != 1 || rows[0].Body != "hello" {
				t.Errorf("rows = %+v", rows)
			}
		})
	}
}

func TestParseRowsMissingBodyColumn(t *testing.T) {
	_, errs := ParseRows(strings.NewReader("date,imageUrl\n2024-01-15,\n"))
	if len(errs) != 1 || !strings.Contains(errs[0], "starterText") {
		t.Fatalf("expected missing-column error, got %v", errs)
	}
}

func TestParseRowsDateFormats(t *testing.T) {
	csv := "date,starterText\n2024-01-15,a\n1/2/2024,b\n01/02/2024,c\n,d\n"
	rows, errs := ParseRows(strings.NewReader(csv))
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	for i, want := range []string{"2024-01-15", "2024-01-02", "2024-01-02"} {
		if got := rows[i].Date.Format(schedule.DateLayout); got != want {
			t.Errorf("row %d date = %s, want %s", i, got, want)
		}
	}
	if rows[3].Date != nil {
		t.Error("empty date cell must parse as undated")
	}
}

func TestParseRowsBadDateReportsLine(t *testing.T) {
	csv := "date,starterText\n2024-01-15,ok\nJanuary 15,bad\n"
	rows, errs := ParseRows(strings.NewReader(csv))
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "row 3") {
		t.Fatalf("expected a row 3 date error, got %v", errs)
	}
}

func TestValidateDuplicateDates(t *testing.T) {
	plan := mustPlan(t, day(2024, 1, 15), day(2024, 1, 28), 7, nil)
	d := day(2024, 1, 16)
	rows := []ImportRow{
		{Line: 2, Date: &d, Body: "first"},
		{Line: 3, Date: &d, Body: "second"},
	}

	res := Validate(plan, rows, nil)
	if res.Valid {
		t.Fatal("duplicate explicit dates must fail validation")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "duplicate date 2024-01-16") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestValidateBlockedDate(t *testing.T) {
	blocked := schedule.NewBlockedDateSet(day(2024, 1, 16))
	plan := mustPlan(t, day(2024, 1, 15), day(2024, 1, 28), 7, blocked)
	d := day(2024, 1, 16)
	rows := []ImportRow{{Line: 2, Date: &d, Body: "collides"}}

	res := Validate(plan, rows, blocked)
	if res.Valid {
		t.Fatal("a committed date must fail validation")
	}
	if !strings.Contains(res.Errors[0], "already has a committed post") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestValidateEmptyBody(t *testing.T) {
	plan := mustPlan(t, day(2024, 1, 15), day(2024, 1, 28), 7, nil)
	rows := []ImportRow{{Line: 2, Body: ""}}

	res := Validate(plan, rows, nil)
	if res.Valid {
		t.Fatal("empty starter text must fail validation")
	}
}

func TestValidateAutoRowOverflow(t *testing.T) {
	// One week at cadence 2 yields two slots.
	plan := mustPlan(t, day(2024, 1, 15), day(2024, 1, 21), 2, nil)
	rows := []ImportRow{
		{Line: 2, Body: "a"},
		{Line: 3, Body: "b"},
		{Line: 4, Body: "c"},
	}

	res := Validate(plan, rows, nil)
	if res.Valid {
		t.Fatal("more undated rows than free slots must fail validation")
	}
	if !strings.Contains(res.Errors[0], "free slots") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestValidateSkipsDatesOutsidePlan(t *testing.T) {
	plan := mustPlan(t, day(2024, 1, 15), day(2024, 1, 21), 2, nil)
	outside := day(2024, 3, 1)
	inside := plan.Slots[0].Date
	rows := []ImportRow{
		{Line: 2, Date: &outside, Body: "stray"},
		{Line: 3, Date: &inside, Body: "match"},
	}

	res := Validate(plan, rows, nil)
	if !res.Valid {
		t.Fatalf("skipped rows must not fail validation: %v", res.Errors)
	}
	if res.Matched != 1 {
		t.Errorf("Matched = %d, want 1", res.Matched)
	}
	if res.SkippedTotal != 1 || len(res.Skipped) != 1 || res.Skipped[0] != "2024-03-01" {
		t.Errorf("skipped = %v (total %d)", res.Skipped, res.SkippedTotal)
	}
}

func TestValidateSkippedPreviewIsCapped(t *testing.T) {
	plan := mustPlan(t, day(2024, 1, 15), day(2024, 1, 21), 2, nil)
	var rows []ImportRow
	for i := 0; i < 15; i++ {
		d := day(2024, 3, 1).AddDate(0, 0, i)
		rows = append(rows, ImportRow{Line: i + 2, Date: &d, Body: "stray"})
	}

	res := Validate(plan, rows, nil)
	if res.SkippedTotal != 15 {
		t.Errorf("SkippedTotal = %d, want 15", res.SkippedTotal)
	}
	if len(res.Skipped) != maxSkippedPreview {
		t.Errorf("len(Skipped) = %d, want %d", len(res.Skipped), maxSkippedPreview)
	}
}

func TestApplyToPlanExplicitDate(t *testing.T) {
	plan := mustPlan(t, day(2024, 1, 15), day(2024, 1, 21), 3, nil)
	target := plan.Slots[0].Date
	rows := []ImportRow{{Line: 2, Date: &target, Body: "Fish tacos"}}

	preview := ApplyToPlan(plan, rows)

	if preview.ManualDateCount != 1 || preview.AutoDateCount != 0 {
		t.Errorf("counts = %d manual, %d auto", preview.ManualDateCount, preview.AutoDateCount)
	}
	got := preview.Rows[0]
	if !got.IsManualDate {
		t.Error("explicit row must mark its slot manual")
	}
	if got.StarterText != "Fish tacos" {
		t.Errorf("starter text = %q", got.StarterText)
	}
	if !got.Date.Equal(target) {
		t.Errorf("slot date changed to %s", got.Date)
	}
	if plan.Slots[0].StarterText != "" || plan.Slots[0].IsManualDate {
		t.Error("source plan must not be mutated")
	}
}

func TestApplyToPlanAutoFillIsChronological(t *testing.T) {
	plan := mustPlan(t, day(2024, 1, 15), day(2024, 1, 21), 3, nil)
	claimed := plan.Slots[1].Date
	rows := []ImportRow{
		{Line: 2, Body: "second free slot"},
		{Line: 3, Date: &claimed, Body: "pinned"},
		{Line: 4, Body: "third free slot"},
	}

	preview := ApplyToPlan(plan, rows)

	if preview.ManualDateCount != 1 || preview.AutoDateCount != 2 {
		t.Fatalf("counts = %d manual, %d auto", preview.ManualDateCount, preview.AutoDateCount)
	}
	if preview.Rows[0].StarterText != "second free slot" {
		t.Errorf("slot 0 = %q", preview.Rows[0].StarterText)
	}
	if preview.Rows[1].StarterText != "pinned" || !preview.Rows[1].IsManualDate {
		t.Errorf("slot 1 = %+v", preview.Rows[1])
	}
	if preview.Rows[2].StarterText != "third free slot" || preview.Rows[2].IsManualDate {
		t.Errorf("slot 2 = %+v", preview.Rows[2])
	}
}

func TestApplyToPlanImageFlag(t *testing.T) {
	plan := mustPlan(t, day(2024, 1, 15), day(2024, 1, 21), 2, nil)
	rows := []ImportRow{
		{Line: 2, Body: "with image", ImageURL: "https://img.example/a.jpg"},
		{Line: 3, Body: "without"},
	}

	preview := ApplyToPlan(plan, rows)
	if !preview.Rows[0].HasImage || preview.Rows[0].ImageURL == "" {
		t.Errorf("slot 0 = %+v", preview.Rows[0])
	}
	if preview.Rows[1].HasImage {
		t.Errorf("slot 1 = %+v", preview.Rows[1])
	}
}
