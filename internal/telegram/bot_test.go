package telegram

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"ai-post-scheduler/internal/schedule"
)

func TestFormatPlanMarkdown(t *testing.T) {
	plan := &schedule.GeneratedPlan{
		Platform:   "instagram",
		TotalSlots: 2,
		Slots: []schedule.PlanSlot{
			{Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Weekday: "Monday", PostingTime: "09:30"},
			{Date: time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), Weekday: "Wednesday", PostingTime: "14:05"},
		},
	}

	out := formatPlanMarkdown(plan)

	if !strings.Contains(out, "*instagram*: 2 slots") {
		t.Error("Missing plan header")
	}
	if !strings.Contains(out, "2024-01-15  Mon  09:30") {
		t.Errorf("Missing Monday slot line, got:\n%s", out)
	}
	if !strings.Contains(out, "2024-01-17  Wed  14:05") {
		t.Errorf("Missing Wednesday slot line, got:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Expected 'short', got %q", got)
	}
	if got := truncate("a much longer caption idea", 10); got != "a much ..." {
		t.Errorf("Expected 'a much ...', got %q", got)
	}
	if got := truncate("café reviews and açaí bowls", 10); got != "café re..." {
		t.Errorf("Expected 'café re...', got %q", got)
	}
	if got := truncate("日本語のキャプションを書きます", 8); !utf8.ValidString(got) {
		t.Errorf("Truncated caption is not valid UTF-8: %q", got)
	}
}

func TestBulletList(t *testing.T) {
	out := bulletList([]string{"first", "second"})
	if out != "- first\n- second\n" {
		t.Errorf("Unexpected bullet list output: %q", out)
	}
}
