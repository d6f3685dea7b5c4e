package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"ai-post-scheduler/internal/apply"
	"ai-post-scheduler/internal/config"
	"ai-post-scheduler/internal/importer"
	"ai-post-scheduler/internal/linkcard"
	"ai-post-scheduler/internal/metrics"
	"ai-post-scheduler/internal/records"
	"ai-post-scheduler/internal/schedule"
)

// App holds the application's dependencies and exposes one method per
// operator action.
type App struct {
	cfg          *config.Config
	store        records.Store
	runner       *apply.Runner
	mover        *schedule.Mover
	metricsStore *metrics.Store    // nil when running without a database
	linkFetcher  *linkcard.Fetcher // nil disables link-card lookups
}

// NewApp creates and initializes a new App instance.
func NewApp(
	cfg *config.Config,
	store records.Store,
	runner *apply.Runner,
	metricsStore *metrics.Store,
	linkFetcher *linkcard.Fetcher,
) *App {
	return &App{
		cfg:          cfg,
		store:        store,
		runner:       runner,
		mover:        schedule.NewMover(store),
		metricsStore: metricsStore,
		linkFetcher:  linkFetcher,
	}
}

// PlanSchedule builds a plan for the date range, treating every committed
// record for the platform as a blocked date, and prints it.
func (a *App) PlanSchedule(ctx context.Context, start, end string, cadence int) (*schedule.GeneratedPlan, error) {
	startDate, endDate, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}

	blocked, err := a.blockedDates(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := schedule.BuildPlan(startDate, endDate, cadence, a.cfg.DefaultPlatform, blocked)
	if err != nil {
		return nil, fmt.Errorf("failed to build plan: %w", err)
	}

	fmt.Printf("\n=== %s PLAN: %s to %s (%d slots) ===\n",
		plan.Platform, start, end, plan.TotalSlots)
	for _, slot := range plan.Slots {
		fmt.Printf("%-10s %s at %s\n", slot.Weekday, slot.Date.Format(schedule.DateLayout), slot.PostingTime)
	}

	return plan, nil
}

// ImportCSV parses a CSV file, validates it against a freshly generated
// plan, and returns the merged preview. Any parse or validation error blocks
// the import; all problems are printed at once.
func (a *App) ImportCSV(ctx context.Context, csvPath, start, end string, cadence int) (*importer.SchedulePreview, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	rows, parseErrors := importer.ParseRows(f)
	if len(parseErrors) > 0 {
		fmt.Println("\n=== PARSE ERRORS ===")
		for _, e := range parseErrors {
			fmt.Printf("- %s\n", e)
		}
		return nil, fmt.Errorf("import rejected: %d parse errors", len(parseErrors))
	}

	plan, err := a.PlanSchedule(ctx, start, end, cadence)
	if err != nil {
		return nil, err
	}

	blocked, err := a.blockedDates(ctx)
	if err != nil {
		return nil, err
	}

	result := importer.Validate(plan, rows, blocked)
	if result.SkippedTotal > 0 {
		fmt.Printf("\n%d rows fall outside the plan and will be skipped:\n", result.SkippedTotal)
		for _, key := range result.Skipped {
			fmt.Printf("- %s\n", key)
		}
		if result.SkippedTotal > len(result.Skipped) {
			fmt.Printf("... and %d more\n", result.SkippedTotal-len(result.Skipped))
		}
	}
	if !result.Valid {
		fmt.Println("\n=== VALIDATION ERRORS ===")
		for _, e := range result.Errors {
			fmt.Printf("- %s\n", e)
		}
		return nil, fmt.Errorf("import rejected: %d validation errors", len(result.Errors))
	}

	preview := importer.ApplyToPlan(plan, rows)

	fmt.Printf("\n=== SCHEDULE PREVIEW (%d dated, %d auto-assigned) ===\n",
		preview.ManualDateCount, preview.AutoDateCount)
	for _, row := range preview.Rows {
		marker := "auto"
		if row.IsManualDate {
			marker = "csv"
		}
		fmt.Printf("%s %s [%s] %s\n", row.Date.Format(schedule.DateLayout), row.PostingTime, marker, truncate(row.StarterText, 60))
		if a.linkFetcher != nil && row.ImageURL != "" {
			if card, err := a.linkFetcher.Fetch(row.ImageURL); err == nil && card.Title != "" {
				fmt.Printf("           link: %s\n", card.Title)
			}
		}
	}

	return preview, nil
}

// ApplyPreview writes every preview row to the record store and reports the
// aggregate tally. Individual failures never abort the batch.
func (a *App) ApplyPreview(ctx context.Context, preview *importer.SchedulePreview) apply.Summary {
	summary := a.runner.Apply(ctx, preview)

	fmt.Printf("\n=== APPLY COMPLETE: %d created, %d skipped, %d failed ===\n",
		summary.Created, summary.Skipped, summary.Failed)
	for _, e := range summary.Errors {
		fmt.Printf("- %s\n", e)
	}

	if a.metricsStore != nil {
		err := a.metricsStore.Record(ctx, metrics.ApplyRunMetric{
			Platform:         preview.Platform,
			Created:          summary.Created,
			Skipped:          summary.Skipped,
			Failed:           summary.Failed,
			CaptionLatencyMS: summary.CaptionLatencyMS,
		})
		if err != nil {
			log.Printf("Warning: failed to record apply metrics: %v", err)
		}
	}

	return summary
}

// MoveSlot relocates a committed record to a new date. Without the overwrite
// flag, a collision on the target date is reported and nothing changes.
func (a *App) MoveSlot(ctx context.Context, key, target string, overwrite bool) error {
	targetDate, err := time.ParseInLocation(schedule.DateLayout, target, a.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid target date %q: %w", target, err)
	}

	result := a.mover.Move(ctx, key, targetDate, schedule.MoveOptions{
		Overwrite: overwrite,
		Today:     time.Now().In(a.cfg.Timezone),
	})
	switch {
	case result.Err != nil:
		return result.Err
	case result.NeedsConfirmOverwrite:
		fmt.Printf("A post already exists on %s. Re-run with -overwrite to replace it.\n", target)
		return nil
	default:
		fmt.Printf("Moved %s to %s.\n", key, target)
		return nil
	}
}

// SetPostingTime overrides a committed record's posting time with a manual
// edit. The time snaps onto the 5-minute grid and is marked manual so later
// plan regenerations leave it alone; a date move still resets it.
func (a *App) SetPostingTime(ctx context.Context, key, clock string) error {
	rounded := schedule.RoundToNearest5Min(clock)
	if _, err := time.Parse("15:04", rounded); err != nil {
		return fmt.Errorf("invalid posting time %q: %w", clock, err)
	}

	rec, err := a.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("loading record %q: %w", key, err)
	}
	rec.PostingTime = rounded
	rec.ManualTime = true
	rec.UpdatedAt = time.Now()
	if err := a.store.Write(ctx, *rec); err != nil {
		return err
	}

	if rounded != clock {
		fmt.Printf("Rounded %s to %s.\n", clock, rounded)
	}
	fmt.Printf("Posting time for %s set to %s.\n", key, rounded)
	return nil
}

// ShowMetrics prints the most recent apply runs.
func (a *App) ShowMetrics(ctx context.Context, limit int) error {
	if a.metricsStore == nil {
		return fmt.Errorf("metrics require a database-backed store")
	}
	runs, err := a.metricsStore.Recent(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Println("\n=== RECENT APPLY RUNS ===")
	for _, r := range runs {
		fmt.Printf("%s %s: %d created, %d skipped, %d failed (captions %dms)\n",
			r.RanAt.Format("2006-01-02 15:04"), r.Platform, r.Created, r.Skipped, r.Failed, r.CaptionLatencyMS)
	}
	return nil
}

// blockedDates builds the blocked set from every committed record for the
// configured platform, legacy bare-date keys included.
func (a *App) blockedDates(ctx context.Context) (schedule.BlockedDateSet, error) {
	recs, err := a.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list committed records: %w", err)
	}
	return schedule.BlockedFromRecords(recs, a.cfg.DefaultPlatform), nil
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.Parse(schedule.DateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	endDate, err := time.Parse(schedule.DateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return startDate, endDate, nil
}

func truncate(s string, n int) string {
	// Count runes, not bytes, so multibyte captions are never cut mid-rune.
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
