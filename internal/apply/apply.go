// Package apply writes a finished schedule preview to the record store, one
// record per row, with a small fixed concurrency ceiling.
package apply

import (
	"context"
	"log"
	"sync"
	"time"

	"ai-post-scheduler/internal/captions"
	"ai-post-scheduler/internal/importer"
	"ai-post-scheduler/internal/publish"
	"ai-post-scheduler/internal/records"
	"ai-post-scheduler/internal/schedule"
)

// maxInFlight caps simultaneous writes so downstream services are never
// overwhelmed.
const maxInFlight = 3

// Summary aggregates the outcome of one batch apply. Individual failures
// never abort the batch; they are tallied here instead.
type Summary struct {
	Created          int
	Skipped          int
	Failed           int
	Errors           []string
	CaptionLatencyMS int64
}

// Runner applies schedule previews to a record store and, when configured,
// queues each created record with the downstream publishing service.
type Runner struct {
	store     records.Store
	captioner *captions.Generator // nil disables caption generation
	publisher publish.Client      // nil disables downstream publishing
}

// NewRunner creates a Runner. Pass a nil captioner or publisher to apply
// without those collaborators.
func NewRunner(store records.Store, captioner *captions.Generator, publisher publish.Client) *Runner {
	return &Runner{store: store, captioner: captioner, publisher: publisher}
}

// Apply writes every row of the preview. Rows whose key already exists are
// skipped, failed writes are counted and reported, and the batch always
// runs to completion: there is no mid-batch cancellation.
func (r *Runner) Apply(ctx context.Context, preview *importer.SchedulePreview) Summary {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, maxInFlight)
		summary Summary
	)

	for _, slot := range preview.Rows {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot schedule.PlanSlot) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome, latency, err := r.applyOne(ctx, preview.Platform, slot)

			mu.Lock()
			defer mu.Unlock()
			summary.CaptionLatencyMS += latency.Milliseconds()
			switch {
			case err != nil:
				summary.Failed++
				summary.Errors = append(summary.Errors, err.Error())
			case outcome == outcomeSkipped:
				summary.Skipped++
			default:
				summary.Created++
			}
		}(slot)
	}

	wg.Wait()
	return summary
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
)

// applyOne writes a single slot, generating its caption first when a
// captioner is configured. Caption failures degrade to the starter text
// rather than failing the row.
func (r *Runner) applyOne(ctx context.Context, platform string, slot schedule.PlanSlot) (outcome, time.Duration, error) {
	key := schedule.KeyFor(slot.Date, platform).String()

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return outcomeCreated, 0, err
	}
	if exists {
		return outcomeSkipped, 0, nil
	}

	rec := records.Record{
		Key:         key,
		Date:        slot.Date,
		Platform:    platform,
		PostingTime: slot.PostingTime,
		Body:        slot.StarterText,
		ImageURL:    slot.ImageURL,
	}

	var latency time.Duration
	if r.captioner != nil && rec.Body != "" {
		caption, meta, err := r.captioner.ForRecord(ctx, rec)
		latency = meta.Latency
		if err != nil {
			log.Printf("Warning: caption generation failed for %s: %v", key, err)
		} else {
			rec.Caption = caption
		}
	}

	if err := r.store.Write(ctx, rec); err != nil {
		return outcomeCreated, latency, err
	}

	if r.publisher != nil {
		if _, err := r.publisher.SchedulePost(rec); err != nil {
			// The record is committed locally either way; the push can be
			// retried on the next apply.
			log.Printf("Warning: downstream publish failed for %s: %v", key, err)
		}
	}
	return outcomeCreated, latency, nil
}
