// Package captions turns a scheduled post's starter text into a
// publish-ready caption through an LLM collaborator.
package captions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-post-scheduler/internal/llm"
	"ai-post-scheduler/internal/records"
	"ai-post-scheduler/internal/shared"
)

// Generator produces captions for scheduled posts.
type Generator struct {
	textGen llm.TextGenerator
}

// NewGenerator creates a new Generator instance.
func NewGenerator(textGen llm.TextGenerator) *Generator {
	return &Generator{textGen: textGen}
}

// ForRecord generates a caption for a single record. The starter text is the
// operator's raw idea; the caption is what actually gets posted.
func (g *Generator) ForRecord(ctx context.Context, rec records.Record) (string, shared.GenerationMeta, error) {
	prompt := fmt.Sprintf(`
You are a social media copywriter. Write one ready-to-post %s caption based on
the idea below. Keep the brand voice casual and concrete, add at most three
relevant hashtags, and stay under 2200 characters.

Idea: "%s"
Posting date: %s

Return only the caption text, no preamble and no formatting.
`, rec.Platform, rec.Body, rec.Date.Format("Monday, January 2 2006"))

	start := time.Now()
	resp, err := g.textGen.GenerateContent(ctx, prompt)
	meta := shared.GenerationMeta{
		RecordKey: rec.Key,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	if err != nil {
		return "", meta, fmt.Errorf("failed to generate caption for %q: %w", rec.Key, err)
	}

	caption := strings.TrimSpace(resp.Content)
	if caption == "" {
		return "", meta, fmt.Errorf("empty caption generated for %q", rec.Key)
	}
	return caption, meta, nil
}
