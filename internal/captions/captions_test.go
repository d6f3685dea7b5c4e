package captions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-post-scheduler/internal/llm"
	"ai-post-scheduler/internal/records"
	"ai-post-scheduler/internal/shared"
)

type stubTextGen struct {
	resp       llm.ContentResponse
	err        error
	lastPrompt string
}

func (s *stubTextGen) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	s.lastPrompt = prompt
	return s.resp, s.err
}

func testRecord() records.Record {
	return records.Record{
		Key:      "2024-01-15-instagram",
		Date:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Platform: "instagram",
		Body:     "Behind the scenes at the roastery",
	}
}

func TestForRecordReturnsTrimmedCaption(t *testing.T) {
	gen := &stubTextGen{resp: llm.ContentResponse{
		Content: "  Fresh beans, fresh morning #coffee  \n",
		Usage:   shared.TokenUsage{PromptTokens: 120, CompletionTokens: 40},
	}}
	g := NewGenerator(gen)

	caption, meta, err := g.ForRecord(context.Background(), testRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caption != "Fresh beans, fresh morning #coffee" {
		t.Errorf("caption = %q", caption)
	}
	if meta.RecordKey != "2024-01-15-instagram" {
		t.Errorf("meta.RecordKey = %q", meta.RecordKey)
	}
	if meta.Usage.PromptTokens != 120 || meta.Usage.CompletionTokens != 40 {
		t.Errorf("meta.Usage = %+v", meta.Usage)
	}
}

func TestForRecordPromptIncludesIdeaAndDate(t *testing.T) {
	gen := &stubTextGen{resp: llm.ContentResponse{Content: "ok"}}
	g := NewGenerator(gen)

	if _, _, err := g.ForRecord(context.Background(), testRecord()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Behind the scenes at the roastery", "instagram", "Monday, January 15 2024"} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestForRecordGeneratorError(t *testing.T) {
	wantErr := errors.New("quota exceeded")
	g := NewGenerator(&stubTextGen{err: wantErr})

	_, _, err := g.ForRecord(context.Background(), testRecord())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped generator error, got %v", err)
	}
}

func TestForRecordRejectsEmptyCaption(t *testing.T) {
	g := NewGenerator(&stubTextGen{resp: llm.ContentResponse{Content: "   \n"}})

	_, _, err := g.ForRecord(context.Background(), testRecord())
	if err == nil || !strings.Contains(err.Error(), "empty caption") {
		t.Fatalf("expected empty-caption error, got %v", err)
	}
}
