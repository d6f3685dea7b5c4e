package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// GenerationMeta holds operational metadata for one caption generation.
type GenerationMeta struct {
	RecordKey string
	Usage     TokenUsage
	Latency   time.Duration
}
