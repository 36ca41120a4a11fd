package llm

import (
	"context"
	"image"
)

// ExtractionResult is the two-key shape we ask the model for. Empty means null.
type ExtractionResult struct {
	WorkOrderNumber string `json:"work_order_number"`
	EquipmentNumber string `json:"equipment_number"`
}

// UsageRecord is emitted once per remote call that returned a response.
type UsageRecord struct {
	InputTokens  int64
	OutputTokens int64
	Model        string
}

// Request is a single vision prompt: one instruction plus one embedded image.
type Request struct {
	Prompt       string
	ImageDataURL string
	Model        string
	APIKey       string
}

type Response struct {
	Content string
	Usage   UsageRecord
}

// Requester performs exactly one remote attempt. Retry policy lives in RetryingExtractor.
type Requester interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Extraction is what the pipeline gets back for one file.
type Extraction struct {
	Result   ExtractionResult
	Usage    *UsageRecord // nil when no attempt received a response
	Attempts int
	Degraded bool  // all attempts failed; Result is null by policy
	LastErr  error // last remote error when Degraded
}

// Extractor is the interface the batch pipeline depends on.
type Extractor interface {
	Extract(ctx context.Context, img image.Image, model, apiKey string) (Extraction, error)
}
