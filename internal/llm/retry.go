package llm

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/workorder-sorter/internal/common"
	"github.com/joseph-ayodele/workorder-sorter/internal/imaging"
)

const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = time.Second
)

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryingExtractor wraps a single-attempt Requester with a fixed attempt budget and
// doubling backoff. Exhausting the budget degrades to a null result instead of an error.
type RetryingExtractor struct {
	req            Requester
	logger         *slog.Logger
	maxAttempts    int
	initialBackoff time.Duration
	sleep          Sleeper
	format         imaging.Format
	prompt         string
}

type Option func(*RetryingExtractor)

func WithMaxAttempts(n int) Option {
	return func(e *RetryingExtractor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

func WithInitialBackoff(d time.Duration) Option {
	return func(e *RetryingExtractor) {
		if d >= 0 {
			e.initialBackoff = d
		}
	}
}

// WithSleeper replaces the real timer, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(e *RetryingExtractor) {
		if s != nil {
			e.sleep = s
		}
	}
}

func WithImageFormat(f imaging.Format) Option {
	return func(e *RetryingExtractor) { e.format = f }
}

func WithPrompt(p string) Option {
	return func(e *RetryingExtractor) {
		if p != "" {
			e.prompt = p
		}
	}
}

func NewRetryingExtractor(req Requester, logger *slog.Logger, opts ...Option) *RetryingExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &RetryingExtractor{
		req:            req,
		logger:         logger,
		maxAttempts:    DefaultMaxAttempts,
		initialBackoff: DefaultInitialBackoff,
		sleep:          sleepCtx,
		format:         imaging.PNG,
		prompt:         ExtractionPrompt,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract sends img to the model. The returned error is reserved for local failures
// (the image could not be encoded); remote failures are reported through Extraction.
func (e *RetryingExtractor) Extract(ctx context.Context, img image.Image, model, apiKey string) (Extraction, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := e.logger.With("req_id", rid, "model", model, "file", common.FilenameFromContext(ctx))

	dataURL, err := imaging.EncodeDataURL(img, e.format)
	if err != nil {
		log.Error("llm.extract.encode_failed", "error", err)
		return Extraction{}, common.NewAppError(common.CodeExtraction, "encode image", errors.Join(common.ErrExtraction, err))
	}

	req := Request{Prompt: e.prompt, ImageDataURL: dataURL, Model: model, APIKey: apiKey}
	backoff := e.initialBackoff
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		attempts = attempt
		resp, err := e.req.Complete(ctx, req)
		if err == nil {
			usage := resp.Usage
			usage.Model = model
			result, perr := ParseResult(resp.Content)
			if perr != nil {
				log.Warn("llm.extract.unparsable", "error", perr, "content", truncate(resp.Content, 512))
			}
			log.Info("llm.extract.ok",
				"attempt", attempt,
				"work_order", result.WorkOrderNumber,
				"equipment", result.EquipmentNumber,
				"input_tokens", usage.InputTokens,
				"output_tokens", usage.OutputTokens,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return Extraction{Result: result, Usage: &usage, Attempts: attempt}, nil
		}

		lastErr = err
		if attempt == e.maxAttempts {
			break
		}
		log.Warn("llm.extract.retry",
			"attempt", attempt,
			"max_attempts", e.maxAttempts,
			"backoff", backoff.String(),
			"error", err,
		)
		if serr := e.sleep(ctx, backoff); serr != nil {
			lastErr = errors.Join(lastErr, serr)
			break
		}
		backoff *= 2
	}

	log.Error("llm.extract.exhausted",
		"attempts", attempts,
		"error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Extraction{Attempts: attempts, Degraded: true, LastErr: lastErr}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
