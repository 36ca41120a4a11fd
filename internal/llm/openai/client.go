package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/joseph-ayodele/workorder-sorter/internal/llm"
)

// Complete implements llm.Requester with one chat completion carrying a text part and an
// image part.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return llm.Response{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	c.logger.Debug("llm.openai.request",
		"req_id", rid,
		"model", req.Model,
		"image_bytes", len(req.ImageDataURL),
		"max_tokens", c.cfg.MaxTokens,
	)

	params := oai.ChatCompletionNewParams{
		Model: oai.ChatModel(req.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage([]oai.ChatCompletionContentPartUnionParam{
				oai.TextContentPart(req.Prompt),
				oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{URL: req.ImageDataURL}),
			}),
		},
		MaxTokens: oai.Int(int64(c.cfg.MaxTokens)),
	}

	resp, err := c.api.Chat.Completions.New(ctx, params, option.WithAPIKey(req.APIKey))
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			c.logger.Error("llm.openai.status_error",
				"req_id", rid, "status", apiErr.StatusCode, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.Response{}, fmt.Errorf("openai status %d: %w", apiErr.StatusCode, err)
		}
		c.logger.Error("llm.openai.send_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Response{}, fmt.Errorf("openai request: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.logger.Error("llm.openai.no_choices", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.Response{}, errors.New("no choices in openai response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		c.logger.Error("llm.openai.empty_content", "req_id", rid, "finish_reason", resp.Choices[0].FinishReason)
		return llm.Response{}, errors.New("empty content in openai response")
	}

	usage := llm.UsageRecord{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        req.Model,
	}
	c.logger.Info("llm.openai.ok",
		"req_id", rid,
		"model", req.Model,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.Response{Content: content, Usage: usage}, nil
}
