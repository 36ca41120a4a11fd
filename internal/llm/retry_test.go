package llm

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/workorder-sorter/internal/common"
)

type scriptedRequester struct {
	mu        sync.Mutex
	responses []Response
	errs      []error
	calls     []Request
}

func (s *scriptedRequester) Complete(_ context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.calls)
	s.calls = append(s.calls, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return Response{}, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return Response{}, errors.New("no scripted response")
}

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func testImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 8, 8))
}

func TestExtractRetriesThenSucceeds(t *testing.T) {
	boom := errors.New("status 503")
	req := &scriptedRequester{
		errs: []error{boom, boom, nil},
		responses: []Response{{}, {}, {
			Content: "```json\n{\"work_order_number\":\"20501234\",\"equipment_number\":\"PUMP01\"}\n```",
			Usage:   UsageRecord{InputTokens: 900, OutputTokens: 40},
		}},
	}
	sl := &recordingSleeper{}
	ex := NewRetryingExtractor(req, nil, WithSleeper(sl.sleep))

	out, err := ex.Extract(context.Background(), testImage(), "gpt-4.1-nano", "sk-test")
	require.NoError(t, err)

	assert.Len(t, req.calls, 3)
	require.Len(t, sl.delays, 2)
	assert.Equal(t, time.Second, sl.delays[0])
	assert.Equal(t, 2*sl.delays[0], sl.delays[1])

	assert.False(t, out.Degraded)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, ExtractionResult{WorkOrderNumber: "20501234", EquipmentNumber: "PUMP01"}, out.Result)
	require.NotNil(t, out.Usage)
	assert.Equal(t, UsageRecord{InputTokens: 900, OutputTokens: 40, Model: "gpt-4.1-nano"}, *out.Usage)
}

func TestExtractExhaustedDegradesToNull(t *testing.T) {
	boom := errors.New("connection reset")
	req := &scriptedRequester{errs: []error{boom, boom, boom}}
	sl := &recordingSleeper{}
	ex := NewRetryingExtractor(req, nil, WithSleeper(sl.sleep))

	out, err := ex.Extract(context.Background(), testImage(), "gpt-4.1-nano", "sk-test")
	require.NoError(t, err)

	assert.Len(t, req.calls, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sl.delays, "no sleep after the final attempt")
	assert.True(t, out.Degraded)
	assert.Nil(t, out.Usage)
	assert.Equal(t, ExtractionResult{}, out.Result)
	assert.ErrorIs(t, out.LastErr, boom)
}

func TestExtractUnparsableIsNotRetried(t *testing.T) {
	req := &scriptedRequester{responses: []Response{{
		Content: "Sorry, I cannot help with that.",
		Usage:   UsageRecord{InputTokens: 10, OutputTokens: 8},
	}}}
	ex := NewRetryingExtractor(req, nil, WithSleeper((&recordingSleeper{}).sleep))

	out, err := ex.Extract(context.Background(), testImage(), "gpt-4.1-mini", "sk-test")
	require.NoError(t, err)
	assert.Len(t, req.calls, 1)
	assert.False(t, out.Degraded)
	assert.Equal(t, ExtractionResult{}, out.Result)
	require.NotNil(t, out.Usage, "a response arrived, so usage is still reported")
	assert.Equal(t, int64(10), out.Usage.InputTokens)
}

func TestExtractStopsBackoffOnCancel(t *testing.T) {
	req := &scriptedRequester{errs: []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := NewRetryingExtractor(req, nil, WithSleeper(sleepCtx), WithInitialBackoff(time.Hour))

	out, err := ex.Extract(ctx, testImage(), "gpt-4.1-nano", "sk-test")
	require.NoError(t, err)
	assert.Len(t, req.calls, 1)
	assert.True(t, out.Degraded)
	assert.ErrorIs(t, out.LastErr, context.Canceled)
}

func TestExtractSendsPromptAndImage(t *testing.T) {
	req := &scriptedRequester{responses: []Response{{Content: `{"work_order_number":null,"equipment_number":null}`}}}
	ex := NewRetryingExtractor(req, nil, WithMaxAttempts(1))

	_, err := ex.Extract(context.Background(), testImage(), "gpt-4.1", "sk-abc")
	require.NoError(t, err)
	require.Len(t, req.calls, 1)

	got := req.calls[0]
	assert.Equal(t, ExtractionPrompt, got.Prompt)
	assert.Equal(t, "gpt-4.1", got.Model)
	assert.Equal(t, "sk-abc", got.APIKey)
	assert.True(t, strings.HasPrefix(got.ImageDataURL, "data:image/png;base64,"))
}

func TestExtractEncodeFailureIsLocalError(t *testing.T) {
	req := &scriptedRequester{}
	ex := NewRetryingExtractor(req, nil, WithImageFormat("tiff"))

	_, err := ex.Extract(context.Background(), testImage(), "gpt-4.1-nano", "sk-test")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.Equal(t, common.CodeExtraction, common.CodeOf(err))
	assert.Empty(t, req.calls)
}
