package openai

import (
	"log/slog"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

// Config for the OpenAI client. The API key is not part of it: every request carries
// the key from the batch's configuration snapshot.
type Config struct {
	BaseURL        string        // default https://api.openai.com/v1
	Timeout        time.Duration // per request
	MaxTokens      int
	RequestsPerSec float64 // 0 = unlimited
	HTTPClient     *http.Client
}

type Client struct {
	cfg     Config
	api     oai.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 300
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Retries are owned by llm.RetryingExtractor.
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1)
	}

	return &Client{
		cfg:     cfg,
		api:     oai.NewClient(opts...),
		limiter: limiter,
		logger:  logger,
	}
}
