package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/workorder-sorter/constants"
	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
)

// Config holds all application configuration
type Config struct {
	Paths   PathsConfig
	Crop    entity.CropRect
	Render  RenderConfig
	LLM     LLMConfig
	Batch   BatchConfig
	Ledger  LedgerConfig
	Logging LoggingConfig
}

// PathsConfig holds the folders and reference list the batch works on
type PathsConfig struct {
	SourceFolder  string
	HoldingFolder string
	ReferenceFile string
}

// RenderConfig holds PDF rasterization configuration
type RenderConfig struct {
	DPI      int
	Pdftoppm string
	Mutool   string
	Fallback bool
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model          string
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	MaxTokens      int
	RequestsPerSec float64
	MaxAttempts    int
	InitialBackoff time.Duration
}

// BatchConfig holds worker pool configuration
type BatchConfig struct {
	Workers     int
	TaskTimeout time.Duration
}

// LedgerConfig holds the optional run ledger DSN
type LedgerConfig struct {
	DSN string
}

// LoggingConfig holds log handler configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			SourceFolder:  getEnv("PDF_FOLDER", "workOrderPDF"),
			HoldingFolder: getEnv("NOT_MATCH_FOLDER", "not_match"),
			ReferenceFile: getEnv("REF_FILE", "workOrderRef/MCAN_work_inprogress.csv"),
		},
		Crop: entity.CropRect{
			X1: getEnvAsFloat64("CROP_X1", 0),
			Y1: getEnvAsFloat64("CROP_Y1", 0),
			X2: getEnvAsFloat64("CROP_X2", 0.25),
			Y2: getEnvAsFloat64("CROP_Y2", 0.25),
		},
		Render: RenderConfig{
			DPI:      getEnvAsInt("RENDER_DPI", 200),
			Pdftoppm: getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Mutool:   getEnv("MUTOOL_BIN", "mutool"),
			Fallback: getEnvAsBool("RENDER_FALLBACK", true),
		},
		LLM: LLMConfig{
			Model:          getEnv("OPENAI_MODEL", constants.DefaultModel),
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 30*time.Second),
			MaxTokens:      getEnvAsInt("OPENAI_MAX_TOKENS", 300),
			RequestsPerSec: getEnvAsFloat64("OPENAI_RPS", 0),
			MaxAttempts:    getEnvAsInt("EXTRACT_MAX_ATTEMPTS", 3),
			InitialBackoff: getEnvAsDuration("EXTRACT_INITIAL_BACKOFF", time.Second),
		},
		Batch: BatchConfig{
			Workers:     getEnvAsInt("WORKERS", 4),
			TaskTimeout: getEnvAsDuration("TASK_TIMEOUT", 3*time.Minute),
		},
		Ledger: LedgerConfig{
			DSN: getEnv("LEDGER_DSN", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. Folder existence is checked when a batch
// starts, not here.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("OPENAI_API_KEY", c.LLM.APIKey, Required).
		Field("OPENAI_MODEL", c.LLM.Model, Required).
		Field("PDF_FOLDER", c.Paths.SourceFolder, Required).
		Field("NOT_MATCH_FOLDER", c.Paths.HoldingFolder, Required).
		Field("CROP_X1", c.Crop.X1, Fraction).
		Field("CROP_Y1", c.Crop.Y1, Fraction).
		Field("CROP_X2", c.Crop.X2, Fraction).
		Field("CROP_Y2", c.Crop.Y2, Fraction).
		Field("WORKERS", c.Batch.Workers, Positive).
		Field("RENDER_DPI", c.Render.DPI, Positive).
		Field("EXTRACT_MAX_ATTEMPTS", c.LLM.MaxAttempts, Positive)
	v.Check("CROP_X2", c.Crop.X2, c.Crop.X1 < c.Crop.X2, "must be greater than CROP_X1")
	v.Check("CROP_Y2", c.Crop.Y2, c.Crop.Y1 < c.Crop.Y2, "must be greater than CROP_Y1")
	return ValidateAndReturnError(v)
}

// ProcessingConfig resolves the per-run snapshot handed to the batch orchestrator.
func (c *Config) ProcessingConfig() entity.ProcessingConfig {
	return entity.ProcessingConfig{
		Crop:          c.Crop,
		SourceFolder:  c.Paths.SourceFolder,
		HoldingFolder: c.Paths.HoldingFolder,
		ReferenceFile: c.Paths.ReferenceFile,
		Model:         c.LLM.Model,
		APIKey:        c.LLM.APIKey,
		Workers:       c.Batch.Workers,
	}
}
