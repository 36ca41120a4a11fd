package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/workorder-sorter/internal/common"
)

type Config struct {
	DPI      int    // rasterization DPI, default 200
	Pdftoppm string // primary backend binary; if empty -> "pdftoppm"
	Mutool   string // fallback backend binary; empty disables the fallback
}

type Renderer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
	repair func(in, out string) error
}

type Option func(*Renderer)

// WithRunner replaces the os/exec runner.
func WithRunner(r Runner) Option {
	return func(rd *Renderer) {
		if r != nil {
			rd.runner = r
		}
	}
}

func NewRenderer(cfg Config, logger *slog.Logger, opts ...Option) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	r := &Renderer{
		cfg:    cfg,
		runner: execRunner{logger: logger},
		logger: logger,
		repair: repairPDF,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RenderFirstPage rasterizes page 1 of the PDF at path. The primary backend is tried
// first; if it fails and a fallback is configured, the fallback runs once. There is no
// retry beyond that.
func (r *Renderer) RenderFirstPage(ctx context.Context, path string) (image.Image, error) {
	start := time.Now()
	log := r.logger.With("path", path)

	tmpDir, err := os.MkdirTemp("", "wo-render-*")
	if err != nil {
		return nil, common.NewAppError(common.CodeRender, "create temp dir", errors.Join(common.ErrRender, err))
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			log.Warn("render.tmp.cleanup_failed", "tmp_dir", path, "error", err)
		}
	}(tmpDir)

	img, primaryErr := r.renderPrimary(ctx, path, tmpDir)
	if primaryErr == nil {
		log.Debug("render.primary.ok", "elapsed_ms", time.Since(start).Milliseconds())
		return img, nil
	}
	log.Warn("render.primary.failed", "backend", r.cfg.Pdftoppm, "error", primaryErr)

	if r.cfg.Mutool == "" {
		return nil, common.NewAppError(common.CodeRender,
			fmt.Sprintf("render %s", filepath.Base(path)),
			errors.Join(common.ErrRender, primaryErr))
	}

	img, fallbackErr := r.renderFallback(ctx, path, tmpDir)
	if fallbackErr == nil {
		log.Info("render.fallback.ok", "backend", r.cfg.Mutool, "elapsed_ms", time.Since(start).Milliseconds())
		return img, nil
	}
	log.Error("render.fallback.failed", "backend", r.cfg.Mutool, "error", fallbackErr)

	return nil, common.NewAppError(common.CodeRender,
		fmt.Sprintf("render %s", filepath.Base(path)),
		errors.Join(common.ErrRender, primaryErr, fallbackErr))
}
