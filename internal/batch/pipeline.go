package batch

import (
	"context"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/workorder-sorter/internal/checksum"
	"github.com/joseph-ayodele/workorder-sorter/internal/common"
	"github.com/joseph-ayodele/workorder-sorter/internal/cost"
	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
	"github.com/joseph-ayodele/workorder-sorter/internal/imaging"
	"github.com/joseph-ayodele/workorder-sorter/internal/llm"
	"github.com/joseph-ayodele/workorder-sorter/internal/placement"
	"github.com/joseph-ayodele/workorder-sorter/internal/reference"
)

// Renderer is satisfied by *render.Renderer.
type Renderer interface {
	RenderFirstPage(ctx context.Context, path string) (image.Image, error)
}

// Processor runs one file through render, crop, extract, match and place.
type Processor struct {
	logger     *slog.Logger
	renderer   Renderer
	extractor  llm.Extractor
	placer     *placement.Placer
	accountant *cost.Accountant
}

func NewProcessor(
	logger *slog.Logger,
	renderer Renderer,
	extractor llm.Extractor,
	placer *placement.Placer,
	accountant *cost.Accountant,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if placer == nil {
		placer = placement.NewPlacer(logger)
	}
	if accountant == nil {
		accountant = cost.NewAccountant(logger)
	}
	return &Processor{
		logger:     logger,
		renderer:   renderer,
		extractor:  extractor,
		placer:     placer,
		accountant: accountant,
	}
}

// ProcessFile always returns exactly one terminal outcome for filename. Local errors
// leave the file where it was.
func (p *Processor) ProcessFile(ctx context.Context, cfg entity.ProcessingConfig, refs *reference.Set, filename string) entity.FileOutcome {
	start := time.Now()
	path := filepath.Join(cfg.SourceFolder, filename)
	log := p.logger.With("file", filename)

	finish := func(o entity.FileOutcome) entity.FileOutcome {
		o.Duration = time.Since(start)
		return o
	}

	sum, err := checksum.FileChecksum(path)
	if err != nil {
		log.Error("processor.checksum.failed", "error", err)
		return finish(entity.Failed(filename, err))
	}

	img, err := p.renderer.RenderFirstPage(ctx, path)
	if err != nil {
		log.Error("processor.render.failed", "error", err)
		o := entity.Failed(filename, err)
		o.Checksum = sum
		return finish(o)
	}

	region := imaging.Crop(img, cfg.Crop.X1, cfg.Crop.Y1, cfg.Crop.X2, cfg.Crop.Y2)
	log.Debug("processor.cropped",
		"page_w", img.Bounds().Dx(), "page_h", img.Bounds().Dy(),
		"crop_w", region.Bounds().Dx(), "crop_h", region.Bounds().Dy(),
	)

	ex, err := p.extractor.Extract(ctx, region, cfg.Model, cfg.APIKey)
	if err != nil {
		log.Error("processor.extract.failed", "error", err)
		o := entity.Failed(filename, err)
		o.Checksum = sum
		return finish(o)
	}
	if ex.Usage != nil {
		charge := p.accountant.Record(*ex.Usage)
		log.Debug("processor.cost", "usd", charge.USD, "thb", charge.THB)
	}

	wo := ex.Result.WorkOrderNumber
	matched := reference.IsKnown(wo, refs)

	out := p.placer.ClassifyAndPlace(placement.Request{
		Filename:      filename,
		SourceFolder:  cfg.SourceFolder,
		HoldingFolder: cfg.HoldingFolder,
		WorkOrder:     wo,
		Equipment:     ex.Result.EquipmentNumber,
		Matched:       matched,
	})
	out.Checksum = sum
	out.Attempts = ex.Attempts
	if ex.Usage != nil {
		out.InputTokens = ex.Usage.InputTokens
		out.OutputTokens = ex.Usage.OutputTokens
	}
	if ex.Degraded {
		out.ExtractionError = common.ErrExtraction.Error()
		if ex.LastErr != nil {
			out.ExtractionError = ex.LastErr.Error()
		}
	}

	log.Info("processor.file.done",
		"status", out.Status,
		"matched", matched,
		"work_order", wo,
		"new_path", out.NewPath,
		"degraded", ex.Degraded,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return finish(out)
}
