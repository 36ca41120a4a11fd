package render

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func (r *Renderer) renderPrimary(ctx context.Context, path, tmpDir string) (image.Image, error) {
	prefix := filepath.Join(tmpDir, "primary")
	// pdftoppm -f 1 -l 1 -r <dpi> -png -singlefile <in.pdf> <tmp/primary>  => tmp/primary.png
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-f", "1", "-l", "1",
		"-r", strconv.Itoa(r.cfg.DPI),
		"-png", "-singlefile",
		path, prefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", r.cfg.Pdftoppm, err, truncate(string(errb), 512))
	}
	return decodePNG(prefix + ".png")
}

func (r *Renderer) renderFallback(ctx context.Context, path, tmpDir string) (image.Image, error) {
	src := path
	repaired := filepath.Join(tmpDir, "repaired.pdf")
	if err := r.repair(path, repaired); err != nil {
		r.logger.Debug("render.repair.skipped", "path", path, "error", err)
	} else {
		src = repaired
	}

	out := filepath.Join(tmpDir, "fallback.png")
	// mutool draw -q -r <dpi> -F png -o <out.png> <in.pdf> 1
	_, errb, err := r.runner.Run(ctx, r.cfg.Mutool,
		"draw", "-q",
		"-r", strconv.Itoa(r.cfg.DPI),
		"-F", "png",
		"-o", out,
		src, "1")
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", r.cfg.Mutool, err, truncate(string(errb), 512))
	}
	return decodePNG(out)
}

// repairPDF rewrites the document with relaxed validation, which normalizes broken
// xref tables and streams that trip up strict renderers.
func repairPDF(in, out string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(in, out, conf)
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rendered page: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page: %w", err)
	}
	return img, nil
}
