package imaging

import (
	"image"
	"image/draw"
)

// Crop returns the region of img bounded by fractional coordinates of its width and
// height. Pixel bounds are truncated (floor(width*x)). The result is an independent RGBA
// copy whose bounds start at (0,0).
//
// Preconditions: 0 <= x1 < x2 <= 1 and 0 <= y1 < y2 <= 1. Configuration loading enforces
// this; Crop does not re-check.
func Crop(img image.Image, x1, y1, x2, y2 float64) image.Image {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	left := b.Min.X + int(w*x1)
	top := b.Min.Y + int(h*y1)
	right := b.Min.X + int(w*x2)
	bottom := b.Min.Y + int(h*y2)

	src := image.Rect(left, top, right, bottom).Intersect(b)
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	return dst
}
