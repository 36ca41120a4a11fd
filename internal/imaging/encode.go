package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// Format selects the transport encoding for images sent to the model.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// Encode serializes img as PNG (default) or JPEG and returns the bytes and MIME type.
func Encode(img image.Image, format Format) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case JPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	case PNG, "":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	default:
		return nil, "", fmt.Errorf("unsupported image format: %q", format)
	}
}

// EncodeDataURL returns img as a base64 data URL.
func EncodeDataURL(img image.Image, format Format) (string, error) {
	b, mt, err := Encode(img, format)
	if err != nil {
		return "", err
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}
