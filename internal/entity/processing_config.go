package entity

// CropRect is the region of interest as fractions of page width/height.
// Invariant (checked at config load): 0 <= X1 < X2 <= 1 and 0 <= Y1 < Y2 <= 1.
type CropRect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// ProcessingConfig is the resolved, per-run configuration. A running batch holds a copy
// and never mutates it.
type ProcessingConfig struct {
	Crop          CropRect
	SourceFolder  string
	HoldingFolder string
	ReferenceFile string
	Model         string
	APIKey        string
	Workers       int
}

// Snapshot returns a copy safe to hand to a running batch.
func (c ProcessingConfig) Snapshot() ProcessingConfig {
	return c
}
