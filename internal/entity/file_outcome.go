package entity

import (
	"time"

	"github.com/joseph-ayodele/workorder-sorter/constants"
)

// FileOutcome is the terminal record for one PDF in a batch.
type FileOutcome struct {
	Filename        string               `json:"filename"`
	Status          constants.FileStatus `json:"status"`
	Success         bool                 `json:"success"`
	Matched         bool                 `json:"matched"`
	WorkOrder       string               `json:"work_order_number,omitempty"`
	Equipment       string               `json:"equipment_number,omitempty"`
	NewPath         string               `json:"new_path,omitempty"`
	Error           string               `json:"error,omitempty"`
	ExtractionError string               `json:"extraction_error,omitempty"` // remote call never succeeded
	Checksum        string               `json:"checksum,omitempty"`
	InputTokens     int64                `json:"input_tokens"`
	OutputTokens    int64                `json:"output_tokens"`
	Attempts        int                  `json:"attempts"`
	Duration        time.Duration        `json:"duration"`
}

// Failed builds an outcome for a local error; the file is left untouched.
func Failed(filename string, err error) FileOutcome {
	return FileOutcome{
		Filename: filename,
		Status:   constants.FileFailed,
		Error:    err.Error(),
	}
}

// Skipped builds an outcome for a file cancelled before it started.
func Skipped(filename string) FileOutcome {
	return FileOutcome{Filename: filename, Status: constants.FileSkipped}
}
