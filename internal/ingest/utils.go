package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/workorder-sorter/constants"
)

// IsCandidate reports whether a file name is an unprocessed PDF: a .pdf extension in
// any case, not hidden, not already in CS- form.
func IsCandidate(name string) bool {
	base := filepath.Base(name)
	return constants.IsPDFExt(filepath.Ext(base)) && !IsHidden(base) && !constants.IsCanonicalName(base)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
