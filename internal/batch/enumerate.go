package batch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/workorder-sorter/constants"
	"github.com/joseph-ayodele/workorder-sorter/internal/common"
)

type ScanStats struct {
	Scanned   int
	Matched   int
	Canonical int // already renamed, left alone
}

// EnumeratePDFs lists the PDFs directly inside folder (case-insensitive extension),
// skipping hidden files, directories and files already in canonical CS- form. Names
// are returned in lexical order.
func EnumeratePDFs(folder string) ([]string, ScanStats, error) {
	var stats ScanStats
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, stats, common.NewAppError(common.CodeEnumeration, "read source folder "+folder,
			errors.Join(common.ErrEnumeration, err))
	}

	var names []string
	for _, d := range entries {
		stats.Scanned++
		name := d.Name()
		if d.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !constants.IsPDFExt(filepath.Ext(name)) {
			continue
		}
		if constants.IsCanonicalName(name) {
			stats.Canonical++
			continue
		}
		stats.Matched++
		names = append(names, name)
	}
	return names, stats, nil
}
