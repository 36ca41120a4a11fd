package reference

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/workorder-sorter/constants"
)

// Load reads the reference list at path. The first row is a header. A missing file is
// not an error: the set is empty and every file will route to the holding folder.
func Load(path string, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	var (
		ids []string
		err error
	)
	if constants.NormalizeExt(filepath.Ext(path)) == constants.XLSXExt {
		ids, err = readXLSX(path)
	} else {
		ids, err = readLines(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("reference.load.missing", "path", path)
		return NewSet(), nil
	}
	if err != nil {
		return NewSet(), fmt.Errorf("load reference list %s: %w", path, err)
	}

	set := NewSet(ids...)
	logger.Info("reference.load.ok",
		"path", path,
		"entries", set.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return set, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseLines(f)
}

// parseLines skips the header line and returns every other non-blank line, trimmed.
func parseLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	var ids []string
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		if line := strings.TrimSpace(sc.Text()); line != "" {
			ids = append(ids, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// readXLSX takes the first column of the first sheet, skipping the header row.
func readXLSX(path string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	var ids []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if id := strings.TrimSpace(row[0]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
