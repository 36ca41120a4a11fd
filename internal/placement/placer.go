package placement

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/joseph-ayodele/workorder-sorter/constants"
	"github.com/joseph-ayodele/workorder-sorter/internal/common"
	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
)

// maxSuffix bounds the " (n)" disambiguator tried on name collisions.
const maxSuffix = 99

// Request describes one classification decision to apply on disk.
type Request struct {
	Filename      string
	SourceFolder  string
	HoldingFolder string
	WorkOrder     string
	Equipment     string
	Matched       bool
}

// Placer renames matched files in place and moves the rest to the holding folder. It
// never overwrites an existing file.
type Placer struct {
	mu     sync.Mutex
	logger *slog.Logger
	rename func(oldpath, newpath string) error
}

func NewPlacer(logger *slog.Logger) *Placer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Placer{logger: logger, rename: os.Rename}
}

// CanonicalName is CS-<workOrder>-<equipment|NoEquip>.pdf with unsafe characters replaced.
func CanonicalName(workOrder, equipment string) string {
	equip := sanitize(equipment)
	if equip == "" {
		equip = constants.NoEquipment
	}
	return constants.CanonicalPrefix + sanitize(workOrder) + "-" + equip + "." + constants.PDFExt
}

// ClassifyAndPlace applies the decision and returns the file's outcome. Filesystem
// errors become a failed outcome; the source file is then left where it was.
func (p *Placer) ClassifyAndPlace(req Request) entity.FileOutcome {
	out := entity.FileOutcome{
		Filename:  req.Filename,
		Matched:   req.Matched,
		WorkOrder: req.WorkOrder,
		Equipment: req.Equipment,
	}
	src := filepath.Join(req.SourceFolder, req.Filename)
	log := p.logger.With("file", req.Filename, "matched", req.Matched)

	var (
		dest string
		err  error
	)
	if req.Matched {
		dest, err = p.place(src, req.SourceFolder, CanonicalName(req.WorkOrder, req.Equipment))
		out.Status = constants.FileRenamed
	} else {
		if mkErr := os.MkdirAll(req.HoldingFolder, 0o755); mkErr != nil {
			err = fmt.Errorf("create holding folder: %w", mkErr)
		} else {
			dest, err = p.place(src, req.HoldingFolder, req.Filename)
		}
		out.Status = constants.FileHeld
	}

	if err != nil {
		log.Error("placement.failed", "error", err)
		failed := entity.Failed(req.Filename, common.NewAppError(common.CodePlacement, "place "+req.Filename, errors.Join(common.ErrPlacement, err)))
		failed.Matched = req.Matched
		failed.WorkOrder = req.WorkOrder
		failed.Equipment = req.Equipment
		return failed
	}

	log.Info("placement.ok", "status", out.Status, "new_path", dest)
	out.Success = true
	out.NewPath = dest
	return out
}

// place moves src into dir under name, picking a free name first. Serialized so two
// workers cannot both claim the same target.
func (p *Placer) place(src, dir, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dest, err := freeName(src, dir, name)
	if err != nil {
		return "", err
	}
	if dest == src {
		return dest, nil
	}
	if err := p.move(src, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func freeName(src, dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; n <= maxSuffix; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		dest := filepath.Join(dir, candidate)
		if dest == src {
			return dest, nil
		}
		_, err := os.Lstat(dest)
		if errors.Is(err, fs.ErrNotExist) {
			return dest, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", dest, err)
		}
	}
	return "", fmt.Errorf("name collision: %s and %d alternatives already exist", name, maxSuffix-1)
}

func (p *Placer) move(src, dest string) error {
	err := p.rename(src, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	p.logger.Debug("placement.cross_device_copy", "src", src, "dest", dest)
	return copyAndRemove(src, dest)
}

func copyAndRemove(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, st.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err = out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err = out.Close(); err != nil {
		return err
	}
	_ = in.Close()
	return os.Remove(src)
}

func sanitize(id string) string {
	id = strings.TrimSpace(id)
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, id)
}
