package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Root        string        // source folder, watched non-recursively
	InitialScan bool          // emit PDFs already present as the first burst
	Debounce    time.Duration // coalesce a burst of arrivals into one emission
	Logger      *slog.Logger
}

// StartWatcher emits the names of new candidate PDFs in Root, one sorted slice per
// debounced burst. Renamed CS- files and files moving out never trigger an emission.
// Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan []string, <-chan error, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Root == "" {
		log.Error("watcher start failed: no root provided")
		return nil, nil, errors.New("no root provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}
	if err := w.Add(cfg.Root); err != nil {
		log.Error("failed to watch source folder", "root", cfg.Root, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	evCh := make(chan []string, 16)
	errCh := make(chan error, 1)

	pending := map[string]struct{}{}
	if cfg.InitialScan {
		entries, err := os.ReadDir(cfg.Root)
		if err != nil {
			_ = w.Close()
			return nil, nil, err
		}
		for _, d := range entries {
			if !d.IsDir() && IsCandidate(d.Name()) {
				pending[d.Name()] = struct{}{}
			}
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				log.Warn("watcher close error", "error", err)
			}
		}()

		var timer *time.Timer
		var fire <-chan time.Time
		flush := func() {
			if len(pending) == 0 {
				return
			}
			names := make([]string, 0, len(pending))
			for p := range pending {
				names = append(names, p)
			}
			clear(pending)
			slices.Sort(names)
			log.Info("watch.burst", "files", len(names))
			select {
			case evCh <- names:
			case <-ctx.Done():
			}
		}
		flush()

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				// Rename reports the old name; arrivals show up as Create.
				if e.Op&(fsnotify.Create|fsnotify.Write) == 0 || !IsCandidate(e.Name) {
					continue
				}
				pending[filepath.Base(e.Name)] = struct{}{}
				if cfg.Debounce <= 0 {
					flush()
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(cfg.Debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				flush()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
