package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/star/starseeker/internal/metrics"
	"github.com/star/starseeker/internal/mount"
)

// LoadCalibration reads a mount calibration file. Keys missing from the
// file keep the values of base.
func LoadCalibration(path string, base mount.Law) (mount.Law, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mount.Law{}, fmt.Errorf("read calibration: %w", err)
	}
	law := base
	if err := yaml.Unmarshal(data, &law); err != nil {
		return mount.Law{}, fmt.Errorf("parse calibration: %w", err)
	}
	if err := law.Validate(); err != nil {
		return mount.Law{}, fmt.Errorf("invalid calibration: %w", err)
	}
	return law, nil
}

// CalibrationWatcher reloads the mount calibration file when it changes
// and hands every valid law to apply. Invalid files are logged and ignored.
type CalibrationWatcher struct {
	path     string
	base     mount.Law
	apply    func(mount.Law)
	logger   *slog.Logger
	debounce time.Duration

	current atomic.Pointer[mount.Law]
	reloads atomic.Uint32
	mu      sync.Mutex
	timer   *time.Timer
}

// NewCalibrationWatcher loads path once and calls apply with the result.
func NewCalibrationWatcher(path string, base mount.Law, apply func(mount.Law), logger *slog.Logger) (*CalibrationWatcher, error) {
	law, err := LoadCalibration(path, base)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial calibration: %w", err)
	}
	w := &CalibrationWatcher{
		path:     filepath.Clean(path),
		base:     base,
		apply:    apply,
		logger:   logger,
		debounce: 500 * time.Millisecond,
	}
	w.current.Store(&law)
	apply(law)
	return w, nil
}

// Run watches the calibration file until ctx is cancelled. The parent
// directory is watched so editors that replace the file are noticed.
func (w *CalibrationWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching mount calibration", "component", "calibration", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("calibration watcher error", "component", "calibration", "error", err)
		}
	}
}

func (w *CalibrationWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *CalibrationWatcher) reload() {
	count := w.reloads.Add(1)
	law, err := LoadCalibration(w.path, w.base)
	metrics.ObserveMountReload(err)
	if err != nil {
		w.logger.Error("mount calibration rejected, keeping previous law",
			"component", "calibration", "path", w.path, "error", err)
		return
	}
	w.current.Store(&law)
	w.apply(law)
	w.logger.Info("mount calibration reloaded", "component", "calibration",
		"count", count, "forward_azimuth", law.ForwardDeg, "half_width", law.HalfWidthDeg,
		"mirror_far", law.MirrorFar, "reverse", law.Reverse)
}

// Law returns the last valid calibration.
func (w *CalibrationWatcher) Law() mount.Law {
	return *w.current.Load()
}

// ReloadCount returns the number of reload attempts, valid or not.
func (w *CalibrationWatcher) ReloadCount() uint32 {
	return w.reloads.Load()
}
