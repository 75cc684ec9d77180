package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/star/starseeker/internal/mount"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCalibration(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCalibrationMergesOverBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mount.yaml")
	writeCalibration(t, path, "forward_azimuth: 45\n")
	law, err := LoadCalibration(path, mount.DefaultLaw())
	if err != nil {
		t.Fatal(err)
	}
	if law.ForwardDeg != 45 || law.HalfWidthDeg != 90 || !law.MirrorFar {
		t.Fatalf("unexpected law %+v", law)
	}
}

func TestLoadCalibrationRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mount.yaml")
	writeCalibration(t, path, "half_width: 200\n")
	if _, err := LoadCalibration(path, mount.DefaultLaw()); err == nil {
		t.Fatal("expected error for half width 200")
	}
	writeCalibration(t, path, "half_width: [1, 2\n")
	if _, err := LoadCalibration(path, mount.DefaultLaw()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCalibrationWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mount.yaml")
	writeCalibration(t, path, "forward_azimuth: 0\n")

	var mu sync.Mutex
	var applied []mount.Law
	w, err := NewCalibrationWatcher(path, mount.DefaultLaw(), func(l mount.Law) {
		mu.Lock()
		applied = append(applied, l)
		mu.Unlock()
	}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Let the watcher register before the first write.
	time.Sleep(100 * time.Millisecond)
	writeCalibration(t, path, "half_width: 200\n")
	time.Sleep(200 * time.Millisecond)
	if got := w.Law().HalfWidthDeg; got != 90 {
		t.Fatalf("invalid calibration applied: half width %v", got)
	}

	writeCalibration(t, path, "forward_azimuth: 120\n")
	deadline := time.Now().Add(5 * time.Second)
	for w.Law().ForwardDeg != 120 {
		if time.Now().After(deadline) {
			t.Fatal("calibration not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	last := applied[len(applied)-1]
	mu.Unlock()
	if last.ForwardDeg != 120 {
		t.Fatalf("apply saw %+v", last)
	}
	if w.ReloadCount() < 2 {
		t.Fatalf("expected at least 2 reloads, got %d", w.ReloadCount())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
