package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirSource polls a directory for dropped .wav files. Each file is consumed
// once: it is renamed with a .processed suffix, or .rejected if it does not
// decode.
type DirSource struct {
	dir    string
	poll   time.Duration
	logger *slog.Logger
}

// NewDirSource creates the directory if needed.
func NewDirSource(dir string, poll time.Duration, logger *slog.Logger) (*DirSource, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audio dir: %w", err)
	}
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &DirSource{dir: dir, poll: poll, logger: logger}, nil
}

func (s *DirSource) Name() string { return "dir:" + s.dir }

// Next blocks until a decodable file appears or ctx ends.
func (s *DirSource) Next(ctx context.Context) (Clip, error) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		clip, ok, err := s.scan()
		if err != nil {
			return Clip{}, err
		}
		if ok {
			return clip, nil
		}
		select {
		case <-ctx.Done():
			return Clip{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *DirSource) scan() (Clip, bool, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Clip{}, false, fmt.Errorf("reading dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return Clip{}, false, fmt.Errorf("reading file %s: %w", path, err)
		}
		clip, err := DecodeWAV(name, bytes.NewReader(data))
		if err != nil {
			s.logger.Warn("rejecting audio file", "component", "audio", "file", name, "error", err)
			if rerr := os.Rename(path, path+".rejected"); rerr != nil {
				return Clip{}, false, fmt.Errorf("renaming %s: %w", path, rerr)
			}
			continue
		}
		if err := os.Rename(path, path+".processed"); err != nil {
			return Clip{}, false, fmt.Errorf("renaming %s: %w", path, err)
		}
		s.logger.Info("audio clip received", "component", "audio", "file", name,
			"duration", clip.Duration().String(), "sample_rate", clip.SampleRate())
		return clip, true, nil
	}
	return Clip{}, false, nil
}
