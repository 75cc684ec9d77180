// Package tts announces pointing results to the user.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/star/starseeker/internal/config"
)

// Announcer speaks a short message.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// New builds the announcer selected by cfg.Mode.
func New(cfg config.TTSConfig, logger *slog.Logger) (Announcer, error) {
	switch cfg.Mode {
	case "exec":
		return NewExecAnnouncer(cfg.Command)
	case "log":
		return LogAnnouncer{Logger: logger}, nil
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown tts mode %q", cfg.Mode)
	}
}

// ExecAnnouncer runs a command (for example a Piper pipeline) with the text
// on stdin. Announcements are serialised so they never overlap.
type ExecAnnouncer struct {
	cmd []string
	mu  sync.Mutex
}

// NewExecAnnouncer parses command with shell quoting rules.
func NewExecAnnouncer(command string) (*ExecAnnouncer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &ExecAnnouncer{cmd: args}, nil
}

func (e *ExecAnnouncer) Announce(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cmd := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	cmd.Stdin = strings.NewReader(text + "\n")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tts command: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// LogAnnouncer writes announcements to the log.
type LogAnnouncer struct {
	Logger *slog.Logger
}

func (l LogAnnouncer) Announce(_ context.Context, text string) error {
	l.Logger.Info("announcement", "component", "tts", "text", text)
	return nil
}

// Noop discards announcements.
type Noop struct{}

func (Noop) Announce(context.Context, string) error { return nil }
