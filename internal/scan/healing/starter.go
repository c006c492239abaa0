package healing

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// ExecStarter starts a detached worker process: same binary by default, with
// a prefix argument list (e.g. ["resume", "--config", path]) followed by the
// state file path. The child gets its own session group so the parent's exit
// never takes it down.
type ExecStarter struct {
	Bin    string   // defaults to the current executable
	Args   []string // prefix arguments
	LogDir string   // worker stdout/stderr destination; empty discards
}

// Start launches the worker and releases it immediately.
func (s *ExecStarter) Start(statePath string) error {
	bin := s.Bin
	if bin == "" {
		var err error
		bin, err = os.Executable()
		if err != nil {
			return fmt.Errorf("failed to resolve executable: %w", err)
		}
	}

	args := append(append([]string(nil), s.Args...), statePath)
	cmd := exec.Command(bin, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if s.LogDir != "" {
		logPath := filepath.Join(s.LogDir, filepath.Base(statePath)+".log")
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open worker log: %w", err)
		}
		defer func() {
			_ = logFile.Close()
		}()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start worker process: %w", err)
	}
	// Detach: the child is on its own from here.
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release worker process: %w", err)
	}
	return nil
}
