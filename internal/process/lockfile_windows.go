//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gopsprocess "github.com/shirou/gopsutil/v4/process"

	"pulsepc/internal/logger"
)

// LockFile is a PID file created exclusively. Windows has no flock, so a
// leftover file is judged stale by whether its PID is still alive.
type LockFile struct {
	path string
	f    *os.File
}

// Acquire creates the PID file at path, taking over a stale one
func Acquire(path string) (*LockFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if _, err := f.WriteString(strconv.Itoa(os.Getpid()) + "\n"); err != nil {
				f.Close()
				os.Remove(path)
				return nil, fmt.Errorf("failed to write PID: %w", err)
			}
			logger.Info("Acquired PID file lock: %s (PID: %d)", path, os.Getpid())
			return &LockFile{path: path, f: f}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to open PID file: %w", err)
		}
		if running, pid, _ := Check(path); running {
			return nil, &RunningError{PID: pid}
		}
		logger.Info("Cleaning up stale PID file %s", path)
		os.Remove(path)
	}
	return nil, fmt.Errorf("failed to acquire PID file %s", path)
}

// Release closes and removes the PID file. Safe to call more than once.
func (lf *LockFile) Release() error {
	if lf == nil || lf.f == nil {
		return nil
	}
	logger.Info("Releasing PID file lock: %s", lf.path)
	lf.f.Close()
	lf.f = nil
	if err := os.Remove(lf.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Check reports whether the PID recorded at path is alive
func Check(path string) (running bool, pid int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, _ = strconv.Atoi(strings.TrimSpace(string(data)))
	if pid <= 0 {
		return false, 0, nil
	}
	alive, err := gopsprocess.PidExists(int32(pid))
	if err != nil || !alive {
		return false, 0, nil
	}
	return true, pid, nil
}

// CleanupStale removes a PID file whose process is gone or is not a daemon
func CleanupStale(path string) error {
	running, pid, err := Check(path)
	if err != nil {
		return err
	}
	if running && IsDaemonProcess(pid) {
		return &RunningError{PID: pid}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
