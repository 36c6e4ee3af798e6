//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"pulsepc/internal/logger"
)

// LockFile is an exclusive flock held on a PID file for the daemon's lifetime
type LockFile struct {
	path string
	fd   int
}

// Acquire creates and locks the PID file at path. It fails if another
// daemon holds the lock; a leftover file nobody holds is taken over.
func Acquire(path string) (*LockFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open PID file: %w", err)
	}

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		pid := readPID(fd)
		unix.Close(fd)
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, &RunningError{PID: pid}
		}
		return nil, fmt.Errorf("failed to lock PID file: %w", err)
	}

	if err := unix.Ftruncate(fd, 0); err != nil {
		release(fd)
		return nil, fmt.Errorf("failed to truncate PID file: %w", err)
	}
	if _, err := unix.Pwrite(fd, []byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		release(fd)
		return nil, fmt.Errorf("failed to write PID: %w", err)
	}

	logger.Info("Acquired PID file lock: %s (PID: %d)", path, os.Getpid())
	return &LockFile{path: path, fd: fd}, nil
}

func release(fd int) {
	unix.Flock(fd, unix.LOCK_UN)
	unix.Close(fd)
}

// Release unlocks and removes the PID file. Safe to call more than once.
func (lf *LockFile) Release() error {
	if lf == nil || lf.fd <= 0 {
		return nil
	}
	logger.Info("Releasing PID file lock: %s", lf.path)
	release(lf.fd)
	lf.fd = 0
	if err := os.Remove(lf.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Check reports whether a daemon currently holds the lock at path
func Check(path string) (running bool, pid int, err error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("failed to open PID file: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Flock(fd, unix.LOCK_SH|unix.LOCK_NB); err != nil {
		return true, readPID(fd), nil
	}
	unix.Flock(fd, unix.LOCK_UN)
	return false, 0, nil
}

// CleanupStale removes a PID file whose lock nobody holds, or whose holder
// is not a daemon (PID reuse)
func CleanupStale(path string) error {
	running, pid, err := Check(path)
	if err != nil {
		return err
	}
	if !running {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if !IsDaemonProcess(pid) {
		logger.Info("PID file names a non-daemon process (%d), cleaning up", pid)
		return os.Remove(path)
	}
	return &RunningError{PID: pid}
}

func readPID(fd int) int {
	buf := make([]byte, 32)
	n, err := unix.Pread(fd, buf, 0)
	if err != nil || n == 0 {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	return pid
}
