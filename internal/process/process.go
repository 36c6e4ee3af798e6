// Package process keeps a single daemon instance per PID file
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	gopsprocess "github.com/shirou/gopsutil/v4/process"

	constants "pulsepc/config"
)

// RunningError is returned when another daemon holds the lock
type RunningError struct {
	PID int
}

func (e *RunningError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("another %s daemon is already running (PID %d)", constants.APP_NAME, e.PID)
	}
	return fmt.Sprintf("another %s daemon is already running", constants.APP_NAME)
}

// DefaultPath returns the per-user PID file location
func DefaultPath() string {
	name := constants.APP_NAME + ".pid"
	switch runtime.GOOS {
	case "linux":
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, name)
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "run", name)
		}
	case "windows":
		if dir, err := os.UserCacheDir(); err == nil {
			return filepath.Join(dir, constants.APP_NAME, name)
		}
	default:
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support", constants.APP_NAME, name)
		}
	}
	return constants.PID_FILE
}

// IsDaemonProcess reports whether pid is a running "pulsepc daemon"
func IsDaemonProcess(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	args, err := p.CmdlineSlice()
	if err != nil || len(args) == 0 {
		return false
	}
	exe := strings.ToLower(filepath.Base(args[0]))
	if !strings.HasPrefix(exe, constants.APP_NAME) {
		return false
	}
	for _, a := range args[1:] {
		if a == "daemon" {
			return true
		}
	}
	return false
}
