// Package service reports daemon state to systemd
package service

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/okzk/sdnotify"

	"pulsepc/internal/logger"
)

// NotifyReady notifies systemd that the service is ready (Type=notify)
func NotifyReady() {
	if runtime.GOOS == "linux" {
		if err := sdnotify.Ready(); err == nil {
			logger.Debug("Sent READY notification to systemd")
		}
	}
}

// NotifyStopping notifies systemd that the service is stopping
func NotifyStopping() {
	if runtime.GOOS == "linux" {
		if err := sdnotify.Stopping(); err == nil {
			logger.Debug("Sent STOPPING notification to systemd")
		}
	}
}

// NotifyWatchdog sends a watchdog ping to systemd
func NotifyWatchdog() {
	if runtime.GOOS == "linux" {
		_ = sdnotify.Watchdog()
	}
}

// NotifyStatus sends a status line to systemd
func NotifyStatus(status string) {
	if runtime.GOOS == "linux" {
		_ = sdnotify.Status(status)
	}
}

// WatchdogInterval returns half the interval systemd expects pings at, or
// zero when the unit has no watchdog configured
func WatchdogInterval() time.Duration {
	usec, err := strconv.ParseInt(os.Getenv("WATCHDOG_USEC"), 10, 64)
	if err != nil || usec <= 0 {
		return 0
	}
	return time.Duration(usec) * time.Microsecond / 2
}

// RunWatchdog pings systemd while healthy returns true, until ctx is done
func RunWatchdog(ctx context.Context, healthy func() bool) {
	interval := WatchdogInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if healthy() {
				NotifyWatchdog()
			} else {
				logger.Warning("Skipping watchdog ping: refresh loop is not healthy")
			}
		}
	}
}
