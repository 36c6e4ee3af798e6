//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func pidPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "run", "pulsepc.pid")
}

func TestLockfile_SingleInstance(t *testing.T) {
	path := pidPath(t)

	lock1, err := Acquire(path)
	if err != nil {
		t.Fatalf("First instance failed to acquire lock: %v", err)
	}
	defer lock1.Release()

	lock2, err := Acquire(path)
	if err == nil {
		lock2.Release()
		t.Fatal("Second instance should not have acquired lock")
	}

	var running *RunningError
	if !errors.As(err, &running) {
		t.Fatalf("Expected RunningError, got: %v", err)
	}
	if running.PID != os.Getpid() {
		t.Errorf("Expected holder PID %d, got %d", os.Getpid(), running.PID)
	}
}

func TestLockfile_ReleaseAndReacquire(t *testing.T) {
	path := pidPath(t)

	lock1, err := Acquire(path)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	lock1.Release()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("PID file should be removed on release")
	}

	lock2, err := Acquire(path)
	if err != nil {
		t.Fatalf("Failed to reacquire lock after release: %v", err)
	}
	defer lock2.Release()
}

func TestLockfile_TakesOverUnheldFile(t *testing.T) {
	path := pidPath(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	// left behind by a crashed daemon: content but no lock
	if err := os.WriteFile(path, []byte("99999\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Failed to take over stale PID file: %v", err)
	}
	defer lock.Release()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read PID file: %v", err)
	}
	var filePID int
	if _, err := fmt.Sscanf(string(content), "%d", &filePID); err != nil {
		t.Fatalf("Failed to parse PID from file: %v", err)
	}
	if filePID != os.Getpid() {
		t.Errorf("PID file should contain %d, got %d", os.Getpid(), filePID)
	}
}

func TestLockfile_Check(t *testing.T) {
	path := pidPath(t)

	running, pid, err := Check(path)
	if err != nil || running || pid != 0 {
		t.Errorf("Expected not running without a file, got %v %d %v", running, pid, err)
	}

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	running, pid, err = Check(path)
	if err != nil {
		t.Errorf("Check failed: %v", err)
	}
	if !running || pid != os.Getpid() {
		t.Errorf("Expected running with PID %d, got %v %d", os.Getpid(), running, pid)
	}
}

func TestLockfile_ConcurrentAcquisition(t *testing.T) {
	path := pidPath(t)

	var success, failed atomic.Int32
	var held sync.WaitGroup
	held.Add(1)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := Acquire(path)
			if err != nil {
				failed.Add(1)
				return
			}
			success.Add(1)
			held.Wait()
			lock.Release()
		}()
	}

	// let the losers finish while the winner keeps holding
	for success.Load()+failed.Load() < 10 {
		time.Sleep(time.Millisecond)
	}
	held.Done()
	wg.Wait()

	if success.Load() != 1 {
		t.Errorf("Expected exactly 1 successful acquisition, got %d", success.Load())
	}
	if failed.Load() != 9 {
		t.Errorf("Expected 9 failed acquisitions, got %d", failed.Load())
	}
}

func TestLockfile_CleanupStale(t *testing.T) {
	path := pidPath(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("99999\n"), 0o644); err != nil {
		t.Fatalf("Failed to create stale PID file: %v", err)
	}

	if err := CleanupStale(path); err != nil {
		t.Errorf("CleanupStale should not error on stale file: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Stale PID file should have been removed")
	}
}

func TestLockfile_MultipleReleases(t *testing.T) {
	path := pidPath(t)

	lock, err := Acquire(path)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	lock.Release()
	lock.Release()
	lock.Release()

	lock2, err := Acquire(path)
	if err != nil {
		t.Fatalf("Failed to acquire lock after multiple releases: %v", err)
	}
	defer lock2.Release()
}

func TestIsDaemonProcess(t *testing.T) {
	// the test binary is not "pulsepc daemon"
	if IsDaemonProcess(os.Getpid()) {
		t.Error("Test process should not look like a daemon")
	}
	if IsDaemonProcess(0) {
		t.Error("PID 0 is never a daemon")
	}
}
