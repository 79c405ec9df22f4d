package workenv

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
)

// IsProcessRunning checks if a process with given PID is still running, by
// sending it signal 0 (no-op, existence check only).
func IsProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

func lockFile(dir string) string { return filepath.Join(dir, ".extraction.lock") }

// TryAcquireLock attempts to acquire the exclusive advisory lock for
// extraction into dir (§4.9). It first clears a stale lock left by a dead
// process, then races on O_EXCL. Returns true if the lock was acquired.
func TryAcquireLock(dir string, logger hclog.Logger) (bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("creating workenv directory: %w", err)
	}

	path := lockFile(dir)

	if data, err := os.ReadFile(path); err == nil {
		contents := strings.TrimSpace(string(data))
		if oldPID, err := strconv.Atoi(contents); err == nil {
			if !IsProcessRunning(oldPID) {
				logger.Info("removing stale lock from dead process", "pid", oldPID)
				os.Remove(path)
			} else {
				logger.Debug("lock held by active process", "pid", oldPID)
				return false, nil
			}
		} else {
			logger.Info("removing unparsable lock file")
			os.Remove(path)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			logger.Debug("lock file appeared, another process is extracting")
			return false, nil
		}
		return false, err
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		os.Remove(path)
		return false, err
	}

	logger.Debug("acquired extraction lock", "pid", os.Getpid())
	return true, nil
}

// ReleaseLock removes the advisory lock file.
func ReleaseLock(dir string, logger hclog.Logger) {
	if err := os.Remove(lockFile(dir)); err != nil && !os.IsNotExist(err) {
		logger.Debug("failed to remove lock file", "error", err)
	}
}

// WaitForExtraction polls for the lock to be released by the winning
// process, bounded by timeoutSecs (§4.9: "if contested, wait (bounded)").
func WaitForExtraction(dir string, timeoutSecs int, logger hclog.Logger) error {
	path := lockFile(dir)
	maxAttempts := timeoutSecs * 10

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			time.Sleep(100 * time.Millisecond)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("timeout waiting for workenv extraction lock after %ds", timeoutSecs)
}
