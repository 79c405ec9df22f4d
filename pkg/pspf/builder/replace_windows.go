//go:build windows

package builder

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sys/windows"
)

// atomicReplace swaps destPath for sourcePath via MoveFileEx, retrying with
// backoff since an antivirus or the OS loader can transiently hold destPath
// open right after a PE is written.
func atomicReplace(sourcePath, destPath string, logger hclog.Logger) error {
	fromPtr, err := windows.UTF16PtrFromString(sourcePath)
	if err != nil {
		return fmt.Errorf("encoding source path: %w", err)
	}
	toPtr, err := windows.UTF16PtrFromString(destPath)
	if err != nil {
		return fmt.Errorf("encoding dest path: %w", err)
	}

	const flags = windows.MOVEFILE_REPLACE_EXISTING | windows.MOVEFILE_WRITE_THROUGH
	delay := 50 * time.Millisecond
	const maxAttempts = 3

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := windows.MoveFileEx(fromPtr, toPtr, flags); err == nil {
			logger.Debug("atomic replace done", "source", sourcePath, "dest", destPath, "attempt", attempt)
			return nil
		} else if attempt == maxAttempts {
			return fmt.Errorf("replacing %s after %d attempts: %w", destPath, maxAttempts, err)
		}
		time.Sleep(delay)
		delay *= 2
	}
	return nil
}
