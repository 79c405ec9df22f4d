//go:build !windows

package builder

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

// atomicReplace swaps destPath for sourcePath. On Unix os.Rename is already
// atomic within a filesystem.
func atomicReplace(sourcePath, destPath string, logger hclog.Logger) error {
	if err := os.Rename(sourcePath, destPath); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", sourcePath, destPath, err)
	}
	logger.Debug("atomic replace done", "source", sourcePath, "dest", destPath)
	return nil
}
