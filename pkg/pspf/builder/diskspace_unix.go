//go:build !windows

package builder

import "syscall"

// availableDiskSpace returns the bytes free at path's filesystem.
func availableDiskSpace(path string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
