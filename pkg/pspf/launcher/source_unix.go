//go:build !windows

package launcher

import "github.com/hashicorp/go-hclog"

// packagePath on non-Windows platforms is always the launcher binary
// itself: the package is appended to its tail, no PE resource indirection
// involved.
func packagePath(exePath string, logger hclog.Logger) (string, func(), error) {
	return exePath, func() {}, nil
}
