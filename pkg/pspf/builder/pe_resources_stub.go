//go:build !windows

package builder

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// embedAsPEResource is unavailable off Windows; non-Windows targets append
// the package to the launcher image instead.
func embedAsPEResource(exePath string, pkgData []byte, logger hclog.Logger) error {
	return fmt.Errorf("PE resource embedding is only supported on windows")
}
