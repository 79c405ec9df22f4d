//go:build !windows

package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/hashicorp/go-hclog"
)

// canExec reports whether this platform supports replacing the current
// process image via syscall.Exec.
func canExec() bool { return true }

// execProcess replaces the current process with command/args/env, never
// returning on success.
func execProcess(command string, args, env []string, logger hclog.Logger) error {
	binary, err := exec.LookPath(command)
	if err != nil {
		return fmt.Errorf("resolving %s in PATH: %w", command, err)
	}
	argv := append([]string{binary}, args...)
	if env == nil {
		env = os.Environ()
	}
	logger.Info("replacing process via exec", "path", binary)
	return fmt.Errorf("exec failed: %w", syscall.Exec(binary, argv, env))
}
