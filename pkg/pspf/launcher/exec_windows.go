//go:build windows

package launcher

import "github.com/hashicorp/go-hclog"

// canExec is false on Windows: there is no process-image replacement
// syscall, so the launcher always spawns and waits there.
func canExec() bool { return false }

func execProcess(command string, args, env []string, logger hclog.Logger) error {
	return spawnProcess(command, args, env, logger)
}
