package launcher

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// resolveExecutable turns a manifest command (often a Unix-style absolute
// path such as /usr/bin/python3) into something exec.LookPath can find on
// this platform, falling back to a bare basename lookup and, on Windows, to
// a handful of common Unix-to-Windows command aliases.
func resolveExecutable(command string, logger hclog.Logger) string {
	name := command
	if strings.HasPrefix(command, "/") {
		name = filepath.Base(command)
	}

	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}

	if runtime.GOOS == "windows" {
		var fallback string
		switch name {
		case "python3", "python3.exe":
			fallback = "python.exe"
		case "sh", "sh.exe":
			fallback = "bash.exe"
		}
		if fallback != "" {
			if resolved, err := exec.LookPath(fallback); err == nil {
				logger.Debug("resolved via windows fallback", "input", command, "resolved", resolved)
				return resolved
			}
		}
	}

	if name != command {
		logger.Debug("could not resolve in PATH, using basename", "input", command, "basename", name)
		return name
	}
	return command
}
