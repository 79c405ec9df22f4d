package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"

	"github.com/hashicorp/go-hclog"
)

// spawnProcess runs command as a child, waits for it, and exits the launcher
// with the child's exit code; it returns an error only when the child could
// not be started or waited on (used when syscall.Exec isn't available —
// Windows — or FLAVOR_EXEC_MODE=spawn is set). Signals received by the launcher are
// forwarded to the child for the duration of the run, since spawn mode —
// unlike exec mode — leaves the launcher as a distinct process in between.
func spawnProcess(command string, args, env []string, logger hclog.Logger) error {
	cmd := exec.Command(command, args...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logger.Info("spawning child process", "path", command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", command, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				if cmd.Process != nil {
					_ = cmd.Process.Signal(sig)
				}
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)
	signal.Stop(sigCh)

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("waiting for %s: %w", command, err)
	}
	os.Exit(0)
	return nil
}

// useExecMode decides between syscall.Exec and spawn+wait: exec unless
// unavailable on this platform or FLAVOR_EXEC_MODE=spawn is set (§4.10).
func useExecMode() bool {
	if os.Getenv("FLAVOR_EXEC_MODE") == "spawn" {
		return false
	}
	return canExec()
}
