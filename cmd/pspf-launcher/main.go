// Command pspf-launcher is the minimal entrypoint glued to a package's tail:
// all the actual work happens in pkg/pspf/launcher, so this binary's only
// job is to recover from panics with a distinct exit code and hand off.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/pspf/flavorpack/pkg/logging"
	"github.com/pspf/flavorpack/pkg/pspf/launcher"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %v\n", r)
			debug.PrintStack()
			os.Exit(launcher.ExitPanic)
		}
	}()

	logger := logging.NewLogger("pspf-launcher", logging.GetLogLevel(), nil)

	if handled, code := launcher.RunCLI(os.Args[1:], logger); handled {
		os.Exit(code)
	}

	os.Exit(launcher.Run(logger))
}
