// Package launcher implements the PSPF launcher (C10): locate the package
// appended to (or resourced into) the running binary, verify it, extract
// its slots into a cached workenv, and hand off to the child command.
package launcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/pspf/flavorpack/internal/workenv"
	"github.com/pspf/flavorpack/pkg/pspf/format"
	"github.com/pspf/flavorpack/pkg/pspf/reader"
	"github.com/pspf/flavorpack/pkg/utils/shellparse"
)

const extractionWaitSeconds = 30

// Run executes the launcher end to end and does not return on success —
// either syscall.Exec replaces this process or spawnProcess calls os.Exit
// once the child has finished. On failure it returns one of this package's
// Exit* codes for the caller's main to pass to os.Exit.
func Run(logger hclog.Logger) int {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	exePath, err := os.Executable()
	if err != nil {
		logger.Error("resolving own executable path", "error", err)
		return ExitIOError
	}

	pkgPath, cleanup, err := packagePath(exePath, logger)
	if err != nil {
		logger.Error("locating package", "error", err)
		return ExitIOError
	}
	defer cleanup()

	r := reader.New(pkgPath, logger)
	defer r.Close()

	level := reader.ParseValidationLevel(os.Getenv("FLAVOR_VALIDATION"))
	if err := r.Verify(level); err != nil {
		logger.Error("package verification failed", "error", err)
		return ExitVerificationFailed
	}

	manifest, err := r.Metadata()
	if err != nil {
		logger.Error("reading package metadata", "error", err)
		return ExitIOError
	}

	idx, err := r.ReadIndex()
	if err != nil {
		logger.Error("reading package index", "error", err)
		return ExitIOError
	}
	indexSum := sha256.Sum256(idx.Pack())
	checksum := hex.EncodeToString(indexSum[:])

	workenvRoot := resolveWorkenvRoot(manifest.Package.Name, manifest.Package.Version, checksum)
	logger.Debug("resolved workenv", "path", workenvRoot)

	slotPaths, err := ensureExtracted(r, manifest, workenvRoot, checksum, logger)
	if err != nil {
		logger.Error("preparing workenv", "error", err)
		return ExitIOError
	}

	if err := fixShebangs(filepath.Join(workenvRoot, "bin"), "{workenv}", workenvRoot, logger); err != nil {
		logger.Debug("fixing shebangs", "error", err)
	}

	command, args, err := substituteAll(manifest.Execution.Command, manifest.Execution.Args, workenvRoot, slotPaths)
	if err != nil {
		logger.Error("resolving placeholders", "error", err)
		return ExitConfigFailed
	}
	command, args, err = splitShellCommand(command, args)
	if err != nil {
		logger.Error("parsing command", "command", command, "error", err)
		return ExitConfigFailed
	}
	resolved := resolveExecutable(command, logger)

	env := applyEnvPolicy(os.Environ(), manifest.Execution.Runtime.Env, logger)
	env = append(env, fmt.Sprintf("FLAVOR_WORKENV=%s", workenvRoot))

	var runErr error
	if useExecMode() {
		runErr = execProcess(resolved, args, env, logger)
	} else {
		runErr = spawnProcess(resolved, args, env, logger)
	}
	if runErr != nil {
		logger.Error("running child process", "command", resolved, "error", runErr)
		return ExitIOError
	}
	return 0
}

// splitShellCommand lets a manifest give `command` as a single shell-style
// string instead of pre-split `args` — if args is empty and command itself
// looks like more than one word, it's split with quote/escape awareness so
// `"python3 -c 'print(1)'"` works without the manifest author hand-quoting
// a JSON array.
func splitShellCommand(command string, args []string) (string, []string, error) {
	if len(args) > 0 || !strings.ContainsAny(command, " \t") {
		return command, args, nil
	}
	parts, err := shellparse.Split(command)
	if err != nil {
		return "", nil, fmt.Errorf("parsing command %q: %w", command, err)
	}
	if len(parts) == 0 {
		return command, args, nil
	}
	return parts[0], parts[1:], nil
}

// resolveWorkenvRoot lets FLAVOR_WORKDIR override the derived cache path,
// otherwise defers to the content-addressed default.
func resolveWorkenvRoot(name, version, checksum string) string {
	if dir := os.Getenv("FLAVOR_WORKDIR"); dir != "" {
		return dir
	}
	return workenv.GetWorkenvPath(name, version, checksum)
}

// ensureExtracted returns the workenv already populated, extracting it
// first if needed. Per §4.9: a valid marker short-circuits extraction;
// otherwise the caller races for the advisory lock, extracts on a win and
// waits on a loss, re-checking validity either way once the lock clears.
func ensureExtracted(r *reader.Reader, manifest *format.Manifest, workenvRoot, checksum string, logger hclog.Logger) (map[int]string, error) {
	essentialDirs := essentialDirsOf(manifest, workenvRoot)

	if workenv.IsValid(workenvRoot, manifest.Package.Name, manifest.Package.Version, checksum, essentialDirs) {
		logger.Debug("workenv already valid, skipping extraction")
		return slotPathsFromManifest(manifest, workenvRoot), nil
	}

	acquired, err := workenv.TryAcquireLock(workenvRoot, logger)
	if err != nil {
		return nil, fmt.Errorf("acquiring extraction lock: %w", err)
	}

	if !acquired {
		logger.Debug("extraction contested, waiting for winner")
		if err := workenv.WaitForExtraction(workenvRoot, extractionWaitSeconds, logger); err != nil {
			return nil, err
		}
		if workenv.IsValid(workenvRoot, manifest.Package.Name, manifest.Package.Version, checksum, essentialDirs) {
			return slotPathsFromManifest(manifest, workenvRoot), nil
		}
		// The winner's marker never landed (it crashed or timed out); take
		// over extraction ourselves rather than fail outright.
		acquired, err = workenv.TryAcquireLock(workenvRoot, logger)
		if err != nil || !acquired {
			return nil, fmt.Errorf("extraction did not complete and lock could not be reacquired: %w", err)
		}
	}
	defer workenv.ReleaseLock(workenvRoot, logger)

	if workenv.IsValid(workenvRoot, manifest.Package.Name, manifest.Package.Version, checksum, essentialDirs) {
		return slotPathsFromManifest(manifest, workenvRoot), nil
	}

	// An I/O failure mid-extraction gets one retry from a clean workenv
	// before being treated as fatal (§7).
	slotPaths, volatile, err := extractSlots(r, manifest, workenvRoot, logger)
	if err != nil {
		logger.Warn("extraction failed, retrying from a clean workenv", "error", err)
		_ = workenv.MarkIncomplete(workenvRoot, err.Error())
		if cleanErr := workenv.Clean(workenvRoot); cleanErr != nil {
			logger.Debug("cleaning workenv before retry", "error", cleanErr)
		}
		slotPaths, volatile, err = extractSlots(r, manifest, workenvRoot, logger)
		if err != nil {
			_ = workenv.MarkIncomplete(workenvRoot, err.Error())
			return nil, err
		}
	}
	cleanupVolatileSlots(volatile, logger)

	if err := workenv.MarkComplete(workenvRoot, manifest.Package.Name, manifest.Package.Version, checksum); err != nil {
		logger.Debug("failed to write completion marker", "error", err)
	}
	return slotPaths, nil
}

// essentialDirsOf collects the set of extract_to directories a cached or
// persistent slot must land in, the "essential directories" IsValid checks
// for before trusting a stale completion marker.
func essentialDirsOf(manifest *format.Manifest, workenvRoot string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, slot := range manifest.Slots {
		if slot.Lifecycle == "volatile" {
			continue
		}
		dest := resolveExtractTo(slot.ExtractTo, workenvRoot)
		dir := filepath.Dir(dest)
		rel, err := filepath.Rel(workenvRoot, dir)
		if err != nil || rel == "." || rel == ".." || seen[rel] {
			continue
		}
		seen[rel] = true
		dirs = append(dirs, rel)
	}
	return dirs
}

// slotPathsFromManifest rebuilds the slot-index -> path map without
// re-extracting, for the already-valid workenv path.
func slotPathsFromManifest(manifest *format.Manifest, workenvRoot string) map[int]string {
	paths := make(map[int]string, len(manifest.Slots))
	for i, slot := range manifest.Slots {
		paths[i] = resolveExtractTo(slot.ExtractTo, workenvRoot)
	}
	return paths
}
