package launcher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/pspf/flavorpack/pkg/pspf/reader"
)

// RunCLI handles the launcher's own introspection subcommands (info, verify,
// metadata, extract, run), active only when FLAVOR_LAUNCHER_CLI=1 is set —
// every other invocation treats argv as the wrapped command's own arguments.
// Returns true if it handled the invocation (caller should exit with the
// returned code), false if this isn't a CLI invocation at all.
func RunCLI(args []string, logger hclog.Logger) (handled bool, code int) {
	if os.Getenv("FLAVOR_LAUNCHER_CLI") != "1" || len(args) == 0 {
		return false, 0
	}

	exePath, err := os.Executable()
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolving own executable path:", err)
		return true, ExitIOError
	}
	pkgPath, cleanup, err := packagePath(exePath, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "locating package:", err)
		return true, ExitIOError
	}
	defer cleanup()

	r := reader.New(pkgPath, logger)
	defer r.Close()

	switch args[0] {
	case "info":
		idx, err := r.ReadIndex()
		if err != nil {
			fmt.Fprintln(os.Stderr, "reading index:", err)
			return true, ExitIOError
		}
		fmt.Printf("format version: %d.%d\n", idx.VersionMajor, idx.VersionMinor)
		fmt.Printf("package size:   %d bytes\n", idx.PackageSize)
		fmt.Printf("launcher size:  %d bytes\n", idx.LauncherSize)
		fmt.Printf("slot count:     %d\n", idx.SlotCount)
		return true, 0

	case "verify":
		level := reader.ParseValidationLevel(os.Getenv("FLAVOR_VALIDATION"))
		if err := r.Verify(level); err != nil {
			fmt.Fprintln(os.Stderr, "verification failed:", err)
			return true, ExitVerificationFailed
		}
		fmt.Println("OK")
		return true, 0

	case "metadata":
		manifest, err := r.Metadata()
		if err != nil {
			fmt.Fprintln(os.Stderr, "reading metadata:", err)
			return true, ExitIOError
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(manifest); err != nil {
			fmt.Fprintln(os.Stderr, "encoding metadata:", err)
			return true, ExitIOError
		}
		return true, 0

	case "extract":
		manifest, err := r.Metadata()
		if err != nil {
			fmt.Fprintln(os.Stderr, "reading metadata:", err)
			return true, ExitIOError
		}
		idx, err := r.ReadIndex()
		if err != nil {
			fmt.Fprintln(os.Stderr, "reading index:", err)
			return true, ExitIOError
		}
		indexSum := sha256.Sum256(idx.Pack())
		checksum := hex.EncodeToString(indexSum[:])
		workenvRoot := resolveWorkenvRoot(manifest.Package.Name, manifest.Package.Version, checksum)
		if _, err := ensureExtracted(r, manifest, workenvRoot, checksum, logger); err != nil {
			fmt.Fprintln(os.Stderr, "extracting:", err)
			return true, ExitIOError
		}
		fmt.Println(workenvRoot)
		return true, 0

	case "run":
		// "run" re-enters the normal launch path, the CLI's "shell" escape
		// hatch into the package's own command.
		return true, Run(logger)

	default:
		fmt.Fprintf(os.Stderr, "unknown launcher subcommand %q (want info, verify, metadata, extract, run)\n", args[0])
		return true, ExitConfigFailed
	}
}
