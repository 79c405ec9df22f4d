package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/pspf/flavorpack/pkg/logging"
	"github.com/pspf/flavorpack/pkg/pspf/builder"
)

const version = "2025.1.0"

var (
	manifestPath   string
	outputPath     string
	launcherBin    string
	privateKeyPath string
	publicKeyPath  string
	keySeed        string
	keyDir         string
	logLevel       string
	workenvBase    string
	minFreeMB      int64
	versionFlag    bool
	rootCmd        *cobra.Command
)

func builderTimestamp() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func init() {
	rootCmd = &cobra.Command{
		Use:   "pspf-builder",
		Short: "Build PSPF/2025 packages",
		Long:  "Assemble a launcher image, manifest metadata and slot payloads into a signed PSPF/2025 package.",
		Run:   runBuild,
	}

	rootCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "path to the package manifest (required)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path for the built package (required)")
	rootCmd.Flags().StringVar(&launcherBin, "launcher-bin", "", "path to the launcher executable image")
	rootCmd.Flags().StringVar(&privateKeyPath, "private-key", "", "path to an Ed25519 private key file")
	rootCmd.Flags().StringVar(&publicKeyPath, "public-key", "", "path to the matching public key file")
	rootCmd.Flags().StringVar(&keySeed, "key-seed", "", "deterministic key seed (\"env\" reads FLAVOR_KEY_SEED)")
	rootCmd.Flags().StringVar(&keyDir, "key-dir", "", "directory holding flavor-private.key/flavor-public.key")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.Flags().StringVar(&workenvBase, "workenv-base", "", "base directory for {workenv} resolution in slot sources")
	rootCmd.Flags().Int64Var(&minFreeMB, "min-free-mb", 0, "fail the build if fewer than this many MB are free at the output path")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "V", false, "print version information")

	if err := rootCmd.MarkFlagRequired("manifest"); err != nil {
		panic(err)
	}
	if err := rootCmd.MarkFlagRequired("output"); err != nil {
		panic(err)
	}
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		printVersion()
		os.Exit(0)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func printVersion() {
	fmt.Printf("pspf-builder %s\n", version)
	fmt.Printf("built: %s\n", builderTimestamp())
}

func runBuild(cmd *cobra.Command, args []string) {
	if versionFlag {
		printVersion()
		return
	}

	level := logLevel
	if level == "" {
		level = logging.GetBuilderLogLevel()
	}
	logger := logging.NewLogger("pspf-builder", level, nil)
	logger.Info("📦 pspf-builder starting", "version", version)

	opts := builder.Options{
		ManifestPath: manifestPath,
		OutputPath:   outputPath,
		LauncherBin:  launcherBin,
		WorkenvBase:  workenvBase,
		Keys: builder.KeySource{
			PrivateKeyPath: privateKeyPath,
			PublicKeyPath:  publicKeyPath,
			Seed:           keySeed,
			KeyDir:         keyDir,
		},
		MinFreeBytes: minFreeMB * 1024 * 1024,
	}

	if err := builder.Build(opts, logger); err != nil {
		logger.Error("build failed", "error", err)
		os.Exit(2)
	}
}
