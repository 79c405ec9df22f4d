// Package builder implements the PSPF builder (C7): assembles a launcher
// image, gzipped metadata, slot payloads, slot table and signed index block
// into one executable package (§4.7).
package builder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/pspf/flavorpack/pkg/pspf/errors"
	"github.com/pspf/flavorpack/pkg/pspf/format"
)

// KeySource selects how the builder obtains its Ed25519 signing key,
// evaluated in this order per §4.6's resolved precedence.
type KeySource struct {
	PrivateKeyPath string // explicit key file, highest priority
	PublicKeyPath  string
	Seed           string // deterministic seed, or "env" to read FLAVOR_KEY_SEED
	KeyDir         string // directory holding flavor-private.key/flavor-public.key
}

// Options configures one build.
type Options struct {
	ManifestPath string
	OutputPath   string
	LauncherBin  string // path to the launcher executable image; falls back to FLAVOR_LAUNCHER_BIN
	WorkenvBase  string // base directory for {workenv} substitution in slot sources
	Keys         KeySource
	MinFreeBytes int64 // pre-flight disk-space floor; 0 disables the check
}

// resolveKeys implements §4.6's precedence: explicit key files, then a
// seed (deterministic across builds), then a key directory, then ephemeral
// random keys as the last resort.
func resolveKeys(ks KeySource, logger hclog.Logger) (*format.KeyPair, error) {
	if ks.PrivateKeyPath != "" {
		logger.Debug("loading explicit key files", "private", ks.PrivateKeyPath)
		return format.LoadKeysFromDir(filepath.Dir(ks.PrivateKeyPath))
	}
	if ks.Seed != "" {
		seed := ks.Seed
		if seed == "env" {
			seed = os.Getenv("FLAVOR_KEY_SEED")
			if seed == "" {
				return nil, fmt.Errorf("%w: FLAVOR_KEY_SEED not set", errors.ErrNoKeyMaterial)
			}
		}
		logger.Debug("deriving keys from seed")
		return format.KeysFromSeed(seed), nil
	}
	if ks.KeyDir != "" {
		logger.Debug("loading keys from directory", "dir", ks.KeyDir)
		return format.LoadKeysFromDir(ks.KeyDir)
	}
	logger.Debug("generating ephemeral keys")
	return format.EphemeralKeys()
}

func resolveLauncherPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if p := os.Getenv("FLAVOR_LAUNCHER_BIN"); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("launcher binary path must be given via --launcher-bin or FLAVOR_LAUNCHER_BIN")
}

// Build runs the full assembly pipeline and writes an executable package to
// opts.OutputPath. It never runs the Go toolchain; the launcher image is
// supplied as a prebuilt binary.
func Build(opts Options, logger hclog.Logger) (err error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	manifestData, err := os.ReadFile(opts.ManifestPath)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	manifest, err := format.ParseManifest(manifestData)
	if err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}

	launcherPath, err := resolveLauncherPath(opts.LauncherBin)
	if err != nil {
		return err
	}
	launcherData, err := os.ReadFile(launcherPath)
	if err != nil {
		return fmt.Errorf("reading launcher %s: %w", launcherPath, err)
	}
	logger.Info("loaded launcher image", "path", launcherPath, "size", len(launcherData))
	if v := launcherVersion(launcherPath, logger); v != "" {
		logger.Debug("launcher version", "version", v)
	}

	if opts.MinFreeBytes > 0 {
		if err := checkDiskSpace(filepath.Dir(opts.OutputPath), opts.MinFreeBytes); err != nil {
			return err
		}
	}

	keys, err := resolveKeys(opts.Keys, logger)
	if err != nil {
		return fmt.Errorf("resolving signing keys: %w", err)
	}

	workenvBase := opts.WorkenvBase
	if workenvBase == "" {
		workenvBase = os.Getenv("FLAVOR_WORKENV_BASE")
	}
	processed, err := processSlots(manifest.Slots, workenvBase, logger)
	if err != nil {
		return fmt.Errorf("processing slots: %w", err)
	}

	if manifest.Build.Timestamp == "" {
		manifest.Build.Timestamp = buildTimestamp()
	}
	manifest.Build.Builder = "pspf-builder"

	outDir := filepath.Dir(opts.OutputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", outDir, err)
	}

	out, err := os.OpenFile(opts.OutputPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	// A build that fails or is cancelled partway through assembly must not
	// leave a truncated package file behind (§5). Registered before the
	// close defer so it runs after the file is closed, not before (Windows
	// rejects removing a still-open file).
	defer func() {
		if err != nil {
			os.Remove(opts.OutputPath)
		}
	}()
	defer out.Close()

	if _, err := out.Write(launcherData); err != nil {
		return fmt.Errorf("writing launcher: %w", err)
	}
	launcherSize := int64(len(launcherData))

	metadataOffset := launcherSize
	metadataGzip, err := format.EncodeMetadata(manifest)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if _, err := out.Write(metadataGzip); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	metadataSize := int64(len(metadataGzip))

	slotTableOffset := metadataOffset + metadataSize
	slotTableSize := int64(len(processed)) * format.SlotDescriptorSize
	if _, err := out.Seek(slotTableOffset+slotTableSize, 0); err != nil {
		return fmt.Errorf("seeking past slot table: %w", err)
	}

	for i := range processed {
		if len(processed[i].encoded) == 0 {
			continue
		}
		pos, err := out.Seek(0, 1)
		if err != nil {
			return fmt.Errorf("seeking for slot %d: %w", i, err)
		}
		processed[i].descriptor.Offset = uint64(pos)
		if _, err := out.Write(processed[i].encoded); err != nil {
			return fmt.Errorf("writing slot %d payload: %w", i, err)
		}
	}

	endOfSlots, err := out.Seek(0, 1)
	if err != nil {
		return fmt.Errorf("seeking to end of slots: %w", err)
	}
	if _, err := out.Seek(slotTableOffset, 0); err != nil {
		return fmt.Errorf("seeking to slot table: %w", err)
	}
	for i := range processed {
		if _, err := out.Write(processed[i].descriptor.Pack()); err != nil {
			return fmt.Errorf("writing slot descriptor %d: %w", i, err)
		}
	}
	if _, err := out.Seek(endOfSlots, 0); err != nil {
		return fmt.Errorf("seeking back to end: %w", err)
	}

	packageSize := endOfSlots + format.MagicTrailerSize
	idx := &format.Index{
		VersionMajor:    format.FormatVersionMajor,
		VersionMinor:    format.FormatVersionMinor,
		PackageSize:     uint64(packageSize),
		LauncherSize:    uint64(launcherSize),
		MetadataOffset:  uint64(metadataOffset),
		MetadataSize:    uint64(metadataSize),
		SlotTableOffset: uint64(slotTableOffset),
		SlotCount:       uint64(len(processed)),
	}
	format.Sign(idx, keys)

	if _, err := out.Write(idx.Pack()); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	if _, err := out.Write(format.PackageEmojiBytes); err != nil {
		return fmt.Errorf("writing package emoji: %w", err)
	}
	if _, err := out.Write(format.MagicWandEmojiBytes); err != nil {
		return fmt.Errorf("writing magic wand emoji: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	if err := os.Chmod(opts.OutputPath, 0o755); err != nil {
		return fmt.Errorf("setting executable bit: %w", err)
	}

	logger.Info("package built",
		"output", opts.OutputPath,
		"package", manifest.Package.Name,
		"version", manifest.Package.Version,
		"slots", len(processed),
		"size_bytes", packageSize)

	if runtime.GOOS == "windows" && isGoLauncherPE(launcherData) {
		logger.Info("converting append-mode package to PE resource embedding")
		if err := convertToResourceEmbedding(opts.OutputPath, launcherSize, logger); err != nil {
			return fmt.Errorf("embedding as PE resource: %w", err)
		}
	}

	return nil
}

// convertToResourceEmbedding re-homes everything after the launcher image
// into a PE resource, since Windows Go executables built by this format's
// launcher reject an appended trailer the way a Unix binary tolerates one.
func convertToResourceEmbedding(filePath string, launcherSize int64, logger hclog.Logger) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading built package: %w", err)
	}
	if int64(len(data)) <= launcherSize {
		return fmt.Errorf("package is not larger than its launcher (%d <= %d)", len(data), launcherSize)
	}
	pkgData := data[launcherSize:]

	tmpPath := fmt.Sprintf("%s.tmp.%d", filePath, os.Getpid())
	if err := os.WriteFile(tmpPath, data[:launcherSize], 0o755); err != nil {
		return fmt.Errorf("writing launcher-only temp file: %w", err)
	}
	if err := embedAsPEResource(tmpPath, pkgData, logger); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := atomicReplace(tmpPath, filePath, logger); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func checkDiskSpace(dir string, minFree int64) error {
	free, err := availableDiskSpace(dir)
	if err != nil {
		return fmt.Errorf("checking free disk space at %s: %w", dir, err)
	}
	if free < minFree {
		return fmt.Errorf("%w: %d bytes free at %s, need %d", errors.ErrInsufficientSpace, free, dir, minFree)
	}
	return nil
}

// buildTimestamp resolves SOURCE_DATE_EPOCH into the metadata's build
// timestamp. Per §4.7, the builder MUST NOT embed wall-clock time when
// the manifest omits one and no reproducible-build epoch is given —
// doing so would make identical inputs produce different package bytes.
// Absent or unparseable, the timestamp field is simply left empty.
func buildTimestamp() string {
	epoch := os.Getenv("SOURCE_DATE_EPOCH")
	if epoch == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, epoch); err == nil {
		return t.UTC().Format(time.RFC3339)
	}
	return ""
}

// launcherVersion shells out to launcherPath --version, purely for the
// builder's diagnostic log line; a failure here is never fatal to the build.
func launcherVersion(launcherPath string, logger hclog.Logger) string {
	cmd := exec.Command(launcherPath, "--version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.Debug("could not query launcher version", "error", err)
		return ""
	}
	return strings.TrimSpace(string(output))
}
