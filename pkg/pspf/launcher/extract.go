package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
	"github.com/pspf/flavorpack/pkg/pspf/format"
	"github.com/pspf/flavorpack/pkg/pspf/operations"
	"github.com/pspf/flavorpack/pkg/pspf/reader"
	"github.com/pspf/flavorpack/pkg/utils/permissions"
)

// extractSlots decodes every slot into workenvRoot per its extract_to path
// and returns a slot-index -> absolute-path map for placeholder resolution.
// Volatile slots are tracked separately so the caller can remove them once
// extraction is done, before the child runs; cached and persistent slots stay. A cached slot whose
// destination already holds content re-encoding to the descriptor's stored
// checksum is left untouched rather than rewritten (§4.9).
func extractSlots(r *reader.Reader, manifest *format.Manifest, workenvRoot string, logger hclog.Logger) (map[int]string, []string, error) {
	paths := make(map[int]string, len(manifest.Slots))
	var volatile []string

	for i, slot := range manifest.Slots {
		dest := resolveExtractTo(slot.ExtractTo, workenvRoot)

		desc, err := r.SlotDescriptor(i)
		if err != nil {
			return nil, nil, err
		}

		if desc.Lifecycle == format.LifecycleCached && cachedSlotUpToDate(dest, desc) {
			logger.Debug("cached slot up to date, skipping re-extraction", "index", i, "name", slot.Name, "dest", dest)
			paths[i] = dest
			continue
		}

		original, err := r.ExtractSlot(i)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: slot %d (%s): %v", pspferrors.ErrExtractionFailed, i, slot.Name, err)
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, nil, fmt.Errorf("%w: creating %s: %v", pspferrors.ErrExtractionFailed, filepath.Dir(dest), err)
		}

		mode := os.FileMode(desc.Permissions)
		if mode == 0 {
			mode = permissions.DefaultFilePerms
		}

		if err := os.WriteFile(dest, original, mode); err != nil {
			return nil, nil, fmt.Errorf("%w: writing %s: %v", pspferrors.ErrExtractionFailed, dest, err)
		}

		logger.Debug("extracted slot", "index", i, "name", slot.Name, "dest", dest, "lifecycle", desc.Lifecycle)
		paths[i] = dest

		if desc.Lifecycle == format.LifecycleVolatile {
			volatile = append(volatile, dest)
		}
	}

	return paths, volatile, nil
}

// cachedSlotUpToDate reports whether dest already holds content that,
// re-encoded through the slot's own operation chain, reproduces the
// descriptor's stored checksum — the cheapest check that doesn't require
// trusting file size or mtime alone.
func cachedSlotUpToDate(dest string, desc *format.SlotDescriptor) bool {
	existing, err := os.ReadFile(dest)
	if err != nil {
		return false
	}
	opcodes, err := format.UnpackOperations(desc.Operations)
	if err != nil {
		return false
	}
	encoded, err := operations.ApplyChain(existing, opcodes)
	if err != nil {
		return false
	}
	return format.ChecksumEncoded(encoded) == desc.Checksum
}

// resolveExtractTo expands {workenv} in a slot's extract_to, defaulting to
// workenvRoot itself when the field is empty.
func resolveExtractTo(extractTo, workenvRoot string) string {
	if extractTo == "" {
		return workenvRoot
	}
	if strings.Contains(extractTo, "{workenv}") {
		return strings.ReplaceAll(extractTo, "{workenv}", workenvRoot)
	}
	if filepath.IsAbs(extractTo) {
		return extractTo
	}
	return filepath.Join(workenvRoot, extractTo)
}

// cleanupVolatileSlots removes the files extracted from volatile-lifecycle
// slots once extraction is done and before the child runs — these slots
// exist only to seed the workenv, not to be referenced by the command
// itself (§4.9's retention policy: cached and persistent slots outlive the
// run, volatile ones don't even make it that far).
func cleanupVolatileSlots(paths []string, logger hclog.Logger) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Debug("failed to clean up volatile slot", "path", p, "error", err)
		}
	}
}
