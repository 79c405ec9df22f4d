package builder

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/pspf/flavorpack/pkg/pspf/format"
	"github.com/pspf/flavorpack/pkg/pspf/operations"
	"github.com/pspf/flavorpack/pkg/utils/permissions"
)

// processedSlot holds one slot's on-disk payload plus its not-yet-offset
// descriptor, produced from a manifest slot entry before the payload's
// final position in the package is known.
type processedSlot struct {
	descriptor format.SlotDescriptor
	encoded    []byte
}

// processSlots reads every manifest slot's source file, runs its operation
// chain and computes its checksum, returning descriptors in manifest order.
// Offsets are left zero; the caller fills them in once final placement is
// known (§4.7's assembly order writes slot data before the slot table).
func processSlots(slots []format.ManifestSlot, baseDir string, logger hclog.Logger) ([]processedSlot, error) {
	out := make([]processedSlot, 0, len(slots))
	for i, slot := range slots {
		ps, err := processSlot(i, slot, baseDir, logger)
		if err != nil {
			return nil, fmt.Errorf("slot %d (%s): %w", i, slot.Name, err)
		}
		out = append(out, ps)
	}
	return out, nil
}

func processSlot(index int, slot format.ManifestSlot, baseDir string, logger hclog.Logger) (processedSlot, error) {
	purpose, err := format.ParsePurpose(slot.Purpose)
	if err != nil {
		return processedSlot{}, err
	}
	lifecycle, err := format.ParseLifecycle(slot.Lifecycle)
	if err != nil {
		return processedSlot{}, err
	}
	ops, err := format.ParseManifestOperations(slot.Operations)
	if err != nil {
		return processedSlot{}, err
	}
	perms, err := parsePermissions(slot.Permissions)
	if err != nil {
		return processedSlot{}, err
	}

	sourcePath := resolvePlaceholders(slot.Source, baseDir)
	logger.Debug("reading slot source", "index", index, "name", slot.Name, "source", sourcePath)

	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return processedSlot{}, fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	opcodes, err := format.UnpackOperations(ops)
	if err != nil {
		return processedSlot{}, err
	}
	encoded, err := operations.ApplyChain(raw, opcodes)
	if err != nil {
		return processedSlot{}, fmt.Errorf("encoding: %w", err)
	}

	desc := format.SlotDescriptor{
		ID:           uint32(index),
		EncodedSize:  uint64(len(encoded)),
		OriginalSize: uint64(len(raw)),
		Checksum:     format.ChecksumEncoded(encoded),
		Operations:   ops,
		Purpose:      purpose,
		Lifecycle:    lifecycle,
		Permissions:  perms,
	}

	logger.Debug("slot processed", "index", index, "name", slot.Name,
		"original_size", len(raw), "encoded_size", len(encoded))

	return processedSlot{descriptor: desc, encoded: encoded}, nil
}

// resolvePlaceholders substitutes {workenv} in a builder-time source path
// with baseDir (falling back to the working directory), mirroring the
// launcher's own placeholder engine for the one substitution that makes
// sense at build time.
func resolvePlaceholders(path, baseDir string) string {
	if !strings.Contains(path, "{workenv}") {
		return path
	}
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return strings.ReplaceAll(path, "{workenv}", baseDir)
}

// parsePermissions defers to pkg/utils/permissions for the "755"/"0755"/
// "0o755" octal forms and for the owner-only default (§6.1: "default
// 0600/0700") when a manifest slot omits permissions entirely.
func parsePermissions(permStr string) (uint16, error) {
	if permStr == "" {
		return permissions.DefaultFilePerms, nil
	}
	return permissions.ParseOctalString(permStr)
}
