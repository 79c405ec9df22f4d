package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspf/flavorpack/pkg/pspf/format"
	"github.com/pspf/flavorpack/pkg/pspf/operations"
)

func TestResolveExtractToWorkenvPlaceholder(t *testing.T) {
	assert.Equal(t, "/var/cache/pkg/bin/app", resolveExtractTo("{workenv}/bin/app", "/var/cache/pkg"))
}

func TestResolveExtractToEmptyDefaultsToWorkenvRoot(t *testing.T) {
	assert.Equal(t, "/var/cache/pkg", resolveExtractTo("", "/var/cache/pkg"))
}

func TestResolveExtractToAbsolutePathPassesThrough(t *testing.T) {
	assert.Equal(t, "/opt/elsewhere/app", resolveExtractTo("/opt/elsewhere/app", "/var/cache/pkg"))
}

func TestResolveExtractToRelativeJoinsWorkenv(t *testing.T) {
	assert.Equal(t, filepath.Join("/var/cache/pkg", "app"), resolveExtractTo("app", "/var/cache/pkg"))
}

func TestCachedSlotUpToDateMatchesStoredChecksum(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "payload.bin")
	original := []byte("payload content that gets gzip-encoded for the checksum")

	encoded, err := operations.ApplyChain(original, []format.Opcode{format.OpGzip})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(dest, original, 0o644))

	ops, err := format.PackOperations([]format.Opcode{format.OpGzip})
	require.NoError(t, err)
	desc := &format.SlotDescriptor{
		Operations: ops,
		Checksum:   format.ChecksumEncoded(encoded),
	}

	assert.True(t, cachedSlotUpToDate(dest, desc))
}

func TestCachedSlotUpToDateDetectsStaleContent(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "payload.bin")
	require.NoError(t, os.WriteFile(dest, []byte("stale content"), 0o644))

	ops, err := format.PackOperations([]format.Opcode{format.OpGzip})
	require.NoError(t, err)
	desc := &format.SlotDescriptor{
		Operations: ops,
		Checksum:   format.ChecksumEncoded([]byte("totally different encoded bytes")),
	}

	assert.False(t, cachedSlotUpToDate(dest, desc))
}

func TestCachedSlotUpToDateMissingFileIsNotUpToDate(t *testing.T) {
	desc := &format.SlotDescriptor{}
	assert.False(t, cachedSlotUpToDate("/nonexistent/path", desc))
}
