package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspf/flavorpack/pkg/pspf/format"
	"github.com/pspf/flavorpack/pkg/pspf/operations"
)

func TestParsePermissionsDefaultsWhenEmpty(t *testing.T) {
	got, err := parsePermissions("")
	require.NoError(t, err)
	assert.Equal(t, uint16(0o600), got)
}

func TestParsePermissionsAcceptsOctalForms(t *testing.T) {
	testCases := []struct {
		in   string
		want uint16
	}{
		{"755", 0o755},
		{"0755", 0o755},
		{"0o755", 0o755},
		{"600", 0o600},
	}
	for _, tc := range testCases {
		got, err := parsePermissions(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestParsePermissionsRejectsGarbage(t *testing.T) {
	_, err := parsePermissions("not-an-octal")
	assert.Error(t, err)
}

func TestResolvePlaceholdersExpandsWorkenv(t *testing.T) {
	got := resolvePlaceholders("{workenv}/payload.bin", "/build/stage")
	assert.Equal(t, "/build/stage/payload.bin", got)
}

func TestResolvePlaceholdersLeavesPlainPathsAlone(t *testing.T) {
	got := resolvePlaceholders("./payload.bin", "/build/stage")
	assert.Equal(t, "./payload.bin", got)
}

func TestProcessSlotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "payload.bin")
	content := []byte("slot payload content for the builder round trip test")
	require.NoError(t, os.WriteFile(source, content, 0o644))

	slot := format.ManifestSlot{
		Name:        "payload",
		Purpose:     "payload",
		Lifecycle:   "cached",
		Operations:  "gzip",
		Source:      source,
		Permissions: "644",
	}

	ps, err := processSlot(0, slot, dir, hclog.NewNullLogger())
	require.NoError(t, err)

	assert.Equal(t, uint32(0), ps.descriptor.ID)
	assert.Equal(t, uint64(len(content)), ps.descriptor.OriginalSize)
	assert.Equal(t, format.PurposePayload, ps.descriptor.Purpose)
	assert.Equal(t, format.LifecycleCached, ps.descriptor.Lifecycle)
	assert.Equal(t, uint16(0o644), ps.descriptor.Permissions)

	decoded, err := operations.ReverseChain(ps.encoded, []format.Opcode{format.OpGzip})
	require.NoError(t, err)
	assert.Equal(t, content, decoded)
}

func TestProcessSlotsAssignsSequentialIDs(t *testing.T) {
	dir := t.TempDir()
	var slots []format.ManifestSlot
	for i := 0; i < 3; i++ {
		src := filepath.Join(dir, "slot"+string(rune('a'+i))+".bin")
		require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))
		slots = append(slots, format.ManifestSlot{
			Name:      "slot",
			Purpose:   "data",
			Lifecycle: "cached",
			Source:    src,
		})
	}

	processed, err := processSlots(slots, dir, hclog.NewNullLogger())
	require.NoError(t, err)
	require.Len(t, processed, 3)
	for i, p := range processed {
		assert.Equal(t, uint32(i), p.descriptor.ID)
	}
}
