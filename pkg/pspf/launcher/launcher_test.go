package launcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

func TestSplitShellCommandLeavesExplicitArgsAlone(t *testing.T) {
	cmd, args, err := splitShellCommand("python3 -m app", []string{"--flag"})
	require.NoError(t, err)
	assert.Equal(t, "python3 -m app", cmd)
	assert.Equal(t, []string{"--flag"}, args)
}

func TestSplitShellCommandLeavesSingleWordAlone(t *testing.T) {
	cmd, args, err := splitShellCommand("/usr/bin/app", nil)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/app", cmd)
	assert.Empty(t, args)
}

func TestSplitShellCommandSplitsShellString(t *testing.T) {
	cmd, args, err := splitShellCommand(`python3 -c 'print(1)'`, nil)
	require.NoError(t, err)
	assert.Equal(t, "python3", cmd)
	assert.Equal(t, []string{"-c", "print(1)"}, args)
}

func TestSplitShellCommandRejectsUnclosedQuote(t *testing.T) {
	_, _, err := splitShellCommand(`python3 -c 'unterminated`, nil)
	assert.Error(t, err)
}

func TestResolveWorkenvRootHonorsFlavorWorkdirOverride(t *testing.T) {
	t.Setenv("FLAVOR_WORKDIR", "/explicit/override")
	got := resolveWorkenvRoot("demo", "1.0.0", "deadbeef")
	assert.Equal(t, "/explicit/override", got)
}

func TestEssentialDirsOfSkipsVolatileSlots(t *testing.T) {
	manifest := &format.Manifest{
		Slots: []format.ManifestSlot{
			{Name: "a", Lifecycle: "cached", ExtractTo: "{workenv}/bin/a"},
			{Name: "b", Lifecycle: "volatile", ExtractTo: "{workenv}/tmp/b"},
			{Name: "c", Lifecycle: "persistent", ExtractTo: "{workenv}/data/c"},
		},
	}

	dirs := essentialDirsOf(manifest, "/var/cache/pkg")
	assert.Contains(t, dirs, "bin")
	assert.Contains(t, dirs, "data")
	assert.NotContains(t, dirs, "tmp")
}

func TestSlotPathsFromManifestExpandsWorkenv(t *testing.T) {
	manifest := &format.Manifest{
		Slots: []format.ManifestSlot{
			{Name: "a", ExtractTo: "{workenv}/bin/a"},
			{Name: "b", ExtractTo: ""},
		},
	}

	paths := slotPathsFromManifest(manifest, "/var/cache/pkg")
	assert.Equal(t, "/var/cache/pkg/bin/a", paths[0])
	assert.Equal(t, "/var/cache/pkg", paths[1])
}
