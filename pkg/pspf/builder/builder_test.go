package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspf/flavorpack/pkg/pspf/reader"
)

func writeFixtureManifest(t *testing.T, dir string) string {
	t.Helper()
	payloadPath := filepath.Join(dir, "greeting.txt")
	require.NoError(t, os.WriteFile(payloadPath, []byte("hello\n"), 0o644))

	manifestJSON := `{
	  "format_version": "2025.1",
	  "package": {"name": "greeter", "version": "1.0.0"},
	  "build": {"builder": "pspf-builder", "deterministic": true},
	  "slots": [
	    {"name": "greeting", "purpose": "payload", "lifecycle": "cached",
	     "operations": "tar.gz", "source": "` + payloadPath + `",
	     "extract_to": "{workenv}/greeting.txt"}
	  ],
	  "execution": {"command": "/bin/cat", "args": ["{workenv}/greeting.txt"]}
	}`
	manifestPath := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestJSON), 0o644))
	return manifestPath
}

func TestBuildProducesReadablePackage(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeFixtureManifest(t, dir)

	launcherPath := filepath.Join(dir, "launcher")
	require.NoError(t, os.WriteFile(launcherPath, []byte("fake launcher bytes, not a real executable"), 0o755))

	outputPath := filepath.Join(dir, "out", "greeter.bin")

	opts := Options{
		ManifestPath: manifestPath,
		OutputPath:   outputPath,
		LauncherBin:  launcherPath,
		Keys:         KeySource{Seed: "test-seed"},
	}
	require.NoError(t, Build(opts, hclog.NewNullLogger()))

	r := reader.New(outputPath, hclog.NewNullLogger())
	defer r.Close()

	require.NoError(t, r.Verify(reader.ValidationStandard))

	manifest, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "greeter", manifest.Package.Name)
	require.Len(t, manifest.Slots, 1)

	original, err := r.ExtractSlot(0)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(original))

	desc, err := r.SlotDescriptor(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0o600), desc.Permissions, "slot omitting permissions must default to owner-only 0600")
}

func TestBuildIsDeterministicForSameSeed(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeFixtureManifest(t, dir)

	launcherPath := filepath.Join(dir, "launcher")
	require.NoError(t, os.WriteFile(launcherPath, []byte("fake launcher bytes"), 0o755))

	t.Setenv("SOURCE_DATE_EPOCH", "2026-01-01T00:00:00Z")

	out1 := filepath.Join(dir, "out1.bin")
	out2 := filepath.Join(dir, "out2.bin")

	opts1 := Options{ManifestPath: manifestPath, OutputPath: out1, LauncherBin: launcherPath, Keys: KeySource{Seed: "deterministic-seed"}}
	opts2 := Options{ManifestPath: manifestPath, OutputPath: out2, LauncherBin: launcherPath, Keys: KeySource{Seed: "deterministic-seed"}}

	require.NoError(t, Build(opts1, hclog.NewNullLogger()))
	require.NoError(t, Build(opts2, hclog.NewNullLogger()))

	data1, err := os.ReadFile(out1)
	require.NoError(t, err)
	data2, err := os.ReadFile(out2)
	require.NoError(t, err)
	assert.Equal(t, data1, data2)
}

func TestBuildLeavesNoOutputFileOnFailure(t *testing.T) {
	dir := t.TempDir()

	// A slot with no purpose (and a source that doesn't exist) fails
	// processSlots; nothing at outputPath should exist afterward either way
	// (whether the failure lands before or after the output file is created).
	badManifest := filepath.Join(dir, "bad-manifest.json")
	badJSON := `{
	  "package": {"name": "broken", "version": "1.0.0"},
	  "slots": [{"name": "x", "source": "` + filepath.Join(dir, "does-not-exist.bin") + `"}],
	  "execution": {"command": "/bin/true"}
	}`
	require.NoError(t, os.WriteFile(badManifest, []byte(badJSON), 0o644))

	launcherPath := filepath.Join(dir, "launcher")
	require.NoError(t, os.WriteFile(launcherPath, []byte("fake launcher"), 0o755))

	outputPath := filepath.Join(dir, "broken.bin")
	opts := Options{ManifestPath: badManifest, OutputPath: outputPath, LauncherBin: launcherPath, Keys: KeySource{Seed: "x"}}

	err := Build(opts, hclog.NewNullLogger())
	require.Error(t, err)

	_, statErr := os.Stat(outputPath)
	assert.True(t, os.IsNotExist(statErr), "partial output file should have been removed")
}

func TestResolveKeysPrecedenceSeed(t *testing.T) {
	kp, err := resolveKeys(KeySource{Seed: "same-seed"}, hclog.NewNullLogger())
	require.NoError(t, err)
	kp2, err := resolveKeys(KeySource{Seed: "same-seed"}, hclog.NewNullLogger())
	require.NoError(t, err)
	assert.Equal(t, kp.Public, kp2.Public)
}
