package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackOperationsRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		ops  []Opcode
	}{
		{"empty", nil},
		{"single", []Opcode{OpGzip}},
		{"tar then gzip", []Opcode{OpTar, OpGzip}},
		{"full chain", []Opcode{OpTar, OpGzip, OpBzip2, OpXZ, OpZstd, OpTar, OpGzip, OpXZ}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			packed, err := PackOperations(tc.ops)
			require.NoError(t, err)

			got, err := UnpackOperations(packed)
			require.NoError(t, err)
			if len(tc.ops) == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tc.ops, got)
			}
		})
	}
}

func TestPackOperationsRejectsTooLong(t *testing.T) {
	ops := make([]Opcode, MaxChainLength+1)
	for i := range ops {
		ops[i] = OpGzip
	}
	_, err := PackOperations(ops)
	assert.Error(t, err)
}

func TestPackOperationsRejectsUnknownOpcode(t *testing.T) {
	_, err := PackOperations([]Opcode{0x7F})
	assert.Error(t, err)
}

func TestUnpackOperationsRejectsUnknownOpcode(t *testing.T) {
	// byte 0 known (tar), byte 1 unknown -> reject even though it appears
	// mid-chain before a terminating zero.
	packed := uint64(OpTar) | uint64(0x7F)<<8
	_, err := UnpackOperations(packed)
	assert.Error(t, err)
}

func TestOperationsToStringCanonicalNames(t *testing.T) {
	testCases := []struct {
		ops  []Opcode
		want string
	}{
		{nil, "none"},
		{[]Opcode{OpTar, OpGzip}, "tar.gz"},
		{[]Opcode{OpTar, OpBzip2}, "tar.bz2"},
		{[]Opcode{OpTar, OpXZ}, "tar.xz"},
		{[]Opcode{OpTar, OpZstd}, "tar.zst"},
		{[]Opcode{OpGzip}, "gzip"},
	}

	for _, tc := range testCases {
		packed, err := PackOperations(tc.ops)
		require.NoError(t, err)
		got, err := OperationsToString(packed)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestStringToOperationsRoundTrip(t *testing.T) {
	for _, name := range []string{"none", "gzip", "tar.gz", "tgz", "tar.bz2", "tar.xz", "tar.zst"} {
		packed, err := StringToOperations(name)
		require.NoError(t, err)
		str, err := OperationsToString(packed)
		require.NoError(t, err)
		// tgz/tbz2/etc collapse onto their canonical long form, so only
		// compare by re-parsing rather than exact string equality.
		packed2, err := StringToOperations(str)
		require.NoError(t, err)
		assert.Equal(t, packed, packed2)
	}
}

func TestParseManifestOperationsAllForms(t *testing.T) {
	want, err := PackOperations([]Opcode{OpTar, OpGzip})
	require.NoError(t, err)

	testCases := []struct {
		name string
		raw  interface{}
	}{
		{"canonical string", "tar.gz"},
		{"pipe string", "tar|gzip"},
		{"float64 from JSON", float64(want)},
		{"array of names", []interface{}{"tar", "gzip"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseManifestOperations(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseManifestOperationsNil(t *testing.T) {
	got, err := ParseManifestOperations(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}

func TestParseManifestOperationsRejectsBadArrayElement(t *testing.T) {
	_, err := ParseManifestOperations([]interface{}{"tar", 5})
	assert.Error(t, err)
}

func TestParseManifestOperationsRejectsUnsupportedType(t *testing.T) {
	_, err := ParseManifestOperations(3.5 + 1i) // complex128, not handled
	assert.Error(t, err)
}
