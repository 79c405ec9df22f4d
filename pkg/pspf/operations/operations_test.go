package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

func TestEachCodecRoundTrips(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated a bit: " +
		"the quick brown fox jumps over the lazy dog")

	testCases := []struct {
		name string
		op   format.Opcode
	}{
		{"none", format.OpNone},
		{"tar", format.OpTar},
		{"gzip", format.OpGzip},
		{"bzip2", format.OpBzip2},
		{"xz", format.OpXZ},
		{"zstd", format.OpZstd},
	}

	for _, tc := range testCases {
		op := tc.op
		t.Run(tc.name, func(t *testing.T) {
			c, err := Get(op)
			require.NoError(t, err)

			encoded, err := c.Apply(payload)
			require.NoError(t, err)

			decoded, err := c.Reverse(encoded)
			require.NoError(t, err)

			assert.Equal(t, payload, decoded)
		})
	}
}

func TestGetUnknownOpcode(t *testing.T) {
	_, err := Get(format.Opcode(0x7F))
	assert.Error(t, err)
}

func TestApplyChainAndReverseChainRoundTrip(t *testing.T) {
	payload := []byte("chained payload content for round trip testing")
	ops := []format.Opcode{format.OpTar, format.OpGzip}

	encoded, err := ApplyChain(payload, ops)
	require.NoError(t, err)
	assert.NotEqual(t, payload, encoded)

	decoded, err := ReverseChain(encoded, ops)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestApplyChainEmptyIsIdentity(t *testing.T) {
	payload := []byte("untouched")
	out, err := ApplyChain(payload, nil)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestApplyChainUnknownOpcodeFails(t *testing.T) {
	_, err := ApplyChain([]byte("x"), []format.Opcode{format.Opcode(0x7F)})
	assert.Error(t, err)
}

func TestReverseChainOrderMatters(t *testing.T) {
	// tar then gzip on the way in must reverse gzip then tar on the way out;
	// reversing in the wrong order must fail rather than silently succeed.
	payload := []byte("order sensitive content")
	ops := []format.Opcode{format.OpTar, format.OpGzip}

	encoded, err := ApplyChain(payload, ops)
	require.NoError(t, err)

	_, err = ReverseChain(encoded, []format.Opcode{format.OpGzip, format.OpTar})
	assert.Error(t, err)
}
