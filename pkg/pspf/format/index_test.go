package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
)

func sampleIndex() *Index {
	return &Index{
		VersionMajor:    FormatVersionMajor,
		VersionMinor:    FormatVersionMinor,
		PackageSize:     123456,
		LauncherSize:    4096,
		MetadataOffset:  4096,
		MetadataSize:    512,
		SlotTableOffset: 4608,
		SlotCount:       3,
	}
}

func TestIndexPackUnpackRoundTrip(t *testing.T) {
	kp, err := EphemeralKeys()
	require.NoError(t, err)

	idx := sampleIndex()
	Sign(idx, kp)

	packed := idx.Pack()
	require.Len(t, packed, IndexSize)

	var unpacked Index
	require.NoError(t, unpacked.Unpack(packed))

	assert.Equal(t, idx.PackageSize, unpacked.PackageSize)
	assert.Equal(t, idx.LauncherSize, unpacked.LauncherSize)
	assert.Equal(t, idx.MetadataOffset, unpacked.MetadataOffset)
	assert.Equal(t, idx.MetadataSize, unpacked.MetadataSize)
	assert.Equal(t, idx.SlotTableOffset, unpacked.SlotTableOffset)
	assert.Equal(t, idx.SlotCount, unpacked.SlotCount)
	assert.Equal(t, idx.PublicKey, unpacked.PublicKey)
	assert.Equal(t, idx.Signature, unpacked.Signature)
}

func TestIndexVerifyCRCDetectsCorruption(t *testing.T) {
	kp, err := EphemeralKeys()
	require.NoError(t, err)
	idx := sampleIndex()
	Sign(idx, kp)

	packed := idx.Pack()
	var unpacked Index
	require.NoError(t, unpacked.Unpack(packed))
	require.NoError(t, unpacked.VerifyCRC(packed))

	corrupted := make([]byte, len(packed))
	copy(corrupted, packed)
	corrupted[20] ^= 0xFF // flip a byte inside package_size
	assert.Error(t, unpacked.VerifyCRC(corrupted))
}

func TestIndexVerifySignatureRoundTrip(t *testing.T) {
	kp, err := EphemeralKeys()
	require.NoError(t, err)
	idx := sampleIndex()
	Sign(idx, kp)

	packed := idx.Pack()
	var unpacked Index
	require.NoError(t, unpacked.Unpack(packed))
	assert.NoError(t, unpacked.VerifySignature(packed))
}

func TestIndexVerifySignatureRejectsWrongKey(t *testing.T) {
	kp, err := EphemeralKeys()
	require.NoError(t, err)
	idx := sampleIndex()
	Sign(idx, kp)
	packed := idx.Pack()

	other, err := EphemeralKeys()
	require.NoError(t, err)
	var unpacked Index
	require.NoError(t, unpacked.Unpack(packed))
	copy(unpacked.PublicKey[:], other.Public)
	assert.ErrorIs(t, unpacked.VerifySignature(packed), pspferrors.ErrSignatureInvalid)
}

func TestIndexVerifySignatureRejectsNonZeroPadding(t *testing.T) {
	kp, err := EphemeralKeys()
	require.NoError(t, err)
	idx := sampleIndex()
	Sign(idx, kp)
	packed := idx.Pack()

	packed[idxOffSignature+64] = 0x01 // first byte of the padding region

	var unpacked Index
	require.NoError(t, unpacked.Unpack(packed))
	assert.Error(t, unpacked.VerifySignature(packed))
}

func TestVerifyMagicBasics(t *testing.T) {
	kp, err := EphemeralKeys()
	require.NoError(t, err)
	idx := sampleIndex()
	Sign(idx, kp)
	packed := idx.Pack()

	trailer := append(append([]byte{}, packed...), PackageEmojiBytes...)
	trailer = append(trailer, MagicWandEmojiBytes...)
	assert.NoError(t, VerifyMagicBasics(trailer))

	trailer[IndexSize] ^= 0xFF
	assert.Error(t, VerifyMagicBasics(trailer))
}
