package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotDescriptorPackUnpackRoundTrip(t *testing.T) {
	ops, err := PackOperations([]Opcode{OpTar, OpGzip})
	require.NoError(t, err)

	d := &SlotDescriptor{
		ID:           2,
		Flags:        0,
		Offset:       4096,
		EncodedSize:  1024,
		OriginalSize: 2048,
		Checksum:     ChecksumEncoded([]byte("encoded payload")),
		Operations:   ops,
		Purpose:      PurposePayload,
		Lifecycle:    LifecycleCached,
		Permissions:  0o644,
	}

	packed := d.Pack()
	require.Len(t, packed, SlotDescriptorSize)

	got, err := UnpackSlotDescriptor(packed)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, d.Offset, got.Offset)
	assert.Equal(t, d.EncodedSize, got.EncodedSize)
	assert.Equal(t, d.OriginalSize, got.OriginalSize)
	assert.Equal(t, d.Checksum, got.Checksum)
	assert.Equal(t, d.Operations, got.Operations)
	assert.Equal(t, d.Purpose, got.Purpose)
	assert.Equal(t, d.Lifecycle, got.Lifecycle)
	assert.Equal(t, d.Permissions, got.Permissions)
}

func TestUnpackSlotDescriptorRejectsWrongSize(t *testing.T) {
	_, err := UnpackSlotDescriptor(make([]byte, SlotDescriptorSize-1))
	assert.Error(t, err)
}

func TestSlotDescriptorValidateOnReadRejectsNonZeroReserved(t *testing.T) {
	d := &SlotDescriptor{ID: 0}
	d.Reserved[2] = 0x01
	assert.Error(t, d.ValidateOnRead())
}

func TestSlotDescriptorValidateOnReadRejectsBadOpcode(t *testing.T) {
	d := &SlotDescriptor{ID: 0, Operations: uint64(0x7F)}
	assert.Error(t, d.ValidateOnRead())
}

func TestSlotDescriptorValidateOnReadAcceptsClean(t *testing.T) {
	ops, err := PackOperations([]Opcode{OpZstd})
	require.NoError(t, err)
	d := &SlotDescriptor{ID: 0, Operations: ops}
	assert.NoError(t, d.ValidateOnRead())
}

func TestChecksumEncodedIsDeterministic(t *testing.T) {
	a := ChecksumEncoded([]byte("some payload"))
	b := ChecksumEncoded([]byte("some payload"))
	c := ChecksumEncoded([]byte("different payload"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
