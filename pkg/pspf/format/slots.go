package format

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
)

// SlotDescriptor is the 64-byte fixed record describing one slot's location,
// size and codec chain. Integers are little-endian; the reserved bytes must
// be zero.
type SlotDescriptor struct {
	ID            uint32
	Flags         uint32
	Offset        uint64
	EncodedSize   uint64
	OriginalSize  uint64
	Checksum      uint64 // first 8 bytes of SHA-256 over the encoded payload
	Operations    uint64 // packed operation chain, see chain.go
	Purpose       Purpose
	Lifecycle     Lifecycle
	Permissions   uint16
	Reserved      [6]byte
}

// Pack serialises the descriptor to a SlotDescriptorSize-byte buffer.
func (d *SlotDescriptor) Pack() []byte {
	buf := make([]byte, SlotDescriptorSize)
	binary.LittleEndian.PutUint32(buf[0:4], d.ID)
	binary.LittleEndian.PutUint32(buf[4:8], d.Flags)
	binary.LittleEndian.PutUint64(buf[8:16], d.Offset)
	binary.LittleEndian.PutUint64(buf[16:24], d.EncodedSize)
	binary.LittleEndian.PutUint64(buf[24:32], d.OriginalSize)
	binary.LittleEndian.PutUint64(buf[32:40], d.Checksum)
	binary.LittleEndian.PutUint64(buf[40:48], d.Operations)
	binary.LittleEndian.PutUint32(buf[48:52], uint32(d.Purpose))
	binary.LittleEndian.PutUint32(buf[52:56], uint32(d.Lifecycle))
	binary.LittleEndian.PutUint16(buf[56:58], d.Permissions)
	copy(buf[58:64], d.Reserved[:])
	return buf
}

// UnpackSlotDescriptor deserialises one descriptor from a SlotDescriptorSize
// byte slice. Reserved bytes are not validated here; ValidateOnRead does that.
func UnpackSlotDescriptor(data []byte) (*SlotDescriptor, error) {
	if len(data) != SlotDescriptorSize {
		return nil, fmt.Errorf("%w: slot descriptor is %d bytes, want %d", pspferrors.ErrMalformedIndex, len(data), SlotDescriptorSize)
	}
	d := &SlotDescriptor{
		ID:           binary.LittleEndian.Uint32(data[0:4]),
		Flags:        binary.LittleEndian.Uint32(data[4:8]),
		Offset:       binary.LittleEndian.Uint64(data[8:16]),
		EncodedSize:  binary.LittleEndian.Uint64(data[16:24]),
		OriginalSize: binary.LittleEndian.Uint64(data[24:32]),
		Checksum:     binary.LittleEndian.Uint64(data[32:40]),
		Operations:   binary.LittleEndian.Uint64(data[40:48]),
		Purpose:      Purpose(binary.LittleEndian.Uint32(data[48:52])),
		Lifecycle:    Lifecycle(binary.LittleEndian.Uint32(data[52:56])),
		Permissions:  binary.LittleEndian.Uint16(data[56:58]),
	}
	copy(d.Reserved[:], data[58:64])
	return d, nil
}

// ValidateOnRead enforces the §4.3 read-time checks that don't require the
// file itself: reserved bytes zero and operations opcodes recognised. The
// offset/size-within-file and checksum checks happen in the reader, which
// has the file in hand.
func (d *SlotDescriptor) ValidateOnRead() error {
	for _, b := range d.Reserved {
		if b != 0 {
			return fmt.Errorf("%w: slot %d reserved bytes", pspferrors.ErrNonZeroReservedArea, d.ID)
		}
	}
	if _, err := UnpackOperations(d.Operations); err != nil {
		return fmt.Errorf("slot %d: %w", d.ID, err)
	}
	return nil
}

// ChecksumEncoded computes the first-8-bytes-of-SHA-256 checksum over
// encoded slot payload bytes, matching the Checksum descriptor field.
func ChecksumEncoded(encoded []byte) uint64 {
	sum := sha256.Sum256(encoded)
	return binary.LittleEndian.Uint64(sum[:8])
}
