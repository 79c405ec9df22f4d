package reader

import (
	"fmt"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
	"github.com/pspf/flavorpack/pkg/pspf/format"
	"github.com/pspf/flavorpack/pkg/pspf/operations"
)

// SlotDescriptor returns the table entry for slot i, validated per §4.3.
func (r *Reader) SlotDescriptor(i int) (*format.SlotDescriptor, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	if i < 0 || uint64(i) >= idx.SlotCount {
		return nil, fmt.Errorf("%w: %d (have %d slots)", pspferrors.ErrInvalidSlotIndex, i, idx.SlotCount)
	}
	if err := r.Open(); err != nil {
		return nil, err
	}
	offset := idx.SlotTableOffset + uint64(i)*format.SlotDescriptorSize
	raw := make([]byte, format.SlotDescriptorSize)
	if _, err := r.file.ReadAt(raw, int64(offset)); err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrReadFailed, err)
	}
	desc, err := format.UnpackSlotDescriptor(raw)
	if err != nil {
		return nil, err
	}
	if err := desc.ValidateOnRead(); err != nil {
		return nil, err
	}
	return desc, nil
}

// Slot reads slot i's encoded bytes at its recorded offset and verifies its
// checksum (§4.8: "slot(i) -> bytes"). It does not reverse the operation
// chain — use ExtractSlot for that.
func (r *Reader) Slot(i int) ([]byte, error) {
	desc, err := r.SlotDescriptor(i)
	if err != nil {
		return nil, err
	}
	encoded, err := r.readRegion(desc.Offset, desc.EncodedSize)
	if err != nil {
		return nil, err
	}
	if got := format.ChecksumEncoded(encoded); got != desc.Checksum {
		return nil, fmt.Errorf("%w: slot %d stored %016x, computed %016x", pspferrors.ErrChecksumMismatch, i, desc.Checksum, got)
	}
	return encoded, nil
}

// ExtractSlot reads slot i and reverses its operation chain, returning the
// original bytes (§4.8: "extract_slot(i) -> bytes").
func (r *Reader) ExtractSlot(i int) ([]byte, error) {
	desc, err := r.SlotDescriptor(i)
	if err != nil {
		return nil, err
	}
	encoded, err := r.Slot(i)
	if err != nil {
		return nil, err
	}
	ops, err := format.UnpackOperations(desc.Operations)
	if err != nil {
		return nil, err
	}
	original, err := operations.ReverseChain(encoded, ops)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %d: %v", pspferrors.ErrExtractionFailed, i, err)
	}
	if uint64(len(original)) != desc.OriginalSize {
		return nil, fmt.Errorf("%w: slot %d reversed to %d bytes, descriptor says %d", pspferrors.ErrExtractionFailed, i, len(original), desc.OriginalSize)
	}
	return original, nil
}

// VerifyAllChecksums re-derives every slot's checksum against its on-disk
// payload, the strongest of §4.4 check 6 (used at ValidationStrict).
func (r *Reader) VerifyAllChecksums() error {
	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}
	for i := 0; i < int(idx.SlotCount); i++ {
		if _, err := r.Slot(i); err != nil {
			return err
		}
	}
	return nil
}
