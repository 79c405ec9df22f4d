package format

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
)

// Index is the 8192-byte fixed structure living at file_size-8200. It
// carries every offset and size a reader needs to locate the rest of the
// package, plus the Ed25519 public key and signature that seal it.
type Index struct {
	VersionMajor uint8
	VersionMinor uint8

	PackageSize     uint64
	LauncherSize    uint64
	MetadataOffset  uint64
	MetadataSize    uint64
	SlotTableOffset uint64
	SlotCount       uint64

	PublicKey [32]byte
	Signature [64]byte // meaningful bytes; padded to idxSignatureRegionSize on disk
}

// Pack serialises the index to an IndexSize-byte buffer with index_crc32
// computed and the signature written at its offset. Signing uses
// PackUnsigned for the zeroed-signature view (see Sign), which stores the
// signature in idx.Signature before Pack is called.
func (idx *Index) Pack() []byte {
	buf := make([]byte, IndexSize)
	idx.packFixedFields(buf)
	copy(buf[idxOffSignature:idxOffSignature+64], idx.Signature[:])
	binary.LittleEndian.PutUint32(buf[idxOffCRC32:idxOffCRC32+4], idx.computeCRC(buf))
	return buf
}

// PackUnsigned returns the index serialised with the signature region
// zeroed and index_crc32 left at zero — the exact byte view that gets
// signed and over which the CRC is later computed.
func (idx *Index) PackUnsigned() []byte {
	buf := make([]byte, IndexSize)
	idx.packFixedFields(buf)
	return buf
}

func (idx *Index) packFixedFields(buf []byte) {
	copy(buf[idxOffMagic:idxOffMagic+8], FormatMagic)
	buf[idxOffVersionMajor] = idx.VersionMajor
	buf[idxOffVersionMinor] = idx.VersionMinor
	binary.LittleEndian.PutUint64(buf[idxOffPackageSize:idxOffPackageSize+8], idx.PackageSize)
	binary.LittleEndian.PutUint64(buf[idxOffLauncherSize:idxOffLauncherSize+8], idx.LauncherSize)
	binary.LittleEndian.PutUint64(buf[idxOffMetadataOffset:idxOffMetadataOffset+8], idx.MetadataOffset)
	binary.LittleEndian.PutUint64(buf[idxOffMetadataSize:idxOffMetadataSize+8], idx.MetadataSize)
	binary.LittleEndian.PutUint64(buf[idxOffSlotTableOffset:idxOffSlotTableOffset+8], idx.SlotTableOffset)
	binary.LittleEndian.PutUint64(buf[idxOffSlotCount:idxOffSlotCount+8], idx.SlotCount)
	copy(buf[idxOffPublicKey:idxOffPublicKey+32], idx.PublicKey[:])
	// buf[idxOffSignature:idxOffReserved] (512 bytes) and buf[idxOffReserved:IndexSize]
	// are left zero; the signature, if any, is layered in by the caller.
}

// computeCRC returns the CRC32 (IEEE) over buf[14:IndexSize] with the
// signature region zeroed, regardless of what buf currently holds there.
func (idx *Index) computeCRC(buf []byte) uint32 {
	view := make([]byte, len(buf))
	copy(view, buf)
	for i := idxOffSignature; i < idxOffSignature+idxSignatureRegionSize; i++ {
		view[i] = 0
	}
	return crc32.ChecksumIEEE(view[14:IndexSize])
}

// Unpack deserialises an Index from an IndexSize-byte buffer. It does not
// verify the CRC or signature; callers run Verify separately so that a
// partially-trusted index can still be inspected (e.g. by `info`).
func (idx *Index) Unpack(data []byte) error {
	if len(data) != IndexSize {
		return fmt.Errorf("%w: index is %d bytes, want %d", pspferrors.ErrMalformedIndex, len(data), IndexSize)
	}
	if string(data[idxOffMagic:idxOffMagic+8]) != FormatMagic {
		return fmt.Errorf("%w: missing %q at offset 0", pspferrors.ErrInvalidMagic, FormatMagic)
	}

	idx.VersionMajor = data[idxOffVersionMajor]
	idx.VersionMinor = data[idxOffVersionMinor]
	idx.PackageSize = binary.LittleEndian.Uint64(data[idxOffPackageSize : idxOffPackageSize+8])
	idx.LauncherSize = binary.LittleEndian.Uint64(data[idxOffLauncherSize : idxOffLauncherSize+8])
	idx.MetadataOffset = binary.LittleEndian.Uint64(data[idxOffMetadataOffset : idxOffMetadataOffset+8])
	idx.MetadataSize = binary.LittleEndian.Uint64(data[idxOffMetadataSize : idxOffMetadataSize+8])
	idx.SlotTableOffset = binary.LittleEndian.Uint64(data[idxOffSlotTableOffset : idxOffSlotTableOffset+8])
	idx.SlotCount = binary.LittleEndian.Uint64(data[idxOffSlotCount : idxOffSlotCount+8])
	copy(idx.PublicKey[:], data[idxOffPublicKey:idxOffPublicKey+32])
	copy(idx.Signature[:], data[idxOffSignature:idxOffSignature+64])

	return nil
}

// VerifyCRC recomputes index_crc32 over data (as read from disk) and
// compares it against the stored value.
func (idx *Index) VerifyCRC(data []byte) error {
	stored := binary.LittleEndian.Uint32(data[idxOffCRC32 : idxOffCRC32+4])
	got := idx.computeCRC(data)
	if got != stored {
		return fmt.Errorf("%w: stored %08x, computed %08x", pspferrors.ErrCRCMismatch, stored, got)
	}
	return nil
}

// VerifySignature checks the Ed25519 signature in data against idx.PublicKey
// over the index block with the signature region zeroed, and rejects a
// non-zero trailing padding region per the resolved policy in SPEC_FULL.md §4.4.
func (idx *Index) VerifySignature(data []byte) error {
	if len(idx.PublicKey) != ed25519.PublicKeySize {
		return pspferrors.ErrMissingIntegritySeal
	}
	padding := data[idxOffSignature+64 : idxOffSignature+idxSignatureRegionSize]
	if !bytes.Equal(padding, make([]byte, len(padding))) {
		return fmt.Errorf("%w: signature padding region", pspferrors.ErrNonZeroReservedArea)
	}

	unsigned := make([]byte, len(data))
	copy(unsigned, data)
	for i := idxOffSignature; i < idxOffSignature+idxSignatureRegionSize; i++ {
		unsigned[i] = 0
	}

	if !ed25519.Verify(idx.PublicKey[:], unsigned[14:IndexSize], idx.Signature[:]) {
		return pspferrors.ErrSignatureInvalid
	}
	return nil
}

// VerifyMagicBasics runs checks 1-2 of the §4.4 verification order against
// an already-located index-plus-footer byte slice of MagicTrailerSize.
func VerifyMagicBasics(trailer []byte) error {
	if len(trailer) != MagicTrailerSize {
		return fmt.Errorf("%w: trailer is %d bytes, want %d", pspferrors.ErrMalformedIndex, len(trailer), MagicTrailerSize)
	}
	footer := trailer[IndexSize:]
	if !bytes.Equal(footer[:4], PackageEmojiBytes) || !bytes.Equal(footer[4:], MagicWandEmojiBytes) {
		return pspferrors.ErrInvalidMagic
	}
	return nil
}
