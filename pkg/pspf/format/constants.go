// Package format implements the PSPF/2025 binary layout: the index block,
// slot descriptors, operation chain encoding and the metadata envelope that
// the builder writes and the launcher verifies.
package format

import (
	"fmt"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
)

// Individual emoji bytes for the magic footer bookends.
var (
	PackageEmojiBytes   = []byte{0xF0, 0x9F, 0x93, 0xA6} // 📦
	MagicWandEmojiBytes = []byte{0xF0, 0x9F, 0xAA, 0x84} // 🪄
)

const (
	// FormatMagic is the ASCII magic at offset 0 of the index block.
	FormatMagic = "PSPF2025"

	// FormatVersionMajor/Minor identify this on-disk format revision.
	FormatVersionMajor = 1
	FormatVersionMinor = 0

	// IndexSize is the fixed size of the index block in bytes.
	IndexSize = 8192

	// MagicFooterSize is the size of the trailing 📦🪄 bookend.
	MagicFooterSize = 8

	// MagicTrailerSize is the index block plus its footer.
	MagicTrailerSize = IndexSize + MagicFooterSize

	// SlotDescriptorSize is the fixed size of one slot descriptor.
	SlotDescriptorSize = 64

	// SlotAlignment is the byte alignment slot payload offsets are reported at.
	// Payloads are never padded to this alignment; it is informational only.
	SlotAlignment = 8

	// Index block field offsets.
	idxOffMagic           = 0
	idxOffVersionMajor     = 8
	idxOffVersionMinor     = 9
	idxOffCRC32            = 10
	idxOffPackageSize      = 16
	idxOffLauncherSize     = 24
	idxOffMetadataOffset   = 32
	idxOffMetadataSize     = 40
	idxOffSlotTableOffset  = 48
	idxOffSlotCount        = 56
	idxOffPublicKey        = 64
	idxOffSignature        = 96
	idxSignatureRegionSize = 512
	idxOffReserved         = idxOffSignature + idxSignatureRegionSize // 608
)

// Purpose enumerates the declared role of a slot's payload.
type Purpose uint32

const (
	PurposeRuntime Purpose = iota
	PurposePayload
	PurposeResource
	PurposeData
	PurposeOther
)

func (p Purpose) String() string {
	switch p {
	case PurposeRuntime:
		return "runtime"
	case PurposePayload:
		return "payload"
	case PurposeResource:
		return "resource"
	case PurposeData:
		return "data"
	case PurposeOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParsePurpose maps a manifest purpose string to its enum value.
func ParsePurpose(s string) (Purpose, error) {
	switch s {
	case "runtime":
		return PurposeRuntime, nil
	case "payload":
		return PurposePayload, nil
	case "resource":
		return PurposeResource, nil
	case "data":
		return PurposeData, nil
	case "other":
		return PurposeOther, nil
	default:
		return 0, fmt.Errorf("%w: purpose %q", pspferrors.ErrInvalidManifest, s)
	}
}

// Lifecycle enumerates workenv retention policy for a slot.
type Lifecycle uint32

const (
	LifecycleCached Lifecycle = iota
	LifecycleVolatile
	LifecyclePersistent
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleCached:
		return "cached"
	case LifecycleVolatile:
		return "volatile"
	case LifecyclePersistent:
		return "persistent"
	default:
		return "unknown"
	}
}

// ParseLifecycle maps a manifest lifecycle string to its enum value.
func ParseLifecycle(s string) (Lifecycle, error) {
	switch s {
	case "cached":
		return LifecycleCached, nil
	case "volatile":
		return LifecycleVolatile, nil
	case "persistent":
		return LifecyclePersistent, nil
	default:
		return 0, fmt.Errorf("%w: lifecycle %q", pspferrors.ErrInvalidManifest, s)
	}
}

// AlignOffset rounds offset up to the nearest multiple of align.
func AlignOffset(offset int64, align int64) int64 {
	if align <= 1 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}
