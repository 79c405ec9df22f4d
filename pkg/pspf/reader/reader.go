// Package reader implements the PSPF reader (C8): a stateless handle, given
// a read-only file, that validates the index block and exposes metadata and
// slot access.
package reader

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
	"github.com/pspf/flavorpack/pkg/pspf/format"
)

// ValidationLevel controls how much of §4.4's verification order runs on
// open (§4.10 step 2).
type ValidationLevel int

const (
	ValidationStrict ValidationLevel = iota
	ValidationStandard
	ValidationRelaxed
	ValidationMinimal
	ValidationNone
)

// ParseValidationLevel maps FLAVOR_VALIDATION's string values.
func ParseValidationLevel(s string) ValidationLevel {
	switch s {
	case "strict":
		return ValidationStrict
	case "standard":
		return ValidationStandard
	case "relaxed":
		return ValidationRelaxed
	case "minimal":
		return ValidationMinimal
	case "none":
		return ValidationNone
	default:
		return ValidationStrict
	}
}

// Reader reads a PSPF package, locating the index, validating its magics
// and exposing cached metadata/slot access. Not safe for concurrent use by
// multiple goroutines against the same *Reader.
type Reader struct {
	path     string
	file     *os.File
	index    *format.Index
	manifest *format.Manifest
	logger   hclog.Logger
}

// New creates a reader over path, not yet opened.
func New(path string, logger hclog.Logger) *Reader {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Reader{path: path, logger: logger}
}

// Open opens the underlying file handle, idempotently.
func (r *Reader) Open() error {
	if r.file != nil {
		return nil
	}
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("%w: %v", pspferrors.ErrReadFailed, err)
	}
	r.file = f
	return nil
}

// Close releases the file handle.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// ReadMagicTrailer locates and returns the 8192-byte index block, having
// confirmed the emoji bookends (§4.4 check 1).
func (r *Reader) ReadMagicTrailer() ([]byte, error) {
	if err := r.Open(); err != nil {
		return nil, err
	}
	info, err := r.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrReadFailed, err)
	}
	if info.Size() < format.MagicTrailerSize {
		return nil, fmt.Errorf("%w: file too small for a trailer", pspferrors.ErrTruncatedFile)
	}

	trailer := make([]byte, format.MagicTrailerSize)
	if _, err := r.file.ReadAt(trailer, info.Size()-format.MagicTrailerSize); err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrReadFailed, err)
	}
	if err := format.VerifyMagicBasics(trailer); err != nil {
		return nil, err
	}
	return trailer[:format.IndexSize], nil
}

// ReadIndex reads, unpacks and version-checks the index block (§4.4 checks
// 1-2), caching the result. It does not verify the CRC or signature; call
// Verify for that.
func (r *Reader) ReadIndex() (*format.Index, error) {
	if r.index != nil {
		return r.index, nil
	}
	data, err := r.ReadMagicTrailer()
	if err != nil {
		return nil, err
	}
	idx := &format.Index{}
	if err := idx.Unpack(data); err != nil {
		return nil, err
	}
	if idx.VersionMajor != format.FormatVersionMajor {
		return nil, fmt.Errorf("%w: got %d.%d, expected %d.x", pspferrors.ErrInvalidVersion, idx.VersionMajor, idx.VersionMinor, format.FormatVersionMajor)
	}
	r.index = idx
	return idx, nil
}

// Verify runs §4.4's checks at the given level. Level strict/standard run
// the CRC and signature checks (3-4); strict additionally verifies every
// slot checksum (check 6, via VerifyAllChecksums). relaxed/minimal skip
// the signature. none skips everything.
func (r *Reader) Verify(level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}
	data, err := r.rawIndexBytes()
	if err != nil {
		return err
	}

	if level <= ValidationStandard {
		if err := idx.VerifyCRC(data); err != nil {
			return err
		}
	}
	if level <= ValidationStandard {
		if err := idx.VerifySignature(data); err != nil {
			return err
		}
	}
	if err := r.verifyOffsetsWithinFile(idx); err != nil {
		return err
	}
	if level == ValidationStrict {
		if err := r.VerifyAllChecksums(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) rawIndexBytes() ([]byte, error) {
	if err := r.Open(); err != nil {
		return nil, err
	}
	info, err := r.file.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, format.IndexSize)
	if _, err := r.file.ReadAt(buf, info.Size()-format.MagicTrailerSize); err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrReadFailed, err)
	}
	return buf, nil
}

func (r *Reader) verifyOffsetsWithinFile(idx *format.Index) error {
	info, err := r.file.Stat()
	if err != nil {
		return err
	}
	size := uint64(info.Size())
	if idx.PackageSize != size {
		return fmt.Errorf("%w: index package_size %d, actual file size %d", pspferrors.ErrMalformedIndex, idx.PackageSize, size)
	}
	slotTableEnd := idx.SlotTableOffset + idx.SlotCount*format.SlotDescriptorSize
	if slotTableEnd > size-format.MagicTrailerSize {
		return fmt.Errorf("%w: slot table runs past index block", pspferrors.ErrMalformedIndex)
	}
	if idx.MetadataOffset+idx.MetadataSize > idx.SlotTableOffset && idx.SlotCount > 0 {
		return fmt.Errorf("%w: metadata overlaps slot payloads", pspferrors.ErrMalformedIndex)
	}
	return nil
}

// Metadata returns the decompressed, parsed manifest, cached after first
// read (§4.8: "metadata() -> Manifest (decompressed JSON, cached)").
func (r *Reader) Metadata() (*format.Manifest, error) {
	if r.manifest != nil {
		return r.manifest, nil
	}
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	gzipped, err := r.readRegion(idx.MetadataOffset, idx.MetadataSize)
	if err != nil {
		return nil, err
	}
	m, err := format.DecodeMetadata(gzipped)
	if err != nil {
		return nil, err
	}
	r.manifest = m
	return m, nil
}

func (r *Reader) readRegion(offset, size uint64) ([]byte, error) {
	if err := r.Open(); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if _, err := r.file.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrReadFailed, err)
	}
	return buf, nil
}
