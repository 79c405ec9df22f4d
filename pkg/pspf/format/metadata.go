package format

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	pspferrors "github.com/pspf/flavorpack/pkg/pspf/errors"
)

var modTimeZero time.Time

// EncodeMetadata serialises a manifest to JSON and gzip-compresses it, the
// exact bytes the builder appends as the metadata block (§3, region 2).
func EncodeMetadata(m *Manifest) ([]byte, error) {
	plain, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrInvalidManifest, err)
	}
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	// Deterministic builds (§4.7) must not leak a build timestamp into the
	// gzip header itself.
	gw.ModTime = modTimeZero
	if _, err := gw.Write(plain); err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrWriteFailed, err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrWriteFailed, err)
	}
	return buf.Bytes(), nil
}

// DecodeMetadata reverses EncodeMetadata.
func DecodeMetadata(gzipped []byte) (*Manifest, error) {
	gr, err := gzip.NewReader(bytes.NewReader(gzipped))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrReadFailed, err)
	}
	defer gr.Close()
	plain, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pspferrors.ErrReadFailed, err)
	}
	return ParseManifest(plain)
}
