package operations

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

// zstdCodec uses klauspost/compress/zstd, the pure-Go zstd implementation
// the wider ecosystem standardises on (rpcpool/yellowstone-faithful,
// moby/moby, goreleaser/nfpm and others all vendor it).
type zstdCodec struct{}

func init() { Register(zstdCodec{}) }

func (zstdCodec) Opcode() format.Opcode { return format.OpZstd }

func (c zstdCodec) Apply(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.ApplyStream(bytes.NewReader(data), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (zstdCodec) ApplyStream(r io.Reader, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := io.Copy(zw, r); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (c zstdCodec) Reverse(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.ReverseStream(bytes.NewReader(data), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (zstdCodec) ReverseStream(r io.Reader, w io.Writer) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()
	_, err = io.Copy(w, zr)
	return err
}
