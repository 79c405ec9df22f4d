package operations

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

// xzCodec uses ulikunitz/xz for LZMA2 framing, the dependency the broader
// ecosystem (goreleaser/nfpm, knative-func, jesseduffield/lazydocker, among
// others) reaches for when it needs XZ in pure Go.
type xzCodec struct{}

func init() { Register(xzCodec{}) }

func (xzCodec) Opcode() format.Opcode { return format.OpXZ }

func (c xzCodec) Apply(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.ApplyStream(bytes.NewReader(data), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (xzCodec) ApplyStream(r io.Reader, w io.Writer) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := io.Copy(xw, r); err != nil {
		return err
	}
	return xw.Close()
}

func (c xzCodec) Reverse(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.ReverseStream(bytes.NewReader(data), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (xzCodec) ReverseStream(r io.Reader, w io.Writer) error {
	xr, err := xz.NewReader(r)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, xr)
	return err
}
