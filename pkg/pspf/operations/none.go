package operations

import (
	"io"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

// noneCodec is the identity transform, opcode 0x00.
type noneCodec struct{}

func init() { Register(noneCodec{}) }

func (noneCodec) Opcode() format.Opcode { return format.OpNone }

func (noneCodec) Apply(data []byte) ([]byte, error) { return data, nil }

func (noneCodec) Reverse(data []byte) ([]byte, error) { return data, nil }

func (noneCodec) ApplyStream(r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

func (noneCodec) ReverseStream(r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}
