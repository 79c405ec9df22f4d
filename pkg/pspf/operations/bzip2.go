package operations

import (
	"bytes"
	"io"

	"github.com/dsnet/compress/bzip2"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

// bzip2Codec uses dsnet/compress/bzip2 at level 9, matching the reference
// builder's choice (the standard library only ships a bzip2 reader, not a
// writer).
type bzip2Codec struct{}

func init() { Register(bzip2Codec{}) }

func (bzip2Codec) Opcode() format.Opcode { return format.OpBzip2 }

func (c bzip2Codec) Apply(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.ApplyStream(bytes.NewReader(data), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (bzip2Codec) ApplyStream(r io.Reader, w io.Writer) error {
	bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: 9})
	if err != nil {
		return err
	}
	if _, err := io.Copy(bw, r); err != nil {
		return err
	}
	return bw.Close()
}

func (c bzip2Codec) Reverse(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.ReverseStream(bytes.NewReader(data), &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (bzip2Codec) ReverseStream(r io.Reader, w io.Writer) error {
	br, err := bzip2.NewReader(r, &bzip2.ReaderConfig{})
	if err != nil {
		return err
	}
	defer br.Close()
	_, err = io.Copy(w, br)
	return err
}
